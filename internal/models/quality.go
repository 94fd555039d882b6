package models

import "time"

// MeasurementType where a quality value was taken
type MeasurementType string

const (
	MeasurementOnline  MeasurementType = "online"
	MeasurementOffline MeasurementType = "offline"
)

// QualityCheck one measured parameter for a process record (quality_checks)
type QualityCheck struct {
	CheckID         int64           `json:"check_id" db:"check_id"`
	RecordID        int64           `json:"record_id" db:"record_id"`
	TS              time.Time       `json:"timestamp" db:"ts"`
	ParameterName   string          `json:"parameter_name" db:"parameter_name"`
	Value           float64         `json:"value" db:"value"`
	ValueArray      []float64       `json:"value_array,omitempty" db:"value_array"` // CD profile
	TargetValue     float64         `json:"target_value" db:"target_value"`
	UpperLimit      float64         `json:"upper_limit" db:"upper_limit"`
	LowerLimit      float64         `json:"lower_limit" db:"lower_limit"`
	IsOK            bool            `json:"is_ok" db:"is_ok"`
	MeasurementType MeasurementType `json:"measurement_type" db:"measurement_type"`
}

// WithinSpec lower <= value <= upper, inclusive on both bounds
func WithinSpec(value, lower, upper float64) bool {
	return lower <= value && value <= upper
}

// NewQualityCheck builds a check with IsOK fixed at write time from the bounds.
// Readers must use the stored flag and never recompute it.
func NewQualityCheck(recordID int64, ts time.Time, parameter string, value, target, lower, upper float64, mt MeasurementType) QualityCheck {
	return QualityCheck{
		RecordID:        recordID,
		TS:              ts,
		ParameterName:   parameter,
		Value:           value,
		TargetValue:     target,
		UpperLimit:      upper,
		LowerLimit:      lower,
		IsOK:            WithinSpec(value, lower, upper),
		MeasurementType: mt,
	}
}
