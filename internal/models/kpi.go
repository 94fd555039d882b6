package models

import (
	"fmt"
	"time"
)

// PeriodType aggregation period of a KPI row
type PeriodType string

const (
	PeriodHourly  PeriodType = "hourly"
	PeriodDaily   PeriodType = "daily"
	PeriodMonthly PeriodType = "monthly"
)

// ParsePeriodType accepts hourly|daily|monthly
func ParsePeriodType(s string) (PeriodType, error) {
	switch p := PeriodType(s); p {
	case PeriodHourly, PeriodDaily, PeriodMonthly:
		return p, nil
	}
	return "", fmt.Errorf("%w: period must be hourly, daily or monthly, got %q", ErrInvalidParameter, s)
}

// KPIMetric precomputed KPI observation (kpi_metrics)
type KPIMetric struct {
	MetricID    int64      `json:"metric_id" db:"metric_id"`
	TS          time.Time  `json:"timestamp" db:"ts"`
	MetricName  string     `json:"metric_name" db:"metric_name"`
	Value       float64    `json:"value" db:"value"`
	Unit        string     `json:"unit" db:"unit"`
	PeriodType  PeriodType `json:"period_type" db:"period_type"`
	MachineID   *string    `json:"machine_id,omitempty" db:"machine_id"`
	TargetValue float64    `json:"target_value" db:"target_value"` // may be 0 or negative
}
