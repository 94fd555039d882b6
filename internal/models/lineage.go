package models

import (
	"time"
)

// BatchStatus production batch lifecycle state
type BatchStatus string

const (
	BatchActive     BatchStatus = "active"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
)

// InProgressBatchStatuses statuses counted as "active batches" on the dashboard
var InProgressBatchStatuses = []BatchStatus{BatchActive, BatchProcessing}

// RawMaterialLot raw material delivery (raw_material_lots)
type RawMaterialLot struct {
	LotID           string    `json:"lot_id" db:"lot_id"`
	ArrivalTS       time.Time `json:"arrival_ts" db:"arrival_ts"`
	SupplierName    string    `json:"supplier_name" db:"supplier_name"`
	MaterialType    string    `json:"material_type" db:"material_type"`
	OriginCountry   string    `json:"origin_country,omitempty" db:"origin_country"`
	FSCCertID       *string   `json:"fsc_cert_id,omitempty" db:"fsc_cert_id"` // nil: not FSC-certified
	WeightKg        float64   `json:"weight_kg" db:"weight_kg"`
	MoistureContent float64   `json:"moisture_content" db:"moisture_content"`
}

// FSCCertified reports whether the lot carries an FSC chain-of-custody cert
func (l *RawMaterialLot) FSCCertified() bool {
	return l.FSCCertID != nil && *l.FSCCertID != ""
}

// ProductionBatch material tracked through the process steps (production_batches)
type ProductionBatch struct {
	BatchID           string      `json:"batch_id" db:"batch_id"`
	RawMaterialLotID  string      `json:"raw_material_lot_id" db:"raw_material_lot_id"`
	CreationTS        time.Time   `json:"creation_ts" db:"creation_ts"`
	BatchType         string      `json:"batch_type" db:"batch_type"`
	InitialQuantityKg float64     `json:"initial_quantity_kg" db:"initial_quantity_kg"`
	CurrentQuantityKg float64     `json:"current_quantity_kg" db:"current_quantity_kg"`
	Status            BatchStatus `json:"status" db:"status"`
}

// ProcessRecord one batch passing one process step (process_records)
type ProcessRecord struct {
	RecordID    int64       `json:"record_id" db:"record_id"`
	BatchID     string      `json:"batch_id" db:"batch_id"`
	ProcessCode ProcessCode `json:"process_code" db:"process_code"`
	MachineID   string      `json:"machine_id" db:"machine_id"`
	StartTS     time.Time   `json:"start_ts" db:"start_ts"`
	EndTS       *time.Time  `json:"end_ts,omitempty" db:"end_ts"` // nil: step still in progress
	OperatorID  string      `json:"operator_id" db:"operator_id"`
	OutputKg    float64     `json:"output_kg" db:"output_kg"`
}

// InProgress true while end_ts is absent
func (r *ProcessRecord) InProgress() bool {
	return r.EndTS == nil
}

// DurationHours elapsed time of a completed step; 0 while in progress
func (r *ProcessRecord) DurationHours() float64 {
	if r.EndTS == nil {
		return 0
	}
	return r.EndTS.Sub(r.StartTS).Hours()
}

// FinishedProductLot finished rolls produced from a batch (finished_product_lots)
type FinishedProductLot struct {
	ProductLotID   string     `json:"product_lot_id" db:"product_lot_id"`
	BatchID        string     `json:"batch_id" db:"batch_id"`
	ProductCode    string     `json:"product_code" db:"product_code"`
	CompletionTS   time.Time  `json:"completion_ts" db:"completion_ts"`
	Destination    string     `json:"destination" db:"destination"`
	ShipmentTS     *time.Time `json:"shipment_ts,omitempty" db:"shipment_ts"` // nil: not yet shipped
	QuantityKg     float64    `json:"quantity_kg" db:"quantity_kg"`
	RollCount      int        `json:"roll_count" db:"roll_count"`
	FinalQualityOK bool       `json:"final_quality_ok" db:"final_quality_ok"`
}

// Shipped true once shipment_ts is recorded
func (p *FinishedProductLot) Shipped() bool {
	return p.ShipmentTS != nil
}
