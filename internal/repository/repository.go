package repository

import (
	"context"
	"time"

	"github.com/iceplantengineering/paperplant/internal/models"
)

// The entity store is split per consumer so each component only sees the
// queries it issues. Lookups by key return a wrapped models.ErrNotFound
// when the row is absent.

// LineageStore queries used to walk product -> batch -> lot and the batch's records
type LineageStore interface {
	GetRawMaterialLot(ctx context.Context, lotID string) (*models.RawMaterialLot, error)
	GetBatch(ctx context.Context, batchID string) (*models.ProductionBatch, error)
	GetFinishedProduct(ctx context.Context, productLotID string) (*models.FinishedProductLot, error)
	// GetFinishedProductByBatch earliest completed product of the batch
	GetFinishedProductByBatch(ctx context.Context, batchID string) (*models.FinishedProductLot, error)
	// ListProcessRecordsByBatch ordered by start_ts, record_id
	ListProcessRecordsByBatch(ctx context.Context, batchID string) ([]models.ProcessRecord, error)
	CountQualityChecksByRecord(ctx context.Context, recordID int64) (int, error)
	ListMachineLogsByRecord(ctx context.Context, recordID int64) ([]models.MachineStatusLog, error)
}

// MonitorStore queries behind process and machine status
type MonitorStore interface {
	// CountUnresolvedAlertsByProcess unresolved logs attached to records of the process, since <= ts <= until
	CountUnresolvedAlertsByProcess(ctx context.Context, code models.ProcessCode, since, until time.Time) (int, error)
	// CountOpenProcessRecords records of the process with no end_ts
	CountOpenProcessRecords(ctx context.Context, code models.ProcessCode) (int, error)
	GetLatestMachineLog(ctx context.Context, machineID string) (*models.MachineStatusLog, error)
	// ListProcessRecordsByProcess records with start <= start_ts <= end, ordered by start_ts
	ListProcessRecordsByProcess(ctx context.Context, code models.ProcessCode, start, end time.Time) ([]models.ProcessRecord, error)
	ListQualityChecksByRecord(ctx context.Context, recordID int64) ([]models.QualityCheck, error)
	CountBatchesByStatus(ctx context.Context, statuses []models.BatchStatus) (int, error)
}

// MachineLogFilter predicate for alert listings; nil fields impose nothing
type MachineLogFilter struct {
	Resolved   *bool
	AlertLevel *models.AlertLevel
	Since      *time.Time
	Limit      int
}

// AlertStore alert reads and the single permitted write
type AlertStore interface {
	// ListMachineLogs ordered by ts DESC
	ListMachineLogs(ctx context.Context, filter MachineLogFilter) ([]models.MachineStatusLog, error)
	// ResolveMachineLog sets resolved = true; resolving a resolved log succeeds
	ResolveMachineLog(ctx context.Context, logID int64) error
}

// KPIStore KPI and quality series reads
type KPIStore interface {
	// ListKPIMetrics rows matching name and period with ts >= since, ordered by ts
	ListKPIMetrics(ctx context.Context, name string, period models.PeriodType, since time.Time) ([]models.KPIMetric, error)
	// GetLatestKPITimestamp ErrNotFound when no row of the period exists
	GetLatestKPITimestamp(ctx context.Context, period models.PeriodType) (time.Time, error)
	ListKPIMetricsAt(ctx context.Context, period models.PeriodType, ts time.Time) ([]models.KPIMetric, error)
	// ListQualityChecksByParameter checks with ts >= since, ordered by ts
	ListQualityChecksByParameter(ctx context.Context, parameter string, since time.Time) ([]models.QualityCheck, error)
}

// EntityStore everything a single store handle provides
type EntityStore interface {
	LineageStore
	MonitorStore
	AlertStore
	KPIStore
}
