package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iceplantengineering/paperplant/internal/models"
	"github.com/iceplantengineering/paperplant/internal/repository"

	"go.uber.org/zap"
)

const (
	// AlertWindow lookback for unresolved alerts driving the alarm state
	AlertWindow = time.Hour
	// DefaultDetailWindow used when a detail request omits start
	DefaultDetailWindow = 24 * time.Hour
)

// ProcessStatus derived state of one process
type ProcessStatus struct {
	ProcessCode   models.ProcessCode  `json:"process_code"`
	Name          string              `json:"name"`
	State         models.ProcessState `json:"status"`
	ActiveBatches int                 `json:"active_batches"`
	RecentAlerts  int                 `json:"recent_alerts"`
}

// MachineSnapshot latest known state of one machine
type MachineSnapshot struct {
	MachineID  string               `json:"machine_id"`
	Status     models.MachineStatus `json:"status"`
	LastUpdate time.Time            `json:"last_update"`
	AlertLevel models.AlertLevel    `json:"alert_level"`
}

// FlowSnapshot status of every process in line order
type FlowSnapshot struct {
	Processes   map[models.ProcessCode]ProcessStatus `json:"processes"`
	GeneratedAt time.Time                            `json:"generated_at"`
}

// TimeRange closed interval
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// QualityPoint a quality check flattened for monitoring charts
type QualityPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	RecordID   int64     `json:"record_id"`
	Parameter  string    `json:"parameter"`
	Value      float64   `json:"value"`
	Target     float64   `json:"target"`
	UpperLimit float64   `json:"upper_limit"`
	LowerLimit float64   `json:"lower_limit"`
	IsOK       bool      `json:"is_ok"`
	CDProfile  []float64 `json:"cd_profile,omitempty"`
}

// ProcessDetail monitoring view of one process over a time range
type ProcessDetail struct {
	ProcessCode   models.ProcessCode `json:"process_code"`
	TimeRange     TimeRange          `json:"time_range"`
	QualityData   []QualityPoint     `json:"quality_data"`
	MachineStatus []MachineSnapshot  `json:"machine_status"`
	TotalRecords  int                `json:"total_records"`
}

// Aggregator derives process and machine status from the store
type Aggregator struct {
	store  repository.MonitorStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAggregator aggregator using the wall clock
func NewAggregator(store repository.MonitorStore, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for default windows
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Status alarm when unresolved alerts exist in [now-1h, now], else running
// when a record is still open, else idle. Unknown codes are idle with zero counts.
func (a *Aggregator) Status(ctx context.Context, code models.ProcessCode, now time.Time) (*ProcessStatus, error) {
	st := &ProcessStatus{
		ProcessCode: code,
		Name:        code.DisplayName(),
		State:       models.ProcessIdle,
	}
	if !code.Valid() {
		return st, nil
	}

	alerts, err := a.store.CountUnresolvedAlertsByProcess(ctx, code, now.Add(-AlertWindow), now)
	if err != nil {
		return nil, err
	}
	open, err := a.store.CountOpenProcessRecords(ctx, code)
	if err != nil {
		return nil, err
	}

	st.RecentAlerts = alerts
	st.ActiveBatches = open
	switch {
	case alerts > 0:
		st.State = models.ProcessAlarm
	case open > 0:
		st.State = models.ProcessRunning
	}
	return st, nil
}

// MachineStatuses latest log per machine mapped to code; machines without logs are omitted
func (a *Aggregator) MachineStatuses(ctx context.Context, code models.ProcessCode) ([]MachineSnapshot, error) {
	snapshots := []MachineSnapshot{}
	for _, machineID := range code.Machines() {
		l, err := a.store.GetLatestMachineLog(ctx, machineID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return nil, err
		}
		snapshots = append(snapshots, MachineSnapshot{
			MachineID:  machineID,
			Status:     l.Status,
			LastUpdate: l.TS,
			AlertLevel: l.AlertLevel,
		})
	}
	return snapshots, nil
}

// FlowStatus Status for P1..P4
func (a *Aggregator) FlowStatus(ctx context.Context, now time.Time) (*FlowSnapshot, error) {
	snap := &FlowSnapshot{
		Processes:   make(map[models.ProcessCode]ProcessStatus, len(models.ProcessCodes)),
		GeneratedAt: now,
	}
	for _, code := range models.ProcessCodes {
		st, err := a.Status(ctx, code, now)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s status: %w", code, err)
		}
		snap.Processes[code] = *st
	}
	return snap, nil
}

// Detail records started inside the range with their quality checks and
// the current machine snapshots. Nil bounds default to the last 24 hours.
func (a *Aggregator) Detail(ctx context.Context, code models.ProcessCode, start, end *time.Time) (*ProcessDetail, error) {
	now := a.now()
	rng := TimeRange{Start: now.Add(-DefaultDetailWindow), End: now}
	if start != nil {
		rng.Start = *start
	}
	if end != nil {
		rng.End = *end
	}
	if rng.Start.After(rng.End) {
		return nil, fmt.Errorf("%w: start_time %s is after end_time %s",
			models.ErrInvalidParameter, rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339))
	}

	detail := &ProcessDetail{
		ProcessCode:   code,
		TimeRange:     rng,
		QualityData:   []QualityPoint{},
		MachineStatus: []MachineSnapshot{},
	}
	if !code.Valid() {
		return detail, nil
	}

	records, err := a.store.ListProcessRecordsByProcess(ctx, code, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	detail.TotalRecords = len(records)

	for _, rec := range records {
		checks, err := a.store.ListQualityChecksByRecord(ctx, rec.RecordID)
		if err != nil {
			return nil, err
		}
		for _, qc := range checks {
			detail.QualityData = append(detail.QualityData, QualityPoint{
				Timestamp:  qc.TS,
				RecordID:   qc.RecordID,
				Parameter:  qc.ParameterName,
				Value:      qc.Value,
				Target:     qc.TargetValue,
				UpperLimit: qc.UpperLimit,
				LowerLimit: qc.LowerLimit,
				IsOK:       qc.IsOK,
				CDProfile:  qc.ValueArray,
			})
		}
	}

	machines, err := a.MachineStatuses(ctx, code)
	if err != nil {
		return nil, err
	}
	detail.MachineStatus = machines

	a.logger.Debug("Built process detail",
		zap.String("process_code", string(code)),
		zap.Int("records", detail.TotalRecords),
		zap.Int("quality_points", len(detail.QualityData)),
	)
	return detail, nil
}

// ActiveBatchCount batches in active or processing status
func (a *Aggregator) ActiveBatchCount(ctx context.Context) (int, error) {
	return a.store.CountBatchesByStatus(ctx, models.InProgressBatchStatuses)
}
