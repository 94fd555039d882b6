package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iceplantengineering/paperplant/internal/models"
)

var _ EntityStore = (*MemoryStore)(nil)

// MemoryStore in-process EntityStore. The API falls back to it when the
// database is unreachable; tests seed it through the Add* methods.
type MemoryStore struct {
	mu sync.RWMutex

	lots     map[string]models.RawMaterialLot
	batches  map[string]models.ProductionBatch
	products map[string]models.FinishedProductLot
	records  []models.ProcessRecord
	checks   []models.QualityCheck
	logs     []models.MachineStatusLog
	metrics  []models.KPIMetric

	nextID int64
}

// NewMemoryStore empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lots:     map[string]models.RawMaterialLot{},
		batches:  map[string]models.ProductionBatch{},
		products: map[string]models.FinishedProductLot{},
	}
}

func (s *MemoryStore) allocID(id int64) int64 {
	if id != 0 {
		if id > s.nextID {
			s.nextID = id
		}
		return id
	}
	s.nextID++
	return s.nextID
}

// ---- seeding ----

func (s *MemoryStore) AddRawMaterialLot(lot models.RawMaterialLot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[lot.LotID] = lot
}

func (s *MemoryStore) AddBatch(b models.ProductionBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.BatchID] = b
}

func (s *MemoryStore) AddFinishedProduct(p models.FinishedProductLot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ProductLotID] = p
}

// AddProcessRecord stores rec, assigning a record_id when zero; returns the id
func (s *MemoryStore) AddProcessRecord(rec models.ProcessRecord) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.RecordID = s.allocID(rec.RecordID)
	s.records = append(s.records, rec)
	return rec.RecordID
}

func (s *MemoryStore) AddQualityCheck(qc models.QualityCheck) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	qc.CheckID = s.allocID(qc.CheckID)
	s.checks = append(s.checks, qc)
	return qc.CheckID
}

func (s *MemoryStore) AddMachineLog(l models.MachineStatusLog) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.LogID = s.allocID(l.LogID)
	s.logs = append(s.logs, l)
	return l.LogID
}

func (s *MemoryStore) AddKPIMetric(m models.KPIMetric) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.MetricID = s.allocID(m.MetricID)
	s.metrics = append(s.metrics, m)
	return m.MetricID
}

// ---- LineageStore ----

func (s *MemoryStore) GetRawMaterialLot(_ context.Context, lotID string) (*models.RawMaterialLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return nil, fmt.Errorf("%w: raw material lot %s", models.ErrNotFound, lotID)
	}
	return &lot, nil
}

func (s *MemoryStore) GetBatch(_ context.Context, batchID string) (*models.ProductionBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("%w: batch %s", models.ErrNotFound, batchID)
	}
	return &b, nil
}

func (s *MemoryStore) GetFinishedProduct(_ context.Context, productLotID string) (*models.FinishedProductLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productLotID]
	if !ok {
		return nil, fmt.Errorf("%w: finished product %s", models.ErrNotFound, productLotID)
	}
	return &p, nil
}

func (s *MemoryStore) GetFinishedProductByBatch(_ context.Context, batchID string) (*models.FinishedProductLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.FinishedProductLot
	for _, p := range s.products {
		if p.BatchID != batchID {
			continue
		}
		if found == nil ||
			p.CompletionTS.Before(found.CompletionTS) ||
			(p.CompletionTS.Equal(found.CompletionTS) && p.ProductLotID < found.ProductLotID) {
			cp := p
			found = &cp
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: finished product for batch %s", models.ErrNotFound, batchID)
	}
	return found, nil
}

func (s *MemoryStore) ListProcessRecordsByBatch(_ context.Context, batchID string) ([]models.ProcessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.ProcessRecord{}
	for _, r := range s.records {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) CountQualityChecksByRecord(_ context.Context, recordID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, qc := range s.checks {
		if qc.RecordID == recordID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListMachineLogsByRecord(_ context.Context, recordID int64) ([]models.MachineStatusLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.MachineStatusLog{}
	for _, l := range s.logs {
		if l.RecordID != nil && *l.RecordID == recordID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TS.Equal(out[j].TS) {
			return out[i].TS.Before(out[j].TS)
		}
		return out[i].LogID < out[j].LogID
	})
	return out, nil
}

// ---- MonitorStore ----

func (s *MemoryStore) CountUnresolvedAlertsByProcess(_ context.Context, code models.ProcessCode, since, until time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make(map[int64]models.ProcessCode, len(s.records))
	for _, r := range s.records {
		codes[r.RecordID] = r.ProcessCode
	}
	n := 0
	for _, l := range s.logs {
		if l.Resolved || l.RecordID == nil || codes[*l.RecordID] != code {
			continue
		}
		if l.TS.Before(since) || l.TS.After(until) {
			continue
		}
		n++
	}
	return n, nil
}

func (s *MemoryStore) CountOpenProcessRecords(_ context.Context, code models.ProcessCode) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.records {
		if r.ProcessCode == code && r.EndTS == nil {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) GetLatestMachineLog(_ context.Context, machineID string) (*models.MachineStatusLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.MachineStatusLog
	for i := range s.logs {
		l := s.logs[i]
		if l.MachineID != machineID {
			continue
		}
		if latest == nil || l.TS.After(latest.TS) || (l.TS.Equal(latest.TS) && l.LogID > latest.LogID) {
			cp := l
			latest = &cp
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: machine log for %s", models.ErrNotFound, machineID)
	}
	return latest, nil
}

func (s *MemoryStore) ListProcessRecordsByProcess(_ context.Context, code models.ProcessCode, start, end time.Time) ([]models.ProcessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.ProcessRecord{}
	for _, r := range s.records {
		if r.ProcessCode != code || r.StartTS.Before(start) || r.StartTS.After(end) {
			continue
		}
		out = append(out, r)
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) ListQualityChecksByRecord(_ context.Context, recordID int64) ([]models.QualityCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.QualityCheck{}
	for _, qc := range s.checks {
		if qc.RecordID == recordID {
			out = append(out, copyCheck(qc))
		}
	}
	sortChecks(out)
	return out, nil
}

func (s *MemoryStore) CountBatchesByStatus(_ context.Context, statuses []models.BatchStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[models.BatchStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	n := 0
	for _, b := range s.batches {
		if want[b.Status] {
			n++
		}
	}
	return n, nil
}

// ---- AlertStore ----

func (s *MemoryStore) ListMachineLogs(_ context.Context, filter MachineLogFilter) ([]models.MachineStatusLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.MachineStatusLog{}
	for _, l := range s.logs {
		if filter.Resolved != nil && l.Resolved != *filter.Resolved {
			continue
		}
		if filter.AlertLevel != nil && l.AlertLevel != *filter.AlertLevel {
			continue
		}
		if filter.Since != nil && l.TS.Before(*filter.Since) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TS.Equal(out[j].TS) {
			return out[i].TS.After(out[j].TS)
		}
		return out[i].LogID > out[j].LogID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) ResolveMachineLog(_ context.Context, logID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.logs {
		if s.logs[i].LogID == logID {
			s.logs[i].Resolved = true
			return nil
		}
	}
	return fmt.Errorf("%w: machine log %d", models.ErrNotFound, logID)
}

// ---- KPIStore ----

func (s *MemoryStore) ListKPIMetrics(_ context.Context, name string, period models.PeriodType, since time.Time) ([]models.KPIMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.KPIMetric{}
	for _, m := range s.metrics {
		if m.MetricName == name && m.PeriodType == period && !m.TS.Before(since) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TS.Equal(out[j].TS) {
			return out[i].TS.Before(out[j].TS)
		}
		return out[i].MetricID < out[j].MetricID
	})
	return out, nil
}

func (s *MemoryStore) GetLatestKPITimestamp(_ context.Context, period models.PeriodType) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest time.Time
	found := false
	for _, m := range s.metrics {
		if m.PeriodType != period {
			continue
		}
		if !found || m.TS.After(latest) {
			latest = m.TS
			found = true
		}
	}
	if !found {
		return time.Time{}, fmt.Errorf("%w: no %s kpi metrics", models.ErrNotFound, period)
	}
	return latest, nil
}

func (s *MemoryStore) ListKPIMetricsAt(_ context.Context, period models.PeriodType, ts time.Time) ([]models.KPIMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.KPIMetric{}
	for _, m := range s.metrics {
		if m.PeriodType == period && m.TS.Equal(ts) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MetricName != out[j].MetricName {
			return out[i].MetricName < out[j].MetricName
		}
		return out[i].MetricID < out[j].MetricID
	})
	return out, nil
}

func (s *MemoryStore) ListQualityChecksByParameter(_ context.Context, parameter string, since time.Time) ([]models.QualityCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.QualityCheck{}
	for _, qc := range s.checks {
		if qc.ParameterName == parameter && !qc.TS.Before(since) {
			out = append(out, copyCheck(qc))
		}
	}
	sortChecks(out)
	return out, nil
}

func sortRecords(rs []models.ProcessRecord) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].StartTS.Equal(rs[j].StartTS) {
			return rs[i].StartTS.Before(rs[j].StartTS)
		}
		return rs[i].RecordID < rs[j].RecordID
	})
}

func sortChecks(cs []models.QualityCheck) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].TS.Equal(cs[j].TS) {
			return cs[i].TS.Before(cs[j].TS)
		}
		return cs[i].CheckID < cs[j].CheckID
	})
}

func copyCheck(qc models.QualityCheck) models.QualityCheck {
	if qc.ValueArray != nil {
		arr := make([]float64, len(qc.ValueArray))
		copy(arr, qc.ValueArray)
		qc.ValueArray = arr
	}
	return qc
}
