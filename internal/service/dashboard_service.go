package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iceplantengineering/paperplant/internal/alerts"
	"github.com/iceplantengineering/paperplant/internal/cache"
	"github.com/iceplantengineering/paperplant/internal/kpi"
	"github.com/iceplantengineering/paperplant/internal/monitor"

	"go.uber.org/zap"
)

// DashboardService composite dashboard views
type DashboardService interface {
	Summary(ctx context.Context) (*DashboardSummary, error)
	// ProcessFlow flow snapshot, served from cache when available
	ProcessFlow(ctx context.Context) (*monitor.FlowSnapshot, error)
}

// CriticalAlert compact alert for the summary
type CriticalAlert struct {
	LogID     int64     `json:"log_id"`
	MachineID string    `json:"machine_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
}

// DashboardSummary plant overview
type DashboardSummary struct {
	KPIs           map[string]kpi.SummaryValue `json:"kpis"`
	ActiveBatches  int                         `json:"active_batches"`
	CriticalAlerts []CriticalAlert             `json:"critical_alerts"`
	LastUpdated    time.Time                   `json:"last_updated"`
}

type dashboardService struct {
	kpis      *kpi.Evaluator
	monitor   *monitor.Aggregator
	alerts    *alerts.Registry
	flowCache *cache.FlowCache // nil when Redis is disabled
	logger    *zap.Logger
	now       func() time.Time
}

// NewDashboardService flowCache may be nil
func NewDashboardService(
	kpis *kpi.Evaluator,
	agg *monitor.Aggregator,
	registry *alerts.Registry,
	flowCache *cache.FlowCache,
	logger *zap.Logger,
) DashboardService {
	return &dashboardService{
		kpis:      kpis,
		monitor:   agg,
		alerts:    registry,
		flowCache: flowCache,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *dashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	kpis, err := s.kpis.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load kpi summary: %w", err)
	}

	active, err := s.monitor.ActiveBatchCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active batches: %w", err)
	}

	logs, err := s.alerts.CriticalAlerts(ctx, alerts.DefaultCriticalWindow, alerts.DefaultCriticalLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load critical alerts: %w", err)
	}
	critical := make([]CriticalAlert, 0, len(logs))
	for _, l := range logs {
		critical = append(critical, CriticalAlert{
			LogID:     l.LogID,
			MachineID: l.MachineID,
			Message:   l.Message,
			Timestamp: l.TS,
			Level:     string(l.AlertLevel),
		})
	}

	return &DashboardSummary{
		KPIs:           kpis,
		ActiveBatches:  active,
		CriticalAlerts: critical,
		LastUpdated:    s.now(),
	}, nil
}

func (s *dashboardService) ProcessFlow(ctx context.Context) (*monitor.FlowSnapshot, error) {
	if s.flowCache != nil {
		snap, err := s.flowCache.Get(ctx)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Flow cache read failed, recomputing", zap.Error(err))
		}
	}

	snap, err := s.monitor.FlowStatus(ctx, s.now())
	if err != nil {
		return nil, err
	}

	if s.flowCache != nil {
		if err := s.flowCache.Set(ctx, snap); err != nil {
			s.logger.Warn("Failed to cache flow snapshot", zap.Error(err))
		}
	}
	return snap, nil
}
