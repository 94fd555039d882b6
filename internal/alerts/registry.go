package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/iceplantengineering/paperplant/internal/models"
	"github.com/iceplantengineering/paperplant/internal/repository"

	"go.uber.org/zap"
)

const (
	MinLimit = 1
	MaxLimit = 200

	DefaultCriticalWindow = 24 * time.Hour
	DefaultCriticalLimit  = 10
)

// Registry alert queries and resolution
type Registry struct {
	store  repository.AlertStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistry registry using the wall clock
func NewRegistry(store repository.AlertStore, logger *zap.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for the critical-alert window
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// List alerts matching filter (active|resolved|all), newest first.
// limit outside [1,200] is rejected, not clamped.
func (r *Registry) List(ctx context.Context, filter string, limit int) ([]models.MachineStatusLog, error) {
	f, err := models.ParseAlertFilter(filter)
	if err != nil {
		return nil, err
	}
	if limit < MinLimit || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between %d and %d, got %d", models.ErrInvalidParameter, MinLimit, MaxLimit, limit)
	}

	return r.store.ListMachineLogs(ctx, repository.MachineLogFilter{
		Resolved: f.ResolvedValue(),
		Limit:    limit,
	})
}

// Resolve marks the log resolved. Resolving an already resolved log succeeds;
// there is no way back to unresolved.
func (r *Registry) Resolve(ctx context.Context, logID int64) error {
	if logID <= 0 {
		return fmt.Errorf("%w: log_id must be positive, got %d", models.ErrInvalidParameter, logID)
	}
	if err := r.store.ResolveMachineLog(ctx, logID); err != nil {
		return err
	}
	r.logger.Info("Alert resolved", zap.Int64("log_id", logID))
	return nil
}

// CriticalAlerts unresolved critical alerts inside the window, newest first.
// Non-positive window or limit take the defaults (24h, 10).
func (r *Registry) CriticalAlerts(ctx context.Context, window time.Duration, limit int) ([]models.MachineStatusLog, error) {
	if window <= 0 {
		window = DefaultCriticalWindow
	}
	if limit <= 0 {
		limit = DefaultCriticalLimit
	}

	resolved := false
	level := models.AlertCritical
	since := r.now().Add(-window)

	return r.store.ListMachineLogs(ctx, repository.MachineLogFilter{
		Resolved:   &resolved,
		AlertLevel: &level,
		Since:      &since,
		Limit:      limit,
	})
}
