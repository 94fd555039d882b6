package service

import (
	"context"
	"fmt"
	"time"

	rediscommon "github.com/iceplantengineering/paperplant/common/redis"
	"github.com/iceplantengineering/paperplant/internal/alerts"
	"github.com/iceplantengineering/paperplant/internal/cache"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EventAlertResolved stream event type published after a resolve
const EventAlertResolved = "alert.resolved"

// AlertResolvedEvent payload of EventAlertResolved
type AlertResolvedEvent struct {
	LogID      int64     `json:"log_id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// AlertNotifier delivers resolution events to other processes
type AlertNotifier interface {
	AlertResolved(ctx context.Context, event AlertResolvedEvent) error
}

// StreamNotifier AlertNotifier over a Redis stream
type StreamNotifier struct {
	client *redis.Client
	stream string
}

func NewStreamNotifier(client *redis.Client, stream string) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream}
}

func (n *StreamNotifier) AlertResolved(ctx context.Context, event AlertResolvedEvent) error {
	_, err := rediscommon.PublishJSONToStream(ctx, n.client, n.stream, EventAlertResolved, event)
	return err
}

// AlertService resolution plus the side effects around it
type AlertService interface {
	Resolve(ctx context.Context, logID int64) error
}

type alertService struct {
	registry  *alerts.Registry
	notifier  AlertNotifier    // optional
	flowCache *cache.FlowCache // optional
	logger    *zap.Logger
	now       func() time.Time
}

// NewAlertService notifier and flowCache may be nil
func NewAlertService(registry *alerts.Registry, notifier AlertNotifier, flowCache *cache.FlowCache, logger *zap.Logger) AlertService {
	return &alertService{
		registry:  registry,
		notifier:  notifier,
		flowCache: flowCache,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve flips the flag; notification and cache failures are logged, not returned
func (s *alertService) Resolve(ctx context.Context, logID int64) error {
	if err := s.registry.Resolve(ctx, logID); err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}

	if s.flowCache != nil {
		if err := s.flowCache.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate flow cache", zap.Int64("log_id", logID), zap.Error(err))
		}
	}

	if s.notifier != nil {
		event := AlertResolvedEvent{LogID: logID, ResolvedAt: s.now()}
		if err := s.notifier.AlertResolved(ctx, event); err != nil {
			s.logger.Error("Failed to publish alert resolution",
				zap.Int64("log_id", logID),
				zap.Error(err),
			)
		}
	}
	return nil
}
