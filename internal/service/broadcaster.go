package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rediscommon "github.com/iceplantengineering/paperplant/common/redis"
	"github.com/iceplantengineering/paperplant/internal/cache"
	"github.com/iceplantengineering/paperplant/internal/monitor"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher fire-and-forget message sink (MQTT in production)
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// BroadcasterConfig loop settings
type BroadcasterConfig struct {
	Interval      time.Duration
	Topic         string
	QoS           byte
	AlertStream   string
	ConsumerGroup string
	ConsumerName  string
}

// Broadcaster keeps the flow cache warm and pushes snapshots to subscribers.
// Besides the ticker it refreshes as soon as an alert.resolved event arrives.
type Broadcaster struct {
	cfg       BroadcasterConfig
	monitor   *monitor.Aggregator
	flowCache *cache.FlowCache // optional
	publisher Publisher        // optional
	redis     *redis.Client    // optional, enables the stream consumer
	logger    *zap.Logger
	now       func() time.Time
}

func NewBroadcaster(
	cfg BroadcasterConfig,
	agg *monitor.Aggregator,
	flowCache *cache.FlowCache,
	publisher Publisher,
	redisClient *redis.Client,
	logger *zap.Logger,
) *Broadcaster {
	return &Broadcaster{
		cfg:       cfg,
		monitor:   agg,
		flowCache: flowCache,
		publisher: publisher,
		redis:     redisClient,
		logger:    logger,
		now:       time.Now,
	}
}

// Start blocks until ctx is cancelled
func (b *Broadcaster) Start(ctx context.Context) error {
	if b.cfg.Interval <= 0 {
		return fmt.Errorf("invalid broadcast interval: %s", b.cfg.Interval)
	}

	b.logger.Info("Starting process-flow broadcaster",
		zap.Duration("interval", b.cfg.Interval),
		zap.String("topic", b.cfg.Topic),
		zap.Bool("mqtt", b.publisher != nil),
		zap.Bool("cache", b.flowCache != nil),
	)

	if b.redis != nil && b.cfg.AlertStream != "" {
		if err := rediscommon.CreateConsumerGroup(ctx, b.redis, b.cfg.AlertStream, b.cfg.ConsumerGroup); err != nil {
			return err
		}
		go b.consumeAlertEvents(ctx)
	}

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	if err := b.Refresh(ctx); err != nil {
		b.logger.Error("Failed to refresh process flow on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Broadcaster stopped")
			return nil
		case <-ticker.C:
			if err := b.Refresh(ctx); err != nil {
				b.logger.Error("Failed to refresh process flow", zap.Error(err))
			}
		}
	}
}

// Refresh recomputes the flow snapshot, caches it and publishes it
func (b *Broadcaster) Refresh(ctx context.Context) error {
	snap, err := b.monitor.FlowStatus(ctx, b.now())
	if err != nil {
		return err
	}

	if b.flowCache != nil {
		if err := b.flowCache.Set(ctx, snap); err != nil {
			b.logger.Warn("Failed to update flow cache", zap.Error(err))
		}
	}

	if b.publisher != nil {
		payload, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal flow snapshot: %w", err)
		}
		if err := b.publisher.Publish(b.cfg.Topic, b.cfg.QoS, true, payload); err != nil {
			return err
		}
	}

	b.logger.Debug("Process flow refreshed", zap.Time("generated_at", snap.GeneratedAt))
	return nil
}

func (b *Broadcaster) consumeAlertEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := b.consumeOnce(ctx, 5*time.Second); err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("Failed to read alert events", zap.Error(err))
			time.Sleep(time.Second)
		}
	}
}

// consumeOnce reads one batch; any alert.resolved in it triggers a single refresh
func (b *Broadcaster) consumeOnce(ctx context.Context, block time.Duration) (int, error) {
	msgs, err := rediscommon.ReadFromStream(ctx, b.redis, b.cfg.AlertStream, b.cfg.ConsumerGroup, b.cfg.ConsumerName, 10, block)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, msg := range msgs {
		if t, _ := msg.Values["type"].(string); t == EventAlertResolved {
			resolved++
			b.logger.Info("Alert resolved event received",
				zap.String("message_id", msg.ID),
				zap.String("data", msg.Data()),
			)
		}
	}

	if resolved > 0 {
		if err := b.Refresh(ctx); err != nil {
			b.logger.Error("Failed to refresh after alert resolution", zap.Error(err))
		}
	}

	for _, msg := range msgs {
		if err := rediscommon.AckMessage(ctx, b.redis, msg.Stream, b.cfg.ConsumerGroup, msg.ID); err != nil {
			b.logger.Warn("Failed to ack alert event", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	return resolved, nil
}
