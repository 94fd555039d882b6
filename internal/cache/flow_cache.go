package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iceplantengineering/paperplant/internal/monitor"

	"go.uber.org/zap"
)

// FlowCacheKey Redis key of the process-flow snapshot
const FlowCacheKey = "paperplant:process-flow"

// FlowCache process-flow snapshot cached as JSON with a TTL
type FlowCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewFlowCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *FlowCache {
	return &FlowCache{
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

// Get cached snapshot; ErrCacheMiss when absent, expired or undecodable
func (c *FlowCache) Get(ctx context.Context) (*monitor.FlowSnapshot, error) {
	raw, err := c.kv.Get(ctx, FlowCacheKey)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get flow cache: %w", err)
	}

	var snap monitor.FlowSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		c.logger.Warn("Discarding undecodable flow cache entry", zap.Error(err))
		return nil, ErrCacheMiss
	}
	return &snap, nil
}

// Set stores snap for the configured TTL
func (c *FlowCache) Set(ctx context.Context, snap *monitor.FlowSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal flow snapshot: %w", err)
	}
	if err := c.kv.Set(ctx, FlowCacheKey, string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to set flow cache: %w", err)
	}

	c.logger.Debug("Updated flow cache",
		zap.String("key", FlowCacheKey),
		zap.Duration("ttl", c.ttl),
	)
	return nil
}

// Invalidate drops the snapshot so the next read recomputes it
func (c *FlowCache) Invalidate(ctx context.Context) error {
	if err := c.kv.Del(ctx, FlowCacheKey); err != nil {
		return fmt.Errorf("failed to invalidate flow cache: %w", err)
	}
	return nil
}
