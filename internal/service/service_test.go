package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/iceplantengineering/paperplant/internal/alerts"
	"github.com/iceplantengineering/paperplant/internal/cache"
	"github.com/iceplantengineering/paperplant/internal/kpi"
	"github.com/iceplantengineering/paperplant/internal/models"
	"github.com/iceplantengineering/paperplant/internal/monitor"
	"github.com/iceplantengineering/paperplant/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

type fixture struct {
	store     *repository.MemoryStore
	agg       *monitor.Aggregator
	registry  *alerts.Registry
	kpis      *kpi.Evaluator
	redis     *redis.Client
	mr        *miniredis.Miniredis
	flowCache *cache.FlowCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	return &fixture{
		store:     store,
		agg:       monitor.NewAggregator(store, logger).WithClock(fixedNow),
		registry:  alerts.NewRegistry(store, logger).WithClock(fixedNow),
		kpis:      kpi.NewEvaluator(store, logger).WithClock(fixedNow),
		redis:     client,
		mr:        mr,
		flowCache: cache.NewFlowCache(cache.NewRedisKVStore(client), 10*time.Second, logger),
	}
}

func (f *fixture) dashboard() *dashboardService {
	svc := NewDashboardService(f.kpis, f.agg, f.registry, f.flowCache, zap.NewNop()).(*dashboardService)
	svc.now = fixedNow
	return svc
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t)
	f.store.AddKPIMetric(models.KPIMetric{MetricName: "oee", PeriodType: models.PeriodDaily, TS: now.Add(-12 * time.Hour), Value: 76, TargetValue: 80, Unit: "%"})
	f.store.AddBatch(models.ProductionBatch{BatchID: "PB-0001", Status: models.BatchProcessing})
	f.store.AddBatch(models.ProductionBatch{BatchID: "PB-0002", Status: models.BatchCompleted})
	f.store.AddMachineLog(models.MachineStatusLog{MachineID: "PM-01", TS: now.Add(-time.Hour), AlertLevel: models.AlertCritical, Message: "Web break"})

	summary, err := f.dashboard().Summary(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 95.0, summary.KPIs["oee"].AchievementRate, 1e-9)
	assert.Equal(t, 1, summary.ActiveBatches)
	require.Len(t, summary.CriticalAlerts, 1)
	assert.Equal(t, "Web break", summary.CriticalAlerts[0].Message)
	assert.Equal(t, "critical", summary.CriticalAlerts[0].Level)
	assert.Equal(t, now, summary.LastUpdated)
}

func TestDashboardProcessFlow_CachesSnapshot(t *testing.T) {
	f := newFixture(t)
	f.store.AddProcessRecord(models.ProcessRecord{BatchID: "PB-0001", ProcessCode: models.ProcessPulping, StartTS: now.Add(-time.Hour)})
	svc := f.dashboard()
	ctx := context.Background()

	snap, err := svc.ProcessFlow(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessRunning, snap.Processes[models.ProcessPulping].State)
	assert.True(t, f.mr.Exists(cache.FlowCacheKey))

	// a change in the store is not visible until the cached entry expires
	f.store.AddProcessRecord(models.ProcessRecord{BatchID: "PB-0002", ProcessCode: models.ProcessFinishing, StartTS: now.Add(-time.Minute)})
	snap, err = svc.ProcessFlow(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessIdle, snap.Processes[models.ProcessFinishing].State)

	f.mr.FastForward(11 * time.Second)
	snap, err = svc.ProcessFlow(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessRunning, snap.Processes[models.ProcessFinishing].State)
}

func TestDashboardProcessFlow_WithoutCache(t *testing.T) {
	f := newFixture(t)
	svc := NewDashboardService(f.kpis, f.agg, f.registry, nil, zap.NewNop())

	snap, err := svc.ProcessFlow(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Processes, 4)
}

func TestAlertService_ResolvePublishesAndInvalidates(t *testing.T) {
	f := newFixture(t)
	rec := f.store.AddProcessRecord(models.ProcessRecord{BatchID: "PB-0001", ProcessCode: models.ProcessForming, StartTS: now.Add(-time.Hour)})
	logID := f.store.AddMachineLog(models.MachineStatusLog{RecordID: &rec, MachineID: "PM-01", TS: now.Add(-time.Minute), AlertLevel: models.AlertCritical})

	ctx := context.Background()
	snap, err := f.dashboard().ProcessFlow(ctx)
	require.NoError(t, err)
	require.Equal(t, models.ProcessAlarm, snap.Processes[models.ProcessForming].State)

	svc := NewAlertService(f.registry, NewStreamNotifier(f.redis, "paperplant:alert-events"), f.flowCache, zap.NewNop())
	require.NoError(t, svc.Resolve(ctx, logID))

	assert.False(t, f.mr.Exists(cache.FlowCacheKey))
	entries, err := f.redis.XRange(ctx, "paperplant:alert-events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EventAlertResolved, entries[0].Values["type"])

	var event AlertResolvedEvent
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &event))
	assert.Equal(t, logID, event.LogID)

	snap, err = f.dashboard().ProcessFlow(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessRunning, snap.Processes[models.ProcessForming].State)
}

type failingNotifier struct{ calls int }

func (n *failingNotifier) AlertResolved(context.Context, AlertResolvedEvent) error {
	n.calls++
	return errors.New("stream unavailable")
}

func TestAlertService_NotifierFailureIsNotReturned(t *testing.T) {
	f := newFixture(t)
	logID := f.store.AddMachineLog(models.MachineStatusLog{MachineID: "PM-01", TS: now})
	notifier := &failingNotifier{}

	svc := NewAlertService(f.registry, notifier, nil, zap.NewNop())
	require.NoError(t, svc.Resolve(context.Background(), logID))
	assert.Equal(t, 1, notifier.calls)
}

func TestAlertService_NotFound(t *testing.T) {
	f := newFixture(t)
	notifier := &failingNotifier{}

	svc := NewAlertService(f.registry, notifier, nil, zap.NewNop())
	err := svc.Resolve(context.Background(), 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, notifier.calls)
}

type recordingPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	retained []bool
}

func (p *recordingPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	p.retained = append(p.retained, retained)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func newBroadcaster(f *fixture, pub Publisher) *Broadcaster {
	b := NewBroadcaster(BroadcasterConfig{
		Interval:      time.Hour,
		Topic:         "paperplant/process-flow",
		QoS:           1,
		AlertStream:   "paperplant:alert-events",
		ConsumerGroup: "broadcaster",
		ConsumerName:  "test",
	}, f.agg, f.flowCache, pub, f.redis, zap.NewNop())
	b.now = fixedNow
	return b
}

func TestBroadcaster_RefreshCachesAndPublishes(t *testing.T) {
	f := newFixture(t)
	f.store.AddProcessRecord(models.ProcessRecord{BatchID: "PB-0001", ProcessCode: models.ProcessStockPrep, StartTS: now.Add(-time.Hour)})
	pub := &recordingPublisher{}

	require.NoError(t, newBroadcaster(f, pub).Refresh(context.Background()))

	require.Equal(t, 1, pub.count())
	assert.Equal(t, "paperplant/process-flow", pub.topics[0])
	assert.True(t, pub.retained[0])

	var snap monitor.FlowSnapshot
	require.NoError(t, json.Unmarshal(pub.payloads[0], &snap))
	assert.Equal(t, models.ProcessRunning, snap.Processes[models.ProcessStockPrep].State)

	cached, err := f.flowCache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, cached.GeneratedAt)
}

func TestBroadcaster_RefreshesOnAlertResolved(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	b := newBroadcaster(f, pub)
	ctx := context.Background()

	require.NoError(t, newStreamGroup(ctx, f))

	notifier := NewStreamNotifier(f.redis, "paperplant:alert-events")
	require.NoError(t, notifier.AlertResolved(ctx, AlertResolvedEvent{LogID: 1, ResolvedAt: now}))
	require.NoError(t, notifier.AlertResolved(ctx, AlertResolvedEvent{LogID: 2, ResolvedAt: now}))

	n, err := b.consumeOnce(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, pub.count(), "one refresh per batch")

	pending, err := f.redis.XPending(ctx, "paperplant:alert-events", "broadcaster").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func newStreamGroup(ctx context.Context, f *fixture) error {
	return f.redis.XGroupCreateMkStream(ctx, "paperplant:alert-events", "broadcaster", "$").Err()
}

func TestBroadcaster_StartStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	b := newBroadcaster(f, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	require.Eventually(t, func() bool { return pub.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcaster did not stop")
	}
}

func TestBroadcaster_StartRejectsNonPositiveInterval(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}

	for _, interval := range []time.Duration{0, -time.Second} {
		b := newBroadcaster(f, pub)
		b.cfg.Interval = interval

		assert.NotPanics(t, func() {
			assert.Error(t, b.Start(context.Background()))
		})
	}
	assert.Zero(t, pub.count())
}
