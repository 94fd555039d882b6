package kpi

import (
	"context"
	"testing"
	"time"

	"github.com/iceplantengineering/paperplant/internal/models"
	"github.com/iceplantengineering/paperplant/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func newEvaluator() (*Evaluator, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	return NewEvaluator(store, zap.NewNop()).WithClock(func() time.Time { return now }), store
}

func TestAchievementRate_Guard(t *testing.T) {
	for _, target := range []float64{0, -1, -85.5} {
		for _, value := range []float64{0, 42, -3, 1e9} {
			assert.Equal(t, 0.0, AchievementRate(value, target), "value=%v target=%v", value, target)
		}
	}
	assert.InDelta(t, 95.0, AchievementRate(76, 80), 1e-9)
	assert.InDelta(t, 125.0, AchievementRate(100, 80), 1e-9)
}

func TestTrend_Validation(t *testing.T) {
	e, _ := newEvaluator()
	ctx := context.Background()

	_, err := e.Trend(ctx, "oee", "weekly", 30)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = e.Trend(ctx, "oee", "daily", 0)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	_, err = e.Trend(ctx, "oee", "daily", 366)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	trend, err := e.Trend(ctx, "oee", "daily", 365)
	require.NoError(t, err)
	assert.Empty(t, trend.Data)
}

func TestTrend_WindowOrderAndRates(t *testing.T) {
	e, store := newEvaluator()
	store.AddKPIMetric(models.KPIMetric{MetricName: "oee", PeriodType: models.PeriodDaily, TS: now.AddDate(0, 0, -1), Value: 90, TargetValue: 0, Unit: "%"})
	store.AddKPIMetric(models.KPIMetric{MetricName: "oee", PeriodType: models.PeriodDaily, TS: now.AddDate(0, 0, -3), Value: 80, TargetValue: 85, Unit: "%"})
	store.AddKPIMetric(models.KPIMetric{MetricName: "oee", PeriodType: models.PeriodDaily, TS: now.AddDate(0, 0, -40), Value: 70, TargetValue: 85})
	store.AddKPIMetric(models.KPIMetric{MetricName: "oee", PeriodType: models.PeriodHourly, TS: now.Add(-time.Hour), Value: 88, TargetValue: 85})
	store.AddKPIMetric(models.KPIMetric{MetricName: "yield", PeriodType: models.PeriodDaily, TS: now.AddDate(0, 0, -1), Value: 95, TargetValue: 96})

	trend, err := e.Trend(context.Background(), "oee", "daily", 30)
	require.NoError(t, err)
	require.Len(t, trend.Data, 2)
	assert.True(t, trend.Data[0].Timestamp.Before(trend.Data[1].Timestamp))
	assert.InDelta(t, 80.0/85.0*100, trend.Data[0].AchievementRate, 1e-9)
	assert.Equal(t, 0.0, trend.Data[1].AchievementRate)
	assert.Equal(t, models.PeriodDaily, trend.Period)
}

func TestSummary_LatestDailyOnly(t *testing.T) {
	e, store := newEvaluator()
	latest := time.Date(2025, 6, 29, 0, 0, 0, 0, time.UTC)
	store.AddKPIMetric(models.KPIMetric{MetricName: "oee", PeriodType: models.PeriodDaily, TS: latest.AddDate(0, 0, -1), Value: 70, TargetValue: 85})
	store.AddKPIMetric(models.KPIMetric{MetricName: "oee", PeriodType: models.PeriodDaily, TS: latest, Value: 85, TargetValue: 85, Unit: "%"})
	store.AddKPIMetric(models.KPIMetric{MetricName: "energy", PeriodType: models.PeriodDaily, TS: latest, Value: 410, TargetValue: -1, Unit: "kWh/t"})
	store.AddKPIMetric(models.KPIMetric{MetricName: "throughput", PeriodType: models.PeriodHourly, TS: latest.Add(time.Hour), Value: 12})

	summary, err := e.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.InDelta(t, 100.0, summary["oee"].AchievementRate, 1e-9)
	assert.Equal(t, 0.0, summary["energy"].AchievementRate)
	_, ok := summary["throughput"]
	assert.False(t, ok)
}

func TestSummary_EmptyStore(t *testing.T) {
	e, _ := newEvaluator()
	summary, err := e.Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestQualityTrend_PassesStoredFlag(t *testing.T) {
	e, store := newEvaluator()
	in := models.NewQualityCheck(1, now.Add(-2*time.Hour), "moisture", 7.0, 7.5, 6.5, 8.5, models.MeasurementOnline)
	out := models.NewQualityCheck(1, now.Add(-time.Hour), "moisture", 9.0, 7.5, 6.5, 8.5, models.MeasurementOnline)
	// a stored flag that disagrees with the bounds is reported as stored
	stale := models.NewQualityCheck(1, now.Add(-30*time.Minute), "moisture", 7.0, 7.5, 6.5, 8.5, models.MeasurementOffline)
	stale.IsOK = false
	old := models.NewQualityCheck(1, now.Add(-48*time.Hour), "moisture", 7.0, 7.5, 6.5, 8.5, models.MeasurementOnline)
	for _, qc := range []models.QualityCheck{out, stale, in, old} {
		store.AddQualityCheck(qc)
	}

	trend, err := e.QualityTrend(context.Background(), "moisture", 24)
	require.NoError(t, err)
	require.Len(t, trend.Data, 3)
	assert.True(t, trend.Data[0].IsOK)
	assert.False(t, trend.Data[1].IsOK)
	assert.False(t, trend.Data[2].IsOK)
	assert.Equal(t, 2, trend.OutOfSpec())
	assert.Equal(t, now.Add(-24*time.Hour), trend.TimeRange.StartTime)

	_, err = e.QualityTrend(context.Background(), "moisture", 0)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestQualityTrend_HoursBounds(t *testing.T) {
	e, store := newEvaluator()
	store.AddQualityCheck(models.NewQualityCheck(1, now.Add(-time.Hour), "moisture", 7.0, 7.5, 6.5, 8.5, models.MeasurementOnline))
	ctx := context.Background()

	// large enough to overflow time.Duration
	for _, hours := range []int{MaxQualityHours + 1, 2600000, 5000000} {
		_, err := e.QualityTrend(ctx, "moisture", hours)
		assert.ErrorIs(t, err, models.ErrInvalidParameter, "hours=%d", hours)
	}

	trend, err := e.QualityTrend(ctx, "moisture", MaxQualityHours)
	require.NoError(t, err)
	require.Len(t, trend.Data, 1)
	assert.Equal(t, now.Add(-MaxQualityHours*time.Hour), trend.TimeRange.StartTime)
}
