package kpi

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
	MinDays = 1
	MaxDays = 365

	// MaxQualityHours one year of hourly lookback
	MaxQualityHours = 24 * MaxDays
)

// AchievementRate value/target*100 for a positive target, exactly 0 otherwise
func AchievementRate(value, target float64) float64 {
	if target > 0 {
		return value / target * 100
	}
	return 0
}

// TrendPoint one KPI observation with its achievement rate
type TrendPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	Value           float64   `json:"value"`
	Target          float64   `json:"target"`
	Unit            string    `json:"unit"`
	AchievementRate float64   `json:"achievement_rate"`
	MachineID       *string   `json:"machine_id,omitempty"`
}

// Trend KPI series over the last N days
type Trend struct {
	MetricName string            `json:"metric_name"`
	Period     models.PeriodType `json:"period"`
	Days       int               `json:"days"`
	Data       []TrendPoint      `json:"data"`
}

// SummaryValue latest daily value of one metric
type SummaryValue struct {
	Value           float64 `json:"value"`
	Target          float64 `json:"target"`
	Unit            string  `json:"unit"`
	AchievementRate float64 `json:"achievement_rate"`
}

// QualityPoint one quality observation; IsOK is the stored flag
type QualityPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Value      float64   `json:"value"`
	Target     float64   `json:"target"`
	UpperLimit float64   `json:"upper_limit"`
	LowerLimit float64   `json:"lower_limit"`
	IsOK       bool      `json:"is_ok"`
}

// QualityWindow lookback of a quality trend
type QualityWindow struct {
	Hours     int       `json:"hours"`
	StartTime time.Time `json:"start_time"`
}

// QualityTrend one parameter's checks over the last N hours
type QualityTrend struct {
	Parameter string         `json:"parameter"`
	Data      []QualityPoint `json:"data"`
	TimeRange QualityWindow  `json:"time_range"`
}

// OutOfSpec number of points whose stored flag is false
func (q *QualityTrend) OutOfSpec() int {
	n := 0
	for _, p := range q.Data {
		if !p.IsOK {
			n++
		}
	}
	return n
}

// Evaluator KPI trends, daily summary and quality trends
type Evaluator struct {
	store  repository.KPIStore
	logger *zap.Logger
	now    func() time.Time
}

func NewEvaluator(store repository.KPIStore, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for lookback windows
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Trend rows of metric name and period with ts >= now - days, oldest first
func (e *Evaluator) Trend(ctx context.Context, name, period string, days int) (*Trend, error) {
	p, err := models.ParsePeriodType(period)
	if err != nil {
		return nil, err
	}
	if days < MinDays || days > MaxDays {
		return nil, fmt.Errorf("%w: days must be between %d and %d, got %d", models.ErrInvalidParameter, MinDays, MaxDays, days)
	}

	since := e.now().AddDate(0, 0, -days)
	rows, err := e.store.ListKPIMetrics(ctx, name, p, since)
	if err != nil {
		return nil, err
	}

	trend := &Trend{
		MetricName: name,
		Period:     p,
		Days:       days,
		Data:       make([]TrendPoint, 0, len(rows)),
	}
	for _, m := range rows {
		trend.Data = append(trend.Data, TrendPoint{
			Timestamp:       m.TS,
			Value:           m.Value,
			Target:          m.TargetValue,
			Unit:            m.Unit,
			AchievementRate: AchievementRate(m.Value, m.TargetValue),
			MachineID:       m.MachineID,
		})
	}
	return trend, nil
}

// Summary daily metrics recorded at exactly the latest daily timestamp,
// keyed by metric name. No daily rows yields an empty map.
func (e *Evaluator) Summary(ctx context.Context) (map[string]SummaryValue, error) {
	summary := map[string]SummaryValue{}

	latest, err := e.store.GetLatestKPITimestamp(ctx, models.PeriodDaily)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return summary, nil
		}
		return nil, err
	}

	rows, err := e.store.ListKPIMetricsAt(ctx, models.PeriodDaily, latest)
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		summary[m.MetricName] = SummaryValue{
			Value:           m.Value,
			Target:          m.TargetValue,
			Unit:            m.Unit,
			AchievementRate: AchievementRate(m.Value, m.TargetValue),
		}
	}
	return summary, nil
}

// QualityTrend checks of parameter over the last hours, oldest first
func (e *Evaluator) QualityTrend(ctx context.Context, parameter string, hours int) (*QualityTrend, error) {
	if hours <= 0 || hours > MaxQualityHours {
		return nil, fmt.Errorf("%w: hours must be between 1 and %d, got %d", models.ErrInvalidParameter, MaxQualityHours, hours)
	}

	start := e.now().Add(-time.Duration(hours) * time.Hour)
	checks, err := e.store.ListQualityChecksByParameter(ctx, parameter, start)
	if err != nil {
		return nil, err
	}

	trend := &QualityTrend{
		Parameter: parameter,
		Data:      make([]QualityPoint, 0, len(checks)),
		TimeRange: QualityWindow{Hours: hours, StartTime: start},
	}
	for _, qc := range checks {
		trend.Data = append(trend.Data, QualityPoint{
			Timestamp:  qc.TS,
			Value:      qc.Value,
			Target:     qc.TargetValue,
			UpperLimit: qc.UpperLimit,
			LowerLimit: qc.LowerLimit,
			IsOK:       qc.IsOK,
		})
	}

	if n := trend.OutOfSpec(); n > 0 {
		e.logger.Debug("Quality trend has out-of-spec points",
			zap.String("parameter", parameter),
			zap.Int("out_of_spec", n),
			zap.Int("total", len(trend.Data)),
		)
	}
	return trend, nil
}
