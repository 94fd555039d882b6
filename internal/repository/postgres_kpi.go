package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iceplantengineering/paperplant/internal/models"
)

// ListKPIMetrics series for one metric and period since a point in time
func (r *PostgresStore) ListKPIMetrics(ctx context.Context, name string, period models.PeriodType, since time.Time) ([]models.KPIMetric, error) {
	query := `SELECT ` + kpiMetricColumns + `
		FROM kpi_metrics
		WHERE metric_name = $1
		  AND period_type = $2
		  AND ts >= $3
		ORDER BY ts ASC, metric_id ASC
	`
	return r.queryKPIMetrics(ctx, query, name, string(period), since)
}

// GetLatestKPITimestamp newest ts among rows of the period
func (r *PostgresStore) GetLatestKPITimestamp(ctx context.Context, period models.PeriodType) (time.Time, error) {
	var latest sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM kpi_metrics WHERE period_type = $1`,
		string(period),
	).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest kpi timestamp: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, fmt.Errorf("%w: no %s kpi metrics", models.ErrNotFound, period)
	}
	return latest.Time, nil
}

// ListKPIMetricsAt rows of the period recorded at exactly ts
func (r *PostgresStore) ListKPIMetricsAt(ctx context.Context, period models.PeriodType, ts time.Time) ([]models.KPIMetric, error) {
	query := `SELECT ` + kpiMetricColumns + `
		FROM kpi_metrics
		WHERE period_type = $1
		  AND ts = $2
		ORDER BY metric_name ASC, metric_id ASC
	`
	return r.queryKPIMetrics(ctx, query, string(period), ts)
}

// ListQualityChecksByParameter one parameter's checks since a point in time
func (r *PostgresStore) ListQualityChecksByParameter(ctx context.Context, parameter string, since time.Time) ([]models.QualityCheck, error) {
	query := `SELECT ` + qualityCheckColumns + `
		FROM quality_checks
		WHERE parameter_name = $1
		  AND ts >= $2
		ORDER BY ts ASC, check_id ASC
	`
	return r.queryQualityChecks(ctx, query, parameter, since)
}

func (r *PostgresStore) queryKPIMetrics(ctx context.Context, query string, args ...any) ([]models.KPIMetric, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query kpi metrics: %w", err)
	}
	defer rows.Close()

	metrics := []models.KPIMetric{}
	for rows.Next() {
		m, err := scanKPIMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kpi metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kpi metrics: %w", err)
	}
	return metrics, nil
}
