package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iceplantengineering/paperplant/internal/models"

	"github.com/lib/pq"
)

// CountUnresolvedAlertsByProcess unresolved logs joined to records of the process inside [since, until]
func (r *PostgresStore) CountUnresolvedAlertsByProcess(ctx context.Context, code models.ProcessCode, since, until time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM machine_status_logs msl
		INNER JOIN process_records pr ON msl.record_id = pr.record_id
		WHERE pr.process_code = $1
		  AND msl.resolved = FALSE
		  AND msl.ts >= $2
		  AND msl.ts <= $3
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, string(code), since, until).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unresolved alerts: %w", err)
	}
	return count, nil
}

// CountOpenProcessRecords records of the process still in progress
func (r *PostgresStore) CountOpenProcessRecords(ctx context.Context, code models.ProcessCode) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM process_records WHERE process_code = $1 AND end_ts IS NULL`,
		string(code),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open process records: %w", err)
	}
	return count, nil
}

// GetLatestMachineLog most recent log of the machine
func (r *PostgresStore) GetLatestMachineLog(ctx context.Context, machineID string) (*models.MachineStatusLog, error) {
	query := `SELECT ` + machineLogColumns + `
		FROM machine_status_logs
		WHERE machine_id = $1
		ORDER BY ts DESC, log_id DESC
		LIMIT 1
	`

	l, err := scanMachineLog(r.db.QueryRowContext(ctx, query, machineID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: machine log for %s", models.ErrNotFound, machineID)
		}
		return nil, fmt.Errorf("failed to query latest machine log: %w", err)
	}
	return &l, nil
}

// ListProcessRecordsByProcess records of the process started inside [start, end]
func (r *PostgresStore) ListProcessRecordsByProcess(ctx context.Context, code models.ProcessCode, start, end time.Time) ([]models.ProcessRecord, error) {
	query := `SELECT ` + processRecordColumns + `
		FROM process_records
		WHERE process_code = $1
		  AND start_ts >= $2
		  AND start_ts <= $3
		ORDER BY start_ts ASC, record_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(code), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query process records: %w", err)
	}
	defer rows.Close()

	records := []models.ProcessRecord{}
	for rows.Next() {
		rec, err := scanProcessRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan process record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate process records: %w", err)
	}
	return records, nil
}

// ListQualityChecksByRecord checks of one record by ts
func (r *PostgresStore) ListQualityChecksByRecord(ctx context.Context, recordID int64) ([]models.QualityCheck, error) {
	query := `SELECT ` + qualityCheckColumns + `
		FROM quality_checks
		WHERE record_id = $1
		ORDER BY ts ASC, check_id ASC
	`
	return r.queryQualityChecks(ctx, query, recordID)
}

// CountBatchesByStatus batches whose status is one of statuses
func (r *PostgresStore) CountBatchesByStatus(ctx context.Context, statuses []models.BatchStatus) (int, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM production_batches WHERE status = ANY($1)`,
		pq.Array(values),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return count, nil
}

func (r *PostgresStore) queryQualityChecks(ctx context.Context, query string, args ...any) ([]models.QualityCheck, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quality checks: %w", err)
	}
	defer rows.Close()

	checks := []models.QualityCheck{}
	for rows.Next() {
		qc, err := scanQualityCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quality check: %w", err)
		}
		checks = append(checks, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quality checks: %w", err)
	}
	return checks, nil
}
