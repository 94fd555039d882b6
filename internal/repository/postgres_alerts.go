package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/iceplantengineering/paperplant/internal/models"

	"go.uber.org/zap"
)

// ListMachineLogs filtered logs, newest first
func (r *PostgresStore) ListMachineLogs(ctx context.Context, filter MachineLogFilter) ([]models.MachineStatusLog, error) {
	where := []string{}
	args := []any{}
	argN := 1

	if filter.Resolved != nil {
		where = append(where, fmt.Sprintf("resolved = $%d", argN))
		args = append(args, *filter.Resolved)
		argN++
	}
	if filter.AlertLevel != nil {
		where = append(where, fmt.Sprintf("alert_level = $%d", argN))
		args = append(args, string(*filter.AlertLevel))
		argN++
	}
	if filter.Since != nil {
		where = append(where, fmt.Sprintf("ts >= $%d", argN))
		args = append(args, *filter.Since)
		argN++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}
	limitClause := ""
	if filter.Limit > 0 {
		limitClause = fmt.Sprintf("LIMIT $%d", argN)
		args = append(args, filter.Limit)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM machine_status_logs
		%s
		ORDER BY ts DESC, log_id DESC
		%s
	`, machineLogColumns, whereClause, limitClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query machine logs: %w", err)
	}
	defer rows.Close()

	logs := []models.MachineStatusLog{}
	for rows.Next() {
		l, err := scanMachineLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan machine log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate machine logs: %w", err)
	}
	return logs, nil
}

// ResolveMachineLog flips resolved to true. The statement never writes false,
// so a log can not be un-resolved through this store.
func (r *PostgresStore) ResolveMachineLog(ctx context.Context, logID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE machine_status_logs SET resolved = TRUE WHERE log_id = $1`,
		logID,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve machine log: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: machine log %d", models.ErrNotFound, logID)
	}

	r.logger.Debug("Resolved machine log", zap.Int64("log_id", logID))
	return nil
}
