package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iceplantengineering/paperplant/internal/models"

	"go.uber.org/zap"
)

// GetRawMaterialLot lookup by lot_id
func (r *PostgresStore) GetRawMaterialLot(ctx context.Context, lotID string) (*models.RawMaterialLot, error) {
	query := `
		SELECT lot_id, arrival_ts, supplier_name, material_type, origin_country,
		       fsc_cert_id, weight_kg, moisture_content
		FROM raw_material_lots
		WHERE lot_id = $1
	`

	var lot models.RawMaterialLot
	var materialType, originCountry, fscCertID sql.NullString
	var weight, moisture sql.NullFloat64

	err := r.db.QueryRowContext(ctx, query, lotID).Scan(
		&lot.LotID,
		&lot.ArrivalTS,
		&lot.SupplierName,
		&materialType,
		&originCountry,
		&fscCertID,
		&weight,
		&moisture,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: raw material lot %s", models.ErrNotFound, lotID)
		}
		return nil, fmt.Errorf("failed to query raw material lot: %w", err)
	}

	lot.MaterialType = materialType.String
	lot.OriginCountry = originCountry.String
	if fscCertID.Valid && fscCertID.String != "" {
		cert := fscCertID.String
		lot.FSCCertID = &cert
	}
	lot.WeightKg = weight.Float64
	lot.MoistureContent = moisture.Float64
	return &lot, nil
}

// GetBatch lookup by batch_id
func (r *PostgresStore) GetBatch(ctx context.Context, batchID string) (*models.ProductionBatch, error) {
	query := `
		SELECT batch_id, raw_material_lot_id, creation_ts, batch_type,
		       initial_quantity_kg, current_quantity_kg, status
		FROM production_batches
		WHERE batch_id = $1
	`

	var b models.ProductionBatch
	var lotID, batchType, status sql.NullString
	var initial, current sql.NullFloat64

	err := r.db.QueryRowContext(ctx, query, batchID).Scan(
		&b.BatchID,
		&lotID,
		&b.CreationTS,
		&batchType,
		&initial,
		&current,
		&status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: batch %s", models.ErrNotFound, batchID)
		}
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}

	b.RawMaterialLotID = lotID.String
	b.BatchType = batchType.String
	b.InitialQuantityKg = initial.Float64
	b.CurrentQuantityKg = current.Float64
	b.Status = models.BatchStatus(status.String)
	return &b, nil
}

const finishedProductQuery = `
	SELECT product_lot_id, batch_id, product_code, completion_ts, destination,
	       shipment_ts, quantity_kg, roll_count, final_quality_ok
	FROM finished_product_lots
`

func scanFinishedProduct(s rowScanner) (*models.FinishedProductLot, error) {
	var p models.FinishedProductLot
	var productCode, destination sql.NullString
	var shipmentTS sql.NullTime
	var quantity sql.NullFloat64
	var rollCount sql.NullInt64
	var qualityOK sql.NullBool

	if err := s.Scan(
		&p.ProductLotID,
		&p.BatchID,
		&productCode,
		&p.CompletionTS,
		&destination,
		&shipmentTS,
		&quantity,
		&rollCount,
		&qualityOK,
	); err != nil {
		return nil, err
	}

	p.ProductCode = productCode.String
	p.Destination = destination.String
	if shipmentTS.Valid {
		t := shipmentTS.Time
		p.ShipmentTS = &t
	}
	p.QuantityKg = quantity.Float64
	p.RollCount = int(rollCount.Int64)
	p.FinalQualityOK = qualityOK.Bool
	return &p, nil
}

// GetFinishedProduct lookup by product_lot_id
func (r *PostgresStore) GetFinishedProduct(ctx context.Context, productLotID string) (*models.FinishedProductLot, error) {
	row := r.db.QueryRowContext(ctx, finishedProductQuery+` WHERE product_lot_id = $1`, productLotID)
	p, err := scanFinishedProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: finished product %s", models.ErrNotFound, productLotID)
		}
		return nil, fmt.Errorf("failed to query finished product: %w", err)
	}
	return p, nil
}

// GetFinishedProductByBatch earliest product of the batch
func (r *PostgresStore) GetFinishedProductByBatch(ctx context.Context, batchID string) (*models.FinishedProductLot, error) {
	row := r.db.QueryRowContext(ctx,
		finishedProductQuery+` WHERE batch_id = $1 ORDER BY completion_ts ASC, product_lot_id ASC LIMIT 1`,
		batchID,
	)
	p, err := scanFinishedProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: finished product for batch %s", models.ErrNotFound, batchID)
		}
		return nil, fmt.Errorf("failed to query finished product by batch: %w", err)
	}
	return p, nil
}

// ListProcessRecordsByBatch all records of the batch by start_ts
func (r *PostgresStore) ListProcessRecordsByBatch(ctx context.Context, batchID string) ([]models.ProcessRecord, error) {
	query := `SELECT ` + processRecordColumns + `
		FROM process_records
		WHERE batch_id = $1
		ORDER BY start_ts ASC, record_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query process records: %w", err)
	}
	defer rows.Close()

	records := []models.ProcessRecord{}
	for rows.Next() {
		rec, err := scanProcessRecord(rows)
		if err != nil {
			r.logger.Debug("Failed to scan process record", zap.String("batch_id", batchID), zap.Error(err))
			return nil, fmt.Errorf("failed to scan process record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate process records: %w", err)
	}
	return records, nil
}

// CountQualityChecksByRecord number of checks taken during the record
func (r *PostgresStore) CountQualityChecksByRecord(ctx context.Context, recordID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quality_checks WHERE record_id = $1`,
		recordID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count quality checks: %w", err)
	}
	return count, nil
}

// ListMachineLogsByRecord logs attached to the record, oldest first
func (r *PostgresStore) ListMachineLogsByRecord(ctx context.Context, recordID int64) ([]models.MachineStatusLog, error) {
	query := `SELECT ` + machineLogColumns + `
		FROM machine_status_logs
		WHERE record_id = $1
		ORDER BY ts ASC, log_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, recordID)
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
