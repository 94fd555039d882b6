package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iceplantengineering/paperplant/internal/models"

	"go.uber.org/zap"
)

var _ EntityStore = (*PostgresStore)(nil)

// PostgresStore EntityStore over the paperplant schema (scripts/schema.sql)
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore wraps an open pool
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const processRecordColumns = `record_id, batch_id, process_code, machine_id, start_ts, end_ts, operator_id, output_kg`

func scanProcessRecord(s rowScanner) (models.ProcessRecord, error) {
	var rec models.ProcessRecord
	var code string
	var endTS sql.NullTime
	var operatorID sql.NullString
	var outputKg sql.NullFloat64

	if err := s.Scan(
		&rec.RecordID,
		&rec.BatchID,
		&code,
		&rec.MachineID,
		&rec.StartTS,
		&endTS,
		&operatorID,
		&outputKg,
	); err != nil {
		return rec, err
	}

	rec.ProcessCode = models.ProcessCode(code)
	if endTS.Valid {
		t := endTS.Time
		rec.EndTS = &t
	}
	rec.OperatorID = operatorID.String
	rec.OutputKg = outputKg.Float64
	return rec, nil
}

const machineLogColumns = `log_id, record_id, machine_id, ts, status, alert_level, message, resolved`

func scanMachineLog(s rowScanner) (models.MachineStatusLog, error) {
	var log models.MachineStatusLog
	var recordID sql.NullInt64
	var status, level string
	var message sql.NullString

	if err := s.Scan(
		&log.LogID,
		&recordID,
		&log.MachineID,
		&log.TS,
		&status,
		&level,
		&message,
		&log.Resolved,
	); err != nil {
		return log, err
	}

	if recordID.Valid {
		id := recordID.Int64
		log.RecordID = &id
	}
	log.Status = models.MachineStatus(status)
	log.AlertLevel = models.AlertLevel(level)
	log.Message = message.String
	return log, nil
}

const qualityCheckColumns = `check_id, record_id, ts, parameter_name, value, value_array, target_value, upper_limit, lower_limit, is_ok, measurement_type`

func scanQualityCheck(s rowScanner) (models.QualityCheck, error) {
	var qc models.QualityCheck
	var valueArray []byte
	var measurementType sql.NullString

	if err := s.Scan(
		&qc.CheckID,
		&qc.RecordID,
		&qc.TS,
		&qc.ParameterName,
		&qc.Value,
		&valueArray,
		&qc.TargetValue,
		&qc.UpperLimit,
		&qc.LowerLimit,
		&qc.IsOK,
		&measurementType,
	); err != nil {
		return qc, err
	}

	// value_array is JSONB; NULL and empty both mean no CD profile
	if len(valueArray) > 0 && string(valueArray) != "null" {
		if err := json.Unmarshal(valueArray, &qc.ValueArray); err != nil {
			return qc, fmt.Errorf("failed to decode value_array: %w", err)
		}
	}
	qc.MeasurementType = models.MeasurementType(measurementType.String)
	return qc, nil
}

const kpiMetricColumns = `metric_id, ts, metric_name, value, unit, period_type, machine_id, target_value`

func scanKPIMetric(s rowScanner) (models.KPIMetric, error) {
	var m models.KPIMetric
	var unit, machineID sql.NullString
	var period string
	var target sql.NullFloat64

	if err := s.Scan(
		&m.MetricID,
		&m.TS,
		&m.MetricName,
		&m.Value,
		&unit,
		&period,
		&machineID,
		&target,
	); err != nil {
		return m, err
	}

	m.Unit = unit.String
	m.PeriodType = models.PeriodType(period)
	if machineID.Valid {
		id := machineID.String
		m.MachineID = &id
	}
	m.TargetValue = target.Float64
	return m, nil
}
