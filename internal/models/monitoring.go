package models

import (
	"fmt"
	"time"
)

// ProcessCode one of the four production stages
type ProcessCode string

const (
	ProcessPulping   ProcessCode = "P1"
	ProcessStockPrep ProcessCode = "P2"
	ProcessForming   ProcessCode = "P3"
	ProcessFinishing ProcessCode = "P4"
)

// ProcessCodes in line order
var ProcessCodes = []ProcessCode{ProcessPulping, ProcessStockPrep, ProcessForming, ProcessFinishing}

// processMachines static machine-to-process table
var processMachines = map[ProcessCode][]string{
	ProcessPulping:   {"DG-01", "DG-02"},
	ProcessStockPrep: {"MC-01", "MC-02"},
	ProcessForming:   {"PM-01", "PM-02"},
	ProcessFinishing: {"RW-01", "RW-02", "SL-01"},
}

var processNames = map[ProcessCode]string{
	ProcessPulping:   "Pulping",
	ProcessStockPrep: "Stock preparation",
	ProcessForming:   "Paper forming",
	ProcessFinishing: "Finishing",
}

// Machines returns a copy of the machines mapped to the process; nil for unknown codes
func (c ProcessCode) Machines() []string {
	m, ok := processMachines[c]
	if !ok {
		return nil
	}
	out := make([]string, len(m))
	copy(out, m)
	return out
}

// DisplayName human-readable stage name; unknown codes fall back to the code
func (c ProcessCode) DisplayName() string {
	if n, ok := processNames[c]; ok {
		return n
	}
	return string(c)
}

// Valid reports whether c is P1..P4
func (c ProcessCode) Valid() bool {
	_, ok := processMachines[c]
	return ok
}

// ProcessState derived operational state of a process
type ProcessState string

const (
	ProcessIdle    ProcessState = "idle"
	ProcessRunning ProcessState = "running"
	ProcessAlarm   ProcessState = "alarm"
)

// AlertLevel severity of a machine status log
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Valid reports whether l is one of the known levels
func (l AlertLevel) Valid() bool {
	switch l {
	case AlertInfo, AlertWarning, AlertCritical:
		return true
	}
	return false
}

// MachineStatus equipment state recorded on a log
type MachineStatus string

const (
	MachineRunning     MachineStatus = "running"
	MachineStopped     MachineStatus = "stopped"
	MachineMaintenance MachineStatus = "maintenance"
	MachineAlarm       MachineStatus = "alarm"
)

// MachineStatusLog alert/maintenance log entry (machine_status_logs).
// Resolved is the only mutable field and only moves false -> true.
type MachineStatusLog struct {
	LogID      int64         `json:"log_id" db:"log_id"`
	RecordID   *int64        `json:"record_id,omitempty" db:"record_id"`
	MachineID  string        `json:"machine_id" db:"machine_id"`
	TS         time.Time     `json:"timestamp" db:"ts"`
	Status     MachineStatus `json:"status" db:"status"`
	AlertLevel AlertLevel    `json:"alert_level" db:"alert_level"`
	Message    string        `json:"message" db:"message"`
	Resolved   bool          `json:"resolved" db:"resolved"`
}

// AlertFilter resolution filter for alert listings
type AlertFilter string

const (
	AlertFilterActive   AlertFilter = "active"
	AlertFilterResolved AlertFilter = "resolved"
	AlertFilterAll      AlertFilter = "all"
)

// ParseAlertFilter accepts active|resolved|all
func ParseAlertFilter(s string) (AlertFilter, error) {
	switch f := AlertFilter(s); f {
	case AlertFilterActive, AlertFilterResolved, AlertFilterAll:
		return f, nil
	}
	return "", fmt.Errorf("%w: status must be active, resolved or all, got %q", ErrInvalidParameter, s)
}

// ResolvedValue maps the filter to a resolved predicate; nil means no predicate
func (f AlertFilter) ResolvedValue() *bool {
	var v bool
	switch f {
	case AlertFilterActive:
		v = false
	case AlertFilterResolved:
		v = true
	default:
		return nil
	}
	return &v
}
