package lineage

import (
	"fmt"
	"sort"
	"time"

	"github.com/iceplantengineering/paperplant/internal/models"
)

// EventType timeline event tag
type EventType string

const (
	EventRawMaterialArrival EventType = "raw_material_arrival"
	EventProcessStart       EventType = "process_start"
	EventProcessEnd         EventType = "process_end"
	EventProductCompletion  EventType = "product_completion"
	EventShipment           EventType = "shipment"
)

// TimelineEvent one domain event on a lot journey
type TimelineEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   EventType      `json:"event_type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data"`

	key eventKey
}

// eventKey orders events sharing a timestamp.
// class: arrival < process < completion < shipment.
// Process events order by the record's position in start_ts order,
// then start before end, so a step ending at T precedes the next step starting at T.
type eventKey struct {
	class int
	seq   int
	phase int
}

const (
	classArrival = iota
	classProcess
	classCompletion
	classShipment
)

func (k eventKey) less(o eventKey) bool {
	if k.class != o.class {
		return k.class < o.class
	}
	if k.seq != o.seq {
		return k.seq < o.seq
	}
	return k.phase < o.phase
}

func sortTimeline(events []TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].key.less(events[j].key)
	})
}

func arrivalEvent(lot *models.RawMaterialLot) TimelineEvent {
	var cert any
	if lot.FSCCertID != nil {
		cert = *lot.FSCCertID
	}
	return TimelineEvent{
		Timestamp:   lot.ArrivalTS,
		EventType:   EventRawMaterialArrival,
		Title:       "Raw material arrival",
		Description: fmt.Sprintf("%s received from %s", lot.MaterialType, lot.SupplierName),
		Data: map[string]any{
			"lot_id":   lot.LotID,
			"supplier": lot.SupplierName,
			"weight":   lot.WeightKg,
			"fsc_cert": cert,
		},
		key: eventKey{class: classArrival},
	}
}

func processEvents(seq int, step ProcessStep) []TimelineEvent {
	rec := step.Record
	name := rec.ProcessCode.DisplayName()

	events := []TimelineEvent{{
		Timestamp:   rec.StartTS,
		EventType:   EventProcessStart,
		Title:       name + " started",
		Description: fmt.Sprintf("Machine: %s, operator: %s", rec.MachineID, rec.OperatorID),
		Data: map[string]any{
			"record_id":      rec.RecordID,
			"process_code":   rec.ProcessCode,
			"machine_id":     rec.MachineID,
			"operator_id":    rec.OperatorID,
			"output_kg":      rec.OutputKg,
			"quality_checks": step.QualityCheckCount,
		},
		key: eventKey{class: classProcess, seq: seq, phase: 0},
	}}

	if rec.EndTS != nil {
		events = append(events, TimelineEvent{
			Timestamp:   *rec.EndTS,
			EventType:   EventProcessEnd,
			Title:       name + " completed",
			Description: fmt.Sprintf("Output: %.1fkg", rec.OutputKg),
			Data: map[string]any{
				"record_id":      rec.RecordID,
				"process_code":   rec.ProcessCode,
				"duration_hours": rec.DurationHours(),
				"output_kg":      rec.OutputKg,
			},
			key: eventKey{class: classProcess, seq: seq, phase: 1},
		})
	}
	return events
}

func productEvents(p *models.FinishedProductLot) []TimelineEvent {
	events := []TimelineEvent{{
		Timestamp:   p.CompletionTS,
		EventType:   EventProductCompletion,
		Title:       "Product completed",
		Description: "Product: " + p.ProductCode,
		Data: map[string]any{
			"product_lot_id": p.ProductLotID,
			"product_code":   p.ProductCode,
			"quantity_kg":    p.QuantityKg,
			"roll_count":     p.RollCount,
		},
		key: eventKey{class: classCompletion},
	}}

	if p.ShipmentTS != nil {
		events = append(events, TimelineEvent{
			Timestamp:   *p.ShipmentTS,
			EventType:   EventShipment,
			Title:       "Shipped",
			Description: "Destination: " + p.Destination,
			Data: map[string]any{
				"destination": p.Destination,
				"quantity_kg": p.QuantityKg,
			},
			key: eventKey{class: classShipment},
		})
	}
	return events
}
