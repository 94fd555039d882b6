package lineage

import (
	"context"
	"errors"
	"fmt"

	"github.com/iceplantengineering/paperplant/internal/models"
	"github.com/iceplantengineering/paperplant/internal/repository"

	"go.uber.org/zap"
)

// ProcessStep a process record with what was observed during it
type ProcessStep struct {
	Record            models.ProcessRecord      `json:"record"`
	QualityCheckCount int                       `json:"quality_check_count"`
	MachineLogs       []models.MachineStatusLog `json:"machine_logs"`
}

// Chain the reconstructed lineage of one lot
type Chain struct {
	LotID       string                     `json:"lot_id"`
	BatchID     string                     `json:"batch_id"`
	Product     *models.FinishedProductLot `json:"product,omitempty"`
	Batch       models.ProductionBatch     `json:"batch"`
	RawMaterial *models.RawMaterialLot     `json:"raw_material,omitempty"`
	Steps       []ProcessStep              `json:"steps"`
	Timeline    []TimelineEvent            `json:"timeline"`
}

// FinalOutputKg output of the last step by start time; 0 with no steps
func (c *Chain) FinalOutputKg() float64 {
	if len(c.Steps) == 0 {
		return 0
	}
	return c.Steps[len(c.Steps)-1].Record.OutputKg
}

// OverallYield final output over the batch's initial quantity
func (c *Chain) OverallYield() float64 {
	if c.Batch.InitialQuantityKg <= 0 {
		return 0
	}
	return c.FinalOutputKg() / c.Batch.InitialQuantityKg
}

// Resolver reconstructs lineage chains from product or batch identifiers
type Resolver struct {
	store  repository.LineageStore
	logger *zap.Logger
}

// NewResolver resolver over store
func NewResolver(store repository.LineageStore, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
	}
}

// Resolve walks product -> batch -> raw lot and the batch's process records.
// A missing raw lot or, from a batch, a missing product only drops their events.
func (r *Resolver) Resolve(ctx context.Context, id string) (*Chain, error) {
	kind, err := models.ParseLineageID(id)
	if err != nil {
		return nil, err
	}

	chain := &Chain{LotID: id}
	batchID := id

	if kind == models.IdentifierProduct {
		product, err := r.store.GetFinishedProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		chain.Product = product
		batchID = product.BatchID
	}

	batch, err := r.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	chain.Batch = *batch
	chain.BatchID = batch.BatchID

	lot, err := r.store.GetRawMaterialLot(ctx, batch.RawMaterialLotID)
	switch {
	case err == nil:
		chain.RawMaterial = lot
	case errors.Is(err, models.ErrNotFound):
		r.logger.Debug("Raw material lot missing, omitting arrival",
			zap.String("batch_id", batch.BatchID),
			zap.String("raw_material_lot_id", batch.RawMaterialLotID),
		)
	default:
		return nil, err
	}

	records, err := r.store.ListProcessRecordsByBatch(ctx, batch.BatchID)
	if err != nil {
		return nil, err
	}

	chain.Steps = make([]ProcessStep, 0, len(records))
	for _, rec := range records {
		count, err := r.store.CountQualityChecksByRecord(ctx, rec.RecordID)
		if err != nil {
			return nil, err
		}
		logs, err := r.store.ListMachineLogsByRecord(ctx, rec.RecordID)
		if err != nil {
			return nil, err
		}
		chain.Steps = append(chain.Steps, ProcessStep{
			Record:            rec,
			QualityCheckCount: count,
			MachineLogs:       logs,
		})
	}

	if chain.Product == nil {
		product, err := r.store.GetFinishedProductByBatch(ctx, batch.BatchID)
		switch {
		case err == nil:
			chain.Product = product
		case errors.Is(err, models.ErrNotFound):
		default:
			return nil, err
		}
	}

	chain.Timeline = buildTimeline(chain)
	return chain, nil
}

func buildTimeline(c *Chain) []TimelineEvent {
	events := []TimelineEvent{}
	if c.RawMaterial != nil {
		events = append(events, arrivalEvent(c.RawMaterial))
	}
	for i, step := range c.Steps {
		events = append(events, processEvents(i, step)...)
	}
	if c.Product != nil {
		events = append(events, productEvents(c.Product)...)
	}
	sortTimeline(events)
	return events
}

// SearchQuery any subset of the three identifiers
type SearchQuery struct {
	ProductLotID     string
	BatchID          string
	RawMaterialLotID string
}

// SearchResultType entity kind carried by a SearchResult
type SearchResultType string

const (
	SearchProduct     SearchResultType = "product"
	SearchBatch       SearchResultType = "batch"
	SearchRawMaterial SearchResultType = "raw_material"
)

// SearchResult one entity found along the partial chain
type SearchResult struct {
	Type SearchResultType `json:"type"`
	Data any              `json:"data"`
}

// Search follows the chain upstream from whichever identifiers are given.
// A found product supplies the batch id and a found batch the raw lot id.
// Missing entities are skipped; an empty query yields an empty list.
func (r *Resolver) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	results := []SearchResult{}
	batchID := q.BatchID
	lotID := q.RawMaterialLotID

	if q.ProductLotID != "" {
		product, err := r.store.GetFinishedProduct(ctx, q.ProductLotID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to search product: %w", err)
		}
		if product != nil {
			results = append(results, SearchResult{Type: SearchProduct, Data: product})
			batchID = product.BatchID
		}
	}

	if batchID != "" {
		batch, err := r.store.GetBatch(ctx, batchID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to search batch: %w", err)
		}
		if batch != nil {
			results = append(results, SearchResult{Type: SearchBatch, Data: batch})
			lotID = batch.RawMaterialLotID
		}
	}

	if lotID != "" {
		lot, err := r.store.GetRawMaterialLot(ctx, lotID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to search raw material lot: %w", err)
		}
		if lot != nil {
			results = append(results, SearchResult{Type: SearchRawMaterial, Data: lot})
		}
	}

	return results, nil
}
