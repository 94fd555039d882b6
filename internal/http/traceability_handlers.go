package httpapi

import (
	"fmt"
	"net/http"

	"github.com/iceplantengineering/paperplant/internal/export"
	"github.com/iceplantengineering/paperplant/internal/lineage"

	"go.uber.org/zap"
)

// Search GET /api/traceability/search?product_lot_id&batch_id&raw_material_lot_id
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := a.Lineage.Search(r.Context(), lineage.SearchQuery{
		ProductLotID:     q.Get("product_lot_id"),
		BatchID:          q.Get("batch_id"),
		RawMaterialLotID: q.Get("raw_material_lot_id"),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"search_results": results}))
}

// Journey GET /api/traceability/journey/{lot_id}
func (a *API) Journey(w http.ResponseWriter, r *http.Request, lotID string) {
	chain, err := a.Lineage.Resolve(r.Context(), lotID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(chain))
}

// ExportJourney GET /api/traceability/journey/{lot_id}/export
func (a *API) ExportJourney(w http.ResponseWriter, r *http.Request, lotID string) {
	chain, err := a.Lineage.Resolve(r.Context(), lotID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	data, err := export.JourneyWorkbook(chain)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="journey-%s.xlsx"`, lotID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		a.Logger.Warn("Failed to write journey export", zap.String("lot_id", lotID), zap.Error(err))
	}
}
