package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/iceplantengineering/paperplant/internal/models"
)

// KPITrend GET /api/kpi/trend/{metric}?period=daily&days=30
func (a *API) KPITrend(w http.ResponseWriter, r *http.Request, metric string) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(models.PeriodDaily)
	}
	days, err := intQuery(r, "days", 30)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	trend, err := a.KPI.Trend(r.Context(), metric, period, days)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(trend))
}

// ListAlerts GET /api/alerts?status=active&limit=50
func (a *API) ListAlerts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(models.AlertFilterActive)
	}
	limit, err := intQuery(r, "limit", 50)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	logs, err := a.Registry.List(r.Context(), status, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"alerts": logs}))
}

// ResolveAlert POST /api/alerts/{log_id}/resolve
func (a *API) ResolveAlert(w http.ResponseWriter, r *http.Request, rawID string) {
	logID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: log_id must be an integer, got %q", models.ErrInvalidParameter, rawID))
		return
	}

	if err := a.Alerts.Resolve(r.Context(), logID); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"log_id": logID, "resolved": true}))
}
