package httpapi

import (
	"net/http"

	"github.com/iceplantengineering/paperplant/internal/models"
)

// DashboardSummary GET /api/dashboard/summary
func (a *API) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Dashboard.Summary(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(summary))
}

// ProcessFlow GET /api/dashboard/process-flow
func (a *API) ProcessFlow(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Dashboard.ProcessFlow(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(snap))
}

// ProcessDetail GET /api/dashboard/process/{code}?start_time&end_time
func (a *API) ProcessDetail(w http.ResponseWriter, r *http.Request, code string) {
	start, err := timeQuery(r, "start_time")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	end, err := timeQuery(r, "end_time")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	detail, err := a.Monitor.Detail(r.Context(), models.ProcessCode(code), start, end)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detail))
}

// QualityTrend GET /api/dashboard/quality-trend/{parameter}?hours=24
func (a *API) QualityTrend(w http.ResponseWriter, r *http.Request, parameter string) {
	hours, err := intQuery(r, "hours", 24)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	trend, err := a.KPI.QualityTrend(r.Context(), parameter, hours)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(trend))
}
