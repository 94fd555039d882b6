package httpapi

import (
	"net/http"
	"time"

	"github.com/iceplantengineering/paperplant/internal/alerts"
	"github.com/iceplantengineering/paperplant/internal/kpi"
	"github.com/iceplantengineering/paperplant/internal/lineage"
	"github.com/iceplantengineering/paperplant/internal/monitor"
	"github.com/iceplantengineering/paperplant/internal/service"

	"go.uber.org/zap"
)

// API request handlers. Each handler calls a single component or service.
type API struct {
	Dashboard service.DashboardService
	Alerts    service.AlertService
	Monitor   *monitor.Aggregator
	Lineage   *lineage.Resolver
	KPI       *kpi.Evaluator
	Registry  *alerts.Registry
	Logger    *zap.Logger
	Now       func() time.Time
}

// fail logs server-side failures and writes the mapped status
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.Error(err),
		)
		writeJSON(w, status, Fail("internal error"))
		return
	}
	writeJSON(w, status, Fail(err.Error()))
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Health GET /health
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"status":    "healthy",
		"timestamp": a.now(),
	}))
}
