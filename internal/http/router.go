package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router on the standard library http.ServeMux
type Router struct {
	mux     *http.ServeMux
	handler http.Handler
	logger  *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	mux := http.NewServeMux()
	return &Router{
		mux:     mux,
		handler: withRequestLog(mux, logger),
		logger:  logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func methodIs(w http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method != method {
		writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
		return false
	}
	return true
}

// pathParam the single segment after prefix; "" when missing or nested
func pathParam(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	if id == path || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// RegisterRoutes mounts the dashboard, traceability, KPI, alert and health routes
func (r *Router) RegisterRoutes(a *API) {
	r.Handle("/health", a.Health)

	// dashboard
	r.Handle("/api/dashboard/summary", func(w http.ResponseWriter, req *http.Request) {
		if methodIs(w, req, http.MethodGet) {
			a.DashboardSummary(w, req)
		}
	})
	r.Handle("/api/dashboard/process-flow", func(w http.ResponseWriter, req *http.Request) {
		if methodIs(w, req, http.MethodGet) {
			a.ProcessFlow(w, req)
		}
	})
	r.Handle("/api/dashboard/process/", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodGet) {
			return
		}
		code := pathParam(req.URL.Path, "/api/dashboard/process/")
		if code == "" {
			writeJSON(w, http.StatusNotFound, Fail("process code required"))
			return
		}
		a.ProcessDetail(w, req, code)
	})
	r.Handle("/api/dashboard/quality-trend/", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodGet) {
			return
		}
		param := pathParam(req.URL.Path, "/api/dashboard/quality-trend/")
		if param == "" {
			writeJSON(w, http.StatusNotFound, Fail("parameter required"))
			return
		}
		a.QualityTrend(w, req, param)
	})

	// traceability
	r.Handle("/api/traceability/search", func(w http.ResponseWriter, req *http.Request) {
		if methodIs(w, req, http.MethodGet) {
			a.Search(w, req)
		}
	})
	// journey/{lot_id} and journey/{lot_id}/export
	r.Handle("/api/traceability/journey/", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodGet) {
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/traceability/journey/")
		if lotID, ok := strings.CutSuffix(rest, "/export"); ok && lotID != "" && !strings.Contains(lotID, "/") {
			a.ExportJourney(w, req, lotID)
			return
		}
		lotID := pathParam(req.URL.Path, "/api/traceability/journey/")
		if lotID == "" {
			writeJSON(w, http.StatusNotFound, Fail("lot id required"))
			return
		}
		a.Journey(w, req, lotID)
	})

	// kpi
	r.Handle("/api/kpi/trend/", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodGet) {
			return
		}
		metric := pathParam(req.URL.Path, "/api/kpi/trend/")
		if metric == "" {
			writeJSON(w, http.StatusNotFound, Fail("metric name required"))
			return
		}
		a.KPITrend(w, req, metric)
	})

	// alerts
	r.Handle("/api/alerts", func(w http.ResponseWriter, req *http.Request) {
		if methodIs(w, req, http.MethodGet) {
			a.ListAlerts(w, req)
		}
	})
	// alerts/{log_id}/resolve
	r.Handle("/api/alerts/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/alerts/")
		logID, ok := strings.CutSuffix(rest, "/resolve")
		if !ok || logID == "" || strings.Contains(logID, "/") {
			writeJSON(w, http.StatusNotFound, Fail("not found"))
			return
		}
		if methodIs(w, req, http.MethodPost) {
			a.ResolveAlert(w, req, logID)
		}
	})
}
