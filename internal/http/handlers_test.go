package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iceplantengineering/paperplant/internal/alerts"
	"github.com/iceplantengineering/paperplant/internal/kpi"
	"github.com/iceplantengineering/paperplant/internal/lineage"
	"github.com/iceplantengineering/paperplant/internal/models"
	"github.com/iceplantengineering/paperplant/internal/monitor"
	"github.com/iceplantengineering/paperplant/internal/repository"
	"github.com/iceplantengineering/paperplant/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func newTestRouter(t *testing.T) (*Router, *repository.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemoryStore()

	agg := monitor.NewAggregator(store, logger).WithClock(fixedNow)
	registry := alerts.NewRegistry(store, logger).WithClock(fixedNow)
	kpis := kpi.NewEvaluator(store, logger).WithClock(fixedNow)

	api := &API{
		Dashboard: service.NewDashboardService(kpis, agg, registry, nil, logger),
		Alerts:    service.NewAlertService(registry, nil, nil, logger),
		Monitor:   agg,
		Lineage:   lineage.NewResolver(store, logger),
		KPI:       kpis,
		Registry:  registry,
		Logger:    logger,
		Now:       fixedNow,
	}
	router := NewRouter(logger)
	router.RegisterRoutes(api)
	return router, store
}

func seedJourney(store *repository.MemoryStore) {
	store.AddRawMaterialLot(models.RawMaterialLot{LotID: "RML-0001", ArrivalTS: now.Add(-48 * time.Hour), SupplierName: "Nordic Pulp", WeightKg: 30000})
	store.AddBatch(models.ProductionBatch{BatchID: "PB-0001", RawMaterialLotID: "RML-0001", InitialQuantityKg: 25500, Status: models.BatchProcessing})
	end := now.Add(-30 * time.Hour)
	store.AddProcessRecord(models.ProcessRecord{BatchID: "PB-0001", ProcessCode: models.ProcessPulping, MachineID: "DG-01", StartTS: now.Add(-40 * time.Hour), EndTS: &end, OutputKg: 24225})
	store.AddFinishedProduct(models.FinishedProductLot{ProductLotID: "FPL-0001", BatchID: "PB-0001", ProductCode: "LB-80", CompletionTS: now.Add(-time.Hour), QuantityKg: 24225})
}

func do(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) Result[map[string]any] {
	t.Helper()
	var out Result[map[string]any]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.Equal(t, "healthy", out.Result["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestRequestIDIsReused(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "req-123", rr.Header().Get("X-Request-Id"))
}

func TestJourney_ErrorMapping(t *testing.T) {
	router, store := newTestRouter(t)
	seedJourney(store)

	rr := do(t, router, http.MethodGet, "/api/traceability/journey/FPL-0001")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	out := decode(t, rr)
	assert.Equal(t, "PB-0001", out.Result["batch_id"])
	timeline := out.Result["timeline"].([]any)
	require.Len(t, timeline, 4)
	assert.Equal(t, "raw_material_arrival", timeline[0].(map[string]any)["event_type"])

	rr = do(t, router, http.MethodGet, "/api/traceability/journey/RML-0001")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, ResultError, decode(t, rr).Code)

	rr = do(t, router, http.MethodGet, "/api/traceability/journey/PB-9999")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJourneyExport(t *testing.T) {
	router, store := newTestRouter(t)
	seedJourney(store)

	rr := do(t, router, http.MethodGet, "/api/traceability/journey/PB-0001/export")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "journey-PB-0001.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Timeline")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestSearch(t *testing.T) {
	router, store := newTestRouter(t)
	seedJourney(store)

	rr := do(t, router, http.MethodGet, "/api/traceability/search?product_lot_id=FPL-0001")
	require.Equal(t, http.StatusOK, rr.Code)
	results := decode(t, rr).Result["search_results"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, "product", results[0].(map[string]any)["type"])

	rr = do(t, router, http.MethodGet, "/api/traceability/search")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode(t, rr).Result["search_results"])
}

func TestAlerts_ListAndResolve(t *testing.T) {
	router, store := newTestRouter(t)
	id := store.AddMachineLog(models.MachineStatusLog{MachineID: "PM-01", TS: now.Add(-time.Minute), AlertLevel: models.AlertCritical, Message: "Web break"})

	rr := do(t, router, http.MethodGet, "/api/alerts")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr).Result["alerts"], 1)

	rr = do(t, router, http.MethodGet, "/api/alerts?limit=500")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, router, http.MethodGet, "/api/alerts?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, router, http.MethodGet, "/api/alerts?status=open")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/alerts/1/resolve")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	target := "/api/alerts/" + jsonNumber(id) + "/resolve"
	for i := 0; i < 2; i++ {
		rr = do(t, router, http.MethodPost, target)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, true, decode(t, rr).Result["resolved"])
	}

	rr = do(t, router, http.MethodGet, "/api/alerts?status=active")
	assert.Empty(t, decode(t, rr).Result["alerts"])

	rr = do(t, router, http.MethodPost, "/api/alerts/9999/resolve")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(t, router, http.MethodPost, "/api/alerts/x/resolve")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestDashboard(t *testing.T) {
	router, store := newTestRouter(t)
	store.AddKPIMetric(models.KPIMetric{MetricName: "oee", PeriodType: models.PeriodDaily, TS: now.Add(-time.Hour), Value: 80, TargetValue: 0})
	store.AddProcessRecord(models.ProcessRecord{BatchID: "PB-0001", ProcessCode: models.ProcessForming, MachineID: "PM-01", StartTS: now.Add(-time.Hour)})

	rr := do(t, router, http.MethodGet, "/api/dashboard/summary")
	require.Equal(t, http.StatusOK, rr.Code)
	kpis := decode(t, rr).Result["kpis"].(map[string]any)
	assert.Equal(t, 0.0, kpis["oee"].(map[string]any)["achievement_rate"])

	rr = do(t, router, http.MethodGet, "/api/dashboard/process-flow")
	require.Equal(t, http.StatusOK, rr.Code)
	processes := decode(t, rr).Result["processes"].(map[string]any)
	assert.Equal(t, "running", processes["P3"].(map[string]any)["status"])

	rr = do(t, router, http.MethodGet, "/api/dashboard/process/P3")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decode(t, rr).Result["total_records"])

	rr = do(t, router, http.MethodGet, "/api/dashboard/process/P3?start_time=2025-06-01T12:00:00Z&end_time=2025-06-01T10:00:00Z")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, router, http.MethodGet, "/api/dashboard/process/P3?start_time=yesterday")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/dashboard/process/P9")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode(t, rr).Result["machine_status"])
}

func TestKPIAndQualityTrend(t *testing.T) {
	router, store := newTestRouter(t)
	store.AddKPIMetric(models.KPIMetric{MetricName: "yield", PeriodType: models.PeriodDaily, TS: now.AddDate(0, 0, -2), Value: 94, TargetValue: 95})
	store.AddQualityCheck(models.NewQualityCheck(1, now.Add(-time.Hour), "moisture", 7.0, 7.5, 6.5, 8.5, models.MeasurementOnline))

	rr := do(t, router, http.MethodGet, "/api/kpi/trend/yield")
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	assert.Equal(t, "daily", out.Result["period"])
	assert.Len(t, out.Result["data"], 1)

	rr = do(t, router, http.MethodGet, "/api/kpi/trend/yield?period=weekly")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, router, http.MethodGet, "/api/kpi/trend/yield?days=0")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/dashboard/quality-trend/moisture?hours=6")
	require.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr).Result["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, true, data[0].(map[string]any)["is_ok"])

	rr = do(t, router, http.MethodGet, "/api/dashboard/quality-trend/moisture?hours=2600000")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnknownPaths(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, p := range []string{"/api/dashboard/process/", "/api/kpi/trend/a/b", "/api/alerts/1/unresolve"} {
		rr := do(t, router, http.MethodGet, p)
		assert.Equal(t, http.StatusNotFound, rr.Code, p)
		assert.True(t, strings.Contains(rr.Body.String(), `"code":-1`), p)
	}
}
