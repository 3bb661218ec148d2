package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/alerting"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/benchmark"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/detection"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/intelligence"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/observability"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage/memory"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	series    *memory.SeriesStore
	catalog   *memory.CatalogStore
	anomalies *memory.AnomalyStore
	alerts    *memory.AlertStore
	gen       *alerting.Generator
	server    *Server
}

func newFixture(t *testing.T, rateLimit float64) *fixture {
	t.Helper()
	now := func() time.Time { return testNow }
	f := &fixture{
		series:    memory.NewSeriesStore(),
		catalog:   memory.NewCatalogStore(),
		anomalies: memory.NewAnomalyStore(),
	}
	f.alerts = memory.NewAlertStore(f.anomalies)

	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	f.gen = alerting.New(alerting.Options{
		Detectors: detection.New(detection.Options{Series: f.series, Catalog: f.catalog, Now: now}),
		Anomalies: f.anomalies,
		Alerts:    f.alerts,
		Metrics:   metrics,
		Now:       now,
	})
	f.server = New(Options{
		Alerts:       f.gen,
		Intelligence: intelligence.New(intelligence.Options{Alerts: f.alerts, Metrics: metrics, Now: now}),
		Metrics:      metrics,
		RateLimit:    rateLimit,
		RateBurst:    2,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createAlert(t *testing.T, typ domain.AnomalyType, productID string, sev domain.Severity) *domain.AlertRecord {
	t.Helper()
	p := productID
	rec, err := f.gen.CreateAnomalyAndAlert(context.Background(), typ, &p, sev, nil)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGenerate(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	require.NoError(t, f.catalog.InsertProduct(ctx, &domain.Product{ID: "P1", Name: "Copper"}))
	points := make([]domain.SeriesPoint, 31)
	for i := range points {
		points[i] = domain.SeriesPoint{EntityID: "P1", Value: 100, Date: testNow.AddDate(0, 0, i-30)}
	}
	points[30].Value = 250
	require.NoError(t, f.series.InsertBulk(ctx, domain.SeriesPrice, points))

	rec := f.do(t, http.MethodPost, "/api/alerts/generate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res alerting.GenerateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.TotalAlerts)
	assert.Equal(t, 1, res.ByType[domain.AnomalyPriceSpike])

	rec = f.do(t, http.MethodGet, "/api/alerts/generate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStats(t *testing.T) {
	f := newFixture(t, 0)
	f.createAlert(t, domain.AnomalyPriceSpike, "P1", domain.SeverityHigh)

	rec := f.do(t, http.MethodGet, "/api/alerts/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var s alerting.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.ByStatus[domain.AlertStatusNew])
	assert.Equal(t, 1, s.BySeverity[domain.SeverityHigh])
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, 0)
	a := f.createAlert(t, domain.AnomalyPriceSpike, "P1", domain.SeverityHigh)
	path := "/api/alerts/" + a.ID + "/status"

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"viewed", path, `{"status":"viewed"}`, http.StatusNoContent},
		{"backwards", path, `{"status":"new"}`, http.StatusConflict},
		{"unknown status", path, `{"status":"archived"}`, http.StatusBadRequest},
		{"bad body", path, `{`, http.StatusBadRequest},
		{"missing alert", "/api/alerts/nope/status", `{"status":"viewed"}`, http.StatusNotFound},
		{"resolved", path, `{"status":"resolved"}`, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	got, err := f.alerts.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusResolved, got.Status)
	assert.NotNil(t, got.ResolvedAt)
}

func TestClearResolved(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(t, http.MethodDelete, "/api/alerts/resolved?days=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/alerts/resolved?days=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":0}`, rec.Body.String())
}

func TestIntelligence(t *testing.T) {
	f := newFixture(t, 0)
	price := f.createAlert(t, domain.AnomalyPriceSpike, "P1", domain.SeverityHigh)
	freight := f.createAlert(t, domain.AnomalyFreightSurge, "P1", domain.SeverityMedium)

	rec := f.do(t, http.MethodGet, "/api/alerts/"+price.ID+"/intelligence?window=7&sector=steel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		PrimaryAlert struct {
			ID string `json:"id"`
		} `json:"primary_alert"`
		ConnectedFactors []struct {
			AlertID          string  `json:"alert_id"`
			CorrelationScore float64 `json:"correlation_score"`
		} `json:"connected_factors"`
		TimeWindowDays int               `json:"time_window_days"`
		Benchmark      benchmark.Metrics `json:"benchmark"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, price.ID, body.PrimaryAlert.ID)
	assert.Equal(t, 7, body.TimeWindowDays)
	require.Len(t, body.ConnectedFactors, 1)
	assert.Equal(t, freight.ID, body.ConnectedFactors[0].AlertID)
	assert.Equal(t, 0.9, body.ConnectedFactors[0].CorrelationScore)
	assert.Equal(t, "steel", body.Benchmark.Sector)

	rec = f.do(t, http.MethodGet, "/api/alerts/missing/intelligence", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/alerts/"+price.ID+"/intelligence?window=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, 0.001)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, f.do(t, http.MethodGet, "/api/alerts/stats", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Health is outside the limited API.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)
}

func TestRequestIDPropagates(t *testing.T) {
	f := newFixture(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/alerts/missing/intelligence", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-123", body.RequestID)
}
