// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All Record methods are safe on a nil receiver.
type Metrics struct {
	// Detection metrics
	AnomaliesDetected *prometheus.CounterVec
	DetectorDuration  *prometheus.HistogramVec
	DetectorErrors    *prometheus.CounterVec

	// Alert generation metrics
	AlertsCreated      *prometheus.CounterVec
	AlertsSkipped      *prometheus.CounterVec
	GenerateRunsTotal  *prometheus.CounterVec
	GenerateDuration   prometheus.Histogram
	AlertStatusUpdates *prometheus.CounterVec
	AlertsCleared      prometheus.Counter

	// Intelligence metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	CascadeImpact    prometheus.Histogram

	// API metrics
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	RateLimited     prometheus.Counter
	WSClients       prometheus.Gauge
	WSMessagesSent  prometheus.Counter
	WSMessagesDrops prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulGenerate prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "tradenest"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Detection metrics
		AnomaliesDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "anomalies_detected_total",
			Help:      "Total number of anomalies detected by type and severity",
		}, []string{"type", "severity"}),
		DetectorDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "duration_seconds",
			Help:      "Detector batch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		DetectorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "errors_total",
			Help:      "Total number of detector batch failures by type",
		}, []string{"type"}),

		// Alert generation metrics
		AlertsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "created_total",
			Help:      "Total number of alerts created by anomaly type",
		}, []string{"type"}),
		AlertsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "skipped_total",
			Help:      "Total number of detections not turned into alerts by reason",
		}, []string{"type", "reason"}),
		GenerateRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "generate_runs_total",
			Help:      "Total number of generation runs by status",
		}, []string{"status"}),
		GenerateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "generate_duration_seconds",
			Help:      "Generation run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		AlertStatusUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "status_updates_total",
			Help:      "Total number of alert status updates by target status",
		}, []string{"status"}),
		AlertsCleared: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "cleared_total",
			Help:      "Total number of resolved alerts deleted",
		}),

		// Intelligence metrics
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intelligence",
			Name:      "analyses_total",
			Help:      "Total number of connection analyses by outcome",
		}, []string{"outcome"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "intelligence",
			Name:      "analysis_duration_seconds",
			Help:      "Connection analysis duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		CascadeImpact: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "intelligence",
			Name:      "cascading_impact",
			Help:      "Distribution of cascading impact scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Number of connected alert feed clients",
		}),
		WSMessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "messages_sent_total",
			Help:      "Total number of alert messages queued to clients",
		}),
		WSMessagesDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "messages_dropped_total",
			Help:      "Total number of alert messages dropped for slow clients",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulGenerate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_generate_timestamp",
			Help:      "Unix timestamp of last successful generation run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordAnomalyDetected increments the anomalies detected counter.
func (m *Metrics) RecordAnomalyDetected(anomalyType, severity string) {
	if m == nil {
		return
	}
	m.AnomaliesDetected.WithLabelValues(anomalyType, severity).Inc()
}

// RecordDetectorRun records a detector batch.
func (m *Metrics) RecordDetectorRun(anomalyType string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DetectorDuration.WithLabelValues(anomalyType).Observe(d.Seconds())
	if err != nil {
		m.DetectorErrors.WithLabelValues(anomalyType).Inc()
	}
}

// RecordAlertCreated increments the alerts created counter.
func (m *Metrics) RecordAlertCreated(anomalyType string) {
	if m == nil {
		return
	}
	m.AlertsCreated.WithLabelValues(anomalyType).Inc()
}

// RecordAlertSkipped increments the skipped counter. reason is "duplicate" or "locked".
func (m *Metrics) RecordAlertSkipped(anomalyType, reason string) {
	if m == nil {
		return
	}
	m.AlertsSkipped.WithLabelValues(anomalyType, reason).Inc()
}

// RecordGenerateRun records a generation run.
func (m *Metrics) RecordGenerateRun(success bool, d time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.GenerateRunsTotal.WithLabelValues(status).Inc()
	m.GenerateDuration.Observe(d.Seconds())
	if success {
		m.LastSuccessfulGenerate.Set(float64(finishedAt.Unix()))
	}
}

// RecordStatusUpdate increments the status update counter.
func (m *Metrics) RecordStatusUpdate(status string) {
	if m == nil {
		return
	}
	m.AlertStatusUpdates.WithLabelValues(status).Inc()
}

// RecordAlertsCleared adds n to the cleared counter.
func (m *Metrics) RecordAlertsCleared(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AlertsCleared.Add(float64(n))
}

// RecordAnalysis records a connection analysis. outcome is "ok", "not_found" or "error".
func (m *Metrics) RecordAnalysis(outcome string, d time.Duration, cascade float64) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
	if outcome == "ok" {
		m.CascadeImpact.Observe(cascade)
	}
}

// RecordHTTPRequest records an API request.
func (m *Metrics) RecordHTTPRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, http.StatusText(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordRateLimited increments the rate limited counter.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
