// Package httpapi exposes alert generation, lifecycle and connected
// intelligence over HTTP, plus a websocket feed of new alerts.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/alerting"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/observability"
)

// AlertService is the alert generation and lifecycle surface.
// *alerting.Generator implements it.
type AlertService interface {
	GenerateAllAlerts(ctx context.Context) *alerting.GenerateResult
	GetAlertStatistics(ctx context.Context) *alerting.Statistics
	UpdateAlertStatus(ctx context.Context, alertID string, status domain.AlertStatus) error
	ClearOldAlerts(ctx context.Context, daysOld int) (int, error)
}

// IntelligenceService analyzes an alert's connections.
// *intelligence.Analyzer implements it.
type IntelligenceService interface {
	Analyze(ctx context.Context, alertID string, windowDays int) (*domain.ConnectedIntelligence, error)
}

var _ AlertService = (*alerting.Generator)(nil)

// Options for creating Server.
type Options struct {
	// Required
	Alerts       AlertService
	Intelligence IntelligenceService

	// Optional
	Hub            *Hub // nil disables the alert feed route
	Metrics        *observability.Metrics
	MetricsHandler http.Handler // nil uses the default Prometheus handler
	Logger         *zerolog.Logger
	RateLimit      float64 // requests per second per client, 0 disables
	RateBurst      int
	RequestTimeout time.Duration
}

// Server routes API requests.
type Server struct {
	router       *mux.Router
	alerts       AlertService
	intelligence IntelligenceService
	hub          *Hub
	metrics      *observability.Metrics
	logger       zerolog.Logger
	timeout      time.Duration
}

// New creates a Server with all routes registered.
func New(opts Options) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		alerts:       opts.Alerts,
		intelligence: opts.Intelligence,
		hub:          opts.Hub,
		metrics:      opts.Metrics,
		logger:       log.Logger,
		timeout:      opts.RequestTimeout,
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = observability.Handler()
	}

	s.router.Use(requestIDMiddleware(s.logger))
	s.router.Use(loggingMiddleware(s.metrics))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		api.Use(rateLimitMiddleware(newIPLimiter(opts.RateLimit, burst), s.metrics))
	}
	if s.hub != nil {
		api.Handle("/ws/alerts", s.hub).Methods(http.MethodGet)
	}

	alerts := api.PathPrefix("/alerts").Subrouter()
	alerts.Use(s.timeoutMiddleware)
	alerts.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	alerts.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	alerts.HandleFunc("/resolved", s.handleClearResolved).Methods(http.MethodDelete)
	alerts.HandleFunc("/{id}/status", s.handleUpdateStatus).Methods(http.MethodPatch)
	alerts.HandleFunc("/{id}/intelligence", s.handleIntelligence).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// timeoutMiddleware bounds store work per request. The alert feed is not
// wrapped so its connections can stay open.
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
