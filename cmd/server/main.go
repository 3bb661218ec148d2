// Package main runs the alert service: scheduled alert generation plus the
// HTTP API and live alert feed.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/alerting"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/app"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/config"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/httpapi"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/observability"
)

// Server holds the scheduler state.
type Server struct {
	generator *alerting.Generator
	interval  time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
	runs    int
	wg      sync.WaitGroup
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	// Flags default to config values
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "HTTP listen address")
	interval := flag.Duration("generate-interval", cfg.GenerateInterval, "Alert generation interval")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	migrate := flag.Bool("migrate", false, "Apply schema migrations before starting")
	flag.Parse()
	cfg.HTTPAddr = *httpAddr
	cfg.GenerateInterval = *interval
	cfg.UseMemory = *useMemory
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	zerolog.SetGlobalLevel(cfg.Level())
	logger := log.With().Str("component", "server").Logger()
	logger.Info().
		Bool("use_memory", cfg.UseMemory).
		Str("postgres", cfg.MaskedPostgresDSN()).
		Str("clickhouse", cfg.MaskedClickhouseDSN()).
		Str("redis", cfg.RedisAddr).
		Dur("generate_interval", cfg.GenerateInterval).
		Msg("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *migrate {
		applied, err := app.Migrate(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		logger.Info().Strs("applied", applied).Msg("migrations applied")
	}

	metrics := observability.DefaultMetrics

	stores, cleanup, err := app.OpenStores(ctx, cfg, metrics, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create stores")
	}
	defer cleanup()

	hub := httpapi.NewHub(nil, metrics, &logger)
	defer hub.Close()

	svc, err := app.NewServices(cfg, stores, hub, metrics, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}

	api := httpapi.New(httpapi.Options{
		Alerts:       svc.Generator,
		Intelligence: svc.Analyzer,
		Hub:          hub,
		Metrics:      metrics,
		Logger:       &logger,
		RateLimit:    cfg.APIRateLimit,
		RateBurst:    cfg.APIRateBurst,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	server := &Server{
		generator: svc.Generator,
		interval:  cfg.GenerateInterval,
		logger:    logger,
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	server.runScheduler(ctx)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown")
	}
	close(done)

	logger.Info().Int("generate_runs", server.runs).Time("last_run", server.lastRun).Msg("shutdown complete")
}

// runScheduler triggers generation immediately and then on every tick until
// ctx is cancelled. A tick that lands during a run is skipped.
func (s *Server) runScheduler(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("starting generation scheduler")
	defer s.wg.Wait()

	s.trigger(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

func (s *Server) trigger(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runGenerate(ctx)
	}()
}

// runGenerate executes one generation run unless one is already in progress.
func (s *Server) runGenerate(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("generation already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now()
		s.runs++
		s.mu.Unlock()
	}()

	result := s.generator.GenerateAllAlerts(ctx)
	if !result.Success {
		s.logger.Error().Strs("errors", result.Errors).Msg("generation run failed")
	}
}
