// Package alerting turns detector results into persisted anomalies and
// alerts, and manages the alert lifecycle.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/detection"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/lock"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/observability"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// DefaultDedupWindow suppresses repeat anomalies of the same type and product.
const DefaultDedupWindow = 24 * time.Hour

// Source runs the detector families over all known entities.
// *detection.Detectors implements it.
type Source interface {
	DetectAllPrices(ctx context.Context, lookbackDays int, threshold float64) ([]*domain.AnomalyResult, error)
	DetectAllTariffs(ctx context.Context, lookbackDays int, thresholdPct float64) ([]*domain.AnomalyResult, error)
	DetectAllFreight(ctx context.Context, lookbackDays int, thresholdPct float64) ([]*domain.AnomalyResult, error)
	DetectAllFX(ctx context.Context, lookbackDays int, thresholdPct float64) ([]*domain.AnomalyResult, error)
}

var _ Source = (*detection.Detectors)(nil)

// Notifier receives every newly created alert.
type Notifier interface {
	Publish(rec *domain.AlertRecord)
}

type noopNotifier struct{}

func (noopNotifier) Publish(*domain.AlertRecord) {}

// Settings holds per-detector lookback and threshold used by GenerateAllAlerts.
type Settings struct {
	PriceLookbackDays   int
	PriceThreshold      float64
	TariffLookbackDays  int
	TariffThresholdPct  float64
	FreightLookbackDays int
	FreightThresholdPct float64
	FXLookbackDays      int
	FXThresholdPct      float64
}

// DefaultSettings returns the detector defaults.
func DefaultSettings() Settings {
	return Settings{
		PriceLookbackDays:   detection.DefaultLookbackDays,
		PriceThreshold:      detection.DefaultPriceThreshold,
		TariffLookbackDays:  detection.DefaultLookbackDays,
		TariffThresholdPct:  detection.DefaultTariffThresholdPct,
		FreightLookbackDays: detection.DefaultLookbackDays,
		FreightThresholdPct: detection.DefaultFreightThresholdPct,
		FXLookbackDays:      detection.DefaultLookbackDays,
		FXThresholdPct:      detection.DefaultFXThresholdPct,
	}
}

// Generator coordinates detection, deduplication and persistence.
type Generator struct {
	source    Source
	anomalies storage.AnomalyStore
	alerts    storage.AlertStore
	locker    lock.Locker
	notifier  Notifier
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
	window    time.Duration
	settings  Settings
}

// Options for creating Generator.
type Options struct {
	// Required
	Detectors Source
	Anomalies storage.AnomalyStore
	Alerts    storage.AlertStore

	// Optional
	Lock        lock.Locker // nil uses an in-process lock
	Notifier    Notifier
	Metrics     *observability.Metrics
	Logger      *zerolog.Logger
	Now         func() time.Time
	NewID       func() string
	DedupWindow time.Duration
	Settings    *Settings
}

// New creates a new Generator.
func New(opts Options) *Generator {
	g := &Generator{
		source:    opts.Detectors,
		anomalies: opts.Anomalies,
		alerts:    opts.Alerts,
		locker:    opts.Lock,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		logger:    log.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
		window:    opts.DedupWindow,
		settings:  DefaultSettings(),
	}
	if opts.Logger != nil {
		g.logger = *opts.Logger
	}
	if g.locker == nil {
		g.locker = lock.NewLocal()
	}
	if g.notifier == nil {
		g.notifier = noopNotifier{}
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.newID == nil {
		g.newID = uuid.NewString
	}
	if g.window <= 0 {
		g.window = DefaultDedupWindow
	}
	if opts.Settings != nil {
		g.settings = *opts.Settings
	}
	return g
}

// GenerateResult summarizes a generation run.
type GenerateResult struct {
	Success     bool                       `json:"success"`
	TotalAlerts int                        `json:"total_alerts"`
	ByType      map[domain.AnomalyType]int `json:"by_type"`
	Skipped     int                        `json:"skipped"`
	Errors      []string                   `json:"errors,omitempty"`
}

// GenerateAllAlerts runs every detector family in sequence and persists one
// anomaly and one alert per new detection. Failures are collected per family
// and per item; the run itself never fails. Success is false only when every
// family failed.
func (g *Generator) GenerateAllAlerts(ctx context.Context) *GenerateResult {
	start := time.Now()
	result := &GenerateResult{ByType: make(map[domain.AnomalyType]int, len(domain.AllAnomalyTypes))}
	for _, t := range domain.AllAnomalyTypes {
		result.ByType[t] = 0
	}

	s := g.settings
	families := []struct {
		typ domain.AnomalyType
		run func() ([]*domain.AnomalyResult, error)
	}{
		{domain.AnomalyPriceSpike, func() ([]*domain.AnomalyResult, error) {
			return g.source.DetectAllPrices(ctx, s.PriceLookbackDays, s.PriceThreshold)
		}},
		{domain.AnomalyTariffChange, func() ([]*domain.AnomalyResult, error) {
			return g.source.DetectAllTariffs(ctx, s.TariffLookbackDays, s.TariffThresholdPct)
		}},
		{domain.AnomalyFreightSurge, func() ([]*domain.AnomalyResult, error) {
			return g.source.DetectAllFreight(ctx, s.FreightLookbackDays, s.FreightThresholdPct)
		}},
		{domain.AnomalyFXVolatility, func() ([]*domain.AnomalyResult, error) {
			return g.source.DetectAllFX(ctx, s.FXLookbackDays, s.FXThresholdPct)
		}},
	}

	failed := 0
	for _, fam := range families {
		phaseStart := time.Now()
		results, err := fam.run()
		g.metrics.RecordDetectorRun(fam.typ.String(), time.Since(phaseStart), err)
		if err != nil {
			failed++
			g.logger.Error().Err(err).Str("type", fam.typ.String()).Msg("detector family failed")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", fam.typ, err))
			continue
		}

		for _, r := range results {
			g.metrics.RecordAnomalyDetected(r.Type.String(), r.Severity.String())

			rec, err := g.CreateAnomalyAndAlert(ctx, r.Type, r.ProductID, r.Severity, r.Details)
			if err != nil {
				g.logger.Error().Err(err).Str("type", r.Type.String()).Str("entity_id", r.EntityID).Msg("create alert failed")
				result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", r.Type, r.EntityID, err))
				continue
			}
			if rec == nil {
				result.Skipped++
				continue
			}
			result.TotalAlerts++
			result.ByType[r.Type]++
		}
	}

	result.Success = failed < len(families)
	g.metrics.RecordGenerateRun(result.Success, time.Since(start), g.now())
	g.logger.Info().
		Bool("success", result.Success).
		Int("total_alerts", result.TotalAlerts).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("alert generation finished")
	return result
}

// CreateAnomalyAndAlert persists an anomaly and its alert atomically unless an anomaly of
// the same type and product (nil matches nil) was detected within the dedup
// window. Returns nil, nil when skipped.
func (g *Generator) CreateAnomalyAndAlert(ctx context.Context, t domain.AnomalyType, productID *string, severity domain.Severity, details domain.Details) (*domain.AlertRecord, error) {
	if !t.IsValid() || !severity.IsValid() {
		return nil, fmt.Errorf("type %q severity %q: %w", t, severity, storage.ErrInvalidInput)
	}
	if details != nil && details.Kind() != t {
		return nil, fmt.Errorf("details %s for %s anomaly: %w", details.Kind(), t, storage.ErrInvalidInput)
	}

	release, err := g.locker.Acquire(ctx, dedupKey(t, productID))
	if errors.Is(err, lock.ErrNotAcquired) {
		g.metrics.RecordAlertSkipped(t.String(), "locked")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire dedup lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			g.logger.Warn().Err(err).Msg("release dedup lock")
		}
	}()

	now := g.now()

	_, err = g.anomalies.FindRecent(ctx, t, productID, now.Add(-g.window))
	switch {
	case err == nil:
		g.metrics.RecordAlertSkipped(t.String(), "duplicate")
		return nil, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("dedup check: %w", err)
	}

	anomaly := &domain.Anomaly{
		ID:         g.newID(),
		Type:       t,
		ProductID:  productID,
		Severity:   severity,
		DetectedAt: now,
		Details:    details,
	}
	alert := &domain.Alert{
		ID:        g.newID(),
		AnomalyID: anomaly.ID,
		Status:    domain.AlertStatusNew,
		CreatedAt: now,
	}
	if err := g.alerts.InsertWithAnomaly(ctx, anomaly, alert); err != nil {
		return nil, fmt.Errorf("insert anomaly and alert: %w", err)
	}

	rec := &domain.AlertRecord{Alert: *alert, Anomaly: *anomaly}
	g.metrics.RecordAlertCreated(t.String())
	g.notifier.Publish(rec)
	g.logger.Debug().Str("alert_id", alert.ID).Str("type", t.String()).Str("severity", severity.String()).Msg("alert created")
	return rec, nil
}

// dedupKey names the lock guarding one (type, product) scope.
func dedupKey(t domain.AnomalyType, productID *string) string {
	product := "-"
	if productID != nil {
		product = *productID
	}
	return "dedup:" + string(t) + ":" + product
}
