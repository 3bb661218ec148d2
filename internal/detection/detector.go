// Package detection turns entity time series into severity-classified
// anomaly results. Detectors only read from storage.
package detection

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// Default detector parameters.
const (
	DefaultLookbackDays        = 30
	DefaultPriceThreshold      = 2.0 // sigma
	DefaultMAShortWindow       = 7
	DefaultMALongWindow        = 30
	DefaultMAThresholdPct      = 20.0
	DefaultTariffThresholdPct  = 10.0
	DefaultFreightThresholdPct = 15.0
	DefaultFXThresholdPct      = 2.5
	DefaultFXSpikeWindowDays   = 7
	DefaultFXSpikeThresholdPct = 5.0

	minPricePoints   = 2
	minTariffPoints  = 2
	minFreightPoints = 7
	minFXPoints      = 7
)

// ErrInvalidDirection is returned for threshold checks with an unknown direction.
var ErrInvalidDirection = errors.New("direction must be above or below")

// Options configures detectors.
type Options struct {
	Series   storage.SeriesStore
	Catalog  storage.CatalogStore
	Policies *Policies        // nil uses DefaultPolicies
	Logger   *zerolog.Logger  // nil uses the global logger
	Now      func() time.Time // nil uses time.Now
}

// base carries shared dependencies.
type base struct {
	series  storage.SeriesStore
	catalog storage.CatalogStore
	logger  zerolog.Logger
	now     func() time.Time
}

func newBase(opts Options, name string) base {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return base{
		series:  opts.Series,
		catalog: opts.Catalog,
		logger:  logger.With().Str("detector", name).Logger(),
		now:     now,
	}
}

// window fetches at most lookbackDays+1 points, oldest first.
func (b base) window(ctx context.Context, kind domain.SeriesKind, entityID string, lookbackDays int) ([]domain.SeriesPoint, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return b.series.Latest(ctx, kind, entityID, lookbackDays+1)
}

// product looks up catalog metadata. A missing product yields an empty record.
func (b base) product(ctx context.Context, productID string) (domain.Product, error) {
	p, err := b.catalog.GetProduct(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Product{ID: productID}, nil
	}
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

// Detectors bundles the four detector families.
type Detectors struct {
	Price   *PriceDetector
	Tariff  *TariffDetector
	Freight *FreightDetector
	FX      *FXDetector
}

// New builds all detectors from shared options.
func New(opts Options) *Detectors {
	policies := DefaultPolicies()
	if opts.Policies != nil {
		policies = *opts.Policies
	}
	return &Detectors{
		Price:   &PriceDetector{base: newBase(opts, "price"), policy: policies.Price},
		Tariff:  &TariffDetector{base: newBase(opts, "tariff"), policy: policies.Tariff},
		Freight: &FreightDetector{base: newBase(opts, "freight"), policy: policies.Freight},
		FX:      &FXDetector{base: newBase(opts, "fx"), policy: policies.FX},
	}
}

// DetectAllPrices runs the price detector over every product.
func (d *Detectors) DetectAllPrices(ctx context.Context, lookbackDays int, threshold float64) ([]*domain.AnomalyResult, error) {
	return d.Price.DetectAll(ctx, lookbackDays, threshold)
}

// DetectAllTariffs runs the tariff detector over every product.
func (d *Detectors) DetectAllTariffs(ctx context.Context, lookbackDays int, thresholdPct float64) ([]*domain.AnomalyResult, error) {
	return d.Tariff.DetectAll(ctx, lookbackDays, thresholdPct)
}

// DetectAllFreight runs the freight detector over every route.
func (d *Detectors) DetectAllFreight(ctx context.Context, lookbackDays int, thresholdPct float64) ([]*domain.AnomalyResult, error) {
	return d.Freight.DetectAll(ctx, lookbackDays, thresholdPct)
}

// DetectAllFX runs the FX volatility detector over every currency pair.
func (d *Detectors) DetectAllFX(ctx context.Context, lookbackDays int, thresholdPct float64) ([]*domain.AnomalyResult, error) {
	return d.FX.DetectAll(ctx, lookbackDays, thresholdPct)
}

// productIDPtr returns a pointer to a copy of id.
func productIDPtr(id string) *string {
	return &id
}
