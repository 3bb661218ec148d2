package detection

import (
	"context"
	"fmt"
	"math"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/stats"
)

// PriceDetector flags product price spikes.
type PriceDetector struct {
	base
	policy Policy
}

// Detect compares the latest price with the mean of the preceding window.
// An anomaly needs |z| > threshold. A flat history has no z-score, so when
// stddev is 0 a change reaching the lowest change tier is used instead.
// Returns nil, nil when data is insufficient or nothing is anomalous.
func (d *PriceDetector) Detect(ctx context.Context, productID string, lookbackDays int, threshold float64) (*domain.AnomalyResult, error) {
	if threshold <= 0 {
		threshold = DefaultPriceThreshold
	}

	points, err := d.window(ctx, domain.SeriesPrice, productID, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch prices for %s: %w", productID, err)
	}
	if len(points) < minPricePoints {
		return nil, nil
	}

	current := points[len(points)-1]
	historical := domain.Values(points[:len(points)-1])

	mean := stats.Mean(historical)
	sd := stats.StdDev(historical)
	z := stats.ZScore(current.Value, mean, sd)
	change := stats.PercentageChange(mean, current.Value)

	significant := math.Abs(z) > threshold
	if sd == 0 {
		significant = math.Abs(change) >= d.policy.LowestChange()
	}
	if !significant {
		return nil, nil
	}
	severity := d.policy.ClassifyOrLow(z, change)

	product, err := d.product(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", productID, err)
	}

	return &domain.AnomalyResult{
		Type:         domain.AnomalyPriceSpike,
		EntityID:     productID,
		ProductID:    productIDPtr(productID),
		CurrentValue: current.Value,
		Baseline:     mean,
		StdDev:       sd,
		Score:        z,
		Severity:     severity,
		DetectedAt:   d.now(),
		Details: domain.PriceDetails{
			ProductName:     product.Name,
			ProductCategory: product.Category,
			OriginCountry:   product.Country,
			Method:          domain.PriceMethodZScore,
			CurrentPrice:    current.Value,
			PreviousPrice:   historical[len(historical)-1],
			AveragePrice:    mean,
			StdDev:          sd,
			ZScore:          z,
			PriceChangePct:  change,
			OutlierCount:    len(stats.FindOutliers(historical, threshold)),
		},
	}, nil
}

// DetectMovingAverage compares the short-window average with the long-window
// average and flags a gap of at least thresholdPct.
func (d *PriceDetector) DetectMovingAverage(ctx context.Context, productID string, shortWindow, longWindow int, thresholdPct float64) (*domain.AnomalyResult, error) {
	if shortWindow <= 0 {
		shortWindow = DefaultMAShortWindow
	}
	if longWindow <= 0 {
		longWindow = DefaultMALongWindow
	}
	if thresholdPct <= 0 {
		thresholdPct = DefaultMAThresholdPct
	}
	if shortWindow >= longWindow {
		return nil, fmt.Errorf("short window %d must be below long window %d", shortWindow, longWindow)
	}

	points, err := d.series.Latest(ctx, domain.SeriesPrice, productID, longWindow)
	if err != nil {
		return nil, fmt.Errorf("fetch prices for %s: %w", productID, err)
	}
	if len(points) < longWindow {
		return nil, nil
	}

	series := make([]stats.Point, len(points))
	for i, p := range points {
		series[i] = stats.Point{Date: p.Date, Value: p.Value}
	}
	shortMA := stats.MovingAverage(series, shortWindow)
	longMA := stats.MovingAverage(series, longWindow)
	shortAvg := shortMA[len(shortMA)-1].Value
	longAvg := longMA[len(longMA)-1].Value

	change := stats.PercentageChange(longAvg, shortAvg)
	if math.Abs(change) < thresholdPct {
		return nil, nil
	}

	product, err := d.product(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", productID, err)
	}

	current := points[len(points)-1].Value
	values := domain.Values(points)
	return &domain.AnomalyResult{
		Type:         domain.AnomalyPriceSpike,
		EntityID:     productID,
		ProductID:    productIDPtr(productID),
		CurrentValue: current,
		Baseline:     longAvg,
		StdDev:       stats.StdDev(values),
		Score:        change,
		Severity:     d.policy.ClassifyOrLow(0, change),
		DetectedAt:   d.now(),
		Details: domain.PriceDetails{
			ProductName:     product.Name,
			ProductCategory: product.Category,
			OriginCountry:   product.Country,
			Method:          domain.PriceMethodMovingAverage,
			CurrentPrice:    current,
			PreviousPrice:   values[len(values)-2],
			AveragePrice:    longAvg,
			StdDev:          stats.StdDev(values),
			PriceChangePct:  change,
			ShortWindow:     shortWindow,
			LongWindow:      longWindow,
		},
	}, nil
}

// DetectAll runs Detect over every catalog product, skipping per-product failures.
func (d *PriceDetector) DetectAll(ctx context.Context, lookbackDays int, threshold float64) ([]*domain.AnomalyResult, error) {
	products, err := d.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var results []*domain.AnomalyResult
	for _, p := range products {
		r, err := d.Detect(ctx, p.ID, lookbackDays, threshold)
		if err != nil {
			d.logger.Warn().Err(err).Str("product_id", p.ID).Msg("price detection failed")
			continue
		}
		if r != nil {
			results = append(results, r)
		}
	}
	return results, nil
}
