package detection

import (
	"context"
	"fmt"
	"math"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/stats"
)

// TariffDetector flags changes between consecutive effective tariff rates.
type TariffDetector struct {
	base
	policy Policy
}

// Detect compares the current effective rate with the one before it.
// The statistic is the rate-point delta and the change is relative.
func (d *TariffDetector) Detect(ctx context.Context, productID string, lookbackDays int, thresholdPct float64) (*domain.AnomalyResult, error) {
	if thresholdPct <= 0 {
		thresholdPct = DefaultTariffThresholdPct
	}

	points, err := d.window(ctx, domain.SeriesTariff, productID, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch tariffs for %s: %w", productID, err)
	}
	if len(points) < minTariffPoints {
		return nil, nil
	}

	current := points[len(points)-1]
	previous := points[len(points)-2]
	change := stats.PercentageChange(previous.Value, current.Value)
	if math.Abs(change) < thresholdPct {
		return nil, nil
	}
	delta := current.Value - previous.Value

	product, err := d.product(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", productID, err)
	}

	return &domain.AnomalyResult{
		Type:         domain.AnomalyTariffChange,
		EntityID:     productID,
		ProductID:    productIDPtr(productID),
		CurrentValue: current.Value,
		Baseline:     previous.Value,
		Score:        change,
		Severity:     d.policy.ClassifyOrLow(delta, change),
		DetectedAt:   d.now(),
		Details: domain.TariffDetails{
			ProductName:     product.Name,
			ProductCategory: product.Category,
			OriginCountry:   product.Country,
			HSCode:          product.HSCode,
			PreviousRate:    previous.Value,
			CurrentRate:     current.Value,
			RateChangePct:   change,
			EffectiveDate:   current.Date,
		},
	}, nil
}

// DetectRecent runs Detect over every product and keeps changes whose
// effective date falls within the last withinDays.
func (d *TariffDetector) DetectRecent(ctx context.Context, withinDays int, thresholdPct float64) ([]*domain.AnomalyResult, error) {
	if withinDays <= 0 {
		withinDays = 7
	}
	cutoff := d.now().AddDate(0, 0, -withinDays)

	all, err := d.DetectAll(ctx, DefaultLookbackDays, thresholdPct)
	if err != nil {
		return nil, err
	}

	var recent []*domain.AnomalyResult
	for _, r := range all {
		details, ok := r.Details.(domain.TariffDetails)
		if ok && !details.EffectiveDate.Before(cutoff) {
			recent = append(recent, r)
		}
	}
	return recent, nil
}

// DetectAll runs Detect over every catalog product, skipping per-product failures.
func (d *TariffDetector) DetectAll(ctx context.Context, lookbackDays int, thresholdPct float64) ([]*domain.AnomalyResult, error) {
	products, err := d.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var results []*domain.AnomalyResult
	for _, p := range products {
		r, err := d.Detect(ctx, p.ID, lookbackDays, thresholdPct)
		if err != nil {
			d.logger.Warn().Err(err).Str("product_id", p.ID).Msg("tariff detection failed")
			continue
		}
		if r != nil {
			results = append(results, r)
		}
	}
	return results, nil
}
