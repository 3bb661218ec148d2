package detection

import (
	"context"
	"fmt"
	"math"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/stats"
)

// Threshold breach directions.
const (
	DirectionAbove = "above"
	DirectionBelow = "below"
)

// FXDetector flags currency pair volatility, spikes and level breaches.
type FXDetector struct {
	base
	policy Policy
}

// Detect flags a pair whose volatility over the window reaches thresholdPct.
func (d *FXDetector) Detect(ctx context.Context, pair string, lookbackDays int, thresholdPct float64) (*domain.AnomalyResult, error) {
	if thresholdPct <= 0 {
		thresholdPct = DefaultFXThresholdPct
	}

	points, err := d.window(ctx, domain.SeriesFX, pair, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch fx rates for %s: %w", pair, err)
	}
	if len(points) < minFXPoints {
		return nil, nil
	}

	values := domain.Values(points)
	volatility := stats.Volatility(values)
	if volatility < thresholdPct {
		return nil, nil
	}

	current := values[len(values)-1]
	historical := values[:len(values)-1]
	mean := stats.Mean(historical)
	change := stats.PercentageChange(mean, current)

	return &domain.AnomalyResult{
		Type:         domain.AnomalyFXVolatility,
		EntityID:     pair,
		CurrentValue: current,
		Baseline:     mean,
		StdDev:       stats.StdDev(historical),
		Score:        volatility,
		Severity:     d.policy.ClassifyOrLow(volatility, change),
		DetectedAt:   d.now(),
		Details: domain.FXDetails{
			CurrencyPair:  pair,
			Signal:        domain.FXSignalVolatility,
			CurrentRate:   current,
			AverageRate:   mean,
			VolatilityPct: volatility,
			RateChangePct: change,
		},
	}, nil
}

// DetectSpike compares the oldest and newest rate in a short window,
// independent of volatility.
func (d *FXDetector) DetectSpike(ctx context.Context, pair string, windowDays int, thresholdPct float64) (*domain.AnomalyResult, error) {
	if windowDays <= 0 {
		windowDays = DefaultFXSpikeWindowDays
	}
	if thresholdPct <= 0 {
		thresholdPct = DefaultFXSpikeThresholdPct
	}

	points, err := d.series.Latest(ctx, domain.SeriesFX, pair, windowDays)
	if err != nil {
		return nil, fmt.Errorf("fetch fx rates for %s: %w", pair, err)
	}
	if len(points) < 2 {
		return nil, nil
	}

	oldest := points[0].Value
	newest := points[len(points)-1].Value
	change := stats.PercentageChange(oldest, newest)
	if math.Abs(change) < thresholdPct {
		return nil, nil
	}

	values := domain.Values(points)
	return &domain.AnomalyResult{
		Type:         domain.AnomalyFXVolatility,
		EntityID:     pair,
		CurrentValue: newest,
		Baseline:     oldest,
		StdDev:       stats.StdDev(values),
		Score:        change,
		Severity:     d.policy.ClassifyOrLow(0, change),
		DetectedAt:   d.now(),
		Details: domain.FXDetails{
			CurrencyPair:  pair,
			Signal:        domain.FXSignalSpike,
			CurrentRate:   newest,
			AverageRate:   stats.Mean(values),
			VolatilityPct: stats.Volatility(values),
			RateChangePct: change,
		},
	}, nil
}

// CheckThreshold flags when the current rate is beyond level in direction.
// Breaches are always high severity.
func (d *FXDetector) CheckThreshold(ctx context.Context, pair string, level float64, direction string) (*domain.AnomalyResult, error) {
	if direction != DirectionAbove && direction != DirectionBelow {
		return nil, ErrInvalidDirection
	}

	points, err := d.series.Latest(ctx, domain.SeriesFX, pair, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch fx rate for %s: %w", pair, err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	current := points[0].Value
	breached := (direction == DirectionAbove && current > level) ||
		(direction == DirectionBelow && current < level)
	if !breached {
		return nil, nil
	}

	change := stats.PercentageChange(level, current)
	return &domain.AnomalyResult{
		Type:         domain.AnomalyFXVolatility,
		EntityID:     pair,
		CurrentValue: current,
		Baseline:     level,
		Score:        change,
		Severity:     domain.SeverityHigh,
		DetectedAt:   d.now(),
		Details: domain.FXDetails{
			CurrencyPair:  pair,
			Signal:        domain.FXSignalThresholdBreach,
			CurrentRate:   current,
			RateChangePct: change,
			Threshold:     level,
			Direction:     direction,
		},
	}, nil
}

// DetectAll runs Detect over every catalog currency pair, skipping per-pair failures.
func (d *FXDetector) DetectAll(ctx context.Context, lookbackDays int, thresholdPct float64) ([]*domain.AnomalyResult, error) {
	pairs, err := d.catalog.ListCurrencyPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currency pairs: %w", err)
	}

	var results []*domain.AnomalyResult
	for _, p := range pairs {
		r, err := d.Detect(ctx, p.Pair, lookbackDays, thresholdPct)
		if err != nil {
			d.logger.Warn().Err(err).Str("currency_pair", p.Pair).Msg("fx detection failed")
			continue
		}
		if r != nil {
			results = append(results, r)
		}
	}
	return results, nil
}
