package detection

import (
	"context"
	"fmt"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/stats"
)

// Freight trend directions.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"

	trendBandPct   = 5.0
	trendWeekDays  = 7
	minTrendPoints = 2 * trendWeekDays
)

// FreightTrend compares the first and last week of a lookback window.
type FreightTrend struct {
	Route        string  `json:"route"`
	Direction    string  `json:"direction"`
	FirstWeekAvg float64 `json:"first_week_avg"`
	LastWeekAvg  float64 `json:"last_week_avg"`
	ChangePct    float64 `json:"change_pct"`
}

// FreightDetector flags freight index surges and drops per route.
type FreightDetector struct {
	base
	policy Policy
}

// Detect compares the latest index with the mean of the preceding window.
// A rise of thresholdPct or more is a surge classified by policy. A fall of
// thresholdPct or more is a drop reported as a low-severity opportunity.
func (d *FreightDetector) Detect(ctx context.Context, route string, lookbackDays int, thresholdPct float64) (*domain.AnomalyResult, error) {
	routes, err := d.catalog.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	meta := domain.FreightRoute{Route: route}
	for _, r := range routes {
		if r.Route == route {
			meta = *r
			break
		}
	}
	return d.detect(ctx, meta, lookbackDays, thresholdPct)
}

func (d *FreightDetector) detect(ctx context.Context, route domain.FreightRoute, lookbackDays int, thresholdPct float64) (*domain.AnomalyResult, error) {
	if thresholdPct <= 0 {
		thresholdPct = DefaultFreightThresholdPct
	}

	points, err := d.window(ctx, domain.SeriesFreight, route.Route, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch freight index for %s: %w", route.Route, err)
	}
	if len(points) < minFreightPoints {
		return nil, nil
	}

	current := points[len(points)-1].Value
	historical := domain.Values(points[:len(points)-1])
	mean := stats.Mean(historical)
	sd := stats.StdDev(historical)
	z := stats.ZScore(current, mean, sd)
	change := stats.PercentageChange(mean, current)

	var (
		direction   string
		severity    domain.Severity
		opportunity bool
	)
	switch {
	case change >= thresholdPct:
		direction = domain.FreightSurge
		severity = d.policy.ClassifyOrLow(z, change)
	case change <= -thresholdPct:
		direction = domain.FreightDrop
		severity = domain.SeverityLow
		opportunity = true
	default:
		return nil, nil
	}

	return &domain.AnomalyResult{
		Type:         domain.AnomalyFreightSurge,
		EntityID:     route.Route,
		CurrentValue: current,
		Baseline:     mean,
		StdDev:       sd,
		Score:        change,
		Severity:     severity,
		DetectedAt:   d.now(),
		Details: domain.FreightDetails{
			Route:          route.Route,
			Origin:         route.Origin,
			Destination:    route.Destination,
			CurrentIndex:   current,
			AverageIndex:   mean,
			StdDev:         sd,
			ZScore:         z,
			IndexChangePct: change,
			Direction:      direction,
			Opportunity:    opportunity,
		},
	}, nil
}

// AnalyzeTrend classifies the route's direction over the lookback window.
// Returns nil, nil with fewer than two weeks of points.
func (d *FreightDetector) AnalyzeTrend(ctx context.Context, route string, lookbackDays int) (*FreightTrend, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	points, err := d.series.Latest(ctx, domain.SeriesFreight, route, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch freight index for %s: %w", route, err)
	}
	if len(points) < minTrendPoints {
		return nil, nil
	}

	values := domain.Values(points)
	first := stats.Mean(values[:trendWeekDays])
	last := stats.Mean(values[len(values)-trendWeekDays:])
	change := stats.PercentageChange(first, last)

	direction := TrendStable
	switch {
	case change > trendBandPct:
		direction = TrendIncreasing
	case change < -trendBandPct:
		direction = TrendDecreasing
	}

	return &FreightTrend{
		Route:        route,
		Direction:    direction,
		FirstWeekAvg: first,
		LastWeekAvg:  last,
		ChangePct:    change,
	}, nil
}

// DetectAll runs detection over every catalog route, skipping per-route failures.
func (d *FreightDetector) DetectAll(ctx context.Context, lookbackDays int, thresholdPct float64) ([]*domain.AnomalyResult, error) {
	routes, err := d.catalog.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	var results []*domain.AnomalyResult
	for _, r := range routes {
		res, err := d.detect(ctx, *r, lookbackDays, thresholdPct)
		if err != nil {
			d.logger.Warn().Err(err).Str("route", r.Route).Msg("freight detection failed")
			continue
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results, nil
}
