package intelligence

import (
	"math"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
)

// Heuristic scores.
const (
	scoreBaseline      = 0.3
	scoreSharedProduct = 0.6
	scoreSector        = 0.55
	scoreGeographic    = 0.45
	scoreCircular      = 0.65
	scoreHistorical    = 0.4
	scorePatternNone   = 0.2

	// admitScore is the exclusive lower bound for direct and pattern factors.
	admitScore = 0.3
)

type typePair struct{ a, b domain.AnomalyType }

func pairOf(a, b domain.AnomalyType) typePair {
	if a > b {
		a, b = b, a
	}
	return typePair{a, b}
}

// complementary pairs move together in a supply chain; both directions count.
var complementary = map[typePair]float64{
	pairOf(domain.AnomalyPriceSpike, domain.AnomalyFreightSurge): 0.9,
	pairOf(domain.AnomalyTariffChange, domain.AnomalyPriceSpike):  0.85,
	pairOf(domain.AnomalyFXVolatility, domain.AnomalyPriceSpike):  0.75,
}

// Correlation scores how related two anomalies are from their types and
// product. It is symmetric and used for both direct factors and the matrix.
func Correlation(a, b *domain.Anomaly) float64 {
	if a.Type != b.Type {
		if s, ok := complementary[pairOf(a.Type, b.Type)]; ok {
			return s
		}
	}
	if a.SharesProduct(b) {
		return scoreSharedProduct
	}
	return scoreBaseline
}

// PatternScore checks type-specific co-movement magnitudes.
// Returns 0.2 when no pattern applies.
func PatternScore(a, b *domain.Anomaly) float64 {
	switch pairOf(a.Type, b.Type) {
	case pairOf(domain.AnomalyPriceSpike, domain.AnomalyFreightSurge):
		if math.Abs(change(a)) > 20 && math.Abs(change(b)) > 20 {
			return 0.8
		}
	case pairOf(domain.AnomalyTariffChange, domain.AnomalyPriceSpike):
		tariff, price := a, b
		if tariff.Type != domain.AnomalyTariffChange {
			tariff, price = b, a
		}
		if math.Abs(change(tariff)) > 10 && math.Abs(change(price)) > 20 {
			return 0.75
		}
	case pairOf(domain.AnomalyFXVolatility, domain.AnomalyPriceSpike):
		fx, price := a, b
		if fx.Type != domain.AnomalyFXVolatility {
			fx, price = b, a
		}
		if fxMovement(fx) > 2.5 && math.Abs(change(price)) > 15 {
			return 0.7
		}
	}
	return scorePatternNone
}

func change(a *domain.Anomaly) float64 {
	if a.Details == nil {
		return 0
	}
	return a.Details.ChangePercent()
}

// fxMovement is the larger of volatility and absolute rate change.
func fxMovement(a *domain.Anomaly) float64 {
	d, ok := a.Details.(domain.FXDetails)
	if !ok {
		return math.Abs(change(a))
	}
	return math.Max(d.VolatilityPct, math.Abs(d.RateChangePct))
}

func category(a *domain.Anomaly) string {
	if a.Details == nil {
		return ""
	}
	return a.Details.Category()
}

func country(a *domain.Anomaly) string {
	if a.Details == nil {
		return ""
	}
	return a.Details.Country()
}
