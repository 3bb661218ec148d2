// Package benchmark ranks an analysis against reference distributions of past
// cascading impact and risk scores.
package benchmark

import (
	"math"
	"strings"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
)

// GeneralSector is used when no sector is given or the sector is unknown.
const GeneralSector = "general"

// maxSimilarEvents bounds the similar events returned.
const maxSimilarEvents = 3

// bucket is one bin of a reference histogram, covering [Min, Max).
type bucket struct {
	Min, Max float64
	Count    int
}

// cascadeDistribution is the reference histogram of cascading impact scores.
var cascadeDistribution = []bucket{
	{0, 10, 120},
	{10, 20, 180},
	{20, 30, 210},
	{30, 40, 190},
	{40, 50, 150},
	{50, 60, 110},
	{60, 70, 80},
	{70, 80, 50},
	{80, 90, 30},
	{90, 100, 20},
}

// riskDistribution is the reference histogram of overall risk scores.
var riskDistribution = []bucket{
	{0, 20, 90},
	{20, 40, 240},
	{40, 60, 300},
	{60, 80, 210},
	{80, 90, 100},
	{90, 100, 60},
}

// sectorAverages holds the mean cascading impact per sector.
var sectorAverages = map[string]float64{
	"agriculture": 35,
	"automotive":  40,
	"chemicals":   45,
	"electronics": 38,
	"steel":       42,
	"textiles":    33,
	GeneralSector: 37.5,
}

// HistoricalEvent is a past disruption comparable to the analyzed alert.
type HistoricalEvent struct {
	Name          string  `json:"name"`
	Period        string  `json:"period"`
	CascadeImpact float64 `json:"cascade_impact"`
	RiskScore     float64 `json:"risk_score"`
	Outcome       string  `json:"outcome"`

	minImpact float64
	minRisk   float64
}

// historicalEvents is ordered from most to least severe.
var historicalEvents = []HistoricalEvent{
	{
		Name:          "Suez Canal blockage",
		Period:        "2021-03",
		CascadeImpact: 92,
		RiskScore:     95,
		Outcome:       "Freight rates on Asia-Europe lanes doubled within two weeks; backlog cleared after six weeks",
		minImpact:     80,
		minRisk:       80,
	},
	{
		Name:          "Section 301 tariff escalation",
		Period:        "2019-05",
		CascadeImpact: 78,
		RiskScore:     88,
		Outcome:       "Importers shifted sourcing to ASEAN suppliers over two quarters",
		minImpact:     60,
		minRisk:       80,
	},
	{
		Name:          "Container freight rate surge",
		Period:        "2021-09",
		CascadeImpact: 75,
		RiskScore:     72,
		Outcome:       "Spot rates peaked at five times the prior-year level before easing through 2022",
		minImpact:     70,
		minRisk:       60,
	},
	{
		Name:          "Ringgit depreciation",
		Period:        "2015-08",
		CascadeImpact: 58,
		RiskScore:     64,
		Outcome:       "Import costs rose about 15 percent; hedged buyers were largely insulated",
		minImpact:     50,
		minRisk:       60,
	},
	{
		Name:          "Hot-rolled steel price rally",
		Period:        "2021-05",
		CascadeImpact: 52,
		RiskScore:     48,
		Outcome:       "Prices normalized after four months as mill capacity returned",
		minImpact:     50,
		minRisk:       40,
	},
}

var noSimilarEvent = HistoricalEvent{
	Name:    "No similar historical cases",
	Outcome: "No comparable disruption on record at this impact and risk level",
}

// Metrics is the benchmark for one analysis.
type Metrics struct {
	CascadePercentile     float64           `json:"cascade_percentile"`
	RiskPercentile        float64           `json:"risk_percentile"`
	OverallPercentile     float64           `json:"overall_percentile"`
	Sector                string            `json:"sector"`
	SectorAverage         float64           `json:"sector_average"`
	DifferenceFromAverage float64           `json:"difference_from_average"`
	SimilarEvents         []HistoricalEvent `json:"similar_events"`
}

// GetBenchmarkMetrics ranks cascadeImpact and riskScore against the reference
// distributions and compares the impact with the sector average. It never
// fails; non-finite inputs yield zero metrics.
func GetBenchmarkMetrics(cascadeImpact, riskScore float64, sector string) Metrics {
	if !finite(cascadeImpact) || !finite(riskScore) {
		return Metrics{}
	}

	cp := percentile(cascadeDistribution, cascadeImpact)
	rp := percentile(riskDistribution, riskScore)

	name, avg := sectorAverage(sector)
	return Metrics{
		CascadePercentile:     cp,
		RiskPercentile:        rp,
		OverallPercentile:     (cp + rp) / 2,
		Sector:                name,
		SectorAverage:         avg,
		DifferenceFromAverage: cascadeImpact - avg,
		SimilarEvents:         similarEvents(cascadeImpact, riskScore),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// percentile treats each bucket as uniform and places v at the middle of its
// bucket's mass. Values outside every bucket rank at 50. The top bucket
// includes its upper bound.
func percentile(dist []bucket, v float64) float64 {
	total := 0
	for _, b := range dist {
		total += b.Count
	}
	if total == 0 {
		return 50
	}

	before := 0
	for i, b := range dist {
		last := i == len(dist)-1
		if v >= b.Min && (v < b.Max || (last && v == b.Max)) {
			return (float64(before) + 0.5*float64(b.Count)) / float64(total) * 100
		}
		before += b.Count
	}
	return 50
}

func sectorAverage(sector string) (string, float64) {
	key := strings.ToLower(strings.TrimSpace(sector))
	if avg, ok := sectorAverages[key]; ok {
		return key, avg
	}
	return GeneralSector, sectorAverages[GeneralSector]
}

func similarEvents(impact, risk float64) []HistoricalEvent {
	var out []HistoricalEvent
	for _, e := range historicalEvents {
		if len(out) == maxSimilarEvents {
			break
		}
		if impact >= e.minImpact && risk >= e.minRisk {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return []HistoricalEvent{noSimilarEvent}
	}
	return out
}

// BenchmarkedIntelligence is an analysis with its benchmark attached.
type BenchmarkedIntelligence struct {
	*domain.ConnectedIntelligence
	Benchmark Metrics `json:"benchmark"`
}

// Enrich benchmarks ci. An empty sector falls back to the primary anomaly's
// product category. Returns nil for a nil analysis.
func Enrich(ci *domain.ConnectedIntelligence, sector string) *BenchmarkedIntelligence {
	if ci == nil {
		return nil
	}
	if sector == "" && ci.PrimaryAlert.Anomaly.Details != nil {
		sector = ci.PrimaryAlert.Anomaly.Details.Category()
	}
	return &BenchmarkedIntelligence{
		ConnectedIntelligence: ci,
		Benchmark: GetBenchmarkMetrics(
			ci.ImpactCascade.CascadingImpact,
			ci.RiskAssessment.OverallRisk,
			sector,
		),
	}
}
