package intelligence

import (
	"time"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
)

// Result caps per heuristic.
const (
	maxSectorFactors     = 10
	maxGeographicFactors = 10
	maxCircularFactors   = 5
	maxHistoricalFactors = 10

	historicalMinOccurrences = 3
	historicalMinAgeDays     = 14
)

// heuristic proposes factors for a primary alert from related alerts.
type heuristic struct {
	name string
	run  func(primary *domain.AlertRecord, related []*domain.AlertRecord, now time.Time) []domain.ConnectionFactor
}

var heuristics = []heuristic{
	{"direct", directFactors},
	{"pattern", patternFactors},
	{"sector", sectorFactors},
	{"geographic", geographicFactors},
	{"circular", circularFactors},
	{"historical", historicalFactors},
}

func newFactor(rec *domain.AlertRecord, score float64, kind domain.RelationKind) domain.ConnectionFactor {
	return domain.ConnectionFactor{
		AlertID:          rec.ID,
		CreatedAt:        rec.CreatedAt,
		Anomaly:          rec.Anomaly,
		CorrelationScore: score,
		Relations:        []domain.RelationKind{kind},
	}
}

// directFactors links alerts on the same product or of a different type.
func directFactors(primary *domain.AlertRecord, related []*domain.AlertRecord, _ time.Time) []domain.ConnectionFactor {
	var out []domain.ConnectionFactor
	for _, r := range related {
		if !primary.Anomaly.SharesProduct(&r.Anomaly) && primary.Anomaly.Type == r.Anomaly.Type {
			continue
		}
		if s := Correlation(&primary.Anomaly, &r.Anomaly); s > admitScore {
			out = append(out, newFactor(r, s, domain.RelationDirect))
		}
	}
	return out
}

func patternFactors(primary *domain.AlertRecord, related []*domain.AlertRecord, _ time.Time) []domain.ConnectionFactor {
	var out []domain.ConnectionFactor
	for _, r := range related {
		if s := PatternScore(&primary.Anomaly, &r.Anomaly); s > admitScore {
			out = append(out, newFactor(r, s, domain.RelationPattern))
		}
	}
	return out
}

// sectorFactors links same-type anomalies in the primary's product category.
func sectorFactors(primary *domain.AlertRecord, related []*domain.AlertRecord, _ time.Time) []domain.ConnectionFactor {
	cat := category(&primary.Anomaly)
	if cat == "" {
		return nil
	}
	var out []domain.ConnectionFactor
	for _, r := range related {
		if len(out) == maxSectorFactors {
			break
		}
		if r.Anomaly.Type == primary.Anomaly.Type && category(&r.Anomaly) == cat {
			out = append(out, newFactor(r, scoreSector, domain.RelationSector))
		}
	}
	return out
}

func geographicFactors(primary *domain.AlertRecord, related []*domain.AlertRecord, _ time.Time) []domain.ConnectionFactor {
	c := country(&primary.Anomaly)
	if c == "" {
		return nil
	}
	var out []domain.ConnectionFactor
	for _, r := range related {
		if len(out) == maxGeographicFactors {
			break
		}
		if country(&r.Anomaly) == c {
			out = append(out, newFactor(r, scoreGeographic, domain.RelationGeographic))
		}
	}
	return out
}

// circularFactors links anomalies whose type feeds back into the primary's.
// Type alone decides; magnitudes are not checked.
func circularFactors(primary *domain.AlertRecord, related []*domain.AlertRecord, _ time.Time) []domain.ConnectionFactor {
	var out []domain.ConnectionFactor
	for _, r := range related {
		if len(out) == maxCircularFactors {
			break
		}
		if r.Anomaly.Type == primary.Anomaly.Type {
			continue
		}
		if _, ok := complementary[pairOf(primary.Anomaly.Type, r.Anomaly.Type)]; !ok {
			continue
		}
		f := newFactor(r, scoreCircular, domain.RelationCircular)
		f.CircularDependency = true
		out = append(out, f)
	}
	return out
}

// historicalFactors flags older occurrences of anomaly types that recur at
// least three times in the window.
func historicalFactors(_ *domain.AlertRecord, related []*domain.AlertRecord, now time.Time) []domain.ConnectionFactor {
	counts := make(map[domain.AnomalyType]int)
	for _, r := range related {
		counts[r.Anomaly.Type]++
	}

	cutoff := now.AddDate(0, 0, -historicalMinAgeDays)
	var out []domain.ConnectionFactor
	for _, r := range related {
		if len(out) == maxHistoricalFactors {
			break
		}
		n := counts[r.Anomaly.Type]
		if n < historicalMinOccurrences || !r.CreatedAt.Before(cutoff) {
			continue
		}
		f := newFactor(r, scoreHistorical, domain.RelationHistorical)
		f.HistoricalPattern = true
		f.Occurrences = n
		out = append(out, f)
	}
	return out
}
