package intelligence

import (
	"fmt"
	"sort"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
)

// maxExposedFactors bounds connected_factors in the result.
const maxExposedFactors = 10

// mergeFactors dedupes by alert id keeping the highest score, the union of
// relations and any set flag. Sorted by score desc, newest first, then id.
func mergeFactors(groups ...[]domain.ConnectionFactor) []domain.ConnectionFactor {
	byID := make(map[string]*domain.ConnectionFactor)
	var order []string
	for _, group := range groups {
		for _, f := range group {
			cur, ok := byID[f.AlertID]
			if !ok {
				c := f
				c.Relations = append([]domain.RelationKind(nil), f.Relations...)
				byID[f.AlertID] = &c
				order = append(order, f.AlertID)
				continue
			}
			if f.CorrelationScore > cur.CorrelationScore {
				cur.CorrelationScore = f.CorrelationScore
			}
			for _, k := range f.Relations {
				if !hasRelation(cur.Relations, k) {
					cur.Relations = append(cur.Relations, k)
				}
			}
			cur.CircularDependency = cur.CircularDependency || f.CircularDependency
			if f.HistoricalPattern {
				cur.HistoricalPattern = true
				cur.Occurrences = f.Occurrences
			}
		}
	}

	out := make([]domain.ConnectionFactor, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CorrelationScore != out[j].CorrelationScore {
			return out[i].CorrelationScore > out[j].CorrelationScore
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].AlertID < out[j].AlertID
	})
	return out
}

func hasRelation(kinds []domain.RelationKind, k domain.RelationKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

// severityBase is the cascade starting weight for a severity.
func severityBase(s domain.Severity) float64 {
	switch s {
	case domain.SeverityCritical:
		return 100
	case domain.SeverityHigh:
		return 60
	case domain.SeverityMedium:
		return 30
	case domain.SeverityLow:
		return 10
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CascadingImpact scores propagation from factors sorted by score desc.
// The top factor's severity sets the base; every factor scales it and each
// high or critical factor adds a flat 20. Result is within [0, 100].
func CascadingImpact(factors []domain.ConnectionFactor) float64 {
	if len(factors) == 0 {
		return 0
	}
	impact := severityBase(factors[0].Anomaly.Severity) * (1 + 0.2*float64(len(factors)))
	for _, f := range factors {
		if f.Anomaly.Severity.Rank() >= domain.SeverityHigh.Rank() {
			impact += 20
		}
	}
	return clamp(impact, 0, 100)
}

// distinctTypes counts anomaly types across the primary and its factors.
func distinctTypes(primary *domain.Anomaly, factors []domain.ConnectionFactor) int {
	seen := map[domain.AnomalyType]struct{}{primary.Type: {}}
	for _, f := range factors {
		seen[f.Anomaly.Type] = struct{}{}
	}
	return len(seen)
}

// supplyChainTypes is the distinct type count at which the supply chain
// counts as affected.
const supplyChainTypes = 3

// CorrelationMatrix scores every pair of the primary and exposed factors.
func CorrelationMatrix(primary *domain.AlertRecord, factors []domain.ConnectionFactor) []domain.CorrelationEntry {
	type node struct {
		id string
		a  *domain.Anomaly
	}
	nodes := make([]node, 0, len(factors)+1)
	nodes = append(nodes, node{primary.ID, &primary.Anomaly})
	for i := range factors {
		nodes = append(nodes, node{factors[i].AlertID, &factors[i].Anomaly})
	}

	entries := make([]domain.CorrelationEntry, 0, len(nodes)*(len(nodes)-1)/2)
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			entries = append(entries, domain.CorrelationEntry{
				SourceAlertID: nodes[i].id,
				TargetAlertID: nodes[j].id,
				SourceType:    nodes[i].a.Type,
				TargetType:    nodes[j].a.Type,
				Score:         Correlation(nodes[i].a, nodes[j].a),
			})
		}
	}
	return entries
}

// Priority maps an overall risk score to a mitigation priority.
func Priority(risk float64) domain.Severity {
	switch {
	case risk >= 80:
		return domain.SeverityCritical
	case risk >= 60:
		return domain.SeverityHigh
	case risk >= 40:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// AssessRisk derives the overall risk from the cascade, the primary severity
// and the factor mix.
func AssessRisk(primary *domain.Anomaly, factors []domain.ConnectionFactor, cascade float64, types int) domain.RiskAssessment {
	risk := cascade
	reasons := make([]string, 0, 4)

	if primary.Severity == domain.SeverityCritical {
		if risk < 90 {
			risk = 90
		}
		reasons = append(reasons, "Primary anomaly is critical severity")
	}
	if len(factors) >= 5 {
		risk += 15
		reasons = append(reasons, fmt.Sprintf("%d correlated factors", len(factors)))
	}
	if types >= supplyChainTypes {
		risk += 20
		reasons = append(reasons, fmt.Sprintf("%d distinct anomaly types involved", types))
	}
	for _, f := range factors {
		if f.Anomaly.Severity == domain.SeverityCritical {
			risk += 10
			reasons = append(reasons, "Critical severity among connected factors")
			break
		}
	}
	if cascade >= 60 {
		reasons = append(reasons, fmt.Sprintf("High cascading impact (%.0f)", cascade))
	}

	risk = clamp(risk, 0, 100)
	return domain.RiskAssessment{
		OverallRisk:        risk,
		RiskFactors:        reasons,
		MitigationPriority: Priority(risk),
	}
}
