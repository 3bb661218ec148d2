package intelligence

import "github.com/azrilxx/tradenestkgsb-sub000/internal/domain"

const maxRecommendations = 5

const (
	adviceCritical    = "CRITICAL: Activate contingency sourcing and notify executive stakeholders immediately"
	adviceUrgent      = "URGENT: Escalate to procurement leadership and review exposure within 24 hours"
	adviceSupplyChain = "Run a cross-functional supply chain review; multiple cost drivers are moving together"
)

// baseAdvice is keyed by primary anomaly type.
var baseAdvice = map[domain.AnomalyType][]string{
	domain.AnomalyPriceSpike: {
		"Review supplier contracts for price adjustment clauses",
		"Request quotes from alternative suppliers for affected products",
	},
	domain.AnomalyTariffChange: {
		"Confirm the revised tariff schedule with customs brokers",
		"Recalculate landed cost for affected products",
	},
	domain.AnomalyFreightSurge: {
		"Compare rates across carriers and consolidate shipments",
		"Review inventory buffers for affected shipping lanes",
	},
	domain.AnomalyFXVolatility: {
		"Review currency exposure on open purchase orders",
		"Consider forward contracts to hedge payment exposure",
	},
}

// companionAdvice is keyed by primary type, then by a factor type present.
var companionAdvice = map[domain.AnomalyType]map[domain.AnomalyType]string{
	domain.AnomalyPriceSpike: {
		domain.AnomalyFreightSurge: "Evaluate alternative freight routes and carriers to offset combined cost pressure",
		domain.AnomalyTariffChange: "Check HS classification and trade agreement exemptions for the affected product",
		domain.AnomalyFXVolatility: "Hedge supplier payments in the affected currency",
	},
	domain.AnomalyTariffChange: {
		domain.AnomalyPriceSpike: "Negotiate sharing of the tariff increase with suppliers",
	},
	domain.AnomalyFreightSurge: {
		domain.AnomalyPriceSpike: "Lock in supplier pricing before freight costs pass through",
	},
	domain.AnomalyFXVolatility: {
		domain.AnomalyPriceSpike: "Monitor import prices for currency pass-through",
	},
}

// Recommend selects advice for the primary type and the companion types among
// factors. Urgent advice is placed first and the list is capped at five.
func Recommend(primary *domain.Anomaly, factors []domain.ConnectionFactor, cascade float64, supplyChain bool) []string {
	present := make(map[domain.AnomalyType]bool)
	for _, f := range factors {
		present[f.Anomaly.Type] = true
	}

	recs := append([]string(nil), baseAdvice[primary.Type]...)
	for _, t := range domain.AllAnomalyTypes {
		if advice, ok := companionAdvice[primary.Type][t]; ok && present[t] {
			recs = append(recs, advice)
		}
	}
	if supplyChain {
		recs = append(recs, adviceSupplyChain)
	}

	if cascade > 70 {
		recs = append([]string{adviceUrgent}, recs...)
	}
	if cascade > 80 {
		recs = append([]string{adviceCritical}, recs...)
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}
