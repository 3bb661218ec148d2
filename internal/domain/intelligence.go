package domain

import "time"

// RelationKind names the heuristic that linked a factor to the primary alert.
type RelationKind string

const (
	RelationDirect     RelationKind = "direct"
	RelationPattern    RelationKind = "pattern"
	RelationSector     RelationKind = "sector"
	RelationGeographic RelationKind = "geographic"
	RelationCircular   RelationKind = "circular_dependency"
	RelationHistorical RelationKind = "historical_pattern"
)

// ConnectionFactor is a related alert found to correlate with a primary alert.
// Computed per request, never persisted.
type ConnectionFactor struct {
	AlertID            string         `json:"alert_id"`
	CreatedAt          time.Time      `json:"created_at"`
	Anomaly            Anomaly        `json:"anomaly"`
	CorrelationScore   float64        `json:"correlation_score"` // [0,1]
	Relations          []RelationKind `json:"relations"`
	CircularDependency bool           `json:"circular_dependency"`
	HistoricalPattern  bool           `json:"historical_pattern"`
	Occurrences        int            `json:"occurrences,omitempty"`
}

// ImpactCascade summarizes how far a primary anomaly propagates.
type ImpactCascade struct {
	CascadingImpact     float64 `json:"cascading_impact"` // [0,100]
	TotalFactors        int     `json:"total_factors"`
	AffectedSupplyChain bool    `json:"affected_supply_chain"`
}

// CorrelationEntry is one pairwise cell of the correlation matrix.
type CorrelationEntry struct {
	SourceAlertID string      `json:"source_alert_id"`
	TargetAlertID string      `json:"target_alert_id"`
	SourceType    AnomalyType `json:"source_type"`
	TargetType    AnomalyType `json:"target_type"`
	Score         float64     `json:"score"`
}

// RiskAssessment is the overall risk verdict for a primary alert.
type RiskAssessment struct {
	OverallRisk        float64  `json:"overall_risk"` // [0,100]
	RiskFactors        []string `json:"risk_factors"`
	MitigationPriority Severity `json:"mitigation_priority"`
}

// ConnectedIntelligence is the full analysis of a primary alert.
// Recomputed on each request.
type ConnectedIntelligence struct {
	PrimaryAlert       AlertRecord        `json:"primary_alert"`
	ConnectedFactors   []ConnectionFactor `json:"connected_factors"`
	ImpactCascade      ImpactCascade      `json:"impact_cascade"`
	CorrelationMatrix  []CorrelationEntry `json:"correlation_matrix"`
	RecommendedActions []string           `json:"recommended_actions"`
	RiskAssessment     RiskAssessment     `json:"risk_assessment"`
	TimeWindowDays     int                `json:"time_window_days"`
	AnalyzedAt         time.Time          `json:"analyzed_at"`
}
