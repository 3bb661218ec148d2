package domain

import "time"

// AnomalyType identifies the detector family that produced an anomaly.
type AnomalyType string

const (
	AnomalyPriceSpike   AnomalyType = "price_spike"
	AnomalyTariffChange AnomalyType = "tariff_change"
	AnomalyFreightSurge AnomalyType = "freight_surge"
	AnomalyFXVolatility AnomalyType = "fx_volatility"
)

// AllAnomalyTypes lists every anomaly type in detector execution order.
var AllAnomalyTypes = []AnomalyType{
	AnomalyPriceSpike,
	AnomalyTariffChange,
	AnomalyFreightSurge,
	AnomalyFXVolatility,
}

// String returns the string representation of AnomalyType.
func (t AnomalyType) String() string {
	return string(t)
}

// IsValid checks if the anomaly type is a known value.
func (t AnomalyType) IsValid() bool {
	switch t {
	case AnomalyPriceSpike, AnomalyTariffChange, AnomalyFreightSurge, AnomalyFXVolatility:
		return true
	default:
		return false
	}
}

// AnomalyResult is a detector's output before persistence.
type AnomalyResult struct {
	Type         AnomalyType `json:"type"`
	EntityID     string      `json:"entity_id"`            // product id, route or currency pair
	ProductID    *string     `json:"product_id,omitempty"` // nil for route/pair scoped anomalies
	CurrentValue float64     `json:"current_value"`
	Baseline     float64     `json:"baseline"` // historical mean or previous value
	StdDev       float64     `json:"std_dev"`
	Score        float64     `json:"score"` // z-score, % change or volatility depending on Type
	Severity     Severity    `json:"severity"`
	DetectedAt   time.Time   `json:"detected_at"`
	Details      Details     `json:"details"`
}

// Anomaly is a persisted detection event. Immutable once created.
// Corresponds to anomalies table in PostgreSQL.
type Anomaly struct {
	ID         string      `json:"id"`
	Type       AnomalyType `json:"type"`
	ProductID  *string     `json:"product_id"`
	Severity   Severity    `json:"severity"`
	DetectedAt time.Time   `json:"detected_at"`
	Details    Details     `json:"details"`
}

// SameScope reports whether two anomalies share type and product (nil matches nil).
func (a *Anomaly) SameScope(t AnomalyType, productID *string) bool {
	if a.Type != t {
		return false
	}
	if a.ProductID == nil || productID == nil {
		return a.ProductID == nil && productID == nil
	}
	return *a.ProductID == *productID
}

// SharesProduct reports whether both anomalies reference the same non-nil product.
func (a *Anomaly) SharesProduct(other *Anomaly) bool {
	return a.ProductID != nil && other.ProductID != nil && *a.ProductID == *other.ProductID
}
