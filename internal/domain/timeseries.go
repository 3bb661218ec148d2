package domain

import "time"

// SeriesKind selects a time series family in the series store.
type SeriesKind string

const (
	SeriesPrice   SeriesKind = "price"   // keyed by product id
	SeriesTariff  SeriesKind = "tariff"  // keyed by product id, Date is the effective date
	SeriesFreight SeriesKind = "freight" // keyed by route
	SeriesFX      SeriesKind = "fx"      // keyed by currency pair
)

// IsValid checks if the kind is a known value.
func (k SeriesKind) IsValid() bool {
	switch k {
	case SeriesPrice, SeriesTariff, SeriesFreight, SeriesFX:
		return true
	default:
		return false
	}
}

// SeriesPoint is a single observation of an entity's time series.
// Corresponds to series_points table in ClickHouse.
type SeriesPoint struct {
	EntityID string    `json:"entity_id"`
	Value    float64   `json:"value"`
	Date     time.Time `json:"date"`
}

// Values extracts the values of points in order.
func Values(points []SeriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
