package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Details is the type-specific payload of an anomaly.
// Exactly one variant exists per AnomalyType.
type Details interface {
	Kind() AnomalyType
	ChangePercent() float64
	Category() string
	Country() string
}

// PriceDetails describes a price_spike anomaly.
type PriceDetails struct {
	ProductName     string  `json:"product_name,omitempty"`
	ProductCategory string  `json:"category,omitempty"`
	OriginCountry   string  `json:"country,omitempty"`
	Method          string  `json:"method"` // "zscore" | "moving_average"
	CurrentPrice    float64 `json:"current_price"`
	PreviousPrice   float64 `json:"previous_price"`
	AveragePrice    float64 `json:"average_price"`
	StdDev          float64 `json:"std_dev"`
	ZScore          float64 `json:"z_score"`
	PriceChangePct  float64 `json:"percentage_change"`
	OutlierCount    int     `json:"outlier_count"`
	ShortWindow     int     `json:"short_window,omitempty"`
	LongWindow      int     `json:"long_window,omitempty"`
}

// Price detection methods.
const (
	PriceMethodZScore        = "zscore"
	PriceMethodMovingAverage = "moving_average"
)

func (d PriceDetails) Kind() AnomalyType      { return AnomalyPriceSpike }
func (d PriceDetails) ChangePercent() float64 { return d.PriceChangePct }
func (d PriceDetails) Category() string       { return d.ProductCategory }
func (d PriceDetails) Country() string        { return d.OriginCountry }

// TariffDetails describes a tariff_change anomaly.
type TariffDetails struct {
	ProductName     string    `json:"product_name,omitempty"`
	ProductCategory string    `json:"category,omitempty"`
	OriginCountry   string    `json:"country,omitempty"`
	HSCode          string    `json:"hs_code,omitempty"`
	PreviousRate    float64   `json:"previous_rate"`
	CurrentRate     float64   `json:"current_rate"`
	RateChangePct   float64   `json:"percentage_change"`
	EffectiveDate   time.Time `json:"effective_date"`
}

func (d TariffDetails) Kind() AnomalyType      { return AnomalyTariffChange }
func (d TariffDetails) ChangePercent() float64 { return d.RateChangePct }
func (d TariffDetails) Category() string       { return d.ProductCategory }
func (d TariffDetails) Country() string        { return d.OriginCountry }

// FreightDetails describes a freight_surge anomaly (or a drop opportunity).
type FreightDetails struct {
	Route          string  `json:"route"`
	Origin         string  `json:"origin,omitempty"`
	Destination    string  `json:"destination,omitempty"`
	CurrentIndex   float64 `json:"current_index"`
	AverageIndex   float64 `json:"average_index"`
	StdDev         float64 `json:"std_dev"`
	ZScore         float64 `json:"z_score"`
	IndexChangePct float64 `json:"percentage_change"`
	Direction      string  `json:"direction"` // "surge" | "drop"
	Opportunity    bool    `json:"opportunity"`
}

// Freight directions.
const (
	FreightSurge = "surge"
	FreightDrop  = "drop"
)

func (d FreightDetails) Kind() AnomalyType      { return AnomalyFreightSurge }
func (d FreightDetails) ChangePercent() float64 { return d.IndexChangePct }
func (d FreightDetails) Category() string       { return "" }
func (d FreightDetails) Country() string        { return d.Origin }

// FXDetails describes an fx_volatility anomaly.
type FXDetails struct {
	CurrencyPair  string  `json:"currency_pair"`
	Signal        string  `json:"signal"` // "volatility" | "spike" | "threshold_breach"
	CurrentRate   float64 `json:"current_rate"`
	AverageRate   float64 `json:"average_rate"`
	VolatilityPct float64 `json:"volatility"`
	RateChangePct float64 `json:"percentage_change"`
	Threshold     float64 `json:"threshold,omitempty"`
	Direction     string  `json:"direction,omitempty"` // "above" | "below" for threshold breaches
}

// FX signals.
const (
	FXSignalVolatility      = "volatility"
	FXSignalSpike           = "spike"
	FXSignalThresholdBreach = "threshold_breach"
)

func (d FXDetails) Kind() AnomalyType      { return AnomalyFXVolatility }
func (d FXDetails) ChangePercent() float64 { return d.RateChangePct }
func (d FXDetails) Category() string       { return "" }
func (d FXDetails) Country() string        { return "" }

// EncodeDetails serializes a details payload for storage.
func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// DecodeDetails restores the details variant selected by t.
func DecodeDetails(t AnomalyType, raw []byte) (Details, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch t {
	case AnomalyPriceSpike:
		var d PriceDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode price details: %w", err)
		}
		return d, nil
	case AnomalyTariffChange:
		var d TariffDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode tariff details: %w", err)
		}
		return d, nil
	case AnomalyFreightSurge:
		var d FreightDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode freight details: %w", err)
		}
		return d, nil
	case AnomalyFXVolatility:
		var d FXDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode fx details: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown anomaly type %q", t)
	}
}

// UnmarshalJSON decodes an anomaly, restoring the details variant from its type.
func (a *Anomaly) UnmarshalJSON(data []byte) error {
	type plain Anomaly
	var aux struct {
		plain
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Anomaly(aux.plain)
	d, err := DecodeDetails(a.Type, aux.Details)
	if err != nil {
		return err
	}
	a.Details = d
	return nil
}

// UnmarshalJSON decodes a detector result, restoring the details variant from its type.
func (r *AnomalyResult) UnmarshalJSON(data []byte) error {
	type plain AnomalyResult
	var aux struct {
		plain
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = AnomalyResult(aux.plain)
	d, err := DecodeDetails(r.Type, aux.Details)
	if err != nil {
		return err
	}
	r.Details = d
	return nil
}
