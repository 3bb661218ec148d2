package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_RankAndMax(t *testing.T) {
	for i, s := range AllSeverities {
		assert.Equal(t, i+1, s.Rank(), s)
		assert.True(t, s.IsValid())
	}
	assert.Equal(t, 0, Severity("extreme").Rank())
	assert.False(t, Severity("").IsValid())

	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityLow, SeverityHigh))
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityCritical, SeverityMedium))
	assert.Equal(t, SeverityLow, MaxSeverity(SeverityLow, "bogus"))
}

func TestAlertStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to AlertStatus
		want     bool
	}{
		{AlertStatusNew, AlertStatusViewed, true},
		{AlertStatusNew, AlertStatusResolved, true},
		{AlertStatusViewed, AlertStatusResolved, true},
		{AlertStatusViewed, AlertStatusViewed, true},
		{AlertStatusViewed, AlertStatusNew, false},
		{AlertStatusResolved, AlertStatusViewed, false},
		{AlertStatusResolved, AlertStatusNew, false},
		{AlertStatusNew, "archived", false},
		{"archived", AlertStatusResolved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAnomalyType_IsValid(t *testing.T) {
	for _, at := range AllAnomalyTypes {
		assert.True(t, at.IsValid(), at)
	}
	assert.False(t, AnomalyType("volume_drop").IsValid())
}

func TestAnomaly_SameScope(t *testing.T) {
	p1, p1b, p2 := "P1", "P1", "P2"
	withProduct := &Anomaly{Type: AnomalyPriceSpike, ProductID: &p1}
	noProduct := &Anomaly{Type: AnomalyFXVolatility}

	assert.True(t, withProduct.SameScope(AnomalyPriceSpike, &p1b))
	assert.False(t, withProduct.SameScope(AnomalyPriceSpike, &p2))
	assert.False(t, withProduct.SameScope(AnomalyTariffChange, &p1))
	assert.False(t, withProduct.SameScope(AnomalyPriceSpike, nil))

	assert.True(t, noProduct.SameScope(AnomalyFXVolatility, nil))
	assert.False(t, noProduct.SameScope(AnomalyFXVolatility, &p1))
}

func TestAnomaly_SharesProduct(t *testing.T) {
	p1, p1b, p2 := "P1", "P1", "P2"
	a := &Anomaly{ProductID: &p1}

	assert.True(t, a.SharesProduct(&Anomaly{ProductID: &p1b}))
	assert.False(t, a.SharesProduct(&Anomaly{ProductID: &p2}))
	assert.False(t, a.SharesProduct(&Anomaly{}))
	assert.False(t, (&Anomaly{}).SharesProduct(&Anomaly{}))
}

func TestAnomaly_JSONRestoresDetailsVariant(t *testing.T) {
	p := "P1"
	detected := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		anomaly Anomaly
	}{
		{"price", Anomaly{ID: "a1", Type: AnomalyPriceSpike, ProductID: &p, Severity: SeverityHigh, DetectedAt: detected,
			Details: PriceDetails{ProductCategory: "steel", Method: PriceMethodZScore, CurrentPrice: 250, ZScore: 3.1, PriceChangePct: 150}}},
		{"tariff", Anomaly{ID: "a2", Type: AnomalyTariffChange, ProductID: &p, Severity: SeverityMedium, DetectedAt: detected,
			Details: TariffDetails{OriginCountry: "CN", PreviousRate: 10, CurrentRate: 12, RateChangePct: 20, EffectiveDate: detected}}},
		{"freight", Anomaly{ID: "a3", Type: AnomalyFreightSurge, Severity: SeverityLow, DetectedAt: detected,
			Details: FreightDetails{Route: "CN-MY", Origin: "CN", Direction: FreightDrop, Opportunity: true, IndexChangePct: -30}}},
		{"fx", Anomaly{ID: "a4", Type: AnomalyFXVolatility, Severity: SeverityCritical, DetectedAt: detected,
			Details: FXDetails{CurrencyPair: "USD/MYR", Signal: FXSignalSpike, RateChangePct: 6}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.anomaly)
			require.NoError(t, err)

			var got Anomaly
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, tt.anomaly, got)
			assert.Equal(t, tt.anomaly.Type, got.Details.Kind())
		})
	}
}

func TestAnomalyResult_JSONRestoresDetailsVariant(t *testing.T) {
	p := "P1"
	in := AnomalyResult{
		Type:       AnomalyPriceSpike,
		EntityID:   "P1",
		ProductID:  &p,
		Score:      3.2,
		Severity:   SeverityHigh,
		DetectedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Details:    PriceDetails{Method: PriceMethodMovingAverage, ShortWindow: 7, LongWindow: 30},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var got AnomalyResult
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, in, got)
}

func TestDecodeDetails_Errors(t *testing.T) {
	_, err := DecodeDetails("volume_drop", []byte(`{}`))
	assert.Error(t, err)

	_, err = DecodeDetails(AnomalyPriceSpike, []byte(`{"current_price":"high"}`))
	assert.Error(t, err)

	d, err := DecodeDetails(AnomalyFXVolatility, nil)
	require.NoError(t, err)
	assert.Equal(t, FXDetails{}, d)
}

func TestDetails_Accessors(t *testing.T) {
	assert.Equal(t, "CN", FreightDetails{Origin: "CN"}.Country())
	assert.Empty(t, FreightDetails{Origin: "CN"}.Category())
	assert.Equal(t, "steel", PriceDetails{ProductCategory: "steel"}.Category())
	assert.Equal(t, -4.0, FXDetails{RateChangePct: -4}.ChangePercent())
}

func TestEncodeDetails_Nil(t *testing.T) {
	raw, err := EncodeDetails(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestValues(t *testing.T) {
	pts := []SeriesPoint{{Value: 1}, {Value: 2.5}}
	assert.Equal(t, []float64{1, 2.5}, Values(pts))
	assert.Empty(t, Values(nil))
	assert.True(t, SeriesFX.IsValid())
	assert.False(t, SeriesKind("volume").IsValid())
}
