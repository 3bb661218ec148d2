package domain

// Product is a traded product tracked for price and tariff anomalies.
// Corresponds to products table in PostgreSQL.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	HSCode   string `json:"hs_code"`
	Category string `json:"category"`
	Country  string `json:"country"` // origin country
}

// FreightRoute is a shipping lane tracked for freight index anomalies.
type FreightRoute struct {
	Route       string `json:"route"` // e.g. "CN-MY"
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// CurrencyPair is an FX pair tracked for volatility anomalies.
type CurrencyPair struct {
	Pair  string `json:"pair"` // e.g. "USD/MYR"
	Base  string `json:"base"`
	Quote string `json:"quote"`
}
