package domain

import "github.com/shopspring/decimal"

// Ticker per-pair snapshot valid for the scan cycle that fetched it.
type Ticker struct {
	Pair Pair
	// LastPrice last traded price in quote currency.
	LastPrice decimal.Decimal
	// QuoteVolume rolling 24h volume in quote currency.
	QuoteVolume decimal.Decimal
}

// HasValidPrice reports whether the last price is usable.
func (t Ticker) HasValidPrice() bool {
	return t.LastPrice.IsPositive()
}
