package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IndicatorSet derived per-pair values for one scan cycle.
type IndicatorSet struct {
	// PriceChangeLong percent change against the long timeframe reference close.
	PriceChangeLong float64 `json:"price_change_long"`
	// PriceChangeShort percent change against the previous short timeframe close.
	PriceChangeShort float64 `json:"price_change_short"`
	RSI              float64 `json:"rsi"`
	MACD             float64 `json:"macd"`
	MACDSignal       float64 `json:"macd_signal"`
	// VolumeSurge current short volume relative to the trailing mean.
	VolumeSurge float64 `json:"volume_surge"`
	// ATR short timeframe average true range, informational only.
	ATR float64 `json:"atr"`
}

// Opportunity scored, filter-passing trade candidate.
type Opportunity struct {
	Pair        Pair            `json:"pair"`
	Price       decimal.Decimal `json:"price"`
	TakeProfit  decimal.Decimal `json:"take_profit"`
	StopLoss    decimal.Decimal `json:"stop_loss"`
	QuoteVolume decimal.Decimal `json:"quote_volume"`
	Indicators  IndicatorSet    `json:"indicators"`
	Score       float64         `json:"score"`
}

// SkipReason explains why a pair produced no candidate in a cycle.
type SkipReason string

const (
	SkipNoTicker            SkipReason = "no_ticker"
	SkipInvalidPrice        SkipReason = "invalid_price"
	SkipLowVolume           SkipReason = "low_volume"
	SkipFetchFailed         SkipReason = "fetch_failed"
	SkipInsufficientCandles SkipReason = "insufficient_candles"
	SkipIndicatorFailed     SkipReason = "indicator_failed"
	SkipFiltered            SkipReason = "filtered"
	SkipNonPositiveScore    SkipReason = "non_positive_score"
	SkipCanceled            SkipReason = "canceled"
)

// ScanResult outcome of one scan cycle: the best opportunity or none.
type ScanResult struct {
	ID         string             `json:"id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Best       *Opportunity       `json:"best,omitempty"`
	Evaluated  int                `json:"evaluated"`
	Passed     int                `json:"passed"`
	Skips      map[SkipReason]int `json:"skips,omitempty"`
}

// Found reports whether the cycle produced a recommendation.
func (r ScanResult) Found() bool {
	return r.Best != nil
}

// Skipped returns the total number of skipped pairs.
func (r ScanResult) Skipped() int {
	n := 0
	for _, c := range r.Skips {
		n += c
	}
	return n
}
