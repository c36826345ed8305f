package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle single OHLCV bucket.
type Candle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// Closes extracts closing prices, oldest first.
func Closes(candles []Candle) []float64 {
	return extract(candles, func(c Candle) decimal.Decimal { return c.Close })
}

// Volumes extracts traded volumes, oldest first.
func Volumes(candles []Candle) []float64 {
	return extract(candles, func(c Candle) decimal.Decimal { return c.Volume })
}

// Highs extracts high prices, oldest first.
func Highs(candles []Candle) []float64 {
	return extract(candles, func(c Candle) decimal.Decimal { return c.High })
}

// Lows extracts low prices, oldest first.
func Lows(candles []Candle) []float64 {
	return extract(candles, func(c Candle) decimal.Decimal { return c.Low })
}

func extract(candles []Candle, field func(Candle) decimal.Decimal) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = field(c).InexactFloat64()
	}
	return out
}
