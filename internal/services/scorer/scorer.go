// Package scorer filters per-pair indicator sets and scores the survivors.
package scorer

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid scorer config")

// Config filter thresholds, score weights and exit bands.
// The defaults are untuned heuristics; they are exposed so they can be overridden, not tuned here.
type Config struct {
	MinQuoteVolume decimal.Decimal

	MinLongChange  float64
	MaxLongChange  float64
	MinShortChange float64
	MaxShortChange float64
	MaxRSI         float64
	MinVolumeSurge float64

	LongChangeWeight  float64
	ShortChangeWeight float64
	RSIWeight         float64
	MACDWeight        float64
	MACDScale         float64
	VolumeSurgeWeight float64

	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

// DefaultConfig returns the reference thresholds and weights.
func DefaultConfig() Config {
	return Config{
		MinQuoteVolume: decimal.NewFromInt(100_000),

		MinLongChange:  -5,
		MaxLongChange:  -1,
		MinShortChange: 0.2,
		MaxShortChange: 1,
		MaxRSI:         30,
		MinVolumeSurge: 1.5,

		LongChangeWeight:  0.3,
		ShortChangeWeight: 0.2,
		RSIWeight:         0.2,
		MACDWeight:        0.2,
		MACDScale:         100,
		VolumeSurgeWeight: 0.1,

		TakeProfit: decimal.RequireFromString("1.02"),
		StopLoss:   decimal.RequireFromString("0.99"),
	}
}

// Validate checks that ranges are ordered and the stop-loss band sits below take-profit.
func (c Config) Validate() error {
	if c.MinLongChange > c.MaxLongChange {
		return errors.Wrapf(ErrInvalidConfig, "long change range [%v, %v] is inverted", c.MinLongChange, c.MaxLongChange)
	}
	if c.MinShortChange > c.MaxShortChange {
		return errors.Wrapf(ErrInvalidConfig, "short change range [%v, %v] is inverted", c.MinShortChange, c.MaxShortChange)
	}
	if !c.TakeProfit.IsPositive() || !c.StopLoss.IsPositive() {
		return errors.Wrap(ErrInvalidConfig, "take profit and stop loss multipliers must be positive")
	}
	if c.StopLoss.GreaterThanOrEqual(c.TakeProfit) {
		return errors.Wrapf(ErrInvalidConfig, "stop loss %s must be below take profit %s", c.StopLoss, c.TakeProfit)
	}
	if c.MinQuoteVolume.IsNegative() {
		return errors.Wrap(ErrInvalidConfig, "min quote volume must not be negative")
	}
	return nil
}

// Scorer applies the conjunctive filter and the weighted score.
type Scorer struct {
	cfg Config
}

// New creates a Scorer.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Liquid reports whether the 24h quote volume meets the liquidity floor.
func (s *Scorer) Liquid(quoteVolume decimal.Decimal) bool {
	return quoteVolume.GreaterThanOrEqual(s.cfg.MinQuoteVolume)
}

// Passes reports whether every filter predicate holds; reason names the first failing one.
func (s *Scorer) Passes(set domain.IndicatorSet) (ok bool, reason string) {
	c := s.cfg
	switch {
	case math.IsNaN(set.PriceChangeLong) || set.PriceChangeLong < c.MinLongChange || set.PriceChangeLong > c.MaxLongChange:
		return false, fmt.Sprintf("long change %.2f%% outside [%v, %v]", set.PriceChangeLong, c.MinLongChange, c.MaxLongChange)
	case math.IsNaN(set.PriceChangeShort) || set.PriceChangeShort < c.MinShortChange || set.PriceChangeShort > c.MaxShortChange:
		return false, fmt.Sprintf("short change %.2f%% outside [%v, %v]", set.PriceChangeShort, c.MinShortChange, c.MaxShortChange)
	case !(set.RSI < c.MaxRSI):
		return false, fmt.Sprintf("rsi %.2f not below %v", set.RSI, c.MaxRSI)
	case !(set.MACD > set.MACDSignal):
		return false, fmt.Sprintf("macd %.6f not above signal %.6f", set.MACD, set.MACDSignal)
	case !(set.VolumeSurge > c.MinVolumeSurge):
		return false, fmt.Sprintf("volume surge %.2f not above %v", set.VolumeSurge, c.MinVolumeSurge)
	}
	return true, ""
}

// Score returns the weighted score of a filter-passing set.
func (s *Scorer) Score(set domain.IndicatorSet) float64 {
	c := s.cfg
	return math.Abs(set.PriceChangeLong)*c.LongChangeWeight +
		set.PriceChangeShort*c.ShortChangeWeight +
		(c.MaxRSI-set.RSI)*c.RSIWeight +
		(set.MACD-set.MACDSignal)*c.MACDScale*c.MACDWeight +
		set.VolumeSurge*c.VolumeSurgeWeight
}

// Evaluate turns a ticker and its indicators into an opportunity, or returns the skip reason.
func (s *Scorer) Evaluate(ticker domain.Ticker, set domain.IndicatorSet) (*domain.Opportunity, domain.SkipReason, string) {
	if !s.Liquid(ticker.QuoteVolume) {
		return nil, domain.SkipLowVolume, fmt.Sprintf("quote volume %s below %s", ticker.QuoteVolume, s.cfg.MinQuoteVolume)
	}
	if ok, reason := s.Passes(set); !ok {
		return nil, domain.SkipFiltered, reason
	}

	score := s.Score(set)
	if !(score > 0) {
		return nil, domain.SkipNonPositiveScore, fmt.Sprintf("score %.4f", score)
	}

	return &domain.Opportunity{
		Pair:        ticker.Pair,
		Price:       ticker.LastPrice,
		TakeProfit:  ticker.LastPrice.Mul(s.cfg.TakeProfit),
		StopLoss:    ticker.LastPrice.Mul(s.cfg.StopLoss),
		QuoteVolume: ticker.QuoteVolume,
		Indicators:  set,
		Score:       score,
	}, "", ""
}
