package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/vadiminshakov/scalpscan/internal/domain"
	"github.com/vadiminshakov/scalpscan/pkg/indicators"
)

// outcome result of evaluating one pair: an opportunity or the reason it was skipped.
type outcome struct {
	op     *domain.Opportunity
	skip   domain.SkipReason
	detail string
}

func skipped(reason domain.SkipReason, format string, args ...any) outcome {
	return outcome{skip: reason, detail: fmt.Sprintf(format, args...)}
}

// evaluate never returns an error: every failure of a single pair is a skip.
func (s *Scanner) evaluate(ctx context.Context, pair domain.Pair, ticker domain.Ticker, hasTicker bool, now time.Time) outcome {
	if !hasTicker {
		return skipped(domain.SkipNoTicker, "no ticker")
	}
	if !ticker.HasValidPrice() {
		return skipped(domain.SkipInvalidPrice, "last price %s", ticker.LastPrice)
	}
	if !s.scorer.Liquid(ticker.QuoteVolume) {
		return skipped(domain.SkipLowVolume, "quote volume %s", ticker.QuoteVolume)
	}

	long, out, ok := s.candles(ctx, pair, s.opts.Long, now)
	if !ok {
		return out
	}
	short, out, ok := s.candles(ctx, pair, s.opts.Short, now)
	if !ok {
		return out
	}

	set, err := computeIndicators(ticker, long, short)
	if err != nil {
		return skipped(domain.SkipIndicatorFailed, "%v", err)
	}

	op, reason, detail := s.scorer.Evaluate(ticker, set)
	if op == nil {
		return outcome{skip: reason, detail: detail}
	}
	return outcome{op: op}
}

func (s *Scanner) candles(ctx context.Context, pair domain.Pair, tf domain.Timeframe, now time.Time) ([]domain.Candle, outcome, bool) {
	if ctx.Err() != nil {
		return nil, skipped(domain.SkipCanceled, "%v", ctx.Err()), false
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	candles, err := s.data.FetchCandles(callCtx, pair, tf, tf.Since(now), tf.Candles)
	if err != nil {
		if ctx.Err() != nil {
			return nil, skipped(domain.SkipCanceled, "%v", ctx.Err()), false
		}
		return nil, skipped(domain.SkipFetchFailed, "%s candles: %v", tf, err), false
	}
	if len(candles) < tf.Candles {
		return nil, skipped(domain.SkipInsufficientCandles, "%s: got %d candles, need %d", tf, len(candles), tf.Candles), false
	}

	return candles, outcome{}, true
}

// computeIndicators derives the indicator set. The long reference is the close of the second candle
// of the window, the short reference the close of the previous short candle.
func computeIndicators(ticker domain.Ticker, long, short []domain.Candle) (domain.IndicatorSet, error) {
	price := ticker.LastPrice.InexactFloat64()

	changeLong, err := indicators.PriceChange(price, long[1].Close.InexactFloat64())
	if err != nil {
		return domain.IndicatorSet{}, fmt.Errorf("long price change: %w", err)
	}
	changeShort, err := indicators.PriceChange(price, short[len(short)-2].Close.InexactFloat64())
	if err != nil {
		return domain.IndicatorSet{}, fmt.Errorf("short price change: %w", err)
	}

	closes := domain.Closes(short)
	rsi, err := indicators.RSI(closes, indicators.DefaultRSIPeriod)
	if err != nil {
		return domain.IndicatorSet{}, fmt.Errorf("rsi: %w", err)
	}
	macd, signal, err := indicators.MACD(closes, indicators.DefaultMACDFast, indicators.DefaultMACDSlow, indicators.DefaultMACDSignal)
	if err != nil {
		return domain.IndicatorSet{}, fmt.Errorf("macd: %w", err)
	}

	return domain.IndicatorSet{
		PriceChangeLong:  changeLong,
		PriceChangeShort: changeShort,
		RSI:              rsi,
		MACD:             macd,
		MACDSignal:       signal,
		VolumeSurge:      indicators.VolumeSurge(domain.Volumes(short), indicators.DefaultVolumeSurgeWindow),
		ATR:              indicators.ATR(domain.Highs(short), domain.Lows(short), closes, indicators.DefaultATRPeriod),
	}, nil
}
