// Package providers adapts exchange SDKs to the market data capability the scanner consumes:
// active market listing, batched 24h tickers and OHLCV candles.
package providers

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/scalpscan/internal/domain"
	"github.com/vadiminshakov/scalpscan/pkg/retrier"
)

// ErrMalformed is returned when the exchange payload cannot be parsed.
var ErrMalformed = errors.New("malformed provider data")

const defaultCallTimeout = 10 * time.Second

// Provider market data capability of a single exchange.
type Provider interface {
	// ListActiveMarkets returns the pairs quoted in quote, with their tradable flag.
	ListActiveMarkets(ctx context.Context, quote string) ([]domain.Market, error)
	// FetchTickers returns 24h ticker snapshots for the requested pairs; pairs unknown to the exchange are absent.
	FetchTickers(ctx context.Context, pairs []domain.Pair) (map[domain.Pair]domain.Ticker, error)
	// FetchCandles returns up to limit candles starting at since, oldest first.
	FetchCandles(ctx context.Context, pair domain.Pair, tf domain.Timeframe, since time.Time, limit int) ([]domain.Candle, error)
}

// Guarded bounds every call of the wrapped provider with a timeout and retries transient failures.
type Guarded struct {
	next    Provider
	timeout time.Duration
	retrier *retrier.Retrier
}

// NewGuarded wraps next. A zero timeout falls back to 10s.
func NewGuarded(next Provider, timeout time.Duration, logger *zap.Logger, opts ...retrier.Option) *Guarded {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts = append([]retrier.Option{
		retrier.WithOnRetry(func(attempt int, err error) {
			logger.Debug("retrying provider call", zap.Int("attempt", attempt), zap.Error(err))
		}),
	}, opts...)

	return &Guarded{next: next, timeout: timeout, retrier: retrier.New(opts...)}
}

// ListActiveMarkets implements Provider.
func (g *Guarded) ListActiveMarkets(ctx context.Context, quote string) ([]domain.Market, error) {
	return guard(g, ctx, func(ctx context.Context) ([]domain.Market, error) {
		return g.next.ListActiveMarkets(ctx, quote)
	})
}

// FetchTickers implements Provider.
func (g *Guarded) FetchTickers(ctx context.Context, pairs []domain.Pair) (map[domain.Pair]domain.Ticker, error) {
	return guard(g, ctx, func(ctx context.Context) (map[domain.Pair]domain.Ticker, error) {
		return g.next.FetchTickers(ctx, pairs)
	})
}

// FetchCandles implements Provider.
func (g *Guarded) FetchCandles(ctx context.Context, pair domain.Pair, tf domain.Timeframe, since time.Time, limit int) ([]domain.Candle, error) {
	return guard(g, ctx, func(ctx context.Context) ([]domain.Candle, error) {
		return g.next.FetchCandles(ctx, pair, tf, since, limit)
	})
}

func guard[T any](g *Guarded, ctx context.Context, call func(ctx context.Context) (T, error)) (T, error) {
	return retrier.DoWithData(g.retrier, ctx, func(ctx context.Context) (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		v, err := withContext(callCtx, call)
		if errors.Is(err, ErrMalformed) {
			return v, retrier.Permanent(err)
		}
		return v, err
	})
}

// withContext returns as soon as ctx is done even if call ignores it.
func withContext[T any](ctx context.Context, call func(ctx context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}

	done := make(chan result, 1)
	go func() {
		v, err := call(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.v, r.err
	}
}
