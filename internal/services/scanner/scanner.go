// Package scanner runs scan cycles over the universe and picks the best scalping opportunity.
package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/scalpscan/internal/domain"
	"github.com/vadiminshakov/scalpscan/internal/services/scorer"
	"github.com/vadiminshakov/scalpscan/internal/services/universe"
)

var (
	// ErrTickersUnavailable is returned when the batched ticker fetch fails; the cycle yields no result.
	ErrTickersUnavailable = errors.New("tickers unavailable")
	// ErrEmptyUniverse is returned when there is nothing to scan.
	ErrEmptyUniverse = errors.New("universe is empty")
)

const (
	DefaultConcurrency = 4
	DefaultCallTimeout = 10 * time.Second
)

// MarketData market data capability used by a scan cycle.
type MarketData interface {
	FetchTickers(ctx context.Context, pairs []domain.Pair) (map[domain.Pair]domain.Ticker, error)
	FetchCandles(ctx context.Context, pair domain.Pair, tf domain.Timeframe, since time.Time, limit int) ([]domain.Candle, error)
}

// UniverseSource rebuilds the universe.
type UniverseSource interface {
	Refresh(ctx context.Context) (domain.Universe, error)
}

// Options scan cycle tuning.
type Options struct {
	// Concurrency maximum number of symbols evaluated in flight.
	Concurrency int
	// CallTimeout bound for each market data call.
	CallTimeout time.Duration
	Long        domain.Timeframe
	Short       domain.Timeframe
	Now         func() time.Time
}

// DefaultOptions returns the reference cycle settings.
func DefaultOptions() Options {
	return Options{
		Concurrency: DefaultConcurrency,
		CallTimeout: DefaultCallTimeout,
		Long:        domain.LongTimeframe,
		Short:       domain.ShortTimeframe,
		Now:         time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.Long.Candles <= 0 {
		o.Long = d.Long
	}
	if o.Short.Candles <= 0 {
		o.Short = d.Short
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Scanner evaluates every pair of the current universe and returns the best opportunity.
type Scanner struct {
	data     MarketData
	source   UniverseSource
	scorer   *scorer.Scorer
	opts     Options
	l        *zap.Logger
	mu       sync.RWMutex
	universe domain.Universe
	running  atomic.Int32
}

// New creates a Scanner. source may be nil when the universe is set explicitly.
func New(data MarketData, source UniverseSource, sc *scorer.Scorer, opts Options, l *zap.Logger) *Scanner {
	if l == nil {
		l = zap.NewNop()
	}
	if sc == nil {
		sc = scorer.New(scorer.DefaultConfig())
	}
	return &Scanner{
		data:   data,
		source: source,
		scorer: sc,
		opts:   opts.withDefaults(),
		l:      l,
	}
}

// SetUniverse replaces the universe used by subsequent cycles.
func (s *Scanner) SetUniverse(u domain.Universe) {
	s.mu.Lock()
	s.universe = u.Clone()
	s.mu.Unlock()
}

// Universe returns a copy of the current universe.
func (s *Scanner) Universe() domain.Universe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.universe.Clone()
}

// RefreshUniverse rebuilds the universe. On failure the previous universe stays in effect.
func (s *Scanner) RefreshUniverse(ctx context.Context) error {
	if s.source == nil {
		return errors.Wrap(universe.ErrUniverseBuild, "no universe source configured")
	}

	u, err := s.source.Refresh(ctx)
	if err != nil {
		s.l.Warn("universe refresh failed, keeping previous universe",
			zap.Int("pairs", len(s.Universe())), zap.Error(err))
		return err
	}
	if len(u) == 0 {
		s.l.Warn("universe refresh returned no pairs, keeping previous universe")
		return errors.Wrap(universe.ErrUniverseBuild, "no pairs")
	}

	s.SetUniverse(u)
	return nil
}

// Scanning reports whether at least one cycle is in progress.
func (s *Scanner) Scanning() bool {
	return s.running.Load() > 0
}

// RunScan runs one cycle. Result.Best is nil when no pair qualified.
// Per-pair failures are skips; only a failed ticker fetch, an empty universe or cancellation are errors.
func (s *Scanner) RunScan(ctx context.Context) (domain.ScanResult, error) {
	s.running.Add(1)
	defer s.running.Add(-1)

	result := domain.ScanResult{
		ID:        uuid.New().String(),
		StartedAt: s.opts.Now(),
		Skips:     map[domain.SkipReason]int{},
	}
	l := s.l.With(zap.String("scan_id", result.ID))

	u := s.Universe()
	if len(u) == 0 {
		return result, ErrEmptyUniverse
	}

	tickers, err := s.fetchTickers(ctx, u)
	if err != nil {
		if ctx.Err() != nil {
			return result, errors.Wrap(ctx.Err(), "scan canceled")
		}
		l.Error("failed to fetch tickers", zap.Error(err))
		return result, errors.Wrapf(ErrTickersUnavailable, "%v", err)
	}

	var (
		best   scorer.Best
		mu     sync.Mutex
		passed int
	)
	skips := map[domain.SkipReason]int{}
	started := s.opts.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for rank, pair := range u {
		if gctx.Err() != nil {
			break
		}
		ticker, ok := tickers[pair]
		g.Go(func() error {
			out := s.evaluate(gctx, pair, ticker, ok, started)

			mu.Lock()
			if out.skip != "" {
				skips[out.skip]++
			} else {
				passed++
			}
			mu.Unlock()

			if out.skip != "" {
				l.Debug("pair skipped",
					zap.String("pair", pair.String()),
					zap.String("reason", string(out.skip)),
					zap.String("detail", out.detail))
				return nil
			}

			if best.Offer(out.op, rank) {
				l.Debug("new best candidate",
					zap.String("pair", pair.String()),
					zap.Float64("score", out.op.Score))
			}
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		l.Info("scan canceled, discarding partial result")
		return domain.ScanResult{ID: result.ID, StartedAt: result.StartedAt}, errors.Wrap(err, "scan canceled")
	}

	result.Best = best.Get()
	result.Evaluated = len(u)
	result.Passed = passed
	result.Skips = skips
	result.FinishedAt = s.opts.Now()

	fields := []zap.Field{
		zap.Int("evaluated", result.Evaluated),
		zap.Int("passed", result.Passed),
		zap.Int("skipped", result.Skipped()),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)),
	}
	if result.Best != nil {
		fields = append(fields,
			zap.String("pair", result.Best.Pair.String()),
			zap.Float64("score", result.Best.Score),
			zap.String("price", result.Best.Price.String()))
	}
	l.Info("scan finished", fields...)

	return result, nil
}

func (s *Scanner) fetchTickers(ctx context.Context, u domain.Universe) (map[domain.Pair]domain.Ticker, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	return s.data.FetchTickers(callCtx, u)
}
