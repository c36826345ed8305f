package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/scalpscan/config"
	"github.com/vadiminshakov/scalpscan/internal/domain"
	"github.com/vadiminshakov/scalpscan/internal/notify"
	"github.com/vadiminshakov/scalpscan/internal/services/market/providers"
	"github.com/vadiminshakov/scalpscan/internal/services/scanner"
	"github.com/vadiminshakov/scalpscan/internal/services/scorer"
	"github.com/vadiminshakov/scalpscan/internal/services/universe"
)

// ScanBot schedules scan cycles over one exchange and hands results to a notifier.
type ScanBot struct {
	Config  config.Config
	scanner *scanner.Scanner
	l       *zap.Logger
}

// NewScanBot creates a scan bot for the exchange client.
func NewScanBot(conf config.Config, client any, l *zap.Logger) (*ScanBot, error) {
	provider, err := newServiceProvider(client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create market data provider")
	}
	return newScanBot(conf, provider, l), nil
}

func newScanBot(conf config.Config, provider providers.Provider, l *zap.Logger) *ScanBot {
	if l == nil {
		l = zap.NewNop()
	}
	l = l.With(zap.String("platform", conf.Platform), zap.String("quote", conf.Quote))

	guarded := providers.NewGuarded(provider, conf.CallTimeout, l, conf.Retry.Options()...)
	builder := universe.NewBuilder(guarded, conf.Quote, conf.UniverseSize, l)
	sc := scanner.New(guarded, builder, scorer.New(conf.Scorer), scanner.Options{
		Concurrency: conf.Concurrency,
		CallTimeout: conf.CallTimeout,
		Long:        conf.LongTimeframe,
		Short:       conf.ShortTimeframe,
	}, l)

	return &ScanBot{Config: conf, scanner: sc, l: l}
}

// ScanNow runs an on-demand scan, building the universe first if there is none yet.
// It may run concurrently with a scheduled scan.
func (b *ScanBot) ScanNow(ctx context.Context) (domain.ScanResult, error) {
	if len(b.scanner.Universe()) == 0 {
		if err := b.scanner.RefreshUniverse(ctx); err != nil {
			return domain.ScanResult{}, errors.Wrap(err, "failed to build universe")
		}
	}
	return b.scanner.RunScan(ctx)
}

// Scanning reports whether a scan is in progress.
func (b *ScanBot) Scanning() bool {
	return b.scanner.Scanning()
}

// Universe returns the pairs currently scanned.
func (b *ScanBot) Universe() domain.Universe {
	return b.scanner.Universe()
}

// Run builds the universe, scans after the warm-up delay and then every scan interval,
// refreshing the universe on its own interval. Failed cycles are logged and the loop continues.
func (b *ScanBot) Run(ctx context.Context, n notify.Notifier) error {
	if err := b.scanner.RefreshUniverse(ctx); err != nil {
		b.l.Warn("initial universe build failed, retrying before the first scan", zap.Error(err))
	}

	warmUp := time.NewTimer(b.Config.WarmUp)
	defer warmUp.Stop()

	refresh := time.NewTicker(b.Config.UniverseRefreshInterval)
	defer refresh.Stop()

	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	b.l.Info("starting scan loop",
		zap.Duration("warm_up", b.Config.WarmUp),
		zap.Duration("scan_interval", b.Config.ScanInterval),
		zap.Duration("universe_refresh_interval", b.Config.UniverseRefreshInterval))

	for {
		select {
		case <-ctx.Done():
			b.l.Info("context done, stopping scan loop")
			return ctx.Err()
		case <-refresh.C:
			if err := b.scanner.RefreshUniverse(ctx); err != nil {
				b.l.Warn("scheduled universe refresh failed", zap.Error(err))
			}
		case <-warmUp.C:
			ticker = time.NewTicker(b.Config.ScanInterval)
			tick = ticker.C
			b.scheduledScan(ctx, n)
		case <-tick:
			b.scheduledScan(ctx, n)
		}
	}
}

func (b *ScanBot) scheduledScan(ctx context.Context, n notify.Notifier) {
	res, err := b.ScanNow(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, scanner.ErrTickersUnavailable) {
			b.l.Warn("scan skipped, tickers unavailable", zap.Error(err))
			return
		}
		b.l.Error("scan failed", zap.Error(err))
		return
	}

	if n == nil {
		return
	}
	if err := n.Notify(ctx, res); err != nil {
		b.l.Error("failed to deliver scan result", zap.String("scan_id", res.ID), zap.Error(err))
	}
}
