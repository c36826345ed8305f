// Package universe selects and ranks the pairs a scan cycle considers.
package universe

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

const DefaultSize = 50

// ErrUniverseBuild is returned when the market listing cannot be obtained.
var ErrUniverseBuild = errors.New("universe build failed")

type marketLister interface {
	ListActiveMarkets(ctx context.Context, quote string) ([]domain.Market, error)
	FetchTickers(ctx context.Context, pairs []domain.Pair) (map[domain.Pair]domain.Ticker, error)
}

// Build filters markets to active pairs quoted in quote, ranks them by 24h quote volume
// (pairs without a ticker rank as zero volume) and keeps the top size.
// Equal volumes keep listing order. A nil tickers map yields the unranked filtered set.
func Build(markets []domain.Market, tickers map[domain.Pair]domain.Ticker, quote string, size int) domain.Universe {
	seen := make(map[domain.Pair]struct{}, len(markets))
	candidates := make(domain.Universe, 0, len(markets))
	for _, m := range markets {
		if !m.Active || !strings.EqualFold(m.Pair.Quote, quote) {
			continue
		}
		if _, dup := seen[m.Pair]; dup {
			continue
		}
		seen[m.Pair] = struct{}{}
		candidates = append(candidates, m.Pair)
	}

	if tickers != nil {
		sort.SliceStable(candidates, func(i, j int) bool {
			vi := tickers[candidates[i]].QuoteVolume
			vj := tickers[candidates[j]].QuoteVolume
			return vi.GreaterThan(vj)
		})
	}

	if size > 0 && len(candidates) > size {
		candidates = candidates[:size]
	}

	return candidates
}

// Builder builds universes from a live provider.
type Builder struct {
	provider marketLister
	quote    string
	size     int
	l        *zap.Logger
}

// NewBuilder creates a builder for pairs quoted in quote. A non-positive size falls back to 50.
func NewBuilder(provider marketLister, quote string, size int, l *zap.Logger) *Builder {
	if size <= 0 {
		size = DefaultSize
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Builder{provider: provider, quote: strings.ToUpper(quote), size: size, l: l}
}

// Refresh lists markets and ranks them by volume.
// A failed listing returns ErrUniverseBuild; a failed ticker fetch degrades to the unranked set.
func (b *Builder) Refresh(ctx context.Context) (domain.Universe, error) {
	markets, err := b.provider.ListActiveMarkets(ctx, b.quote)
	if err != nil {
		return nil, errors.Wrapf(ErrUniverseBuild, "list %s markets: %v", b.quote, err)
	}

	active := make([]domain.Pair, 0, len(markets))
	for _, m := range markets {
		if m.Active {
			active = append(active, m.Pair)
		}
	}

	tickers, err := b.provider.FetchTickers(ctx, active)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "universe refresh canceled")
		}
		b.l.Warn("failed to fetch tickers for volume ranking, using unranked universe", zap.Error(err))
		tickers = nil
	}

	u := Build(markets, tickers, b.quote, b.size)
	b.l.Info("universe built",
		zap.Int("pairs", len(u)),
		zap.Int("listed", len(markets)),
		zap.Bool("ranked", tickers != nil))

	return u, nil
}
