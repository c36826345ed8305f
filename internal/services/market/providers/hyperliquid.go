package providers

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

// HyperliquidQuote settlement asset of every Hyperliquid perp market.
const HyperliquidQuote = "USDC"

type hyperliquidInfo interface {
	AllMids(ctx context.Context) (map[string]string, error)
	CandlesSnapshot(ctx context.Context, coin, interval string, startTime, endTime int64) ([]hyperliquid.Candle, error)
}

// assetStat listed coin with its rolling 24h notional volume.
type assetStat struct {
	Coin      string
	DayNtlVlm string
}

// HyperliquidProvider implements Provider for Hyperliquid perps, which are all quoted in USDC.
// Coins are addressed by base name only, keeping the exchange's casing (e.g. kPEPE).
type HyperliquidProvider struct {
	info   hyperliquidInfo
	assets func(ctx context.Context) ([]assetStat, error)
	now    func() time.Time
}

// NewHyperliquidProvider creates a new Hyperliquid market data provider over the public Info API.
func NewHyperliquidProvider(info *hyperliquid.Info) *HyperliquidProvider {
	return &HyperliquidProvider{
		info: info,
		assets: func(ctx context.Context) ([]assetStat, error) {
			return hyperliquidAssets(ctx, info)
		},
		now: time.Now,
	}
}

func hyperliquidAssets(ctx context.Context, info *hyperliquid.Info) ([]assetStat, error) {
	res, err := info.MetaAndAssetCtxs(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Meta.Universe) != len(res.Ctxs) {
		return nil, errors.Wrap(ErrMalformed, "meta and asset contexts from Hyperliquid do not line up")
	}

	stats := make([]assetStat, len(res.Ctxs))
	for i, c := range res.Ctxs {
		stats[i] = assetStat{Coin: res.Meta.Universe[i].Name, DayNtlVlm: c.DayNtlVlm}
	}
	return stats, nil
}

// ListActiveMarkets returns every listed perp as a pair quoted in USDC.
// Any other quote yields no markets.
func (p *HyperliquidProvider) ListActiveMarkets(ctx context.Context, quote string) ([]domain.Market, error) {
	if !strings.EqualFold(quote, HyperliquidQuote) {
		return nil, nil
	}

	assets, err := p.assets(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch asset metadata from Hyperliquid")
	}

	markets := make([]domain.Market, 0, len(assets))
	for _, a := range assets {
		if a.Coin == "" {
			continue
		}
		markets = append(markets, domain.Market{
			Pair:   domain.Pair{Base: a.Coin, Quote: HyperliquidQuote},
			Active: true,
		})
	}

	return markets, nil
}

// FetchTickers joins mid prices with 24h notional volume, which Hyperliquid reports in USDC.
func (p *HyperliquidProvider) FetchTickers(ctx context.Context, pairs []domain.Pair) (map[domain.Pair]domain.Ticker, error) {
	mids, err := p.info.AllMids(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch mid prices from Hyperliquid")
	}
	assets, err := p.assets(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch asset contexts from Hyperliquid")
	}

	volumes := make(map[string]string, len(assets))
	for _, a := range assets {
		volumes[a.Coin] = a.DayNtlVlm
	}

	tickers := make(map[domain.Pair]domain.Ticker, len(pairs))
	for _, pair := range pairs {
		if !strings.EqualFold(pair.Quote, HyperliquidQuote) {
			continue
		}
		mid, ok := mids[pair.Base]
		if !ok || mid == "" {
			continue
		}
		ticker, err := parseTicker(pair, mid, volumes[pair.Base])
		if err != nil {
			continue
		}
		tickers[pair] = ticker
	}

	return tickers, nil
}

// FetchCandles fetches candles from since up to now and keeps the last limit.
func (p *HyperliquidProvider) FetchCandles(ctx context.Context, pair domain.Pair, tf domain.Timeframe, since time.Time, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	items, err := p.info.CandlesSnapshot(ctx, pair.Base, tf.Interval, since.UnixMilli(), p.now().UnixMilli())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s candles from Hyperliquid for %s", tf.Interval, pair.String())
	}
	if len(items) > limit {
		items = items[len(items)-limit:]
	}

	candles := make([]domain.Candle, 0, len(items))
	for i, c := range items {
		candle, err := parseCandle(c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "candle %d of %s", i, pair.String())
		}
		candle.OpenTime = time.UnixMilli(c.TimeOpen)
		candle.CloseTime = time.UnixMilli(c.TimeClose)
		candles = append(candles, candle)
	}

	return candles, nil
}
