package providers

import (
	"context"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

const binanceStatusTrading = "TRADING"

// BinanceProvider implements Provider for Binance spot.
type BinanceProvider struct {
	client *binance.Client
}

// NewBinanceProvider creates a new Binance market data provider.
func NewBinanceProvider(client *binance.Client) *BinanceProvider {
	return &BinanceProvider{client: client}
}

// ListActiveMarkets returns spot pairs quoted in quote.
func (p *BinanceProvider) ListActiveMarkets(ctx context.Context, quote string) ([]domain.Market, error) {
	info, err := p.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch exchange info from Binance")
	}

	quote = strings.ToUpper(quote)
	markets := make([]domain.Market, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if !strings.EqualFold(s.QuoteAsset, quote) {
			continue
		}
		markets = append(markets, domain.Market{
			Pair:   domain.NewPair(s.BaseAsset, s.QuoteAsset),
			Active: s.Status == binanceStatusTrading && s.IsSpotTradingAllowed,
		})
	}

	return markets, nil
}

// FetchTickers fetches 24h statistics in one request and keeps the requested pairs.
func (p *BinanceProvider) FetchTickers(ctx context.Context, pairs []domain.Pair) (map[domain.Pair]domain.Ticker, error) {
	stats, err := p.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch 24h tickers from Binance")
	}

	bySymbol := make(map[string]domain.Pair, len(pairs))
	for _, pair := range pairs {
		bySymbol[pair.Symbol()] = pair
	}

	tickers := make(map[domain.Pair]domain.Ticker, len(pairs))
	for _, s := range stats {
		pair, ok := bySymbol[s.Symbol]
		if !ok {
			continue
		}
		ticker, err := parseTicker(pair, s.LastPrice, s.QuoteVolume)
		if err != nil {
			// one bad row must not hide the rest of the batch
			continue
		}
		tickers[pair] = ticker
	}

	return tickers, nil
}

// FetchCandles fetches klines starting at since.
func (p *BinanceProvider) FetchCandles(ctx context.Context, pair domain.Pair, tf domain.Timeframe, since time.Time, limit int) ([]domain.Candle, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(tf.Interval).
		StartTime(since.UnixMilli()).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s klines from Binance for %s", tf.Interval, pair.String())
	}

	result := make([]domain.Candle, len(klines))
	for i, k := range klines {
		candle, err := parseCandle(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "kline %d of %s", i, pair.String())
		}
		candle.OpenTime = time.UnixMilli(k.OpenTime)
		candle.CloseTime = time.UnixMilli(k.CloseTime)
		result[i] = candle
	}

	return result, nil
}

func parseTicker(pair domain.Pair, lastPrice, quoteVolume string) (domain.Ticker, error) {
	price, err := decimal.NewFromString(lastPrice)
	if err != nil {
		return domain.Ticker{}, errors.Wrapf(ErrMalformed, "last price %q", lastPrice)
	}
	volume := decimal.Zero
	if quoteVolume != "" {
		volume, err = decimal.NewFromString(quoteVolume)
		if err != nil {
			return domain.Ticker{}, errors.Wrapf(ErrMalformed, "quote volume %q", quoteVolume)
		}
	}
	return domain.Ticker{Pair: pair, LastPrice: price, QuoteVolume: volume}, nil
}

func parseCandle(open, high, low, close, volume string) (domain.Candle, error) {
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", open, new(decimal.Decimal)},
		{"high", high, new(decimal.Decimal)},
		{"low", low, new(decimal.Decimal)},
		{"close", close, new(decimal.Decimal)},
		{"volume", volume, new(decimal.Decimal)},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return domain.Candle{}, errors.Wrapf(ErrMalformed, "failed to parse %s %q", f.name, f.raw)
		}
		*f.dst = d
	}

	return domain.Candle{
		Open:   *fields[0].dst,
		High:   *fields[1].dst,
		Low:    *fields[2].dst,
		Close:  *fields[3].dst,
		Volume: *fields[4].dst,
	}, nil
}
