package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

const (
	bybitStatusTrading = "Trading"
	bybitMaxKlines     = 1000
)

// BybitProvider implements Provider for Bybit spot (V5 API).
type BybitProvider struct {
	client *bybit.Client
}

// NewBybitProvider creates a new Bybit market data provider.
func NewBybitProvider(client *bybit.Client) *BybitProvider {
	return &BybitProvider{client: client}
}

// ListActiveMarkets returns spot pairs quoted in quote.
func (p *BybitProvider) ListActiveMarkets(ctx context.Context, quote string) ([]domain.Market, error) {
	res, err := p.client.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: bybit.CategoryV5Spot,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch instruments from Bybit")
	}
	if res == nil || res.Result.Spot == nil {
		return nil, errors.Wrap(ErrMalformed, "empty instruments result from Bybit")
	}

	var markets []domain.Market
	for _, item := range res.Result.Spot.List {
		if !strings.EqualFold(string(item.QuoteCoin), quote) {
			continue
		}
		markets = append(markets, domain.Market{
			Pair:   domain.NewPair(string(item.BaseCoin), string(item.QuoteCoin)),
			Active: string(item.Status) == bybitStatusTrading,
		})
	}

	return markets, nil
}

// FetchTickers fetches all spot tickers in one request and keeps the requested pairs.
// Bybit reports quote volume as turnover24h.
func (p *BybitProvider) FetchTickers(ctx context.Context, pairs []domain.Pair) (map[domain.Pair]domain.Ticker, error) {
	res, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch tickers from Bybit")
	}
	if res == nil || res.Result.Spot == nil {
		return nil, errors.Wrap(ErrMalformed, "empty tickers result from Bybit")
	}

	bySymbol := make(map[string]domain.Pair, len(pairs))
	for _, pair := range pairs {
		bySymbol[pair.Symbol()] = pair
	}

	tickers := make(map[domain.Pair]domain.Ticker, len(pairs))
	for _, item := range res.Result.Spot.List {
		pair, ok := bySymbol[string(item.Symbol)]
		if !ok {
			continue
		}
		ticker, err := parseTicker(pair, item.LastPrice, item.Turnover24H)
		if err != nil {
			continue
		}
		tickers[pair] = ticker
	}

	return tickers, nil
}

// FetchCandles fetches klines starting at since. Bybit returns the newest kline first.
func (p *BybitProvider) FetchCandles(ctx context.Context, pair domain.Pair, tf domain.Timeframe, since time.Time, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	if limit > bybitMaxKlines {
		limit = bybitMaxKlines
	}

	interval, err := convertIntervalToBybit(tf.Interval)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid interval: %s", tf.Interval)
	}

	start := since.UnixMilli()
	res, err := p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(pair.Symbol()),
		Interval: bybit.Interval(interval),
		Start:    &start,
		Limit:    &limit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s klines from Bybit for %s", tf.Interval, pair.String())
	}
	if res == nil {
		return nil, errors.Wrapf(ErrMalformed, "empty kline result from Bybit for %s", pair.String())
	}

	items := res.Result.List
	candles := make([]domain.Candle, len(items))
	for i, k := range items {
		openTime, err := parseTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "kline %d of %s", i, pair.String())
		}
		candle, err := parseCandle(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "kline %d of %s", i, pair.String())
		}
		candle.OpenTime = openTime
		candle.CloseTime = openTime.Add(tf.Duration)
		candles[len(items)-1-i] = candle
	}

	return candles, nil
}

// convertIntervalToBybit converts "1m", "5m", "1h", "4h", "1d", "1w" to Bybit notation ("1", "5", "60", "240", "D", "W").
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	numberPart := interval[:len(interval)-1]

	var n int64
	for _, r := range numberPart {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid interval number: %s", interval)
		}
		n = n*10 + int64(r-'0')
	}

	switch unit {
	case 'm':
		return numberPart, nil
	case 'h':
		return fmt.Sprintf("%d", n*60), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// parseTimestamp converts a Bybit millisecond timestamp string to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.Wrap(ErrMalformed, "empty timestamp")
	}

	var msec int64
	if _, err := fmt.Sscanf(ts, "%d", &msec); err != nil {
		return time.Time{}, errors.Wrapf(ErrMalformed, "failed to parse timestamp %q", ts)
	}

	return time.UnixMilli(msec), nil
}
