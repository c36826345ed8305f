//go:build integration

package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/scalpscan/internal/clients"
	"github.com/vadiminshakov/scalpscan/internal/domain"
)

// TestProviders_Integration calls the public market data endpoints of the real exchanges.
// To run this test, use: go test -tags=integration -v ./...
func TestProviders_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for name, p := range map[string]Provider{
		"binance": NewBinanceProvider(clients.NewBinanceClient("", "")),
		"bybit":   NewBybitProvider(clients.NewBybitClient("", "")),
	} {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			btc := domain.Pair{Base: "BTC", Quote: "USDT"}

			markets, err := p.ListActiveMarkets(ctx, "USDT")
			require.NoError(t, err)
			require.NotEmpty(t, markets)
			assert.Contains(t, markets, domain.Market{Pair: btc, Active: true})

			tickers, err := p.FetchTickers(ctx, []domain.Pair{btc})
			require.NoError(t, err)
			require.Contains(t, tickers, btc)
			assert.True(t, tickers[btc].HasValidPrice())
			assert.True(t, tickers[btc].QuoteVolume.IsPositive())

			now := time.Now()
			for _, tf := range []domain.Timeframe{domain.LongTimeframe, domain.ShortTimeframe} {
				candles, err := p.FetchCandles(ctx, btc, tf, tf.Since(now), tf.Candles)
				require.NoError(t, err)
				require.NotEmpty(t, candles, tf.Interval)
				assert.LessOrEqual(t, len(candles), tf.Candles)
				for i := 1; i < len(candles); i++ {
					assert.True(t, candles[i].OpenTime.After(candles[i-1].OpenTime), "candles must be oldest first")
				}
				t.Logf("%s %s: %d candles, last close %s", btc, tf.Interval, len(candles), candles[len(candles)-1].Close)
			}
		})
	}
}
