package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/scalpscan/pkg/retrier"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_CLIDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg, opts, err := Load(nil)
	require.NoError(t, err)

	assert.False(t, opts.Setup)
	assert.Equal(t, PlatformBinance, cfg.Platform)
	assert.Equal(t, "USDT", cfg.Quote)
	assert.Equal(t, 50, cfg.UniverseSize)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 300*time.Second, cfg.ScanInterval)
	assert.Equal(t, 10*time.Second, cfg.WarmUp)
	assert.Equal(t, time.Hour, cfg.UniverseRefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, "1h", cfg.LongTimeframe.Interval)
	assert.Equal(t, 3, cfg.LongTimeframe.Candles)
	assert.Equal(t, "5m", cfg.ShortTimeframe.Interval)
	assert.Equal(t, 30, cfg.ShortTimeframe.Candles)
	assert.True(t, cfg.Scorer.MinQuoteVolume.Equal(decimal.NewFromInt(100_000)))
	assert.False(t, cfg.Telegram.Enabled())
	assert.Empty(t, cfg.HTTP.Addr)
	assert.True(t, cfg.Console)
}

func TestLoad_CLIFlags(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")

	cfg, _, err := Load([]string{
		"-platform", "bybit",
		"-quote", "usdc",
		"-universe", "20",
		"-concurrency", "8",
		"-interval", "2m",
		"-http", ":8080",
		"-chats", "1, 2",
		"-console=false",
	})
	require.NoError(t, err)

	assert.Equal(t, PlatformBybit, cfg.Platform)
	assert.Equal(t, "USDC", cfg.Quote)
	assert.Equal(t, 20, cfg.UniverseSize)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.ScanInterval)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.ChatIDs)
	assert.True(t, cfg.Telegram.Enabled())
	assert.False(t, cfg.Console)
}

func TestLoad_HyperliquidDefaultsToUSDC(t *testing.T) {
	cfg, _, err := Load([]string{"-platform", "hyperliquid"})
	require.NoError(t, err)
	assert.Equal(t, PlatformHyperliquid, cfg.Platform)
	assert.Equal(t, "USDC", cfg.Quote)

	_, _, err = Load([]string{"-platform", "hyperliquid", "-quote", "usdt"})
	assert.Error(t, err)
}

func TestLoad_CLIErrors(t *testing.T) {
	_, _, err := Load([]string{"-platform", "kraken"})
	assert.Error(t, err)

	_, _, err = Load([]string{"-chats", "1,abc"})
	assert.Error(t, err)

	_, _, err = Load([]string{"-interval", "2h"})
	assert.Error(t, err, "refresh interval shorter than scan interval")

	_, opts, err := Load([]string{"-setup"})
	require.NoError(t, err)
	assert.True(t, opts.Setup)
}

func TestLoad_Yaml(t *testing.T) {
	path := writeConfig(t, `
platform: bybit
universe_size: "30"
scan_interval: 3m
warm_up: 5s
universe_refresh_interval: 2h
call_timeout: 4s
short_timeframe: 15m
short_candles: "40"
scorer:
  min_quote_volume: "250000"
  max_rsi: 35
  min_long_change: -8
  take_profit: "1.03"
  stop_loss: "0.985"
retry:
  max_retries: 0
  initial_interval: 50ms
  multiplier: 1.5
telegram:
  chat_ids: [600076643]
  webhook_url: https://scan.example.com/telegram
http:
  addr: ":8443"
  tls_domains: [scan.example.com]
console: true
`)

	cfg, opts, err := Load([]string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, path, opts.Path)
	assert.Equal(t, PlatformBybit, cfg.Platform)
	assert.Equal(t, "USDT", cfg.Quote)
	assert.Equal(t, 30, cfg.UniverseSize)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 3*time.Minute, cfg.ScanInterval)
	assert.Equal(t, 5*time.Second, cfg.WarmUp)
	assert.Equal(t, 2*time.Hour, cfg.UniverseRefreshInterval)
	assert.Equal(t, 4*time.Second, cfg.CallTimeout)
	assert.Equal(t, "1h", cfg.LongTimeframe.Interval)
	assert.Equal(t, 15*time.Minute, cfg.ShortTimeframe.Duration)
	assert.Equal(t, RetryConfig{
		MaxRetries:      0,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     retrier.DefaultMaxInterval,
		Multiplier:      1.5,
		Jitter:          retrier.DefaultJitter,
	}, cfg.Retry)
	assert.Len(t, cfg.Retry.Options(), 5)
	assert.Equal(t, 40, cfg.ShortTimeframe.Candles)

	assert.True(t, cfg.Scorer.MinQuoteVolume.Equal(decimal.NewFromInt(250_000)))
	assert.Equal(t, 35.0, cfg.Scorer.MaxRSI)
	assert.Equal(t, -8.0, cfg.Scorer.MinLongChange)
	assert.Equal(t, -1.0, cfg.Scorer.MaxLongChange, "unset thresholds keep defaults")
	assert.True(t, cfg.Scorer.TakeProfit.Equal(decimal.RequireFromString("1.03")))
	assert.True(t, cfg.Scorer.StopLoss.Equal(decimal.RequireFromString("0.985")))

	assert.Equal(t, []int64{600076643}, cfg.Telegram.ChatIDs)
	assert.Equal(t, "/telegram", cfg.Telegram.WebhookPath)
	assert.Equal(t, []string{"scan.example.com"}, cfg.HTTP.TLSDomains)
	assert.True(t, cfg.Console)
}

func TestLoad_YamlErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "platform: [binance"},
		{name: "unknown platform", content: "platform: kraken"},
		{name: "bad integer", content: "platform: binance\nconcurrency: many"},
		{name: "bad decimal", content: "platform: binance\nscorer:\n  take_profit: lots"},
		{name: "bad timeframe", content: "platform: binance\nlong_timeframe: 1y"},
		{name: "too few short candles", content: "platform: binance\nshort_candles: \"10\""},
		{name: "inverted range", content: "platform: binance\nscorer:\n  min_short_change: 2"},
		{name: "webhook without http", content: "platform: binance\ntelegram:\n  webhook_url: https://x.example.com/hook"},
		{name: "stop loss above take profit", content: "platform: binance\nscorer:\n  take_profit: \"0.98\"\n  stop_loss: \"1.01\""},
		{name: "negative retries", content: "platform: binance\nretry:\n  max_retries: -1"},
		{name: "retry max below initial", content: "platform: binance\nretry:\n  initial_interval: 5s\n  max_interval: 1s"},
		{name: "retry jitter above one", content: "platform: binance\nretry:\n  jitter: 1.5"},
		{name: "hyperliquid with usdt quote", content: "platform: hyperliquid\nquote: USDT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load([]string{"-config", writeConfig(t, tt.content)})
			assert.Error(t, err)
		})
	}

	_, _, err := Load([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
