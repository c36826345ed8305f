// Package config loads scanner settings from a YAML file or command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/scalpscan/internal/domain"
	"github.com/vadiminshakov/scalpscan/internal/services/scorer"
	"github.com/vadiminshakov/scalpscan/pkg/retrier"
)

const (
	PlatformBinance     = "binance"
	PlatformBybit       = "bybit"
	PlatformHyperliquid = "hyperliquid"

	defaultQuote                   = "USDT"
	hyperliquidQuote               = "USDC"
	defaultUniverseSize            = 50
	defaultConcurrency             = 4
	defaultScanInterval            = 300 * time.Second
	defaultWarmUp                  = 10 * time.Second
	defaultUniverseRefreshInterval = time.Hour
	defaultCallTimeout             = 10 * time.Second
)

// Config validated scanner configuration.
type Config struct {
	Platform     string
	Quote        string
	UniverseSize int
	Concurrency  int

	ScanInterval            time.Duration
	WarmUp                  time.Duration
	UniverseRefreshInterval time.Duration
	CallTimeout             time.Duration

	LongTimeframe  domain.Timeframe
	ShortTimeframe domain.Timeframe

	Scorer scorer.Config
	Retry  RetryConfig

	Telegram TelegramConfig
	HTTP     HTTPConfig
	Console  bool
}

// RetryConfig backoff of retried market data calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
}

// Options converts the settings into retrier options.
func (r RetryConfig) Options() []retrier.Option {
	return []retrier.Option{
		retrier.WithMaxRetries(r.MaxRetries),
		retrier.WithInitialInterval(r.InitialInterval),
		retrier.WithMaxInterval(r.MaxInterval),
		retrier.WithMultiplier(r.Multiplier),
		retrier.WithJitter(r.Jitter),
	}
}

func (r RetryConfig) validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", r.MaxRetries)
	}
	if r.InitialInterval <= 0 || r.MaxInterval < r.InitialInterval {
		return fmt.Errorf("retry intervals must satisfy 0 < initial_interval (%s) <= max_interval (%s)",
			r.InitialInterval, r.MaxInterval)
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1, got %v", r.Multiplier)
	}
	if r.Jitter < 0 || r.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be within [0, 1], got %v", r.Jitter)
	}
	return nil
}

// TelegramConfig chat front end settings. The bot is disabled without a token.
type TelegramConfig struct {
	Token       string
	ChatIDs     []int64
	WebhookURL  string
	WebhookPath string
}

// Enabled reports whether a bot token is configured.
func (t TelegramConfig) Enabled() bool {
	return t.Token != ""
}

// HTTPConfig web server settings. The server is disabled when Addr is empty.
type HTTPConfig struct {
	Addr         string
	TLSDomains   []string
	CertCacheDir string
}

// ConfigTmp raw YAML representation of Config.
type ConfigTmp struct {
	Platform                string        `yaml:"platform"`
	Quote                   string        `yaml:"quote,omitempty"`
	UniverseSizeStr         string        `yaml:"universe_size,omitempty"`
	ConcurrencyStr          string        `yaml:"concurrency,omitempty"`
	ScanInterval            time.Duration `yaml:"scan_interval,omitempty"`
	WarmUp                  time.Duration `yaml:"warm_up,omitempty"`
	UniverseRefreshInterval time.Duration `yaml:"universe_refresh_interval,omitempty"`
	CallTimeout             time.Duration `yaml:"call_timeout,omitempty"`
	LongTimeframe           string        `yaml:"long_timeframe,omitempty"`
	LongCandlesStr          string        `yaml:"long_candles,omitempty"`
	ShortTimeframe          string        `yaml:"short_timeframe,omitempty"`
	ShortCandlesStr         string        `yaml:"short_candles,omitempty"`
	Scorer                  ScorerTmp     `yaml:"scorer,omitempty"`
	Retry                   RetryTmp      `yaml:"retry,omitempty"`
	Telegram                TelegramTmp   `yaml:"telegram,omitempty"`
	HTTP                    HTTPTmp       `yaml:"http,omitempty"`
	Console                 bool          `yaml:"console,omitempty"`
}

// RetryTmp optional overrides of the market data retry backoff.
type RetryTmp struct {
	MaxRetries      *int          `yaml:"max_retries,omitempty"`
	InitialInterval time.Duration `yaml:"initial_interval,omitempty"`
	MaxInterval     time.Duration `yaml:"max_interval,omitempty"`
	Multiplier      *float64      `yaml:"multiplier,omitempty"`
	Jitter          *float64      `yaml:"jitter,omitempty"`
}

// ScorerTmp optional overrides of the scorer thresholds.
type ScorerTmp struct {
	MinQuoteVolumeStr string   `yaml:"min_quote_volume,omitempty"`
	MinLongChange     *float64 `yaml:"min_long_change,omitempty"`
	MaxLongChange     *float64 `yaml:"max_long_change,omitempty"`
	MinShortChange    *float64 `yaml:"min_short_change,omitempty"`
	MaxShortChange    *float64 `yaml:"max_short_change,omitempty"`
	MaxRSI            *float64 `yaml:"max_rsi,omitempty"`
	MinVolumeSurge    *float64 `yaml:"min_volume_surge,omitempty"`
	TakeProfitStr     string   `yaml:"take_profit,omitempty"`
	StopLossStr       string   `yaml:"stop_loss,omitempty"`
}

// TelegramTmp raw telegram settings; the token comes from TELEGRAM_BOT_TOKEN.
type TelegramTmp struct {
	ChatIDs     []int64 `yaml:"chat_ids,omitempty"`
	WebhookURL  string  `yaml:"webhook_url,omitempty"`
	WebhookPath string  `yaml:"webhook_path,omitempty"`
}

// HTTPTmp raw web server settings.
type HTTPTmp struct {
	Addr         string   `yaml:"addr,omitempty"`
	TLSDomains   []string `yaml:"tls_domains,omitempty"`
	CertCacheDir string   `yaml:"cert_cache_dir,omitempty"`
}

// Options command-line switches that are not part of Config.
type Options struct {
	// Setup runs the interactive wizard before loading the config.
	Setup bool
	// Path of the YAML config, empty in CLI mode.
	Path string
}

// Get parses process arguments and loads the configuration.
func Get() (Config, Options, error) {
	return Load(os.Args[1:])
}

// Load parses args and builds the configuration from the YAML file given by -config,
// or from flags when no file is given.
func Load(args []string) (Config, Options, error) {
	fs := flag.NewFlagSet("scalpscan", flag.ContinueOnError)
	path := fs.String("config", "", "path to yaml config")
	setup := fs.Bool("setup", false, "run the interactive configuration wizard")
	platform := fs.String("platform", PlatformBinance, "exchange to scan: binance, bybit or hyperliquid")
	quote := fs.String("quote", "", "quote currency of scanned pairs (default USDT, USDC on hyperliquid)")
	size := fs.Int("universe", defaultUniverseSize, "number of top pairs by volume to scan")
	concurrency := fs.Int("concurrency", defaultConcurrency, "pairs evaluated in parallel")
	interval := fs.Duration("interval", defaultScanInterval, "scheduled scan interval")
	httpAddr := fs.String("http", "", "http listen address, e.g. :8080 (disabled when empty)")
	chatIDs := fs.String("chats", "", "comma separated telegram chat ids for scheduled alerts")
	console := fs.Bool("console", true, "print scheduled results to stdout")

	if err := fs.Parse(args); err != nil {
		return Config{}, Options{}, err
	}
	opts := Options{Setup: *setup, Path: *path}

	if *path != "" {
		c, err := getYaml(*path)
		return c, opts, err
	}

	ids, err := parseChatIDs(*chatIDs)
	if err != nil {
		return Config{}, opts, err
	}

	c, err := parse(ConfigTmp{
		Platform:        *platform,
		Quote:           *quote,
		UniverseSizeStr: strconv.Itoa(*size),
		ConcurrencyStr:  strconv.Itoa(*concurrency),
		ScanInterval:    *interval,
		Telegram:        TelegramTmp{ChatIDs: ids},
		HTTP:            HTTPTmp{Addr: *httpAddr},
		Console:         *console,
	})
	return c, opts, err
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var c ConfigTmp
	if err := yaml.Unmarshal(f, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml config %s: %w", path, err)
	}
	return parse(c)
}

func parse(c ConfigTmp) (Config, error) {
	cfg := Config{
		Platform:                strings.ToLower(strings.TrimSpace(c.Platform)),
		Quote:                   strings.ToUpper(strings.TrimSpace(c.Quote)),
		ScanInterval:            orDuration(c.ScanInterval, defaultScanInterval),
		WarmUp:                  orDuration(c.WarmUp, defaultWarmUp),
		UniverseRefreshInterval: orDuration(c.UniverseRefreshInterval, defaultUniverseRefreshInterval),
		CallTimeout:             orDuration(c.CallTimeout, defaultCallTimeout),
		Console:                 c.Console,
		Telegram: TelegramConfig{
			Token:       os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatIDs:     c.Telegram.ChatIDs,
			WebhookURL:  c.Telegram.WebhookURL,
			WebhookPath: c.Telegram.WebhookPath,
		},
		HTTP: HTTPConfig{
			Addr:         c.HTTP.Addr,
			TLSDomains:   c.HTTP.TLSDomains,
			CertCacheDir: c.HTTP.CertCacheDir,
		},
	}
	if cfg.Quote == "" {
		cfg.Quote = defaultQuoteFor(cfg.Platform)
	}

	var err error
	if cfg.UniverseSize, err = parseInt(c.UniverseSizeStr, defaultUniverseSize, "universe_size"); err != nil {
		return Config{}, err
	}
	if cfg.Concurrency, err = parseInt(c.ConcurrencyStr, defaultConcurrency, "concurrency"); err != nil {
		return Config{}, err
	}

	longCandles, err := parseInt(c.LongCandlesStr, domain.LongTimeframe.Candles, "long_candles")
	if err != nil {
		return Config{}, err
	}
	if cfg.LongTimeframe, err = domain.ParseTimeframe(orString(c.LongTimeframe, domain.LongTimeframe.Interval), longCandles); err != nil {
		return Config{}, fmt.Errorf("incorrect 'long_timeframe' param in yaml config: %w", err)
	}
	shortCandles, err := parseInt(c.ShortCandlesStr, domain.ShortTimeframe.Candles, "short_candles")
	if err != nil {
		return Config{}, err
	}
	if cfg.ShortTimeframe, err = domain.ParseTimeframe(orString(c.ShortTimeframe, domain.ShortTimeframe.Interval), shortCandles); err != nil {
		return Config{}, fmt.Errorf("incorrect 'short_timeframe' param in yaml config: %w", err)
	}

	if cfg.Scorer, err = parseScorer(c.Scorer); err != nil {
		return Config{}, err
	}

	cfg.Retry = parseRetry(c.Retry)

	if cfg.Telegram.WebhookURL != "" && cfg.Telegram.WebhookPath == "" {
		cfg.Telegram.WebhookPath = "/telegram"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseRetry(c RetryTmp) RetryConfig {
	r := RetryConfig{
		MaxRetries:      retrier.DefaultMaxRetries,
		InitialInterval: orDuration(c.InitialInterval, retrier.DefaultInitialInterval),
		MaxInterval:     orDuration(c.MaxInterval, retrier.DefaultMaxInterval),
		Multiplier:      retrier.DefaultMultiplier,
		Jitter:          retrier.DefaultJitter,
	}
	if c.MaxRetries != nil {
		r.MaxRetries = *c.MaxRetries
	}
	override(&r.Multiplier, c.Multiplier)
	override(&r.Jitter, c.Jitter)
	return r
}

func defaultQuoteFor(platform string) string {
	if platform == PlatformHyperliquid {
		return hyperliquidQuote
	}
	return defaultQuote
}

func parseScorer(c ScorerTmp) (scorer.Config, error) {
	sc := scorer.DefaultConfig()

	var err error
	if sc.MinQuoteVolume, err = parseDecimal(c.MinQuoteVolumeStr, sc.MinQuoteVolume, "min_quote_volume"); err != nil {
		return sc, err
	}
	if sc.TakeProfit, err = parseDecimal(c.TakeProfitStr, sc.TakeProfit, "take_profit"); err != nil {
		return sc, err
	}
	if sc.StopLoss, err = parseDecimal(c.StopLossStr, sc.StopLoss, "stop_loss"); err != nil {
		return sc, err
	}

	override(&sc.MinLongChange, c.MinLongChange)
	override(&sc.MaxLongChange, c.MaxLongChange)
	override(&sc.MinShortChange, c.MinShortChange)
	override(&sc.MaxShortChange, c.MaxShortChange)
	override(&sc.MaxRSI, c.MaxRSI)
	override(&sc.MinVolumeSurge, c.MinVolumeSurge)

	return sc, nil
}

// Validate checks value ranges and cross-field constraints.
func (c Config) Validate() error {
	switch c.Platform {
	case PlatformBinance, PlatformBybit:
	case PlatformHyperliquid:
		if c.Quote != hyperliquidQuote {
			return fmt.Errorf("hyperliquid markets are quoted in %s, got quote %q", hyperliquidQuote, c.Quote)
		}
	default:
		return fmt.Errorf("unsupported platform %q, expected %s, %s or %s",
			c.Platform, PlatformBinance, PlatformBybit, PlatformHyperliquid)
	}
	if c.UniverseSize <= 0 {
		return fmt.Errorf("universe_size must be > 0, got %d", c.UniverseSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0, got %d", c.Concurrency)
	}
	if c.ScanInterval <= 0 || c.CallTimeout <= 0 || c.WarmUp < 0 {
		return fmt.Errorf("scan_interval and call_timeout must be positive, warm_up must not be negative")
	}
	if c.UniverseRefreshInterval < c.ScanInterval {
		return fmt.Errorf("universe_refresh_interval (%s) must not be shorter than scan_interval (%s)",
			c.UniverseRefreshInterval, c.ScanInterval)
	}
	if c.LongTimeframe.Candles < 2 {
		return fmt.Errorf("long_candles must be >= 2, got %d", c.LongTimeframe.Candles)
	}
	if c.ShortTimeframe.Candles < 30 {
		return fmt.Errorf("short_candles must be >= 30, got %d", c.ShortTimeframe.Candles)
	}
	if err := c.Scorer.Validate(); err != nil {
		return fmt.Errorf("invalid scorer config: %w", err)
	}
	if err := c.Retry.validate(); err != nil {
		return err
	}
	if len(c.HTTP.TLSDomains) > 0 && c.HTTP.Addr == "" {
		return fmt.Errorf("tls_domains require http addr")
	}
	if c.Telegram.WebhookURL != "" && c.HTTP.Addr == "" {
		return fmt.Errorf("telegram webhook_url requires http addr")
	}
	return nil
}

func parseInt(s string, def int, name string) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("incorrect '%s' param in yaml config (must be an integer), error: %w", name, err)
	}
	return v, nil
}

func parseDecimal(s string, def decimal.Decimal, name string) (decimal.Decimal, error) {
	if s == "" {
		return def, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("incorrect '%s' param in yaml config (must be a decimal), error: %w", name, err)
	}
	return v, nil
}

func parseChatIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func override(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func orDuration(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
