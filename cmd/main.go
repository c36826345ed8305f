// Command scalpscan scans the top pairs of one exchange for short-term long setups
// and reports the best opportunity on a schedule and on demand.
// It can be configured via a YAML file, command-line arguments or an interactive wizard.
//
// Usage:
//
//	scalpscan -config config.yaml
//	scalpscan -setup
//	scalpscan -platform bybit -interval 5m -http :8080
//
// Optional environment variables (a .env file is loaded when present):
//
//	TELEGRAM_BOT_TOKEN enables the Telegram bot
//	BINANCE_API_KEY, BINANCE_API_SECRET, BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/scalpscan/config"
	"github.com/vadiminshakov/scalpscan/internal"
	"github.com/vadiminshakov/scalpscan/internal/clients"
	"github.com/vadiminshakov/scalpscan/internal/notify"
	"github.com/vadiminshakov/scalpscan/internal/services/report"
	"github.com/vadiminshakov/scalpscan/internal/setup"
	"github.com/vadiminshakov/scalpscan/internal/telegram"
	"github.com/vadiminshakov/scalpscan/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	conf, opts, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	if opts.Setup {
		path, err := setup.RunTUI()
		if err != nil {
			logger.Fatal("setup wizard failed", zap.Error(err))
		}
		conf, _, err = config.Load([]string{"-config", path})
		if err != nil {
			logger.Fatal("failed to load generated configuration", zap.String("path", path), zap.Error(err))
		}
	}

	client, err := clients.FromEnv(conf.Platform)
	if err != nil {
		logger.Fatal("failed to create exchange client", zap.Error(err))
	}

	bot, err := internal.NewScanBot(conf, client, logger)
	if err != nil {
		logger.Fatal("failed to create scan bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter := report.NewFormatter(conf.LongTimeframe, conf.ShortTimeframe)

	var notifiers notify.Multi
	if conf.Console {
		notifiers = append(notifiers, notify.NewConsole(os.Stdout, formatter.Alert))
	}

	var tg *telegram.Bot
	if conf.Telegram.Enabled() {
		tg, err = telegram.New(conf.Telegram.Token, bot, formatter, telegram.Options{
			ChatIDs: conf.Telegram.ChatIDs,
			Quote:   conf.Quote,
		}, logger)
		if err != nil {
			logger.Fatal("failed to create telegram bot", zap.Error(err))
		}
		notifiers = append(notifiers, tg)
	}

	var server *web.Server
	if conf.HTTP.Addr != "" {
		results := web.NewBroadcaster(0)
		notifiers = append(notifiers, results)
		server = web.NewServer(conf.HTTP.Addr, results, bot, logger)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Run(ctx, notifiers)
	})

	if tg != nil {
		if conf.Telegram.WebhookURL != "" {
			if err := tg.SetWebhook(ctx, conf.Telegram.WebhookURL); err != nil {
				logger.Fatal("failed to register telegram webhook", zap.Error(err))
			}
			server.MountWebhook(conf.Telegram.WebhookPath, tg.WebhookHandler(ctx))
		} else {
			g.Go(func() error {
				tg.Run(ctx)
				return nil
			})
		}
	}

	if server != nil {
		g.Go(func() error {
			if len(conf.HTTP.TLSDomains) > 0 {
				return server.StartWithAutoTLS(ctx, conf.HTTP.TLSDomains, conf.HTTP.CertCacheDir)
			}
			return server.Start(ctx)
		})
	}

	logger.Info("scalpscan started",
		zap.String("platform", conf.Platform),
		zap.String("quote", conf.Quote),
		zap.Int("universe_size", conf.UniverseSize),
		zap.Duration("scan_interval", conf.ScanInterval))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scalpscan stopped", zap.Error(err))
	}
}
