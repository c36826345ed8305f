// Package telegram is the chat front end: an amount conversation that triggers on-demand scans
// and delivery of scheduled alerts to subscribed chats.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/vadiminshakov/scalpscan/internal/domain"
	"github.com/vadiminshakov/scalpscan/internal/services/report"
)

const defaultScanTimeout = 2 * time.Minute

type sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Scanner runs an on-demand scan cycle.
type Scanner interface {
	ScanNow(ctx context.Context) (domain.ScanResult, error)
}

// Options bot behaviour settings.
type Options struct {
	// ChatIDs receive scheduled alerts.
	ChatIDs []int64
	// Quote currency investment amounts are expressed in.
	Quote string
	// ScanTimeout bounds an on-demand scan started from a chat.
	ScanTimeout time.Duration
}

// Bot handles chat updates and implements notify.Notifier for scheduled alerts.
type Bot struct {
	api       sender
	client    *bot.Bot
	scanner   Scanner
	formatter *report.Formatter
	opts      Options
	l         *zap.Logger

	mu       sync.Mutex
	awaiting map[int64]bool
}

// New creates a bot talking to the Telegram API with token.
func New(token string, scanner Scanner, formatter *report.Formatter, opts Options, l *zap.Logger) (*Bot, error) {
	b := newBot(nil, scanner, formatter, opts, l)

	client, err := bot.New(token, bot.WithDefaultHandler(func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		b.HandleUpdate(ctx, update)
	}))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	b.client = client
	b.api = client

	return b, nil
}

func newBot(api sender, scanner Scanner, formatter *report.Formatter, opts Options, l *zap.Logger) *Bot {
	if l == nil {
		l = zap.NewNop()
	}
	if opts.Quote == "" {
		opts.Quote = "USDT"
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = defaultScanTimeout
	}
	return &Bot{
		api:       api,
		scanner:   scanner,
		formatter: formatter,
		opts:      opts,
		l:         l,
		awaiting:  map[int64]bool{},
	}
}

// Run receives updates by long polling until ctx is canceled.
func (b *Bot) Run(ctx context.Context) {
	b.l.Info("telegram bot polling for updates")
	b.client.Start(ctx)
}

// SetWebhook registers url as the update endpoint of the bot.
func (b *Bot) SetWebhook(ctx context.Context, url string) error {
	ok, err := b.client.SetWebhook(ctx, &bot.SetWebhookParams{URL: url})
	if err != nil {
		return fmt.Errorf("set telegram webhook: %w", err)
	}
	if !ok {
		return errors.New("set telegram webhook: rejected")
	}
	return nil
}

// WebhookHandler accepts updates pushed by Telegram. Updates are processed asynchronously
// so the endpoint acknowledges immediately.
func (b *Bot) WebhookHandler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var update models.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			b.l.Warn("failed to parse telegram update", zap.Error(err))
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}

		go b.HandleUpdate(ctx, &update)

		w.WriteHeader(http.StatusOK)
	})
}

// HandleUpdate drives the amount conversation for one incoming update.
func (b *Bot) HandleUpdate(ctx context.Context, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	var err error
	switch {
	case isCommand(text, "start"):
		err = b.handleStart(ctx, chatID)
	case isCommand(text, "cancel"):
		err = b.handleCancel(ctx, chatID)
	case strings.HasPrefix(text, "/"):
		err = b.send(ctx, chatID, "Unknown command. Use /start to get a scalping recommendation.")
	case b.isAwaiting(chatID):
		err = b.handleAmount(ctx, chatID, text)
	default:
		err = b.send(ctx, chatID, "Use /start to get a scalping recommendation.")
	}

	if err != nil {
		b.l.Error("failed to handle telegram update", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// isCommand matches /name and /name@botname, with or without arguments.
func isCommand(text, name string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return cmd == "/"+name
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) error {
	b.l.Info("conversation started", zap.Int64("chat_id", chatID))
	b.setAwaiting(chatID, true)
	return b.send(ctx, chatID, fmt.Sprintf(
		"Welcome to the Scalping Bot! Please enter the amount you want to invest in %s (e.g., 100):", b.opts.Quote))
}

func (b *Bot) handleCancel(ctx context.Context, chatID int64) error {
	b.setAwaiting(chatID, false)
	return b.send(ctx, chatID, "Conversation cancelled.")
}

func (b *Bot) handleAmount(ctx context.Context, chatID int64, text string) error {
	amount, err := report.ParseAmount(text)
	if err != nil {
		return b.send(ctx, chatID, "Please enter a valid number greater than 0:")
	}
	b.setAwaiting(chatID, false)

	if err := b.send(ctx, chatID, "Analyzing top coins for scalping opportunities, please wait..."); err != nil {
		return err
	}

	scanCtx, cancel := context.WithTimeout(ctx, b.opts.ScanTimeout)
	defer cancel()

	res, err := b.scanner.ScanNow(scanCtx)
	if err != nil {
		b.l.Error("on-demand scan failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return b.send(ctx, chatID, fmt.Sprintf("An error occurred: %v", err))
	}

	msg, err := b.formatter.Recommendation(res, amount)
	if err != nil {
		return b.send(ctx, chatID, fmt.Sprintf("An error occurred: %v", err))
	}
	return b.send(ctx, chatID, msg)
}

// Notify sends a scheduled alert to every configured chat. Empty results are not sent.
func (b *Bot) Notify(ctx context.Context, res domain.ScanResult) error {
	if !res.Found() || len(b.opts.ChatIDs) == 0 {
		return nil
	}

	text := b.formatter.Alert(res)
	var errs []error
	for _, chatID := range b.opts.ChatIDs {
		if err := b.send(ctx, chatID, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) isAwaiting(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaiting[chatID]
}

func (b *Bot) setAwaiting(chatID int64, v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v {
		b.awaiting[chatID] = true
		return
	}
	delete(b.awaiting, chatID)
}
