package telegram

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/scalpscan/internal/domain"
	"github.com/vadiminshakov/scalpscan/internal/services/report"
)

type sent struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, sent{chatID: params.ChatID.(int64), text: params.Text})
	return &models.Message{}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.text)
	}
	return out
}

type fakeScanner struct {
	res   domain.ScanResult
	err   error
	calls int
}

func (f *fakeScanner) ScanNow(context.Context) (domain.ScanResult, error) {
	f.calls++
	return f.res, f.err
}

func found() domain.ScanResult {
	return domain.ScanResult{Best: &domain.Opportunity{
		Pair:        domain.NewPair("SOL", "USDT"),
		Price:       decimal.NewFromInt(100),
		TakeProfit:  decimal.NewFromInt(102),
		StopLoss:    decimal.NewFromInt(99),
		QuoteVolume: decimal.NewFromInt(5_000_000),
		Score:       3,
	}}
}

func message(chatID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{Chat: models.Chat{ID: chatID}, Text: text}}
}

func newTestBot(api *fakeSender, scanner *fakeScanner, chatIDs ...int64) *Bot {
	f := report.NewFormatter(domain.LongTimeframe, domain.ShortTimeframe)
	return newBot(api, scanner, f, Options{ChatIDs: chatIDs}, zap.NewNop())
}

func TestConversation_AmountThenRecommendation(t *testing.T) {
	api := &fakeSender{}
	scanner := &fakeScanner{res: found()}
	b := newTestBot(api, scanner)
	ctx := context.Background()

	b.HandleUpdate(ctx, message(42, "/start"))
	b.HandleUpdate(ctx, message(42, "abc"))
	b.HandleUpdate(ctx, message(42, "-10"))
	assert.Zero(t, scanner.calls, "invalid amounts re-prompt without scanning")

	b.HandleUpdate(ctx, message(42, "1000"))

	texts := api.texts()
	require.Len(t, texts, 5)
	assert.Contains(t, texts[0], "Please enter the amount you want to invest in USDT")
	assert.Equal(t, "Please enter a valid number greater than 0:", texts[1])
	assert.Equal(t, "Please enter a valid number greater than 0:", texts[2])
	assert.Contains(t, texts[3], "please wait")
	assert.Contains(t, texts[4], "Recommended Coin: SOL/USDT")
	assert.Contains(t, texts[4], "you can buy 10.0000 SOL")
	assert.Equal(t, 1, scanner.calls)

	b.HandleUpdate(ctx, message(42, "500"))
	assert.Equal(t, 1, scanner.calls, "conversation ended after the answer")
}

func TestConversation_NoneFound(t *testing.T) {
	api := &fakeSender{}
	b := newTestBot(api, &fakeScanner{})
	ctx := context.Background()

	b.HandleUpdate(ctx, message(7, "/start"))
	b.HandleUpdate(ctx, message(7, "100"))

	texts := api.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, report.NoneMessage, texts[2])
}

func TestConversation_ScanError(t *testing.T) {
	api := &fakeSender{}
	b := newTestBot(api, &fakeScanner{err: errors.New("tickers unavailable")})
	ctx := context.Background()

	b.HandleUpdate(ctx, message(7, "/start"))
	b.HandleUpdate(ctx, message(7, "100"))

	texts := api.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, "An error occurred: tickers unavailable", texts[2])
}

func TestConversation_Cancel(t *testing.T) {
	api := &fakeSender{}
	scanner := &fakeScanner{res: found()}
	b := newTestBot(api, scanner)
	ctx := context.Background()

	b.HandleUpdate(ctx, message(7, "/start@scalp_bot"))
	b.HandleUpdate(ctx, message(7, "/cancel"))
	b.HandleUpdate(ctx, message(7, "100"))

	texts := api.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, "Conversation cancelled.", texts[1])
	assert.Contains(t, texts[2], "/start")
	assert.Zero(t, scanner.calls)
}

func TestConversation_IgnoresEmptyUpdates(t *testing.T) {
	api := &fakeSender{}
	b := newTestBot(api, &fakeScanner{})

	b.HandleUpdate(context.Background(), nil)
	b.HandleUpdate(context.Background(), &models.Update{})

	assert.Empty(t, api.texts())
}

func TestNotify(t *testing.T) {
	t.Run("sends to every chat", func(t *testing.T) {
		api := &fakeSender{}
		b := newTestBot(api, &fakeScanner{}, 1, 2)

		require.NoError(t, b.Notify(context.Background(), found()))

		require.Len(t, api.msgs, 2)
		assert.Equal(t, int64(1), api.msgs[0].chatID)
		assert.Equal(t, int64(2), api.msgs[1].chatID)
		assert.Contains(t, api.msgs[0].text, "Scalping Opportunity Found!")
		assert.NotContains(t, api.msgs[0].text, "Potential Profit")
	})

	t.Run("skips empty results", func(t *testing.T) {
		api := &fakeSender{}
		b := newTestBot(api, &fakeScanner{}, 1)

		require.NoError(t, b.Notify(context.Background(), domain.ScanResult{}))
		assert.Empty(t, api.msgs)
	})

	t.Run("send failure reported", func(t *testing.T) {
		api := &fakeSender{err: errors.New("forbidden")}
		b := newTestBot(api, &fakeScanner{}, 1, 2)

		assert.Error(t, b.Notify(context.Background(), found()))
	})
}

func TestWebhookHandler(t *testing.T) {
	api := &fakeSender{}
	b := newTestBot(api, &fakeScanner{})
	h := b.WebhookHandler(context.Background())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram", bytes.NewBufferString(`{"update_id":1,"message":{"message_id":1,"date":0,"chat":{"id":9,"type":"private"},"text":"/start"}}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Eventually(t, func() bool {
		return len(api.texts()) == 1
	}, time.Second, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram", bytes.NewBufferString(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/telegram", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
