package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, res domain.ScanResult) error {
	return m.Called(ctx, res).Error(0)
}

func TestMulti_CallsEveryNotifier(t *testing.T) {
	res := domain.ScanResult{ID: "scan-1"}
	errFirst := errors.New("telegram down")
	errThird := errors.New("disk full")

	first, second, third := new(mockNotifier), new(mockNotifier), new(mockNotifier)
	first.On("Notify", mock.Anything, res).Return(errFirst).Once()
	second.On("Notify", mock.Anything, res).Return(nil).Once()
	third.On("Notify", mock.Anything, res).Return(errThird).Once()

	err := Multi{first, nil, second, third}.Notify(context.Background(), res)

	require.Error(t, err)
	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errThird)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
	third.AssertExpectations(t)
}

func TestMulti_NoErrors(t *testing.T) {
	var calls int
	n := NotifierFunc(func(context.Context, domain.ScanResult) error {
		calls++
		return nil
	})

	require.NoError(t, Multi{n, n}.Notify(context.Background(), domain.ScanResult{}))
	assert.Equal(t, 2, calls)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, func(res domain.ScanResult) string {
		if res.Found() {
			return "best " + res.Best.Pair.String()
		}
		return "nothing"
	})

	require.NoError(t, c.Notify(context.Background(), domain.ScanResult{}))
	assert.Contains(t, buf.String(), "nothing")

	buf.Reset()
	op := &domain.Opportunity{Pair: domain.NewPair("BTC", "USDT"), Score: 1}
	require.NoError(t, c.Notify(context.Background(), domain.ScanResult{Best: op}))
	assert.Contains(t, buf.String(), "best BTC/USDT")
}
