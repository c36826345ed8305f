// Package report renders scan results for humans and sizes positions from an investment amount.
package report

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

// ErrInvalidAmount is returned for amounts that are not numbers greater than zero.
var ErrInvalidAmount = errors.New("amount must be a number greater than 0")

const (
	NoneMessage  = "No good scalping opportunities found at the moment. Try again later."
	riskShort    = "⚠️ Risk Warning: Scalping is a high-risk strategy."
	riskDetailed = "⚠️ Risk Warning: Scalping is a high-risk strategy. Prices can be volatile, and you may lose your investment. Always trade responsibly and consider using a stop-loss."
)

// ParseAmount parses a user supplied investment amount.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	amount, err := decimal.NewFromString(strings.ReplaceAll(text, ",", "."))
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "%q", text)
	}
	if !amount.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "%s", amount)
	}
	return amount, nil
}

// Position outcome of buying an opportunity with a fixed quote amount.
type Position struct {
	Amount decimal.Decimal `json:"amount"`
	Units  decimal.Decimal `json:"units"`
	Profit decimal.Decimal `json:"profit"`
	Loss   decimal.Decimal `json:"loss"`
}

// NewPosition sizes a position: units bought at the current price, profit at take-profit and loss at stop-loss.
func NewPosition(op domain.Opportunity, amount decimal.Decimal) (Position, error) {
	if !op.Price.IsPositive() {
		return Position{}, errors.Errorf("invalid price %s for %s", op.Price, op.Pair)
	}
	if !amount.IsPositive() {
		return Position{}, errors.Wrapf(ErrInvalidAmount, "%s", amount)
	}

	units := amount.Div(op.Price)
	return Position{
		Amount: amount,
		Units:  units,
		Profit: units.Mul(op.TakeProfit).Sub(amount),
		Loss:   amount.Sub(units.Mul(op.StopLoss)),
	}, nil
}

// Formatter renders opportunities with the timeframe labels the scanner runs with.
type Formatter struct {
	long  string
	short string
}

// NewFormatter creates a formatter labelling indicator lines with the given timeframes.
func NewFormatter(long, short domain.Timeframe) *Formatter {
	return &Formatter{long: long.Interval, short: short.Interval}
}

// Alert renders a scheduled alert. It returns NoneMessage when nothing was found.
func (f *Formatter) Alert(res domain.ScanResult) string {
	if !res.Found() {
		return NoneMessage
	}

	var b strings.Builder
	f.writeOpportunity(&b, *res.Best)
	b.WriteString("\n")
	b.WriteString(riskShort)
	return b.String()
}

// Recommendation renders an on-demand answer including position sizing for amount.
func (f *Formatter) Recommendation(res domain.ScanResult, amount decimal.Decimal) (string, error) {
	if !res.Found() {
		return NoneMessage, nil
	}

	op := *res.Best
	pos, err := NewPosition(op, amount)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	f.writeOpportunity(&b, op)
	fmt.Fprintf(&b, "With %s %s, you can buy %s %s.\n", pos.Amount.StringFixed(2), op.Pair.Quote, pos.Units.StringFixed(4), op.Pair.Base)
	fmt.Fprintf(&b, "Potential Profit: ~%s %s\n", pos.Profit.StringFixed(2), op.Pair.Quote)
	fmt.Fprintf(&b, "Potential Loss: ~%s %s\n", pos.Loss.StringFixed(2), op.Pair.Quote)
	b.WriteString("\n")
	b.WriteString(riskDetailed)
	return b.String(), nil
}

func (f *Formatter) writeOpportunity(b *strings.Builder, op domain.Opportunity) {
	quote := op.Pair.Quote
	ind := op.Indicators

	b.WriteString("Scalping Opportunity Found!\n")
	fmt.Fprintf(b, "Recommended Coin: %s\n", op.Pair)
	fmt.Fprintf(b, "Current Price: %s %s\n", op.Price.StringFixed(4), quote)
	fmt.Fprintf(b, "Take-Profit Price: %s %s (%s)\n", op.TakeProfit.StringFixed(4), quote, band(op.TakeProfit, op.Price))
	fmt.Fprintf(b, "Stop-Loss Price: %s %s (%s)\n", op.StopLoss.StringFixed(4), quote, band(op.StopLoss, op.Price))
	fmt.Fprintf(b, "24h Trading Volume: %s %s\n", op.QuoteVolume.StringFixed(2), quote)
	b.WriteString("Indicators:\n")
	fmt.Fprintf(b, "- Price Change (%s): %.2f%%\n", f.long, ind.PriceChangeLong)
	fmt.Fprintf(b, "- Price Change (%s): %.2f%%\n", f.short, ind.PriceChangeShort)
	fmt.Fprintf(b, "- RSI (14): %.2f\n", ind.RSI)
	fmt.Fprintf(b, "- MACD: %.4f, Signal: %.4f\n", ind.MACD, ind.MACDSignal)
	fmt.Fprintf(b, "- Volume Surge (%s): %.2fx\n", f.short, ind.VolumeSurge)
	if ind.ATR > 0 {
		fmt.Fprintf(b, "- ATR (%s): %.4f\n", f.short, ind.ATR)
	}
}

// band returns the signed percent distance of target from price, e.g. "+2%".
func band(target, price decimal.Decimal) string {
	if !price.IsPositive() {
		return "n/a"
	}
	pct := target.Sub(price).Div(price).Mul(decimal.NewFromInt(100)).Round(2)
	if pct.IsPositive() {
		return "+" + pct.String() + "%"
	}
	return pct.String() + "%"
}
