// Package notify delivers scheduled scan results to their consumers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

// Notifier receives the result of every scheduled scan cycle.
type Notifier interface {
	Notify(ctx context.Context, res domain.ScanResult) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, res domain.ScanResult) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, res domain.ScanResult) error {
	return f(ctx, res)
}

// Multi fans a result out to every notifier. All notifiers are called even if some fail.
type Multi []Notifier

// Notify implements Notifier; failures are joined.
func (m Multi) Notify(ctx context.Context, res domain.ScanResult) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	found = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	muted = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(found).
			Padding(0, 1)

	noneStyle = lipgloss.NewStyle().Foreground(muted)
)

// Console prints results to a terminal.
type Console struct {
	w      io.Writer
	render func(domain.ScanResult) string
}

// NewConsole creates a console notifier writing to w (stdout when nil) with the given renderer.
func NewConsole(w io.Writer, render func(domain.ScanResult) string) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w, render: render}
}

// Notify implements Notifier.
func (c *Console) Notify(_ context.Context, res domain.ScanResult) error {
	text := c.render(res)
	if !res.Found() {
		text = noneStyle.Render(text)
	} else {
		text = boxStyle.Render(text)
	}
	if _, err := fmt.Fprintln(c.w, text); err != nil {
		return fmt.Errorf("write console notification: %w", err)
	}
	return nil
}
