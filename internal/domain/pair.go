// Package domain defines core data structures shared by the scanner, its gateways and its consumers.
package domain

import (
	"fmt"
	"strings"
)

// Pair tradable currency pair.
type Pair struct {
	// Base asset symbol, e.g. BTC.
	Base string
	// Quote asset symbol, e.g. USDT.
	Quote string
}

// NewPair builds a pair with upper-cased assets.
func NewPair(base, quote string) Pair {
	return Pair{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}
}

// ParsePair parses BASE/QUOTE or BASE_QUOTE notation.
func ParsePair(s string) (Pair, error) {
	sep := "/"
	if !strings.Contains(s, sep) {
		sep = "_"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair %q, expected BASE/QUOTE", s)
	}
	return NewPair(parts[0], parts[1]), nil
}

// String returns the BASE/QUOTE representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

// Symbol returns the concatenated exchange symbol.
func (p Pair) Symbol() string {
	return p.Base + p.Quote
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool {
	return p.Base == "" && p.Quote == ""
}

// Market exchange listing entry.
type Market struct {
	Pair Pair
	// Active is true when the exchange reports the pair as tradable.
	Active bool
}

// MarshalText encodes the pair as BASE/QUOTE.
func (p Pair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes BASE/QUOTE or BASE_QUOTE.
func (p *Pair) UnmarshalText(text []byte) error {
	parsed, err := ParsePair(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
