package domain

import (
	"fmt"
	"time"
)

// Timeframe candle bucket size together with the window the scanner needs.
type Timeframe struct {
	// Interval exchange notation, e.g. "1h" or "5m".
	Interval string
	// Duration length of one bucket.
	Duration time.Duration
	// Candles number of buckets fetched and required.
	Candles int
}

var (
	// LongTimeframe hourly window establishing the pullback.
	LongTimeframe = Timeframe{Interval: "1h", Duration: time.Hour, Candles: 3}
	// ShortTimeframe five-minute window used for momentum.
	ShortTimeframe = Timeframe{Interval: "5m", Duration: 5 * time.Minute, Candles: 30}
)

// ParseTimeframe builds a timeframe from interval notation.
func ParseTimeframe(interval string, candles int) (Timeframe, error) {
	if len(interval) < 2 {
		return Timeframe{}, fmt.Errorf("invalid interval %q", interval)
	}
	if candles <= 0 {
		return Timeframe{}, fmt.Errorf("candles must be > 0, got %d", candles)
	}

	unit := interval[len(interval)-1]
	var n int64
	for _, r := range interval[:len(interval)-1] {
		if r < '0' || r > '9' {
			return Timeframe{}, fmt.Errorf("invalid interval number: %s", interval)
		}
		n = n*10 + int64(r-'0')
	}
	if n == 0 {
		return Timeframe{}, fmt.Errorf("invalid interval %q", interval)
	}

	var d time.Duration
	switch unit {
	case 'm':
		d = time.Duration(n) * time.Minute
	case 'h':
		d = time.Duration(n) * time.Hour
	case 'd':
		d = time.Duration(n) * 24 * time.Hour
	default:
		return Timeframe{}, fmt.Errorf("unsupported interval unit: %c", unit)
	}

	return Timeframe{Interval: interval, Duration: d, Candles: candles}, nil
}

// Since returns the start of a window of t.Candles buckets ending at now.
func (t Timeframe) Since(now time.Time) time.Time {
	return now.Add(-time.Duration(t.Candles) * t.Duration)
}

// String returns the interval.
func (t Timeframe) String() string {
	return t.Interval
}
