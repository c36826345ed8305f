// Package indicators provides the technical indicators used by the scanner:
// RSI, EMA, MACD, price change, volume surge and ATR.
//
// All functions are pure and operate on float64 series ordered oldest first.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/pkg/errors"
)

const (
	DefaultRSIPeriod         = 14
	DefaultMACDFast          = 12
	DefaultMACDSlow          = 26
	DefaultMACDSignal        = 9
	DefaultVolumeSurgeWindow = 5
	DefaultATRPeriod         = 14
)

var (
	// ErrNotEnoughData is returned when a series is shorter than the indicator requires.
	ErrNotEnoughData = errors.New("not enough data points")
	// ErrZeroReference is returned when a percent change is taken against a zero price.
	ErrZeroReference = errors.New("reference price is zero")
)

// RSI calculates the Relative Strength Index with Wilder's smoothing.
// The averages are seeded with the plain mean of the first period deltas.
// A window without losses yields 100.
func RSI(closes []float64, period int) (float64, error) {
	if period < 1 {
		return 0, errors.Errorf("invalid RSI period %d", period)
	}
	if len(closes) < period+1 {
		return 0, errors.Wrapf(ErrNotEnoughData, "RSI needs %d closes, got %d", period+1, len(closes))
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss

	return 100 - 100/(1+rs), nil
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// EMA calculates the Exponential Moving Average with k = 2/(period+1).
// The first output equals the first input, so the result has the same length as series.
func EMA(series []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, errors.Errorf("invalid EMA period %d", period)
	}
	if len(series) == 0 {
		return nil, errors.Wrap(ErrNotEnoughData, "EMA of empty series")
	}

	k := 2 / (float64(period) + 1)
	out := make([]float64, len(series))
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = series[i]*k + out[i-1]*(1-k)
	}

	return out, nil
}

// MACD returns the latest MACD line value and the latest signal line value.
func MACD(closes []float64, fast, slow, signal int) (macd, macdSignal float64, err error) {
	fastEMA, err := EMA(closes, fast)
	if err != nil {
		return 0, 0, errors.Wrap(err, "fast EMA")
	}
	slowEMA, err := EMA(closes, slow)
	if err != nil {
		return 0, 0, errors.Wrap(err, "slow EMA")
	}

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine, err := EMA(line, signal)
	if err != nil {
		return 0, 0, errors.Wrap(err, "signal EMA")
	}

	return line[len(line)-1], signalLine[len(signalLine)-1], nil
}

// PriceChange returns the percent change of current against reference.
func PriceChange(current, reference float64) (float64, error) {
	if reference == 0 {
		return 0, ErrZeroReference
	}
	return (current - reference) / reference * 100, nil
}

// VolumeSurge returns the last volume divided by the mean of the window volumes before it.
// When the mean is zero or cannot be computed the ratio is 1.
func VolumeSurge(volumes []float64, window int) float64 {
	if window < 1 || len(volumes) < window+1 {
		return 1
	}

	current := volumes[len(volumes)-1]
	trailing := volumes[len(volumes)-1-window : len(volumes)-1]

	var sum float64
	for _, v := range trailing {
		sum += v
	}
	mean := sum / float64(window)
	if mean <= 0 || math.IsNaN(mean) {
		return 1
	}

	return current / mean
}

// ATR returns the latest Average True Range for the given period, or 0 when the series is too short.
func ATR(highs, lows, closes []float64, period int) float64 {
	if period < 1 || len(closes) < period+1 || len(highs) != len(closes) || len(lows) != len(closes) {
		return 0
	}

	atr := volatility.NewAtrWithPeriod[float64](period)
	out := helper.ChanToSlice(atr.Compute(
		helper.SliceToChan(highs),
		helper.SliceToChan(lows),
		helper.SliceToChan(closes),
	))
	if len(out) == 0 {
		return 0
	}

	return out[len(out)-1]
}
