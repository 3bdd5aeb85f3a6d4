package indicator

import (
	"errors"
	"fmt"

	"github.com/demandzone/screener/internal/contracts"
)

const (
	rsiPeriod      = 14
	lowWindow      = 30
	weeklyPeriods  = 5
	monthlyPeriods = 21
)

var (
	// ErrEmptySeries is returned for a series with no points
	ErrEmptySeries = errors.New("indicator: empty price series")

	// ErrNonPositiveLow marks corrupt provider data: a window low at or
	// below zero makes the distance ratio meaningless
	ErrNonPositiveLow = errors.New("indicator: non-positive window low")
)

// Compute derives the indicator snapshot from a price series. Pure and
// deterministic: no I/O, no clock, the input is never mutated. Metrics
// whose window exceeds the series length come back nil rather than
// defaulted.
func Compute(series contracts.PriceSeries) (contracts.IndicatorSet, error) {
	if len(series) == 0 {
		return contracts.IndicatorSet{}, ErrEmptySeries
	}

	closes := series.Closes()
	last := series.Last()

	window := lowWindow
	if len(closes) < window {
		window = len(closes)
	}

	low := closes[len(closes)-window]
	for _, c := range closes[len(closes)-window:] {
		if c < low {
			low = c
		}
	}
	if low <= 0 {
		return contracts.IndicatorSet{}, fmt.Errorf("%w: %v over %d sessions", ErrNonPositiveLow, low, window)
	}

	return contracts.IndicatorSet{
		RSI14:                rsi(closes, rsiPeriod),
		Low30:                low,
		Low30Window:          window,
		Low30Degraded:        window < lowWindow,
		DistanceFromLow30Pct: (last.Close - low) / low * 100,
		WeeklyChangePct:      changePct(closes, weeklyPeriods),
		MonthlyChangePct:     changePct(closes, monthlyPeriods),
		LatestVolume:         last.Volume,
		LastClose:            last.Close,
		LastDate:             last.Date,
	}, nil
}

// rsi computes the Wilder-smoothed RSI over close-to-close changes.
// Returns nil with fewer than period+1 closes: an undefined RSI must
// stay distinguishable from a neutral one.
func rsi(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for the remaining closes
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	var value float64
	switch {
	case avgGain == 0 && avgLoss == 0:
		// Flat series: no movement in either direction
		value = 50
	case avgLoss == 0:
		value = 100
	default:
		rs := avgGain / avgLoss
		value = 100 - 100/(1+rs)
	}
	return &value
}

// changePct returns the percent change between the last close and the
// close k sessions earlier, nil when the series is too short.
func changePct(closes []float64, k int) *float64 {
	if len(closes) < k+1 {
		return nil
	}
	prev := closes[len(closes)-1-k]
	change := (closes[len(closes)-1]/prev - 1) * 100
	return &change
}
