package contracts

import (
	"fmt"
	"time"
)

// PricePoint represents one daily OHLCV bar.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a daily price history, ordered strictly ascending by
// date with no duplicate days. Providers normalize before returning one.
type PriceSeries []PricePoint

// Closes returns the close column in series order
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent point (zero value for an empty series)
func (s PriceSeries) Last() PricePoint {
	if len(s) == 0 {
		return PricePoint{}
	}
	return s[len(s)-1]
}

// Validate checks series invariants: ascending unique dates and
// positive closes.
func (s PriceSeries) Validate() error {
	for i, p := range s {
		if p.Close <= 0 {
			return fmt.Errorf("series point %d (%s): non-positive close %v",
				i, p.Date.Format("2006-01-02"), p.Close)
		}
		if i > 0 && !s[i-1].Date.Before(p.Date) {
			return fmt.Errorf("series point %d (%s): date not after previous point (%s)",
				i, p.Date.Format("2006-01-02"), s[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}
