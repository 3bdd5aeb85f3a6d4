package contracts

import "time"

// IndicatorSet is the computed snapshot for one symbol. Optional
// metrics are pointers: nil means the series was too short to define
// them, which is different from zero.
type IndicatorSet struct {
	// Wilder RSI over 14 periods; nil with fewer than 15 closes
	RSI14 *float64 `json:"rsi14"`

	// Minimum close over the trailing window (30 sessions, or the
	// whole series when shorter)
	Low30         float64 `json:"low_30"`
	Low30Window   int     `json:"low_30_window"`
	Low30Degraded bool    `json:"low_30_degraded"`

	// Percent distance of the last close above the window low
	DistanceFromLow30Pct float64 `json:"distance_from_low_30_pct"`

	// Close-to-close percent change over 5 and 21 sessions
	WeeklyChangePct  *float64 `json:"weekly_change_pct"`
	MonthlyChangePct *float64 `json:"monthly_change_pct"`

	LatestVolume int64     `json:"latest_volume"`
	LastClose    float64   `json:"last_close"`
	LastDate     time.Time `json:"last_date"`
}

// HasRSI reports whether RSI14 is defined
func (i IndicatorSet) HasRSI() bool {
	return i.RSI14 != nil
}
