package contracts

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ThresholdConfig holds the demand-zone classification thresholds.
type ThresholdConfig struct {
	RSIMax                float64 `json:"rsi_max" yaml:"rsi_max" validate:"gte=10,lte=50"`
	DistanceFromLowMaxPct float64 `json:"distance_from_low_max_pct" yaml:"distance_from_low_max_pct" validate:"gte=1,lte=15"`
	VolumeMin             int64   `json:"volume_min" yaml:"volume_min" validate:"gte=100000,lte=10000000"`
}

// DefaultThresholds returns the standard screening thresholds
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		RSIMax:                40,
		DistanceFromLowMaxPct: 5,
		VolumeMin:             1_000_000,
	}
}

var thresholdValidator = validator.New()

// Validate checks threshold ranges
func (c ThresholdConfig) Validate() error {
	if err := thresholdValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	return nil
}

// InZone is the demand-zone classifier: oversold, near the window low,
// and liquid. All boundaries are inclusive. An undefined RSI never
// qualifies, regardless of the other metrics.
func (c ThresholdConfig) InZone(ind IndicatorSet) bool {
	if !ind.HasRSI() {
		return false
	}
	return *ind.RSI14 <= c.RSIMax &&
		ind.DistanceFromLow30Pct <= c.DistanceFromLowMaxPct &&
		ind.LatestVolume >= c.VolumeMin
}

// FailureKind classifies why a symbol produced no result.
type FailureKind string

const (
	// FailureFetch covers provider errors and fetch timeouts
	FailureFetch FailureKind = "fetch_failed"

	// FailureInsufficientData covers empty or too-short series
	FailureInsufficientData FailureKind = "insufficient_data"

	// FailureDataIntegrity covers corrupt provider data, like a
	// non-positive window low. Kept distinct from generic failures.
	FailureDataIntegrity FailureKind = "data_integrity"
)

// Failure records a per-symbol screening failure.
type Failure struct {
	Symbol string      `json:"symbol"`
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail"`
}

// ScreenResult is the scored outcome for one symbol.
type ScreenResult struct {
	Symbol       string       `json:"symbol"`
	Indicators   IndicatorSet `json:"indicators"`
	InDemandZone bool         `json:"in_demand_zone"`

	// Series is populated only on the chart-designated result (the
	// top-ranked in-zone symbol, or the top-ranked overall when
	// nothing qualifies)
	Series PriceSeries `json:"series,omitempty"`
}

// ScreenReport is the full outcome of one screening run.
type ScreenReport struct {
	RunID          string             `json:"run_id"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Duration       time.Duration      `json:"duration"`
	Config         ThresholdConfig    `json:"config"`
	UniverseSize   int                `json:"universe_size"`
	UniverseSource string             `json:"universe_source"`
	AnalyzedCount  int                `json:"analyzed_count"`
	Results        []ScreenResult     `json:"results"`
	Failures       map[string]Failure `json:"failures"`
}

// InZoneCount returns how many results are in the demand zone
func (r *ScreenReport) InZoneCount() int {
	count := 0
	for _, res := range r.Results {
		if res.InDemandZone {
			count++
		}
	}
	return count
}

// InZonePct returns the in-zone share of analyzed symbols in percent
func (r *ScreenReport) InZonePct() float64 {
	if r.AnalyzedCount == 0 {
		return 0
	}
	return float64(r.InZoneCount()) / float64(r.AnalyzedCount) * 100
}

// AverageRSI returns the mean of defined RSI values. The second return
// is false when no result has a defined RSI.
func (r *ScreenReport) AverageRSI() (float64, bool) {
	sum := 0.0
	count := 0
	for _, res := range r.Results {
		if res.Indicators.HasRSI() {
			sum += *res.Indicators.RSI14
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// ChartResult returns the result carrying the price series, nil when
// the report has none (all symbols failed).
func (r *ScreenReport) ChartResult() *ScreenResult {
	for i := range r.Results {
		if len(r.Results[i].Series) > 0 {
			return &r.Results[i]
		}
	}
	return nil
}
