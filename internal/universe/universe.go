package universe

import (
	"context"
	"strings"
	"time"
)

// Discoverer resolves the current S&P 500 constituent symbols from an
// external source, in index order.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

// SnapshotSource records where a snapshot's symbols came from.
type SnapshotSource string

const (
	// SourceDiscovery marks symbols resolved from the live source
	SourceDiscovery SnapshotSource = "discovery"

	// SourceFallback marks the static large-cap list used when
	// discovery fails with nothing cached
	SourceFallback SnapshotSource = "fallback"

	// SourceManual marks symbols supplied directly by the caller,
	// bypassing discovery
	SourceManual SnapshotSource = "manual"
)

// Snapshot is an immutable view of the screening universe.
type Snapshot struct {
	Symbols   []string       `json:"symbols"`
	FetchedAt time.Time      `json:"fetched_at"`
	Source    SnapshotSource `json:"source"`
}

// Size returns the number of symbols in the snapshot
func (s Snapshot) Size() int {
	return len(s.Symbols)
}

// Age returns the snapshot age relative to now
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// fallbackSymbols is the static emergency universe: 50 large-cap S&P
// 500 names, already in provider notation (BRK-B, not BRK.B).
var fallbackSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "BRK-B", "LLY", "V", "TSM",
	"UNH", "XOM", "JPM", "JNJ", "PG", "MA", "HD", "CVX", "AVGO", "KO",
	"PEP", "COST", "MRK", "ABBV", "BAC", "PFE", "TMO", "ACN", "DHR", "VZ",
	"ADBE", "NFLX", "CRM", "CMCSA", "DIS", "NEE", "PM", "TXN", "RTX", "QCOM",
	"HON", "LOW", "UPS", "IBM", "INTU", "MS", "SPGI", "GS", "CAT", "DE",
}

// FallbackSymbols returns a copy of the static emergency universe
func FallbackSymbols() []string {
	out := make([]string, len(fallbackSymbols))
	copy(out, fallbackSymbols)
	return out
}

// NormalizeSymbol converts a ticker to provider notation: trimmed,
// uppercase, class-share dots as dashes (BRK.B -> BRK-B).
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.ReplaceAll(s, ".", "-")
}

// NormalizeList normalizes every symbol and drops empties and
// repeats, keeping first-seen order.
func NormalizeList(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
