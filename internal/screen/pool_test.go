package screen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandzone/screener/internal/contracts"
)

func symbolsOf(results []contracts.ScreenResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Symbol
	}
	return out
}

func f64(v float64) *float64 {
	return &v
}

func rankedResult(symbol string, rsi *float64, inZone bool) contracts.ScreenResult {
	return contracts.ScreenResult{
		Symbol:       symbol,
		InDemandZone: inZone,
		Indicators:   contracts.IndicatorSet{RSI14: rsi},
	}
}

func TestResultLessTotalOrder(t *testing.T) {
	list := []contracts.ScreenResult{
		rankedResult("EEE", nil, false),
		rankedResult("DDD", nil, false),
		rankedResult("CCC", f64(20), false),
		rankedResult("BBB", f64(30), true),
		rankedResult("ABB", f64(25), true),
		rankedResult("AAA", f64(25), true),
	}

	sort.Slice(list, func(i, j int) bool {
		return resultLess(&list[i], &list[j])
	})

	// In-zone first by RSI, symbol breaking the 25/25 tie; out-of-zone
	// with defined RSI next; undefined RSI last by symbol
	want := []string{"AAA", "ABB", "BBB", "CCC", "DDD", "EEE"}
	assert.Equal(t, want, symbolsOf(list))
}

func TestRunAllDeterministicOrder(t *testing.T) {
	provider := newFakeProvider()
	provider.series["CAT"] = declining(60, 100, 0.5, 2_000_000)
	provider.series["AAPL"] = declining(60, 80, 0.4, 3_000_000)
	provider.series["MSFT"] = rising(60, 70, 0.5, 2_000_000)
	provider.series["GE"] = declining(10, 50, 0.5, 2_000_000)
	// Stagger completion so arrival order differs from report order
	provider.delays["AAPL"] = 80 * time.Millisecond
	provider.delays["CAT"] = 40 * time.Millisecond
	provider.delays["MSFT"] = 20 * time.Millisecond

	pool := NewPool(NewWorker(provider, 0, testLogger()), testLogger())
	symbols := []string{"GE", "MSFT", "CAT", "AAPL"}

	first := pool.RunAll(context.Background(), symbols, 90, contracts.DefaultThresholds(), 4, nil)
	second := pool.RunAll(context.Background(), symbols, 90, contracts.DefaultThresholds(), 4, nil)

	// AAPL and CAT are in zone with identical RSI, MSFT is out of zone,
	// GE has no RSI at all
	want := []string{"AAPL", "CAT", "MSFT", "GE"}
	assert.Equal(t, want, symbolsOf(first.Results))
	assert.Equal(t, want, symbolsOf(second.Results), "two runs over identical data must order identically")
}

func TestRunAllFailureIsolation(t *testing.T) {
	provider := newFakeProvider()
	provider.series["AAPL"] = declining(60, 100, 0.5, 2_000_000)
	provider.series["MSFT"] = rising(60, 70, 0.5, 2_000_000)
	provider.series["CAT"] = declining(60, 90, 0.3, 2_000_000)
	provider.series["GE"] = rising(60, 40, 0.2, 2_000_000)
	provider.errs["XOM"] = errors.New("connection reset by peer")

	pool := NewPool(NewWorker(provider, 0, testLogger()), testLogger())
	symbols := []string{"AAPL", "MSFT", "XOM", "CAT", "GE"}

	report := pool.RunAll(context.Background(), symbols, 90, contracts.DefaultThresholds(), 3, nil)

	assert.Len(t, report.Results, 4, "one bad symbol must not sink the batch")
	assert.Equal(t, 4, report.AnalyzedCount)
	require.Contains(t, report.Failures, "XOM")
	assert.Equal(t, contracts.FailureFetch, report.Failures["XOM"].Kind)

	// Every symbol lands in exactly one of results/failures
	seen := make(map[string]int)
	for _, r := range report.Results {
		seen[r.Symbol]++
	}
	for s := range report.Failures {
		seen[s]++
	}
	for _, symbol := range symbols {
		assert.Equal(t, 1, seen[symbol], symbol)
	}
}

func TestRunAllRetainsSingleSeries(t *testing.T) {
	provider := newFakeProvider()
	provider.series["AAPL"] = declining(60, 80, 0.4, 3_000_000)
	provider.series["CAT"] = declining(60, 100, 0.5, 2_000_000)
	provider.series["MSFT"] = rising(60, 70, 0.5, 2_000_000)

	pool := NewPool(NewWorker(provider, 0, testLogger()), testLogger())

	report := pool.RunAll(context.Background(), []string{"MSFT", "CAT", "AAPL"}, 90, contracts.DefaultThresholds(), 3, nil)

	withSeries := 0
	for _, r := range report.Results {
		if len(r.Series) > 0 {
			withSeries++
		}
	}
	assert.Equal(t, 1, withSeries, "only the chart symbol keeps its series")

	require.NotEmpty(t, report.Results)
	assert.Equal(t, "AAPL", report.Results[0].Symbol)
	assert.True(t, report.Results[0].InDemandZone)
	assert.NotEmpty(t, report.Results[0].Series)

	chart := report.ChartResult()
	require.NotNil(t, chart)
	assert.Equal(t, "AAPL", chart.Symbol)
}

func TestRunAllSeriesFallsToTopOverall(t *testing.T) {
	// Nothing qualifies: the chart series goes to the best-ranked
	// result anyway
	provider := newFakeProvider()
	provider.series["MSFT"] = rising(60, 70, 0.5, 2_000_000)
	provider.series["GOOG"] = rising(60, 90, 0.5, 2_000_000)

	pool := NewPool(NewWorker(provider, 0, testLogger()), testLogger())

	report := pool.RunAll(context.Background(), []string{"MSFT", "GOOG"}, 90, contracts.DefaultThresholds(), 2, nil)

	require.Len(t, report.Results, 2)
	assert.Equal(t, 0, report.InZoneCount())
	assert.Equal(t, "GOOG", report.Results[0].Symbol)
	assert.NotEmpty(t, report.Results[0].Series)
	assert.Empty(t, report.Results[1].Series)
}

func TestRunAllProgress(t *testing.T) {
	provider := newFakeProvider()
	provider.series["AAPL"] = declining(60, 100, 0.5, 2_000_000)
	provider.series["MSFT"] = rising(60, 70, 0.5, 2_000_000)
	provider.errs["XOM"] = errors.New("boom")

	pool := NewPool(NewWorker(provider, 0, testLogger()), testLogger())

	var dones []int
	var symbols []string
	progress := func(done, total int, symbol string) {
		dones = append(dones, done)
		symbols = append(symbols, symbol)
		assert.Equal(t, 3, total)
	}

	pool.RunAll(context.Background(), []string{"AAPL", "MSFT", "XOM"}, 90, contracts.DefaultThresholds(), 2, progress)

	assert.Equal(t, []int{1, 2, 3}, dones)
	assert.ElementsMatch(t, []string{"AAPL", "MSFT", "XOM"}, symbols, "failures report progress too")
}

func TestRunAllEmptySymbols(t *testing.T) {
	pool := NewPool(NewWorker(newFakeProvider(), 0, testLogger()), testLogger())

	report := pool.RunAll(context.Background(), nil, 90, contracts.DefaultThresholds(), 10, nil)

	assert.Empty(t, report.Results)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 0, report.AnalyzedCount)
}

func TestRunAllBoundsConcurrency(t *testing.T) {
	provider := newFakeProvider()
	var symbols []string
	for i := 0; i < 20; i++ {
		symbol := fmt.Sprintf("S%02d", i)
		symbols = append(symbols, symbol)
		provider.series[symbol] = declining(60, 100, 0.5, 2_000_000)
		provider.delays[symbol] = 15 * time.Millisecond
	}

	pool := NewPool(NewWorker(provider, 0, testLogger()), testLogger())

	report := pool.RunAll(context.Background(), symbols, 90, contracts.DefaultThresholds(), 3, nil)

	assert.Equal(t, 20, report.AnalyzedCount)
	assert.LessOrEqual(t, provider.maxActive.Load(), int32(3), "pool must not exceed its worker bound")
}

func TestRunAllCancelledContext(t *testing.T) {
	provider := newFakeProvider()
	provider.series["AAPL"] = declining(60, 100, 0.5, 2_000_000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(NewWorker(provider, 0, testLogger()), testLogger())
	symbols := []string{"AAPL", "MSFT", "XOM"}

	report := pool.RunAll(ctx, symbols, 90, contracts.DefaultThresholds(), 2, nil)

	assert.Empty(t, report.Results)
	assert.Len(t, report.Failures, 3, "cancelled runs still account for every symbol")
	for _, symbol := range symbols {
		assert.Equal(t, contracts.FailureFetch, report.Failures[symbol].Kind)
	}
	assert.Equal(t, 0, provider.callCount(), "no fetches after cancellation")
}
