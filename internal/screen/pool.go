package screen

import (
	"context"
	"sort"
	"sync"

	"github.com/demandzone/screener/internal/contracts"
	"github.com/demandzone/screener/pkg/logger"
)

// ProgressFunc is invoked once per completed symbol, failures included,
// from the collection goroutine. Callers that do not need progress pass
// nil.
type ProgressFunc func(done, total int, symbol string)

// Pool dispatches Score calls across a bounded set of goroutines. The
// bound is backpressure against the data provider, not a tuning knob:
// too many concurrent fetches trip rate limits.
type Pool struct {
	worker *Worker
	logger *logger.Logger
}

// NewPool creates a scoring pool around a worker.
func NewPool(worker *Worker, log *logger.Logger) *Pool {
	return &Pool{
		worker: worker,
		logger: log.WithField("module", "screen"),
	}
}

type outcome struct {
	result  *contracts.ScreenResult
	failure *contracts.Failure
}

// RunAll scores every symbol across at most maxWorkers goroutines and
// assembles the per-run report. It is a batch contract: all outcomes
// are collected before it returns. A slow or failing symbol only
// affects its own entry. Results come back sorted by the report
// ordering, with the price series attached to the single top-ranked
// result.
func (p *Pool) RunAll(ctx context.Context, symbols []string, lookbackDays int, thresholds contracts.ThresholdConfig, maxWorkers int, progress ProgressFunc) contracts.ScreenReport {
	total := len(symbols)

	if maxWorkers < 1 {
		maxWorkers = 1
	}

	p.logger.WithFields(map[string]interface{}{
		"symbols":       total,
		"workers":       maxWorkers,
		"lookback_days": lookbackDays,
	}).Info("Starting screen batch")

	symbolCh := make(chan string, total)
	outcomeCh := make(chan outcome, total)

	workers := maxWorkers
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range symbolCh {
				select {
				case <-ctx.Done():
					// Drain the queue so every symbol still ends up in
					// the report, in failures rather than results.
					outcomeCh <- outcome{failure: &contracts.Failure{
						Symbol: symbol,
						Kind:   contracts.FailureFetch,
						Detail: ctx.Err().Error(),
					}}
					continue
				default:
				}
				result, failure := p.worker.Score(ctx, symbol, lookbackDays, thresholds)
				outcomeCh <- outcome{result: result, failure: failure}
			}
		}()
	}

	for _, symbol := range symbols {
		symbolCh <- symbol
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(outcomeCh)
	}()

	results := make([]contracts.ScreenResult, 0, total)
	failures := make(map[string]contracts.Failure)

	// Retain only the best-ranked series as outcomes stream in. Keeping
	// one per symbol would pin hundreds of series in memory at once.
	var best *contracts.ScreenResult
	var bestSeries contracts.PriceSeries

	done := 0
	for out := range outcomeCh {
		done++
		var symbol string
		if out.failure != nil {
			symbol = out.failure.Symbol
			failures[symbol] = *out.failure
		} else {
			res := *out.result
			symbol = res.Symbol
			if best == nil || resultLess(&res, best) {
				best = out.result
				bestSeries = res.Series
			}
			res.Series = nil
			results = append(results, res)
		}
		if progress != nil {
			progress(done, total, symbol)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return resultLess(&results[i], &results[j])
	})

	// The retention comparison and the sort share one key, so the
	// retained series belongs to results[0]: the top in-zone symbol, or
	// the top overall when nothing is in zone.
	if len(results) > 0 && bestSeries != nil {
		results[0].Series = bestSeries
	}

	report := contracts.ScreenReport{
		Config:        thresholds,
		AnalyzedCount: len(results),
		Results:       results,
		Failures:      failures,
	}

	p.logger.WithFields(map[string]interface{}{
		"analyzed": len(results),
		"failed":   len(failures),
		"in_zone":  report.InZoneCount(),
	}).Info("Screen batch completed")

	return report
}

// resultLess is the report ordering: in-zone results first, then RSI
// ascending with undefined RSI last, then symbol. The key is total, so
// identical inputs always produce identical report order.
func resultLess(a, b *contracts.ScreenResult) bool {
	if a.InDemandZone != b.InDemandZone {
		return a.InDemandZone
	}
	aRSI, bRSI := a.Indicators.RSI14, b.Indicators.RSI14
	switch {
	case aRSI != nil && bRSI != nil:
		if *aRSI != *bRSI {
			return *aRSI < *bRSI
		}
	case aRSI != nil:
		return true
	case bRSI != nil:
		return false
	}
	return a.Symbol < b.Symbol
}
