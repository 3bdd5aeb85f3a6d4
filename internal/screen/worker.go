package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/demandzone/screener/internal/contracts"
	"github.com/demandzone/screener/internal/indicator"
	"github.com/demandzone/screener/pkg/logger"
)

// HistoryProvider supplies daily price history for one symbol. The pool
// calls it from many goroutines at once, so implementations must be safe
// for concurrent use.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, lookbackDays int) (contracts.PriceSeries, error)
}

// Worker fetches one symbol's history and scores it against the
// demand-zone thresholds. It holds no per-run state; a single Worker is
// shared by every goroutine in the pool.
type Worker struct {
	provider     HistoryProvider
	fetchTimeout time.Duration
	logger       *logger.Logger
}

// NewWorker creates a scoring worker. fetchTimeout bounds each history
// fetch so one stuck symbol cannot hang a batch; zero disables the bound.
func NewWorker(provider HistoryProvider, fetchTimeout time.Duration, log *logger.Logger) *Worker {
	return &Worker{
		provider:     provider,
		fetchTimeout: fetchTimeout,
		logger:       log.WithField("module", "screen"),
	}
}

// Score fetches history for symbol and computes its indicators and
// demand-zone classification. Exactly one of the returns is non-nil: a
// result when the symbol was analyzable, a failure otherwise. The result
// carries the fetched series; the pool decides which series to retain.
func (w *Worker) Score(ctx context.Context, symbol string, lookbackDays int, thresholds contracts.ThresholdConfig) (*contracts.ScreenResult, *contracts.Failure) {
	fetchCtx := ctx
	if w.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, w.fetchTimeout)
		defer cancel()
	}

	series, err := w.provider.FetchHistory(fetchCtx, symbol, lookbackDays)
	if err != nil {
		w.logger.WithError(err).WithField("symbol", symbol).Warn("History fetch failed")
		return nil, &contracts.Failure{
			Symbol: symbol,
			Kind:   contracts.FailureFetch,
			Detail: err.Error(),
		}
	}

	if len(series) < 2 {
		return nil, &contracts.Failure{
			Symbol: symbol,
			Kind:   contracts.FailureInsufficientData,
			Detail: fmt.Sprintf("only %d sessions returned", len(series)),
		}
	}

	ind, err := indicator.Compute(series)
	if err != nil {
		kind := contracts.FailureInsufficientData
		if errors.Is(err, indicator.ErrNonPositiveLow) {
			// Corrupt input, not unavailability. Keep it loud and
			// distinct so it is never mistaken for a fetch problem.
			kind = contracts.FailureDataIntegrity
			w.logger.WithError(err).WithField("symbol", symbol).Error("Data integrity failure")
		}
		return nil, &contracts.Failure{
			Symbol: symbol,
			Kind:   kind,
			Detail: err.Error(),
		}
	}

	return &contracts.ScreenResult{
		Symbol:       symbol,
		Indicators:   ind,
		InDemandZone: thresholds.InZone(ind),
		Series:       series,
	}, nil
}
