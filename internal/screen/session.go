package screen

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/demandzone/screener/internal/contracts"
	"github.com/demandzone/screener/internal/universe"
	"github.com/demandzone/screener/pkg/config"
	"github.com/demandzone/screener/pkg/logger"
)

// RunParams are the per-run knobs of a screening session. Zero values
// fall back to the configured defaults, except TopN where zero means
// the whole universe, and RefreshUniverse which bypasses the cache TTL.
// A non-empty Symbols list bypasses universe resolution entirely and
// screens exactly those symbols; TopN is ignored for explicit lists.
type RunParams struct {
	TopN            int
	LookbackDays    int
	MaxWorkers      int
	UniverseMaxAge  time.Duration
	RefreshUniverse bool
	Symbols         []string
	Thresholds      contracts.ThresholdConfig
	Progress        ProgressFunc
}

// Session wires universe resolution and the scoring pool into complete
// screening runs.
type Session struct {
	universe *universe.Cache
	pool     *Pool
	cfg      *config.Config
	logger   *logger.Logger
}

// NewSession creates a screening session.
func NewSession(cache *universe.Cache, pool *Pool, cfg *config.Config, log *logger.Logger) *Session {
	return &Session{
		universe: cache,
		pool:     pool,
		cfg:      cfg,
		logger:   log.WithField("module", "session"),
	}
}

// Run resolves the universe, screens the first TopN symbols in universe
// order and returns the assembled report. Symbol selection is a
// deterministic prefix, never a sample, so two runs over the same
// snapshot screen the same symbols. An explicit Symbols list skips
// resolution and is screened as given.
func (s *Session) Run(ctx context.Context, params RunParams) (*contracts.ScreenReport, error) {
	params = s.withDefaults(params)

	if err := params.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("screen run: %w", err)
	}

	start := time.Now()

	var snap universe.Snapshot
	var symbols []string
	if len(params.Symbols) > 0 {
		snap = universe.Snapshot{
			Symbols:   universe.NormalizeList(params.Symbols),
			FetchedAt: time.Now().UTC(),
			Source:    universe.SourceManual,
		}
		symbols = snap.Symbols
	} else {
		maxAge := params.UniverseMaxAge
		if params.RefreshUniverse {
			maxAge = 0
		}
		snap = s.universe.Snapshot(ctx, maxAge)

		symbols = snap.Symbols
		if params.TopN > 0 && params.TopN < len(symbols) {
			symbols = symbols[:params.TopN]
		}
	}

	report := s.pool.RunAll(ctx, symbols, params.LookbackDays, params.Thresholds, params.MaxWorkers, params.Progress)

	report.RunID = uuid.New().String()
	report.GeneratedAt = time.Now().UTC()
	report.Duration = time.Since(start)
	report.UniverseSize = snap.Size()
	report.UniverseSource = string(snap.Source)

	s.logger.WithFields(map[string]interface{}{
		"run_id":          report.RunID,
		"universe_size":   report.UniverseSize,
		"universe_source": report.UniverseSource,
		"screened":        len(symbols),
		"analyzed":        report.AnalyzedCount,
		"failed":          len(report.Failures),
		"in_zone":         report.InZoneCount(),
		"duration":        report.Duration.String(),
	}).Info("Screen run completed")

	return &report, nil
}

func (s *Session) withDefaults(params RunParams) RunParams {
	if params.LookbackDays <= 0 {
		params.LookbackDays = s.cfg.Screen.LookbackDays
	}
	if params.MaxWorkers <= 0 {
		params.MaxWorkers = s.cfg.Screen.MaxWorkers
	}
	if params.UniverseMaxAge <= 0 {
		params.UniverseMaxAge = s.cfg.Screen.UniverseMaxAge
	}
	if params.Thresholds == (contracts.ThresholdConfig{}) {
		params.Thresholds = contracts.ThresholdConfig{
			RSIMax:                s.cfg.Screen.RSIMax,
			DistanceFromLowMaxPct: s.cfg.Screen.DistanceFromLowMaxPct,
			VolumeMin:             s.cfg.Screen.VolumeMin,
		}
	}
	return params
}
