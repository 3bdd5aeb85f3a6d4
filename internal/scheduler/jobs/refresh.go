package jobs

import (
	"context"
	"fmt"

	"github.com/demandzone/screener/internal/screen"
	"github.com/demandzone/screener/pkg/config"
	"github.com/demandzone/screener/pkg/logger"
)

// ScreenRefreshJob reruns the screen on a schedule so the latest-report
// endpoint always serves current data without a client having to wait
// for a full run.
type ScreenRefreshJob struct {
	session *screen.Session
	latest  *screen.LatestReport
	cfg     *config.Config
	logger  *logger.Logger
}

// NewScreenRefreshJob creates the periodic screening job.
func NewScreenRefreshJob(session *screen.Session, latest *screen.LatestReport, cfg *config.Config, log *logger.Logger) *ScreenRefreshJob {
	return &ScreenRefreshJob{
		session: session,
		latest:  latest,
		cfg:     cfg,
		logger:  log,
	}
}

// Name returns the job name
func (j *ScreenRefreshJob) Name() string {
	return "screen_refresh"
}

// Schedule returns the configured cron expression
func (j *ScreenRefreshJob) Schedule() string {
	return j.cfg.Screen.RefreshSpec
}

// Run executes one full screening pass and publishes the report.
func (j *ScreenRefreshJob) Run(ctx context.Context) error {
	report, err := j.session.Run(ctx, screen.RunParams{
		TopN: j.cfg.Screen.TopN,
	})
	if err != nil {
		return fmt.Errorf("scheduled screen: %w", err)
	}

	j.latest.Set(report)

	j.logger.WithFields(map[string]interface{}{
		"run_id":   report.RunID,
		"analyzed": report.AnalyzedCount,
		"in_zone":  report.InZoneCount(),
	}).Info("Scheduled screen published")

	return nil
}
