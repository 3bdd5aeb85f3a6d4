package screen

import (
	"sync"

	"github.com/demandzone/screener/internal/contracts"
)

// LatestReport holds the most recent completed report for the API's
// latest endpoint and the scheduled refresh job. Reports are immutable
// once published, so readers share the stored pointer.
type LatestReport struct {
	mu     sync.RWMutex
	report *contracts.ScreenReport
}

// NewLatestReport creates an empty holder.
func NewLatestReport() *LatestReport {
	return &LatestReport{}
}

// Set replaces the held report.
func (l *LatestReport) Set(report *contracts.ScreenReport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.report = report
}

// Get returns the held report, false when no run has completed yet.
func (l *LatestReport) Get() (*contracts.ScreenReport, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.report == nil {
		return nil, false
	}
	return l.report, true
}
