package handlers

import (
	"net/http"

	"github.com/demandzone/screener/internal/scheduler"
)

// JobsHandler exposes scheduler state.
type JobsHandler struct {
	scheduler *scheduler.Scheduler
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(sched *scheduler.Scheduler) *JobsHandler {
	return &JobsHandler{scheduler: sched}
}

// GetJobs returns per-job execution statistics.
// GET /api/jobs
func (h *JobsHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}
