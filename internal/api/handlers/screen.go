package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/demandzone/screener/internal/contracts"
	"github.com/demandzone/screener/internal/screen"
	"github.com/demandzone/screener/pkg/config"
	"github.com/demandzone/screener/pkg/logger"
)

// ScreenHandler serves screening runs and the latest published report.
type ScreenHandler struct {
	session *screen.Session
	latest  *screen.LatestReport
	cfg     *config.Config
	logger  *logger.Logger
}

// NewScreenHandler creates a screen handler.
func NewScreenHandler(session *screen.Session, latest *screen.LatestReport, cfg *config.Config, log *logger.Logger) *ScreenHandler {
	return &ScreenHandler{
		session: session,
		latest:  latest,
		cfg:     cfg,
		logger:  log,
	}
}

// ScreenRequest overrides the configured screening parameters. Pointer
// fields distinguish an omitted value from an explicit zero: top_n 0
// legitimately means the whole universe.
type ScreenRequest struct {
	RSIMax                *float64 `json:"rsi_max,omitempty"`
	DistanceFromLowMaxPct *float64 `json:"distance_from_low_max_pct,omitempty"`
	VolumeMin             *int64   `json:"volume_min,omitempty"`
	TopN                  *int     `json:"top_n,omitempty"`
	LookbackDays          int      `json:"lookback_days,omitempty"`
	RefreshUniverse       bool     `json:"refresh_universe,omitempty"`
}

// runParams maps the request onto the configured defaults.
func (h *ScreenHandler) runParams(req ScreenRequest) screen.RunParams {
	thresholds := contracts.ThresholdConfig{
		RSIMax:                h.cfg.Screen.RSIMax,
		DistanceFromLowMaxPct: h.cfg.Screen.DistanceFromLowMaxPct,
		VolumeMin:             h.cfg.Screen.VolumeMin,
	}
	if req.RSIMax != nil {
		thresholds.RSIMax = *req.RSIMax
	}
	if req.DistanceFromLowMaxPct != nil {
		thresholds.DistanceFromLowMaxPct = *req.DistanceFromLowMaxPct
	}
	if req.VolumeMin != nil {
		thresholds.VolumeMin = *req.VolumeMin
	}

	topN := h.cfg.Screen.TopN
	if req.TopN != nil {
		topN = *req.TopN
	}

	return screen.RunParams{
		TopN:            topN,
		LookbackDays:    req.LookbackDays,
		RefreshUniverse: req.RefreshUniverse,
		Thresholds:      thresholds,
	}
}

// RunScreen runs a screen synchronously and returns the full report.
// POST /api/screen
func (h *ScreenHandler) RunScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ScreenRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	report, err := h.session.Run(ctx, h.runParams(req))
	if err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Screen run failed")
		respondError(w, http.StatusInternalServerError, "Screen run failed")
		return
	}

	h.latest.Set(report)

	respondJSON(w, http.StatusOK, report)
}

// GetLatest returns the most recently published report.
// GET /api/screen/latest
func (h *ScreenHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latest.Get()
	if !ok {
		respondError(w, http.StatusNotFound, "No screen has completed yet")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
