package handlers

import (
	"net/http"

	"github.com/demandzone/screener/internal/universe"
	"github.com/demandzone/screener/pkg/config"
	"github.com/demandzone/screener/pkg/logger"
)

// UniverseHandler serves the current screening universe.
type UniverseHandler struct {
	cache  *universe.Cache
	cfg    *config.Config
	logger *logger.Logger
}

// NewUniverseHandler creates a universe handler.
func NewUniverseHandler(cache *universe.Cache, cfg *config.Config, log *logger.Logger) *UniverseHandler {
	return &UniverseHandler{
		cache:  cache,
		cfg:    cfg,
		logger: log,
	}
}

// UniverseResponse is the universe endpoint payload.
type UniverseResponse struct {
	universe.Snapshot
	Size int `json:"size"`
}

// GetUniverse returns the current universe snapshot. refresh=true
// bypasses the cache TTL.
// GET /api/universe
func (h *UniverseHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	maxAge := h.cfg.Screen.UniverseMaxAge
	if r.URL.Query().Get("refresh") == "true" {
		maxAge = 0
	}

	snap := h.cache.Snapshot(r.Context(), maxAge)

	respondJSON(w, http.StatusOK, UniverseResponse{
		Snapshot: snap,
		Size:     snap.Size(),
	})
}
