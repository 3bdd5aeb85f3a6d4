package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/demandzone/screener/internal/contracts"
	"github.com/demandzone/screener/internal/screen"
	"github.com/demandzone/screener/pkg/config"
	"github.com/demandzone/screener/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ScreenSocketHandler runs a screen per connection, streaming per-symbol
// progress as it goes. A batch over hundreds of symbols takes tens of
// seconds; without progress frames a browser client just stares at a
// spinner.
type ScreenSocketHandler struct {
	session *screen.Session
	latest  *screen.LatestReport
	cfg     *config.Config
	logger  *logger.Logger
}

// NewScreenSocketHandler creates the websocket screen handler.
func NewScreenSocketHandler(session *screen.Session, latest *screen.LatestReport, cfg *config.Config, log *logger.Logger) *ScreenSocketHandler {
	return &ScreenSocketHandler{
		session: session,
		latest:  latest,
		cfg:     cfg,
		logger:  log,
	}
}

// socketEvent is one websocket frame.
type socketEvent struct {
	Type    string                  `json:"type"` // progress, report, error
	Done    int                     `json:"done,omitempty"`
	Total   int                     `json:"total,omitempty"`
	Symbol  string                  `json:"symbol,omitempty"`
	Report  *contracts.ScreenReport `json:"report,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// Handle upgrades the connection, runs one screen with progress frames,
// sends the final report and closes.
// GET /ws/screen
func (h *ScreenSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	params := h.paramsFromQuery(r)

	// Progress fires on the goroutine running the collection loop, and
	// the report write happens after Run returns. Writes never overlap.
	var writeErr error
	params.Progress = func(done, total int, symbol string) {
		if writeErr != nil {
			return
		}
		writeErr = conn.WriteJSON(socketEvent{
			Type:   "progress",
			Done:   done,
			Total:  total,
			Symbol: symbol,
		})
	}

	report, err := h.session.Run(r.Context(), params)
	if err != nil {
		conn.WriteJSON(socketEvent{Type: "error", Message: err.Error()})
		return
	}
	if writeErr != nil {
		h.logger.WithError(writeErr).Debug("WebSocket client went away mid-run")
		return
	}

	h.latest.Set(report)

	if err := conn.WriteJSON(socketEvent{Type: "report", Report: report}); err != nil {
		h.logger.WithError(err).Debug("WebSocket report write failed")
	}
}

func (h *ScreenSocketHandler) paramsFromQuery(r *http.Request) screen.RunParams {
	params := screen.RunParams{TopN: h.cfg.Screen.TopN}

	q := r.URL.Query()
	if v := q.Get("top_n"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			params.TopN = n
		}
	}
	if q.Get("refresh") == "true" {
		params.RefreshUniverse = true
	}

	return params
}
