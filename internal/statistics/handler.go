package statistics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"ninety-nine-go/internal/game"
)

// Handler serves the statistics reports over HTTP. History is read from the
// store on every request; nothing is cached.
type Handler struct {
	history game.HistorySource
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(history game.HistorySource, logger *slog.Logger) *Handler {
	return &Handler{history: history, logger: logger, now: time.Now}
}

func (h *Handler) PlayerStatistics(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	playerID, ok := parseID(w, ps.ByName("playerID"))
	if !ok {
		return
	}
	games, ok := h.load(w, r, game.GameFilter{PlayerID: &playerID})
	if !ok {
		return
	}
	writeJSON(w, PlayerStatistics(playerID, games))
}

func (h *Handler) RecentGames(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	playerID, ok := parseID(w, ps.ByName("playerID"))
	if !ok {
		return
	}
	games, ok := h.load(w, r, game.GameFilter{PlayerID: &playerID})
	if !ok {
		return
	}
	writeJSON(w, RecentGames(playerID, games, queryInt(r, "limit", DefaultRecentLimit)))
}

func (h *Handler) FrameAnalysis(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	playerID, ok := parseID(w, ps.ByName("playerID"))
	if !ok {
		return
	}
	completed := game.GameStateCompleted
	games, ok := h.load(w, r, game.GameFilter{PlayerID: &playerID, State: &completed})
	if !ok {
		return
	}
	writeJSON(w, FrameAnalysis(playerID, games))
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	playerID, ok := parseID(w, ps.ByName("playerID"))
	if !ok {
		return
	}
	days := queryInt(r, "days", DefaultProgressDays)
	now := h.now()
	since := now.AddDate(0, 0, -days)
	completed := game.GameStateCompleted
	games, ok := h.load(w, r, game.GameFilter{PlayerID: &playerID, State: &completed, Since: &since})
	if !ok {
		return
	}
	writeJSON(w, ProgressSeries(playerID, games, days, now))
}

func (h *Handler) VenueStatistics(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	venueID, ok := parseID(w, ps.ByName("venueID"))
	if !ok {
		return
	}
	games, ok := h.load(w, r, game.GameFilter{VenueID: &venueID})
	if !ok {
		return
	}
	writeJSON(w, VenueStatistics(venueID, games))
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	completed := game.GameStateCompleted
	games, ok := h.load(w, r, game.GameFilter{State: &completed})
	if !ok {
		return
	}
	writeJSON(w, Leaderboard(games, queryInt(r, "limit", DefaultLeaderboardLimit)))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, filter game.GameFilter) ([]*game.Game, bool) {
	games, err := h.history.ListGames(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load history", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return games, true
}

func (h *Handler) Register(router *httprouter.Router) {
	router.GET("/stats/players/:playerID", h.PlayerStatistics)
	router.GET("/stats/players/:playerID/recent", h.RecentGames)
	router.GET("/stats/players/:playerID/frames", h.FrameAnalysis)
	router.GET("/stats/players/:playerID/progress", h.Progress)
	router.GET("/stats/venues/:venueID", h.VenueStatistics)
	router.GET("/stats/leaderboard", h.Leaderboard)
}

func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
