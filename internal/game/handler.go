package game

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"ninety-nine-go/internal/auth"
)

type Handler struct {
	session     Session
	broadcaster *Broadcaster
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewHandler(session Session, broadcaster *Broadcaster, logger *slog.Logger, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{
		session:     session,
		broadcaster: broadcaster,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins[origin]
			},
		},
	}
}

type CreateGameRequest struct {
	PlayerID  *uuid.UUID `json:"player_id,omitempty"`
	VenueID   uuid.UUID  `json:"venue_id"`
	TableSize TableSize  `json:"table_size"`
}

// CompleteFrameRequest needs both scores; a missing field is not read as 0
type CompleteFrameRequest struct {
	BreakBonus *int    `json:"break_bonus"`
	BallCount  *int    `json:"ball_count"`
	Notes      *string `json:"notes,omitempty"`
}

type GameResponse struct {
	*Game
	TotalScore       int  `json:"total_score"`
	IsPerfect        bool `json:"is_perfect"`
	CanCompleteFrame bool `json:"can_complete_frame"`
	CanAdvance       bool `json:"can_advance"`
	CanReset         bool `json:"can_reset"`
	CanPause         bool `json:"can_pause"`
	CanResume        bool `json:"can_resume"`
}

type FrameResponse struct {
	*Frame
	FrameScore int  `json:"frame_score"`
	IsPerfect  bool `json:"is_perfect"`
}

func newGameResponse(g *Game) GameResponse {
	return GameResponse{
		Game:             g,
		TotalScore:       g.TotalScore(),
		IsPerfect:        g.IsPerfect(),
		CanCompleteFrame: g.CanCompleteFrame(),
		CanAdvance:       g.CanAdvance(),
		CanReset:         g.CanReset(),
		CanPause:         g.CanPause(),
		CanResume:        g.CanResume(),
	}
}

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	playerID, ok := h.playerID(r, req.PlayerID)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if req.TableSize == "" {
		req.TableSize = TableSizeUnknown
	}
	if !req.TableSize.Valid() {
		http.Error(w, "Invalid table size", http.StatusBadRequest)
		return
	}

	game, err := h.session.CreateGame(r.Context(), playerID, req.VenueID, req.TableSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newGameResponse(game))
}

func (h *Handler) LoadGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID, err := uuid.Parse(ps.ByName("gameID"))
	if err != nil {
		http.Error(w, "Invalid game ID", http.StatusBadRequest)
		return
	}

	game, err := h.session.LoadGame(r.Context(), gameID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newGameResponse(game))
}

func (h *Handler) GetCurrentGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	game, ok := h.session.CurrentGame()
	if !ok {
		h.writeError(w, r, ErrNoActiveGame)
		return
	}
	writeJSON(w, http.StatusOK, newGameResponse(game))
}

func (h *Handler) CompleteFrame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CompleteFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.BreakBonus == nil || req.BallCount == nil {
		http.Error(w, "break_bonus and ball_count are required", http.StatusBadRequest)
		return
	}

	frame, err := h.session.CompleteCurrentFrame(r.Context(), *req.BreakBonus, *req.BallCount, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, FrameResponse{
		Frame:      frame,
		FrameScore: frame.Score(),
		IsPerfect:  frame.IsPerfect(),
	})
}

func (h *Handler) AdvanceFrame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	advanced, err := h.session.AdvanceToNextFrame(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"advanced": advanced})
}

func (h *Handler) ResetFrame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.command(w, r, h.session.ResetCurrentFrame(r.Context()))
}

func (h *Handler) PauseGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.command(w, r, h.session.PauseGame(r.Context()))
}

func (h *Handler) ResumeGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.command(w, r, h.session.ResumeGame(r.Context()))
}

func (h *Handler) CompleteGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.command(w, r, h.session.CompleteGame(r.Context()))
}

func (h *Handler) ValidateGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]bool{"valid": h.session.ValidateCurrentGame()})
}

func (h *Handler) SubscribeToEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.broadcaster.Subscribe()
	defer unsubscribe()

	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			break
		}
	}
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	game, ok := h.session.CurrentGame()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, newGameResponse(game))
}

// playerID prefers the authenticated user and falls back to the request body
func (h *Handler) playerID(r *http.Request, fromBody *uuid.UUID) (uuid.UUID, bool) {
	if userID := auth.GetUserIDFromContext(r.Context()); userID != "" {
		id, err := uuid.Parse(userID)
		return id, err == nil
	}
	if fromBody != nil {
		return *fromBody, true
	}
	return uuid.Nil, false
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// StatusForError maps game errors to HTTP status codes
func StatusForError(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrInvalidScore):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoActiveGame), errors.Is(err, ErrNoActiveFrame), errors.Is(err, ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrFrameNotComplete), errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrAlreadyInitialized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) Register(router *httprouter.Router) {
	router.POST("/games", h.CreateGame)
	router.GET("/games/current", h.GetCurrentGame)
	router.POST("/games/current/frames", h.CompleteFrame)
	router.POST("/games/current/advance", h.AdvanceFrame)
	router.POST("/games/current/reset", h.ResetFrame)
	router.POST("/games/current/pause", h.PauseGame)
	router.POST("/games/current/resume", h.ResumeGame)
	router.POST("/games/current/complete", h.CompleteGame)
	router.GET("/games/current/validate", h.ValidateGame)
	router.GET("/games/current/events", h.SubscribeToEvents)
	router.POST("/games/load/:gameID", h.LoadGame)
}
