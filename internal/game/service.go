package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoActiveGame = errors.New("no active game")
	ErrGameNotFound = errors.New("game not found")
)

const DefaultEventBuffer = 100

// Session holds the single game being scored and the commands that change it.
// Every successful command emits at most one event per kind on Events.
type Session interface {
	CreateGame(ctx context.Context, playerID, venueID uuid.UUID, tableSize TableSize) (*Game, error)
	LoadGame(ctx context.Context, gameID uuid.UUID) (*Game, error)
	CurrentGame() (*Game, bool)
	CompleteCurrentFrame(ctx context.Context, breakBonus, ballCount int, notes *string) (*Frame, error)
	AdvanceToNextFrame(ctx context.Context) (bool, error)
	ResetCurrentFrame(ctx context.Context) error
	PauseGame(ctx context.Context) error
	ResumeGame(ctx context.Context) error
	CompleteGame(ctx context.Context) error
	ValidateCurrentGame() bool
	SaveCurrentGame(ctx context.Context) error
	Events() <-chan Event
	Close(ctx context.Context) error
}

type session struct {
	mu        sync.Mutex
	store     GameStore
	logger    *slog.Logger
	now       func() time.Time
	current   *Game
	eventChan chan Event

	saves   chan *Game
	done    chan struct{}
	stopped chan struct{}
}

type Option func(*session)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *session) {
		s.now = now
	}
}

// WithEventBuffer sets the capacity of the event channel
func WithEventBuffer(n int) Option {
	return func(s *session) {
		s.eventChan = make(chan Event, n)
	}
}

// NewSession creates a session persisting through store. Saves run on a
// background goroutine and never block or roll back a command.
func NewSession(store GameStore, logger *slog.Logger, opts ...Option) Session {
	s := &session{
		store:     store,
		logger:    logger,
		now:       time.Now,
		eventChan: make(chan Event, DefaultEventBuffer),
		saves:     make(chan *Game, DefaultEventBuffer),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.persist()
	return s
}

func (s *session) CreateGame(ctx context.Context, playerID, venueID uuid.UUID, tableSize TableSize) (*Game, error) {
	game := NewGame(playerID, venueID, tableSize, s.now())
	if err := game.InitializeFrames(); err != nil {
		return nil, fmt.Errorf("failed to initialize game: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = game
	s.logger.InfoContext(ctx, "game created",
		"game_id", game.ID, "player_id", playerID, "venue_id", venueID, "table_size", tableSize)

	s.emitEvent(EventTypeCurrentGameChanged, game, nil)
	s.enqueueSave(game)

	return game.Clone(), nil
}

func (s *session) LoadGame(ctx context.Context, gameID uuid.UUID) (*Game, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := game.CheckInvariants(); err != nil {
		s.logger.ErrorContext(ctx, "refusing to load corrupt game", "game_id", gameID, "error", err)
		return nil, err
	}
	game.RecomputeRunningTotals()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = game
	s.logger.InfoContext(ctx, "game loaded", "game_id", game.ID, "state", game.State)
	s.emitEvent(EventTypeCurrentGameChanged, game, nil)

	return game.Clone(), nil
}

// CurrentGame returns a copy of the current game, or false if there is none
func (s *session) CurrentGame() (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, false
	}
	return s.current.Clone(), true
}

func (s *session) CompleteCurrentFrame(ctx context.Context, breakBonus, ballCount int, notes *string) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.current
	if game == nil {
		return nil, ErrNoActiveGame
	}

	wasCompleted := game.IsCompleted()
	frame, err := game.CompleteCurrentFrame(breakBonus, ballCount, notes, s.now())
	if err != nil {
		s.logger.WarnContext(ctx, "frame rejected",
			"game_id", game.ID, "frame", game.CurrentFrame,
			"break_bonus", breakBonus, "ball_count", ballCount, "error", err)
		return nil, err
	}

	completed := *frame
	s.logger.InfoContext(ctx, "frame completed",
		"game_id", game.ID, "frame", completed.Number,
		"score", completed.Score(), "running_total", completed.RunningTotal)

	eventFrame := completed
	s.emitEvent(EventTypeFrameCompleted, game, &eventFrame)
	s.checkCompleted(ctx, game, wasCompleted)
	s.enqueueSave(game)

	return &completed, nil
}

func (s *session) AdvanceToNextFrame(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.current
	if game == nil {
		return false, ErrNoActiveGame
	}

	wasCompleted := game.IsCompleted()
	advanced, err := game.AdvanceToNextFrame()
	if err != nil {
		return false, err
	}

	s.checkCompleted(ctx, game, wasCompleted)
	s.enqueueSave(game)

	return advanced, nil
}

func (s *session) ResetCurrentFrame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.current
	if game == nil {
		return ErrNoActiveGame
	}
	if err := game.ResetCurrentFrame(); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "frame reset", "game_id", game.ID, "frame", game.CurrentFrame)
	s.enqueueSave(game)
	return nil
}

func (s *session) PauseGame(ctx context.Context) error {
	return s.transition(ctx, "paused", (*Game).Pause)
}

func (s *session) ResumeGame(ctx context.Context) error {
	return s.transition(ctx, "resumed", (*Game).Resume)
}

func (s *session) transition(ctx context.Context, verb string, apply func(*Game) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.current
	if game == nil {
		return ErrNoActiveGame
	}
	if err := apply(game); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "game "+verb, "game_id", game.ID)
	s.enqueueSave(game)
	return nil
}

func (s *session) CompleteGame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.current
	if game == nil {
		return ErrNoActiveGame
	}

	wasCompleted := game.IsCompleted()
	if err := game.Complete(); err != nil {
		return err
	}

	s.checkCompleted(ctx, game, wasCompleted)
	s.enqueueSave(game)
	return nil
}

func (s *session) ValidateCurrentGame() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	return s.current.Validate()
}

// SaveCurrentGame writes the current game synchronously.
func (s *session) SaveCurrentGame(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoActiveGame
	}
	snapshot := s.current.Clone()
	s.mu.Unlock()

	if !snapshot.Validate() {
		return fmt.Errorf("save game %s: %w", snapshot.ID, ErrCorruptGame)
	}
	if err := s.store.SaveGame(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (s *session) Events() <-chan Event {
	return s.eventChan
}

// Close stops accepting saves and waits for queued ones to be written. If
// ctx expires first the saver keeps draining in the background and exits
// once the queue is empty; Close may be called again to wait for it.
func (s *session) Close(ctx context.Context) error {
	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
		close(s.saves)
	}
	s.mu.Unlock()

	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) checkCompleted(ctx context.Context, game *Game, wasCompleted bool) {
	if wasCompleted || !game.IsCompleted() {
		return
	}
	s.logger.InfoContext(ctx, "game completed",
		"game_id", game.ID, "total_score", game.TotalScore(), "perfect", game.IsPerfect())
	s.emitEvent(EventTypeGameCompleted, game, nil)
}

// emitEvent must be called with s.mu held. A full buffer drops the event,
// except game_completed, which evicts the oldest buffered event instead.
func (s *session) emitEvent(eventType EventType, game *Game, frame *Frame) {
	event := Event{
		Type:      eventType,
		Timestamp: s.now(),
		Frame:     frame,
	}
	if game != nil {
		id := game.ID
		event.GameID = &id
		event.Game = game.Clone()
	}

	select {
	case s.eventChan <- event:
		return
	default:
	}

	if eventType != EventTypeGameCompleted {
		s.logger.Warn("event dropped, buffer full", "type", eventType)
		return
	}
	// Only emitEvent sends, and it runs under s.mu, so one receive frees a slot
	select {
	case evicted := <-s.eventChan:
		s.logger.Warn("event dropped, buffer full", "type", evicted.Type)
	default:
	}
	select {
	case s.eventChan <- event:
	default:
		s.logger.Warn("event dropped, buffer full", "type", eventType)
	}
}

// enqueueSave must be called with s.mu held.
func (s *session) enqueueSave(game *Game) {
	select {
	case <-s.done:
		s.logger.Warn("session closed, save skipped", "game_id", game.ID)
		return
	default:
	}

	select {
	case s.saves <- game.Clone():
	default:
		s.logger.Warn("save queue full, save skipped", "game_id", game.ID)
	}
}

func (s *session) persist() {
	defer close(s.stopped)
	for game := range s.saves {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.store.SaveGame(ctx, game); err != nil {
			s.logger.Error("failed to save game", "game_id", game.ID, "error", err)
		}
		cancel()
	}
}
