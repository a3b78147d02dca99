package game

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockGameStore is a mock implementation of GameStore
type MockGameStore struct {
	mock.Mock
}

func (m *MockGameStore) SaveGame(ctx context.Context, game *Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *MockGameStore) GetGame(ctx context.Context, id uuid.UUID) (*Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Game), args.Error(1)
}

func (m *MockGameStore) DeleteGame(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGameStore) ListGames(ctx context.Context, filter GameFilter) ([]*Game, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Game), args.Error(1)
}

// memoryStore records every save, for tests that care about what was
// written rather than how often
type memoryStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*Game
	saves int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{games: make(map[uuid.UUID]*Game)}
}

func (s *memoryStore) SaveGame(_ context.Context, game *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game.Clone()
	s.saves++
	return nil
}

func (s *memoryStore) GetGame(_ context.Context, id uuid.UUID) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return g.Clone(), nil
}

func (s *memoryStore) DeleteGame(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
	return nil
}

func (s *memoryStore) ListGames(_ context.Context, _ GameFilter) ([]*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	games := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g.Clone())
	}
	return games, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
