package game

import (
	"context"

	"github.com/google/uuid"
)

// GameStore defines the interface for game persistence operations
type GameStore interface {
	// SaveGame inserts or replaces a game and its nine frames
	SaveGame(ctx context.Context, game *Game) error
	GetGame(ctx context.Context, id uuid.UUID) (*Game, error)
	DeleteGame(ctx context.Context, id uuid.UUID) error
	ListGames(ctx context.Context, filter GameFilter) ([]*Game, error)
}

// HistorySource supplies the games the statistics reports are computed from
type HistorySource interface {
	ListGames(ctx context.Context, filter GameFilter) ([]*Game, error)
}

// MultiStore fans saves out to a primary store and any number of secondary
// stores. Reads always go to the primary.
type MultiStore struct {
	primary     GameStore
	secondaries []GameStore
	onError     func(store int, err error)
}

func NewMultiStore(primary GameStore, onError func(store int, err error), secondaries ...GameStore) *MultiStore {
	return &MultiStore{primary: primary, secondaries: secondaries, onError: onError}
}

// SaveGame fails only when the primary save fails.
func (m *MultiStore) SaveGame(ctx context.Context, game *Game) error {
	if err := m.primary.SaveGame(ctx, game); err != nil {
		return err
	}
	for i, s := range m.secondaries {
		if err := s.SaveGame(ctx, game); err != nil && m.onError != nil {
			m.onError(i, err)
		}
	}
	return nil
}

func (m *MultiStore) GetGame(ctx context.Context, id uuid.UUID) (*Game, error) {
	return m.primary.GetGame(ctx, id)
}

func (m *MultiStore) DeleteGame(ctx context.Context, id uuid.UUID) error {
	return m.primary.DeleteGame(ctx, id)
}

func (m *MultiStore) ListGames(ctx context.Context, filter GameFilter) ([]*Game, error) {
	return m.primary.ListGames(ctx, filter)
}
