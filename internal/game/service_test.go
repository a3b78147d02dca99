package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSession(store GameStore) Session {
	return NewSession(store, discardLogger(), WithClock(func() time.Time { return testTime }))
}

// drainEvents returns every event currently buffered on the session
func drainEvents(s Session) []Event {
	var events []Event
	for {
		select {
		case e := <-s.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func closeSession(t *testing.T, s Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}

func TestSessionCreateGame(t *testing.T) {
	store := newMemoryStore()
	s := newTestSession(store)
	ctx := context.Background()
	playerID := uuid.New()

	game, err := s.CreateGame(ctx, playerID, uuid.New(), TableSizeEightFoot)
	require.NoError(t, err)
	assert.Equal(t, playerID, game.PlayerID)
	assert.Equal(t, GameStateInProgress, game.State)
	assert.Equal(t, testTime, game.PlayedAt)

	events := drainEvents(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeCurrentGameChanged, events[0].Type)
	require.NotNil(t, events[0].GameID)
	assert.Equal(t, game.ID, *events[0].GameID)

	current, ok := s.CurrentGame()
	require.True(t, ok)
	assert.Equal(t, game.ID, current.ID)

	closeSession(t, s)
	saved, err := store.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, GameStateInProgress, saved.State)
}

func TestSessionWithoutGame(t *testing.T) {
	s := newTestSession(newMemoryStore())
	ctx := context.Background()
	defer closeSession(t, s)

	_, ok := s.CurrentGame()
	assert.False(t, ok)

	_, err := s.CompleteCurrentFrame(ctx, 1, 5, nil)
	assert.ErrorIs(t, err, ErrNoActiveGame)
	_, err = s.AdvanceToNextFrame(ctx)
	assert.ErrorIs(t, err, ErrNoActiveGame)
	assert.ErrorIs(t, s.ResetCurrentFrame(ctx), ErrNoActiveGame)
	assert.ErrorIs(t, s.PauseGame(ctx), ErrNoActiveGame)
	assert.ErrorIs(t, s.ResumeGame(ctx), ErrNoActiveGame)
	assert.ErrorIs(t, s.CompleteGame(ctx), ErrNoActiveGame)
	assert.ErrorIs(t, s.SaveCurrentGame(ctx), ErrNoActiveGame)
	assert.False(t, s.ValidateCurrentGame())
	assert.Empty(t, drainEvents(s))
}

func TestSessionPlaysFullGame(t *testing.T) {
	store := newMemoryStore()
	s := newTestSession(store)
	ctx := context.Background()

	game, err := s.CreateGame(ctx, uuid.New(), uuid.New(), TableSizeNineFoot)
	require.NoError(t, err)
	drainEvents(s)

	for i := 1; i <= 9; i++ {
		frame, err := s.CompleteCurrentFrame(ctx, 1, 10, nil)
		require.NoError(t, err)
		assert.Equal(t, i, frame.Number)
		assert.Equal(t, 11*i, frame.RunningTotal)
	}

	events := drainEvents(s)
	require.Len(t, events, 10)
	for _, e := range events[:9] {
		assert.Equal(t, EventTypeFrameCompleted, e.Type)
		require.NotNil(t, e.Frame)
	}
	assert.Equal(t, EventTypeGameCompleted, events[9].Type)
	assert.Equal(t, 99, events[9].Game.TotalScore())

	// completing an already completed game does not announce it again
	require.NoError(t, s.CompleteGame(ctx))
	assert.Empty(t, drainEvents(s))

	assert.True(t, s.ValidateCurrentGame())
	closeSession(t, s)

	saved, err := store.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.True(t, saved.IsPerfect())
}

func TestSessionRejectedFrame(t *testing.T) {
	s := newTestSession(newMemoryStore())
	ctx := context.Background()
	defer closeSession(t, s)

	_, err := s.CreateGame(ctx, uuid.New(), uuid.New(), TableSizeSevenFoot)
	require.NoError(t, err)
	drainEvents(s)

	_, err = s.CompleteCurrentFrame(ctx, 1, 11, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ball_count", verr.Field)
	assert.Empty(t, drainEvents(s))

	_, err = s.AdvanceToNextFrame(ctx)
	assert.ErrorIs(t, err, ErrFrameNotComplete)

	current, _ := s.CurrentGame()
	assert.Equal(t, 1, current.CurrentFrame)
	assert.Zero(t, current.TotalScore())
}

func TestSessionSaveFailureKeepsState(t *testing.T) {
	store := &MockGameStore{}
	store.On("SaveGame", mock.Anything, mock.AnythingOfType("*game.Game")).Return(errors.New("database is down"))
	s := newTestSession(store)
	ctx := context.Background()

	_, err := s.CreateGame(ctx, uuid.New(), uuid.New(), TableSizeSixFoot)
	require.NoError(t, err)
	frame, err := s.CompleteCurrentFrame(ctx, 0, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, frame.RunningTotal)

	closeSession(t, s)

	current, ok := s.CurrentGame()
	require.True(t, ok)
	assert.Equal(t, 2, current.CurrentFrame)
	assert.Equal(t, 7, current.TotalScore())
	store.AssertNumberOfCalls(t, "SaveGame", 2)

	assert.ErrorContains(t, s.SaveCurrentGame(ctx), "database is down")
}

func TestSessionPauseResume(t *testing.T) {
	s := newTestSession(newMemoryStore())
	ctx := context.Background()
	defer closeSession(t, s)

	_, err := s.CreateGame(ctx, uuid.New(), uuid.New(), TableSizeTenFoot)
	require.NoError(t, err)

	require.NoError(t, s.PauseGame(ctx))
	_, err = s.CompleteCurrentFrame(ctx, 1, 5, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, s.PauseGame(ctx), ErrInvalidTransition)

	require.NoError(t, s.ResumeGame(ctx))
	_, err = s.CompleteCurrentFrame(ctx, 1, 5, nil)
	assert.NoError(t, err)
}

func TestSessionLoadGame(t *testing.T) {
	ctx := context.Background()

	t.Run("resumes a stored game", func(t *testing.T) {
		stored := NewGame(uuid.New(), uuid.New(), TableSizeEightFoot, testTime)
		require.NoError(t, stored.InitializeFrames())
		for i := 0; i < 3; i++ {
			_, err := stored.CompleteCurrentFrame(1, 6, nil, testTime)
			require.NoError(t, err)
		}
		stored.Frames[2].RunningTotal = 0

		store := &MockGameStore{}
		store.On("GetGame", mock.Anything, stored.ID).Return(stored, nil)
		store.On("SaveGame", mock.Anything, mock.AnythingOfType("*game.Game")).Return(nil)
		s := newTestSession(store)
		defer closeSession(t, s)

		game, err := s.LoadGame(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, 21, game.Frames[2].RunningTotal)
		assert.Equal(t, 4, game.CurrentFrame)
		assert.Equal(t, []EventType{EventTypeCurrentGameChanged}, eventTypes(drainEvents(s)))

		frame, err := s.CompleteCurrentFrame(ctx, 0, 3, nil)
		require.NoError(t, err)
		assert.Equal(t, 24, frame.RunningTotal)
	})

	t.Run("missing game", func(t *testing.T) {
		store := &MockGameStore{}
		store.On("GetGame", mock.Anything, mock.Anything).Return(nil, ErrGameNotFound)
		s := newTestSession(store)
		defer closeSession(t, s)

		_, err := s.LoadGame(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrGameNotFound)
		_, ok := s.CurrentGame()
		assert.False(t, ok)
	})

	corruptions := []struct {
		name    string
		corrupt func(g *Game)
	}{
		{"second active frame", func(g *Game) { g.Frames[5].Active = true }},
		{"no active frame", func(g *Game) { g.Frames[1].Active = false }},
		{"current frame past incomplete frames", func(g *Game) {
			g.Frames[1].Active = false
			g.Frames[4].Active = true
			g.CurrentFrame = 5
		}},
	}
	for _, tt := range corruptions {
		t.Run("corrupt game: "+tt.name, func(t *testing.T) {
			stored := NewGame(uuid.New(), uuid.New(), TableSizeEightFoot, testTime)
			require.NoError(t, stored.InitializeFrames())
			_, err := stored.CompleteCurrentFrame(1, 6, nil, testTime)
			require.NoError(t, err)
			tt.corrupt(stored)

			store := &MockGameStore{}
			store.On("GetGame", mock.Anything, stored.ID).Return(stored, nil)
			s := newTestSession(store)
			defer closeSession(t, s)

			_, err = s.LoadGame(ctx, stored.ID)
			assert.ErrorIs(t, err, ErrCorruptGame)
			assert.Empty(t, drainEvents(s))
			_, ok := s.CurrentGame()
			assert.False(t, ok)
		})
	}
}

func TestSessionReturnsCopies(t *testing.T) {
	s := newTestSession(newMemoryStore())
	ctx := context.Background()
	defer closeSession(t, s)

	game, err := s.CreateGame(ctx, uuid.New(), uuid.New(), TableSizeNineFoot)
	require.NoError(t, err)
	game.State = GameStateCompleted
	game.Frames[0].BallCount = 10

	current, _ := s.CurrentGame()
	assert.Equal(t, GameStateInProgress, current.State)
	assert.Zero(t, current.Frames[0].BallCount)
}

func TestSessionDropsEventsWhenBufferFull(t *testing.T) {
	s := NewSession(newMemoryStore(), discardLogger(), WithEventBuffer(1))
	ctx := context.Background()
	defer closeSession(t, s)

	_, err := s.CreateGame(ctx, uuid.New(), uuid.New(), TableSizeNineFoot)
	require.NoError(t, err)
	_, err = s.CompleteCurrentFrame(ctx, 1, 2, nil)
	require.NoError(t, err)

	events := drainEvents(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeCurrentGameChanged, events[0].Type)
}

func TestSessionKeepsGameCompletedWhenBufferFull(t *testing.T) {
	s := NewSession(newMemoryStore(), discardLogger(), WithEventBuffer(1))
	ctx := context.Background()
	defer closeSession(t, s)

	_, err := s.CreateGame(ctx, uuid.New(), uuid.New(), TableSizeNineFoot)
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		_, err = s.CompleteCurrentFrame(ctx, 1, 10, nil)
		require.NoError(t, err)
	}

	events := drainEvents(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeGameCompleted, events[0].Type)
	assert.Equal(t, 99, events[0].Game.TotalScore())
}

func TestSessionCloseTimeout(t *testing.T) {
	release := make(chan struct{})
	store := &MockGameStore{}
	store.On("SaveGame", mock.Anything, mock.AnythingOfType("*game.Game")).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	s := newTestSession(store)
	_, err := s.CreateGame(context.Background(), uuid.New(), uuid.New(), TableSizeNineFoot)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Close(ctx), context.DeadlineExceeded)

	// Commands after Close are still applied but no longer saved
	_, err = s.CompleteCurrentFrame(context.Background(), 1, 4, nil)
	require.NoError(t, err)

	close(release)
	closeSession(t, s)
	store.AssertNumberOfCalls(t, "SaveGame", 1)
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster(4)
	events := make(chan Event)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, unsubscribeFirst := b.Subscribe()
	second, unsubscribeSecond := b.Subscribe()
	defer unsubscribeSecond()

	done := make(chan struct{})
	go func() {
		b.Run(ctx, events)
		close(done)
	}()

	events <- Event{Type: EventTypeFrameCompleted}
	assert.Equal(t, EventTypeFrameCompleted, (<-first).Type)
	assert.Equal(t, EventTypeFrameCompleted, (<-second).Type)

	unsubscribeFirst()
	unsubscribeFirst()
	_, open := <-first
	assert.False(t, open)

	close(events)
	<-done
	_, open = <-second
	assert.False(t, open)
}
