package game

import (
	"time"

	"github.com/google/uuid"

	"ninety-nine-go/internal/game/rules"
)

// EventType represents different types of session events
type EventType string

const (
	EventTypeCurrentGameChanged EventType = "current_game_changed"
	EventTypeFrameCompleted     EventType = "frame_completed"
	EventTypeGameCompleted      EventType = "game_completed"
)

// GameState represents the current state of a game
type GameState string

const (
	GameStateNotStarted GameState = "not_started"
	GameStateInProgress GameState = "in_progress"
	GameStatePaused     GameState = "paused"
	GameStateCompleted  GameState = "completed"
)

// FrameState is derived from a frame's completed and active flags
type FrameState string

const (
	FrameStatePending   FrameState = "pending"
	FrameStateActive    FrameState = "active"
	FrameStateCompleted FrameState = "completed"
)

// TableSize represents the size of the pool table a game was played on
type TableSize string

const (
	TableSizeUnknown    TableSize = "unknown"
	TableSizeSixFoot    TableSize = "6ft"
	TableSizeSevenFoot  TableSize = "7ft"
	TableSizeEightFoot  TableSize = "8ft"
	TableSizeNineFoot   TableSize = "9ft"
	TableSizeTenFoot    TableSize = "10ft"
	TableSizeTwelveFoot TableSize = "12ft"
)

var tableSizes = map[TableSize]bool{
	TableSizeUnknown:    true,
	TableSizeSixFoot:    true,
	TableSizeSevenFoot:  true,
	TableSizeEightFoot:  true,
	TableSizeNineFoot:   true,
	TableSizeTenFoot:    true,
	TableSizeTwelveFoot: true,
}

// Valid reports whether t is a known table size
func (t TableSize) Valid() bool {
	return tableSizes[t]
}

// Frame represents one of the nine racks of a game.
// A frame refers to its game by ID only; the game owns the frame.
type Frame struct {
	GameID       uuid.UUID  `json:"game_id" db:"game_id"`
	Number       int        `json:"frame_number" db:"frame_number"`
	BreakBonus   int        `json:"break_bonus" db:"break_bonus"`
	BallCount    int        `json:"ball_count" db:"ball_count"`
	RunningTotal int        `json:"running_total" db:"running_total"`
	Completed    bool       `json:"completed" db:"completed"`
	Active       bool       `json:"active" db:"active"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Notes        *string    `json:"notes,omitempty" db:"notes"`
}

// Game represents a single game of Ninety-Nine
type Game struct {
	ID           uuid.UUID                  `json:"id" db:"id"`
	PlayerID     uuid.UUID                  `json:"player_id" db:"player_id"`
	VenueID      uuid.UUID                  `json:"venue_id" db:"venue_id"`
	TableSize    TableSize                  `json:"table_size" db:"table_size"`
	State        GameState                  `json:"state" db:"state"`
	CurrentFrame int                        `json:"current_frame" db:"current_frame"`
	PlayedAt     time.Time                  `json:"played_at" db:"played_at"`
	CreatedAt    time.Time                  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at" db:"updated_at"`
	Frames       [rules.FramesPerGame]Frame `json:"frames" db:"-"`
}

// Event represents a change to the session's current game
type Event struct {
	Type      EventType  `json:"type"`
	GameID    *uuid.UUID `json:"game_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Game      *Game      `json:"game,omitempty"`
	Frame     *Frame     `json:"frame,omitempty"`
}

// GameFilter defines the criteria for filtering games
type GameFilter struct {
	PlayerID *uuid.UUID
	VenueID  *uuid.UUID
	State    *GameState
	Since    *time.Time
	Limit    int
	Offset   int
}
