package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ninety-nine-go/internal/game/rules"
)

var (
	ErrInvalidScore       = errors.New("invalid frame score")
	ErrInvalidState       = errors.New("invalid frame state")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrFrameNotComplete   = errors.New("current frame is not complete")
	ErrNoActiveFrame      = errors.New("no active frame")
	ErrAlreadyInitialized = errors.New("game frames already initialized")
	ErrCorruptGame        = errors.New("corrupt game structure")
)

// NewGame creates a game with nine pending frames. Call InitializeFrames to
// start play.
func NewGame(playerID, venueID uuid.UUID, tableSize TableSize, now time.Time) *Game {
	if !tableSize.Valid() {
		tableSize = TableSizeUnknown
	}
	g := &Game{
		ID:           uuid.New(),
		PlayerID:     playerID,
		VenueID:      venueID,
		TableSize:    tableSize,
		State:        GameStateNotStarted,
		CurrentFrame: 1,
		PlayedAt:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i := range g.Frames {
		g.Frames[i] = Frame{GameID: g.ID, Number: i + 1}
	}
	return g
}

// InitializeFrames activates the first frame and puts the game in progress.
// A game can only be initialized once; start a new Game to play again.
func (g *Game) InitializeFrames() error {
	if g.State != GameStateNotStarted {
		return fmt.Errorf("initialize game in state %s: %w", g.State, ErrAlreadyInitialized)
	}
	for i := range g.Frames {
		g.Frames[i] = Frame{GameID: g.ID, Number: i + 1}
	}
	g.CurrentFrame = 1
	if err := g.Frames[0].Activate(); err != nil {
		return err
	}
	g.State = GameStateInProgress
	return nil
}

// Frame returns the frame with the given number, or nil if out of range
func (g *Game) Frame(number int) *Frame {
	if !rules.ValidFrameNumber(number) {
		return nil
	}
	return &g.Frames[number-1]
}

// ActiveFrame returns the frame currently being scored, if any
func (g *Game) ActiveFrame() (*Frame, bool) {
	f := g.Frame(g.CurrentFrame)
	if f == nil || !f.Active {
		return nil, false
	}
	return f, true
}

// TotalScore sums the scores of completed frames
func (g *Game) TotalScore() int {
	total := 0
	for i := range g.Frames {
		if g.Frames[i].Completed {
			total += g.Frames[i].Score()
		}
	}
	return total
}

func (g *Game) IsCompleted() bool {
	return g.State == GameStateCompleted
}

func (g *Game) IsInProgress() bool {
	return g.State == GameStateInProgress
}

// IsPerfect returns whether the game finished with 99 points
func (g *Game) IsPerfect() bool {
	return g.IsCompleted() && rules.IsPerfectGame(g.TotalScore())
}

// CompletedFrames returns the number of locked-in frames
func (g *Game) CompletedFrames() int {
	n := 0
	for i := range g.Frames {
		if g.Frames[i].Completed {
			n++
		}
	}
	return n
}

func (g *Game) allFramesCompleted() bool {
	return g.CompletedFrames() == rules.FramesPerGame
}

func (g *Game) runningTotalBefore(number int) int {
	total := 0
	for i := range g.Frames {
		f := &g.Frames[i]
		if f.Number < number && f.Completed {
			total += f.Score()
		}
	}
	return total
}

// CanCompleteFrame reports whether CompleteCurrentFrame may be called now
func (g *Game) CanCompleteFrame() bool {
	_, ok := g.ActiveFrame()
	return ok && g.IsInProgress()
}

// CanAdvance reports whether AdvanceToNextFrame would succeed
func (g *Game) CanAdvance() bool {
	if g.IsCompleted() || g.State == GameStateNotStarted {
		return false
	}
	f := g.Frame(g.CurrentFrame)
	return f == nil || f.Completed
}

// CanReset reports whether there is an active frame to clear
func (g *Game) CanReset() bool {
	_, ok := g.ActiveFrame()
	return ok
}

func (g *Game) CanPause() bool {
	return g.State == GameStateInProgress
}

func (g *Game) CanResume() bool {
	return g.State == GameStatePaused
}

// CompleteCurrentFrame scores and locks in the active frame, then moves on to
// the next frame or completes the game after frame 9.
func (g *Game) CompleteCurrentFrame(breakBonus, ballCount int, notes *string, now time.Time) (*Frame, error) {
	frame, ok := g.ActiveFrame()
	if !ok {
		return nil, ErrNoActiveFrame
	}
	if g.State != GameStateInProgress {
		return nil, fmt.Errorf("complete frame while game %s: %w", g.State, ErrInvalidTransition)
	}
	if v := rules.CheckScore(breakBonus, ballCount); v != nil {
		return nil, newValidationError(v)
	}

	if err := frame.SetScore(breakBonus, ballCount); err != nil {
		return nil, err
	}
	if err := frame.Complete(g.runningTotalBefore(frame.Number), now); err != nil {
		return nil, err
	}
	frame.Notes = notes
	g.UpdatedAt = now

	if g.CurrentFrame < rules.FramesPerGame {
		g.CurrentFrame++
		if err := g.Frames[g.CurrentFrame-1].Activate(); err != nil {
			return nil, err
		}
	} else {
		g.State = GameStateCompleted
	}

	return frame, nil
}

// AdvanceToNextFrame moves play to the next frame once the current one is
// complete. It returns false when there is no frame to advance to, in which
// case the game is completed.
func (g *Game) AdvanceToNextFrame() (bool, error) {
	if g.State == GameStateNotStarted {
		return false, fmt.Errorf("advance game in state %s: %w", g.State, ErrInvalidTransition)
	}
	if current := g.Frame(g.CurrentFrame); current != nil && !current.Completed {
		return false, ErrFrameNotComplete
	}
	if g.CurrentFrame >= rules.FramesPerGame {
		g.finish()
		return false, nil
	}

	g.Frames[g.CurrentFrame-1].deactivate()
	g.CurrentFrame++
	next := &g.Frames[g.CurrentFrame-1]
	if !next.Completed {
		if err := next.Activate(); err != nil {
			return false, err
		}
	}
	if g.allFramesCompleted() {
		g.finish()
	}
	return true, nil
}

// ResetCurrentFrame clears the scores of the active frame
func (g *Game) ResetCurrentFrame() error {
	frame, ok := g.ActiveFrame()
	if !ok {
		return ErrNoActiveFrame
	}
	frame.Reset()
	return nil
}

func (g *Game) Pause() error {
	if !g.CanPause() {
		return fmt.Errorf("pause game in state %s: %w", g.State, ErrInvalidTransition)
	}
	g.State = GameStatePaused
	return nil
}

func (g *Game) Resume() error {
	if !g.CanResume() {
		return fmt.Errorf("resume game in state %s: %w", g.State, ErrInvalidTransition)
	}
	g.State = GameStateInProgress
	return nil
}

// Complete ends the game regardless of how many frames were played.
func (g *Game) Complete() error {
	if g.State == GameStateNotStarted {
		return fmt.Errorf("complete game in state %s: %w", g.State, ErrInvalidTransition)
	}
	g.finish()
	return nil
}

func (g *Game) finish() {
	for i := range g.Frames {
		g.Frames[i].deactivate()
	}
	g.State = GameStateCompleted
}

// Validate checks the frame structure and every completed frame. It never
// mutates the game.
func (g *Game) Validate() bool {
	if g.CheckInvariants() != nil {
		return false
	}
	for i := range g.Frames {
		f := &g.Frames[i]
		if f.Completed && !f.IsValid() {
			return false
		}
	}
	return true
}

// CheckInvariants reports structural problems that can only come from a game
// built outside this package, such as one loaded from storage.
func (g *Game) CheckInvariants() error {
	seen := make(map[int]bool, rules.FramesPerGame)
	active := 0
	for i := range g.Frames {
		f := &g.Frames[i]
		if f.Number != i+1 {
			return fmt.Errorf("frame at position %d has number %d: %w", i+1, f.Number, ErrCorruptGame)
		}
		if seen[f.Number] {
			return fmt.Errorf("duplicate frame number %d: %w", f.Number, ErrCorruptGame)
		}
		seen[f.Number] = true
		if f.Active {
			active++
			if f.Number != g.CurrentFrame {
				return fmt.Errorf("frame %d active while current frame is %d: %w", f.Number, g.CurrentFrame, ErrCorruptGame)
			}
		}
	}
	if active > 1 {
		return fmt.Errorf("%d active frames: %w", active, ErrCorruptGame)
	}
	if g.IsCompleted() && active != 0 {
		return fmt.Errorf("completed game has an active frame: %w", ErrCorruptGame)
	}
	if !rules.ValidFrameNumber(g.CurrentFrame) {
		return fmt.Errorf("current frame %d: %w", g.CurrentFrame, ErrCorruptGame)
	}

	switch g.State {
	case GameStateInProgress, GameStatePaused:
		if active != 1 {
			return fmt.Errorf("%s game has %d active frames: %w", g.State, active, ErrCorruptGame)
		}
	case GameStateNotStarted:
		if active != 0 {
			return fmt.Errorf("game not started but frame %d is active: %w", g.CurrentFrame, ErrCorruptGame)
		}
	}

	// A forced completion may leave frames unplayed behind the current one
	if !g.IsCompleted() {
		for i := 0; i < g.CurrentFrame-1; i++ {
			if !g.Frames[i].Completed {
				return fmt.Errorf("current frame %d is past incomplete frame %d: %w",
					g.CurrentFrame, g.Frames[i].Number, ErrCorruptGame)
			}
		}
	}
	return nil
}

// RecomputeRunningTotals rebuilds running totals from the frame scores.
func (g *Game) RecomputeRunningTotals() {
	total := 0
	for i := range g.Frames {
		f := &g.Frames[i]
		if !f.Completed {
			f.RunningTotal = 0
			continue
		}
		total += f.Score()
		f.RunningTotal = total
	}
}

// Clone returns a deep copy of the game, safe to hand to another goroutine.
func (g *Game) Clone() *Game {
	c := *g
	for i := range c.Frames {
		f := &c.Frames[i]
		if f.CompletedAt != nil {
			t := *f.CompletedAt
			f.CompletedAt = &t
		}
		if f.Notes != nil {
			n := *f.Notes
			f.Notes = &n
		}
	}
	return &c
}
