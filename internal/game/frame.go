package game

import (
	"fmt"
	"time"

	"ninety-nine-go/internal/game/rules"
)

// ValidationError reports a frame score outside the rules.
// It matches ErrInvalidScore with errors.Is.
type ValidationError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidScore
}

func newValidationError(v *rules.Violation) *ValidationError {
	return &ValidationError{Field: v.Field, Value: v.Value, Reason: v.Reason}
}

// Score returns the break bonus plus the ball count
func (f *Frame) Score() int {
	return f.BreakBonus + f.BallCount
}

// IsValid checks the frame against the Ninety-Nine scoring rules
func (f *Frame) IsValid() bool {
	return rules.CheckFrame(f.Number, f.BreakBonus, f.BallCount) == nil
}

// IsPerfect returns whether the frame scored the maximum 11 points
func (f *Frame) IsPerfect() bool {
	return rules.IsPerfectFrame(f.Score())
}

func (f *Frame) State() FrameState {
	switch {
	case f.Completed:
		return FrameStateCompleted
	case f.Active:
		return FrameStateActive
	default:
		return FrameStatePending
	}
}

// Activate moves a pending frame to active.
func (f *Frame) Activate() error {
	if f.State() != FrameStatePending {
		return fmt.Errorf("activate frame %d from %s: %w", f.Number, f.State(), ErrInvalidTransition)
	}
	f.Active = true
	return nil
}

func (f *Frame) deactivate() {
	f.Active = false
}

// SetScore records the scores of an active frame. Nothing is written if
// either value is rejected.
func (f *Frame) SetScore(breakBonus, ballCount int) error {
	if f.State() != FrameStateActive {
		return fmt.Errorf("score frame %d while %s: %w", f.Number, f.State(), ErrInvalidTransition)
	}
	if v := rules.CheckScore(breakBonus, ballCount); v != nil {
		return newValidationError(v)
	}
	f.BreakBonus = breakBonus
	f.BallCount = ballCount
	return nil
}

// Complete locks in the frame score and computes its running total.
func (f *Frame) Complete(previousRunningTotal int, now time.Time) error {
	if f.State() != FrameStateActive {
		return fmt.Errorf("complete frame %d while %s: %w", f.Number, f.State(), ErrInvalidTransition)
	}
	if v := rules.CheckFrame(f.Number, f.BreakBonus, f.BallCount); v != nil {
		return fmt.Errorf("complete frame %d: %s: %w", f.Number, v, ErrInvalidState)
	}

	f.RunningTotal = previousRunningTotal + f.Score()
	f.Completed = true
	f.Active = false
	if f.CompletedAt == nil {
		completedAt := now
		f.CompletedAt = &completedAt
	}
	return nil
}

// Reset clears the frame so it can be scored again. The active flag is
// left to the game.
func (f *Frame) Reset() {
	f.BreakBonus = 0
	f.BallCount = 0
	f.RunningTotal = 0
	f.Completed = false
	f.CompletedAt = nil
	f.Notes = nil
}
