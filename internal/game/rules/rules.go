package rules

import (
	"fmt"
)

// Scoring limits for a game of Ninety-Nine
const (
	FramesPerGame = 9
	MaxBreakBonus = 1
	MaxBallCount  = 10
	MaxFrameScore = MaxBreakBonus + MaxBallCount // 11
	MaxGameScore  = FramesPerGame * MaxFrameScore // 99
)

// Field names reported by validation failures
const (
	FieldBreakBonus  = "break_bonus"
	FieldBallCount   = "ball_count"
	FieldFrameScore  = "frame_score"
	FieldFrameNumber = "frame_number"
)

// Violation describes the first rule a frame score breaks
type Violation struct {
	Field  string
	Value  int
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s %d: %s", v.Field, v.Value, v.Reason)
}

// CheckScore validates a break bonus and ball count pair on its own.
func CheckScore(breakBonus, ballCount int) *Violation {
	if breakBonus < 0 || breakBonus > MaxBreakBonus {
		return &Violation{Field: FieldBreakBonus, Value: breakBonus, Reason: "must be 0 or 1"}
	}
	if ballCount < 0 || ballCount > MaxBallCount {
		return &Violation{Field: FieldBallCount, Value: ballCount, Reason: "must be between 0-10"}
	}
	if breakBonus+ballCount > MaxFrameScore {
		return &Violation{Field: FieldFrameScore, Value: breakBonus + ballCount, Reason: "cannot exceed 11"}
	}
	return nil
}

// CheckFrame validates a complete frame, including its position in the game.
func CheckFrame(frameNumber, breakBonus, ballCount int) *Violation {
	if v := CheckScore(breakBonus, ballCount); v != nil {
		return v
	}
	if !ValidFrameNumber(frameNumber) {
		return &Violation{Field: FieldFrameNumber, Value: frameNumber, Reason: "must be between 1-9"}
	}
	return nil
}

func ValidFrameNumber(n int) bool {
	return n >= 1 && n <= FramesPerGame
}

// IsPerfectFrame returns whether a frame score is the maximum possible
func IsPerfectFrame(score int) bool {
	return score == MaxFrameScore
}

// IsPerfectGame returns whether a game total is the maximum possible
func IsPerfectGame(total int) bool {
	return total == MaxGameScore
}
