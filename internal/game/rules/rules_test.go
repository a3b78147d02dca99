package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimits(t *testing.T) {
	assert.Equal(t, 11, MaxFrameScore)
	assert.Equal(t, 99, MaxGameScore)
}

func TestCheckScore(t *testing.T) {
	tests := []struct {
		name       string
		breakBonus int
		ballCount  int
		wantField  string
	}{
		{name: "Zero frame", breakBonus: 0, ballCount: 0},
		{name: "Perfect frame", breakBonus: 1, ballCount: 10},
		{name: "Typical frame", breakBonus: 1, ballCount: 7},
		{name: "Negative break bonus", breakBonus: -1, ballCount: 5, wantField: FieldBreakBonus},
		{name: "Break bonus of two", breakBonus: 2, ballCount: 5, wantField: FieldBreakBonus},
		{name: "Negative ball count", breakBonus: 0, ballCount: -1, wantField: FieldBallCount},
		{name: "Ball count over ten", breakBonus: 1, ballCount: 11, wantField: FieldBallCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CheckScore(tt.breakBonus, tt.ballCount)
			if tt.wantField == "" {
				assert.Nil(t, v)
				return
			}
			if assert.NotNil(t, v) {
				assert.Equal(t, tt.wantField, v.Field)
			}
		})
	}
}

func TestCheckFrame(t *testing.T) {
	tests := []struct {
		name        string
		frameNumber int
		wantErr     bool
	}{
		{"First frame", 1, false},
		{"Last frame", 9, false},
		{"Frame zero", 0, true},
		{"Frame ten", 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CheckFrame(tt.frameNumber, 1, 5)
			if tt.wantErr {
				assert.NotNil(t, v)
				assert.Equal(t, FieldFrameNumber, v.Field)
			} else {
				assert.Nil(t, v)
			}
		})
	}
}

func TestPerfectPredicates(t *testing.T) {
	assert.True(t, IsPerfectFrame(11))
	assert.False(t, IsPerfectFrame(10))
	assert.True(t, IsPerfectGame(99))
	assert.False(t, IsPerfectGame(98))
}

func TestViolationError(t *testing.T) {
	v := CheckScore(2, 0)
	assert.EqualError(t, v, "break_bonus 2: must be 0 or 1")
}
