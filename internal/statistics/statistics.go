// Package statistics reduces a history of games into player, venue,
// leaderboard, frame and progress reports. Every function is pure: it reads
// the games it is given and never mutates them, so independent snapshots of
// history can be reduced concurrently. Empty input yields zeroed reports.
package statistics

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"ninety-nine-go/internal/game"
)

func filterGames(history []*game.Game, keep func(*game.Game) bool) []*game.Game {
	var out []*game.Game
	for _, g := range history {
		if g != nil && keep(g) {
			out = append(out, g)
		}
	}
	return out
}

func byPlayer(playerID uuid.UUID) func(*game.Game) bool {
	return func(g *game.Game) bool { return g.PlayerID == playerID }
}

func byVenue(venueID uuid.UUID) func(*game.Game) bool {
	return func(g *game.Game) bool { return g.VenueID == venueID }
}

func isCompleted(g *game.Game) bool {
	return g.IsCompleted()
}

// completedFrames returns the locked-in frames of the given games
func completedFrames(games []*game.Game) []game.Frame {
	var frames []game.Frame
	for _, g := range games {
		for _, f := range g.Frames {
			if f.Completed {
				frames = append(frames, f)
			}
		}
	}
	return frames
}

// chronological returns a copy of games ordered by when they were played
func chronological(games []*game.Game) []*game.Game {
	sorted := make([]*game.Game, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PlayedAt.Before(sorted[j].PlayedAt)
	})
	return sorted
}

// mean is stat.Mean with an empty set reported as 0
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// populationStdDev divides by N, not N-1
func populationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.PopStdDev(values, nil)
}

func totalScores(games []*game.Game) []float64 {
	scores := make([]float64, len(games))
	for i, g := range games {
		scores[i] = float64(g.TotalScore())
	}
	return scores
}

func highestScore(games []*game.Game) int {
	highest := 0
	for _, g := range games {
		if s := g.TotalScore(); s > highest {
			highest = s
		}
	}
	return highest
}

func frameScores(frames []game.Frame) []float64 {
	scores := make([]float64, len(frames))
	for i, f := range frames {
		scores[i] = float64(f.Score())
	}
	return scores
}

func breakBonuses(frames []game.Frame) []float64 {
	values := make([]float64, len(frames))
	for i, f := range frames {
		values[i] = float64(f.BreakBonus)
	}
	return values
}

func ballCounts(frames []game.Frame) []float64 {
	values := make([]float64, len(frames))
	for i, f := range frames {
		values[i] = float64(f.BallCount)
	}
	return values
}

func countPerfectFrames(frames []game.Frame) int {
	n := 0
	for _, f := range frames {
		if f.IsPerfect() {
			n++
		}
	}
	return n
}

func countPerfectGames(games []*game.Game) int {
	n := 0
	for _, g := range games {
		if g.IsPerfect() {
			n++
		}
	}
	return n
}

// breakSuccessRate is the percentage of frames that earned the break bonus
func breakSuccessRate(frames []game.Frame) float64 {
	return mean(breakBonuses(frames)) * 100
}

func playedRange(games []*game.Game) (first, last *time.Time) {
	for _, g := range games {
		t := g.PlayedAt
		if first == nil || t.Before(*first) {
			first = &t
		}
		if last == nil || t.After(*last) {
			last = &t
		}
	}
	return first, last
}
