package statistics

import (
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"

	"ninety-nine-go/internal/game"
)

// Thresholds for improvement suggestions
const (
	lowBreakBonus        = 0.3
	lowBallCount         = 6.0
	lowConsistency       = 50.0
	wideFramePerformance = 3.0
)

const (
	SuggestionBreak       = "Focus on improving your break technique - aim for more break bonuses"
	SuggestionBallControl = "Work on ball control and positioning to increase your ball count per frame"
	SuggestionConsistency = "Practice maintaining consistent performance across all frames"
	SuggestionPressure    = "Practice pressure situations - your 9th frame performance could be stronger"
	SuggestionKeepGoing   = "Great consistency! Keep practicing to maintain your high performance level"
)

// FrameAnalysis examines a player's completed frames by frame number and
// suggests what to practice.
func FrameAnalysis(playerID uuid.UUID, history []*game.Game) FrameReport {
	report := FrameReport{
		PlayerID:               playerID,
		FramePerformance:       map[int]float64{},
		ImprovementSuggestions: []string{},
	}

	completed := filterGames(history, func(g *game.Game) bool {
		return g.PlayerID == playerID && g.IsCompleted()
	})
	frames := completedFrames(completed)
	if len(frames) == 0 {
		return report
	}

	report.FramesAnalyzed = len(frames)
	report.AverageBreakBonus = mean(breakBonuses(frames))
	report.AverageBallCount = mean(ballCounts(frames))
	report.ConsistencyScore = ConsistencyScore(frameScores(frames))

	byNumber := make(map[int][]float64)
	for _, f := range frames {
		byNumber[f.Number] = append(byNumber[f.Number], float64(f.Score()))
	}
	for number, scores := range byNumber {
		report.FramePerformance[number] = mean(scores)
	}

	report.StrongestFrameNumber, report.WeakestFrameNumber = extremes(report.FramePerformance)
	report.ImprovementSuggestions = suggestions(report)

	return report
}

// ConsistencyScore maps the population standard deviation of frame scores
// onto 0-100, where 100 means every frame scored the same.
func ConsistencyScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return math.Max(0, 100-populationStdDev(scores)*10)
}

// extremes returns the best and worst frame numbers. Ties go to the lower
// frame number.
func extremes(performance map[int]float64) (strongest, weakest int) {
	numbers := maps.Keys(performance)
	slices.Sort(numbers)

	for _, n := range numbers {
		if strongest == 0 || performance[n] > performance[strongest] {
			strongest = n
		}
		if weakest == 0 || performance[n] < performance[weakest] {
			weakest = n
		}
	}
	return strongest, weakest
}

func suggestions(report FrameReport) []string {
	var out []string

	if report.AverageBreakBonus < lowBreakBonus {
		out = append(out, SuggestionBreak)
	}
	if report.AverageBallCount < lowBallCount {
		out = append(out, SuggestionBallControl)
	}
	if report.ConsistencyScore < lowConsistency {
		out = append(out, SuggestionConsistency)
	}

	if len(report.FramePerformance) > 0 {
		values := maps.Values(report.FramePerformance)
		slices.Sort(values)
		if slices.Max(values)-slices.Min(values) > wideFramePerformance {
			out = append(out, fmt.Sprintf("Focus extra practice on Frame %d - it's your weakest area", report.WeakestFrameNumber))
		}
		if ninth, ok := report.FramePerformance[9]; ok && ninth < mean(values) {
			out = append(out, SuggestionPressure)
		}
	}

	if len(out) == 0 {
		out = append(out, SuggestionKeepGoing)
	}
	return out
}
