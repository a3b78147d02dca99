package statistics

import (
	"github.com/google/uuid"

	"ninety-nine-go/internal/game"
)

// PlayerStatistics summarizes every game a player has in history. Score and
// frame figures only count completed games.
func PlayerStatistics(playerID uuid.UUID, history []*game.Game) PlayerSummary {
	stats := PlayerSummary{
		PlayerID:             playerID,
		TableSizePreferences: map[game.TableSize]int{},
		ScoreDistribution:    map[int]int{},
	}

	games := filterGames(history, byPlayer(playerID))
	if len(games) == 0 {
		return stats
	}

	completed := filterGames(games, isCompleted)
	frames := completedFrames(completed)

	stats.TotalGames = len(games)
	stats.CompletedGames = len(completed)
	stats.AverageScore = mean(totalScores(completed))
	stats.HighestScore = highestScore(completed)
	stats.PerfectGames = countPerfectGames(completed)
	stats.PerfectFrames = countPerfectFrames(frames)
	stats.AverageFrameScore = mean(frameScores(frames))
	stats.TotalFramesPlayed = len(frames)
	stats.BreakSuccessRate = breakSuccessRate(frames)

	stats.FirstGameAt, stats.LastGameAt = playedRange(games)
	stats.DaysPlaying = int(stats.LastGameAt.Sub(*stats.FirstGameAt).Hours()/24) + 1

	for _, g := range completed {
		stats.TableSizePreferences[g.TableSize]++
		stats.ScoreDistribution[scoreBucket(g.TotalScore())]++
	}

	stats.ImprovementTrend = improvementTrend(completed)

	return stats
}

// RecentGames returns a player's games, most recently played first
func RecentGames(playerID uuid.UUID, history []*game.Game, limit int) []*game.Game {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	games := chronological(filterGames(history, byPlayer(playerID)))

	recent := make([]*game.Game, 0, limit)
	for i := len(games) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, games[i])
	}
	return recent
}

// scoreBucket groups totals by tens: 0-9 -> 0, 70-79 -> 70, 99 -> 90
func scoreBucket(total int) int {
	return (total / 10) * 10
}

// improvementTrend compares the most recent games with the earliest ones.
// The two windows overlap when fewer than ten games have been completed.
func improvementTrend(completed []*game.Game) float64 {
	if len(completed) < 2 {
		return 0
	}
	sorted := chronological(completed)

	n := trendWindow
	if len(sorted) < n {
		n = len(sorted)
	}
	earliest := sorted[:n]
	recent := sorted[len(sorted)-n:]

	return mean(totalScores(recent)) - mean(totalScores(earliest))
}
