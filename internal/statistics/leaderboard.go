package statistics

import (
	"github.com/google/uuid"

	"ninety-nine-go/internal/game"
	"ninety-nine-go/internal/game/ranking"
)

// Leaderboard ranks players by their mean score over completed games. A
// limit of zero or less returns every player.
func Leaderboard(history []*game.Game, limit int) []LeaderboardEntry {
	groups := make(map[uuid.UUID][]*game.Game)
	var order []uuid.UUID
	for _, g := range filterGames(history, isCompleted) {
		if _, ok := groups[g.PlayerID]; !ok {
			order = append(order, g.PlayerID)
		}
		groups[g.PlayerID] = append(groups[g.PlayerID], g)
	}

	entries := make(map[string]LeaderboardEntry, len(groups))
	standings := make([]ranking.Standing, 0, len(groups))
	for _, playerID := range order {
		games := groups[playerID]
		frames := completedFrames(games)
		entry := LeaderboardEntry{
			PlayerID:         playerID,
			AverageScore:     mean(totalScores(games)),
			HighestScore:     highestScore(games),
			TotalGames:       len(games),
			PerfectFrames:    countPerfectFrames(frames),
			BreakSuccessRate: breakSuccessRate(frames),
		}
		entry.Tier = ranking.GetTierByAverage(entry.AverageScore).Color

		key := playerID.String()
		entries[key] = entry
		standings = append(standings, ranking.Standing{
			PlayerID:     key,
			AverageScore: entry.AverageScore,
			HighestScore: entry.HighestScore,
			TotalGames:   entry.TotalGames,
		})
	}

	ranks := ranking.Rank(standings)
	if limit > 0 && len(standings) > limit {
		standings = standings[:limit]
	}

	board := make([]LeaderboardEntry, len(standings))
	for i, s := range standings {
		entry := entries[s.PlayerID]
		entry.Rank = ranks[i]
		board[i] = entry
	}
	return board
}
