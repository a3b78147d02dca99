package statistics

import (
	"github.com/google/uuid"

	"ninety-nine-go/internal/game"
)

// VenueStatistics summarizes the games played at a venue
func VenueStatistics(venueID uuid.UUID, history []*game.Game) VenueSummary {
	stats := VenueSummary{
		VenueID:    venueID,
		TableUsage: map[game.TableSize]int{},
	}

	games := filterGames(history, byVenue(venueID))
	if len(games) == 0 {
		return stats
	}

	completed := filterGames(games, isCompleted)
	players := make(map[uuid.UUID]struct{})
	for _, g := range games {
		players[g.PlayerID] = struct{}{}
		stats.TableUsage[g.TableSize]++
	}

	stats.TotalGames = len(games)
	stats.CompletedGames = len(completed)
	stats.AverageScore = mean(totalScores(completed))
	stats.HighestScore = highestScore(completed)
	stats.PerfectGames = countPerfectGames(completed)
	stats.UniquePlayers = len(players)
	stats.FirstGameAt, stats.LastGameAt = playedRange(games)

	return stats
}
