package statistics

import (
	"time"

	"github.com/google/uuid"

	"ninety-nine-go/internal/game"
)

// ProgressSeries returns one point per calendar day in the last days days
// on which the player completed at least one game. Days are taken in now's
// location.
func ProgressSeries(playerID uuid.UUID, history []*game.Game, days int, now time.Time) []ProgressPoint {
	if days <= 0 {
		days = DefaultProgressDays
	}
	cutoff := now.AddDate(0, 0, -days)
	today := startOfDay(now)

	byDay := make(map[time.Time][]*game.Game)
	var order []time.Time
	for _, g := range chronological(filterGames(history, func(g *game.Game) bool {
		return g.PlayerID == playerID && g.IsCompleted() && !g.PlayedAt.Before(cutoff)
	})) {
		day := startOfDay(g.PlayedAt.In(now.Location()))
		if day.After(today) {
			continue
		}
		if _, ok := byDay[day]; !ok {
			order = append(order, day)
		}
		byDay[day] = append(byDay[day], g)
	}

	points := make([]ProgressPoint, 0, len(order))
	for _, day := range order {
		games := byDay[day]
		point := ProgressPoint{
			Date:         day,
			AverageScore: mean(totalScores(games)),
			GamesPlayed:  len(games),
		}
		point.TrendLine = trendLine(points, point.AverageScore)
		points = append(points, point)
	}
	return points
}

// trendLine is the simple moving average of the current score and up to
// trendLinePoints preceding points.
func trendLine(previous []ProgressPoint, current float64) float64 {
	start := len(previous) - trendLinePoints
	if start < 0 {
		start = 0
	}
	window := make([]float64, 0, trendLinePoints+1)
	for _, p := range previous[start:] {
		window = append(window, p.AverageScore)
	}
	window = append(window, current)
	return mean(window)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
