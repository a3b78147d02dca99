package ranking

import (
	"math"
	"sort"
)

// Tier represents a leaderboard band earned by a player's average score
type Tier struct {
	Color    string
	MinScore float64
	MaxScore float64
}

// Available tiers in ascending order. MaxScore is exclusive except for Red.
var Tiers = []Tier{
	{Color: "Gray", MinScore: 0, MaxScore: 50},
	{Color: "Violet", MinScore: 50, MaxScore: 60},
	{Color: "Indigo", MinScore: 60, MaxScore: 70},
	{Color: "Blue", MinScore: 70, MaxScore: 80},
	{Color: "Green", MinScore: 80, MaxScore: 90},
	{Color: "Yellow", MinScore: 90, MaxScore: 95},
	{Color: "Orange", MinScore: 95, MaxScore: 99},
	{Color: "Red", MinScore: 99, MaxScore: 99},
}

// GetTierByAverage returns the tier for an average game score
func GetTierByAverage(average float64) Tier {
	if math.IsNaN(average) || average < 0 {
		return Tiers[0]
	}
	for _, tier := range Tiers {
		if average >= tier.MinScore && (average < tier.MaxScore || tier.MinScore == tier.MaxScore) {
			return tier
		}
	}
	return Tiers[len(Tiers)-1]
}

// Standing is the input to Rank: one player's aggregate over completed games
type Standing struct {
	PlayerID     string
	AverageScore float64
	HighestScore int
	TotalGames   int
}

// Rank orders standings best first and returns 1-based ranks parallel to the
// sorted slice. Ties on average are broken by highest score, then games
// played, then player ID.
func Rank(standings []Standing) []int {
	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		if a.HighestScore != b.HighestScore {
			return a.HighestScore > b.HighestScore
		}
		if a.TotalGames != b.TotalGames {
			return a.TotalGames > b.TotalGames
		}
		return a.PlayerID < b.PlayerID
	})

	ranks := make([]int, len(standings))
	for i := range standings {
		ranks[i] = i + 1
	}
	return ranks
}
