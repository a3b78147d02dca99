package statistics

import (
	"time"

	"github.com/google/uuid"

	"ninety-nine-go/internal/game"
)

const (
	DefaultLeaderboardLimit = 10
	DefaultRecentLimit      = 10
	DefaultProgressDays     = 30

	// Number of games at each end of a player's history compared by the
	// improvement trend
	trendWindow = 5
	// Points preceding the current one that feed the progress trend line
	trendLinePoints = 5
)

// PlayerSummary is the overall statistics of one player
type PlayerSummary struct {
	PlayerID             uuid.UUID              `json:"player_id"`
	TotalGames           int                    `json:"total_games"`
	CompletedGames       int                    `json:"completed_games"`
	AverageScore         float64                `json:"average_score"`
	HighestScore         int                    `json:"highest_score"`
	PerfectGames         int                    `json:"perfect_games"`
	PerfectFrames        int                    `json:"perfect_frames"`
	AverageFrameScore    float64                `json:"average_frame_score"`
	TotalFramesPlayed    int                    `json:"total_frames_played"`
	BreakSuccessRate     float64                `json:"break_success_rate"`
	TableSizePreferences map[game.TableSize]int `json:"table_size_preferences"`
	ScoreDistribution    map[int]int            `json:"score_distribution"`
	FirstGameAt          *time.Time             `json:"first_game_at,omitempty"`
	LastGameAt           *time.Time             `json:"last_game_at,omitempty"`
	DaysPlaying          int                    `json:"days_playing"`
	ImprovementTrend     float64                `json:"improvement_trend"`
}

// VenueSummary is the statistics of all games played at one venue
type VenueSummary struct {
	VenueID        uuid.UUID              `json:"venue_id"`
	TotalGames     int                    `json:"total_games"`
	CompletedGames int                    `json:"completed_games"`
	AverageScore   float64                `json:"average_score"`
	HighestScore   int                    `json:"highest_score"`
	PerfectGames   int                    `json:"perfect_games"`
	UniquePlayers  int                    `json:"unique_players"`
	TableUsage     map[game.TableSize]int `json:"table_usage"`
	FirstGameAt    *time.Time             `json:"first_game_at,omitempty"`
	LastGameAt     *time.Time             `json:"last_game_at,omitempty"`
}

// LeaderboardEntry is one ranked player
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	PlayerID         uuid.UUID `json:"player_id"`
	AverageScore     float64   `json:"average_score"`
	HighestScore     int       `json:"highest_score"`
	TotalGames       int       `json:"total_games"`
	PerfectFrames    int       `json:"perfect_frames"`
	BreakSuccessRate float64   `json:"break_success_rate"`
	Tier             string    `json:"tier"`
}

// FrameReport breaks a player's scoring down by frame number
type FrameReport struct {
	PlayerID               uuid.UUID       `json:"player_id"`
	FramesAnalyzed         int             `json:"frames_analyzed"`
	AverageBreakBonus      float64         `json:"average_break_bonus"`
	AverageBallCount       float64         `json:"average_ball_count"`
	FramePerformance       map[int]float64 `json:"frame_performance"`
	StrongestFrameNumber   int             `json:"strongest_frame_number"`
	WeakestFrameNumber     int             `json:"weakest_frame_number"`
	ConsistencyScore       float64         `json:"consistency_score"`
	ImprovementSuggestions []string        `json:"improvement_suggestions"`
}

// ProgressPoint is one calendar day with at least one completed game
type ProgressPoint struct {
	Date         time.Time `json:"date"`
	AverageScore float64   `json:"average_score"`
	GamesPlayed  int       `json:"games_played"`
	TrendLine    float64   `json:"trend_line"`
}
