package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore returns a GameStore backed by the games and frames tables
func NewPostgresStore(db *sqlx.DB) GameStore {
	return &postgresStore{db: db}
}

func (s *postgresStore) SaveGame(ctx context.Context, game *Game) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO games (id, player_id, venue_id, table_size, state, current_frame,
			played_at, created_at, updated_at)
		VALUES (:id, :player_id, :venue_id, :table_size, :state, :current_frame,
			:played_at, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state,
			current_frame = EXCLUDED.current_frame,
			table_size = EXCLUDED.table_size,
			updated_at = EXCLUDED.updated_at`

	if _, err := tx.NamedExecContext(ctx, query, game); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}

	frameQuery := `
		INSERT INTO frames (game_id, frame_number, break_bonus, ball_count, running_total,
			completed, active, completed_at, notes)
		VALUES (:game_id, :frame_number, :break_bonus, :ball_count, :running_total,
			:completed, :active, :completed_at, :notes)
		ON CONFLICT (game_id, frame_number) DO UPDATE
		SET break_bonus = EXCLUDED.break_bonus,
			ball_count = EXCLUDED.ball_count,
			running_total = EXCLUDED.running_total,
			completed = EXCLUDED.completed,
			active = EXCLUDED.active,
			completed_at = EXCLUDED.completed_at,
			notes = EXCLUDED.notes`

	for i := range game.Frames {
		frame := game.Frames[i]
		frame.GameID = game.ID
		if _, err := tx.NamedExecContext(ctx, frameQuery, &frame); err != nil {
			return fmt.Errorf("failed to save frame %d: %w", frame.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit game: %w", err)
	}
	return nil
}

func (s *postgresStore) GetGame(ctx context.Context, id uuid.UUID) (*Game, error) {
	var game Game
	if err := s.db.GetContext(ctx, &game, `SELECT * FROM games WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	games := map[uuid.UUID]*Game{game.ID: &game}
	if err := s.loadFrames(ctx, games); err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *postgresStore) DeleteGame(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrGameNotFound
	}
	return nil
}

func (s *postgresStore) ListGames(ctx context.Context, filter GameFilter) ([]*Game, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.PlayerID != nil {
		args = append(args, *filter.PlayerID)
		where = append(where, fmt.Sprintf("player_id = $%d", len(args)))
	}
	if filter.VenueID != nil {
		args = append(args, *filter.VenueID)
		where = append(where, fmt.Sprintf("venue_id = $%d", len(args)))
	}
	if filter.State != nil {
		args = append(args, *filter.State)
		where = append(where, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		where = append(where, fmt.Sprintf("played_at >= $%d", len(args)))
	}

	query := `SELECT * FROM games`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY played_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var games []*Game
	if err := s.db.SelectContext(ctx, &games, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	if len(games) == 0 {
		return games, nil
	}

	byID := make(map[uuid.UUID]*Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}
	if err := s.loadFrames(ctx, byID); err != nil {
		return nil, err
	}
	return games, nil
}

func (s *postgresStore) loadFrames(ctx context.Context, games map[uuid.UUID]*Game) error {
	ids := make([]uuid.UUID, 0, len(games))
	for id := range games {
		ids = append(ids, id)
	}

	query, args, err := sqlx.In(`
		SELECT game_id, frame_number, break_bonus, ball_count, running_total,
			completed, active, completed_at, notes
		FROM frames
		WHERE game_id IN (?)
		ORDER BY game_id, frame_number`, ids)
	if err != nil {
		return fmt.Errorf("failed to build frames query: %w", err)
	}

	var frames []Frame
	if err := s.db.SelectContext(ctx, &frames, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to get frames: %w", err)
	}

	for _, f := range frames {
		g, ok := games[f.GameID]
		if !ok || f.Number < 1 || f.Number > len(g.Frames) {
			return fmt.Errorf("frame %d of game %s: %w", f.Number, f.GameID, ErrCorruptGame)
		}
		g.Frames[f.Number-1] = f
	}
	for _, g := range games {
		g.RecomputeRunningTotals()
	}
	return nil
}
