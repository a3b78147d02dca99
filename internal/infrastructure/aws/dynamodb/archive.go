package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"ninety-nine-go/internal/game"
)

// API is the subset of the DynamoDB client used by the archive
type API interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// ArchiveItem is a completed game as stored in DynamoDB. Frames are kept
// inline since a game never has more than nine.
type ArchiveItem struct {
	ID           string      `dynamodbav:"id"`
	PlayerID     string      `dynamodbav:"player_id"`
	VenueID      string      `dynamodbav:"venue_id"`
	TableSize    string      `dynamodbav:"table_size"`
	State        string      `dynamodbav:"state"`
	CurrentFrame int         `dynamodbav:"current_frame"`
	TotalScore   int         `dynamodbav:"total_score"`
	Perfect      bool        `dynamodbav:"perfect"`
	PlayedAt     time.Time   `dynamodbav:"played_at"`
	CreatedAt    time.Time   `dynamodbav:"created_at"`
	UpdatedAt    time.Time   `dynamodbav:"updated_at"`
	Frames       []FrameItem `dynamodbav:"frames"`
}

type FrameItem struct {
	Number      int        `dynamodbav:"frame_number"`
	BreakBonus  int        `dynamodbav:"break_bonus"`
	BallCount   int        `dynamodbav:"ball_count"`
	Completed   bool       `dynamodbav:"completed"`
	CompletedAt *time.Time `dynamodbav:"completed_at,omitempty"`
	Notes       *string    `dynamodbav:"notes,omitempty"`
}

// ArchiveStore keeps completed games in a DynamoDB table. Games still in
// play are not archived.
type ArchiveStore struct {
	client API
	table  string
}

func NewArchiveStore(client API, table string) *ArchiveStore {
	return &ArchiveStore{client: client, table: table}
}

func (s *ArchiveStore) SaveGame(ctx context.Context, g *game.Game) error {
	if !g.IsCompleted() {
		return nil
	}

	item, err := attributevalue.MarshalMap(toItem(g))
	if err != nil {
		return fmt.Errorf("failed to marshal game %s: %w", g.ID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to archive game %s: %w", g.ID, err)
	}
	return nil
}

func (s *ArchiveStore) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       gameKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get archived game %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, game.ErrGameNotFound
	}

	var item ArchiveItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game %s: %w", id, err)
	}
	return fromItem(item)
}

func (s *ArchiveStore) DeleteGame(ctx context.Context, id uuid.UUID) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       gameKey(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete archived game %s: %w", id, err)
	}
	return nil
}

// ListGames queries the player index when the filter names a player and
// scans the table otherwise. Remaining criteria are applied to the results.
func (s *ArchiveStore) ListGames(ctx context.Context, filter game.GameFilter) ([]*game.Game, error) {
	items, err := s.fetch(ctx, filter)
	if err != nil {
		return nil, err
	}

	var games []*game.Game
	for _, item := range items {
		g, err := fromItem(item)
		if err != nil {
			return nil, err
		}
		if matches(g, filter) {
			games = append(games, g)
		}
	}

	sort.Slice(games, func(i, j int) bool {
		if !games[i].PlayedAt.Equal(games[j].PlayedAt) {
			return games[i].PlayedAt.Before(games[j].PlayedAt)
		}
		return games[i].ID.String() < games[j].ID.String()
	})
	return page(games, filter.Offset, filter.Limit), nil
}

func (s *ArchiveStore) fetch(ctx context.Context, filter game.GameFilter) ([]ArchiveItem, error) {
	var items []ArchiveItem
	var startKey map[string]types.AttributeValue

	for {
		var raw []map[string]types.AttributeValue
		var next map[string]types.AttributeValue

		if filter.PlayerID != nil {
			out, err := s.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(s.table),
				IndexName:              aws.String(playerGamesIndex),
				KeyConditionExpression: aws.String("player_id = :player"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":player": &types.AttributeValueMemberS{Value: filter.PlayerID.String()},
				},
				ExclusiveStartKey: startKey,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to query archived games: %w", err)
			}
			raw, next = out.Items, out.LastEvaluatedKey
		} else {
			out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
				TableName:         aws.String(s.table),
				ExclusiveStartKey: startKey,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to scan archived games: %w", err)
			}
			raw, next = out.Items, out.LastEvaluatedKey
		}

		var batch []ArchiveItem
		if err := attributevalue.UnmarshalListOfMaps(raw, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal archived games: %w", err)
		}
		items = append(items, batch...)

		if len(next) == 0 {
			return items, nil
		}
		startKey = next
	}
}

func gameKey(id uuid.UUID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id.String()},
	}
}

func matches(g *game.Game, filter game.GameFilter) bool {
	if filter.PlayerID != nil && g.PlayerID != *filter.PlayerID {
		return false
	}
	if filter.VenueID != nil && g.VenueID != *filter.VenueID {
		return false
	}
	if filter.State != nil && g.State != *filter.State {
		return false
	}
	if filter.Since != nil && g.PlayedAt.Before(*filter.Since) {
		return false
	}
	return true
}

func page(games []*game.Game, offset, limit int) []*game.Game {
	if offset > 0 {
		if offset >= len(games) {
			return nil
		}
		games = games[offset:]
	}
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games
}

func toItem(g *game.Game) ArchiveItem {
	item := ArchiveItem{
		ID:           g.ID.String(),
		PlayerID:     g.PlayerID.String(),
		VenueID:      g.VenueID.String(),
		TableSize:    string(g.TableSize),
		State:        string(g.State),
		CurrentFrame: g.CurrentFrame,
		TotalScore:   g.TotalScore(),
		Perfect:      g.IsPerfect(),
		PlayedAt:     g.PlayedAt.UTC(),
		CreatedAt:    g.CreatedAt.UTC(),
		UpdatedAt:    g.UpdatedAt.UTC(),
		Frames:       make([]FrameItem, len(g.Frames)),
	}
	for i, f := range g.Frames {
		item.Frames[i] = FrameItem{
			Number:      f.Number,
			BreakBonus:  f.BreakBonus,
			BallCount:   f.BallCount,
			Completed:   f.Completed,
			CompletedAt: f.CompletedAt,
			Notes:       f.Notes,
		}
	}
	return item
}

func fromItem(item ArchiveItem) (*game.Game, error) {
	id, err := uuid.Parse(item.ID)
	if err != nil {
		return nil, fmt.Errorf("archived game id %q: %w", item.ID, game.ErrCorruptGame)
	}
	playerID, err := uuid.Parse(item.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("archived game %s player id: %w", id, game.ErrCorruptGame)
	}
	venueID, err := uuid.Parse(item.VenueID)
	if err != nil {
		return nil, fmt.Errorf("archived game %s venue id: %w", id, game.ErrCorruptGame)
	}

	g := &game.Game{
		ID:           id,
		PlayerID:     playerID,
		VenueID:      venueID,
		TableSize:    game.TableSize(item.TableSize),
		State:        game.GameState(item.State),
		CurrentFrame: item.CurrentFrame,
		PlayedAt:     item.PlayedAt,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
	for i := range g.Frames {
		g.Frames[i] = game.Frame{GameID: id, Number: i + 1}
	}
	for _, f := range item.Frames {
		frame := g.Frame(f.Number)
		if frame == nil {
			return nil, fmt.Errorf("archived game %s frame %d: %w", id, f.Number, game.ErrCorruptGame)
		}
		frame.BreakBonus = f.BreakBonus
		frame.BallCount = f.BallCount
		frame.Completed = f.Completed
		frame.CompletedAt = f.CompletedAt
		frame.Notes = f.Notes
	}
	g.RecomputeRunningTotals()
	return g, nil
}
