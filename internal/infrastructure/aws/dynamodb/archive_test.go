package dynamodb

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ninety-nine-go/internal/game"
)

var playedAt = time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)

// fakeDynamo keeps items in memory and pages scans one item at a time
type fakeDynamo struct {
	items     map[string]map[string]types.AttributeValue
	created   *dynamodb.CreateTableInput
	createErr error
	putErr    error
	scans     int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.created = in
	return &dynamodb.CreateTableOutput{}, f.createErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.items[stringAttr(in.Item, "id")] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[stringAttr(in.Key, "id")]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.items, stringAttr(in.Key, "id"))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	player := stringAttr(in.ExpressionAttributeValues, ":player")
	out := &dynamodb.QueryOutput{}
	for _, item := range f.items {
		if stringAttr(item, "player_id") == player {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans++
	ids := make([]string, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	after := stringAttr(in.ExclusiveStartKey, "id")
	for i, id := range ids {
		if after != "" && id <= after {
			continue
		}
		out := &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{f.items[id]}}
		if i < len(ids)-1 {
			out.LastEvaluatedKey = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
		}
		return out, nil
	}
	return &dynamodb.ScanOutput{}, nil
}

func completedGame(t *testing.T, playerID uuid.UUID, at time.Time, frames int) *game.Game {
	t.Helper()
	g := game.NewGame(playerID, uuid.New(), game.TableSizeEightFoot, at)
	require.NoError(t, g.InitializeFrames())
	for i := 0; i < frames; i++ {
		_, err := g.CompleteCurrentFrame(1, 8, nil, at)
		require.NoError(t, err)
	}
	if !g.IsCompleted() {
		require.NoError(t, g.Complete())
	}
	return g
}

func TestArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewArchiveStore(newFakeDynamo(), "ninety_nine_games")

	g := game.NewGame(uuid.New(), uuid.New(), game.TableSizeNineFoot, playedAt)
	require.NoError(t, g.InitializeFrames())
	notes := "slow cloth"
	_, err := g.CompleteCurrentFrame(1, 6, &notes, playedAt)
	require.NoError(t, err)
	_, err = g.CompleteCurrentFrame(0, 9, nil, playedAt)
	require.NoError(t, err)
	require.NoError(t, g.Complete())

	require.NoError(t, store.SaveGame(ctx, g))

	loaded, err := store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, loaded.ID)
	assert.Equal(t, g.PlayerID, loaded.PlayerID)
	assert.Equal(t, g.VenueID, loaded.VenueID)
	assert.Equal(t, game.TableSizeNineFoot, loaded.TableSize)
	assert.Equal(t, game.GameStateCompleted, loaded.State)
	assert.True(t, loaded.PlayedAt.Equal(playedAt))
	assert.Equal(t, 16, loaded.TotalScore())
	assert.Equal(t, 7, loaded.Frames[0].RunningTotal)
	assert.Equal(t, 16, loaded.Frames[1].RunningTotal)
	require.NotNil(t, loaded.Frames[0].Notes)
	assert.Equal(t, "slow cloth", *loaded.Frames[0].Notes)
	require.NotNil(t, loaded.Frames[1].CompletedAt)
	assert.True(t, loaded.Frames[1].CompletedAt.Equal(playedAt))
	assert.False(t, loaded.Frames[2].Completed)
	assert.NoError(t, loaded.CheckInvariants())

	require.NoError(t, store.DeleteGame(ctx, g.ID))
	_, err = store.GetGame(ctx, g.ID)
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

func TestArchiveSkipsGamesInPlay(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	store := NewArchiveStore(fake, "games")

	g := game.NewGame(uuid.New(), uuid.New(), game.TableSizeSevenFoot, playedAt)
	require.NoError(t, g.InitializeFrames())

	require.NoError(t, store.SaveGame(ctx, g))
	assert.Empty(t, fake.items)
}

func TestArchiveSaveError(t *testing.T) {
	fake := newFakeDynamo()
	fake.putErr = errors.New("throttled")
	store := NewArchiveStore(fake, "games")

	err := store.SaveGame(context.Background(), completedGame(t, uuid.New(), playedAt, 9))
	assert.ErrorContains(t, err, "throttled")
}

func TestArchiveListGames(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	store := NewArchiveStore(fake, "games")

	alice := uuid.New()
	bob := uuid.New()
	for _, g := range []*game.Game{
		completedGame(t, alice, playedAt.Add(2*time.Hour), 9),
		completedGame(t, alice, playedAt, 4),
		completedGame(t, bob, playedAt.Add(time.Hour), 9),
		completedGame(t, alice, playedAt.Add(-48*time.Hour), 2),
	} {
		require.NoError(t, store.SaveGame(ctx, g))
	}

	t.Run("by player in play order", func(t *testing.T) {
		games, err := store.ListGames(ctx, game.GameFilter{PlayerID: &alice})
		require.NoError(t, err)
		require.Len(t, games, 3)
		assert.True(t, games[0].PlayedAt.Before(games[1].PlayedAt))
		assert.True(t, games[1].PlayedAt.Before(games[2].PlayedAt))
	})

	t.Run("since", func(t *testing.T) {
		since := playedAt.Add(-time.Hour)
		games, err := store.ListGames(ctx, game.GameFilter{PlayerID: &alice, Since: &since})
		require.NoError(t, err)
		assert.Len(t, games, 2)
	})

	t.Run("scan pages through the table", func(t *testing.T) {
		games, err := store.ListGames(ctx, game.GameFilter{Offset: 1, Limit: 2})
		require.NoError(t, err)
		require.Len(t, games, 2)
		assert.True(t, games[0].PlayedAt.Equal(playedAt))
		assert.Equal(t, 4, fake.scans)
	})
}

func TestCreateTable(t *testing.T) {
	fake := newFakeDynamo()
	store := NewArchiveStore(fake, "games")

	require.NoError(t, store.CreateTable(context.Background()))
	require.NotNil(t, fake.created)
	assert.Equal(t, "games", aws.ToString(fake.created.TableName))
	require.Len(t, fake.created.GlobalSecondaryIndexes, 1)
	assert.Equal(t, playerGamesIndex, aws.ToString(fake.created.GlobalSecondaryIndexes[0].IndexName))

	fake.createErr = &types.ResourceInUseException{Message: aws.String("exists")}
	assert.NoError(t, store.CreateTable(context.Background()))

	fake.createErr = errors.New("access denied")
	assert.ErrorContains(t, store.CreateTable(context.Background()), "access denied")
}
