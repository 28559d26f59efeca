// pkg/cache/cache_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/store"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

var base = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Hour), mr
}

func TestNewClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestRoomLifecycle(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	room := &models.Room{
		RoomID:     "r1",
		Stake:      10,
		Mode:       constants.ModeClassic,
		MaxPlayers: 2,
		Status:     constants.RoomWaiting,
		Players:    []models.RoomPlayer{{UserID: "alice", Status: constants.SeatJoined, JoinedAt: base}},
		CreatedAt:  base,
	}
	require.NoError(t, s.CreateRoom(ctx, room))
	assert.ErrorIs(t, s.CreateRoom(ctx, room), store.ErrAlreadyExists)
	assert.Equal(t, time.Hour, mr.TTL("ludo:room:r1"))

	got, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Players[0].UserID)
	assert.True(t, got.CreatedAt.Equal(base))

	got.Status = constants.RoomPlaying
	require.NoError(t, s.UpdateRoom(ctx, got))

	waiting, err := s.ListRooms(ctx, constants.RoomWaiting)
	require.NoError(t, err)
	assert.Empty(t, waiting)
	playing, err := s.ListRooms(ctx, constants.RoomPlaying)
	require.NoError(t, err)
	require.Len(t, playing, 1)
	assert.Equal(t, "r1", playing[0].RoomID)

	_, err = s.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateRoom(ctx, &models.Room{RoomID: "missing"}), store.ErrNotFound)
}

func TestListRoomsNewestFirstAndPrunesExpired(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	require.NoError(t, s.CreateRoom(ctx, &models.Room{RoomID: "old", Status: constants.RoomWaiting, CreatedAt: base}))
	require.NoError(t, s.CreateRoom(ctx, &models.Room{RoomID: "new", Status: constants.RoomWaiting, CreatedAt: base.Add(time.Minute)}))
	mr.Del("ludo:room:old")

	rooms, err := s.ListRooms(ctx, constants.RoomWaiting)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "new", rooms[0].RoomID)

	members, err := mr.ZMembers("ludo:rooms:waiting")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, members)
}

func TestListRoomsForUser(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)
	seat := func(users ...string) []models.RoomPlayer {
		out := make([]models.RoomPlayer, len(users))
		for i, u := range users {
			out[i] = models.RoomPlayer{UserID: u, Status: constants.SeatJoined, JoinedAt: base}
		}
		return out
	}

	waiting := &models.Room{RoomID: "a", Status: constants.RoomWaiting, CreatedAt: base, Players: seat("alice")}
	require.NoError(t, s.CreateRoom(ctx, waiting))
	require.NoError(t, s.CreateRoom(ctx, &models.Room{RoomID: "b", Status: constants.RoomPlaying, CreatedAt: base.Add(time.Minute), Players: seat("alice", "bob")}))
	require.NoError(t, s.CreateRoom(ctx, &models.Room{RoomID: "c", Status: constants.RoomEnded, CreatedAt: base, Players: seat("alice")}))
	assert.Equal(t, time.Hour, mr.TTL("ludo:user:alice:rooms"))

	rooms, err := s.ListRoomsForUser(ctx, "alice", constants.RoomWaiting, constants.RoomPlaying)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "b", rooms[0].RoomID)
	assert.Equal(t, "a", rooms[1].RoomID)

	// alice quitte la salle a au profit de carol
	waiting.Players = seat("carol")
	require.NoError(t, s.UpdateRoom(ctx, waiting))
	members, err := mr.ZMembers("ludo:user:alice:rooms")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, members)

	rooms, err = s.ListRoomsForUser(ctx, "carol", constants.RoomWaiting)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "a", rooms[0].RoomID)

	mr.Del("ludo:room:b")
	rooms, err = s.ListRoomsForUser(ctx, "bob", constants.RoomPlaying)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestGameActiveIndex(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	game := &models.Game{
		GameID:  "g1",
		RoomID:  "r1",
		Status:  constants.GamePlaying,
		RNGSeed: "seed",
		Players: []models.GamePlayer{{UserID: "alice", Color: constants.ColorRed, Tokens: models.NewTokens(4)}},
		DiceLogs: []models.DiceLog{
			{Seq: 1, UserID: "alice", Value: 6, At: base},
		},
		PendingDicePlayerIndex: models.NoPendingPlayer,
	}
	require.NoError(t, s.CreateGame(ctx, game))
	assert.ErrorIs(t, s.CreateGame(ctx, game), store.ErrAlreadyExists)

	active, err := s.FindActiveGameByRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "g1", active.GameID)
	assert.Equal(t, "seed", active.RNGSeed)
	require.Len(t, active.DiceLogs, 1)
	assert.Len(t, active.Players[0].Tokens, 4)

	game.Status = constants.GameEnded
	game.WinnerUserID = "alice"
	require.NoError(t, s.UpdateGame(ctx, game))

	_, err = s.FindActiveGameByRoom(ctx, "r1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	ended, err := s.GetGame(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "alice", ended.WinnerUserID)

	assert.ErrorIs(t, s.UpdateGame(ctx, &models.Game{GameID: "ghost"}), store.ErrNotFound)
}

func TestRecordsExpire(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	require.NoError(t, s.CreateGame(ctx, &models.Game{GameID: "g1", RoomID: "r1", Status: constants.GamePlaying}))
	mr.FastForward(2 * time.Hour)

	_, err := s.GetGame(ctx, "g1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindActiveGameByRoom(ctx, "r1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestContextCancelled(t *testing.T) {
	s, _ := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, redis.Nil)
}
