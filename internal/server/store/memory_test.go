// internal/server/store/memory_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

func TestMemoryRoomsAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	room := &models.Room{
		RoomID:     "r1",
		Stake:      10,
		Mode:       constants.ModeClassic,
		MaxPlayers: 2,
		Status:     constants.RoomWaiting,
		Players:    []models.RoomPlayer{{UserID: "u1", Status: constants.SeatJoined}},
	}
	require.NoError(t, m.CreateRoom(ctx, room))
	assert.ErrorIs(t, m.CreateRoom(ctx, room), ErrAlreadyExists)

	room.Players[0].UserID = "mutated"
	got, err := m.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Players[0].UserID)

	got.Status = constants.RoomFull
	require.NoError(t, m.UpdateRoom(ctx, got))
	again, err := m.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, constants.RoomFull, again.Status)

	_, err = m.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.UpdateRoom(ctx, &models.Room{RoomID: "missing"}), ErrNotFound)
}

func TestMemoryListRoomsByStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.CreateRoom(ctx, &models.Room{RoomID: "old", Status: constants.RoomWaiting, CreatedAt: base}))
	require.NoError(t, m.CreateRoom(ctx, &models.Room{RoomID: "new", Status: constants.RoomWaiting, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, m.CreateRoom(ctx, &models.Room{RoomID: "done", Status: constants.RoomEnded, CreatedAt: base}))

	rooms, err := m.ListRooms(ctx, constants.RoomWaiting)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "new", rooms[0].RoomID)
	assert.Equal(t, "old", rooms[1].RoomID)
}

func TestMemoryFindActiveGameByRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.CreateGame(ctx, &models.Game{GameID: "g1", RoomID: "r1", Status: constants.GameEnded}))
	_, err := m.FindActiveGameByRoom(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.CreateGame(ctx, &models.Game{
		GameID:  "g2",
		RoomID:  "r1",
		Status:  constants.GamePlaying,
		Players: []models.GamePlayer{{UserID: "u1", Tokens: models.NewTokens(4)}},
	}))
	g, err := m.FindActiveGameByRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "g2", g.GameID)

	g.Players[0].Tokens[0].StepsFromStart = 10
	stored, err := m.GetGame(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, constants.BaseSteps, stored.Players[0].Tokens[0].StepsFromStart)
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().GetGame(ctx, "g1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryListRoomsForUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seat := func(users ...string) []models.RoomPlayer {
		out := make([]models.RoomPlayer, len(users))
		for i, u := range users {
			out[i] = models.RoomPlayer{UserID: u, Status: constants.SeatJoined}
		}
		return out
	}

	require.NoError(t, m.CreateRoom(ctx, &models.Room{RoomID: "a", Status: constants.RoomWaiting, CreatedAt: base, Players: seat("u1")}))
	require.NoError(t, m.CreateRoom(ctx, &models.Room{RoomID: "b", Status: constants.RoomPlaying, CreatedAt: base.Add(time.Minute), Players: seat("u1", "u2")}))
	require.NoError(t, m.CreateRoom(ctx, &models.Room{RoomID: "c", Status: constants.RoomEnded, CreatedAt: base, Players: seat("u1")}))

	rooms, err := m.ListRoomsForUser(ctx, "u1", constants.RoomWaiting, constants.RoomPlaying)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "b", rooms[0].RoomID)
	assert.Equal(t, "a", rooms[1].RoomID)

	// u1 quitte la salle a
	require.NoError(t, m.UpdateRoom(ctx, &models.Room{RoomID: "a", Status: constants.RoomWaiting, CreatedAt: base, Players: seat("u3")}))
	rooms, err = m.ListRoomsForUser(ctx, "u1", constants.RoomWaiting, constants.RoomPlaying)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "b", rooms[0].RoomID)

	rooms, err = m.ListRoomsForUser(ctx, "u3", constants.RoomWaiting)
	require.NoError(t, err)
	require.Len(t, rooms, 1)

	rooms, err = m.ListRoomsForUser(ctx, "nobody", constants.RoomWaiting)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
