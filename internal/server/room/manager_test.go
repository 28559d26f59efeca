// internal/server/room/manager_test.go
package room

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/store"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/wallet"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, *store.Memory, *wallet.Ledger, *clock.Mock) {
	t.Helper()
	st := store.NewMemory()
	ledger := wallet.NewLedger(100)
	mock := clock.NewMock()
	m := NewManager(st, ledger, cfg, WithClock(mock), WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(m.Close)
	return m, st, ledger, mock
}

func classic2() CreateParams {
	return CreateParams{Stake: 10, Mode: constants.ModeClassic, MaxPlayers: 2}
}

func status(t *testing.T, st *store.Memory, roomID string) constants.RoomStatus {
	t.Helper()
	r, err := st.GetRoom(context.Background(), roomID)
	require.NoError(t, err)
	return r.Status
}

func TestCreateAndFillRoom(t *testing.T) {
	ctx := context.Background()
	m, st, ledger, _ := newTestManager(t, Config{})

	r, err := m.Create(ctx, "alice", classic2())
	require.NoError(t, err)
	assert.Equal(t, constants.RoomWaiting, r.Status)
	require.Len(t, r.Players, 1)
	assert.Equal(t, "alice", r.Players[0].UserID)
	assert.Equal(t, int64(10), ledger.Locked("alice", r.RoomID))
	assert.True(t, m.IsArmed(r.RoomID))

	r, err = m.Join(ctx, r.RoomID, "bob")
	require.NoError(t, err)
	assert.Equal(t, constants.RoomFull, r.Status)
	assert.Equal(t, constants.RoomFull, status(t, st, r.RoomID))
	assert.Equal(t, int64(10), ledger.Locked("bob", r.RoomID))
	assert.False(t, m.IsArmed(r.RoomID))

	_, err = m.Join(ctx, r.RoomID, "carol")
	assert.Equal(t, constants.ErrRoomNotAvailable, errs.CodeOf(err))

	again, err := m.Join(ctx, r.RoomID, "bob")
	require.NoError(t, err)
	assert.Len(t, again.Players, 2)
	assert.Equal(t, int64(90), ledger.Balance("bob"))
}

func TestCreateValidatesInput(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager(t, Config{AllowedStakes: []int64{10, 50}})

	cases := []CreateParams{
		{Stake: 0, Mode: constants.ModeClassic, MaxPlayers: 2},
		{Stake: 20, Mode: constants.ModeClassic, MaxPlayers: 2},
		{Stake: 10, Mode: "Blitz", MaxPlayers: 2},
		{Stake: 10, Mode: constants.ModeQuick, MaxPlayers: 3},
	}
	for _, p := range cases {
		_, err := m.Create(ctx, "alice", p)
		assert.Equal(t, constants.ErrBadRequest, errs.CodeOf(err), "params %+v", p)
	}
}

func TestJoinErrors(t *testing.T) {
	ctx := context.Background()
	m, _, ledger, _ := newTestManager(t, Config{})

	_, err := m.Join(ctx, "missing", "bob")
	assert.Equal(t, constants.ErrNoRoom, errs.CodeOf(err))

	r, err := m.Create(ctx, "alice", CreateParams{Stake: 60, Mode: constants.ModeClassic, MaxPlayers: 4})
	require.NoError(t, err)

	require.NoError(t, ledger.LockStake(ctx, "poor", 50, "elsewhere"))
	_, err = m.Join(ctx, r.RoomID, "poor")
	assert.Equal(t, constants.ErrInsufficientFunds, errs.CodeOf(err))

	got, err := m.Get(ctx, r.RoomID)
	require.NoError(t, err)
	assert.Len(t, got.Players, 1)
}

func TestLeaveRules(t *testing.T) {
	ctx := context.Background()
	m, st, ledger, _ := newTestManager(t, Config{})

	r, err := m.Create(ctx, "alice", CreateParams{Stake: 10, Mode: constants.ModeClassic, MaxPlayers: 4})
	require.NoError(t, err)
	_, err = m.Join(ctx, r.RoomID, "bob")
	require.NoError(t, err)

	_, err = m.Leave(ctx, r.RoomID, "carol")
	assert.Equal(t, constants.ErrNotInRoom, errs.CodeOf(err))

	left, err := m.Leave(ctx, r.RoomID, "bob")
	require.NoError(t, err)
	assert.Equal(t, constants.RoomWaiting, left.Status)
	assert.Equal(t, int64(100), ledger.Balance("bob"))

	left, err = m.Leave(ctx, r.RoomID, "alice")
	require.NoError(t, err)
	assert.Equal(t, constants.RoomCancelled, left.Status)
	assert.Equal(t, constants.RoomCancelled, status(t, st, r.RoomID))
	assert.Equal(t, int64(100), ledger.Balance("alice"))
	assert.False(t, m.IsArmed(r.RoomID))
}

func TestLeaveOnlyWhileWaiting(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager(t, Config{})

	r, err := m.Create(ctx, "alice", classic2())
	require.NoError(t, err)
	_, err = m.Join(ctx, r.RoomID, "bob")
	require.NoError(t, err)

	_, err = m.Leave(ctx, r.RoomID, "bob")
	assert.Equal(t, constants.ErrRoomNotAvailable, errs.CodeOf(err))
}

func TestCancelFullRoomRefundsEveryone(t *testing.T) {
	ctx := context.Background()
	m, _, ledger, _ := newTestManager(t, Config{})

	r, err := m.Create(ctx, "alice", classic2())
	require.NoError(t, err)
	_, err = m.Join(ctx, r.RoomID, "bob")
	require.NoError(t, err)

	cancelled, err := m.Cancel(ctx, r.RoomID, "manual")
	require.NoError(t, err)
	assert.Equal(t, constants.RoomCancelled, cancelled.Status)
	require.NotNil(t, cancelled.EndedAt)
	assert.Equal(t, int64(100), ledger.Balance("alice"))
	assert.Equal(t, int64(100), ledger.Balance("bob"))

	again, err := m.Cancel(ctx, r.RoomID, "manual")
	require.NoError(t, err)
	assert.Equal(t, constants.RoomCancelled, again.Status)
	assert.Equal(t, int64(100), ledger.Balance("alice"))
}

func TestCancelRejectedOncePlaying(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager(t, Config{})

	r, err := m.Create(ctx, "alice", classic2())
	require.NoError(t, err)
	_, err = m.MarkPlaying(ctx, r.RoomID)
	assert.Equal(t, constants.ErrRoomNotAvailable, errs.CodeOf(err))

	_, err = m.Join(ctx, r.RoomID, "bob")
	require.NoError(t, err)
	playing, err := m.MarkPlaying(ctx, r.RoomID)
	require.NoError(t, err)
	assert.Equal(t, constants.RoomPlaying, playing.Status)
	require.NotNil(t, playing.StartedAt)

	_, err = m.Cancel(ctx, r.RoomID, "manual")
	assert.Equal(t, constants.ErrRoomNotAvailable, errs.CodeOf(err))
}

func TestTimeoutCancelsWaitingRoom(t *testing.T) {
	ctx := context.Background()
	m, st, ledger, mock := newTestManager(t, Config{Timeout: 30 * time.Second})

	r, err := m.Create(ctx, "alice", classic2())
	require.NoError(t, err)

	mock.Add(29 * time.Second)
	assert.Equal(t, constants.RoomWaiting, status(t, st, r.RoomID))

	mock.Add(2 * time.Second)
	require.Eventually(t, func() bool {
		return status(t, st, r.RoomID) == constants.RoomCancelled
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(100), ledger.Balance("alice"))
}

func TestTimeoutNeverFiresAfterRoomFills(t *testing.T) {
	ctx := context.Background()
	m, st, _, mock := newTestManager(t, Config{Timeout: 30 * time.Second})
	fired := make(chan string, 1)
	m.SetTimeoutHandler(func(roomID string) { fired <- roomID })

	r, err := m.Create(ctx, "alice", classic2())
	require.NoError(t, err)
	_, err = m.Join(ctx, r.RoomID, "bob")
	require.NoError(t, err)

	mock.Add(time.Minute)
	select {
	case id := <-fired:
		t.Fatalf("timeout fired for %s", id)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, constants.RoomFull, status(t, st, r.RoomID))
}

func TestExpireIgnoresRoomsThatLeftWaiting(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager(t, Config{})

	r, err := m.Create(ctx, "alice", classic2())
	require.NoError(t, err)
	_, err = m.Join(ctx, r.RoomID, "bob")
	require.NoError(t, err)

	got, expired, err := m.Expire(ctx, r.RoomID)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, constants.RoomFull, got.Status)
}

func TestTimeoutHasFloor(t *testing.T) {
	m, _, _, _ := newTestManager(t, Config{Timeout: time.Second})
	assert.Equal(t, 5*time.Second, m.Timeout())

	m, _, _, _ = newTestManager(t, Config{})
	assert.Equal(t, 300*time.Second, m.Timeout())
}

func TestListAndRoomsForUser(t *testing.T) {
	ctx := context.Background()
	m, _, _, mock := newTestManager(t, Config{})

	first, err := m.Create(ctx, "alice", classic2())
	require.NoError(t, err)
	mock.Add(time.Second)
	second, err := m.Create(ctx, "bob", CreateParams{Stake: 10, Mode: constants.ModeQuick, MaxPlayers: 4})
	require.NoError(t, err)
	_, err = m.Join(ctx, first.RoomID, "carol")
	require.NoError(t, err)

	waiting, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, second.RoomID, waiting[0].RoomID)

	mine, err := m.RoomsForUser(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.RoomID, mine[0].RoomID)

	none, err := m.RoomsForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.IsType(t, []*models.Room{}, none)
}
