// internal/server/wallet/wallet_test.go
package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayout(t *testing.T) {
	assert.Equal(t, int64(16), Payout(10, 2, 20))
	assert.Equal(t, int64(40), Payout(10, 4, 0))
	assert.Equal(t, int64(36), Payout(10, 4, 10))
}

func TestLedgerLockAndUnlock(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(100)

	require.NoError(t, l.LockStake(ctx, "alice", 30, "room-1"))
	assert.Equal(t, int64(70), l.Balance("alice"))
	assert.Equal(t, int64(30), l.Locked("alice", "room-1"))

	require.NoError(t, l.UnlockStake(ctx, "alice", 30, "room-1"))
	assert.Equal(t, int64(100), l.Balance("alice"))
	assert.Equal(t, int64(0), l.Locked("alice", "room-1"))

	assert.ErrorIs(t, l.UnlockStake(ctx, "alice", 30, "room-1"), ErrNoLock)
}

func TestLedgerRejectsInsufficientFunds(t *testing.T) {
	l := NewLedger(5)
	err := l.LockStake(context.Background(), "bob", 10, "room-1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(5), l.Balance("bob"))
}

func TestLedgerPayoutSettlesPot(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(100)
	require.NoError(t, l.LockStake(ctx, "alice", 10, "room-1"))
	require.NoError(t, l.LockStake(ctx, "bob", 10, "room-1"))

	require.NoError(t, l.ProcessPayout(ctx, "alice", Payout(10, 2, 20), "room-1"))
	assert.Equal(t, int64(106), l.Balance("alice"))
	assert.Equal(t, int64(90), l.Balance("bob"))
	assert.Equal(t, int64(4), l.House())

	assert.ErrorIs(t, l.ProcessPayout(ctx, "alice", 1, "room-1"), ErrNoLock)
}
