// internal/server/realtime/queue_test.go
package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedQueueRunsSameKeyInOrder(t *testing.T) {
	q := NewKeyedQueue()
	ctx := context.Background()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	release := make(chan struct{})
	started := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Do(ctx, "room:1", func(context.Context) error {
			close(started)
			<-release
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
			return nil
		})
	}()
	<-started

	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(ctx, "room:1", func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// laisse la tâche i entrer dans la file avant la suivante
		require.Eventually(t, func() bool { return queued(q, "room:1") == i }, time.Second, time.Millisecond)
	}

	close(release)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)
}

func queued(q *KeyedQueue, key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.lanes[key]; ok {
		return len(l.tasks)
	}
	return 0
}

func TestKeyedQueueKeysRunInParallel(t *testing.T) {
	q := NewKeyedQueue()
	ctx := context.Background()

	blocked := make(chan struct{})
	go func() {
		_ = q.Do(ctx, "room:a", func(context.Context) error {
			<-blocked
			return nil
		})
	}()

	done := make(chan error, 1)
	go func() {
		done <- q.Do(ctx, "room:b", func(context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("room:b waited on room:a")
	}
	close(blocked)
}

func TestKeyedQueueRecoversPanics(t *testing.T) {
	q := NewKeyedQueue()
	ctx := context.Background()

	err := q.Do(ctx, "user:u1", func(context.Context) error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.NoError(t, q.Do(ctx, "user:u1", func(context.Context) error { return nil }))
}

func TestKeyedQueueSkipsExpiredTasks(t *testing.T) {
	q := NewKeyedQueue()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), "room:1", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- q.Do(ctx, "room:1", func(context.Context) error {
			ran <- struct{}{}
			return nil
		})
	}()
	require.Eventually(t, func() bool { return queued(q, "room:1") == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return q.Lanes() == 0 }, time.Second, time.Millisecond)
	select {
	case <-ran:
		t.Fatal("cancelled task ran")
	default:
	}
}

func TestKeyedQueueWaitsForStartedTask(t *testing.T) {
	q := NewKeyedQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	committed := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- q.Do(ctx, "room:1", func(context.Context) error {
			close(started)
			<-release
			close(committed)
			return nil
		})
	}()

	<-started
	<-ctx.Done()
	select {
	case err := <-errc:
		t.Fatalf("Do returned %v while its task was still running", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-committed
	assert.NoError(t, <-errc)
}

func TestKeyedQueueReclaimsIdleLanes(t *testing.T) {
	q := NewKeyedQueue()
	for _, key := range []string{"user:a", "user:b", "room:c"} {
		require.NoError(t, q.Do(context.Background(), key, func(context.Context) error { return nil }))
	}
	require.Eventually(t, func() bool { return q.Lanes() == 0 }, time.Second, time.Millisecond)
}
