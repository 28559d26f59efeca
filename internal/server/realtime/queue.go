// internal/server/realtime/queue.go
package realtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// États d'une tâche: la première transition depuis taskQueued l'emporte
const (
	taskQueued int32 = iota
	taskStarted
	taskAbandoned
)

// lane est la file FIFO d'une clé; une seule goroutine la consomme
type lane struct {
	tasks   []func()
	running bool
}

// KeyedQueue sérialise les tâches par clé (utilisateur ou salle).
// Les clés différentes progressent en parallèle; une file vide est libérée.
type KeyedQueue struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// NewKeyedQueue crée une file par clé
func NewKeyedQueue() *KeyedQueue {
	return &KeyedQueue{lanes: make(map[string]*lane)}
}

// Do exécute fn dans la file de key et attend son résultat.
// Si ctx expire avant le démarrage, fn n'est jamais exécutée; une fois
// démarrée, Do attend son retour même après l'expiration de ctx.
func (q *KeyedQueue) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	var state atomic.Int32
	done := make(chan error, 1)
	task := func() {
		if !state.CompareAndSwap(taskQueued, taskStarted) {
			return
		}
		if err := ctx.Err(); err != nil {
			done <- err
			return
		}
		done <- run(ctx, fn)
	}

	q.mu.Lock()
	l, ok := q.lanes[key]
	if !ok {
		l = &lane{}
		q.lanes[key] = l
	}
	l.tasks = append(l.tasks, task)
	start := !l.running
	l.running = true
	q.mu.Unlock()

	if start {
		go q.drain(key, l)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if state.CompareAndSwap(taskQueued, taskAbandoned) {
			return ctx.Err()
		}
		return <-done
	}
}

func (q *KeyedQueue) drain(key string, l *lane) {
	for {
		q.mu.Lock()
		if len(l.tasks) == 0 {
			l.running = false
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		task := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		q.mu.Unlock()

		task()
	}
}

// run isole une panique de tâche pour ne pas bloquer la file
func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Lanes retourne le nombre de files actives
func (q *KeyedQueue) Lanes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}

func userKey(userID string) string { return "user:" + userID }
func roomKey(roomID string) string { return "room:" + roomID }
