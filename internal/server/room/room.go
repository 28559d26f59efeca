// internal/server/room/room.go
package room

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// roomTimer est le délai d'expiration armé pour une salle en attente
type roomTimer struct {
	timer *clock.Timer
	gen   uint64
}

// timeouts gère les délais d'expiration des salles.
// Chaque armement incrémente une génération; un rappel périmé est ignoré.
type timeouts struct {
	mu     sync.Mutex
	clock  clock.Clock
	ttl    time.Duration
	gen    uint64
	timers map[string]*roomTimer
	fire   func(roomID string)
}

func newTimeouts(c clock.Clock, ttl time.Duration, fire func(roomID string)) *timeouts {
	return &timeouts{
		clock:  c,
		ttl:    ttl,
		timers: make(map[string]*roomTimer),
		fire:   fire,
	}
}

// arm (ré)arme le délai d'une salle
func (t *timeouts) arm(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.timers[roomID]; ok {
		old.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timers[roomID] = &roomTimer{
		gen: gen,
		timer: t.clock.AfterFunc(t.ttl, func() {
			t.expire(roomID, gen)
		}),
	}
}

// disarm annule le délai d'une salle
func (t *timeouts) disarm(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rt, ok := t.timers[roomID]; ok {
		rt.timer.Stop()
		delete(t.timers, roomID)
	}
}

// armed indique si un délai est en cours pour la salle
func (t *timeouts) armed(roomID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[roomID]
	return ok
}

func (t *timeouts) expire(roomID string, gen uint64) {
	t.mu.Lock()
	rt, ok := t.timers[roomID]
	if !ok || rt.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.timers, roomID)
	fire := t.fire
	t.mu.Unlock()

	if fire != nil {
		fire(roomID)
	}
}

func (t *timeouts) setHandler(fire func(roomID string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fire = fire
}

// stopAll annule tous les délais (arrêt du serveur)
func (t *timeouts) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, rt := range t.timers {
		rt.timer.Stop()
		delete(t.timers, id)
	}
}
