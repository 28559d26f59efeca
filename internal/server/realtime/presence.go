// internal/server/realtime/presence.go
package realtime

import (
	"sort"
	"sync"
)

// Presence indexe les utilisateurs connectés abonnés à chaque salle
type Presence struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
	users map[string]map[string]struct{}
}

// NewPresence crée un registre vide
func NewPresence() *Presence {
	return &Presence{
		rooms: make(map[string]map[string]struct{}),
		users: make(map[string]map[string]struct{}),
	}
}

// Join abonne un utilisateur à une salle
func (p *Presence) Join(roomID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	add(p.rooms, roomID, userID)
	add(p.users, userID, roomID)
}

// Leave désabonne un utilisateur d'une salle
func (p *Presence) Leave(roomID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	remove(p.rooms, roomID, userID)
	remove(p.users, userID, roomID)
}

// LeaveAll désabonne un utilisateur de toutes ses salles
func (p *Presence) LeaveAll(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	roomIDs := sortedKeys(p.users[userID])
	for _, roomID := range roomIDs {
		remove(p.rooms, roomID, userID)
	}
	delete(p.users, userID)
	return roomIDs
}

// ClearRoom retire tous les abonnés d'une salle close
func (p *Presence) ClearRoom(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for userID := range p.rooms[roomID] {
		remove(p.users, userID, roomID)
	}
	delete(p.rooms, roomID)
}

// Members retourne les abonnés d'une salle, triés
func (p *Presence) Members(roomID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.rooms[roomID])
}

// Online compte les abonnés d'une salle
func (p *Presence) Online(roomID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[roomID])
}

// RoomsOf retourne les salles suivies par un utilisateur
func (p *Presence) RoomsOf(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.users[userID])
}

// Snapshot copie le registre pour le diagnostic
func (p *Presence) Snapshot() map[string][]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string][]string, len(p.rooms))
	for roomID, members := range p.rooms {
		out[roomID] = sortedKeys(members)
	}
	return out
}

func add(index map[string]map[string]struct{}, key, value string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[value] = struct{}{}
}

func remove(index map[string]map[string]struct{}, key, value string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(index, key)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
