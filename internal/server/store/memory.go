// internal/server/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

// Memory est un stockage en mémoire (développement et tests)
type Memory struct {
	mu     sync.RWMutex
	rooms  map[string]*models.Room
	games  map[string]*models.Game
	byUser map[string]map[string]struct{}
}

// NewMemory crée un stockage en mémoire vide
func NewMemory() *Memory {
	return &Memory{
		rooms:  make(map[string]*models.Room),
		games:  make(map[string]*models.Game),
		byUser: make(map[string]map[string]struct{}),
	}
}

// CreateRoom enregistre une nouvelle salle
func (m *Memory) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[room.RoomID]; exists {
		return ErrAlreadyExists
	}
	m.rooms[room.RoomID] = room.Clone()
	m.index(nil, room)
	return nil
}

// GetRoom lit une salle
func (m *Memory) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

// UpdateRoom remplace une salle existante
func (m *Memory) UpdateRoom(ctx context.Context, room *models.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.rooms[room.RoomID]
	if !ok {
		return ErrNotFound
	}
	m.rooms[room.RoomID] = room.Clone()
	m.index(prev, room)
	return nil
}

// ListRooms liste les salles d'un statut, les plus récentes d'abord
func (m *Memory) ListRooms(ctx context.Context, status constants.RoomStatus) ([]*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]*models.Room, 0)
	for _, r := range m.rooms {
		if r.Status == status {
			rooms = append(rooms, r.Clone())
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// index suit les joueurs assis: ceux qui quittent la salle en sortent
func (m *Memory) index(prev, next *models.Room) {
	if prev != nil {
		for _, p := range prev.Players {
			if !next.HasPlayer(p.UserID) {
				delete(m.byUser[p.UserID], prev.RoomID)
				if len(m.byUser[p.UserID]) == 0 {
					delete(m.byUser, p.UserID)
				}
			}
		}
	}
	for _, p := range next.Players {
		set, ok := m.byUser[p.UserID]
		if !ok {
			set = make(map[string]struct{})
			m.byUser[p.UserID] = set
		}
		set[next.RoomID] = struct{}{}
	}
}

// ListRoomsForUser liste les salles d'un joueur dans l'un des statuts
func (m *Memory) ListRoomsForUser(ctx context.Context, userID string, statuses ...constants.RoomStatus) ([]*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]*models.Room, 0)
	for roomID := range m.byUser[userID] {
		r := m.rooms[roomID]
		if hasStatus(r.Status, statuses) {
			rooms = append(rooms, r.Clone())
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func hasStatus(status constants.RoomStatus, statuses []constants.RoomStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// CreateGame enregistre une nouvelle partie
func (m *Memory) CreateGame(ctx context.Context, game *models.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.games[game.GameID]; exists {
		return ErrAlreadyExists
	}
	m.games[game.GameID] = game.Clone()
	return nil
}

// GetGame lit une partie
func (m *Memory) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	game, ok := m.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	return game.Clone(), nil
}

// UpdateGame remplace une partie existante
func (m *Memory) UpdateGame(ctx context.Context, game *models.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[game.GameID]; !ok {
		return ErrNotFound
	}
	m.games[game.GameID] = game.Clone()
	return nil
}

// FindActiveGameByRoom retourne la partie en cours d'une salle
func (m *Memory) FindActiveGameByRoom(ctx context.Context, roomID string) (*models.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, g := range m.games {
		if g.RoomID == roomID && g.Status == constants.GamePlaying {
			return g.Clone(), nil
		}
	}
	return nil, ErrNotFound
}
