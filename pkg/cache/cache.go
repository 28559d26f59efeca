// pkg/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/store"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

var _ store.Store = (*Store)(nil)

const keyPrefix = "ludo:"

func roomKey(id string) string                     { return keyPrefix + "room:" + id }
func gameKey(id string) string                     { return keyPrefix + "game:" + id }
func statusKey(status constants.RoomStatus) string { return keyPrefix + "rooms:" + string(status) }
func activeKey(roomID string) string               { return keyPrefix + "room:" + roomID + ":game" }
func userKey(userID string) string                 { return keyPrefix + "user:" + userID + ":rooms" }

// Store conserve salles et parties dans Redis, en JSON, avec expiration.
// Les index de statut et de joueur sont des ensembles triés par date de création.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient ouvre et vérifie une connexion Redis
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// NewStore crée un stockage Redis; ttl borne la durée de vie de chaque enregistrement
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) load(ctx context.Context, key string, v any) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// CreateRoom enregistre une nouvelle salle
func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, roomKey(room.RoomID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	if !ok {
		return store.ErrAlreadyExists
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, statusKey(room.Status), roomMember(room))
		s.indexPlayers(ctx, pipe, nil, room)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index room: %w", err)
	}
	return nil
}

func roomMember(room *models.Room) redis.Z {
	return redis.Z{Score: float64(room.CreatedAt.UnixMilli()), Member: room.RoomID}
}

// indexPlayers retire les joueurs partis et inscrit les joueurs assis
func (s *Store) indexPlayers(ctx context.Context, pipe redis.Pipeliner, prev, next *models.Room) {
	if prev != nil {
		for _, p := range prev.Players {
			if !next.HasPlayer(p.UserID) {
				pipe.ZRem(ctx, userKey(p.UserID), next.RoomID)
			}
		}
	}
	for _, p := range next.Players {
		pipe.ZAdd(ctx, userKey(p.UserID), roomMember(next))
		pipe.Expire(ctx, userKey(p.UserID), s.ttl)
	}
}

// GetRoom lit une salle
func (s *Store) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	if err := s.load(ctx, roomKey(roomID), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// UpdateRoom remplace une salle existante et déplace son entrée d'index
func (s *Store) UpdateRoom(ctx context.Context, room *models.Room) error {
	previous, err := s.GetRoom(ctx, room.RoomID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(room.RoomID), data, s.ttl)
		if previous.Status != room.Status {
			pipe.ZRem(ctx, statusKey(previous.Status), room.RoomID)
			pipe.ZAdd(ctx, statusKey(room.Status), roomMember(room))
		}
		s.indexPlayers(ctx, pipe, previous, room)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	return nil
}

// ListRooms liste les salles d'un statut, les plus récentes d'abord.
// Les entrées d'index dont la salle a expiré sont purgées.
func (s *Store) ListRooms(ctx context.Context, status constants.RoomStatus) ([]*models.Room, error) {
	return s.listIndexed(ctx, statusKey(status), nil)
}

// ListRoomsForUser liste les salles d'un joueur dans l'un des statuts, les plus récentes d'abord
func (s *Store) ListRoomsForUser(ctx context.Context, userID string, statuses ...constants.RoomStatus) ([]*models.Room, error) {
	return s.listIndexed(ctx, userKey(userID), func(room *models.Room) bool {
		if !room.HasPlayer(userID) {
			return false
		}
		for _, st := range statuses {
			if room.Status == st {
				return true
			}
		}
		return false
	})
}

// listIndexed charge les salles d'un index trié; keep filtre le résultat
func (s *Store) listIndexed(ctx context.Context, index string, keep func(*models.Room) bool) ([]*models.Room, error) {
	ids, err := s.rdb.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	rooms := make([]*models.Room, 0, len(ids))
	if len(ids) == 0 {
		return rooms, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}

	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var room models.Room
		if err := json.Unmarshal([]byte(raw), &room); err != nil {
			return nil, fmt.Errorf("failed to decode room %s: %w", ids[i], err)
		}
		if keep == nil || keep(&room) {
			rooms = append(rooms, &room)
		}
	}
	if len(stale) > 0 {
		s.rdb.ZRem(ctx, index, stale...)
	}
	return rooms, nil
}

// CreateGame enregistre une nouvelle partie
func (s *Store) CreateGame(ctx context.Context, game *models.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to encode game: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, gameKey(game.GameID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	if !ok {
		return store.ErrAlreadyExists
	}
	if game.Status == constants.GamePlaying {
		if err := s.rdb.Set(ctx, activeKey(game.RoomID), game.GameID, s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to index game: %w", err)
		}
	}
	return nil
}

// GetGame lit une partie
func (s *Store) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	var game models.Game
	if err := s.load(ctx, gameKey(gameID), &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// UpdateGame remplace une partie existante
func (s *Store) UpdateGame(ctx context.Context, game *models.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to encode game: %w", err)
	}
	ok, err := s.rdb.SetXX(ctx, gameKey(game.GameID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if !ok {
		return store.ErrNotFound
	}

	if game.Status == constants.GamePlaying {
		err = s.rdb.Set(ctx, activeKey(game.RoomID), game.GameID, s.ttl).Err()
	} else {
		err = s.rdb.Del(ctx, activeKey(game.RoomID)).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to index game: %w", err)
	}
	return nil
}

// FindActiveGameByRoom retourne la partie en cours d'une salle
func (s *Store) FindActiveGameByRoom(ctx context.Context, roomID string) (*models.Game, error) {
	gameID, err := s.rdb.Get(ctx, activeKey(roomID)).Result()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active game: %w", err)
	}
	game, err := s.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && game.Status != constants.GamePlaying) {
		return nil, store.ErrNotFound
	}
	return game, err
}
