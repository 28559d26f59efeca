// internal/server/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

// ErrNotFound est retourné quand l'enregistrement n'existe pas
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists est retourné par une création en double
var ErrAlreadyExists = errors.New("record already exists")

// Store est le stockage abstrait des salles et des parties.
// Les enregistrements retournés appartiennent à l'appelant.
type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	ListRooms(ctx context.Context, status constants.RoomStatus) ([]*models.Room, error)
	// ListRoomsForUser liste les salles d'un joueur dans l'un des statuts, les plus récentes d'abord
	ListRoomsForUser(ctx context.Context, userID string, statuses ...constants.RoomStatus) ([]*models.Room, error)

	CreateGame(ctx context.Context, game *models.Game) error
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
	UpdateGame(ctx context.Context, game *models.Game) error
	FindActiveGameByRoom(ctx context.Context, roomID string) (*models.Game, error)
}
