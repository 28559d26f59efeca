// internal/shared/protocol/events.go
package protocol

import (
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

// RoomPayload accompagne room:create, room:update, room:full et l'accusé de session:create/join
type RoomPayload struct {
	Room *models.Room `json:"room"`
}

// RoomsPayload répond à rooms:list
type RoomsPayload struct {
	Rooms []*models.Room `json:"rooms"`
}

// LeaveResult répond à session:leave
type LeaveResult struct {
	LeftAll bool     `json:"leftAll,omitempty"`
	RoomIDs []string `json:"roomIds"`
}

// GameStartPayload accompagne game:start
type GameStartPayload struct {
	GameID    string              `json:"gameId"`
	RoomID    string              `json:"roomId"`
	TurnIndex int                 `json:"turnIndex"`
	Players   []models.GamePlayer `json:"players"`
}

// TokenMovePayload accompagne la diffusion token:move
type TokenMovePayload struct {
	PlayerIndex    int                  `json:"playerIndex"`
	TokenIndex     int                  `json:"tokenIndex"`
	Steps          int                  `json:"steps"`
	NewState       constants.TokenState `json:"newState"`
	StepsFromStart int                  `json:"stepsFromStart"`
	Captures       []models.Capture     `json:"captures"`
}

// TurnChangePayload accompagne turn:change
type TurnChangePayload struct {
	TurnIndex int `json:"turnIndex"`
}

// GameEndPayload accompagne game:end
type GameEndPayload struct {
	GameID       string               `json:"gameId"`
	Status       constants.GameStatus `json:"status"`
	WinnerUserID string               `json:"winnerUserId,omitempty"`
}

// GamePayload répond à game:get
type GamePayload struct {
	Game models.GameView `json:"game"`
}

// GameStatePayload est l'instantané poussé après une reconnexion
type GameStatePayload struct {
	Game        models.GameView `json:"game"`
	LegalTokens []int           `json:"legalTokens,omitempty"`
}

// ReconnectResult répond à game:reconnect
type ReconnectResult struct {
	GameID string `json:"gameId"`
	RoomID string `json:"roomId"`
}

// ChatBroadcast relaie un message de discussion
type ChatBroadcast struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// ReplacedPayload est envoyé à la connexion évincée
type ReplacedPayload struct {
	Reason string `json:"reason"`
}
