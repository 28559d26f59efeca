// internal/shared/protocol/validator.go
package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
)

// MaxChatLength borne la taille d'un message de discussion
const MaxChatLength = 500

// Payload est une requête validée à la frontière avant traitement
type Payload interface {
	Validate() error
}

// DecodePayload décode et valide le payload d'une requête
func DecodePayload(raw json.RawMessage, target Payload) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return errs.Validation("malformed payload: " + err.Error())
	}
	return target.Validate()
}

// CreateRoomPayload pour créer une salle
type CreateRoomPayload struct {
	Stake      int64              `json:"stake"`
	Mode       constants.GameMode `json:"mode"`
	MaxPlayers int                `json:"maxPlayers"`
}

// Validate vérifie la forme de la demande (les règles métier restent au gestionnaire)
func (p *CreateRoomPayload) Validate() error {
	if p.Stake <= 0 {
		return errs.Validation("stake must be positive")
	}
	if p.Mode == "" {
		return errs.Validation("mode is required")
	}
	if p.MaxPlayers == 0 {
		return errs.Validation("maxPlayers is required")
	}
	return nil
}

// RoomRefPayload désigne une salle (join, roll, get, reconnect)
type RoomRefPayload struct {
	RoomID string `json:"roomId"`
}

// Validate exige un identifiant de salle
func (p *RoomRefPayload) Validate() error {
	p.RoomID = strings.TrimSpace(p.RoomID)
	if p.RoomID == "" {
		return errs.Validation("roomId is required")
	}
	return nil
}

// ReconnectPayload porte la dernière salle connue du client (peut être vide)
type ReconnectPayload struct {
	RoomID string `json:"roomId"`
}

// Validate accepte un identifiant vide, traité comme absence de salle
func (p *ReconnectPayload) Validate() error {
	p.RoomID = strings.TrimSpace(p.RoomID)
	return nil
}

// LeavePayload quitte une salle, ou toutes si roomId est absent
type LeavePayload struct {
	RoomID string `json:"roomId,omitempty"`
}

// Validate accepte les deux formes
func (p *LeavePayload) Validate() error {
	p.RoomID = strings.TrimSpace(p.RoomID)
	return nil
}

// EmptyPayload pour les requêtes sans paramètre
type EmptyPayload struct{}

// Validate n'a rien à vérifier
func (p *EmptyPayload) Validate() error { return nil }

// MovePayload pour déplacer un pion
type MovePayload struct {
	RoomID     string `json:"roomId"`
	TokenIndex *int   `json:"tokenIndex"`
	Steps      int    `json:"steps"`
}

// Validate vérifie la présence des champs et la plage du dé
func (p *MovePayload) Validate() error {
	p.RoomID = strings.TrimSpace(p.RoomID)
	if p.RoomID == "" {
		return errs.Validation("roomId is required")
	}
	if p.TokenIndex == nil || *p.TokenIndex < 0 {
		return errs.Validation("tokenIndex is required")
	}
	if p.Steps < constants.DiceMin || p.Steps > constants.DiceMax {
		return errs.Validation("steps must be between 1 and 6")
	}
	return nil
}

// ChatPayload est relayé sans interprétation
type ChatPayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// Validate borne le message
func (p *ChatPayload) Validate() error {
	p.RoomID = strings.TrimSpace(p.RoomID)
	if p.RoomID == "" {
		return errs.Validation("roomId is required")
	}
	if strings.TrimSpace(p.Text) == "" {
		return errs.Validation("text cannot be empty")
	}
	if utf8.RuneCountInString(p.Text) > MaxChatLength {
		return errs.Validation("text too long")
	}
	return nil
}
