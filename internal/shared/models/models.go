// internal/shared/models/models.go
package models

import (
	"time"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
)

// RoomPlayer représente un joueur assis dans une salle
type RoomPlayer struct {
	UserID   string               `json:"userId"`
	JoinedAt time.Time            `json:"joinedAt"`
	Status   constants.SeatStatus `json:"status"`
}

// Room représente une salle d'attente avant la partie
type Room struct {
	RoomID     string               `json:"roomId"`
	Stake      int64                `json:"stake"`
	Mode       constants.GameMode   `json:"mode"`
	MaxPlayers int                  `json:"maxPlayers"`
	Status     constants.RoomStatus `json:"status"`
	Players    []RoomPlayer         `json:"players"`
	CreatedAt  time.Time            `json:"createdAt"`
	StartedAt  *time.Time           `json:"startedAt,omitempty"`
	EndedAt    *time.Time           `json:"endedAt,omitempty"`
}

// HasPlayer vérifie si un utilisateur est assis dans la salle
func (r *Room) HasPlayer(userID string) bool {
	return r.SeatOf(userID) >= 0
}

// SeatOf retourne le siège d'un utilisateur, ou -1
func (r *Room) SeatOf(userID string) int {
	for i, p := range r.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// IsFull indique si la salle a atteint sa capacité
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// Clone retourne une copie profonde
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Players = append([]RoomPlayer(nil), r.Players...)
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.EndedAt != nil {
		t := *r.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// Token représente un pion
type Token struct {
	TokenIndex     int                  `json:"tokenIndex"`
	State          constants.TokenState `json:"state"`
	StepsFromStart int                  `json:"stepsFromStart"` // -1 base, 0-51 anneau, 52-57 couloir, 58 maison
}

// Position est l'état d'un pion avant ou après un déplacement
type Position struct {
	State          constants.TokenState `json:"state"`
	StepsFromStart int                  `json:"stepsFromStart"`
}

// Position retourne la position courante du pion
func (t Token) Position() Position {
	return Position{State: t.State, StepsFromStart: t.StepsFromStart}
}

// GamePlayer représente un joueur dans une partie
type GamePlayer struct {
	UserID string                `json:"userId"`
	Color  constants.PlayerColor `json:"color"`
	Tokens []Token               `json:"tokens"`
}

// TokensHome compte les pions arrivés
func (p *GamePlayer) TokensHome() int {
	n := 0
	for _, t := range p.Tokens {
		if t.State == constants.TokenHome {
			n++
		}
	}
	return n
}

// Capture décrit un pion adverse renvoyé à la base
type Capture struct {
	VictimUserID string `json:"victimUserId"`
	PlayerIndex  int    `json:"playerIndex"`
	TokenIndex   int    `json:"tokenIndex"`
}

// DiceLog est une entrée du journal de dés (jamais réécrite)
type DiceLog struct {
	Seq       uint64    `json:"seq"`
	UserID    string    `json:"userId"`
	Value     int       `json:"value"`
	TurnIndex int       `json:"turnIndex"`
	At        time.Time `json:"at"`
}

// MoveLog est une entrée du journal de déplacements (jamais réécrite)
type MoveLog struct {
	Seq        uint64    `json:"seq"`
	UserID     string    `json:"userId"`
	TokenIndex int       `json:"tokenIndex"`
	Steps      int       `json:"steps"`
	From       Position  `json:"from"`
	To         Position  `json:"to"`
	Captures   []Capture `json:"captures"`
	TurnIndex  int       `json:"turnIndex"`
	At         time.Time `json:"at"`
}

// Game représente l'état faisant autorité d'une partie
type Game struct {
	GameID                 string               `json:"gameId"`
	RoomID                 string               `json:"roomId"`
	Stake                  int64                `json:"stake"`
	Mode                   constants.GameMode   `json:"mode"`
	Players                []GamePlayer         `json:"players"`
	TurnIndex              int                  `json:"turnIndex"`
	Status                 constants.GameStatus `json:"status"`
	WinnerUserID           string               `json:"winnerUserId,omitempty"`
	RNGSeed                string               `json:"rngSeed"`
	DiceSeq                uint64               `json:"diceSeq"`
	MoveSeq                uint64               `json:"moveSeq"`
	PendingDiceValue       int                  `json:"pendingDiceValue,omitempty"`
	PendingDicePlayerIndex int                  `json:"pendingDicePlayerIndex"`
	DiceLogs               []DiceLog            `json:"diceLogs"`
	MoveLogs               []MoveLog            `json:"moveLogs"`
	CreatedAt              time.Time            `json:"createdAt"`
	UpdatedAt              time.Time            `json:"updatedAt"`
}

// NoPendingPlayer marque l'absence de dé en attente
const NoPendingPlayer = -1

// HasPending indique si un dé attend d'être joué
func (g *Game) HasPending() bool {
	return g.PendingDiceValue != 0
}

// SetPending enregistre le dé en attente pour le joueur courant
func (g *Game) SetPending(value int) {
	g.PendingDiceValue = value
	g.PendingDicePlayerIndex = g.TurnIndex
}

// ClearPending consomme le dé en attente
func (g *Game) ClearPending() {
	g.PendingDiceValue = 0
	g.PendingDicePlayerIndex = NoPendingPlayer
}

// PlayerIndex retourne l'indice d'un utilisateur, ou -1
func (g *Game) PlayerIndex(userID string) int {
	for i, p := range g.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// CurrentPlayer retourne le joueur dont c'est le tour
func (g *Game) CurrentPlayer() *GamePlayer {
	if g.TurnIndex < 0 || g.TurnIndex >= len(g.Players) {
		return nil
	}
	return &g.Players[g.TurnIndex]
}

// Clone retourne une copie profonde
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Players = make([]GamePlayer, len(g.Players))
	for i, p := range g.Players {
		c.Players[i] = p
		c.Players[i].Tokens = append([]Token(nil), p.Tokens...)
	}
	c.DiceLogs = append([]DiceLog(nil), g.DiceLogs...)
	c.MoveLogs = make([]MoveLog, len(g.MoveLogs))
	for i, m := range g.MoveLogs {
		c.MoveLogs[i] = m
		c.MoveLogs[i].Captures = append([]Capture(nil), m.Captures...)
	}
	return &c
}

// GameView est la vue publique d'une partie (sans le secret du générateur)
type GameView struct {
	GameID                 string               `json:"gameId"`
	RoomID                 string               `json:"roomId"`
	Stake                  int64                `json:"stake"`
	Mode                   constants.GameMode   `json:"mode"`
	Players                []GamePlayer         `json:"players"`
	TurnIndex              int                  `json:"turnIndex"`
	Status                 constants.GameStatus `json:"status"`
	WinnerUserID           string               `json:"winnerUserId,omitempty"`
	DiceSeq                uint64               `json:"diceSeq"`
	MoveSeq                uint64               `json:"moveSeq"`
	PendingDiceValue       *int                 `json:"pendingDiceValue"`
	PendingDicePlayerIndex *int                 `json:"pendingDicePlayerIndex"`
}

// View construit la vue publique
func (g *Game) View() GameView {
	c := g.Clone()
	v := GameView{
		GameID:       c.GameID,
		RoomID:       c.RoomID,
		Stake:        c.Stake,
		Mode:         c.Mode,
		Players:      c.Players,
		TurnIndex:    c.TurnIndex,
		Status:       c.Status,
		WinnerUserID: c.WinnerUserID,
		DiceSeq:      c.DiceSeq,
		MoveSeq:      c.MoveSeq,
	}
	if c.HasPending() {
		value, idx := c.PendingDiceValue, c.PendingDicePlayerIndex
		v.PendingDiceValue = &value
		v.PendingDicePlayerIndex = &idx
	}
	return v
}

// NewTokens crée les pions d'un joueur, tous en base
func NewTokens(count int) []Token {
	tokens := make([]Token, count)
	for i := range tokens {
		tokens[i] = Token{
			TokenIndex:     i,
			State:          constants.TokenBase,
			StepsFromStart: constants.BaseSteps,
		}
	}
	return tokens
}
