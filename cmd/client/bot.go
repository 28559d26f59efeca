// cmd/client/bot.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/client/session"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/game"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/protocol"
	"github.com/obrien-tchaleu/ludo-stake-go/pkg/ai"
)

var errReplaced = errors.New("session replaced by another connection")

// Requester envoie une requête et attend son accusé
type Requester interface {
	Request(ctx context.Context, event constants.EventType, payload, result interface{}) error
	Room() string
	SetRoom(roomID string)
}

// Bot joue une partie à partir des diffusions du serveur
type Bot struct {
	sess   Requester
	player *ai.AIPlayer
	rules  game.Rules
	userID string
	logger *zap.Logger
	think  time.Duration
	seat   int
}

// NewBot crée un joueur automatique
func NewBot(sess Requester, player *ai.AIPlayer, userID string, logger *zap.Logger) *Bot {
	return &Bot{
		sess:   sess,
		player: player,
		rules:  game.DefaultRules(),
		userID: userID,
		logger: logger,
		think:  player.ThinkDelay,
		seat:   -1,
	}
}

// Run consomme les événements jusqu'à la fin de la partie
func (b *Bot) Run(ctx context.Context, events <-chan *protocol.Message) (*protocol.GameEndPayload, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-events:
			if !ok {
				return nil, session.ErrClosed
			}
			end, err := b.handle(ctx, msg)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, session.ErrClosed) || errors.Is(err, errReplaced) {
					return nil, err
				}
				b.logger.Warn("⚠️ Action refusée", zap.String("event", string(msg.Event)), zap.Error(err))
			}
			if end != nil {
				return end, nil
			}
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *protocol.Message) (*protocol.GameEndPayload, error) {
	switch msg.Event {
	case constants.EvtGameStart:
		var p protocol.GameStartPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		b.sess.SetRoom(p.RoomID)
		b.seat = seatOf(p.Players, b.userID)
		b.logger.Info("🎮 Partie lancée", zap.String("gameId", p.GameID), zap.Int("seat", b.seat))
		if p.TurnIndex == b.seat {
			return nil, b.play(ctx)
		}

	case constants.EvtTurnChange:
		var p protocol.TurnChangePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		if p.TurnIndex == b.seat {
			return nil, b.play(ctx)
		}

	case constants.EvtGameState:
		var p protocol.GameStatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		b.seat = seatOf(p.Game.Players, b.userID)
		switch {
		case len(p.LegalTokens) > 0 && p.Game.PendingDiceValue != nil:
			return nil, b.move(ctx, p.Game, *p.Game.PendingDiceValue, p.LegalTokens)
		case p.Game.TurnIndex == b.seat && p.Game.PendingDiceValue == nil:
			return nil, b.play(ctx)
		}

	case constants.EvtGameEnd:
		var p protocol.GameEndPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		b.logger.Info("🏆 Partie terminée",
			zap.String("gameId", p.GameID),
			zap.String("status", string(p.Status)),
			zap.String("winner", p.WinnerUserID))
		return &p, nil

	case constants.EvtSessionReplaced:
		return nil, errReplaced

	default:
		b.logger.Debug("📨 Événement", zap.String("event", string(msg.Event)), zap.Uint64("seq", msg.Seq))
	}
	return nil, nil
}

// play lance le dé puis joue si un coup est imposé
func (b *Bot) play(ctx context.Context) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	roomID := b.sess.Room()

	var roll game.RollResult
	if err := b.sess.Request(ctx, constants.EvtDiceRoll, protocol.RoomRefPayload{RoomID: roomID}, &roll); err != nil {
		return err
	}
	b.logger.Info("🎲 Dé lancé", zap.Int("value", roll.Value), zap.Bool("skipped", roll.Skipped))
	if roll.Skipped || !roll.MustMove {
		return nil
	}

	var state protocol.GamePayload
	if err := b.sess.Request(ctx, constants.EvtGameGet, protocol.RoomRefPayload{RoomID: roomID}, &state); err != nil {
		return err
	}
	return b.move(ctx, state.Game, roll.Value, roll.LegalTokens)
}

// move choisit un pion parmi ceux que le serveur déclare jouables
func (b *Bot) move(ctx context.Context, view models.GameView, dice int, legal []int) error {
	if len(legal) == 0 {
		return nil
	}
	token, ok := b.player.SelectToken(viewToGame(view), b.seat, dice, b.rules)
	if !ok || !contains(legal, token) {
		token = legal[0]
	}

	var res game.MoveResult
	payload := protocol.MovePayload{RoomID: b.sess.Room(), TokenIndex: &token, Steps: dice}
	if err := b.sess.Request(ctx, constants.EvtTokenMove, payload, &res); err != nil {
		return err
	}
	b.logger.Info("🚀 Pion déplacé",
		zap.Int("token", token),
		zap.Int("steps", dice),
		zap.Int("captures", len(res.Captures)),
		zap.Bool("extraTurn", res.ExtraTurn))
	return nil
}

func (b *Bot) wait(ctx context.Context) error {
	if b.think <= 0 {
		return nil
	}
	t := time.NewTimer(b.think)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// viewToGame reconstruit l'état nécessaire au choix d'un coup
func viewToGame(v models.GameView) *models.Game {
	g := &models.Game{
		GameID:                 v.GameID,
		RoomID:                 v.RoomID,
		Stake:                  v.Stake,
		Mode:                   v.Mode,
		Players:                v.Players,
		TurnIndex:              v.TurnIndex,
		Status:                 v.Status,
		WinnerUserID:           v.WinnerUserID,
		DiceSeq:                v.DiceSeq,
		MoveSeq:                v.MoveSeq,
		PendingDicePlayerIndex: models.NoPendingPlayer,
	}
	if v.PendingDiceValue != nil && v.PendingDicePlayerIndex != nil {
		g.PendingDiceValue = *v.PendingDiceValue
		g.PendingDicePlayerIndex = *v.PendingDicePlayerIndex
	}
	return g
}

func seatOf(players []models.GamePlayer, userID string) int {
	for i, p := range players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
