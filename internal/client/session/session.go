// internal/client/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/protocol"
)

// EventBuffer borne la file des diffusions non consommées
const EventBuffer = 256

// ErrClosed est retourné aux requêtes en attente à la fermeture
var ErrClosed = errors.New("session closed")

// AckError est un refus du serveur
type AckError struct {
	Event   constants.EventType
	Code    string
	Message string
}

func (e *AckError) Error() string {
	return fmt.Sprintf("%s rejected: %s (%s)", e.Event, e.Message, e.Code)
}

// CodeOf retourne le code d'un refus serveur, ou une chaîne vide
func CodeOf(err error) string {
	var ae *AckError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Sender écrit une trame vers le serveur
type Sender func(data []byte) error

// pendingRequest attend son accusé; onAck s'exécute dans la boucle de lecture,
// avant toute diffusion reçue ensuite
type pendingRequest struct {
	ch    chan *protocol.Message
	onAck func(msg *protocol.Message)
}

// Session corrèle requêtes et accusés et filtre les diffusions périmées
type Session struct {
	send   Sender
	logger *zap.Logger

	mu            sync.Mutex
	nextAck       uint64
	pending       map[string]*pendingRequest
	lastSeq       uint64
	reconnectedAt time.Time
	roomID        string
	closed        bool

	events chan *protocol.Message
}

// New crée une session au-dessus d'un émetteur
func New(send Sender, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		send:    send,
		logger:  logger,
		pending: make(map[string]*pendingRequest),
		events:  make(chan *protocol.Message, EventBuffer),
	}
}

// Events retourne les diffusions acceptées, dans l'ordre
func (s *Session) Events() <-chan *protocol.Message {
	return s.events
}

// Room retourne la dernière salle connue
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// SetRoom mémorise la salle courante
func (s *Session) SetRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
}

// LastSeq retourne le dernier numéro de séquence accepté
func (s *Session) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

// Dispatch traite une trame reçue du serveur
func (s *Session) Dispatch(data []byte) error {
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		return err
	}

	if msg.Event == constants.EvtAck {
		s.mu.Lock()
		req, ok := s.pending[msg.AckID]
		delete(s.pending, msg.AckID)
		s.mu.Unlock()
		if !ok {
			s.logger.Debug("Accusé sans requête", zap.String("ackId", msg.AckID))
			return nil
		}
		if req.onAck != nil {
			req.onAck(msg)
		}
		req.ch <- msg
		return nil
	}

	if !s.accept(msg) {
		s.logger.Debug("🗑️ Événement périmé ignoré",
			zap.String("event", string(msg.Event)),
			zap.Uint64("seq", msg.Seq))
		return nil
	}
	select {
	case s.events <- msg:
	default:
		s.logger.Warn("⚠️ File d'événements pleine, événement perdu",
			zap.String("event", string(msg.Event)),
			zap.Uint64("seq", msg.Seq))
	}
	return nil
}

// accept applique le filtre: horodatage antérieur à la reconnexion ou séquence déjà vue
func (s *Session) accept(msg *protocol.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reconnectedAt.IsZero() && msg.Timestamp.Before(s.reconnectedAt) {
		return false
	}
	if msg.Seq != 0 {
		if msg.Seq <= s.lastSeq {
			return false
		}
		s.lastSeq = msg.Seq
	}
	return true
}

// roundTrip envoie une requête et attend son accusé
func (s *Session) roundTrip(ctx context.Context, event constants.EventType, payload interface{}, onAck func(*protocol.Message)) (*protocol.Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.nextAck++
	ackID := strconv.FormatUint(s.nextAck, 10)
	ch := make(chan *protocol.Message, 1)
	s.pending[ackID] = &pendingRequest{ch: ch, onAck: onAck}
	s.mu.Unlock()

	drop := func() {
		s.mu.Lock()
		delete(s.pending, ackID)
		s.mu.Unlock()
	}

	data, err := protocol.EncodeRequest(event, ackID, payload)
	if err != nil {
		drop()
		return nil, err
	}
	if err := s.send(data); err != nil {
		drop()
		return nil, fmt.Errorf("failed to send %s: %w", event, err)
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		drop()
		return nil, ctx.Err()
	}
}

// Request envoie une requête; l'accusé positif est décodé dans result (optionnel)
func (s *Session) Request(ctx context.Context, event constants.EventType, payload, result interface{}) error {
	msg, err := s.roundTrip(ctx, event, payload, nil)
	if err != nil {
		return err
	}
	return decodeAck(event, msg, result)
}

func decodeAck(event constants.EventType, msg *protocol.Message, result interface{}) error {
	ack, err := protocol.DecodeAck(msg, result)
	if err != nil {
		return err
	}
	if !ack.OK {
		return &AckError{Event: event, Code: ack.Code, Message: ack.Message}
	}
	return nil
}

// Reconnect reprend la dernière salle connue.
// Les diffusions horodatées avant l'accusé sont ensuite ignorées; un refus
// définitif oublie la salle mémorisée.
func (s *Session) Reconnect(ctx context.Context) (*protocol.ReconnectResult, error) {
	msg, err := s.roundTrip(ctx, constants.EvtGameReconnect, protocol.ReconnectPayload{RoomID: s.Room()},
		func(msg *protocol.Message) {
			if ack, err := protocol.DecodeAck(msg, nil); err == nil && ack.OK {
				s.mu.Lock()
				s.reconnectedAt = msg.Timestamp
				s.mu.Unlock()
			}
		})
	if err != nil {
		return nil, err
	}

	var res protocol.ReconnectResult
	if err := decodeAck(constants.EvtGameReconnect, msg, &res); err != nil {
		switch CodeOf(err) {
		case constants.ErrNoPriorRoom, constants.ErrReconnectFailed:
			s.SetRoom("")
		}
		return nil, err
	}

	s.SetRoom(res.RoomID)
	s.logger.Info("🔄 Reconnecté",
		zap.String("roomId", res.RoomID),
		zap.String("gameId", res.GameID))
	return &res, nil
}

// Close libère les requêtes en attente
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, req := range s.pending {
		close(req.ch)
		delete(s.pending, id)
	}
}
