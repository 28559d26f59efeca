// internal/server/realtime/coordinator.go
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/game"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/metrics"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/room"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/protocol"
)

// DefaultRequestTimeout borne le traitement d'une requête
const DefaultRequestTimeout = 10 * time.Second

// Conn est une connexion temps réel authentifiée
type Conn interface {
	ID() string
	UserID() string
	Send(msg *protocol.Message) error
	Close(reason string)
}

type handlerFunc func(ctx context.Context, r *call) (interface{}, error)

// Coordinator sérialise les requêtes par utilisateur et par salle
// puis diffuse les événements aux participants
type Coordinator struct {
	rooms    *room.Manager
	engine   *game.Engine
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics.Metrics
	queue    *KeyedQueue
	presence *Presence
	timeout  time.Duration
	routes   map[constants.EventType]handlerFunc

	mu        sync.RWMutex
	conns     map[string]Conn
	roomGames map[string]string

	// sendMu couvre numérotation et remise: chaque connexion reçoit les seq dans l'ordre croissant
	sendMu sync.Mutex
	seq    uint64
}

// Option configure le coordinateur
type Option func(*Coordinator)

// WithClock remplace l'horloge
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// WithLogger remplace le logger
func WithLogger(l *zap.Logger) Option {
	return func(co *Coordinator) { co.logger = l }
}

// WithMetrics branche les métriques Prometheus
func WithMetrics(m *metrics.Metrics) Option {
	return func(co *Coordinator) { co.metrics = m }
}

// WithRequestTimeout borne chaque requête
func WithRequestTimeout(d time.Duration) Option {
	return func(co *Coordinator) {
		if d > 0 {
			co.timeout = d
		}
	}
}

// NewCoordinator crée le coordinateur et prend en charge l'expiration des salles
func NewCoordinator(rooms *room.Manager, engine *game.Engine, opts ...Option) *Coordinator {
	c := &Coordinator{
		rooms:     rooms,
		engine:    engine,
		clock:     clock.New(),
		logger:    zap.NewNop(),
		queue:     NewKeyedQueue(),
		presence:  NewPresence(),
		timeout:   DefaultRequestTimeout,
		conns:     make(map[string]Conn),
		roomGames: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	c.metrics.RegisterLanes(c.queue.Lanes)

	c.routes = map[constants.EventType]handlerFunc{
		constants.EvtSessionCreate: c.createRoom,
		constants.EvtSessionJoin:   c.joinRoom,
		constants.EvtSessionLeave:  c.leave,
		constants.EvtRoomsList:     c.listRooms,
		constants.EvtDiceRoll:      c.rollDice,
		constants.EvtTokenMove:     c.moveToken,
		constants.EvtGameGet:       c.getGame,
		constants.EvtGameReconnect: c.reconnect,
		constants.EvtChatMessage:   c.chat,
		constants.EvtPing:          c.ping,
	}
	rooms.SetTimeoutHandler(c.expireRoom)
	return c
}

// Presence expose le registre de présence
func (c *Coordinator) Presence() *Presence {
	return c.presence
}

// call est une requête en cours; elle reçoit exactement un accusé
type call struct {
	c     *Coordinator
	conn  Conn
	req   *protocol.Request
	start time.Time
	once  sync.Once
}

func (r *call) userID() string {
	return r.conn.UserID()
}

// reply envoie l'accusé; les appels suivants sont ignorés
func (r *call) reply(payload interface{}, err error) {
	r.once.Do(func() { r.c.sendAck(r, payload, err) })
}

// Connect enregistre une connexion; la précédente du même utilisateur est fermée
func (c *Coordinator) Connect(ctx context.Context, conn Conn) error {
	userID := conn.UserID()
	return c.queue.Do(ctx, userKey(userID), func(ctx context.Context) error {
		c.mu.RLock()
		old := c.conns[userID]
		c.mu.RUnlock()
		if old != nil && old.ID() != conn.ID() {
			c.sendDirect(old, constants.EvtSessionReplaced, protocol.ReplacedPayload{Reason: "replaced"})
			old.Close("replaced")
			c.metrics.Replaced.Inc()
			c.logger.Info("🔁 Connexion remplacée",
				zap.String("userId", userID),
				zap.String("old", old.ID()),
				zap.String("new", conn.ID()),
			)
		}

		c.mu.Lock()
		c.conns[userID] = conn
		count := len(c.conns)
		c.mu.Unlock()
		c.metrics.Connections.Set(float64(count))

		rooms, err := c.rooms.RoomsForUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, rm := range rooms {
			c.presence.Join(rm.RoomID, userID)
		}
		c.logger.Info("🔌 Connexion",
			zap.String("userId", userID),
			zap.String("connId", conn.ID()),
			zap.Int("rooms", len(rooms)),
		)
		return nil
	})
}

// Disconnect désenregistre la connexion si elle est toujours la connexion active
func (c *Coordinator) Disconnect(conn Conn) {
	userID := conn.UserID()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.queue.Do(ctx, userKey(userID), func(ctx context.Context) error {
		c.mu.Lock()
		current, ok := c.conns[userID]
		if !ok || current.ID() != conn.ID() {
			c.mu.Unlock()
			return nil
		}
		delete(c.conns, userID)
		count := len(c.conns)
		c.mu.Unlock()

		c.presence.LeaveAll(userID)
		c.metrics.Connections.Set(float64(count))
		c.logger.Info("🔌 Déconnexion", zap.String("userId", userID), zap.String("connId", conn.ID()))
		return nil
	})
	if err != nil {
		c.logger.Warn("⚠️ Déconnexion non traitée", zap.String("userId", userID), zap.Error(err))
	}
}

// CloseAll ferme toutes les connexions (arrêt du serveur)
func (c *Coordinator) CloseAll(reason string) {
	c.mu.RLock()
	conns := make([]Conn, 0, len(c.conns))
	for _, conn := range c.conns {
		conns = append(conns, conn)
	}
	c.mu.RUnlock()
	for _, conn := range conns {
		conn.Close(reason)
	}
}

// Handle traite une requête dans la file de son utilisateur
func (c *Coordinator) Handle(ctx context.Context, conn Conn, req *protocol.Request) {
	r := &call{c: c, conn: conn, req: req, start: c.clock.Now()}
	h, ok := c.routes[req.Event]
	if !ok {
		r.reply(nil, errs.New(errs.KindValidation, constants.ErrUnknownEvent, "unknown event").
			With("event", string(req.Event)))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.queue.Do(ctx, userKey(conn.UserID()), func(ctx context.Context) error {
		out, err := h(ctx, r)
		if err != nil {
			return err
		}
		r.reply(out, nil)
		return nil
	})
	if err != nil {
		r.reply(nil, err)
	}
}

func (c *Coordinator) inRoom(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	return c.queue.Do(ctx, roomKey(roomID), fn)
}

func (c *Coordinator) connOf(userID string) Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conns[userID]
}

func (c *Coordinator) setGame(roomID, gameID string) {
	c.mu.Lock()
	c.roomGames[roomID] = gameID
	c.mu.Unlock()
}

// gameFor retrouve la partie active d'une salle
func (c *Coordinator) gameFor(ctx context.Context, roomID string) (string, error) {
	c.mu.RLock()
	gameID, ok := c.roomGames[roomID]
	c.mu.RUnlock()
	if ok {
		return gameID, nil
	}
	g, err := c.engine.ActiveGameForRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	c.setGame(roomID, g.GameID)
	return g.GameID, nil
}

// stamp pose la séquence et l'horodatage d'un message sortant; appelé sous sendMu
func (c *Coordinator) stamp(msg *protocol.Message) {
	c.seq++
	msg.Seq = c.seq
	msg.Timestamp = c.clock.Now()
}

func (c *Coordinator) event(event constants.EventType, payload interface{}) *protocol.Message {
	msg, err := protocol.NewEvent(event, payload)
	if err != nil {
		c.logger.Error("❌ Encodage d'événement impossible", zap.String("event", string(event)), zap.Error(err))
		return nil
	}
	return msg
}

// publish numérote le message puis le remet à chaque destinataire d'un seul tenant
func (c *Coordinator) publish(msg *protocol.Message, conns []Conn) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.stamp(msg)
	for _, conn := range conns {
		c.deliver(conn, msg)
	}
}

func (c *Coordinator) deliver(conn Conn, msg *protocol.Message) {
	if err := conn.Send(msg); err != nil {
		c.logger.Debug("Envoi impossible",
			zap.String("userId", conn.UserID()),
			zap.String("event", string(msg.Event)),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) sendDirect(conn Conn, event constants.EventType, payload interface{}) {
	if msg := c.event(event, payload); msg != nil {
		c.publish(msg, []Conn{conn})
	}
}

// broadcastRoom envoie un événement à tous les abonnés d'une salle
func (c *Coordinator) broadcastRoom(roomID string, event constants.EventType, payload interface{}) {
	msg := c.event(event, payload)
	if msg == nil {
		return
	}
	c.metrics.Broadcasts.WithLabelValues(string(event)).Inc()
	var conns []Conn
	for _, userID := range c.presence.Members(roomID) {
		if conn := c.connOf(userID); conn != nil {
			conns = append(conns, conn)
		}
	}
	c.publish(msg, conns)
}

// broadcastAll envoie un événement à toutes les connexions
func (c *Coordinator) broadcastAll(event constants.EventType, payload interface{}) {
	msg := c.event(event, payload)
	if msg == nil {
		return
	}
	c.metrics.Broadcasts.WithLabelValues(string(event)).Inc()
	c.mu.RLock()
	conns := make([]Conn, 0, len(c.conns))
	for _, conn := range c.conns {
		conns = append(conns, conn)
	}
	c.mu.RUnlock()
	c.publish(msg, conns)
}

func (c *Coordinator) sendAck(r *call, payload interface{}, err error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	now := c.clock.Now()
	result := "ok"
	var (
		msg    *protocol.Message
		encErr error
	)
	if err != nil {
		e := errs.As(err)
		result = e.Code
		if e.Kind == errs.KindInternal {
			c.logger.Error("❌ Erreur interne",
				zap.String("event", string(r.req.Event)),
				zap.String("userId", r.userID()),
				zap.Error(err),
			)
		}
		msg, encErr = protocol.NewAckError(r.req.AckID, e, now)
	} else {
		msg, encErr = protocol.NewAck(r.req.AckID, payload, now)
	}
	if encErr != nil {
		c.logger.Error("❌ Encodage d'accusé impossible", zap.String("event", string(r.req.Event)), zap.Error(encErr))
		return
	}
	c.metrics.ObserveRequest(string(r.req.Event), result, now.Sub(r.start))
	c.deliver(r.conn, msg)
}

func (c *Coordinator) createRoom(ctx context.Context, r *call) (interface{}, error) {
	var p protocol.CreateRoomPayload
	if err := protocol.DecodePayload(r.req.Payload, &p); err != nil {
		return nil, err
	}
	rm, err := c.rooms.Create(ctx, r.userID(), room.CreateParams{
		Stake:      p.Stake,
		Mode:       p.Mode,
		MaxPlayers: p.MaxPlayers,
	})
	if err != nil {
		return nil, err
	}
	err = c.inRoom(ctx, rm.RoomID, func(ctx context.Context) error {
		c.presence.Join(rm.RoomID, r.userID())
		c.metrics.Rooms.WithLabelValues(string(rm.Status)).Inc()
		c.broadcastAll(constants.EvtRoomCreate, protocol.RoomPayload{Room: rm})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return protocol.RoomPayload{Room: rm}, nil
}

func (c *Coordinator) joinRoom(ctx context.Context, r *call) (interface{}, error) {
	var p protocol.RoomRefPayload
	if err := protocol.DecodePayload(r.req.Payload, &p); err != nil {
		return nil, err
	}
	var out *models.Room
	err := c.inRoom(ctx, p.RoomID, func(ctx context.Context) error {
		rm, err := c.rooms.Join(ctx, p.RoomID, r.userID())
		if err != nil {
			return err
		}
		c.presence.Join(rm.RoomID, r.userID())
		c.broadcastRoom(rm.RoomID, constants.EvtRoomUpdate, protocol.RoomPayload{Room: rm})
		if rm.Status == constants.RoomFull {
			c.metrics.Rooms.WithLabelValues(string(rm.Status)).Inc()
			c.broadcastRoom(rm.RoomID, constants.EvtRoomFull, protocol.RoomPayload{Room: rm})
			if rm, err = c.startGame(ctx, rm); err != nil {
				return err
			}
		}
		out = rm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return protocol.RoomPayload{Room: out}, nil
}

// startGame démarre la partie d'une salle pleine; en cas d'échec les mises sont rendues
func (c *Coordinator) startGame(ctx context.Context, rm *models.Room) (*models.Room, error) {
	log := c.logger.With(zap.String("roomId", rm.RoomID))
	g, err := c.engine.Start(ctx, rm)
	if err != nil {
		log.Error("❌ Démarrage impossible, salle annulée", zap.Error(err))
		cancelled, cancelErr := c.rooms.Cancel(context.WithoutCancel(ctx), rm.RoomID, "start failed")
		if cancelErr != nil {
			log.Error("❌ Annulation impossible", zap.Error(cancelErr))
			return nil, err
		}
		c.metrics.Rooms.WithLabelValues(string(cancelled.Status)).Inc()
		c.broadcastRoom(rm.RoomID, constants.EvtRoomUpdate, protocol.RoomPayload{Room: cancelled})
		c.presence.ClearRoom(rm.RoomID)
		return nil, err
	}

	playing, err := c.rooms.MarkPlaying(ctx, rm.RoomID)
	if err != nil {
		log.Error("❌ Salle non marquée en jeu, partie annulée", zap.String("gameId", g.GameID), zap.Error(err))
		if _, endErr := c.engine.End(context.WithoutCancel(ctx), g.GameID, ""); endErr != nil {
			log.Error("❌ Annulation de partie impossible", zap.Error(endErr))
		}
		return nil, err
	}

	c.setGame(rm.RoomID, g.GameID)
	c.metrics.Rooms.WithLabelValues(string(playing.Status)).Inc()
	c.broadcastRoom(rm.RoomID, constants.EvtGameStart, protocol.GameStartPayload{
		GameID:    g.GameID,
		RoomID:    g.RoomID,
		TurnIndex: g.TurnIndex,
		Players:   g.Players,
	})
	return playing, nil
}

func (c *Coordinator) leave(ctx context.Context, r *call) (interface{}, error) {
	var p protocol.LeavePayload
	if err := protocol.DecodePayload(r.req.Payload, &p); err != nil {
		return nil, err
	}
	if p.RoomID != "" {
		if err := c.leaveRoom(ctx, p.RoomID, r.userID()); err != nil {
			return nil, err
		}
		return protocol.LeaveResult{RoomIDs: []string{p.RoomID}}, nil
	}

	rooms, err := c.rooms.RoomsForUser(ctx, r.userID())
	if err != nil {
		return nil, err
	}
	left := make([]string, 0, len(rooms))
	for _, rm := range rooms {
		if rm.Status != constants.RoomWaiting {
			continue
		}
		err := c.leaveRoom(ctx, rm.RoomID, r.userID())
		switch errs.CodeOf(err) {
		case "":
			left = append(left, rm.RoomID)
		case constants.ErrRoomNotAvailable, constants.ErrNotInRoom:
			// la salle a changé d'état depuis la lecture
		default:
			return nil, err
		}
	}
	return protocol.LeaveResult{LeftAll: true, RoomIDs: left}, nil
}

func (c *Coordinator) leaveRoom(ctx context.Context, roomID, userID string) error {
	return c.inRoom(ctx, roomID, func(ctx context.Context) error {
		rm, err := c.rooms.Leave(ctx, roomID, userID)
		if err != nil {
			return err
		}
		c.presence.Leave(roomID, userID)
		c.broadcastRoom(roomID, constants.EvtRoomUpdate, protocol.RoomPayload{Room: rm})
		if rm.Status == constants.RoomCancelled {
			c.metrics.Rooms.WithLabelValues(string(rm.Status)).Inc()
			c.presence.ClearRoom(roomID)
		}
		return nil
	})
}

func (c *Coordinator) listRooms(ctx context.Context, r *call) (interface{}, error) {
	var p protocol.EmptyPayload
	if err := protocol.DecodePayload(r.req.Payload, &p); err != nil {
		return nil, err
	}
	rooms, err := c.rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	return protocol.RoomsPayload{Rooms: rooms}, nil
}

func (c *Coordinator) rollDice(ctx context.Context, r *call) (interface{}, error) {
	var p protocol.RoomRefPayload
	if err := protocol.DecodePayload(r.req.Payload, &p); err != nil {
		return nil, err
	}
	var res *game.RollResult
	err := c.inRoom(ctx, p.RoomID, func(ctx context.Context) error {
		gameID, err := c.gameFor(ctx, p.RoomID)
		if err != nil {
			return err
		}
		if res, err = c.engine.Roll(ctx, r.userID(), gameID); err != nil {
			return err
		}
		c.broadcastRoom(p.RoomID, constants.EvtDiceResult, res)
		if res.Skipped {
			c.broadcastRoom(p.RoomID, constants.EvtTurnChange, protocol.TurnChangePayload{TurnIndex: res.TurnIndex})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Coordinator) moveToken(ctx context.Context, r *call) (interface{}, error) {
	var p protocol.MovePayload
	if err := protocol.DecodePayload(r.req.Payload, &p); err != nil {
		return nil, err
	}
	var res *game.MoveResult
	err := c.inRoom(ctx, p.RoomID, func(ctx context.Context) error {
		gameID, err := c.gameFor(ctx, p.RoomID)
		if err != nil {
			return err
		}
		if res, err = c.engine.Move(ctx, r.userID(), gameID, *p.TokenIndex, p.Steps); err != nil {
			return err
		}
		c.broadcastRoom(p.RoomID, constants.EvtTokenMoved, protocol.TokenMovePayload{
			PlayerIndex:    res.PlayerIndex,
			TokenIndex:     res.TokenIndex,
			Steps:          res.Steps,
			NewState:       res.To.State,
			StepsFromStart: res.To.StepsFromStart,
			Captures:       res.Captures,
		})
		if res.Ended {
			c.finishGame(p.RoomID, protocol.GameEndPayload{
				GameID:       gameID,
				Status:       constants.GameEnded,
				WinnerUserID: res.WinnerUserID,
			})
		} else {
			c.broadcastRoom(p.RoomID, constants.EvtTurnChange, protocol.TurnChangePayload{TurnIndex: res.NextTurnIndex})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// finishGame diffuse la fin de partie puis oublie la salle
func (c *Coordinator) finishGame(roomID string, end protocol.GameEndPayload) {
	c.broadcastRoom(roomID, constants.EvtGameEnd, end)
	c.metrics.Rooms.WithLabelValues(string(constants.RoomEnded)).Inc()
	c.mu.Lock()
	delete(c.roomGames, roomID)
	c.mu.Unlock()
	c.presence.ClearRoom(roomID)
}

func (c *Coordinator) getGame(ctx context.Context, r *call) (interface{}, error) {
	var p protocol.RoomRefPayload
	if err := protocol.DecodePayload(r.req.Payload, &p); err != nil {
		return nil, err
	}
	var view models.GameView
	err := c.inRoom(ctx, p.RoomID, func(ctx context.Context) error {
		gameID, err := c.gameFor(ctx, p.RoomID)
		if err != nil {
			return err
		}
		g, err := c.engine.Get(ctx, gameID)
		if err != nil {
			return err
		}
		view = g.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return protocol.GamePayload{Game: view}, nil
}

// reconnect réabonne un joueur à sa partie et lui pousse l'état courant
func (c *Coordinator) reconnect(ctx context.Context, r *call) (interface{}, error) {
	var p protocol.ReconnectPayload
	if err := protocol.DecodePayload(r.req.Payload, &p); err != nil {
		return nil, err
	}
	if p.RoomID == "" {
		return nil, errs.NotFound(constants.ErrNoPriorRoom, "no prior room")
	}
	userID := r.userID()
	err := c.inRoom(ctx, p.RoomID, func(ctx context.Context) error {
		g, err := c.engine.ActiveGameForRoom(ctx, p.RoomID)
		if errs.CodeOf(err) == constants.ErrNoGame {
			return errs.NotFound(constants.ErrReconnectFailed, "no active game for room")
		}
		if err != nil {
			return err
		}
		idx := g.PlayerIndex(userID)
		if idx < 0 {
			return errs.NotFound(constants.ErrReconnectFailed, "not a player of this game")
		}

		c.setGame(p.RoomID, g.GameID)
		c.presence.Join(p.RoomID, userID)
		r.reply(protocol.ReconnectResult{GameID: g.GameID, RoomID: p.RoomID}, nil)

		state := protocol.GameStatePayload{Game: g.View()}
		if g.HasPending() && g.PendingDicePlayerIndex == idx {
			state.LegalTokens = game.LegalTokens(g, idx, g.PendingDiceValue, c.engine.Rules())
		}
		c.sendDirect(r.conn, constants.EvtGameState, state)

		c.logger.Info("🔄 Reconnexion",
			zap.String("roomId", p.RoomID),
			zap.String("gameId", g.GameID),
			zap.String("userId", userID),
		)
		return nil
	})
	return nil, err
}

func (c *Coordinator) chat(ctx context.Context, r *call) (interface{}, error) {
	var p protocol.ChatPayload
	if err := protocol.DecodePayload(r.req.Payload, &p); err != nil {
		return nil, err
	}
	err := c.inRoom(ctx, p.RoomID, func(ctx context.Context) error {
		rm, err := c.rooms.Get(ctx, p.RoomID)
		if err != nil {
			return err
		}
		if !rm.HasPlayer(r.userID()) {
			return errs.NotFound(constants.ErrNotInRoom, "not in room")
		}
		c.broadcastRoom(p.RoomID, constants.EvtChatMessage, protocol.ChatBroadcast{
			RoomID: p.RoomID,
			UserID: r.userID(),
			Text:   p.Text,
		})
		return nil
	})
	return nil, err
}

func (c *Coordinator) ping(_ context.Context, _ *call) (interface{}, error) {
	return nil, nil
}

// expireRoom annule une salle restée en attente au-delà du délai
func (c *Coordinator) expireRoom(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.inRoom(ctx, roomID, func(ctx context.Context) error {
		rm, cancelled, err := c.rooms.Expire(ctx, roomID)
		if err != nil || !cancelled {
			return err
		}
		c.metrics.Rooms.WithLabelValues(string(rm.Status)).Inc()
		c.broadcastRoom(roomID, constants.EvtRoomUpdate, protocol.RoomPayload{Room: rm})
		c.presence.ClearRoom(roomID)
		return nil
	})
	if err != nil {
		c.logger.Error("❌ Expiration de salle échouée", zap.String("roomId", roomID), zap.Error(err))
	}
}

// EndGame termine de force la partie d'une salle (administration)
func (c *Coordinator) EndGame(ctx context.Context, roomID, winnerUserID string) (*models.Game, error) {
	var out *models.Game
	err := c.inRoom(ctx, roomID, func(ctx context.Context) error {
		gameID, err := c.gameFor(ctx, roomID)
		if err != nil {
			return err
		}
		g, err := c.engine.End(ctx, gameID, winnerUserID)
		if err != nil {
			return err
		}
		c.finishGame(roomID, protocol.GameEndPayload{
			GameID:       g.GameID,
			Status:       g.Status,
			WinnerUserID: g.WinnerUserID,
		})
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
