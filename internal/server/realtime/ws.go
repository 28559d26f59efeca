// internal/server/realtime/ws.go
package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/auth"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 120 * time.Second
	pingPeriod     = 30 * time.Second
	sendBuffer     = 64
	maxMessageSize = 64 << 10
)

var (
	// ErrConnClosed est retourné par Send après fermeture
	ErrConnClosed = errors.New("connection closed")
	// ErrSlowConsumer ferme une connexion dont le tampon d'envoi est plein
	ErrSlowConsumer = errors.New("send buffer full")
)

// wsConn implémente Conn au-dessus d'une websocket
type wsConn struct {
	id     string
	userID string
	ws     *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	closed bool
	reason string
}

func newWSConn(userID string, ws *websocket.Conn) *wsConn {
	return &wsConn{
		id:     uuid.New().String(),
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *wsConn) ID() string     { return c.id }
func (c *wsConn) UserID() string { return c.userID }

// Send encode le message et le place dans le tampon d'envoi
func (c *wsConn) Send(msg *protocol.Message) error {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.closeLocked("slow consumer")
		return ErrSlowConsumer
	}
}

// Close termine la connexion après l'envoi des messages en attente
func (c *wsConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(reason)
}

func (c *wsConn) closeLocked(reason string) {
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason
	close(c.send)
}

func (c *wsConn) closeReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// writePump vide le tampon d'envoi et entretient la connexion par des pings
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, c.closeReason())
				_ = c.ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump lit les requêtes jusqu'à la fermeture de la connexion
func (c *wsConn) readPump(ctx context.Context, coord *Coordinator, logger *zap.Logger) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Lecture websocket interrompue", zap.String("userId", c.userID), zap.Error(err))
			}
			return
		}

		req, err := protocol.DecodeRequest(data)
		if err != nil {
			ack, encErr := protocol.NewAckError("", errs.Validation("malformed request"), coord.clock.Now())
			if encErr == nil {
				_ = c.Send(ack)
			}
			continue
		}
		coord.Handle(ctx, c, req)
	}
}

// Handler accepte les connexions websocket authentifiées sur /ws
type Handler struct {
	coord    *Coordinator
	auth     auth.Authenticator
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler crée le point d'entrée websocket
func NewHandler(coord *Coordinator, authenticator auth.Authenticator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		coord:  coord,
		auth:   authenticator,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authenticate(auth.TokenFromRequest(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("⚠️ Échec de l'upgrade websocket", zap.Error(err))
		return
	}

	conn := newWSConn(userID, ws)
	go conn.writePump()

	ctx := context.WithoutCancel(r.Context())
	if err := h.coord.Connect(ctx, conn); err != nil {
		h.logger.Error("❌ Enregistrement de connexion impossible", zap.String("userId", userID), zap.Error(err))
		conn.Close("connect failed")
		h.coord.Disconnect(conn)
		return
	}

	conn.readPump(ctx, h.coord, h.logger)
	conn.Close("disconnected")
	h.coord.Disconnect(conn)
}
