// cmd/client/main.go - joueur automatique en ligne de commande
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/client/session"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/auth"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/logging"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/protocol"
	"github.com/obrien-tchaleu/ludo-stake-go/pkg/ai"
)

type options struct {
	server    string
	token     string
	level     string
	roomID    string
	reconnect bool
	stake     int64
	mode      string
	players   int
	fast      bool
	logLevel  string
}

func parseFlags() *options {
	o := &options{}
	flag.StringVar(&o.server, "server", "ws://localhost:"+constants.DefaultServerPort+"/ws", "websocket endpoint")
	flag.StringVar(&o.token, "token", os.Getenv("LUDO_TOKEN"), "JWT or dev:<userId>")
	flag.StringVar(&o.level, "level", ai.LevelMedium, "bot level: easy, medium, hard")
	flag.StringVar(&o.roomID, "room", "", "join this room instead of creating one")
	flag.BoolVar(&o.reconnect, "reconnect", false, "resume the game running in -room")
	flag.Int64Var(&o.stake, "stake", 10, "stake when creating a room")
	flag.StringVar(&o.mode, "mode", string(constants.ModeClassic), "Classic or Quick")
	flag.IntVar(&o.players, "players", constants.MinPlayers, "seats when creating a room")
	flag.BoolVar(&o.fast, "fast", false, "play without thinking delay")
	flag.StringVar(&o.logLevel, "log", "info", "log level")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()
	logger, err := logging.New(opts.logLevel, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("❌ Bot arrêté", zap.Error(err))
	}
}

func run(ctx context.Context, opts *options, logger *zap.Logger) error {
	userID, err := auth.Subject(opts.token)
	if err != nil {
		return fmt.Errorf("invalid -token: %w", err)
	}
	logger = logger.With(zap.String("userId", userID))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+opts.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.server, header)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.server, err)
	}
	defer conn.Close()
	logger.Info("✅ Connecté au serveur", zap.String("server", opts.server))

	var writeMu sync.Mutex
	sess := session.New(func(data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, data)
	}, logger)
	defer sess.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer cancel()
		defer sess.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("❌ Connexion perdue", zap.Error(err))
				}
				return
			}
			if err := sess.Dispatch(data); err != nil {
				logger.Warn("⚠️ Trame illisible", zap.Error(err))
			}
		}
	}()

	if err := enter(ctx, sess, opts, logger); err != nil {
		return err
	}

	player := ai.NewAIPlayer(opts.level)
	bot := NewBot(sess, player, userID, logger)
	if opts.fast {
		bot.think = 0
	}
	end, err := bot.Run(ctx, sess.Events())
	if err != nil {
		return err
	}
	if end.WinnerUserID == userID {
		logger.Info("🎉 Victoire!")
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	return conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
}

// enter crée, rejoint ou reprend une salle
func enter(ctx context.Context, sess *session.Session, opts *options, logger *zap.Logger) error {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if opts.reconnect {
		sess.SetRoom(opts.roomID)
		_, err := sess.Reconnect(reqCtx)
		return err
	}

	var res protocol.RoomPayload
	if opts.roomID != "" {
		if err := sess.Request(reqCtx, constants.EvtSessionJoin, protocol.RoomRefPayload{RoomID: opts.roomID}, &res); err != nil {
			return err
		}
		logger.Info("👤 Salle rejointe", zap.String("roomId", res.Room.RoomID), zap.Int("players", len(res.Room.Players)))
	} else {
		payload := protocol.CreateRoomPayload{
			Stake:      opts.stake,
			Mode:       constants.GameMode(opts.mode),
			MaxPlayers: opts.players,
		}
		if err := sess.Request(reqCtx, constants.EvtSessionCreate, payload, &res); err != nil {
			return err
		}
		logger.Info("🏠 Salle créée, en attente d'adversaires", zap.String("roomId", res.Room.RoomID))
	}
	sess.SetRoom(res.Room.RoomID)
	return nil
}
