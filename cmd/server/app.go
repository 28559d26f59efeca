// cmd/server/app.go
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/auth"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/config"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/game"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/metrics"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/realtime"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/room"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/store"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/wallet"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/board"
	"github.com/obrien-tchaleu/ludo-stake-go/pkg/cache"
	"github.com/obrien-tchaleu/ludo-stake-go/pkg/database"
)

// App assemble les composants du serveur
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	engine  *game.Engine
	rooms   *room.Manager
	coord   *realtime.Coordinator
	ws      *realtime.Handler
	closers []func() error
}

// NewApp ouvre les backends configurés et câble le moteur, les salles et le temps réel
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger, metrics: metrics.New()}

	st, w, err := app.openBackends(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	gameCfg := game.Config{
		Rules: game.Rules{
			SafeSquares:    board.DefaultSafeSquares(),
			AllowBlocking:  cfg.Game.AllowBlocking,
			ExtraTurnOnSix: cfg.Game.ExtraTurnOnSix,
		},
		QuickTokens:       cfg.Game.QuickTokens,
		QuickWinTokens:    cfg.Game.QuickWinTokens,
		CommissionPercent: cfg.Game.CommissionPercent,
	}
	app.engine = game.NewEngine(st, w, gameCfg,
		game.WithLogger(logger),
		game.WithCallbacks(app.metrics.EngineCallbacks()),
	)
	app.rooms = room.NewManager(st, w, room.Config{
		AllowedStakes: cfg.Game.AllowedStakes,
		Timeout:       cfg.RoomTimeout(),
	}, room.WithLogger(logger))
	app.coord = realtime.NewCoordinator(app.rooms, app.engine,
		realtime.WithLogger(logger),
		realtime.WithMetrics(app.metrics),
		realtime.WithRequestTimeout(cfg.RequestTimeout()),
	)
	app.ws = realtime.NewHandler(app.coord, auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.AllowDevTokens), logger)
	return app, nil
}

// openBackends sélectionne le stockage et le portefeuille
func (a *App) openBackends(ctx context.Context) (store.Store, wallet.Wallet, error) {
	var db *database.DB
	if a.cfg.Storage.Driver == config.StorageMySQL || a.cfg.Wallet.Driver == config.WalletMySQL {
		d := a.cfg.Database
		conn, err := database.NewDB(d.Host, d.Port, d.Username, d.Password, d.Database)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, conn.Close)
		if err := conn.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		db = conn
		a.logger.Info("✅ Connected to database successfully", zap.String("database", d.Database))
	}

	var st store.Store
	switch a.cfg.Storage.Driver {
	case config.StorageMySQL:
		st = db
	case config.StorageRedis:
		rdb, err := cache.NewClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		st = cache.NewStore(rdb, a.cfg.RedisTTL())
		a.logger.Info("✅ Connected to redis", zap.String("addr", a.cfg.Redis.Addr))
	case config.StorageMemory:
		st = store.NewMemory()
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
	}

	var w wallet.Wallet
	switch a.cfg.Wallet.Driver {
	case config.WalletMySQL:
		w = database.NewWallet(db, a.cfg.Wallet.StartingBalance)
	case config.WalletLedger:
		w = wallet.NewLedger(a.cfg.Wallet.StartingBalance)
	default:
		return nil, nil, fmt.Errorf("unknown wallet driver %q", a.cfg.Wallet.Driver)
	}

	a.logger.Info("💾 Backends prêts",
		zap.String("storage", a.cfg.Storage.Driver),
		zap.String("wallet", a.cfg.Wallet.Driver))
	return st, w, nil
}

// Shutdown ferme les connexions et désarme les minuteries des salles
func (a *App) Shutdown(reason string) {
	if a.coord != nil {
		a.coord.CloseAll(reason)
	}
	if a.rooms != nil {
		a.rooms.Close()
	}
}

// Close libère les backends, dans l'ordre inverse d'ouverture
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("⚠️ Fermeture de backend", zap.Error(err))
		}
	}
	a.closers = nil
}
