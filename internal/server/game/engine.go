// internal/server/game/engine.go
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/store"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/wallet"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/board"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
	"github.com/obrien-tchaleu/ludo-stake-go/pkg/fairrng"
)

// Config regroupe les paramètres du moteur
type Config struct {
	Rules             Rules
	QuickTokens       int
	QuickWinTokens    int
	CommissionPercent int
}

// DefaultConfig retourne la configuration par défaut
func DefaultConfig() Config {
	return Config{
		Rules:             DefaultRules(),
		QuickTokens:       constants.QuickTokens,
		QuickWinTokens:    constants.QuickWinTokens,
		CommissionPercent: constants.DefaultCommissionPercent,
	}
}

// EngineCallbacks définit les callbacks pour les événements du jeu
type EngineCallbacks struct {
	OnGameStarted func(game *models.Game)
	OnDiceRolled  func(game *models.Game, value int, skipped bool)
	OnTokenMoved  func(game *models.Game, move models.MoveLog)
	OnGameOver    func(game *models.Game)
}

// RollResult est le résultat d'un lancer
type RollResult struct {
	Value       int   `json:"value"`
	Skipped     bool  `json:"skipped"`
	LegalTokens []int `json:"legalTokens"`
	MustMove    bool  `json:"mustMove"`
	TurnIndex   int   `json:"turnIndex"`
	PlayerIndex int   `json:"-"`
}

// MoveResult est le résultat d'un déplacement
type MoveResult struct {
	PlayerIndex   int              `json:"playerIndex"`
	TokenIndex    int              `json:"tokenIndex"`
	Steps         int              `json:"steps"`
	From          models.Position  `json:"from"`
	To            models.Position  `json:"to"`
	Captures      []models.Capture `json:"captures"`
	ExtraTurn     bool             `json:"extraTurn"`
	NextTurnIndex int              `json:"nextTurnIndex"`
	Ended         bool             `json:"ended"`
	WinnerUserID  string           `json:"winnerUserId,omitempty"`
}

// Engine gère la logique des parties
type Engine struct {
	store     store.Store
	wallet    wallet.Wallet
	cfg       Config
	clock     clock.Clock
	logger    *zap.Logger
	callbacks EngineCallbacks
	newSeed   func() (string, error)
	rollDie   func(secret string, seq uint64) int
}

// Option configure le moteur
type Option func(*Engine)

// WithClock remplace l'horloge
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger remplace le logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCallbacks installe les callbacks
func WithCallbacks(cb EngineCallbacks) Option {
	return func(e *Engine) { e.callbacks = cb }
}

// WithDiceSource remplace la source des dés et des secrets
func WithDiceSource(newSeed func() (string, error), rollDie func(string, uint64) int) Option {
	return func(e *Engine) {
		e.newSeed = newSeed
		e.rollDie = rollDie
	}
}

// NewEngine crée un nouveau moteur de jeu
func NewEngine(st store.Store, w wallet.Wallet, cfg Config, opts ...Option) *Engine {
	if cfg.Rules.SafeSquares == nil {
		cfg.Rules.SafeSquares = board.DefaultSafeSquares()
	}
	if cfg.QuickTokens <= 0 || cfg.QuickTokens > constants.ClassicTokens {
		cfg.QuickTokens = constants.QuickTokens
	}
	if cfg.QuickWinTokens <= 0 || cfg.QuickWinTokens > cfg.QuickTokens {
		cfg.QuickWinTokens = cfg.QuickTokens
	}

	e := &Engine{
		store:   st,
		wallet:  w,
		cfg:     cfg,
		clock:   clock.New(),
		logger:  zap.NewNop(),
		newSeed: fairrng.NewSeed,
		rollDie: fairrng.RollDie,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules retourne les règles utilisées par le moteur
func (e *Engine) Rules() Rules {
	return e.cfg.Rules
}

func (e *Engine) tokensFor(mode constants.GameMode) int {
	if mode == constants.ModeQuick {
		return e.cfg.QuickTokens
	}
	return constants.ClassicTokens
}

// Start crée la partie d'une salle pleine
func (e *Engine) Start(ctx context.Context, room *models.Room) (*models.Game, error) {
	if room == nil {
		return nil, errs.NotFound(constants.ErrNoRoom, "room not found")
	}
	if room.Status != constants.RoomFull && room.Status != constants.RoomPlaying {
		return nil, errs.Conflict(constants.ErrRoomNotAvailable, "room not ready")
	}
	if len(room.Players) < constants.MinPlayers {
		return nil, errs.Conflict(constants.ErrRoomNotAvailable, "not enough players")
	}

	seed, err := e.newSeed()
	if err != nil {
		return nil, errs.Internal("generate seed", err)
	}

	now := e.clock.Now()
	tokenCount := e.tokensFor(room.Mode)
	players := make([]models.GamePlayer, len(room.Players))
	for i, p := range room.Players {
		players[i] = models.GamePlayer{
			UserID: p.UserID,
			Color:  constants.SeatColors[i%len(constants.SeatColors)],
			Tokens: models.NewTokens(tokenCount),
		}
	}

	g := &models.Game{
		GameID:                 uuid.New().String(),
		RoomID:                 room.RoomID,
		Stake:                  room.Stake,
		Mode:                   room.Mode,
		Players:                players,
		TurnIndex:              0,
		Status:                 constants.GamePlaying,
		RNGSeed:                seed,
		PendingDicePlayerIndex: models.NoPendingPlayer,
		DiceLogs:               []models.DiceLog{},
		MoveLogs:               []models.MoveLog{},
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := e.store.CreateGame(ctx, g); err != nil {
		return nil, errs.Internal("create game", err)
	}

	e.logger.Info("🎮 Partie démarrée",
		zap.String("gameId", g.GameID),
		zap.String("roomId", g.RoomID),
		zap.Int("players", len(players)),
		zap.String("mode", string(g.Mode)),
	)
	if e.callbacks.OnGameStarted != nil {
		e.callbacks.OnGameStarted(g.Clone())
	}
	return g, nil
}

// load lit une partie, copie de travail de l'opération
func (e *Engine) load(ctx context.Context, gameID string) (*models.Game, error) {
	g, err := e.store.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound(constants.ErrNoGame, "game not found")
	}
	if err != nil {
		return nil, errs.Internal("load game", err)
	}
	return g.Clone(), nil
}

func (e *Engine) checkTurn(g *models.Game, userID string) (int, error) {
	if g.Status != constants.GamePlaying {
		return 0, errs.Conflict(constants.ErrGameNotPlaying, "game not active")
	}
	idx := g.PlayerIndex(userID)
	if idx < 0 || idx != g.TurnIndex {
		return 0, errs.Rule(constants.ErrNotYourTurn, "not your turn")
	}
	return idx, nil
}

func nextTurn(g *models.Game) {
	g.TurnIndex = (g.TurnIndex + 1) % len(g.Players)
}

// Roll lance le dé pour le joueur dont c'est le tour
func (e *Engine) Roll(ctx context.Context, userID, gameID string) (*RollResult, error) {
	g, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	idx, err := e.checkTurn(g, userID)
	if err != nil {
		return nil, err
	}
	if g.HasPending() {
		return nil, errs.Conflict(constants.ErrPendingMove, "pending move exists").
			With("pendingValue", g.PendingDiceValue)
	}

	now := e.clock.Now()
	g.DiceSeq++
	value := e.rollDie(g.RNGSeed, g.DiceSeq)
	g.DiceLogs = append(g.DiceLogs, models.DiceLog{
		Seq:       g.DiceSeq,
		UserID:    userID,
		Value:     value,
		TurnIndex: g.TurnIndex,
		At:        now,
	})
	g.SetPending(value)

	res := &RollResult{
		Value:       value,
		LegalTokens: LegalTokens(g, idx, value, e.cfg.Rules),
		PlayerIndex: idx,
	}
	if len(res.LegalTokens) == 0 {
		g.ClearPending()
		nextTurn(g)
		res.Skipped = true
	} else {
		res.MustMove = true
	}
	res.TurnIndex = g.TurnIndex
	g.UpdatedAt = now

	if err := e.store.UpdateGame(ctx, g); err != nil {
		return nil, errs.Internal("save roll", err)
	}

	e.logger.Info("🎲 Dé lancé",
		zap.String("gameId", gameID),
		zap.String("userId", userID),
		zap.Uint64("seq", g.DiceSeq),
		zap.Int("value", value),
		zap.Bool("skipped", res.Skipped),
	)
	if e.callbacks.OnDiceRolled != nil {
		e.callbacks.OnDiceRolled(g.Clone(), value, res.Skipped)
	}
	return res, nil
}

// Move joue le dé en attente avec un pion
func (e *Engine) Move(ctx context.Context, userID, gameID string, tokenIndex, steps int) (*MoveResult, error) {
	g, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	idx, err := e.checkTurn(g, userID)
	if err != nil {
		return nil, err
	}
	if !g.HasPending() {
		return nil, errs.Conflict(constants.ErrNoPendingDice, "no pending dice")
	}
	if g.PendingDicePlayerIndex != g.TurnIndex {
		return nil, errs.Conflict(constants.ErrTurnDesync, "turn desync")
	}
	if steps != g.PendingDiceValue {
		return nil, errs.Rule(constants.ErrStepsMismatch, "move steps must match dice").
			With("pendingValue", g.PendingDiceValue)
	}

	verdict := ValidateMove(g, idx, tokenIndex, steps, e.cfg.Rules)
	if !verdict.Legal {
		return nil, errs.Rule(constants.ErrIllegalMove, verdict.Reason).With("reason", verdict.Reason)
	}

	now := e.clock.Now()
	player := &g.Players[idx]
	from := player.Tokens[tokenIndex].Position()
	applyPosition(&player.Tokens[tokenIndex], verdict.To)
	for _, c := range verdict.Captures {
		victim := &g.Players[c.PlayerIndex].Tokens[c.TokenIndex]
		victim.State = constants.TokenBase
		victim.StepsFromStart = constants.BaseSteps
	}

	g.MoveSeq++
	move := models.MoveLog{
		Seq:        g.MoveSeq,
		UserID:     userID,
		TokenIndex: tokenIndex,
		Steps:      steps,
		From:       from,
		To:         verdict.To,
		Captures:   append([]models.Capture{}, verdict.Captures...),
		TurnIndex:  g.TurnIndex,
		At:         now,
	}
	g.MoveLogs = append(g.MoveLogs, move)
	g.ClearPending()

	res := &MoveResult{
		PlayerIndex: idx,
		TokenIndex:  tokenIndex,
		Steps:       steps,
		From:        from,
		To:          verdict.To,
		Captures:    move.Captures,
		ExtraTurn:   verdict.ExtraTurn,
	}

	if e.hasWon(g, player) {
		g.Status = constants.GameEnded
		g.WinnerUserID = userID
		res.Ended = true
		res.WinnerUserID = userID
	} else if !verdict.ExtraTurn {
		nextTurn(g)
	}
	res.NextTurnIndex = g.TurnIndex
	g.UpdatedAt = now

	if err := e.store.UpdateGame(ctx, g); err != nil {
		return nil, errs.Internal("save move", err)
	}

	e.logger.Info("♟️ Pion déplacé",
		zap.String("gameId", gameID),
		zap.String("userId", userID),
		zap.Int("tokenIndex", tokenIndex),
		zap.Int("steps", steps),
		zap.Int("to", verdict.To.StepsFromStart),
		zap.Int("captures", len(verdict.Captures)),
	)
	if e.callbacks.OnTokenMoved != nil {
		e.callbacks.OnTokenMoved(g.Clone(), move)
	}

	if res.Ended {
		e.settle(ctx, g)
	}
	return res, nil
}

func applyPosition(t *models.Token, pos models.Position) {
	t.State = pos.State
	t.StepsFromStart = pos.StepsFromStart
}

func (e *Engine) hasWon(g *models.Game, p *models.GamePlayer) bool {
	home := p.TokensHome()
	if g.Mode == constants.ModeQuick {
		return home >= e.cfg.QuickWinTokens
	}
	return len(p.Tokens) > 0 && home == len(p.Tokens)
}

// End termine une partie de force; sans vainqueur la partie est annulée
// et toutes les mises sont rendues. Sans effet si la partie est déjà finie.
func (e *Engine) End(ctx context.Context, gameID, winnerUserID string) (*models.Game, error) {
	g, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != constants.GamePlaying {
		return g, nil
	}
	if winnerUserID != "" && g.PlayerIndex(winnerUserID) < 0 {
		return nil, errs.Validation("winner is not a player of this game")
	}

	if winnerUserID != "" {
		g.Status = constants.GameEnded
		g.WinnerUserID = winnerUserID
	} else {
		g.Status = constants.GameAborted
	}
	g.ClearPending()
	g.UpdatedAt = e.clock.Now()

	if err := e.store.UpdateGame(ctx, g); err != nil {
		return nil, errs.Internal("end game", err)
	}
	e.settle(ctx, g)
	return g, nil
}

// settle clôt la salle puis règle les mises; les échecs du portefeuille
// sont journalisés pour un règlement manuel.
func (e *Engine) settle(ctx context.Context, g *models.Game) {
	log := e.logger.With(zap.String("gameId", g.GameID), zap.String("roomId", g.RoomID))

	if err := e.closeRoom(ctx, g.RoomID); err != nil {
		log.Error("❌ Erreur fermeture salle", zap.Error(err))
	}

	if g.Status == constants.GameEnded {
		amount := wallet.Payout(g.Stake, len(g.Players), e.cfg.CommissionPercent)
		if err := e.wallet.ProcessPayout(ctx, g.WinnerUserID, amount, g.RoomID); err != nil {
			log.Error("❌ Paiement échoué, règlement manuel requis",
				zap.String("winnerUserId", g.WinnerUserID),
				zap.Int64("amount", amount),
				zap.Error(err),
			)
		} else {
			log.Info("🏆 Partie terminée",
				zap.String("winnerUserId", g.WinnerUserID),
				zap.Int64("payout", amount),
			)
		}
	} else {
		for _, p := range g.Players {
			if err := e.wallet.UnlockStake(ctx, p.UserID, g.Stake, g.RoomID); err != nil {
				log.Error("❌ Remboursement échoué, règlement manuel requis",
					zap.String("userId", p.UserID),
					zap.Error(err),
				)
			}
		}
		log.Info("🛑 Partie annulée")
	}

	if e.callbacks.OnGameOver != nil {
		e.callbacks.OnGameOver(g.Clone())
	}
}

func (e *Engine) closeRoom(ctx context.Context, roomID string) error {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("load room %s: %w", roomID, err)
	}
	if room.Status == constants.RoomEnded || room.Status == constants.RoomCancelled {
		return nil
	}
	now := e.clock.Now()
	room.Status = constants.RoomEnded
	room.EndedAt = &now
	if err := e.store.UpdateRoom(ctx, room); err != nil {
		return fmt.Errorf("update room %s: %w", roomID, err)
	}
	return nil
}

// Get retourne une partie
func (e *Engine) Get(ctx context.Context, gameID string) (*models.Game, error) {
	return e.load(ctx, gameID)
}

// ActiveGameForRoom retourne la partie en cours d'une salle
func (e *Engine) ActiveGameForRoom(ctx context.Context, roomID string) (*models.Game, error) {
	g, err := e.store.FindActiveGameByRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound(constants.ErrNoGame, "no active game for room")
	}
	if err != nil {
		return nil, errs.Internal("find active game", err)
	}
	return g, nil
}

// Audit rejoue le journal de dés d'une partie
func (e *Engine) Audit(ctx context.Context, gameID string) error {
	g, err := e.load(ctx, gameID)
	if err != nil {
		return err
	}
	rolls := make([]fairrng.Roll, len(g.DiceLogs))
	for i, d := range g.DiceLogs {
		rolls[i] = fairrng.Roll{Seq: d.Seq, Value: d.Value}
	}
	if err := fairrng.Verify(g.RNGSeed, rolls); err != nil {
		return fmt.Errorf("audit game %s: %w", gameID, err)
	}
	return nil
}
