// internal/server/room/manager.go
package room

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/store"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/wallet"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

// Config regroupe les paramètres des salles
type Config struct {
	AllowedStakes []int64
	Timeout       time.Duration
}

// CreateParams décrit une demande de création de salle
type CreateParams struct {
	Stake      int64              `json:"stake"`
	Mode       constants.GameMode `json:"mode"`
	MaxPlayers int                `json:"maxPlayers"`
}

// Manager gère le cycle de vie des salles avant la partie
type Manager struct {
	store    store.Store
	wallet   wallet.Wallet
	cfg      Config
	clock    clock.Clock
	logger   *zap.Logger
	timeouts *timeouts
}

// Option configure le gestionnaire
type Option func(*Manager)

// WithClock remplace l'horloge
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger remplace le logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager crée un nouveau gestionnaire de salles
func NewManager(st store.Store, w wallet.Wallet, cfg Config, opts ...Option) *Manager {
	minTimeout := time.Duration(constants.MinRoomTimeout) * time.Second
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Duration(constants.RoomTimeout) * time.Second
	}
	if cfg.Timeout < minTimeout {
		cfg.Timeout = minTimeout
	}

	m := &Manager{
		store:  st,
		wallet: w,
		cfg:    cfg,
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.timeouts = newTimeouts(m.clock, cfg.Timeout, func(roomID string) {
		if _, _, err := m.Expire(context.Background(), roomID); err != nil {
			m.logger.Error("❌ Expiration de salle échouée", zap.String("roomId", roomID), zap.Error(err))
		}
	})
	return m
}

// SetTimeoutHandler remplace l'action déclenchée à l'expiration d'une salle.
// Le gestionnaire doit appeler Expire.
func (m *Manager) SetTimeoutHandler(fn func(roomID string)) {
	m.timeouts.setHandler(fn)
}

// Timeout retourne la durée de vie d'une salle en attente
func (m *Manager) Timeout() time.Duration {
	return m.cfg.Timeout
}

// Close annule tous les délais en cours
func (m *Manager) Close() {
	m.timeouts.stopAll()
}

func (m *Manager) validate(p CreateParams) error {
	if p.Stake <= 0 {
		return errs.Validation("stake must be positive")
	}
	if len(m.cfg.AllowedStakes) > 0 {
		allowed := false
		for _, s := range m.cfg.AllowedStakes {
			if s == p.Stake {
				allowed = true
				break
			}
		}
		if !allowed {
			return errs.Validation("stake not allowed").With("allowedStakes", m.cfg.AllowedStakes)
		}
	}
	if p.Mode != constants.ModeClassic && p.Mode != constants.ModeQuick {
		return errs.Validation("invalid mode")
	}
	if p.MaxPlayers != 2 && p.MaxPlayers != 4 {
		return errs.Validation("maxPlayers must be 2 or 4")
	}
	return nil
}

func (m *Manager) lockStake(ctx context.Context, userID string, stake int64, roomID string) error {
	err := m.wallet.LockStake(ctx, userID, stake, roomID)
	if errors.Is(err, wallet.ErrInsufficientFunds) {
		return errs.Conflict(constants.ErrInsufficientFunds, "insufficient funds")
	}
	if err != nil {
		return errs.Internal("lock stake", err)
	}
	return nil
}

func (m *Manager) unlockStake(ctx context.Context, userID string, stake int64, roomID string) {
	if err := m.wallet.UnlockStake(ctx, userID, stake, roomID); err != nil {
		m.logger.Error("❌ Déblocage de mise échoué, règlement manuel requis",
			zap.String("roomId", roomID),
			zap.String("userId", userID),
			zap.Int64("stake", stake),
			zap.Error(err),
		)
	}
}

func (m *Manager) load(ctx context.Context, roomID string) (*models.Room, error) {
	r, err := m.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound(constants.ErrNoRoom, "room not found")
	}
	if err != nil {
		return nil, errs.Internal("load room", err)
	}
	return r, nil
}

// Create crée une salle avec son créateur comme premier joueur
func (m *Manager) Create(ctx context.Context, creatorID string, p CreateParams) (*models.Room, error) {
	if err := m.validate(p); err != nil {
		return nil, err
	}

	roomID := uuid.New().String()
	if err := m.lockStake(ctx, creatorID, p.Stake, roomID); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	r := &models.Room{
		RoomID:     roomID,
		Stake:      p.Stake,
		Mode:       p.Mode,
		MaxPlayers: p.MaxPlayers,
		Status:     constants.RoomWaiting,
		Players: []models.RoomPlayer{{
			UserID:   creatorID,
			JoinedAt: now,
			Status:   constants.SeatJoined,
		}},
		CreatedAt: now,
	}
	if err := m.store.CreateRoom(ctx, r); err != nil {
		m.unlockStake(ctx, creatorID, p.Stake, roomID)
		return nil, errs.Internal("create room", err)
	}
	m.timeouts.arm(roomID)

	m.logger.Info("🏠 Salle créée",
		zap.String("roomId", roomID),
		zap.String("creator", creatorID),
		zap.Int64("stake", p.Stake),
		zap.String("mode", string(p.Mode)),
		zap.Int("maxPlayers", p.MaxPlayers),
	)
	return r, nil
}

// Join ajoute un joueur; la salle passe à "full" à pleine capacité
func (m *Manager) Join(ctx context.Context, roomID, userID string) (*models.Room, error) {
	r, err := m.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r.HasPlayer(userID) {
		return r, nil
	}
	if r.Status != constants.RoomWaiting || r.IsFull() {
		return nil, errs.Conflict(constants.ErrRoomNotAvailable, "room not available")
	}
	if err := m.lockStake(ctx, userID, r.Stake, roomID); err != nil {
		return nil, err
	}

	r.Players = append(r.Players, models.RoomPlayer{
		UserID:   userID,
		JoinedAt: m.clock.Now(),
		Status:   constants.SeatJoined,
	})
	if r.IsFull() {
		r.Status = constants.RoomFull
	}
	if err := m.store.UpdateRoom(ctx, r); err != nil {
		m.unlockStake(ctx, userID, r.Stake, roomID)
		return nil, errs.Internal("join room", err)
	}
	if r.Status == constants.RoomFull {
		m.timeouts.disarm(roomID)
	}

	m.logger.Info("👤 Joueur ajouté",
		zap.String("roomId", roomID),
		zap.String("userId", userID),
		zap.Int("players", len(r.Players)),
		zap.String("status", string(r.Status)),
	)
	return r, nil
}

// Leave retire un joueur d'une salle en attente; le dernier départ annule la salle
func (m *Manager) Leave(ctx context.Context, roomID, userID string) (*models.Room, error) {
	r, err := m.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	seat := r.SeatOf(userID)
	if seat < 0 {
		return nil, errs.NotFound(constants.ErrNotInRoom, "not in room")
	}
	if r.Status != constants.RoomWaiting {
		return nil, errs.Conflict(constants.ErrRoomNotAvailable, "room can only be left while waiting")
	}

	r.Players = append(r.Players[:seat], r.Players[seat+1:]...)
	if len(r.Players) == 0 {
		now := m.clock.Now()
		r.Status = constants.RoomCancelled
		r.EndedAt = &now
	}
	if err := m.store.UpdateRoom(ctx, r); err != nil {
		return nil, errs.Internal("leave room", err)
	}
	if r.Status == constants.RoomCancelled {
		m.timeouts.disarm(roomID)
	}
	m.unlockStake(ctx, userID, r.Stake, roomID)

	m.logger.Info("🚪 Joueur parti",
		zap.String("roomId", roomID),
		zap.String("userId", userID),
		zap.String("status", string(r.Status)),
	)
	return r, nil
}

// Cancel annule une salle en attente ou pleine et rend toutes les mises
func (m *Manager) Cancel(ctx context.Context, roomID, reason string) (*models.Room, error) {
	r, err := m.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r.Status == constants.RoomCancelled {
		return r, nil
	}
	if r.Status != constants.RoomWaiting && r.Status != constants.RoomFull {
		return nil, errs.Conflict(constants.ErrRoomNotAvailable, "room cannot be cancelled")
	}

	now := m.clock.Now()
	r.Status = constants.RoomCancelled
	r.EndedAt = &now
	if err := m.store.UpdateRoom(ctx, r); err != nil {
		return nil, errs.Internal("cancel room", err)
	}
	m.timeouts.disarm(roomID)
	for _, p := range r.Players {
		m.unlockStake(ctx, p.UserID, r.Stake, roomID)
	}

	m.logger.Info("🛑 Salle annulée",
		zap.String("roomId", roomID),
		zap.String("reason", reason),
		zap.Int("refunded", len(r.Players)),
	)
	return r, nil
}

// Expire annule la salle si elle est toujours en attente.
// Le second retour indique si l'annulation a eu lieu.
func (m *Manager) Expire(ctx context.Context, roomID string) (*models.Room, bool, error) {
	r, err := m.load(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	if r.Status != constants.RoomWaiting {
		return r, false, nil
	}
	r, err = m.Cancel(ctx, roomID, "timeout")
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// MarkPlaying fait passer une salle pleine en jeu
func (m *Manager) MarkPlaying(ctx context.Context, roomID string) (*models.Room, error) {
	r, err := m.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r.Status == constants.RoomPlaying {
		return r, nil
	}
	if r.Status != constants.RoomFull {
		return nil, errs.Conflict(constants.ErrRoomNotAvailable, "room not full")
	}
	now := m.clock.Now()
	r.Status = constants.RoomPlaying
	r.StartedAt = &now
	if err := m.store.UpdateRoom(ctx, r); err != nil {
		return nil, errs.Internal("start room", err)
	}
	return r, nil
}

// Get retourne une salle
func (m *Manager) Get(ctx context.Context, roomID string) (*models.Room, error) {
	return m.load(ctx, roomID)
}

// List retourne les salles en attente
func (m *Manager) List(ctx context.Context) ([]*models.Room, error) {
	rooms, err := m.store.ListRooms(ctx, constants.RoomWaiting)
	if err != nil {
		return nil, errs.Internal("list rooms", err)
	}
	return rooms, nil
}

// RoomsForUser retourne les salles ouvertes (attente, pleine, en jeu) d'un joueur
func (m *Manager) RoomsForUser(ctx context.Context, userID string) ([]*models.Room, error) {
	rooms, err := m.store.ListRoomsForUser(ctx, userID,
		constants.RoomWaiting, constants.RoomFull, constants.RoomPlaying)
	if err != nil {
		return nil, errs.Internal("list rooms for user", err)
	}
	return rooms, nil
}

// IsArmed indique si le délai d'expiration d'une salle est actif
func (m *Manager) IsArmed(roomID string) bool {
	return m.timeouts.armed(roomID)
}
