// pkg/database/store.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/store"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

var _ store.Store = (*DB)(nil)

type roomRow struct {
	RoomID     string       `db:"room_id"`
	Stake      int64        `db:"stake"`
	Mode       string       `db:"mode"`
	MaxPlayers int          `db:"max_players"`
	Status     string       `db:"status"`
	Players    []byte       `db:"players"`
	CreatedAt  time.Time    `db:"created_at"`
	StartedAt  sql.NullTime `db:"started_at"`
	EndedAt    sql.NullTime `db:"ended_at"`
}

type gameRow struct {
	GameID                 string         `db:"game_id"`
	RoomID                 string         `db:"room_id"`
	Stake                  int64          `db:"stake"`
	Mode                   string         `db:"mode"`
	Status                 string         `db:"status"`
	TurnIndex              int            `db:"turn_index"`
	WinnerUserID           sql.NullString `db:"winner_user_id"`
	RNGSeed                string         `db:"rng_seed"`
	DiceSeq                uint64         `db:"dice_seq"`
	MoveSeq                uint64         `db:"move_seq"`
	PendingDiceValue       int            `db:"pending_dice_value"`
	PendingDicePlayerIndex int            `db:"pending_dice_player_index"`
	Players                []byte         `db:"players"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
}

type diceLogRow struct {
	GameID    string    `db:"game_id"`
	Seq       uint64    `db:"seq"`
	UserID    string    `db:"user_id"`
	Value     int       `db:"value"`
	TurnIndex int       `db:"turn_index"`
	At        time.Time `db:"at"`
}

type moveLogRow struct {
	GameID     string    `db:"game_id"`
	Seq        uint64    `db:"seq"`
	UserID     string    `db:"user_id"`
	TokenIndex int       `db:"token_index"`
	Steps      int       `db:"steps"`
	FromState  string    `db:"from_state"`
	FromSteps  int       `db:"from_steps"`
	ToState    string    `db:"to_state"`
	ToSteps    int       `db:"to_steps"`
	Captures   []byte    `db:"captures"`
	TurnIndex  int       `db:"turn_index"`
	At         time.Time `db:"at"`
}

const (
	roomColumns = `room_id, stake, mode, max_players, status, players, created_at, started_at, ended_at`
	gameColumns = `game_id, room_id, stake, mode, status, turn_index, winner_user_id, rng_seed,
	               dice_seq, move_seq, pending_dice_value, pending_dice_player_index, players,
	               created_at, updated_at`

	insertRoom = `INSERT INTO rooms (` + roomColumns + `)
	              VALUES (:room_id, :stake, :mode, :max_players, :status, :players, :created_at, :started_at, :ended_at)`
	updateRoom = `UPDATE rooms SET stake = :stake, mode = :mode, max_players = :max_players, status = :status,
	              players = :players, started_at = :started_at, ended_at = :ended_at
	              WHERE room_id = :room_id`
	insertGame = `INSERT INTO games (` + gameColumns + `)
	              VALUES (:game_id, :room_id, :stake, :mode, :status, :turn_index, :winner_user_id, :rng_seed,
	                      :dice_seq, :move_seq, :pending_dice_value, :pending_dice_player_index, :players,
	                      :created_at, :updated_at)`
	updateGame = `UPDATE games SET status = :status, turn_index = :turn_index, winner_user_id = :winner_user_id,
	              dice_seq = :dice_seq, move_seq = :move_seq, pending_dice_value = :pending_dice_value,
	              pending_dice_player_index = :pending_dice_player_index, players = :players,
	              updated_at = :updated_at
	              WHERE game_id = :game_id`
	insertDiceLog = `INSERT INTO dice_logs (game_id, seq, user_id, value, turn_index, at)
	                 VALUES (:game_id, :seq, :user_id, :value, :turn_index, :at)`
	insertMoveLog = `INSERT INTO move_logs (game_id, seq, user_id, token_index, steps, from_state, from_steps,
	                 to_state, to_steps, captures, turn_index, at)
	                 VALUES (:game_id, :seq, :user_id, :token_index, :steps, :from_state, :from_steps,
	                 :to_state, :to_steps, :captures, :turn_index, :at)`
)

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toRoomRow(r *models.Room) (*roomRow, error) {
	players, err := json.Marshal(r.Players)
	if err != nil {
		return nil, fmt.Errorf("failed to encode room players: %w", err)
	}
	return &roomRow{
		RoomID:     r.RoomID,
		Stake:      r.Stake,
		Mode:       string(r.Mode),
		MaxPlayers: r.MaxPlayers,
		Status:     string(r.Status),
		Players:    players,
		CreatedAt:  r.CreatedAt,
		StartedAt:  nullTime(r.StartedAt),
		EndedAt:    nullTime(r.EndedAt),
	}, nil
}

func (row *roomRow) model() (*models.Room, error) {
	r := &models.Room{
		RoomID:     row.RoomID,
		Stake:      row.Stake,
		Mode:       constants.GameMode(row.Mode),
		MaxPlayers: row.MaxPlayers,
		Status:     constants.RoomStatus(row.Status),
		CreatedAt:  row.CreatedAt,
		StartedAt:  timePtr(row.StartedAt),
		EndedAt:    timePtr(row.EndedAt),
	}
	if err := json.Unmarshal(row.Players, &r.Players); err != nil {
		return nil, fmt.Errorf("failed to decode room %s players: %w", row.RoomID, err)
	}
	return r, nil
}

func toGameRow(g *models.Game) (*gameRow, error) {
	players, err := json.Marshal(g.Players)
	if err != nil {
		return nil, fmt.Errorf("failed to encode game players: %w", err)
	}
	return &gameRow{
		GameID:                 g.GameID,
		RoomID:                 g.RoomID,
		Stake:                  g.Stake,
		Mode:                   string(g.Mode),
		Status:                 string(g.Status),
		TurnIndex:              g.TurnIndex,
		WinnerUserID:           sql.NullString{String: g.WinnerUserID, Valid: g.WinnerUserID != ""},
		RNGSeed:                g.RNGSeed,
		DiceSeq:                g.DiceSeq,
		MoveSeq:                g.MoveSeq,
		PendingDiceValue:       g.PendingDiceValue,
		PendingDicePlayerIndex: g.PendingDicePlayerIndex,
		Players:                players,
		CreatedAt:              g.CreatedAt,
		UpdatedAt:              g.UpdatedAt,
	}, nil
}

func (row *gameRow) model() (*models.Game, error) {
	g := &models.Game{
		GameID:                 row.GameID,
		RoomID:                 row.RoomID,
		Stake:                  row.Stake,
		Mode:                   constants.GameMode(row.Mode),
		Status:                 constants.GameStatus(row.Status),
		TurnIndex:              row.TurnIndex,
		WinnerUserID:           row.WinnerUserID.String,
		RNGSeed:                row.RNGSeed,
		DiceSeq:                row.DiceSeq,
		MoveSeq:                row.MoveSeq,
		PendingDiceValue:       row.PendingDiceValue,
		PendingDicePlayerIndex: row.PendingDicePlayerIndex,
		CreatedAt:              row.CreatedAt,
		UpdatedAt:              row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Players, &g.Players); err != nil {
		return nil, fmt.Errorf("failed to decode game %s players: %w", row.GameID, err)
	}
	return g, nil
}

// CreateRoom enregistre une nouvelle salle
func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	row, err := toRoomRow(room)
	if err != nil {
		return err
	}
	if _, err := db.conn.NamedExecContext(ctx, insertRoom, row); err != nil {
		if isDuplicate(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// GetRoom lit une salle
func (db *DB) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var row roomRow
	err := db.conn.GetContext(ctx, &row, `SELECT `+roomColumns+` FROM rooms WHERE room_id = ?`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return row.model()
}

// UpdateRoom remplace une salle existante
func (db *DB) UpdateRoom(ctx context.Context, room *models.Room) error {
	row, err := toRoomRow(room)
	if err != nil {
		return err
	}
	res, err := db.conn.NamedExecContext(ctx, updateRoom, row)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	return expectRow(res)
}

// ListRooms liste les salles d'un statut, les plus récentes d'abord
func (db *DB) ListRooms(ctx context.Context, status constants.RoomStatus) ([]*models.Room, error) {
	var rows []roomRow
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE status = ? ORDER BY created_at DESC`
	if err := db.conn.SelectContext(ctx, &rows, query, string(status)); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms := make([]*models.Room, 0, len(rows))
	for i := range rows {
		r, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, nil
}

// ListRoomsForUser liste les salles d'un joueur dans l'un des statuts, les plus récentes d'abord.
// La recherche passe par l'index multi-valué idx_rooms_players.
func (db *DB) ListRoomsForUser(ctx context.Context, userID string, statuses ...constants.RoomStatus) ([]*models.Room, error) {
	rooms := make([]*models.Room, 0)
	if len(statuses) == 0 {
		return rooms, nil
	}
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	query, args, err := sqlx.In(`SELECT `+roomColumns+` FROM rooms
		WHERE ? MEMBER OF (players->'$[*].userId') AND status IN (?)
		ORDER BY created_at DESC`, userID, values)
	if err != nil {
		return nil, fmt.Errorf("failed to build rooms query: %w", err)
	}

	var rows []roomRow
	if err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list rooms for user: %w", err)
	}
	for i := range rows {
		r, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, nil
}

// CreateGame enregistre une nouvelle partie et ses journaux
func (db *DB) CreateGame(ctx context.Context, game *models.Game) error {
	row, err := toGameRow(game)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertGame, row); err != nil {
		if isDuplicate(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create game: %w", err)
	}
	if err := appendLogs(ctx, tx, game); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateGame remplace l'état d'une partie; les journaux ne font que s'allonger
func (db *DB) UpdateGame(ctx context.Context, game *models.Game) error {
	row, err := toGameRow(game)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, updateGame, row)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}
	if err := appendLogs(ctx, tx, game); err != nil {
		return err
	}
	return tx.Commit()
}

// GetGame lit une partie avec ses journaux
func (db *DB) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	var row gameRow
	err := db.conn.GetContext(ctx, &row, `SELECT `+gameColumns+` FROM games WHERE game_id = ?`, gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	game, err := row.model()
	if err != nil {
		return nil, err
	}

	var dice []diceLogRow
	if err := db.conn.SelectContext(ctx, &dice,
		`SELECT game_id, seq, user_id, value, turn_index, at FROM dice_logs WHERE game_id = ? ORDER BY seq`,
		gameID); err != nil {
		return nil, fmt.Errorf("failed to get dice logs: %w", err)
	}
	game.DiceLogs = make([]models.DiceLog, 0, len(dice))
	for _, d := range dice {
		game.DiceLogs = append(game.DiceLogs, models.DiceLog{
			Seq: d.Seq, UserID: d.UserID, Value: d.Value, TurnIndex: d.TurnIndex, At: d.At,
		})
	}

	var moves []moveLogRow
	if err := db.conn.SelectContext(ctx, &moves,
		`SELECT game_id, seq, user_id, token_index, steps, from_state, from_steps, to_state, to_steps,
		        captures, turn_index, at FROM move_logs WHERE game_id = ? ORDER BY seq`,
		gameID); err != nil {
		return nil, fmt.Errorf("failed to get move logs: %w", err)
	}
	game.MoveLogs = make([]models.MoveLog, 0, len(moves))
	for _, m := range moves {
		entry := models.MoveLog{
			Seq:        m.Seq,
			UserID:     m.UserID,
			TokenIndex: m.TokenIndex,
			Steps:      m.Steps,
			From:       models.Position{State: constants.TokenState(m.FromState), StepsFromStart: m.FromSteps},
			To:         models.Position{State: constants.TokenState(m.ToState), StepsFromStart: m.ToSteps},
			TurnIndex:  m.TurnIndex,
			At:         m.At,
		}
		if err := json.Unmarshal(m.Captures, &entry.Captures); err != nil {
			return nil, fmt.Errorf("failed to decode captures of move %d: %w", m.Seq, err)
		}
		game.MoveLogs = append(game.MoveLogs, entry)
	}
	return game, nil
}

// FindActiveGameByRoom retourne la partie en cours d'une salle
func (db *DB) FindActiveGameByRoom(ctx context.Context, roomID string) (*models.Game, error) {
	var gameID string
	err := db.conn.GetContext(ctx, &gameID,
		`SELECT game_id FROM games WHERE room_id = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		roomID, string(constants.GamePlaying))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active game: %w", err)
	}
	return db.GetGame(ctx, gameID)
}

// appendLogs insère les entrées de journal plus récentes que celles déjà persistées
func appendLogs(ctx context.Context, tx *sqlx.Tx, g *models.Game) error {
	var maxDice uint64
	if err := tx.GetContext(ctx, &maxDice,
		`SELECT COALESCE(MAX(seq), 0) FROM dice_logs WHERE game_id = ?`, g.GameID); err != nil {
		return fmt.Errorf("failed to read dice log head: %w", err)
	}
	dice := make([]diceLogRow, 0)
	for _, d := range g.DiceLogs {
		if d.Seq > maxDice {
			dice = append(dice, diceLogRow{
				GameID: g.GameID, Seq: d.Seq, UserID: d.UserID, Value: d.Value, TurnIndex: d.TurnIndex, At: d.At,
			})
		}
	}
	if len(dice) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertDiceLog, dice); err != nil {
			return fmt.Errorf("failed to append dice logs: %w", err)
		}
	}

	var maxMove uint64
	if err := tx.GetContext(ctx, &maxMove,
		`SELECT COALESCE(MAX(seq), 0) FROM move_logs WHERE game_id = ?`, g.GameID); err != nil {
		return fmt.Errorf("failed to read move log head: %w", err)
	}
	moves := make([]moveLogRow, 0)
	for _, m := range g.MoveLogs {
		if m.Seq <= maxMove {
			continue
		}
		captures := m.Captures
		if captures == nil {
			captures = []models.Capture{}
		}
		encoded, err := json.Marshal(captures)
		if err != nil {
			return fmt.Errorf("failed to encode captures: %w", err)
		}
		moves = append(moves, moveLogRow{
			GameID:     g.GameID,
			Seq:        m.Seq,
			UserID:     m.UserID,
			TokenIndex: m.TokenIndex,
			Steps:      m.Steps,
			FromState:  string(m.From.State),
			FromSteps:  m.From.StepsFromStart,
			ToState:    string(m.To.State),
			ToSteps:    m.To.StepsFromStart,
			Captures:   encoded,
			TurnIndex:  m.TurnIndex,
			At:         m.At,
		})
	}
	if len(moves) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertMoveLog, moves); err != nil {
			return fmt.Errorf("failed to append move logs: %w", err)
		}
	}
	return nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
