// pkg/database/wallet.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/wallet"
)

var _ wallet.Wallet = (*Wallet)(nil)

// Wallet est un portefeuille persisté dans MySQL.
// Les comptes inconnus sont créés avec le solde initial.
type Wallet struct {
	db              *DB
	startingBalance int64
}

// NewWallet crée un portefeuille MySQL
func NewWallet(db *DB, startingBalance int64) *Wallet {
	return &Wallet{db: db, startingBalance: startingBalance}
}

// Balance retourne le solde disponible
func (w *Wallet) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := w.db.conn.GetContext(ctx, &balance, `SELECT balance FROM wallets WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return w.startingBalance, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// LockStake débite le solde et bloque la mise sous la référence
func (w *Wallet) LockStake(ctx context.Context, userID string, amount int64, ref string) error {
	if amount <= 0 {
		return fmt.Errorf("invalid stake amount %d", amount)
	}

	tx, err := w.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO wallets (user_id, balance) VALUES (?, ?)`, userID, w.startingBalance); err != nil {
		return fmt.Errorf("failed to open wallet: %w", err)
	}

	var balance int64
	if err := tx.GetContext(ctx, &balance,
		`SELECT balance FROM wallets WHERE user_id = ? FOR UPDATE`, userID); err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if balance < amount {
		return wallet.ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance - ? WHERE user_id = ?`, amount, userID); err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stake_locks (ref, user_id, amount) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE amount = amount + VALUES(amount)`, ref, userID, amount); err != nil {
		return fmt.Errorf("failed to lock stake: %w", err)
	}
	return tx.Commit()
}

// UnlockStake rend une mise bloquée
func (w *Wallet) UnlockStake(ctx context.Context, userID string, amount int64, ref string) error {
	tx, err := w.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked int64
	err = tx.GetContext(ctx, &locked,
		`SELECT amount FROM stake_locks WHERE ref = ? AND user_id = ? FOR UPDATE`, ref, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read lock: %w", err)
	}
	if locked < amount || amount <= 0 {
		return fmt.Errorf("unlock %d for %s on %s: %w", amount, userID, ref, wallet.ErrNoLock)
	}

	if locked == amount {
		_, err = tx.ExecContext(ctx, `DELETE FROM stake_locks WHERE ref = ? AND user_id = ?`, ref, userID)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE stake_locks SET amount = amount - ? WHERE ref = ? AND user_id = ?`, amount, ref, userID)
	}
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + ? WHERE user_id = ?`, amount, userID); err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	return tx.Commit()
}

// ProcessPayout solde les mises de la référence: le gain au vainqueur, le reste à la maison
func (w *Wallet) ProcessPayout(ctx context.Context, userID string, amount int64, ref string) error {
	tx, err := w.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var amounts []int64
	if err := tx.SelectContext(ctx, &amounts,
		`SELECT amount FROM stake_locks WHERE ref = ? FOR UPDATE`, ref); err != nil {
		return fmt.Errorf("failed to read locks: %w", err)
	}
	var pot int64
	for _, a := range amounts {
		pot += a
	}
	if pot == 0 {
		return fmt.Errorf("payout on %s: %w", ref, wallet.ErrNoLock)
	}
	if amount > pot {
		return fmt.Errorf("payout %d exceeds pot %d on %s", amount, pot, ref)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stake_locks WHERE ref = ?`, ref); err != nil {
		return fmt.Errorf("failed to settle locks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO wallets (user_id, balance) VALUES (?, ?)`, userID, w.startingBalance); err != nil {
		return fmt.Errorf("failed to open wallet: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + ? WHERE user_id = ?`, amount, userID); err != nil {
		return fmt.Errorf("failed to credit winner: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO house_ledger (ref, winner_id, pot, payout, commission) VALUES (?, ?, ?, ?, ?)`,
		ref, userID, pot, amount, pot-amount); err != nil {
		return fmt.Errorf("failed to record commission: %w", err)
	}
	return tx.Commit()
}
