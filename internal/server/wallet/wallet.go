// internal/server/wallet/wallet.go
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInsufficientFunds est retourné quand le solde ne couvre pas la mise
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrNoLock est retourné quand aucune mise n'est bloquée pour la référence
var ErrNoLock = errors.New("no locked stake for reference")

// Wallet est le portefeuille externe. Les appels sont atomiques et jamais rejoués.
type Wallet interface {
	LockStake(ctx context.Context, userID string, amount int64, ref string) error
	UnlockStake(ctx context.Context, userID string, amount int64, ref string) error
	ProcessPayout(ctx context.Context, userID string, amount int64, ref string) error
}

// Payout calcule le gain du vainqueur après commission
func Payout(stake int64, players int, commissionPercent int) int64 {
	pot := stake * int64(players)
	return pot - pot*int64(commissionPercent)/100
}

// Ledger est un portefeuille en mémoire.
// Les comptes inconnus sont crédités du solde initial à leur première mise.
type Ledger struct {
	mu              sync.Mutex
	startingBalance int64
	balances        map[string]int64
	locks           map[string]map[string]int64 // ref -> utilisateur -> montant
	house           int64
}

// NewLedger crée un portefeuille en mémoire
func NewLedger(startingBalance int64) *Ledger {
	return &Ledger{
		startingBalance: startingBalance,
		balances:        make(map[string]int64),
		locks:           make(map[string]map[string]int64),
	}
}

func (l *Ledger) balanceLocked(userID string) int64 {
	b, ok := l.balances[userID]
	if !ok {
		b = l.startingBalance
		l.balances[userID] = b
	}
	return b
}

// Deposit crédite un compte
func (l *Ledger) Deposit(userID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = l.balanceLocked(userID) + amount
}

// Balance retourne le solde disponible
func (l *Ledger) Balance(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(userID)
}

// Locked retourne la mise bloquée d'un utilisateur pour une référence
func (l *Ledger) Locked(userID, ref string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locks[ref][userID]
}

// House retourne les commissions encaissées
func (l *Ledger) House() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.house
}

// LockStake bloque une mise
func (l *Ledger) LockStake(ctx context.Context, userID string, amount int64, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("invalid stake amount %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balanceLocked(userID) < amount {
		return ErrInsufficientFunds
	}
	l.balances[userID] -= amount
	if l.locks[ref] == nil {
		l.locks[ref] = make(map[string]int64)
	}
	l.locks[ref][userID] += amount
	return nil
}

// UnlockStake rend une mise bloquée
func (l *Ledger) UnlockStake(ctx context.Context, userID string, amount int64, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	locked := l.locks[ref][userID]
	if locked < amount || amount <= 0 {
		return fmt.Errorf("unlock %d for %s on %s: %w", amount, userID, ref, ErrNoLock)
	}
	l.locks[ref][userID] = locked - amount
	if l.locks[ref][userID] == 0 {
		delete(l.locks[ref], userID)
	}
	if len(l.locks[ref]) == 0 {
		delete(l.locks, ref)
	}
	l.balances[userID] = l.balanceLocked(userID) + amount
	return nil
}

// ProcessPayout solde toutes les mises de la référence et crédite le vainqueur.
// La différence entre le pot et le gain revient à la maison.
func (l *Ledger) ProcessPayout(ctx context.Context, userID string, amount int64, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var pot int64
	for _, locked := range l.locks[ref] {
		pot += locked
	}
	if pot == 0 {
		return fmt.Errorf("payout on %s: %w", ref, ErrNoLock)
	}
	if amount > pot {
		return fmt.Errorf("payout %d exceeds pot %d on %s", amount, pot, ref)
	}
	delete(l.locks, ref)
	l.balances[userID] = l.balanceLocked(userID) + amount
	l.house += pot - amount
	return nil
}
