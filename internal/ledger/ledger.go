// Package ledger provides an in-memory currency ledger used to settle
// purchases. Transfers apply the full amount or nothing.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"stablecore/pkg/domain"
)

// Memory is a mutex-guarded account balance table.
type Memory struct {
	mu       sync.Mutex
	balances map[domain.AccountID]domain.Balance
}

// NewMemory creates an empty ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[domain.AccountID]domain.Balance)}
}

// Deposit credits amount to account.
func (l *Memory) Deposit(account domain.AccountID, amount domain.Balance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.balances[account]
	next := current + amount
	if next < current {
		return fmt.Errorf("deposit to %s: %w", account, domain.ErrCountOverflow)
	}
	l.balances[account] = next
	return nil
}

// Balance reports the current balance of account. Unknown accounts hold zero.
func (l *Memory) Balance(account domain.AccountID) domain.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Transfer moves amount from one account to another. A shortfall leaves both
// balances untouched and reports domain.InsufficientFundsError.
func (l *Memory) Transfer(_ context.Context, from, to domain.AccountID, amount domain.Balance) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	have := l.balances[from]
	if have < amount {
		return domain.InsufficientFundsError{Account: from, Need: amount, Have: have}
	}
	if from == to {
		return nil
	}
	current := l.balances[to]
	next := current + amount
	if next < current {
		return fmt.Errorf("credit to %s: %w", to, domain.ErrCountOverflow)
	}
	l.balances[from] = have - amount
	l.balances[to] = next
	return nil
}
