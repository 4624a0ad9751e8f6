// Package auth provides Authenticator implementations for the registry
// service: a static token map for tests and tooling, and a JWT verifier
// for deployments.
package auth

import (
	"context"
	"fmt"
	"sync"

	"stablecore/internal/core"
	"stablecore/pkg/domain"
)

// Static resolves credentials against a fixed token-to-account map.
type Static struct {
	mu       sync.RWMutex
	accounts map[core.Credential]domain.AccountID
}

// NewStatic creates a Static authenticator from the given token map.
func NewStatic(accounts map[core.Credential]domain.AccountID) *Static {
	copied := make(map[core.Credential]domain.AccountID, len(accounts))
	for cred, acct := range accounts {
		copied[cred] = acct
	}
	return &Static{accounts: copied}
}

// Grant registers or replaces the account associated with cred.
func (a *Static) Grant(cred core.Credential, account domain.AccountID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[cred] = account
}

// Authenticate resolves cred to its account.
func (a *Static) Authenticate(_ context.Context, cred core.Credential) (domain.AccountID, error) {
	if cred == "" {
		return "", fmt.Errorf("empty credential")
	}
	a.mu.RLock()
	account, ok := a.accounts[cred]
	a.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown credential")
	}
	return account, nil
}
