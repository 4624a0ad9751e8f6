package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across handlers and stores. All registry failures
// are recoverable outcomes; nothing in this package panics on a guard.
var (
	// ErrNotForSale is returned when buying a creature whose price is zero.
	ErrNotForSale = errors.New("creature is not listed for sale")
	// ErrAlreadyOwner is returned when an account buys a creature it owns.
	ErrAlreadyOwner = errors.New("caller already owns this creature")
	// ErrCountOverflow signals a checked counter increment at the ceiling.
	ErrCountOverflow = errors.New("counter increment overflows")
	// ErrCountUnderflow signals a checked counter decrement below zero.
	ErrCountUnderflow = errors.New("counter decrement underflows")
	// ErrUnauthenticated is returned when a credential does not resolve to
	// an account.
	ErrUnauthenticated = errors.New("request is not authenticated")
)

// NotFoundError reports a lookup of a creature id absent from the registry.
type NotFoundError struct {
	ID CreatureID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("creature %s not found", e.ID)
}

// NotOwnerError reports a mutation attempted by an account that does not
// own the creature.
type NotOwnerError struct {
	Account AccountID
	ID      CreatureID
}

func (e NotOwnerError) Error() string {
	return fmt.Sprintf("account %s does not own creature %s", e.Account, e.ID)
}

// DuplicateIDError reports a mint with an identity already registered.
type DuplicateIDError struct {
	ID CreatureID
}

func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("creature id %s already exists", e.ID)
}

// PriceTooHighError reports a buy whose cap is below the listed price.
type PriceTooHighError struct {
	Price    Balance
	MaxPrice Balance
}

func (e PriceTooHighError) Error() string {
	return fmt.Sprintf("listed price %d exceeds max price %d", e.Price, e.MaxPrice)
}

// InsufficientFundsError is surfaced by the currency ledger when an account
// cannot cover a transfer.
type InsufficientFundsError struct {
	Account AccountID
	Need    Balance
	Have    Balance
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("account %s holds %d, needs %d", e.Account, e.Have, e.Need)
}
