package domain

import "context"

// Transaction exposes the registry mutations that a persistence
// implementation must support within an atomic scope. Mint and
// ReassignOwner are the transfer-engine primitives: each one either applies
// all of its index writes or none of them.
type Transaction interface {
	Snapshot() TransactionView

	// Mint registers a new creature under owner. It fails with
	// DuplicateIDError when the id is already present and records a
	// Created event on success.
	Mint(owner AccountID, creature Creature) (Creature, error)
	// ReassignOwner moves id from one account's index to another using
	// swap-delete, fails with NotOwnerError unless from currently owns id,
	// and records a Transferred event on success.
	ReassignOwner(from, to AccountID, id CreatureID) error
	// UpdateCreature mutates an existing creature in place.
	UpdateCreature(id CreatureID, mutator func(*Creature) error) (Creature, error)

	FindCreature(id CreatureID) (Creature, bool)
	OwnerOf(id CreatureID) (AccountID, bool)

	// ConsumeNonce returns the current nonce and advances it by one. The
	// advance is discarded with the rest of the transaction on failure.
	ConsumeNonce() uint64
	// Record appends a handler-level event to the transaction's log.
	Record(event Event)
}

// TransactionView provides read-only access to a consistent snapshot of the
// registry for rules, verification, and queries. Positional accessors
// expose the dense arrays; Index accessors expose the reverse maps.
type TransactionView interface {
	ListCreatures() []Creature
	FindCreature(id CreatureID) (Creature, bool)
	OwnerOf(id CreatureID) (AccountID, bool)

	CreatureCount() uint64
	CreatureIDAt(pos uint64) (CreatureID, bool)
	IndexOf(id CreatureID) (uint64, bool)

	ListOwners() []AccountID
	OwnedCount(owner AccountID) uint64
	OwnedIDAt(owner AccountID, pos uint64) (CreatureID, bool)
	OwnedIndexOf(id CreatureID) (uint64, bool)

	Nonce() uint64
}

// PersistentStore is a minimal abstraction over durable registry backends.
// It mirrors the subset of store capabilities used directly by higher
// layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCreature(id CreatureID) (Creature, bool)
	ListCreatures() []Creature
	OwnerOf(id CreatureID) (AccountID, bool)
	OwnedCreatures(owner AccountID) []Creature
	CreatureCount() uint64
	OwnedCount(owner AccountID) uint64
	Nonce() uint64
}
