// Package memory provides the in-memory implementation of the registry
// persistence store. It is the authoritative transactional engine: durable
// backends wrap it and snapshot its committed state.
package memory

import (
	"context"
	"fmt"
	"sync"

	"stablecore/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the
// domain persistence interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
	_ domain.TransactionView = (*transactionView)(nil)
)

type (
	Creature   = domain.Creature
	CreatureID = domain.CreatureID
	AccountID  = domain.AccountID
)

// memoryState holds the full registry: the entity and owner maps, the global
// dense array with its reverse index, the per-owner dense arrays with their
// shared reverse index, and the identity nonce. The dense-array invariant
// (reverse[array[i]] == i for every live slot) is maintained by Mint and
// ReassignOwner and re-checked by the consistency rule at commit.
type memoryState struct {
	creatures map[CreatureID]Creature
	owners    map[CreatureID]AccountID

	allIDs   []CreatureID
	allIndex map[CreatureID]uint64

	owned      map[AccountID][]CreatureID
	ownedIndex map[CreatureID]uint64

	nonce uint64
}

func newMemoryState() memoryState {
	return memoryState{
		creatures:  make(map[CreatureID]Creature),
		owners:     make(map[CreatureID]AccountID),
		allIndex:   make(map[CreatureID]uint64),
		owned:      make(map[AccountID][]CreatureID),
		ownedIndex: make(map[CreatureID]uint64),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for id, c := range s.creatures {
		cloned.creatures[id] = c.Clone()
	}
	for id, owner := range s.owners {
		cloned.owners[id] = owner
	}
	cloned.allIDs = append([]CreatureID(nil), s.allIDs...)
	for id, pos := range s.allIndex {
		cloned.allIndex[id] = pos
	}
	for owner, ids := range s.owned {
		cloned.owned[owner] = append([]CreatureID(nil), ids...)
	}
	for id, pos := range s.ownedIndex {
		cloned.ownedIndex[id] = pos
	}
	cloned.nonce = s.nonce
	return cloned
}

// Snapshot captures a point-in-time clone of the store state in its
// persisted layout. The reverse indexes are derived data and are rebuilt on
// import rather than persisted.
type Snapshot struct {
	Creatures map[CreatureID]Creature    `json:"creatures"`
	Owners    map[CreatureID]AccountID   `json:"owners"`
	All       []CreatureID               `json:"all"`
	Owned     map[AccountID][]CreatureID `json:"owned"`
	Nonce     uint64                     `json:"nonce"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	snap := Snapshot{
		Creatures: make(map[CreatureID]Creature, len(state.creatures)),
		Owners:    make(map[CreatureID]AccountID, len(state.owners)),
		All:       append([]CreatureID(nil), state.allIDs...),
		Owned:     make(map[AccountID][]CreatureID, len(state.owned)),
		Nonce:     state.nonce,
	}
	for id, c := range state.creatures {
		snap.Creatures[id] = c.Clone()
	}
	for id, owner := range state.owners {
		snap.Owners[id] = owner
	}
	for owner, ids := range state.owned {
		snap.Owned[owner] = append([]CreatureID(nil), ids...)
	}
	return snap
}

func memoryStateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	for id, c := range snap.Creatures {
		state.creatures[id] = c.Clone()
	}
	for id, owner := range snap.Owners {
		state.owners[id] = owner
	}
	state.allIDs = append([]CreatureID(nil), snap.All...)
	for pos, id := range state.allIDs {
		state.allIndex[id] = uint64(pos)
	}
	for owner, ids := range snap.Owned {
		if len(ids) == 0 {
			continue
		}
		state.owned[owner] = append([]CreatureID(nil), ids...)
		for pos, id := range ids {
			state.ownedIndex[id] = uint64(pos)
		}
	}
	state.nonce = snap.Nonce
	return state
}

// Store provides an in-memory transactional store for the creature
// registry.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	sink   domain.EventSink
}

// NewStore constructs an in-memory store backed by the provided rules
// engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
	}
}

// SetEventSink installs the sink that receives each committed transaction's
// events. A nil sink discards events.
func (s *Store) SetEventSink(sink domain.EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// RulesEngine exposes the currently configured engine for integration
// points.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// transaction applies a mutation set to a cloned copy of the store state.
type transaction struct {
	state  memoryState
	events []domain.Event
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The clone is swapped in only when fn, the rules engine, and event
// delivery all succeed, so a failure at any point leaves no partial
// mutation observable.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.events)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.sink != nil && len(tx.events) > 0 {
		if err := s.sink.Append(ctx, tx.events); err != nil {
			return result, fmt.Errorf("append events: %w", err)
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordEvent(event domain.Event) {
	tx.events = append(tx.events, event)
}

// Snapshot exposes the transactional state as a read-only view.
func (tx *transaction) Snapshot() domain.TransactionView {
	return newTransactionView(&tx.state)
}

// Mint registers a new creature under owner: entity map, owner map, global
// array append, and per-owner array append as one unit. Every fallible
// check runs before the first write so a failure leaves the clone
// untouched.
func (tx *transaction) Mint(owner AccountID, creature Creature) (Creature, error) {
	if creature.ID == "" {
		return Creature{}, fmt.Errorf("creature id required for mint")
	}
	if _, exists := tx.state.creatures[creature.ID]; exists {
		return Creature{}, domain.DuplicateIDError{ID: creature.ID}
	}

	allCount := uint64(len(tx.state.allIDs))
	if _, err := domain.CheckedIncr(allCount); err != nil {
		return Creature{}, fmt.Errorf("mint %s: %w", creature.ID, err)
	}
	ownedCount := uint64(len(tx.state.owned[owner]))
	if _, err := domain.CheckedIncr(ownedCount); err != nil {
		return Creature{}, fmt.Errorf("mint %s: %w", creature.ID, err)
	}

	tx.state.creatures[creature.ID] = creature.Clone()
	tx.state.owners[creature.ID] = owner

	tx.state.allIDs = append(tx.state.allIDs, creature.ID)
	tx.state.allIndex[creature.ID] = allCount

	tx.state.owned[owner] = append(tx.state.owned[owner], creature.ID)
	tx.state.ownedIndex[creature.ID] = ownedCount

	tx.recordEvent(domain.NewCreatedEvent(owner, creature.ID))
	return creature.Clone(), nil
}

// ReassignOwner moves id between per-owner arrays with swap-delete: the
// vacated slot is overwritten by the last element, which keeps removal O(1)
// at the cost of enumeration order. The global array is untouched.
func (tx *transaction) ReassignOwner(from, to AccountID, id CreatureID) error {
	owner, ok := tx.state.owners[id]
	if !ok {
		return domain.NotFoundError{ID: id}
	}
	if owner != from {
		return domain.NotOwnerError{Account: from, ID: id}
	}
	if from == to {
		// The indexes already hold id under to; nothing moves.
		tx.recordEvent(domain.NewTransferredEvent(from, to, id))
		return nil
	}

	fromList := tx.state.owned[from]
	last, err := domain.CheckedDecr(uint64(len(fromList)))
	if err != nil {
		return fmt.Errorf("reassign %s: %w", id, err)
	}
	toCount := uint64(len(tx.state.owned[to]))
	if _, err := domain.CheckedIncr(toCount); err != nil {
		return fmt.Errorf("reassign %s: %w", id, err)
	}

	pos := tx.state.ownedIndex[id]
	if pos != last {
		moved := fromList[last]
		fromList[pos] = moved
		tx.state.ownedIndex[moved] = pos
	}
	fromList = fromList[:last]
	if len(fromList) == 0 {
		delete(tx.state.owned, from)
	} else {
		tx.state.owned[from] = fromList
	}

	tx.state.owners[id] = to
	tx.state.owned[to] = append(tx.state.owned[to], id)
	tx.state.ownedIndex[id] = toCount

	tx.recordEvent(domain.NewTransferredEvent(from, to, id))
	return nil
}

// UpdateCreature mutates a creature using the provided mutator function.
func (tx *transaction) UpdateCreature(id CreatureID, mutator func(*Creature) error) (Creature, error) {
	current, ok := tx.state.creatures[id]
	if !ok {
		return Creature{}, domain.NotFoundError{ID: id}
	}
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return Creature{}, err
	}
	updated.ID = id
	tx.state.creatures[id] = updated.Clone()
	return updated, nil
}

// FindCreature retrieves a creature by id from the transactional state.
func (tx *transaction) FindCreature(id CreatureID) (Creature, bool) {
	c, ok := tx.state.creatures[id]
	if !ok {
		return Creature{}, false
	}
	return c.Clone(), true
}

// OwnerOf resolves the current owner of id.
func (tx *transaction) OwnerOf(id CreatureID) (AccountID, bool) {
	owner, ok := tx.state.owners[id]
	return owner, ok
}

// ConsumeNonce returns the current identity nonce and advances it.
func (tx *transaction) ConsumeNonce() uint64 {
	n := tx.state.nonce
	tx.state.nonce++
	return n
}

// Record appends a handler-level event to the transaction log.
func (tx *transaction) Record(event domain.Event) {
	tx.recordEvent(event)
}

// transactionView exposes a read-only snapshot of a registry state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) domain.TransactionView {
	return transactionView{state: state}
}

// ListCreatures returns all creatures in global enumeration order.
func (v transactionView) ListCreatures() []Creature {
	out := make([]Creature, 0, len(v.state.allIDs))
	for _, id := range v.state.allIDs {
		out = append(out, v.state.creatures[id].Clone())
	}
	return out
}

// FindCreature retrieves a creature by id from the snapshot.
func (v transactionView) FindCreature(id CreatureID) (Creature, bool) {
	c, ok := v.state.creatures[id]
	if !ok {
		return Creature{}, false
	}
	return c.Clone(), true
}

// OwnerOf resolves the current owner of id.
func (v transactionView) OwnerOf(id CreatureID) (AccountID, bool) {
	owner, ok := v.state.owners[id]
	return owner, ok
}

// CreatureCount returns the global registry count.
func (v transactionView) CreatureCount() uint64 {
	return uint64(len(v.state.allIDs))
}

// CreatureIDAt returns the id at a global enumeration position.
func (v transactionView) CreatureIDAt(pos uint64) (CreatureID, bool) {
	if pos >= uint64(len(v.state.allIDs)) {
		return "", false
	}
	return v.state.allIDs[pos], true
}

// IndexOf returns the global reverse-index entry for id.
func (v transactionView) IndexOf(id CreatureID) (uint64, bool) {
	pos, ok := v.state.allIndex[id]
	return pos, ok
}

// ListOwners returns every account currently holding at least one creature.
func (v transactionView) ListOwners() []AccountID {
	out := make([]AccountID, 0, len(v.state.owned))
	for owner := range v.state.owned {
		out = append(out, owner)
	}
	return out
}

// OwnedCount returns the per-owner registry count.
func (v transactionView) OwnedCount(owner AccountID) uint64 {
	return uint64(len(v.state.owned[owner]))
}

// OwnedIDAt returns the id at a per-owner enumeration position.
func (v transactionView) OwnedIDAt(owner AccountID, pos uint64) (CreatureID, bool) {
	ids := v.state.owned[owner]
	if pos >= uint64(len(ids)) {
		return "", false
	}
	return ids[pos], true
}

// OwnedIndexOf returns the per-owner reverse-index entry for id.
func (v transactionView) OwnedIndexOf(id CreatureID) (uint64, bool) {
	pos, ok := v.state.ownedIndex[id]
	return pos, ok
}

// Nonce returns the identity nonce.
func (v transactionView) Nonce() uint64 {
	return v.state.nonce
}

// Read helpers ---------------------------------------------------------------

// GetCreature retrieves a creature by id from committed state.
func (s *Store) GetCreature(id CreatureID) (Creature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.creatures[id]
	if !ok {
		return Creature{}, false
	}
	return c.Clone(), true
}

// ListCreatures returns all creatures from committed state in global
// enumeration order.
func (s *Store) ListCreatures() []Creature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Creature, 0, len(s.state.allIDs))
	for _, id := range s.state.allIDs {
		out = append(out, s.state.creatures[id].Clone())
	}
	return out
}

// OwnerOf resolves the committed owner of id.
func (s *Store) OwnerOf(id CreatureID) (AccountID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.state.owners[id]
	return owner, ok
}

// OwnedCreatures returns the creatures held by owner in per-owner
// enumeration order. The order is not stable across removals.
func (s *Store) OwnedCreatures(owner AccountID) []Creature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.state.owned[owner]
	out := make([]Creature, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.state.creatures[id].Clone())
	}
	return out
}

// CreatureCount returns the committed global count.
func (s *Store) CreatureCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.state.allIDs))
}

// OwnedCount returns the committed per-owner count.
func (s *Store) OwnedCount(owner AccountID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.state.owned[owner]))
}

// Nonce returns the committed identity nonce.
func (s *Store) Nonce() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.nonce
}
