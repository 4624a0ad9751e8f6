package domain

import "context"

// EventKind tags a registry event variant.
type EventKind string

// The closed set of event variants appended to the event log. The core only
// ever appends; consumers never feed events back into the registry.
const (
	// EventCreated records a mint (original creation or breeding).
	EventCreated EventKind = "created"
	// EventPriceSet records a listing price change.
	EventPriceSet EventKind = "price_set"
	// EventTransferred records an ownership reassignment.
	EventTransferred EventKind = "transferred"
	// EventBought records a completed purchase.
	EventBought EventKind = "bought"
	// EventBred records the production of a child creature.
	EventBred EventKind = "bred"
	// EventRaced records a resolved duel between two creatures.
	EventRaced EventKind = "raced"
)

// Event is one append-only log entry. Only the fields relevant to the kind
// are populated; the rest stay at their zero values and are elided from the
// JSON encoding.
type Event struct {
	Kind     EventKind  `json:"kind"`
	Owner    AccountID  `json:"owner,omitempty"`
	From     AccountID  `json:"from,omitempty"`
	To       AccountID  `json:"to,omitempty"`
	Buyer    AccountID  `json:"buyer,omitempty"`
	Seller   AccountID  `json:"seller,omitempty"`
	Breeder  AccountID  `json:"breeder,omitempty"`
	Caller   AccountID  `json:"caller,omitempty"`
	ID       CreatureID `json:"id,omitempty"`
	SireID   CreatureID `json:"sire_id,omitempty"`
	MareID   CreatureID `json:"mare_id,omitempty"`
	ChildID  CreatureID `json:"child_id,omitempty"`
	LeftID   CreatureID `json:"left_id,omitempty"`
	RightID  CreatureID `json:"right_id,omitempty"`
	WinnerID CreatureID `json:"winner_id,omitempty"`
	Price    Balance    `json:"price,omitempty"`
}

// NewCreatedEvent records that id was minted to owner.
func NewCreatedEvent(owner AccountID, id CreatureID) Event {
	return Event{Kind: EventCreated, Owner: owner, ID: id}
}

// NewPriceSetEvent records that owner listed id at price.
func NewPriceSetEvent(owner AccountID, id CreatureID, price Balance) Event {
	return Event{Kind: EventPriceSet, Owner: owner, ID: id, Price: price}
}

// NewTransferredEvent records an ownership move of id from one account to
// another.
func NewTransferredEvent(from, to AccountID, id CreatureID) Event {
	return Event{Kind: EventTransferred, From: from, To: to, ID: id}
}

// NewBoughtEvent records a purchase of id at the listed price.
func NewBoughtEvent(buyer, seller AccountID, id CreatureID, price Balance) Event {
	return Event{Kind: EventBought, Buyer: buyer, Seller: seller, ID: id, Price: price}
}

// NewBredEvent records that breeder produced child from sire and mare.
func NewBredEvent(breeder AccountID, sire, mare, child CreatureID) Event {
	return Event{Kind: EventBred, Breeder: breeder, SireID: sire, MareID: mare, ChildID: child}
}

// NewRacedEvent records a duel between left and right resolved in favor of
// winner.
func NewRacedEvent(caller AccountID, left, right, winner CreatureID) Event {
	return Event{Kind: EventRaced, Caller: caller, LeftID: left, RightID: right, WinnerID: winner}
}

// EventSink receives the events of each committed transaction, in emission
// order, exactly once per commit. Failed transactions emit nothing.
type EventSink interface {
	Append(ctx context.Context, events []Event) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, events []Event) error

// Append implements EventSink.
func (f EventSinkFunc) Append(ctx context.Context, events []Event) error {
	return f(ctx, events)
}
