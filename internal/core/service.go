package core

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"stablecore/pkg/domain"
)

// Credential is the opaque caller credential attached to every request.
// Interpretation belongs to the configured Authenticator.
type Credential string

// Authenticator resolves a request credential to an account identity.
// A credential that does not resolve yields domain.ErrUnauthenticated.
type Authenticator interface {
	Authenticate(ctx context.Context, cred Credential) (AccountID, error)
}

// CurrencyLedger settles payments between accounts. A shortfall is reported
// as domain.InsufficientFundsError; the ledger must apply the full amount
// or nothing.
type CurrencyLedger interface {
	Transfer(ctx context.Context, from, to AccountID, amount Balance) error
}

// SeedSource supplies the per-call seed mixed into identity derivation. The
// seed is not required to be unpredictable to callers; it only needs to
// vary between calls.
type SeedSource interface {
	CurrentSeed() []byte
}

// SeedSourceFunc adapts a function to the SeedSource interface.
type SeedSourceFunc func() []byte

// CurrentSeed implements SeedSource.
func (f SeedSourceFunc) CurrentSeed() []byte { return f() }

// NewRandomSeedSource returns a seed source drawing a fresh 32-byte seed
// from crypto/rand on every call.
func NewRandomSeedSource() SeedSource {
	return SeedSourceFunc(func() []byte {
		var b [32]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic(err)
		}
		return b[:]
	})
}

// RaceOutcome reports a resolved duel.
type RaceOutcome struct {
	LeftID   CreatureID `json:"left_id"`
	RightID  CreatureID `json:"right_id"`
	WinnerID CreatureID `json:"winner_id"`
	Score    int        `json:"score"`
}

// Service exposes the registry's state-transition handlers. Every handler
// authenticates the caller, validates its preconditions, and applies its
// mutations inside a single store transaction, so each call is all-or-
// nothing: a failed call leaves no state change and emits no event.
type Service struct {
	store   PersistentStore
	auth    Authenticator
	ledger  CurrencyLedger
	seeds   SeedSource
	metrics MetricsRecorder
	tracer  Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics installs a metrics recorder observing handler outcomes.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(s *Service) { s.metrics = recorder }
}

// WithTracer installs a tracer spanning each handler invocation.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// NewService constructs a registry service over the supplied store and
// collaborators. A nil seed source falls back to crypto/rand seeds.
func NewService(store PersistentStore, auth Authenticator, ledger CurrencyLedger, seeds SeedSource, opts ...Option) *Service {
	if seeds == nil {
		seeds = NewRandomSeedSource()
	}
	svc := &Service{
		store:  store,
		auth:   auth,
		ledger: ledger,
		seeds:  seeds,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store returns the underlying persistence implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

func (s *Service) authenticate(ctx context.Context, cred Credential) (AccountID, error) {
	account, err := s.auth.Authenticate(ctx, cred)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	return account, nil
}

// CreateCreature mints a fresh generation-0 creature to the caller. The
// identity and genome both come from the derivation digest for (seed,
// caller, nonce); the nonce advances with the commit.
func (s *Service) CreateCreature(ctx context.Context, cred Credential) (created Creature, res Result, err error) {
	defer s.instrument(ctx, "create_creature")(func() error { return err })

	caller, err := s.authenticate(ctx, cred)
	if err != nil {
		return Creature{}, Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		nonce := tx.ConsumeNonce()
		id, digest := domain.DeriveID(s.seeds.CurrentSeed(), caller, nonce)
		var txErr error
		created, txErr = tx.Mint(caller, Creature{ID: id, Genome: digest})
		return txErr
	})
	if err != nil {
		return Creature{}, res, err
	}
	return created, res, nil
}

// SetPrice lists a creature at the given price. A zero price delists it.
func (s *Service) SetPrice(ctx context.Context, cred Credential, id CreatureID, price Balance) (updated Creature, res Result, err error) {
	defer s.instrument(ctx, "set_price")(func() error { return err })

	caller, err := s.authenticate(ctx, cred)
	if err != nil {
		return Creature{}, Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		owner, ok := tx.OwnerOf(id)
		if !ok {
			return domain.NotFoundError{ID: id}
		}
		if owner != caller {
			return domain.NotOwnerError{Account: caller, ID: id}
		}
		var txErr error
		updated, txErr = tx.UpdateCreature(id, func(c *Creature) error {
			c.Price = price
			return nil
		})
		if txErr != nil {
			return txErr
		}
		tx.Record(domain.NewPriceSetEvent(caller, id, price))
		return nil
	})
	if err != nil {
		return Creature{}, res, err
	}
	return updated, res, nil
}

// Transfer moves a creature the caller owns to another account.
func (s *Service) Transfer(ctx context.Context, cred Credential, to AccountID, id CreatureID) (res Result, err error) {
	defer s.instrument(ctx, "transfer")(func() error { return err })

	caller, err := s.authenticate(ctx, cred)
	if err != nil {
		return Result{}, err
	}
	return s.store.RunInTransaction(ctx, func(tx Transaction) error {
		owner, ok := tx.OwnerOf(id)
		if !ok {
			return domain.NotFoundError{ID: id}
		}
		if owner != caller {
			return domain.NotOwnerError{Account: caller, ID: id}
		}
		return tx.ReassignOwner(caller, to, id)
	})
}

// Buy purchases a listed creature at its asking price, capped by maxPrice.
// The currency debit executes before the ownership reassignment; if the
// transaction fails to commit after a successful debit, the payment is
// refunded so the two stay all-or-nothing together.
func (s *Service) Buy(ctx context.Context, cred Credential, id CreatureID, maxPrice Balance) (bought Creature, res Result, err error) {
	defer s.instrument(ctx, "buy")(func() error { return err })

	buyer, err := s.authenticate(ctx, cred)
	if err != nil {
		return Creature{}, Result{}, err
	}

	var paid bool
	var seller AccountID
	var price Balance
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		creature, ok := tx.FindCreature(id)
		if !ok {
			return domain.NotFoundError{ID: id}
		}
		owner, ok := tx.OwnerOf(id)
		if !ok {
			return domain.NotFoundError{ID: id}
		}
		if owner == buyer {
			return domain.ErrAlreadyOwner
		}
		if !creature.ListedForSale() {
			return domain.ErrNotForSale
		}
		if creature.Price > maxPrice {
			return domain.PriceTooHighError{Price: creature.Price, MaxPrice: maxPrice}
		}

		if err := s.ledger.Transfer(ctx, buyer, owner, creature.Price); err != nil {
			return fmt.Errorf("settle payment: %w", err)
		}
		paid, seller, price = true, owner, creature.Price

		if err := tx.ReassignOwner(owner, buyer, id); err != nil {
			return err
		}
		var txErr error
		bought, txErr = tx.UpdateCreature(id, func(c *Creature) error {
			c.Price = 0
			return nil
		})
		if txErr != nil {
			return txErr
		}
		tx.Record(domain.NewBoughtEvent(buyer, seller, id, price))
		return nil
	})
	if err != nil {
		if paid {
			if refundErr := s.ledger.Transfer(ctx, seller, buyer, price); refundErr != nil {
				err = errors.Join(err, fmt.Errorf("refund payment: %w", refundErr))
			}
		}
		return Creature{}, res, err
	}
	return bought, res, nil
}

// Breed produces a child creature from two existing parents. Breeding is
// open to any caller who knows both ids, and the child is minted to the
// caller, not to either parent's owner. The child genome takes each byte
// from exactly one parent, selected by the parity of the derivation
// digest's byte at that position.
func (s *Service) Breed(ctx context.Context, cred Credential, sireID, mareID CreatureID) (child Creature, res Result, err error) {
	defer s.instrument(ctx, "breed")(func() error { return err })

	caller, err := s.authenticate(ctx, cred)
	if err != nil {
		return Creature{}, Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		sire, ok := tx.FindCreature(sireID)
		if !ok {
			return domain.NotFoundError{ID: sireID}
		}
		mare, ok := tx.FindCreature(mareID)
		if !ok {
			return domain.NotFoundError{ID: mareID}
		}

		nonce := tx.ConsumeNonce()
		id, digest := domain.DeriveID(s.seeds.CurrentSeed(), caller, nonce)
		generation, genErr := domain.CheckedIncr(domain.MaxGeneration(sire.Generation, mare.Generation))
		if genErr != nil {
			return fmt.Errorf("breed %s x %s: %w", sireID, mareID, genErr)
		}

		var txErr error
		child, txErr = tx.Mint(caller, Creature{
			ID:         id,
			Genome:     domain.Crossover(sire.Genome, mare.Genome, digest),
			Generation: generation,
		})
		if txErr != nil {
			return txErr
		}
		tx.Record(domain.NewBredEvent(caller, sireID, mareID, id))
		return nil
	})
	if err != nil {
		return Creature{}, res, err
	}
	return child, res, nil
}

// Race resolves a deterministic duel between two creatures. Any caller may
// race any two existing creatures. Both race counts advance; exactly one
// win count advances; a tied score favors the first-named contender.
func (s *Service) Race(ctx context.Context, cred Credential, leftID, rightID CreatureID) (outcome RaceOutcome, res Result, err error) {
	defer s.instrument(ctx, "race")(func() error { return err })

	caller, err := s.authenticate(ctx, cred)
	if err != nil {
		return RaceOutcome{}, Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		left, ok := tx.FindCreature(leftID)
		if !ok {
			return domain.NotFoundError{ID: leftID}
		}
		right, ok := tx.FindCreature(rightID)
		if !ok {
			return domain.NotFoundError{ID: rightID}
		}

		score := domain.Duel(left.Genome, right.Genome)
		leftWon := score >= 0
		winner := leftID
		if !leftWon {
			winner = rightID
		}

		if _, txErr := tx.UpdateCreature(leftID, func(c *Creature) error {
			return c.RecordRace(leftWon)
		}); txErr != nil {
			return txErr
		}
		if _, txErr := tx.UpdateCreature(rightID, func(c *Creature) error {
			return c.RecordRace(!leftWon)
		}); txErr != nil {
			return txErr
		}

		tx.ConsumeNonce()
		tx.Record(domain.NewRacedEvent(caller, leftID, rightID, winner))
		outcome = RaceOutcome{LeftID: leftID, RightID: rightID, WinnerID: winner, Score: score}
		return nil
	})
	if err != nil {
		return RaceOutcome{}, res, err
	}
	return outcome, res, nil
}
