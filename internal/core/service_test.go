package core

import (
	"context"
	"errors"
	"testing"

	"stablecore/internal/infra/persistence/memory"
	"stablecore/internal/ledger"
	"stablecore/pkg/domain"
)

type mapAuthenticator map[Credential]AccountID

func (m mapAuthenticator) Authenticate(_ context.Context, cred Credential) (AccountID, error) {
	account, ok := m[cred]
	if !ok {
		return "", errors.New("unknown credential")
	}
	return account, nil
}

type serviceFixture struct {
	service *Service
	store   *memory.Store
	ledger  *ledger.Memory
	events  *[]Event
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	store := memory.NewStore(NewDefaultRulesEngine())
	var events []Event
	store.SetEventSink(domain.EventSinkFunc(func(_ context.Context, batch []Event) error {
		events = append(events, batch...)
		return nil
	}))
	led := ledger.NewMemory()
	auth := mapAuthenticator{
		"tok-alice": "alice",
		"tok-bob":   "bob",
		"tok-carol": "carol",
	}
	seeds := SeedSourceFunc(func() []byte { return []byte("fixture-seed") })
	svc := NewService(store, auth, led, seeds)
	return serviceFixture{service: svc, store: store, ledger: led, events: &events}
}

func (f serviceFixture) mint(t *testing.T, cred Credential) Creature {
	t.Helper()
	created, _, err := f.service.CreateCreature(context.Background(), cred)
	if err != nil {
		t.Fatalf("create creature: %v", err)
	}
	return created
}

func TestCreateCreatureMintsToCaller(t *testing.T) {
	f := newServiceFixture(t)

	created := f.mint(t, "tok-alice")

	if created.ID == "" {
		t.Fatalf("created creature has empty id")
	}
	if len(created.Genome) != domain.GenomeLength {
		t.Fatalf("genome length = %d, want %d", len(created.Genome), domain.GenomeLength)
	}
	if created.Generation != 0 {
		t.Fatalf("fresh creature generation = %d, want 0", created.Generation)
	}
	if created.Price != 0 || created.Wins != 0 || created.Races != 0 {
		t.Fatalf("fresh creature carries non-zero counters: %+v", created)
	}
	if owner, ok := f.store.OwnerOf(created.ID); !ok || owner != "alice" {
		t.Fatalf("owner = %s, %v", owner, ok)
	}
	if f.store.Nonce() != 1 {
		t.Fatalf("nonce = %d, want 1", f.store.Nonce())
	}
}

func TestCreateCreatureIDsDifferAcrossCalls(t *testing.T) {
	f := newServiceFixture(t)

	// The seed is fixed, so uniqueness must come from the nonce.
	first := f.mint(t, "tok-alice")
	second := f.mint(t, "tok-alice")

	if first.ID == second.ID {
		t.Fatalf("two mints produced the same id %s", first.ID)
	}
	if f.store.CreatureCount() != 2 {
		t.Fatalf("count = %d, want 2", f.store.CreatureCount())
	}
}

func TestUnknownCredentialIsRejected(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.service.CreateCreature(context.Background(), "tok-nobody")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if f.store.CreatureCount() != 0 {
		t.Fatalf("rejected caller still minted")
	}
}

func TestSetPriceRequiresOwnership(t *testing.T) {
	f := newServiceFixture(t)
	c := f.mint(t, "tok-alice")

	updated, _, err := f.service.SetPrice(context.Background(), "tok-alice", c.ID, 100)
	if err != nil {
		t.Fatalf("set price: %v", err)
	}
	if updated.Price != 100 {
		t.Fatalf("price = %d, want 100", updated.Price)
	}

	_, _, err = f.service.SetPrice(context.Background(), "tok-bob", c.ID, 5)
	var notOwner domain.NotOwnerError
	if !errors.As(err, &notOwner) {
		t.Fatalf("non-owner set price err = %v, want NotOwnerError", err)
	}
	if got, _ := f.store.GetCreature(c.ID); got.Price != 100 {
		t.Fatalf("rejected set price changed price to %d", got.Price)
	}

	_, _, err = f.service.SetPrice(context.Background(), "tok-alice", "missing", 5)
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("missing id set price err = %v, want NotFoundError", err)
	}
}

func TestSetPriceZeroDelists(t *testing.T) {
	f := newServiceFixture(t)
	c := f.mint(t, "tok-alice")

	if _, _, err := f.service.SetPrice(context.Background(), "tok-alice", c.ID, 100); err != nil {
		t.Fatalf("list: %v", err)
	}
	updated, _, err := f.service.SetPrice(context.Background(), "tok-alice", c.ID, 0)
	if err != nil {
		t.Fatalf("delist: %v", err)
	}
	if updated.ListedForSale() {
		t.Fatalf("creature still listed after zero price")
	}
}

func TestTransferMovesOwnership(t *testing.T) {
	f := newServiceFixture(t)
	c := f.mint(t, "tok-alice")

	if _, err := f.service.Transfer(context.Background(), "tok-alice", "bob", c.ID); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if owner, _ := f.store.OwnerOf(c.ID); owner != "bob" {
		t.Fatalf("owner after transfer = %s, want bob", owner)
	}

	_, err := f.service.Transfer(context.Background(), "tok-alice", "carol", c.ID)
	var notOwner domain.NotOwnerError
	if !errors.As(err, &notOwner) {
		t.Fatalf("stale owner transfer err = %v, want NotOwnerError", err)
	}
}

func TestTransferToSelfCommitsCleanly(t *testing.T) {
	f := newServiceFixture(t)
	first := f.mint(t, "tok-alice")
	f.mint(t, "tok-alice")

	res, err := f.service.Transfer(context.Background(), "tok-alice", "alice", first.ID)
	if err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("self transfer reported violations: %+v", res.Violations)
	}
	if owner, _ := f.store.OwnerOf(first.ID); owner != "alice" {
		t.Fatalf("owner after self transfer = %s, want alice", owner)
	}
	if got := f.store.OwnedCount("alice"); got != 2 {
		t.Fatalf("owned count after self transfer = %d, want 2", got)
	}
}

func TestBuySettlesPaymentAndDelists(t *testing.T) {
	f := newServiceFixture(t)
	c := f.mint(t, "tok-alice")
	if _, _, err := f.service.SetPrice(context.Background(), "tok-alice", c.ID, 100); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := f.ledger.Deposit("bob", 150); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	bought, _, err := f.service.Buy(context.Background(), "tok-bob", c.ID, 120)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if bought.Price != 0 {
		t.Fatalf("bought creature still listed at %d", bought.Price)
	}
	if owner, _ := f.store.OwnerOf(c.ID); owner != "bob" {
		t.Fatalf("owner after buy = %s, want bob", owner)
	}
	if got := f.ledger.Balance("bob"); got != 50 {
		t.Fatalf("buyer balance = %d, want 50", got)
	}
	if got := f.ledger.Balance("alice"); got != 100 {
		t.Fatalf("seller balance = %d, want 100", got)
	}
}

func TestBuyGuards(t *testing.T) {
	f := newServiceFixture(t)
	c := f.mint(t, "tok-alice")

	// Not listed.
	_, _, err := f.service.Buy(context.Background(), "tok-bob", c.ID, 100)
	if !errors.Is(err, domain.ErrNotForSale) {
		t.Fatalf("unlisted buy err = %v, want ErrNotForSale", err)
	}

	if _, _, err := f.service.SetPrice(context.Background(), "tok-alice", c.ID, 100); err != nil {
		t.Fatalf("list: %v", err)
	}

	// Own creature.
	_, _, err = f.service.Buy(context.Background(), "tok-alice", c.ID, 100)
	if !errors.Is(err, domain.ErrAlreadyOwner) {
		t.Fatalf("self buy err = %v, want ErrAlreadyOwner", err)
	}

	// Price cap exceeded.
	_, _, err = f.service.Buy(context.Background(), "tok-bob", c.ID, 99)
	var tooHigh domain.PriceTooHighError
	if !errors.As(err, &tooHigh) {
		t.Fatalf("capped buy err = %v, want PriceTooHighError", err)
	}

	// Missing creature.
	_, _, err = f.service.Buy(context.Background(), "tok-bob", "missing", 100)
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("missing buy err = %v, want NotFoundError", err)
	}

	if owner, _ := f.store.OwnerOf(c.ID); owner != "alice" {
		t.Fatalf("failed buys changed ownership to %s", owner)
	}
}

func TestBuyInsufficientFundsLeavesEverythingUntouched(t *testing.T) {
	f := newServiceFixture(t)
	c := f.mint(t, "tok-alice")
	if _, _, err := f.service.SetPrice(context.Background(), "tok-alice", c.ID, 100); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := f.ledger.Deposit("bob", 30); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, _, err := f.service.Buy(context.Background(), "tok-bob", c.ID, 100)
	var insufficient domain.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientFundsError", err)
	}
	if owner, _ := f.store.OwnerOf(c.ID); owner != "alice" {
		t.Fatalf("failed payment still moved ownership")
	}
	if got := f.ledger.Balance("bob"); got != 30 {
		t.Fatalf("failed payment changed buyer balance to %d", got)
	}
	if got, _ := f.store.GetCreature(c.ID); got.Price != 100 {
		t.Fatalf("failed payment delisted the creature")
	}
}

func TestBreedProducesChildForCaller(t *testing.T) {
	f := newServiceFixture(t)
	sire := f.mint(t, "tok-alice")
	mare := f.mint(t, "tok-bob")

	// Breeding is open: carol owns neither parent.
	child, _, err := f.service.Breed(context.Background(), "tok-carol", sire.ID, mare.ID)
	if err != nil {
		t.Fatalf("breed: %v", err)
	}
	if owner, _ := f.store.OwnerOf(child.ID); owner != "carol" {
		t.Fatalf("child owner = %s, want carol", owner)
	}
	if child.Generation != 1 {
		t.Fatalf("child generation = %d, want 1", child.Generation)
	}
	if len(child.Genome) != domain.GenomeLength {
		t.Fatalf("child genome length = %d", len(child.Genome))
	}
	for i := range child.Genome {
		if child.Genome[i] != sire.Genome[i] && child.Genome[i] != mare.Genome[i] {
			t.Fatalf("child byte %d = %d comes from neither parent", i, child.Genome[i])
		}
	}
}

func TestBreedGenerationTracksOlderParent(t *testing.T) {
	f := newServiceFixture(t)
	sire := f.mint(t, "tok-alice")
	mare := f.mint(t, "tok-alice")

	child, _, err := f.service.Breed(context.Background(), "tok-alice", sire.ID, mare.ID)
	if err != nil {
		t.Fatalf("first breed: %v", err)
	}
	grandchild, _, err := f.service.Breed(context.Background(), "tok-alice", child.ID, mare.ID)
	if err != nil {
		t.Fatalf("second breed: %v", err)
	}
	if grandchild.Generation != 2 {
		t.Fatalf("grandchild generation = %d, want 2", grandchild.Generation)
	}
}

func TestBreedMissingParentAborts(t *testing.T) {
	f := newServiceFixture(t)
	sire := f.mint(t, "tok-alice")

	before := f.store.Nonce()
	_, _, err := f.service.Breed(context.Background(), "tok-alice", sire.ID, "missing")
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if f.store.Nonce() != before {
		t.Fatalf("failed breed advanced the nonce")
	}
	if f.store.CreatureCount() != 1 {
		t.Fatalf("failed breed minted a child")
	}
}

func TestRaceUpdatesCountersAndNonce(t *testing.T) {
	f := newServiceFixture(t)
	left := f.mint(t, "tok-alice")
	right := f.mint(t, "tok-bob")

	before := f.store.Nonce()
	outcome, _, err := f.service.Race(context.Background(), "tok-carol", left.ID, right.ID)
	if err != nil {
		t.Fatalf("race: %v", err)
	}

	wantWinner := left.ID
	if domain.Duel(left.Genome, right.Genome) < 0 {
		wantWinner = right.ID
	}
	if outcome.WinnerID != wantWinner {
		t.Fatalf("winner = %s, want %s", outcome.WinnerID, wantWinner)
	}

	gotLeft, _ := f.store.GetCreature(left.ID)
	gotRight, _ := f.store.GetCreature(right.ID)
	if gotLeft.Races != 1 || gotRight.Races != 1 {
		t.Fatalf("race counts = %d/%d, want 1/1", gotLeft.Races, gotRight.Races)
	}
	if gotLeft.Wins+gotRight.Wins != 1 {
		t.Fatalf("win counts = %d/%d, want exactly one win", gotLeft.Wins, gotRight.Wins)
	}
	winner := gotLeft
	if wantWinner == right.ID {
		winner = gotRight
	}
	if winner.Wins != 1 {
		t.Fatalf("winner has %d wins", winner.Wins)
	}
	if f.store.Nonce() != before+1 {
		t.Fatalf("race did not advance the nonce")
	}
}

func TestRaceIsDeterministic(t *testing.T) {
	f := newServiceFixture(t)
	left := f.mint(t, "tok-alice")
	right := f.mint(t, "tok-bob")

	first, _, err := f.service.Race(context.Background(), "tok-alice", left.ID, right.ID)
	if err != nil {
		t.Fatalf("first race: %v", err)
	}
	second, _, err := f.service.Race(context.Background(), "tok-alice", left.ID, right.ID)
	if err != nil {
		t.Fatalf("second race: %v", err)
	}
	if first.WinnerID != second.WinnerID || first.Score != second.Score {
		t.Fatalf("race outcome changed between runs: %+v vs %+v", first, second)
	}
}

func TestRaceMissingContenderAborts(t *testing.T) {
	f := newServiceFixture(t)
	left := f.mint(t, "tok-alice")

	_, _, err := f.service.Race(context.Background(), "tok-alice", left.ID, "missing")
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	got, _ := f.store.GetCreature(left.ID)
	if got.Races != 0 {
		t.Fatalf("failed race advanced counters")
	}
}

func TestHandlersEmitExpectedEvents(t *testing.T) {
	f := newServiceFixture(t)
	c := f.mint(t, "tok-alice")
	if _, _, err := f.service.SetPrice(context.Background(), "tok-alice", c.ID, 100); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := f.ledger.Deposit("bob", 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, _, err := f.service.Buy(context.Background(), "tok-bob", c.ID, 100); err != nil {
		t.Fatalf("buy: %v", err)
	}

	kinds := make([]EventKind, 0, len(*f.events))
	for _, evt := range *f.events {
		kinds = append(kinds, evt.Kind)
	}
	want := []EventKind{EventCreated, EventPriceSet, EventTransferred, EventBought}
	if len(kinds) != len(want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event kinds = %v, want %v", kinds, want)
		}
	}

	bought := (*f.events)[len(*f.events)-1]
	if bought.Buyer != "bob" || bought.Seller != "alice" || bought.Price != 100 {
		t.Fatalf("bought event = %+v", bought)
	}
}

func TestFailedHandlerEmitsNoEvents(t *testing.T) {
	f := newServiceFixture(t)
	c := f.mint(t, "tok-alice")
	eventsBefore := len(*f.events)

	if _, _, err := f.service.SetPrice(context.Background(), "tok-bob", c.ID, 5); err == nil {
		t.Fatalf("expected rejection")
	}
	if _, _, err := f.service.Buy(context.Background(), "tok-bob", c.ID, 100); err == nil {
		t.Fatalf("expected rejection")
	}

	if len(*f.events) != eventsBefore {
		t.Fatalf("failed handlers emitted %d events", len(*f.events)-eventsBefore)
	}
}
