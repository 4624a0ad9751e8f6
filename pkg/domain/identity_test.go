package domain

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestDeriveIDIsDeterministic(t *testing.T) {
	seed := []byte("seed-material")
	id1, genome1 := DeriveID(seed, "acct-1", 7)
	id2, genome2 := DeriveID(seed, "acct-1", 7)

	if id1 != id2 {
		t.Fatalf("same inputs produced different ids: %s vs %s", id1, id2)
	}
	if !bytes.Equal(genome1, genome2) {
		t.Fatalf("same inputs produced different genomes")
	}
}

func TestDeriveIDVariesWithEachInput(t *testing.T) {
	base, _ := DeriveID([]byte("seed"), "acct-1", 0)

	if other, _ := DeriveID([]byte("seed2"), "acct-1", 0); other == base {
		t.Fatalf("seed change did not change id")
	}
	if other, _ := DeriveID([]byte("seed"), "acct-2", 0); other == base {
		t.Fatalf("caller change did not change id")
	}
	if other, _ := DeriveID([]byte("seed"), "acct-1", 1); other == base {
		t.Fatalf("nonce change did not change id")
	}
}

func TestDeriveIDLengthInvariantsHold(t *testing.T) {
	id, genome := DeriveID(nil, "", 0)

	if len(genome) != GenomeLength {
		t.Fatalf("genome length = %d, want %d", len(genome), GenomeLength)
	}
	raw, err := hex.DecodeString(string(id))
	if err != nil {
		t.Fatalf("id is not hex: %v", err)
	}
	if !bytes.Equal(raw, genome) {
		t.Fatalf("id does not encode the genome digest")
	}
}

func TestDeriveIDFieldBoundariesArePinned(t *testing.T) {
	// Length-prefixed encoding must keep (seed="ab", caller="c") distinct
	// from (seed="a", caller="bc").
	id1, _ := DeriveID([]byte("ab"), "c", 0)
	id2, _ := DeriveID([]byte("a"), "bc", 0)
	if id1 == id2 {
		t.Fatalf("field boundary collision: %s", id1)
	}
}
