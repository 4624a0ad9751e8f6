// Package domain defines the core persistent entities, value types, genome
// algorithms, and rule evaluation primitives used by stablecore.
package domain

import "math"

// AccountID names an account able to own creatures and settle payments.
type AccountID string

// Balance is a non-negative currency amount. A creature price of zero means
// "not listed for sale".
type Balance uint64

// CreatureID uniquely names a creature. It is the lowercase hex encoding of
// the 32-byte identity digest derived at mint time and never changes.
type CreatureID string

// Genome is the fixed-length byte sequence carried by every creature. It is
// both breeding material (crossover) and the comparison basis for duels.
type Genome []byte

// GenomeLength is the width of every genome, equal to the identity digest
// width. A generation-0 creature's genome is its raw identity digest.
const GenomeLength = 32

// Clone returns an independent copy of the genome.
func (g Genome) Clone() Genome {
	if g == nil {
		return nil
	}
	return append(Genome(nil), g...)
}

// Creature is the ownable, tradeable record tracked by the registry.
// ID, Genome, and Generation are immutable after mint; Price is set by the
// listing handlers; Wins and Races only ever grow, via the race handler.
type Creature struct {
	ID         CreatureID `json:"id"`
	Genome     Genome     `json:"genome"`
	Price      Balance    `json:"price"`
	Generation uint64     `json:"generation"`
	Wins       uint64     `json:"wins"`
	Races      uint64     `json:"race_count"`
}

// Clone returns a deep copy of the creature.
func (c Creature) Clone() Creature {
	cp := c
	cp.Genome = c.Genome.Clone()
	return cp
}

// ListedForSale reports whether the creature carries a non-zero price.
func (c Creature) ListedForSale() bool {
	return c.Price != 0
}

// RecordRace applies one race to the creature's counters. The race count
// always advances; the win count advances only for the winner. Both
// increments are checked so a saturated counter surfaces as an error rather
// than wrapping.
func (c *Creature) RecordRace(won bool) error {
	races, err := CheckedIncr(c.Races)
	if err != nil {
		return err
	}
	wins := c.Wins
	if won {
		wins, err = CheckedIncr(c.Wins)
		if err != nil {
			return err
		}
	}
	c.Races = races
	c.Wins = wins
	return nil
}

// CheckedIncr increments a counter, failing with ErrCountOverflow at the
// uint64 ceiling instead of wrapping.
func CheckedIncr(n uint64) (uint64, error) {
	if n == math.MaxUint64 {
		return 0, ErrCountOverflow
	}
	return n + 1, nil
}

// CheckedDecr decrements a counter, failing with ErrCountUnderflow at zero.
func CheckedDecr(n uint64) (uint64, error) {
	if n == 0 {
		return 0, ErrCountUnderflow
	}
	return n - 1, nil
}

// MaxGeneration returns the larger of two generation counters.
func MaxGeneration(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
