package core

import (
	"context"
	"fmt"

	"stablecore/pkg/domain"
)

// NewRegistryConsistencyRule returns the commit-time rule re-verifying the
// dense-array and ownership invariants: reverse[array[i]] == i for the
// global and every per-owner array, every creature resolves to exactly one
// owner, and every owned id appears in exactly one owner's array.
func NewRegistryConsistencyRule() domain.Rule {
	return registryConsistencyRule{}
}

type registryConsistencyRule struct{}

func (registryConsistencyRule) Name() string { return "registry_consistency" }

func (registryConsistencyRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Event) (domain.Result, error) {
	res := domain.Result{}
	block := func(id domain.CreatureID, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "registry_consistency",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			ID:       id,
		})
	}

	count := view.CreatureCount()
	for pos := uint64(0); pos < count; pos++ {
		id, ok := view.CreatureIDAt(pos)
		if !ok {
			block("", "global array has no entry at position %d", pos)
			continue
		}
		if back, ok := view.IndexOf(id); !ok || back != pos {
			block(id, "global reverse index for %s is %d, want %d", id, back, pos)
		}
		if _, ok := view.FindCreature(id); !ok {
			block(id, "global array position %d names unknown creature %s", pos, id)
		}
		if _, ok := view.OwnerOf(id); !ok {
			block(id, "creature %s has no owner", id)
		}
	}

	seen := make(map[domain.CreatureID]domain.AccountID)
	for _, owner := range view.ListOwners() {
		ownedCount := view.OwnedCount(owner)
		for pos := uint64(0); pos < ownedCount; pos++ {
			id, ok := view.OwnedIDAt(owner, pos)
			if !ok {
				block("", "owner %s array has no entry at position %d", owner, pos)
				continue
			}
			if prior, dup := seen[id]; dup {
				block(id, "creature %s appears in arrays of both %s and %s", id, prior, owner)
			}
			seen[id] = owner
			if back, ok := view.OwnedIndexOf(id); !ok || back != pos {
				block(id, "owner reverse index for %s is %d, want %d", id, back, pos)
			}
			if actual, ok := view.OwnerOf(id); !ok || actual != owner {
				block(id, "creature %s sits in %s's array but is owned by %s", id, owner, actual)
			}
		}
	}
	if got := uint64(len(seen)); got != count {
		block("", "per-owner arrays cover %d creatures, global registry holds %d", got, count)
	}

	return res, nil
}
