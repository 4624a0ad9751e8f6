package core

import (
	"context"
	"fmt"

	"stablecore/pkg/domain"
)

// NewGenomeWidthRule returns the commit-time rule blocking creatures whose
// genome is not exactly GenomeLength bytes. Identity derivation always
// yields full-width genomes, so a violation here means a caller bypassed
// the mint path.
func NewGenomeWidthRule() domain.Rule {
	return genomeWidthRule{}
}

type genomeWidthRule struct{}

func (genomeWidthRule) Name() string { return "genome_width" }

func (genomeWidthRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Event) (domain.Result, error) {
	res := domain.Result{}
	for _, creature := range view.ListCreatures() {
		if len(creature.Genome) != domain.GenomeLength {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "genome_width",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("creature %s genome is %d bytes, want %d", creature.ID, len(creature.Genome), domain.GenomeLength),
				ID:       creature.ID,
			})
		}
	}
	return res, nil
}
