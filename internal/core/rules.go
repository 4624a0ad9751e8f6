package core

import "stablecore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in invariant
// set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewRegistryConsistencyRule())
	engine.Register(NewGenomeWidthRule())
	return engine
}
