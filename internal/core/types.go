package core

import "stablecore/pkg/domain"

type (
	AccountID          = domain.AccountID
	Balance            = domain.Balance
	Creature           = domain.Creature
	CreatureID         = domain.CreatureID
	Genome             = domain.Genome
	Event              = domain.Event
	EventKind          = domain.EventKind
	EventSink          = domain.EventSink
	Severity           = domain.Severity
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EventCreated     = domain.EventCreated
	EventPriceSet    = domain.EventPriceSet
	EventTransferred = domain.EventTransferred
	EventBought      = domain.EventBought
	EventBred        = domain.EventBred
	EventRaced       = domain.EventRaced
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)
