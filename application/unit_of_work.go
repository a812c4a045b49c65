package application

import (
	"context"

	"royale/domain/interfaces"
)

// UnitOfWork scopes one all-or-nothing mutation across the profile store,
// the raffle store and the audit log. No other operation may observe an
// intermediate state between Begin and Commit.
type UnitOfWork interface {
	// Begin starts the unit of work
	Begin(ctx context.Context) error

	// Commit applies every staged mutation and flushes pending events
	Commit() error

	// Rollback discards staged mutations and pending events
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	RaffleRepository() interfaces.RaffleRepository
	ActivityRepository() interfaces.ActivityRepository
	PollRepository() interfaces.PollRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances against a storage backend
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
