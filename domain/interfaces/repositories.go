package interfaces

import (
	"context"
	"time"

	"royale/domain/entities"
	"royale/domain/events"
)

// UserRepository defines account persistence. Lookups return nil (not an
// error) when the username is unknown.
type UserRepository interface {
	// GetByUsername retrieves an account snapshot by its key
	GetByUsername(ctx context.Context, username string) (*entities.User, error)

	// GetAll returns every account
	GetAll(ctx context.Context) ([]*entities.User, error)

	// Create stores a new account; the username must be unused
	Create(ctx context.Context, user *entities.User) error

	// Update replaces the stored account record (last writer wins)
	Update(ctx context.Context, user *entities.User) error

	// Delete removes the account entirely
	Delete(ctx context.Context, username string) error
}

// RaffleRepository defines catalog persistence. Structural defaults only;
// business invariants are the ledger service's job.
type RaffleRepository interface {
	// GetByID retrieves a raffle, nil when absent
	GetByID(ctx context.Context, id int64) (*entities.Raffle, error)

	// GetAll returns the full catalog
	GetAll(ctx context.Context) ([]*entities.Raffle, error)

	// GetOverdue returns unended raffles whose close time is at or before asOf
	GetOverdue(ctx context.Context, asOf time.Time) ([]*entities.Raffle, error)

	// Create stores a new raffle, assigning the next id when raffle.ID is zero
	Create(ctx context.Context, raffle *entities.Raffle) (*entities.Raffle, error)

	// Update replaces the stored raffle record
	Update(ctx context.Context, raffle *entities.Raffle) error
}

// ActivityRepository defines the capped append-only audit log
type ActivityRepository interface {
	// Append stores an entry and evicts the oldest beyond the cap
	Append(ctx context.Context, entry *entities.ActivityEntry) error

	// List returns entries newest first, at most limit (0 means the full cap)
	List(ctx context.Context, limit int) ([]*entities.ActivityEntry, error)

	// Clear empties the log
	Clear(ctx context.Context) error
}

// PollRepository defines community-poll persistence
type PollRepository interface {
	// GetByID retrieves a poll, nil when absent
	GetByID(ctx context.Context, id int64) (*entities.Poll, error)

	// GetAll returns every poll
	GetAll(ctx context.Context) ([]*entities.Poll, error)

	// GetOverdue returns open polls whose deadline is at or before asOf
	GetOverdue(ctx context.Context, asOf time.Time) ([]*entities.Poll, error)

	// Create stores a new poll, assigning the next id when poll.ID is zero
	Create(ctx context.Context, poll *entities.Poll) (*entities.Poll, error)

	// Update replaces the stored poll record
	Update(ctx context.Context, poll *entities.Poll) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// TransactionalEventPublisher holds events until the surrounding unit of work
// settles: Flush after commit, Discard after rollback.
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}
