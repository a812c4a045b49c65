package repository

import (
	"context"
	"fmt"

	"royale/application"
	"royale/database"
	"royale/domain/events"
	"royale/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface over a single pgx transaction
type unitOfWork struct {
	db           *database.DB
	tx           pgx.Tx
	ctx          context.Context
	publisher    interfaces.TransactionalEventPublisher
	userRepo     interfaces.UserRepository
	raffleRepo   interfaces.RaffleRepository
	activityRepo interfaces.ActivityRepository
	pollRepo     interfaces.PollRepository
}

type unitOfWorkFactory struct {
	db  *database.DB
	bus *events.Bus
}

// NewUnitOfWorkFactory creates a unit-of-work factory over a database pool
func NewUnitOfWorkFactory(db *database.DB, bus *events.Bus) application.UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db, bus: bus}
}

func (f *unitOfWorkFactory) Create() application.UnitOfWork {
	return &unitOfWork{
		db:        f.db,
		publisher: events.NewTransactionalBus(f.bus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepository(tx)
	u.raffleRepo = newRaffleRepository(tx)
	u.activityRepo = newActivityRepository(tx)
	u.pollRepo = newPollRepository(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.publisher != nil {
		u.publisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.publisher != nil {
		u.publisher.Discard()
	}

	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// RaffleRepository returns the raffle repository for this unit of work
func (u *unitOfWork) RaffleRepository() interfaces.RaffleRepository {
	if u.raffleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raffleRepo
}

// ActivityRepository returns the activity repository for this unit of work
func (u *unitOfWork) ActivityRepository() interfaces.ActivityRepository {
	if u.activityRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.activityRepo
}

// PollRepository returns the poll repository for this unit of work
func (u *unitOfWork) PollRepository() interfaces.PollRepository {
	if u.pollRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.pollRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.publisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.publisher
}
