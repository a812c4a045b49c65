package localstore

import (
	"context"
	"fmt"

	"royale/application"
	"royale/domain/events"
	"royale/domain/interfaces"
)

// unitOfWork stages every mutation on a deep copy of the document and swaps
// it in on commit. The store mutex is held from Begin to Commit/Rollback, so
// no other operation ever observes an intermediate state.
type unitOfWork struct {
	store     *Store
	stage     *state
	publisher interfaces.TransactionalEventPublisher
	ctx       context.Context
	began     bool

	userRepo     interfaces.UserRepository
	raffleRepo   interfaces.RaffleRepository
	activityRepo interfaces.ActivityRepository
	pollRepo     interfaces.PollRepository
}

type unitOfWorkFactory struct {
	store *Store
	bus   *events.Bus
}

// NewUnitOfWorkFactory creates a unit-of-work factory over a local store
func NewUnitOfWorkFactory(store *Store, bus *events.Bus) application.UnitOfWorkFactory {
	return &unitOfWorkFactory{store: store, bus: bus}
}

func (f *unitOfWorkFactory) Create() application.UnitOfWork {
	return &unitOfWork{
		store:     f.store,
		publisher: events.NewTransactionalBus(f.bus),
	}
}

// Begin locks the store and stages a snapshot
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.began {
		return fmt.Errorf("unit of work already started")
	}

	u.store.mu.Lock()
	u.stage = u.store.state.clone()
	u.ctx = ctx
	u.began = true

	u.userRepo = &userRepository{stage: u.stage}
	u.raffleRepo = &raffleRepository{stage: u.stage}
	u.activityRepo = &activityRepository{stage: u.stage}
	u.pollRepo = &pollRepository{stage: u.stage}

	return nil
}

// Commit persists the staged document, swaps it in and flushes events. The
// stage is written to disk before the swap, so a failed save leaves the live
// state untouched and the caller can trust the error.
func (u *unitOfWork) Commit() error {
	if !u.began {
		return fmt.Errorf("no unit of work to commit")
	}

	if err := u.store.saveLocked(u.stage); err != nil {
		u.store.mu.Unlock()
		u.began = false
		u.stage = nil
		u.publisher.Discard()
		return err
	}

	u.store.state = u.stage
	u.store.mu.Unlock()
	u.began = false
	u.stage = nil

	u.publisher.Flush(u.ctx)
	return nil
}

// Rollback discards the stage. Calling it after Commit is a no-op, so
// defer uow.Rollback() is safe.
func (u *unitOfWork) Rollback() error {
	if !u.began {
		return nil
	}

	u.store.mu.Unlock()
	u.began = false
	u.stage = nil
	u.publisher.Discard()
	return nil
}

func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

func (u *unitOfWork) RaffleRepository() interfaces.RaffleRepository {
	if u.raffleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raffleRepo
}

func (u *unitOfWork) ActivityRepository() interfaces.ActivityRepository {
	if u.activityRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.activityRepo
}

func (u *unitOfWork) PollRepository() interfaces.PollRepository {
	if u.pollRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.pollRepo
}

func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.publisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.publisher
}
