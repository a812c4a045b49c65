package client

import (
	"context"
	"sync"

	"royale/application"
	"royale/domain/entities"
	"royale/domain/interfaces"
	"royale/domain/services"

	log "github.com/sirupsen/logrus"
)

// Local serves the Storefront interface straight from a storage backend,
// with no server in between. It backs the offline path of Fallback.
type Local struct {
	uowFactory application.UnitOfWorkFactory
	worker     *application.ResolutionWorker

	mu       sync.Mutex
	username string
}

// NewLocal creates a store-backed client
func NewLocal(uowFactory application.UnitOfWorkFactory) *Local {
	return &Local{
		uowFactory: uowFactory,
		worker:     application.NewResolutionWorker(uowFactory),
	}
}

func (l *Local) Register(ctx context.Context, username, password string) (*entities.User, error) {
	var user *entities.User
	err := l.inUnitOfWork(ctx, func(uow application.UnitOfWork) error {
		svc := services.NewProfileService(uow.UserRepository(), uow.ActivityRepository(), uow.EventBus())
		var err error
		user, err = svc.Register(ctx, username, password)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.setUsername(username)
	return user, nil
}

func (l *Local) Login(ctx context.Context, username, password string) (*entities.User, error) {
	var user *entities.User
	err := l.inUnitOfWork(ctx, func(uow application.UnitOfWork) error {
		svc := services.NewProfileService(uow.UserRepository(), uow.ActivityRepository(), uow.EventBus())
		var err error
		user, err = svc.Authenticate(ctx, username, password)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.setUsername(username)
	return user, nil
}

func (l *Local) ListRaffles(ctx context.Context) ([]*entities.Raffle, error) {
	l.resolveOverdue(ctx)

	var raffles []*entities.Raffle
	err := l.inUnitOfWork(ctx, func(uow application.UnitOfWork) error {
		var err error
		raffles, err = uow.RaffleRepository().GetAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return raffles, nil
}

func (l *Local) GetRaffle(ctx context.Context, id int64) (*entities.Raffle, error) {
	l.resolveOverdue(ctx)

	var raffle *entities.Raffle
	err := l.inUnitOfWork(ctx, func(uow application.UnitOfWork) error {
		svc := services.NewCatalogService(uow.UserRepository(), uow.RaffleRepository(), uow.ActivityRepository(), nil)
		var err error
		raffle, err = svc.GetRaffle(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return raffle, nil
}

func (l *Local) Purchase(ctx context.Context, raffleID int64, count int) (*interfaces.PurchaseResult, error) {
	username, err := l.currentUsername()
	if err != nil {
		return nil, err
	}

	var result *interfaces.PurchaseResult
	err = l.inUnitOfWork(ctx, func(uow application.UnitOfWork) error {
		svc := services.NewLedgerService(uow.UserRepository(), uow.RaffleRepository(), uow.ActivityRepository(), uow.EventBus())
		var err error
		result, err = svc.Purchase(ctx, username, raffleID, count)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (l *Local) ClaimFreeTicket(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	username, err := l.currentUsername()
	if err != nil {
		return nil, err
	}

	var raffle *entities.Raffle
	err = l.inUnitOfWork(ctx, func(uow application.UnitOfWork) error {
		svc := services.NewLedgerService(uow.UserRepository(), uow.RaffleRepository(), uow.ActivityRepository(), uow.EventBus())
		var err error
		raffle, err = svc.ClaimFreeTicket(ctx, username, raffleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return raffle, nil
}

func (l *Local) Profile(ctx context.Context) (*entities.User, error) {
	username, err := l.currentUsername()
	if err != nil {
		return nil, err
	}

	var user *entities.User
	err = l.inUnitOfWork(ctx, func(uow application.UnitOfWork) error {
		svc := services.NewProfileService(uow.UserRepository(), uow.ActivityRepository(), uow.EventBus())
		var err error
		user, err = svc.GetProfile(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// inUnitOfWork runs fn in its own unit of work, committing on success
func (l *Local) inUnitOfWork(ctx context.Context, fn func(uow application.UnitOfWork) error) error {
	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

func (l *Local) resolveOverdue(ctx context.Context) {
	if err := l.worker.RunPass(ctx); err != nil {
		log.WithError(err).Warn("local resolution pass failed")
	}
}

func (l *Local) setUsername(username string) {
	l.mu.Lock()
	l.username = username
	l.mu.Unlock()
}

func (l *Local) currentUsername() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.username == "" {
		return "", entities.ErrNotLoggedIn()
	}
	return l.username, nil
}
