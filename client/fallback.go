package client

import (
	"context"
	"errors"
	"net/url"

	"royale/domain/entities"
	"royale/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// Fallback prefers the remote API and degrades to the local store when the
// remote is unreachable. Business failures never trigger the fallback; only
// transport errors do.
type Fallback struct {
	remote *Remote
	local  *Local
}

// NewFallback composes a remote client with its local stand-in
func NewFallback(remote *Remote, local *Local) *Fallback {
	return &Fallback{remote: remote, local: local}
}

// isTransportError distinguishes an unreachable remote from a remote that
// answered with a failure
func isTransportError(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func fallbackTo[T any](f *Fallback, op string, err error, local func() (T, error)) (T, error) {
	if !isTransportError(err) {
		var zero T
		return zero, err
	}
	log.WithError(err).WithField("op", op).Warn("remote unreachable, using local store")
	return local()
}

func (f *Fallback) Register(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := f.remote.Register(ctx, username, password)
	if err == nil {
		return user, nil
	}
	return fallbackTo(f, "register", err, func() (*entities.User, error) {
		return f.local.Register(ctx, username, password)
	})
}

func (f *Fallback) Login(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := f.remote.Login(ctx, username, password)
	if err == nil {
		return user, nil
	}
	return fallbackTo(f, "login", err, func() (*entities.User, error) {
		return f.local.Login(ctx, username, password)
	})
}

func (f *Fallback) ListRaffles(ctx context.Context) ([]*entities.Raffle, error) {
	raffles, err := f.remote.ListRaffles(ctx)
	if err == nil {
		return raffles, nil
	}
	return fallbackTo(f, "list_raffles", err, func() ([]*entities.Raffle, error) {
		return f.local.ListRaffles(ctx)
	})
}

func (f *Fallback) GetRaffle(ctx context.Context, id int64) (*entities.Raffle, error) {
	raffle, err := f.remote.GetRaffle(ctx, id)
	if err == nil {
		return raffle, nil
	}
	return fallbackTo(f, "get_raffle", err, func() (*entities.Raffle, error) {
		return f.local.GetRaffle(ctx, id)
	})
}

func (f *Fallback) Purchase(ctx context.Context, raffleID int64, count int) (*interfaces.PurchaseResult, error) {
	result, err := f.remote.Purchase(ctx, raffleID, count)
	if err == nil {
		return result, nil
	}
	return fallbackTo(f, "purchase", err, func() (*interfaces.PurchaseResult, error) {
		return f.local.Purchase(ctx, raffleID, count)
	})
}

func (f *Fallback) ClaimFreeTicket(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	raffle, err := f.remote.ClaimFreeTicket(ctx, raffleID)
	if err == nil {
		return raffle, nil
	}
	return fallbackTo(f, "free_entry", err, func() (*entities.Raffle, error) {
		return f.local.ClaimFreeTicket(ctx, raffleID)
	})
}

func (f *Fallback) Profile(ctx context.Context) (*entities.User, error) {
	user, err := f.remote.Profile(ctx)
	if err == nil {
		return user, nil
	}
	return fallbackTo(f, "profile", err, func() (*entities.User, error) {
		return f.local.Profile(ctx)
	})
}
