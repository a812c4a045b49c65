// Package client is the Go consumer of the storefront API. The Fallback
// variant degrades to a local store when the remote is unreachable, so a
// caller keeps working offline with the same interface.
package client

import (
	"context"

	"royale/domain/entities"
	"royale/domain/interfaces"
)

// Storefront is the player-facing operation set shared by the remote client
// and its local fallback.
type Storefront interface {
	// Register creates an account and starts a session
	Register(ctx context.Context, username, password string) (*entities.User, error)

	// Login authenticates and starts a session
	Login(ctx context.Context, username, password string) (*entities.User, error)

	// ListRaffles returns the catalog
	ListRaffles(ctx context.Context) ([]*entities.Raffle, error)

	// GetRaffle returns one raffle
	GetRaffle(ctx context.Context, id int64) (*entities.Raffle, error)

	// Purchase buys tickets for the logged-in account
	Purchase(ctx context.Context, raffleID int64, count int) (*interfaces.PurchaseResult, error)

	// ClaimFreeTicket takes the promotional ticket for the logged-in account
	ClaimFreeTicket(ctx context.Context, raffleID int64) (*entities.Raffle, error)

	// Profile returns the logged-in account snapshot
	Profile(ctx context.Context) (*entities.User, error)
}
