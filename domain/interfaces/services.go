package interfaces

import (
	"context"
	"time"

	"royale/domain/entities"

	"github.com/shopspring/decimal"
)

// ResolveTrigger distinguishes scheduler-driven raffle endings from admin ones
type ResolveTrigger string

const (
	TriggerScheduled ResolveTrigger = "scheduled"
	TriggerManual    ResolveTrigger = "manual"
)

// PurchaseResult reports the state left behind by a successful purchase
type PurchaseResult struct {
	Raffle     *entities.Raffle
	Count      int
	TotalPrice decimal.Decimal
	NewBalance decimal.Decimal
}

// LedgerService owns the purchase, free-entry and resolution algorithms. All
// effects of one call commit or fail together; a business failure leaves both
// stores untouched.
type LedgerService interface {
	// Purchase buys count tickets for username against their balance
	Purchase(ctx context.Context, username string, raffleID int64, count int) (*PurchaseResult, error)

	// ClaimFreeTicket grants the one promotional ticket, no balance debit
	ClaimFreeTicket(ctx context.Context, username string, raffleID int64) (*entities.Raffle, error)

	// ResolveRaffle ends a raffle and draws its winner. Idempotent: an
	// already-ended raffle is returned unchanged.
	ResolveRaffle(ctx context.Context, raffleID int64, trigger ResolveTrigger) (*entities.Raffle, error)
}

// UserUpdate carries the admin-editable account fields; nil means unchanged
type UserUpdate struct {
	Balance  *decimal.Decimal
	Password *string
}

// ProfileService owns account lifecycle and balance top-ups
type ProfileService interface {
	// Register creates an account with the starting balance
	Register(ctx context.Context, username, password string) (*entities.User, error)

	// Authenticate checks credentials and advances the login streaks
	Authenticate(ctx context.Context, username, password string) (*entities.User, error)

	// GetProfile returns the account snapshot
	GetProfile(ctx context.Context, username string) (*entities.User, error)

	// UpdateProfile applies mutate to the stored account and persists it
	UpdateProfile(ctx context.Context, username string, mutate func(*entities.User) error) (*entities.User, error)

	// RecordDeposit credits a settled top-up and appends the deposit record
	RecordDeposit(ctx context.Context, username string, amount decimal.Decimal) (*entities.User, error)

	// ToggleFavorite flips a raffle in the account's favorites list
	ToggleFavorite(ctx context.Context, username string, raffleID int64) (*entities.User, error)

	// ListUsers returns all accounts; actor must be an admin
	ListUsers(ctx context.Context, actor string) ([]*entities.User, error)

	// UpdateUser applies an admin edit to another account
	UpdateUser(ctx context.Context, actor, username string, update UserUpdate) (*entities.User, error)

	// ToggleAdminRole grants or revokes the admin role
	ToggleAdminRole(ctx context.Context, actor, username string) (*entities.User, error)

	// DeleteUser removes an account; the caller revokes its sessions
	DeleteUser(ctx context.Context, actor, username string) error
}

// UpsertRaffleInput carries an admin catalog edit. Nil fields are left as
// stored. Ledger state (sold, entries, ended, winner) is never accepted here.
type UpsertRaffleInput struct {
	ID           int64 // zero allocates a new raffle
	Title        *string
	Description  *string
	Image        *string
	Category     *string
	Value        *decimal.Decimal
	TicketPrice  *decimal.Decimal
	TotalTickets *int
	EndsAt       *time.Time
}

// CatalogService owns the raffle catalog and its derived views
type CatalogService interface {
	// ListRaffles returns the full catalog snapshot
	ListRaffles(ctx context.Context) ([]*entities.Raffle, error)

	// GetRaffle returns one raffle or a raffle-not-found failure
	GetRaffle(ctx context.Context, id int64) (*entities.Raffle, error)

	// UpsertRaffle creates or edits a raffle; actor must be an admin
	UpsertRaffle(ctx context.Context, actor string, input UpsertRaffleInput) (*entities.Raffle, error)

	// EndRaffle resolves a raffle ahead of schedule; actor must be an admin
	EndRaffle(ctx context.Context, actor string, id int64) (*entities.Raffle, error)

	// TopRaffles returns the top 3 active raffles by sell-through ratio
	TopRaffles(ctx context.Context) ([]*entities.Raffle, error)

	// Categorized groups the catalog by category
	Categorized(ctx context.Context) (map[string][]*entities.Raffle, error)
}

// PollService owns community polls
type PollService interface {
	// ListPolls returns every poll
	ListPolls(ctx context.Context) ([]*entities.Poll, error)

	// CreatePoll installs a new poll; actor must be an admin
	CreatePoll(ctx context.Context, actor string, poll *entities.Poll) (*entities.Poll, error)

	// Vote records or replaces username's vote on an open poll
	Vote(ctx context.Context, username string, pollID int64, optionID string) (*entities.Poll, error)

	// ResolvePoll closes an overdue poll. Idempotent.
	ResolvePoll(ctx context.Context, pollID int64) (*entities.Poll, error)
}
