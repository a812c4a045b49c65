package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"royale/domain/entities"
	"royale/domain/interfaces"
)

// catalogService implements raffle catalog persistence rules and the derived
// storefront views. It enforces field-level merge on admin edits so a stale
// edit can never resurrect sold counts, entries or a winner.
type catalogService struct {
	userRepo     interfaces.UserRepository
	raffleRepo   interfaces.RaffleRepository
	activityRepo interfaces.ActivityRepository
	ledger       interfaces.LedgerService
	now          func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	userRepo interfaces.UserRepository,
	raffleRepo interfaces.RaffleRepository,
	activityRepo interfaces.ActivityRepository,
	ledger interfaces.LedgerService,
) interfaces.CatalogService {
	return &catalogService{
		userRepo:     userRepo,
		raffleRepo:   raffleRepo,
		activityRepo: activityRepo,
		ledger:       ledger,
		now:          time.Now,
	}
}

// ListRaffles returns the full catalog snapshot
func (s *catalogService) ListRaffles(ctx context.Context) ([]*entities.Raffle, error) {
	return s.raffleRepo.GetAll(ctx)
}

// GetRaffle returns one raffle
func (s *catalogService) GetRaffle(ctx context.Context, id int64) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, entities.ErrRaffleNotFound()
	}
	return raffle, nil
}

// requireAdmin loads the acting account and checks the admin role
func (s *catalogService) requireAdmin(ctx context.Context, actor string) error {
	acting, err := s.userRepo.GetByUsername(ctx, actor)
	if err != nil {
		return fmt.Errorf("failed to get acting user: %w", err)
	}
	if acting == nil {
		return entities.ErrNotLoggedIn()
	}
	if !acting.IsAdmin() {
		return entities.ErrNotAuthorized()
	}
	return nil
}

// UpsertRaffle creates a raffle or merges an edit into an existing one.
// Only metadata, pricing and schedule fields are mergeable; sold, entries,
// ended and winner always keep their stored values, and total tickets can
// never drop below the sold count.
func (s *catalogService) UpsertRaffle(ctx context.Context, actor string, input interfaces.UpsertRaffleInput) (*entities.Raffle, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	if input.ID == 0 {
		raffle := &entities.Raffle{
			Entries:   []entities.RaffleEntry{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		applyRaffleInput(raffle, input)
		created, err := s.raffleRepo.Create(ctx, raffle)
		if err != nil {
			return nil, fmt.Errorf("failed to create raffle: %w", err)
		}

		entry := entities.NewActivityEntry(entities.ActivityCreateRaffle, actor, map[string]any{
			"raffleId": created.ID,
			"title":    created.Title,
		})
		if err := s.activityRepo.Append(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to append activity entry: %w", err)
		}
		return created, nil
	}

	raffle, err := s.raffleRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, entities.ErrRaffleNotFound()
	}
	if input.TotalTickets != nil && *input.TotalTickets < raffle.Sold {
		return nil, entities.ErrInventoryBelowSold(raffle.Sold)
	}

	applyRaffleInput(raffle, input)
	raffle.UpdatedAt = now
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	entry := entities.NewActivityEntry(entities.ActivityUpdateRaffle, actor, map[string]any{
		"raffleId": raffle.ID,
		"title":    raffle.Title,
	})
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	return raffle, nil
}

// applyRaffleInput copies the provided fields onto the raffle. Ledger state
// is deliberately not part of the input type.
func applyRaffleInput(raffle *entities.Raffle, input interfaces.UpsertRaffleInput) {
	if input.Title != nil {
		raffle.Title = *input.Title
	}
	if input.Description != nil {
		raffle.Description = *input.Description
	}
	if input.Image != nil {
		raffle.Image = *input.Image
	}
	if input.Category != nil {
		raffle.Category = *input.Category
	}
	if input.Value != nil {
		raffle.Value = *input.Value
	}
	if input.TicketPrice != nil {
		raffle.TicketPrice = *input.TicketPrice
	}
	if input.TotalTickets != nil {
		raffle.TotalTickets = *input.TotalTickets
	}
	if input.EndsAt != nil {
		raffle.EndsAt = *input.EndsAt
	}
}

// EndRaffle resolves a raffle ahead of its schedule. The resolution itself
// goes through the same ledger path the scheduler uses.
func (s *catalogService) EndRaffle(ctx context.Context, actor string, id int64) (*entities.Raffle, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	raffle, err := s.ledger.ResolveRaffle(ctx, id, interfaces.TriggerManual)
	if err != nil {
		return nil, err
	}

	entry := entities.NewActivityEntry(entities.ActivityEndRaffle, actor, map[string]any{
		"raffleId": id,
	})
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	return raffle, nil
}

// TopRaffles returns the three most-subscribed active raffles
func (s *catalogService) TopRaffles(ctx context.Context) ([]*entities.Raffle, error) {
	raffles, err := s.raffleRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*entities.Raffle, 0, len(raffles))
	for _, r := range raffles {
		if !r.Ended {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].SellThrough() > active[j].SellThrough()
	})

	if len(active) > 3 {
		active = active[:3]
	}
	return active, nil
}

// Categorized groups the catalog by category
func (s *catalogService) Categorized(ctx context.Context) (map[string][]*entities.Raffle, error) {
	raffles, err := s.raffleRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	categories := make(map[string][]*entities.Raffle)
	for _, r := range raffles {
		categories[r.Category] = append(categories[r.Category], r)
	}
	return categories, nil
}
