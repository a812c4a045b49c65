package services

import (
	"context"
	"fmt"
	"time"

	"royale/domain/entities"
	"royale/domain/events"
	"royale/domain/interfaces"

	"github.com/shopspring/decimal"
)

// ledgerService implements the purchase, free-entry and resolution algorithms.
// It is constructed per unit of work so every call reads and writes one
// consistent snapshot of both stores.
type ledgerService struct {
	userRepo     interfaces.UserRepository
	raffleRepo   interfaces.RaffleRepository
	activityRepo interfaces.ActivityRepository
	publisher    interfaces.EventPublisher
	now          func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	userRepo interfaces.UserRepository,
	raffleRepo interfaces.RaffleRepository,
	activityRepo interfaces.ActivityRepository,
	publisher interfaces.EventPublisher,
) interfaces.LedgerService {
	return &ledgerService{
		userRepo:     userRepo,
		raffleRepo:   raffleRepo,
		activityRepo: activityRepo,
		publisher:    publisher,
		now:          time.Now,
	}
}

// Purchase buys count tickets for username. Preconditions are checked in a
// fixed order and the first failure wins, leaving no partial effects.
func (s *ledgerService) Purchase(ctx context.Context, username string, raffleID int64, count int) (*interfaces.PurchaseResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entities.ErrNotLoggedIn()
	}

	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, entities.ErrRaffleNotFound()
	}
	if raffle.Ended {
		return nil, entities.ErrRaffleEnded()
	}

	if count <= 0 {
		return nil, entities.ErrInvalidCount()
	}

	totalPrice := raffle.TicketPrice.Mul(decimal.NewFromInt(int64(count)))
	if !user.CanAfford(totalPrice) {
		return nil, entities.ErrInsufficientBalance()
	}

	limit := raffle.PerUserLimit()
	if user.EntryCount(raffleID)+count > limit {
		return nil, entities.ErrPerUserLimit(limit)
	}

	if raffle.Sold+count > raffle.TotalTickets {
		return nil, entities.ErrSoldOut()
	}

	now := s.now().UTC()

	raffle.RecordEntry(username, count)
	raffle.UpdatedAt = now
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	user.Debit(totalPrice)
	user.AddEntries(raffleID, count)
	user.AppendPurchase(raffleID, raffle.Title, count, now)
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	entry := entities.NewActivityEntry(entities.ActivityPurchase, username, map[string]any{
		"raffleId": raffleID,
		"count":    count,
		"total":    totalPrice.String(),
	})
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	s.publisher.Publish(events.TicketsPurchasedEvent{
		Username:   username,
		RaffleID:   raffleID,
		Title:      raffle.Title,
		Count:      count,
		TotalPrice: totalPrice,
		NewBalance: user.Balance,
	})

	return &interfaces.PurchaseResult{
		Raffle:     raffle,
		Count:      count,
		TotalPrice: totalPrice,
		NewBalance: user.Balance,
	}, nil
}

// ClaimFreeTicket grants the one promotional ticket per user per raffle.
// Mirrors Purchase with count = 1 but never touches the balance.
func (s *ledgerService) ClaimFreeTicket(ctx context.Context, username string, raffleID int64) (*entities.Raffle, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entities.ErrNotLoggedIn()
	}

	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, entities.ErrRaffleNotFound()
	}
	if raffle.Ended {
		return nil, entities.ErrRaffleEnded()
	}

	if raffle.Available() <= 0 {
		return nil, entities.ErrSoldOut()
	}

	limit := raffle.PerUserLimit()
	if user.EntryCount(raffleID) >= limit {
		return nil, entities.ErrPerUserLimit(limit)
	}

	if user.HasClaimedFreeEntry(raffleID) {
		return nil, entities.ErrAlreadyClaimed()
	}

	now := s.now().UTC()

	raffle.RecordEntry(username, 1)
	raffle.UpdatedAt = now
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	user.AddEntries(raffleID, 1)
	user.MarkFreeEntryClaimed(raffleID)
	user.AppendPurchase(raffleID, raffle.Title, 1, now)
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	entry := entities.NewActivityEntry(entities.ActivityFreeEntry, username, map[string]any{
		"raffleId": raffleID,
	})
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	s.publisher.Publish(events.FreeEntryClaimedEvent{
		Username: username,
		RaffleID: raffleID,
		Title:    raffle.Title,
	})

	return raffle, nil
}

// ResolveRaffle ends a raffle and draws its winner, once. Calling it on an
// already-ended raffle returns the stored state unchanged: no second draw.
func (s *ledgerService) ResolveRaffle(ctx context.Context, raffleID int64, trigger interfaces.ResolveTrigger) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, entities.ErrRaffleNotFound()
	}
	if raffle.Ended {
		return raffle, nil
	}

	winner, err := raffle.DrawWinner()
	if err != nil {
		return nil, fmt.Errorf("failed to draw winner: %w", err)
	}

	raffle.End(winner)
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	activityType := entities.ActivityRaffleEnd
	if trigger == interfaces.TriggerManual {
		activityType = entities.ActivityRaffleEndManual
	}
	payload := map[string]any{"raffleId": raffleID}
	if winner != nil {
		payload["winner"] = *winner
	}
	entry := entities.NewActivityEntry(activityType, "", payload)
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	s.publisher.Publish(events.RaffleEndedFrom(raffle, string(trigger)))

	return raffle, nil
}
