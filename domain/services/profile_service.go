package services

import (
	"context"
	"fmt"
	"time"

	"royale/domain/entities"
	"royale/domain/events"
	"royale/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// profileService implements account lifecycle, login streaks, deposits and
// the admin back-office edits.
type profileService struct {
	userRepo     interfaces.UserRepository
	activityRepo interfaces.ActivityRepository
	publisher    interfaces.EventPublisher
	now          func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(
	userRepo interfaces.UserRepository,
	activityRepo interfaces.ActivityRepository,
	publisher interfaces.EventPublisher,
) interfaces.ProfileService {
	return &profileService{
		userRepo:     userRepo,
		activityRepo: activityRepo,
		publisher:    publisher,
		now:          time.Now,
	}
}

// Register creates an account with the default starting balance
func (s *profileService) Register(ctx context.Context, username, password string) (*entities.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, entities.ErrUsernameTaken()
	}

	user := entities.NewUser(username, password)
	s.touchStreaks(user)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.publisher.Publish(events.UserRegisteredEvent{
		Username:        username,
		StartingBalance: user.Balance,
	})

	return user, nil
}

// Authenticate compares credentials and advances the login streak counters
func (s *profileService) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.Password != password {
		return nil, entities.ErrInvalidCredentials()
	}

	s.touchStreaks(user)
	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update login streaks: %w", err)
	}

	return user, nil
}

// touchStreaks advances the daily and ISO-week streaks for a login at now.
// Same day/week: unchanged. Exactly one elapsed: +1. Any other gap: reset to 1.
func (s *profileService) touchStreaks(user *entities.User) {
	now := s.now().UTC()

	day := now.Format("2006-01-02")
	if user.LastLoginDay != day {
		yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
		if user.LastLoginDay == yesterday {
			user.DailyStreak++
		} else {
			user.DailyStreak = 1
		}
		user.LastLoginDay = day
	}

	week := isoWeekKey(now)
	if user.LastLoginWeek != week {
		lastWeek := isoWeekKey(now.AddDate(0, 0, -7))
		if user.LastLoginWeek == lastWeek {
			user.WeeklyStreak++
		} else {
			user.WeeklyStreak = 1
		}
		user.LastLoginWeek = week
	}
}

func isoWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// GetProfile returns the stored account snapshot
func (s *profileService) GetProfile(ctx context.Context, username string) (*entities.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound()
	}
	return user, nil
}

// UpdateProfile applies a pure transformation to the stored account and
// persists the result. Last writer wins; there is no version check.
func (s *profileService) UpdateProfile(ctx context.Context, username string, mutate func(*entities.User) error) (*entities.User, error) {
	user, err := s.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := mutate(user); err != nil {
		return nil, err
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// RecordDeposit credits a settled top-up: balance, deposit history, audit
func (s *profileService) RecordDeposit(ctx context.Context, username string, amount decimal.Decimal) (*entities.User, error) {
	if !amount.IsPositive() {
		return nil, entities.ErrInvalidAmount()
	}

	user, err := s.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user.Credit(amount)
	user.AppendDeposit(amount, now)
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	entry := entities.NewActivityEntry(entities.ActivityTopup, username, map[string]any{
		"amount": amount.String(),
	})
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	s.publisher.Publish(events.BalanceToppedUpEvent{
		Username:   username,
		Amount:     amount,
		NewBalance: user.Balance,
	})

	return user, nil
}

// ToggleFavorite flips a raffle in the favorites list
func (s *profileService) ToggleFavorite(ctx context.Context, username string, raffleID int64) (*entities.User, error) {
	return s.UpdateProfile(ctx, username, func(u *entities.User) error {
		u.ToggleFavorite(raffleID)
		return nil
	})
}

// requireAdmin loads the acting account and checks the admin role
func (s *profileService) requireAdmin(ctx context.Context, actor string) (*entities.User, error) {
	acting, err := s.userRepo.GetByUsername(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to get acting user: %w", err)
	}
	if acting == nil {
		return nil, entities.ErrNotLoggedIn()
	}
	if !acting.IsAdmin() {
		return nil, entities.ErrNotAuthorized()
	}
	return acting, nil
}

// ListUsers returns every account for the back office
func (s *profileService) ListUsers(ctx context.Context, actor string) ([]*entities.User, error) {
	if _, err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	return s.userRepo.GetAll(ctx)
}

// UpdateUser applies an admin edit to another account
func (s *profileService) UpdateUser(ctx context.Context, actor, username string, update interfaces.UserUpdate) (*entities.User, error) {
	if _, err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{"username": username}
	if update.Balance != nil {
		if update.Balance.IsNegative() {
			return nil, entities.ErrInvalidAmount()
		}
		changes["balance"] = update.Balance.String()
		user.Balance = *update.Balance
	}
	if update.Password != nil {
		changes["password"] = true
		user.Password = *update.Password
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	entry := entities.NewActivityEntry(entities.ActivityUpdateUser, actor, changes)
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	return user, nil
}

// ToggleAdminRole grants or revokes the admin role on an account
func (s *profileService) ToggleAdminRole(ctx context.Context, actor, username string) (*entities.User, error) {
	if _, err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	user.ToggleRole(entities.RoleAdmin)
	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	entry := entities.NewActivityEntry(entities.ActivityToggleAdmin, actor, map[string]any{
		"username": username,
		"isAdmin":  user.IsAdmin(),
	})
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	return user, nil
}

// DeleteUser removes an account. Session revocation is the caller's job
// since sessions live outside the stores.
func (s *profileService) DeleteUser(ctx context.Context, actor, username string) error {
	if _, err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}

	user, err := s.GetProfile(ctx, username)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, user.Username); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	entry := entities.NewActivityEntry(entities.ActivityDeleteUser, actor, map[string]any{
		"username": username,
	})
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}

	log.WithFields(log.Fields{
		"actor":    actor,
		"username": username,
	}).Info("User account deleted")

	return nil
}
