package repository

import (
	"context"
	"fmt"

	"royale/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository implements account data access
type UserRepository struct {
	q Queryable
}

func newUserRepository(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// NewUserRepository creates a user repository against any queryable handle
func NewUserRepository(q Queryable) *UserRepository {
	return &UserRepository{q: q}
}

// GetByUsername retrieves an account by username, nil when absent
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	query := `
		SELECT username, password, balance::text, last_login_day, daily_streak,
		       last_login_week, weekly_streak, roles, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	user, err := r.scanUser(r.q.QueryRow(ctx, query, username))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}

	if err := r.loadChildren(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetAll returns every account
func (r *UserRepository) GetAll(ctx context.Context) ([]*entities.User, error) {
	query := `
		SELECT username, password, balance::text, last_login_day, daily_streak,
		       last_login_week, weekly_streak, roles, created_at, updated_at
		FROM users
		ORDER BY username
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entities.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	for _, user := range users {
		if err := r.loadChildren(ctx, user); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// Create stores a new account and its child records
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (username, password, balance, last_login_day, daily_streak,
		                   last_login_week, weekly_streak, roles, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.Exec(ctx, query,
		user.Username,
		user.Password,
		user.Balance.String(),
		user.LastLoginDay,
		user.DailyStreak,
		user.LastLoginWeek,
		user.WeeklyStreak,
		user.Roles,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}

	return r.insertChildren(ctx, user)
}

// Update replaces the stored account record and its child records
func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	query := `
		UPDATE users
		SET password = $2,
		    balance = $3::numeric,
		    last_login_day = $4,
		    daily_streak = $5,
		    last_login_week = $6,
		    weekly_streak = $7,
		    roles = $8,
		    updated_at = $9
		WHERE username = $1
	`

	result, err := r.q.Exec(ctx, query,
		user.Username,
		user.Password,
		user.Balance.String(),
		user.LastLoginDay,
		user.DailyStreak,
		user.LastLoginWeek,
		user.WeeklyStreak,
		user.Roles,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.Username, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", user.Username)
	}

	for _, table := range []string{"user_entries", "user_free_entries", "user_favorites", "user_deposits", "user_history"} {
		if _, err := r.q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE username = $1", table), user.Username); err != nil {
			return fmt.Errorf("failed to clear %s for %s: %w", table, user.Username, err)
		}
	}

	return r.insertChildren(ctx, user)
}

// Delete removes the account; child records cascade
func (r *UserRepository) Delete(ctx context.Context, username string) error {
	result, err := r.q.Exec(ctx, "DELETE FROM users WHERE username = $1", username)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", username)
	}
	return nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	var balance string
	err := row.Scan(
		&user.Username,
		&user.Password,
		&balance,
		&user.LastLoginDay,
		&user.DailyStreak,
		&user.LastLoginWeek,
		&user.WeeklyStreak,
		&user.Roles,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance %q: %w", balance, err)
	}
	user.Entries = make(map[int64]int)
	user.FreeEntries = make(map[int64]bool)
	user.Deposits = []entities.Deposit{}
	user.History = []entities.PurchaseRecord{}
	user.Favorites = []int64{}
	if user.Roles == nil {
		user.Roles = []string{}
	}
	return &user, nil
}

func (r *UserRepository) loadChildren(ctx context.Context, user *entities.User) error {
	rows, err := r.q.Query(ctx, "SELECT raffle_id, count FROM user_entries WHERE username = $1", user.Username)
	if err != nil {
		return fmt.Errorf("failed to load entries for %s: %w", user.Username, err)
	}
	defer rows.Close()
	for rows.Next() {
		var raffleID int64
		var count int
		if err := rows.Scan(&raffleID, &count); err != nil {
			return fmt.Errorf("failed to scan entry: %w", err)
		}
		user.Entries[raffleID] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate entries: %w", err)
	}

	rows, err = r.q.Query(ctx, "SELECT raffle_id FROM user_free_entries WHERE username = $1", user.Username)
	if err != nil {
		return fmt.Errorf("failed to load free entries for %s: %w", user.Username, err)
	}
	defer rows.Close()
	for rows.Next() {
		var raffleID int64
		if err := rows.Scan(&raffleID); err != nil {
			return fmt.Errorf("failed to scan free entry: %w", err)
		}
		user.FreeEntries[raffleID] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate free entries: %w", err)
	}

	rows, err = r.q.Query(ctx, "SELECT raffle_id FROM user_favorites WHERE username = $1 ORDER BY position", user.Username)
	if err != nil {
		return fmt.Errorf("failed to load favorites for %s: %w", user.Username, err)
	}
	defer rows.Close()
	for rows.Next() {
		var raffleID int64
		if err := rows.Scan(&raffleID); err != nil {
			return fmt.Errorf("failed to scan favorite: %w", err)
		}
		user.Favorites = append(user.Favorites, raffleID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate favorites: %w", err)
	}

	rows, err = r.q.Query(ctx, "SELECT amount::text, created_at FROM user_deposits WHERE username = $1 ORDER BY id", user.Username)
	if err != nil {
		return fmt.Errorf("failed to load deposits for %s: %w", user.Username, err)
	}
	defer rows.Close()
	for rows.Next() {
		var amount string
		var deposit entities.Deposit
		if err := rows.Scan(&amount, &deposit.Timestamp); err != nil {
			return fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposit.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("failed to parse deposit amount %q: %w", amount, err)
		}
		user.Deposits = append(user.Deposits, deposit)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate deposits: %w", err)
	}

	rows, err = r.q.Query(ctx, "SELECT raffle_id, title, count, created_at FROM user_history WHERE username = $1 ORDER BY id", user.Username)
	if err != nil {
		return fmt.Errorf("failed to load history for %s: %w", user.Username, err)
	}
	defer rows.Close()
	for rows.Next() {
		var record entities.PurchaseRecord
		if err := rows.Scan(&record.RaffleID, &record.Title, &record.Count, &record.Timestamp); err != nil {
			return fmt.Errorf("failed to scan history record: %w", err)
		}
		user.History = append(user.History, record)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate history: %w", err)
	}

	return nil
}

func (r *UserRepository) insertChildren(ctx context.Context, user *entities.User) error {
	for raffleID, count := range user.Entries {
		_, err := r.q.Exec(ctx,
			"INSERT INTO user_entries (username, raffle_id, count) VALUES ($1, $2, $3)",
			user.Username, raffleID, count)
		if err != nil {
			return fmt.Errorf("failed to insert entry for %s: %w", user.Username, err)
		}
	}
	for raffleID, claimed := range user.FreeEntries {
		if !claimed {
			continue
		}
		_, err := r.q.Exec(ctx,
			"INSERT INTO user_free_entries (username, raffle_id) VALUES ($1, $2)",
			user.Username, raffleID)
		if err != nil {
			return fmt.Errorf("failed to insert free entry for %s: %w", user.Username, err)
		}
	}
	for i, raffleID := range user.Favorites {
		_, err := r.q.Exec(ctx,
			"INSERT INTO user_favorites (username, raffle_id, position) VALUES ($1, $2, $3)",
			user.Username, raffleID, i)
		if err != nil {
			return fmt.Errorf("failed to insert favorite for %s: %w", user.Username, err)
		}
	}
	for _, deposit := range user.Deposits {
		_, err := r.q.Exec(ctx,
			"INSERT INTO user_deposits (username, amount, created_at) VALUES ($1, $2::numeric, $3)",
			user.Username, deposit.Amount.String(), deposit.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert deposit for %s: %w", user.Username, err)
		}
	}
	for _, record := range user.History {
		_, err := r.q.Exec(ctx,
			"INSERT INTO user_history (username, raffle_id, title, count, created_at) VALUES ($1, $2, $3, $4, $5)",
			user.Username, record.RaffleID, record.Title, record.Count, record.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert history record for %s: %w", user.Username, err)
		}
	}
	return nil
}
