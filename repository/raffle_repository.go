package repository

import (
	"context"
	"fmt"
	"time"

	"royale/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// RaffleRepository implements raffle catalog data access
type RaffleRepository struct {
	q Queryable
}

func newRaffleRepository(tx Queryable) *RaffleRepository {
	return &RaffleRepository{q: tx}
}

// NewRaffleRepository creates a raffle repository against any queryable handle
func NewRaffleRepository(q Queryable) *RaffleRepository {
	return &RaffleRepository{q: q}
}

const raffleColumns = `id, title, description, image, category, value::text, ticket_price::text,
	       total_tickets, sold, ends_at, ended, winner, created_at, updated_at`

// GetByID retrieves a raffle with its entries, nil when absent
func (r *RaffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	query := fmt.Sprintf("SELECT %s FROM raffles WHERE id = $1", raffleColumns)

	raffle, err := r.scanRaffle(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle %d: %w", id, err)
	}

	if err := r.loadEntries(ctx, raffle); err != nil {
		return nil, err
	}
	return raffle, nil
}

// GetAll returns the full catalog
func (r *RaffleRepository) GetAll(ctx context.Context) ([]*entities.Raffle, error) {
	query := fmt.Sprintf("SELECT %s FROM raffles ORDER BY id", raffleColumns)
	return r.queryRaffles(ctx, query)
}

// GetOverdue returns unended raffles whose close time is at or before asOf
func (r *RaffleRepository) GetOverdue(ctx context.Context, asOf time.Time) ([]*entities.Raffle, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM raffles
		WHERE NOT ended AND ends_at <= $1
		ORDER BY ends_at
	`, raffleColumns)
	return r.queryRaffles(ctx, query, asOf)
}

// Create stores a new raffle, letting the database assign the id when zero
func (r *RaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) (*entities.Raffle, error) {
	stored := raffle.Clone()
	if stored.Entries == nil {
		stored.Entries = []entities.RaffleEntry{}
	}

	if stored.ID == 0 {
		query := `
			INSERT INTO raffles (title, description, image, category, value, ticket_price,
			                     total_tickets, sold, ends_at, ended, winner, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`
		err := r.q.QueryRow(ctx, query,
			stored.Title, stored.Description, stored.Image, stored.Category,
			stored.Value.String(), stored.TicketPrice.String(),
			stored.TotalTickets, stored.Sold, stored.EndsAt, stored.Ended, stored.Winner,
			stored.CreatedAt, stored.UpdatedAt,
		).Scan(&stored.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create raffle: %w", err)
		}
	} else {
		query := `
			INSERT INTO raffles (id, title, description, image, category, value, ticket_price,
			                     total_tickets, sold, ends_at, ended, winner, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12, $13, $14)
		`
		_, err := r.q.Exec(ctx, query,
			stored.ID, stored.Title, stored.Description, stored.Image, stored.Category,
			stored.Value.String(), stored.TicketPrice.String(),
			stored.TotalTickets, stored.Sold, stored.EndsAt, stored.Ended, stored.Winner,
			stored.CreatedAt, stored.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create raffle %d: %w", stored.ID, err)
		}
	}

	if err := r.insertEntries(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Update replaces the stored raffle record and its entries
func (r *RaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		UPDATE raffles
		SET title = $2,
		    description = $3,
		    image = $4,
		    category = $5,
		    value = $6::numeric,
		    ticket_price = $7::numeric,
		    total_tickets = $8,
		    sold = $9,
		    ends_at = $10,
		    ended = $11,
		    winner = $12,
		    updated_at = $13
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		raffle.ID, raffle.Title, raffle.Description, raffle.Image, raffle.Category,
		raffle.Value.String(), raffle.TicketPrice.String(),
		raffle.TotalTickets, raffle.Sold, raffle.EndsAt, raffle.Ended, raffle.Winner,
		raffle.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update raffle %d: %w", raffle.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("raffle %d not found", raffle.ID)
	}

	if _, err := r.q.Exec(ctx, "DELETE FROM raffle_entries WHERE raffle_id = $1", raffle.ID); err != nil {
		return fmt.Errorf("failed to clear entries for raffle %d: %w", raffle.ID, err)
	}
	return r.insertEntries(ctx, raffle)
}

func (r *RaffleRepository) queryRaffles(ctx context.Context, query string, args ...any) ([]*entities.Raffle, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query raffles: %w", err)
	}
	defer rows.Close()

	var raffles []*entities.Raffle
	for rows.Next() {
		raffle, err := r.scanRaffle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle: %w", err)
		}
		raffles = append(raffles, raffle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raffles: %w", err)
	}

	for _, raffle := range raffles {
		if err := r.loadEntries(ctx, raffle); err != nil {
			return nil, err
		}
	}
	return raffles, nil
}

func (r *RaffleRepository) scanRaffle(row pgx.Row) (*entities.Raffle, error) {
	var raffle entities.Raffle
	var value, ticketPrice string
	err := row.Scan(
		&raffle.ID,
		&raffle.Title,
		&raffle.Description,
		&raffle.Image,
		&raffle.Category,
		&value,
		&ticketPrice,
		&raffle.TotalTickets,
		&raffle.Sold,
		&raffle.EndsAt,
		&raffle.Ended,
		&raffle.Winner,
		&raffle.CreatedAt,
		&raffle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	raffle.Value, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse value %q: %w", value, err)
	}
	raffle.TicketPrice, err = decimal.NewFromString(ticketPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ticket price %q: %w", ticketPrice, err)
	}
	raffle.Entries = []entities.RaffleEntry{}
	return &raffle, nil
}

// loadEntries preserves first-purchase order so weighted draws walk entries
// the same way every backend does.
func (r *RaffleRepository) loadEntries(ctx context.Context, raffle *entities.Raffle) error {
	rows, err := r.q.Query(ctx,
		"SELECT username, count FROM raffle_entries WHERE raffle_id = $1 ORDER BY position",
		raffle.ID)
	if err != nil {
		return fmt.Errorf("failed to load entries for raffle %d: %w", raffle.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry entities.RaffleEntry
		if err := rows.Scan(&entry.Username, &entry.Count); err != nil {
			return fmt.Errorf("failed to scan raffle entry: %w", err)
		}
		raffle.Entries = append(raffle.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate raffle entries: %w", err)
	}
	return nil
}

func (r *RaffleRepository) insertEntries(ctx context.Context, raffle *entities.Raffle) error {
	for i, entry := range raffle.Entries {
		_, err := r.q.Exec(ctx,
			"INSERT INTO raffle_entries (raffle_id, username, count, position) VALUES ($1, $2, $3, $4)",
			raffle.ID, entry.Username, entry.Count, i)
		if err != nil {
			return fmt.Errorf("failed to insert entry for raffle %d: %w", raffle.ID, err)
		}
	}
	return nil
}
