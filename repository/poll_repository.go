package repository

import (
	"context"
	"fmt"
	"time"

	"royale/domain/entities"

	"github.com/jackc/pgx/v5"
)

// PollRepository implements community-poll data access
type PollRepository struct {
	q Queryable
}

func newPollRepository(tx Queryable) *PollRepository {
	return &PollRepository{q: tx}
}

// NewPollRepository creates a poll repository against any queryable handle
func NewPollRepository(q Queryable) *PollRepository {
	return &PollRepository{q: q}
}

const pollColumns = `id, question, ends_at, closed, winning_option_id, created_at, updated_at`

// GetByID retrieves a poll with its options and votes, nil when absent
func (r *PollRepository) GetByID(ctx context.Context, id int64) (*entities.Poll, error) {
	query := fmt.Sprintf("SELECT %s FROM polls WHERE id = $1", pollColumns)

	poll, err := r.scanPoll(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poll %d: %w", id, err)
	}

	if err := r.loadChildren(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// GetAll returns every poll
func (r *PollRepository) GetAll(ctx context.Context) ([]*entities.Poll, error) {
	query := fmt.Sprintf("SELECT %s FROM polls ORDER BY id", pollColumns)
	return r.queryPolls(ctx, query)
}

// GetOverdue returns open polls whose deadline is at or before asOf
func (r *PollRepository) GetOverdue(ctx context.Context, asOf time.Time) ([]*entities.Poll, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM polls
		WHERE NOT closed AND ends_at <= $1
		ORDER BY ends_at
	`, pollColumns)
	return r.queryPolls(ctx, query, asOf)
}

// Create stores a new poll, letting the database assign the id when zero
func (r *PollRepository) Create(ctx context.Context, poll *entities.Poll) (*entities.Poll, error) {
	stored := poll.Clone()

	if stored.ID == 0 {
		query := `
			INSERT INTO polls (question, ends_at, closed, winning_option_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		err := r.q.QueryRow(ctx, query,
			stored.Question, stored.EndsAt, stored.Closed, stored.WinningOptionID,
			stored.CreatedAt, stored.UpdatedAt,
		).Scan(&stored.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create poll: %w", err)
		}
	} else {
		query := `
			INSERT INTO polls (id, question, ends_at, closed, winning_option_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := r.q.Exec(ctx, query,
			stored.ID, stored.Question, stored.EndsAt, stored.Closed, stored.WinningOptionID,
			stored.CreatedAt, stored.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create poll %d: %w", stored.ID, err)
		}
	}

	if err := r.insertChildren(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Update replaces the stored poll record, its options and votes
func (r *PollRepository) Update(ctx context.Context, poll *entities.Poll) error {
	query := `
		UPDATE polls
		SET question = $2,
		    ends_at = $3,
		    closed = $4,
		    winning_option_id = $5,
		    updated_at = $6
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		poll.ID, poll.Question, poll.EndsAt, poll.Closed, poll.WinningOptionID, poll.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update poll %d: %w", poll.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("poll %d not found", poll.ID)
	}

	if _, err := r.q.Exec(ctx, "DELETE FROM poll_options WHERE poll_id = $1", poll.ID); err != nil {
		return fmt.Errorf("failed to clear options for poll %d: %w", poll.ID, err)
	}
	if _, err := r.q.Exec(ctx, "DELETE FROM poll_votes WHERE poll_id = $1", poll.ID); err != nil {
		return fmt.Errorf("failed to clear votes for poll %d: %w", poll.ID, err)
	}
	return r.insertChildren(ctx, poll)
}

func (r *PollRepository) queryPolls(ctx context.Context, query string, args ...any) ([]*entities.Poll, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	var polls []*entities.Poll
	for rows.Next() {
		poll, err := r.scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate polls: %w", err)
	}

	for _, poll := range polls {
		if err := r.loadChildren(ctx, poll); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

func (r *PollRepository) scanPoll(row pgx.Row) (*entities.Poll, error) {
	var poll entities.Poll
	err := row.Scan(
		&poll.ID,
		&poll.Question,
		&poll.EndsAt,
		&poll.Closed,
		&poll.WinningOptionID,
		&poll.CreatedAt,
		&poll.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	poll.Options = []entities.PollOption{}
	poll.Votes = make(map[string]string)
	return &poll, nil
}

// loadChildren preserves option declaration order; tie-breaks depend on it
func (r *PollRepository) loadChildren(ctx context.Context, poll *entities.Poll) error {
	rows, err := r.q.Query(ctx,
		"SELECT option_id, label, image FROM poll_options WHERE poll_id = $1 ORDER BY position",
		poll.ID)
	if err != nil {
		return fmt.Errorf("failed to load options for poll %d: %w", poll.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var option entities.PollOption
		if err := rows.Scan(&option.ID, &option.Label, &option.Image); err != nil {
			return fmt.Errorf("failed to scan poll option: %w", err)
		}
		poll.Options = append(poll.Options, option)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate poll options: %w", err)
	}

	rows, err = r.q.Query(ctx,
		"SELECT username, option_id FROM poll_votes WHERE poll_id = $1",
		poll.ID)
	if err != nil {
		return fmt.Errorf("failed to load votes for poll %d: %w", poll.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var username, optionID string
		if err := rows.Scan(&username, &optionID); err != nil {
			return fmt.Errorf("failed to scan poll vote: %w", err)
		}
		poll.Votes[username] = optionID
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate poll votes: %w", err)
	}
	return nil
}

func (r *PollRepository) insertChildren(ctx context.Context, poll *entities.Poll) error {
	for i, option := range poll.Options {
		_, err := r.q.Exec(ctx,
			"INSERT INTO poll_options (poll_id, option_id, label, image, position) VALUES ($1, $2, $3, $4, $5)",
			poll.ID, option.ID, option.Label, option.Image, i)
		if err != nil {
			return fmt.Errorf("failed to insert option for poll %d: %w", poll.ID, err)
		}
	}
	for username, optionID := range poll.Votes {
		_, err := r.q.Exec(ctx,
			"INSERT INTO poll_votes (poll_id, username, option_id) VALUES ($1, $2, $3)",
			poll.ID, username, optionID)
		if err != nil {
			return fmt.Errorf("failed to insert vote for poll %d: %w", poll.ID, err)
		}
	}
	return nil
}
