package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"royale/domain/entities"
)

// ActivityRepository implements the capped audit log over a sequence table.
// Eviction happens on append: rows ranked beyond the cap by recency are
// deleted in the same transaction.
type ActivityRepository struct {
	q Queryable
}

func newActivityRepository(tx Queryable) *ActivityRepository {
	return &ActivityRepository{q: tx}
}

// NewActivityRepository creates an activity repository against any queryable handle
func NewActivityRepository(q Queryable) *ActivityRepository {
	return &ActivityRepository{q: q}
}

// Append stores an entry and evicts the oldest beyond the cap
func (r *ActivityRepository) Append(ctx context.Context, entry *entities.ActivityEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode activity payload: %w", err)
	}

	query := `
		INSERT INTO activity_log (id, created_at, type, actor, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.q.Exec(ctx, query, entry.ID, entry.Timestamp, string(entry.Type), entry.Actor, payload); err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}

	evict := `
		DELETE FROM activity_log
		WHERE seq NOT IN (
			SELECT seq FROM activity_log
			ORDER BY seq DESC
			LIMIT $1
		)
	`
	if _, err := r.q.Exec(ctx, evict, entities.ActivityLogCap); err != nil {
		return fmt.Errorf("failed to evict old activity entries: %w", err)
	}
	return nil
}

// List returns entries newest first, at most limit (0 means the full cap)
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]*entities.ActivityEntry, error) {
	if limit <= 0 {
		limit = entities.ActivityLogCap
	}

	query := `
		SELECT id, created_at, type, actor, payload
		FROM activity_log
		ORDER BY seq DESC
		LIMIT $1
	`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity entries: %w", err)
	}
	defer rows.Close()

	entries := []*entities.ActivityEntry{}
	for rows.Next() {
		var entry entities.ActivityEntry
		var entryType string
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entryType, &entry.Actor, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entry.Type = entities.ActivityType(entryType)
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode activity payload: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity entries: %w", err)
	}
	return entries, nil
}

// Clear empties the log
func (r *ActivityRepository) Clear(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, "DELETE FROM activity_log"); err != nil {
		return fmt.Errorf("failed to clear activity log: %w", err)
	}
	return nil
}
