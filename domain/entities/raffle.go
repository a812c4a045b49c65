package entities

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// RaffleEntry records the aggregate ticket count one user holds in a raffle.
// A raffle carries at most one entry per username.
type RaffleEntry struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// Raffle represents a time-bounded prize draw with a fixed ticket inventory
type Raffle struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Image        string          `json:"image"`
	Category     string          `json:"category"`
	Value        decimal.Decimal `json:"value"`       // Estimated prize value
	TicketPrice  decimal.Decimal `json:"ticketPrice"` // Price per ticket, > 0
	TotalTickets int             `json:"totalTickets"`
	Sold         int             `json:"sold"`
	Entries      []RaffleEntry   `json:"entries"`
	EndsAt       time.Time       `json:"endsAt"`
	Ended        bool            `json:"ended"`
	Winner       *string         `json:"winner"` // Nil until resolved, set at most once
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// PerUserLimit returns the maximum number of tickets a single user may hold,
// half of the total inventory rounded down.
func (r *Raffle) PerUserLimit() int {
	return r.TotalTickets / 2
}

// Available returns the number of unsold tickets
func (r *Raffle) Available() int {
	return r.TotalTickets - r.Sold
}

// IsOverdue returns true if the raffle is past its close time but not resolved
func (r *Raffle) IsOverdue(now time.Time) bool {
	return !r.Ended && !now.Before(r.EndsAt)
}

// EntryCount returns the ticket count held by username, zero if absent
func (r *Raffle) EntryCount(username string) int {
	for _, e := range r.Entries {
		if e.Username == username {
			return e.Count
		}
	}
	return 0
}

// RecordEntry adds count tickets for username, aggregating into an existing
// entry when one exists, and bumps the sold counter to match.
func (r *Raffle) RecordEntry(username string, count int) {
	for i := range r.Entries {
		if r.Entries[i].Username == username {
			r.Entries[i].Count += count
			r.Sold += count
			return
		}
	}
	r.Entries = append(r.Entries, RaffleEntry{Username: username, Count: count})
	r.Sold += count
}

// TotalEntryCount returns the sum of all entry counts. Equals Sold whenever
// the conservation invariant holds.
func (r *Raffle) TotalEntryCount() int {
	total := 0
	for _, e := range r.Entries {
		total += e.Count
	}
	return total
}

// SellThrough returns the sold/total ratio used to rank active raffles
func (r *Raffle) SellThrough() float64 {
	if r.TotalTickets == 0 {
		return 0
	}
	return float64(r.Sold) / float64(r.TotalTickets)
}

// DrawWinner picks a winner weighted by ticket count: one ticket, one unit of
// probability. Returns nil when the raffle has no entries.
func (r *Raffle) DrawWinner() (*string, error) {
	total := r.TotalEntryCount()
	if total == 0 {
		return nil, nil
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(total)))
	if err != nil {
		return nil, fmt.Errorf("failed to draw winning ticket: %w", err)
	}

	idx := int(n.Int64())
	for _, e := range r.Entries {
		if idx < e.Count {
			winner := e.Username
			return &winner, nil
		}
		idx -= e.Count
	}
	// Unreachable while conservation holds
	return nil, fmt.Errorf("winning ticket index out of range")
}

// End marks the raffle resolved. The transition is one-way: sold, entries and
// winner are frozen from here on.
func (r *Raffle) End(winner *string) {
	r.Ended = true
	r.Winner = winner
	r.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy, used by snapshot-based stores
func (r *Raffle) Clone() *Raffle {
	c := *r
	c.Entries = make([]RaffleEntry, len(r.Entries))
	copy(c.Entries, r.Entries)
	if r.Winner != nil {
		w := *r.Winner
		c.Winner = &w
	}
	return &c
}
