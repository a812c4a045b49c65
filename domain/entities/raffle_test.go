package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenRaffle(totalTickets int) *Raffle {
	return &Raffle{
		ID:           1,
		Title:        "Test Prize",
		TicketPrice:  decimal.NewFromInt(5),
		TotalTickets: totalTickets,
		Entries:      []RaffleEntry{},
		EndsAt:       time.Now().Add(time.Hour),
	}
}

func TestRaffle_PerUserLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total int
		want  int
	}{
		{100, 50},
		{101, 50}, // rounds down
		{1, 0},
		{0, 0},
	}
	for _, tt := range tests {
		r := newOpenRaffle(tt.total)
		assert.Equal(t, tt.want, r.PerUserLimit())
	}
}

func TestRaffle_RecordEntry_AggregatesPerUser(t *testing.T) {
	t.Parallel()

	r := newOpenRaffle(100)
	r.RecordEntry("alice", 3)
	r.RecordEntry("bob", 2)
	r.RecordEntry("alice", 4)

	assert.Equal(t, 9, r.Sold)
	assert.Len(t, r.Entries, 2, "one aggregate entry per user")
	assert.Equal(t, 7, r.EntryCount("alice"))
	assert.Equal(t, 2, r.EntryCount("bob"))
	assert.Equal(t, r.Sold, r.TotalEntryCount())
}

func TestRaffle_IsOverdue(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := newOpenRaffle(10)

	r.EndsAt = now.Add(time.Minute)
	assert.False(t, r.IsOverdue(now))

	// The deadline itself counts as overdue
	r.EndsAt = now
	assert.True(t, r.IsOverdue(now))

	r.EndsAt = now.Add(-time.Minute)
	assert.True(t, r.IsOverdue(now))

	r.Ended = true
	assert.False(t, r.IsOverdue(now), "an ended raffle is never overdue")
}

func TestRaffle_DrawWinner_NoEntries(t *testing.T) {
	t.Parallel()

	r := newOpenRaffle(10)
	winner, err := r.DrawWinner()
	require.NoError(t, err)
	assert.Nil(t, winner)
}

func TestRaffle_DrawWinner_SingleEntrant(t *testing.T) {
	t.Parallel()

	r := newOpenRaffle(10)
	r.RecordEntry("alice", 4)

	for i := 0; i < 20; i++ {
		winner, err := r.DrawWinner()
		require.NoError(t, err)
		require.NotNil(t, winner)
		assert.Equal(t, "alice", *winner)
	}
}

func TestRaffle_DrawWinner_WeightedByTickets(t *testing.T) {
	t.Parallel()

	// alice holds 3/4 of the tickets, bob 1/4
	r := newOpenRaffle(100)
	r.RecordEntry("alice", 75)
	r.RecordEntry("bob", 25)

	const draws = 10000
	aliceWins := 0
	for i := 0; i < draws; i++ {
		winner, err := r.DrawWinner()
		require.NoError(t, err)
		require.NotNil(t, winner)
		if *winner == "alice" {
			aliceWins++
		}
	}

	// Expect ~75% with a wide tolerance to keep the test stable
	ratio := float64(aliceWins) / draws
	assert.Greater(t, ratio, 0.70)
	assert.Less(t, ratio, 0.80)
}

func TestRaffle_End_IsOneWay(t *testing.T) {
	t.Parallel()

	r := newOpenRaffle(10)
	r.RecordEntry("alice", 2)

	winner := "alice"
	r.End(&winner)

	assert.True(t, r.Ended)
	require.NotNil(t, r.Winner)
	assert.Equal(t, "alice", *r.Winner)
	assert.Equal(t, 2, r.Sold, "ledger state is frozen at end")
}

func TestRaffle_Clone_IsIndependent(t *testing.T) {
	t.Parallel()

	r := newOpenRaffle(10)
	r.RecordEntry("alice", 2)
	winner := "alice"
	r.Winner = &winner

	c := r.Clone()
	c.RecordEntry("bob", 3)
	*c.Winner = "bob"

	assert.Equal(t, 2, r.Sold)
	assert.Len(t, r.Entries, 1)
	assert.Equal(t, "alice", *r.Winner)
}
