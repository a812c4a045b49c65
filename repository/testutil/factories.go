package testutil

import (
	"time"

	"royale/domain/entities"

	"github.com/shopspring/decimal"
)

// CreateTestUser creates a user with default values
func CreateTestUser(username string) *entities.User {
	return entities.NewUser(username, username)
}

// CreateTestUserWithBalance creates a user with a specific balance
func CreateTestUserWithBalance(username string, balance int64) *entities.User {
	user := CreateTestUser(username)
	user.Balance = decimal.NewFromInt(balance)
	return user
}

// CreateTestRaffle creates an open raffle with sensible defaults
func CreateTestRaffle(title string, totalTickets int) *entities.Raffle {
	now := time.Now().UTC()
	return &entities.Raffle{
		Title:        title,
		Description:  "test raffle",
		Category:     "electronics",
		Value:        decimal.NewFromInt(500),
		TicketPrice:  decimal.NewFromInt(5),
		TotalTickets: totalTickets,
		Entries:      []entities.RaffleEntry{},
		EndsAt:       now.Add(24 * time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateTestPoll creates an open two-option poll
func CreateTestPoll(question string) *entities.Poll {
	now := time.Now().UTC()
	return &entities.Poll{
		Question: question,
		Options: []entities.PollOption{
			{ID: "a", Label: "Option A"},
			{ID: "b", Label: "Option B"},
		},
		Votes:     map[string]string{},
		EndsAt:    now.Add(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
