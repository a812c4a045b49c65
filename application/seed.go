package application

import (
	"context"
	"fmt"
	"time"

	"royale/domain/entities"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Seed installs the initial catalog, demo accounts and the community poll
// into an empty store. A store that already has raffles is left untouched.
func Seed(ctx context.Context, uowFactory UnitOfWorkFactory) error {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.RaffleRepository().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect catalog: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, r := range seedRaffles() {
		if _, err := uow.RaffleRepository().Create(ctx, r); err != nil {
			return fmt.Errorf("failed to seed raffle %q: %w", r.Title, err)
		}
	}

	for _, u := range seedUsers() {
		if err := uow.UserRepository().Create(ctx, u); err != nil {
			return fmt.Errorf("failed to seed user %q: %w", u.Username, err)
		}
	}

	if _, err := uow.PollRepository().Create(ctx, seedPoll()); err != nil {
		return fmt.Errorf("failed to seed poll: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed data: %w", err)
	}

	log.Info("Seeded initial catalog, demo accounts and community poll")
	return nil
}

func seedRaffles() []*entities.Raffle {
	now := time.Now().UTC()
	day := 24 * time.Hour

	return []*entities.Raffle{
		{
			Title:        "iPhone 15 Pro Max (256GB)",
			Image:        "https://images.unsplash.com/photo-1692631165683-2966ac5e3e10?q=80&w=1200&auto=format&fit=crop",
			Description:  "Apple's 2024 flagship with the A17 Pro chip, titanium design and a 6.7\" Super Retina XDR display.",
			Category:     "Tech",
			Value:        decimal.NewFromInt(1299),
			TicketPrice:  decimal.RequireFromString("5.5"),
			TotalTickets: 180,
			Sold:         68,
			EndsAt:       now.Add(60 * time.Hour),
			Entries: []entities.RaffleEntry{
				{Username: "sofia", Count: 18},
				{Username: "marco", Count: 24},
				{Username: "leah", Count: 26},
			},
		},
		{
			Title:        "Rolex Submariner Date 41mm",
			Image:        "https://images.unsplash.com/photo-1524592094714-0f0654e20314?q=80&w=1200&auto=format&fit=crop",
			Description:  "Iconic Oystersteel Submariner with Cerachrom bezel, black dial and COSC-certified movement.",
			Category:     "Luxury",
			Value:        decimal.RequireFromString("10450"),
			TicketPrice:  decimal.RequireFromString("12.5"),
			TotalTickets: 350,
			Sold:         142,
			EndsAt:       now.Add(time.Duration(4.5 * float64(day))),
			Entries: []entities.RaffleEntry{
				{Username: "dylan", Count: 32},
				{Username: "amira", Count: 44},
				{Username: "liam", Count: 66},
			},
		},
		{
			Title:        "Signed Premier League Match Shirt",
			Image:        "https://images.unsplash.com/photo-1534447677768-be436bb09401?q=80&w=1200&auto=format&fit=crop",
			Description:  "Official 2023/24 home shirt signed by the full first team and supplied with club-issued authentication.",
			Category:     "Collectibles",
			Value:        decimal.NewFromInt(749),
			TicketPrice:  decimal.RequireFromString("3.75"),
			TotalTickets: 260,
			Sold:         84,
			EndsAt:       now.Add(time.Duration(3.8 * float64(day))),
			Entries: []entities.RaffleEntry{
				{Username: "nina", Count: 20},
				{Username: "owen", Count: 28},
				{Username: "james", Count: 36},
			},
		},
	}
}

func seedUsers() []*entities.User {
	demo := entities.NewUser("demo", "demo")
	demo.Balance = decimal.NewFromInt(500)

	admin := entities.NewUser("admin", "admin")
	admin.Balance = decimal.NewFromInt(10000)
	admin.Roles = []string{entities.RoleAdmin}

	alice := entities.NewUser("alice", "alice")
	alice.Balance = decimal.NewFromInt(800)

	bob := entities.NewUser("bob", "bob")
	bob.Balance = decimal.NewFromInt(600)

	charlie := entities.NewUser("charlie", "charlie")
	charlie.Balance = decimal.NewFromInt(900)

	return []*entities.User{demo, admin, alice, bob, charlie}
}

func seedPoll() *entities.Poll {
	now := time.Now().UTC()
	return &entities.Poll{
		Question: "Which prize should we run next?",
		Options: []entities.PollOption{
			{ID: "ps5", Label: "PlayStation 5 Pro bundle"},
			{ID: "macbook", Label: "MacBook Air M3"},
			{ID: "weekend", Label: "Luxury weekend getaway"},
		},
		Votes:     map[string]string{},
		EndsAt:    now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
