package services

import (
	"context"
	"testing"
	"time"

	"royale/domain/entities"
	"royale/domain/interfaces"
	"royale/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCatalogFixture() (*catalogService, *testhelpers.MockUserRepository, *testhelpers.MockRaffleRepository, *testhelpers.MockActivityRepository) {
	userRepo := new(testhelpers.MockUserRepository)
	raffleRepo := new(testhelpers.MockRaffleRepository)
	activityRepo := new(testhelpers.MockActivityRepository)
	svc := NewCatalogService(userRepo, raffleRepo, activityRepo, nil).(*catalogService)
	return svc, userRepo, raffleRepo, activityRepo
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

func TestCatalogService_GetRaffle_NotFound(t *testing.T) {
	t.Parallel()

	svc, _, raffleRepo, _ := newCatalogFixture()
	raffleRepo.On("GetByID", mock.Anything, int64(42)).Return(nil, nil)

	_, err := svc.GetRaffle(context.Background(), 42)
	assert.True(t, entities.IsKind(err, entities.ErrKindRaffleNotFound), "got %v", err)
}

func TestCatalogService_UpsertRaffle_AdminGate(t *testing.T) {
	t.Parallel()

	svc, userRepo, raffleRepo, _ := newCatalogFixture()
	userRepo.On("GetByUsername", mock.Anything, "mallory").Return(entities.NewUser("mallory", "pw"), nil)

	_, err := svc.UpsertRaffle(context.Background(), "mallory", interfaces.UpsertRaffleInput{})

	assert.True(t, entities.IsKind(err, entities.ErrKindNotAuthorized), "got %v", err)
	raffleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogService_UpsertRaffle_Create(t *testing.T) {
	t.Parallel()

	svc, userRepo, raffleRepo, activityRepo := newCatalogFixture()
	fixedNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	userRepo.On("GetByUsername", mock.Anything, "admin").Return(adminUser("admin"), nil)

	stored := &entities.Raffle{ID: 7, Title: "Espresso Machine"}
	var created *entities.Raffle
	raffleRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Raffle")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*entities.Raffle)
		}).
		Return(stored, nil)

	var logged *entities.ActivityEntry
	activityRepo.On("Append", mock.Anything, mock.AnythingOfType("*entities.ActivityEntry")).
		Run(func(args mock.Arguments) {
			logged = args.Get(1).(*entities.ActivityEntry)
		}).
		Return(nil)

	price := decimal.NewFromInt(5)
	value := decimal.NewFromInt(900)
	endsAt := fixedNow.Add(48 * time.Hour)
	got, err := svc.UpsertRaffle(context.Background(), "admin", interfaces.UpsertRaffleInput{
		Title:        strPtr("Espresso Machine"),
		Category:     strPtr("home"),
		Value:        &value,
		TicketPrice:  &price,
		TotalTickets: intPtr(200),
		EndsAt:       timePtr(endsAt),
	})

	require.NoError(t, err)
	assert.Same(t, stored, got)

	// The record handed to the store carries no ledger state yet
	require.NotNil(t, created)
	assert.Equal(t, int64(0), created.ID)
	assert.Equal(t, "Espresso Machine", created.Title)
	assert.Equal(t, 200, created.TotalTickets)
	assert.Equal(t, 0, created.Sold)
	assert.Empty(t, created.Entries)
	assert.Equal(t, fixedNow, created.CreatedAt)

	require.NotNil(t, logged)
	assert.Equal(t, entities.ActivityCreateRaffle, logged.Type)
	assert.Equal(t, "admin", logged.Actor)
	assert.Equal(t, "Espresso Machine", logged.Payload["title"])
}

func TestCatalogService_UpsertRaffle_EditNeverTouchesLedgerState(t *testing.T) {
	t.Parallel()

	svc, userRepo, raffleRepo, activityRepo := newCatalogFixture()
	userRepo.On("GetByUsername", mock.Anything, "admin").Return(adminUser("admin"), nil)

	winner := "bob"
	stored := openRaffle(3, 100)
	stored.RecordEntry("bob", 12)
	stored.Ended = true
	stored.Winner = &winner

	raffleRepo.On("GetByID", mock.Anything, int64(3)).Return(stored, nil)
	raffleRepo.On("Update", mock.Anything, stored).Return(nil)
	activityRepo.On("Append", mock.Anything, mock.AnythingOfType("*entities.ActivityEntry")).Return(nil)

	got, err := svc.UpsertRaffle(context.Background(), "admin", interfaces.UpsertRaffleInput{
		ID:          3,
		Title:       strPtr("Gaming PC (refurb)"),
		Description: strPtr("Minor scratches"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Gaming PC (refurb)", got.Title)
	assert.Equal(t, "Minor scratches", got.Description)

	// A stale edit cannot resurrect the ledger side of the record
	assert.Equal(t, 12, got.Sold)
	assert.Equal(t, 12, got.EntryCount("bob"))
	assert.True(t, got.Ended)
	require.NotNil(t, got.Winner)
	assert.Equal(t, "bob", *got.Winner)

	// Omitted fields keep their stored values
	assert.Equal(t, "electronics", got.Category)
	assert.Equal(t, 100, got.TotalTickets)
}

func TestCatalogService_UpsertRaffle_CannotShrinkBelowSold(t *testing.T) {
	t.Parallel()

	svc, userRepo, raffleRepo, activityRepo := newCatalogFixture()
	userRepo.On("GetByUsername", mock.Anything, "admin").Return(adminUser("admin"), nil)

	stored := openRaffle(3, 100)
	stored.RecordEntry("alice", 40)
	raffleRepo.On("GetByID", mock.Anything, int64(3)).Return(stored, nil)
	raffleRepo.On("Update", mock.Anything, stored).Return(nil).Maybe()
	activityRepo.On("Append", mock.Anything, mock.AnythingOfType("*entities.ActivityEntry")).Return(nil).Maybe()

	_, err := svc.UpsertRaffle(context.Background(), "admin", interfaces.UpsertRaffleInput{
		ID:           3,
		TotalTickets: intPtr(10),
	})

	assert.True(t, entities.IsKind(err, entities.ErrKindInvalidCount), "got %v", err)
	assert.Contains(t, err.Error(), "40")
	raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

	// The stored record still satisfies sold <= totalTickets
	assert.Equal(t, 100, stored.TotalTickets)
	assert.GreaterOrEqual(t, stored.Available(), 0)

	// Shrinking down to exactly the sold count is allowed
	got, err := svc.UpsertRaffle(context.Background(), "admin", interfaces.UpsertRaffleInput{
		ID:           3,
		TotalTickets: intPtr(40),
	})
	require.NoError(t, err)
	assert.Equal(t, 40, got.TotalTickets)
	assert.Equal(t, 0, got.Available())
}

func TestCatalogService_UpsertRaffle_UnknownID(t *testing.T) {
	t.Parallel()

	svc, userRepo, raffleRepo, _ := newCatalogFixture()
	userRepo.On("GetByUsername", mock.Anything, "admin").Return(adminUser("admin"), nil)
	raffleRepo.On("GetByID", mock.Anything, int64(99)).Return(nil, nil)

	_, err := svc.UpsertRaffle(context.Background(), "admin", interfaces.UpsertRaffleInput{ID: 99})
	assert.True(t, entities.IsKind(err, entities.ErrKindRaffleNotFound), "got %v", err)
}

func TestCatalogService_EndRaffle(t *testing.T) {
	t.Parallel()

	raffle := openRaffle(1, 100)
	raffle.TicketPrice = decimal.NewFromInt(1)
	alice := entities.NewUser("alice", "pw")
	ledger, userRepo, raffleRepo, activityRepo := newScenario(raffle, alice)

	admin := adminUser("admin")
	userRepo.users["admin"] = admin

	svc := NewCatalogService(userRepo, raffleRepo, activityRepo, ledger).(*catalogService)
	ctx := context.Background()

	_, err := ledger.Purchase(ctx, "alice", 1, 5)
	require.NoError(t, err)

	got, err := svc.EndRaffle(ctx, "admin", 1)
	require.NoError(t, err)
	assert.True(t, got.Ended)
	require.NotNil(t, got.Winner)
	assert.Equal(t, "alice", *got.Winner)

	// The ledger writes raffle_end_manual, then the catalog writes end_raffle
	entries, err := activityRepo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entities.ActivityEndRaffle, entries[0].Type)
	assert.Equal(t, "admin", entries[0].Actor)
	assert.Equal(t, entities.ActivityRaffleEndManual, entries[1].Type)
}

func TestCatalogService_TopRaffles(t *testing.T) {
	t.Parallel()

	byDemand := func(id int64, total, sold int, ended bool) *entities.Raffle {
		r := openRaffle(id, total)
		if sold > 0 {
			r.RecordEntry("alice", sold)
		}
		r.Ended = ended
		return r
	}

	svc, _, raffleRepo, _ := newCatalogFixture()
	raffleRepo.On("GetAll", mock.Anything).Return([]*entities.Raffle{
		byDemand(1, 100, 10, false), // 10%
		byDemand(2, 100, 90, true),  // ended, excluded despite demand
		byDemand(3, 100, 55, false), // 55%
		byDemand(4, 10, 4, false),   // 40%
		byDemand(5, 100, 20, false), // 20%
	}, nil)

	top, err := svc.TopRaffles(context.Background())

	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, int64(3), top[0].ID)
	assert.Equal(t, int64(4), top[1].ID)
	assert.Equal(t, int64(5), top[2].ID)
}

func TestCatalogService_Categorized(t *testing.T) {
	t.Parallel()

	svc, _, raffleRepo, _ := newCatalogFixture()
	pc := openRaffle(1, 100)
	tv := openRaffle(2, 100)
	sofa := openRaffle(3, 100)
	sofa.Category = "home"
	raffleRepo.On("GetAll", mock.Anything).Return([]*entities.Raffle{pc, tv, sofa}, nil)

	categories, err := svc.Categorized(context.Background())

	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, []*entities.Raffle{pc, tv}, categories["electronics"])
	assert.Equal(t, []*entities.Raffle{sofa}, categories["home"])
}
