package localstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"royale/domain/entities"
	"royale/domain/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRaffle(title string) *entities.Raffle {
	return &entities.Raffle{
		Title:        title,
		Category:     "electronics",
		Value:        decimal.NewFromInt(500),
		TicketPrice:  decimal.NewFromInt(5),
		TotalTickets: 100,
		Entries:      []entities.RaffleEntry{},
		EndsAt:       time.Now().Add(24 * time.Hour).UTC(),
	}
}

func TestUnitOfWork_CommitPublishesStagedState(t *testing.T) {
	store := NewMemoryStore()
	factory := NewUnitOfWorkFactory(store, events.NewBus())
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().Create(ctx, entities.NewUser("alice", "pw")))
	require.NoError(t, uow.Commit())

	check := factory.Create()
	require.NoError(t, check.Begin(ctx))
	defer check.Rollback()

	user, err := check.UserRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
}

func TestUnitOfWork_RollbackDiscardsStage(t *testing.T) {
	store := NewMemoryStore()
	factory := NewUnitOfWorkFactory(store, events.NewBus())
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().Create(ctx, entities.NewUser("alice", "pw")))
	require.NoError(t, uow.Rollback())

	check := factory.Create()
	require.NoError(t, check.Begin(ctx))
	defer check.Rollback()

	user, err := check.UserRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUnitOfWork_DoubleBeginFails(t *testing.T) {
	store := NewMemoryStore()
	factory := NewUnitOfWorkFactory(store, events.NewBus())

	uow := factory.Create()
	require.NoError(t, uow.Begin(context.Background()))
	defer uow.Rollback()

	assert.Error(t, uow.Begin(context.Background()))
}

func TestUnitOfWork_RollbackAfterCommitIsNoop(t *testing.T) {
	store := NewMemoryStore()
	factory := NewUnitOfWorkFactory(store, events.NewBus())
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().Create(ctx, entities.NewUser("alice", "pw")))
	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback())

	check := factory.Create()
	require.NoError(t, check.Begin(ctx))
	defer check.Rollback()

	user, err := check.UserRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestUnitOfWork_ReadsHandOutClones(t *testing.T) {
	store := NewMemoryStore()
	factory := NewUnitOfWorkFactory(store, events.NewBus())
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().Create(ctx, entities.NewUser("alice", "pw")))
	require.NoError(t, uow.Commit())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)

	// Mutating the read result must not leak into the stage without Update
	user.Balance = decimal.NewFromInt(999999)

	again, err := uow.UserRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(entities.StartingBalance))
}

func TestUnitOfWork_EventsFlushOnCommitOnly(t *testing.T) {
	bus := events.NewBus()
	delivered := make(chan events.Event, 4)
	bus.Subscribe(events.EventTypeUserRegistered, func(_ context.Context, e events.Event) {
		delivered <- e
	})

	store := NewMemoryStore()
	factory := NewUnitOfWorkFactory(store, bus)
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	uow.EventBus().Publish(events.UserRegisteredEvent{Username: "alice"})
	require.NoError(t, uow.Rollback())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	uow.EventBus().Publish(events.UserRegisteredEvent{Username: "bob"})
	require.NoError(t, uow.Commit())

	// Handlers run asynchronously; only the committed event may arrive
	select {
	case e := <-delivered:
		assert.Equal(t, "bob", e.(events.UserRegisteredEvent).Username)
	case <-time.After(2 * time.Second):
		t.Fatal("committed event was never delivered")
	}

	select {
	case e := <-delivered:
		t.Fatalf("unexpected extra event: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRaffleRepository_AssignsSequentialIDs(t *testing.T) {
	store := NewMemoryStore()
	factory := NewUnitOfWorkFactory(store, events.NewBus())
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	first, err := uow.RaffleRepository().Create(ctx, testRaffle("PC"))
	require.NoError(t, err)
	second, err := uow.RaffleRepository().Create(ctx, testRaffle("TV"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	// Explicit ids must not collide
	taken := testRaffle("Duplicate")
	taken.ID = 2
	_, err = uow.RaffleRepository().Create(ctx, taken)
	assert.Error(t, err)
}

func TestActivityRepository_CapEvictsOldest(t *testing.T) {
	store := NewMemoryStore()
	factory := NewUnitOfWorkFactory(store, events.NewBus())
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	repo := uow.ActivityRepository()
	total := entities.ActivityLogCap + 25
	for i := 0; i < total; i++ {
		entry := entities.NewActivityEntry(entities.ActivityPurchase, fmt.Sprintf("user-%d", i), nil)
		require.NoError(t, repo.Append(ctx, entry))
	}

	entries, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, entities.ActivityLogCap)

	// Newest first, the oldest 25 evicted
	assert.Equal(t, fmt.Sprintf("user-%d", total-1), entries[0].Actor)
	assert.Equal(t, "user-25", entries[len(entries)-1].Actor)

	limited, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, limited, 10)
}

func TestStore_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "royale.json")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)

	factory := NewUnitOfWorkFactory(store, events.NewBus())
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().Create(ctx, entities.NewUser("alice", "pw")))
	created, err := uow.RaffleRepository().Create(ctx, testRaffle("PC"))
	require.NoError(t, err)
	require.NoError(t, uow.Commit())

	reopened, err := Open(path)
	require.NoError(t, err)

	factory = NewUnitOfWorkFactory(reopened, events.NewBus())
	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.Balance.Equal(entities.StartingBalance))

	raffle, err := uow.RaffleRepository().GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, raffle)
	assert.Equal(t, "PC", raffle.Title)
}

func TestUnitOfWork_FailedSaveLeavesStateUncommitted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocked", "royale.json")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)

	bus := events.NewBus()
	delivered := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeUserRegistered, func(_ context.Context, e events.Event) {
		delivered <- e
	})
	factory := NewUnitOfWorkFactory(store, bus)

	// A regular file where the store directory should go makes the save fail.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocked"), []byte("in the way"), 0o644))

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().Create(ctx, entities.NewUser("alice", "pw")))
	uow.EventBus().Publish(events.UserRegisteredEvent{Username: "alice"})
	require.Error(t, uow.Commit())

	// The reported failure really means nothing took effect
	check := factory.Create()
	require.NoError(t, check.Begin(ctx))
	defer check.Rollback()

	user, err := check.UserRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, user)

	select {
	case e := <-delivered:
		t.Fatalf("event delivered for a failed commit: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	factory := NewUnitOfWorkFactory(store, events.NewBus())
	uow := factory.Create()
	require.NoError(t, uow.Begin(context.Background()))
	defer uow.Rollback()

	raffles, err := uow.RaffleRepository().GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, raffles)
}
