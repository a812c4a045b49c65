package repository

import (
	"context"
	"testing"
	"time"

	"royale/domain/events"
	"royale/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitPersistsAndFlushesEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeUserRegistered, func(ctx context.Context, event events.Event) {
		received <- event
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	user := testutil.CreateTestUser("alice")
	require.NoError(t, uow.UserRepository().Create(ctx, user))
	uow.EventBus().Publish(events.UserRegisteredEvent{
		Username:        "alice",
		StartingBalance: user.Balance,
	})

	// Nothing leaves the transaction before commit.
	select {
	case <-received:
		t.Fatal("event delivered before commit")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, uow.Commit())

	select {
	case event := <-received:
		registered, ok := event.(events.UserRegisteredEvent)
		require.True(t, ok)
		assert.Equal(t, "alice", registered.Username)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered after commit")
	}

	stored, err := NewUserRepository(testDB.DB).GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestUnitOfWork_RollbackDiscardsEverything(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeUserRegistered, func(ctx context.Context, event events.Event) {
		received <- event
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	require.NoError(t, uow.UserRepository().Create(ctx, testutil.CreateTestUser("alice")))
	uow.EventBus().Publish(events.UserRegisteredEvent{Username: "alice"})

	require.NoError(t, uow.Rollback())

	stored, err := NewUserRepository(testDB.DB).GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, stored, "rolled-back writes never land")

	select {
	case <-received:
		t.Fatal("event delivered after rollback")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestUnitOfWork_IsolationUntilCommit(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().Create(ctx, testutil.CreateTestUser("alice")))

	// A reader outside the transaction sees nothing yet.
	outside, err := NewUserRepository(testDB.DB).GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, outside)

	// The transaction sees its own write.
	inside, err := uow.UserRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, inside)

	require.NoError(t, uow.Commit())

	outside, err = NewUserRepository(testDB.DB).GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, outside)
}

func TestUnitOfWork_Lifecycle(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ctx := context.Background()

	t.Run("double begin", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		err := uow.Begin(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already started")
	})

	t.Run("commit without begin", func(t *testing.T) {
		uow := factory.Create()
		assert.Error(t, uow.Commit())
	})

	t.Run("rollback without begin is a no-op", func(t *testing.T) {
		uow := factory.Create()
		assert.NoError(t, uow.Rollback())
	})

	t.Run("rollback after commit is a no-op", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.Commit())
		assert.NoError(t, uow.Rollback())
	})

	t.Run("repositories panic before begin", func(t *testing.T) {
		uow := factory.Create()
		assert.Panics(t, func() { uow.UserRepository() })
	})
}

func TestUnitOfWork_ConcurrentUnits(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ctx := context.Background()

	first := factory.Create()
	require.NoError(t, first.Begin(ctx))
	second := factory.Create()
	require.NoError(t, second.Begin(ctx))

	alice := testutil.CreateTestUser("alice")
	alice.Balance = decimal.NewFromInt(80)
	require.NoError(t, first.UserRepository().Create(ctx, alice))
	require.NoError(t, second.UserRepository().Create(ctx, testutil.CreateTestUser("bob")))

	require.NoError(t, first.Commit())
	require.NoError(t, second.Commit())

	users, err := NewUserRepository(testDB.DB).GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].Balance.Equal(decimal.NewFromInt(80)))
}
