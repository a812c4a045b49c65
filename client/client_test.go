package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"royale/api"
	"royale/application"
	"royale/domain/entities"
	"royale/domain/events"
	"royale/localstore"
	"royale/payments"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*httptest.Server, application.UnitOfWorkFactory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := localstore.NewMemoryStore()
	factory := localstore.NewUnitOfWorkFactory(store, events.NewBus())
	worker := application.NewResolutionWorker(factory)
	server := api.NewServer(factory, api.NewSessionManager(), payments.NewGateway(), worker)

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts, factory
}

func installRaffle(t *testing.T, factory application.UnitOfWorkFactory) *entities.Raffle {
	t.Helper()
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	created, err := uow.RaffleRepository().Create(ctx, &entities.Raffle{
		Title:        "Gaming PC",
		Category:     "electronics",
		Value:        decimal.NewFromInt(1500),
		TicketPrice:  decimal.NewFromInt(5),
		TotalTickets: 100,
		Entries:      []entities.RaffleEntry{},
		EndsAt:       time.Now().Add(24 * time.Hour).UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	return created
}

func TestRemote_FullFlow(t *testing.T) {
	ts, factory := newBackend(t)
	created := installRaffle(t, factory)
	remote := NewRemote(ts.URL)
	ctx := context.Background()

	user, err := remote.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.Balance.Equal(entities.StartingBalance))

	raffles, err := remote.ListRaffles(ctx)
	require.NoError(t, err)
	require.Len(t, raffles, 1)
	assert.Equal(t, created.ID, raffles[0].ID)

	result, err := remote.Purchase(ctx, created.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Count)
	assert.True(t, result.TotalPrice.Equal(decimal.NewFromInt(20)))
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, 4, result.Raffle.Sold)

	raffle, err := remote.ClaimFreeTicket(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, raffle.Sold)

	profile, err := remote.Profile(ctx)
	require.NoError(t, err)
	assert.True(t, profile.Balance.Equal(decimal.NewFromInt(80)))
	assert.Empty(t, profile.Password)
}

func TestRemote_DomainErrorsSurviveTheTransport(t *testing.T) {
	ts, factory := newBackend(t)
	created := installRaffle(t, factory)
	remote := NewRemote(ts.URL)
	ctx := context.Background()

	_, err := remote.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	_, err = remote.Purchase(ctx, created.ID, 0)
	assert.True(t, entities.IsKind(err, entities.ErrKindInvalidCount), "got %v", err)

	_, err = remote.Purchase(ctx, created.ID, 30)
	assert.True(t, entities.IsKind(err, entities.ErrKindInsufficientBalance), "got %v", err)

	_, err = remote.GetRaffle(ctx, 999)
	assert.True(t, entities.IsKind(err, entities.ErrKindRaffleNotFound), "got %v", err)

	_, err = remote.Login(ctx, "alice", "wrong")
	assert.True(t, entities.IsKind(err, entities.ErrKindInvalidCredentials), "got %v", err)
}

func TestLocal_RequiresLogin(t *testing.T) {
	factory := localstore.NewUnitOfWorkFactory(localstore.NewMemoryStore(), events.NewBus())
	local := NewLocal(factory)

	_, err := local.Purchase(context.Background(), 1, 1)
	assert.True(t, entities.IsKind(err, entities.ErrKindNotLoggedIn), "got %v", err)

	_, err = local.Profile(context.Background())
	assert.True(t, entities.IsKind(err, entities.ErrKindNotLoggedIn), "got %v", err)
}

func TestLocal_PurchaseFlow(t *testing.T) {
	factory := localstore.NewUnitOfWorkFactory(localstore.NewMemoryStore(), events.NewBus())
	created := installRaffle(t, factory)
	local := NewLocal(factory)
	ctx := context.Background()

	_, err := local.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	result, err := local.Purchase(ctx, created.ID, 2)
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(90)))

	profile, err := local.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.EntryCount(created.ID))
}

func TestFallback_UsesLocalWhenRemoteIsDown(t *testing.T) {
	ts, remoteFactory := newBackend(t)
	installRaffle(t, remoteFactory)

	localFactory := localstore.NewUnitOfWorkFactory(localstore.NewMemoryStore(), events.NewBus())
	localRaffle := installRaffle(t, localFactory)

	fallback := NewFallback(NewRemote(ts.URL), NewLocal(localFactory))
	ctx := context.Background()

	// Remote up: the answer comes from the server
	_, err := fallback.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	raffles, err := fallback.ListRaffles(ctx)
	require.NoError(t, err)
	require.Len(t, raffles, 1)

	// Remote down: the same calls keep working against the local store
	ts.Close()

	_, err = fallback.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	raffles, err = fallback.ListRaffles(ctx)
	require.NoError(t, err)
	require.Len(t, raffles, 1)
	assert.Equal(t, localRaffle.ID, raffles[0].ID)

	result, err := fallback.Purchase(ctx, localRaffle.ID, 1)
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(95)))
}

func TestFallback_BusinessFailuresDoNotFallBack(t *testing.T) {
	ts, remoteFactory := newBackend(t)
	remoteRaffle := installRaffle(t, remoteFactory)

	localFactory := localstore.NewUnitOfWorkFactory(localstore.NewMemoryStore(), events.NewBus())
	installRaffle(t, localFactory)

	local := NewLocal(localFactory)
	fallback := NewFallback(NewRemote(ts.URL), local)
	ctx := context.Background()

	_, err := fallback.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	// The remote refuses; the refusal must reach the caller untouched
	// instead of being retried locally
	_, err = fallback.Purchase(ctx, remoteRaffle.ID, 0)
	assert.True(t, entities.IsKind(err, entities.ErrKindInvalidCount), "got %v", err)

	_, err = fallback.GetRaffle(ctx, 999)
	assert.True(t, entities.IsKind(err, entities.ErrKindRaffleNotFound), "got %v", err)
}
