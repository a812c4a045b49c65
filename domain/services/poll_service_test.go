package services

import (
	"context"
	"testing"
	"time"

	"royale/domain/entities"
	"royale/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPollFixture() (*pollService, *testhelpers.MockUserRepository, *testhelpers.MockPollRepository, *testhelpers.MockActivityRepository, *testhelpers.MockEventPublisher) {
	userRepo := new(testhelpers.MockUserRepository)
	pollRepo := new(testhelpers.MockPollRepository)
	activityRepo := new(testhelpers.MockActivityRepository)
	publisher := new(testhelpers.MockEventPublisher)
	svc := NewPollService(userRepo, pollRepo, activityRepo, publisher).(*pollService)
	return svc, userRepo, pollRepo, activityRepo, publisher
}

func openPoll(id int64) *entities.Poll {
	return &entities.Poll{
		ID:       id,
		Question: "Which prize next month?",
		Options: []entities.PollOption{
			{ID: "console", Label: "Games console"},
			{ID: "bike", Label: "E-bike"},
		},
		Votes:  map[string]string{},
		EndsAt: time.Now().Add(24 * time.Hour),
	}
}

func TestPollService_CreatePoll(t *testing.T) {
	t.Parallel()

	t.Run("requires the admin role", func(t *testing.T) {
		t.Parallel()

		svc, userRepo, pollRepo, _, _ := newPollFixture()
		userRepo.On("GetByUsername", mock.Anything, "mallory").Return(entities.NewUser("mallory", "pw"), nil)

		_, err := svc.CreatePoll(context.Background(), "mallory", openPoll(0))

		assert.True(t, entities.IsKind(err, entities.ErrKindNotAuthorized), "got %v", err)
		pollRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("resets any resolution state on the way in", func(t *testing.T) {
		t.Parallel()

		svc, userRepo, pollRepo, _, _ := newPollFixture()
		userRepo.On("GetByUsername", mock.Anything, "admin").Return(adminUser("admin"), nil)

		winner := "bike"
		poll := openPoll(0)
		poll.Closed = true
		poll.WinningOptionID = &winner

		var created *entities.Poll
		pollRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Poll")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*entities.Poll)
			}).
			Return(poll, nil)

		_, err := svc.CreatePoll(context.Background(), "admin", poll)

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.False(t, created.Closed)
		assert.Nil(t, created.WinningOptionID)
		assert.NotNil(t, created.Votes)
	})
}

func TestPollService_Vote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		optionID     string
		setupUser    func() *entities.User
		setupPoll    func() *entities.Poll
		expectedKind entities.ErrorKind
	}{
		{
			name:         "unknown user",
			optionID:     "bike",
			setupUser:    func() *entities.User { return nil },
			setupPoll:    func() *entities.Poll { return openPoll(1) },
			expectedKind: entities.ErrKindNotLoggedIn,
		},
		{
			name:         "unknown poll",
			optionID:     "bike",
			setupUser:    func() *entities.User { return entities.NewUser("alice", "pw") },
			setupPoll:    func() *entities.Poll { return nil },
			expectedKind: entities.ErrKindPollNotFound,
		},
		{
			name:      "closed poll",
			optionID:  "bike",
			setupUser: func() *entities.User { return entities.NewUser("alice", "pw") },
			setupPoll: func() *entities.Poll {
				p := openPoll(1)
				p.Closed = true
				return p
			},
			expectedKind: entities.ErrKindPollClosed,
		},
		{
			name:      "deadline passed before the worker closed it",
			optionID:  "bike",
			setupUser: func() *entities.User { return entities.NewUser("alice", "pw") },
			setupPoll: func() *entities.Poll {
				p := openPoll(1)
				p.EndsAt = time.Now().Add(-time.Minute)
				return p
			},
			expectedKind: entities.ErrKindPollClosed,
		},
		{
			name:         "unknown option",
			optionID:     "yacht",
			setupUser:    func() *entities.User { return entities.NewUser("alice", "pw") },
			setupPoll:    func() *entities.Poll { return openPoll(1) },
			expectedKind: entities.ErrKindInvalidOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, userRepo, pollRepo, _, _ := newPollFixture()
			userRepo.On("GetByUsername", mock.Anything, "alice").Return(tt.setupUser(), nil)
			pollRepo.On("GetByID", mock.Anything, int64(1)).Return(tt.setupPoll(), nil).Maybe()

			_, err := svc.Vote(context.Background(), "alice", 1, tt.optionID)

			assert.True(t, entities.IsKind(err, tt.expectedKind), "got %v", err)
			pollRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}

	t.Run("the deadline itself refuses votes", func(t *testing.T) {
		t.Parallel()

		svc, userRepo, pollRepo, activityRepo, publisher := newPollFixture()
		deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		poll := openPoll(1)
		poll.EndsAt = deadline

		userRepo.On("GetByUsername", mock.Anything, "alice").Return(entities.NewUser("alice", "pw"), nil)
		pollRepo.On("GetByID", mock.Anything, int64(1)).Return(poll, nil)
		pollRepo.On("Update", mock.Anything, poll).Return(nil)
		activityRepo.On("Append", mock.Anything, mock.AnythingOfType("*entities.ActivityEntry")).Return(nil)
		publisher.On("Publish", mock.AnythingOfType("events.VoteCastEvent")).Maybe()

		svc.now = func() time.Time { return deadline.Add(-time.Second) }
		_, err := svc.Vote(context.Background(), "alice", 1, "bike")
		require.NoError(t, err)

		svc.now = func() time.Time { return deadline }
		_, err = svc.Vote(context.Background(), "alice", 1, "bike")
		assert.True(t, entities.IsKind(err, entities.ErrKindPollClosed), "got %v", err)
	})

	t.Run("revote replaces the previous choice", func(t *testing.T) {
		t.Parallel()

		svc, userRepo, pollRepo, activityRepo, publisher := newPollFixture()
		poll := openPoll(1)
		poll.SetVote("alice", "console")

		userRepo.On("GetByUsername", mock.Anything, "alice").Return(entities.NewUser("alice", "pw"), nil)
		pollRepo.On("GetByID", mock.Anything, int64(1)).Return(poll, nil)
		pollRepo.On("Update", mock.Anything, poll).Return(nil)
		activityRepo.On("Append", mock.Anything, mock.AnythingOfType("*entities.ActivityEntry")).Return(nil)
		publisher.On("Publish", mock.AnythingOfType("events.VoteCastEvent"))

		got, err := svc.Vote(context.Background(), "alice", 1, "bike")

		require.NoError(t, err)
		assert.Equal(t, "bike", got.Votes["alice"])
		assert.Equal(t, map[string]int{"bike": 1}, got.Tallies())
		publisher.AssertExpectations(t)
	})
}

func TestPollService_ResolvePoll(t *testing.T) {
	t.Parallel()

	t.Run("closed poll is returned unchanged", func(t *testing.T) {
		t.Parallel()

		svc, _, pollRepo, activityRepo, publisher := newPollFixture()
		winner := "bike"
		poll := openPoll(1)
		poll.Closed = true
		poll.WinningOptionID = &winner

		pollRepo.On("GetByID", mock.Anything, int64(1)).Return(poll, nil)

		got, err := svc.ResolvePoll(context.Background(), 1)

		require.NoError(t, err)
		assert.Same(t, poll, got)
		pollRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		activityRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		publisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("closing fixes the winning option", func(t *testing.T) {
		t.Parallel()

		svc, _, pollRepo, activityRepo, publisher := newPollFixture()
		poll := openPoll(1)
		poll.SetVote("alice", "bike")
		poll.SetVote("bob", "bike")
		poll.SetVote("carol", "console")

		pollRepo.On("GetByID", mock.Anything, int64(1)).Return(poll, nil)
		pollRepo.On("Update", mock.Anything, poll).Return(nil)

		var logged *entities.ActivityEntry
		activityRepo.On("Append", mock.Anything, mock.AnythingOfType("*entities.ActivityEntry")).
			Run(func(args mock.Arguments) {
				logged = args.Get(1).(*entities.ActivityEntry)
			}).
			Return(nil)
		publisher.On("Publish", mock.AnythingOfType("events.PollEndedEvent"))

		got, err := svc.ResolvePoll(context.Background(), 1)

		require.NoError(t, err)
		assert.True(t, got.Closed)
		require.NotNil(t, got.WinningOptionID)
		assert.Equal(t, "bike", *got.WinningOptionID)

		require.NotNil(t, logged)
		assert.Equal(t, entities.ActivityPollEnded, logged.Type)
		assert.Equal(t, "", logged.Actor)
		assert.Equal(t, "bike", logged.Payload["winningOptionId"])
	})

	t.Run("no votes closes with no winner", func(t *testing.T) {
		t.Parallel()

		svc, _, pollRepo, activityRepo, publisher := newPollFixture()
		poll := openPoll(1)

		pollRepo.On("GetByID", mock.Anything, int64(1)).Return(poll, nil)
		pollRepo.On("Update", mock.Anything, poll).Return(nil)
		activityRepo.On("Append", mock.Anything, mock.AnythingOfType("*entities.ActivityEntry")).Return(nil)
		publisher.On("Publish", mock.AnythingOfType("events.PollEndedEvent"))

		got, err := svc.ResolvePoll(context.Background(), 1)

		require.NoError(t, err)
		assert.True(t, got.Closed)
		assert.Nil(t, got.WinningOptionID)
	})
}
