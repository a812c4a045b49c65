package services

import (
	"context"
	"fmt"
	"time"

	"royale/domain/entities"
	"royale/domain/events"
	"royale/domain/interfaces"
)

// pollService implements community polls: one changeable vote per user,
// closed at the deadline with the highest-tallied option winning.
type pollService struct {
	userRepo     interfaces.UserRepository
	pollRepo     interfaces.PollRepository
	activityRepo interfaces.ActivityRepository
	publisher    interfaces.EventPublisher
	now          func() time.Time
}

// NewPollService creates a new poll service
func NewPollService(
	userRepo interfaces.UserRepository,
	pollRepo interfaces.PollRepository,
	activityRepo interfaces.ActivityRepository,
	publisher interfaces.EventPublisher,
) interfaces.PollService {
	return &pollService{
		userRepo:     userRepo,
		pollRepo:     pollRepo,
		activityRepo: activityRepo,
		publisher:    publisher,
		now:          time.Now,
	}
}

// ListPolls returns every poll
func (s *pollService) ListPolls(ctx context.Context) ([]*entities.Poll, error) {
	return s.pollRepo.GetAll(ctx)
}

// CreatePoll installs a new poll
func (s *pollService) CreatePoll(ctx context.Context, actor string, poll *entities.Poll) (*entities.Poll, error) {
	acting, err := s.userRepo.GetByUsername(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to get acting user: %w", err)
	}
	if acting == nil {
		return nil, entities.ErrNotLoggedIn()
	}
	if !acting.IsAdmin() {
		return nil, entities.ErrNotAuthorized()
	}

	now := s.now().UTC()
	poll.Closed = false
	poll.WinningOptionID = nil
	if poll.Votes == nil {
		poll.Votes = make(map[string]string)
	}
	poll.CreatedAt = now
	poll.UpdatedAt = now

	return s.pollRepo.Create(ctx, poll)
}

// Vote records or replaces username's vote on an open poll
func (s *pollService) Vote(ctx context.Context, username string, pollID int64, optionID string) (*entities.Poll, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entities.ErrNotLoggedIn()
	}

	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	if poll == nil {
		return nil, entities.ErrPollNotFound()
	}
	// A poll past its deadline refuses votes even before the worker's next
	// pass closes it.
	if poll.Closed || poll.IsOverdue(s.now().UTC()) {
		return nil, entities.ErrPollClosed()
	}
	if !poll.HasOption(optionID) {
		return nil, entities.ErrInvalidOption()
	}

	poll.SetVote(username, optionID)
	poll.UpdatedAt = s.now().UTC()
	if err := s.pollRepo.Update(ctx, poll); err != nil {
		return nil, fmt.Errorf("failed to update poll: %w", err)
	}

	entry := entities.NewActivityEntry(entities.ActivityVote, username, map[string]any{
		"pollId":   pollID,
		"optionId": optionID,
	})
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	s.publisher.Publish(events.VoteCastEvent{
		Username: username,
		PollID:   pollID,
		OptionID: optionID,
	})

	return poll, nil
}

// ResolvePoll closes a poll and fixes its winning option. Idempotent: a
// closed poll is returned unchanged.
func (s *pollService) ResolvePoll(ctx context.Context, pollID int64) (*entities.Poll, error) {
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	if poll == nil {
		return nil, entities.ErrPollNotFound()
	}
	if poll.Closed {
		return poll, nil
	}

	winner := poll.WinningOption()
	poll.Close(winner)
	if err := s.pollRepo.Update(ctx, poll); err != nil {
		return nil, fmt.Errorf("failed to update poll: %w", err)
	}

	payload := map[string]any{"pollId": pollID}
	if winner != nil {
		payload["winningOptionId"] = *winner
	}
	entry := entities.NewActivityEntry(entities.ActivityPollEnded, "", payload)
	if err := s.activityRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	s.publisher.Publish(events.PollEndedEvent{
		PollID:          pollID,
		Question:        poll.Question,
		WinningOptionID: winner,
	})

	return poll, nil
}
