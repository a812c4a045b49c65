package localstore

import (
	"context"
	"fmt"
	"time"

	"royale/domain/entities"
)

// The repositories below operate on a unit of work's staged document.
// Reads hand out clones so a caller can never mutate staged state except
// through an explicit Update.

type userRepository struct {
	stage *state
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	user, ok := r.stage.Users[username]
	if !ok {
		return nil, nil
	}
	return user.Clone(), nil
}

func (r *userRepository) GetAll(ctx context.Context) ([]*entities.User, error) {
	users := make([]*entities.User, 0, len(r.stage.Users))
	for _, u := range r.stage.Users {
		users = append(users, u.Clone())
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *entities.User) error {
	if _, ok := r.stage.Users[user.Username]; ok {
		return fmt.Errorf("user %s already exists", user.Username)
	}
	r.stage.Users[user.Username] = user.Clone()
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *entities.User) error {
	if _, ok := r.stage.Users[user.Username]; !ok {
		return fmt.Errorf("user %s does not exist", user.Username)
	}
	r.stage.Users[user.Username] = user.Clone()
	return nil
}

func (r *userRepository) Delete(ctx context.Context, username string) error {
	if _, ok := r.stage.Users[username]; !ok {
		return fmt.Errorf("user %s does not exist", username)
	}
	delete(r.stage.Users, username)
	return nil
}

type raffleRepository struct {
	stage *state
}

func (r *raffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	for _, raffle := range r.stage.Raffles {
		if raffle.ID == id {
			return raffle.Clone(), nil
		}
	}
	return nil, nil
}

func (r *raffleRepository) GetAll(ctx context.Context) ([]*entities.Raffle, error) {
	raffles := make([]*entities.Raffle, 0, len(r.stage.Raffles))
	for _, raffle := range r.stage.Raffles {
		raffles = append(raffles, raffle.Clone())
	}
	return raffles, nil
}

func (r *raffleRepository) GetOverdue(ctx context.Context, asOf time.Time) ([]*entities.Raffle, error) {
	var overdue []*entities.Raffle
	for _, raffle := range r.stage.Raffles {
		if raffle.IsOverdue(asOf) {
			overdue = append(overdue, raffle.Clone())
		}
	}
	return overdue, nil
}

func (r *raffleRepository) Create(ctx context.Context, raffle *entities.Raffle) (*entities.Raffle, error) {
	stored := raffle.Clone()
	if stored.ID == 0 {
		// Next id is max existing + 1, matching the catalog's allocation rule
		var max int64
		for _, existing := range r.stage.Raffles {
			if existing.ID > max {
				max = existing.ID
			}
		}
		stored.ID = max + 1
	} else {
		for _, existing := range r.stage.Raffles {
			if existing.ID == stored.ID {
				return nil, fmt.Errorf("raffle %d already exists", stored.ID)
			}
		}
	}
	if stored.Entries == nil {
		stored.Entries = []entities.RaffleEntry{}
	}
	r.stage.Raffles = append(r.stage.Raffles, stored)
	return stored.Clone(), nil
}

func (r *raffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	for i, existing := range r.stage.Raffles {
		if existing.ID == raffle.ID {
			r.stage.Raffles[i] = raffle.Clone()
			return nil
		}
	}
	return fmt.Errorf("raffle %d does not exist", raffle.ID)
}

type activityRepository struct {
	stage *state
}

func (r *activityRepository) Append(ctx context.Context, entry *entities.ActivityEntry) error {
	entries := make([]*entities.ActivityEntry, 0, len(r.stage.Activity)+1)
	entries = append(entries, entry.Clone())
	entries = append(entries, r.stage.Activity...)
	if len(entries) > entities.ActivityLogCap {
		entries = entries[:entities.ActivityLogCap]
	}
	r.stage.Activity = entries
	return nil
}

func (r *activityRepository) List(ctx context.Context, limit int) ([]*entities.ActivityEntry, error) {
	if limit <= 0 || limit > len(r.stage.Activity) {
		limit = len(r.stage.Activity)
	}
	entries := make([]*entities.ActivityEntry, 0, limit)
	for _, e := range r.stage.Activity[:limit] {
		entries = append(entries, e.Clone())
	}
	return entries, nil
}

func (r *activityRepository) Clear(ctx context.Context) error {
	r.stage.Activity = []*entities.ActivityEntry{}
	return nil
}

type pollRepository struct {
	stage *state
}

func (r *pollRepository) GetByID(ctx context.Context, id int64) (*entities.Poll, error) {
	for _, poll := range r.stage.Polls {
		if poll.ID == id {
			return poll.Clone(), nil
		}
	}
	return nil, nil
}

func (r *pollRepository) GetAll(ctx context.Context) ([]*entities.Poll, error) {
	polls := make([]*entities.Poll, 0, len(r.stage.Polls))
	for _, poll := range r.stage.Polls {
		polls = append(polls, poll.Clone())
	}
	return polls, nil
}

func (r *pollRepository) GetOverdue(ctx context.Context, asOf time.Time) ([]*entities.Poll, error) {
	var overdue []*entities.Poll
	for _, poll := range r.stage.Polls {
		if poll.IsOverdue(asOf) {
			overdue = append(overdue, poll.Clone())
		}
	}
	return overdue, nil
}

func (r *pollRepository) Create(ctx context.Context, poll *entities.Poll) (*entities.Poll, error) {
	stored := poll.Clone()
	if stored.ID == 0 {
		var max int64
		for _, existing := range r.stage.Polls {
			if existing.ID > max {
				max = existing.ID
			}
		}
		stored.ID = max + 1
	} else {
		for _, existing := range r.stage.Polls {
			if existing.ID == stored.ID {
				return nil, fmt.Errorf("poll %d already exists", stored.ID)
			}
		}
	}
	r.stage.Polls = append(r.stage.Polls, stored)
	return stored.Clone(), nil
}

func (r *pollRepository) Update(ctx context.Context, poll *entities.Poll) error {
	for i, existing := range r.stage.Polls {
		if existing.ID == poll.ID {
			r.stage.Polls[i] = poll.Clone()
			return nil
		}
	}
	return fmt.Errorf("poll %d does not exist", poll.ID)
}
