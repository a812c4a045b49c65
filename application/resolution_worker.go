package application

import (
	"context"
	"fmt"
	"time"

	"royale/domain/interfaces"
	"royale/domain/services"

	log "github.com/sirupsen/logrus"
)

// defaultRecheckInterval bounds how long the worker sleeps when no deadline
// is in sight.
const defaultRecheckInterval = time.Minute

// ResolutionWorker detects raffles and polls past their close time and
// resolves each exactly once. Each overdue item gets its own unit of work,
// so one failure never blocks the rest; failed items are retried on the
// next pass.
type ResolutionWorker struct {
	uowFactory      UnitOfWorkFactory
	recheckInterval time.Duration
	now             func() time.Time
}

// NewResolutionWorker creates a new resolution worker
func NewResolutionWorker(uowFactory UnitOfWorkFactory) *ResolutionWorker {
	return &ResolutionWorker{
		uowFactory:      uowFactory,
		recheckInterval: defaultRecheckInterval,
		now:             time.Now,
	}
}

// Start begins the worker loop and returns a stop function
func (w *ResolutionWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("Resolution worker started")

		for {
			if err := w.RunPass(ctx); err != nil {
				log.Errorf("Error processing overdue resolutions: %v", err)
			}

			waitDuration := w.recheckInterval
			if next := w.nextDeadline(ctx); next != nil {
				if until := time.Until(*next); until > 0 && until < waitDuration {
					waitDuration = until
				}
			}

			select {
			case <-ctx.Done():
				log.Info("Resolution worker shutting down (context cancelled)")
				return
			case <-stopChan:
				log.Info("Resolution worker shutting down (stop requested)")
				return
			case <-time.After(waitDuration):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// RunPass resolves everything currently overdue. Safe to call reactively,
// e.g. whenever the catalog is loaded.
func (w *ResolutionWorker) RunPass(ctx context.Context) error {
	asOf := w.now().UTC()

	raffleIDs, pollIDs, err := w.collectOverdue(ctx, asOf)
	if err != nil {
		return err
	}
	if len(raffleIDs) == 0 && len(pollIDs) == 0 {
		return nil
	}

	var successCount, failureCount int

	for _, id := range raffleIDs {
		if err := w.resolveRaffle(ctx, id); err != nil {
			log.Errorf("Error resolving overdue raffle %d: %v", id, err)
			failureCount++
		} else {
			successCount++
		}
	}

	for _, id := range pollIDs {
		if err := w.resolvePoll(ctx, id); err != nil {
			log.Errorf("Error resolving overdue poll %d: %v", id, err)
			failureCount++
		} else {
			successCount++
		}
	}

	log.WithFields(log.Fields{
		"raffles":    len(raffleIDs),
		"polls":      len(pollIDs),
		"successful": successCount,
		"failed":     failureCount,
	}).Info("Completed resolution pass")

	return nil
}

// collectOverdue reads the overdue ids in one short-lived read transaction
func (w *ResolutionWorker) collectOverdue(ctx context.Context, asOf time.Time) ([]int64, []int64, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	raffles, err := uow.RaffleRepository().GetOverdue(ctx, asOf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list overdue raffles: %w", err)
	}
	polls, err := uow.PollRepository().GetOverdue(ctx, asOf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list overdue polls: %w", err)
	}

	raffleIDs := make([]int64, 0, len(raffles))
	for _, r := range raffles {
		raffleIDs = append(raffleIDs, r.ID)
	}
	pollIDs := make([]int64, 0, len(polls))
	for _, p := range polls {
		pollIDs = append(pollIDs, p.ID)
	}
	return raffleIDs, pollIDs, nil
}

// resolveRaffle ends one raffle in its own unit of work
func (w *ResolutionWorker) resolveRaffle(ctx context.Context, raffleID int64) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	ledger := services.NewLedgerService(
		uow.UserRepository(),
		uow.RaffleRepository(),
		uow.ActivityRepository(),
		uow.EventBus(),
	)

	raffle, err := ledger.ResolveRaffle(ctx, raffleID, interfaces.TriggerScheduled)
	if err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit unit of work: %w", err)
	}

	fields := log.Fields{"raffleId": raffle.ID, "title": raffle.Title}
	if raffle.Winner != nil {
		fields["winner"] = *raffle.Winner
	}
	log.WithFields(fields).Info("Raffle resolved")

	return nil
}

// resolvePoll closes one poll in its own unit of work
func (w *ResolutionWorker) resolvePoll(ctx context.Context, pollID int64) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	polls := services.NewPollService(
		uow.UserRepository(),
		uow.PollRepository(),
		uow.ActivityRepository(),
		uow.EventBus(),
	)

	if _, err := polls.ResolvePoll(ctx, pollID); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit unit of work: %w", err)
	}

	log.WithField("pollId", pollID).Info("Poll closed")
	return nil
}

// nextDeadline returns the earliest upcoming raffle or poll close time
func (w *ResolutionWorker) nextDeadline(ctx context.Context) *time.Time {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.Errorf("Failed to begin unit of work for next deadline: %v", err)
		return nil
	}
	defer uow.Rollback()

	var next *time.Time

	raffles, err := uow.RaffleRepository().GetAll(ctx)
	if err != nil {
		log.Errorf("Failed to list raffles for next deadline: %v", err)
		return nil
	}
	for _, r := range raffles {
		if !r.Ended && (next == nil || r.EndsAt.Before(*next)) {
			t := r.EndsAt
			next = &t
		}
	}

	polls, err := uow.PollRepository().GetAll(ctx)
	if err != nil {
		log.Errorf("Failed to list polls for next deadline: %v", err)
		return next
	}
	for _, p := range polls {
		if !p.Closed && (next == nil || p.EndsAt.Before(*next)) {
			t := p.EndsAt
			next = &t
		}
	}

	return next
}
