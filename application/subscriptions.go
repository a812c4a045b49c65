package application

import (
	"context"

	"royale/domain/events"

	log "github.com/sirupsen/logrus"
)

// RegisterSubscriptions wires the storefront's notification feed: every
// ledger-affecting event is announced on the application log, the server-side
// analog of the toast/activity-feed the UI renders.
func RegisterSubscriptions(bus *events.Bus) {
	bus.Subscribe(events.EventTypeTicketsPurchased, func(ctx context.Context, event events.Event) {
		e := event.(events.TicketsPurchasedEvent)
		log.WithFields(log.Fields{
			"username": e.Username,
			"raffleId": e.RaffleID,
			"count":    e.Count,
			"total":    e.TotalPrice.String(),
		}).Infof("Purchased %d ticket(s) for %s", e.Count, e.Title)
	})

	bus.Subscribe(events.EventTypeFreeEntryClaimed, func(ctx context.Context, event events.Event) {
		e := event.(events.FreeEntryClaimedEvent)
		log.WithFields(log.Fields{
			"username": e.Username,
			"raffleId": e.RaffleID,
		}).Infof("Free entry claimed for %s", e.Title)
	})

	bus.Subscribe(events.EventTypeRaffleEnded, func(ctx context.Context, event events.Event) {
		e := event.(events.RaffleEndedEvent)
		fields := log.Fields{
			"raffleId": e.RaffleID,
			"trigger":  e.Trigger,
		}
		if e.Winner != nil {
			fields["winner"] = *e.Winner
		}
		log.WithFields(fields).Infof("Raffle ended: %s", e.Title)
	})

	bus.Subscribe(events.EventTypeBalanceToppedUp, func(ctx context.Context, event events.Event) {
		e := event.(events.BalanceToppedUpEvent)
		log.WithFields(log.Fields{
			"username": e.Username,
			"amount":   e.Amount.String(),
		}).Info("Balance topped up")
	})

	bus.Subscribe(events.EventTypeUserRegistered, func(ctx context.Context, event events.Event) {
		e := event.(events.UserRegisteredEvent)
		log.WithField("username", e.Username).Info("New account registered")
	})

	bus.Subscribe(events.EventTypePollEnded, func(ctx context.Context, event events.Event) {
		e := event.(events.PollEndedEvent)
		fields := log.Fields{"pollId": e.PollID}
		if e.WinningOptionID != nil {
			fields["winningOptionId"] = *e.WinningOptionID
		}
		log.WithFields(fields).Infof("Poll closed: %s", e.Question)
	})
}
