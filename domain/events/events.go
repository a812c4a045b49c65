package events

import (
	"context"
	"sync"

	"royale/domain/entities"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTicketsPurchased EventType = "tickets_purchased"
	EventTypeFreeEntryClaimed EventType = "free_entry_claimed"
	EventTypeRaffleEnded      EventType = "raffle_ended"
	EventTypeBalanceToppedUp  EventType = "balance_topped_up"
	EventTypeUserRegistered   EventType = "user_registered"
	EventTypeVoteCast         EventType = "vote_cast"
	EventTypePollEnded        EventType = "poll_ended"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TicketsPurchasedEvent represents a completed ticket purchase
type TicketsPurchasedEvent struct {
	Username   string
	RaffleID   int64
	Title      string
	Count      int
	TotalPrice decimal.Decimal
	NewBalance decimal.Decimal
}

func (e TicketsPurchasedEvent) Type() EventType {
	return EventTypeTicketsPurchased
}

// FreeEntryClaimedEvent represents a claimed promotional ticket
type FreeEntryClaimedEvent struct {
	Username string
	RaffleID int64
	Title    string
}

func (e FreeEntryClaimedEvent) Type() EventType {
	return EventTypeFreeEntryClaimed
}

// RaffleEndedEvent represents a resolved raffle
type RaffleEndedEvent struct {
	RaffleID int64
	Title    string
	Winner   *string
	Trigger  string // "scheduled" or "manual"
}

func (e RaffleEndedEvent) Type() EventType {
	return EventTypeRaffleEnded
}

// BalanceToppedUpEvent represents a successful deposit
type BalanceToppedUpEvent struct {
	Username   string
	Amount     decimal.Decimal
	NewBalance decimal.Decimal
}

func (e BalanceToppedUpEvent) Type() EventType {
	return EventTypeBalanceToppedUp
}

// UserRegisteredEvent represents a new account
type UserRegisteredEvent struct {
	Username        string
	StartingBalance decimal.Decimal
}

func (e UserRegisteredEvent) Type() EventType {
	return EventTypeUserRegistered
}

// VoteCastEvent represents a community-poll vote
type VoteCastEvent struct {
	Username string
	PollID   int64
	OptionID string
}

func (e VoteCastEvent) Type() EventType {
	return EventTypeVoteCast
}

// PollEndedEvent represents a closed community poll
type PollEndedEvent struct {
	PollID          int64
	Question        string
	WinningOptionID *string
}

func (e PollEndedEvent) Type() EventType {
	return EventTypePollEnded
}

// RaffleEndedFrom builds the event from a resolved raffle snapshot
func RaffleEndedFrom(r *entities.Raffle, trigger string) RaffleEndedEvent {
	return RaffleEndedEvent{
		RaffleID: r.ID,
		Title:    r.Title,
		Winner:   r.Winner,
		Trigger:  trigger,
	}
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the emitter
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events published during a unit of work and flushes
// them to the underlying bus only after a successful commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish queues the event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits the queued events. Called after a successful commit; uses a
// background context so handlers outlive the transaction's context.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops the queued events. Called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
