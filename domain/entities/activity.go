package entities

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies a ledger-affecting event in the audit log
type ActivityType string

const (
	ActivityPurchase        ActivityType = "purchase"
	ActivityFreeEntry       ActivityType = "free_entry"
	ActivityTopup           ActivityType = "topup"
	ActivityRaffleEnd       ActivityType = "raffle_end"
	ActivityRaffleEndManual ActivityType = "raffle_end_manual"
	ActivityCreateRaffle    ActivityType = "create_raffle"
	ActivityUpdateRaffle    ActivityType = "update_raffle"
	ActivityEndRaffle       ActivityType = "end_raffle"
	ActivityUpdateUser      ActivityType = "update_user"
	ActivityToggleAdmin     ActivityType = "toggle_admin"
	ActivityDeleteUser      ActivityType = "delete_user"
	ActivityVote            ActivityType = "vote"
	ActivityPollEnded       ActivityType = "poll_ended"
)

// ActivityLogCap bounds the audit ring buffer; the oldest entries beyond the
// cap are silently evicted.
const ActivityLogCap = 200

// ActivityEntry is one immutable audit record. Entries are never mutated
// after creation.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      ActivityType   `json:"type"`
	Actor     string         `json:"actor"`
	Payload   map[string]any `json:"payload"`
}

// NewActivityEntry assigns the entry id and timestamp
func NewActivityEntry(t ActivityType, actor string, payload map[string]any) *ActivityEntry {
	if payload == nil {
		payload = map[string]any{}
	}
	return &ActivityEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      t,
		Actor:     actor,
		Payload:   payload,
	}
}

// Clone returns a deep-enough copy for snapshot stores; the payload map is
// copied one level deep, which covers every payload the services emit.
func (e *ActivityEntry) Clone() *ActivityEntry {
	c := *e
	c.Payload = make(map[string]any, len(e.Payload))
	for k, v := range e.Payload {
		c.Payload[k] = v
	}
	return &c
}
