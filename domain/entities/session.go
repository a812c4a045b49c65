package entities

import (
	"time"

	"github.com/google/uuid"
)

// Session is an opaque bearer token bound to a logged-in account. Sessions
// live in process memory only; deleting a user revokes all of theirs.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSession issues a fresh token for the account
func NewSession(user *User) *Session {
	return &Session{
		Token:     uuid.NewString(),
		Username:  user.Username,
		IsAdmin:   user.IsAdmin(),
		CreatedAt: time.Now().UTC(),
	}
}
