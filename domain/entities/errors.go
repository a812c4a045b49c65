package entities

import (
	"errors"
	"fmt"
)

// ErrorKind tags a business-rule failure. Every kind is recoverable: callers
// surface the message and carry on.
type ErrorKind string

const (
	ErrKindNotLoggedIn         ErrorKind = "not_logged_in"
	ErrKindRaffleNotFound      ErrorKind = "raffle_not_found"
	ErrKindRaffleEnded         ErrorKind = "raffle_ended"
	ErrKindInvalidCount        ErrorKind = "invalid_count"
	ErrKindInsufficientBalance ErrorKind = "insufficient_balance"
	ErrKindPerUserLimit        ErrorKind = "per_user_limit_exceeded"
	ErrKindSoldOut             ErrorKind = "sold_out"
	ErrKindAlreadyClaimed      ErrorKind = "already_claimed"
	ErrKindUsernameTaken       ErrorKind = "username_taken"
	ErrKindInvalidCredentials  ErrorKind = "invalid_credentials"
	ErrKindNotAuthorized       ErrorKind = "not_authorized"
	ErrKindUserNotFound        ErrorKind = "user_not_found"
	ErrKindPollNotFound        ErrorKind = "poll_not_found"
	ErrKindPollClosed          ErrorKind = "poll_closed"
	ErrKindInvalidOption       ErrorKind = "invalid_option"
	ErrKindInvalidAmount       ErrorKind = "invalid_amount"
	ErrKindPaymentDeclined     ErrorKind = "payment_declined"
)

// DomainError is a tagged business failure with a user-facing message
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// KindOf extracts the error kind, or the empty string for non-domain errors
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func ErrNotLoggedIn() error {
	return &DomainError{Kind: ErrKindNotLoggedIn, Message: "Not logged in"}
}

func ErrRaffleNotFound() error {
	return &DomainError{Kind: ErrKindRaffleNotFound, Message: "Raffle not found"}
}

func ErrRaffleEnded() error {
	return &DomainError{Kind: ErrKindRaffleEnded, Message: "This raffle has ended"}
}

func ErrInvalidCount() error {
	return &DomainError{Kind: ErrKindInvalidCount, Message: "Ticket count must be a positive whole number"}
}

func ErrInsufficientBalance() error {
	return &DomainError{Kind: ErrKindInsufficientBalance, Message: "Insufficient balance"}
}

// ErrPerUserLimit reports the computed cap so the caller can display it
func ErrPerUserLimit(limit int) error {
	return &DomainError{
		Kind:    ErrKindPerUserLimit,
		Message: fmt.Sprintf("Limit exceeded. You can own at most %d tickets.", limit),
	}
}

// ErrInventoryBelowSold rejects shrinking a raffle under its sold count
func ErrInventoryBelowSold(sold int) error {
	return &DomainError{
		Kind:    ErrKindInvalidCount,
		Message: fmt.Sprintf("Total tickets cannot drop below the %d already sold", sold),
	}
}

func ErrSoldOut() error {
	return &DomainError{Kind: ErrKindSoldOut, Message: "Not enough tickets available"}
}

func ErrAlreadyClaimed() error {
	return &DomainError{Kind: ErrKindAlreadyClaimed, Message: "Free entry already claimed for this raffle"}
}

func ErrUsernameTaken() error {
	return &DomainError{Kind: ErrKindUsernameTaken, Message: "Username already exists"}
}

func ErrInvalidCredentials() error {
	return &DomainError{Kind: ErrKindInvalidCredentials, Message: "Invalid credentials"}
}

func ErrNotAuthorized() error {
	return &DomainError{Kind: ErrKindNotAuthorized, Message: "Admin access required"}
}

func ErrUserNotFound() error {
	return &DomainError{Kind: ErrKindUserNotFound, Message: "User not found"}
}

func ErrPollNotFound() error {
	return &DomainError{Kind: ErrKindPollNotFound, Message: "Poll not found"}
}

func ErrPollClosed() error {
	return &DomainError{Kind: ErrKindPollClosed, Message: "This poll has closed"}
}

func ErrInvalidOption() error {
	return &DomainError{Kind: ErrKindInvalidOption, Message: "Unknown poll option"}
}

func ErrInvalidAmount() error {
	return &DomainError{Kind: ErrKindInvalidAmount, Message: "Amount must be positive"}
}

func ErrPaymentDeclined() error {
	return &DomainError{Kind: ErrKindPaymentDeclined, Message: "Payment was declined"}
}
