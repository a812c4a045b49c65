// Package payments simulates the card acquirer used for balance top-ups.
// Roughly half of all deposits require a 3-D Secure confirmation round trip,
// and the acquirer declines about one card in ten.
package payments

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the acquirer's answer to a deposit attempt
type Status string

const (
	StatusApproved    Status = "approved"
	StatusDeclined    Status = "declined"
	StatusRequires3DS Status = "requires_3ds"
)

// Result describes the outcome of an Initiate or Confirm3DS call.
// TransactionID is set only while a 3-D Secure confirmation is pending.
type Result struct {
	Status        Status          `json:"status"`
	TransactionID string          `json:"transactionId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// Gateway is an in-process acquirer simulator. Pending 3-D Secure
// transactions live in memory and die with the process.
type Gateway struct {
	mu      sync.Mutex
	rng     *rand.Rand
	pending map[string]decimal.Decimal
}

// NewGateway creates a gateway with a time-seeded source
func NewGateway() *Gateway {
	return NewGatewayWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewGatewayWithSource creates a gateway with a caller-controlled source,
// which makes outcomes reproducible in tests.
func NewGatewayWithSource(src rand.Source) *Gateway {
	return &Gateway{
		rng:     rand.New(src),
		pending: make(map[string]decimal.Decimal),
	}
}

// Initiate starts a deposit for the given amount
func (g *Gateway) Initiate(amount decimal.Decimal) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, fmt.Errorf("deposit amount must be positive, got %s", amount)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rng.Float64() < 0.5 {
		txID := uuid.NewString()
		g.pending[txID] = amount
		return Result{Status: StatusRequires3DS, TransactionID: txID, Amount: amount}, nil
	}

	if g.rng.Float64() < 0.9 {
		return Result{Status: StatusApproved, Amount: amount}, nil
	}
	return Result{Status: StatusDeclined, Amount: amount}, nil
}

// Confirm3DS settles a pending 3-D Secure transaction. approved=false means
// the cardholder abandoned the challenge.
func (g *Gateway) Confirm3DS(transactionID string, approved bool) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	amount, ok := g.pending[transactionID]
	if !ok {
		return Result{}, fmt.Errorf("unknown transaction %s", transactionID)
	}
	delete(g.pending, transactionID)

	if !approved {
		return Result{Status: StatusDeclined, Amount: amount}, nil
	}
	if g.rng.Float64() < 0.9 {
		return Result{Status: StatusApproved, Amount: amount}, nil
	}
	return Result{Status: StatusDeclined, Amount: amount}, nil
}
