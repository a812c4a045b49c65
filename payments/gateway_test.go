package payments

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_RejectsNonPositiveAmounts(t *testing.T) {
	t.Parallel()

	g := NewGateway()

	_, err := g.Initiate(decimal.Zero)
	assert.Error(t, err)

	_, err = g.Initiate(decimal.NewFromInt(-10))
	assert.Error(t, err)
}

func TestGateway_OutcomeDistribution(t *testing.T) {
	t.Parallel()

	g := NewGatewayWithSource(rand.NewSource(1))
	amount := decimal.NewFromInt(50)

	counts := map[Status]int{}
	const attempts = 2000
	for i := 0; i < attempts; i++ {
		result, err := g.Initiate(amount)
		require.NoError(t, err)
		counts[result.Status]++

		if result.Status == StatusRequires3DS {
			// Settle so pending transactions do not pile up
			_, err := g.Confirm3DS(result.TransactionID, true)
			require.NoError(t, err)
		}
	}

	// About half go through the 3-D Secure round trip, and declines exist
	// but stay rare
	assert.InDelta(t, attempts/2, counts[StatusRequires3DS], attempts/10)
	assert.Greater(t, counts[StatusApproved], counts[StatusDeclined])
	assert.Greater(t, counts[StatusDeclined], 0)
}

func TestGateway_Confirm3DS(t *testing.T) {
	t.Parallel()

	g := NewGatewayWithSource(rand.NewSource(7))
	amount := decimal.RequireFromString("25.50")

	// Drive Initiate until it parks a pending transaction
	var pending Result
	for {
		result, err := g.Initiate(amount)
		require.NoError(t, err)
		if result.Status == StatusRequires3DS {
			pending = result
			break
		}
	}
	require.NotEmpty(t, pending.TransactionID)
	assert.True(t, pending.Amount.Equal(amount))

	// Abandoning the challenge declines the deposit
	result, err := g.Confirm3DS(pending.TransactionID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, result.Status)
	assert.True(t, result.Amount.Equal(amount))

	// The transaction is consumed either way
	_, err = g.Confirm3DS(pending.TransactionID, true)
	assert.Error(t, err)
}

func TestGateway_Confirm3DS_UnknownTransaction(t *testing.T) {
	t.Parallel()

	g := NewGateway()

	_, err := g.Confirm3DS("no-such-transaction", true)
	assert.Error(t, err)
}

func TestGateway_DeterministicWithFixedSource(t *testing.T) {
	t.Parallel()

	amount := decimal.NewFromInt(10)

	run := func() []Status {
		g := NewGatewayWithSource(rand.NewSource(42))
		statuses := make([]Status, 0, 20)
		for i := 0; i < 20; i++ {
			result, err := g.Initiate(amount)
			require.NoError(t, err)
			statuses = append(statuses, result.Status)
		}
		return statuses
	}

	assert.Equal(t, run(), run())
}
