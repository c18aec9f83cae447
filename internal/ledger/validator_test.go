package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/payments-engine/internal/disputes"
)

func TestValidateRow(t *testing.T) {
	valid := AccountRow{
		Client:    1,
		Available: decimal.RequireFromString("1"),
		Held:      decimal.RequireFromString("2"),
		Total:     decimal.RequireFromString("3"),
	}
	assert.True(t, ValidateRow(valid).IsValid)

	badTotal := valid
	badTotal.Total = decimal.RequireFromString("4")
	result := ValidateRow(badTotal)
	assert.False(t, result.IsValid)
	assert.Equal(t, "total_consistency", result.ValidationType)
	assert.Equal(t, uint16(1), result.Client)

	negativeHeld := AccountRow{
		Client:    5,
		Available: decimal.RequireFromString("3"),
		Held:      decimal.RequireFromString("-1"),
		Total:     decimal.RequireFromString("2"),
	}
	result = ValidateRow(negativeHeld)
	assert.False(t, result.IsValid)
	assert.Equal(t, "held_non_negative", result.ValidationType)
}

func TestValidateHeldFunds(t *testing.T) {
	l := New()
	require.NoError(t, l.Apply(Deposit(1, 1, decimal.RequireFromString("2"))))
	require.NoError(t, l.Apply(Deposit(1, 2, decimal.RequireFromString("3"))))
	require.NoError(t, l.Apply(Dispute(1, 2)))

	v := NewValidator(l)
	result := v.ValidateHeldFunds(1)
	assert.True(t, result.IsValid, result.Message)

	missing := v.ValidateHeldFunds(9)
	assert.False(t, missing.IsValid)

	// corrupt the account directly to prove the check bites
	l.accounts[1].transactions[1].DisputeState = disputes.StateDisputed
	result = v.ValidateHeldFunds(1)
	assert.False(t, result.IsValid)
	assert.Equal(t, 2, result.Details["disputed_count"])

	failures := v.ComprehensiveValidation()
	require.Len(t, failures, 1)
	assert.Equal(t, "held_funds", failures[0].ValidationType)
}
