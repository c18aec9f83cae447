package ledger

import (
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/example/payments-engine/internal/disputes"
)

// Validator provides invariants checking for the ledger
type Validator struct {
	ledger *Ledger
}

// NewValidator creates a new validator instance
func NewValidator(l *Ledger) *Validator {
	return &Validator{ledger: l}
}

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	IsValid        bool                   `json:"is_valid"`
	ValidationType string                 `json:"validation_type"`
	Message        string                 `json:"message"`
	Client         uint16                 `json:"client"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// ValidateRow checks that a reported row is self-consistent.
func ValidateRow(row AccountRow) *ValidationResult {
	expected := row.Available.Add(row.Held)
	if !row.Total.Equal(expected) {
		return &ValidationResult{
			IsValid:        false,
			ValidationType: "total_consistency",
			Message:        fmt.Sprintf("total (%s) != available + held (%s)", row.Total, expected),
			Client:         row.Client,
			Details: map[string]interface{}{
				"available": row.Available.String(),
				"held":      row.Held.String(),
				"total":     row.Total.String(),
			},
		}
	}

	if row.Held.IsNegative() {
		return &ValidationResult{
			IsValid:        false,
			ValidationType: "held_non_negative",
			Message:        fmt.Sprintf("held balance is negative: %s", row.Held),
			Client:         row.Client,
		}
	}

	return &ValidationResult{
		IsValid:        true,
		ValidationType: "row",
		Message:        "row is consistent",
		Client:         row.Client,
	}
}

// ValidateHeldFunds checks that an account's held balance equals the sum of
// its currently disputed deposits.
func (v *Validator) ValidateHeldFunds(client uint16) *ValidationResult {
	account, ok := v.ledger.accounts[client]
	if !ok {
		return &ValidationResult{
			IsValid:        false,
			ValidationType: "held_funds",
			Message:        fmt.Sprintf("account %d not found", client),
			Client:         client,
		}
	}

	disputed := decimal.Zero
	count := 0
	for _, tx := range account.transactions {
		if tx.Kind == KindDeposit && tx.DisputeState == disputes.StateDisputed {
			disputed = disputed.Add(tx.Amount)
			count++
		}
	}

	if !account.Held.Equal(disputed) {
		return &ValidationResult{
			IsValid:        false,
			ValidationType: "held_funds",
			Message:        fmt.Sprintf("held (%s) != disputed deposits (%s)", account.Held, disputed),
			Client:         client,
			Details: map[string]interface{}{
				"held":           account.Held.String(),
				"disputed":       disputed.String(),
				"disputed_count": count,
			},
		}
	}

	return &ValidationResult{
		IsValid:        true,
		ValidationType: "held_funds",
		Message:        fmt.Sprintf("held funds match %d disputed deposit(s)", count),
		Client:         client,
	}
}

// ComprehensiveValidation runs every check over every account and returns
// only the failures.
func (v *Validator) ComprehensiveValidation() []*ValidationResult {
	var failures []*ValidationResult

	for _, client := range slices.Sorted(maps.Keys(v.ledger.accounts)) {
		row := rowFor(v.ledger.accounts[client])
		for _, result := range []*ValidationResult{ValidateRow(row), v.ValidateHeldFunds(client)} {
			if !result.IsValid {
				failures = append(failures, result)
			}
		}
	}

	return failures
}
