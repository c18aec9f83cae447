package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/example/payments-engine/internal/disputes"
)

// TransactionKind tags a posted transaction.
type TransactionKind uint8

const (
	KindDeposit TransactionKind = iota + 1
	KindWithdrawal
)

func (k TransactionKind) String() string {
	switch k {
	case KindDeposit:
		return "deposit"
	case KindWithdrawal:
		return "withdrawal"
	default:
		return "unknown"
	}
}

// Transaction is a posted deposit or withdrawal. Amount never changes after
// posting; DisputeState is only meaningful when Kind is KindDeposit.
type Transaction struct {
	ID           uint32
	Kind         TransactionKind
	Amount       decimal.Decimal
	DisputeState disputes.State
}

// Disputable reports whether the transaction can take part in the dispute lifecycle.
func (t *Transaction) Disputable() bool {
	return t.Kind == KindDeposit
}

// Account holds one client's balances and posted history.
type Account struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool

	transactions map[uint32]*Transaction
}

func newAccount(client uint16) *Account {
	return &Account{
		Client:       client,
		Available:    decimal.Zero,
		Held:         decimal.Zero,
		transactions: make(map[uint32]*Transaction),
	}
}

// Total returns available + held.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

func (a *Account) post(tx *Transaction) {
	a.transactions[tx.ID] = tx
}

func (a *Account) lookup(id uint32) (*Transaction, bool) {
	tx, ok := a.transactions[id]
	return tx, ok
}
