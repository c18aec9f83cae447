package ledger

import (
	"fmt"

	"github.com/example/payments-engine/internal/disputes"
)

// Ledger owns every client account for one run and applies commands to
// them in arrival order. It is not safe for concurrent use; a single
// goroutine feeds it.
type Ledger struct {
	accounts map[uint16]*Account
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		accounts: make(map[uint16]*Account),
	}
}

// Apply executes a single command against its client's account. A non-nil
// error describes why the command was ignored; in that case the ledger is
// unchanged.
func (l *Ledger) Apply(cmd Command) error {
	switch cmd.Type {
	case CommandDeposit:
		return l.deposit(cmd)
	case CommandWithdrawal:
		return l.withdraw(cmd)
	case CommandDispute:
		return l.dispute(cmd)
	case CommandResolve:
		return l.resolve(cmd)
	case CommandChargeback:
		return l.chargeback(cmd)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownType, cmd.Type)
	}
}

// Len returns the number of known accounts.
func (l *Ledger) Len() int {
	return len(l.accounts)
}

// Lookup returns the current balances for client.
func (l *Ledger) Lookup(client uint16) (AccountRow, bool) {
	account, ok := l.accounts[client]
	if !ok {
		return AccountRow{}, false
	}
	return rowFor(account), true
}

// Transaction returns a copy of the posted transaction tx of client.
func (l *Ledger) Transaction(client uint16, tx uint32) (Transaction, bool) {
	account, ok := l.accounts[client]
	if !ok {
		return Transaction{}, false
	}
	stored, ok := account.lookup(tx)
	if !ok {
		return Transaction{}, false
	}
	return *stored, true
}

func (l *Ledger) deposit(cmd Command) error {
	if !cmd.Amount.IsPositive() {
		return fmt.Errorf("%w: client %d tx %d", ErrInvalidAmount, cmd.Client, cmd.Tx)
	}

	account, ok := l.accounts[cmd.Client]
	if ok {
		if account.Locked {
			return fmt.Errorf("%w: client %d", ErrAccountLocked, cmd.Client)
		}
		if _, dup := account.lookup(cmd.Tx); dup {
			return fmt.Errorf("%w: client %d tx %d", ErrDuplicateTransaction, cmd.Client, cmd.Tx)
		}
	} else {
		account = newAccount(cmd.Client)
		l.accounts[cmd.Client] = account
	}

	account.Available = account.Available.Add(cmd.Amount)
	account.post(&Transaction{
		ID:           cmd.Tx,
		Kind:         KindDeposit,
		Amount:       cmd.Amount,
		DisputeState: disputes.StateNormal,
	})
	return nil
}

func (l *Ledger) withdraw(cmd Command) error {
	if !cmd.Amount.IsPositive() {
		return fmt.Errorf("%w: client %d tx %d", ErrInvalidAmount, cmd.Client, cmd.Tx)
	}

	account, err := l.unlocked(cmd.Client)
	if err != nil {
		return err
	}
	if _, dup := account.lookup(cmd.Tx); dup {
		return fmt.Errorf("%w: client %d tx %d", ErrDuplicateTransaction, cmd.Client, cmd.Tx)
	}
	if account.Available.LessThan(cmd.Amount) {
		return fmt.Errorf("%w: client %d tx %d needs %s, has %s",
			ErrInsufficientFunds, cmd.Client, cmd.Tx, cmd.Amount.String(), account.Available.String())
	}

	account.Available = account.Available.Sub(cmd.Amount)
	account.post(&Transaction{
		ID:     cmd.Tx,
		Kind:   KindWithdrawal,
		Amount: cmd.Amount,
	})
	return nil
}

func (l *Ledger) dispute(cmd Command) error {
	account, stored, next, err := l.prepareTransition(cmd, disputes.OpDispute)
	if err != nil {
		return err
	}

	account.Available = account.Available.Sub(stored.Amount)
	account.Held = account.Held.Add(stored.Amount)
	stored.DisputeState = next
	return nil
}

func (l *Ledger) resolve(cmd Command) error {
	account, stored, next, err := l.prepareTransition(cmd, disputes.OpResolve)
	if err != nil {
		return err
	}

	account.Held = account.Held.Sub(stored.Amount)
	account.Available = account.Available.Add(stored.Amount)
	stored.DisputeState = next
	return nil
}

func (l *Ledger) chargeback(cmd Command) error {
	account, stored, next, err := l.prepareTransition(cmd, disputes.OpChargeback)
	if err != nil {
		return err
	}

	account.Held = account.Held.Sub(stored.Amount)
	account.Locked = true
	stored.DisputeState = next
	return nil
}

// prepareTransition checks every precondition of a dispute-lifecycle
// command without mutating anything.
func (l *Ledger) prepareTransition(cmd Command, op disputes.Operation) (*Account, *Transaction, disputes.State, error) {
	account, err := l.unlocked(cmd.Client)
	if err != nil {
		return nil, nil, 0, err
	}

	stored, ok := account.lookup(cmd.Tx)
	if !ok {
		return nil, nil, 0, fmt.Errorf("%w: client %d tx %d", ErrUnknownTransaction, cmd.Client, cmd.Tx)
	}
	if !stored.Disputable() {
		return nil, nil, 0, fmt.Errorf("%w: client %d tx %d is a %s", ErrNotDisputable, cmd.Client, cmd.Tx, stored.Kind)
	}

	next, err := disputes.Transition(stored.DisputeState, op)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("client %d tx %d: %w", cmd.Client, cmd.Tx, err)
	}
	return account, stored, next, nil
}

func (l *Ledger) unlocked(client uint16) (*Account, error) {
	account, ok := l.accounts[client]
	if !ok {
		return nil, fmt.Errorf("%w: client %d", ErrUnknownAccount, client)
	}
	if account.Locked {
		return nil, fmt.Errorf("%w: client %d", ErrAccountLocked, client)
	}
	return account, nil
}
