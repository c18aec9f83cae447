package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CommandType identifies what a Command does.
type CommandType uint8

const (
	CommandDeposit CommandType = iota + 1
	CommandWithdrawal
	CommandDispute
	CommandResolve
	CommandChargeback
)

func (c CommandType) String() string {
	switch c {
	case CommandDeposit:
		return "deposit"
	case CommandWithdrawal:
		return "withdrawal"
	case CommandDispute:
		return "dispute"
	case CommandResolve:
		return "resolve"
	case CommandChargeback:
		return "chargeback"
	default:
		return "unknown"
	}
}

// ParseCommandType accepts the input spelling of a type, case-insensitive
// and ignoring surrounding whitespace.
func ParseCommandType(s string) (CommandType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return CommandDeposit, true
	case "withdrawal":
		return CommandWithdrawal, true
	case "dispute":
		return CommandDispute, true
	case "resolve":
		return CommandResolve, true
	case "chargeback":
		return CommandChargeback, true
	default:
		return 0, false
	}
}

// Command is one validated instruction for the ledger. Amount is set only
// for deposits and withdrawals.
type Command struct {
	Type   CommandType
	Client uint16
	Tx     uint32
	Amount decimal.Decimal
}

func (c Command) String() string {
	if c.Type == CommandDeposit || c.Type == CommandWithdrawal {
		return fmt.Sprintf("%s client=%d tx=%d amount=%s", c.Type, c.Client, c.Tx, c.Amount.String())
	}
	return fmt.Sprintf("%s client=%d tx=%d", c.Type, c.Client, c.Tx)
}

// Deposit credits amount to client under transaction tx.
func Deposit(client uint16, tx uint32, amount decimal.Decimal) Command {
	return Command{Type: CommandDeposit, Client: client, Tx: tx, Amount: amount}
}

// Withdrawal debits amount from client under transaction tx.
func Withdrawal(client uint16, tx uint32, amount decimal.Decimal) Command {
	return Command{Type: CommandWithdrawal, Client: client, Tx: tx, Amount: amount}
}

// Dispute holds the funds of deposit tx.
func Dispute(client uint16, tx uint32) Command {
	return Command{Type: CommandDispute, Client: client, Tx: tx}
}

// Resolve releases the held funds of a disputed deposit.
func Resolve(client uint16, tx uint32) Command {
	return Command{Type: CommandResolve, Client: client, Tx: tx}
}

// Chargeback removes the held funds of a disputed deposit and locks the account.
func Chargeback(client uint16, tx uint32) Command {
	return Command{Type: CommandChargeback, Client: client, Tx: tx}
}

// RawRecord is a typed input row before validation. Amount is nil when the
// row carried no amount.
type RawRecord struct {
	Type   string
	Client uint16
	Tx     uint32
	Amount *decimal.Decimal
}

// Normalize turns a raw record into a Command or returns the rejection.
func Normalize(raw RawRecord) (Command, error) {
	typ, ok := ParseCommandType(raw.Type)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownType, raw.Type)
	}

	cmd := Command{Type: typ, Client: raw.Client, Tx: raw.Tx}

	switch typ {
	case CommandDeposit, CommandWithdrawal:
		if raw.Amount == nil {
			return Command{}, fmt.Errorf("%w for %s tx %d", ErrMissingAmount, typ, raw.Tx)
		}
		if !raw.Amount.IsPositive() {
			return Command{}, fmt.Errorf("%w: %s tx %d has %s", ErrInvalidAmount, typ, raw.Tx, raw.Amount.String())
		}
		cmd.Amount = *raw.Amount
	default:
		// amount is ignored for dispute/resolve/chargeback
	}

	return cmd, nil
}
