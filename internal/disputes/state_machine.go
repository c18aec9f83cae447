package disputes

import (
	"fmt"
)

// State is the lifecycle tag carried by a posted deposit.
type State uint8

const (
	StateNormal State = iota
	StateDisputed
	StateResolved
	StateChargedBack
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateDisputed:
		return "DISPUTED"
	case StateResolved:
		return "RESOLVED"
	case StateChargedBack:
		return "CHARGED_BACK"
	default:
		return "UNKNOWN"
	}
}

// Operation names a command that moves a deposit through its lifecycle.
type Operation string

const (
	OpDispute    Operation = "dispute"
	OpResolve    Operation = "resolve"
	OpChargeback Operation = "chargeback"
)

// InvalidStateTransitionError represents an invalid state transition
type InvalidStateTransitionError struct {
	FromState State
	ToState   State
	Operation Operation
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s for %s", e.FromState, e.ToState, e.Operation)
}

// UnknownOperationError is returned for operations outside the lifecycle.
type UnknownOperationError struct {
	Operation Operation
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %s", e.Operation)
}

// AllowedTransitions defines valid state transitions. Resolved and
// ChargedBack are terminal, so a deposit is disputed at most once.
func AllowedTransitions() map[State][]State {
	return map[State][]State{
		StateNormal:      {StateDisputed},
		StateDisputed:    {StateResolved, StateChargedBack},
		StateResolved:    {},
		StateChargedBack: {},
	}
}

// IsValidTransition checks if a state transition is allowed
func IsValidTransition(from, to State) bool {
	for _, allowed := range AllowedTransitions()[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TargetState maps an operation to the state it moves a deposit into.
func TargetState(op Operation) (State, error) {
	switch op {
	case OpDispute:
		return StateDisputed, nil
	case OpResolve:
		return StateResolved, nil
	case OpChargeback:
		return StateChargedBack, nil
	default:
		return StateNormal, &UnknownOperationError{Operation: op}
	}
}

// Transition returns the state reached by applying op in state from, or an
// error when the lifecycle forbids it. The caller owns the state value.
func Transition(from State, op Operation) (State, error) {
	to, err := TargetState(op)
	if err != nil {
		return from, err
	}
	if !IsValidTransition(from, to) {
		return from, &InvalidStateTransitionError{FromState: from, ToState: to, Operation: op}
	}
	return to, nil
}

// StateDescription provides human-readable descriptions of states
func StateDescription(state State) string {
	switch state {
	case StateNormal:
		return "Deposit is posted and eligible for dispute"
	case StateDisputed:
		return "Deposit is under dispute with its funds held"
	case StateResolved:
		return "Dispute was resolved and held funds released"
	case StateChargedBack:
		return "Dispute ended in a chargeback and the account is locked"
	default:
		return "Unknown state"
	}
}
