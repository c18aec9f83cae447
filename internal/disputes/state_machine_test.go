package disputes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedTransitions(t *testing.T) {
	allowed := AllowedTransitions()

	// NORMAL can only be disputed
	assert.Equal(t, []State{StateDisputed}, allowed[StateNormal])

	// DISPUTED can go to RESOLVED or CHARGED_BACK
	assert.Contains(t, allowed[StateDisputed], StateResolved)
	assert.Contains(t, allowed[StateDisputed], StateChargedBack)
	assert.Equal(t, 2, len(allowed[StateDisputed]))

	// RESOLVED and CHARGED_BACK are terminal
	assert.Empty(t, allowed[StateResolved])
	assert.Empty(t, allowed[StateChargedBack])
}

func TestTransition_HappyPaths(t *testing.T) {
	state, err := Transition(StateNormal, OpDispute)
	require.NoError(t, err)
	assert.Equal(t, StateDisputed, state)

	resolved, err := Transition(state, OpResolve)
	require.NoError(t, err)
	assert.Equal(t, StateResolved, resolved)

	chargedBack, err := Transition(state, OpChargeback)
	require.NoError(t, err)
	assert.Equal(t, StateChargedBack, chargedBack)
}

func TestTransition_Rejections(t *testing.T) {
	tests := []struct {
		name string
		from State
		op   Operation
	}{
		{"resolve before dispute", StateNormal, OpResolve},
		{"chargeback before dispute", StateNormal, OpChargeback},
		{"dispute twice", StateDisputed, OpDispute},
		{"dispute after resolve", StateResolved, OpDispute},
		{"resolve twice", StateResolved, OpResolve},
		{"chargeback after resolve", StateResolved, OpChargeback},
		{"dispute after chargeback", StateChargedBack, OpDispute},
		{"resolve after chargeback", StateChargedBack, OpResolve},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := Transition(tt.from, tt.op)
			require.Error(t, err)
			assert.Equal(t, tt.from, state, "state must be unchanged on rejection")

			var transitionErr *InvalidStateTransitionError
			require.True(t, errors.As(err, &transitionErr))
			assert.Equal(t, tt.from, transitionErr.FromState)
			assert.Equal(t, tt.op, transitionErr.Operation)
		})
	}
}

func TestTransition_UnknownOperation(t *testing.T) {
	state, err := Transition(StateNormal, Operation("reverse"))
	assert.Equal(t, StateNormal, state)

	var opErr *UnknownOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Contains(t, err.Error(), "reverse")
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "NORMAL", StateNormal.String())
	assert.Equal(t, "CHARGED_BACK", StateChargedBack.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
	assert.Equal(t, "Unknown state", StateDescription(State(42)))
	assert.NotEqual(t, StateDescription(StateDisputed), StateDescription(StateResolved))
}
