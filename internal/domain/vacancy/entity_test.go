package vacancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	all := []State{StateOpen, StateAssigned, StateConfirmed, StateCancelled}
	allowed := map[[2]State]bool{
		{StateOpen, StateAssigned}:      true,
		{StateOpen, StateCancelled}:     true,
		{StateAssigned, StateConfirmed}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]State{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestVacancy_Transition(t *testing.T) {
	v := Vacancy{State: StateOpen}

	assert.ErrorIs(t, v.Transition(StateAssigned, nil), ErrEmployeeRequired)
	assert.ErrorIs(t, v.Transition(StateConfirmed, nil), ErrInvalidTransition)

	emp := "emp-1"
	require.NoError(t, v.Transition(StateAssigned, &emp))
	assert.Equal(t, "emp-1", *v.EmployeeID)

	require.NoError(t, v.Transition(StateConfirmed, nil))
	assert.True(t, v.State.Terminal())

	assert.ErrorIs(t, v.Transition(StateOpen, nil), ErrInvalidTransition)
	assert.ErrorIs(t, v.Transition(StateCancelled, nil), ErrInvalidTransition)
}
