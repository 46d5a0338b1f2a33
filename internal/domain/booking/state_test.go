package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zm-collect/service-booking/internal/platform/domain"
)

func TestTransition_NormalEdges(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateReceived, StateAssigned, true},
		{StateReceived, StateCancelled, true},
		{StateReceived, StateRemoved, true},
		{StateReceived, StateInProgress, false},
		{StateReceived, StateFinished, false},
		{StateAssigned, StateInProgress, true},
		{StateAssigned, StateCancelled, true},
		{StateAssigned, StateRemoved, true},
		{StateAssigned, StateReceived, false},
		{StateInProgress, StateFinished, true},
		{StateInProgress, StateRemoved, true},
		{StateInProgress, StateCancelled, false},
		{StateFinished, StateAssigned, false},
		{StateCancelled, StateReceived, false},
		{StateRemoved, StateReceived, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			rec, err := Transition(StateRecord{State: tt.from, Timestamp: now}, Normal(tt.to), now)
			if !tt.ok {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, rec.State)
			assert.False(t, rec.Administrative)
		})
	}
}

func TestTransition_SelfTransitionRejected(t *testing.T) {
	for _, s := range AllStates() {
		_, err := Transition(StateRecord{State: s}, Normal(s), time.Now())
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, s)
		_, err = Transition(StateRecord{State: s}, AdministrativeOverride(s), time.Now())
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, s)
	}
}

func TestTransition_Override(t *testing.T) {
	now := time.Now()

	rec, err := Transition(StateRecord{State: StateInProgress}, AdministrativeOverride(StateReceived), now)
	require.NoError(t, err)
	assert.Equal(t, StateReceived, rec.State)
	assert.True(t, rec.Administrative)

	rec, err = Transition(StateRecord{State: StateReceived}, AdministrativeOverride(StateRemoved), now)
	require.NoError(t, err)
	assert.True(t, rec.Administrative)

	// terminal targets still follow the graph
	_, err = Transition(StateRecord{State: StateReceived}, AdministrativeOverride(StateFinished), now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = Transition(StateRecord{State: StateInProgress}, AdministrativeOverride(StateCancelled), now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// nothing leaves a terminal state
	_, err = Transition(StateRecord{State: StateFinished}, AdministrativeOverride(StateAssigned), now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransition_UnknownTarget(t *testing.T) {
	_, err := Transition(StateRecord{State: StateReceived}, Normal("LOST"), time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransition_TimestampNeverGoesBackwards(t *testing.T) {
	later := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rec, err := Transition(StateRecord{State: StateReceived, Timestamp: later}, Normal(StateAssigned), later.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, later, rec.Timestamp)
}

func TestParseState(t *testing.T) {
	s, err := ParseState("in_progress")
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, s)

	_, err = ParseState("DONE")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestState_IsTerminal(t *testing.T) {
	assert.False(t, StateReceived.IsTerminal())
	assert.False(t, StateAssigned.IsTerminal())
	assert.False(t, StateInProgress.IsTerminal())
	assert.True(t, StateFinished.IsTerminal())
	assert.True(t, StateCancelled.IsTerminal())
	assert.True(t, StateRemoved.IsTerminal())
}
