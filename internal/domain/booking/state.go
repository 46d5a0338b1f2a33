package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// State is a position in the booking lifecycle.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateAssigned   State = "ASSIGNED"
	StateInProgress State = "IN_PROGRESS"
	StateFinished   State = "FINISHED"
	StateCancelled  State = "CANCELLED"
	StateRemoved    State = "REMOVED"
)

// validTransitions is the lifecycle graph. Terminal states have no outgoing edges.
var validTransitions = map[State][]State{
	StateReceived:   {StateAssigned, StateCancelled, StateRemoved},
	StateAssigned:   {StateInProgress, StateCancelled, StateRemoved},
	StateInProgress: {StateFinished, StateRemoved},
	StateFinished:   {},
	StateCancelled:  {},
	StateRemoved:    {},
}

var orderedStates = []State{
	StateReceived, StateAssigned, StateInProgress, StateFinished, StateCancelled, StateRemoved,
}

// AllStates returns every state in lifecycle order.
func AllStates() []State {
	out := make([]State, len(orderedStates))
	copy(out, orderedStates)
	return out
}

// IsValid returns true if the state is a recognized lifecycle state.
func (s State) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if the graph has an edge from s to target.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this state.
func (s State) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

func (s State) String() string {
	return string(s)
}

// ParseState converts a string to a State. Matching is case-insensitive.
func ParseState(s string) (State, error) {
	state := State(strings.ToUpper(strings.TrimSpace(s)))
	if !state.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid booking state: %s", s))
	}
	return state, nil
}

// StateRecord is an entry of a booking's lifecycle history.
type StateRecord struct {
	State          State
	Timestamp      time.Time
	Administrative bool
}

// TransitionKind distinguishes ordinary moves from staff overrides.
type TransitionKind int

const (
	// TransitionNormal must follow an edge of the lifecycle graph.
	TransitionNormal TransitionKind = iota
	// TransitionOverride may move between any two non-terminal states.
	TransitionOverride
)

func (k TransitionKind) String() string {
	if k == TransitionOverride {
		return "override"
	}
	return "normal"
}

// TransitionRequest asks for a move to Target.
type TransitionRequest struct {
	Kind   TransitionKind
	Target State
}

// Normal builds a request that is validated against the lifecycle graph.
func Normal(target State) TransitionRequest {
	return TransitionRequest{Kind: TransitionNormal, Target: target}
}

// AdministrativeOverride builds a staff request. Non-terminal targets skip the
// edge check; terminal targets are still checked against the graph.
func AdministrativeOverride(target State) TransitionRequest {
	return TransitionRequest{Kind: TransitionOverride, Target: target}
}

// Transition computes the record that results from applying req to current.
// The returned timestamp is never earlier than current's.
func Transition(current StateRecord, req TransitionRequest, now time.Time) (StateRecord, error) {
	if !req.Target.IsValid() {
		return StateRecord{}, domain.NewValidationError(fmt.Sprintf("invalid booking state: %s", req.Target))
	}

	from := current.State
	if from.IsTerminal() || from == req.Target {
		return StateRecord{}, domain.NewInvalidStateError(from.String(), req.Target.String())
	}

	legal := from.CanTransitionTo(req.Target)
	if req.Kind == TransitionOverride && !req.Target.IsTerminal() {
		legal = true
	}
	if !legal {
		return StateRecord{}, domain.NewInvalidStateError(from.String(), req.Target.String())
	}

	ts := now.UTC()
	if ts.Before(current.Timestamp) {
		ts = current.Timestamp
	}
	return StateRecord{
		State:          req.Target,
		Timestamp:      ts,
		Administrative: req.Kind == TransitionOverride,
	}, nil
}
