package models

import (
	"fmt"
	"strings"
)

// StateKind identifies the structural category of a task state.
type StateKind string

const (
	// StateConfirm means the task is awaiting a yes/no to begin.
	StateConfirm StateKind = "confirm"
	// StateClarify means the task is awaiting a clarifying reply before routing.
	StateClarify StateKind = "clarify"
	// StateExecuting means a phase executor call is in flight for the named phase.
	StateExecuting StateKind = "executing"
	// StateReview means the task is awaiting human judgment on the named phase's artifact.
	StateReview StateKind = "review"
	// StateCompleted is the successful terminal state.
	StateCompleted StateKind = "completed"
	// StateCancelled is the terminal state reached via a cancellation keyword.
	StateCancelled StateKind = "cancelled"
	// StateErrored is the terminal state reached on executor failure or timeout.
	StateErrored StateKind = "errored"
)

// Valid returns true if the kind is a known value.
func (k StateKind) Valid() bool {
	switch k {
	case StateConfirm, StateClarify, StateExecuting, StateReview,
		StateCompleted, StateCancelled, StateErrored:
		return true
	default:
		return false
	}
}

// State is the position of a task in its phase state machine.
// Executing and review states carry the phase name they refer to.
type State struct {
	// Kind is the structural category of the state.
	Kind StateKind
	// Phase is the phase name for executing/review states, empty otherwise.
	Phase string
}

// Confirm returns the initial confirmation state.
func Confirm() State { return State{Kind: StateConfirm} }

// Clarify returns the clarification-pending state.
func Clarify() State { return State{Kind: StateClarify} }

// Executing returns an executing state for the given phase.
func Executing(phase string) State { return State{Kind: StateExecuting, Phase: phase} }

// Review returns a review state for the given phase.
func Review(phase string) State { return State{Kind: StateReview, Phase: phase} }

// Completed returns the successful terminal state.
func Completed() State { return State{Kind: StateCompleted} }

// Cancelled returns the cancelled terminal state.
func Cancelled() State { return State{Kind: StateCancelled} }

// Errored returns the errored terminal state.
func Errored() State { return State{Kind: StateErrored} }

// Terminal returns true if the state has no outgoing transitions.
func (s State) Terminal() bool {
	switch s.Kind {
	case StateCompleted, StateCancelled, StateErrored:
		return true
	default:
		return false
	}
}

// String encodes the state as "kind" or "kind:phase".
func (s State) String() string {
	if s.Phase != "" {
		return string(s.Kind) + ":" + s.Phase
	}
	return string(s.Kind)
}

// ParseState decodes a state produced by String. Unknown kinds are rejected
// rather than passed through, so a corrupted tag surfaces as an error instead
// of a silent no-op in the state machine.
func ParseState(raw string) (State, error) {
	kindStr, phase, _ := strings.Cut(raw, ":")
	kind := StateKind(kindStr)
	if !kind.Valid() {
		return State{}, fmt.Errorf("unknown state kind %q", kindStr)
	}
	if phase != "" && kind != StateExecuting && kind != StateReview {
		return State{}, fmt.Errorf("state kind %q does not carry a phase", kindStr)
	}
	return State{Kind: kind, Phase: phase}, nil
}
