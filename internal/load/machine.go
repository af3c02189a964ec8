// v0
// internal/load/machine.go
package load

import (
	"errors"
	"fmt"
)

// Phase is the position of the dashboard data load.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// FailureMessage is shown to the user when a load fails.
const FailureMessage = "Failed to load dashboard data. Please try again."

// ErrInvalidTransition is returned for events not allowed in the current
// phase.
var ErrInvalidTransition = errors.New("invalid load transition")

// Machine is the idle -> loading -> ready|error state machine. Retry leaves
// error and Refresh leaves ready, both back to loading. It is not safe for
// concurrent use.
type Machine struct {
	phase   Phase
	message string
	cause   error
	attempt int
}

// NewMachine returns a machine in the idle phase.
func NewMachine() *Machine {
	return &Machine{phase: PhaseIdle}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Message returns the user-visible error text, empty outside the error phase.
func (m *Machine) Message() string { return m.message }

// Cause returns the error behind the last failure.
func (m *Machine) Cause() error { return m.cause }

// Attempt counts how many times loading was entered.
func (m *Machine) Attempt() int { return m.attempt }

// Mount starts the first load.
func (m *Machine) Mount() error {
	return m.enter(PhaseIdle, "mount")
}

// Retry starts a new load after a failure.
func (m *Machine) Retry() error {
	return m.enter(PhaseError, "retry")
}

// Refresh reloads data that is already shown.
func (m *Machine) Refresh() error {
	return m.enter(PhaseReady, "refresh")
}

// Complete settles the running load: ready when err is nil, error otherwise.
func (m *Machine) Complete(err error) error {
	if m.phase != PhaseLoading {
		return fmt.Errorf("complete from %s: %w", m.phase, ErrInvalidTransition)
	}
	if err != nil {
		m.phase = PhaseError
		m.message = FailureMessage
		m.cause = err
		return nil
	}
	m.phase = PhaseReady
	return nil
}

func (m *Machine) enter(from Phase, event string) error {
	if m.phase != from {
		return fmt.Errorf("%s from %s: %w", event, m.phase, ErrInvalidTransition)
	}
	m.phase = PhaseLoading
	m.message = ""
	m.cause = nil
	m.attempt++
	return nil
}
