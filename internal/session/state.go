package session

import (
	"errors"
	"sync"
)

// State is the user-visible lifecycle state of a session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateActive
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyProcessing is returned when a connect is already in flight.
	ErrAlreadyProcessing = errors.New("session connect already in progress")
	// ErrAlreadyActive is returned when the session is already active.
	ErrAlreadyActive = errors.New("session already active")
	// ErrNotConnecting is returned when activation is attempted outside a
	// connect sequence.
	ErrNotConnecting = errors.New("session is not connecting")
)

// machine guards lifecycle transitions. Transitions are synchronous so a
// caller observes the new state immediately; the work they announce
// (connecting, teardown) runs asynchronously.
type machine struct {
	mu     sync.Mutex
	state  State
	errMsg string
}

// BeginConnect moves disconnected or error to connecting. A concurrent call
// while a connect is in flight is rejected, preventing double-connect races.
func (m *machine) BeginConnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateConnecting:
		return ErrAlreadyProcessing
	case StateActive:
		return ErrAlreadyActive
	}
	m.state = StateConnecting
	m.errMsg = ""
	return nil
}

// Activate moves connecting to active.
func (m *machine) Activate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnecting {
		return ErrNotConnecting
	}
	m.state = StateActive
	return nil
}

// Fail moves any state to error with a message.
func (m *machine) Fail(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateError
	m.errMsg = msg
}

// Disconnect moves any state to disconnected.
func (m *machine) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateDisconnected
	m.errMsg = ""
}

// Current returns the state and, in the error state, its message.
func (m *machine) Current() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.errMsg
}
