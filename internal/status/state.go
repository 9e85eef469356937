package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/msgr/internal/bus"
)

// State represents the client lifecycle state.
type State string

const (
	Booting        State = "BOOTING"
	AuthRequired   State = "AUTH_REQUIRED"
	Authenticating State = "AUTHENTICATING"
	Syncing        State = "SYNCING"
	Ready          State = "READY"
	Degraded       State = "DEGRADED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:        {AuthRequired, Syncing},
	AuthRequired:   {Authenticating},
	Authenticating: {Syncing, AuthRequired},
	Syncing:        {Ready, Degraded, AuthRequired},
	Ready:          {Degraded, AuthRequired},
	Degraded:       {Ready, AuthRequired},
}

// Machine tracks and enforces client state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(to)
}

// Ensure moves to the given state unless the machine is already there.
func (m *Machine) Ensure(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == to {
		return nil
	}
	return m.transitionLocked(to)
}

func (m *Machine) transitionLocked(to State) error {
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(bus.StatusChanged, StatusChange{From: from, To: to})
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
