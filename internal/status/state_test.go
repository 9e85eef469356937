package status

import (
	"testing"

	"github.com/matheus3301/msgr/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, AuthRequired},
		{Booting, Syncing},
		{AuthRequired, Authenticating},
		{Authenticating, Syncing},
		{Authenticating, AuthRequired},
		{Syncing, Ready},
		{Syncing, Degraded},
		{Ready, Degraded},
		{Ready, AuthRequired},
		{Degraded, Ready},
		{Degraded, AuthRequired},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(BOOTING -> READY) should fail")
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("client.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(AuthRequired); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.StatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.StatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != AuthRequired {
		t.Errorf("change = %v -> %v, want BOOTING -> AUTH_REQUIRED", change.From, change.To)
	}
}

// Signing in must go through AUTHENTICATING; a signed-out client never jumps
// straight to SYNCING.
func TestAuthRequiredToSyncingRequiresAuthenticating(t *testing.T) {
	m := NewMachine(nil)
	_ = m.Transition(AuthRequired)

	if err := m.Transition(Syncing); err == nil {
		t.Fatal("Transition(AUTH_REQUIRED -> SYNCING) should fail")
	}
	if m.Current() != AuthRequired {
		t.Errorf("state = %s, want AUTH_REQUIRED (should not have changed)", m.Current())
	}
}

// BOOTING → AUTH_REQUIRED → AUTHENTICATING → SYNCING → READY
func TestFirstLoginLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{AuthRequired, Authenticating, Syncing, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
}

// BOOTING → SYNCING → READY with a restored session.
func TestRestoredSessionLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Syncing, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
}

func TestEnsureIsNoopWhenAlreadyThere(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe(bus.StatusChanged, 10)
	defer unsub()

	m := NewMachine(b)
	walkTo(t, m, Degraded)
	n := len(ch)
	if err := m.Ensure(Degraded); err != nil {
		t.Fatalf("Ensure(DEGRADED): %v", err)
	}
	if len(ch) != n {
		t.Error("Ensure on the current state should not publish")
	}
	if err := m.Ensure(Ready); err != nil {
		t.Fatalf("Ensure(READY): %v", err)
	}
	if m.Current() != Ready {
		t.Errorf("state = %s, want READY", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:        {},
		AuthRequired:   {AuthRequired},
		Authenticating: {AuthRequired, Authenticating},
		Syncing:        {Syncing},
		Ready:          {Syncing, Ready},
		Degraded:       {Syncing, Degraded},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
