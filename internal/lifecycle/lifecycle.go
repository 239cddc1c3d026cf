// Package lifecycle tracks the gateway connection as a small state machine.
// Observers run on every accepted transition.
package lifecycle

import (
	"errors"
	"fmt"
	"sync"
)

// State is a connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Resuming
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Resuming:
		return "resuming"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event drives a transition.
type Event int

const (
	// Dial starts a fresh connection.
	Dial Event = iota
	// Ready is the gateway's first ready after a dial.
	Ready
	// Resume starts resuming a dropped session.
	Resume
	// Resumed completes a resume.
	Resumed
	// Drop reports a lost or closed connection.
	Drop
)

func (e Event) String() string {
	switch e {
	case Dial:
		return "dial"
	case Ready:
		return "ready"
	case Resume:
		return "resume"
	case Resumed:
		return "resumed"
	case Drop:
		return "drop"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ErrInvalidTransition is returned when an event does not apply to the
// current state.
var ErrInvalidTransition = errors.New("invalid transition")

type edge struct {
	from State
	on   Event
}

var transitions = map[edge]State{
	{Disconnected, Dial}:   Connecting,
	{Disconnected, Resume}: Resuming,
	{Connecting, Ready}:    Connected,
	{Connecting, Drop}:     Disconnected,
	{Connected, Drop}:      Disconnected,
	{Connected, Ready}:     Connected,
	{Resuming, Resumed}:    Connected,
	{Resuming, Ready}:      Connected,
	{Resuming, Drop}:       Disconnected,
}

// Transition is passed to observers.
type Transition struct {
	From  State
	To    State
	Event Event
}

// Observer is notified after a transition is applied.
type Observer func(Transition)

// Machine is safe for concurrent use. Observers run outside the lock, in
// registration order.
type Machine struct {
	mu        sync.Mutex
	state     State
	observers []Observer
}

// New returns a machine in Disconnected.
func New() *Machine {
	return &Machine{state: Disconnected}
}

// Observe registers o for every later transition.
func (m *Machine) Observe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies ev. An event that does not apply leaves the state unchanged
// and returns ErrInvalidTransition.
func (m *Machine) Fire(ev Event) (Transition, error) {
	m.mu.Lock()
	from := m.state
	to, ok := transitions[edge{from, ev}]
	if !ok {
		m.mu.Unlock()
		return Transition{}, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
	}
	m.state = to
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	t := Transition{From: from, To: to, Event: ev}
	for _, o := range observers {
		o(t)
	}
	return t, nil
}
