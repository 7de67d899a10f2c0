// Package lifecycle carries application foreground/background state
// changes from the UI shell into the core. Handlers run synchronously in
// report order, so event handling completes in the order the shell
// observed the transitions.
package lifecycle

import (
	"sync"

	"github.com/petstead/api/data/model"
)

type State string

const (
	StateActive     State = "active"
	StateBackground State = "background"
	StateInactive   State = "inactive"
)

// Valid reports whether s is a known application state.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateBackground, StateInactive:
		return true
	default:
		return false
	}
}

// Presence classifies an application state as a presence fact: foreground
// is active, everything else is inactive.
func (s State) Presence() model.ActiveStatus {
	if s == StateActive {
		return model.ActiveStatusActive
	}

	return model.ActiveStatusInactive
}

type Source interface {
	// Report feeds one state transition from the shell.
	Report(s State)
	// Subscribe registers a handler for future transitions. The returned
	// function removes it; removing twice is a no-op.
	Subscribe(fn func(State)) func()
}

func New() Source {
	return &source{
		listeners: map[int]func(State){},
	}
}

type source struct {
	mu        sync.Mutex
	listeners map[int]func(State)
	order     []int
	nextID    int
}

func (s *source) Report(state State) {
	s.mu.Lock()

	fns := make([]func(State), 0, len(s.order))
	for _, id := range s.order {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}

	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (s *source) Subscribe(fn func(State)) func() {
	s.mu.Lock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)

	s.mu.Unlock()

	once := sync.Once{}

	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
