// Package session holds the process-wide identity context: the single
// active profile, if any. It is the source of truth for "who is active";
// every other component derives its subscriptions from it and re-derives
// them on change. Only this package's setters mutate the slot.
package session

import (
	"strings"
	"sync"
)

// Identity is the currently active user/profile session.
type Identity struct {
	ID         string
	FirstName  string
	LastName   string
	Email      string
	AvatarPath string
}

type Instance interface {
	// SetActive installs id as the active identity, replacing any
	// previous one.
	SetActive(id Identity)
	// Clear signs the context out. The pending action is dropped with the
	// identity; a handoff must not outlive the profile that queued it.
	Clear()
	// Active returns the active identity, if any.
	Active() (Identity, bool)
	// FullName joins the active identity's name parts. Empty string when
	// signed out or when both parts are unset.
	FullName() string

	SetPendingAction(a PendingAction)
	// TakePendingAction returns and clears the queued action, so a
	// handoff fires at most once.
	TakePendingAction() (PendingAction, bool)

	// OnChange registers a hook invoked after every identity change with
	// the outgoing and incoming identity (either may be nil). Hooks run
	// in registration order, outside the context's lock. The returned
	// function removes the hook and is safe to call more than once.
	OnChange(fn func(old *Identity, cur *Identity)) func()
}

func New() Instance {
	return &inst{
		listeners: map[int]func(*Identity, *Identity){},
	}
}

type inst struct {
	mu        sync.Mutex
	active    *Identity
	pending   PendingAction
	listeners map[int]func(*Identity, *Identity)
	order     []int
	nextID    int
}

func (s *inst) SetActive(id Identity) {
	s.swap(&id)
}

func (s *inst) Clear() {
	s.swap(nil)
}

func (s *inst) swap(cur *Identity) {
	s.mu.Lock()

	old := s.active
	s.active = cur

	if cur == nil {
		s.pending = PendingAction{}
	}

	fns := make([]func(*Identity, *Identity), 0, len(s.order))
	for _, id := range s.order {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}

	s.mu.Unlock()

	var oldCopy, curCopy *Identity
	if old != nil {
		c := *old
		oldCopy = &c
	}
	if cur != nil {
		c := *cur
		curCopy = &c
	}

	for _, fn := range fns {
		fn(oldCopy, curCopy)
	}
}

func (s *inst) Active() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return Identity{}, false
	}

	return *s.active, true
}

func (s *inst) FullName() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return ""
	}

	return strings.TrimSpace(strings.TrimSpace(s.active.FirstName) + " " + strings.TrimSpace(s.active.LastName))
}

func (s *inst) SetPendingAction(a PendingAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = a
}

func (s *inst) TakePendingAction() (PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.pending
	s.pending = PendingAction{}

	return a, a.Kind != PendingNone
}

func (s *inst) OnChange(fn func(old *Identity, cur *Identity)) func() {
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
