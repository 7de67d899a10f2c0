// Package notifications maintains the "unread notifications exist" flag
// for the active identity, off a realtime subscription to the
// notifications collection. The flag is best-effort badge state: a failed
// subscription is logged and leaves the flag false.
package notifications

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/petstead/api/internal/svc/docstore"
	"github.com/petstead/api/internal/svc/session"
)

type Instance interface {
	// HasNotifications reports whether at least one notification
	// addresses the active identity. Always false while signed out.
	HasNotifications() bool
	// OnChange registers a hook invoked whenever the flag flips.
	OnChange(fn func(has bool)) func()
	// Close tears the feed down. Closing twice is a no-op.
	Close()
}

type Options struct {
	Session session.Instance
	Store   docstore.Instance
}

func New(opt Options) Instance {
	f := &feed{
		store:     opt.Store,
		listeners: map[int]func(bool){},
	}

	f.removeSession = opt.Session.OnChange(func(_, cur *session.Identity) {
		f.rescope(cur)
	})

	if id, ok := opt.Session.Active(); ok {
		f.rescope(&id)
	}

	return f
}

type feed struct {
	store docstore.Instance

	mu            sync.Mutex
	removeSession func()
	unsubscribe   docstore.Unsubscribe
	generation    int
	has           bool
	closed        bool

	listeners  map[int]func(bool)
	order      []int
	nextListen int
}

// rescope tears down the previous identity's subscription and, when cur is
// non-nil, subscribes for it. Teardown strictly precedes the new
// subscription so no snapshot for a stale identity can land afterwards.
func (f *feed) rescope(cur *session.Identity) {
	f.mu.Lock()

	if f.closed {
		f.mu.Unlock()

		return
	}

	unsub := f.unsubscribe
	f.unsubscribe = nil
	f.generation++
	gen := f.generation

	f.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	if cur == nil {
		f.setFlag(gen, false)

		return
	}

	receiverID := cur.ID

	unsub, err := f.store.Subscribe(context.Background(), docstore.Query{
		Path:       "notifications",
		Predicates: []docstore.Predicate{docstore.Where("receiver_id", docstore.OpEqual, receiverID)},
	}, func(snapshot []docstore.Document) {
		f.setFlag(gen, len(snapshot) > 0)
	})
	if err != nil {
		zap.S().Errorw("failed to subscribe notification feed",
			"error", err,
			"receiver_id", receiverID,
		)

		f.setFlag(gen, false)

		return
	}

	f.mu.Lock()

	if f.generation != gen || f.closed {
		// Scope moved on while the subscription was being set up.
		f.mu.Unlock()
		unsub()

		return
	}

	f.unsubscribe = unsub
	f.mu.Unlock()
}

func (f *feed) setFlag(gen int, has bool) {
	f.mu.Lock()

	if f.generation != gen || f.has == has {
		f.mu.Unlock()

		return
	}

	f.has = has

	fns := make([]func(bool), 0, len(f.order))
	for _, id := range f.order {
		if fn, ok := f.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}

	f.mu.Unlock()

	for _, fn := range fns {
		fn(has)
	}
}

func (f *feed) HasNotifications() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.has
}

func (f *feed) OnChange(fn func(bool)) func() {
	f.mu.Lock()

	id := f.nextListen
	f.nextListen++
	f.listeners[id] = fn
	f.order = append(f.order, id)

	f.mu.Unlock()

	once := sync.Once{}

	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners, id)
			f.mu.Unlock()
		})
	}
}

func (f *feed) Close() {
	f.mu.Lock()

	if f.closed {
		f.mu.Unlock()

		return
	}

	f.closed = true
	f.generation++
	f.has = false
	removeSession := f.removeSession
	f.removeSession = nil
	unsub := f.unsubscribe
	f.unsubscribe = nil

	f.mu.Unlock()

	if removeSession != nil {
		removeSession()
	}

	if unsub != nil {
		unsub()
	}
}
