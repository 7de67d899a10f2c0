// Package presence keeps the remote presence fact in sync with
// application foreground/background transitions, for the active identity
// only. Presence is advisory: writes are best-effort, last write wins, and
// a dropped update is logged and forgotten.
package presence

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/petstead/api/data/model"
	"github.com/petstead/api/internal/events"
	"github.com/petstead/api/internal/instance"
	"github.com/petstead/api/internal/lifecycle"
	"github.com/petstead/api/internal/svc/docstore"
	"github.com/petstead/api/internal/svc/session"
)

type Instance interface {
	// Close detaches from the session and lifecycle sources. Closing
	// twice is a no-op.
	Close()
}

type Options struct {
	Session    session.Instance
	Store      docstore.Instance
	Lifecycle  lifecycle.Source
	Events     instance.Events
	Prometheus instance.Prometheus
}

func New(opt Options) Instance {
	t := &tracker{
		store:      opt.Store,
		lifecycle:  opt.Lifecycle,
		events:     opt.Events,
		prometheus: opt.Prometheus,
	}

	t.removeSession = opt.Session.OnChange(t.onIdentityChange)

	if id, ok := opt.Session.Active(); ok {
		t.attach(id.ID)
	}

	return t
}

type tracker struct {
	store      docstore.Instance
	lifecycle  lifecycle.Source
	events     instance.Events
	prometheus instance.Prometheus

	mu              sync.Mutex
	removeSession   func()
	removeLifecycle func()
	closed          bool
}

func (t *tracker) onIdentityChange(_ *session.Identity, cur *session.Identity) {
	// The old identity's subscription comes down before the new one goes
	// up, so no lifecycle event can ever write presence for an identity
	// that is no longer active.
	t.detach()

	if cur != nil {
		t.attach(cur.ID)
	}
}

func (t *tracker) attach(subjectID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	t.removeLifecycle = t.lifecycle.Subscribe(func(s lifecycle.State) {
		t.write(subjectID, s.Presence())
	})
}

func (t *tracker) detach() {
	t.mu.Lock()
	remove := t.removeLifecycle
	t.removeLifecycle = nil
	t.mu.Unlock()

	if remove != nil {
		remove()
	}
}

func (t *tracker) write(subjectID string, status model.ActiveStatus) {
	err := t.store.PutMerged(context.Background(), "users/"+subjectID, bson.M{
		"active_status":  status,
		"last_online_at": t.store.Now(),
	})
	if err != nil {
		zap.S().Errorw("failed to write presence",
			"error", err,
			"subject_id", subjectID,
		)

		return
	}

	if t.prometheus != nil {
		t.prometheus.PresenceWrite(string(status))
	}

	if t.events != nil {
		if err = t.events.Publish(events.SubjectPresence(subjectID), model.PresenceModel{
			SubjectID:    subjectID,
			ActiveStatus: status,
		}); err != nil {
			zap.S().Warnw("failed to fan out presence",
				"error", err,
				"subject_id", subjectID,
			)
		}
	}
}

func (t *tracker) Close() {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()

		return
	}

	t.closed = true
	removeSession := t.removeSession
	t.removeSession = nil
	t.mu.Unlock()

	if removeSession != nil {
		removeSession()
	}

	t.detach()
}
