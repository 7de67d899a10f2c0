package presence

import (
	"context"
	"testing"

	"github.com/petstead/api/data/model"
	"github.com/petstead/api/internal/lifecycle"
	"github.com/petstead/api/internal/svc/docstore"
	"github.com/petstead/api/internal/svc/session"
	"github.com/petstead/api/internal/testutil"
)

func setup() (session.Instance, *docstore.MockInstance, lifecycle.Source, Instance) {
	sess := session.New()
	store := docstore.NewMock()
	src := lifecycle.New()

	tracker := New(Options{
		Session:   sess,
		Store:     store,
		Lifecycle: src,
	})

	return sess, store, src, tracker
}

func TestOneWritePerLifecycleEvent(t *testing.T) {
	t.Parallel()

	sess, store, src, tracker := setup()
	defer tracker.Close()

	sess.SetActive(session.Identity{ID: "u1"})

	src.Report(lifecycle.StateBackground)
	src.Report(lifecycle.StateActive)
	src.Report(lifecycle.StateInactive)

	testutil.Assert(t, 3, store.WriteCount("put_merged"), "one presence write per event")

	doc, err := store.FetchOne(context.Background(), "users/u1")
	testutil.IsNil(t, err, "presence fact exists")
	testutil.Assert(t, model.ActiveStatusInactive, doc.Data["active_status"].(model.ActiveStatus), "last event's classification wins")
	testutil.IsNotNil(t, doc.Data["last_online_at"], "server timestamp recorded")
}

func TestNoWritesWhileSignedOut(t *testing.T) {
	t.Parallel()

	_, store, src, tracker := setup()
	defer tracker.Close()

	src.Report(lifecycle.StateBackground)
	src.Report(lifecycle.StateActive)

	testutil.Assert(t, 0, store.WriteCount("put_merged"), "no identity, no presence writes")
}

func TestIdentityChangeRescopesWrites(t *testing.T) {
	t.Parallel()

	sess, store, src, tracker := setup()
	defer tracker.Close()

	sess.SetActive(session.Identity{ID: "u1"})
	src.Report(lifecycle.StateActive)

	sess.SetActive(session.Identity{ID: "u2"})
	src.Report(lifecycle.StateBackground)
	src.Report(lifecycle.StateBackground)

	log := store.OpLog()

	writes := []string{}
	for _, rec := range log {
		if rec.Op == "put_merged" {
			writes = append(writes, rec.Path)
		}
	}

	testutil.AssertDeep(t, []string{"users/u1", "users/u2", "users/u2"}, writes, "events after the switch never touch the stale identity")
}

func TestClearStopsTracking(t *testing.T) {
	t.Parallel()

	sess, store, src, tracker := setup()
	defer tracker.Close()

	sess.SetActive(session.Identity{ID: "u1"})
	src.Report(lifecycle.StateActive)

	sess.Clear()
	src.Report(lifecycle.StateBackground)

	testutil.Assert(t, 1, store.WriteCount("put_merged"), "no writes once signed out")
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	sess, store, src, tracker := setup()
	defer tracker.Close()

	store.FailHook = func(op, path string) error {
		if op == "put_merged" {
			return context.DeadlineExceeded
		}

		return nil
	}

	sess.SetActive(session.Identity{ID: "u1"})

	// Must not panic or surface anywhere; presence is best-effort.
	src.Report(lifecycle.StateBackground)

	store.FailHook = nil
	src.Report(lifecycle.StateActive)

	doc, err := store.FetchOne(context.Background(), "users/u1")
	testutil.IsNil(t, err, "later write succeeds")
	testutil.Assert(t, model.ActiveStatusActive, doc.Data["active_status"].(model.ActiveStatus), "recovered")
}

func TestCloseDetaches(t *testing.T) {
	t.Parallel()

	sess, store, src, tracker := setup()

	sess.SetActive(session.Identity{ID: "u1"})

	tracker.Close()
	tracker.Close() // closing twice is a no-op

	src.Report(lifecycle.StateBackground)
	sess.SetActive(session.Identity{ID: "u2"})
	src.Report(lifecycle.StateBackground)

	testutil.Assert(t, 0, store.WriteCount("put_merged"), "closed tracker never writes")
}
