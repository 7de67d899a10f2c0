package notifications

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/petstead/api/internal/svc/docstore"
	"github.com/petstead/api/internal/svc/session"
	"github.com/petstead/api/internal/testutil"
)

func setup() (session.Instance, *docstore.MockInstance, Instance) {
	sess := session.New()
	store := docstore.NewMock()
	feed := New(Options{Session: sess, Store: store})

	return sess, store, feed
}

func notify(t *testing.T, store *docstore.MockInstance, receiverID string) {
	t.Helper()

	_, err := store.Create(context.Background(), "notifications", bson.M{"receiver_id": receiverID})
	testutil.IsNil(t, err, "insert notification")
}

func TestFlagFollowsMatchingDocuments(t *testing.T) {
	t.Parallel()

	sess, store, feed := setup()
	defer feed.Close()

	sess.SetActive(session.Identity{ID: "u1"})
	testutil.Assert(t, false, feed.HasNotifications(), "zero matching documents")

	notify(t, store, "u1")
	testutil.Assert(t, true, feed.HasNotifications(), "flag flips on the next snapshot")

	notify(t, store, "someone-else")
	testutil.Assert(t, true, feed.HasNotifications(), "non-matching documents do not clear it")
}

func TestFalseWhileSignedOut(t *testing.T) {
	t.Parallel()

	sess, store, feed := setup()
	defer feed.Close()

	notify(t, store, "u1")
	testutil.Assert(t, false, feed.HasNotifications(), "inactive feed pins false")

	sess.SetActive(session.Identity{ID: "u1"})
	testutil.Assert(t, true, feed.HasNotifications(), "activation picks up existing documents")

	sess.Clear()
	testutil.Assert(t, false, feed.HasNotifications(), "sign-out resets the flag")
}

func TestRescopeOnIdentityChange(t *testing.T) {
	t.Parallel()

	sess, store, feed := setup()
	defer feed.Close()

	sess.SetActive(session.Identity{ID: "u1"})
	notify(t, store, "u1")
	testutil.Assert(t, true, feed.HasNotifications(), "u1 has notifications")

	sess.SetActive(session.Identity{ID: "u2"})
	testutil.Assert(t, false, feed.HasNotifications(), "u2 starts clean")

	// More traffic for the previous identity must not reach the feed.
	notify(t, store, "u1")
	testutil.Assert(t, false, feed.HasNotifications(), "stale identity's documents are invisible")

	notify(t, store, "u2")
	testutil.Assert(t, true, feed.HasNotifications(), "current identity's documents are visible")
}

func TestOnChangeFiresOnFlips(t *testing.T) {
	t.Parallel()

	sess, store, feed := setup()
	defer feed.Close()

	got := []bool{}
	remove := feed.OnChange(func(has bool) {
		got = append(got, has)
	})
	defer remove()

	sess.SetActive(session.Identity{ID: "u1"})
	notify(t, store, "u1")
	notify(t, store, "u1")
	sess.Clear()

	testutil.AssertDeep(t, []bool{true, false}, got, "one callback per flip, not per snapshot")
}

func TestCloseTearsDown(t *testing.T) {
	t.Parallel()

	sess, store, feed := setup()

	sess.SetActive(session.Identity{ID: "u1"})

	feed.Close()
	feed.Close() // closing twice is a no-op

	notify(t, store, "u1")
	testutil.Assert(t, false, feed.HasNotifications(), "closed feed never flips")
}
