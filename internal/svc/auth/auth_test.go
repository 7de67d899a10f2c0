package auth

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/petstead/api/data/model"
	"github.com/petstead/api/internal/errors"
	"github.com/petstead/api/internal/svc/docstore"
	"github.com/petstead/api/internal/svc/session"
	"github.com/petstead/api/internal/testutil"
)

func seedUser(t *testing.T, store *docstore.MockInstance, id, email, password string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	testutil.IsNil(t, err, "hash password")

	testutil.IsNil(t, store.PutReplace(context.Background(), "users/"+id, bson.M{
		"firstname":     "Ada",
		"lastname":      "Lim",
		"email":         email,
		"img_path":      "avatars/" + id + ".jpg",
		"password_hash": string(hash),
	}), "seed user")
}

func setup(t *testing.T) (*docstore.MockInstance, session.Instance, Authorizer) {
	t.Helper()

	store := docstore.NewMock()
	sess := session.New()
	a := New(Options{
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
		Store:      store,
		Session:    sess,
	})

	return store, sess, a
}

func TestSignInSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, sess, a := setup(t)
	seedUser(t, store, "u1", "ada@pets.io", "hunter2")

	identity, token, err := a.SignIn(ctx, "ada@pets.io", "hunter2")
	testutil.IsNil(t, err, "sign in")
	testutil.Assert(t, "u1", identity.ID, "identity resolved")
	testutil.Assert(t, "Ada", identity.FirstName, "name mapped")
	testutil.Assert(t, "avatars/u1.jpg", identity.AvatarPath, "avatar mapped")
	testutil.Assert(t, true, token != "", "token issued")

	active, ok := sess.Active()
	testutil.Assert(t, true, ok, "identity context populated")
	testutil.Assert(t, "u1", active.ID, "active identity")

	sessions, err := store.FetchAll(ctx, "sessions")
	testutil.IsNil(t, err, "list sessions")
	testutil.Assert(t, 1, len(sessions), "one session record")
	testutil.Assert(t, "u1", sessions[0].Data["user_id"].(string), "session belongs to the user")

	user, err := store.FetchOne(ctx, "users/u1")
	testutil.IsNil(t, err, "fetch user")
	testutil.Assert(t, model.ActiveStatusActive, user.Data["active_status"].(model.ActiveStatus), "initial presence fact written")

	claim := &JWTClaimSession{}
	_, err = a.VerifyJWT(token, claim)
	testutil.IsNil(t, err, "token verifies")
	testutil.Assert(t, "u1", claim.Subject, "subject")
	testutil.Assert(t, sessions[0].ID, claim.SessionID, "token references the session record")
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, sess, a := setup(t)
	seedUser(t, store, "u1", "ada@pets.io", "hunter2")

	_, _, err := a.SignIn(ctx, "nobody@pets.io", "hunter2")
	if !stderrors.Is(err, errors.ErrBadSignIn()) {
		t.Fatalf("unknown email: %v", err)
	}

	_, _, err = a.SignIn(ctx, "ada@pets.io", "wrong")
	if !stderrors.Is(err, errors.ErrBadSignIn()) {
		t.Fatalf("wrong password: %v", err)
	}

	_, ok := sess.Active()
	testutil.Assert(t, false, ok, "failed sign-in never touches the identity context")
}

func TestSignInRejectsOrphanAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _, a := setup(t)

	// Account record exists but carries no usable profile.
	testutil.IsNil(t, store.PutReplace(ctx, "users/u1", bson.M{"email": "ada@pets.io"}), "seed orphan")

	_, _, err := a.SignIn(ctx, "ada@pets.io", "hunter2")
	if !stderrors.Is(err, errors.ErrBadSignIn()) {
		t.Fatalf("orphan account must not sign in: %v", err)
	}
}

func TestSignOutDeletesSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _, a := setup(t)
	seedUser(t, store, "u1", "ada@pets.io", "hunter2")

	_, _, err := a.SignIn(ctx, "ada@pets.io", "hunter2")
	testutil.IsNil(t, err, "sign in")

	testutil.IsNil(t, a.SignOut(ctx), "sign out")

	sessions, err := store.FetchAll(ctx, "sessions")
	testutil.IsNil(t, err, "list sessions")
	testutil.Assert(t, 0, len(sessions), "session record gone")

	testutil.IsNil(t, a.SignOut(ctx), "second sign-out is a no-op")
}

func TestSignOutFailureKeepsSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _, a := setup(t)
	seedUser(t, store, "u1", "ada@pets.io", "hunter2")

	_, _, err := a.SignIn(ctx, "ada@pets.io", "hunter2")
	testutil.IsNil(t, err, "sign in")

	store.FailHook = func(op, path string) error {
		if op == "delete" {
			return errors.ErrStoreFailure()
		}

		return nil
	}

	err = a.SignOut(ctx)
	if !stderrors.Is(err, errors.ErrStoreFailure()) {
		t.Fatalf("session termination failure must surface: %v", err)
	}

	store.FailHook = nil

	testutil.IsNil(t, a.SignOut(ctx), "retry succeeds once the store recovers")

	sessions, err := store.FetchAll(ctx, "sessions")
	testutil.IsNil(t, err, "list sessions")
	testutil.Assert(t, 0, len(sessions), "session record gone after retry")
}
