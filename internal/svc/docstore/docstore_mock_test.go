package docstore

import (
	"context"
	stderrors "errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/petstead/api/internal/errors"
	"github.com/petstead/api/internal/testutil"
)

func TestUpdateFieldsRequiresExistingDocument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMock()

	err := store.UpdateFields(ctx, "users/u1", bson.M{"email": "a@b.c"})
	if !stderrors.Is(err, errors.ErrNotFound()) {
		t.Fatalf("update against absent document must fail with not-found: %v", err)
	}

	// The merge write against the same path upserts.
	testutil.IsNil(t, store.PutMerged(ctx, "users/u1", bson.M{"email": "a@b.c"}), "merge upserts")

	doc, err := store.FetchOne(ctx, "users/u1")
	testutil.IsNil(t, err, "document exists after merge")
	testutil.Assert(t, "a@b.c", doc.Data["email"].(string), "merged field")

	testutil.IsNil(t, store.UpdateFields(ctx, "users/u1", bson.M{"email": "x@y.z"}), "update succeeds once present")
}

func TestMergePreservesUnrelatedFields(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMock()

	testutil.IsNil(t, store.PutMerged(ctx, "users/u1", bson.M{"firstname": "Ada", "lastname": "Lim"}), "seed")
	testutil.IsNil(t, store.PutMerged(ctx, "users/u1", bson.M{"active_status": "inactive"}), "partial merge")

	doc, err := store.FetchOne(ctx, "users/u1")
	testutil.IsNil(t, err, "fetch")
	testutil.Assert(t, "Ada", doc.Data["firstname"].(string), "earlier fields survive merge")
	testutil.Assert(t, "inactive", doc.Data["active_status"].(string), "merged field present")

	testutil.IsNil(t, store.PutReplace(ctx, "users/u1", bson.M{"email": "only@field.io"}), "replace")

	doc, err = store.FetchOne(ctx, "users/u1")
	testutil.IsNil(t, err, "fetch after replace")

	if _, ok := doc.Data["firstname"]; ok {
		t.Fatal("replace must drop fields absent from the new document")
	}
}

func TestNestedCollectionScoping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMock()

	testutil.IsNil(t, store.PutReplace(ctx, "users/u1/savedItems/a", bson.M{"kind": "post"}), "u1 item")
	testutil.IsNil(t, store.PutReplace(ctx, "users/u2/savedItems/b", bson.M{"kind": "post"}), "u2 item")

	docs, err := store.FetchAll(ctx, "users/u1/savedItems")
	testutil.IsNil(t, err, "scoped scan")
	testutil.Assert(t, 1, len(docs), "scan sees only its parent's documents")
	testutil.Assert(t, "a", docs[0].ID, "right document")

	group, err := store.QueryGroup(ctx, "savedItems", Where("kind", OpEqual, "post"))
	testutil.IsNil(t, err, "group query")
	testutil.Assert(t, 2, len(group), "group query spans parents")
}

func TestCreateAssignsID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMock()

	id, err := store.Create(ctx, "pages", bson.M{"name": "Happy Paws"})
	testutil.IsNil(t, err, "create")
	testutil.Assert(t, true, id != "", "id assigned")

	doc, err := store.FetchOne(ctx, "pages/"+id)
	testutil.IsNil(t, err, "created document readable at its path")
	testutil.Assert(t, "Happy Paws", doc.Data["name"].(string), "payload stored")

	n, err := store.Count(ctx, "pages")
	testutil.IsNil(t, err, "count")
	testutil.Assert(t, int64(1), n, "count sees the insert")
}

func TestDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMock()

	testutil.IsNil(t, store.PutReplace(ctx, "users/u1", bson.M{}), "seed")
	testutil.IsNil(t, store.Delete(ctx, "users/u1"), "delete")
	testutil.IsNil(t, store.Delete(ctx, "users/u1"), "deleting an absent document is not an error")
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMock()

	snapshots := [][]Document{}

	unsub, err := store.Subscribe(ctx, Query{
		Path:       "notifications",
		Predicates: []Predicate{Where("receiver_id", OpEqual, "u1")},
	}, func(docs []Document) {
		snapshots = append(snapshots, docs)
	})
	testutil.IsNil(t, err, "subscribe")
	testutil.Assert(t, 1, len(snapshots), "initial snapshot delivered immediately")
	testutil.Assert(t, 0, len(snapshots[0]), "initially empty")

	_, err = store.Create(ctx, "notifications", bson.M{"receiver_id": "u1"})
	testutil.IsNil(t, err, "matching insert")

	_, err = store.Create(ctx, "notifications", bson.M{"receiver_id": "someone-else"})
	testutil.IsNil(t, err, "non-matching insert still triggers a snapshot")

	testutil.Assert(t, 3, len(snapshots), "one snapshot per observed change")
	testutil.Assert(t, 1, len(snapshots[2]), "snapshot is the filtered result set")

	unsub()
	unsub() // double-unsubscribe is a no-op

	_, err = store.Create(ctx, "notifications", bson.M{"receiver_id": "u1"})
	testutil.IsNil(t, err, "insert after unsubscribe")
	testutil.Assert(t, 3, len(snapshots), "no snapshots after unsubscribe")
}

func TestServerTimeResolvesOnWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMock()

	testutil.IsNil(t, store.PutMerged(ctx, "users/u1", bson.M{"last_online_at": store.Now()}), "sentinel write")

	doc, err := store.FetchOne(ctx, "users/u1")
	testutil.IsNil(t, err, "fetch")

	if IsServerTime(doc.Data["last_online_at"]) {
		t.Fatal("sentinel must resolve to a timestamp at write time")
	}

	testutil.IsNotNil(t, doc.Data["last_online_at"], "timestamp stored")
}
