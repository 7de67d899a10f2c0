package docstore

import (
	stderrors "errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/petstead/api/internal/errors"
	"github.com/petstead/api/internal/testutil"
)

func TestParseDocPath(t *testing.T) {
	t.Parallel()

	tgt, err := parseDocPath("users/u1")
	testutil.IsNil(t, err, "top-level doc path parses")
	testutil.Assert(t, "users", tgt.collection, "collection")
	testutil.Assert(t, "u1", tgt.id, "id")
	testutil.Assert(t, "", tgt.parent, "parent")

	tgt, err = parseDocPath("users/u1/savedItems/s9")
	testutil.IsNil(t, err, "nested doc path parses")
	testutil.Assert(t, "savedItems", tgt.collection, "collection")
	testutil.Assert(t, "s9", tgt.id, "id")
	testutil.Assert(t, "users/u1", tgt.parent, "parent")

	_, err = parseDocPath("users")
	if !stderrors.Is(err, errors.ErrBadPath()) {
		t.Fatalf("collection path must not parse as document: %v", err)
	}

	_, err = parseDocPath("users//x")
	if !stderrors.Is(err, errors.ErrBadPath()) {
		t.Fatalf("empty segment must be rejected: %v", err)
	}
}

func TestParseCollectionPath(t *testing.T) {
	t.Parallel()

	tgt, err := parseCollectionPath("users/u1/savedItems")
	testutil.IsNil(t, err, "nested collection path parses")
	testutil.Assert(t, "savedItems", tgt.collection, "collection")
	testutil.Assert(t, "users/u1", tgt.parent, "parent")

	_, err = parseCollectionPath("users/u1")
	if !stderrors.Is(err, errors.ErrBadPath()) {
		t.Fatalf("document path must not parse as collection: %v", err)
	}
}

func TestPredFilter(t *testing.T) {
	t.Parallel()

	filter, err := predFilter([]Predicate{
		Where("receiver_id", OpEqual, "u1"),
		Where("_id", OpIn, []string{"a", "b"}),
		Where("age", OpGreaterOrEq, 3),
	})
	testutil.IsNil(t, err, "filter builds")

	testutil.Assert(t, "u1", filter["receiver_id"].(string), "equality is a direct match")
	testutil.AssertDeep(t, bson.M{"$in": []string{"a", "b"}}, filter["_id"], "membership maps to $in")
	testutil.AssertDeep(t, bson.M{"$gte": 3}, filter["age"], "range maps to $gte")

	_, err = predFilter([]Predicate{{Field: "x", Op: Op("~"), Value: 1}})
	if !stderrors.Is(err, errors.ErrBadPath()) {
		t.Fatalf("unknown operator must be rejected: %v", err)
	}
}

func TestSplitWriteRoutesSentinels(t *testing.T) {
	t.Parallel()

	set, current := splitWrite(bson.M{
		"active_status":  "inactive",
		"last_online_at": ServerTime,
		"meta": bson.M{
			"seen_at": ServerTime,
			"count":   2,
		},
	})

	testutil.Assert(t, "inactive", set["active_status"].(string), "plain field stays in $set")
	testutil.Assert(t, 2, set["meta.count"].(int), "nested fields flatten to dotted paths")
	testutil.Assert(t, true, current["last_online_at"].(bool), "sentinel routes to $currentDate")
	testutil.Assert(t, true, current["meta.seen_at"].(bool), "nested sentinel routes to $currentDate")

	if _, ok := set["last_online_at"]; ok {
		t.Fatal("sentinel must not appear in $set")
	}
}

func TestSanitizeStripsInternalFields(t *testing.T) {
	t.Parallel()

	id, data := sanitize(bson.M{"_id": "u1", parentField: "", "email": "a@b.c"})

	testutil.Assert(t, "u1", id, "id extracted")
	testutil.Assert(t, "a@b.c", data["email"].(string), "payload kept")

	if _, ok := data["_parent"]; ok {
		t.Fatal("parent scope field must not leak to callers")
	}
}
