// Package docstore is the generic, path-addressed gateway to the remote
// document database. Every feature's persistence goes through this
// interface; it carries no business logic and never retries.
//
// Paths are hierarchical: "users/u1" addresses a document, "users" or
// "users/u1/savedItems" address collections. Nested documents live in the
// leaf-named collection, scoped by an internal parent field, which is what
// makes QueryGroup (all collections of one name regardless of parent)
// a plain unscoped query.
package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

type Instance interface {
	// FetchOne is a point read of a document path.
	FetchOne(ctx context.Context, path string) (Document, error)
	// FetchAll scans a collection path.
	FetchAll(ctx context.Context, path string) ([]Document, error)
	// Query is a filtered read of a collection path. Predicates are a
	// conjunction.
	Query(ctx context.Context, path string, preds ...Predicate) ([]Document, error)
	// QueryGroup is a filtered read across every collection of the given
	// name, regardless of parent.
	QueryGroup(ctx context.Context, collection string, preds ...Predicate) ([]Document, error)
	// PutMerged merges fields into the document at path, creating it if
	// absent.
	PutMerged(ctx context.Context, path string, data bson.M) error
	// PutReplace replaces the document at path wholesale, creating it if
	// absent.
	PutReplace(ctx context.Context, path string, data bson.M) error
	// Create inserts into a collection path with a server-assigned id.
	Create(ctx context.Context, path string, data bson.M) (string, error)
	// UpdateFields merges fields into an existing document and fails with
	// ErrNotFound when there is none. This is the one write that does not
	// upsert.
	UpdateFields(ctx context.Context, path string, data bson.M) error
	// Delete removes the document at path. Removing an absent document is
	// not an error.
	Delete(ctx context.Context, path string) error
	// Count is a server-side aggregate count; no document bodies transfer.
	Count(ctx context.Context, path string, preds ...Predicate) (int64, error)
	// Subscribe delivers the full current result set of q immediately and
	// again on every server-observed change, until unsubscribed. The
	// returned handle is safe to call more than once.
	Subscribe(ctx context.Context, q Query, onChange func(snapshot []Document)) (Unsubscribe, error)
	// Now returns the write-time server clock sentinel.
	Now() interface{}
}

// Unsubscribe tears down a realtime listener. Calling it again is a no-op.
type Unsubscribe func()

type Document struct {
	ID   string
	Data bson.M
}

type Op string

const (
	OpEqual         Op = "=="
	OpNotEqual      Op = "!="
	OpIn            Op = "in"
	OpLess          Op = "<"
	OpLessOrEq      Op = "<="
	OpGreater       Op = ">"
	OpGreaterOrEq   Op = ">="
	OpArrayContains Op = "array-contains"
)

// Predicate is one field/operator/value triple. The field "_id" addresses
// the document identifier.
type Predicate struct {
	Field string
	Op    Op
	Value interface{}
}

func Where(field string, op Op, value interface{}) Predicate {
	return Predicate{Field: field, Op: op, Value: value}
}

type Query struct {
	// Path is a collection path, or a bare collection name when Group is
	// set.
	Path       string
	Group      bool
	Predicates []Predicate
}

type serverTime struct{}

// ServerTime marks a field to be resolved to the server clock at write
// time, so presence ordering never trusts the client clock.
var ServerTime = serverTime{}

// IsServerTime reports whether v is the server clock sentinel.
func IsServerTime(v interface{}) bool {
	_, ok := v.(serverTime)

	return ok
}
