package docstore

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/petstead/api/internal/errors"
)

// target is a resolved path: the leaf collection, the parent document path
// scoping it ("" at the root), and the document id when the path addresses
// a document.
type target struct {
	collection string
	parent     string
	id         string
}

const parentField = "_parent"

func splitPath(path string) ([]string, error) {
	segments := strings.Split(path, "/")

	for _, s := range segments {
		if s == "" {
			return nil, errors.ErrBadPath().SetDetail("empty segment in %q", path)
		}
	}

	return segments, nil
}

// parseDocPath resolves an even-length path such as "users/u1" or
// "users/u1/savedItems/s1".
func parseDocPath(path string) (target, error) {
	segments, err := splitPath(path)
	if err != nil {
		return target{}, err
	}

	if len(segments)%2 != 0 {
		return target{}, errors.ErrBadPath().SetDetail("%q addresses a collection, not a document", path)
	}

	return target{
		collection: segments[len(segments)-2],
		parent:     strings.Join(segments[:len(segments)-2], "/"),
		id:         segments[len(segments)-1],
	}, nil
}

// parseCollectionPath resolves an odd-length path such as "users" or
// "users/u1/savedItems".
func parseCollectionPath(path string) (target, error) {
	segments, err := splitPath(path)
	if err != nil {
		return target{}, err
	}

	if len(segments)%2 != 1 {
		return target{}, errors.ErrBadPath().SetDetail("%q addresses a document, not a collection", path)
	}

	return target{
		collection: segments[len(segments)-1],
		parent:     strings.Join(segments[:len(segments)-1], "/"),
	}, nil
}

func (t target) docFilter() bson.M {
	return bson.M{"_id": t.id, parentField: t.parent}
}

func (t target) scopeFilter(preds []Predicate) (bson.M, error) {
	filter, err := predFilter(preds)
	if err != nil {
		return nil, err
	}

	filter[parentField] = t.parent

	return filter, nil
}

func predFilter(preds []Predicate) (bson.M, error) {
	filter := bson.M{}

	for _, p := range preds {
		var cond interface{}

		switch p.Op {
		case OpEqual, OpArrayContains:
			// Matching a scalar against an array field already has
			// membership semantics in the underlying store.
			cond = p.Value
		case OpNotEqual:
			cond = bson.M{"$ne": p.Value}
		case OpIn:
			cond = bson.M{"$in": p.Value}
		case OpLess:
			cond = bson.M{"$lt": p.Value}
		case OpLessOrEq:
			cond = bson.M{"$lte": p.Value}
		case OpGreater:
			cond = bson.M{"$gt": p.Value}
		case OpGreaterOrEq:
			cond = bson.M{"$gte": p.Value}
		default:
			return nil, errors.ErrBadPath().SetDetail("unknown operator %q", p.Op)
		}

		filter[p.Field] = cond
	}

	return filter, nil
}

// splitWrite flattens data into dotted field paths and separates the
// server-time sentinel fields, which must resolve on the server via
// $currentDate rather than to a client timestamp.
func splitWrite(data bson.M) (set bson.M, current bson.M) {
	set = bson.M{}
	current = bson.M{}

	flattenInto(set, current, "", data)

	return set, current
}

func flattenInto(set, current bson.M, prefix string, data bson.M) {
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch tv := v.(type) {
		case serverTime:
			current[key] = true
		case bson.M:
			flattenInto(set, current, key, tv)
		case map[string]interface{}:
			flattenInto(set, current, key, bson.M(tv))
		default:
			set[key] = v
		}
	}
}

// resolveSentinels returns a copy of data with server-time sentinels
// replaced by the given timestamp. Used by full-document writes, which have
// no server-side resolution path.
func resolveSentinels(data bson.M, resolve func() interface{}) bson.M {
	out := bson.M{}

	for k, v := range data {
		switch tv := v.(type) {
		case serverTime:
			out[k] = resolve()
		case bson.M:
			out[k] = resolveSentinels(tv, resolve)
		case map[string]interface{}:
			out[k] = resolveSentinels(bson.M(tv), resolve)
		default:
			out[k] = v
		}
	}

	return out
}

// sanitize strips the gateway's internal fields from a stored document
// before it is handed back to callers.
func sanitize(raw bson.M) (id string, data bson.M) {
	data = bson.M{}

	for k, v := range raw {
		switch k {
		case "_id":
			if s, ok := v.(string); ok {
				id = s
			}
		case parentField:
		default:
			data[k] = v
		}
	}

	return id, data
}
