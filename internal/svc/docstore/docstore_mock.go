package docstore

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/petstead/api/internal/errors"
)

// MockInstance is an in-memory Instance for tests. Writes notify
// subscriptions synchronously, so snapshot-driven behavior is
// deterministic to assert on.
type MockInstance struct {
	mu          sync.Mutex
	collections map[string]map[string]bson.M
	subs        map[int]*mockSub
	nextSubID   int

	ops []OpRecord

	// FailHook, when set, is consulted before every operation; a non-nil
	// return fails that operation.
	FailHook func(op string, path string) error

	// NowFn resolves the server-time sentinel. Defaults to time.Now.
	NowFn func() time.Time
}

type OpRecord struct {
	Op   string
	Path string
}

type mockSub struct {
	collection string
	deliver    func()
}

func NewMock() *MockInstance {
	return &MockInstance{
		collections: map[string]map[string]bson.M{},
		subs:        map[int]*mockSub{},
	}
}

// OpLog returns every operation performed so far, in order.
func (m *MockInstance) OpLog() []OpRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]OpRecord, len(m.ops))
	copy(out, m.ops)

	return out
}

// WriteCount counts logged operations of the given kind.
func (m *MockInstance) WriteCount(op string) int {
	n := 0
	for _, rec := range m.OpLog() {
		if rec.Op == op {
			n++
		}
	}

	return n
}

func (m *MockInstance) begin(op, path string) error {
	m.mu.Lock()
	m.ops = append(m.ops, OpRecord{Op: op, Path: path})
	hook := m.FailHook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(op, path); err != nil {
			return err
		}
	}

	return nil
}

func (m *MockInstance) now() time.Time {
	if m.NowFn != nil {
		return m.NowFn()
	}

	return time.Now().UTC()
}

func docKey(parent, id string) string {
	return parent + "\x00" + id
}

func (m *MockInstance) FetchOne(ctx context.Context, path string) (Document, error) {
	if err := m.begin("fetch_one", path); err != nil {
		return Document{}, err
	}

	t, err := parseDocPath(path)
	if err != nil {
		return Document{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.collections[t.collection][docKey(t.parent, t.id)]
	if !ok {
		return Document{}, errors.ErrNotFound().SetDetail("%s", path)
	}

	id, data := sanitize(cloneM(raw))

	return Document{ID: id, Data: data}, nil
}

func (m *MockInstance) FetchAll(ctx context.Context, path string) ([]Document, error) {
	if err := m.begin("fetch_all", path); err != nil {
		return nil, err
	}

	return m.query(path, false, nil)
}

func (m *MockInstance) Query(ctx context.Context, path string, preds ...Predicate) ([]Document, error) {
	if err := m.begin("query", path); err != nil {
		return nil, err
	}

	return m.query(path, false, preds)
}

func (m *MockInstance) QueryGroup(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	if err := m.begin("query_group", collection); err != nil {
		return nil, err
	}

	return m.query(collection, true, preds)
}

func (m *MockInstance) query(path string, group bool, preds []Predicate) ([]Document, error) {
	var (
		t   target
		err error
	)

	if group {
		t = target{collection: path}
	} else {
		t, err = parseCollectionPath(path)
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked(t, group, preds)
}

func (m *MockInstance) snapshotLocked(t target, group bool, preds []Predicate) ([]Document, error) {
	docs := []Document{}

	for _, raw := range m.collections[t.collection] {
		if !group && raw[parentField] != t.parent {
			continue
		}

		ok, err := match(raw, preds)
		if err != nil {
			return nil, err
		}

		if ok {
			id, data := sanitize(cloneM(raw))
			docs = append(docs, Document{ID: id, Data: data})
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	return docs, nil
}

func (m *MockInstance) PutMerged(ctx context.Context, path string, data bson.M) error {
	if err := m.begin("put_merged", path); err != nil {
		return err
	}

	t, err := parseDocPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()

	raw, ok := m.collections[t.collection][docKey(t.parent, t.id)]
	if !ok {
		raw = bson.M{"_id": t.id, parentField: t.parent}
	}

	mergeInto(raw, resolveSentinels(data, func() interface{} { return m.now() }))
	m.putLocked(t, raw)
	m.mu.Unlock()

	m.notify(t.collection)

	return nil
}

func (m *MockInstance) PutReplace(ctx context.Context, path string, data bson.M) error {
	if err := m.begin("put_replace", path); err != nil {
		return err
	}

	t, err := parseDocPath(path)
	if err != nil {
		return err
	}

	raw := resolveSentinels(data, func() interface{} { return m.now() })
	raw["_id"] = t.id
	raw[parentField] = t.parent

	m.mu.Lock()
	m.putLocked(t, raw)
	m.mu.Unlock()

	m.notify(t.collection)

	return nil
}

func (m *MockInstance) Create(ctx context.Context, path string, data bson.M) (string, error) {
	if err := m.begin("create", path); err != nil {
		return "", err
	}

	t, err := parseCollectionPath(path)
	if err != nil {
		return "", err
	}

	t.id = primitive.NewObjectID().Hex()

	raw := resolveSentinels(data, func() interface{} { return m.now() })
	raw["_id"] = t.id
	raw[parentField] = t.parent

	m.mu.Lock()
	m.putLocked(t, raw)
	m.mu.Unlock()

	m.notify(t.collection)

	return t.id, nil
}

func (m *MockInstance) UpdateFields(ctx context.Context, path string, data bson.M) error {
	if err := m.begin("update_fields", path); err != nil {
		return err
	}

	t, err := parseDocPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()

	raw, ok := m.collections[t.collection][docKey(t.parent, t.id)]
	if !ok {
		m.mu.Unlock()

		return errors.ErrNotFound().SetDetail("%s", path)
	}

	mergeInto(raw, resolveSentinels(data, func() interface{} { return m.now() }))
	m.mu.Unlock()

	m.notify(t.collection)

	return nil
}

func (m *MockInstance) Delete(ctx context.Context, path string) error {
	if err := m.begin("delete", path); err != nil {
		return err
	}

	t, err := parseDocPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.collections[t.collection], docKey(t.parent, t.id))
	m.mu.Unlock()

	m.notify(t.collection)

	return nil
}

func (m *MockInstance) Count(ctx context.Context, path string, preds ...Predicate) (int64, error) {
	if err := m.begin("count", path); err != nil {
		return 0, err
	}

	docs, err := m.query(path, false, preds)
	if err != nil {
		return 0, err
	}

	return int64(len(docs)), nil
}

func (m *MockInstance) Subscribe(ctx context.Context, q Query, onChange func(snapshot []Document)) (Unsubscribe, error) {
	if err := m.begin("subscribe", q.Path); err != nil {
		return nil, err
	}

	var (
		t   target
		err error
	)

	if q.Group {
		t = target{collection: q.Path}
	} else {
		t, err = parseCollectionPath(q.Path)
		if err != nil {
			return nil, err
		}
	}

	deliver := func() {
		m.mu.Lock()
		docs, snapErr := m.snapshotLocked(t, q.Group, q.Predicates)
		m.mu.Unlock()

		if snapErr != nil {
			return
		}

		onChange(docs)
	}

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = &mockSub{collection: t.collection, deliver: deliver}
	m.mu.Unlock()

	deliver()

	once := sync.Once{}

	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}, nil
}

func (m *MockInstance) Now() interface{} {
	return ServerTime
}

func (m *MockInstance) putLocked(t target, raw bson.M) {
	col, ok := m.collections[t.collection]
	if !ok {
		col = map[string]bson.M{}
		m.collections[t.collection] = col
	}

	col[docKey(t.parent, t.id)] = raw
}

func (m *MockInstance) notify(collection string) {
	m.mu.Lock()

	pending := []func(){}
	for _, sub := range m.subs {
		if sub.collection == collection {
			pending = append(pending, sub.deliver)
		}
	}

	m.mu.Unlock()

	for _, deliver := range pending {
		deliver()
	}
}

func cloneM(in bson.M) bson.M {
	out := bson.M{}

	for k, v := range in {
		if mv, ok := v.(bson.M); ok {
			out[k] = cloneM(mv)

			continue
		}

		out[k] = v
	}

	return out
}

func mergeInto(dst, src bson.M) {
	for k, v := range src {
		if sv, ok := v.(bson.M); ok {
			if dv, ok := dst[k].(bson.M); ok {
				mergeInto(dv, sv)

				continue
			}
		}

		dst[k] = v
	}
}

func match(raw bson.M, preds []Predicate) (bool, error) {
	for _, p := range preds {
		got := raw[p.Field]

		switch p.Op {
		case OpEqual:
			if !equalValues(got, p.Value) {
				return false, nil
			}
		case OpNotEqual:
			if equalValues(got, p.Value) {
				return false, nil
			}
		case OpIn:
			if !containsValue(p.Value, got) {
				return false, nil
			}
		case OpArrayContains:
			if !containsValue(got, p.Value) {
				return false, nil
			}
		case OpLess, OpLessOrEq, OpGreater, OpGreaterOrEq:
			c, ok := compareValues(got, p.Value)
			if !ok {
				return false, nil
			}

			switch p.Op {
			case OpLess:
				if c >= 0 {
					return false, nil
				}
			case OpLessOrEq:
				if c > 0 {
					return false, nil
				}
			case OpGreater:
				if c <= 0 {
					return false, nil
				}
			case OpGreaterOrEq:
				if c < 0 {
					return false, nil
				}
			}
		default:
			return false, errors.ErrBadPath().SetDetail("unknown operator %q", p.Op)
		}
	}

	return true, nil
}

func equalValues(a, b interface{}) bool {
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)

		return bok && at.Equal(bt)
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}

	return reflect.DeepEqual(a, b)
}

func containsValue(list, v interface{}) bool {
	rv := reflect.ValueOf(list)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}

	for i := 0; i < rv.Len(); i++ {
		if equalValues(rv.Index(i).Interface(), v) {
			return true
		}
	}

	return false
}

func compareValues(a, b interface{}) (int, bool) {
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		if !bok {
			return 0, false
		}

		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}

	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return 0, false
		}

		return strings.Compare(as, bs), true
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
