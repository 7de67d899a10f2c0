package docstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petstead/api/internal/errors"
	"github.com/petstead/api/internal/instance"
	"github.com/petstead/api/internal/mongo"
)

type Options struct {
	Mongo      mongo.Instance
	Prometheus instance.Prometheus

	// PollInterval switches realtime listeners from change streams to
	// interval polling, for deployments without replica sets. Zero means
	// change streams.
	PollInterval time.Duration
}

func New(opt Options) Instance {
	return &inst{
		mongo:        opt.Mongo,
		prometheus:   opt.Prometheus,
		pollInterval: opt.PollInterval,
	}
}

type inst struct {
	mongo        mongo.Instance
	prometheus   instance.Prometheus
	pollInterval time.Duration
}

func (x *inst) obs(op string, err error) error {
	if x.prometheus != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}

		x.prometheus.StoreOperation(op, outcome)
	}

	return err
}

func (x *inst) collection(name string) *mongodrv.Collection {
	return x.mongo.Collection(mongo.CollectionName(name))
}

func (x *inst) FetchOne(ctx context.Context, path string) (Document, error) {
	t, err := parseDocPath(path)
	if err != nil {
		return Document{}, x.obs("fetch_one", err)
	}

	raw := bson.M{}
	if err = x.collection(t.collection).FindOne(ctx, t.docFilter()).Decode(&raw); err != nil {
		if err == mongodrv.ErrNoDocuments {
			return Document{}, x.obs("fetch_one", errors.ErrNotFound().SetDetail("%s", path))
		}

		return Document{}, x.obs("fetch_one", errors.ErrStoreFailure().WithCause(err))
	}

	id, data := sanitize(raw)
	if id == "" {
		id = t.id
	}

	return Document{ID: id, Data: data}, x.obs("fetch_one", nil)
}

func (x *inst) FetchAll(ctx context.Context, path string) ([]Document, error) {
	docs, err := x.runQuery(ctx, path, false, nil)

	return docs, x.obs("fetch_all", err)
}

func (x *inst) Query(ctx context.Context, path string, preds ...Predicate) ([]Document, error) {
	docs, err := x.runQuery(ctx, path, false, preds)

	return docs, x.obs("query", err)
}

func (x *inst) QueryGroup(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	docs, err := x.runQuery(ctx, collection, true, preds)

	return docs, x.obs("query_group", err)
}

func (x *inst) runQuery(ctx context.Context, path string, group bool, preds []Predicate) ([]Document, error) {
	var (
		t      target
		filter bson.M
		err    error
	)

	if group {
		t = target{collection: path}
		filter, err = predFilter(preds)
	} else {
		t, err = parseCollectionPath(path)
		if err == nil {
			filter, err = t.scopeFilter(preds)
		}
	}

	if err != nil {
		return nil, err
	}

	cur, err := x.collection(t.collection).Find(ctx, filter)
	if err != nil {
		return nil, errors.ErrStoreFailure().WithCause(err)
	}

	raws := []bson.M{}
	if err = cur.All(ctx, &raws); err != nil {
		return nil, errors.ErrStoreFailure().WithCause(err)
	}

	docs := make([]Document, len(raws))
	for i, raw := range raws {
		id, data := sanitize(raw)
		docs[i] = Document{ID: id, Data: data}
	}

	return docs, nil
}

func (x *inst) PutMerged(ctx context.Context, path string, data bson.M) error {
	t, err := parseDocPath(path)
	if err != nil {
		return x.obs("put_merged", err)
	}

	set, current := splitWrite(data)
	set[parentField] = t.parent

	update := bson.M{"$set": set}
	if len(current) > 0 {
		update["$currentDate"] = current
	}

	if _, err = x.collection(t.collection).UpdateOne(ctx, t.docFilter(), update, options.Update().SetUpsert(true)); err != nil {
		return x.obs("put_merged", errors.ErrStoreFailure().WithCause(err))
	}

	return x.obs("put_merged", nil)
}

func (x *inst) PutReplace(ctx context.Context, path string, data bson.M) error {
	t, err := parseDocPath(path)
	if err != nil {
		return x.obs("put_replace", err)
	}

	doc := resolveSentinels(data, serverNow)
	doc[parentField] = t.parent

	if _, err = x.collection(t.collection).ReplaceOne(ctx, t.docFilter(), doc, options.Replace().SetUpsert(true)); err != nil {
		return x.obs("put_replace", errors.ErrStoreFailure().WithCause(err))
	}

	return x.obs("put_replace", nil)
}

func (x *inst) Create(ctx context.Context, path string, data bson.M) (string, error) {
	t, err := parseCollectionPath(path)
	if err != nil {
		return "", x.obs("create", err)
	}

	doc := resolveSentinels(data, serverNow)
	doc["_id"] = primitive.NewObjectID().Hex()
	doc[parentField] = t.parent

	if _, err = x.collection(t.collection).InsertOne(ctx, doc); err != nil {
		return "", x.obs("create", errors.ErrStoreFailure().WithCause(err))
	}

	return doc["_id"].(string), x.obs("create", nil)
}

func (x *inst) UpdateFields(ctx context.Context, path string, data bson.M) error {
	t, err := parseDocPath(path)
	if err != nil {
		return x.obs("update_fields", err)
	}

	set, current := splitWrite(data)

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(current) > 0 {
		update["$currentDate"] = current
	}
	if len(update) == 0 {
		update["$set"] = bson.M{parentField: t.parent}
	}

	res, err := x.collection(t.collection).UpdateOne(ctx, t.docFilter(), update)
	if err != nil {
		return x.obs("update_fields", errors.ErrStoreFailure().WithCause(err))
	}

	if res.MatchedCount == 0 {
		return x.obs("update_fields", errors.ErrNotFound().SetDetail("%s", path))
	}

	return x.obs("update_fields", nil)
}

func (x *inst) Delete(ctx context.Context, path string) error {
	t, err := parseDocPath(path)
	if err != nil {
		return x.obs("delete", err)
	}

	if _, err = x.collection(t.collection).DeleteOne(ctx, t.docFilter()); err != nil {
		return x.obs("delete", errors.ErrStoreFailure().WithCause(err))
	}

	return x.obs("delete", nil)
}

func (x *inst) Count(ctx context.Context, path string, preds ...Predicate) (int64, error) {
	t, err := parseCollectionPath(path)
	if err != nil {
		return 0, x.obs("count", err)
	}

	filter, err := t.scopeFilter(preds)
	if err != nil {
		return 0, x.obs("count", err)
	}

	n, err := x.collection(t.collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, x.obs("count", errors.ErrStoreFailure().WithCause(err))
	}

	return n, x.obs("count", nil)
}

func (x *inst) Now() interface{} {
	return ServerTime
}

func serverNow() interface{} {
	return time.Now().UTC()
}
