package docstore

import (
	"context"
	"sync"
	"time"

	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/petstead/api/internal/errors"
)

func (x *inst) Subscribe(ctx context.Context, q Query, onChange func(snapshot []Document)) (Unsubscribe, error) {
	var (
		t   target
		err error
	)

	if q.Group {
		t = target{collection: q.Path}
	} else {
		t, err = parseCollectionPath(q.Path)
		if err != nil {
			return nil, x.obs("subscribe", err)
		}
	}

	snapshot := func(c context.Context) ([]Document, error) {
		return x.runQuery(c, q.Path, q.Group, q.Predicates)
	}

	// First snapshot is delivered before any change can race it.
	docs, err := snapshot(ctx)
	if err != nil {
		return nil, x.obs("subscribe", err)
	}

	onChange(docs)

	streamCtx, cancel := context.WithCancel(ctx)

	if x.pollInterval > 0 {
		go x.pollLoop(streamCtx, snapshot, onChange)
	} else {
		cs, err := x.collection(t.collection).Watch(streamCtx, mongodrv.Pipeline{})
		if err != nil {
			cancel()

			return nil, x.obs("subscribe", errors.ErrStoreFailure().WithCause(err))
		}

		go x.streamLoop(streamCtx, cs, snapshot, onChange)
	}

	if x.prometheus != nil {
		x.prometheus.SubscriptionOpen()
	}

	once := sync.Once{}

	return func() {
		once.Do(func() {
			cancel()

			if x.prometheus != nil {
				x.prometheus.SubscriptionClose()
			}
		})
	}, x.obs("subscribe", nil)
}

// streamLoop re-runs the query once per server-observed change. The watch
// is collection-wide; changes outside the query's scope only cost an extra
// read, never a wrong snapshot.
func (x *inst) streamLoop(ctx context.Context, cs *mongodrv.ChangeStream, snapshot func(context.Context) ([]Document, error), onChange func([]Document)) {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		_ = cs.Close(closeCtx)
	}()

	for cs.Next(ctx) {
		docs, err := snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			zap.S().Errorw("failed to refresh subscription snapshot",
				"error", err,
			)

			continue
		}

		onChange(docs)
	}

	if err := cs.Err(); err != nil && ctx.Err() == nil {
		zap.S().Errorw("change stream ended",
			"error", err,
		)
	}
}

func (x *inst) pollLoop(ctx context.Context, snapshot func(context.Context) ([]Document, error), onChange func([]Document)) {
	ticker := time.NewTicker(x.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			docs, err := snapshot(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				zap.S().Errorw("failed to poll subscription snapshot",
					"error", err,
				)

				continue
			}

			onChange(docs)
		}
	}
}
