// Package watch streams change events of a collection to a handler until the
// caller releases the subscription.
package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/peternagy/mongoplug/internal/bsonutil"
	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/types"
)

// codeReplicaSetRequired is returned by standalone servers for $changeStream.
const codeReplicaSetRequired = 40573

const (
	MessageReplicaSetRequired = "Unable to watch pipeline stream without replica set"
	messageUnexpectedPrefix   = "Unexpected error while watch pipeline: "
)

// Cursor is the part of *mongo.ChangeStream the loop uses.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// Source opens change streams.
type Source interface {
	Open(ctx context.Context, pipeline mongo.Pipeline) (Cursor, error)
}

// CollectionSource watches a single collection with full documents looked up
// for updates.
type CollectionSource struct {
	Collection *mongo.Collection
}

// Open implements Source.
func (s CollectionSource) Open(ctx context.Context, pipeline mongo.Pipeline) (Cursor, error) {
	stream, err := s.Collection.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Event is one change delivered to the handler.
type Event struct {
	SubscriptionID string         `json:"subscriptionId"`
	OperationType  string         `json:"operationType"`
	DocumentKey    map[string]any `json:"documentKey,omitempty"`
	Value          types.Value    `json:"value"`
}

// Handler receives events synchronously; the next event is pulled only after
// it returns. A non-nil error ends the subscription.
type Handler func(ctx context.Context, ev Event) error

// Subscription describes what to watch.
type Subscription struct {
	ID     string
	Filter bson.D
	Kinds  []ChangeKind
}

// NewSubscription creates a subscription with a fresh id.
func NewSubscription(filter bson.D, kinds []ChangeKind) Subscription {
	return Subscription{ID: uuid.NewString(), Filter: filter, Kinds: kinds}
}

// Pipeline returns the change-stream pipeline of the subscription.
func (s Subscription) Pipeline() mongo.Pipeline {
	return Pipeline(s.Filter, s.Kinds)
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   bson.M `bson:"documentKey"`
	FullDocument  bson.M `bson:"fullDocument"`
}

// Watcher runs subscriptions.
type Watcher struct {
	log    *zap.SugaredLogger
	active atomic.Int64
}

// NewWatcher creates a watcher.
func NewWatcher(log *zap.SugaredLogger) *Watcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Watcher{log: log}
}

// Active returns the number of open change streams.
func (w *Watcher) Active() int64 { return w.active.Load() }

// Run streams events until ctx is cancelled, the stream fails or the handler
// returns an error. Cancellation is a normal release and returns nil. The
// cursor is closed exactly once on every path.
func (w *Watcher) Run(ctx context.Context, src Source, sub Subscription, handle Handler) error {
	log := w.log.With("subscription", sub.ID)
	if ctx.Err() != nil {
		return nil
	}

	cursor, err := src.Open(ctx, sub.Pipeline())
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return classify(err)
	}

	var closeOnce sync.Once
	closeCursor := func() {
		closeOnce.Do(func() {
			closeCtx, cancel := core.WithTimeout(context.Background(), core.DefaultCloseTimeout)
			defer cancel()
			if err := cursor.Close(closeCtx); err != nil {
				log.Debugw("failed to close change stream", "error", err)
			}
		})
	}
	defer closeCursor()

	w.active.Add(1)
	defer w.active.Add(-1)

	log.Debugw("watch started", "kinds", sub.Kinds)
	for {
		more := cursor.Next(ctx)
		if ctx.Err() != nil {
			log.Debugw("watch released")
			return nil
		}
		if !more {
			if err := cursor.Err(); err != nil {
				return classify(err)
			}
			log.Debugw("change stream ended")
			return nil
		}

		var raw changeEvent
		if err := cursor.Decode(&raw); err != nil {
			return classify(err)
		}
		ev, err := toEvent(sub.ID, raw)
		if err != nil {
			return classify(err)
		}
		if err := handle(ctx, ev); err != nil {
			return err
		}
	}
}

func toEvent(id string, raw changeEvent) (Event, error) {
	ev := Event{SubscriptionID: id, OperationType: raw.OperationType, Value: types.Void()}
	if raw.DocumentKey != nil {
		key, err := bsonutil.ToNeutral(raw.DocumentKey)
		if err != nil {
			return Event{}, err
		}
		ev.DocumentKey = key
	}
	if raw.FullDocument != nil {
		doc, err := bsonutil.ToNeutral(raw.FullDocument)
		if err != nil {
			return Event{}, err
		}
		ev.Value = types.Document(doc)
	}
	return ev, nil
}

// classify maps stream failures onto the streaming error kinds.
func classify(err error) error {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(codeReplicaSetRequired) {
		return &core.OperationError{Kind: core.KindReplicaSetRequired, Op: "watch", Message: MessageReplicaSetRequired, Err: err}
	}

	text := err.Error()
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Message != "" {
		text = cmdErr.Message
	}
	return &core.OperationError{Kind: core.KindStreamingServer, Op: "watch", Message: messageUnexpectedPrefix + text, Err: err}
}
