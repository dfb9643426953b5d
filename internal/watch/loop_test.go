package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/types"
)

// fakeCursor feeds queued events and blocks on Next until an event is pushed
// or the context is cancelled.
type fakeCursor struct {
	events chan bson.M
	err    error

	mu      sync.Mutex
	current bson.M
	closes  int
}

func newFakeCursor() *fakeCursor {
	return &fakeCursor{events: make(chan bson.M, 16)}
}

func (c *fakeCursor) Next(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case ev, ok := <-c.events:
		if !ok {
			return false
		}
		c.mu.Lock()
		c.current = ev
		c.mu.Unlock()
		return true
	}
}

func (c *fakeCursor) Decode(val interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := bson.Marshal(c.current)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, val)
}

func (c *fakeCursor) Err() error { return c.err }

func (c *fakeCursor) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *fakeCursor) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

type fakeSource struct {
	cursor   *fakeCursor
	err      error
	pipeline mongo.Pipeline
}

func (s *fakeSource) Open(_ context.Context, pipeline mongo.Pipeline) (Cursor, error) {
	s.pipeline = pipeline
	if s.err != nil {
		return nil, s.err
	}
	return s.cursor, nil
}

func TestRun_DeliversEventsUntilReleased(t *testing.T) {
	cursor := newFakeCursor()
	src := &fakeSource{cursor: cursor}
	sub := NewSubscription(nil, []ChangeKind{KindInsert, KindDelete})

	cursor.events <- bson.M{"operationType": "insert", "documentKey": bson.M{"_id": 1}, "fullDocument": bson.M{"_id": 1, "name": "a"}}
	cursor.events <- bson.M{"operationType": "delete", "documentKey": bson.M{"_id": 1}}

	ctx, cancel := context.WithCancel(context.Background())
	var got []Event
	err := NewWatcher(nil).Run(ctx, src, sub, func(_ context.Context, ev Event) error {
		got = append(got, ev)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "insert", got[0].OperationType)
	assert.Equal(t, types.KindDocument, got[0].Value.Kind)
	assert.Equal(t, "a", got[0].Value.Document["name"])
	assert.Equal(t, sub.ID, got[0].SubscriptionID)
	assert.True(t, got[1].Value.IsVoid(), "deletes carry no document")
	assert.Equal(t, 1, cursor.closeCount())
	assert.Equal(t, sub.Pipeline(), src.pipeline)
}

func TestRun_CancelWhileBlocked(t *testing.T) {
	cursor := newFakeCursor()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- NewWatcher(nil).Run(ctx, &fakeSource{cursor: cursor}, NewSubscription(nil, nil), func(context.Context, Event) error {
			t.Error("no event expected")
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
	assert.Equal(t, 1, cursor.closeCount())

	// Events pushed after release are never delivered.
	cursor.events <- bson.M{"operationType": "insert"}
	assert.Equal(t, 1, cursor.closeCount())
}

func TestRun_CancelRacingEventDropsEvent(t *testing.T) {
	cursor := newFakeCursor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cursor.events <- bson.M{"operationType": "insert"}

	calls := 0
	err := NewWatcher(nil).Run(ctx, &fakeSource{cursor: cursor}, NewSubscription(nil, nil), func(context.Context, Event) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Zero(t, calls)
}

func TestRun_HandlerErrorEndsLoop(t *testing.T) {
	cursor := newFakeCursor()
	cursor.events <- bson.M{"operationType": "insert"}
	cursor.events <- bson.M{"operationType": "insert"}
	boom := errors.New("handler failed")

	calls := 0
	err := NewWatcher(nil).Run(context.Background(), &fakeSource{cursor: cursor}, NewSubscription(nil, nil), func(context.Context, Event) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cursor.closeCount())
}

func TestRun_StreamErrors(t *testing.T) {
	replicaErr := mongo.CommandError{Code: 40573, Name: "Location40573", Message: "The $changeStream stage is only supported on replica sets"}
	otherErr := mongo.CommandError{Code: 280, Name: "ChangeStreamFatalError", Message: "resume token lost"}

	t.Run("open on standalone", func(t *testing.T) {
		err := NewWatcher(nil).Run(context.Background(), &fakeSource{err: replicaErr}, NewSubscription(nil, nil), nil)
		assert.ErrorIs(t, err, core.ErrReplicaSetRequired)
		assert.Contains(t, err.Error(), MessageReplicaSetRequired)
	})

	t.Run("cursor failure", func(t *testing.T) {
		cursor := newFakeCursor()
		cursor.err = otherErr
		close(cursor.events)

		err := NewWatcher(nil).Run(context.Background(), &fakeSource{cursor: cursor}, NewSubscription(nil, nil), nil)
		assert.ErrorIs(t, err, core.ErrStreamingServer)
		assert.Contains(t, err.Error(), "Unexpected error while watch pipeline: resume token lost")
		assert.Equal(t, 1, cursor.closeCount())
	})

	t.Run("stream end without error", func(t *testing.T) {
		cursor := newFakeCursor()
		close(cursor.events)
		err := NewWatcher(nil).Run(context.Background(), &fakeSource{cursor: cursor}, NewSubscription(nil, nil), nil)
		assert.NoError(t, err)
		assert.Equal(t, 1, cursor.closeCount())
	})
}

func TestNewSubscription_UniqueIDs(t *testing.T) {
	a := NewSubscription(nil, nil)
	b := NewSubscription(nil, nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestWatcher_ActiveCount(t *testing.T) {
	cursor := newFakeCursor()
	w := NewWatcher(nil)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	done := make(chan error, 1)
	cursor.events <- bson.M{"operationType": "insert"}
	go func() {
		done <- w.Run(ctx, &fakeSource{cursor: cursor}, NewSubscription(nil, nil), func(context.Context, Event) error {
			close(started)
			return nil
		})
	}()

	<-started
	assert.Equal(t, int64(1), w.Active())
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int64(0), w.Active())
}
