package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/types"
	"github.com/peternagy/mongoplug/internal/watch"
)

type fakeEntity struct {
	cfg   types.EntityConfig
	names []string
	err   error
}

func (e *fakeEntity) Entity() types.EntityConfig { return e.cfg }

func (e *fakeEntity) Database() (*mongo.Database, error) {
	return nil, &core.NotConnectedError{EntityID: e.cfg.ID}
}

func (e *fakeEntity) CollectionNames(context.Context) ([]string, error) {
	return e.names, e.err
}

type fakeDirectory struct {
	entities []*fakeEntity
	lookups  int
}

func (d *fakeDirectory) Lookup(id string) (Entity, error) {
	d.lookups++
	for _, e := range d.entities {
		if e.cfg.ID == id {
			return e, nil
		}
	}
	return nil, &core.EntityNotFoundError{EntityID: id}
}

func (d *fakeDirectory) All() []Entity {
	out := make([]Entity, 0, len(d.entities))
	for _, e := range d.entities {
		out = append(out, e)
	}
	return out
}

func newTestCatalog() (*Catalog, *fakeDirectory) {
	dir := &fakeDirectory{entities: []*fakeEntity{
		{cfg: types.EntityConfig{ID: "m1", Title: "Main"}, names: []string{"users", "orders"}},
		{cfg: types.EntityConfig{ID: "m2"}, err: errors.New("connection refused")},
		{cfg: types.EntityConfig{ID: "m3", Title: "Reports"}, names: []string{"daily"}},
	}}
	c := New(dir, nil, WithDatabaseLister(func(_ context.Context, cfg types.ConnectionConfig) []string {
		return []string{"admin", "app"}
	}))
	return c, dir
}

func TestOperations_Order(t *testing.T) {
	c, _ := newTestCatalog()

	var ids []string
	var orders []int
	for _, op := range c.Operations() {
		ids = append(ids, op.ID)
		orders = append(orders, op.Order)
	}
	assert.Equal(t, []string{"watch", "createDoc", "countDoc", "readDoc", "readDocs", "deleteDoc",
		"updateDoc", "createColl", "dropColl", "createIndex", "dropIndex"}, ids)
	assert.Equal(t, []int{10, 20, 30, 34, 35, 40, 60, 100, 110, 120, 130}, orders)
}

func TestOperations_Defaults(t *testing.T) {
	c, _ := newTestCatalog()

	tests := []struct {
		op, arg string
		want    any
	}{
		{"watch", ParamFilter, "{}"},
		{"watch", ParamKinds, "ANY"},
		{"createDoc", ParamValue, `{"test":1}`},
		{"readDocs", ParamLimit, 100},
		{"readDocs", ParamSort, "{}"},
		{"deleteDoc", ParamType, "Many"},
		{"updateDoc", ParamValue, `{"$set":{"test":1}}`},
		{"updateDoc", ParamUpsert, false},
		{"createColl", ParamColl, "name"},
		{"createIndex", ParamName, "stars, name"},
		{"createIndex", ParamSort, "Asc"},
		{"createIndex", ParamUnique, false},
		{"dropIndex", ParamName, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.op+"/"+tt.arg, func(t *testing.T) {
			op, ok := c.Operation(tt.op)
			require.True(t, ok)
			arg, ok := op.Arg(tt.arg)
			require.True(t, ok)
			assert.Equal(t, tt.want, arg.Default)
		})
	}

	watchOp, _ := c.Operation("watch")
	assert.Equal(t, KindHat, watchOp.Kind)
	kinds, _ := watchOp.Arg(ParamKinds)
	assert.Contains(t, kinds.Options, "DROP_DATABASE")
	assert.Equal(t, "Insert doc {\"test\":1} of [DBC]", Describe(mustOp(t, c, "createDoc")))
}

func mustOp(t *testing.T, c *Catalog, id string) Operation {
	t.Helper()
	op, ok := c.Operation(id)
	require.True(t, ok)
	return op
}

func TestInvoke_Errors(t *testing.T) {
	noop := func(context.Context, watch.Event) error { return nil }

	tests := []struct {
		name        string
		req         types.OperationRequest
		want        error
		wantLookups int
	}{
		{
			name: "unknown operation",
			req:  types.OperationRequest{Operation: "explode", TargetRef: "m1/users"},
			want: core.ErrInvalidArgument,
		},
		{
			name: "malformed filter before resolution",
			req:  types.OperationRequest{Operation: "countDoc", TargetRef: "m1/users", Arguments: map[string]any{"FILTER": "{oops"}},
			want: core.ErrMalformedDocument,
		},
		{
			name:        "unknown entity",
			req:         types.OperationRequest{Operation: "readDoc", TargetRef: "nope/users"},
			want:        core.ErrNotFound,
			wantLookups: 1,
		},
		{
			name:        "entity not connected",
			req:         types.OperationRequest{Operation: "readDocs", TargetRef: "m1/users"},
			want:        core.ErrConnection,
			wantLookups: 1,
		},
		{
			name: "bad target",
			req:  types.OperationRequest{Operation: "dropColl", TargetRef: "m1"},
			want: core.ErrInvalidArgument,
		},
		{
			name: "unknown delete type",
			req:  types.OperationRequest{Operation: "deleteDoc", TargetRef: "m1/users", Arguments: map[string]any{"TYPE": "Some"}},
			want: core.ErrInvalidArgument,
		},
		{
			name: "limit not a number",
			req:  types.OperationRequest{Operation: "readDocs", TargetRef: "m1/users", Arguments: map[string]any{"LIMIT": "lots"}},
			want: core.ErrInvalidArgument,
		},
		{
			name: "empty index field list",
			req:  types.OperationRequest{Operation: "createIndex", TargetRef: "m1/users", Arguments: map[string]any{"NAME": " , "}},
			want: core.ErrInvalidArgument,
		},
		{
			name: "default index refused",
			req:  types.OperationRequest{Operation: "dropIndex", TargetRef: "m1/users", Arguments: map[string]any{"NAME": "_id_"}},
			want: core.ErrInvalidArgument,
		},
		{
			// Resolution fails first; the operator check runs in the executor.
			name:        "update without operators",
			req:         types.OperationRequest{Operation: "updateDoc", TargetRef: "m1/users", Arguments: map[string]any{"VALUE": `{"a":1}`}},
			want:        core.ErrConnection,
			wantLookups: 1,
		},
		{
			name: "unknown change type",
			req:  types.OperationRequest{Operation: "watch", TargetRef: "m1/users", Arguments: map[string]any{"OT": "INSERT | EXPLODE"}},
			want: core.ErrInvalidArgument,
		},
		{
			name:        "watch on offline entity",
			req:         types.OperationRequest{Operation: "watch", TargetRef: "m1/users", Arguments: map[string]any{"OT": []any{"INSERT"}}},
			want:        core.ErrConnection,
			wantLookups: 1,
		},
		{
			name:        "create collection on offline entity",
			req:         types.OperationRequest{Operation: "createColl", Arguments: map[string]any{"DB": "m1", "COLL": "events"}},
			want:        core.ErrConnection,
			wantLookups: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, dir := newTestCatalog()
			v, err := c.Invoke(context.Background(), tt.req, noop)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, v.IsVoid())
			assert.Equal(t, tt.wantLookups, dir.lookups)

			var opErr *core.OperationError
			assert.ErrorAs(t, err, &opErr)
		})
	}
}

func TestInvoke_WatchWithoutContinuation(t *testing.T) {
	c, _ := newTestCatalog()
	_, err := c.Invoke(context.Background(), types.OperationRequest{Operation: "watch", TargetRef: "m1/users"}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestArgs_Coercion(t *testing.T) {
	c, _ := newTestCatalog()
	op := c.ops["readDocs"]

	a := newArgs(op, types.OperationRequest{Arguments: map[string]any{"LIMIT": "25"}})
	limit, err := a.Int(ParamLimit)
	require.NoError(t, err)
	assert.Equal(t, int64(25), limit)

	a = newArgs(op, types.OperationRequest{Arguments: map[string]any{"LIMIT": float64(7)}})
	limit, err = a.Int(ParamLimit)
	require.NoError(t, err)
	assert.Equal(t, int64(7), limit)

	a = newArgs(op, types.OperationRequest{})
	limit, err = a.Int(ParamLimit)
	require.NoError(t, err)
	assert.Equal(t, int64(100), limit, "missing limit takes the default")

	upd := c.ops["updateDoc"]
	a = newArgs(upd, types.OperationRequest{Arguments: map[string]any{"UPSERT": "true", "TYPE": "one"}})
	upsert, err := a.Bool(ParamUpsert)
	require.NoError(t, err)
	assert.True(t, upsert)
	kind, err := a.Enum(ParamType)
	require.NoError(t, err)
	assert.Equal(t, "One", kind)

	w := c.ops["watch"]
	a = newArgs(w, types.OperationRequest{Arguments: map[string]any{"OT": "INSERT | UPDATE"}})
	kinds, err := a.MultiEnum(ParamKinds)
	require.NoError(t, err)
	assert.Equal(t, []string{"INSERT", "UPDATE"}, kinds)

	a = newArgs(w, types.OperationRequest{Arguments: map[string]any{"DBC": "m3/daily"}, TargetRef: "m1/users"})
	assert.Equal(t, "m3/daily", a.Target(ParamDBC), "explicit argument wins over request target")
}

func TestMenus(t *testing.T) {
	c, _ := newTestCatalog()

	assert.Equal(t, []types.Option{
		{Value: "m1/orders", Label: "Main (orders)"},
		{Value: "m1/users", Label: "Main (users)"},
		{Value: "m3/daily", Label: "Reports (daily)"},
	}, c.EntityCollections(context.Background()))

	assert.Equal(t, []types.Option{{Value: "admin", Label: "admin"}, {Value: "app", Label: "app"}},
		c.DatabaseNames(context.Background(), "m1"))
	assert.Empty(t, c.DatabaseNames(context.Background(), "missing"))

	entities := c.Entities()
	require.Len(t, entities, 3)
	assert.Equal(t, types.Option{Value: "m2", Label: "MongoDB"}, entities[1])
}
