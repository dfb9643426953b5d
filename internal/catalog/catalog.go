// Package catalog exposes the fixed set of database operations offered to the
// automation layer, with typed arguments, defaults and dynamic menus.
package catalog

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/database"
	"github.com/peternagy/mongoplug/internal/document"
	"github.com/peternagy/mongoplug/internal/types"
	"github.com/peternagy/mongoplug/internal/watch"
)

// OperationKind is how the automation layer presents an operation.
type OperationKind string

const (
	KindHat      OperationKind = "hat"
	KindCommand  OperationKind = "command"
	KindReporter OperationKind = "reporter"
)

// ArgType is the declared type of an operation argument.
type ArgType string

const (
	ArgEntityCollection ArgType = "entityCollection"
	ArgEntity           ArgType = "entity"
	ArgDocument         ArgType = "document"
	ArgNumber           ArgType = "number"
	ArgBoolean          ArgType = "boolean"
	ArgString           ArgType = "string"
	ArgEnum             ArgType = "enum"
	ArgMultiEnum        ArgType = "multiEnum"
)

// Menus served for argument selection.
const (
	MenuEntityCollections = "/rest/mongo/entityWithColl"
	MenuEntities          = "/rest/mongo/entities"
)

// Arg describes one operation argument.
type Arg struct {
	Name    string   `json:"name"`
	Type    ArgType  `json:"type"`
	Default any      `json:"default,omitempty"`
	Options []string `json:"options,omitempty"`
	Menu    string   `json:"menu,omitempty"`
}

// Continuation receives watch events. Other operations ignore it.
type Continuation = watch.Handler

type handlerFunc func(ctx context.Context, c *Catalog, a *Args, cont Continuation) (types.Value, error)

// Operation is one catalog entry.
type Operation struct {
	ID       string        `json:"id"`
	Kind     OperationKind `json:"kind"`
	Order    int           `json:"order"`
	Template string        `json:"template"`
	Args     []Arg         `json:"args"`

	run handlerFunc
}

// Arg returns the declaration of a named argument.
func (o *Operation) Arg(name string) (Arg, bool) {
	for _, a := range o.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// Entity is the view of a configured entity the catalog needs.
type Entity interface {
	Entity() types.EntityConfig
	Database() (*mongo.Database, error)
	CollectionNames(ctx context.Context) ([]string, error)
}

// Directory resolves entity ids. It is read-only from the catalog's side.
type Directory interface {
	Lookup(entityID string) (Entity, error)
	All() []Entity
}

// DatabaseLister lists database names of a connection configuration.
type DatabaseLister func(ctx context.Context, cfg types.ConnectionConfig) []string

// Catalog dispatches operation requests.
type Catalog struct {
	dir     Directory
	docs    *document.Service
	dbs     *database.Service
	watcher *watch.Watcher
	listDBs DatabaseLister
	log     *zap.SugaredLogger

	ops     map[string]*Operation
	ordered []*Operation
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithDatabaseLister replaces how database menus are produced.
func WithDatabaseLister(l DatabaseLister) Option {
	return func(c *Catalog) { c.listDBs = l }
}

// New builds the catalog over a directory.
func New(dir Directory, log *zap.SugaredLogger, opts ...Option) *Catalog {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Catalog{
		dir:     dir,
		docs:    document.NewService(log.Named("document")),
		dbs:     database.NewService(log.Named("database")),
		watcher: watch.NewWatcher(log.Named("watch")),
		log:     log,
		ops:     make(map[string]*Operation),
	}
	c.listDBs = c.shortLivedDatabaseNames
	for _, opt := range opts {
		opt(c)
	}

	for _, op := range operations() {
		c.ops[op.ID] = &op
		c.ordered = append(c.ordered, &op)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].Order < c.ordered[j].Order })
	return c
}

// ActiveWatches returns the number of watch operations currently streaming.
func (c *Catalog) ActiveWatches() int64 { return c.watcher.Active() }

// Operations returns the catalog in presentation order.
func (c *Catalog) Operations() []Operation {
	out := make([]Operation, 0, len(c.ordered))
	for _, op := range c.ordered {
		out = append(out, *op)
	}
	return out
}

// Operation returns a catalog entry by id.
func (c *Catalog) Operation(id string) (Operation, bool) {
	op, ok := c.ops[id]
	if !ok {
		return Operation{}, false
	}
	return *op, true
}

// Invoke runs one operation. Every error is an *core.OperationError.
// The watch operation blocks until ctx is cancelled.
func (c *Catalog) Invoke(ctx context.Context, req types.OperationRequest, cont Continuation) (types.Value, error) {
	op, ok := c.ops[req.Operation]
	if !ok {
		return types.Void(), core.NewError(core.KindInvalidArgument, req.Operation, "unknown operation %q", req.Operation)
	}

	args := newArgs(op, req)
	value, err := op.run(ctx, c, args, cont)
	if err != nil {
		if op.Kind == KindHat {
			// Already classified, or a continuation error that must surface as is.
			return types.Void(), err
		}
		return types.Void(), core.Translate(op.ID, err)
	}
	return value, nil
}
