package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/mongoplug/internal/connection"
	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/database"
	"github.com/peternagy/mongoplug/internal/types"
)

// ResolveDatabase returns the live database of an entity.
func (c *Catalog) ResolveDatabase(entityID string) (*mongo.Database, error) {
	if entityID == "" {
		return nil, core.NewError(core.KindInvalidArgument, "resolve", "entity is not selected")
	}
	entity, err := c.dir.Lookup(entityID)
	if err != nil {
		return nil, core.Translate("resolve", err)
	}
	db, err := entity.Database()
	if err != nil {
		return nil, core.Translate("resolve", err)
	}
	if db == nil {
		return nil, core.Translate("resolve", &core.NotConnectedError{EntityID: entityID})
	}
	return db, nil
}

// ResolveCollection binds an "entityId/collection" reference to a collection
// of the entity's current handle.
func (c *Catalog) ResolveCollection(ref string) (*mongo.Collection, error) {
	entityID, name, err := database.SplitTarget(ref)
	if err != nil {
		return nil, core.Translate("resolve", err)
	}
	db, err := c.ResolveDatabase(entityID)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// EntityCollections lists "entityId/collection" options across every entity
// with a live handle. Entities that fail to list are skipped.
func (c *Catalog) EntityCollections(ctx context.Context) []types.Option {
	options := []types.Option{}
	for _, entity := range c.dir.All() {
		cfg := entity.Entity()
		names, err := entity.CollectionNames(ctx)
		if err != nil {
			c.log.Debugw("skipping entity in collection menu", "entity", cfg.ID, "error", err)
			continue
		}
		sort.Strings(names)
		for _, name := range names {
			options = append(options, types.Option{
				Value: cfg.ID + "/" + name,
				Label: fmt.Sprintf("%s (%s)", cfg.DisplayTitle(), name),
			})
		}
	}
	return options
}

// Entities lists every configured entity as a menu option.
func (c *Catalog) Entities() []types.Option {
	options := []types.Option{}
	for _, entity := range c.dir.All() {
		cfg := entity.Entity()
		options = append(options, types.Option{Value: cfg.ID, Label: cfg.DisplayTitle()})
	}
	return options
}

// DatabaseNames lists the databases reachable with an entity's settings over
// a short-lived connection. Any failure yields an empty list.
func (c *Catalog) DatabaseNames(ctx context.Context, entityID string) []types.Option {
	options := []types.Option{}
	entity, err := c.dir.Lookup(entityID)
	if err != nil {
		return options
	}
	for _, name := range c.listDBs(ctx, entity.Entity().ConnectionConfig) {
		options = append(options, types.Option{Value: name, Label: name})
	}
	return options
}

func (c *Catalog) shortLivedDatabaseNames(ctx context.Context, cfg types.ConnectionConfig) []string {
	names := connection.ListDatabaseNames(ctx, cfg, c.log)
	sort.Strings(names)
	return names
}

// Describe renders an operation template with its argument defaults filled in.
func Describe(op Operation) string {
	text := op.Template
	for _, a := range op.Args {
		if a.Default == nil {
			continue
		}
		text = strings.ReplaceAll(text, "["+a.Name+"]", fmt.Sprint(a.Default))
	}
	return text
}
