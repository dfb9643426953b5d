package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/mongoplug/internal/core"
)

// CreateCollection creates a collection in the entity database.
func (s *Service) CreateCollection(ctx context.Context, db *mongo.Database, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return core.Translate("createCollection", err)
	}

	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	if err := db.CreateCollection(ctx, name); err != nil {
		return core.Translate("createCollection", err)
	}
	s.log.Debugw("collection created", "database", db.Name(), "collection", name)
	return nil
}

// DropCollection drops a collection. Dropping a missing collection is not an error.
func (s *Service) DropCollection(ctx context.Context, coll *mongo.Collection) error {
	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	if err := coll.Drop(ctx); err != nil {
		return core.Translate("dropCollection", err)
	}
	s.log.Debugw("collection dropped", "database", coll.Database().Name(), "collection", coll.Name())
	return nil
}
