package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/peternagy/mongoplug/internal/core"
)

// IndexKeys builds the keys document for a compound index where every field
// shares one direction.
func IndexKeys(fields []string, descending bool) bson.D {
	order := 1
	if descending {
		order = -1
	}
	keys := make(bson.D, 0, len(fields))
	for _, field := range fields {
		keys = append(keys, bson.E{Key: field, Value: order})
	}
	return keys
}

// CreateIndex creates an index over a comma separated field list.
func (s *Service) CreateIndex(ctx context.Context, coll *mongo.Collection, fieldList string, descending, unique bool) error {
	fields, err := ParseIndexFields(fieldList)
	if err != nil {
		return core.Translate("createIndex", err)
	}

	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	indexOpts := options.Index()
	if unique {
		indexOpts.SetUnique(true)
	}

	indexModel := mongo.IndexModel{
		Keys:    IndexKeys(fields, descending),
		Options: indexOpts,
	}

	name, err := coll.Indexes().CreateOne(ctx, indexModel)
	if err != nil {
		return core.Translate("createIndex", err)
	}
	s.log.Debugw("index created", "collection", coll.Name(), "index", name, "unique", unique)
	return nil
}

// DropIndex drops an index by name. The default _id index is refused.
func (s *Service) DropIndex(ctx context.Context, coll *mongo.Collection, indexName string) error {
	if err := ValidateIndexName(indexName); err != nil {
		return core.Translate("dropIndex", err)
	}

	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	if _, err := coll.Indexes().DropOne(ctx, indexName); err != nil {
		return core.Translate("dropIndex", err)
	}
	s.log.Debugw("index dropped", "collection", coll.Name(), "index", indexName)
	return nil
}
