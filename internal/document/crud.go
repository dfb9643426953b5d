// Package document handles MongoDB document CRUD operations.
package document

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/peternagy/mongoplug/internal/bsonutil"
	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/types"
)

// DefaultReadLimit caps readDocs when no limit is given.
const DefaultReadLimit = 100

// Service handles document CRUD operations on a resolved collection.
type Service struct {
	log *zap.SugaredLogger
}

// NewService creates a new document service.
func NewService(log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{log: log}
}

// InsertDocument creates a new document.
func (s *Service) InsertDocument(ctx context.Context, coll *mongo.Collection, doc bson.D) error {
	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	result, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return core.Translate("insertOne", err)
	}
	s.log.Debugw("document inserted", "collection", coll.Name(), "id", result.InsertedID)
	return nil
}

// UpdateDocuments applies an update to the first or all matching documents.
func (s *Service) UpdateDocuments(ctx context.Context, coll *mongo.Collection, filter, update bson.D, many, upsert bool) error {
	op := "updateOne"
	if many {
		op = "updateMany"
	}
	if err := ValidateUpdate(op, update); err != nil {
		return err
	}

	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	opts := options.Update().SetUpsert(upsert)
	var (
		result *mongo.UpdateResult
		err    error
	)
	if many {
		result, err = coll.UpdateMany(ctx, filter, update, opts)
	} else {
		result, err = coll.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return core.Translate(op, err)
	}
	s.log.Debugw("documents updated", "collection", coll.Name(), "matched", result.MatchedCount,
		"modified", result.ModifiedCount, "upserted", result.UpsertedCount)
	return nil
}

// DeleteDocuments deletes the first or all matching documents.
func (s *Service) DeleteDocuments(ctx context.Context, coll *mongo.Collection, filter bson.D, many bool) error {
	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	var (
		result *mongo.DeleteResult
		err    error
	)
	if many {
		result, err = coll.DeleteMany(ctx, filter)
	} else {
		result, err = coll.DeleteOne(ctx, filter)
	}
	if err != nil {
		if many {
			return core.Translate("deleteMany", err)
		}
		return core.Translate("deleteOne", err)
	}
	s.log.Debugw("documents deleted", "collection", coll.Name(), "deleted", result.DeletedCount)
	return nil
}

// CountDocuments counts documents matching a filter.
func (s *Service) CountDocuments(ctx context.Context, coll *mongo.Collection, filter bson.D) (int64, error) {
	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	count, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, core.Translate("countDocuments", err)
	}
	return count, nil
}

// FindDocument returns the first matching document, or nil when nothing matches.
func (s *Service) FindDocument(ctx context.Context, coll *mongo.Collection, filter bson.D) (map[string]any, error) {
	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	raw, err := coll.FindOne(ctx, filter).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Translate("findOne", err)
	}

	doc, err := bsonutil.ToNeutral(raw)
	if err != nil {
		return nil, core.WrapError(core.KindServer, "findOne", err)
	}
	return doc, nil
}

// FindDocuments returns matching documents. Sort is applied only when non-empty
// and limit only when positive.
func (s *Service) FindDocuments(ctx context.Context, coll *mongo.Collection, filter, sort bson.D, limit int64) ([]map[string]any, error) {
	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	findOpts := options.Find()
	if !IsEmpty(sort) {
		findOpts.SetSort(sort)
	}
	if limit > 0 {
		findOpts.SetLimit(limit)
	}

	cursor, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, core.Translate("find", err)
	}
	defer cursor.Close(ctx)

	documents := []map[string]any{}
	for cursor.Next(ctx) {
		doc, err := bsonutil.ToNeutral(cursor.Current)
		if err != nil {
			return nil, core.WrapError(core.KindServer, "find", err)
		}
		documents = append(documents, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, core.Translate("find", err)
	}
	return documents, nil
}

// Read is FindDocument wrapped as a neutral value.
func (s *Service) Read(ctx context.Context, coll *mongo.Collection, filter bson.D) (types.Value, error) {
	doc, err := s.FindDocument(ctx, coll, filter)
	if err != nil {
		return types.Void(), err
	}
	return types.Document(doc), nil
}
