// Package database handles MongoDB database, collection and index operations.
package database

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/peternagy/mongoplug/internal/core"
)

// Service handles database level operations against a resolved database or collection.
type Service struct {
	log *zap.SugaredLogger
}

// NewService creates a new database service.
func NewService(log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{log: log}
}

// ListDatabaseNames returns the database names visible to a client, sorted by name.
func ListDatabaseNames(ctx context.Context, client *mongo.Client) ([]string, error) {
	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	names, err := client.ListDatabaseNames(ctx, bson.D{}, options.ListDatabases().SetNameOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// ListCollectionNames returns all collection names in a database, sorted by name.
func ListCollectionNames(ctx context.Context, db *mongo.Database) ([]string, error) {
	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	names, err := db.ListCollectionNames(ctx, bson.D{}, options.ListCollections().SetNameOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
