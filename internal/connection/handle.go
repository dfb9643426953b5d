package connection

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/types"
)

// Fingerprint hashes the connection-relevant fields of a configuration.
// Each field is length prefixed so that moving characters between adjacent
// fields always changes the hash.
func Fingerprint(cfg types.ConnectionConfig) string {
	h := sha256.New()
	for _, field := range []string{cfg.URL, cfg.User, cfg.Password, cfg.Database} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(field)))
		h.Write(n[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Handle is one live client bound to the entity database.
type Handle struct {
	client      *mongo.Client
	database    *mongo.Database
	fingerprint string

	// check and disconnect default to the client; tests replace them.
	check      func(ctx context.Context) error
	disconnect func(ctx context.Context) error

	closeOnce sync.Once
	closeErr  error
}

// NewHandle wraps a connected client. A nil client yields a handle without a
// database, which is only useful in tests.
func NewHandle(client *mongo.Client, cfg types.ConnectionConfig) *Handle {
	h := &Handle{client: client, fingerprint: Fingerprint(cfg)}
	if client != nil {
		h.database = client.Database(cfg.Database)
		h.check = h.listOneCollection
		h.disconnect = client.Disconnect
	}
	return h
}

// Client returns the underlying client.
func (h *Handle) Client() *mongo.Client { return h.client }

// Database returns the entity database.
func (h *Handle) Database() *mongo.Database { return h.database }

// Fingerprint returns the fingerprint of the configuration the handle was built from.
func (h *Handle) Fingerprint() string { return h.fingerprint }

// Close disconnects the client. Only the first call does any work.
func (h *Handle) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		if h.disconnect == nil {
			return
		}
		ctx, cancel := core.WithTimeout(ctx, core.DefaultCloseTimeout)
		defer cancel()
		h.closeErr = h.disconnect(ctx)
	})
	return h.closeErr
}

// Check lists at most one collection name of the entity database.
func (h *Handle) Check(ctx context.Context) error {
	if h.check == nil {
		return errNoDatabase
	}
	return h.check(ctx)
}

var errNoDatabase = errors.New("connection has no database")

func (h *Handle) listOneCollection(ctx context.Context) error {
	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	opts := options.ListCollections().SetNameOnly(true).SetBatchSize(1)
	cursor, err := h.database.ListCollections(ctx, bson.D{}, opts)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	defer cursor.Close(ctx)
	cursor.Next(ctx)
	return cursor.Err()
}

// Dialer builds a handle for a configuration.
type Dialer func(ctx context.Context, cfg types.ConnectionConfig) (*Handle, error)

// ClientOptions builds driver options for a configuration. When a user is set,
// the entity database is the auth source.
func ClientOptions(cfg types.ConnectionConfig) *options.ClientOptions {
	url := cfg.URL
	if url == "" {
		url = types.DefaultURL
	}
	opts := options.Client().ApplyURI(url).SetConnectTimeout(core.DefaultConnectTimeout)
	if cfg.User != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.User,
			Password:   cfg.Password,
			AuthSource: cfg.Database,
		})
	} else if cfg.Password != "" && opts.Auth != nil {
		// User from the url, password kept out of it.
		opts.Auth.Password = cfg.Password
		opts.Auth.PasswordSet = true
	}
	return opts
}

// Dial connects and pings within the connect timeout.
func Dial(ctx context.Context, cfg types.ConnectionConfig) (*Handle, error) {
	ctx, cancel := core.ContextWithConnectTimeout(ctx)
	defer cancel()

	client, err := mongo.Connect(ctx, ClientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		closeCtx, closeCancel := core.WithTimeout(context.Background(), core.DefaultCloseTimeout)
		defer closeCancel()
		_ = client.Disconnect(closeCtx)
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return NewHandle(client, cfg), nil
}
