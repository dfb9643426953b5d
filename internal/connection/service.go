// Package connection owns the live MongoDB connection of each entity and
// reconciles it against configuration changes.
package connection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/credential"
	"github.com/peternagy/mongoplug/internal/database"
	"github.com/peternagy/mongoplug/internal/types"
)

// MessageNotSelected is the status message of an entity without a database.
const MessageNotSelected = "database is not selected"

// Observer is told about every status change of a service.
type Observer interface {
	StatusChanged(ctx context.Context, s *Service)
}

// Option configures a Service.
type Option func(*Service)

// WithDialer replaces the function used to build handles.
func WithDialer(d Dialer) Option {
	return func(s *Service) { s.dial = d }
}

// WithObserver registers an observer for status changes.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the service logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = log }
}

// Service reconciles one entity's connection against its configuration.
type Service struct {
	entityID string
	dial     Dialer
	observer Observer
	log      *zap.SugaredLogger

	// mu serializes Apply, Reconnect and Teardown. Readers never take it.
	mu          sync.Mutex
	fingerprint string
	applied     bool

	handle atomic.Pointer[Handle]
	config atomic.Pointer[types.EntityConfig]

	statusMu sync.RWMutex
	status   types.HealthStatus
}

// NewService creates a reconciler for an entity. Nothing is connected until Apply.
func NewService(entityID string, opts ...Option) *Service {
	s := &Service{
		entityID: entityID,
		dial:     Dial,
		log:      zap.NewNop().Sugar(),
		status:   types.HealthStatus{State: types.StateOffline, UpdatedAt: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("entity", entityID)
	s.config.Store(&types.EntityConfig{ID: entityID})
	return s
}

// EntityID returns the entity identifier.
func (s *Service) EntityID() string { return s.entityID }

// Entity returns the last applied configuration.
func (s *Service) Entity() types.EntityConfig { return *s.config.Load() }

// Status returns the current health status.
func (s *Service) Status() types.HealthStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Apply reconciles the connection against cfg. A matching fingerprint only
// refreshes metadata; anything else rebuilds the handle.
func (s *Service) Apply(ctx context.Context, cfg types.EntityConfig) types.ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg.ID = s.entityID
	prev := s.config.Swap(&cfg)
	fp := Fingerprint(cfg.ConnectionConfig)
	if s.applied && fp == s.fingerprint {
		if prev.Title != cfg.Title {
			s.log.Debugw("title changed", "title", cfg.Title)
		}
		s.notify(ctx)
		return types.Unchanged
	}

	s.fingerprint = fp
	s.applied = true
	s.log.Infow("applying configuration", "url", credential.RedactURI(cfg.URL), "database", cfg.Database)
	s.rebuild(ctx, cfg.ConnectionConfig)
	s.notify(ctx)
	return types.Reconfigured
}

// Reconnect rebuilds the handle from the last applied configuration even when
// nothing changed. It reports whether the entity is online afterwards.
func (s *Service) Reconnect(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.applied {
		return false
	}
	s.rebuild(ctx, s.Entity().ConnectionConfig)
	s.notify(ctx)
	return s.Status().State == types.StateOnline
}

// Teardown closes the handle. Calling it again is a no-op.
func (s *Service) Teardown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applied = false
	s.fingerprint = ""
	if old := s.handle.Swap(nil); old != nil {
		s.closeHandle(ctx, old)
		s.log.Infow("connection torn down")
	}
}

// rebuild replaces the handle. The new handle is published before the old one
// is closed. Callers hold mu.
func (s *Service) rebuild(ctx context.Context, cfg types.ConnectionConfig) {
	if cfg.Database == "" {
		s.closeHandle(ctx, s.handle.Swap(nil))
		s.setStatus(types.StateConfiguring, MessageNotSelected)
		return
	}

	h, err := s.dial(ctx, cfg)
	if err != nil {
		s.closeHandle(ctx, s.handle.Swap(nil))
		s.log.Warnw("connection failed", "error", err)
		s.setStatus(types.StateOffline, err.Error())
		return
	}

	s.closeHandle(ctx, s.handle.Swap(h))
	s.setStatus(types.StateOnline, "")
}

func (s *Service) closeHandle(ctx context.Context, h *Handle) {
	if h == nil {
		return
	}
	if err := h.Close(ctx); err != nil {
		s.log.Warnw("failed to close connection", "error", err)
	}
}

// TestConnection lists one collection name on the live handle and updates the
// status accordingly. It never returns an error. A result that arrives after
// the handle was replaced or torn down is discarded.
func (s *Service) TestConnection(ctx context.Context) bool {
	h := s.handle.Load()
	var err error
	if h != nil {
		err = h.Check(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.applied || s.handle.Load() != h {
		return false
	}

	switch {
	case s.Entity().RequiresConfigure():
		s.setStatus(types.StateConfiguring, MessageNotSelected)
	case h == nil:
		// Keep the dial error of the last rebuild as the message.
	case err != nil:
		s.setStatus(types.StateOffline, err.Error())
	default:
		s.setStatus(types.StateOnline, "")
	}
	s.notify(ctx)
	return h != nil && err == nil
}

// Database returns the database of the current handle.
func (s *Service) Database() (*mongo.Database, error) {
	h := s.handle.Load()
	if h == nil {
		return nil, &core.NotConnectedError{EntityID: s.entityID}
	}
	return h.Database(), nil
}

// CollectionNames lists the collections of the live database.
func (s *Service) CollectionNames(ctx context.Context) ([]string, error) {
	db, err := s.Database()
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, &core.NotConnectedError{EntityID: s.entityID}
	}
	return database.ListCollectionNames(ctx, db)
}

// ServerVersion runs buildInfo on the live client.
func (s *Service) ServerVersion(ctx context.Context) (string, error) {
	h := s.handle.Load()
	if h == nil || h.Client() == nil {
		return "", &core.NotConnectedError{EntityID: s.entityID}
	}

	ctx, cancel := core.ContextWithTimeout(ctx)
	defer cancel()

	var result bson.M
	if err := h.Client().Database("admin").RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to run buildInfo: %w", err)
	}
	version, ok := result["version"].(string)
	if !ok {
		return "", fmt.Errorf("buildInfo returned no version")
	}
	return version, nil
}

func (s *Service) setStatus(state types.HealthState, message string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = types.HealthStatus{State: state, Message: message, UpdatedAt: time.Now()}
}

func (s *Service) notify(ctx context.Context) {
	if s.observer != nil {
		s.observer.StatusChanged(ctx, s)
	}
}

// ListDatabaseNames opens a short-lived client for cfg and lists its database
// names. The client is always closed; failures yield an empty list.
func ListDatabaseNames(ctx context.Context, cfg types.ConnectionConfig, log *zap.SugaredLogger) []string {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx, cancel := core.ContextWithConnectTimeout(ctx)
	defer cancel()

	client, err := mongo.Connect(ctx, ClientOptions(cfg))
	if err != nil {
		log.Debugw("failed to connect for database listing", "error", err)
		return []string{}
	}
	defer func() {
		closeCtx, closeCancel := core.WithTimeout(context.Background(), core.DefaultCloseTimeout)
		defer closeCancel()
		_ = client.Disconnect(closeCtx)
	}()

	names, err := database.ListDatabaseNames(ctx, client)
	if err != nil {
		log.Debugw("failed to list databases", "error", err)
		return []string{}
	}
	return names
}
