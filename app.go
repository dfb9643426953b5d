package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/peternagy/mongoplug/internal/catalog"
	"github.com/peternagy/mongoplug/internal/config"
	"github.com/peternagy/mongoplug/internal/connection"
	"github.com/peternagy/mongoplug/internal/credential"
	"github.com/peternagy/mongoplug/internal/health"
	"github.com/peternagy/mongoplug/internal/logger"
	"github.com/peternagy/mongoplug/internal/notify"
	"github.com/peternagy/mongoplug/internal/registry"
	"github.com/peternagy/mongoplug/internal/server"
	"github.com/peternagy/mongoplug/internal/types"
)

// =============================================================================
// App - Component Wiring
// =============================================================================

// App struct holds the plugin components and their lifecycle
type App struct {
	host config.Host
	log  *logger.Logger
	dial connection.Dialer

	credential *credential.Service
	loader     *config.Loader
	publisher  *notify.Publisher
	registry   *registry.Registry
	catalog    *catalog.Catalog
	server     *server.Server

	mu       sync.Mutex
	ctx      context.Context
	monitor  *health.Monitor
	interval time.Duration

	// reloads tracks the entity file watcher goroutine.
	reloads sync.WaitGroup
}

// NewApp creates a new App instance
func NewApp(host config.Host, log *logger.Logger) *App {
	return newApp(host, log, connection.Dial)
}

func newApp(host config.Host, log *logger.Logger, dial connection.Dialer) *App {
	a := &App{
		host:       host,
		log:        log,
		dial:       dial,
		credential: credential.NewService(),
	}
	a.loader = config.NewLoader(a.credential)
	a.publisher = notify.NewPublisher(notify.NewBoard(), log.Named("notify"))
	a.registry = registry.New(a.newEntity, a.publisher.Forget, log.Named("registry"))
	a.catalog = catalog.New(a.registry.Directory(), log.Named("catalog"))
	a.server = server.New(a.catalog, a.registry, a.publisher.Board(), log.Named("server"),
		server.WithPasswords(a.credential))
	return a
}

func (a *App) newEntity(entityID string) *connection.Service {
	return connection.NewService(entityID,
		connection.WithDialer(a.dial),
		connection.WithObserver(a.publisher),
		connection.WithLogger(a.log.Named("connection")),
	)
}

// startup loads the entity file, connects every entity and starts health checks
func (a *App) startup(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	entities, err := a.loader.Load(a.host.EntitiesFile)
	if err != nil {
		return fmt.Errorf("failed to load entities: %w", err)
	}
	a.apply(ctx, entities)
	return nil
}

// apply reconciles the registry and restarts health checks when the interval changed
func (a *App) apply(ctx context.Context, entities *config.Entities) {
	report := a.registry.Sync(ctx, entities.Entities)
	a.log.Infow("entities applied",
		"added", len(report.Added),
		"reconfigured", len(report.Reconfigured),
		"unchanged", len(report.Unchanged),
		"removed", len(report.Removed),
	)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.monitor != nil && a.interval == entities.HealthInterval {
		return
	}
	if a.monitor != nil {
		a.monitor.Stop(a.host.ShutdownTimeout)
	}
	a.interval = entities.HealthInterval
	a.monitor = health.NewMonitor(a.interval, a.healthTargets, a.log.Named("health"))
	a.monitor.Start(a.ctx)
}

func (a *App) healthTargets() []health.Target {
	services := a.registry.All()
	targets := make([]health.Target, 0, len(services))
	for _, s := range services {
		targets = append(targets, s)
	}
	return targets
}

// watchEntities re-applies the entity file on every change until ctx is done
func (a *App) watchEntities(ctx context.Context) error {
	updates, err := config.Watch(ctx, a.host.EntitiesFile, a.loader, a.log.Named("config"))
	if err != nil {
		return err
	}
	a.reloads.Add(1)
	go func() {
		defer a.reloads.Done()
		for entities := range updates {
			a.apply(ctx, entities)
		}
	}()
	return nil
}

// Run starts the app, serves the REST surface until ctx is done, then shuts down
func (a *App) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}
	defer a.shutdown(context.Background())

	// Also stops the entity watcher when the server fails on its own.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.host.WatchEntities {
		if err := a.watchEntities(ctx); err != nil {
			a.log.Warnw("entity file will not be reloaded", "error", err)
		}
	}
	return a.server.Run(ctx, a.host.ListenAddr, a.host.ShutdownTimeout)
}

// shutdown waits for an in-flight reload, stops health checks and closes
// every connection. The watcher context must already be done.
func (a *App) shutdown(ctx context.Context) {
	a.reloads.Wait()

	a.mu.Lock()
	monitor := a.monitor
	a.monitor = nil
	a.mu.Unlock()
	if monitor != nil {
		monitor.Stop(a.host.ShutdownTimeout)
	}

	a.registry.Close(ctx)
	a.log.Infow("shutdown complete")
}

// =============================================================================
// Operations
// =============================================================================

// Invoke runs one catalog operation
func (a *App) Invoke(ctx context.Context, req types.OperationRequest, cont catalog.Continuation) (types.Value, error) {
	return a.catalog.Invoke(ctx, req, cont)
}
