// Package registry keeps the set of configured entities and reconciles it
// against freshly loaded configuration.
package registry

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/peternagy/mongoplug/internal/catalog"
	"github.com/peternagy/mongoplug/internal/connection"
	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/types"
)

// Factory builds the reconciler of a newly configured entity.
type Factory func(entityID string) *connection.Service

// RemoveHook is called after an entity has been torn down and dropped.
type RemoveHook func(entityID string)

// SyncReport summarises one Sync pass.
type SyncReport struct {
	Added        []string
	Reconfigured []string
	Unchanged    []string
	Removed      []string
}

// Registry is the entity directory.
type Registry struct {
	newService Factory
	onRemove   RemoveHook
	log        *zap.SugaredLogger

	// syncMu serializes Sync passes; mu guards the map.
	syncMu   sync.Mutex
	mu       sync.RWMutex
	services map[string]*connection.Service
}

// New creates an empty registry.
func New(factory Factory, onRemove RemoveHook, log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		newService: factory,
		onRemove:   onRemove,
		log:        log,
		services:   make(map[string]*connection.Service),
	}
}

// Lookup returns the service of an entity.
func (r *Registry) Lookup(entityID string) (*connection.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[entityID]
	if !ok {
		return nil, &core.EntityNotFoundError{EntityID: entityID}
	}
	return s, nil
}

// All returns every service sorted by entity id.
func (r *Registry) All() []*connection.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*connection.Service, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out
}

// Sync applies cfgs: new entities are created, existing ones re-applied and
// entities missing from cfgs torn down and removed. Connects happen outside
// the map lock so lookups never wait on the network.
func (r *Registry) Sync(ctx context.Context, cfgs []types.EntityConfig) SyncReport {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	var report SyncReport
	wanted := make(map[string]bool, len(cfgs))
	type pending struct {
		svc   *connection.Service
		cfg   types.EntityConfig
		added bool
	}
	var toApply []pending
	var removed []*connection.Service

	r.mu.Lock()
	for _, cfg := range cfgs {
		if cfg.ID == "" || wanted[cfg.ID] {
			r.log.Warnw("skipping entity with empty or duplicate id", "id", cfg.ID)
			continue
		}
		wanted[cfg.ID] = true
		svc, ok := r.services[cfg.ID]
		if !ok {
			svc = r.newService(cfg.ID)
			r.services[cfg.ID] = svc
		}
		toApply = append(toApply, pending{svc: svc, cfg: cfg, added: !ok})
	}
	for id, svc := range r.services {
		if !wanted[id] {
			delete(r.services, id)
			removed = append(removed, svc)
		}
	}
	r.mu.Unlock()
	sort.Slice(removed, func(i, j int) bool { return removed[i].EntityID() < removed[j].EntityID() })

	for _, p := range toApply {
		result := p.svc.Apply(ctx, p.cfg)
		switch {
		case p.added:
			report.Added = append(report.Added, p.cfg.ID)
		case result == types.Reconfigured:
			report.Reconfigured = append(report.Reconfigured, p.cfg.ID)
		default:
			report.Unchanged = append(report.Unchanged, p.cfg.ID)
		}
	}
	for _, svc := range removed {
		svc.Teardown(ctx)
		if r.onRemove != nil {
			r.onRemove(svc.EntityID())
		}
		report.Removed = append(report.Removed, svc.EntityID())
	}

	r.log.Infow("entities synced", "added", report.Added, "reconfigured", report.Reconfigured,
		"unchanged", len(report.Unchanged), "removed", report.Removed)
	return report
}

// Close tears down every entity.
func (r *Registry) Close(ctx context.Context) {
	for _, s := range r.All() {
		s.Teardown(ctx)
	}
}

// Directory adapts the registry to the catalog's read-only view.
func (r *Registry) Directory() catalog.Directory {
	return directory{r: r}
}

type directory struct {
	r *Registry
}

func (d directory) Lookup(entityID string) (catalog.Entity, error) {
	s, err := d.r.Lookup(entityID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d directory) All() []catalog.Entity {
	services := d.r.All()
	out := make([]catalog.Entity, 0, len(services))
	for _, s := range services {
		out = append(out, s)
	}
	return out
}
