// Package notify renders entity health into status blocks and keeps the
// latest block per entity for the host to read.
package notify

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/peternagy/mongoplug/internal/connection"
	"github.com/peternagy/mongoplug/internal/types"
)

const (
	ColorOnline      = "#32A318"
	ColorOffline     = "#C62828"
	ColorConfiguring = "#9E9E9E"

	Icon = "fas fa-mountain"

	// UnknownVersion is shown when an online server does not report its version.
	UnknownVersion = "unknown"
)

// Render builds the status block for an entity. versionErr is only consulted
// when the entity is online.
func Render(entity types.EntityConfig, status types.HealthStatus, version string, versionErr error) types.StatusBlock {
	block := types.StatusBlock{
		EntityID: entity.ID,
		Title:    entity.DisplayTitle(),
		Status:   status.State,
		Icon:     Icon,
	}

	switch status.State {
	case types.StateOnline:
		block.Color = ColorOnline
		block.Version = version
		if versionErr != nil || version == "" {
			block.Version = UnknownVersion
		}
	case types.StateConfiguring:
		block.Color = ColorConfiguring
		block.Error = status.Message
		if block.Error == "" {
			block.Error = connection.MessageNotSelected
		}
	default:
		block.Color = ColorOffline
		block.Error = status.Message
	}
	return block
}

// Source is what the publisher reads from an entity.
type Source interface {
	Entity() types.EntityConfig
	Status() types.HealthStatus
	ServerVersion(ctx context.Context) (string, error)
}

// Board holds the latest status block per entity.
type Board struct {
	mu     sync.RWMutex
	blocks map[string]types.StatusBlock
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{blocks: make(map[string]types.StatusBlock)}
}

// Put stores a block, replacing the previous one for the entity.
func (b *Board) Put(block types.StatusBlock) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks[block.EntityID] = block
}

// Get returns the block of an entity.
func (b *Board) Get(entityID string) (types.StatusBlock, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	block, ok := b.blocks[entityID]
	return block, ok
}

// All returns every block sorted by entity id.
func (b *Board) All() []types.StatusBlock {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.StatusBlock, 0, len(b.blocks))
	for _, block := range b.blocks {
		out = append(out, block)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Remove drops the block of an entity.
func (b *Board) Remove(entityID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blocks, entityID)
}

// Publisher refreshes board entries when entity status changes.
type Publisher struct {
	board *Board
	log   *zap.SugaredLogger
}

// NewPublisher creates a publisher writing to board.
func NewPublisher(board *Board, log *zap.SugaredLogger) *Publisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Publisher{board: board, log: log}
}

// Board returns the board the publisher writes to.
func (p *Publisher) Board() *Board { return p.board }

// Refresh reads the entity status, looks up the version when online and
// stores the resulting block.
func (p *Publisher) Refresh(ctx context.Context, src Source) types.StatusBlock {
	status := src.Status()
	var (
		version    string
		versionErr error
	)
	if status.State == types.StateOnline {
		version, versionErr = src.ServerVersion(ctx)
		if versionErr != nil {
			p.log.Debugw("server version lookup failed", "entity", src.Entity().ID, "error", versionErr)
		}
	}

	block := Render(src.Entity(), status, version, versionErr)
	p.board.Put(block)
	return block
}

// StatusChanged implements connection.Observer.
func (p *Publisher) StatusChanged(ctx context.Context, s *connection.Service) {
	p.Refresh(ctx, s)
}

// Forget removes an entity from the board once it is no longer configured.
func (p *Publisher) Forget(entityID string) {
	p.board.Remove(entityID)
}
