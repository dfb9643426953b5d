// Package health periodically tests every entity connection.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Target is one entity whose connection is tested.
type Target interface {
	EntityID() string
	TestConnection(ctx context.Context) bool
}

// Targets returns the current set of targets; it is called on every tick.
type Targets func() []Target

// Monitor runs TestConnection across all targets on a ticker.
type Monitor struct {
	interval time.Duration
	targets  Targets
	log      *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor. A non-positive interval disables it.
func NewMonitor(interval time.Duration, targets Targets, log *zap.SugaredLogger) *Monitor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Monitor{interval: interval, targets: targets, log: log}
}

// Start launches the ticker goroutine. Starting a running or disabled monitor
// does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interval <= 0 || m.cancel != nil {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.RunOnce(ctx)
			}
		}
	}()
	m.log.Infow("health checks started", "interval", m.interval)
}

// RunOnce tests every target sequentially.
func (m *Monitor) RunOnce(ctx context.Context) {
	for _, t := range m.targets() {
		if ctx.Err() != nil {
			return
		}
		if !t.TestConnection(ctx) {
			m.log.Debugw("health check failed", "entity", t.EntityID())
		}
	}
}

// Stop cancels the ticker and waits for an in-flight pass, at most timeout.
func (m *Monitor) Stop(timeout time.Duration) {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		m.log.Warnw("timed out waiting for health checks to stop")
	}
}
