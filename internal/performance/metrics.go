package performance

import (
	"runtime"
	"time"

	"github.com/peternagy/mongoplug/internal/types"
)

// Metrics holds runtime statistics plus entity and watch counts
type Metrics struct {
	// Go runtime
	HeapAlloc      uint64 `json:"heapAlloc"`      // Bytes allocated and in use
	HeapSys        uint64 `json:"heapSys"`        // Bytes obtained from system
	HeapInuse      uint64 `json:"heapInuse"`      // Bytes in non-idle spans
	StackInuse     uint64 `json:"stackInuse"`     // Bytes in stack spans
	Goroutines     int    `json:"goroutines"`     // Number of goroutines
	NumGC          uint32 `json:"numGC"`          // Number of completed GC cycles
	LastGCPauseNs  uint64 `json:"lastGCPauseNs"`  // Duration of last GC pause in nanoseconds
	TotalAllocated uint64 `json:"totalAllocated"` // Total bytes allocated (cumulative)
	Sys            uint64 `json:"sys"`            // Total bytes obtained from system

	// Entities by health state, and open change streams
	Entities      map[types.HealthState]int `json:"entities"`
	ActiveWatches int64                     `json:"activeWatches"`

	UptimeSeconds int64  `json:"uptimeSeconds"`
	Timestamp     string `json:"timestamp"`
}

// StatusSource lists the current status blocks.
type StatusSource func() []types.StatusBlock

// WatchCounter returns the number of open change streams.
type WatchCounter func() int64

// Service provides metrics collection
type Service struct {
	statuses  StatusSource
	watches   WatchCounter
	startTime time.Time
}

// NewService creates a metrics service. Either source may be nil.
func NewService(statuses StatusSource, watches WatchCounter) *Service {
	return &Service{
		statuses:  statuses,
		watches:   watches,
		startTime: time.Now(),
	}
}

// GetMetrics returns current metrics
func (s *Service) GetMetrics() *Metrics {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var lastGCPause uint64
	if memStats.NumGC > 0 {
		// PauseNs is a circular buffer of recent GC pause times
		lastGCPause = memStats.PauseNs[(memStats.NumGC+255)%256]
	}

	entities := map[types.HealthState]int{
		types.StateOnline:      0,
		types.StateOffline:     0,
		types.StateConfiguring: 0,
	}
	if s.statuses != nil {
		for _, block := range s.statuses() {
			entities[block.Status]++
		}
	}

	var watches int64
	if s.watches != nil {
		watches = s.watches()
	}

	return &Metrics{
		HeapAlloc:      memStats.HeapAlloc,
		HeapSys:        memStats.HeapSys,
		HeapInuse:      memStats.HeapInuse,
		StackInuse:     memStats.StackInuse,
		Goroutines:     runtime.NumGoroutine(),
		NumGC:          memStats.NumGC,
		LastGCPauseNs:  lastGCPause,
		TotalAllocated: memStats.TotalAlloc,
		Sys:            memStats.Sys,
		Entities:       entities,
		ActiveWatches:  watches,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		Timestamp:      time.Now().Format(time.RFC3339),
	}
}
