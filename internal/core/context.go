// Package core provides shared timeouts and the error taxonomy used across the module.
package core

import (
	"context"
	"time"
)

// DefaultQueryTimeout is the default timeout for database operations.
const DefaultQueryTimeout = 30 * time.Second

// DefaultConnectTimeout is the default timeout for connection attempts.
const DefaultConnectTimeout = 10 * time.Second

// DefaultCloseTimeout bounds client disconnects so teardown never hangs.
const DefaultCloseTimeout = 5 * time.Second

// ContextWithTimeout derives a context with the default query timeout.
func ContextWithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return WithTimeout(parent, DefaultQueryTimeout)
}

// ContextWithConnectTimeout derives a context with the default connect timeout.
func ContextWithConnectTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return WithTimeout(parent, DefaultConnectTimeout)
}

// WithTimeout derives a context with timeout, keeping the parent deadline when it is sooner.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if deadline, ok := parent.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
