// Package types contains shared type definitions used across the mongoplug module.
package types

import (
	"encoding/json"
	"time"
)

// =============================================================================
// Entity and Connection Types
// =============================================================================

// DefaultURL is used when an entity does not specify a connection string.
const DefaultURL = "mongodb://localhost:27017"

// ConnectionConfig holds the fields that require a reconnect when changed.
type ConnectionConfig struct {
	URL      string `json:"url"`
	User     string `json:"user,omitempty"`
	Password string `json:"-"`
	Database string `json:"db"`
}

// EntityConfig is one configured MongoDB entity.
type EntityConfig struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	ConnectionConfig
}

// RequiresConfigure reports whether the entity still lacks a database selection.
func (e EntityConfig) RequiresConfigure() bool {
	return e.Database == ""
}

// DisplayTitle returns the title or a default name when none is set.
func (e EntityConfig) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return "MongoDB"
}

// ApplyResult is the outcome of applying a configuration to a reconciler.
type ApplyResult int

const (
	Unchanged ApplyResult = iota
	Reconfigured
)

func (r ApplyResult) String() string {
	if r == Reconfigured {
		return "reconfigured"
	}
	return "unchanged"
}

// =============================================================================
// Health Types
// =============================================================================

// HealthState is the coarse state of an entity connection.
type HealthState string

const (
	StateOnline      HealthState = "ONLINE"
	StateOffline     HealthState = "OFFLINE"
	StateConfiguring HealthState = "CONFIGURING"
)

// HealthStatus represents the status of an entity connection.
type HealthStatus struct {
	State         HealthState `json:"state"`
	Message       string      `json:"message,omitempty"`
	ServerVersion string      `json:"serverVersion,omitempty"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// StatusBlock is the host-visible rendering of an entity's health.
type StatusBlock struct {
	EntityID string      `json:"entityId"`
	Title    string      `json:"title"`
	Status   HealthState `json:"status"`
	Color    string      `json:"color"`
	Icon     string      `json:"icon"`
	Error    string      `json:"error,omitempty"`
	Version  string      `json:"version,omitempty"`
}

// Option is a single menu entry.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// =============================================================================
// Operation Types
// =============================================================================

// OperationRequest is one invocation of a catalog operation.
type OperationRequest struct {
	Operation string         `json:"operation"`
	TargetRef string         `json:"target"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ValueKind identifies the shape of a Value.
type ValueKind int

const (
	KindVoid ValueKind = iota
	KindNumber
	KindDocument
	KindDocuments
)

// Value is the neutral result type handed back to the automation layer.
type Value struct {
	Kind      ValueKind
	Number    int64
	Document  map[string]any
	Documents []map[string]any
}

// Void returns an empty value.
func Void() Value { return Value{} }

// Number wraps a count.
func Number(n int64) Value { return Value{Kind: KindNumber, Number: n} }

// Document wraps a single document. A nil document is void.
func Document(doc map[string]any) Value {
	if doc == nil {
		return Void()
	}
	return Value{Kind: KindDocument, Document: doc}
}

// Documents wraps a document array. A nil slice becomes an empty array.
func Documents(docs []map[string]any) Value {
	if docs == nil {
		docs = []map[string]any{}
	}
	return Value{Kind: KindDocuments, Documents: docs}
}

// IsVoid reports whether the value carries nothing.
func (v Value) IsVoid() bool { return v.Kind == KindVoid }

// MarshalJSON renders the value as plain JSON (null, number, object or array).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Number)
	case KindDocument:
		return json.Marshal(v.Document)
	case KindDocuments:
		return json.Marshal(v.Documents)
	default:
		return []byte("null"), nil
	}
}
