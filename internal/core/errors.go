package core

import (
	"errors"
	"fmt"
)

// Kind classifies an error surfaced to the automation layer.
type Kind string

const (
	KindConnection         Kind = "ConnectionError"
	KindMalformedDocument  Kind = "MalformedDocument"
	KindNotFound           Kind = "NotFound"
	KindInvalidArgument    Kind = "InvalidArgument"
	KindWrite              Kind = "WriteError"
	KindServer             Kind = "ServerError"
	KindReplicaSetRequired Kind = "StreamingReplicaSetRequired"
	KindStreamingServer    Kind = "StreamingServerError"
)

// Sentinels matched by OperationError.Is; use errors.Is(err, core.ErrNotFound).
var (
	ErrConnection         = errors.New("connection error")
	ErrMalformedDocument  = errors.New("malformed document")
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrWrite              = errors.New("write failed")
	ErrServer             = errors.New("server error")
	ErrReplicaSetRequired = errors.New("replica set required")
	ErrStreamingServer    = errors.New("streaming server error")
)

var sentinels = map[Kind]error{
	KindConnection:         ErrConnection,
	KindMalformedDocument:  ErrMalformedDocument,
	KindNotFound:           ErrNotFound,
	KindInvalidArgument:    ErrInvalidArgument,
	KindWrite:              ErrWrite,
	KindServer:             ErrServer,
	KindReplicaSetRequired: ErrReplicaSetRequired,
	KindStreamingServer:    ErrStreamingServer,
}

// OperationError is the only error type returned from operation executors.
type OperationError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, e.Message)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *OperationError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// NewError builds an OperationError with a formatted message.
func NewError(kind Kind, op string, format string, args ...any) *OperationError {
	return &OperationError{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an OperationError around a cause, using the cause text as message.
func WrapError(kind Kind, op string, err error) *OperationError {
	return &OperationError{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// KindOf returns the kind of an OperationError in the chain, or "" when absent.
func KindOf(err error) Kind {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}

// =============================================================================
// Custom Error Types
// =============================================================================

// NotConnectedError indicates an entity has no live connection.
type NotConnectedError struct {
	EntityID string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("not connected: %s", e.EntityID)
}

// EntityNotFoundError indicates a referenced entity is not configured.
type EntityNotFoundError struct {
	EntityID string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %s", e.EntityID)
}
