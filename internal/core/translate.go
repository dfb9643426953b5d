package core

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// Server error codes that map to NotFound.
const (
	codeNamespaceNotFound = 26
	codeIndexNotFound     = 27
)

// Translate re-expresses a driver error in the module's taxonomy.
// Errors that are already classified pass through unchanged.
func Translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	if errors.Is(err, ErrInvalidArgument) {
		return WrapError(KindInvalidArgument, op, err)
	}

	var notConnected *NotConnectedError
	if errors.As(err, &notConnected) {
		return WrapError(KindConnection, op, err)
	}
	var notFound *EntityNotFoundError
	if errors.As(err, &notFound) {
		return WrapError(KindNotFound, op, err)
	}

	if mongo.IsDuplicateKeyError(err) {
		return WrapError(KindWrite, op, err)
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		return WrapError(KindWrite, op, err)
	}
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		return WrapError(KindWrite, op, err)
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.HasErrorCode(codeNamespaceNotFound) || serverErr.HasErrorCode(codeIndexNotFound) {
			return WrapError(KindNotFound, op, err)
		}
		return WrapError(KindServer, op, err)
	}

	// Anything else from the driver (network failures, timeouts, disconnected
	// clients, server selection) is a connection problem.
	return WrapError(KindConnection, op, err)
}
