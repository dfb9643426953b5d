package database

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/peternagy/mongoplug/internal/core"
)

// MongoDB naming constraints:
// - Database names: max 64 bytes, no /\. "$*<>:|? or null characters
// - Collection names: max 120 bytes, no $ prefix, no null characters
// - Index names: non-empty, no null characters; "_id_" is reserved

// DefaultIndexName is the index MongoDB maintains on every collection.
const DefaultIndexName = "_id_"

// InvalidNameError represents a validation error for a database, collection or index name.
type InvalidNameError struct {
	Type   string // "database", "collection" or "index"
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid %s name %q: %s", e.Type, e.Name, e.Reason)
}

// Is lets callers match name problems with errors.Is(err, core.ErrInvalidArgument).
func (e *InvalidNameError) Is(target error) bool {
	return target == core.ErrInvalidArgument
}

// ValidateDatabaseName checks if a database name is valid according to MongoDB rules.
func ValidateDatabaseName(name string) error {
	if name == "" {
		return &InvalidNameError{Type: "database", Name: name, Reason: "name cannot be empty"}
	}

	if len(name) > 64 {
		return &InvalidNameError{Type: "database", Name: name, Reason: "name exceeds 64 bytes"}
	}

	invalidChars := `/\. "$*<>:|?`
	for _, r := range name {
		if r == 0 {
			return &InvalidNameError{Type: "database", Name: name, Reason: "name contains null character"}
		}
		if strings.ContainsRune(invalidChars, r) {
			return &InvalidNameError{Type: "database", Name: name, Reason: fmt.Sprintf("name contains invalid character %q", r)}
		}
	}

	return nil
}

// ValidateCollectionName checks if a collection name is valid according to MongoDB rules.
func ValidateCollectionName(name string) error {
	if name == "" {
		return &InvalidNameError{Type: "collection", Name: name, Reason: "name cannot be empty"}
	}

	if len(name) > 120 {
		return &InvalidNameError{Type: "collection", Name: name, Reason: "name exceeds 120 bytes"}
	}

	if strings.ContainsRune(name, 0) {
		return &InvalidNameError{Type: "collection", Name: name, Reason: "name contains null character"}
	}

	if strings.HasPrefix(name, "$") {
		return &InvalidNameError{Type: "collection", Name: name, Reason: "name cannot start with $"}
	}

	if !utf8.ValidString(name) {
		return &InvalidNameError{Type: "collection", Name: name, Reason: "name is not valid UTF-8"}
	}

	return nil
}

// ValidateIndexName checks a name passed to dropIndex.
func ValidateIndexName(name string) error {
	if name == "" {
		return &InvalidNameError{Type: "index", Name: name, Reason: "name cannot be empty"}
	}
	if strings.ContainsRune(name, 0) {
		return &InvalidNameError{Type: "index", Name: name, Reason: "name contains null character"}
	}
	if name == DefaultIndexName {
		return &InvalidNameError{Type: "index", Name: name, Reason: "cannot drop the default _id index"}
	}
	return nil
}

// ParseIndexFields splits a comma separated field list, trimming blanks and
// dropping empty entries.
func ParseIndexFields(list string) ([]string, error) {
	var fields []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, &InvalidNameError{Type: "index", Name: list, Reason: "no fields given"}
	}
	return fields, nil
}

// SplitTarget splits an "entityId/collection" reference. The collection part
// may itself contain slashes; only the first one separates the entity.
func SplitTarget(ref string) (entityID, collection string, err error) {
	entityID, collection, ok := strings.Cut(strings.TrimSpace(ref), "/")
	if !ok || entityID == "" {
		return "", "", fmt.Errorf("%w: target %q must look like entityId/collection", core.ErrInvalidArgument, ref)
	}
	if err := ValidateCollectionName(collection); err != nil {
		return "", "", err
	}
	return entityID, collection, nil
}
