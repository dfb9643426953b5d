package watch

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/peternagy/mongoplug/internal/core"
)

// ChangeKind is a change-stream event type selectable by the user.
type ChangeKind string

const (
	KindAny          ChangeKind = "ANY"
	KindInsert       ChangeKind = "INSERT"
	KindUpdate       ChangeKind = "UPDATE"
	KindReplace      ChangeKind = "REPLACE"
	KindDelete       ChangeKind = "DELETE"
	KindInvalidate   ChangeKind = "INVALIDATE"
	KindDrop         ChangeKind = "DROP"
	KindDropDatabase ChangeKind = "DROP_DATABASE"
	KindRename       ChangeKind = "RENAME"
	KindOther        ChangeKind = "OTHER"
)

// operationTypes maps change kinds to the server's operationType values.
var operationTypes = map[ChangeKind]string{
	KindInsert:       "insert",
	KindUpdate:       "update",
	KindReplace:      "replace",
	KindDelete:       "delete",
	KindInvalidate:   "invalidate",
	KindDrop:         "drop",
	KindDropDatabase: "dropDatabase",
	KindRename:       "rename",
	KindOther:        "other",
}

// Kinds lists every selectable kind in menu order.
func Kinds() []ChangeKind {
	return []ChangeKind{KindAny, KindInsert, KindUpdate, KindReplace, KindDelete,
		KindInvalidate, KindDrop, KindDropDatabase, KindRename, KindOther}
}

// OperationType returns the server operationType for a kind.
func (k ChangeKind) OperationType() (string, bool) {
	op, ok := operationTypes[k]
	return op, ok
}

// ParseKinds validates selected kind names.
func ParseKinds(names []string) ([]ChangeKind, error) {
	kinds := make([]ChangeKind, 0, len(names))
	for _, name := range names {
		k := ChangeKind(name)
		if _, ok := operationTypes[k]; !ok && k != KindAny {
			return nil, core.NewError(core.KindInvalidArgument, "watch", "unknown change type %q", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// kindsFilter returns the operationType restriction, or nil when every kind
// is wanted.
func kindsFilter(kinds []ChangeKind) bson.D {
	if len(kinds) == 0 {
		return nil
	}
	ops := bson.A{}
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		if k == KindAny {
			return nil
		}
		op, ok := k.OperationType()
		if !ok || seen[op] {
			continue
		}
		seen[op] = true
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil
	}
	return bson.D{{Key: "operationType", Value: bson.D{{Key: "$in", Value: ops}}}}
}

// Match composes the $match body from a user filter and the selected kinds.
// An empty user filter is treated as absent. Nil means no $match stage.
func Match(user bson.D, kinds []ChangeKind) bson.D {
	kindMatch := kindsFilter(kinds)
	switch {
	case len(user) > 0 && kindMatch != nil:
		return bson.D{{Key: "$and", Value: bson.A{user, kindMatch}}}
	case len(user) > 0:
		return user
	default:
		return kindMatch
	}
}

// Pipeline builds the change-stream pipeline for a user filter and kinds.
func Pipeline(user bson.D, kinds []ChangeKind) mongo.Pipeline {
	match := Match(user, kinds)
	if match == nil {
		return mongo.Pipeline{}
	}
	return mongo.Pipeline{{{Key: "$match", Value: match}}}
}
