package document

import (
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/peternagy/mongoplug/internal/core"
)

// ParseDocument parses relaxed Extended JSON text into an ordered document.
// Blank text is the empty document.
func ParseDocument(op, text string) (bson.D, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return bson.D{}, nil
	}

	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(text), false, &doc); err != nil {
		return nil, core.NewError(core.KindMalformedDocument, op, "invalid document %q: %v", text, err)
	}
	if doc == nil {
		doc = bson.D{}
	}
	return doc, nil
}

// ParseValue parses a document argument that may arrive either as text or as
// an already decoded JSON object.
func ParseValue(op string, v any) (bson.D, error) {
	switch val := v.(type) {
	case nil:
		return bson.D{}, nil
	case string:
		return ParseDocument(op, val)
	case map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, core.NewError(core.KindMalformedDocument, op, "invalid document: %v", err)
		}
		return ParseDocument(op, string(data))
	default:
		return nil, core.NewError(core.KindMalformedDocument, op, "expected a document, got %T", v)
	}
}

// IsEmpty reports whether a parsed document has no keys. An empty user filter
// is treated as absent.
func IsEmpty(doc bson.D) bool {
	return len(doc) == 0
}

// ValidateUpdate checks that an update document only uses update operators.
func ValidateUpdate(op string, update bson.D) error {
	if len(update) == 0 {
		return core.NewError(core.KindInvalidArgument, op, "update document cannot be empty")
	}
	for _, e := range update {
		if !strings.HasPrefix(e.Key, "$") {
			return core.NewError(core.KindInvalidArgument, op, "update document must use operators such as $set, found %q", e.Key)
		}
	}
	return nil
}
