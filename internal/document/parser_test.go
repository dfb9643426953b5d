package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/peternagy/mongoplug/internal/core"
)

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    bson.D
		wantErr bool
	}{
		{"blank", "   ", bson.D{}, false},
		{"empty object", "{}", bson.D{}, false},
		{"simple", `{"test": 1}`, bson.D{{Key: "test", Value: int32(1)}}, false},
		{"key order kept", `{"b": 1, "a": 2}`, bson.D{{Key: "b", Value: int32(1)}, {Key: "a", Value: int32(2)}}, false},
		{"not json", "{test", nil, true},
		{"array", "[1, 2]", nil, true},
		{"unquoted key", "{test: 1}", nil, true},
		{"single quotes", "{'test': 'x'}", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDocument("readDoc", tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrMalformedDocument))
				assert.Equal(t, core.KindMalformedDocument, core.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDocument_ExtendedJSON(t *testing.T) {
	got, err := ParseDocument("readDoc", `{"_id": {"$oid": "5f1a2b3c4d5e6f7a8b9c0d1e"}, "n": {"$numberLong": "7"}}`)
	require.NoError(t, err)
	require.Len(t, got, 2)

	oid, ok := got[0].Value.(primitive.ObjectID)
	require.True(t, ok, "expected ObjectID, got %T", got[0].Value)
	assert.Equal(t, "5f1a2b3c4d5e6f7a8b9c0d1e", oid.Hex())
	assert.Equal(t, int64(7), got[1].Value)
}

func TestParseValue(t *testing.T) {
	got, err := ParseValue("createDoc", map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "name", Value: "x"}}, got)

	got, err = ParseValue("createDoc", nil)
	require.NoError(t, err)
	assert.True(t, IsEmpty(got))

	_, err = ParseValue("createDoc", 42)
	assert.Equal(t, core.KindMalformedDocument, core.KindOf(err))
}

func TestValidateUpdate(t *testing.T) {
	assert.NoError(t, ValidateUpdate("updateMany", bson.D{{Key: "$set", Value: bson.D{{Key: "test", Value: 1}}}}))

	err := ValidateUpdate("updateMany", bson.D{{Key: "test", Value: 1}})
	assert.Equal(t, core.KindInvalidArgument, core.KindOf(err))

	err = ValidateUpdate("updateMany", bson.D{})
	assert.Equal(t, core.KindInvalidArgument, core.KindOf(err))
}
