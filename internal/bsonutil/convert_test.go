package bsonutil

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToString(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"empty string", "", ""},
		{"int32", int32(42), "42"},
		{"int64", int64(999), "999"},
		{"float64", float64(3.14), "3.14"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToString(tt.in)
			if got != tt.want {
				t.Errorf("ToString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name   string
		in     interface{}
		want   int64
		wantOK bool
	}{
		{"nil", nil, 0, false},
		{"int32", int32(42), 42, true},
		{"int64", int64(999), 999, true},
		{"float64", float64(3.7), 3, true},
		{"int", int(10), 10, true},
		{"negative int32", int32(-5), -5, true},
		{"json number", json.Number("100"), 100, true},
		{"numeric string", " 25 ", 25, true},
		{"float string", "2.5", 2, true},
		{"word string", "hello", 0, false},
		{"bool (unsupported)", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToInt64(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ToInt64(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestToBool(t *testing.T) {
	tests := []struct {
		name   string
		in     interface{}
		want   bool
		wantOK bool
	}{
		{"nil", nil, false, false},
		{"true", true, true, true},
		{"false", false, false, true},
		{"string true", "true", true, true},
		{"string false", "false", false, true},
		{"garbage", "maybe", false, false},
		{"number", 1, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToBool(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ToBool(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestToStrings(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want []string
	}{
		{"nil", nil, nil},
		{"joined", "INSERT | UPDATE", []string{"INSERT", "UPDATE"}},
		{"single", "ANY", []string{"ANY"}},
		{"string slice", []string{" DELETE ", ""}, []string{"DELETE"}},
		{"any slice", []interface{}{"INSERT", "DROP"}, []string{"INSERT", "DROP"}},
		{"blank", "  ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToStrings(tt.in, " | ")
			if len(got) != len(tt.want) {
				t.Fatalf("ToStrings(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ToStrings(%v)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestToNeutral(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := bson.D{{Key: "_id", Value: oid}, {Key: "n", Value: int32(3)}, {Key: "tags", Value: bson.A{"a"}}}

	got, err := ToNeutral(doc)
	if err != nil {
		t.Fatalf("ToNeutral() error = %v", err)
	}
	id, ok := got["_id"].(map[string]interface{})
	if !ok || id["$oid"] != oid.Hex() {
		t.Errorf("_id = %#v, want {$oid: %s}", got["_id"], oid.Hex())
	}
	if got["n"] != float64(3) {
		t.Errorf("n = %#v, want 3", got["n"])
	}
	if tags, ok := got["tags"].([]interface{}); !ok || len(tags) != 1 {
		t.Errorf("tags = %#v", got["tags"])
	}

	raw, _ := bson.Marshal(bson.D{{Key: "x", Value: "y"}})
	fromRaw, err := ToNeutral(bson.Raw(raw))
	if err != nil || fromRaw["x"] != "y" {
		t.Errorf("ToNeutral(raw) = %v, %v", fromRaw, err)
	}

	for _, empty := range []interface{}{nil, bson.Raw(nil), bson.M(nil)} {
		if got, err := ToNeutral(empty); got != nil || err != nil {
			t.Errorf("ToNeutral(%#v) = %v, %v; want nil", empty, got, err)
		}
	}
}
