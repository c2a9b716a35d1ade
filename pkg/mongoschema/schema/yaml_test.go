package schema

import (
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	s := &Schema{Root: &Node{
		Kind: ObjectNode, Presence: 1, SampleCount: 10,
		Fields: map[string]*Node{
			"name":  {Kind: Leaf, Types: types.NewSet(types.String), Presence: 1, SampleCount: 10},
			"note":  {Kind: Leaf, Types: types.NewSet(types.String, types.Null), Presence: 0.5, SampleCount: 10},
			"tags":  {Kind: ArrayNode, Presence: 1, SampleCount: 10, Items: &Node{Kind: Leaf, Types: types.NewSet(types.String), Presence: 1, SampleCount: 5}},
		},
	}}

	b, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	back, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal: %v\nyaml:\n%s", err, b)
	}

	name, ok := back.Root.Fields["name"]
	if !ok || !name.Types.Equal(types.NewSet(types.String)) {
		t.Fatalf("expected name type {string} to round-trip, got %v", name)
	}
	note, ok := back.Root.Fields["note"]
	if !ok || !note.Types.Has(types.Null) {
		t.Fatalf("expected note to round-trip as nullable, got %v", note)
	}
	tags, ok := back.Root.Fields["tags"]
	if !ok || tags.Kind != ArrayNode || !tags.Items.Types.Equal(types.NewSet(types.String)) {
		t.Fatalf("expected tags to round-trip as an array of string, got %v", tags)
	}
}

func TestUnmarshalRejectsMixedBsonType(t *testing.T) {
	doc := []byte(`
version: 1
schema:
  properties:
    weird:
      bsonType: mixed
`)
	_, err := Unmarshal(doc)
	if err == nil {
		t.Fatalf("expected bsonType: mixed to be rejected")
	}
}

func TestUnmarshalRejectsWrongVersion(t *testing.T) {
	doc := []byte(`
version: 2
schema:
  properties: {}
`)
	_, err := Unmarshal(doc)
	if err == nil {
		t.Fatalf("expected an unsupported version to be rejected")
	}
}

func TestUnmarshalRequiresSchemaBlock(t *testing.T) {
	doc := []byte(`version: 1`)
	_, err := Unmarshal(doc)
	if err == nil {
		t.Fatalf("expected a missing schema block to be rejected")
	}
}
