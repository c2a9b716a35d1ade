package validator

import (
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

func leaf(tags ...types.Tag) *schema.Node {
	return &schema.Node{Kind: schema.Leaf, Types: types.NewSet(tags...), Presence: 1}
}

func TestProjectSingletonType(t *testing.T) {
	s := &schema.Schema{Root: &schema.Node{
		Kind: schema.ObjectNode, Presence: 1,
		Fields: map[string]*schema.Node{"name": leaf(types.String)},
	}}
	doc := Project(s)
	name := doc.Properties["name"]
	if name.BsonType != string(types.String) {
		t.Fatalf("expected bare bsonType string, got %v", name.BsonType)
	}
	if len(doc.Required) != 1 || doc.Required[0] != "name" {
		t.Fatalf("expected name to be required, got %v", doc.Required)
	}
}

func TestProjectNullableEmitsUnion(t *testing.T) {
	s := &schema.Schema{Root: &schema.Node{
		Kind: schema.ObjectNode, Presence: 1,
		Fields: map[string]*schema.Node{"note": leaf(types.String, types.Null)},
	}}
	doc := Project(s)
	note := doc.Properties["note"]
	names, ok := note.BsonType.([]string)
	if !ok || len(names) != 2 {
		t.Fatalf("expected a two-element bsonType union, got %v", note.BsonType)
	}
	if names[len(names)-1] != string(types.Null) {
		t.Fatalf("expected null to be listed last, got %v", names)
	}
}

func TestProjectArray(t *testing.T) {
	s := &schema.Schema{Root: &schema.Node{
		Kind: schema.ObjectNode, Presence: 1,
		Fields: map[string]*schema.Node{
			"tags": {Kind: schema.ArrayNode, Presence: 1, Items: leaf(types.String)},
		},
	}}
	doc := Project(s)
	tags := doc.Properties["tags"]
	if tags.BsonType != "array" {
		t.Fatalf("expected array bsonType, got %v", tags.BsonType)
	}
	if tags.Items == nil || tags.Items.BsonType != string(types.String) {
		t.Fatalf("expected items bsonType string, got %v", tags.Items)
	}
}

func TestParseBackRoundTripsStructure(t *testing.T) {
	s := &schema.Schema{Root: &schema.Node{
		Kind: schema.ObjectNode, Presence: 1,
		Fields: map[string]*schema.Node{
			"name": leaf(types.String),
			"tags": {Kind: schema.ArrayNode, Presence: 1, Items: leaf(types.String)},
		},
	}}
	doc := Project(s)
	back := ParseBack(doc)

	if back.Root.Kind != schema.ObjectNode {
		t.Fatalf("expected object root, got %v", back.Root.Kind)
	}
	name, ok := back.Root.Fields["name"]
	if !ok || !name.Types.Equal(types.NewSet(types.String)) {
		t.Fatalf("expected name field type string, got %v", name)
	}
	tags, ok := back.Root.Fields["tags"]
	if !ok || tags.Kind != schema.ArrayNode {
		t.Fatalf("expected tags to round-trip as an array, got %v", tags)
	}
}
