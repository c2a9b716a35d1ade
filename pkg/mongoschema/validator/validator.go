// Package validator implements the §4.5 projection from a schema tree
// to the database engine's native JSON-Schema-style validator
// document: a pure function, no I/O.
package validator

import (
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

// Level and Action mirror the set_validator parameters of spec §4.8.
type Level string
type Action string

const (
	LevelOff      Level = "off"
	LevelModerate Level = "moderate"
	LevelStrict   Level = "strict"

	ActionWarn  Action = "warn"
	ActionError Action = "error"
)

// Document is the exact wire shape of spec §6.4: bsonType, properties,
// required, items — matching the database engine's validator schema
// key names precisely. BsonType is either a string or a []string: a
// singleton type emits a bare name, a union emits an array of names
// (spec §4.5: "Union types emit an array of type names").
type Document struct {
	BsonType   any                 `json:"bsonType"`
	Properties map[string]Document `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
	Items      *Document           `json:"items,omitempty"`
}

// Project converts a schema tree into its validator document, per
// spec §4.5.
func Project(s *schema.Schema) Document {
	return projectNode(s.Root)
}

func projectNode(n *schema.Node) Document {
	switch n.Kind {
	case schema.ObjectNode:
		doc := Document{BsonType: "object", Properties: map[string]Document{}}
		var required []string
		for _, name := range n.OrderedFieldNames() {
			child := n.Fields[name]
			doc.Properties[name] = projectNode(child)
			if child.Required() {
				required = append(required, name)
			}
		}
		doc.Required = required
		return doc
	case schema.ArrayNode:
		items := projectNode(n.Items)
		return Document{BsonType: "array", Items: &items}
	default:
		return projectLeaf(n.Types)
	}
}

// projectLeaf implements the nullable rule of §4.5: "Nullable fields
// emit both the type name and null."
func projectLeaf(ts types.Set) Document {
	tags := ts.WithoutNull().Tags()
	names := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		names = append(names, string(t))
	}
	if ts.Has(types.Null) {
		names = append(names, string(types.Null))
	}
	if len(names) == 1 {
		return Document{BsonType: names[0]}
	}
	return Document{BsonType: names}
}

// ParseBack reconstructs the subset of a schema that a validator
// document can faithfully express — no presence/null-rate statistics,
// since the validator carries none — satisfying the round-trip
// property of spec §8 ("the parser can round-trip the output of §4.5
// back to the originating S") for the structural subset §4.5 covers.
func ParseBack(d Document) *schema.Schema {
	return &schema.Schema{Root: parseBackNode(d)}
}

func parseBackNode(d Document) *schema.Node {
	switch bt := d.BsonType.(type) {
	case string:
		if bt == "object" {
			n := &schema.Node{Kind: schema.ObjectNode, Fields: map[string]*schema.Node{}, Presence: 1}
			required := map[string]bool{}
			for _, r := range d.Required {
				required[r] = true
			}
			for name, childDoc := range d.Properties {
				child := parseBackNode(childDoc)
				if required[name] {
					child.Presence = 1
					child.NullRate = 0
				} else {
					child.Presence = 0.5 // unknown; validator carries no presence stats
				}
				n.Fields[name] = child
			}
			return n
		}
		if bt == "array" {
			var items *schema.Node
			if d.Items != nil {
				items = parseBackNode(*d.Items)
			} else {
				items = &schema.Node{Kind: schema.Leaf, Types: types.NewSet()}
			}
			return &schema.Node{Kind: schema.ArrayNode, Items: items, Presence: 1}
		}
		return &schema.Node{Kind: schema.Leaf, Types: types.NewSet(types.Tag(bt)), Presence: 1}
	case []string:
		ts := types.NewSet()
		for _, s := range bt {
			ts.Observe(types.Tag(s))
		}
		return &schema.Node{Kind: schema.Leaf, Types: ts, Presence: 1}
	default:
		return &schema.Node{Kind: schema.Leaf, Types: types.NewSet(), Presence: 1}
	}
}
