package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

// FileVersion is the only supported value of the top-level `version`
// key in the declarative schema file (spec §6.1).
const FileVersion = 1

// Marshal emits s in the §6.1 declarative YAML form.
func Marshal(s *Schema) ([]byte, error) {
	propsNode, err := emitObjectProperties(s.Root)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{
		"version": FileVersion,
		"schema": map[string]any{
			"properties": propsNode,
		},
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrSchema, "encode schema yaml", err)
	}
	return b, nil
}

// emitObjectProperties renders an ObjectNode's Fields as an ordered
// YAML mapping (yaml.v3 MapSlice-equivalent via yaml.Node) using the
// deterministic field order spec §3 defines.
func emitObjectProperties(obj *Node) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range obj.OrderedFieldNames() {
		child := obj.Fields[name]
		propNode, err := emitProperty(child)
		if err != nil {
			return nil, err
		}
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: name}
		m.Content = append(m.Content, keyNode, propNode)
	}
	return m, nil
}

func emitProperty(n *Node) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	put := func(key string, val *yaml.Node) {
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
	}

	ts := n.Types
	if n.Kind == ArrayNode && !ts.Has(types.Array) {
		ts = ts.Clone()
		ts.Observe(types.Array)
	}
	if n.Kind == ObjectNode && !ts.Has(types.Object) {
		ts = ts.Clone()
		ts.Observe(types.Object)
	}
	bsonTypeNode, err := emitBsonType(ts)
	if err != nil {
		return nil, err
	}
	put("bsonType", bsonTypeNode)

	if n.SampleCount > 0 {
		var pv yaml.Node
		if err := pv.Encode(roundTo(n.Presence, 2)); err != nil {
			return nil, err
		}
		put("presence", &pv)
	}
	if n.Types.Has(types.Null) {
		var nv yaml.Node
		if err := nv.Encode(true); err != nil {
			return nil, err
		}
		put("nullable", &nv)
	}

	switch n.Kind {
	case ArrayNode:
		itemsNode, err := emitProperty(n.Items)
		if err != nil {
			return nil, err
		}
		put("items", itemsNode)
	case ObjectNode:
		propsNode, err := emitObjectProperties(n)
		if err != nil {
			return nil, err
		}
		put("properties", propsNode)
	}
	return m, nil
}

func emitBsonType(ts types.Set) (*yaml.Node, error) {
	tags := nonNullTags(ts)
	var v yaml.Node
	if len(tags) == 1 {
		if err := v.Encode(string(tags[0])); err != nil {
			return nil, err
		}
		return &v, nil
	}
	strs := make([]string, len(tags))
	for i, t := range tags {
		strs[i] = string(t)
	}
	if err := v.Encode(strs); err != nil {
		return nil, err
	}
	return &v, nil
}

// nonNullTags returns ts's tags in emission order with the null
// marker excluded (null is surfaced instead via `nullable: true`).
func nonNullTags(ts types.Set) []Tag {
	out := make([]Tag, 0, ts.Len())
	for _, t := range ts.Tags() {
		if t != types.Null {
			out = append(out, Tag(t))
		}
	}
	return out
}

// Tag is a local alias used by nonNullTags above; it is exactly
// types.Tag.
type Tag = types.Tag

func roundTo(f float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(f*mult+0.5)) / mult
}

// Unmarshal parses the §6.1 YAML declarative form into a Schema.
// `bsonType: mixed` is rejected, per spec §6.1.
func Unmarshal(b []byte) (*Schema, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, mserrors.Wrap(mserrors.ErrSchema, "parse schema yaml", err)
	}
	if raw == nil {
		return nil, mserrors.SchemaError("$", "empty schema document")
	}
	version, _ := raw["version"].(int)
	if version == 0 {
		if vf, ok := raw["version"].(float64); ok {
			version = int(vf)
		}
	}
	if version != FileVersion {
		return nil, mserrors.SchemaError("$.version", fmt.Sprintf("unsupported schema file version %v", raw["version"]))
	}
	schemaBlock, _ := raw["schema"].(map[string]any)
	if schemaBlock == nil {
		return nil, mserrors.SchemaError("$.schema", "missing schema block")
	}
	propsRaw, _ := schemaBlock["properties"].(map[string]any)

	root := &Node{Kind: ObjectNode, Fields: map[string]*Node{}, Presence: 1}
	for name, rawProp := range propsRaw {
		propMap, ok := rawProp.(map[string]any)
		if !ok {
			return nil, mserrors.SchemaError(name, "property must be a mapping")
		}
		n, err := parseProperty(name, propMap)
		if err != nil {
			return nil, err
		}
		root.Fields[name] = n
	}
	return &Schema{Root: root}, nil
}

func parseProperty(path string, m map[string]any) (*Node, error) {
	n := &Node{SampleCount: 1}

	if presence, ok := numberOf(m["presence"]); ok {
		n.Presence = presence
	} else {
		n.Presence = 1
	}
	nullable, _ := m["nullable"].(bool)

	rawType, hasType := m["bsonType"]
	var tags []types.Tag
	if hasType {
		switch v := rawType.(type) {
		case string:
			if v == "mixed" {
				return nil, mserrors.SchemaError(path, "bsonType: mixed is rejected; use an explicit type array instead")
			}
			tags = []types.Tag{types.Tag(v)}
		case []any:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, mserrors.SchemaError(path, "bsonType array must contain strings")
				}
				if s == "mixed" {
					return nil, mserrors.SchemaError(path, "bsonType: mixed is rejected; use an explicit type array instead")
				}
				tags = append(tags, types.Tag(s))
			}
		default:
			return nil, mserrors.SchemaError(path, "bsonType must be a string or a list of strings")
		}
	}

	ts := types.NewSet(tags...)
	if nullable {
		ts.Observe(types.Null)
	}
	n.Types = ts
	n.NullRate = 0
	if nullable {
		n.NullRate = 1 // advisory only when not explicitly sampled; statistics-free parse
	}

	isArray := ts.Has(types.Array)
	isObject := ts.Has(types.Object)

	itemsRaw, hasItems := m["items"].(map[string]any)
	propsRaw, hasProps := m["properties"].(map[string]any)

	switch {
	case isArray && isObject:
		// Mixed structural shape at the file level: keep it a leaf so
		// the type set (the ground truth per spec §3) is preserved
		// rather than discarding the coexisting object/array tag.
		n.Kind = Leaf
	case isArray:
		if !hasItems {
			return nil, mserrors.SchemaError(path, "array field requires an items block")
		}
		itemNode, err := parseProperty(path+"[]", itemsRaw)
		if err != nil {
			return nil, err
		}
		n.Kind = ArrayNode
		n.Items = itemNode
	case isObject:
		if !hasProps {
			propsRaw = map[string]any{}
		}
		n.Kind = ObjectNode
		n.Fields = map[string]*Node{}
		for name, rawChild := range propsRaw {
			childMap, ok := rawChild.(map[string]any)
			if !ok {
				return nil, mserrors.SchemaError(path+"."+name, "property must be a mapping")
			}
			child, err := parseProperty(path+"."+name, childMap)
			if err != nil {
				return nil, err
			}
			n.Fields[name] = child
		}
	default:
		n.Kind = Leaf
	}
	return n, nil
}

func numberOf(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
