// Package schema implements the schema tree S of spec §3: a rooted
// tree of leaf, object, and array nodes carrying per-field presence,
// null-rate, and type-set statistics.
package schema

import (
	"sort"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

// Kind distinguishes the three node shapes spec §3 allows.
type Kind int

const (
	Leaf Kind = iota
	ObjectNode
	ArrayNode
)

// Node is one position in the schema tree.
type Node struct {
	Kind Kind

	// Leaf
	Types types.Set

	// ObjectNode
	Fields map[string]*Node

	// ArrayNode
	Items *Node

	// Stats, present on every node per spec §3.
	Presence    float64
	NullRate    float64
	SampleCount int64
}

// Schema is a named, rooted schema tree. The root is always an object
// node ("rooted at an implicit document node", spec §3).
type Schema struct {
	Root *Node
}

// NewObjectSchema returns an empty schema rooted at an object node.
func NewObjectSchema() *Schema {
	return &Schema{Root: &Node{Kind: ObjectNode, Fields: map[string]*Node{}, Presence: 1, SampleCount: 0}}
}

// Required derives the `required` flag from presence and null-rate per
// spec §3: "required = (presence >= 0.999 AND null_rate = 0)".
func (n *Node) Required() bool {
	return n.Presence >= 0.999 && n.NullRate == 0
}

// OrderedFieldNames returns an ObjectNode's field names in the
// deterministic order spec §3 requires: first by descending presence,
// then lexicographic.
func (n *Node) OrderedFieldNames() []string {
	if n.Kind != ObjectNode {
		return nil
	}
	names := make([]string, 0, len(n.Fields))
	for name := range n.Fields {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := n.Fields[names[i]], n.Fields[names[j]]
		if a.Presence != b.Presence {
			return a.Presence > b.Presence
		}
		return names[i] < names[j]
	})
	return names
}

// Path is a value-typed sequence of field names, as design note §9
// specifies ("Paths are value-typed sequences of field names").
// Lookup, diff and the executor add no segment for array traversal —
// an array's contents are addressed through the array's own path.
// Inference's anomaly paths are the exception: they mark array items
// with a "[]" segment.
type Path []string

// String renders a path as dotted notation for error messages and
// change records.
func (p Path) String() string {
	if len(p) == 0 {
		return "$"
	}
	s := p[0]
	for _, seg := range p[1:] {
		s += "." + seg
	}
	return s
}

// Child returns a new path with seg appended, without mutating p.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// Lookup walks a path from the schema root, returning the node there
// if every intermediate segment resolves through object fields (array
// segments are transparent: looking a field up "through" an array
// descends into its Items node automatically).
func (s *Schema) Lookup(path Path) (*Node, bool) {
	n := s.Root
	for _, seg := range path {
		for n.Kind == ArrayNode {
			if n.Items == nil {
				return nil, false
			}
			n = n.Items
		}
		if n.Kind != ObjectNode {
			return nil, false
		}
		child, ok := n.Fields[seg]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

// Equal implements the structural equality rule of spec §3: "Two
// schemas are equal iff their trees are isomorphic with identical
// type sets and identical required flags (statistics are advisory)."
func Equal(a, b *Schema) bool {
	return nodesEqual(a.Root, b.Root)
}

func nodesEqual(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Required() != b.Required() {
		return false
	}
	switch a.Kind {
	case Leaf:
		return a.Types.Equal(b.Types)
	case ArrayNode:
		return nodesEqual(a.Items, b.Items)
	case ObjectNode:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for name, an := range a.Fields {
			bn, ok := b.Fields[name]
			if !ok || !nodesEqual(an, bn) {
				return false
			}
		}
		return true
	}
	return false
}

// Walk visits every node reachable through object fields (the root,
// objects, leaves and arrays) in preorder and in the deterministic
// field order of OrderedFieldNames, calling fn with the full path and
// the node found there. It does not descend into an array's Items.
// The diff engine does its own traversal and does not use Walk.
func (s *Schema) Walk(fn func(path Path, n *Node)) {
	walk(s.Root, nil, fn)
}

func walk(n *Node, path Path, fn func(Path, *Node)) {
	if n == nil {
		return
	}
	fn(path, n)
	switch n.Kind {
	case ObjectNode:
		for _, name := range n.OrderedFieldNames() {
			walk(n.Fields[name], path.Child(name), fn)
		}
	case ArrayNode:
		// Items has no path segment of its own, so Walk does not
		// descend further here.
	}
}
