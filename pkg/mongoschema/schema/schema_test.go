package schema

import (
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

func leaf(tags ...types.Tag) *Node {
	return &Node{Kind: Leaf, Types: types.NewSet(tags...), Presence: 1}
}

func TestRequired(t *testing.T) {
	n := &Node{Presence: 1, NullRate: 0}
	if !n.Required() {
		t.Fatalf("expected full presence with no nulls to be required")
	}
	n.NullRate = 0.1
	if n.Required() {
		t.Fatalf("a non-zero null rate must not be required")
	}
}

func TestOrderedFieldNamesPresenceThenLexicographic(t *testing.T) {
	n := &Node{Kind: ObjectNode, Fields: map[string]*Node{
		"b": {Presence: 0.5},
		"a": {Presence: 1},
		"c": {Presence: 1},
	}}
	got := n.OrderedFieldNames()
	want := []string{"a", "c", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestLookupThroughArray(t *testing.T) {
	s := &Schema{Root: &Node{Kind: ObjectNode, Fields: map[string]*Node{
		"items": {Kind: ArrayNode, Items: &Node{Kind: ObjectNode, Fields: map[string]*Node{
			"sku": leaf(types.String),
		}}},
	}}}
	n, ok := s.Lookup(Path{"items", "sku"})
	if !ok || n.Types.Has(types.String) == false {
		t.Fatalf("expected lookup to transparently descend through the array, got %v ok=%v", n, ok)
	}
}

func TestEqualStructural(t *testing.T) {
	a := &Schema{Root: &Node{Kind: ObjectNode, Presence: 1, Fields: map[string]*Node{
		"name": leaf(types.String),
	}}}
	b := &Schema{Root: &Node{Kind: ObjectNode, Presence: 1, Fields: map[string]*Node{
		"name": leaf(types.String),
	}}}
	if !Equal(a, b) {
		t.Fatalf("expected structurally identical schemas to be equal")
	}

	c := &Schema{Root: &Node{Kind: ObjectNode, Presence: 1, Fields: map[string]*Node{
		"name": leaf(types.Int32),
	}}}
	if Equal(a, c) {
		t.Fatalf("expected differing leaf types to be unequal")
	}
}

func TestPathString(t *testing.T) {
	if (Path{}).String() != "$" {
		t.Fatalf("expected empty path to render as $")
	}
	p := Path{"a", "b"}
	if p.String() != "a.b" {
		t.Fatalf("expected dotted rendering, got %s", p.String())
	}
	if p.Child("c").String() != "a.b.c" {
		t.Fatalf("expected Child to append without mutating, got %s", p.Child("c").String())
	}
	if len(p) != 2 {
		t.Fatalf("Child must not mutate the receiver")
	}
}

func TestWalkVisitsInDeterministicOrder(t *testing.T) {
	s := &Schema{Root: &Node{Kind: ObjectNode, Presence: 1, Fields: map[string]*Node{
		"b": leaf(types.String),
		"a": leaf(types.String),
	}}}
	var visited []string
	s.Walk(func(path Path, n *Node) {
		if len(path) > 0 {
			visited = append(visited, path.String())
		}
	})
	if len(visited) != 2 || visited[0] != "a" || visited[1] != "b" {
		t.Fatalf("expected [a b] in presence/lexicographic order, got %v", visited)
	}
}
