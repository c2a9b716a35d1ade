// Package diff implements the schema-to-schema diff engine of spec
// §4.3: a structural, purely per-path comparison that never consults
// statistics.
package diff

import (
	"sort"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

// ChangeKind tags one entry in a ChangeSet, mirroring spec §3's
// change record C.
type ChangeKind string

const (
	Added           ChangeKind = "added"
	Removed         ChangeKind = "removed"
	TypeChanged     ChangeKind = "type_changed"
	PresenceChanged ChangeKind = "presence_changed"
	ItemsChanged    ChangeKind = "items_changed"
)

// Change is one structural difference between two schemas at a path.
type Change struct {
	Kind ChangeKind
	Path schema.Path

	// Leaf type info, populated for Added/Removed/TypeChanged/ItemsChanged.
	FromTypes types.Set
	ToTypes   types.Set

	// Populated on TypeChanged only when one side is structurally an
	// array and the other is not — the planner's wrap/unwrap rule
	// (spec §4.6 rule 4) needs the array side's item type, which
	// FromTypes/ToTypes cannot carry (they hold the bare {array} tag).
	FromItemTypes types.Set
	ToItemTypes   types.Set

	// PresenceChanged
	FromRequired bool
	ToRequired   bool
}

// ChangeSet groups changes the way spec §4.3 requires for emission.
type ChangeSet struct {
	Added           []Change
	Removed         []Change
	Changed         []Change
	SummaryAdded    int
	SummaryRemoved  int
	SummaryChanged  int
}

// Diff compares from and to per the rules of spec §4.3: a preorder
// walk of from ∪ to, emitting added/removed/type_changed/items_changed
// for leaf and array divergence, recursing silently through matching
// object nodes, and presence_changed whenever `required` toggles.
func Diff(from, to *schema.Schema) *ChangeSet {
	cs := &ChangeSet{}
	diffNode(from.Root, to.Root, nil, cs)

	sort.Slice(cs.Added, func(i, j int) bool { return cs.Added[i].Path.String() < cs.Added[j].Path.String() })
	sort.Slice(cs.Removed, func(i, j int) bool { return cs.Removed[i].Path.String() < cs.Removed[j].Path.String() })
	sort.Slice(cs.Changed, func(i, j int) bool { return cs.Changed[i].Path.String() < cs.Changed[j].Path.String() })

	cs.SummaryAdded = len(cs.Added)
	cs.SummaryRemoved = len(cs.Removed)
	cs.SummaryChanged = len(cs.Changed)
	return cs
}

func diffNode(from, to *schema.Node, path schema.Path, cs *ChangeSet) {
	switch {
	case from == nil && to == nil:
		return
	case from == nil:
		emitAdded(to, path, cs)
		return
	case to == nil:
		emitRemoved(from, path, cs)
		return
	}

	if from.Kind == schema.ObjectNode && to.Kind == schema.ObjectNode {
		diffObjects(from, to, path, cs)
		if req := presenceChange(from, to, path); req != nil {
			cs.Changed = append(cs.Changed, *req)
		}
		return
	}

	if from.Kind == schema.ArrayNode && to.Kind == schema.ArrayNode {
		if !from.Items.Types.Equal(to.Items.Types) {
			cs.Changed = append(cs.Changed, Change{
				Kind: ItemsChanged, Path: path,
				FromTypes: from.Items.Types, ToTypes: to.Items.Types,
			})
		} else {
			diffNode(from.Items, to.Items, path, cs)
		}
		if req := presenceChange(from, to, path); req != nil {
			cs.Changed = append(cs.Changed, *req)
		}
		return
	}

	// Leaf-vs-leaf, or one side is structural and the other is a leaf:
	// both cases compare as type sets, since the type lattice treats
	// `object`/`array` as ordinary member tags of a leaf's type set
	// when structure isn't uniform (see infer's shape-mixing rule).
	fromTypes := leafTypes(from)
	toTypes := leafTypes(to)
	if !fromTypes.Equal(toTypes) {
		change := Change{
			Kind: TypeChanged, Path: path,
			FromTypes: fromTypes, ToTypes: toTypes,
		}
		// One side wrapping/unwrapping an array loses its item type
		// under the coarse {array} tag above; carry the real item
		// type separately so the plan compiler's wrap/unwrap rule
		// (spec §4.6 rule 4) has something to build the operation from.
		if from.Kind == schema.ArrayNode && to.Kind != schema.ArrayNode {
			change.FromItemTypes = from.Items.Types
		}
		if to.Kind == schema.ArrayNode && from.Kind != schema.ArrayNode {
			change.ToItemTypes = to.Items.Types
		}
		cs.Changed = append(cs.Changed, change)
	}
	if req := presenceChange(from, to, path); req != nil {
		cs.Changed = append(cs.Changed, *req)
	}
}

func diffObjects(from, to *schema.Node, path schema.Path, cs *ChangeSet) {
	seen := map[string]bool{}
	for _, name := range from.OrderedFieldNames() {
		seen[name] = true
		diffNode(from.Fields[name], to.Fields[name], path.Child(name), cs)
	}
	for _, name := range to.OrderedFieldNames() {
		if seen[name] {
			continue
		}
		diffNode(nil, to.Fields[name], path.Child(name), cs)
	}
	// The object node itself never becomes a change record (spec §4.3:
	// "the object node itself is not emitted as a change").
}

func emitAdded(n *schema.Node, path schema.Path, cs *ChangeSet) {
	cs.Added = append(cs.Added, Change{Kind: Added, Path: path, ToTypes: leafTypes(n)})
	if n.Kind == schema.ObjectNode {
		for _, name := range n.OrderedFieldNames() {
			emitAdded(n.Fields[name], path.Child(name), cs)
		}
	}
}

func emitRemoved(n *schema.Node, path schema.Path, cs *ChangeSet) {
	cs.Removed = append(cs.Removed, Change{Kind: Removed, Path: path, FromTypes: leafTypes(n)})
	if n.Kind == schema.ObjectNode {
		for _, name := range n.OrderedFieldNames() {
			emitRemoved(n.Fields[name], path.Child(name), cs)
		}
	}
}

// leafTypes returns the type set to compare for a node regardless of
// its structural Kind: object/array nodes report the single-tag set
// {object}/{array} (optionally with null) unless the node also
// carries a richer leaf type set from structurally-mixed inference.
func leafTypes(n *schema.Node) types.Set {
	if n.Kind == schema.Leaf || n.Types.Len() > 0 {
		return n.Types
	}
	if n.Kind == schema.ObjectNode {
		return types.NewSet(types.Object)
	}
	return types.NewSet(types.Array)
}

func presenceChange(from, to *schema.Node, path schema.Path) *Change {
	if from.Required() == to.Required() {
		return nil
	}
	return &Change{
		Kind: PresenceChanged, Path: path,
		FromRequired: from.Required(), ToRequired: to.Required(),
	}
}
