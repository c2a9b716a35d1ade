// Package plan implements the migration plan compiler of spec §4.6:
// deriving an ordered, idempotent list of field-level operations from
// a schema pair's diff.
package plan

import (
	"sort"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/diff"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

// OpKind tags one plan operation, mirroring spec §3's operation O.
type OpKind string

const (
	AddField     OpKind = "add_field"
	RemoveField  OpKind = "remove_field"
	Convert      OpKind = "convert"
	WrapArray    OpKind = "wrap_array"
	UnwrapArray  OpKind = "unwrap_array"
	ConvertItems OpKind = "convert_items"
)

// Operation is one purely structural plan step; operations carry no
// statistics (spec §3).
type Operation struct {
	Kind OpKind
	Path schema.Path

	Type     types.Set // AddField, Convert target type
	ItemType types.Set // WrapArray, ConvertItems target item type

	// HasDefault/Default apply to AddField only. A nil Default with
	// HasDefault false and a non-nullable Type means the operation
	// requires operator input (spec §4.6 rule 1) and RequiresInput
	// reports true.
	HasDefault    bool
	Default       any
	RequiresInput bool
}

// Plan is the ordered, idempotent operation list spec §4.6 describes.
type Plan struct {
	Operations []Operation
}

// Compile derives a plan from the diff of from and to, applying the
// six derivation rules of spec §4.6 and the ordering rule: removals
// first (deepest path first), then type changes (any order), then
// additions (shallowest first). The planner never emits two
// operations with the same path.
func Compile(from, to *schema.Schema) *Plan {
	cs := diff.Diff(from, to)

	var removals, typeChanges, additions []Operation

	for _, c := range cs.Removed {
		// A removed object's leaves carry its removal; no op for the object itself.
		if n, ok := from.Lookup(c.Path); ok && n.Kind == schema.ObjectNode && len(n.Fields) > 0 {
			continue
		}
		removals = append(removals, Operation{Kind: RemoveField, Path: c.Path})
	}

	for _, c := range cs.Changed {
		switch c.Kind {
		case diff.TypeChanged:
			if op := compileTypeChanged(c); op != nil {
				typeChanges = append(typeChanges, *op)
			}
		case diff.ItemsChanged:
			typeChanges = append(typeChanges, Operation{
				Kind: ConvertItems, Path: c.Path, ItemType: c.ToTypes,
			})
		case diff.PresenceChanged:
			// Purely advisory; spec §4.6 derives no operation from it.
		}
	}

	for _, c := range cs.Added {
		additions = append(additions, compileAdded(c))
	}

	sort.Slice(removals, func(i, j int) bool {
		return len(removals[i].Path) > len(removals[j].Path) ||
			(len(removals[i].Path) == len(removals[j].Path) && removals[i].Path.String() < removals[j].Path.String())
	})
	sort.Slice(additions, func(i, j int) bool {
		return len(additions[i].Path) < len(additions[j].Path) ||
			(len(additions[i].Path) == len(additions[j].Path) && additions[i].Path.String() < additions[j].Path.String())
	})
	sort.Slice(typeChanges, func(i, j int) bool {
		return typeChanges[i].Path.String() < typeChanges[j].Path.String()
	})

	ops := make([]Operation, 0, len(removals)+len(typeChanges)+len(additions))
	ops = append(ops, removals...)
	ops = append(ops, typeChanges...)
	ops = append(ops, additions...)
	return &Plan{Operations: ops}
}

// compileTypeChanged applies rules 3–5 of spec §4.6.
func compileTypeChanged(c diff.Change) *Operation {
	from, to := c.FromTypes, c.ToTypes

	// Rule 3: strict widening (from.types ⊂ to.types) is a no-op;
	// union expansions do not require rewriting existing data.
	if from.Subset(to) && !to.Subset(from) {
		return nil
	}

	fromIsArray, toIsArray := from.Has(types.Array), to.Has(types.Array)
	if fromIsArray != toIsArray {
		if toIsArray {
			// to's coarse {array} tag above hides the real item type;
			// ToItemTypes carries it (populated by diffNode).
			itemType := c.ToItemTypes
			if itemType.Len() == 0 {
				itemType = to.WithoutNull()
			}
			return &Operation{Kind: WrapArray, Path: c.Path, ItemType: itemType}
		}
		// to is already a leaf here, so its type set is the real
		// scalar target type — no coarse tag to work around.
		return &Operation{Kind: UnwrapArray, Path: c.Path, Type: to.WithoutNull()}
	}

	return &Operation{Kind: Convert, Path: c.Path, Type: to}
}

// compileAdded applies rule 1 of spec §4.6: the default is always
// null unless the declared type set excludes null, in which case the
// operation carries no default and is flagged as requiring operator
// input.
func compileAdded(c diff.Change) Operation {
	op := Operation{Kind: AddField, Path: c.Path, Type: c.ToTypes}
	if c.ToTypes.Has(types.Null) {
		op.HasDefault = true
		op.Default = nil
	} else {
		op.RequiresInput = true
	}
	return op
}

// CheckInputs returns a plan-requires-input error for the first
// operation that still needs an operator-supplied default, or nil if
// the plan can execute as-is (spec §7's *Plan-requires-input error*).
func (p *Plan) CheckInputs() error {
	for _, op := range p.Operations {
		if op.RequiresInput {
			return mserrors.PlanInputError(op.Path.String())
		}
	}
	return nil
}

// WithOverrides returns a copy of the plan where any add_field
// operation requiring input is filled in from overrides (keyed by
// dotted path), clearing RequiresInput for matched paths.
func (p *Plan) WithOverrides(overrides map[string]any) *Plan {
	out := &Plan{Operations: make([]Operation, len(p.Operations))}
	copy(out.Operations, p.Operations)
	for i, op := range out.Operations {
		if op.Kind != AddField || !op.RequiresInput {
			continue
		}
		if def, ok := overrides[op.Path.String()]; ok {
			op.HasDefault = true
			op.Default = def
			op.RequiresInput = false
			out.Operations[i] = op
		}
	}
	return out
}
