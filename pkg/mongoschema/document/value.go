// Package document models decoded database values as a tagged sum
// over the canonical type lattice (spec §9 design note: "model values
// as a tagged sum over the §3 type lattice plus object(map) and
// array(list); all inference, diff, and planning logic dispatches on
// the tag, never on a language-reflected type").
//
// FromAny is the single place that performs a Go type switch over
// driver-decoded data; every other component consumes Value.Tag.
package document

import (
	"time"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

// Value is one decoded field value, tagged by its canonical type.
type Value struct {
	Tag    types.Tag
	Scalar any            // string, int32, int64, float64, bool, []byte, time.Time, etc.
	Array  []Value        // populated when Tag == types.Array
	Object *OrderedFields // populated when Tag == types.Object
}

// OrderedFields is a field-name to Value mapping that preserves the
// order fields were first observed — the decode side has no need for
// the deterministic presence-then-lexicographic order schema trees
// require on emission (that ordering is applied later, in schema.Node).
type OrderedFields struct {
	names  []string
	values map[string]Value
}

// NewOrderedFields returns an empty field map.
func NewOrderedFields() *OrderedFields {
	return &OrderedFields{values: make(map[string]Value)}
}

// Set records or overwrites a field.
func (o *OrderedFields) Set(name string, v Value) {
	if _, ok := o.values[name]; !ok {
		o.names = append(o.names, name)
	}
	o.values[name] = v
}

// Get retrieves a field by name.
func (o *OrderedFields) Get(name string) (Value, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Names returns field names in first-observed order.
func (o *OrderedFields) Names() []string { return o.names }

// Delete removes a field, if present.
func (o *OrderedFields) Delete(name string) {
	if _, ok := o.values[name]; !ok {
		return
	}
	delete(o.values, name)
	for i, n := range o.names {
		if n == name {
			o.names = append(o.names[:i], o.names[i+1:]...)
			break
		}
	}
}

// Null is the canonical null value.
var Null = Value{Tag: types.Null}

// FromAny decodes a value produced by a JSON/BSON-shaped decoder
// (map[string]any, []any, and JSON scalar types, plus time.Time and
// []byte for adapters that preserve richer native types) into a
// tagged Value. This is the sole type-switch boundary in the module.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null
	case bool:
		return Value{Tag: types.Bool, Scalar: x}
	case int:
		return Value{Tag: types.Int64, Scalar: int64(x)}
	case int32:
		return Value{Tag: types.Int32, Scalar: x}
	case int64:
		return Value{Tag: types.Int64, Scalar: x}
	case float32:
		return Value{Tag: types.Double, Scalar: float64(x)}
	case float64:
		return Value{Tag: types.Double, Scalar: x}
	case string:
		return Value{Tag: types.String, Scalar: x}
	case []byte:
		return Value{Tag: types.Binary, Scalar: x}
	case time.Time:
		return Value{Tag: types.Date, Scalar: x}
	case map[string]any:
		of := NewOrderedFields()
		for k, fv := range x {
			of.Set(k, FromAny(fv))
		}
		return Value{Tag: types.Object, Object: of}
	case []any:
		items := make([]Value, 0, len(x))
		for _, iv := range x {
			items = append(items, FromAny(iv))
		}
		return Value{Tag: types.Array, Array: items}
	default:
		// Adapter-specific scalar (e.g. a decimal or objectId wrapper)
		// that already knows its own tag.
		if t, ok := v.(Tagged); ok {
			return Value{Tag: t.CanonicalTag(), Scalar: v}
		}
		return Value{Tag: types.String, Scalar: v}
	}
}

// Tagged lets an adapter-specific scalar type (e.g. a 12-byte ObjectID
// wrapper, a decimal128, a BSON timestamp) declare its own canonical
// tag instead of falling back to the generic decode path above.
type Tagged interface {
	CanonicalTag() types.Tag
}
