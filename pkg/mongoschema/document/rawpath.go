package document

import "github.com/nonibytes/mongoschema/pkg/mongoschema/types"

// ToAny converts a tagged Value back into the plain Go shape
// FromAny would have produced it from — the inverse of the decode
// boundary, used wherever a component must hand a value back to an
// adapter that only understands raw JSON-shaped values.
func ToAny(v Value) any {
	if v.Tag == types.Null {
		return nil
	}
	if v.Object != nil {
		m := make(map[string]any, len(v.Object.Names()))
		for _, name := range v.Object.Names() {
			fv, _ := v.Object.Get(name)
			m[name] = ToAny(fv)
		}
		return m
	}
	if v.Array != nil {
		out := make([]any, len(v.Array))
		for i, item := range v.Array {
			out[i] = ToAny(item)
		}
		return out
	}
	return v.Scalar
}
