package executor

import (
	"math"
	"strconv"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/document"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/plan"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

// buildMutation turns a firing op list into a single atomic update,
// or reports the first skip reason encountered (spec §4.7 step 3:
// "conversion failures at execution time are per-document failures,
// not plan failures").
func buildMutation(ops []plan.Operation, doc *document.OrderedFields) (storage.Mutation, SkipReason, error) {
	m := storage.Mutation{Set: map[string]any{}}
	for _, op := range ops {
		segs := []string(op.Path)
		switch op.Kind {
		case plan.AddField:
			v := document.Null
			if op.HasDefault && op.Default != nil {
				v = document.FromAny(op.Default)
			}
			m.Set[op.Path.String()] = document.ToAny(v)

		case plan.RemoveField:
			m.Unset = append(m.Unset, op.Path.String())

		case plan.Convert:
			cur, _ := document.GetPath(doc, segs)
			target := primaryTag(op.Type)
			out, ok := convertScalar(cur, target)
			if !ok {
				return storage.Mutation{}, SkipConvertFailed, nil
			}
			m.Set[op.Path.String()] = document.ToAny(out)

		case plan.WrapArray:
			cur, _ := document.GetPath(doc, segs)
			wrapped := document.Value{Tag: types.Array, Array: []document.Value{cur}}
			m.Set[op.Path.String()] = document.ToAny(wrapped)

		case plan.UnwrapArray:
			cur, _ := document.GetPath(doc, segs)
			target := primaryTag(op.Type)
			switch len(cur.Array) {
			case 0:
				m.Set[op.Path.String()] = document.ToAny(defaultForTag(target))
			case 1:
				out, ok := convertScalar(cur.Array[0], target)
				if !ok {
					return storage.Mutation{}, SkipConvertFailed, nil
				}
				m.Set[op.Path.String()] = document.ToAny(out)
			default:
				return storage.Mutation{}, SkipUnwrapAmbiguous, nil
			}

		case plan.ConvertItems:
			cur, _ := document.GetPath(doc, segs)
			target := primaryTag(op.ItemType)
			items := make([]document.Value, len(cur.Array))
			for i, item := range cur.Array {
				out, ok := convertScalar(item, target)
				if !ok {
					return storage.Mutation{}, SkipConvertFailed, nil
				}
				items[i] = out
			}
			m.Set[op.Path.String()] = document.ToAny(document.Value{Tag: types.Array, Array: items})
		}
	}
	return m, "", nil
}

// primaryTag picks the highest-frequency non-null tag of a type set
// as the conversion target, since an operation's declared type may
// itself be a union (spec §3's frequency-ordered rendering).
func primaryTag(ts types.Set) types.Tag {
	tags := ts.WithoutNull().Tags()
	if len(tags) == 0 {
		return types.Null
	}
	return tags[0]
}

func defaultForTag(t types.Tag) document.Value {
	switch t {
	case types.String:
		return document.Value{Tag: types.String, Scalar: ""}
	case types.Int32:
		return document.Value{Tag: types.Int32, Scalar: int32(0)}
	case types.Int64:
		return document.Value{Tag: types.Int64, Scalar: int64(0)}
	case types.Double:
		return document.Value{Tag: types.Double, Scalar: float64(0)}
	case types.Bool:
		return document.Value{Tag: types.Bool, Scalar: false}
	default:
		return document.Null
	}
}

// convertScalar implements the §4.6 rule-5 "database engine's native
// value-conversion primitive" for the scalar tag pairs the inference
// engine actually produces from JSON-shaped sources: numeric widening
// and string coercion. Anything else — or a conversion that would
// lose information the target type cannot represent (e.g. "x" -> int32)
// — fails, surfacing as a per-document skip.
func convertScalar(v document.Value, target types.Tag) (document.Value, bool) {
	if v.Tag == target {
		return v, true
	}
	if v.Tag == types.Null {
		return v, true
	}
	switch target {
	case types.String:
		if v.Tag == types.Object || v.Tag == types.Array {
			return document.Value{}, false
		}
		return document.Value{Tag: types.String, Scalar: scalarToString(v)}, true
	case types.Int32:
		n, ok := scalarToInt(v)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return document.Value{}, false
		}
		return document.Value{Tag: types.Int32, Scalar: int32(n)}, true
	case types.Int64:
		n, ok := scalarToInt(v)
		if !ok {
			return document.Value{}, false
		}
		return document.Value{Tag: types.Int64, Scalar: n}, true
	case types.Double:
		f, ok := scalarToFloat(v)
		if !ok {
			return document.Value{}, false
		}
		if i, isInt := v.Scalar.(int64); isInt && (f >= math.MaxInt64 || int64(f) != i) {
			return document.Value{}, false
		}
		return document.Value{Tag: types.Double, Scalar: f}, true
	case types.Bool:
		b, ok := scalarToBool(v)
		if !ok {
			return document.Value{}, false
		}
		return document.Value{Tag: types.Bool, Scalar: b}, true
	default:
		return document.Value{}, false
	}
}

func scalarToString(v document.Value) string {
	switch s := v.Scalar.(type) {
	case string:
		return s
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func scalarToInt(v document.Value) (int64, bool) {
	switch s := v.Scalar.(type) {
	case int32:
		return int64(s), true
	case int64:
		return s, true
	case float64:
		if s != math.Trunc(s) || s < math.MinInt64 || s >= math.MaxInt64 {
			return 0, false
		}
		return int64(s), true
	case string:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func scalarToFloat(v document.Value) (float64, bool) {
	switch s := v.Scalar.(type) {
	case int32:
		return float64(s), true
	case int64:
		return float64(s), true
	case float64:
		return s, true
	case string:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func scalarToBool(v document.Value) (bool, bool) {
	switch s := v.Scalar.(type) {
	case bool:
		return s, true
	case string:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}
