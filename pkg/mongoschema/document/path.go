package document

import "github.com/nonibytes/mongoschema/pkg/mongoschema/types"

// GetPath resolves a dotted field path against a decoded document,
// transparently descending into object fields. Array segments are not
// addressable by path (the executor only ever mutates scalar and
// whole-array positions, never individual elements).
func GetPath(doc *OrderedFields, segs []string) (Value, bool) {
	if doc == nil || len(segs) == 0 {
		return Value{}, false
	}
	v, ok := doc.Get(segs[0])
	if !ok {
		return Value{}, false
	}
	if len(segs) == 1 {
		return v, true
	}
	if v.Tag != types.Object || v.Object == nil {
		return Value{}, false
	}
	return GetPath(v.Object, segs[1:])
}

// SetPath writes v at the dotted path into doc, creating intermediate
// object nodes as needed.
func SetPath(doc *OrderedFields, segs []string, v Value) {
	if doc == nil || len(segs) == 0 {
		return
	}
	if len(segs) == 1 {
		doc.Set(segs[0], v)
		return
	}
	child, ok := doc.Get(segs[0])
	var childObj *OrderedFields
	if ok && child.Tag == types.Object && child.Object != nil {
		childObj = child.Object
	} else {
		childObj = NewOrderedFields()
	}
	SetPath(childObj, segs[1:], v)
	doc.Set(segs[0], Value{Tag: types.Object, Object: childObj})
}

// DeletePath removes the field at the dotted path, if present.
func DeletePath(doc *OrderedFields, segs []string) {
	if doc == nil || len(segs) == 0 {
		return
	}
	if len(segs) == 1 {
		doc.Delete(segs[0])
		return
	}
	child, ok := doc.Get(segs[0])
	if !ok || child.Tag != types.Object || child.Object == nil {
		return
	}
	DeletePath(child.Object, segs[1:])
}
