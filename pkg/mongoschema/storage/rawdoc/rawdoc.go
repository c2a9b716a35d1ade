// Package rawdoc applies a storage.Mutation's dotted-path set/unset
// operations to the map[string]any shape every concrete adapter
// exchanges with its JSON-document table, so the fake, sqlite, and
// postgres adapters share one implementation of that bookkeeping.
package rawdoc

import "strings"

// SetPath writes v at the dotted path in doc, creating intermediate
// maps as needed.
func SetPath(doc map[string]any, path string, v any) {
	setPath(doc, strings.Split(path, "."), v)
}

func setPath(doc map[string]any, segs []string, v any) {
	if len(segs) == 1 {
		doc[segs[0]] = v
		return
	}
	child, ok := doc[segs[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
	}
	setPath(child, segs[1:], v)
	doc[segs[0]] = child
}

// DeletePath removes the field at the dotted path, if present.
func DeletePath(doc map[string]any, path string) {
	deletePath(doc, strings.Split(path, "."))
}

func deletePath(doc map[string]any, segs []string) {
	if len(segs) == 1 {
		delete(doc, segs[0])
		return
	}
	child, ok := doc[segs[0]].(map[string]any)
	if !ok {
		return
	}
	deletePath(child, segs[1:])
}
