package document

import (
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

func TestGetSetDeletePathNested(t *testing.T) {
	doc := NewOrderedFields()
	SetPath(doc, []string{"addr", "city"}, Value{Tag: types.String, Scalar: "nyc"})

	v, ok := GetPath(doc, []string{"addr", "city"})
	if !ok || v.Scalar != "nyc" {
		t.Fatalf("expected nested get to find nyc, got %v ok=%v", v, ok)
	}

	addr, ok := doc.Get("addr")
	if !ok || addr.Tag != types.Object {
		t.Fatalf("expected addr to be an object field, got %v", addr)
	}

	DeletePath(doc, []string{"addr", "city"})
	if _, ok := GetPath(doc, []string{"addr", "city"}); ok {
		t.Fatalf("expected city to be deleted")
	}
}

func TestGetPathMissingSegmentsAreNotFound(t *testing.T) {
	doc := NewOrderedFields()
	doc.Set("name", Value{Tag: types.String, Scalar: "x"})

	if _, ok := GetPath(doc, []string{"name", "nested"}); ok {
		t.Fatalf("descending into a non-object field should fail")
	}
	if _, ok := GetPath(doc, []string{"missing"}); ok {
		t.Fatalf("missing top-level field should fail")
	}
}

func TestSetPathOverwritesNonObjectIntermediate(t *testing.T) {
	doc := NewOrderedFields()
	doc.Set("addr", Value{Tag: types.String, Scalar: "flat"})

	SetPath(doc, []string{"addr", "city"}, Value{Tag: types.String, Scalar: "nyc"})

	addr, ok := doc.Get("addr")
	if !ok || addr.Tag != types.Object {
		t.Fatalf("expected addr to become an object, got %v", addr)
	}
	v, ok := GetPath(doc, []string{"addr", "city"})
	if !ok || v.Scalar != "nyc" {
		t.Fatalf("expected city to be set under the new object, got %v", v)
	}
}
