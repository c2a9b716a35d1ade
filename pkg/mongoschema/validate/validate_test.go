package validate

import (
	"context"
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage/fake"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

func expectedSchema() *schema.Schema {
	s := schema.NewObjectSchema()
	s.Root.Fields = map[string]*schema.Node{
		"sku":   {Kind: schema.Leaf, Types: types.NewSet(types.String), Presence: 1, NullRate: 0},
		"price": {Kind: schema.Leaf, Types: types.NewSet(types.Int64, types.Double), Presence: 1, NullRate: 0},
		"notes": {Kind: schema.Leaf, Types: types.NewSet(types.String), Presence: 0.5, NullRate: 0},
	}
	return s
}

func TestRunAllDocumentsValid(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets",
		map[string]any{"sku": "a", "price": int64(10)},
		map[string]any{"sku": "b", "price": 9.5, "notes": "on sale"},
	)

	res, err := Run(ctx, a, "widgets", expectedSchema(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Valid != 2 || res.Invalid != 0 {
		t.Fatalf("expected 2 valid, 0 invalid, got valid=%d invalid=%d", res.Valid, res.Invalid)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("expected no errors, got %+v", res.Errors)
	}
	if res.SampledDocuments != 2 || res.TotalDocuments != 2 {
		t.Fatalf("unexpected document counts: %+v", res)
	}
}

func TestRunMissingRequiredField(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"sku": "a"})

	res, err := Run(ctx, a, "widgets", expectedSchema(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Invalid != 1 {
		t.Fatalf("expected 1 invalid document, got %d", res.Invalid)
	}
	if len(res.Errors) != 1 || res.Errors[0].Issues[0] != "missing required field: price" {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
}

func TestRunTypeMismatch(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"sku": "a", "price": "not-a-number"})

	res, err := Run(ctx, a, "widgets", expectedSchema(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Invalid != 1 {
		t.Fatalf("expected 1 invalid document, got %d", res.Invalid)
	}
	if len(res.Errors) != 1 || res.Errors[0].Issues[0] != "type mismatch for price: expected double|int64, got string" {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
}

func TestRunNullValueOnRequiredFieldCountsAsMissing(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"sku": "a", "price": nil})

	res, err := Run(ctx, a, "widgets", expectedSchema(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Invalid != 1 || res.Errors[0].Issues[0] != "missing required field: price" {
		t.Fatalf("expected a missing-required-field issue for a null value, got %+v", res.Errors)
	}
}

func TestRunOptionalFieldAbsentIsNotAnIssue(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"sku": "a", "price": int64(1)})

	res, err := Run(ctx, a, "widgets", expectedSchema(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Invalid != 0 {
		t.Fatalf("expected 0 invalid, notes is optional, got %+v", res.Errors)
	}
}

func TestRunErrorListCappedButCountsAreNot(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	for i := 0; i < 5; i++ {
		a.Seed("widgets", map[string]any{"sku": "a"}) // always missing price
	}

	res, err := Run(ctx, a, "widgets", expectedSchema(), Options{MaxErrors: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Invalid != 5 {
		t.Fatalf("expected invalid=5 regardless of the cap, got %d", res.Invalid)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected the error list capped at 2, got %d", len(res.Errors))
	}
}

func TestRunDocumentKeyUsesIDWhenPresent(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"_id": "abc123"})

	res, err := Run(ctx, a, "widgets", expectedSchema(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Errors) != 1 || res.Errors[0].Key != "abc123" {
		t.Fatalf("expected the _id to be used as the key, got %+v", res.Errors)
	}
}

func TestRunDocumentKeyFallsBackToSampleIndex(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"sku": "a"})

	res, err := Run(ctx, a, "widgets", expectedSchema(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Errors) != 1 || res.Errors[0].Key != "0" {
		t.Fatalf("expected the sample index as the key fallback, got %+v", res.Errors)
	}
}

func TestRunEmptyCollectionReturnsZeroedResult(t *testing.T) {
	ctx := context.Background()
	a := fake.New()

	res, err := Run(ctx, a, "widgets", expectedSchema(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TotalDocuments != 0 || res.SampledDocuments != 0 || res.Valid != 0 || res.Invalid != 0 {
		t.Fatalf("expected a zeroed result for an empty collection, got %+v", res)
	}
}
