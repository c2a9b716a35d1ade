package runner

import (
	"context"
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/infer"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage/fake"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

func TestRunInferenceCoversEveryCollectionInOrder(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"name": "a"})
	a.Seed("orders", map[string]any{"sku": "x"})
	a.Seed("users", map[string]any{"email": "a@b.com"})

	collections := []string{"widgets", "orders", "users"}
	results := RunInference(ctx, a, collections, infer.Options{}, 2)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, name := range collections {
		if results[i].Collection != name {
			t.Fatalf("expected result order to match input order, got %v at index %d", results[i].Collection, i)
		}
		if results[i].Err != nil {
			t.Fatalf("unexpected error for %s: %v", name, results[i].Err)
		}
		if results[i].Result == nil {
			t.Fatalf("expected a non-nil inference result for %s", name)
		}
	}
}

func TestRunInferenceDefaultsConcurrencyWhenNonPositive(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"name": "a"})

	results := RunInference(ctx, a, []string{"widgets"}, infer.Options{}, 0)
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("expected a single successful result, got %+v", results)
	}
}

func TestRunDriftMissingExpectedSchemaYieldsNotFound(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"name": "a"})

	results := RunDrift(ctx, a, []string{"widgets"}, map[string]*schema.Schema{}, infer.Options{}, 2)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Fatalf("expected a not_found error for a collection with no expected schema")
	}
	if !mserrors.IsKind(results[0].Err, mserrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", results[0].Err)
	}
}

func TestRunDriftCompletesWithRegisteredExpectedSchema(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets", map[string]any{"name": "a"})

	expected := map[string]*schema.Schema{
		"widgets": {Root: &schema.Node{
			Kind: schema.ObjectNode, Presence: 1,
			Fields: map[string]*schema.Node{
				"name": {Kind: schema.Leaf, Types: types.NewSet(types.String), Presence: 1},
			},
		}},
	}

	results := RunDrift(ctx, a, []string{"widgets"}, expected, infer.Options{}, 2)
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("expected a single successful drift result, got %+v", results)
	}
	if results[0].Result == nil {
		t.Fatalf("expected a non-nil drift result")
	}
}

func TestRunInferenceEmptyCollectionListYieldsEmptySlice(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	results := RunInference(ctx, a, nil, infer.Options{}, 2)
	if len(results) != 0 {
		t.Fatalf("expected no results for an empty collection list, got %d", len(results))
	}
}
