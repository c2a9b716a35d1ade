package infer

import (
	"context"
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage/fake"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

func TestRunInfersScalarFieldPresentInEveryDocument(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets",
		map[string]any{"name": "a", "price": int64(1)},
		map[string]any{"name": "b", "price": int64(2)},
	)

	res, err := Run(ctx, a, "widgets", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	name, ok := res.Schema.Root.Fields["name"]
	if !ok {
		t.Fatalf("expected a name field")
	}
	if name.Presence != 1 {
		t.Fatalf("expected presence 1.0, got %v", name.Presence)
	}
	if !name.Types.Equal(types.NewSet(types.String)) {
		t.Fatalf("expected type {string}, got %v", name.Types)
	}
}

func TestRunPartialPresenceAndNullRate(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets",
		map[string]any{"name": "a", "nick": nil},
		map[string]any{"name": "b", "nick": "x"},
		map[string]any{"name": "c"},
	)

	res, err := Run(ctx, a, "widgets", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	nick := res.Schema.Root.Fields["nick"]
	if nick.Presence != float64(2)/float64(3) {
		t.Fatalf("expected presence 2/3, got %v", nick.Presence)
	}
	if nick.NullRate != 0.5 {
		t.Fatalf("expected null_rate 0.5 (1 null out of 2 observations), got %v", nick.NullRate)
	}
}

func TestRunArrayItemsInferred(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets",
		map[string]any{"tags": []any{"a", "b"}},
		map[string]any{"tags": []any{"c"}},
	)

	res, err := Run(ctx, a, "widgets", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	tags := res.Schema.Root.Fields["tags"]
	if tags.Kind != schema.ArrayNode {
		t.Fatalf("expected tags to be an array node, got %v", tags.Kind)
	}
	if !tags.Items.Types.Equal(types.NewSet(types.String)) {
		t.Fatalf("expected item type {string}, got %v", tags.Items.Types)
	}
}

func TestRunMultiTypeFieldFlagsAnomaly(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	a.Seed("widgets",
		map[string]any{"price": int64(1)},
		map[string]any{"price": "2"},
	)

	res, err := Run(ctx, a, "widgets", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, an := range res.Anomalies {
		if an.Kind == AnomalyMultiType && an.Path.String() == "price" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a multi_type anomaly on price, got %+v", res.Anomalies)
	}
}

func TestRunRespectsSampleSizeCap(t *testing.T) {
	ctx := context.Background()
	a := fake.New()
	for i := 0; i < 10; i++ {
		a.Seed("widgets", map[string]any{"n": int64(i)})
	}

	res, err := Run(ctx, a, "widgets", Options{SampleSize: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.SampledDocuments != 3 {
		t.Fatalf("expected sample to be capped at 3, got %d", res.SampledDocuments)
	}
	if res.TotalDocuments != 10 {
		t.Fatalf("expected total documents 10, got %d", res.TotalDocuments)
	}
}

func TestRunEmptyCollectionYieldsEmptySchema(t *testing.T) {
	ctx := context.Background()
	a := fake.New()

	res, err := Run(ctx, a, "widgets", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Schema.Root.Fields) != 0 {
		t.Fatalf("expected no fields for an empty collection, got %v", res.Schema.Root.Fields)
	}
}
