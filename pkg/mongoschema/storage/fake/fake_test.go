package fake

import (
	"context"
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/validator"
)

func collect(t *testing.T, ctx context.Context, a *Adapter, collection string, after storage.Key) []storage.Keyed {
	t.Helper()
	cur, err := a.Iterate(ctx, collection, after)
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	defer cur.Close()
	var out []storage.Keyed
	for cur.Next(ctx) {
		out = append(out, cur.Item())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}
	return out
}

func TestSeedAndIterateOrder(t *testing.T) {
	ctx := context.Background()
	a := New()
	a.Seed("widgets",
		map[string]any{"name": "a"},
		map[string]any{"name": "b"},
		map[string]any{"name": "c"},
	)

	items := collect(t, ctx, a, "widgets", "")
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []string{"a", "b", "c"} {
		if items[i].Value["name"] != want {
			t.Errorf("item %d: got %v, want %s", i, items[i].Value["name"], want)
		}
	}
}

func TestIterateResumeFromKey(t *testing.T) {
	ctx := context.Background()
	a := New()
	a.Seed("widgets",
		map[string]any{"name": "a"},
		map[string]any{"name": "b"},
		map[string]any{"name": "c"},
	)

	all := collect(t, ctx, a, "widgets", "")
	resumed := collect(t, ctx, a, "widgets", all[0].Key)
	if len(resumed) != 2 {
		t.Fatalf("expected 2 items after resuming past the first key, got %d", len(resumed))
	}
	if resumed[0].Value["name"] != "b" {
		t.Fatalf("expected resume to pick up at b, got %v", resumed[0].Value["name"])
	}
}

func TestUpdateOneSetAndUnset(t *testing.T) {
	ctx := context.Background()
	a := New()
	a.Seed("widgets", map[string]any{"name": "a", "legacy": "x"})
	items := collect(t, ctx, a, "widgets", "")
	key := items[0].Key

	res, err := a.UpdateOne(ctx, "widgets", key, storage.Mutation{
		Set:   map[string]any{"count": int64(1)},
		Unset: []string{"legacy"},
	})
	if err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}
	if res.Matched != 1 || res.Modified != 1 {
		t.Fatalf("expected matched=1 modified=1, got %+v", res)
	}

	docs := a.Documents("widgets")
	if docs[0]["count"] != int64(1) {
		t.Fatalf("expected count to be set, got %v", docs[0]["count"])
	}
	if _, ok := docs[0]["legacy"]; ok {
		t.Fatalf("expected legacy to be unset")
	}
}

func TestUpdateOneNestedPath(t *testing.T) {
	ctx := context.Background()
	a := New()
	a.Seed("widgets", map[string]any{"name": "a"})
	items := collect(t, ctx, a, "widgets", "")

	_, err := a.UpdateOne(ctx, "widgets", items[0].Key, storage.Mutation{
		Set: map[string]any{"addr.city": "nyc"},
	})
	if err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}

	docs := a.Documents("widgets")
	addr, ok := docs[0]["addr"].(map[string]any)
	if !ok || addr["city"] != "nyc" {
		t.Fatalf("expected nested addr.city to be set, got %v", docs[0]["addr"])
	}
}

func TestUpdateOneUnknownKeyIsNoop(t *testing.T) {
	ctx := context.Background()
	a := New()
	a.Seed("widgets", map[string]any{"name": "a"})

	res, err := a.UpdateOne(ctx, "widgets", storage.Key("999"), storage.Mutation{Set: map[string]any{"x": 1}})
	if err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}
	if res.Matched != 0 {
		t.Fatalf("expected no match for unknown key, got %+v", res)
	}
}

func TestSetValidatorRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New()
	if _, ok := a.Validator("widgets"); ok {
		t.Fatalf("expected no validator before SetValidator")
	}
	if err := a.SetValidator(ctx, "widgets", validator.Document{}, "", ""); err != nil {
		t.Fatalf("SetValidator: %v", err)
	}
	if _, ok := a.Validator("widgets"); !ok {
		t.Fatalf("expected validator to be recorded")
	}
}

func TestCountAndSample(t *testing.T) {
	ctx := context.Background()
	a := New()
	a.Seed("widgets", map[string]any{"n": 1}, map[string]any{"n": 2})

	count, err := a.Count(ctx, "widgets")
	if err != nil || count != 2 {
		t.Fatalf("expected count 2, got %d err=%v", count, err)
	}

	sample, err := a.Sample(ctx, "widgets", 10)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(sample) != 2 {
		t.Fatalf("expected Sample to cap at collection size, got %d", len(sample))
	}
}
