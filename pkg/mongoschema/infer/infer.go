// Package infer implements the sampling-based inference engine of
// spec §4.2: sample -> per-field type histograms -> normalized schema.
package infer

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/document"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

// DefaultSampleSize is used when the caller does not request a
// specific sample size; spec §4.2 requires the default to be
// user-overridable, never hard-wired into the algorithm itself.
const DefaultSampleSize = 1000

// Sampler is the narrow slice of the §4.8 adapter the inference
// engine needs: uniform sampling of raw documents.
type Sampler interface {
	Count(ctx context.Context, collection string) (int64, error)
	Sample(ctx context.Context, collection string, n int) ([]map[string]any, error)
}

// AnomalyKind enumerates the non-fatal anomaly outputs spec §4.2 lists.
type AnomalyKind string

const (
	AnomalyMultiType    AnomalyKind = "multi_type"
	AnomalyLowPresence  AnomalyKind = "low_presence"
	AnomalyHighNullRate AnomalyKind = "high_null_rate"
	AnomalyMixedItems   AnomalyKind = "mixed_array_items"
)

// Anomaly describes one non-fatal observation attached to an
// inference Result.
type Anomaly struct {
	Kind AnomalyKind
	Path schema.Path
}

// Result is the output of Run: a populated schema plus the anomaly
// list spec §4.2 requires.
type Result struct {
	Schema            *schema.Schema
	TotalDocuments    int64
	SampledDocuments  int64
	Anomalies         []Anomaly
}

// Options configures one inference run.
type Options struct {
	SampleSize int
	Logger     zerolog.Logger
}

// accumulator mirrors spec §4.2 step 2: "per-path state: observation
// count n, null count, value-tag histogram, and for object/array
// types, recursive sub-state."
type accumulator struct {
	n        int64
	nulls    int64
	types    types.Set
	children map[string]*accumulator // filled from every object observation; used only if all non-null observations were objects
	items    *accumulator            // filled from every array observation; used only if all non-null observations were arrays
	sawObject, sawArray, sawOther bool
}

func newAccumulator() *accumulator {
	return &accumulator{children: map[string]*accumulator{}}
}

// Run samples up to opts.SampleSize documents from collection and
// produces a normalized schema with populated statistics, per the
// six-step algorithm of spec §4.2.
func Run(ctx context.Context, s Sampler, collection string, opts Options) (*Result, error) {
	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	log := opts.Logger

	total, err := s.Count(ctx, collection)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "count collection", err)
	}
	target := sampleSize
	if int64(target) > total {
		target = int(total)
	}
	if target <= 0 {
		return &Result{Schema: schema.NewObjectSchema(), TotalDocuments: total}, nil
	}

	docs, err := s.Sample(ctx, collection, target)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "sample collection", err)
	}
	log.Debug().Str("collection", collection).Int("sampled", len(docs)).Msg("inference sample drawn")

	root := newAccumulator()
	for _, doc := range docs {
		observeObject(root, document.FromAny(doc).Object)
	}

	sch := schema.NewObjectSchema()
	sch.Root.SampleCount = int64(len(docs))
	populateObjectFields(sch.Root, root, int64(len(docs)))

	anomalies := collectAnomalies(sch.Root, nil)

	return &Result{
		Schema:           sch,
		TotalDocuments:   total,
		SampledDocuments: int64(len(docs)),
		Anomalies:        anomalies,
	}, nil
}

// observeObject folds one document's fields into acc's children,
// per spec §4.2 step 3: "for every field present, increment
// observations and the tag bucket; for missing fields... do not
// increment."
func observeObject(acc *accumulator, obj *document.OrderedFields) {
	if obj == nil {
		return
	}
	for _, name := range obj.Names() {
		v, _ := obj.Get(name)
		child, ok := acc.children[name]
		if !ok {
			child = newAccumulator()
			acc.children[name] = child
		}
		observeValue(child, v)
	}
}

func observeValue(acc *accumulator, v document.Value) {
	acc.n++
	if v.Tag == types.Null {
		acc.nulls++
		return
	}
	acc.types.Observe(v.Tag)

	switch v.Tag {
	case types.Object:
		acc.sawObject = true
		observeObject(acc, v.Object)
	case types.Array:
		acc.sawArray = true
		if acc.items == nil {
			acc.items = newAccumulator()
		}
		for _, item := range v.Array {
			observeValue(acc.items, item)
		}
	default:
		acc.sawOther = true
	}
}

// populateObjectFields normalizes acc's children into n's Fields, per
// spec §4.2 step 4 (presence/null_rate/type-set) and step 5
// (low-presence coalescing never drops a rare variant). It does not
// touch n's own Presence/NullRate/SampleCount — those describe n's
// relationship to *its* parent and are set by the caller.
func populateObjectFields(n *schema.Node, acc *accumulator, parentN int64) {
	n.Kind = schema.ObjectNode
	n.Fields = map[string]*schema.Node{}
	for name, child := range acc.children {
		n.Fields[name] = buildNode(child, parentN)
	}
}

func buildNode(acc *accumulator, parentN int64) *schema.Node {
	node := &schema.Node{SampleCount: acc.n}
	if parentN > 0 {
		node.Presence = float64(acc.n) / float64(parentN)
	}
	if acc.n > 0 {
		node.NullRate = float64(acc.nulls) / float64(acc.n)
	}
	node.Types = acc.types

	shapeCount := boolToInt(acc.sawObject) + boolToInt(acc.sawArray) + boolToInt(acc.sawOther)
	switch {
	case acc.sawObject && shapeCount == 1:
		populateObjectFields(node, acc, acc.n-acc.nulls)
		node.Types = acc.types // preserve the leaf-level type stats even though Kind is ObjectNode
	case acc.sawArray && shapeCount == 1:
		node.Kind = schema.ArrayNode
		nonNull := acc.n - acc.nulls
		if acc.items == nil {
			node.Items = &schema.Node{Kind: schema.Leaf, Types: types.NewSet(), Presence: 0}
		} else {
			node.Items = buildNode(acc.items, nonNull)
		}
	default:
		// Scalar-only, or a structurally mixed field (spec §4.1's
		// "any other tag pair yields a two-element union" applied at
		// the shape level): keep it a leaf so the type set remains
		// the ground truth even when some observations were objects
		// or arrays.
		node.Kind = schema.Leaf
	}
	return node
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// lowPresenceFloor implements spec §4.2 step 5's suggested floor:
// "fewer than... 1 observation or < 0.1% of parent n, whichever is
// larger." Nothing in the engine calls it: every observed tag is kept
// in the leaf's type set, and no anomaly is raised for a tag below
// this floor.
func lowPresenceFloor(parentN int64) int64 {
	floor := int64(float64(parentN) * 0.001)
	if floor < 1 {
		return 1
	}
	return floor
}

// collectAnomalies walks the schema tree and emits the non-fatal
// anomaly set spec §4.2 lists: multi-type fields, presence < 0.9,
// null_rate > 0.1, and arrays whose items are themselves a union.
func collectAnomalies(n *schema.Node, path schema.Path) []Anomaly {
	var out []Anomaly
	switch n.Kind {
	case schema.Leaf:
		out = append(out, leafAnomalies(n, path)...)
	case schema.ArrayNode:
		out = append(out, leafAnomalies(n, path)...)
		if n.Items != nil && n.Items.Kind == schema.Leaf && n.Items.Types.Len() > 1 {
			out = append(out, Anomaly{Kind: AnomalyMixedItems, Path: path})
		}
		if n.Items != nil {
			out = append(out, collectAnomalies(n.Items, path.Child("[]"))...)
		}
	case schema.ObjectNode:
		for _, name := range n.OrderedFieldNames() {
			out = append(out, collectAnomalies(n.Fields[name], path.Child(name))...)
		}
	}
	return out
}

func leafAnomalies(n *schema.Node, path schema.Path) []Anomaly {
	var out []Anomaly
	if n.Types.Len() > 1 {
		out = append(out, Anomaly{Kind: AnomalyMultiType, Path: path})
	}
	if n.Presence < 0.9 {
		out = append(out, Anomaly{Kind: AnomalyLowPresence, Path: path})
	}
	if n.NullRate > 0.1 {
		out = append(out, Anomaly{Kind: AnomalyHighNullRate, Path: path})
	}
	return out
}

// SortAnomalies orders anomalies deterministically for display/tests.
func SortAnomalies(items []Anomaly) {
	sort.Slice(items, func(i, j int) bool {
		pi, pj := items[i].Path.String(), items[j].Path.String()
		if pi != pj {
			return pi < pj
		}
		return items[i].Kind < items[j].Kind
	})
}
