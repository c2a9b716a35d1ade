// Package validate implements the per-document validation sweep of
// SPEC_FULL.md §4.11: sample a live collection and check each
// document against a declared schema, distinct from the drift
// engine's aggregate field-level scoring.
package validate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/document"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/infer"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

// DefaultSampleSize is validate.py's own default, wider than
// infer.DefaultSampleSize since a validation sweep aims to cover more
// of the live collection than a one-off inference pass.
const DefaultSampleSize = 10000

// DefaultMaxErrors bounds the returned per-document error list.
const DefaultMaxErrors = 100

// DocumentError is one invalid document's key plus its issue list.
type DocumentError struct {
	Key    string
	Issues []string
}

// Result is the §6.8 validation report.
type Result struct {
	TotalDocuments   int64
	SampledDocuments int64
	Valid            int
	Invalid          int
	Errors           []DocumentError
	ValidatedAt      time.Time
}

// Options configures one validation run.
type Options struct {
	SampleSize int
	MaxErrors  int
}

// Run samples up to opts.SampleSize documents from collection and
// checks each against expected's top-level fields, per §4.11.
func Run(ctx context.Context, s infer.Sampler, collection string, expected *schema.Schema, opts Options) (*Result, error) {
	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	maxErrors := opts.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}

	total, err := s.Count(ctx, collection)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "count collection", err)
	}
	target := sampleSize
	if int64(target) > total {
		target = int(total)
	}
	if target <= 0 {
		return &Result{TotalDocuments: total, ValidatedAt: time.Now()}, nil
	}

	docs, err := s.Sample(ctx, collection, target)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "sample collection", err)
	}

	result := &Result{
		TotalDocuments:   total,
		SampledDocuments: int64(len(docs)),
		ValidatedAt:      time.Now(),
	}
	for i, doc := range docs {
		issues := checkDocument(expected.Root, doc)
		if len(issues) == 0 {
			result.Valid++
			continue
		}
		result.Invalid++
		if len(result.Errors) < maxErrors {
			result.Errors = append(result.Errors, DocumentError{Key: documentKey(doc, i), Issues: issues})
		}
	}
	return result, nil
}

// checkDocument applies the two rules of §4.11 to doc's top-level
// fields against root's declared children, in deterministic field
// order for stable output.
func checkDocument(root *schema.Node, doc map[string]any) []string {
	if root == nil || root.Kind != schema.ObjectNode {
		return nil
	}
	var issues []string
	for _, name := range root.OrderedFieldNames() {
		field := root.Fields[name]
		raw, present := doc[name]
		val := document.FromAny(raw)
		missing := !present || val.Tag == types.Null

		if field.Required() && missing {
			issues = append(issues, fmt.Sprintf("missing required field: %s", name))
			continue
		}
		if missing {
			continue
		}
		if field.Kind == schema.Leaf && !field.Types.Has(val.Tag) {
			issues = append(issues, fmt.Sprintf("type mismatch for %s: expected %s, got %s", name, tagList(field.Types.Tags()), val.Tag))
		}
	}
	return issues
}

func tagList(tags []types.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return strings.Join(names, "|")
}

// documentKey renders doc's _id as a string when present, falling
// back to its 0-based sample index, mirroring validate.py's
// doc.get("_id", i).
func documentKey(doc map[string]any, index int) string {
	if id, ok := doc["_id"]; ok {
		return fmt.Sprintf("%v", id)
	}
	return fmt.Sprintf("%d", index)
}
