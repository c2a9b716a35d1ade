// Package runner fans inference or drift checks out across multiple
// collections (SPEC_FULL.md §4.9), using golang.org/x/sync/errgroup
// with a bounded concurrency limit. Each task gets its own schema
// lookup and adapter call; no task shares mutable state with another,
// satisfying spec.md §5's "no component shares mutable state across
// tasks; each collection's state is isolated."
package runner

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/drift"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/infer"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
)

// DefaultConcurrency bounds how many collections run inference or
// drift detection at once when the caller does not override it.
const DefaultConcurrency = 4

// InferResult pairs one collection with its inference outcome.
type InferResult struct {
	Collection string
	Result     *infer.Result
	Err        error
}

// RunInference runs inference.Run for every named collection
// concurrently (bounded by concurrency, or DefaultConcurrency if <=0),
// returning one InferResult per collection in the input order.
func RunInference(ctx context.Context, s infer.Sampler, collections []string, opts infer.Options, concurrency int) []InferResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]InferResult, len(collections))
	var mu sync.Mutex // guards nothing shared but the slice index write below

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, name := range collections {
		i, name := i, name
		g.Go(func() error {
			res, err := infer.Run(gctx, s, name, opts)
			mu.Lock()
			results[i] = InferResult{Collection: name, Result: res, Err: err}
			mu.Unlock()
			return nil // per-collection errors are reported, not fatal to the fan-out
		})
	}
	_ = g.Wait()
	return results
}

// DriftResult pairs one collection with its drift outcome.
type DriftResult struct {
	Collection string
	Result     *drift.Result
	Err        error
}

// RunDrift runs drift.Detect for every named collection concurrently,
// looking up each collection's expected schema via expected.
func RunDrift(ctx context.Context, s infer.Sampler, collections []string, expected map[string]*schema.Schema, opts infer.Options, concurrency int) []DriftResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]DriftResult, len(collections))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, name := range collections {
		i, name := i, name
		g.Go(func() error {
			exp, ok := expected[name]
			if !ok {
				mu.Lock()
				results[i] = DriftResult{Collection: name, Err: mserrors.New(mserrors.ErrNotFound, "no expected schema registered for collection").WithPath(name)}
				mu.Unlock()
				return nil
			}
			res, err := drift.Detect(gctx, s, name, exp, opts)
			mu.Lock()
			results[i] = DriftResult{Collection: name, Result: res, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
