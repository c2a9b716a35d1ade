// Package executor implements the migration executor of spec §4.7: it
// streams a collection through a plan in rate-limited batches, with
// dry-run, resume-from-key, and per-document failure isolation. Run
// keeps the loop's counters in the Result it returns; there is no
// separate state object. The per-document decisions (MutationSet,
// buildMutation) depend only on the plan and the document, and the
// loop is exercised against the in-memory fake adapter rather than a
// live database.
package executor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/document"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/plan"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/validator"
)

// SkipReason names why a document's mutation set could not be
// applied, for the §7 *document-level skip* error kind.
type SkipReason string

const (
	SkipConvertFailed   SkipReason = "convert_failed"
	SkipUnwrapAmbiguous SkipReason = "unwrap_ambiguous"
)

// Progress is the record spec §4.7 requires after every batch.
type Progress struct {
	Processed int64
	Matched   int64
	Modified  int64
	Skipped   int64
	LastKey   storage.Key
}

// Sink receives progress records; the CLI is one consumer, but the
// core never depends on it directly (spec §9 "pluggability").
type Sink interface {
	Report(Progress)
}

// DryRunRecord is one entry of a dry-run's record-without-write
// output (spec §4.7 step 3).
type DryRunRecord struct {
	Key         storage.Key
	OpCount     int
	SkipReasons []SkipReason
}

// Options configures one executor run (spec §4.7's input options).
type Options struct {
	DryRun          bool
	BatchSize       int
	RateLimit       time.Duration
	ResumeFrom      storage.Key
	ApplyValidator  bool
	ValidatorLevel  validator.Level
	ValidatorAction validator.Action
	Logger          zerolog.Logger
	Sink            Sink
}

// Result is what Run returns once the stream is exhausted, canceled,
// or a batch-level adapter error aborts the run.
type Result struct {
	Progress      Progress
	DryRunRecords []DryRunRecord
	FailureCounts map[SkipReason]int64
	Aborted       bool
	AbortErr      error
}

// Run executes plan p against collection through adapter a, applying
// target's validator projection on success when opts.ApplyValidator is
// set.
func Run(ctx context.Context, a storage.Adapter, collection string, p *plan.Plan, target *schema.Schema, opts Options) (*Result, error) {
	if !opts.DryRun {
		if err := p.CheckInputs(); err != nil {
			return nil, err
		}
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	logger := opts.Logger

	cur, err := a.Iterate(ctx, collection, opts.ResumeFrom)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "open iterate cursor", err)
	}
	defer cur.Close()

	res := &Result{FailureCounts: map[SkipReason]int64{}}
	batch := make([]storage.Keyed, 0, opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		for _, item := range batch {
			doc := document.FromAny(item.Value).Object
			ops := MutationSet(p, doc)
			res.Progress.Processed++
			res.Progress.LastKey = item.Key

			if len(ops) == 0 {
				res.Progress.Matched++
				continue
			}

			if opts.DryRun {
				res.DryRunRecords = append(res.DryRunRecords, DryRunRecord{Key: item.Key, OpCount: len(ops)})
				res.Progress.Matched++
				continue
			}

			mutation, reason, _ := buildMutation(ops, doc)
			if reason != "" {
				res.Progress.Skipped++
				res.FailureCounts[reason]++
				logger.Warn().Str("key", string(item.Key)).Str("reason", string(reason)).Msg("document skipped")
				continue
			}

			ur, err := a.UpdateOne(ctx, collection, item.Key, mutation)
			if err != nil {
				return mserrors.Wrap(mserrors.ErrAdapter, "update_one", err).WithDocKey(string(item.Key))
			}
			res.Progress.Matched += int64(ur.Matched)
			res.Progress.Modified += int64(ur.Modified)
		}
		batch = batch[:0]
		if opts.Sink != nil {
			opts.Sink.Report(res.Progress)
		}
		if opts.RateLimit > 0 {
			time.Sleep(opts.RateLimit)
		}
		return nil
	}

	for cur.Next(ctx) {
		batch = append(batch, cur.Item())
		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				res.Aborted = true
				res.AbortErr = err
				return res, err
			}
		}
		select {
		case <-ctx.Done():
			if err := flush(); err != nil {
				res.Aborted = true
				res.AbortErr = err
				return res, err
			}
			res.Aborted = true
			res.AbortErr = ctx.Err()
			return res, ctx.Err()
		default:
		}
	}
	if err := flush(); err != nil {
		res.Aborted = true
		res.AbortErr = err
		return res, err
	}
	if err := cur.Err(); err != nil {
		return res, mserrors.Wrap(mserrors.ErrAdapter, "iterate", err)
	}

	if !opts.DryRun && opts.ApplyValidator && target != nil {
		doc := validator.Project(target)
		if err := a.SetValidator(ctx, collection, doc, opts.ValidatorLevel, opts.ValidatorAction); err != nil {
			return res, mserrors.Wrap(mserrors.ErrAdapter, "set_validator", err)
		}
	}
	return res, nil
}

// MutationSet computes the subset of p's operations that actually
// change doc, per spec §4.7 step 2 ("add_field only fires if the path
// is absent; convert only fires if the current type is in the
// operation's from side").
func MutationSet(p *plan.Plan, doc *document.OrderedFields) []plan.Operation {
	var out []plan.Operation
	for _, op := range p.Operations {
		if opFires(op, doc) {
			out = append(out, op)
		}
	}
	return out
}

func opFires(op plan.Operation, doc *document.OrderedFields) bool {
	segs := []string(op.Path)
	v, present := document.GetPath(doc, segs)
	switch op.Kind {
	case plan.AddField:
		return !present
	case plan.RemoveField:
		return present
	case plan.WrapArray:
		return present && v.Tag != types.Array
	case plan.UnwrapArray:
		return present && v.Tag == types.Array
	case plan.ConvertItems:
		if !present || v.Tag != types.Array {
			return false
		}
		for _, item := range v.Array {
			if !op.ItemType.Has(item.Tag) {
				return true
			}
		}
		return false
	case plan.Convert:
		return present && !op.Type.Has(v.Tag)
	default:
		return false
	}
}
