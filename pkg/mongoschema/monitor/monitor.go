// Package monitor runs one drift check per watched collection on a
// fixed interval (SPEC_FULL.md §4.10), forwarding any has_drift result
// to a Sink. This is the "drift monitoring runs one monitor task per
// collection on a fixed-interval timer" parallelism spec.md §5 allows.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/drift"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/infer"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
)

// Sink receives drift results as they are detected; the webhook
// payload of spec.md §6.6 is drift.Result.ToJSON() posted verbatim by
// whatever Sink implementation the caller provides — delivery itself
// is out of scope here.
type Sink interface {
	Notify(collection string, result *drift.Result)
}

// Watch describes one collection's monitoring configuration.
type Watch struct {
	Collection string
	Expected   *schema.Schema
	Interval   time.Duration
}

// Monitor runs one goroutine per Watch, polling drift.Detect on each
// tick until ctx is canceled. Cancellation is honored at tick
// boundaries only, per spec.md §5.
type Monitor struct {
	Sampler infer.Sampler
	Sink    Sink
	Options infer.Options
	Logger  zerolog.Logger
}

// Run starts one ticker goroutine per watch and blocks until ctx is
// done or every watch's goroutine exits.
func (m *Monitor) Run(ctx context.Context, watches []Watch) {
	var wg sync.WaitGroup
	for _, w := range watches {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.watchLoop(ctx, w)
		}()
	}
	wg.Wait()
}

func (m *Monitor) watchLoop(ctx context.Context, w Watch) {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := drift.Detect(ctx, m.Sampler, w.Collection, w.Expected, m.Options)
			if err != nil {
				m.Logger.Warn().Str("collection", w.Collection).Err(err).Msg("drift check failed")
				continue
			}
			if result.HasDrift && m.Sink != nil {
				m.Sink.Notify(w.Collection, result)
			}
		}
	}
}
