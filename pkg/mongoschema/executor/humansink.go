package executor

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// StdoutSink renders Progress records to an io.Writer (os.Stdout by
// default) in human-readable form — comma-grouped counts and an
// elapsed-time suffix — for interactive migration runs where the raw
// int64 fields of Progress are harder to read at a glance.
type StdoutSink struct {
	Writer  io.Writer
	started time.Time
}

// NewStdoutSink returns a StdoutSink writing to os.Stdout.
func NewStdoutSink() *StdoutSink {
	return &StdoutSink{Writer: os.Stdout, started: time.Time{}}
}

// Report writes one line per batch: processed/matched/modified/skipped
// counts, comma-grouped, plus how long ago this sink's first report
// was written.
func (s *StdoutSink) Report(p Progress) {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	if s.Writer == nil {
		s.Writer = os.Stdout
	}
	fmt.Fprintf(s.Writer, "processed %s, matched %s, modified %s, skipped %s (started %s)\n",
		humanize.Comma(p.Processed),
		humanize.Comma(p.Matched),
		humanize.Comma(p.Modified),
		humanize.Comma(p.Skipped),
		humanize.Time(s.started),
	)
}
