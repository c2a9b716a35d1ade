// Package logging sets up the structured logger shared across
// commands, grounded on the surrealdb example pack's pkg/logger: a
// small builder around zerolog.New with a timestamp field, plus a Nop
// helper for zerolog's silent logger. Components take a zerolog.Logger
// value in their options, not a pointer.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Options configures the process-wide logger.
type Options struct {
	Writer io.Writer // defaults to os.Stderr
	Level  zerolog.Level
	Pretty bool
}

// New builds a zerolog.Logger from opts. A zero Options value produces
// a plain JSON logger on stderr at info level.
func New(opts Options) zerolog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	level := opts.Level
	if level == zerolog.DebugLevel {
		// the zero value of Options.Level is indistinguishable from an
		// explicit DebugLevel request; treat both as "unset" and fall
		// back to info, matching the doc comment above.
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Nop returns the silent logger every core component defaults to
// when the caller passes no logger at all.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
