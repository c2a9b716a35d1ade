// Package sqlbuilder provides the question-mark vs dollar-numbered
// placeholder abstraction the sqlite and postgres adapters share,
// adapted from the teacher's ministore/storage/sqlbuilder package.
package sqlbuilder

import "strconv"

// PlaceholderStyle selects a driver's parameter marker convention.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// Builder accumulates query arguments and renders the placeholder
// each Arg call should be substituted with.
type Builder struct {
	Style PlaceholderStyle
	args  []any
}

// New returns an empty builder for the given placeholder style.
func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style, args: make([]any, 0)}
}

// Arg records v and returns the placeholder token for it.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	if b.Style == PlaceholderDollar {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

// Args returns the arguments recorded so far, in Arg call order.
func (b *Builder) Args() []any { return b.args }

// Len reports how many arguments have been recorded.
func (b *Builder) Len() int { return len(b.args) }
