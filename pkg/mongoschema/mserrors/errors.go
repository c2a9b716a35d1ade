// Package mserrors defines the error kinds shared across the schema
// inference, diff, drift, planning, and execution components.
package mserrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way spec §7 enumerates them.
type Kind string

const (
	ErrConfig      Kind = "config"        // missing URI or database name
	ErrAdapter     Kind = "adapter"       // transport/auth/timeout from the database adapter
	ErrSchema      Kind = "schema"        // invalid declarative schema file
	ErrPlanInput   Kind = "plan_input"    // non-nullable add_field with no default
	ErrDocSkip     Kind = "document_skip" // per-document conversion/unwrap failure
	ErrCursor      Kind = "cursor"
	ErrNotFound    Kind = "not_found"
	ErrUnsupported Kind = "unsupported"
)

// Error carries kind, the offending schema path, and the document key,
// per spec §7: "Surfaced failures always carry: kind, path (where
// applicable), and the document key (where applicable)."
type Error struct {
	Kind    Kind
	Message string
	Path    string
	DocKey  string
	Cause   error
}

func (e *Error) Error() string {
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Path != "" {
		base = fmt.Sprintf("%s (path=%s)", base, e.Path)
	}
	if e.DocKey != "" {
		base = fmt.Sprintf("%s (key=%s)", base, e.DocKey)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a bare error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WithPath returns a copy of e with Path set.
func (e *Error) WithPath(path string) *Error {
	n := *e
	n.Path = path
	return &n
}

// WithDocKey returns a copy of e with DocKey set.
func (e *Error) WithDocKey(key string) *Error {
	n := *e
	n.DocKey = key
	return &n
}

// SchemaError builds an ErrSchema error naming the offending path.
func SchemaError(path, msg string) *Error {
	return &Error{Kind: ErrSchema, Message: msg, Path: path}
}

// PlanInputError builds an ErrPlanInput error for a field that needs an
// operator-supplied default before the plan can execute.
func PlanInputError(path string) *Error {
	return &Error{Kind: ErrPlanInput, Message: "non-nullable add_field requires an explicit default", Path: path}
}

// IsKind reports whether err (or any error it wraps) has the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
