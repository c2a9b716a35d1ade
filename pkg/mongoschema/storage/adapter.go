// Package storage defines the narrow database adapter interface of
// spec §4.8: count, sample, iterate, update_one, set_validator. It is
// the only source of non-determinism and I/O in the system; every
// other component is pure given an adapter's outputs.
//
// Adapters speak in raw JSON-decoded values (map[string]any and JSON
// scalar types) — the same shape document.FromAny expects — rather
// than the tagged document.Value model. Inference, the executor, and
// every other component perform the FromAny decode themselves; the
// adapter boundary stays a thin, driver-agnostic transport.
package storage

import (
	"context"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/validator"
)

// Backend names a concrete adapter implementation.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendFake     Backend = "fake"
)

// Key is a collection's primary document identifier in its string
// form (spec §6.5's resume marker).
type Key string

// Keyed pairs a raw decoded document with the key iterate must report
// in key-order (spec §4.8 "iterate(collection, after_key?) -> stream
// of (key, document)").
type Keyed struct {
	Key   Key
	Value map[string]any
}

// Mutation is the set of field-level writes update_one must apply
// atomically to a single document. Set/Unset are keyed by dotted
// field path (schema.Path.String()); the executor is the only caller
// that constructs one.
type Mutation struct {
	Set   map[string]any
	Unset []string
}

// UpdateResult reports what update_one actually changed, mirroring
// the database engine's own matched/modified counters.
type UpdateResult struct {
	Matched  int
	Modified int
}

// Adapter is the §4.8 interface. Every method is context-bound so
// the caller can enforce the operation timeout spec §5 requires.
// Count/Sample alone satisfy infer.Sampler, letting every concrete
// adapter feed the inference engine directly.
type Adapter interface {
	Backend() Backend

	// Count reports the total document count in collection.
	Count(ctx context.Context, collection string) (int64, error)

	// Sample draws up to n documents from collection with no
	// ordering guarantee beyond uniformity.
	Sample(ctx context.Context, collection string, n int) ([]map[string]any, error)

	// Iterate streams (key, document) pairs in ascending key order,
	// starting strictly after afterKey when afterKey is non-empty.
	// The returned Cursor must be closed by the caller.
	Iterate(ctx context.Context, collection string, afterKey Key) (Cursor, error)

	// UpdateOne applies mutation to the document identified by key
	// and reports what changed.
	UpdateOne(ctx context.Context, collection string, key Key, mutation Mutation) (UpdateResult, error)

	// SetValidator installs doc as the collection's native validator
	// at the given enforcement level and violation action.
	SetValidator(ctx context.Context, collection string, doc validator.Document, level validator.Level, action validator.Action) error

	Close() error
}

// Cursor is a forward, key-ordered stream of documents. Next returns
// false once exhausted or on error; callers must check Err after a
// false Next.
type Cursor interface {
	Next(ctx context.Context) bool
	Item() Keyed
	Err() error
	Close() error
}
