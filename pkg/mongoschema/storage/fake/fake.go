// Package fake implements an in-memory storage.Adapter used by the
// module's own property-based tests (spec §8): it lets inference,
// diff, drift, planning, and the executor's pure mutation logic be
// exercised without a live database, per spec §9's "drive it from a
// small state object to make resumability testable without a live
// database."
package fake

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage/rawdoc"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/validator"
)

type record struct {
	key storage.Key
	doc map[string]any
}

// Adapter is a goroutine-safe in-memory collection store keyed by an
// insertion-ordered integer sequence, mirroring the seq-keyed
// documents table the sqlite/postgres adapters use.
type Adapter struct {
	mu          sync.Mutex
	collections map[string][]*record
	validators  map[string]validator.Document
}

// New returns an empty fake adapter.
func New() *Adapter {
	return &Adapter{collections: map[string][]*record{}, validators: map[string]validator.Document{}}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendFake }

// Seed inserts docs into collection in order, assigning sequential
// keys "1", "2", ... Seed is test-only setup, not part of the
// storage.Adapter interface.
func (a *Adapter) Seed(collection string, docs ...map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	recs := a.collections[collection]
	for _, d := range docs {
		recs = append(recs, &record{key: storage.Key(strconv.Itoa(len(recs) + 1)), doc: d})
	}
	a.collections[collection] = recs
}

// Documents returns the current documents in collection in key order,
// for assertions in tests.
func (a *Adapter) Documents(collection string) []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	recs := a.collections[collection]
	out := make([]map[string]any, len(recs))
	for i, r := range recs {
		out[i] = r.doc
	}
	return out
}

func (a *Adapter) Count(ctx context.Context, collection string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int64(len(a.collections[collection])), nil
}

func (a *Adapter) Sample(ctx context.Context, collection string, n int) ([]map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	recs := a.collections[collection]
	if n > len(recs) {
		n = len(recs)
	}
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		out[i] = recs[i].doc
	}
	return out, nil
}

func (a *Adapter) Iterate(ctx context.Context, collection string, afterKey storage.Key) (storage.Cursor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	recs := append([]*record{}, a.collections[collection]...)
	sort.Slice(recs, func(i, j int) bool { return keyLess(recs[i].key, recs[j].key) })

	start := 0
	if afterKey != "" {
		for i, r := range recs {
			if keyLess(afterKey, r.key) {
				start = i
				break
			}
			start = i + 1
		}
	}
	return &cursor{recs: recs[start:], pos: -1}, nil
}

func (a *Adapter) UpdateOne(ctx context.Context, collection string, key storage.Key, mutation storage.Mutation) (storage.UpdateResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.collections[collection] {
		if r.key != key {
			continue
		}
		modified := false
		for path, v := range mutation.Set {
			rawdoc.SetPath(r.doc, path, v)
			modified = true
		}
		for _, path := range mutation.Unset {
			rawdoc.DeletePath(r.doc, path)
			modified = true
		}
		res := storage.UpdateResult{Matched: 1}
		if modified {
			res.Modified = 1
		}
		return res, nil
	}
	return storage.UpdateResult{}, nil
}

func (a *Adapter) SetValidator(ctx context.Context, collection string, doc validator.Document, level validator.Level, action validator.Action) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.validators[collection] = doc
	return nil
}

// Validator returns the last validator document installed on
// collection, for test assertions.
func (a *Adapter) Validator(collection string) (validator.Document, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.validators[collection]
	return d, ok
}

func (a *Adapter) Close() error { return nil }

func keyLess(a, b storage.Key) bool {
	an, aerr := strconv.ParseInt(string(a), 10, 64)
	bn, berr := strconv.ParseInt(string(b), 10, 64)
	if aerr == nil && berr == nil {
		return an < bn
	}
	return string(a) < string(b)
}

type cursor struct {
	recs []*record
	pos  int
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.pos+1 >= len(c.recs) {
		return false
	}
	c.pos++
	return true
}

func (c *cursor) Item() storage.Keyed {
	r := c.recs[c.pos]
	return storage.Keyed{Key: r.key, Value: r.doc}
}

func (c *cursor) Err() error   { return nil }
func (c *cursor) Close() error { return nil }
