// Package sqlite implements storage.Adapter over a modernc.org/sqlite
// database/sql connection, the pure-Go driver the teacher's own
// cmd/ministore/main.go registers. Documents live in a single table
// with a JSON payload column and a monotonically increasing integer
// primary key (`seq`), the same "JSON documents behind a narrow
// storage adapter" shape as the teacher's own index.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage/rawdoc"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage/sqlbuilder"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/validator"
)

func newBuilder() *sqlbuilder.Builder { return sqlbuilder.New(sqlbuilder.PlaceholderQuestion) }

// Adapter is a sqlite-backed storage.Adapter. Each collection maps to
// its own table, created on first use.
type Adapter struct {
	Path string
	db   *sql.DB
}

// Open opens (creating if absent) the sqlite database at path.
func Open(ctx context.Context, path string) (*Adapter, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	} else {
		dsn += "&_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "open sqlite database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "ping sqlite database", err)
	}
	db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS mongoschema_validators (collection TEXT PRIMARY KEY, level TEXT NOT NULL, action TEXT NOT NULL, validator_json TEXT NOT NULL);"); err != nil {
		db.Close()
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "create metadata table", err)
	}
	return &Adapter{Path: path, db: db}, nil
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendSQLite }

func (a *Adapter) Close() error { return a.db.Close() }

// ensureTable creates collection's backing table on first use; Count,
// Sample, Iterate and Insert call it so callers never provision tables
// by hand. UpdateOne and SetValidator do not.
func (a *Adapter) ensureTable(ctx context.Context, collection string) error {
	name := tableName(collection)
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (seq INTEGER PRIMARY KEY AUTOINCREMENT, data TEXT NOT NULL);`, name))
	if err != nil {
		return mserrors.Wrap(mserrors.ErrAdapter, "ensure collection table", err)
	}
	return nil
}

func (a *Adapter) Count(ctx context.Context, collection string) (int64, error) {
	if err := a.ensureTable(ctx, collection); err != nil {
		return 0, err
	}
	var n int64
	row := a.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, tableName(collection)))
	if err := row.Scan(&n); err != nil {
		return 0, mserrors.Wrap(mserrors.ErrAdapter, "count", err)
	}
	return n, nil
}

func (a *Adapter) Sample(ctx context.Context, collection string, n int) ([]map[string]any, error) {
	if err := a.ensureTable(ctx, collection); err != nil {
		return nil, err
	}
	b := newBuilder()
	limit := b.Arg(n)
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`SELECT data FROM %s ORDER BY RANDOM() LIMIT %s`, tableName(collection), limit), b.Args()...)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "sample", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, mserrors.Wrap(mserrors.ErrAdapter, "scan sample row", err)
		}
		m, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (a *Adapter) Iterate(ctx context.Context, collection string, afterKey storage.Key) (storage.Cursor, error) {
	if err := a.ensureTable(ctx, collection); err != nil {
		return nil, err
	}
	after := int64(0)
	if afterKey != "" {
		n, err := strconv.ParseInt(string(afterKey), 10, 64)
		if err != nil {
			return nil, mserrors.SchemaError("resume_from", "resume key is not a valid sequence number").WithDocKey(string(afterKey))
		}
		after = n
	}
	b := newBuilder()
	afterArg := b.Arg(after)
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`SELECT seq, data FROM %s WHERE seq > %s ORDER BY seq ASC`, tableName(collection), afterArg), b.Args()...)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "iterate", err)
	}
	return &cursor{rows: rows}, nil
}

func (a *Adapter) UpdateOne(ctx context.Context, collection string, key storage.Key, mutation storage.Mutation) (storage.UpdateResult, error) {
	seq, err := strconv.ParseInt(string(key), 10, 64)
	if err != nil {
		return storage.UpdateResult{}, mserrors.SchemaError("key", "update key is not a valid sequence number").WithDocKey(string(key))
	}

	selectBuilder := newBuilder()
	seqArg := selectBuilder.Arg(seq)
	var data string
	row := a.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE seq = %s`, tableName(collection), seqArg), selectBuilder.Args()...)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return storage.UpdateResult{}, nil
		}
		return storage.UpdateResult{}, mserrors.Wrap(mserrors.ErrAdapter, "load document for update", err)
	}

	doc, err := decode(data)
	if err != nil {
		return storage.UpdateResult{}, err
	}
	for path, v := range mutation.Set {
		rawdoc.SetPath(doc, path, v)
	}
	for _, path := range mutation.Unset {
		rawdoc.DeletePath(doc, path)
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return storage.UpdateResult{}, mserrors.Wrap(mserrors.ErrAdapter, "encode updated document", err)
	}
	updateBuilder := newBuilder()
	dataArg := updateBuilder.Arg(string(encoded))
	whereArg := updateBuilder.Arg(seq)
	res, err := a.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET data = %s WHERE seq = %s`, tableName(collection), dataArg, whereArg), updateBuilder.Args()...)
	if err != nil {
		return storage.UpdateResult{}, mserrors.Wrap(mserrors.ErrAdapter, "update_one", err)
	}
	affected, _ := res.RowsAffected()
	return storage.UpdateResult{Matched: 1, Modified: int(affected)}, nil
}

// Insert appends doc to collection, assigning it the next sequence
// key. This is how a collection is populated in the first place —
// storage.Adapter itself only covers the read/migrate path spec.md
// scopes, so standing up data for inference or a migration dry run
// goes through this adapter-specific entry point instead.
func (a *Adapter) Insert(ctx context.Context, collection string, doc map[string]any) error {
	if err := a.ensureTable(ctx, collection); err != nil {
		return err
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return mserrors.Wrap(mserrors.ErrAdapter, "encode document", err)
	}
	b := newBuilder()
	dataArg := b.Arg(string(encoded))
	_, err = a.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s(data) VALUES(%s)`, tableName(collection), dataArg), b.Args()...)
	if err != nil {
		return mserrors.Wrap(mserrors.ErrAdapter, "insert", err)
	}
	return nil
}

// SetValidator has no native SQLite counterpart, so the validator
// document is persisted to a metadata row and nothing else; no CHECK
// constraint is compiled or installed, whatever the level or action
// (spec.md §4.8's set_validator, adapted per SPEC_FULL.md §4.8).
func (a *Adapter) SetValidator(ctx context.Context, collection string, doc validator.Document, level validator.Level, action validator.Action) error {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return mserrors.Wrap(mserrors.ErrAdapter, "encode validator document", err)
	}
	b := newBuilder()
	collArg := b.Arg(collection)
	levelArg := b.Arg(string(level))
	actionArg := b.Arg(string(action))
	jsonArg := b.Arg(string(encoded))
	_, err = a.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO mongoschema_validators(collection, level, action, validator_json)
		VALUES(%s, %s, %s, %s)
		ON CONFLICT(collection) DO UPDATE SET level=excluded.level, action=excluded.action, validator_json=excluded.validator_json`,
		collArg, levelArg, actionArg, jsonArg), b.Args()...)
	if err != nil {
		return mserrors.Wrap(mserrors.ErrAdapter, "persist validator", err)
	}
	return nil
}

func decode(data string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "decode document json", err)
	}
	return m, nil
}

func tableName(collection string) string {
	return "coll_" + sanitize(collection)
}

// sanitize keeps collection-derived table names to the identifier
// characters SQLite accepts unquoted, since collection names flow in
// from caller input rather than from a fixed schema.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

type cursor struct {
	rows *sql.Rows
	item storage.Keyed
	err  error
}

func (c *cursor) Next(ctx context.Context) bool {
	if !c.rows.Next() {
		return false
	}
	var seq int64
	var data string
	if err := c.rows.Scan(&seq, &data); err != nil {
		c.err = mserrors.Wrap(mserrors.ErrCursor, "scan iterate row", err)
		return false
	}
	m, err := decode(data)
	if err != nil {
		c.err = err
		return false
	}
	c.item = storage.Keyed{Key: storage.Key(strconv.FormatInt(seq, 10)), Value: m}
	return true
}

func (c *cursor) Item() storage.Keyed { return c.item }
func (c *cursor) Err() error          { return c.err }
func (c *cursor) Close() error        { return c.rows.Close() }
