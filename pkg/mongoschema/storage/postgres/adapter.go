// Package postgres implements storage.Adapter over a jackc/pgx/v5
// connection pool. Documents live in a table with a jsonb payload
// column and an identity `seq` primary key, the same JSON-document
// shape the sqlite adapter uses, letting set_validator compile the
// projected validator into native CHECK constraints via jsonb_typeof
// assertions instead of SQLite's metadata-only fallback.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage/rawdoc"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/storage/sqlbuilder"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/validator"
)

func newBuilder() *sqlbuilder.Builder { return sqlbuilder.New(sqlbuilder.PlaceholderDollar) }

// Adapter is a postgres-backed storage.Adapter.
type Adapter struct {
	pool *pgxpool.Pool
}

// Open connects to the database identified by connString.
func Open(ctx context.Context, connString string) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "open postgres pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "ping postgres pool", err)
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS mongoschema_validators (
		collection TEXT PRIMARY KEY,
		level TEXT NOT NULL,
		action TEXT NOT NULL,
		validator_json JSONB NOT NULL
	)`); err != nil {
		pool.Close()
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "create metadata table", err)
	}
	return &Adapter{pool: pool}, nil
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

func (a *Adapter) ensureTable(ctx context.Context, collection string) error {
	_, err := a.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (seq BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY, data JSONB NOT NULL)`, tableName(collection)))
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
	if err := a.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, tableName(collection))).Scan(&n); err != nil {
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
	rows, err := a.pool.Query(ctx, fmt.Sprintf(`SELECT data FROM %s ORDER BY random() LIMIT %s`, tableName(collection), limit), b.Args()...)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "sample", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, mserrors.Wrap(mserrors.ErrAdapter, "scan sample row", err)
		}
		m, err := decode(raw)
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
	rows, err := a.pool.Query(ctx, fmt.Sprintf(`SELECT seq, data FROM %s WHERE seq > %s ORDER BY seq ASC`, tableName(collection), afterArg), b.Args()...)
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
	var raw []byte
	if err := a.pool.QueryRow(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE seq = %s`, tableName(collection), seqArg), selectBuilder.Args()...).Scan(&raw); err != nil {
		if err == pgx.ErrNoRows {
			return storage.UpdateResult{}, nil
		}
		return storage.UpdateResult{}, mserrors.Wrap(mserrors.ErrAdapter, "load document for update", err)
	}

	doc, err := decode(raw)
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
	tag, err := a.pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET data = %s WHERE seq = %s`, tableName(collection), dataArg, whereArg), updateBuilder.Args()...)
	if err != nil {
		return storage.UpdateResult{}, mserrors.Wrap(mserrors.ErrAdapter, "update_one", err)
	}
	return storage.UpdateResult{Matched: 1, Modified: int(tag.RowsAffected())}, nil
}

// Insert appends doc to collection, assigning it the next identity
// value. See sqlite.Adapter.Insert for why this lives outside
// storage.Adapter.
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
	_, err = a.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s(data) VALUES(%s)`, tableName(collection), dataArg), b.Args()...)
	if err != nil {
		return mserrors.Wrap(mserrors.ErrAdapter, "insert", err)
	}
	return nil
}

// SetValidator maps the projected validator into a native CHECK
// constraint built from jsonb_typeof assertions over the required and
// typed fields, applied via ALTER TABLE, per SPEC_FULL.md §4.8. The
// metadata row is always written; level off installs no constraint,
// while moderate and strict both install it. A failure to install the
// constraint is returned only when action is error.
func (a *Adapter) SetValidator(ctx context.Context, collection string, doc validator.Document, level validator.Level, action validator.Action) error {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return mserrors.Wrap(mserrors.ErrAdapter, "encode validator document", err)
	}
	upsertBuilder := newBuilder()
	collArg := upsertBuilder.Arg(collection)
	levelArg := upsertBuilder.Arg(string(level))
	actionArg := upsertBuilder.Arg(string(action))
	jsonArg := upsertBuilder.Arg(encoded)
	_, err = a.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO mongoschema_validators(collection, level, action, validator_json)
		VALUES(%s, %s, %s, %s)
		ON CONFLICT(collection) DO UPDATE SET level=excluded.level, action=excluded.action, validator_json=excluded.validator_json`,
		collArg, levelArg, actionArg, jsonArg), upsertBuilder.Args()...)
	if err != nil {
		return mserrors.Wrap(mserrors.ErrAdapter, "persist validator", err)
	}

	if level == validator.LevelOff {
		return nil
	}
	check := compileCheckConstraint(doc)
	if check == "" {
		return nil
	}
	name := fmt.Sprintf("mongoschema_chk_%s", tableNameSuffix(collection))
	_, _ = a.pool.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s`, tableName(collection), name))
	_, err = a.pool.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)`, tableName(collection), name, check))
	if err != nil && action == validator.ActionError {
		return mserrors.Wrap(mserrors.ErrAdapter, "install validator constraint", err)
	}
	return nil
}

// compileCheckConstraint builds a conjunction of jsonb_typeof
// assertions over doc's typed top-level fields: a required field must
// have the listed type, an optional one only when it is present. An
// object or array field is checked only for being an object or array;
// the constraint does not look inside nested fields or items.
func compileCheckConstraint(doc validator.Document) string {
	var preds []string
	for name, child := range doc.Properties {
		isRequired := false
		for _, r := range doc.Required {
			if r == name {
				isRequired = true
				break
			}
		}
		pred := typeofPredicate(name, child)
		if pred == "" {
			continue
		}
		if !isRequired {
			pred = fmt.Sprintf("(data->>%s IS NULL OR %s)", quoteLiteral(name), pred)
		}
		preds = append(preds, pred)
	}
	return strings.Join(preds, " AND ")
}

func typeofPredicate(name string, child validator.Document) string {
	names := bsonTypeNames(child.BsonType)
	var jsonbTypes []string
	for _, n := range names {
		if n == string(types.Null) {
			continue
		}
		if jt, ok := jsonbTypeFor(n); ok {
			jsonbTypes = append(jsonbTypes, jt)
		}
	}
	if len(jsonbTypes) == 0 {
		return ""
	}
	var clauses []string
	for _, jt := range jsonbTypes {
		clauses = append(clauses, fmt.Sprintf("jsonb_typeof(data->%s) = %s", quoteLiteral(name), quoteLiteral(jt)))
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

func bsonTypeNames(bt any) []string {
	switch v := bt.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	default:
		return nil
	}
}

func jsonbTypeFor(bsonType string) (string, bool) {
	switch types.Tag(bsonType) {
	case types.String, types.Date, types.ObjectID, types.Binary, types.Regex, types.JavaScript:
		return "string", true
	case types.Int32, types.Int64, types.Double, types.Decimal, types.Timestamp:
		return "number", true
	case types.Bool:
		return "boolean", true
	case types.Array:
		return "array", true
	case types.Object:
		return "object", true
	default:
		return "", false
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func decode(raw []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, mserrors.Wrap(mserrors.ErrAdapter, "decode document json", err)
	}
	return m, nil
}

func tableName(collection string) string {
	return "coll_" + tableNameSuffix(collection)
}

func tableNameSuffix(collection string) string {
	var b strings.Builder
	for _, r := range collection {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

type cursor struct {
	rows pgx.Rows
	item storage.Keyed
	err  error
}

func (c *cursor) Next(ctx context.Context) bool {
	if !c.rows.Next() {
		return false
	}
	var seq int64
	var raw []byte
	if err := c.rows.Scan(&seq, &raw); err != nil {
		c.err = mserrors.Wrap(mserrors.ErrCursor, "scan iterate row", err)
		return false
	}
	m, err := decode(raw)
	if err != nil {
		c.err = err
		return false
	}
	c.item = storage.Keyed{Key: storage.Key(strconv.FormatInt(seq, 10)), Value: m}
	return true
}

func (c *cursor) Item() storage.Keyed { return c.item }
func (c *cursor) Err() error          { return c.err }
func (c *cursor) Close() error        { c.rows.Close(); return nil }
