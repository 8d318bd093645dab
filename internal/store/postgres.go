package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres keeps every collection in one JSONB table keyed by (collection, id).
// Ordering compares the text form of the field under the C collation, which is correct
// for the fixed-width timestamps the services order by.
type Postgres struct {
	db *sql.DB
}

var _ Store = (*Postgres)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection  TEXT NOT NULL,
	id          TEXT NOT NULL,
	data        JSONB NOT NULL DEFAULT '{}'::jsonb,
	seq         BIGSERIAL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection_seq ON documents (collection, seq);
CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops);
`

// NewPostgres opens a pgx-backed connection pool and ensures the schema exists.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Create(ctx context.Context, collection string, fields Fields) (Document, error) {
	return p.CreateWithID(ctx, collection, uuid.NewString(), fields)
}

func (p *Postgres) CreateWithID(ctx context.Context, collection, id string, fields Fields) (Document, error) {
	raw, err := marshalFields(fields)
	if err != nil {
		return Document{}, err
	}
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO NOTHING
		RETURNING data
	`, collection, id, raw)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrAlreadyExists
		}
		return Document{}, fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return decodeRow(id, data)
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeRow(id, data)
}

func (p *Postgres) List(ctx context.Context, collection string, q Query) (Page, error) {
	var cur *cursorPos
	if q.Cursor != "" {
		var sortVal sql.NullString
		var seq int64
		err := p.db.QueryRowContext(ctx, `
			SELECT data ->> $3::text, seq FROM documents WHERE collection = $1 AND id = $2
		`, collection, q.Cursor, q.OrderBy).Scan(&sortVal, &seq)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Page{}, ErrInvalidCursor
			}
			return Page{}, fmt.Errorf("resolve cursor: %w", err)
		}
		cur = &cursorPos{sortVal: sortVal.String, seq: seq}
	}

	query, args, err := listQuery(collection, q, cur)
	if err != nil {
		return Page{}, err
	}
	limit := normalizeLimit(q.Limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var page Page
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return Page{}, err
		}
		doc, err := decodeRow(id, data)
		if err != nil {
			return Page{}, err
		}
		page.Documents = append(page.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	if len(page.Documents) > limit {
		page.Documents = page.Documents[:limit]
		page.NextCursor = page.Documents[limit-1].ID
	}
	return page, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, patch Fields) (Document, error) {
	raw, err := marshalFields(patch)
	if err != nil {
		return Document{}, err
	}
	var data []byte
	err = p.db.QueryRowContext(ctx, `
		UPDATE documents SET data = data || $3::jsonb
		WHERE collection = $1 AND id = $2
		RETURNING data
	`, collection, id, raw).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return decodeRow(id, data)
}

// Mutate locks the row for the duration of fn.
func (p *Postgres) Mutate(ctx context.Context, collection, id string, fn MutateFunc) (Document, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, fmt.Errorf("begin mutate: %w", err)
	}
	defer tx.Rollback()

	var data []byte
	err = tx.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE
	`, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("lock %s/%s: %w", collection, id, err)
	}
	current, err := decodeRow(id, data)
	if err != nil {
		return Document{}, err
	}
	patch, err := fn(current)
	if err != nil {
		return Document{}, err
	}
	raw, err := marshalFields(patch)
	if err != nil {
		return Document{}, err
	}
	err = tx.QueryRowContext(ctx, `
		UPDATE documents SET data = data || $3::jsonb
		WHERE collection = $1 AND id = $2
		RETURNING data
	`, collection, id, raw).Scan(&data)
	if err != nil {
		return Document{}, fmt.Errorf("mutate %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("commit mutate: %w", err)
	}
	return decodeRow(id, data)
}

// Increment relies on the single-statement row lock. Intermediate objects on path must exist.
func (p *Postgres) Increment(ctx context.Context, collection, id string, path []string, delta int64) (Document, error) {
	if len(path) == 0 {
		return Document{}, fmt.Errorf("increment: empty field path")
	}
	var data []byte
	err := p.db.QueryRowContext(ctx, `
		UPDATE documents
		SET data = jsonb_set(data, $3::text[], to_jsonb(COALESCE((data #>> $3::text[])::numeric, 0) + $4), true)
		WHERE collection = $1 AND id = $2
		RETURNING data
	`, collection, id, path, delta).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("increment %s/%s: %w", collection, id, err)
	}
	return decodeRow(id, data)
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the underlying connection.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// cursorPos locates the cursor document in the listing order.
type cursorPos struct {
	sortVal string
	seq     int64
}

// listQuery builds the SELECT for q. Rows after cur sort strictly after it, with seq breaking ties.
// One row beyond the limit is requested to detect a further page.
func listQuery(collection string, q Query, cur *cursorPos) (string, []any, error) {
	args := []any{collection}
	clauses := []string{"collection = $1"}

	for _, f := range q.Filters {
		clause, err := filterClause(f, &args)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
	}

	var orderExpr string
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		orderExpr = `COALESCE(data ->> $` + itoa(len(args)) + `::text, '') COLLATE "C"`
	}

	if cur != nil {
		cmp := ">"
		if q.Descending {
			cmp = "<"
		}
		if orderExpr == "" {
			args = append(args, cur.seq)
			clauses = append(clauses, "seq > $"+itoa(len(args)))
		} else {
			args = append(args, cur.sortVal, cur.seq)
			v, s := "$"+itoa(len(args)-1), "$"+itoa(len(args))
			clauses = append(clauses, fmt.Sprintf("(%s %s %s OR (%s = %s AND seq %s %s))",
				orderExpr, cmp, v, orderExpr, v, cmp, s))
		}
	}

	query := `SELECT id, data FROM documents WHERE ` + strings.Join(clauses, " AND ")
	switch {
	case orderExpr != "" && q.Descending:
		query += " ORDER BY " + orderExpr + " DESC, seq DESC"
	case orderExpr != "":
		query += " ORDER BY " + orderExpr + " ASC, seq ASC"
	default:
		query += " ORDER BY seq ASC"
	}
	args = append(args, normalizeLimit(q.Limit)+1)
	query += " LIMIT $" + itoa(len(args))
	return query, args, nil
}

func filterClause(f Filter, args *[]any) (string, error) {
	*args = append(*args, f.Field)
	k := "$" + itoa(len(*args)) + "::text"
	switch f.Op {
	case OpEqual:
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return "", fmt.Errorf("filter %s: %w", f.Field, err)
		}
		*args = append(*args, string(raw))
		return "data -> " + k + " = $" + itoa(len(*args)) + "::jsonb", nil
	case OpGreaterEqual, OpLessEqual:
		*args = append(*args, f.Value)
		v := "$" + itoa(len(*args))
		if _, ok := toFloat(f.Value); ok {
			return fmt.Sprintf("CASE WHEN jsonb_typeof(data -> %s) = 'number' THEN (data ->> %s)::numeric %s %s ELSE FALSE END",
				k, k, f.Op, v), nil
		}
		return fmt.Sprintf("CASE WHEN jsonb_typeof(data -> %s) = 'string' THEN (data ->> %s) COLLATE \"C\" %s %s ELSE FALSE END",
			k, k, f.Op, v), nil
	case OpArrayContains:
		raw, err := json.Marshal([]any{f.Value})
		if err != nil {
			return "", fmt.Errorf("filter %s: %w", f.Field, err)
		}
		*args = append(*args, string(raw))
		return "data -> " + k + " @> $" + itoa(len(*args)) + "::jsonb", nil
	}
	return "", fmt.Errorf("filter %s: unsupported operator %q", f.Field, f.Op)
}

func marshalFields(fields Fields) (string, error) {
	if fields == nil {
		fields = Fields{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(raw), nil
}

func decodeRow(id string, data []byte) (Document, error) {
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", id, err)
	}
	return Document{ID: id, Fields: fields}, nil
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }
