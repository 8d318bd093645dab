package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by CreateWithID when the ID is taken.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrInvalidCursor is returned when a page cursor names no document of the collection.
	ErrInvalidCursor = errors.New("invalid cursor")
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Filter operators understood by every adapter.
const (
	OpEqual         = "=="
	OpGreaterEqual  = ">="
	OpLessEqual     = "<="
	OpArrayContains = "array-contains"
)

// Fields is the loosely-typed body of a document.
type Fields map[string]any

// Document is a stored document and its server-assigned ID.
type Document struct {
	ID     string
	Fields Fields
}

// Filter restricts a List to documents whose top-level Field satisfies Op against Value.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Query describes a List call. Ordering ties are broken by insertion order.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	Cursor     string
}

// Where appends an equality filter when value is non-empty.
func (q Query) Where(field, value string) Query {
	if value != "" {
		q.Filters = append(q.Filters, Filter{Field: field, Op: OpEqual, Value: value})
	}
	return q
}

// Page is one page of List results. NextCursor is empty on the last page.
type Page struct {
	Documents  []Document
	NextCursor string
}

// MutateFunc computes a patch from the current document inside an atomic read-modify-write.
// Returning an error aborts the write and is passed through to the caller.
type MutateFunc func(doc Document) (Fields, error)

// Store is the document-store contract. Consistency is delegated to the backend: single
// document writes, Increment and Mutate are atomic; nothing spans documents.
type Store interface {
	Create(ctx context.Context, collection string, fields Fields) (Document, error)
	CreateWithID(ctx context.Context, collection, id string, fields Fields) (Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, q Query) (Page, error)
	Update(ctx context.Context, collection, id string, patch Fields) (Document, error)
	Mutate(ctx context.Context, collection, id string, fn MutateFunc) (Document, error)
	Increment(ctx context.Context, collection, id string, path []string, delta int64) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func merge(dst, patch Fields) Fields {
	out := cloneFields(dst)
	if out == nil {
		out = Fields{}
	}
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneFields(f Fields) Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Fields:
		return map[string]any(cloneFields(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	default:
		return v
	}
}
