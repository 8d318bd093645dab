package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store for tests and local development.
type Memory struct {
	mu          sync.Mutex
	seq         int64
	collections map[string]map[string]*memDoc
}

type memDoc struct {
	id     string
	seq    int64
	fields Fields
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]*memDoc)}
}

// Create inserts a document under a fresh UUID.
func (m *Memory) Create(ctx context.Context, collection string, fields Fields) (Document, error) {
	return m.CreateWithID(ctx, collection, uuid.NewString(), fields)
}

// CreateWithID inserts a document under id, failing when it exists.
func (m *Memory) CreateWithID(_ context.Context, collection, id string, fields Fields) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.collection(collection)
	if _, ok := coll[id]; ok {
		return Document{}, ErrAlreadyExists
	}
	m.seq++
	doc := &memDoc{id: id, seq: m.seq, fields: cloneFields(fields)}
	if doc.fields == nil {
		doc.fields = Fields{}
	}
	coll[id] = doc
	return doc.snapshot(), nil
}

// Get returns a copy of the document.
func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collection(collection)[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc.snapshot(), nil
}

// List evaluates filters, ordering and pagination in process.
func (m *Memory) List(_ context.Context, collection string, q Query) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*memDoc
	for _, doc := range m.collection(collection) {
		if matchesAll(doc.fields, q.Filters) {
			matched = append(matched, doc)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.OrderBy != "" {
			if c := compareValues(a.fields[q.OrderBy], b.fields[q.OrderBy]); c != 0 {
				if q.Descending {
					return c > 0
				}
				return c < 0
			}
			if q.Descending {
				return a.seq > b.seq
			}
		}
		return a.seq < b.seq
	})

	start := 0
	if q.Cursor != "" {
		start = -1
		for i, doc := range matched {
			if doc.id == q.Cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return Page{}, ErrInvalidCursor
		}
	}

	limit := normalizeLimit(q.Limit)
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := Page{Documents: make([]Document, 0, end-start)}
	for _, doc := range matched[start:end] {
		page.Documents = append(page.Documents, doc.snapshot())
	}
	if end < len(matched) && end > start {
		page.NextCursor = matched[end-1].id
	}
	return page, nil
}

// Update merges patch into the top level of the document.
func (m *Memory) Update(_ context.Context, collection, id string, patch Fields) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collection(collection)[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.fields = merge(doc.fields, patch)
	return doc.snapshot(), nil
}

// Mutate holds the store lock across fn, so concurrent mutations serialize.
func (m *Memory) Mutate(_ context.Context, collection, id string, fn MutateFunc) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collection(collection)[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	patch, err := fn(doc.snapshot())
	if err != nil {
		return Document{}, err
	}
	doc.fields = merge(doc.fields, patch)
	return doc.snapshot(), nil
}

// Increment adds delta to the numeric field at path, creating intermediate maps.
func (m *Memory) Increment(_ context.Context, collection, id string, path []string, delta int64) (Document, error) {
	if len(path) == 0 {
		return Document{}, fmt.Errorf("increment: empty field path")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collection(collection)[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	parent := map[string]any(doc.fields)
	for _, key := range path[:len(path)-1] {
		next, ok := parent[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			parent[key] = next
		}
		parent = next
	}
	last := path[len(path)-1]
	switch cur := parent[last].(type) {
	case float64:
		parent[last] = cur + float64(delta)
	case int64:
		parent[last] = cur + delta
	case int:
		parent[last] = int64(cur) + delta
	case nil:
		parent[last] = delta
	default:
		return Document{}, fmt.Errorf("increment: field %v is %T, not a number", path, cur)
	}
	return doc.snapshot(), nil
}

// Delete removes the document; deleting a missing document is not an error.
func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collection(collection), id)
	return nil
}

// Count returns the number of documents in a collection.
func (m *Memory) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) collection(name string) map[string]*memDoc {
	coll, ok := m.collections[name]
	if !ok {
		coll = make(map[string]*memDoc)
		m.collections[name] = coll
	}
	return coll
}

func (d *memDoc) snapshot() Document {
	return Document{ID: d.id, Fields: cloneFields(d.fields)}
}

func matchesAll(fields Fields, filters []Filter) bool {
	for _, f := range filters {
		if !matches(fields[f.Field], f) {
			return false
		}
	}
	return true
}

func matches(val any, f Filter) bool {
	if val == nil {
		return false
	}
	switch f.Op {
	case OpEqual:
		return compareValues(val, f.Value) == 0 && sameKind(val, f.Value)
	case OpGreaterEqual:
		return sameKind(val, f.Value) && compareValues(val, f.Value) >= 0
	case OpLessEqual:
		return sameKind(val, f.Value) && compareValues(val, f.Value) <= 0
	case OpArrayContains:
		items, ok := val.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if sameKind(item, f.Value) && compareValues(item, f.Value) == 0 {
				return true
			}
		}
	}
	return false
}

func sameKind(a, b any) bool {
	_, an := toFloat(a)
	_, bn := toFloat(b)
	if an || bn {
		return an && bn
	}
	_, as := a.(string)
	_, bs := b.(string)
	if as || bs {
		return as && bs
	}
	_, ab := a.(bool)
	_, bb := b.(bool)
	return ab && bb
}

// compareValues orders nil < bool < number < string; mismatched kinds compare by that rank.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case 3:
		as, bs := a.(string), b.(string)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		return 3
	}
	if _, ok := toFloat(v); ok {
		return 2
	}
	return 4
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
