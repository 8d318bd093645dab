package campus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"campus/internal/store"
)

// collection stores one entity type T in one store collection.
type collection[T any] struct {
	store  store.Store
	name   string
	entity string
}

func newCollection[T any](s store.Store, name, entity string) collection[T] {
	return collection[T]{store: s, name: name, entity: entity}
}

func (c collection[T]) notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Entity: c.entity}
	}
	return err
}

func (c collection[T]) create(ctx context.Context, v *T) (T, error) {
	var zero T
	if err := check(v); err != nil {
		return zero, err
	}
	fields, err := store.Encode(v)
	if err != nil {
		return zero, err
	}
	doc, err := c.store.Create(ctx, c.name, fields)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", c.entity, err)
	}
	return decode[T](doc)
}

func (c collection[T]) get(ctx context.Context, id string) (T, error) {
	doc, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		var zero T
		return zero, c.notFound(err)
	}
	return decode[T](doc)
}

func (c collection[T]) list(ctx context.Context, q store.Query) (Page[T], error) {
	res, err := c.store.List(ctx, c.name, q)
	if err != nil {
		return Page[T]{}, err
	}
	page := Page[T]{Items: make([]T, 0, len(res.Documents)), NextCursor: res.NextCursor}
	for _, doc := range res.Documents {
		v, err := decode[T](doc)
		if err != nil {
			return Page[T]{}, err
		}
		page.Items = append(page.Items, v)
	}
	return page, nil
}

// all follows cursors until the listing is exhausted.
func (c collection[T]) all(ctx context.Context, q store.Query) ([]T, error) {
	q.Limit = store.MaxLimit
	out := []T{}
	for {
		page, err := c.list(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if page.NextCursor == "" {
			return out, nil
		}
		q.Cursor = page.NextCursor
	}
}

// update merges the allowed keys of patch into the stored entity, runs prepare on the
// result, re-validates it and writes it back in one atomic step.
func (c collection[T]) update(ctx context.Context, id string, patch map[string]any, allowed []string, prepare func(*T) error) (T, error) {
	var zero T
	clean := store.Fields{}
	for _, k := range allowed {
		if v, ok := patch[k]; ok {
			clean[k] = v
		}
	}
	doc, err := c.store.Mutate(ctx, c.name, id, func(cur store.Document) (store.Fields, error) {
		merged := store.Fields{}
		for k, v := range cur.Fields {
			merged[k] = v
		}
		for k, v := range clean {
			merged[k] = v
		}
		var v T
		if err := (store.Document{ID: id, Fields: merged}).Decode(&v); err != nil {
			return nil, decodeError(err)
		}
		if prepare != nil {
			if err := prepare(&v); err != nil {
				return nil, err
			}
		}
		if err := check(&v); err != nil {
			return nil, err
		}
		return store.Encode(v)
	})
	if err != nil {
		return zero, c.notFound(err)
	}
	return decode[T](doc)
}

// mutate applies fn to the stored entity atomically and writes the returned patch.
func (c collection[T]) mutate(ctx context.Context, id string, fn func(*T) (store.Fields, error)) (T, error) {
	var zero T
	doc, err := c.store.Mutate(ctx, c.name, id, func(cur store.Document) (store.Fields, error) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		return fn(&v)
	})
	if err != nil {
		return zero, c.notFound(err)
	}
	return decode[T](doc)
}

func (c collection[T]) delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, c.name, id); err != nil {
		return fmt.Errorf("delete %s: %w", c.entity, err)
	}
	return nil
}

func decode[T any](doc store.Document) (T, error) {
	var v T
	err := doc.Decode(&v)
	return v, err
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return invalid(typeErr.Field, fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type.Kind()))
	}
	return invalid("body", err.Error())
}
