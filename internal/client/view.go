package client

import (
	"context"
	"fmt"
	"sync"
)

// Backend is the collection a View mirrors. *Resource satisfies it.
type Backend[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, in any) (T, error)
	Update(ctx context.Context, id string, patch map[string]any) (T, error)
	Delete(ctx context.Context, id string) error
	ID(v T) string
}

// View holds the list, loading flag and last error of one resource screen. Mutations
// touch the list only after the server accepted them, so a failure leaves it unchanged.
type View[T any] struct {
	backend Backend[T]

	mu      sync.Mutex
	items   []T
	loading bool
	err     error
	retry   func(context.Context) error
}

func NewView[T any](b Backend[T]) *View[T] {
	return &View[T]{backend: b}
}

// Items returns a copy of the current list.
func (v *View[T]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]T, len(v.items))
	copy(out, v.items)
	return out
}

func (v *View[T]) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Err is the error of the last failed operation, until Dismiss or a later success.
func (v *View[T]) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Dismiss clears the error banner.
func (v *View[T]) Dismiss() {
	v.mu.Lock()
	v.err = nil
	v.retry = nil
	v.mu.Unlock()
}

// Retry re-runs the last failed operation. Without a failure it is a no-op.
func (v *View[T]) Retry(ctx context.Context) error {
	v.mu.Lock()
	op := v.retry
	v.mu.Unlock()
	if op == nil {
		return nil
	}
	return op(ctx)
}

func (v *View[T]) Load(ctx context.Context) error {
	v.begin()
	items, err := v.backend.List(ctx)
	return v.finish(err, v.Load, func() { v.items = items })
}

// Create stores in and puts the result at the top of the list.
func (v *View[T]) Create(ctx context.Context, in any) (T, error) {
	v.begin()
	created, err := v.backend.Create(ctx, in)
	err = v.finish(err, func(ctx context.Context) error {
		_, err := v.Create(ctx, in)
		return err
	}, func() {
		v.items = append([]T{created}, v.items...)
	})
	return created, err
}

// Update saves patch for the item at index and replaces it with the server's copy.
func (v *View[T]) Update(ctx context.Context, index int, patch map[string]any) (T, error) {
	var zero T
	v.mu.Lock()
	if index < 0 || index >= len(v.items) {
		v.mu.Unlock()
		return zero, fmt.Errorf("index %d out of range", index)
	}
	id := v.backend.ID(v.items[index])
	v.loading = true
	v.mu.Unlock()

	updated, err := v.backend.Update(ctx, id, patch)
	err = v.finish(err, func(ctx context.Context) error {
		_, err := v.Update(ctx, index, patch)
		return err
	}, func() {
		// the list may have shifted while the request was in flight
		if index < len(v.items) && v.backend.ID(v.items[index]) == id {
			v.items[index] = updated
			return
		}
		for i := range v.items {
			if v.backend.ID(v.items[i]) == id {
				v.items[i] = updated
				return
			}
		}
	})
	return updated, err
}

// Delete removes the item with id on the server, then from the list.
func (v *View[T]) Delete(ctx context.Context, id string) error {
	v.begin()
	err := v.backend.Delete(ctx, id)
	return v.finish(err, func(ctx context.Context) error {
		return v.Delete(ctx, id)
	}, func() {
		kept := v.items[:0:0]
		for _, it := range v.items {
			if v.backend.ID(it) != id {
				kept = append(kept, it)
			}
		}
		v.items = kept
	})
}

func (v *View[T]) begin() {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()
}

func (v *View[T]) finish(err error, retry func(context.Context) error, apply func()) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	if err != nil {
		v.err = err
		v.retry = retry
		return err
	}
	apply()
	v.err = nil
	v.retry = nil
	return nil
}
