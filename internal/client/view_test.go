package client

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID   string
	Text string
}

var errOffline = errors.New("offline")

// fakeBackend stores notes in a slice and fails every call while down is set.
type fakeBackend struct {
	mu    sync.Mutex
	notes []note
	seq   int
	down  bool
	calls int
}

func (f *fakeBackend) fail() error {
	f.calls++
	if f.down {
		return errOffline
	}
	return nil
}

func (f *fakeBackend) List(context.Context) ([]note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return append([]note(nil), f.notes...), nil
}

func (f *fakeBackend) Create(_ context.Context, in any) (note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return note{}, err
	}
	f.seq++
	n := note{ID: "n" + strconv.Itoa(f.seq), Text: in.(string)}
	f.notes = append(f.notes, n)
	return n, nil
}

func (f *fakeBackend) Update(_ context.Context, id string, patch map[string]any) (note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return note{}, err
	}
	for i := range f.notes {
		if f.notes[i].ID == id {
			f.notes[i].Text = patch["text"].(string)
			return f.notes[i], nil
		}
	}
	return note{}, &APIError{Status: 404, Message: "note not found"}
}

func (f *fakeBackend) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail()
}

func (f *fakeBackend) ID(n note) string { return n.ID }

func (f *fakeBackend) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func TestViewBookkeeping(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{notes: []note{{ID: "a", Text: "first"}, {ID: "b", Text: "second"}}}
	v := NewView[note](b)

	require.NoError(t, v.Load(ctx))
	assert.Equal(t, []note{{"a", "first"}, {"b", "second"}}, v.Items())
	assert.False(t, v.Loading())

	created, err := v.Create(ctx, "third")
	require.NoError(t, err)
	assert.Equal(t, created, v.Items()[0])

	_, err = v.Update(ctx, 2, map[string]any{"text": "edited"})
	require.NoError(t, err)
	assert.Equal(t, note{"b", "edited"}, v.Items()[2])

	require.NoError(t, v.Delete(ctx, "a"))
	assert.Equal(t, []note{created, {"b", "edited"}}, v.Items())

	_, err = v.Update(ctx, 5, map[string]any{"text": "x"})
	assert.Error(t, err)
}

func TestViewFailureLeavesListUnchanged(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{notes: []note{{ID: "a", Text: "first"}}}
	v := NewView[note](b)
	require.NoError(t, v.Load(ctx))
	before := v.Items()

	b.setDown(true)
	_, err := v.Create(ctx, "lost")
	assert.ErrorIs(t, err, errOffline)
	assert.Equal(t, before, v.Items())
	assert.ErrorIs(t, v.Err(), errOffline)

	_, err = v.Update(ctx, 0, map[string]any{"text": "lost"})
	assert.Error(t, err)
	assert.Error(t, v.Delete(ctx, "a"))
	assert.Equal(t, before, v.Items())
	assert.False(t, v.Loading())

	v.Dismiss()
	assert.NoError(t, v.Err())
	assert.NoError(t, v.Retry(ctx))
}

func TestViewRetry(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{}
	v := NewView[note](b)

	b.setDown(true)
	_, err := v.Create(ctx, "hello")
	require.Error(t, err)
	assert.Empty(t, v.Items())

	b.setDown(false)
	require.NoError(t, v.Retry(ctx))
	assert.NoError(t, v.Err())
	require.Len(t, v.Items(), 1)
	assert.Equal(t, "hello", v.Items()[0].Text)

	// a successful retry clears the pending operation
	calls := b.calls
	require.NoError(t, v.Retry(ctx))
	assert.Equal(t, calls, b.calls)
}
