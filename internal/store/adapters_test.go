package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adapters returns every Store reachable from the environment. Postgres runs when
// STORE_TEST_DATABASE_URL is set, Firestore when FIRESTORE_EMULATOR_HOST is set.
func adapters(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	out := map[string]Store{"memory": NewMemory()}

	if url := os.Getenv("STORE_TEST_DATABASE_URL"); url != "" {
		pg, err := NewPostgres(ctx, url)
		require.NoError(t, err)
		t.Cleanup(func() { pg.Close() })
		out["postgres"] = pg
	}
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		app, err := OpenFirebaseApp(ctx, "campus-test", "", "")
		require.NoError(t, err)
		fs, err := NewFirestore(ctx, app)
		require.NoError(t, err)
		t.Cleanup(func() { fs.Close() })
		out["firestore"] = fs
	}
	return out
}

func TestAdapterListPaging(t *testing.T) {
	for name, s := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			coll := "paging-" + uuid.NewString()

			dates := []string{
				"2024-01-03T00:00:00.000Z",
				"2024-01-01T00:00:00.000Z",
				"2024-01-02T00:00:00.000Z",
				"2024-01-02T00:00:00.000Z",
				"2024-01-05T00:00:00.000Z",
			}
			for i, d := range dates {
				status := "open"
				if i == 4 {
					status = "closed"
				}
				_, err := s.Create(ctx, coll, Fields{"date": d, "status": status, "keywords": []any{"tag"}})
				require.NoError(t, err)
			}

			q := Query{OrderBy: "date", Descending: true, Limit: 2}.Where("status", "open")
			q.Filters = append(q.Filters, Filter{Field: "keywords", Op: OpArrayContains, Value: "tag"})

			var got []string
			seen := map[string]bool{}
			for pages := 0; pages < 10; pages++ {
				page, err := s.List(ctx, coll, q)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(page.Documents), 2)
				for _, d := range page.Documents {
					assert.False(t, seen[d.ID], "document %s listed twice", d.ID)
					seen[d.ID] = true
					got = append(got, d.Fields["date"].(string))
				}
				if page.NextCursor == "" {
					break
				}
				q.Cursor = page.NextCursor
			}
			assert.Equal(t, []string{
				"2024-01-03T00:00:00.000Z",
				"2024-01-02T00:00:00.000Z",
				"2024-01-02T00:00:00.000Z",
				"2024-01-01T00:00:00.000Z",
			}, got)

			_, err := s.List(ctx, coll, Query{Cursor: "missing-" + uuid.NewString()})
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}
