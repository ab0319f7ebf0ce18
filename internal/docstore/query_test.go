package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ravematch/internal/docstore"
)

func seedUsers(t *testing.T, store *docstore.Store) {
	t.Helper()
	ctx := context.Background()
	users := map[string]docstore.Fields{
		"u1": {"country": "TR", "city": "Istanbul", "age": 25, "boostUntil": 10},
		"u2": {"country": "TR", "city": "Izmir", "age": 30, "boostUntil": 30},
		"u3": {"country": "TR", "city": "Istanbul", "age": 28, "boostUntil": 20},
		"u4": {"country": "DE", "city": "Berlin", "age": 26, "boostUntil": 20},
	}
	for id, f := range users {
		require.NoError(t, store.Set(ctx, "users", id, f))
	}
}

func ids(docs []*docstore.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestQueryPredicates(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	seedUsers(t, store)

	docs, err := store.Query(ctx, docstore.Query{
		Collection: "users",
		Where: []docstore.Predicate{
			docstore.Where("country", docstore.OpEqual, "TR"),
			docstore.Where("age", docstore.OpGreaterEqual, 25),
			docstore.Where("age", docstore.OpLessEqual, 28),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u3"}, ids(docs))
}

func TestQueryOrderLimitAndCursor(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	seedUsers(t, store)

	q := docstore.Query{Collection: "users", OrderBy: "boostUntil", Desc: true, Limit: 2}
	page1, err := store.Query(ctx, q)
	require.NoError(t, err)
	// ties on boostUntil are broken by id in the same direction
	assert.Equal(t, []string{"u2", "u4"}, ids(page1))

	last := page1[len(page1)-1]
	q.After = &docstore.Cursor{Value: last.Fields.Int64("boostUntil"), ID: last.ID}
	page2, err := store.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"u3", "u1"}, ids(page2))
}

func TestQueryRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	_, err := store.Query(ctx, docstore.Query{})
	assert.Error(t, err)

	_, err = store.Query(ctx, docstore.Query{
		Collection: "users",
		Where:      []docstore.Predicate{docstore.Where("age'); DROP TABLE documents; --", docstore.OpEqual, 1)},
	})
	assert.Error(t, err)

	_, err = store.Query(ctx, docstore.Query{
		Collection: "users",
		Where:      []docstore.Predicate{docstore.Where("age", docstore.Op("!="), 1)},
	})
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	seedUsers(t, store)

	n, err := store.Count(ctx, docstore.Query{
		Collection: "users",
		Where:      []docstore.Predicate{docstore.Where("city", docstore.OpEqual, "Istanbul")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.Count(ctx, docstore.Query{Collection: "likes"})
	require.NoError(t, err)
	assert.Zero(t, n)
}
