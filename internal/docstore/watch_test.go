package docstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ravematch/internal/cache"
	"github.com/oggyb/ravematch/internal/config"
	"github.com/oggyb/ravematch/internal/docstore"
	"github.com/oggyb/ravematch/internal/docstore/docstoretest"
)

func newWatchedStore(t *testing.T) *docstore.Store {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Close() })

	return docstoretest.NewStore(t, docstore.WithNotifier(rc))
}

// next waits for a snapshot satisfying ok.
func next(t *testing.T, w *docstore.Watch, ok func(docstore.Snapshot) bool) docstore.Snapshot {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case snap, open := <-w.Events():
			require.True(t, open, "watch closed early")
			require.NoError(t, snap.Err)
			if ok(snap) {
				return snap
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestWatchDocument(t *testing.T) {
	ctx := context.Background()
	store := newWatchedStore(t)

	w, err := store.Watch(ctx, "users", "u1")
	require.NoError(t, err)
	defer w.Close()

	first := next(t, w, func(docstore.Snapshot) bool { return true })
	assert.Nil(t, first.First(), "missing document yields an empty snapshot")

	require.NoError(t, store.Set(ctx, "users", "u2", docstore.Fields{"name": "other"}))
	require.NoError(t, store.Set(ctx, "users", "u1", docstore.Fields{"name": "Deniz"}))

	snap := next(t, w, func(s docstore.Snapshot) bool { return s.First() != nil })
	assert.Equal(t, "u1", snap.First().ID)
	assert.Equal(t, "Deniz", snap.First().Fields.String("name"))

	require.NoError(t, store.Set(ctx, "users", "u1", docstore.Fields{"premium": true}, docstore.MergeAll))
	snap = next(t, w, func(s docstore.Snapshot) bool {
		return s.First() != nil && s.First().Fields["premium"] == true
	})
	assert.Equal(t, "Deniz", snap.First().Fields.String("name"))
}

func TestWatchQuery(t *testing.T) {
	ctx := context.Background()
	store := newWatchedStore(t)

	w, err := store.WatchQuery(ctx, docstore.Query{
		Collection: "likes",
		Where:      []docstore.Predicate{docstore.Where("to", docstore.OpEqual, "u1")},
	})
	require.NoError(t, err)
	defer w.Close()

	next(t, w, func(s docstore.Snapshot) bool { return len(s.Documents) == 0 })

	require.NoError(t, store.Set(ctx, "likes", "u2_u1", docstore.Fields{"from": "u2", "to": "u1"}))
	require.NoError(t, store.Set(ctx, "likes", "u3_u1", docstore.Fields{"from": "u3", "to": "u1"}))

	snap := next(t, w, func(s docstore.Snapshot) bool { return len(s.Documents) == 2 })
	assert.Equal(t, []string{"u2_u1", "u3_u1"}, ids(snap.Documents))
}

func TestWatchCloseEndsEvents(t *testing.T) {
	store := newWatchedStore(t)

	w, err := store.Watch(context.Background(), "users", "u1")
	require.NoError(t, err)
	w.Close()

	for range w.Events() {
		// drain until closed
	}
}

func TestWatchEndsWithContext(t *testing.T) {
	store := newWatchedStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	w, err := store.Watch(ctx, "users", "u1")
	require.NoError(t, err)
	cancel()

	done := make(chan struct{})
	go func() {
		for range w.Events() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not end after cancel")
	}
	w.Close()
}

func TestWatchWithoutNotifier(t *testing.T) {
	store := docstoretest.NewStore(t)

	_, err := store.Watch(context.Background(), "users", "u1")
	assert.ErrorIs(t, err, docstore.ErrNoNotifier)
}
