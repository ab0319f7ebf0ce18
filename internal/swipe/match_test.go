package swipe_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ravematch/internal/docstore"
	"github.com/oggyb/ravematch/internal/docstore/docstoretest"
	apperr "github.com/oggyb/ravematch/internal/errors"
	"github.com/oggyb/ravematch/internal/logger"
	"github.com/oggyb/ravematch/internal/model"
	"github.com/oggyb/ravematch/internal/swipe"
)

func TestFirstMessageRequiresBothLikes(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)
	h.createUser(t, model.UserProfile{UID: "A", Name: "Ada"})
	h.createUser(t, model.UserProfile{UID: "B", Name: "Bora"})
	d := h.engine.Detector()

	_, err := d.EnsureMatchOnFirstMessage(ctx, "A", "B", "hey")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotMatched))

	_, err = h.engine.RecordLike(ctx, "A", "B", model.LikeTypeLike, nil)
	require.NoError(t, err)
	_, err = d.EnsureMatchOnFirstMessage(ctx, "A", "B", "hey")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotMatched), "one like is not a match")
	assert.Zero(t, h.count(t, model.CollectionMatches))
}

func TestFirstMessageCreatesMatchAndMessage(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)
	h.createUser(t, model.UserProfile{UID: "A", Name: "Ada"})
	h.createUser(t, model.UserProfile{UID: "B", Name: "Bora"})
	for _, pair := range [][2]string{{"A", "B"}, {"B", "A"}} {
		_, err := h.engine.RecordLike(ctx, pair[0], pair[1], model.LikeTypeLike, nil)
		require.NoError(t, err)
	}

	id, err := h.engine.Detector().EnsureMatchOnFirstMessage(ctx, "B", "A", "  see you at the warehouse  ")
	require.NoError(t, err)
	assert.Equal(t, "A_B", id)

	m, err := h.matches.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "B", m.LastMessageFrom)
	assert.Equal(t, map[string]string{"A": "Ada", "B": "Bora"}, m.UserNames)

	msgs, err := h.store.Query(ctx, docstore.Query{Collection: model.MessagesCollection(id)})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	var msg model.Message
	require.NoError(t, msgs[0].DataTo(&msg))
	assert.Equal(t, "B", msg.From)
	assert.Equal(t, "see you at the warehouse", msg.Text)
	assert.Equal(t, now.UnixMilli(), msg.CreatedAt)

	// empty text only ensures the match
	_, err = h.engine.Detector().EnsureMatchOnFirstMessage(ctx, "A", "B", " ")
	require.NoError(t, err)
	msgs, err = h.store.Query(ctx, docstore.Query{Collection: model.MessagesCollection(id)})
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, int64(1), h.count(t, model.CollectionMatches))
}

func TestAfterLikeTreatsProbeFailureAsNoMatch(t *testing.T) {
	database := docstoretest.NewDB(t)
	store := docstore.New(database)
	d := swipe.NewDetector(store, logger.Discard(), nil)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	matched, id, err := d.AfterLike(context.Background(), model.LikeRecord{From: "A", To: "B"})
	assert.NoError(t, err)
	assert.False(t, matched)
	assert.Empty(t, id)
}

func TestRepeatedLikeKeepsMatchState(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)
	h.createUser(t, model.UserProfile{UID: "A", Name: "Ada"})
	h.createUser(t, model.UserProfile{UID: "B", Name: "Bora"})

	_, err := h.like(ctx, "A", "B", model.LikeTypeLike)
	require.NoError(t, err)
	res, err := h.like(ctx, "B", "A", model.LikeTypeLike)
	require.NoError(t, err)
	require.True(t, res.Matched)

	h.clock.Advance(2 * time.Hour)
	res, err = h.like(ctx, "A", "B", model.LikeTypeLike)
	require.NoError(t, err)
	assert.True(t, res.Matched)

	m, err := h.matches.Get(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), m.CreatedAt)
	assert.Equal(t, now.UnixMilli(), m.LastMessageAt)
	assert.Equal(t, "B", m.LastMessageFrom)
	assert.Equal(t, int64(1), h.count(t, model.CollectionMatches))
}

func TestFirstMessageOnExistingMatchKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	h := setupEngine(t)
	h.createUser(t, model.UserProfile{UID: "A", Name: "Ada"})
	h.createUser(t, model.UserProfile{UID: "B", Name: "Bora"})
	_, err := h.like(ctx, "A", "B", model.LikeTypeLike)
	require.NoError(t, err)
	res, err := h.like(ctx, "B", "A", model.LikeTypeLike)
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	_, err = h.engine.Detector().EnsureMatchOnFirstMessage(ctx, "A", "B", "hi")
	require.NoError(t, err)

	m, err := h.matches.Get(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), m.CreatedAt)
	assert.Equal(t, now.Add(time.Hour).UnixMilli(), m.LastMessageAt)
	assert.Equal(t, "A", m.LastMessageFrom)
}
