package repository

import (
	"context"
	"errors"

	"github.com/oggyb/ravematch/internal/docstore"
	apperr "github.com/oggyb/ravematch/internal/errors"
	"github.com/oggyb/ravematch/internal/model"
	"github.com/oggyb/ravematch/internal/pagination"
)

// LikeRepository provides data access for likes/{from}_{to} documents.
// It is the like ledger: one document per ordered pair.
type LikeRepository struct {
	store *docstore.Store
	docs  docs
}

// NewLikeRepository creates a new repository bound to the given store.
func NewLikeRepository(store *docstore.Store) *LikeRepository {
	return &LikeRepository{store: store, docs: store}
}

// WithTx returns a repository whose reads and writes go through tx.
func (r *LikeRepository) WithTx(tx *docstore.Tx) *LikeRepository {
	return &LikeRepository{store: r.store, docs: tx}
}

// Put records a like from like.From to like.To.
//
// Behavior:
//   - The key is from_to, so a pair never has two documents.
//   - An existing document is merged: the later call wins on every field it
//     writes, createdAt included (server timestamp).
//   - created reports whether the document did not exist before.
//
// Example:
//
//	repo.Put(ctx, model.LikeRecord{From: "a", To: "b", Type: model.LikeTypeLike})
func (r *LikeRepository) Put(ctx context.Context, like model.LikeRecord) (created bool, err error) {
	id := model.LikeID(like.From, like.To)

	_, err = r.docs.Get(ctx, model.CollectionLikes, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		created = true
	case err != nil:
		return false, err
	}

	fields := docstore.Fields{
		"from":        like.From,
		"to":          like.To,
		"type":        string(like.Type),
		"fromProfile": like.FromProfile,
		"toProfile":   like.ToProfile,
		"createdAt":   docstore.ServerTimestamp,
	}
	if err := r.docs.Set(ctx, model.CollectionLikes, id, fields, docstore.MergeAll); err != nil {
		return false, err
	}
	return created, nil
}

// Get returns the like from actor to target, or docstore.ErrNotFound.
func (r *LikeRepository) Get(ctx context.Context, actorID, targetID string) (*model.LikeRecord, error) {
	d, err := r.docs.Get(ctx, model.CollectionLikes, model.LikeID(actorID, targetID))
	if err != nil {
		return nil, err
	}
	return decodeLike(d)
}

// HasLiked checks whether an actor has liked a recipient.
//
// Example:
//
//	repo.HasLiked(ctx, "a", "b") // -> true if user a liked user b
func (r *LikeRepository) HasLiked(ctx context.Context, actorID, targetID string) (bool, error) {
	_, err := r.docs.Get(ctx, model.CollectionLikes, model.LikeID(actorID, targetID))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ListIncoming returns the likes received by uid, newest first.
//
// Behavior:
//   - Ordered by createdAt DESC, then document id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.ListIncoming(ctx, "u42", nil, 20) // first 20 people who liked u42
func (r *LikeRepository) ListIncoming(
	ctx context.Context,
	uid string,
	paginationToken *string,
	limit int,
) ([]model.LikeRecord, *string, error) {
	return r.list(ctx, "to", uid, paginationToken, limit)
}

// ListOutgoing returns the likes sent by uid, newest first, paginated like
// ListIncoming.
func (r *LikeRepository) ListOutgoing(
	ctx context.Context,
	uid string,
	paginationToken *string,
	limit int,
) ([]model.LikeRecord, *string, error) {
	return r.list(ctx, "from", uid, paginationToken, limit)
}

// CountIncoming returns how many users liked uid.
// Used in conjunction with the Redis counter (store is the fallback).
func (r *LikeRepository) CountIncoming(ctx context.Context, uid string) (int64, error) {
	return r.store.Count(ctx, docstore.Query{
		Collection: model.CollectionLikes,
		Where:      []docstore.Predicate{docstore.Where("to", docstore.OpEqual, uid)},
	})
}

func (r *LikeRepository) list(
	ctx context.Context,
	field, uid string,
	paginationToken *string,
	limit int,
) ([]model.LikeRecord, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, apperr.InvalidArgument(err.Error())
	}

	q := docstore.Query{
		Collection: model.CollectionLikes,
		Where:      []docstore.Predicate{docstore.Where(field, docstore.OpEqual, uid)},
		OrderBy:    "createdAt",
		Desc:       true,
		Limit:      limit + 1,
	}
	if !cursor.IsZero() {
		q.After = &docstore.Cursor{Value: cursor.CreatedUnix, ID: cursor.DocID}
	}

	found, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	likes := make([]model.LikeRecord, 0, len(found))
	for _, d := range found {
		l, err := decodeLike(d)
		if err != nil {
			return nil, nil, err
		}
		likes = append(likes, *l)
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			DocID:       last.ID,
			CreatedUnix: last.CreatedAt,
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

func decodeLike(d *docstore.Document) (*model.LikeRecord, error) {
	var l model.LikeRecord
	if err := d.DataTo(&l); err != nil {
		return nil, err
	}
	l.ID = d.ID
	return &l, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
