package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/oggyb/ravematch/internal/docstore"
	"github.com/oggyb/ravematch/internal/model"
)

// MatchRepository provides data access for matches/{min}_{max} documents.
type MatchRepository struct {
	store *docstore.Store
	docs  docs
}

func NewMatchRepository(store *docstore.Store) *MatchRepository {
	return &MatchRepository{store: store, docs: store}
}

// WithTx returns a repository whose reads and writes go through tx.
func (r *MatchRepository) WithTx(tx *docstore.Tx) *MatchRepository {
	return &MatchRepository{store: r.store, docs: tx}
}

// Upsert materialises m at its canonical key in its own transaction.
// createdAt and the last-message fields are written only when the match is
// new; on an existing match only participants and names are merged.
func (r *MatchRepository) Upsert(ctx context.Context, m model.MatchRecord) (string, error) {
	var id string
	err := r.store.RunTransaction(ctx, func(tx *docstore.Tx) error {
		var err error
		id, _, err = r.WithTx(tx).Ensure(ctx, m)
		return err
	})
	return id, err
}

// Ensure is Upsert for callers that already hold a transaction.
func (r *MatchRepository) Ensure(ctx context.Context, m model.MatchRecord) (string, bool, error) {
	return r.put(ctx, m, false)
}

// Touch materialises m like Upsert and always moves lastMessageAt and
// lastMessageFrom to the values of m. It reports whether the match was new.
// Callers wanting atomicity with other writes use it through WithTx.
func (r *MatchRepository) Touch(ctx context.Context, m model.MatchRecord) (string, bool, error) {
	return r.put(ctx, m, true)
}

func (r *MatchRepository) put(ctx context.Context, m model.MatchRecord, touch bool) (string, bool, error) {
	id := model.MatchID(m.UserA, m.UserB)
	users := []string{m.UserA, m.UserB}
	sort.Strings(users)

	names := make(map[string]any, len(m.UserNames))
	for k, v := range m.UserNames {
		names[k] = v
	}
	fields := docstore.Fields{
		"userA":     users[0],
		"userB":     users[1],
		"users":     users,
		"userNames": names,
	}

	created := false
	_, err := r.docs.Get(ctx, model.CollectionMatches, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		created = true
		fields["createdAt"] = docstore.ServerTimestamp
	case err != nil:
		return "", false, err
	}
	if created || touch {
		fields["lastMessageAt"] = m.LastMessageAt
		fields["lastMessageFrom"] = m.LastMessageFrom
	}

	if err := r.docs.Set(ctx, model.CollectionMatches, id, fields, docstore.MergeAll); err != nil {
		return "", false, err
	}
	return id, created, nil
}

// Get returns the match or docstore.ErrNotFound.
func (r *MatchRepository) Get(ctx context.Context, matchID string) (*model.MatchRecord, error) {
	d, err := r.docs.Get(ctx, model.CollectionMatches, matchID)
	if err != nil {
		return nil, err
	}
	return decodeMatch(d)
}

// QueryFor selects the matches whose field (userA or userB) is uid, most
// recent activity first.
func QueryFor(field, uid string, limit int) docstore.Query {
	return docstore.Query{
		Collection: model.CollectionMatches,
		Where:      []docstore.Predicate{docstore.Where(field, docstore.OpEqual, uid)},
		OrderBy:    "lastMessageAt",
		Desc:       true,
		Limit:      limit,
	}
}

// ParticipantFields are the two fields a user can appear in.
var ParticipantFields = []string{"userA", "userB"}

// ListForUser returns the matches uid takes part in, most recent activity
// first.
func (r *MatchRepository) ListForUser(ctx context.Context, uid string, limit int) ([]model.MatchRecord, error) {
	sides := make([][]*docstore.Document, 0, len(ParticipantFields))
	for _, field := range ParticipantFields {
		found, err := r.store.Query(ctx, QueryFor(field, uid, limit))
		if err != nil {
			return nil, err
		}
		sides = append(sides, found)
	}
	return CollectMatches(limit, sides...)
}

// CollectMatches decodes the results of the per-field queries into one
// list without duplicates, most recent activity first.
func CollectMatches(limit int, sides ...[]*docstore.Document) ([]model.MatchRecord, error) {
	matches := []model.MatchRecord{}
	seen := map[string]bool{}
	for _, found := range sides {
		for _, d := range found {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			m, err := decodeMatch(d)
			if err != nil {
				return nil, err
			}
			matches = append(matches, *m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].LastMessageAt > matches[j].LastMessageAt
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func decodeMatch(d *docstore.Document) (*model.MatchRecord, error) {
	var m model.MatchRecord
	if err := d.DataTo(&m); err != nil {
		return nil, err
	}
	m.ID = d.ID
	return &m, nil
}
