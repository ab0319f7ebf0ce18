package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oggyb/ravematch/internal/docstore"
	apperr "github.com/oggyb/ravematch/internal/errors"
	"github.com/oggyb/ravematch/internal/model"
)

// docs is the read/write surface shared by the store and its transactions.
type docs interface {
	docstore.Getter
	docstore.Setter
}

// ErrUndecodable marks a stored document whose fields do not fit its type.
var ErrUndecodable = errors.New("repository: undecodable document")

// ProfileRepository reads and merges users/{uid} documents.
type ProfileRepository struct {
	store *docstore.Store
	docs  docs
	log   *slog.Logger
}

func NewProfileRepository(store *docstore.Store) *ProfileRepository {
	return &ProfileRepository{store: store, docs: store, log: slog.Default()}
}

// WithTx returns a repository whose reads and writes go through tx.
func (r *ProfileRepository) WithTx(tx *docstore.Tx) *ProfileRepository {
	return &ProfileRepository{store: r.store, docs: tx, log: r.log}
}

// WithLogger returns a repository that reports skipped documents to l.
func (r *ProfileRepository) WithLogger(l *slog.Logger) *ProfileRepository {
	return &ProfileRepository{store: r.store, docs: r.docs, log: l}
}

// Get returns the profile or a USER_NOT_FOUND error.
func (r *ProfileRepository) Get(ctx context.Context, uid string) (*model.UserProfile, error) {
	d, err := r.docs.Get(ctx, model.CollectionUsers, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.New(apperr.CodeUserNotFound, uid)
	}
	if err != nil {
		return nil, err
	}
	return decodeProfile(d)
}

// Create writes a full profile. Fields already stored are merged, never
// dropped.
func (r *ProfileRepository) Create(ctx context.Context, p model.UserProfile) error {
	fields, err := docstore.FieldsOf(p)
	if err != nil {
		return err
	}
	return r.docs.Set(ctx, model.CollectionUsers, p.UID, fields, docstore.MergeAll)
}

// Update merges the given fields into the profile. Unrelated fields written
// by other flows are left untouched.
func (r *ProfileRepository) Update(ctx context.Context, uid string, fields docstore.Fields) error {
	return r.docs.Set(ctx, model.CollectionUsers, uid, fields, docstore.MergeAll)
}

// Find returns the profiles matching all predicates, at most limit of them.
// Documents that no longer decode into a profile are skipped.
func (r *ProfileRepository) Find(ctx context.Context, where []docstore.Predicate, limit int) ([]model.UserProfile, error) {
	found, err := r.store.Query(ctx, docstore.Query{
		Collection: model.CollectionUsers,
		Where:      where,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	profiles := make([]model.UserProfile, 0, len(found))
	for _, d := range found {
		p, err := decodeProfile(d)
		if err != nil {
			r.log.Warn("skipping undecodable profile", "uid", d.ID, "err", err)
			continue
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

// GetMany returns the existing, decodable profiles among ids, in the order
// of ids.
func (r *ProfileRepository) GetMany(ctx context.Context, ids []string) ([]model.UserProfile, error) {
	profiles := make([]model.UserProfile, 0, len(ids))
	for _, id := range ids {
		p, err := r.Get(ctx, id)
		if apperr.IsCode(err, apperr.CodeUserNotFound) {
			continue
		}
		if errors.Is(err, ErrUndecodable) {
			r.log.Warn("skipping undecodable profile", "uid", id, "err", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

func decodeProfile(d *docstore.Document) (*model.UserProfile, error) {
	var p model.UserProfile
	if err := d.DataTo(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if p.UID == "" {
		p.UID = d.ID
	}
	return &p, nil
}
