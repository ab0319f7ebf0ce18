package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/ravematch/internal/db"
)

// Store is a gorm-backed document store.
type Store struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Store)

// WithClock overrides the clock used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNotifier enables change publication and Watch.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a Store bound to the given DB connection.
func New(database *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:  database,
		now: time.Now,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write is one document write of a batch.
type Write struct {
	Collection string
	ID         string
	Fields     Fields
	Merge      bool
}

type setOptions struct {
	merge bool
}

type SetOption func(*setOptions)

// MergeAll makes Set a field-level upsert instead of a replace.
func MergeAll(o *setOptions) { o.merge = true }

// Getter reads a document. Implemented by *Store and *Tx.
type Getter interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
}

// Setter writes a document. Implemented by *Store and *Tx.
type Setter interface {
	Set(ctx context.Context, collection, id string, fields Fields, opts ...SetOption) error
}

// Get returns the document or ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (*Document, error) {
	return getDocument(s.db.WithContext(ctx), collection, id, false)
}

// Set writes a single document atomically.
func (s *Store) Set(ctx context.Context, collection, id string, fields Fields, opts ...SetOption) error {
	return s.RunTransaction(ctx, func(tx *Tx) error {
		return tx.Set(ctx, collection, id, fields, opts...)
	})
}

// Batch commits all writes or none of them.
func (s *Store) Batch(ctx context.Context, writes []Write) error {
	return s.RunTransaction(ctx, func(tx *Tx) error {
		for _, w := range writes {
			var opts []SetOption
			if w.Merge {
				opts = append(opts, MergeAll)
			}
			if err := tx.Set(ctx, w.Collection, w.ID, w.Fields, opts...); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunTransaction runs fn inside a database transaction. Documents read
// through the Tx are locked until commit on dialects that support row locks.
// Change notifications are published only after a successful commit.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	var changes []Change
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		tx := &Tx{db: gtx, now: s.now()}
		if err := fn(tx); err != nil {
			return err
		}
		changes = tx.changes
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, changes)
	return nil
}

func (s *Store) publish(ctx context.Context, changes []Change) {
	if s.notifier == nil {
		return
	}
	for _, c := range changes {
		if err := s.notifier.Publish(ctx, c); err != nil {
			s.log.Warn("docstore: publish change failed", "collection", c.Collection, "id", c.ID, "err", err)
		}
	}
}

// Tx is a store transaction.
type Tx struct {
	db      *gorm.DB
	now     time.Time
	changes []Change
}

// Get reads and locks a document for the rest of the transaction.
func (t *Tx) Get(ctx context.Context, collection, id string) (*Document, error) {
	return getDocument(t.db.WithContext(ctx), collection, id, true)
}

// Set writes a document inside the transaction.
func (t *Tx) Set(ctx context.Context, collection, id string, fields Fields, opts ...SetOption) error {
	if err := validateRef(collection, id); err != nil {
		return err
	}
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	incoming, err := resolve(fields, t.now)
	if err != nil {
		return err
	}

	gtx := t.db.WithContext(ctx)
	body := incoming
	created := t.now
	existing, err := getDocument(gtx, collection, id, true)
	switch {
	case err == nil:
		created = existing.CreateTime
		if o.merge {
			body = mergeFields(existing.Fields, incoming)
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	row := db.Document{
		Collection: collection,
		ID:         id,
		Fields:     datatypes.JSON(raw),
		CreatedAt:  created,
		UpdatedAt:  t.now,
	}
	// A concurrent insert of the same key resolves to last-write-wins.
	err = gtx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fields", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}

	t.changes = append(t.changes, Change{Collection: collection, ID: id})
	return nil
}

func getDocument(q *gorm.DB, collection, id string, lock bool) (*Document, error) {
	if err := validateRef(collection, id); err != nil {
		return nil, err
	}
	if lock && q.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row db.Document
	err := q.Where("collection = ? AND id = ?", collection, id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	return fromRow(row)
}

func fromRow(row db.Document) (*Document, error) {
	fields, err := decodeFields(row.Fields)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", row.Collection, row.ID, err)
	}
	return &Document{
		Collection: row.Collection,
		ID:         row.ID,
		Fields:     fields,
		CreateTime: row.CreatedAt,
		UpdateTime: row.UpdatedAt,
	}, nil
}
