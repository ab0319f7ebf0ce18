package docstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/ravematch/internal/db"
)

// Op is a comparison operator on a top-level field.
type Op string

const (
	OpEqual        Op = "=="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

var sqlOps = map[Op]string{
	OpEqual:        "=",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
}

// Predicate filters on a top-level field.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Predicate.
func Where(field string, op Op, value any) Predicate {
	return Predicate{Field: field, Op: op, Value: value}
}

// Cursor is the position of the last document of a previous page: the value
// of the order field and the document id as tie-breaker.
type Cursor struct {
	Value any
	ID    string
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Where      []Predicate
	// OrderBy names a top-level field; documents are ordered by it and then
	// by id in the same direction. Empty means id ascending.
	OrderBy string
	Desc    bool
	// After skips everything up to and including the cursor position.
	After *Cursor
	Limit int
}

// Query runs q and returns the matching documents in order.
func (s *Store) Query(ctx context.Context, q Query) ([]*Document, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("docstore: query without collection")
	}

	tx, err := s.filtered(ctx, q)
	if err != nil {
		return nil, err
	}

	dir := "ASC"
	cmp := ">"
	if q.Desc {
		dir = "DESC"
		cmp = "<"
	}

	if q.OrderBy != "" {
		expr, err := fieldExpr(q.OrderBy)
		if err != nil {
			return nil, err
		}
		if q.After != nil {
			tx = tx.Where(
				fmt.Sprintf("(%s %s ? OR (%s = ? AND id %s ?))", expr, cmp, expr, cmp),
				q.After.Value, q.After.Value, q.After.ID,
			)
		}
		tx = tx.Order(fmt.Sprintf("%s %s, id %s", expr, dir, dir))
	} else {
		if q.After != nil {
			tx = tx.Where(fmt.Sprintf("id %s ?", cmp), q.After.ID)
		}
		tx = tx.Order("id " + dir)
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []db.Document
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		d, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func fieldExpr(field string) (string, error) {
	if !fieldName.MatchString(field) {
		return "", fmt.Errorf("docstore: invalid field name %q", field)
	}
	return fmt.Sprintf("JSON_EXTRACT(fields, '$.%s')", field), nil
}

// Count returns how many documents match the collection and predicates of q.
// Ordering, cursor and limit are ignored.
func (s *Store) Count(ctx context.Context, q Query) (int64, error) {
	if q.Collection == "" {
		return 0, fmt.Errorf("docstore: count without collection")
	}
	tx, err := s.filtered(ctx, q)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Collection, err)
	}
	return n, nil
}

func (s *Store) filtered(ctx context.Context, q Query) (*gorm.DB, error) {
	tx := s.db.WithContext(ctx).Model(&db.Document{}).Where("collection = ?", q.Collection)
	for _, p := range q.Where {
		expr, err := fieldExpr(p.Field)
		if err != nil {
			return nil, err
		}
		op, ok := sqlOps[p.Op]
		if !ok {
			return nil, fmt.Errorf("docstore: unsupported operator %q", p.Op)
		}
		tx = tx.Where(fmt.Sprintf("%s %s ?", expr, op), p.Value)
	}
	return tx, nil
}
