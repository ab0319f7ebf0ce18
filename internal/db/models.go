package db

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one stored document of the document store.
//
// Composite PK: (Collection, ID)
//   - Ensures a single row per document key (overwrite guarantee).
//   - Subcollections use a path as collection, e.g. "matches/a_b/messages".
//
// Fields holds the document body as a JSON object. Top-level fields are
// queried with JSON_EXTRACT, which both MySQL and SQLite understand.
type Document struct {
	Collection string         `gorm:"primaryKey;size:191"`
	ID         string         `gorm:"primaryKey;size:191"`
	Fields     datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time `gorm:"index"`
}

func (Document) TableName() string { return "documents" }
