// Package docstore is a small document store on top of gorm: documents are
// JSON objects addressed by (collection, id), written with field-level merge
// semantics, queried with simple predicates on top-level fields, committed
// atomically in batches and observable through change subscriptions.
package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrNoNotifier is returned by Watch when the store has no change feed.
	ErrNoNotifier = errors.New("docstore: no notifier configured")
)

// Fields is a document body.
type Fields map[string]any

type sentinel string

// ServerTimestamp is replaced by the store clock (epoch milliseconds) when a
// write is applied. It may appear at any depth inside nested maps.
const ServerTimestamp = sentinel("serverTimestamp")

// Document is a stored document.
type Document struct {
	Collection string
	ID         string
	Fields     Fields
	CreateTime time.Time
	UpdateTime time.Time
}

// DataTo decodes the document body into v using its json tags.
func (d *Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", d.Collection, d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// String returns the named top-level string field, or "".
func (f Fields) String(name string) string {
	s, _ := f[name].(string)
	return s
}

// Int64 returns the named top-level numeric field, or 0.
func (f Fields) Int64(name string) int64 {
	switch v := f[name].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if fl, err := v.Float64(); err == nil {
			return int64(fl)
		}
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// FieldsOf converts a struct (or map) into Fields through its json tags.
func FieldsOf(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeFields(raw)
}

func decodeFields(raw []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if f == nil {
		f = Fields{}
	}
	return f, nil
}

// resolve replaces sentinels and normalises the values to their JSON shape
// so that merge works on plain maps.
func resolve(in Fields, now time.Time) (Fields, error) {
	replaced := replaceSentinels(map[string]any(in), now.UnixMilli())
	raw, err := json.Marshal(replaced)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return decodeFields(raw)
}

func replaceSentinels(m map[string]any, ts int64) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case sentinel:
			out[k] = ts
		case map[string]any:
			out[k] = replaceSentinels(val, ts)
		case Fields:
			out[k] = replaceSentinels(val, ts)
		default:
			out[k] = v
		}
	}
	return out
}

// mergeFields overlays src onto dst. Nested objects merge key by key, every
// other value replaces the stored one.
func mergeFields(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		srcMap, srcOK := v.(map[string]any)
		dstMap, dstOK := out[k].(map[string]any)
		if srcOK && dstOK {
			out[k] = mergeFields(dstMap, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateRef(collection, id string) error {
	if collection == "" || strings.HasPrefix(collection, "/") || strings.HasSuffix(collection, "/") {
		return fmt.Errorf("docstore: invalid collection %q", collection)
	}
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("docstore: invalid document id %q", id)
	}
	return nil
}
