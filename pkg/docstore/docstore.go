// Package docstore is the document database collaborator: named collections
// of schemaless documents addressed by slash-separated paths, with
// server-assigned timestamps, queries, live subscriptions and created-document
// triggers. Backends live in the sub-packages.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPath = errors.New("invalid document path")
	ErrNotFound    = errors.New("document not found")
)

type serverTimestamp struct{}

// ServerTimestamp is a field value placeholder that every backend replaces
// with its own notion of "now" at write time.
var ServerTimestamp = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp placeholder.
func IsServerTimestamp(v interface{}) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Doc is a single document read from a collection.
type Doc struct {
	ID         string
	Collection string
	Data       map[string]interface{}
}

// Path returns the full document path, e.g. "users/u1/messages/m1".
func (d Doc) Path() string { return d.Collection + "/" + d.ID }

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value interface{}
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

type Query struct {
	Filters []Filter
	OrderBy string
	Dir     Direction
	Limit   int
}

// Where returns a query with a single equality filter.
func Where(field string, value interface{}) Query {
	return Query{Filters: []Filter{{Field: field, Value: value}}}
}

// Unsubscribe stops a live subscription. It is safe to call more than once.
type Unsubscribe func()

// Store is the generic document store used by every component.
type Store interface {
	// Create adds a document with a store-assigned id.
	Create(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Get returns nil, nil when the document does not exist.
	Get(ctx context.Context, collection, id string) (*Doc, error)
	// Update writes fields. With merge the existing fields are kept and the
	// document is created when absent; without merge the document is replaced.
	Update(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Doc, error)
	// SubscribeDoc calls cb with the current document (nil when absent) and
	// again after every change until unsubscribed.
	SubscribeDoc(ctx context.Context, collection, id string, cb func(*Doc)) (Unsubscribe, error)
	// SubscribeQuery calls cb with the full result set after every change.
	SubscribeQuery(ctx context.Context, collection string, q Query, cb func([]Doc)) (Unsubscribe, error)
}

// Join builds a path from segments.
func Join(segments ...string) string { return strings.Join(segments, "/") }

// SplitDocPath splits "a/b/c/d" into collection "a/b/c" and id "d".
func SplitDocPath(path string) (collection, id string, err error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, s := range segs {
		if s == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// ValidCollection reports whether path names a collection (odd segment count).
func ValidCollection(path string) bool {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 1 {
		return false
	}
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of a document's fields.
func Clone(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// String reads a string field, returning "" when it is absent or not a string.
func String(data map[string]interface{}, field string) string {
	if s, ok := data[field].(string); ok {
		return s
	}
	return ""
}

// Bool reads a boolean field.
func Bool(data map[string]interface{}, field string) bool {
	b, _ := data[field].(bool)
	return b
}

// Int reads a numeric field written by any backend.
func Int(data map[string]interface{}, field string) int64 {
	switch v := data[field].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// Time reads a timestamp field. Backends normalise their native timestamp
// types to time.Time before returning documents.
func Time(data map[string]interface{}, field string) time.Time {
	switch v := data[field].(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	}
	return time.Time{}
}

// Has reports whether field is present with a non-empty value.
func Has(data map[string]interface{}, field string) bool {
	v, ok := data[field]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}
