// Package storage provides the record-fetch collaborators of the RDAP server:
// an in-memory store, a SQL store for PostgreSQL, MySQL and SQLite, and a
// Redis read-through cache that decorates either of them.
//
// Stores keep the JSON form of each record and decode a fresh graph on every
// read, so callers may redact what they receive in place.
package storage

import (
	"context"
	"strings"

	"github.com/pcarana/rdap-server/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks RecordStore

// RecordStore looks up RDAP records.
type RecordStore interface {
	// Get returns the record of kind identified by key. Autnum and IP keys
	// resolve to the most specific range containing them.
	Get(ctx context.Context, kind domain.Kind, key string) (domain.Object, error)
	// Exists reports whether Get would find a record.
	Exists(ctx context.Context, kind domain.Kind, key string) (bool, error)
	// Search returns records matching q, at most q.Limit of them.
	Search(ctx context.Context, q Query) ([]domain.Object, error)
	// Ping checks the backend.
	Ping(ctx context.Context) error
	Close() error
}

// Writer stores records, replacing any record with the same kind and key.
type Writer interface {
	Put(ctx context.Context, obj domain.Object) error
}

// ReadWriter is a store that can be seeded.
type ReadWriter interface {
	RecordStore
	Writer
}

// SearchField selects what a search pattern is matched against.
type SearchField string

const (
	// FieldName matches domain and nameserver names and entity full names.
	FieldName SearchField = "name"
	// FieldHandle matches the lookup key.
	FieldHandle SearchField = "handle"
)

// Query is a search request. A Pattern ending in '*' matches by prefix,
// otherwise exactly.
type Query struct {
	Kind    domain.Kind
	Field   SearchField
	Pattern string
	// Limit caps the result size; zero means no cap.
	Limit int
}

// match splits the pattern into its literal text and prefix flag.
func (q Query) match() (string, bool) {
	text := strings.TrimSpace(q.Pattern)
	prefix := strings.HasSuffix(text, "*")
	text = strings.TrimSuffix(text, "*")
	if q.Field != FieldHandle {
		text = strings.ToLower(text)
		if q.Kind == domain.KindDomain || q.Kind == domain.KindNameserver {
			text = NormalizeName(text)
		}
	}
	return text, prefix
}
