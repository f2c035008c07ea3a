package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// MemoryStore is an in-memory implementation of RecordStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.Kind]map[string]record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[domain.Kind]map[string]record),
	}
}

// Put stores obj, replacing any record with the same kind and key.
func (s *MemoryStore) Put(_ context.Context, obj domain.Object) error {
	body, err := json.Marshal(obj)
	if err != nil {
		return domain.Backend("encode record", err)
	}
	rec, err := recordFor(obj, body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[rec.kind] == nil {
		s.records[rec.kind] = make(map[string]record)
	}
	s.records[rec.kind][rec.key] = rec
	return nil
}

// Get returns a fresh copy of the record.
func (s *MemoryStore) Get(_ context.Context, kind domain.Kind, key string) (domain.Object, error) {
	rec, err := s.find(kind, key)
	if err != nil {
		return nil, err
	}
	obj, err := domain.Decode(kind, rec.body)
	if err != nil {
		return nil, domain.Backend("decode record", err)
	}
	return obj, nil
}

// Exists reports whether the record is stored.
func (s *MemoryStore) Exists(_ context.Context, kind domain.Kind, key string) (bool, error) {
	_, err := s.find(kind, key)
	switch {
	case err == nil:
		return true, nil
	case domain.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Search returns matching records ordered by the matched column.
func (s *MemoryStore) Search(_ context.Context, q Query) ([]domain.Object, error) {
	text, prefix := q.match()

	s.mu.RLock()
	var matches []record
	for _, rec := range s.records[q.Kind] {
		candidate := rec.searchKey
		if q.Field == FieldHandle {
			candidate = rec.key
		}
		if candidate == text || (prefix && strings.HasPrefix(candidate, text)) {
			matches = append(matches, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].searchKey != matches[j].searchKey {
			return matches[i].searchKey < matches[j].searchKey
		}
		return matches[i].key < matches[j].key
	})
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	objs := make([]domain.Object, 0, len(matches))
	for _, rec := range matches {
		obj, err := domain.Decode(q.Kind, rec.body)
		if err != nil {
			return nil, domain.Backend("decode record", err)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// Ping is a no-op for memory store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) find(kind domain.Kind, key string) (record, error) {
	l, err := lookupFor(kind, key)
	if err != nil {
		return record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !l.ranged {
		if rec, ok := s.records[kind][l.key]; ok {
			return rec, nil
		}
		return record{}, domain.NotFoundf("%s %q not found", kind, key)
	}

	var best record
	found := false
	for _, rec := range s.records[kind] {
		if !rec.contains(l) {
			continue
		}
		if !found || rec.moreSpecific(best) {
			best, found = rec, true
		}
	}
	if !found {
		return record{}, domain.NotFoundf("%s %q not found", kind, key)
	}
	return best, nil
}
