package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// MemoryStore is the test double for Store. Records round-trip through JSON
// on the way in and out so tests see the same value types the gorm-backed
// store produces.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return roundTrip(rec)
}

func (s *MemoryStore) Put(_ context.Context, collection, id string, rec Record) error {
	clean, err := roundTrip(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]Record)
	}
	s.data[collection][id] = clean
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], id)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, filters []Filter, order *Order, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.data[collection]))
	for id := range s.data[collection] {
		ids = append(ids, id)
	}
	// stable base order before the explicit ordering is applied
	sort.Strings(ids)

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := roundTrip(s.data[collection][id])
		if err != nil {
			return nil, err
		}
		if matches(rec, filters) {
			out = append(out, rec)
		}
	}

	sortRecords(out, order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func roundTrip(rec Record) (Record, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
