package versioning

import (
	"context"
	"sort"
	"sync"

	"github.com/dvloznov/budget-sync/internal/budget"
)

// MemoryStore keeps encoded version records in process memory.
type MemoryStore struct {
	keys *keyedMutex

	mu      sync.RWMutex
	records map[budget.Identity][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:    newKeyedMutex(),
		records: make(map[budget.Identity][]byte),
	}
}

// PutRaw stores data as the record of id without checking it.
func (s *MemoryStore) PutRaw(id budget.Identity, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = append([]byte(nil), data...)
}

// Get returns the version of id, or nil when it has never been seen.
func (s *MemoryStore) Get(_ context.Context, id budget.Identity) (*budget.BudgetVersion, error) {
	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	v, err := decodeRecord(id, data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Update runs fn inside the critical section of id.
func (s *MemoryStore) Update(ctx context.Context, id budget.Identity, fn UpdateFunc) (budget.BudgetVersion, error) {
	unlock := s.keys.lock(id)
	defer unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return budget.BudgetVersion{}, err
	}

	siblings, err := s.siblings(id)
	if err != nil {
		return budget.BudgetVersion{}, err
	}

	next, err := fn(current, siblings)
	if err != nil {
		return budget.BudgetVersion{}, err
	}

	data, err := encodeRecord(next)
	if err != nil {
		return budget.BudgetVersion{}, err
	}
	s.mu.Lock()
	s.records[id] = data
	s.mu.Unlock()
	return next, nil
}

// siblings decodes the other sheets of the spreadsheet.
func (s *MemoryStore) siblings(id budget.Identity) ([]budget.BudgetVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []budget.BudgetVersion
	for other, data := range s.records {
		if other.SpreadsheetID != id.SpreadsheetID || other == id {
			continue
		}
		v, err := decodeRecord(other, data)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SheetName < out[j].SheetName })
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
