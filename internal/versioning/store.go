package versioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/budget-sync/internal/budget"
)

// UpdateFunc computes the next version of a sheet identity. current is nil
// on first sighting; siblings are the versions stored for other sheet names
// of the same spreadsheet.
type UpdateFunc func(current *budget.BudgetVersion, siblings []budget.BudgetVersion) (budget.BudgetVersion, error)

// Store persists one BudgetVersion per sheet identity.
//
// Update is a read-modify-write critical section scoped to the identity:
// concurrent calls for the same identity are serialized, calls for
// different identities do not wait on each other. When the stored record
// of the identity or of a sibling sheet is unreadable, Update returns a
// *budget.VersionStoreError without calling fn and leaves the records
// untouched.
type Store interface {
	Get(ctx context.Context, id budget.Identity) (*budget.BudgetVersion, error)
	Update(ctx context.Context, id budget.Identity, fn UpdateFunc) (budget.BudgetVersion, error)
	Close() error
}

var errMalformedRecord = errors.New("malformed version record")

// encodeRecord serializes a version for the memory and file backends.
func encodeRecord(v budget.BudgetVersion) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encodeRecord: %w", err)
	}
	return data, nil
}

// decodeRecord parses a stored record and checks that it belongs to id.
func decodeRecord(id budget.Identity, data []byte) (budget.BudgetVersion, error) {
	var v budget.BudgetVersion
	if err := json.Unmarshal(data, &v); err != nil {
		return v, &budget.VersionStoreError{SpreadsheetID: id.SpreadsheetID, SheetName: id.SheetName, Err: err}
	}
	if err := checkRecord(id, v); err != nil {
		return v, err
	}
	return v, nil
}

func checkRecord(id budget.Identity, v budget.BudgetVersion) error {
	var reason string
	switch {
	case v.Identity() != id:
		reason = fmt.Sprintf("record is for %s", v.Identity())
	case v.Major < 1 || v.Minor < 0 || v.Patch < 0:
		reason = fmt.Sprintf("invalid version %d.%d.%d", v.Major, v.Minor, v.Patch)
	case v.ContentHash == "":
		reason = "content hash is empty"
	default:
		return nil
	}
	return &budget.VersionStoreError{
		SpreadsheetID: id.SpreadsheetID,
		SheetName:     id.SheetName,
		Err:           fmt.Errorf("%w: %s", errMalformedRecord, reason),
	}
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[budget.Identity]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[budget.Identity]*refMutex)}
}

// lock blocks until the key is free and returns its unlock function.
func (k *keyedMutex) lock(id budget.Identity) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
