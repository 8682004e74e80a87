package versioning

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/dvloznov/budget-sync/internal/budget"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore keeps one JSON file per sheet identity under a root directory:
// {root}/{spreadsheet}/{sheet}.json. Each file is guarded by an advisory
// lock file so several processes can share the directory.
type FileStore struct {
	root string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("NewFileStore: create %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// pathKey makes s safe as a single path element.
func pathKey(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ".", "%2E")
}

func (s *FileStore) dir(spreadsheetID string) string {
	return filepath.Join(s.root, pathKey(spreadsheetID))
}

func (s *FileStore) path(id budget.Identity) string {
	return filepath.Join(s.dir(id.SpreadsheetID), pathKey(id.SheetName)+".json")
}

// Get returns the version of id, or nil when it has never been seen.
func (s *FileStore) Get(_ context.Context, id budget.Identity) (*budget.BudgetVersion, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &budget.VersionStoreError{SpreadsheetID: id.SpreadsheetID, SheetName: id.SheetName, Err: err}
	}
	v, err := decodeRecord(id, data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Update holds the identity's lock file while reading, computing and
// atomically replacing the record.
func (s *FileStore) Update(ctx context.Context, id budget.Identity, fn UpdateFunc) (budget.BudgetVersion, error) {
	if err := os.MkdirAll(s.dir(id.SpreadsheetID), 0o755); err != nil {
		return budget.BudgetVersion{}, fmt.Errorf("FileStore.Update: %w", err)
	}

	path := s.path(id)
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return budget.BudgetVersion{}, fmt.Errorf("FileStore.Update: lock %s: %w", id, err)
	}
	if !locked {
		return budget.BudgetVersion{}, fmt.Errorf("FileStore.Update: lock %s: not acquired", id)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	current, err := s.Get(ctx, id)
	if err != nil {
		return budget.BudgetVersion{}, err
	}
	siblings, err := s.siblings(ctx, id)
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
	if err := writeFileAtomic(path, data); err != nil {
		return budget.BudgetVersion{}, fmt.Errorf("FileStore.Update: %w", err)
	}
	return next, nil
}

func (s *FileStore) siblings(ctx context.Context, id budget.Identity) ([]budget.BudgetVersion, error) {
	entries, err := os.ReadDir(s.dir(id.SpreadsheetID))
	if err != nil {
		return nil, fmt.Errorf("FileStore.siblings: %w", err)
	}

	own := filepath.Base(s.path(id))
	var out []budget.BudgetVersion
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == own || !strings.HasSuffix(name, ".json") {
			continue
		}
		sheetName, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		other := budget.Identity{SpreadsheetID: id.SpreadsheetID, SheetName: sheetName}
		v, err := s.Get(ctx, other)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SheetName < out[j].SheetName })
	return out, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Close is a no-op; locks are released after each Update.
func (s *FileStore) Close() error { return nil }
