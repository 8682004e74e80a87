package versioning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dvloznov/budget-sync/internal/budget"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS budget_versions (
    spreadsheet_id      TEXT NOT NULL,
    sheet_name          TEXT NOT NULL,
    version_id          TEXT NOT NULL,
    major               INTEGER NOT NULL,
    minor               INTEGER NOT NULL,
    patch               INTEGER NOT NULL,
    content_hash        TEXT NOT NULL,
    first_seen          TEXT NOT NULL,
    last_updated        TEXT NOT NULL,
    previous_version_id TEXT,
    PRIMARY KEY (spreadsheet_id, sheet_name)
)`

// SQLiteStore keeps version records in a SQLite database. Updates of one
// identity are serialized in-process by a keyed mutex and across processes
// by an immediate write transaction.
type SQLiteStore struct {
	db   *sql.DB
	keys *keyedMutex
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLite: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("OpenSQLite: apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("OpenSQLite: create schema: %w", err)
	}

	return &SQLiteStore{db: db, keys: newKeyedMutex()}, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectVersion = `SELECT spreadsheet_id, sheet_name, version_id, major, minor, patch,
    content_hash, first_seen, last_updated, previous_version_id FROM budget_versions`

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (budget.BudgetVersion, string, string, error) {
	var (
		v                     budget.BudgetVersion
		firstSeen, lastUpdate string
		previous              sql.NullString
	)
	err := row.Scan(&v.SpreadsheetID, &v.SheetName, &v.VersionID, &v.Major, &v.Minor, &v.Patch,
		&v.ContentHash, &firstSeen, &lastUpdate, &previous)
	v.PreviousVersionID = previous.String
	return v, firstSeen, lastUpdate, err
}

// parseTimes fills the timestamps of v and checks the record.
func parseTimes(id budget.Identity, v *budget.BudgetVersion, firstSeen, lastUpdated string) error {
	var err error
	if v.FirstSeen, err = time.Parse(time.RFC3339Nano, firstSeen); err == nil {
		v.LastUpdated, err = time.Parse(time.RFC3339Nano, lastUpdated)
	}
	if err != nil {
		return &budget.VersionStoreError{SpreadsheetID: id.SpreadsheetID, SheetName: id.SheetName, Err: err}
	}
	return checkRecord(id, *v)
}

func (s *SQLiteStore) get(ctx context.Context, q queryer, id budget.Identity) (*budget.BudgetVersion, error) {
	row := q.QueryRowContext(ctx, selectVersion+` WHERE spreadsheet_id = ? AND sheet_name = ?`,
		id.SpreadsheetID, id.SheetName)
	v, firstSeen, lastUpdated, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &budget.VersionStoreError{SpreadsheetID: id.SpreadsheetID, SheetName: id.SheetName, Err: err}
	}
	if err := parseTimes(id, &v, firstSeen, lastUpdated); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteStore) siblings(ctx context.Context, q queryer, id budget.Identity) ([]budget.BudgetVersion, error) {
	rows, err := q.QueryContext(ctx, selectVersion+` WHERE spreadsheet_id = ? AND sheet_name <> ? ORDER BY sheet_name`,
		id.SpreadsheetID, id.SheetName)
	if err != nil {
		return nil, fmt.Errorf("SQLiteStore.siblings: %w", err)
	}
	defer rows.Close()

	var out []budget.BudgetVersion
	for rows.Next() {
		v, firstSeen, lastUpdated, err := scanVersion(rows)
		if err != nil {
			return nil, &budget.VersionStoreError{SpreadsheetID: id.SpreadsheetID, SheetName: v.SheetName, Err: err}
		}
		if err := parseTimes(v.Identity(), &v, firstSeen, lastUpdated); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SQLiteStore.siblings: %w", err)
	}
	return out, nil
}

// Get returns the version of id, or nil when it has never been seen.
func (s *SQLiteStore) Get(ctx context.Context, id budget.Identity) (*budget.BudgetVersion, error) {
	return s.get(ctx, s.db, id)
}

// Update runs fn inside an immediate transaction while holding the
// identity's in-process lock.
func (s *SQLiteStore) Update(ctx context.Context, id budget.Identity, fn UpdateFunc) (result budget.BudgetVersion, err error) {
	unlock := s.keys.lock(id)
	defer unlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return budget.BudgetVersion{}, fmt.Errorf("SQLiteStore.Update: conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return budget.BudgetVersion{}, fmt.Errorf("SQLiteStore.Update: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	current, err := s.get(ctx, conn, id)
	if err != nil {
		return budget.BudgetVersion{}, err
	}
	siblings, err := s.siblings(ctx, conn, id)
	if err != nil {
		return budget.BudgetVersion{}, err
	}

	next, err := fn(current, siblings)
	if err != nil {
		return budget.BudgetVersion{}, err
	}

	_, err = conn.ExecContext(ctx, `
        INSERT INTO budget_versions (
            spreadsheet_id, sheet_name, version_id, major, minor, patch,
            content_hash, first_seen, last_updated, previous_version_id
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (spreadsheet_id, sheet_name) DO UPDATE SET
            version_id = excluded.version_id,
            major = excluded.major,
            minor = excluded.minor,
            patch = excluded.patch,
            content_hash = excluded.content_hash,
            first_seen = excluded.first_seen,
            last_updated = excluded.last_updated,
            previous_version_id = excluded.previous_version_id`,
		next.SpreadsheetID, next.SheetName, next.VersionID, next.Major, next.Minor, next.Patch,
		next.ContentHash,
		next.FirstSeen.UTC().Format(time.RFC3339Nano),
		next.LastUpdated.UTC().Format(time.RFC3339Nano),
		nullableString(next.PreviousVersionID),
	)
	if err != nil {
		return budget.BudgetVersion{}, fmt.Errorf("SQLiteStore.Update: upsert: %w", err)
	}

	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return budget.BudgetVersion{}, fmt.Errorf("SQLiteStore.Update: commit: %w", err)
	}
	return next, nil
}

// Exec runs a raw statement. Used by tooling and tests to repair or
// inspect records.
func (s *SQLiteStore) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("SQLiteStore.Exec: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
