// Package state manages the SQLite database holding holiday records, the
// key-value settings table, and the append-only sync log.
//
// Only this package may open or query the database. All other packages receive
// a [*Store] and call its methods.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/njoerd114/holidaysync/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS holidays (
    id         TEXT    PRIMARY KEY,
    title      TEXT    NOT NULL,
    date       TEXT    NOT NULL,
    category   TEXT    NOT NULL,
    color      TEXT    NOT NULL DEFAULT '',
    source     TEXT    NOT NULL,
    visible    INTEGER NOT NULL DEFAULT 1,
    recurring  INTEGER NOT NULL DEFAULT 0,
    created_at TEXT    NOT NULL,
    updated_at TEXT    NOT NULL,
    UNIQUE (title, date, source)
);

CREATE INDEX IF NOT EXISTS idx_holidays_date      ON holidays (date);
CREATE INDEX IF NOT EXISTS idx_holidays_recurring ON holidays (recurring) WHERE recurring = 1;

CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_logs (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    source    TEXT    NOT NULL,
    status    TEXT    NOT NULL,
    message   TEXT    NOT NULL DEFAULT '',
    synced_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_logs_synced_at ON sync_logs (synced_at);
`

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the SQLite-backed repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultDBPath returns the default path for the database:
// ~/.local/share/holidaysync/holidays.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "holidaysync", "holidays.db"), nil
}

// Open opens (or creates) the SQLite database at path, applies the schema, and
// configures WAL mode for better concurrent read performance.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the schema DDL idempotently (CREATE IF NOT EXISTS).
func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// --- holidays ----------------------------------------------------------------

const holidayColumns = `id, title, date, category, color, source, visible, recurring, created_at, updated_at`

// HolidayFilter narrows ListHolidays. Zero values match everything.
type HolidayFilter struct {
	Year        int
	Category    model.Category
	VisibleOnly bool
}

// FindHoliday returns the record with the exact (title, date, source) key,
// or (nil, nil) if none exists.
func (s *Store) FindHoliday(ctx context.Context, title, date, source string) (*model.HolidayRecord, error) {
	q := `SELECT ` + holidayColumns + ` FROM holidays WHERE title = ? AND date = ? AND source = ?`
	return scanHoliday(s.db.QueryRowContext(ctx, q, title, date, source))
}

// FindHolidayByTitleDate returns any record with the given title and date
// regardless of source, or (nil, nil) if none exists.
func (s *Store) FindHolidayByTitleDate(ctx context.Context, title, date string) (*model.HolidayRecord, error) {
	q := `SELECT ` + holidayColumns + ` FROM holidays WHERE title = ? AND date = ? ORDER BY created_at LIMIT 1`
	return scanHoliday(s.db.QueryRowContext(ctx, q, title, date))
}

// GetHoliday returns the record with the given ID, or (nil, nil).
func (s *Store) GetHoliday(ctx context.Context, id string) (*model.HolidayRecord, error) {
	q := `SELECT ` + holidayColumns + ` FROM holidays WHERE id = ?`
	return scanHoliday(s.db.QueryRowContext(ctx, q, id))
}

// CreateHoliday inserts h and reports whether a row was written. A row with
// the same (title, date, source) already present is not an error: the insert
// is skipped and created is false. ID and timestamps are filled in when empty.
func (s *Store) CreateHoliday(ctx context.Context, h *model.HolidayRecord) (bool, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = now
	}

	const q = `
		INSERT INTO holidays (` + holidayColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (title, date, source) DO NOTHING`

	res, err := s.db.ExecContext(ctx, q,
		h.ID,
		h.Title,
		h.Date,
		string(h.Category),
		h.Color,
		h.Source,
		boolToInt(h.Visible),
		boolToInt(h.Recurring),
		formatTime(h.CreatedAt),
		formatTime(h.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting holiday %q on %s: %w", h.Title, h.Date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting holiday %q on %s: %w", h.Title, h.Date, err)
	}
	return n == 1, nil
}

// ListRecurring returns every record flagged recurring, oldest date first.
func (s *Store) ListRecurring(ctx context.Context) ([]*model.HolidayRecord, error) {
	q := `SELECT ` + holidayColumns + ` FROM holidays WHERE recurring = 1 ORDER BY date, title`
	return s.queryHolidays(ctx, q)
}

// ListHolidays returns records matching f ordered by date then title.
func (s *Store) ListHolidays(ctx context.Context, f HolidayFilter) ([]*model.HolidayRecord, error) {
	q := `SELECT ` + holidayColumns + ` FROM holidays WHERE 1 = 1`
	var args []any
	if f.Year > 0 {
		q += ` AND substr(date, 1, 4) = ?`
		args = append(args, fmt.Sprintf("%04d", f.Year))
	}
	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, string(f.Category))
	}
	if f.VisibleOnly {
		q += ` AND visible = 1`
	}
	q += ` ORDER BY date, title`
	return s.queryHolidays(ctx, q, args...)
}

// SetHolidayFlags updates the admin-controlled visible and recurring flags.
func (s *Store) SetHolidayFlags(ctx context.Context, id string, visible, recurring bool) error {
	const q = `UPDATE holidays SET visible = ?, recurring = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, boolToInt(visible), boolToInt(recurring), formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("updating holiday id=%s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating holiday id=%s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// DeleteHoliday removes the record with the given ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	const q = `DELETE FROM holidays WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting holiday id=%s: %w", id, err)
	}
	return nil
}

// CountHolidays returns the number of stored holiday records.
func (s *Store) CountHolidays(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM holidays`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting holidays: %w", err)
	}
	return count, nil
}

func (s *Store) queryHolidays(ctx context.Context, q string, args ...any) ([]*model.HolidayRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying holidays: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.HolidayRecord
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// --- settings ----------------------------------------------------------------

// GetSetting returns the value stored under key. ok is false when the key
// has never been written.
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, true, nil
}

// SetSetting writes value under key, replacing any previous value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
		    value      = excluded.value,
		    updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, value, formatTime(s.now())); err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

// --- sync log ----------------------------------------------------------------

// AppendSyncLog inserts e and sets its ID. SyncedAt defaults to now.
func (s *Store) AppendSyncLog(ctx context.Context, e *model.SyncLogEntry) error {
	if e.SyncedAt.IsZero() {
		e.SyncedAt = s.now().UTC()
	}
	const q = `INSERT INTO sync_logs (source, status, message, synced_at) VALUES (?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, e.Source, string(e.Status), e.Message, formatTime(e.SyncedAt))
	if err != nil {
		return fmt.Errorf("appending sync log for %q: %w", e.Source, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// RecentSyncLogs returns at most limit entries, newest first.
func (s *Store) RecentSyncLogs(ctx context.Context, limit int) ([]*model.SyncLogEntry, error) {
	const q = `
		SELECT id, source, status, message, synced_at
		FROM sync_logs ORDER BY synced_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.SyncLogEntry
	for rows.Next() {
		var e model.SyncLogEntry
		var status, syncedAt string
		if err := rows.Scan(&e.ID, &e.Source, &status, &e.Message, &syncedAt); err != nil {
			return nil, fmt.Errorf("scanning sync log row: %w", err)
		}
		e.Status = model.SyncStatus(status)
		e.SyncedAt, _ = parseTime(syncedAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// DeleteSyncLogsBefore purges entries older than t. It is an administrative
// operation; the sync engine never deletes log entries.
func (s *Store) DeleteSyncLogsBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sync_logs WHERE synced_at < ?`, formatTime(t))
	if err != nil {
		return 0, fmt.Errorf("purging sync logs: %w", err)
	}
	return res.RowsAffected()
}

// --- helpers -----------------------------------------------------------------

// scanner matches both *sql.Row and *sql.Rows so scanHoliday can be reused.
type scanner interface {
	Scan(dest ...any) error
}

func scanHoliday(s scanner) (*model.HolidayRecord, error) {
	var h model.HolidayRecord
	var category string
	var visible, recurring int
	var createdAt, updatedAt string

	err := s.Scan(
		&h.ID,
		&h.Title,
		&h.Date,
		&category,
		&h.Color,
		&h.Source,
		&visible,
		&recurring,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning holiday row: %w", err)
	}

	h.Category = model.Category(category)
	h.Visible = visible != 0
	h.Recurring = recurring != 0
	h.CreatedAt, _ = parseTime(createdAt)
	h.UpdatedAt, _ = parseTime(updatedAt)

	return &h, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
