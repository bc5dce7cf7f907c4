package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/wirestream/internal/store"
)

// Schema holds every table the store needs. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS set_members (
	key    TEXT NOT NULL,
	member TEXT NOT NULL,
	PRIMARY KEY (key, member)
);

CREATE TABLE IF NOT EXISTS map_fields (
	key   TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (key, field)
);

CREATE TABLE IF NOT EXISTS counters (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS list_items (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	key   TEXT NOT NULL,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_list_items_key ON list_items(key, id);
`

// SQLiteStore implements store.Store for SQLite.
// Several processes on one host may share the same database file.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup creates a new SQLite store, applies the schema and then runs
// a setup function. Useful for tests to seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	// Immediate transactions take the write lock up front so read-then-write
	// sequences stay atomic across processes.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ==== KVStore implementation ====

// Get returns the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("query kv: %w", err)
	}
	return value, nil
}

// Set stores value under key.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert kv: %w", err)
	}
	return nil
}

// ==== SetStore implementation ====

// SetAdd inserts member into the set at key.
func (s *SQLiteStore) SetAdd(ctx context.Context, key, member string) error {
	query := `INSERT OR IGNORE INTO set_members (key, member) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, key, member); err != nil {
		return fmt.Errorf("insert set member: %w", err)
	}
	return nil
}

// SetMembers returns all members of the set at key.
func (s *SQLiteStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT member FROM set_members WHERE key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("query set members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan set member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// ==== MapStore implementation ====

// MapPutIfAbsent sets field only if it is not present yet.
func (s *SQLiteStore) MapPutIfAbsent(ctx context.Context, key, field, value string) (bool, error) {
	query := `INSERT OR IGNORE INTO map_fields (key, field, value) VALUES (?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, key, field, value)
	if err != nil {
		return false, fmt.Errorf("insert map field: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n == 1, nil
}

// MapDelete removes field from the map at key.
func (s *SQLiteStore) MapDelete(ctx context.Context, key, field string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM map_fields WHERE key = ? AND field = ?`, key, field)
	if err != nil {
		return false, fmt.Errorf("delete map field: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n > 0, nil
}

// MapGetAll returns every field of the map at key.
func (s *SQLiteStore) MapGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT field, value FROM map_fields WHERE key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("query map fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("scan map field: %w", err)
		}
		out[field] = value
	}

	return out, rows.Err()
}

// ==== CounterStore implementation ====

// CounterIncr increments the counter at key.
func (s *SQLiteStore) CounterIncr(ctx context.Context, key string) (int64, error) {
	query := `
		INSERT INTO counters (key, value) VALUES (?, 1)
		ON CONFLICT(key) DO UPDATE SET value = value + 1
		RETURNING value
	`
	var value int64
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return value, nil
}

// CounterDecrFloor decrements the counter at key, never below zero.
func (s *SQLiteStore) CounterDecrFloor(ctx context.Context, key string) (int64, error) {
	query := `UPDATE counters SET value = MAX(value - 1, 0) WHERE key = ? RETURNING value`
	var value int64
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("decrement counter: %w", err)
	}
	return value, nil
}

// CounterGet returns the counter at key.
func (s *SQLiteStore) CounterGet(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM counters WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query counter: %w", err)
	}
	return value, nil
}

// ==== ListStore implementation ====

// ListAppendUnlessLast appends value unless it repeats the list tail.
func (s *SQLiteStore) ListAppendUnlessLast(ctx context.Context, key, value string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	var last string
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM list_items WHERE key = ? ORDER BY id DESC LIMIT 1`, key,
	).Scan(&last)
	switch {
	case err == nil:
		if last == value {
			return false, nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return false, fmt.Errorf("query list tail: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO list_items (key, value) VALUES (?, ?)`, key, value); err != nil {
		return false, fmt.Errorf("insert list item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

// ListRange returns the whole list at key in append order.
func (s *SQLiteStore) ListRange(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM list_items WHERE key = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("query list items: %w", err)
	}
	defer rows.Close()

	items := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan list item: %w", err)
		}
		items = append(items, v)
	}

	return items, rows.Err()
}

var _ store.Store = (*SQLiteStore)(nil)
