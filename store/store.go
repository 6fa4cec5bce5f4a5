// Package store persists platform state in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist or is not
// visible to the caller's company.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a uniqueness or dependency constraint blocks
// the operation.
var ErrConflict = errors.New("store: conflict")

// Store wraps the SQLite database behind typed operations.
type Store struct {
	db     *sql.DB
	dbPath string
}

// execer covers *sql.DB and *sql.Tx for insert helpers shared between
// standalone and transactional writes.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open creates or opens the platform database at dbPath, creating the
// schema on first use.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Checkpoint flushes the write-ahead log into the main database file so
// the file on disk carries every committed write.
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// restoreTables lists every table parent-before-child. RestoreFrom deletes
// in reverse and inserts in this order so foreign keys hold at each step.
var restoreTables = []string{
	"companies", "users", "locations", "tasks", "evidence", "audit_logs",
	"scoping_responses", "utility_meters", "consumption_records",
	"framework_registrations",
}

// RestoreFrom replaces every row in the live database with the contents of
// the SQLite file at srcPath, in a single transaction on one connection.
// Replaying through the open handle keeps the restore visible to the
// connection pool; overwriting the file under a WAL-mode pool would not be.
func (s *Store) RestoreFrom(ctx context.Context, srcPath string) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to pin restore connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "ATTACH DATABASE ? AS restore_src", srcPath); err != nil {
		return fmt.Errorf("failed to attach restored database: %w", err)
	}
	defer conn.ExecContext(ctx, "DETACH DATABASE restore_src")

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin restore transaction: %w", err)
	}
	defer tx.Rollback()

	for i := len(restoreTables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+restoreTables[i]); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", restoreTables[i], err)
		}
	}
	for _, table := range restoreTables {
		stmt := fmt.Sprintf("INSERT INTO %s SELECT * FROM restore_src.%s", table, table)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to restore table %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit restore: %w", err)
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		main_location TEXT NOT NULL,
		business_sector TEXT NOT NULL,
		description TEXT,
		website TEXT,
		phone TEXT,
		active_frameworks_json TEXT,
		scoping_completed INTEGER NOT NULL DEFAULT 0,
		scoping_completed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		full_name TEXT,
		role TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_verified INTEGER NOT NULL DEFAULT 0,
		company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		last_login DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_company ON users(company_id);

	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		location_type TEXT NOT NULL,
		parent_location_id TEXT,
		address TEXT,
		description TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_locations_company ON locations(company_id);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		location_id TEXT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		compliance_context TEXT,
		action_required TEXT,
		status TEXT NOT NULL,
		category TEXT NOT NULL,
		priority TEXT NOT NULL,
		assigned_user_id TEXT,
		framework_tags_json TEXT,
		required_evidence INTEGER NOT NULL DEFAULT 1,
		due_date DATETIME,
		completed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_company ON tasks(company_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date);

	CREATE TABLE IF NOT EXISTS evidence (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		file_path TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		file_hash TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		mime_type TEXT NOT NULL,
		description TEXT,
		uploaded_by TEXT NOT NULL,
		uploaded_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evidence_task ON evidence(task_id);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		details_json TEXT,
		ip_address TEXT,
		user_agent TEXT,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_logs(user_id);

	CREATE TABLE IF NOT EXISTS scoping_responses (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		sector TEXT NOT NULL,
		answers_json TEXT NOT NULL,
		preferences_json TEXT,
		tasks_generated INTEGER NOT NULL DEFAULT 0,
		assessment_score REAL,
		completed_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scoping_company ON scoping_responses(company_id);

	CREATE TABLE IF NOT EXISTS utility_meters (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		location_name TEXT,
		meter_type TEXT NOT NULL,
		meter_number TEXT,
		provider TEXT,
		unit TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_meters_company ON utility_meters(company_id);

	CREATE TABLE IF NOT EXISTS consumption_records (
		id TEXT PRIMARY KEY,
		meter_id TEXT NOT NULL REFERENCES utility_meters(id) ON DELETE CASCADE,
		reading_date DATETIME NOT NULL,
		consumption REAL NOT NULL,
		unit_cost REAL,
		total_cost REAL,
		bill_reference TEXT,
		uploaded_by TEXT NOT NULL,
		uploaded_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_consumption_meter ON consumption_records(meter_id);

	CREATE TABLE IF NOT EXISTS framework_registrations (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		framework_name TEXT NOT NULL,
		registration_number TEXT,
		registration_date DATETIME,
		status TEXT NOT NULL DEFAULT 'pending',
		renewal_date DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE(company_id, framework_name)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// marshalJSON serializes v for a TEXT column, mapping empty values to NULL.
func marshalJSON(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case map[string]string:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal column: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unmarshalStrings(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}

func unmarshalStringMap(raw sql.NullString) map[string]string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	out := make(map[string]string)
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
