package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"
	schemaVersion    = 1
)

// Record is one persisted location row. Path is relative to the project root
// with forward slashes.
type Record struct {
	FQName      string
	Path        string
	Fingerprint string
}

// Store persists location records in a sqlite database.
type Store struct {
	db   *sql.DB
	path string
}

// errSchemaTooNew marks a database written by a newer release.
type errSchemaTooNew struct {
	found int
}

func (e errSchemaTooNew) Error() string {
	return fmt.Sprintf("index schema version %d is newer than supported version %d", e.found, schemaVersion)
}

func OpenStore(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("index store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("index store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite index %q: %w", cleanPath, err)
	}
	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: cleanPath}, nil
}

func migrateSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read index schema version: %w", err)
	}
	if version > schemaVersion {
		return errSchemaTooNew{found: version}
	}
	if version == schemaVersion {
		return nil
	}

	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS locations (
  fq_name TEXT PRIMARY KEY,
  path TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  updated_at INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
PRAGMA user_version = 1;
`)
	if err != nil {
		return fmt.Errorf("create v1 index schema: %w", err)
	}
	return nil
}

// Load returns every well-formed row. Rows with an empty column are skipped.
func (s *Store) Load() ([]Record, error) {
	rows, err := s.db.Query(`SELECT fq_name, path, fingerprint FROM locations ORDER BY fq_name`)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.FQName, &rec.Path, &rec.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan location row: %w", err)
		}
		if strings.TrimSpace(rec.FQName) == "" || strings.TrimSpace(rec.Path) == "" || strings.TrimSpace(rec.Fingerprint) == "" {
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate location rows: %w", err)
	}
	return out, nil
}

// Apply upserts and deletes rows and records the run id in one transaction.
func (s *Store) Apply(upserts []Record, deletes []string, runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin index transaction: %w", err)
	}

	now := time.Now().Unix()
	for _, rec := range upserts {
		if _, err := tx.Exec(`INSERT INTO locations (fq_name, path, fingerprint, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(fq_name) DO UPDATE SET path = excluded.path, fingerprint = excluded.fingerprint, updated_at = excluded.updated_at`,
			rec.FQName, rec.Path, rec.Fingerprint, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert location %q: %w", rec.FQName, err)
		}
	}
	for _, name := range deletes {
		if _, err := tx.Exec(`DELETE FROM locations WHERE fq_name = ?`, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete location %q: %w", name, err)
		}
	}
	if runID != "" {
		if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('last_run_id', ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, runID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record run id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index transaction: %w", err)
	}
	return nil
}

// Meta returns a value from the meta table, or "" when unset.
func (s *Store) Meta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// removeStoreFiles deletes the database together with its WAL side files.
func removeStoreFiles(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
