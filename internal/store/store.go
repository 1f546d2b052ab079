package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rahulclufox/EpubViewerKit/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial bookmark schema
const currentSchemaVersion = 1

// Config is the explicit configuration passed to Open.
type Config struct {
	// Path is the database file location. It is created if missing; its
	// parent directory must exist.
	Path string
}

// Store provides durable storage for bookmarks.
// Uses SQLite with WAL mode and a single connection.
type Store struct {
	// mu serializes write transactions; reads share it.
	mu       sync.RWMutex
	db       *sql.DB
	compiler *querysql.SQLCompiler
}

// Open creates or opens the bookmark database described by cfg.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for crash consistency
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// Every failure is returned as a *StorageError matching
// ErrStorageUnavailable. This function is idempotent - safe to call
// multiple times on the same path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, unavailable("open", errors.New("database path is required"))
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, unavailable("open", fmt.Errorf("failed to open database: %w", err))
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable("open", fmt.Errorf("failed to connect to database: %w", err))
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, unavailable("open", fmt.Errorf("failed to apply pragmas: %w", err))
	}

	if err := checkIntegrity(db); err != nil {
		db.Close()
		return nil, unavailable("open", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, unavailable("open", fmt.Errorf("failed to apply schema: %w", err))
	}

	return &Store{
		db:       db,
		compiler: querysql.NewSQLCompiler(),
	}, nil
}

// Close closes the database connection.
// Should be called once at process teardown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// checkIntegrity runs a quick structural check so a corrupt file fails at
// Open instead of on the first read.
func checkIntegrity(db *sql.DB) error {
	var result string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

// applySchema creates tables if they don't exist and stamps the version.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRowContext(context.Background(), query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
