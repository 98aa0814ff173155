// Package store implements the entity storage layer: per-entity CRUD,
// batch insert, pagination, polymorphic tags, and the cascade-delete
// engine, all against a single-writer SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/ocrprov/engine/internal/errtax"
	"github.com/ocrprov/engine/internal/provenance"
	"github.com/ocrprov/engine/internal/schema"
)

// Store wraps the single writable SQLite connection for one database file.
type Store struct {
	db    *sql.DB
	path  string
	chain *provenance.Chain
}

// Open opens (creating if necessary) the SQLite database at path, applies
// WAL-mode pragmas tuned for a single-writer workload, and runs pending
// schema migrations under the cross-process migration lock.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errtax.New(errtax.CategoryInternal, "create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errtax.New(errtax.CategoryInternal, "open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errtax.New(errtax.CategoryInternal, fmt.Sprintf("set pragma %q", pragma), err)
		}
	}

	migrate := func() error {
		return schema.Migrate(db, func(fromVersion int) error {
			if path == ":memory:" {
				return nil
			}
			if err := schema.Backup(db, path, fromVersion); err != nil {
				return err
			}
			return schema.PruneBackups(path)
		})
	}

	if path == ":memory:" {
		err = migrate()
	} else {
		err = schema.WithMigrationLock(path, migrate)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	chain, err := provenance.New(db, 4096)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path, chain: chain}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for packages (search) that share this
// connection rather than opening their own.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Chain returns the provenance chain-hash cache shared by this store, used
// by cascade delete to invalidate memoized lookups for records it removes
// or re-parents.
func (s *Store) Chain() *provenance.Chain {
	return s.chain
}

// Path returns the database file path Store was opened with.
func (s *Store) Path() string {
	return s.path
}

// liftFK rewrites a SQLite foreign-key-constraint error into a human
// readable context string naming the violating column, falling back to the
// original error unchanged when it isn't an FK violation.
func liftFK(err error, context string) error {
	if err == nil {
		return nil
	}
	if isForeignKeyError(err) {
		return errtax.New(errtax.CategoryValidation, fmt.Sprintf("foreign key violation: %s", context), err)
	}
	return err
}

func isForeignKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint failed")
}
