// Package schema manages the engine's versioned schema: the current-version
// constant, the ordered migration list, the forward-only migration runner,
// pre-migration backups with bounded retention, and schema verification.
package schema

import (
	"database/sql"
	"fmt"

	"github.com/ocrprov/engine/internal/errtax"
)

// CurrentVersion is the schema version this build of the engine targets.
const CurrentVersion = 2

// Step is a single forward migration, applied inside its own transaction.
// Up must be idempotent-safe: it may be invoked against a database where a
// prior run of the same step partially applied (for example after a crash
// mid-step), so it must check before creating tables/columns/indexes rather
// than assume a clean slate.
type Step struct {
	Version     int
	Name        string
	Up          func(tx *sql.Tx) error
	DisablesFKs bool
}

// steps is the ordered list of migrations from v(n) to v(n+1). Index i
// migrates from version i to version i+1.
var steps = []Step{
	{Version: 1, Name: "initial_schema", Up: migrateInitialSchema},
	{Version: 2, Name: "search_indexes", Up: migrateSearchIndexes},
}

// Migrate reads the stored schema_version and applies pending steps in
// order until reaching CurrentVersion. backupFn, if non-nil, is invoked
// before the first step of a migration that starts from a non-zero stored
// version (current > stored > 0), per the pre-migration backup contract.
func Migrate(db *sql.DB, backupFn func(fromVersion int) error) error {
	if err := ensureVersionTable(db); err != nil {
		return err
	}

	stored, err := readVersion(db)
	if err != nil {
		return err
	}

	if stored == CurrentVersion {
		return nil
	}
	if stored > CurrentVersion {
		return errtax.New(errtax.CategoryConfiguration,
			fmt.Sprintf("database schema version %d is newer than this build supports (%d)", stored, CurrentVersion), nil)
	}

	if stored > 0 && backupFn != nil {
		if err := backupFn(stored); err != nil {
			return errtax.New(errtax.CategoryInternal, "pre-migration backup failed", err)
		}
	}

	for _, step := range steps {
		if step.Version <= stored {
			continue
		}

		if err := runStep(db, step); err != nil {
			return errtax.New(errtax.CategoryInternal,
				fmt.Sprintf("migration %q (v%d) failed", step.Name, step.Version), err)
		}
	}

	return nil
}

// runStep brackets a single migration step in BEGIN/COMMIT with ROLLBACK on
// failure, temporarily disabling foreign-key enforcement where requested and
// restoring it in a guaranteed-release block regardless of outcome. SQLite
// requires PRAGMA foreign_keys to be set outside any active transaction, so
// it is toggled before BEGIN and after COMMIT/ROLLBACK.
func runStep(db *sql.DB, step Step) error {
	if step.DisablesFKs {
		if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
			return fmt.Errorf("disable foreign keys: %w", err)
		}
		defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := step.Up(tx); err != nil {
		return fmt.Errorf("apply step: %w", err)
	}

	if err := writeVersion(tx, step.Version); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true

	return nil
}

func ensureVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "create schema_version table", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO schema_version (id, version) VALUES (1, 0)`)
	if err != nil {
		return errtax.New(errtax.CategoryInternal, "initialize schema_version row", err)
	}

	return nil
}

func readVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow(`SELECT version FROM schema_version WHERE id = 1`).Scan(&version); err != nil {
		return 0, errtax.New(errtax.CategoryInternal, "read schema version", err)
	}
	return version, nil
}

func writeVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec(`UPDATE schema_version SET version = ? WHERE id = 1`, version)
	return err
}
