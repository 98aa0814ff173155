package schema

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/ocrprov/engine/internal/errtax"
)

// MaxBackups is the number of pre-migration backups retained per database,
// pruned in version order after a successful migration.
const MaxBackups = 3

// sidecarSuffixes are SQLite's WAL-mode sidecar file extensions, copied and
// pruned alongside the main data file.
var sidecarSuffixes = []string{"-wal", "-shm"}

// backupNamePattern matches "<db>.pre-migrate-v<N>" and captures N.
var backupNamePattern = regexp.MustCompile(`\.pre-migrate-v(\d+)$`)

// Backup checkpoints the write-ahead log in truncate mode, then copies the
// main database file plus any sidecar WAL/SHM files to
// "<dbPath>.pre-migrate-v<fromVersion>". An existing backup for the same
// version is left untouched rather than overwritten.
func Backup(db *sql.DB, dbPath string, fromVersion int) error {
	backupPath := fmt.Sprintf("%s.pre-migrate-v%d", dbPath, fromVersion)
	if _, err := os.Stat(backupPath); err == nil {
		return nil
	}

	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errtax.New(errtax.CategoryInternal, "checkpoint WAL before backup", err)
	}

	if err := copyFile(dbPath, backupPath); err != nil {
		return errtax.New(errtax.CategoryInternal, "copy database file for backup", err)
	}

	for _, suffix := range sidecarSuffixes {
		src := dbPath + suffix
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, backupPath+suffix); err != nil {
			return errtax.New(errtax.CategoryInternal, "copy sidecar file for backup", err)
		}
	}

	return nil
}

// PruneBackups keeps at most MaxBackups backups for dbPath, sorted by the
// version integer embedded in the backup filename, removing the oldest
// along with their sidecar files.
func PruneBackups(dbPath string) error {
	backups, err := ListBackups(dbPath)
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}

	for _, b := range backups[MaxBackups:] {
		_ = os.Remove(b.Path)
		for _, suffix := range sidecarSuffixes {
			_ = os.Remove(b.Path + suffix)
		}
	}

	return nil
}

// BackupFile describes one pre-migration backup file discovered on disk.
type BackupFile struct {
	Path    string
	Version int
}

// ListBackups returns all pre-migration backups for dbPath, sorted by
// version descending (newest first).
func ListBackups(dbPath string) ([]BackupFile, error) {
	dir := filepath.Dir(dbPath)
	base := filepath.Base(dbPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errtax.New(errtax.CategoryInternal, "list backup directory", err)
	}

	var backups []BackupFile
	prefix := base + ".pre-migrate-v"
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		// Skip sidecar copies (e.g. "...pre-migrate-v3-wal"); only the
		// main-file backup is a member of the counted set.
		if hasSidecarSuffix(name) {
			continue
		}

		match := backupNamePattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		backups = append(backups, BackupFile{Path: filepath.Join(dir, name), Version: version})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Version > backups[j].Version })

	return backups, nil
}

func hasSidecarSuffix(name string) bool {
	for _, suffix := range sidecarSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// WithMigrationLock runs fn while holding an advisory file lock on
// "<dbPath>.migrate.lock", serializing the backup+migrate critical section
// across processes that might open the same database concurrently.
func WithMigrationLock(dbPath string, fn func() error) error {
	lock := flock.New(dbPath + ".migrate.lock")
	if err := lock.Lock(); err != nil {
		return errtax.New(errtax.CategoryInternal, "acquire migration lock", err)
	}
	defer lock.Unlock()

	return fn()
}
