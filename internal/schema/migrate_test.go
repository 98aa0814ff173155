package schema

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatal(err)
	}

	return db, path
}

func TestMigrate_FromZeroReachesCurrentVersion(t *testing.T) {
	db, _ := openTestDB(t)

	if err := Migrate(db, nil); err != nil {
		t.Fatal(err)
	}

	version, err := readVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if version != CurrentVersion {
		t.Fatalf("version = %d, want %d", version, CurrentVersion)
	}
}

func TestMigrate_ReopenAppliesNoFurtherSteps(t *testing.T) {
	db, _ := openTestDB(t)

	if err := Migrate(db, nil); err != nil {
		t.Fatal(err)
	}
	if err := Migrate(db, nil); err != nil {
		t.Fatal(err)
	}

	version, err := readVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if version != CurrentVersion {
		t.Fatalf("version = %d, want %d", version, CurrentVersion)
	}
}

func TestMigrate_CreatesExpectedSchema(t *testing.T) {
	db, _ := openTestDB(t)

	if err := Migrate(db, nil); err != nil {
		t.Fatal(err)
	}

	report, err := VerifySchema(db)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Fatalf("schema incomplete: missing tables %v, missing indexes %v", report.MissingTables, report.MissingIndexes)
	}
}

func TestBackup_SkipsExistingBackupForSameVersion(t *testing.T) {
	db, path := openTestDB(t)
	if err := Migrate(db, nil); err != nil {
		t.Fatal(err)
	}

	if err := Backup(db, path, 0); err != nil {
		t.Fatal(err)
	}

	backupPath := path + ".pre-migrate-v0"
	info1, err := os.Stat(backupPath)
	if err != nil {
		t.Fatal(err)
	}

	if err := Backup(db, path, 0); err != nil {
		t.Fatal(err)
	}
	info2, err := os.Stat(backupPath)
	if err != nil {
		t.Fatal(err)
	}

	if info1.ModTime() != info2.ModTime() {
		t.Fatal("existing backup for the same version should not be overwritten")
	}
}

func TestPruneBackups_KeepsNewestByVersion(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "foo.db")

	for _, v := range []int{27, 28, 29, 30} {
		f, err := os.Create(dbPath + ".pre-migrate-v" + strconv.Itoa(v))
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	if err := PruneBackups(dbPath); err != nil {
		t.Fatal(err)
	}

	remaining, err := ListBackups(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != MaxBackups {
		t.Fatalf("len(remaining) = %d, want %d", len(remaining), MaxBackups)
	}

	versions := map[int]bool{}
	for _, b := range remaining {
		versions[b.Version] = true
	}
	for _, v := range []int{28, 29, 30} {
		if !versions[v] {
			t.Errorf("expected backup v%d to survive retention", v)
		}
	}
	if versions[27] {
		t.Error("expected backup v27 to be pruned")
	}
}
