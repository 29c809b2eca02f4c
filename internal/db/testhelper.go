package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// LatestSchemaVersion is the highest embedded migration.
const LatestSchemaVersion = 3

// OpenTestSQLite returns a migrated write/read pool pair backed by a file in
// t.TempDir(). Both pools close when the test ends.
func OpenTestSQLite(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	writeDB, readDB, err := OpenSQLitePair(filepath.Join(t.TempDir(), "vault.sqlite"), 4)
	if err != nil {
		t.Fatalf("open sqlite pair: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := RunMigrations(writeDB); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	if v, err := MigrationVersion(writeDB); err != nil || v != LatestSchemaVersion {
		t.Fatalf("schema version = %d (err %v), want %d", v, err, LatestSchemaVersion)
	}
	return writeDB, readDB
}
