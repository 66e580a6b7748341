package migrations

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"folders", "photos", "metadata", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}

	for _, column := range []string{"lens", "style", "lighting", "exif_iso", "is_favorite"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('photos') WHERE name = ?", column).Scan(&count)
		if err != nil || count != 1 {
			t.Errorf("photos.%s missing (count=%d, err=%v)", column, count, err)
		}
	}
}

func TestStatus(t *testing.T) {
	db := openTestDB(t)

	if _, err := Status(db); !errors.Is(err, ErrNeedsMigration) {
		t.Errorf("Status() on fresh database = %v, want ErrNeedsMigration", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	version, err := Status(db)
	if err != nil {
		t.Fatalf("Status() after migration returned error: %v", err)
	}
	latest, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error: %v", err)
	}
	if version != latest || latest != 2 {
		t.Errorf("version = %d, latest = %d, want both 2", version, latest)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() failed: %v", err)
	}
}
