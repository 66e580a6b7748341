package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"photoref/internal/database/migrations"
	"photoref/internal/logging"
	"photoref/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the library store. Writes are serialized; reads run
// concurrently with each other.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex

	now func() time.Time

	// beforeCommit, when set, runs inside every write transaction right
	// before commit. A non-nil error rolls the transaction back.
	beforeCommit func(op string) error
}

// New opens (creating if needed) the database file at dbPath and migrates it
// to the latest schema. The parent directory must exist.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Debug("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// photos.folder_id must reference an existing folder
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, storageErr("open", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, storageErr("connect", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := migrations.MigrateUp(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after migration failure: %v", closeErr)
		}
		return nil, storageErr("migrate", err)
	}

	logging.Info("Database ready at %s", dbPath)
	return &Database{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// SchemaVersion reports the applied migration version.
func (d *Database) SchemaVersion() (uint, error) {
	return migrations.Status(d.db)
}

// withTx runs fn in a transaction, committing when fn (and the beforeCommit
// hook) succeed and rolling back otherwise. Callers hold d.mu.
func (d *Database) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	start := time.Now()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, err)
	}

	err = fn(tx)
	if err == nil && d.beforeCommit != nil {
		err = d.beforeCommit(op)
	}
	return endTx(op, tx, start, err)
}

// endTx commits or rolls back a transaction and records its duration.
func endTx(op string, tx *sql.Tx, start time.Time, err error) error {
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, storageErr(op+": rollback", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		return storageErr(op+": commit", err)
	}
	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return nil
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// diagnoseDatabasePermissions logs the state of the database directory and
// files so permission problems surface before the first failed write.
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	if !dirInfo.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file %s is read-only (mode: %v); writes will fail", path, info.Mode())
		}
	}

	return nil
}
