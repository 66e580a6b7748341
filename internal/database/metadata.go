package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Metadata keys.
const (
	MetaLibraryID  = "library_id"
	MetaLastImport = "last_import"
)

// GetMetadata retrieves a metadata value by key, or ErrNotFound.
func (d *Database) GetMetadata(ctx context.Context, key string) (value string, err error) {
	start := time.Now()
	defer func() { recordQuery("get_metadata", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var v sql.NullString
	err = d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: metadata %q", ErrNotFound, key)
	}
	if err != nil {
		return "", storageErr("get_metadata", err)
	}
	return v.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) (err error) {
	start := time.Now()
	defer func() { recordQuery("set_metadata", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return storageErr("set_metadata", err)
	}
	return nil
}

// GetLastImport returns when an import last completed, or the zero time.
func (d *Database) GetLastImport(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, MetaLastImport)
	if errors.Is(err, ErrNotFound) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad %s value %q: %w", MetaLastImport, value, err)
	}
	return ts, nil
}

// SetLastImport records when an import completed.
func (d *Database) SetLastImport(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		return d.SetMetadata(ctx, MetaLastImport, "")
	}
	return d.SetMetadata(ctx, MetaLastImport, t.UTC().Format(time.RFC3339Nano))
}
