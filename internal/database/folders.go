package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const folderSelect = `
SELECT f.id, f.name, f.path, f.created_at,
	(SELECT COUNT(*) FROM photos p WHERE p.folder_id = f.id AND p.is_deleted = 0)
FROM folders f`

func scanFolder(row interface{ Scan(...any) error }) (*Folder, error) {
	var f Folder
	var createdAt int64
	if err := row.Scan(&f.ID, &f.Name, &f.Path, &createdAt, &f.PhotoCount); err != nil {
		return nil, err
	}
	f.CreatedAt = fromMillis(createdAt)
	return &f, nil
}

// CreateFolder registers a directory. The path must be absolute and not
// already registered.
func (d *Database) CreateFolder(ctx context.Context, name, path string) (folder *Folder, err error) {
	start := time.Now()
	defer func() { recordQuery("create_folder", start, err) }()

	in := folderInput{Name: strings.TrimSpace(name), Path: path}
	if err := in.Validate(); err != nil {
		return nil, validationErr(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, "create_folder", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO folders (name, path, created_at) VALUES (?, ?, ?)",
			in.Name, in.Path, toMillis(d.now()))
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: folder %s is already registered", ErrConflict, in.Path)
		}
		if err != nil {
			return storageErr("create_folder", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return storageErr("create_folder", err)
		}
		folder, err = getFolder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// GetFolder returns a folder with its active photo count.
func (d *Database) GetFolder(ctx context.Context, id int64) (folder *Folder, err error) {
	start := time.Now()
	defer func() { recordQuery("get_folder", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return getFolder(ctx, d.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getFolder(ctx context.Context, q queryRower, id int64) (*Folder, error) {
	folder, err := scanFolder(q.QueryRowContext(ctx, folderSelect+" WHERE f.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: folder %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get_folder", err)
	}
	return folder, nil
}

// ListFolders returns every folder ordered by name.
func (d *Database) ListFolders(ctx context.Context) (folders []Folder, err error) {
	start := time.Now()
	defer func() { recordQuery("list_folders", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, folderSelect+" ORDER BY f.name COLLATE NOCASE, f.id")
	if err != nil {
		return nil, storageErr("list_folders", err)
	}
	defer rows.Close()

	folders = []Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, storageErr("list_folders", err)
		}
		folders = append(folders, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list_folders", err)
	}
	return folders, nil
}

// RenameFolder changes a folder's display name.
func (d *Database) RenameFolder(ctx context.Context, id int64, name string) (folder *Folder, err error) {
	start := time.Now()
	defer func() { recordQuery("rename_folder", start, err) }()

	in := folderInput{Name: strings.TrimSpace(name), Path: "/"}
	if err := in.Validate(); err != nil {
		return nil, validationErr(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, "rename_folder", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE folders SET name = ? WHERE id = ?", in.Name, id)
		if err != nil {
			return storageErr("rename_folder", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return storageErr("rename_folder", err)
		} else if n == 0 {
			return fmt.Errorf("%w: folder %d", ErrNotFound, id)
		}
		folder, err = getFolder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// DeleteFolder removes the folder row and every photo row in it, whatever
// their state, in one transaction. It returns the removed photos so callers
// can drop their derived artifacts. Files on disk are untouched.
func (d *Database) DeleteFolder(ctx context.Context, id int64) (removed []Photo, err error) {
	start := time.Now()
	defer func() { recordQuery("delete_folder", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, "delete_folder", func(tx *sql.Tx) error {
		if _, err := getFolder(ctx, tx, id); err != nil {
			return err
		}

		photos, err := queryPhotos(ctx, tx, photoSelect+" WHERE folder_id = ? ORDER BY id", id)
		if err != nil {
			return storageErr("delete_folder", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM photos WHERE folder_id = ?", id); err != nil {
			return storageErr("delete_folder: photos", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id); err != nil {
			return storageErr("delete_folder: folder", err)
		}

		removed = photos
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
