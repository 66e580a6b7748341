package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const photoSelect = `
SELECT id, file_path, folder_id, rating, note, tags, lens, style, lighting,
	is_deleted, is_favorite,
	exif_iso, exif_focal_length, exif_aperture, exif_shutter_speed,
	date_created, date_imported, date_modified
FROM photos`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanPhoto(row interface{ Scan(...any) error }) (*Photo, error) {
	var (
		p                           Photo
		folderID, iso               sql.NullInt64
		focal, aperture, shutter    sql.NullFloat64
		tags                        string
		created, imported, modified int64
	)

	err := row.Scan(
		&p.ID, &p.FilePath, &folderID, &p.Rating, &p.Note, &tags, &p.Lens, &p.Style, &p.Lighting,
		&p.IsDeleted, &p.IsFavorite,
		&iso, &focal, &aperture, &shutter,
		&created, &imported, &modified,
	)
	if err != nil {
		return nil, err
	}

	if folderID.Valid {
		p.FolderID = &folderID.Int64
	}
	if iso.Valid {
		v := int(iso.Int64)
		p.ISO = &v
	}
	if focal.Valid {
		p.FocalLength = &focal.Float64
	}
	if aperture.Valid {
		p.Aperture = &aperture.Float64
	}
	if shutter.Valid {
		p.ShutterSpeed = &shutter.Float64
	}

	p.Tags, err = decodeTags(tags)
	if err != nil {
		return nil, fmt.Errorf("photo %d: bad tags column: %w", p.ID, err)
	}

	p.DateCreated = fromMillis(created)
	p.DateImported = fromMillis(imported)
	p.DateModified = fromMillis(modified)
	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	data, err := json.Marshal(NormalizeTags(tags))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeTags(s string) ([]string, error) {
	tags := []string{}
	if strings.TrimSpace(s) == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func queryPhotos(ctx context.Context, q queryer, query string, args ...any) ([]Photo, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := []Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

func getPhoto(ctx context.Context, q queryRower, id int64) (*Photo, error) {
	p, err := scanPhoto(q.QueryRowContext(ctx, photoSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: photo %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get_photo", err)
	}
	return p, nil
}

func ensureFolder(ctx context.Context, tx *sql.Tx, folderID *int64) error {
	if folderID == nil {
		return nil
	}
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM folders WHERE id = ?", *folderID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: folder %d", ErrNotFound, *folderID)
	}
	if err != nil {
		return storageErr("ensure_folder", err)
	}
	return nil
}

const insertPhotoSQL = `
INSERT INTO photos (file_path, folder_id, lens,
	exif_iso, exif_focal_length, exif_aperture, exif_shutter_speed,
	date_created, date_imported, date_modified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// insertPhoto inserts p, returning inserted=false without error when
// skipExisting is set and the path is already imported.
func insertPhoto(ctx context.Context, tx *sql.Tx, p NewPhoto, now time.Time, skipExisting bool) (id int64, inserted bool, err error) {
	created := p.DateCreated
	if created.IsZero() {
		created = now
	}

	query := insertPhotoSQL
	if skipExisting {
		query += " ON CONFLICT(file_path) DO NOTHING"
	}

	res, err := tx.ExecContext(ctx, query,
		p.FilePath, p.FolderID, strings.TrimSpace(p.Lens),
		p.ISO, p.FocalLength, p.Aperture, p.ShutterSpeed,
		toMillis(created), toMillis(now), toMillis(now),
	)
	if isUniqueViolation(err) {
		return 0, false, fmt.Errorf("%w: photo %s is already imported", ErrConflict, p.FilePath)
	}
	if err != nil {
		return 0, false, storageErr("insert_photo", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return 0, false, storageErr("insert_photo", err)
	} else if n == 0 {
		return 0, false, nil
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, storageErr("insert_photo", err)
	}
	return id, true, nil
}

// ImportPhoto creates one photo row together with its capture metadata.
// An already imported path is ErrConflict; an unknown folder is ErrNotFound.
func (d *Database) ImportPhoto(ctx context.Context, p NewPhoto) (photo *Photo, err error) {
	start := time.Now()
	defer func() { recordQuery("import_photo", start, err) }()

	if err := p.Validate(); err != nil {
		return nil, validationErr(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, "import_photo", func(tx *sql.Tx) error {
		if err := ensureFolder(ctx, tx, p.FolderID); err != nil {
			return err
		}
		id, _, err := insertPhoto(ctx, tx, p, d.now(), false)
		if err != nil {
			return err
		}
		photo, err = getPhoto(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// BatchResult reports the outcome of ImportBatch.
type BatchResult struct {
	Imported []Photo
	Skipped  []string // paths that were already imported
}

// ImportBatch imports photos in a single transaction. Paths that are
// already imported are skipped rather than failing the batch; any other
// error rolls the whole batch back.
func (d *Database) ImportBatch(ctx context.Context, photos []NewPhoto) (result BatchResult, err error) {
	start := time.Now()
	defer func() { recordQuery("import_batch", start, err) }()

	for _, p := range photos {
		if err := p.Validate(); err != nil {
			return BatchResult{}, validationErr(fmt.Errorf("%s: %w", p.FilePath, err))
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Large folders need more than the single-statement timeout.
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout+time.Duration(len(photos))*time.Millisecond*10)
	defer cancel()

	err = d.withTx(ctx, "import_batch", func(tx *sql.Tx) error {
		checked := make(map[int64]bool)
		now := d.now()
		ids := make([]int64, 0, len(photos))

		for _, p := range photos {
			if p.FolderID != nil && !checked[*p.FolderID] {
				if err := ensureFolder(ctx, tx, p.FolderID); err != nil {
					return err
				}
				checked[*p.FolderID] = true
			}

			id, inserted, err := insertPhoto(ctx, tx, p, now, true)
			if err != nil {
				return err
			}
			if !inserted {
				result.Skipped = append(result.Skipped, p.FilePath)
				continue
			}
			ids = append(ids, id)
		}

		for _, id := range ids {
			photo, err := getPhoto(ctx, tx, id)
			if err != nil {
				return err
			}
			result.Imported = append(result.Imported, *photo)
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return result, nil
}

// GetPhoto returns a photo in any state.
func (d *Database) GetPhoto(ctx context.Context, id int64) (photo *Photo, err error) {
	start := time.Now()
	defer func() { recordQuery("get_photo", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return getPhoto(ctx, d.db, id)
}

// mutatePhoto loads photo id inside a write transaction, lets fn apply its
// change, and returns the photo as committed.
func (d *Database) mutatePhoto(ctx context.Context, op string, id int64, fn func(ctx context.Context, tx *sql.Tx, current *Photo) error) (photo *Photo, err error) {
	start := time.Now()
	defer func() { recordQuery(op, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, op, func(tx *sql.Tx) error {
		current, err := getPhoto(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, current); err != nil {
			return err
		}
		photo, err = getPhoto(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// UpdatePhoto applies the non-nil fields of u and bumps date_modified.
// An empty update returns the photo unchanged.
func (d *Database) UpdatePhoto(ctx context.Context, id int64, u PhotoUpdate) (*Photo, error) {
	if err := u.Validate(); err != nil {
		return nil, validationErr(err)
	}
	if u.Empty() {
		return d.GetPhoto(ctx, id)
	}

	var sets []string
	var args []any
	if u.Rating != nil {
		sets, args = append(sets, "rating = ?"), append(args, *u.Rating)
	}
	if u.Note != nil {
		sets, args = append(sets, "note = ?"), append(args, *u.Note)
	}
	if u.Tags != nil {
		tags, err := encodeTags(*u.Tags)
		if err != nil {
			return nil, validationErr(err)
		}
		sets, args = append(sets, "tags = ?"), append(args, tags)
	}
	for _, attr := range []struct {
		column string
		value  *string
	}{{"lens", u.Lens}, {"style", u.Style}, {"lighting", u.Lighting}} {
		if attr.value != nil {
			sets, args = append(sets, attr.column+" = ?"), append(args, strings.TrimSpace(*attr.value))
		}
	}

	return d.mutatePhoto(ctx, "update_photo", id, func(ctx context.Context, tx *sql.Tx, _ *Photo) error {
		query := "UPDATE photos SET " + strings.Join(sets, ", ") + ", date_modified = ? WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, append(args, toMillis(d.now()), id)...); err != nil {
			return storageErr("update_photo", err)
		}
		return nil
	})
}

// SetFavorite sets the favorite flag. It is independent of rating and of the
// deleted state.
func (d *Database) SetFavorite(ctx context.Context, id int64, favorite bool) (*Photo, error) {
	return d.mutatePhoto(ctx, "set_favorite", id, func(ctx context.Context, tx *sql.Tx, current *Photo) error {
		if current.IsFavorite == favorite {
			return nil
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE photos SET is_favorite = ?, date_modified = ? WHERE id = ?",
			favorite, toMillis(d.now()), id)
		if err != nil {
			return storageErr("set_favorite", err)
		}
		return nil
	})
}

// SoftDelete moves an active photo to the trash. Only is_deleted changes.
func (d *Database) SoftDelete(ctx context.Context, id int64) (*Photo, error) {
	return d.setDeleted(ctx, "soft_delete", id, true)
}

// Restore moves a trashed photo back to active. Only is_deleted changes.
func (d *Database) Restore(ctx context.Context, id int64) (*Photo, error) {
	return d.setDeleted(ctx, "restore", id, false)
}

func (d *Database) setDeleted(ctx context.Context, op string, id int64, deleted bool) (*Photo, error) {
	return d.mutatePhoto(ctx, op, id, func(ctx context.Context, tx *sql.Tx, current *Photo) error {
		if current.IsDeleted == deleted {
			state := "active"
			if deleted {
				state = "already in trash"
			}
			return fmt.Errorf("%w: %s photo %d: %s", ErrInvalidTransition, op, id, state)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE photos SET is_deleted = ? WHERE id = ?", deleted, id); err != nil {
			return storageErr(op, err)
		}
		return nil
	})
}

// Purge permanently removes a trashed photo and returns its last state.
// Purging an active photo is ErrInvalidTransition.
func (d *Database) Purge(ctx context.Context, id int64) (photo *Photo, err error) {
	start := time.Now()
	defer func() { recordQuery("purge", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, "purge", func(tx *sql.Tx) error {
		current, err := getPhoto(ctx, tx, id)
		if err != nil {
			return err
		}
		if !current.IsDeleted {
			return fmt.Errorf("%w: purge photo %d: photo is not in trash", ErrInvalidTransition, id)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM photos WHERE id = ?", id); err != nil {
			return storageErr("purge", err)
		}
		photo = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// ReassignFolder moves a photo to folderID, or unassigns it when folderID is
// nil.
func (d *Database) ReassignFolder(ctx context.Context, photoID int64, folderID *int64) (*Photo, error) {
	return d.mutatePhoto(ctx, "reassign_folder", photoID, func(ctx context.Context, tx *sql.Tx, _ *Photo) error {
		if err := ensureFolder(ctx, tx, folderID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE photos SET folder_id = ?, date_modified = ? WHERE id = ?",
			folderID, toMillis(d.now()), photoID)
		if err != nil {
			return storageErr("reassign_folder", err)
		}
		return nil
	})
}
