package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"photoref/internal/metrics"
)

// Scope selects photos by lifecycle state.
type Scope int

const (
	// ScopeActive is every non-deleted photo (the default).
	ScopeActive Scope = iota
	// ScopeTrash is soft-deleted photos only.
	ScopeTrash
	// ScopeAll ignores the deleted flag.
	ScopeAll
)

// SortField names a sortable column.
type SortField string

const (
	SortCreated  SortField = "created"
	SortImported SortField = "imported"
	SortModified SortField = "modified"
	SortRating   SortField = "rating"
	SortPath     SortField = "path"
)

var sortColumns = map[SortField]string{
	SortCreated:  "date_created",
	SortImported: "date_imported",
	SortModified: "date_modified",
	SortRating:   "rating",
	SortPath:     "file_path",
}

// SortOrder is "asc" or "desc".
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SearchOptions is a set of independent, optional predicates combined with
// AND. Zero values impose no constraint. Text predicates are
// case-insensitive substring matches.
type SearchOptions struct {
	Keyword     string   // matched against the full file path
	Lens        string   // substring of lens
	FocalLength *float64 // exact focal length in mm
	Style       string
	Lighting    string
	Tags        string // substring of the serialized tag list

	FolderID      *int64
	FavoritesOnly bool
	Scope         Scope

	SortField SortField // default SortCreated
	SortOrder SortOrder // default SortDesc
	Limit     int       // 0 means no limit
	Offset    int
}

type predicate struct {
	clause string
	args   []any
}

// likeEscaper escapes LIKE wildcards so user text matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPredicate(column, value string) (predicate, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return predicate{}, false
	}
	return predicate{
		clause: column + ` LIKE ? ESCAPE '\'`,
		args:   []any{"%" + likeEscaper.Replace(value) + "%"},
	}, true
}

func (o SearchOptions) predicates() []predicate {
	var preds []predicate

	switch o.Scope {
	case ScopeActive:
		preds = append(preds, predicate{clause: "is_deleted = 0"})
	case ScopeTrash:
		preds = append(preds, predicate{clause: "is_deleted = 1"})
	}

	for _, c := range []struct{ column, value string }{
		{"file_path", o.Keyword},
		{"lens", o.Lens},
		{"style", o.Style},
		{"lighting", o.Lighting},
		{"tags", o.Tags},
	} {
		if p, ok := containsPredicate(c.column, c.value); ok {
			preds = append(preds, p)
		}
	}

	if o.FocalLength != nil {
		preds = append(preds, predicate{clause: "exif_focal_length = ?", args: []any{*o.FocalLength}})
	}
	if o.FolderID != nil {
		preds = append(preds, predicate{clause: "folder_id = ?", args: []any{*o.FolderID}})
	}
	if o.FavoritesOnly {
		preds = append(preds, predicate{clause: "is_favorite = 1"})
	}

	return preds
}

// query renders the full SELECT for o.
func (o SearchOptions) query() (string, []any, error) {
	var b strings.Builder
	var args []any

	b.WriteString(photoSelect)

	preds := o.predicates()
	for i, p := range preds {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(p.clause)
		args = append(args, p.args...)
	}

	field := o.SortField
	if field == "" {
		field = SortCreated
	}
	column, ok := sortColumns[field]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown sort field %q", ErrValidation, field)
	}

	order := SortOrder(strings.ToLower(string(o.SortOrder)))
	switch order {
	case "":
		order = SortDesc
	case SortAsc, SortDesc:
	default:
		return "", nil, fmt.Errorf("%w: unknown sort order %q", ErrValidation, o.SortOrder)
	}
	dir := strings.ToUpper(string(order))

	// id breaks ties so the order is total
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", column, dir, dir)

	if o.Limit < 0 || o.Offset < 0 {
		return "", nil, fmt.Errorf("%w: negative limit or offset", ErrValidation)
	}
	switch {
	case o.Limit > 0:
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, o.Limit, o.Offset)
	case o.Offset > 0:
		b.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, o.Offset)
	}

	return b.String(), args, nil
}

// Search returns the photos matching every predicate in opts.
func (d *Database) Search(ctx context.Context, opts SearchOptions) ([]Photo, error) {
	return d.search(ctx, "search", opts)
}

func (d *Database) search(ctx context.Context, op string, opts SearchOptions) (photos []Photo, err error) {
	start := time.Now()
	defer func() { recordQuery(op, start, err) }()

	query, args, err := opts.query()
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	photos, err = queryPhotos(ctx, d.db, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return photos, nil
}

// ListAll returns active photos, newest first; trashed ones too when
// includeDeleted is set.
func (d *Database) ListAll(ctx context.Context, includeDeleted bool) ([]Photo, error) {
	scope := ScopeActive
	if includeDeleted {
		scope = ScopeAll
	}
	return d.search(ctx, "list_photos", SearchOptions{Scope: scope})
}

// ListByFolder returns the active photos of a folder, newest first.
func (d *Database) ListByFolder(ctx context.Context, folderID int64) ([]Photo, error) {
	if _, err := d.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}
	return d.search(ctx, "list_photos", SearchOptions{FolderID: &folderID})
}

// ListUnassigned returns active photos that belong to no folder.
func (d *Database) ListUnassigned(ctx context.Context) (photos []Photo, err error) {
	start := time.Now()
	defer func() { recordQuery("list_photos", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	photos, err = queryPhotos(ctx, d.db,
		photoSelect+" WHERE folder_id IS NULL AND is_deleted = 0 ORDER BY date_created DESC, id DESC")
	if err != nil {
		return nil, storageErr("list_photos", err)
	}
	return photos, nil
}

// ListFavorites returns active favorite photos, newest first.
func (d *Database) ListFavorites(ctx context.Context) ([]Photo, error) {
	return d.search(ctx, "list_photos", SearchOptions{FavoritesOnly: true})
}

// ListTrash returns soft-deleted photos, newest first.
func (d *Database) ListTrash(ctx context.Context) ([]Photo, error) {
	return d.search(ctx, "list_photos", SearchOptions{Scope: ScopeTrash})
}

// Stats returns library-wide counts.
func (d *Database) Stats(ctx context.Context) (stats metrics.Stats, err error) {
	start := time.Now()
	defer func() { recordQuery("count_photos", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN is_deleted = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_deleted = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_deleted = 0 AND is_favorite = 1 THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM folders)
		FROM photos
	`).Scan(&stats.ActivePhotos, &stats.TrashedPhotos, &stats.FavoritePhotos, &stats.Folders)
	if err != nil {
		return metrics.Stats{}, storageErr("count_photos", err)
	}
	return stats, nil
}

// CountPhotos returns the number of photos in scope.
func (d *Database) CountPhotos(ctx context.Context, scope Scope) (count int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_photos", start, err) }()

	query := "SELECT COUNT(*) FROM photos"
	switch scope {
	case ScopeActive:
		query += " WHERE is_deleted = 0"
	case ScopeTrash:
		query += " WHERE is_deleted = 1"
	case ScopeAll:
	default:
		return 0, fmt.Errorf("%w: unknown scope %d", ErrValidation, scope)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := d.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, storageErr("count_photos", err)
	}
	return count, nil
}
