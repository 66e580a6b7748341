package library

import (
	"context"
	"time"

	"photoref/internal/database"
	"photoref/internal/metrics"
)

// Search runs a filtered query over the library.
func (l *Library) Search(ctx context.Context, opts database.SearchOptions) ([]database.Photo, error) {
	return l.db.Search(ctx, opts)
}

// ListAll returns active photos, newest first; trashed ones too when
// includeDeleted is set.
func (l *Library) ListAll(ctx context.Context, includeDeleted bool) ([]database.Photo, error) {
	return l.db.ListAll(ctx, includeDeleted)
}

// ListByFolder returns the active photos of a folder.
func (l *Library) ListByFolder(ctx context.Context, folderID int64) ([]database.Photo, error) {
	return l.db.ListByFolder(ctx, folderID)
}

// ListUnassigned returns active photos without a folder.
func (l *Library) ListUnassigned(ctx context.Context) ([]database.Photo, error) {
	return l.db.ListUnassigned(ctx)
}

// ListFavorites returns active favorites.
func (l *Library) ListFavorites(ctx context.Context) ([]database.Photo, error) {
	return l.db.ListFavorites(ctx)
}

// ListTrash returns soft-deleted photos.
func (l *Library) ListTrash(ctx context.Context) ([]database.Photo, error) {
	return l.db.ListTrash(ctx)
}

// CountPhotos counts photos in scope.
func (l *Library) CountPhotos(ctx context.Context, scope database.Scope) (int, error) {
	return l.db.CountPhotos(ctx, scope)
}

// Stats describes the library and its caches.
type Stats struct {
	metrics.Stats

	LibraryID       string
	SchemaVersion   uint
	LastImport      time.Time // zero if nothing was imported yet
	ThumbnailBytes  int64
	ThumbnailFiles  int
	MetadataEntries int
}

// Stats gathers library counts and cache sizes.
func (l *Library) Stats(ctx context.Context) (*Stats, error) {
	counts, err := l.db.Stats(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Stats:           counts,
		LibraryID:       l.cfg.LibraryID,
		MetadataEntries: l.meta.Len(),
	}

	if stats.SchemaVersion, err = l.db.SchemaVersion(); err != nil {
		return nil, err
	}
	if stats.LastImport, err = l.db.GetLastImport(ctx); err != nil {
		return nil, err
	}
	if stats.ThumbnailBytes, stats.ThumbnailFiles, err = l.thumbs.Size(); err != nil {
		return nil, err
	}
	return stats, nil
}
