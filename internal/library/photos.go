package library

import (
	"context"

	"photoref/internal/database"
	"photoref/internal/logging"
	"photoref/internal/media"
	"photoref/internal/metacache"
	"photoref/internal/metrics"
)

// Details is everything the viewer shows for one photo.
type Details struct {
	Photo  database.Photo
	Folder *database.Folder // nil when unassigned
	File   metacache.FileInfo
}

// Photo returns one photo in any lifecycle state.
func (l *Library) Photo(ctx context.Context, id int64) (*database.Photo, error) {
	return l.db.GetPhoto(ctx, id)
}

// PhotoDetails returns a photo together with its folder and cached file
// facts. The folder is looked up explicitly.
func (l *Library) PhotoDetails(ctx context.Context, id int64) (*Details, error) {
	photo, err := l.db.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &Details{Photo: *photo}
	if photo.FolderID != nil {
		folder, err := l.db.GetFolder(ctx, *photo.FolderID)
		if err != nil {
			return nil, err
		}
		details.Folder = folder
	}
	details.File = l.meta.GetFileInfo(photo.FilePath)
	return details, nil
}

// UpdatePhoto applies user edits (rating, note, tags, attributes).
func (l *Library) UpdatePhoto(ctx context.Context, id int64, u database.PhotoUpdate) (*database.Photo, error) {
	return l.db.UpdatePhoto(ctx, id, u)
}

// SetFavorite sets the favorite flag.
func (l *Library) SetFavorite(ctx context.Context, id int64, favorite bool) (*database.Photo, error) {
	photo, err := l.db.SetFavorite(ctx, id, favorite)
	if err != nil {
		return nil, err
	}
	metrics.Collect(ctx, l.db)
	return photo, nil
}

// ToggleFavorite flips the favorite flag.
func (l *Library) ToggleFavorite(ctx context.Context, id int64) (*database.Photo, error) {
	photo, err := l.db.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.SetFavorite(ctx, id, !photo.IsFavorite)
}

// ReassignFolder moves a photo to another folder, or to unassigned when
// folderID is nil.
func (l *Library) ReassignFolder(ctx context.Context, id int64, folderID *int64) (*database.Photo, error) {
	return l.db.ReassignFolder(ctx, id, folderID)
}

// SoftDelete moves an active photo to the trash. Cached artifacts are kept.
func (l *Library) SoftDelete(ctx context.Context, id int64) (*database.Photo, error) {
	photo, err := l.db.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.Collect(ctx, l.db)
	logging.Info("Moved photo %d to trash", id)
	return photo, nil
}

// Restore brings a trashed photo back.
func (l *Library) Restore(ctx context.Context, id int64) (*database.Photo, error) {
	photo, err := l.db.Restore(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.Collect(ctx, l.db)
	logging.Info("Restored photo %d", id)
	return photo, nil
}

// Purge permanently removes a trashed photo and its cached artifacts.
// Purging an active photo is an invalid transition.
func (l *Library) Purge(ctx context.Context, id int64) (*database.Photo, error) {
	photo, err := l.db.Purge(ctx, id)
	if err != nil {
		return nil, err
	}
	l.dropDerived(*photo)
	metrics.Collect(ctx, l.db)
	logging.Info("Purged photo %d (%s)", id, photo.FilePath)
	return photo, nil
}

// EmptyTrash purges every trashed photo. It stops at the first failure and
// returns what was purged so far.
func (l *Library) EmptyTrash(ctx context.Context) ([]database.Photo, error) {
	trashed, err := l.db.ListTrash(ctx)
	if err != nil {
		return nil, err
	}
	purged := make([]database.Photo, 0, len(trashed))
	for _, p := range trashed {
		photo, err := l.Purge(ctx, p.ID)
		if err != nil {
			return purged, err
		}
		purged = append(purged, *photo)
	}
	return purged, nil
}

// Thumbnail returns the path of a displayable image for photo: the cached
// thumbnail, or the source itself when one cannot be produced.
func (l *Library) Thumbnail(ctx context.Context, photo database.Photo) string {
	return l.thumbs.GetThumbnail(ctx, photo.ID, photo.FilePath, l.cfg.ThumbnailSize)
}

// WarmThumbnails renders thumbnails for photos on the worker pool at the
// configured size.
func (l *Library) WarmThumbnails(ctx context.Context, photos []database.Photo) error {
	reqs := make([]media.ThumbnailRequest, len(photos))
	for i, p := range photos {
		reqs[i] = media.ThumbnailRequest{PhotoID: p.ID, SourcePath: p.FilePath}
	}
	return l.thumbs.Warm(ctx, l.cfg.Workers, reqs, l.cfg.ThumbnailSize)
}

// FileInfo returns cached file facts for a source path.
func (l *Library) FileInfo(path string) metacache.FileInfo {
	return l.meta.GetFileInfo(path)
}
