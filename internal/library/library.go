package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"photoref/internal/database"
	"photoref/internal/indexer"
	"photoref/internal/logging"
	"photoref/internal/media"
	"photoref/internal/metacache"
	"photoref/internal/metrics"
	"photoref/internal/startup"
)

// Library is an open project.
type Library struct {
	cfg     *startup.Config
	db      *database.Database
	thumbs  *media.ThumbnailCache
	meta    *metacache.Cache
	indexer *indexer.Indexer
	vips    bool

	// importFolder runs the import of AddFolder and Rescan.
	importFolder func(ctx context.Context, folderID int64, dir string) (indexer.Result, error)
}

// Open opens the data store and caches described by cfg.
func Open(ctx context.Context, cfg *startup.Config) (*Library, error) {
	start := time.Now()

	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	thumbs, err := media.NewThumbnailCache(cfg.ThumbnailDir, cfg.ThumbnailQuality)
	if err != nil {
		db.Close()
		return nil, err
	}

	lib := &Library{
		cfg:     cfg,
		db:      db,
		thumbs:  thumbs,
		meta:    metacache.New(cfg.MetadataCachePath),
		indexer: indexer.New(db, cfg.ImportExtensions, cfg.Workers),
	}
	lib.importFolder = lib.indexer.ImportFolder

	if err := lib.bindLibraryID(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.UseVips {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using pure Go decoders: %v", err)
		} else {
			lib.vips = true
		}
	}

	metrics.InitializeMetrics()
	metrics.Collect(ctx, db)

	logging.Debug("Opened library %s in %v", cfg.ProjectDir, time.Since(start))
	return lib, nil
}

// bindLibraryID records the configured library ID in a new database, or
// adopts the stored one when the config has none.
func (l *Library) bindLibraryID(ctx context.Context) error {
	stored, err := l.db.GetMetadata(ctx, database.MetaLibraryID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		if l.cfg.LibraryID == "" {
			return nil
		}
		return l.db.SetMetadata(ctx, database.MetaLibraryID, l.cfg.LibraryID)
	case err != nil:
		return err
	}

	if l.cfg.LibraryID == "" {
		l.cfg.LibraryID = stored
	} else if stored != l.cfg.LibraryID {
		logging.Warn("Database library_id %s does not match config %s", stored, l.cfg.LibraryID)
	}
	return nil
}

// Close releases the database and, if it was started, libvips.
func (l *Library) Close() error {
	err := l.db.Close()
	if l.vips {
		media.ShutdownVips()
	}
	return err
}

// Config returns the resolved project configuration.
func (l *Library) Config() *startup.Config {
	return l.cfg
}

// Progress reports the state of the running or last import.
func (l *Library) Progress() indexer.Progress {
	return l.indexer.Progress()
}

// AddFolder registers dir as a folder named after its base name and imports
// every supported image directly inside it. When the import fails the folder
// is unregistered again, so the call can be retried.
func (l *Library) AddFolder(ctx context.Context, dir string) (*database.Folder, indexer.Result, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, indexer.Result{}, fmt.Errorf("%w: %w", database.ErrValidation, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, indexer.Result{}, fmt.Errorf("%w: %w", media.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return nil, indexer.Result{}, fmt.Errorf("%w: %s is not a directory", database.ErrValidation, abs)
	}

	folder, err := l.db.CreateFolder(ctx, filepath.Base(abs), abs)
	if err != nil {
		return nil, indexer.Result{}, err
	}
	logging.Info("Added folder %q (%s)", folder.Name, folder.Path)

	result, err := l.importFolder(ctx, folder.ID, abs)
	if err != nil {
		l.unregister(ctx, folder)
		return nil, result, err
	}

	folder, err = l.db.GetFolder(ctx, folder.ID)
	if err != nil {
		return nil, result, err
	}
	metrics.Collect(ctx, l.db)
	return folder, result, nil
}

// unregister removes a folder whose initial import failed. It runs even
// when ctx was cancelled.
func (l *Library) unregister(ctx context.Context, folder *database.Folder) {
	removed, err := l.db.DeleteFolder(context.WithoutCancel(ctx), folder.ID)
	if err != nil {
		logging.Error("Failed to unregister folder %q after failed import: %v", folder.Path, err)
		return
	}
	l.dropDerived(removed...)
	logging.Warn("Import into %q failed, folder unregistered", folder.Path)
}

// Rescan imports files added to a registered folder since it was added.
// Already imported files are skipped.
func (l *Library) Rescan(ctx context.Context, folderID int64) (indexer.Result, error) {
	folder, err := l.db.GetFolder(ctx, folderID)
	if err != nil {
		return indexer.Result{}, err
	}
	result, err := l.importFolder(ctx, folder.ID, folder.Path)
	if err != nil {
		return result, err
	}
	metrics.Collect(ctx, l.db)
	return result, nil
}

// ImportFiles imports an explicit list of files into a folder, or leaves
// them unassigned when folderID is nil.
func (l *Library) ImportFiles(ctx context.Context, folderID *int64, paths []string) (indexer.Result, error) {
	if folderID != nil {
		if _, err := l.db.GetFolder(ctx, *folderID); err != nil {
			return indexer.Result{}, err
		}
	}
	result, err := l.indexer.ImportFiles(ctx, folderID, paths)
	if err != nil {
		return result, err
	}
	metrics.Collect(ctx, l.db)
	return result, nil
}

// Folders lists folders by name with their active photo counts.
func (l *Library) Folders(ctx context.Context) ([]database.Folder, error) {
	return l.db.ListFolders(ctx)
}

// Folder returns one folder.
func (l *Library) Folder(ctx context.Context, id int64) (*database.Folder, error) {
	return l.db.GetFolder(ctx, id)
}

// RenameFolder changes a folder's display name.
func (l *Library) RenameFolder(ctx context.Context, id int64, name string) (*database.Folder, error) {
	folder, err := l.db.RenameFolder(ctx, id, name)
	if err != nil {
		return nil, err
	}
	logging.Info("Renamed folder %d to %q", id, folder.Name)
	return folder, nil
}

// DeleteFolder removes a folder and all its photos in any state, then
// drops their thumbnails and metadata entries. The directory on disk is
// left alone.
func (l *Library) DeleteFolder(ctx context.Context, id int64) ([]database.Photo, error) {
	removed, err := l.db.DeleteFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	l.dropDerived(removed...)
	metrics.Collect(ctx, l.db)

	logging.Info("Deleted folder %d with %d photos", id, len(removed))
	return removed, nil
}

// dropDerived removes cached artifacts of photos that no longer exist.
// Failures are logged; stale entries are harmless and never served for a
// new photo because thumbnail keys include the photo ID.
func (l *Library) dropDerived(photos ...database.Photo) {
	if len(photos) == 0 {
		return
	}
	paths := make([]string, 0, len(photos))
	for _, p := range photos {
		if err := l.thumbs.Invalidate(p.ID, p.FilePath); err != nil {
			logging.Warn("Failed to drop thumbnail of photo %d: %v", p.ID, err)
		}
		paths = append(paths, p.FilePath)
	}
	if err := l.meta.Forget(paths...); err != nil {
		logging.Warn("Failed to update metadata cache: %v", err)
	}
}
