package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"photoref/internal/database"
	"photoref/internal/exif"
	"photoref/internal/filesystem"
	"photoref/internal/logging"
	"photoref/internal/media"
	"photoref/internal/mediatypes"
	"photoref/internal/metrics"
	"photoref/internal/workers"
)

// ErrUnsupported reports a file whose extension is not importable.
var ErrUnsupported = errors.New("unsupported file type")

// Indexer turns files on disk into photo rows.
type Indexer struct {
	db         *database.Database
	extensions mediatypes.ExtensionSet
	workers    int

	// probe checks that a file decodes; replaced in tests.
	probe func(path string) error

	// Progress tracking
	filesProcessed atomic.Int64
	isIndexing     atomic.Bool
	startedAt      atomic.Value
}

// Progress is a snapshot of the current import.
type Progress struct {
	FilesProcessed int64
	IsIndexing     bool
	StartedAt      time.Time
}

// FileError is a per-file import failure.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Result summarises an import.
type Result struct {
	Imported []database.Photo
	Skipped  []string // already in the library
	Failed   []FileError
}

// New creates an Indexer. A non-positive n sizes the pool for I/O-bound work.
func New(db *database.Database, extensions mediatypes.ExtensionSet, n int) *Indexer {
	if n <= 0 {
		n = workers.ForIO(0)
	}
	if len(extensions) == 0 {
		extensions = mediatypes.NewExtensionSet(nil)
	}

	idx := &Indexer{
		db:         db,
		extensions: extensions,
		workers:    n,
		probe:      probeImage,
	}
	idx.startedAt.Store(time.Time{})
	return idx
}

func probeImage(path string) error {
	_, err := media.GetImageDimensions(path)
	return err
}

// Progress returns the current progress.
func (idx *Indexer) Progress() Progress {
	return Progress{
		FilesProcessed: idx.filesProcessed.Load(),
		IsIndexing:     idx.isIndexing.Load(),
		StartedAt:      idx.startedAt.Load().(time.Time),
	}
}

// Scan lists the importable files directly inside dir, sorted by path.
func (idx *Indexer) Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !idx.extensions.Matches(name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)

	logging.Debug("Scan %s: %d importable files", dir, len(paths))
	return paths, nil
}

// ImportFolder imports every importable file directly inside dir into the
// folder.
func (idx *Indexer) ImportFolder(ctx context.Context, folderID int64, dir string) (Result, error) {
	paths, err := idx.Scan(dir)
	if err != nil {
		return Result{}, err
	}
	return idx.ImportFiles(ctx, &folderID, paths)
}

// ImportFiles imports paths into folderID (nil for unassigned). Per-file
// problems end up in Result.Failed; only a database failure is returned as
// an error, in which case nothing was imported.
func (idx *Indexer) ImportFiles(ctx context.Context, folderID *int64, paths []string) (Result, error) {
	start := time.Now()
	idx.isIndexing.Store(true)
	idx.startedAt.Store(start)
	idx.filesProcessed.Store(0)
	defer idx.isIndexing.Store(false)

	type prepared struct {
		photo database.NewPhoto
		err   error
	}
	slots := make([]prepared, len(paths))
	indexes := make([]int, len(paths))
	for i := range indexes {
		indexes[i] = i
	}

	err := workers.Each(ctx, idx.workers, indexes, func(ctx context.Context, i int) error {
		photo, err := idx.prepare(paths[i], folderID)
		slots[i] = prepared{photo: photo, err: err}
		idx.filesProcessed.Add(1)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("import cancelled: %w", err)
	}

	var result Result
	var batch []database.NewPhoto
	for i, slot := range slots {
		if slot.err != nil {
			logging.Warn("Skipping %s: %v", paths[i], slot.err)
			result.Failed = append(result.Failed, FileError{Path: paths[i], Err: slot.err})
			continue
		}
		batch = append(batch, slot.photo)
	}

	if len(batch) > 0 {
		batchResult, err := idx.db.ImportBatch(ctx, batch)
		if err != nil {
			return Result{}, fmt.Errorf("failed to import batch: %w", err)
		}
		result.Imported = batchResult.Imported
		result.Skipped = batchResult.Skipped
	}

	metrics.ImportFilesTotal.WithLabelValues("imported").Add(float64(len(result.Imported)))
	metrics.ImportFilesTotal.WithLabelValues("skipped").Add(float64(len(result.Skipped)))
	metrics.ImportFilesTotal.WithLabelValues("failed").Add(float64(len(result.Failed)))
	metrics.ImportDuration.Observe(time.Since(start).Seconds())

	if err := idx.db.SetLastImport(ctx, time.Now()); err != nil {
		logging.Warn("Failed to record import time: %v", err)
	}

	logging.Info("Import finished in %v: %d imported, %d skipped, %d failed",
		time.Since(start).Round(time.Millisecond), len(result.Imported), len(result.Skipped), len(result.Failed))
	return result, nil
}

// prepare checks one file and reads its capture metadata.
func (idx *Indexer) prepare(path string, folderID *int64) (database.NewPhoto, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return database.NewPhoto{}, err
	}
	if !idx.extensions.Matches(abs) {
		return database.NewPhoto{}, ErrUnsupported
	}

	info, err := filesystem.StatWithRetry(abs, filesystem.DefaultRetryConfig())
	if err != nil {
		return database.NewPhoto{}, fmt.Errorf("%w: %w", media.ErrSourceUnavailable, err)
	}
	if !info.Mode().IsRegular() {
		return database.NewPhoto{}, fmt.Errorf("%w: not a regular file", media.ErrSourceUnavailable)
	}
	if err := idx.probe(abs); err != nil {
		return database.NewPhoto{}, err
	}

	capture := exif.Read(abs)
	created := capture.TakenAt
	if created.IsZero() {
		created = info.ModTime()
	}

	return database.NewPhoto{
		FolderID:     folderID,
		FilePath:     abs,
		ISO:          capture.ISO,
		FocalLength:  capture.FocalLength,
		Aperture:     capture.Aperture,
		ShutterSpeed: capture.ShutterSpeed,
		Lens:         capture.LensModel,
		DateCreated:  created,
	}, nil
}
