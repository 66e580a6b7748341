// Package metacache keeps lightweight file facts (pixel dimensions, byte
// size, timestamps) for source images so gallery rendering does not re-probe
// every file.
//
// The whole cache is one JSON document mapping absolute source path to its
// record. It is loaded into memory by New and rewritten atomically after
// every change. That is fine for a personal library; a much larger
// collection would want an embedded key-value store instead.
package metacache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"photoref/internal/filesystem"
	"photoref/internal/logging"
	"photoref/internal/media"
	"photoref/internal/metrics"
)

// Epsilon is the tolerance when comparing modification times, covering
// filesystem timestamp granularity.
const Epsilon = 10 * time.Millisecond

// FileInfo describes a source file. A zero Width/Height/Size means the file
// could not be read.
type FileInfo struct {
	Filename string
	Width    int
	Height   int
	Size     int64
	Created  time.Time
	Modified time.Time
}

// Degraded reports whether the record was produced from a failed probe.
func (f FileInfo) Degraded() bool {
	return f.Width == 0 && f.Height == 0 && f.Size == 0
}

// record is the on-disk form; times are fractional Unix seconds.
type record struct {
	Filename string  `json:"filename"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Size     int64   `json:"size"`
	Created  float64 `json:"created"`
	Modified float64 `json:"modified"`
}

func toSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*float64(time.Second))))
}

func (r record) info() FileInfo {
	return FileInfo{
		Filename: r.Filename,
		Width:    r.Width,
		Height:   r.Height,
		Size:     r.Size,
		Created:  fromSeconds(r.Created),
		Modified: fromSeconds(r.Modified),
	}
}

// Cache is safe for concurrent use.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]record

	// probe reads pixel dimensions; replaced in tests.
	probe func(path string) (*media.ImageDimensions, error)
}

// New loads the document at path. A missing document starts an empty cache;
// an unreadable or corrupt one is logged and replaced on the next write.
func New(path string) *Cache {
	c := &Cache{
		path:    path,
		entries: make(map[string]record),
		probe:   media.GetImageDimensions,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logging.Debug("Metadata cache: no document at %s, starting empty", path)
	case err != nil:
		metrics.MetadataCacheErrors.WithLabelValues("load").Inc()
		logging.Warn("Metadata cache: failed to read %s: %v", path, err)
	default:
		if err := json.Unmarshal(data, &c.entries); err != nil {
			metrics.MetadataCacheErrors.WithLabelValues("load").Inc()
			logging.Warn("Metadata cache: ignoring corrupt document %s: %v", path, err)
			c.entries = make(map[string]record)
		}
	}

	logging.Debug("Metadata cache: loaded %d entries from %s", len(c.entries), path)
	return c
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetFileInfo returns the cached record for path while the file's
// modification time still matches, re-probing the file otherwise. It never
// fails: unreadable files yield a zeroed record that is not persisted.
func (c *Cache) GetFileInfo(path string) FileInfo {
	degraded := FileInfo{Filename: filepath.Base(path)}

	stat, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		metrics.MetadataCacheErrors.WithLabelValues("probe").Inc()
		logging.Warn("Metadata cache: cannot stat %s: %v", path, err)
		return degraded
	}
	modified := toSeconds(stat.ModTime())

	c.mu.Lock()
	cached, ok := c.entries[path]
	c.mu.Unlock()

	if ok && math.Abs(cached.Modified-modified) < Epsilon.Seconds() {
		metrics.MetadataCacheHits.Inc()
		return cached.info()
	}
	metrics.MetadataCacheMisses.Inc()

	dims, err := c.probe(path)
	if err != nil {
		metrics.MetadataCacheErrors.WithLabelValues("probe").Inc()
		logging.Warn("Metadata cache: cannot probe %s: %v", path, err)
		return degraded
	}

	rec := record{
		Filename: filepath.Base(path),
		Width:    dims.Width,
		Height:   dims.Height,
		Size:     stat.Size(),
		Created:  toSeconds(filesystem.CreatedTime(stat)),
		Modified: modified,
	}

	c.mu.Lock()
	c.entries[path] = rec
	err = c.saveLocked()
	c.mu.Unlock()
	if err != nil {
		logging.Warn("Metadata cache: %v", err)
	}

	return rec.info()
}

// Forget drops the entries for paths and persists the document if anything
// changed.
func (c *Cache) Forget(paths ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	for _, p := range paths {
		if _, ok := c.entries[p]; ok {
			delete(c.entries, p)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return c.saveLocked()
}

func (c *Cache) saveLocked() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		metrics.MetadataCacheErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("failed to encode %s: %w", c.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		metrics.MetadataCacheErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(c.path), err)
	}
	if err := filesystem.WriteFileAtomic(c.path, data, 0o644); err != nil {
		metrics.MetadataCacheErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	return nil
}
