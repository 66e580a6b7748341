package media

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	"photoref/internal/filesystem"
	"photoref/internal/logging"
	"photoref/internal/metrics"
	"photoref/internal/workers"
)

const (
	// DefaultThumbnailSize is the longer-edge bound used by the gallery.
	DefaultThumbnailSize = 260

	// DefaultThumbnailQuality is the JPEG quality of generated thumbnails.
	DefaultThumbnailQuality = 85

	// ModTimeTolerance is how far a thumbnail's stamped modification time may
	// drift from its source's before the entry counts as stale.
	ModTimeTolerance = 10 * time.Millisecond
)

// ThumbnailCache generates and serves thumbnails stored in one directory.
type ThumbnailCache struct {
	dir     string
	quality int

	// decode loads a source image; replaced in tests to count decodes.
	decode func(path string, maxSize int) (image.Image, error)
	// dimensions reads a source's size from its header.
	dimensions func(path string) (*ImageDimensions, error)

	group singleflight.Group
}

// NewThumbnailCache creates the cache directory if needed.
func NewThumbnailCache(dir string, quality int) (*ThumbnailCache, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultThumbnailQuality
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail dir %s: %w", dir, err)
	}

	logging.Debug("ThumbnailCache: cache dir: %s, quality %d", dir, quality)

	return &ThumbnailCache{
		dir:        dir,
		quality:    quality,
		decode:     LoadImage,
		dimensions: GetImageDimensions,
	}, nil
}

// Dir returns the cache directory.
func (c *ThumbnailCache) Dir() string {
	return c.dir
}

// CacheKey returns "<photoID>_<md5(sourcePath)>.jpg".
func CacheKey(photoID int64, sourcePath string) string {
	return fmt.Sprintf("%d_%x.jpg", photoID, md5.Sum([]byte(sourcePath)))
}

// CachePath returns where the thumbnail for the pair lives, whether or not it
// has been generated yet.
func (c *ThumbnailCache) CachePath(photoID int64, sourcePath string) string {
	return filepath.Join(c.dir, CacheKey(photoID, sourcePath))
}

// GetThumbnail returns the path of a JPEG no larger than maxSize on its
// longer edge. It never fails: when the thumbnail cannot be produced the
// source path itself is returned.
func (c *ThumbnailCache) GetThumbnail(ctx context.Context, photoID int64, sourcePath string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = DefaultThumbnailSize
	}
	cachePath := c.CachePath(photoID, sourcePath)

	srcInfo, err := filesystem.StatWithRetry(sourcePath, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Thumbnail source unavailable %s: %v", sourcePath, err)
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_source").Inc()
		return sourcePath
	}

	if c.fresh(cachePath, sourcePath, srcInfo.ModTime(), maxSize) {
		logging.Debug("Thumbnail cache hit: %s", sourcePath)
		metrics.ThumbnailCacheHits.Inc()
		return cachePath
	}
	metrics.ThumbnailCacheMisses.Inc()

	if ctx.Err() != nil {
		return sourcePath
	}

	_, err, _ = c.group.Do(cachePath, func() (interface{}, error) {
		// Another caller may have finished while we waited on the group.
		if c.fresh(cachePath, sourcePath, srcInfo.ModTime(), maxSize) {
			return nil, nil
		}
		return nil, c.generate(sourcePath, cachePath, maxSize, srcInfo.ModTime())
	})
	if err != nil {
		logging.Warn("Thumbnail generation failed for %s: %v", sourcePath, err)
		return sourcePath
	}

	return cachePath
}

// fresh reports whether cachePath was generated from the source as it is
// now and at maxSize. Generation stamps the entry with the source's
// modification time, so any change to it, forwards or backwards, makes the
// entry stale.
func (c *ThumbnailCache) fresh(cachePath, sourcePath string, sourceModTime time.Time, maxSize int) bool {
	info, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	drift := info.ModTime().Sub(sourceModTime)
	if drift < -ModTimeTolerance || drift > ModTimeTolerance {
		return false
	}

	cached, err := longerEdge(cachePath)
	if err != nil {
		logging.Debug("Thumbnail unreadable, regenerating %s: %v", cachePath, err)
		return false
	}
	if cached == maxSize {
		return true
	}
	if cached > maxSize {
		return false
	}

	// Smaller than asked for is right only when the source itself is.
	dims, err := c.dimensions(sourcePath)
	if err != nil {
		return true
	}
	return cached == max(dims.Width, dims.Height)
}

func longerEdge(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		return 0, err
	}
	return max(cfg.Width, cfg.Height), nil
}

func (c *ThumbnailCache) generate(sourcePath, cachePath string, maxSize int, sourceModTime time.Time) error {
	start := time.Now()
	logging.Debug("Thumbnail generating: %s (max %d)", sourcePath, maxSize)

	img, err := c.decode(sourcePath, maxSize)
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_source").Inc()
		return err
	}
	if img == nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_source").Inc()
		return fmt.Errorf("%w: %s: decoder returned no image", ErrSourceUnavailable, sourcePath)
	}

	thumb := imaging.Fit(toRGB(img), maxSize, maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: c.quality}); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_encode").Inc()
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if err := filesystem.WriteFileAtomic(cachePath, buf.Bytes(), 0o644); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_write").Inc()
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	if err := os.Chtimes(cachePath, sourceModTime, sourceModTime); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_write").Inc()
		return fmt.Errorf("failed to stamp thumbnail: %w", err)
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
	metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	logging.Debug("Thumbnail cached: %s (%d bytes)", cachePath, buf.Len())
	return nil
}

// toRGB flattens img onto an opaque white background so transparent and
// paletted sources encode consistently as JPEG.
func toRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), image.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// Invalidate removes the cached thumbnail for the pair. A missing entry is
// not an error.
func (c *ThumbnailCache) Invalidate(photoID int64, sourcePath string) error {
	err := os.Remove(c.CachePath(photoID, sourcePath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove thumbnail: %w", err)
	}
	if err == nil {
		metrics.ThumbnailInvalidations.Inc()
	}
	return nil
}

// ThumbnailRequest identifies one thumbnail for Warm.
type ThumbnailRequest struct {
	PhotoID    int64
	SourcePath string
}

// Warm generates thumbnails for reqs on a bounded pool of n workers.
// Individual failures fall back as in GetThumbnail and do not stop the batch.
func (c *ThumbnailCache) Warm(ctx context.Context, n int, reqs []ThumbnailRequest, maxSize int) error {
	return workers.Each(ctx, n, reqs, func(ctx context.Context, r ThumbnailRequest) error {
		c.GetThumbnail(ctx, r.PhotoID, r.SourcePath, maxSize)
		return nil
	})
}

// Size returns the total bytes and number of thumbnails in the cache.
func (c *ThumbnailCache) Size() (int64, int, error) {
	var total int64
	var count int

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jpg") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		count++
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to walk thumbnail dir: %w", err)
	}

	return total, count, nil
}
