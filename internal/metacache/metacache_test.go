package metacache

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoref/internal/media"
	"photoref/internal/testutil"
)

func countingCache(t *testing.T, docPath string) (*Cache, *atomic.Int32) {
	t.Helper()

	c := New(docPath)
	var probes atomic.Int32
	c.probe = func(path string) (*media.ImageDimensions, error) {
		probes.Add(1)
		return media.GetImageDimensions(path)
	}
	return c, &probes
}

func TestGetFileInfo(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, ".ref", "photo_meta.json")
	src := testutil.WritePNG(t, dir, "b.png", 30, 20)

	c, probes := countingCache(t, doc)

	info := c.GetFileInfo(src)
	assert.Equal(t, "b.png", info.Filename)
	assert.Equal(t, 30, info.Width)
	assert.Equal(t, 20, info.Height)
	st, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, st.Size(), info.Size)
	assert.WithinDuration(t, st.ModTime(), info.Modified, time.Millisecond)
	assert.False(t, info.Degraded())

	again := c.GetFileInfo(src)
	assert.Equal(t, info.Width, again.Width)
	assert.Equal(t, int32(1), probes.Load())
	assert.Equal(t, 1, c.Len())
	assert.FileExists(t, doc)
}

func TestGetFileInfoPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "photo_meta.json")
	src := testutil.WriteJPEG(t, dir, "a.jpg", 40, 10)

	first := New(doc)
	first.GetFileInfo(src)

	second, probes := countingCache(t, doc)
	require.Equal(t, 1, second.Len())

	info := second.GetFileInfo(src)
	assert.Equal(t, 40, info.Width)
	assert.Equal(t, int32(0), probes.Load(), "fresh entry must come from the loaded document")
}

func TestGetFileInfoStaleAfterTouch(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WritePNG(t, dir, "c.png", 8, 8)
	c, probes := countingCache(t, filepath.Join(dir, "meta.json"))

	c.GetFileInfo(src)

	// within epsilon: still fresh
	st, err := os.Stat(src)
	require.NoError(t, err)
	testutil.SetModTime(t, src, st.ModTime().Add(2*time.Millisecond))
	c.GetFileInfo(src)
	assert.Equal(t, int32(1), probes.Load())

	// replace content and move mtime well past epsilon
	testutil.WritePNG(t, dir, "c.png", 16, 4)
	testutil.SetModTime(t, src, st.ModTime().Add(time.Second))
	info := c.GetFileInfo(src)
	assert.Equal(t, int32(2), probes.Load())
	assert.Equal(t, 16, info.Width)
	assert.Equal(t, 4, info.Height)
}

func TestGetFileInfoDegrades(t *testing.T) {
	dir := t.TempDir()
	c := New(filepath.Join(dir, "meta.json"))

	missing := c.GetFileInfo(filepath.Join(dir, "missing.jpg"))
	assert.True(t, missing.Degraded())
	assert.Equal(t, "missing.jpg", missing.Filename)

	corrupt := testutil.WriteFile(t, dir, "corrupt.jpg", []byte("nope"))
	info := c.GetFileInfo(corrupt)
	assert.True(t, info.Degraded())
	assert.Equal(t, 0, c.Len(), "degraded records are not persisted")
}

func TestNewIgnoresCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.WriteFile(t, dir, "meta.json", []byte("{not json"))
	src := testutil.WritePNG(t, dir, "d.png", 5, 5)

	c := New(doc)
	assert.Equal(t, 0, c.Len())

	c.GetFileInfo(src)
	reloaded := New(doc)
	assert.Equal(t, 1, reloaded.Len())
}

func TestForget(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "meta.json")
	a := testutil.WritePNG(t, dir, "a.png", 5, 5)
	b := testutil.WritePNG(t, dir, "b.png", 5, 5)

	c := New(doc)
	c.GetFileInfo(a)
	c.GetFileInfo(b)
	require.Equal(t, 2, c.Len())

	require.NoError(t, c.Forget(a, filepath.Join(dir, "never-cached.png")))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, New(doc).Len())

	require.NoError(t, c.Forget("unknown"))
}

func TestSecondsRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 9, 10, 11, 12, 345_000_000, time.UTC)
	assert.WithinDuration(t, ts, fromSeconds(toSeconds(ts)), time.Microsecond)
}
