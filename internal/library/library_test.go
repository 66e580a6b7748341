package library

import (
	"context"
	"errors"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoref/internal/database"
	"photoref/internal/indexer"
	"photoref/internal/media"
	"photoref/internal/startup"
	"photoref/internal/testutil"
	"photoref/internal/workers"
)

type fixture struct {
	lib    *Library
	cfg    *startup.Config
	photos string // source directory
	a, b   string // a.jpg has EXIF, b.png has none
}

func openTestLibrary(t *testing.T) (*Library, *startup.Config) {
	t.Helper()
	for _, key := range []string{startup.EnvThumbnailSize, startup.EnvThumbnailQuality, startup.EnvUseVips, workers.EnvOverride} {
		t.Setenv(key, "")
	}

	cfg, err := startup.InitProject(t.TempDir())
	require.NoError(t, err)
	cfg.ThumbnailSize = 16
	cfg.Workers = 2

	lib, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib, cfg
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	lib, cfg := openTestLibrary(t)

	dir := filepath.Join(t.TempDir(), "beach")
	require.NoError(t, os.Mkdir(dir, 0o755))

	a := testutil.WriteJPEG(t, dir, "a.jpg", 32, 24,
		testutil.Short(testutil.TagISOSpeedRatings, 400),
		testutil.ASCII(testutil.TagFNumber, "F/2.8"),
		testutil.DateTimeOriginal(time.Date(2021, 5, 1, 9, 0, 0, 0, time.Local)),
	)
	b := testutil.WritePNG(t, dir, "b.png", 20, 10)
	testutil.SetModTime(t, b, time.Date(2023, 1, 1, 12, 0, 0, 0, time.Local))
	testutil.WriteFile(t, dir, "readme.txt", []byte("not a photo"))

	return fixture{lib: lib, cfg: cfg, photos: dir, a: a, b: b}
}

func (f fixture) addFolder(t *testing.T) *database.Folder {
	t.Helper()
	folder, result, err := f.lib.AddFolder(context.Background(), f.photos)
	require.NoError(t, err)
	require.Len(t, result.Imported, 2)
	return folder
}

func paths(photos []database.Photo) []string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.FilePath
	}
	return out
}

func TestAddFolderImportsAndLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.addFolder(t)
	assert.Equal(t, "beach", folder.Name)
	assert.Equal(t, f.photos, folder.Path)
	assert.Equal(t, 2, folder.PhotoCount)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{f.b, f.a}, paths(all), "newest first")

	exifPhoto := all[1]
	require.NotNil(t, exifPhoto.ISO)
	assert.Equal(t, 400, *exifPhoto.ISO)
	require.NotNil(t, exifPhoto.Aperture)
	assert.InDelta(t, 2.8, *exifPhoto.Aperture, 1e-9)
	assert.Equal(t, folder.ID, *exifPhoto.FolderID)

	plain := all[0]
	assert.Nil(t, plain.ISO)
	assert.Nil(t, plain.Aperture)
	assert.Equal(t, time.Date(2023, 1, 1, 12, 0, 0, 0, time.Local).UnixMilli(), plain.DateCreated.UnixMilli())

	byFolder, err := f.lib.ListByFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, paths(all), paths(byFolder))
}

func TestAddFolderErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addFolder(t)

	_, _, err := f.lib.AddFolder(ctx, f.photos)
	assert.ErrorIs(t, err, database.ErrConflict)

	_, _, err = f.lib.AddFolder(ctx, f.a)
	assert.ErrorIs(t, err, database.ErrValidation)

	_, _, err = f.lib.AddFolder(ctx, filepath.Join(f.photos, "missing"))
	assert.ErrorIs(t, err, media.ErrSourceUnavailable)

	folders, err := f.lib.Folders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func TestAddFolderUnregistersOnFailedImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.lib.importFolder = func(context.Context, int64, string) (indexer.Result, error) {
		return indexer.Result{}, errors.New("database is locked")
	}
	folder, _, err := f.lib.AddFolder(ctx, f.photos)
	require.Error(t, err)
	assert.Nil(t, folder)

	folders, err := f.lib.Folders(ctx)
	require.NoError(t, err)
	assert.Empty(t, folders)

	f.lib.importFolder = f.lib.indexer.ImportFolder
	f.addFolder(t)
}

func TestRescanImportsOnlyNewFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	folder := f.addFolder(t)

	testutil.WritePNG(t, f.photos, "c.png", 8, 8)

	result, err := f.lib.Rescan(ctx, folder.ID)
	require.NoError(t, err)
	assert.Len(t, result.Imported, 1)
	assert.Len(t, result.Skipped, 2)

	count, err := f.lib.CountPhotos(ctx, database.ScopeActive)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestImportFilesUnassigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.lib.ImportFiles(ctx, nil, []string{f.a})
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)

	unassigned, err := f.lib.ListUnassigned(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{f.a}, paths(unassigned))

	details, err := f.lib.PhotoDetails(ctx, result.Imported[0].ID)
	require.NoError(t, err)
	assert.Nil(t, details.Folder)

	missing := int64(999)
	_, err = f.lib.ImportFiles(ctx, &missing, []string{f.b})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestPhotoDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	folder := f.addFolder(t)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)

	details, err := f.lib.PhotoDetails(ctx, all[1].ID)
	require.NoError(t, err)
	require.NotNil(t, details.Folder)
	assert.Equal(t, folder.ID, details.Folder.ID)
	assert.Equal(t, "a.jpg", details.File.Filename)
	assert.Equal(t, 32, details.File.Width)
	assert.Equal(t, 24, details.File.Height)
	assert.False(t, details.File.Degraded())

	_, err = f.lib.PhotoDetails(ctx, 999)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSoftDeleteRestorePurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addFolder(t)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	photo := all[1]

	thumb := f.lib.Thumbnail(ctx, photo)
	require.FileExists(t, thumb)
	assert.NotEqual(t, photo.FilePath, thumb)
	f.lib.FileInfo(photo.FilePath)
	require.Equal(t, 1, f.lib.meta.Len())

	_, err = f.lib.Purge(ctx, photo.ID)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)

	trashed, err := f.lib.SoftDelete(ctx, photo.ID)
	require.NoError(t, err)
	assert.True(t, trashed.IsDeleted)
	assert.FileExists(t, thumb, "soft delete keeps the thumbnail")

	active, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{f.b}, paths(active))
	trash, err := f.lib.ListTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{f.a}, paths(trash))

	restored, err := f.lib.Restore(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, photo, *restored)

	_, err = f.lib.SoftDelete(ctx, photo.ID)
	require.NoError(t, err)
	purged, err := f.lib.Purge(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, photo.ID, purged.ID)

	assert.NoFileExists(t, thumb)
	assert.Equal(t, 0, f.lib.meta.Len())
	assert.FileExists(t, f.a, "source file is never touched")

	_, err = f.lib.Photo(ctx, photo.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = f.lib.Restore(ctx, photo.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestListAllIncludeDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addFolder(t)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	_, err = f.lib.SoftDelete(ctx, all[0].ID)
	require.NoError(t, err)

	active, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	everything, err := f.lib.ListAll(ctx, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, paths(all), paths(everything))
}

func TestEmptyTrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addFolder(t)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	for _, p := range all {
		_, err := f.lib.SoftDelete(ctx, p.ID)
		require.NoError(t, err)
	}

	purged, err := f.lib.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Len(t, purged, 2)

	count, err := f.lib.CountPhotos(ctx, database.ScopeAll)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteFolderDropsDerivedArtifacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	folder := f.addFolder(t)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	require.NoError(t, f.lib.WarmThumbnails(ctx, all))

	var thumbs []string
	for _, p := range all {
		thumb := f.lib.thumbs.CachePath(p.ID, p.FilePath)
		require.FileExists(t, thumb)
		thumbs = append(thumbs, thumb)
		f.lib.FileInfo(p.FilePath)
	}
	_, err = f.lib.SoftDelete(ctx, all[0].ID)
	require.NoError(t, err)

	removed, err := f.lib.DeleteFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 2, "trashed photos go with the folder")

	for _, thumb := range thumbs {
		assert.NoFileExists(t, thumb)
	}
	assert.Equal(t, 0, f.lib.meta.Len())
	assert.FileExists(t, f.a)
	assert.FileExists(t, f.b)
	assert.DirExists(t, f.photos)

	count, err := f.lib.CountPhotos(ctx, database.ScopeAll)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.lib.Folder(ctx, folder.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestFavoritesAndEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addFolder(t)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	id := all[0].ID

	photo, err := f.lib.ToggleFavorite(ctx, id)
	require.NoError(t, err)
	assert.True(t, photo.IsFavorite)

	favorites, err := f.lib.ListFavorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{f.b}, paths(favorites))

	photo, err = f.lib.ToggleFavorite(ctx, id)
	require.NoError(t, err)
	assert.False(t, photo.IsFavorite)

	rating := 4
	tags := []string{"sea", "Sea", " dusk "}
	photo, err = f.lib.UpdatePhoto(ctx, id, database.PhotoUpdate{Rating: &rating, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, 4, photo.Rating)
	assert.Equal(t, []string{"sea", "dusk"}, photo.Tags)

	found, err := f.lib.Search(ctx, database.SearchOptions{Tags: "dusk"})
	require.NoError(t, err)
	assert.Equal(t, []string{f.b}, paths(found))

	photo, err = f.lib.ReassignFolder(ctx, id, nil)
	require.NoError(t, err)
	assert.Nil(t, photo.FolderID)
}

func TestRenameFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	folder := f.addFolder(t)

	renamed, err := f.lib.RenameFolder(ctx, folder.ID, "Coast")
	require.NoError(t, err)
	assert.Equal(t, "Coast", renamed.Name)
	assert.Equal(t, folder.Path, renamed.Path)

	_, err = f.lib.RenameFolder(ctx, folder.ID, "")
	assert.ErrorIs(t, err, database.ErrValidation)
}

func TestThumbnailFallsBackToSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addFolder(t)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	photo := all[0]
	require.NoError(t, os.Remove(photo.FilePath))

	assert.Equal(t, photo.FilePath, f.lib.Thumbnail(ctx, photo))
	assert.True(t, f.lib.FileInfo(photo.FilePath).Degraded())
}

func thumbnailEdge(t *testing.T, path string) int {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	cfg, err := jpeg.DecodeConfig(file)
	require.NoError(t, err)
	return max(cfg.Width, cfg.Height)
}

func TestThumbnailsFollowConfiguredSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addFolder(t)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	photo := all[1] // a.jpg, 32x24
	require.Equal(t, f.a, photo.FilePath)

	require.NoError(t, f.lib.WarmThumbnails(ctx, all))
	warmed := f.lib.thumbs.CachePath(photo.ID, photo.FilePath)
	assert.Equal(t, 16, thumbnailEdge(t, warmed))

	f.cfg.ThumbnailSize = 24
	thumb := f.lib.Thumbnail(ctx, photo)
	assert.Equal(t, warmed, thumb)
	assert.Equal(t, 24, thumbnailEdge(t, thumb))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addFolder(t)

	all, err := f.lib.ListAll(ctx, false)
	require.NoError(t, err)
	require.NoError(t, f.lib.WarmThumbnails(ctx, all))
	_, err = f.lib.SetFavorite(ctx, all[0].ID, true)
	require.NoError(t, err)
	_, err = f.lib.SoftDelete(ctx, all[1].ID)
	require.NoError(t, err)

	stats, err := f.lib.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActivePhotos)
	assert.Equal(t, 1, stats.TrashedPhotos)
	assert.Equal(t, 1, stats.FavoritePhotos)
	assert.Equal(t, 1, stats.Folders)
	assert.Equal(t, 2, stats.ThumbnailFiles)
	assert.Positive(t, stats.ThumbnailBytes)
	assert.Equal(t, f.cfg.LibraryID, stats.LibraryID)
	assert.Equal(t, uint(2), stats.SchemaVersion)
	assert.False(t, stats.LastImport.IsZero())
}

func TestReopenKeepsLibrary(t *testing.T) {
	for _, key := range []string{startup.EnvThumbnailSize, startup.EnvThumbnailQuality, startup.EnvUseVips, workers.EnvOverride} {
		t.Setenv(key, "")
	}
	ctx := context.Background()
	project := t.TempDir()
	photos := t.TempDir()
	testutil.WritePNG(t, photos, "a.png", 8, 8)

	cfg, err := startup.InitProject(project)
	require.NoError(t, err)
	lib, err := Open(ctx, cfg)
	require.NoError(t, err)
	_, _, err = lib.AddFolder(ctx, photos)
	require.NoError(t, err)
	require.NoError(t, lib.Close())

	cfg, err = startup.LoadConfig(project)
	require.NoError(t, err)
	lib, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer lib.Close()

	all, err := lib.ListAll(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	stored, err := lib.db.GetMetadata(ctx, database.MetaLibraryID)
	require.NoError(t, err)
	assert.Equal(t, cfg.LibraryID, stored)
}
