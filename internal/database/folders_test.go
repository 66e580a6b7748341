package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFolder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	f, err := db.CreateFolder(ctx, "  Portraits ", "/photos/portraits")
	require.NoError(t, err)
	assert.Positive(t, f.ID)
	assert.Equal(t, "Portraits", f.Name)
	assert.Equal(t, "/photos/portraits", f.Path)
	assert.False(t, f.CreatedAt.IsZero())
	assert.Equal(t, 0, f.PhotoCount)

	_, err = db.CreateFolder(ctx, "Other name", "/photos/portraits")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateFolderValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		folder string
		path   string
	}{
		{"empty name", "   ", "/photos/a"},
		{"relative path", "a", "photos/a"},
		{"empty path", "a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.CreateFolder(ctx, tt.folder, tt.path)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGetFolderNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetFolder(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFoldersOrderAndCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	zoo := mustFolder(t, db, "zoo")
	beach := mustFolder(t, db, "Beach")
	mustFolder(t, db, "city")

	mustImport(t, db, &beach.ID, "/photos/Beach/1.jpg", day(1))
	mustImport(t, db, &beach.ID, "/photos/Beach/2.jpg", day(2))
	trashed := mustImport(t, db, &beach.ID, "/photos/Beach/3.jpg", day(3))
	_, err := db.SoftDelete(ctx, trashed.ID)
	require.NoError(t, err)
	mustImport(t, db, &zoo.ID, "/photos/zoo/1.jpg", day(1))

	folders, err := db.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 3)

	assert.Equal(t, []string{"Beach", "city", "zoo"}, []string{folders[0].Name, folders[1].Name, folders[2].Name})
	assert.Equal(t, 2, folders[0].PhotoCount, "trashed photos are not counted")
	assert.Equal(t, 0, folders[1].PhotoCount)
	assert.Equal(t, 1, folders[2].PhotoCount)
}

func TestRenameFolder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := mustFolder(t, db, "old")

	renamed, err := db.RenameFolder(ctx, f.ID, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", renamed.Name)
	assert.Equal(t, f.Path, renamed.Path)

	_, err = db.RenameFolder(ctx, 999, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.RenameFolder(ctx, f.ID, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteFolderCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	folder, err := db.CreateFolder(ctx, "trip", dir)
	require.NoError(t, err)
	other := mustFolder(t, db, "other")

	var paths []string
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("source"), 0o644))
		paths = append(paths, path)
	}
	p1 := mustImport(t, db, &folder.ID, paths[0], day(1))
	mustImport(t, db, &folder.ID, paths[1], day(2))
	p3 := mustImport(t, db, &folder.ID, paths[2], day(3))
	_, err = db.SoftDelete(ctx, p3.ID)
	require.NoError(t, err)
	keep := mustImport(t, db, &other.ID, "/photos/other/keep.jpg", day(4))

	removed, err := db.DeleteFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	assert.Equal(t, p1.ID, removed[0].ID)

	_, err = db.GetFolder(ctx, folder.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, p := range removed {
		_, err := db.GetPhoto(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	_, err = db.GetPhoto(ctx, keep.ID)
	assert.NoError(t, err)

	for _, path := range paths {
		assert.FileExists(t, path, "source files must survive folder deletion")
	}

	_, err = db.DeleteFolder(ctx, folder.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFolderInterruptedLeavesEverything(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	folder := mustFolder(t, db, "trip")
	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		mustImport(t, db, &folder.ID, "/photos/trip/"+name, day(i))
	}

	interrupted := errors.New("power cut")
	db.beforeCommit = func(op string) error {
		if op == "delete_folder" {
			return interrupted
		}
		return nil
	}

	_, err := db.DeleteFolder(ctx, folder.ID)
	require.ErrorIs(t, err, interrupted)

	db.beforeCommit = nil

	got, err := db.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.PhotoCount)

	photos, err := db.ListByFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Len(t, photos, 3)
}
