package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetMetadata(ctx, MetaLibraryID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SetMetadata(ctx, MetaLibraryID, "abc"))
	require.NoError(t, db.SetMetadata(ctx, MetaLibraryID, "def"))

	value, err := db.GetMetadata(ctx, MetaLibraryID)
	require.NoError(t, err)
	assert.Equal(t, "def", value)
}

func TestLastImport(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	last, err := db.GetLastImport(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	ts := time.Date(2024, 2, 3, 4, 5, 6, 7, time.UTC)
	require.NoError(t, db.SetLastImport(ctx, ts))
	last, err = db.GetLastImport(ctx)
	require.NoError(t, err)
	assert.True(t, ts.Equal(last))

	require.NoError(t, db.SetLastImport(ctx, time.Time{}))
	last, err = db.GetLastImport(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
