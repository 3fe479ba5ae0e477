package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMediaTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.MediaFile{})
	require.NoError(t, err)

	return db
}

func TestMediaFileRepo_CreateAndGetByPath(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewMediaFileRepository(db)
	ctx := context.Background()

	file := &models.MediaFile{
		Path:       "/lib/Movies/Foo.mkv",
		VideoCodec: "hevc",
		AudioCodec: "ac3",
		Container:  "matroska",
		Analyzed:   true,
	}
	require.NoError(t, repo.Create(ctx, file))
	assert.False(t, file.ID.IsZero())

	found, err := repo.GetByPath(ctx, "/lib/Movies/Foo.mkv")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "hevc", found.VideoCodec)
	assert.True(t, found.Analyzed)
}

func TestMediaFileRepo_GetByPath_NotFound(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewMediaFileRepository(db)

	found, err := repo.GetByPath(context.Background(), "/lib/nope.mp4")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMediaFileRepo_Update(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewMediaFileRepository(db)
	ctx := context.Background()

	file := &models.MediaFile{Path: "/lib/Foo.mp4"}
	require.NoError(t, repo.Create(ctx, file))

	file.VideoCodec = "h264"
	file.Analyzed = true
	require.NoError(t, repo.Update(ctx, file))

	found, err := repo.GetByPath(ctx, "/lib/Foo.mp4")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "h264", found.VideoCodec)
	assert.True(t, found.Analyzed)
}

func TestMediaFileRepo_DeleteByPath(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewMediaFileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.MediaFile{Path: "/lib/Foo.avi"}))
	require.NoError(t, repo.DeleteByPath(ctx, "/lib/Foo.avi"))

	found, err := repo.GetByPath(ctx, "/lib/Foo.avi")
	require.NoError(t, err)
	assert.Nil(t, found)

	// Deleting again is not an error.
	require.NoError(t, repo.DeleteByPath(ctx, "/lib/Foo.avi"))
}
