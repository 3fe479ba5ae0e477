package handlers

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHandlerRepos(t *testing.T) (repository.ConversionJobRepository, repository.MediaFileRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.MediaFile{}, &models.ConversionJob{}))

	return repository.NewConversionJobRepository(db), repository.NewMediaFileRepository(db)
}

func TestHealthHandler_GetHealth(t *testing.T) {
	handler := NewHealthHandler("1.0.0", nil, nil)

	output, err := handler.GetHealth(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, output)

	assert.Equal(t, "healthy", output.Body.Status)
	assert.Equal(t, "1.0.0", output.Body.Version)
	assert.Equal(t, "not_configured", output.Body.Checks["database"])
	assert.Positive(t, output.Body.CPU.Cores)
}

func TestJobHandler_List(t *testing.T) {
	ctx := context.Background()
	jobs, _ := setupHandlerRepos(t)
	handler := NewJobHandler(jobs)

	queued := models.NewConversionJob("/library/a.avi", "/library/a.mp4", "h264-aac-mp4")
	require.NoError(t, jobs.Create(ctx, queued))

	failed := models.NewConversionJob("/library/b.wmv", "/library/b.mp4", "h264-aac-mp4")
	failed.MarkRunning()
	failed.MarkFailed("encoder crashed")
	require.NoError(t, jobs.Create(ctx, failed))

	t.Run("unfiltered returns all jobs", func(t *testing.T) {
		output, err := handler.List(ctx, &ListJobsInput{})
		require.NoError(t, err)
		assert.Len(t, output.Body, 2)
	})

	t.Run("filters by status", func(t *testing.T) {
		output, err := handler.List(ctx, &ListJobsInput{Status: "queued"})
		require.NoError(t, err)
		require.Len(t, output.Body, 1)
		assert.Equal(t, "/library/a.avi", output.Body[0].InputPath)
		assert.Equal(t, "queued", output.Body[0].Status)
	})
}

func TestJobHandler_Get(t *testing.T) {
	ctx := context.Background()
	jobs, _ := setupHandlerRepos(t)
	handler := NewJobHandler(jobs)

	job := models.NewConversionJob("/library/a.avi", "/library/a.mp4", "h264-aac-mp4")
	require.NoError(t, jobs.Create(ctx, job))

	t.Run("returns job by id", func(t *testing.T) {
		output, err := handler.Get(ctx, &GetJobInput{ID: job.ID.String()})
		require.NoError(t, err)
		assert.Equal(t, job.ID.String(), output.Body.ID)
		assert.Equal(t, job.ExternalID, output.Body.ExternalID)
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		_, err := handler.Get(ctx, &GetJobInput{ID: "not-a-ulid"})
		assert.Error(t, err)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := handler.Get(ctx, &GetJobInput{ID: models.NewULID().String()})
		assert.Error(t, err)
	})
}

func TestMediaHandler_ListAndGet(t *testing.T) {
	ctx := context.Background()
	_, media := setupHandlerRepos(t)
	handler := NewMediaHandler(media, nil, nil)

	file := &models.MediaFile{
		Path:       "/library/movie.mkv",
		VideoCodec: "hevc",
		AudioCodec: "aac",
		Container:  "matroska",
		Analyzed:   true,
	}
	require.NoError(t, media.Create(ctx, file))

	t.Run("lists files", func(t *testing.T) {
		output, err := handler.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, output.Body, 1)
		assert.Equal(t, "/library/movie.mkv", output.Body[0].Path)
	})

	t.Run("returns file by id", func(t *testing.T) {
		output, err := handler.Get(ctx, &GetMediaInput{ID: file.ID.String()})
		require.NoError(t, err)
		assert.Equal(t, "hevc", output.Body.VideoCodec)
		assert.True(t, output.Body.Analyzed)
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		_, err := handler.Get(ctx, &GetMediaInput{ID: "nope"})
		assert.Error(t, err)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := handler.Get(ctx, &GetMediaInput{ID: models.NewULID().String()})
		assert.Error(t, err)
	})
}
