package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/vidarr/internal/lock"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupBatchRepos(t *testing.T) (repository.ConversionJobRepository, repository.MediaFileRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ConversionJob{}, &models.MediaFile{}))

	return repository.NewConversionJobRepository(db), repository.NewMediaFileRepository(db)
}

// fakeRunner is a scriptable Runner for dispatcher/reconciler tests.
type fakeRunner struct {
	mu        sync.Mutex
	submitted []string
	deleted   []string
	submitErr map[string]error
	statuses  map[string]RunnerStatus
	logs      map[string]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		submitErr: make(map[string]error),
		statuses:  make(map[string]RunnerStatus),
		logs:      make(map[string]string),
	}
}

func (f *fakeRunner) Submit(_ context.Context, job *models.ConversionJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.submitErr[job.ExternalID]; err != nil {
		return err
	}
	f.submitted = append(f.submitted, job.ExternalID)
	f.statuses[job.ExternalID] = StatusRunning
	return nil
}

func (f *fakeRunner) Status(_ context.Context, externalID string) (RunnerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.statuses[externalID]; ok {
		return status, nil
	}
	return StatusNotFound, nil
}

func (f *fakeRunner) Delete(_ context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, externalID)
	delete(f.statuses, externalID)
	return nil
}

func (f *fakeRunner) TailLog(_ context.Context, externalID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs[externalID], nil
}

func writeTempVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0644))
	return path
}

func TestIsConvertible(t *testing.T) {
	assert.True(t, IsConvertible("/lib/Foo.mkv"))
	assert.True(t, IsConvertible("/lib/Foo.AVI"))
	assert.True(t, IsConvertible("/lib/Foo.mov"))
	assert.False(t, IsConvertible("/lib/Foo.mp4"))
	assert.False(t, IsConvertible("/lib/Foo.webm"))
	assert.False(t, IsConvertible("/lib/Foo"))
}

func TestOutputPathFor(t *testing.T) {
	assert.Equal(t, "/lib/Movies/Foo.mp4", OutputPathFor("/lib/Movies/Foo.mkv"))
	assert.Equal(t, "/lib/a.b/Foo.mp4", OutputPathFor("/lib/a.b/Foo.avi"))
}

func TestEnqueuer_MaybeEnqueue(t *testing.T) {
	jobs, _ := setupBatchRepos(t)
	e := NewEnqueuer(jobs, true, "h264-aac-mp4", nil)
	ctx := context.Background()

	path := writeTempVideo(t, "Foo.mkv")

	job, err := e.MaybeEnqueue(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, models.ExternalJobID(path), job.ExternalID)
	assert.Equal(t, OutputPathFor(path), job.OutputPath)

	// A second event for the same path is deduplicated.
	dup, err := e.MaybeEnqueue(ctx, path)
	require.NoError(t, err)
	assert.Nil(t, dup)

	all, err := jobs.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEnqueuer_SkipsNonConvertibleAndDisabled(t *testing.T) {
	jobs, _ := setupBatchRepos(t)
	ctx := context.Background()

	mp4 := writeTempVideo(t, "Foo.mp4")
	e := NewEnqueuer(jobs, true, "", nil)
	job, err := e.MaybeEnqueue(ctx, mp4)
	require.NoError(t, err)
	assert.Nil(t, job)

	mkv := writeTempVideo(t, "Foo.mkv")
	disabled := NewEnqueuer(jobs, false, "", nil)
	job, err = disabled.MaybeEnqueue(ctx, mkv)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestEnqueuer_AllowsReconvertAfterTerminal(t *testing.T) {
	jobs, _ := setupBatchRepos(t)
	e := NewEnqueuer(jobs, true, "", nil)
	ctx := context.Background()

	path := writeTempVideo(t, "Foo.mkv")

	first, err := e.MaybeEnqueue(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, first)

	first.MarkRunning()
	first.MarkFailed("boom")
	require.NoError(t, jobs.Update(ctx, first))

	// Terminal jobs do not block a fresh attempt.
	second, err := e.MaybeEnqueue(ctx, path)
	require.NoError(t, err)
	assert.NotNil(t, second)
}

func queueJob(t *testing.T, jobs repository.ConversionJobRepository, input string) *models.ConversionJob {
	t.Helper()
	job := models.NewConversionJob(input, OutputPathFor(input), "")
	require.NoError(t, jobs.Create(context.Background(), job))
	return job
}

func TestDispatcher_RespectsRunningLimit(t *testing.T) {
	jobs, _ := setupBatchRepos(t)
	runner := newFakeRunner()
	d := NewDispatcher(jobs, runner, lock.NewLocalLocker(), 2, time.Minute, nil, nil)
	ctx := context.Background()

	for _, name := range []string{"/lib/a.mkv", "/lib/b.mkv", "/lib/c.mkv"} {
		queueJob(t, jobs, name)
	}

	require.NoError(t, d.RunOnce(ctx))

	assert.Len(t, runner.submitted, 2, "launches are capped at the running limit")

	running, err := jobs.CountByStatus(ctx, models.JobStatusRunning)
	require.NoError(t, err)
	assert.Equal(t, int64(2), running)

	queued, err := jobs.CountByStatus(ctx, models.JobStatusQueued)
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued, "excess jobs stay queued, no failure recorded")

	// Nothing launches while the limit is saturated.
	require.NoError(t, d.RunOnce(ctx))
	assert.Len(t, runner.submitted, 2)
}

func TestDispatcher_SubmitFailureFailsOnlyThatJob(t *testing.T) {
	jobs, _ := setupBatchRepos(t)
	runner := newFakeRunner()
	d := NewDispatcher(jobs, runner, lock.NewLocalLocker(), 5, time.Minute, nil, nil)
	ctx := context.Background()

	bad := queueJob(t, jobs, "/lib/bad.mkv")
	good := queueJob(t, jobs, "/lib/good.mkv")
	runner.submitErr[bad.ExternalID] = errors.New("controller unreachable")

	require.NoError(t, d.RunOnce(ctx))

	failedJob, err := jobs.GetByID(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, failedJob.Status)
	assert.Contains(t, failedJob.LastError, "controller unreachable")

	goodJob, err := jobs.GetByID(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, goodJob.Status)
}

func TestDispatcher_SkipsWhenLockHeld(t *testing.T) {
	jobs, _ := setupBatchRepos(t)
	runner := newFakeRunner()
	locker := lock.NewLocalLocker()
	d := NewDispatcher(jobs, runner, locker, 2, time.Minute, nil, nil)
	ctx := context.Background()

	queueJob(t, jobs, "/lib/a.mkv")

	release, ok, err := locker.TryAcquire(ctx, lock.DispatchLockName, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	require.NoError(t, d.RunOnce(ctx))
	assert.Empty(t, runner.submitted, "a pass without the lock does nothing")
}

func TestReconciler_Succeeded(t *testing.T) {
	jobs, media := setupBatchRepos(t)
	runner := newFakeRunner()
	ctx := context.Background()

	input := writeTempVideo(t, "done.mkv")
	output := OutputPathFor(input)
	require.NoError(t, os.WriteFile(output, []byte("converted"), 0644))

	job := queueJob(t, jobs, input)
	job.MarkRunning()
	require.NoError(t, jobs.Update(ctx, job))
	runner.statuses[job.ExternalID] = StatusSucceeded

	var readyPath string
	r := NewReconciler(jobs, media, runner, lock.NewLocalLocker(), time.Minute, nil, nil,
		func(_ context.Context, outputPath string) { readyPath = outputPath })

	require.NoError(t, r.RunOnce(ctx))

	updated, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	assert.NoFileExists(t, input, "original is removed after success")
	assert.FileExists(t, output, "converted output is kept")
	assert.Equal(t, output, readyPath, "output handed to ingestion")
	assert.Contains(t, runner.deleted, job.ExternalID)
}

func TestReconciler_Failed(t *testing.T) {
	jobs, media := setupBatchRepos(t)
	runner := newFakeRunner()
	ctx := context.Background()

	input := writeTempVideo(t, "bad.mkv")
	output := OutputPathFor(input)
	require.NoError(t, os.WriteFile(output, []byte("partial"), 0644))

	job := queueJob(t, jobs, input)
	job.MarkRunning()
	require.NoError(t, jobs.Update(ctx, job))
	runner.statuses[job.ExternalID] = StatusFailed
	runner.logs[job.ExternalID] = "frame=1\nInvalid data found when processing input\n"

	r := NewReconciler(jobs, media, runner, lock.NewLocalLocker(), time.Minute, nil, nil, nil)
	require.NoError(t, r.RunOnce(ctx))

	updated, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, updated.Status)
	assert.Equal(t, "Invalid data found when processing input", updated.LastError)

	assert.FileExists(t, input, "failed conversions keep the original")
	assert.NoFileExists(t, output, "partial output is cleaned up")
}

func TestReconciler_NotFoundLeavesJobAlone(t *testing.T) {
	jobs, media := setupBatchRepos(t)
	runner := newFakeRunner()
	ctx := context.Background()

	queued := queueJob(t, jobs, "/lib/q.mkv")

	running := queueJob(t, jobs, "/lib/r.mkv")
	running.MarkRunning()
	require.NoError(t, jobs.Update(ctx, running))

	r := NewReconciler(jobs, media, runner, lock.NewLocalLocker(), time.Minute, nil, nil, nil)
	require.NoError(t, r.RunOnce(ctx))

	q, err := jobs.GetByID(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, q.Status, "queued jobs stay queued until dispatched")

	rn, err := jobs.GetByID(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, rn.Status, "the store never invents an outcome")
}

func TestParseProgress(t *testing.T) {
	tail := "frame=  100 fps= 25 time=00:00:04 speed=1.0x\n" +
		"frame= 3120 fps= 48 q=28.0 size=10240KiB time=00:05:12.40 bitrate=268.6kbits/s speed=1.92x"

	position, speed, ok := parseProgress(tail)
	require.True(t, ok)
	assert.Equal(t, float64(312), position)
	assert.InDelta(t, 1.92, speed, 0.001)

	_, _, ok = parseProgress("no progress here")
	assert.False(t, ok)
}
