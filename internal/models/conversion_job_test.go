package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalJobID_Deterministic(t *testing.T) {
	a := ExternalJobID("/lib/Movies/Foo.avi")
	b := ExternalJobID("/lib/Movies/Foo.avi")
	c := ExternalJobID("/lib/Movies/Bar.avi")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, len(a) == len("cj-")+20)
	assert.Contains(t, a, "cj-")
}

func TestNewConversionJob(t *testing.T) {
	job := NewConversionJob("/lib/Foo.avi", "/lib/Foo.mp4", "h264-aac-mp4")

	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, ExternalJobID("/lib/Foo.avi"), job.ExternalID)
	assert.False(t, job.IsTerminal())
	require.NoError(t, job.Validate())
}

func TestConversionJob_Transitions(t *testing.T) {
	job := NewConversionJob("/lib/Foo.avi", "/lib/Foo.mp4", "h264-aac-mp4")

	job.MarkRunning()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)
	assert.False(t, job.IsTerminal())

	job.MarkSucceeded()
	assert.Equal(t, JobStatusSucceeded, job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.True(t, job.IsTerminal())
	assert.Empty(t, job.LastError)
}

func TestConversionJob_MarkFailed(t *testing.T) {
	job := NewConversionJob("/lib/Foo.avi", "/lib/Foo.mp4", "h264-aac-mp4")
	job.MarkRunning()
	job.MarkFailed("submit refused")

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "submit refused", job.LastError)
	assert.True(t, job.IsTerminal())
}

func TestConversionJob_Validate(t *testing.T) {
	tests := []struct {
		name    string
		job     ConversionJob
		wantErr error
	}{
		{"missing input", ConversionJob{OutputPath: "/out.mp4", Status: JobStatusQueued}, ErrInputPathRequired},
		{"missing output", ConversionJob{InputPath: "/in.avi", Status: JobStatusQueued}, ErrOutputPathRequired},
		{"bad status", ConversionJob{InputPath: "/in.avi", OutputPath: "/out.mp4", Status: "paused"}, ErrInvalidJobStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.job.Validate(), tt.wantErr)
		})
	}
}

func TestMediaFile_Extension(t *testing.T) {
	f := MediaFile{Path: "/lib/Movies/Foo.MKV"}
	assert.Equal(t, "mkv", f.Extension())

	f = MediaFile{Path: "/lib/Movies/noext"}
	assert.Equal(t, "", f.Extension())
}
