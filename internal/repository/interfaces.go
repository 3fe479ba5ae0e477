// Package repository provides data access layers for vidarr entities.
package repository

import (
	"context"

	"github.com/jmylchreest/vidarr/internal/models"
)

// ConversionJobRepository defines data access for conversion jobs.
// These are the only query shapes the batch pipeline requires.
type ConversionJobRepository interface {
	Create(ctx context.Context, job *models.ConversionJob) error
	GetByID(ctx context.Context, id models.ULID) (*models.ConversionJob, error)
	GetAll(ctx context.Context) ([]*models.ConversionJob, error)
	// FindActiveByInputPath returns the non-terminal (queued or running) job
	// for the given input path, or nil when none exists.
	FindActiveByInputPath(ctx context.Context, inputPath string) (*models.ConversionJob, error)
	// GetByStatus returns jobs with the given status, oldest created first.
	GetByStatus(ctx context.Context, status models.JobStatus) ([]*models.ConversionJob, error)
	// GetByStatuses returns jobs in any of the given statuses, oldest created first.
	GetByStatuses(ctx context.Context, statuses ...models.JobStatus) ([]*models.ConversionJob, error)
	// CountByStatus returns the number of jobs with the given status.
	CountByStatus(ctx context.Context, status models.JobStatus) (int64, error)
	Update(ctx context.Context, job *models.ConversionJob) error
}

// MediaFileRepository defines data access for media format descriptors.
type MediaFileRepository interface {
	Create(ctx context.Context, file *models.MediaFile) error
	GetByID(ctx context.Context, id models.ULID) (*models.MediaFile, error)
	GetByPath(ctx context.Context, path string) (*models.MediaFile, error)
	GetAll(ctx context.Context) ([]*models.MediaFile, error)
	Update(ctx context.Context, file *models.MediaFile) error
	DeleteByPath(ctx context.Context, path string) error
}
