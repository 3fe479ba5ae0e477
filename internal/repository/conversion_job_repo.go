package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/vidarr/internal/models"
	"gorm.io/gorm"
)

// conversionJobRepo implements ConversionJobRepository using GORM.
type conversionJobRepo struct {
	db *gorm.DB
}

// NewConversionJobRepository creates a new ConversionJobRepository.
func NewConversionJobRepository(db *gorm.DB) *conversionJobRepo {
	return &conversionJobRepo{db: db}
}

// Create creates a new conversion job.
func (r *conversionJobRepo) Create(ctx context.Context, job *models.ConversionJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("creating conversion job: %w", err)
	}
	return nil
}

// GetByID retrieves a conversion job by ID.
func (r *conversionJobRepo) GetByID(ctx context.Context, id models.ULID) (*models.ConversionJob, error) {
	var job models.ConversionJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting conversion job by ID: %w", err)
	}
	return &job, nil
}

// GetAll retrieves all conversion jobs, oldest first.
func (r *conversionJobRepo) GetAll(ctx context.Context) ([]*models.ConversionJob, error) {
	var jobs []*models.ConversionJob
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting all conversion jobs: %w", err)
	}
	return jobs, nil
}

// FindActiveByInputPath returns the non-terminal job for an input path, if any.
func (r *conversionJobRepo) FindActiveByInputPath(ctx context.Context, inputPath string) (*models.ConversionJob, error) {
	var job models.ConversionJob
	if err := r.db.WithContext(ctx).
		Where("input_path = ? AND status IN (?, ?)", inputPath, models.JobStatusQueued, models.JobStatusRunning).
		First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("finding active job by input path: %w", err)
	}
	return &job, nil
}

// GetByStatus retrieves jobs by status, oldest created first.
func (r *conversionJobRepo) GetByStatus(ctx context.Context, status models.JobStatus) ([]*models.ConversionJob, error) {
	var jobs []*models.ConversionJob
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting conversion jobs by status: %w", err)
	}
	return jobs, nil
}

// GetByStatuses retrieves jobs in any of the given statuses, oldest created first.
func (r *conversionJobRepo) GetByStatuses(ctx context.Context, statuses ...models.JobStatus) ([]*models.ConversionJob, error) {
	var jobs []*models.ConversionJob
	if err := r.db.WithContext(ctx).Where("status IN ?", statuses).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting conversion jobs by statuses: %w", err)
	}
	return jobs, nil
}

// CountByStatus returns the number of jobs with the given status.
func (r *conversionJobRepo) CountByStatus(ctx context.Context, status models.JobStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ConversionJob{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting conversion jobs by status: %w", err)
	}
	return count, nil
}

// Update updates an existing conversion job.
func (r *conversionJobRepo) Update(ctx context.Context, job *models.ConversionJob) error {
	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("updating conversion job: %w", err)
	}
	return nil
}

// Ensure conversionJobRepo implements ConversionJobRepository at compile time.
var _ ConversionJobRepository = (*conversionJobRepo)(nil)
