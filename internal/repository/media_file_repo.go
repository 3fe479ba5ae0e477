package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/vidarr/internal/models"
	"gorm.io/gorm"
)

// mediaFileRepo implements MediaFileRepository using GORM.
type mediaFileRepo struct {
	db *gorm.DB
}

// NewMediaFileRepository creates a new MediaFileRepository.
func NewMediaFileRepository(db *gorm.DB) *mediaFileRepo {
	return &mediaFileRepo{db: db}
}

// Create creates a new media file record.
func (r *mediaFileRepo) Create(ctx context.Context, file *models.MediaFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return fmt.Errorf("creating media file: %w", err)
	}
	return nil
}

// GetByID retrieves a media file by ID.
func (r *mediaFileRepo) GetByID(ctx context.Context, id models.ULID) (*models.MediaFile, error) {
	var file models.MediaFile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting media file by ID: %w", err)
	}
	return &file, nil
}

// GetByPath retrieves a media file by its absolute path.
func (r *mediaFileRepo) GetByPath(ctx context.Context, path string) (*models.MediaFile, error) {
	var file models.MediaFile
	if err := r.db.WithContext(ctx).Where("path = ?", path).First(&file).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting media file by path: %w", err)
	}
	return &file, nil
}

// GetAll retrieves all media files ordered by path.
func (r *mediaFileRepo) GetAll(ctx context.Context) ([]*models.MediaFile, error) {
	var files []*models.MediaFile
	if err := r.db.WithContext(ctx).Order("path ASC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("getting all media files: %w", err)
	}
	return files, nil
}

// Update updates an existing media file record.
func (r *mediaFileRepo) Update(ctx context.Context, file *models.MediaFile) error {
	if err := r.db.WithContext(ctx).Save(file).Error; err != nil {
		return fmt.Errorf("updating media file: %w", err)
	}
	return nil
}

// DeleteByPath removes the record for a path; missing records are not an error.
func (r *mediaFileRepo) DeleteByPath(ctx context.Context, path string) error {
	if err := r.db.WithContext(ctx).Where("path = ?", path).Delete(&models.MediaFile{}).Error; err != nil {
		return fmt.Errorf("deleting media file by path: %w", err)
	}
	return nil
}

// Ensure mediaFileRepo implements MediaFileRepository at compile time.
var _ MediaFileRepository = (*mediaFileRepo)(nil)
