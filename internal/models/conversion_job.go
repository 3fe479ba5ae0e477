package models

import (
	"crypto/sha256"
	"encoding/hex"

	"gorm.io/gorm"
)

// JobStatus represents the current status of a conversion job.
type JobStatus string

const (
	// JobStatusQueued indicates the job is waiting to be dispatched.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates the job has been submitted to the job runner.
	JobStatusRunning JobStatus = "running"
	// JobStatusSucceeded indicates the external job finished and was finalized.
	JobStatusSucceeded JobStatus = "succeeded"
	// JobStatusFailed indicates the job failed to submit or the external job failed.
	JobStatusFailed JobStatus = "failed"
)

// ConversionJob represents one permanent background re-encode of a library file.
//
// Jobs move queued -> running -> succeeded|failed. The dispatcher is the only
// writer of the queued->running transition and the reconciler the only writer
// of the terminal transitions. Failed jobs are never retried automatically.
type ConversionJob struct {
	BaseModel

	// InputPath is the absolute path of the file to re-encode.
	InputPath string `gorm:"not null;size:1024;index" json:"input_path"`

	// OutputPath is the absolute path the re-encoded file is written to.
	OutputPath string `gorm:"not null;size:1024" json:"output_path"`

	// Preset identifies the encoder preset the job runner applies.
	Preset string `gorm:"size:100" json:"preset"`

	// ExternalID correlates the persisted job with the external runner's job.
	// It is derived deterministically from the input path so re-observing the
	// same file never produces a second external job.
	ExternalID string `gorm:"not null;size:64;uniqueIndex" json:"external_id"`

	// Status is the job's position in the state machine.
	Status JobStatus `gorm:"not null;default:'queued';size:20;index" json:"status"`

	// StartedAt is when the dispatcher submitted the job.
	StartedAt *Time `json:"started_at,omitempty"`

	// CompletedAt is when the reconciler finalized the job.
	CompletedAt *Time `json:"completed_at,omitempty"`

	// LastError holds the submission or external failure message, if any.
	LastError string `gorm:"size:4096" json:"last_error,omitempty"`
}

// TableName returns the table name for ConversionJob.
func (ConversionJob) TableName() string {
	return "conversion_jobs"
}

// ExternalJobID derives the deterministic external correlation id for a path.
func ExternalJobID(inputPath string) string {
	sum := sha256.Sum256([]byte(inputPath))
	return "cj-" + hex.EncodeToString(sum[:])[:20]
}

// NewConversionJob creates a queued job for the given input file.
func NewConversionJob(inputPath, outputPath, preset string) *ConversionJob {
	return &ConversionJob{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Preset:     preset,
		ExternalID: ExternalJobID(inputPath),
		Status:     JobStatusQueued,
	}
}

// IsTerminal returns true once the job reached succeeded or failed.
func (j *ConversionJob) IsTerminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

// MarkRunning marks the job as submitted to the job runner.
func (j *ConversionJob) MarkRunning() {
	j.Status = JobStatusRunning
	now := Now()
	j.StartedAt = &now
}

// MarkSucceeded marks the job as finalized successfully.
func (j *ConversionJob) MarkSucceeded() {
	j.Status = JobStatusSucceeded
	now := Now()
	j.CompletedAt = &now
	j.LastError = ""
}

// MarkFailed marks the job as failed with an error message.
func (j *ConversionJob) MarkFailed(message string) {
	j.Status = JobStatusFailed
	now := Now()
	j.CompletedAt = &now
	j.LastError = message
}

// Validate performs basic validation on the job.
func (j *ConversionJob) Validate() error {
	if j.InputPath == "" {
		return ErrInputPathRequired
	}
	if j.OutputPath == "" {
		return ErrOutputPathRequired
	}
	switch j.Status {
	case JobStatusQueued, JobStatusRunning, JobStatusSucceeded, JobStatusFailed:
	default:
		return ErrInvalidJobStatus
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the job and generates its ULID.
func (j *ConversionJob) BeforeCreate(tx *gorm.DB) error {
	if err := j.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if j.ExternalID == "" {
		j.ExternalID = ExternalJobID(j.InputPath)
	}
	return j.Validate()
}

// BeforeUpdate is a GORM hook that validates the job before update.
func (j *ConversionJob) BeforeUpdate(tx *gorm.DB) error {
	return j.Validate()
}
