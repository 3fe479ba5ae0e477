package models

import "errors"

// Common validation errors for models.
var (
	// ErrInputPathRequired indicates a required input path field is empty.
	ErrInputPathRequired = errors.New("input path is required")

	// ErrOutputPathRequired indicates a required output path field is empty.
	ErrOutputPathRequired = errors.New("output path is required")

	// ErrPathRequired indicates a required file path field is empty.
	ErrPathRequired = errors.New("path is required")

	// ErrInvalidJobStatus indicates an unknown conversion job status.
	ErrInvalidJobStatus = errors.New("invalid job status: must be 'queued', 'running', 'succeeded' or 'failed'")
)
