package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/repository"
)

// JobHandler handles conversion job endpoints.
type JobHandler struct {
	jobs repository.ConversionJobRepository
}

// NewJobHandler creates a job handler.
func NewJobHandler(jobs repository.ConversionJobRepository) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// ListJobsInput is the input for listing conversion jobs.
type ListJobsInput struct {
	Status string `query:"status" enum:"queued,running,succeeded,failed," doc:"Filter by job status"`
}

// ListJobsOutput is the output for listing conversion jobs.
type ListJobsOutput struct {
	Body []ConversionJobResponse
}

// GetJobInput is the input for fetching a single conversion job.
type GetJobInput struct {
	ID string `path:"id" doc:"Conversion job ID"`
}

// GetJobOutput is the output for fetching a single conversion job.
type GetJobOutput struct {
	Body ConversionJobResponse
}

// Register registers job routes with the API.
func (h *JobHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listJobs",
		Method:      "GET",
		Path:        "/api/v1/jobs",
		Summary:     "List conversion jobs",
		Description: "Returns conversion jobs, optionally filtered by status",
		Tags:        []string{"Jobs"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getJob",
		Method:      "GET",
		Path:        "/api/v1/jobs/{id}",
		Summary:     "Get conversion job",
		Description: "Returns a single conversion job by ID",
		Tags:        []string{"Jobs"},
	}, h.Get)
}

// List returns conversion jobs, optionally filtered by status.
func (h *JobHandler) List(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
	var jobs []*models.ConversionJob
	var err error

	if input.Status != "" {
		jobs, err = h.jobs.GetByStatus(ctx, models.JobStatus(input.Status))
	} else {
		jobs, err = h.jobs.GetAll(ctx)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list conversion jobs", err)
	}

	resp := make([]ConversionJobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, ConversionJobFromModel(job))
	}
	return &ListJobsOutput{Body: resp}, nil
}

// Get returns a single conversion job by ID.
func (h *JobHandler) Get(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid conversion job ID", err)
	}

	job, err := h.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get conversion job", err)
	}
	if job == nil {
		return nil, huma.Error404NotFound("conversion job not found")
	}

	return &GetJobOutput{Body: ConversionJobFromModel(job)}, nil
}
