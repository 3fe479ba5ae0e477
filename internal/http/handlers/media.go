package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jmylchreest/vidarr/internal/ingest"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/repository"
)

// MediaHandler handles media file endpoints.
type MediaHandler struct {
	media    repository.MediaFileRepository
	ingestor *ingest.Ingestor
	logger   *slog.Logger
}

// NewMediaHandler creates a media handler.
func NewMediaHandler(media repository.MediaFileRepository, ingestor *ingest.Ingestor, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{media: media, ingestor: ingestor, logger: logger}
}

// ListMediaOutput is the output for listing media files.
type ListMediaOutput struct {
	Body []MediaFileResponse
}

// GetMediaInput is the input for fetching a single media file.
type GetMediaInput struct {
	ID string `path:"id" doc:"Media file ID"`
}

// GetMediaOutput is the output for fetching a single media file.
type GetMediaOutput struct {
	Body MediaFileResponse
}

// ScanMediaInput is the input for triggering ingestion of a file.
type ScanMediaInput struct {
	Body struct {
		Path string `json:"path" minLength:"1" doc:"Absolute path of the file to ingest"`
	}
}

// ScanMediaOutput is the output for a scan trigger.
type ScanMediaOutput struct {
	Status int
	Body   struct {
		Accepted bool   `json:"accepted"`
		Path     string `json:"path"`
	}
}

// Register registers media routes with the API.
func (h *MediaHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listMedia",
		Method:      "GET",
		Path:        "/api/v1/media",
		Summary:     "List media files",
		Description: "Returns all indexed media files",
		Tags:        []string{"Media"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getMedia",
		Method:      "GET",
		Path:        "/api/v1/media/{id}",
		Summary:     "Get media file",
		Description: "Returns a single media file by ID",
		Tags:        []string{"Media"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "scanMedia",
		Method:      "POST",
		Path:        "/api/v1/media/scan",
		Summary:     "Scan a file",
		Description: "Triggers ingestion of a file: waits for it to stabilize, probes it and enqueues conversion if needed",
		Tags:        []string{"Media"},
	}, h.Scan)
}

// List returns all media files.
func (h *MediaHandler) List(ctx context.Context, _ *struct{}) (*ListMediaOutput, error) {
	files, err := h.media.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list media files", err)
	}

	resp := make([]MediaFileResponse, 0, len(files))
	for _, file := range files {
		resp = append(resp, MediaFileFromModel(file))
	}
	return &ListMediaOutput{Body: resp}, nil
}

// Get returns a single media file by ID.
func (h *MediaHandler) Get(ctx context.Context, input *GetMediaInput) (*GetMediaOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid media file ID", err)
	}

	file, err := h.media.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get media file", err)
	}
	if file == nil {
		return nil, huma.Error404NotFound("media file not found")
	}

	return &GetMediaOutput{Body: MediaFileFromModel(file)}, nil
}

// Scan triggers ingestion of a file in the background.
func (h *MediaHandler) Scan(ctx context.Context, input *ScanMediaInput) (*ScanMediaOutput, error) {
	path := input.Body.Path

	go func() {
		if err := h.ingestor.HandleFileCreated(context.Background(), path); err != nil {
			h.logger.Warn("scan failed", "path", path, "error", err)
		}
	}()

	out := &ScanMediaOutput{Status: 202}
	out.Body.Accepted = true
	out.Body.Path = path
	return out, nil
}
