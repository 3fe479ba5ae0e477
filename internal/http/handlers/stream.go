package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmylchreest/vidarr/internal/models"
	"github.com/jmylchreest/vidarr/internal/repository"
	"github.com/jmylchreest/vidarr/internal/streaming"
)

// StreamHandler serves media file content. It is registered directly on the
// router rather than through the API layer because responses are raw byte
// streams with range semantics, not JSON.
type StreamHandler struct {
	media   repository.MediaFileRepository
	service *streaming.Service
	logger  *slog.Logger
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(media repository.MediaFileRepository, service *streaming.Service, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{media: media, service: service, logger: logger}
}

// Register registers the stream route with the router.
func (h *StreamHandler) Register(router chi.Router) {
	router.Get("/stream/{id}", h.Stream)
}

// Stream serves a media file, transcoding on the fly when the client
// cannot play the stored format.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseULID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid media file ID", http.StatusBadRequest)
		return
	}

	file, err := h.media.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load media file", "id", id.String(), "error", err)
		http.Error(w, "failed to load media file", http.StatusInternalServerError)
		return
	}
	if file == nil {
		http.Error(w, "media file not found", http.StatusNotFound)
		return
	}

	h.service.ServeFile(w, r, file)
}
