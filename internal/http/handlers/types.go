// Package handlers provides HTTP API handlers for vidarr.
package handlers

import (
	"time"

	"github.com/jmylchreest/vidarr/internal/models"
)

// MediaFileResponse is the API representation of a library file.
type MediaFileResponse struct {
	ID              string    `json:"id" doc:"Media file ID (ULID)"`
	Path            string    `json:"path"`
	VideoCodec      string    `json:"video_codec,omitempty"`
	AudioCodec      string    `json:"audio_codec,omitempty"`
	Container       string    `json:"container,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	BitrateKbps     int       `json:"bitrate_kbps,omitempty"`
	Width           int       `json:"width,omitempty"`
	Height          int       `json:"height,omitempty"`
	SizeBytes       int64     `json:"size_bytes,omitempty"`
	Analyzed        bool      `json:"analyzed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MediaFileFromModel converts a model to its API representation.
func MediaFileFromModel(f *models.MediaFile) MediaFileResponse {
	return MediaFileResponse{
		ID:              f.ID.String(),
		Path:            f.Path,
		VideoCodec:      f.VideoCodec,
		AudioCodec:      f.AudioCodec,
		Container:       f.Container,
		DurationSeconds: f.DurationSeconds,
		BitrateKbps:     f.BitrateKbps,
		Width:           f.Width,
		Height:          f.Height,
		SizeBytes:       f.SizeBytes,
		Analyzed:        f.Analyzed,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// ConversionJobResponse is the API representation of a conversion job.
type ConversionJobResponse struct {
	ID          string     `json:"id" doc:"Job ID (ULID)"`
	ExternalID  string     `json:"external_id"`
	InputPath   string     `json:"input_path"`
	OutputPath  string     `json:"output_path"`
	Preset      string     `json:"preset,omitempty"`
	Status      string     `json:"status" enum:"queued,running,succeeded,failed"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ConversionJobFromModel converts a model to its API representation.
func ConversionJobFromModel(j *models.ConversionJob) ConversionJobResponse {
	return ConversionJobResponse{
		ID:          j.ID.String(),
		ExternalID:  j.ExternalID,
		InputPath:   j.InputPath,
		OutputPath:  j.OutputPath,
		Preset:      j.Preset,
		Status:      string(j.Status),
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		LastError:   j.LastError,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
