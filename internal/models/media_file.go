package models

import (
	"path/filepath"
	"strings"

	"gorm.io/gorm"
)

// MediaFile is the format descriptor for one library file.
//
// Codec and container fields may be empty when probing failed or has not run;
// an empty field means "unknown" and is never treated as a playback blocker.
type MediaFile struct {
	BaseModel

	// Path is the absolute path of the file within the library.
	Path string `gorm:"not null;size:1024;uniqueIndex" json:"path"`

	// VideoCodec is the probed video codec name (h264, hevc, vp9, av1, ...).
	VideoCodec string `gorm:"size:50" json:"video_codec,omitempty"`

	// AudioCodec is the probed audio codec name (aac, opus, ac3, ...).
	AudioCodec string `gorm:"size:50" json:"audio_codec,omitempty"`

	// Container is the probed container format (mp4, matroska, webm, ...).
	Container string `gorm:"size:50" json:"container,omitempty"`

	// DurationSeconds is the probed duration; 0 when unknown.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`

	// BitrateKbps is the probed overall bitrate; 0 when unknown.
	BitrateKbps int `json:"bitrate_kbps,omitempty"`

	// Width and Height are the probed video dimensions; 0 when unknown.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// SizeBytes is the file size observed at probe time.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// Analyzed is set once probing completed, successfully or not.
	// Analyzed files are never re-probed.
	Analyzed bool `gorm:"not null;default:false;index" json:"analyzed"`
}

// TableName returns the table name for MediaFile.
func (MediaFile) TableName() string {
	return "media_files"
}

// Extension returns the lower-cased file extension without the dot.
func (f *MediaFile) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Path)), ".")
}

// Validate performs basic validation on the media file.
func (f *MediaFile) Validate() error {
	if f.Path == "" {
		return ErrPathRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the record and generates its ULID.
func (f *MediaFile) BeforeCreate(tx *gorm.DB) error {
	if err := f.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return f.Validate()
}
