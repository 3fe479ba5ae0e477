package streaming

import (
	"strings"

	"github.com/jmylchreest/vidarr/internal/models"
)

// IsCompatible reports whether the client can play the file as stored.
// An empty field on the file means the probe could not identify it; unknown
// never blocks direct streaming, only a known-unsupported value does.
func IsCompatible(f *models.MediaFile, caps ClientCapabilities) bool {
	return fieldSupported(f.VideoCodec, caps.VideoCodecs) &&
		fieldSupported(f.AudioCodec, caps.AudioCodecs) &&
		fieldSupported(f.Container, caps.Containers)
}

func fieldSupported(value string, set map[string]bool) bool {
	if value == "" {
		return true
	}
	return set[strings.ToLower(value)]
}
