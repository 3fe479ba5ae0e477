package streaming

import (
	"strings"

	"github.com/jmylchreest/vidarr/internal/models"
)

// Codec preference order when a transcode is unavoidable: best compression
// first, constrained to what the client supports.
var (
	videoPreference = []string{"av1", "vp9", "hevc", "h264"}
	audioPreference = []string{"opus", "aac"}
)

// SelectCodecs decides the target codecs for serving f to a client with the
// given capabilities. When the file is fully compatible it returns
// ("copy", "copy", false) and the caller should stream bytes directly.
// Otherwise each stream is copied if the client supports it as-is, or
// re-encoded to the best client-supported codec, with h264/aac as the
// universal floor.
func SelectCodecs(f *models.MediaFile, caps ClientCapabilities) (video, audio string, transcode bool) {
	if IsCompatible(f, caps) {
		return "copy", "copy", false
	}

	video = "copy"
	if !fieldSupported(f.VideoCodec, caps.VideoCodecs) {
		video = pickPreferred(videoPreference, caps.VideoCodecs, "h264")
	}

	audio = "copy"
	if !fieldSupported(f.AudioCodec, caps.AudioCodecs) {
		audio = pickPreferred(audioPreference, caps.AudioCodecs, "aac")
	}

	return video, audio, true
}

// PickContainer chooses the output container for a live transcode based on
// the codecs that will actually be in the stream. The WebM family pairs
// (vp8, vp9, av1) with (opus, vorbis); every other combination goes into
// fragmented MP4, which every negotiated client accepts.
func PickContainer(f *models.MediaFile, video, audio string) string {
	v := effectiveCodec(video, f.VideoCodec)
	a := effectiveCodec(audio, f.AudioCodec)

	webmVideo := v == "vp8" || v == "vp9" || v == "av1"
	webmAudio := a == "opus" || a == "vorbis"
	if webmVideo && webmAudio {
		return "webm"
	}
	return "mp4"
}

// ContentType maps a target container to its response content type.
func ContentType(container string) string {
	if container == "webm" {
		return "video/webm"
	}
	return "video/mp4"
}

func effectiveCodec(selected, stored string) string {
	if selected == "copy" {
		return strings.ToLower(stored)
	}
	return selected
}

func pickPreferred(preference []string, supported map[string]bool, fallback string) string {
	for _, codec := range preference {
		if supported[codec] {
			return codec
		}
	}
	return fallback
}
