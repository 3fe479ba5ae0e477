package ffmpeg

import "fmt"

// TranscodeSpec describes a live transcode for streaming to a client.
type TranscodeSpec struct {
	InputPath    string
	StartSeconds float64
	VideoCodec   string // target codec name or "copy"
	AudioCodec   string // target codec name or "copy"
	Container    string // "webm" or "mp4"
}

// LiveTranscodeCommand builds a command that transcodes spec.InputPath and
// writes a streamable container to stdout at a fixed quality target.
func LiveTranscodeCommand(ffmpegPath string, spec TranscodeSpec) *Command {
	b := NewCommandBuilder(ffmpegPath).
		HideBanner().
		SeekSeconds(spec.StartSeconds).
		Input(spec.InputPath)

	applyVideoEncoder(b, spec.VideoCodec)
	applyAudioEncoder(b, spec.AudioCodec)

	if spec.Container == "webm" {
		b.WebMArgs()
	} else {
		b.FragmentedMP4Args()
	}

	return b.Output("pipe:1").Build()
}

// ConvertCommand builds a command that re-encodes inputPath into a seekable
// file at outputPath using the named preset.
func ConvertCommand(ffmpegPath, inputPath, outputPath, preset string) (*Command, error) {
	b := NewCommandBuilder(ffmpegPath).
		HideBanner().
		Overwrite().
		Input(inputPath)

	switch preset {
	case "", "h264-aac-mp4":
		applyVideoEncoder(b, "h264")
		applyAudioEncoder(b, "aac")
		b.OutputArgs("-movflags", "+faststart", "-f", "mp4")
	case "vp9-opus-webm":
		applyVideoEncoder(b, "vp9")
		applyAudioEncoder(b, "opus")
		b.WebMArgs()
	default:
		return nil, fmt.Errorf("unknown conversion preset: %s", preset)
	}

	return b.Output(outputPath).Build(), nil
}

// applyVideoEncoder maps a target codec to encoder flags at a fixed quality
// level. Live sessions favour encode speed over compression efficiency.
func applyVideoEncoder(b *CommandBuilder, codec string) {
	switch codec {
	case "", "copy":
		b.VideoCodec("copy")
	case "h264":
		b.VideoCodec("libx264").VideoPreset("veryfast").CRF(23)
	case "hevc":
		b.VideoCodec("libx265").VideoPreset("veryfast").CRF(26)
	case "vp9":
		b.VideoCodec("libvpx-vp9").OutputArgs("-deadline", "realtime", "-cpu-used", "5", "-b:v", "0").CRF(31)
	case "av1":
		b.VideoCodec("libsvtav1").VideoPreset("8").CRF(30)
	default:
		b.VideoCodec("libx264").VideoPreset("veryfast").CRF(23)
	}
}

func applyAudioEncoder(b *CommandBuilder, codec string) {
	switch codec {
	case "", "copy":
		b.AudioCodec("copy")
	case "aac":
		b.AudioCodec("aac").AudioBitrate("192k")
	case "opus":
		b.AudioCodec("libopus").AudioBitrate("128k")
	default:
		b.AudioCodec("aac").AudioBitrate("192k")
	}
}
