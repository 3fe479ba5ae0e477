package ffmpeg

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBuilder_ArgOrder(t *testing.T) {
	cmd := NewCommandBuilder("/usr/bin/ffmpeg").
		HideBanner().
		SeekSeconds(42.5).
		Input("/lib/Foo.mkv").
		VideoCodec("libx264").
		Output("pipe:1").
		Build()

	args := cmd.Args

	ssIdx := slices.Index(args, "-ss")
	inIdx := slices.Index(args, "-i")
	require.GreaterOrEqual(t, ssIdx, 0)
	require.GreaterOrEqual(t, inIdx, 0)
	assert.Less(t, ssIdx, inIdx, "seek must precede the input for a fast keyframe seek")
	assert.Equal(t, "42.500", args[ssIdx+1])
	assert.Equal(t, "/lib/Foo.mkv", args[inIdx+1])
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestCommandBuilder_NoSeekWhenZero(t *testing.T) {
	cmd := NewCommandBuilder("ffmpeg").
		SeekSeconds(0).
		Input("in.mkv").
		Output("out.mp4").
		Build()

	assert.NotContains(t, cmd.Args, "-ss")
}

func TestLiveTranscodeCommand_FragmentedMP4(t *testing.T) {
	cmd := LiveTranscodeCommand("ffmpeg", TranscodeSpec{
		InputPath:  "/lib/Foo.mkv",
		VideoCodec: "h264",
		AudioCodec: "aac",
		Container:  "mp4",
	})

	args := cmd.Args
	assert.Contains(t, args, "libx264")
	assert.Contains(t, args, "aac")
	assert.Contains(t, args, "-movflags")

	flagIdx := slices.Index(args, "-movflags")
	assert.Equal(t, "frag_keyframe+empty_moov", args[flagIdx+1])
	assert.Equal(t, "pipe:1", cmd.Output)
}

func TestLiveTranscodeCommand_WebMCopy(t *testing.T) {
	cmd := LiveTranscodeCommand("ffmpeg", TranscodeSpec{
		InputPath:  "/lib/Foo.webm",
		VideoCodec: "copy",
		AudioCodec: "copy",
		Container:  "webm",
	})

	args := cmd.Args
	fIdx := slices.Index(args, "-f")
	require.GreaterOrEqual(t, fIdx, 0)
	assert.Equal(t, "webm", args[fIdx+1])
	assert.NotContains(t, args, "-movflags")

	cvIdx := slices.Index(args, "-c:v")
	assert.Equal(t, "copy", args[cvIdx+1])
}

func TestConvertCommand(t *testing.T) {
	cmd, err := ConvertCommand("ffmpeg", "/lib/Foo.avi", "/lib/Foo.mp4", "h264-aac-mp4")
	require.NoError(t, err)

	assert.Contains(t, cmd.Args, "-y")
	assert.Contains(t, cmd.Args, "libx264")
	assert.Contains(t, cmd.Args, "+faststart")
	assert.Equal(t, "/lib/Foo.mp4", cmd.Output)
}

func TestConvertCommand_UnknownPreset(t *testing.T) {
	_, err := ConvertCommand("ffmpeg", "in", "out", "prores-master")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown conversion preset")
}

const sampleProbeJSON = `{
  "format": {
    "filename": "/lib/Foo.mkv",
    "nb_streams": 3,
    "format_name": "matroska,webm",
    "duration": "5400.120000",
    "size": "4294967296",
    "bit_rate": "6364000"
  },
  "streams": [
    {"index": 0, "codec_name": "hevc", "codec_type": "video", "width": 1920, "height": 1080, "disposition": {"default": 1}},
    {"index": 1, "codec_name": "commentary_ac3", "codec_type": "audio", "channels": 2},
    {"index": 2, "codec_name": "eac3", "codec_type": "audio", "channels": 6, "disposition": {"default": 1}}
  ]
}`

func TestSimplify(t *testing.T) {
	var result ProbeResult
	require.NoError(t, json.Unmarshal([]byte(sampleProbeJSON), &result))

	info := Simplify(&result)
	assert.Equal(t, "matroska", info.Container)
	assert.Equal(t, "hevc", info.VideoCodec)
	assert.Equal(t, "eac3", info.AudioCodec, "default-flagged audio track wins")
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.InDelta(t, 5400.12, info.DurationSeconds, 0.001)
	assert.Equal(t, 6364, info.BitrateKbps)
	assert.Equal(t, int64(4294967296), info.SizeBytes)
}

func TestPrimaryFormatName(t *testing.T) {
	assert.Equal(t, "mp4", primaryFormatName("mov,mp4,m4a,3gp,3g2,mj2"),
		"the quicktime family collapses to mp4")
	assert.Equal(t, "matroska", primaryFormatName("matroska,webm"))
	assert.Equal(t, "avi", primaryFormatName("avi"))
}

func TestSimplify_MP4Family(t *testing.T) {
	result := &ProbeResult{
		Format: ProbeFormat{FormatName: "mov,mp4,m4a,3gp,3g2,mj2"},
		Streams: []ProbeStream{
			{CodecName: "h264", CodecType: "video", Width: 1280, Height: 720},
			{CodecName: "aac", CodecType: "audio", Channels: 2},
		},
	}

	info := Simplify(result)
	assert.Equal(t, "mp4", info.Container)
	assert.Equal(t, "h264", info.VideoCodec)
	assert.Equal(t, "aac", info.AudioCodec)
}

func TestRun_CapturesFinalStderrOnFailure(t *testing.T) {
	// The last line a process writes to stderr right before dying must make
	// it into the error; stderr is drained before Wait closes the pipe.
	cmd := &Command{Binary: "sh", Args: []string{"-c", "echo boom >&2; exit 1"}}
	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestResolve_ConfiguredPathSkipsDetection(t *testing.T) {
	// Configured paths must win even on a host with nothing on PATH, so
	// detection never runs and its failure never reaches startup.
	d := NewBinaryDetector()
	info, err := d.Resolve(context.Background(), "/opt/custom/ffmpeg", "/opt/custom/ffprobe")
	require.NoError(t, err)
	assert.Equal(t, "/opt/custom/ffmpeg", info.FFmpegPath)
	assert.Equal(t, "/opt/custom/ffprobe", info.FFprobePath)
	assert.Empty(t, info.Version, "version is best effort when the binary cannot run")
}
