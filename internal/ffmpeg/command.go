package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Command represents an FFmpeg command to execute.
type Command struct {
	Binary    string
	Args      []string
	Input     string
	Output    string
	LogLevel  string
	Overwrite bool

	cmd        *exec.Cmd
	started    time.Time
	stderrDone chan struct{}
	mu         sync.RWMutex

	// Recent stderr lines for debugging failed runs.
	stderrLines []string
	stderrMu    sync.RWMutex
}

// CommandBuilder builds FFmpeg commands with a fluent API.
type CommandBuilder struct {
	binary     string
	globalArgs []string
	inputArgs  []string
	input      string
	outputArgs []string
	output     string
	logLevel   string
	overwrite  bool
}

// NewCommandBuilder creates a new FFmpeg command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		binary:   ffmpegPath,
		logLevel: "error",
	}
}

// LogLevel sets the FFmpeg log level.
func (b *CommandBuilder) LogLevel(level string) *CommandBuilder {
	b.logLevel = level
	return b
}

// HideBanner hides the FFmpeg banner.
func (b *CommandBuilder) HideBanner() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-hide_banner")
	return b
}

// Overwrite enables output file overwriting.
func (b *CommandBuilder) Overwrite() *CommandBuilder {
	b.overwrite = true
	return b
}

// SeekSeconds seeks the input before decoding. The flag must precede -i so
// FFmpeg performs a fast keyframe seek instead of decoding from the start.
func (b *CommandBuilder) SeekSeconds(seconds float64) *CommandBuilder {
	if seconds > 0 {
		b.inputArgs = append(b.inputArgs, "-ss", strconv.FormatFloat(seconds, 'f', 3, 64))
	}
	return b
}

// Input sets the input source.
func (b *CommandBuilder) Input(input string) *CommandBuilder {
	b.input = input
	return b
}

// InputArgs adds arbitrary input arguments.
func (b *CommandBuilder) InputArgs(args ...string) *CommandBuilder {
	b.inputArgs = append(b.inputArgs, args...)
	return b
}

// VideoCodec sets the video codec.
func (b *CommandBuilder) VideoCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:v", codec)
	return b
}

// AudioCodec sets the audio codec.
func (b *CommandBuilder) AudioCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:a", codec)
	return b
}

// AudioBitrate sets the audio bitrate.
func (b *CommandBuilder) AudioBitrate(bitrate string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-b:a", bitrate)
	return b
}

// VideoPreset sets the encoding preset.
func (b *CommandBuilder) VideoPreset(preset string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-preset", preset)
	return b
}

// CRF sets the constant rate factor quality target.
func (b *CommandBuilder) CRF(crf int) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-crf", strconv.Itoa(crf))
	return b
}

// OutputArgs adds arbitrary output arguments.
func (b *CommandBuilder) OutputArgs(args ...string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, args...)
	return b
}

// FragmentedMP4Args configures the MP4 muxer for pipe output. A regular MP4
// writes its moov atom at the end, which a pipe cannot seek back to; fragmented
// output interleaves moof/mdat pairs so playback starts immediately.
func (b *CommandBuilder) FragmentedMP4Args() *CommandBuilder {
	b.outputArgs = append(b.outputArgs,
		"-f", "mp4",
		"-movflags", "frag_keyframe+empty_moov",
	)
	return b
}

// WebMArgs configures the WebM muxer, which is natively streamable.
func (b *CommandBuilder) WebMArgs() *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-f", "webm")
	return b
}

// Output sets the output destination. Use "pipe:1" to stream to stdout.
func (b *CommandBuilder) Output(output string) *CommandBuilder {
	b.output = output
	return b
}

// Build assembles the command. Argument order is global args, input args,
// -i input, output args, output.
func (b *CommandBuilder) Build() *Command {
	var args []string

	args = append(args, "-loglevel", b.logLevel)
	args = append(args, b.globalArgs...)

	if b.overwrite {
		args = append(args, "-y")
	}

	args = append(args, b.inputArgs...)
	args = append(args, "-i", b.input)
	args = append(args, b.outputArgs...)
	args = append(args, b.output)

	return &Command{
		Binary:      b.binary,
		Args:        args,
		Input:       b.input,
		Output:      b.output,
		LogLevel:    b.logLevel,
		Overwrite:   b.overwrite,
		stderrLines: make([]string, 0, 100),
	}
}

// String returns the command as a string.
func (c *Command) String() string {
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Run executes the command and waits for completion.
func (c *Command) Run(ctx context.Context) error {
	c.mu.Lock()
	c.cmd = exec.CommandContext(ctx, c.Binary, c.Args...)
	c.started = time.Now()

	stderr, err := c.cmd.StderrPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("getting stderr pipe: %w", err)
	}
	c.mu.Unlock()

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	stderrDone := make(chan struct{})
	go c.captureStderr(stderr, stderrDone)

	// Drain stderr before Wait; Wait closes the pipe and would cut off the
	// final lines that diagnose the failure.
	<-stderrDone
	if waitErr := c.cmd.Wait(); waitErr != nil {
		return fmt.Errorf("ffmpeg failed: %w (last stderr: %s)", waitErr, c.lastStderrLine())
	}
	return nil
}

// StreamToWriter runs FFmpeg with stdout piped to w. Stderr is captured into
// a bounded in-memory buffer for diagnostics. The call blocks until the
// process exits or ctx is cancelled.
func (c *Command) StreamToWriter(ctx context.Context, w io.Writer) error {
	c.mu.Lock()
	c.cmd = exec.CommandContext(ctx, c.Binary, c.Args...)
	c.started = time.Now()

	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("getting stdout pipe: %w", err)
	}

	stderr, err := c.cmd.StderrPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("getting stderr pipe: %w", err)
	}
	c.mu.Unlock()

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	stderrDone := make(chan struct{})
	go c.captureStderr(stderr, stderrDone)

	copyDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(w, stdout)
		copyDone <- err
	}()

	// Both pipes must be fully read before Wait, which closes them.
	copyErr := <-copyDone
	<-stderrDone
	waitErr := c.cmd.Wait()

	if copyErr != nil && waitErr == nil {
		return fmt.Errorf("copying output: %w", copyErr)
	}

	if waitErr != nil && ctx.Err() == nil {
		return fmt.Errorf("ffmpeg exited: %w (last stderr: %s)", waitErr, c.lastStderrLine())
	}
	return waitErr
}

// StartStreaming starts the process with stdout piped and returns the pipe.
// Stderr capture runs in the background. Callers copy from the returned
// reader and then call Wait; cancelling ctx kills the process.
func (c *Command) StartStreaming(ctx context.Context) (io.ReadCloser, error) {
	c.mu.Lock()
	c.cmd = exec.CommandContext(ctx, c.Binary, c.Args...)
	c.started = time.Now()

	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("getting stdout pipe: %w", err)
	}

	stderr, err := c.cmd.StderrPipe()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("getting stderr pipe: %w", err)
	}
	c.mu.Unlock()

	if err := c.cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	stderrDone := make(chan struct{})
	c.mu.Lock()
	c.stderrDone = stderrDone
	c.mu.Unlock()
	go c.captureStderr(stderr, stderrDone)

	return stdout, nil
}

// Wait waits for a started command to exit, draining stderr first so the
// last lines are captured before Wait closes the pipe.
func (c *Command) Wait() error {
	c.mu.RLock()
	cmd := c.cmd
	stderrDone := c.stderrDone
	c.mu.RUnlock()

	if cmd == nil {
		return fmt.Errorf("command not started")
	}
	if stderrDone != nil {
		<-stderrDone
	}
	return cmd.Wait()
}

// Kill terminates the FFmpeg process.
func (c *Command) Kill() error {
	c.mu.RLock()
	cmd := c.cmd
	c.mu.RUnlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// IsRunning returns true if the command is running.
func (c *Command) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cmd == nil || c.cmd.Process == nil {
		return false
	}
	return c.cmd.ProcessState == nil
}

// Duration returns how long the command has been running.
func (c *Command) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.started.IsZero() {
		return 0
	}
	return time.Since(c.started)
}

// captureStderr reads FFmpeg stderr into a bounded ring of recent lines.
func (c *Command) captureStderr(stderr io.ReadCloser, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(stderr)
	const maxLines = 100

	for scanner.Scan() {
		line := scanner.Text()

		c.stderrMu.Lock()
		if len(c.stderrLines) >= maxLines {
			c.stderrLines = c.stderrLines[1:]
		}
		c.stderrLines = append(c.stderrLines, line)
		c.stderrMu.Unlock()
	}
}

// StderrLines returns the recent stderr lines captured from FFmpeg.
func (c *Command) StderrLines() []string {
	c.stderrMu.RLock()
	defer c.stderrMu.RUnlock()

	lines := make([]string, len(c.stderrLines))
	copy(lines, c.stderrLines)
	return lines
}

func (c *Command) lastStderrLine() string {
	c.stderrMu.RLock()
	defer c.stderrMu.RUnlock()

	if len(c.stderrLines) == 0 {
		return ""
	}
	return c.stderrLines[len(c.stderrLines)-1]
}
