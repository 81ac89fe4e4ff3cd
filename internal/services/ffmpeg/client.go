package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Transcoder defines the behaviour the extraction and remux stages need.
type Transcoder interface {
	Extract(ctx context.Context, inputPath, outputWAV string, sampleRate int) error
	RemuxAudio(ctx context.Context, enhancedWAV, outputPath string) error
	RemuxVideo(ctx context.Context, originalInput, enhancedWAV, outputPath string) error
}

// Executor abstracts command execution for testability. It returns the tool's
// combined diagnostic output alongside any execution error.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithTimeout bounds each invocation. Zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(c *CLI) {
		c.timeout = timeout
	}
}

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *CLI) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// CLI wraps the ffmpeg command-line tool.
type CLI struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", exec: commandExecutor{}}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// ExitError reports a non-zero exit carrying the tool's diagnostics verbatim.
type ExitError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = "no diagnostic output"
	}
	return fmt.Sprintf("ffmpeg %s: %s", e.Op, detail)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Extract strips any video stream and converts the audio track to mono 16-bit
// PCM at the given sample rate, overwriting outputWAV.
func (c *CLI) Extract(ctx context.Context, inputPath, outputWAV string, sampleRate int) error {
	args := []string{
		"-y", "-i", inputPath,
		"-vn", "-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate), "-ac", "1",
		outputWAV,
		"-hide_banner", "-loglevel", "error",
	}
	return c.run(ctx, "extract", args)
}

// RemuxAudio re-encodes the enhanced audio into a compressed audio container.
func (c *CLI) RemuxAudio(ctx context.Context, enhancedWAV, outputPath string) error {
	args := []string{
		"-y", "-i", enhancedWAV,
		"-c:a", "libmp3lame", "-q:a", "2",
		outputPath,
		"-hide_banner", "-loglevel", "error",
	}
	return c.run(ctx, "remux audio", args)
}

// RemuxVideo copies the original video stream unmodified, encodes the
// enhanced audio as AAC, and trims the output to the shorter stream so drift
// between original video length and reassembled audio never produces trailing
// silence or frozen frames.
func (c *CLI) RemuxVideo(ctx context.Context, originalInput, enhancedWAV, outputPath string) error {
	args := []string{
		"-y", "-i", originalInput, "-i", enhancedWAV,
		"-c:v", "copy", "-c:a", "aac",
		"-map", "0:v:0", "-map", "1:a:0", "-shortest",
		outputPath,
		"-hide_banner", "-loglevel", "error",
	}
	return c.run(ctx, "remux video", args)
}

func (c *CLI) run(ctx context.Context, op string, args []string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	output, err := c.exec.Run(ctx, c.binary, args)
	if err != nil {
		return &ExitError{Op: op, Stderr: output, Err: err}
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return stderr.String(), err
}

// IsExit reports whether err originated from a failed tool invocation.
func IsExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}
