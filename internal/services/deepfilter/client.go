package deepfilter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"hush/internal/audio"
)

// EnvInfo identifies the runtime environment to the capability at
// initialization. The tool's build tooling expects version-control metadata;
// supplying it explicitly means nothing ever queries a repository at runtime.
type EnvInfo struct {
	CommitHash string
	BranchName string
	RepoRoot   string
}

// Config describes how to reach the enhancement tool.
type Config struct {
	Binary     string
	ModelDir   string
	SampleRate int
	Env        EnvInfo
}

// Enhancer processes one fixed-format audio window at a time.
type Enhancer interface {
	Enhance(ctx context.Context, window []int16, attenuationDB int) ([]int16, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, env []string) (string, error)
}

// Handle is the initialized, process-wide shareable capability handle. It is
// read-only after initialization.
type Handle struct {
	cfg  Config
	exec Executor
}

// Option configures initialization.
type Option func(*initOptions)

type initOptions struct {
	exec      Executor
	skipProbe bool
}

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(o *initOptions) {
		if exec != nil {
			o.exec = exec
		}
	}
}

// WithoutProbe skips the warm-up invocation (used in tests).
func WithoutProbe() Option {
	return func(o *initOptions) { o.skipProbe = true }
}

// Init loads the enhancement capability. This is the expensive step: the tool
// resolves and, on first use, downloads its model checkpoint. Callers must
// cache the returned handle; see the enhance package.
func Init(ctx context.Context, cfg Config, opts ...Option) (*Handle, error) {
	options := initOptions{exec: commandExecutor{}}
	for _, opt := range opts {
		opt(&options)
	}

	if cfg.Binary == "" {
		cfg.Binary = "deep-filter"
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("deepfilter: invalid sample rate %d", cfg.SampleRate)
	}

	if _, err := exec.LookPath(cfg.Binary); err != nil {
		return nil, fmt.Errorf("locate enhancement binary: %w", err)
	}
	if cfg.ModelDir != "" {
		if err := os.MkdirAll(cfg.ModelDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure model directory: %w", err)
		}
	}

	handle := &Handle{cfg: cfg, exec: options.exec}
	if !options.skipProbe {
		// Warm-up run forces the model checkpoint to load now, so the first
		// job chunk does not pay the initialization cost.
		if output, err := handle.exec.Run(ctx, cfg.Binary, []string{"--version"}, handle.env()); err != nil {
			detail := strings.TrimSpace(output)
			if detail == "" {
				return nil, fmt.Errorf("probe enhancement tool: %w", err)
			}
			return nil, fmt.Errorf("probe enhancement tool: %w: %s", err, detail)
		}
	}
	return handle, nil
}

// SampleRate returns the fixed rate the capability operates at.
func (h *Handle) SampleRate() int { return h.cfg.SampleRate }

// Enhance denoises one window. The window is written to a scratch WAV, run
// through the tool, and read back. Output is normalized to the input sample
// count, upholding the equal-length contract even when the tool pads.
func (h *Handle) Enhance(ctx context.Context, window []int16, attenuationDB int) ([]int16, error) {
	if len(window) == 0 {
		return nil, nil
	}

	scratch, err := os.MkdirTemp("", "hush-chunk-")
	if err != nil {
		return nil, fmt.Errorf("allocate chunk scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	inputPath := filepath.Join(scratch, "chunk.wav")
	outDir := filepath.Join(scratch, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure chunk output dir: %w", err)
	}
	if err := audio.WriteWAV(inputPath, audio.Signal{SampleRate: h.cfg.SampleRate, Samples: window}); err != nil {
		return nil, err
	}

	args := []string{
		"--atten-lim", strconv.Itoa(attenuationDB),
		"--output-dir", outDir,
	}
	if h.cfg.ModelDir != "" {
		args = append(args, "--model", h.cfg.ModelDir)
	}
	args = append(args, inputPath)

	if output, err := h.exec.Run(ctx, h.cfg.Binary, args, h.env()); err != nil {
		detail := strings.TrimSpace(output)
		if detail == "" {
			return nil, fmt.Errorf("enhance chunk: %w", err)
		}
		return nil, fmt.Errorf("enhance chunk: %w: %s", err, detail)
	}

	enhanced, err := audio.ReadWAV(filepath.Join(outDir, "chunk.wav"))
	if err != nil {
		return nil, fmt.Errorf("read enhanced chunk: %w", err)
	}
	return normalizeLength(enhanced.Samples, len(window)), nil
}

// env renders the environment identification the capability expects.
func (h *Handle) env() []string {
	return append(os.Environ(),
		"DF_COMMIT_HASH="+h.cfg.Env.CommitHash,
		"DF_BRANCH_NAME="+h.cfg.Env.BranchName,
		"DF_REPO_ROOT="+h.cfg.Env.RepoRoot,
	)
}

func normalizeLength(samples []int16, want int) []int16 {
	switch {
	case len(samples) == want:
		return samples
	case len(samples) > want:
		return samples[:want]
	default:
		padded := make([]int16, want)
		copy(padded, samples)
		return padded
	}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, env []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Env = env
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	return combined.String(), err
}
