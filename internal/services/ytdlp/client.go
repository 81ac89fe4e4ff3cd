package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ForbiddenGuidance is surfaced when the upstream service blocks the fetch as
// automated traffic. It tells the user what to do instead of retrying.
const ForbiddenGuidance = "the upstream service refused the download request (HTTP 403); " +
	"the server's address range is blocked as automated traffic. " +
	"Download the video on your own machine and submit it as a local file instead."

// ErrForbidden marks a fetch rejected by upstream access control.
var ErrForbidden = errors.New("fetch forbidden")

// Fetcher defines the behaviour the fetching stage needs.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir string) (string, error)
	SelfUpdate(ctx context.Context) error
}

// Executor abstracts command execution for testability. It returns the tool's
// combined stdout/stderr output alongside any execution error.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (string, error)
}

// Config controls fetch hardening behaviour.
type Config struct {
	Binary           string
	UserAgent        string
	ClientIdentities []string
	Timeout          time.Duration
}

// Option configures the CLI client.
type Option func(*CLI)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *CLI) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// CLI wraps the yt-dlp command-line downloader.
type CLI struct {
	cfg  Config
	exec Executor
}

// NewCLI constructs a client from config, filling in defaults.
func NewCLI(cfg Config, opts ...Option) *CLI {
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	if len(cfg.ClientIdentities) == 0 {
		cfg.ClientIdentities = []string{"tv", "android", "ios"}
	}
	cli := &CLI{cfg: cfg, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// SelfUpdate upgrades the downloader binary. Upstream services change their
// blocking heuristics constantly, so a fresh tool fetches where a stale one
// is refused. Transient failures are retried briefly; callers treat any
// remaining error as best-effort and ignore it.
func (c *CLI) SelfUpdate(ctx context.Context) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	return backoff.Retry(func() error {
		_, err := c.exec.Run(ctx, c.cfg.Binary, []string{"-U"})
		return err
	}, policy)
}

// Fetch downloads url into destDir and returns the local file path. The fetch
// itself is never retried here; a failed fetch surfaces to the user, who may
// resubmit.
func (c *CLI) Fetch(ctx context.Context, url, destDir string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("fetch: url required")
	}
	if strings.TrimSpace(destDir) == "" {
		return "", errors.New("fetch: destination directory required")
	}

	fetchCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	args := c.buildArgs(url, destDir)
	output, err := c.exec.Run(fetchCtx, c.cfg.Binary, args)
	if err != nil {
		if isForbidden(output) || isForbidden(err.Error()) {
			return "", fmt.Errorf("%w: %s", ErrForbidden, ForbiddenGuidance)
		}
		detail := strings.TrimSpace(output)
		if detail == "" {
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}
		return "", fmt.Errorf("fetch %s: %w: %s", url, err, detail)
	}

	path := lastNonEmptyLine(output)
	if path == "" {
		return "", fmt.Errorf("fetch %s: downloader reported no output file", url)
	}
	return path, nil
}

// buildArgs assembles the hardened argument list: best single combined
// stream, no playlist expansion, forced IPv4, alternative client identities,
// cleared response cache, and a realistic browser user agent.
func (c *CLI) buildArgs(url, destDir string) []string {
	args := []string{
		"-f", "best",
		"--no-playlist",
		"--force-ipv4",
		"--rm-cache-dir",
		"--extractor-args", "youtube:player_client=" + strings.Join(c.cfg.ClientIdentities, ","),
		"--no-warnings",
		"--no-simulate",
		"--print", "after_move:filepath",
		"-o", destDir + "/%(title)s.%(ext)s",
	}
	if c.cfg.UserAgent != "" {
		args = append(args, "--user-agent", c.cfg.UserAgent)
	}
	return append(args, url)
}

func isForbidden(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(text, "403") || strings.Contains(lower, "forbidden")
}

func lastNonEmptyLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return combined.String(), err
}
