package ytdlp

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type scriptedExecutor struct {
	args   [][]string
	output string
	err    error
}

func (e *scriptedExecutor) Run(_ context.Context, _ string, args []string) (string, error) {
	e.args = append(e.args, args)
	return e.output, e.err
}

func TestFetchBuildsHardenedArguments(t *testing.T) {
	exec := &scriptedExecutor{output: "/work/My Video.mp4\n"}
	cli := NewCLI(Config{
		UserAgent:        "Mozilla/5.0",
		ClientIdentities: []string{"tv", "android", "ios"},
	}, WithExecutor(exec))

	path, err := cli.Fetch(context.Background(), "https://example.com/watch?v=abc", "/work")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if path != "/work/My Video.mp4" {
		t.Fatalf("fetched path %q", path)
	}

	got := strings.Join(exec.args[0], " ")
	for _, fragment := range []string{
		"-f best",
		"--no-playlist",
		"--force-ipv4",
		"--rm-cache-dir",
		"--extractor-args youtube:player_client=tv,android,ios",
		"--print after_move:filepath",
		"-o /work/%(title)s.%(ext)s",
		"--user-agent Mozilla/5.0",
	} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("arguments missing %q:\n%s", fragment, got)
		}
	}
	if !strings.HasSuffix(got, "https://example.com/watch?v=abc") {
		t.Fatalf("url must be the final argument:\n%s", got)
	}
}

func TestFetchParsesLastNonEmptyLine(t *testing.T) {
	exec := &scriptedExecutor{output: "[youtube] extracting\n\n/work/clip.mp4\n\n"}
	cli := NewCLI(Config{}, WithExecutor(exec))

	path, err := cli.Fetch(context.Background(), "https://example.com/v", "/work")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if path != "/work/clip.mp4" {
		t.Fatalf("path %q, want /work/clip.mp4", path)
	}
}

func TestFetchClassifiesForbidden(t *testing.T) {
	exec := &scriptedExecutor{
		output: "ERROR: unable to download video data: HTTP Error 403: Forbidden",
		err:    errors.New("exit status 1"),
	}
	cli := NewCLI(Config{}, WithExecutor(exec))

	_, err := cli.Fetch(context.Background(), "https://example.com/v", "/work")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if !strings.Contains(err.Error(), "local file") {
		t.Fatalf("forbidden error should carry user guidance, got %v", err)
	}
}

func TestFetchGenericFailureKeepsDiagnostics(t *testing.T) {
	exec := &scriptedExecutor{
		output: "ERROR: Unsupported URL",
		err:    errors.New("exit status 1"),
	}
	cli := NewCLI(Config{}, WithExecutor(exec))

	_, err := cli.Fetch(context.Background(), "https://example.com/v", "/work")
	if errors.Is(err, ErrForbidden) {
		t.Fatalf("generic failure misclassified as forbidden: %v", err)
	}
	if !strings.Contains(err.Error(), "Unsupported URL") {
		t.Fatalf("diagnostics should pass through, got %v", err)
	}
}

func TestFetchRequiresURLAndDest(t *testing.T) {
	cli := NewCLI(Config{}, WithExecutor(&scriptedExecutor{}))
	if _, err := cli.Fetch(context.Background(), " ", "/work"); err == nil {
		t.Fatal("expected error for blank url")
	}
	if _, err := cli.Fetch(context.Background(), "https://example.com/v", ""); err == nil {
		t.Fatal("expected error for blank destination")
	}
}

func TestFetchEmptyOutput(t *testing.T) {
	cli := NewCLI(Config{}, WithExecutor(&scriptedExecutor{output: "\n\n"}))
	if _, err := cli.Fetch(context.Background(), "https://example.com/v", "/work"); err == nil {
		t.Fatal("expected error when downloader reports no file")
	}
}

func TestSelfUpdateRetriesTransientFailure(t *testing.T) {
	exec := &scriptedExecutor{err: errors.New("network unreachable")}
	cli := NewCLI(Config{}, WithExecutor(exec))

	if err := cli.SelfUpdate(context.Background()); err == nil {
		t.Fatal("expected persistent failure to surface")
	}
	// Initial attempt plus two retries.
	if len(exec.args) != 3 {
		t.Fatalf("self-update attempted %d times, want 3", len(exec.args))
	}
}
