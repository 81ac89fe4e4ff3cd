package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hush/internal/audio"
	"hush/internal/config"
	"hush/internal/enhance"
	"hush/internal/logging"
	"hush/internal/queue"
	"hush/internal/services"
	"hush/internal/services/deepfilter"
	"hush/internal/services/ytdlp"
	"hush/internal/telemetry"
	"hush/internal/workspace"
)

const testRate = 100

type fakeFetcher struct {
	fileName    string
	err         error
	selfUpdates int
	fetched     int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, destDir string) (string, error) {
	f.fetched++
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(destDir, f.fileName)
	return path, os.WriteFile(path, []byte("container bytes"), 0o644)
}

func (f *fakeFetcher) SelfUpdate(context.Context) error {
	f.selfUpdates++
	return nil
}

type fakeTranscoder struct {
	extractErr  error
	remuxAudio  int
	remuxVideo  int
	extractRate int
}

func (f *fakeTranscoder) Extract(_ context.Context, _ string, outputWAV string, sampleRate int) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	f.extractRate = sampleRate
	sig := audio.Signal{SampleRate: sampleRate, Samples: make([]int16, sampleRate*25)}
	return audio.WriteWAV(outputWAV, sig)
}

func (f *fakeTranscoder) RemuxAudio(_ context.Context, enhancedWAV, outputPath string) error {
	f.remuxAudio++
	data, err := os.ReadFile(enhancedWAV)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func (f *fakeTranscoder) RemuxVideo(_ context.Context, _, enhancedWAV, outputPath string) error {
	f.remuxVideo++
	data, err := os.ReadFile(enhancedWAV)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// chunkEchoExecutor stands in for the enhancement tool: it copies the staged
// chunk into the requested output directory unchanged.
type chunkEchoExecutor struct{}

func (chunkEchoExecutor) Run(_ context.Context, _ string, args []string, _ []string) (string, error) {
	var outDir string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--output-dir" {
			outDir = args[i+1]
		}
	}
	input := args[len(args)-1]
	data, err := os.ReadFile(input)
	if err != nil {
		return "", err
	}
	return "", os.WriteFile(filepath.Join(outDir, filepath.Base(input)), data, 0o644)
}

type fixture struct {
	cfg        *config.Config
	store      *queue.Store
	orch       *Orchestrator
	fetcher    *fakeFetcher
	transcoder *fakeTranscoder
	usage      *telemetry.Log
	workRoot   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()

	cfg := config.Default()
	cfg.Paths.WorkRoot = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Telemetry.Path = filepath.Join(base, "usage_log.csv")
	cfg.Enhance.SampleRate = testRate

	store, err := queue.OpenPath(filepath.Join(base, "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	binary := filepath.Join(base, "deep-filter")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub binary: %v", err)
	}
	cache := enhance.NewCache(
		deepfilter.Config{Binary: binary, SampleRate: testRate},
		logging.NewNop(),
		deepfilter.WithExecutor(chunkEchoExecutor{}),
		deepfilter.WithoutProbe(),
	)

	fetcher := &fakeFetcher{fileName: "Fancy Clip.mp4"}
	transcoder := &fakeTranscoder{}
	usage := telemetry.New(cfg.Telemetry.Path, "tester", logging.NewNop())

	orch := NewWithDependencies(
		&cfg,
		store,
		logging.NewNop(),
		workspace.NewManager(cfg.Paths.WorkRoot, logging.NewNop()),
		fetcher,
		transcoder,
		enhance.NewEngine(cache, cfg.Enhance.ChunkSeconds, logging.NewNop()),
		usage,
	)

	return &fixture{
		cfg:        &cfg,
		store:      store,
		orch:       orch,
		fetcher:    fetcher,
		transcoder: transcoder,
		usage:      usage,
		workRoot:   cfg.Paths.WorkRoot,
	}
}

func (f *fixture) localJob(t *testing.T, name string, atten int) *queue.Job {
	t.Helper()
	source := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(source, []byte("input media"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	job, err := f.store.NewJob(context.Background(), source, queue.SourceLocal, name, atten)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	return job
}

func TestRunLocalAudioJob(t *testing.T) {
	f := newFixture(t)
	job := f.localJob(t, "meeting.wav", 50)

	if err := f.orch.Run(context.Background(), job); err != nil {
		t.Fatalf("run: %v", err)
	}

	loaded, err := f.store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != queue.StatusCompleted {
		t.Fatalf("status %s, want completed", loaded.Status)
	}
	if loaded.OutputName != "meeting_50db.wav" {
		t.Fatalf("output name %q", loaded.OutputName)
	}
	wantOutput := filepath.Join(f.cfg.Paths.OutputDir, "meeting_50db.wav")
	if loaded.OutputFile != wantOutput {
		t.Fatalf("output file %q, want %q", loaded.OutputFile, wantOutput)
	}
	if _, err := os.Stat(wantOutput); err != nil {
		t.Fatalf("published output missing: %v", err)
	}
	if loaded.StartedAt == nil || loaded.FinishedAt == nil {
		t.Fatal("start/finish timestamps missing")
	}
	if f.transcoder.remuxAudio != 1 || f.transcoder.remuxVideo != 0 {
		t.Fatalf("audio-only source used wrong remux path: %+v", f.transcoder)
	}
	if f.transcoder.extractRate != testRate {
		t.Fatalf("extraction at %d Hz, want %d", f.transcoder.extractRate, testRate)
	}
	if f.fetcher.fetched != 0 {
		t.Fatal("local source must not hit the fetcher")
	}

	// Workspace is gone after completion; the published copy is the artifact.
	entries, err := os.ReadDir(f.workRoot)
	if err != nil {
		t.Fatalf("read work root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace not disposed: %v", entries)
	}

	rows := f.usage.ReadAll()
	if len(rows) != 1 {
		t.Fatalf("telemetry rows %d, want 1", len(rows))
	}
	if rows[0][8] != telemetry.StatusSuccess || rows[0][9] != telemetry.NoError {
		t.Fatalf("telemetry row %v", rows[0])
	}
	if rows[0][4] != "audio" {
		t.Fatalf("media type %q, want audio", rows[0][4])
	}
}

func TestRunRemoteVideoJob(t *testing.T) {
	f := newFixture(t)
	job, err := f.store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.SourceRemote, "", 80)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := f.orch.Run(context.Background(), job); err != nil {
		t.Fatalf("run: %v", err)
	}

	loaded, err := f.store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.OriginalName != "Fancy Clip.mp4" {
		t.Fatalf("original name %q", loaded.OriginalName)
	}
	if loaded.OutputName != "Fancy Clip_80db.mp4" {
		t.Fatalf("output name %q", loaded.OutputName)
	}
	if f.fetcher.selfUpdates != 1 {
		t.Fatalf("self-update ran %d times, want 1", f.fetcher.selfUpdates)
	}
	if f.transcoder.remuxVideo != 1 || f.transcoder.remuxAudio != 0 {
		t.Fatalf("video source used wrong remux path: %+v", f.transcoder)
	}

	rows := f.usage.ReadAll()
	if len(rows) != 1 || rows[0][2] != "remote" || rows[0][4] != "video" {
		t.Fatalf("telemetry row %v", rows)
	}
}

func TestRunExtractFailure(t *testing.T) {
	f := newFixture(t)
	f.transcoder.extractErr = fmt.Errorf("exit status 1: Invalid data found")
	job := f.localJob(t, "broken.mp4", 50)

	err := f.orch.Run(context.Background(), job)
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, services.ErrTranscodeFailed) {
		t.Fatalf("failure not classified as transcode: %v", err)
	}

	loaded, getErr := f.store.GetByID(context.Background(), job.ID)
	if getErr != nil {
		t.Fatalf("get: %v", getErr)
	}
	if loaded.Status != queue.StatusFailed {
		t.Fatalf("status %s, want failed", loaded.Status)
	}
	if strings.HasPrefix(loaded.ErrorMessage, "transcode failed") {
		t.Fatalf("user message should not carry the classification label: %q", loaded.ErrorMessage)
	}
	if !strings.Contains(loaded.ErrorMessage, "Invalid data found") {
		t.Fatalf("tool diagnostics missing from %q", loaded.ErrorMessage)
	}

	rows := f.usage.ReadAll()
	if len(rows) != 1 || rows[0][8] != telemetry.StatusFailure {
		t.Fatalf("telemetry rows %v", rows)
	}
	if rows[0][9] == telemetry.NoError {
		t.Fatal("failure row must carry the error text")
	}
}

func TestRunForbiddenFetch(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = fmt.Errorf("%w: %s", ytdlp.ErrForbidden, ytdlp.ForbiddenGuidance)
	job, err := f.store.NewJob(context.Background(), "https://example.com/v", queue.SourceRemote, "", 50)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	runErr := f.orch.Run(context.Background(), job)
	if !errors.Is(runErr, services.ErrAcquisitionForbidden) {
		t.Fatalf("expected forbidden classification, got %v", runErr)
	}

	loaded, err := f.store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(loaded.ErrorMessage, "local file") {
		t.Fatalf("guidance missing from user message: %q", loaded.ErrorMessage)
	}
}

func TestRunRejectsOutOfBoundsAttenuation(t *testing.T) {
	f := newFixture(t)
	job := f.localJob(t, "meeting.wav", 150)

	err := f.orch.Run(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestManagerDrainsQueueInOrder(t *testing.T) {
	f := newFixture(t)
	first := f.localJob(t, "one.wav", 50)
	second := f.localJob(t, "two.wav", 50)

	manager := NewManager(f.cfg, f.store, f.orch, logging.NewNop())
	if err := manager.RunPending(context.Background()); err != nil {
		t.Fatalf("run pending: %v", err)
	}

	for _, id := range []int64{first.ID, second.ID} {
		job, err := f.store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if job.Status != queue.StatusCompleted {
			t.Fatalf("job %d status %s, want completed", id, job.Status)
		}
	}
}

func TestManagerContinuesPastFailedJob(t *testing.T) {
	f := newFixture(t)
	bad := f.localJob(t, "bad.wav", 150) // out of bounds, fails fast
	good := f.localJob(t, "good.wav", 50)

	manager := NewManager(f.cfg, f.store, f.orch, logging.NewNop())
	if err := manager.RunPending(context.Background()); err != nil {
		t.Fatalf("run pending: %v", err)
	}

	badJob, err := f.store.GetByID(context.Background(), bad.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if badJob.Status != queue.StatusFailed {
		t.Fatalf("bad job status %s, want failed", badJob.Status)
	}
	goodJob, err := f.store.GetByID(context.Background(), good.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if goodJob.Status != queue.StatusCompleted {
		t.Fatalf("good job status %s, want completed", goodJob.Status)
	}
}
