package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"hush/internal/audio"
	"hush/internal/config"
	"hush/internal/enhance"
	"hush/internal/fileutil"
	"hush/internal/logging"
	"hush/internal/queue"
	"hush/internal/services"
	"hush/internal/services/deepfilter"
	"hush/internal/services/ffmpeg"
	"hush/internal/services/ytdlp"
	"hush/internal/telemetry"
	"hush/internal/workspace"
)

// Orchestrator sequences the denoising pipeline for one job at a time:
// optional fetch, extraction, chunked enhancement, remux, telemetry.
type Orchestrator struct {
	cfg        *config.Config
	store      *queue.Store
	workspaces *workspace.Manager
	fetcher    ytdlp.Fetcher
	transcoder ffmpeg.Transcoder
	engine     *enhance.Engine
	usage      *telemetry.Log
	logger     *slog.Logger
}

// New wires an orchestrator with default tool clients.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Orchestrator {
	cache := enhance.NewCache(deepfilter.Config{
		Binary:     cfg.Enhance.Binary,
		ModelDir:   cfg.Enhance.ModelDir,
		SampleRate: cfg.Enhance.SampleRate,
		Env: deepfilter.EnvInfo{
			CommitHash: cfg.Enhance.CommitHash,
			BranchName: cfg.Enhance.BranchName,
			RepoRoot:   cfg.Enhance.RepoRoot,
		},
	}, logger)

	return NewWithDependencies(
		cfg,
		store,
		logger,
		workspace.NewManager(cfg.Paths.WorkRoot, logger),
		ytdlp.NewCLI(ytdlp.Config{
			Binary:           cfg.Fetch.Binary,
			UserAgent:        cfg.Fetch.UserAgent,
			ClientIdentities: cfg.Fetch.ClientIdentities,
			Timeout:          time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		}),
		ffmpeg.NewCLI(
			ffmpeg.WithBinary(cfg.FFmpeg.Binary),
			ffmpeg.WithTimeout(time.Duration(cfg.FFmpeg.TimeoutSeconds)*time.Second),
		),
		enhance.NewEngine(cache, cfg.Enhance.ChunkSeconds, logger),
		telemetry.New(cfg.Telemetry.Path, cfg.Telemetry.UserLabel, logger),
	)
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(
	cfg *config.Config,
	store *queue.Store,
	logger *slog.Logger,
	workspaces *workspace.Manager,
	fetcher ytdlp.Fetcher,
	transcoder ffmpeg.Transcoder,
	engine *enhance.Engine,
	usage *telemetry.Log,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		workspaces: workspaces,
		fetcher:    fetcher,
		transcoder: transcoder,
		engine:     engine,
		usage:      usage,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes one job to a terminal state. The returned error mirrors the
// failure recorded on the job; a nil return means the job completed.
func (o *Orchestrator) Run(ctx context.Context, job *queue.Job) error {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, o.logger)

	started := time.Now().UTC()
	job.StartedAt = &started

	if err := o.process(ctx, logger, job); err != nil {
		finished := time.Now().UTC()
		job.FinishedAt = &finished
		job.SetFailed(services.UserMessage(err))
		if updateErr := o.store.Update(ctx, job); updateErr != nil {
			logger.Error("failed to persist job failure", logging.Error(updateErr))
		}
		o.recordUsage(job, telemetry.StatusFailure, services.UserMessage(err))
		o.workspaces.Dispose(job.WorkspaceDir)
		logger.Error("job failed", logging.String("error_message", job.ErrorMessage), logging.Error(err))
		return err
	}

	finished := time.Now().UTC()
	job.FinishedAt = &finished
	job.Status = queue.StatusCompleted
	job.SetProgress("Completed", "Denoised output ready", 100)
	if err := o.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist job completion", logging.Error(err))
	}
	o.recordUsage(job, telemetry.StatusSuccess, telemetry.NoError)
	o.workspaces.Dispose(job.WorkspaceDir)
	logger.Info(
		"job completed",
		logging.String("output_file", job.OutputFile),
		logging.Duration("duration", finished.Sub(started)),
	)
	return nil
}

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	if err := o.cfg.ValidateAttenuation(job.AttenuationDB); err != nil {
		return services.Wrap(services.ErrValidation, "submit", "attenuation", "", err)
	}

	// The workspace exists before any file I/O happens.
	dir, err := o.workspaces.Allocate()
	if err != nil {
		return services.Wrap(services.ErrIO, "workspace", "allocate", "", err)
	}
	job.WorkspaceDir = dir

	inputPath, err := o.prepareInput(ctx, logger, job)
	if err != nil {
		return err
	}

	job.OutputName = job.DeriveOutputName()

	noisyWAV := filepath.Join(job.WorkspaceDir, "noisy.wav")
	if err := o.transition(ctx, job, queue.StatusExtracting, "Extracting", "Normalizing audio track"); err != nil {
		return err
	}
	if err := o.transcoder.Extract(ctx, inputPath, noisyWAV, o.cfg.Enhance.SampleRate); err != nil {
		return services.Wrap(services.ErrTranscodeFailed, "extract", "normalize audio", "", err)
	}
	job.ExtractedWAV = noisyWAV

	if err := o.transition(ctx, job, queue.StatusEnhancing, "Enhancing", "Running noise suppression"); err != nil {
		return err
	}
	enhanced, err := o.engine.Enhance(ctx, noisyWAV, job.AttenuationDB, func(p enhance.Progress) {
		o.applyProgress(ctx, logger, job, p)
	})
	if err != nil {
		return err
	}
	cleanWAV := filepath.Join(job.WorkspaceDir, "clean.wav")
	if err := audio.WriteWAV(cleanWAV, enhanced); err != nil {
		return services.Wrap(services.ErrIO, "enhance", "write clean audio", "", err)
	}
	job.EnhancedWAV = cleanWAV

	if err := o.transition(ctx, job, queue.StatusRemuxing, "Remuxing", "Assembling final output"); err != nil {
		return err
	}
	stagedOutput := filepath.Join(job.WorkspaceDir, job.OutputName)
	if job.IsAudioOnly() {
		err = o.transcoder.RemuxAudio(ctx, cleanWAV, stagedOutput)
	} else {
		err = o.transcoder.RemuxVideo(ctx, inputPath, cleanWAV, stagedOutput)
	}
	if err != nil {
		return services.Wrap(services.ErrTranscodeFailed, "remux", "assemble output", "", err)
	}

	finalPath := filepath.Join(o.cfg.Paths.OutputDir, job.OutputName)
	if err := os.MkdirAll(o.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrIO, "remux", "ensure output dir", "", err)
	}
	if err := fileutil.CopyFile(stagedOutput, finalPath); err != nil {
		return services.Wrap(services.ErrIO, "remux", "publish output", "", err)
	}
	job.OutputFile = finalPath
	return nil
}

// prepareInput stages the source file inside the workspace, fetching it first
// for remote jobs, and returns its local path.
func (o *Orchestrator) prepareInput(ctx context.Context, logger *slog.Logger, job *queue.Job) (string, error) {
	if job.SourceType == queue.SourceRemote {
		if err := o.transition(ctx, job, queue.StatusFetching, "Fetching", "Downloading source media"); err != nil {
			return "", err
		}
		if o.cfg.Fetch.SelfUpdate {
			if err := o.fetcher.SelfUpdate(ctx); err != nil {
				// Best-effort: a stale downloader may still work.
				logger.Warn("downloader self-update failed", logging.Error(err))
			}
		}
		fetched, err := o.fetcher.Fetch(ctx, job.Source, job.WorkspaceDir)
		if err != nil {
			marker := services.ErrAcquisitionFailed
			if isForbidden(err) {
				marker = services.ErrAcquisitionForbidden
			}
			return "", services.Wrap(marker, "fetch", "download source", "", err)
		}
		job.FetchedFile = fetched
		job.OriginalName = filepath.Base(fetched)
		logger.Info("source fetched", logging.String("file", fetched))
		return fetched, nil
	}

	if _, err := os.Stat(job.Source); err != nil {
		return "", services.Wrap(services.ErrValidation, "submit", "source file", "", err)
	}
	staged := filepath.Join(job.WorkspaceDir, job.OriginalName)
	if err := fileutil.CopyFile(job.Source, staged); err != nil {
		return "", services.Wrap(services.ErrIO, "submit", "stage source", "", err)
	}
	return staged, nil
}

// transition persists a status change at a stage boundary.
func (o *Orchestrator) transition(ctx context.Context, job *queue.Job, status queue.Status, stage, message string) error {
	job.Status = status
	job.SetProgress(stage, message, 0)
	if err := o.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrIO, string(status), "persist transition", "", err)
	}
	logging.WithContext(services.WithStage(ctx, string(status)), o.logger).Debug("stage started")
	return nil
}

// applyProgress reflects a window completion onto the job row. Persistence is
// best-effort; a failed update only costs display freshness.
func (o *Orchestrator) applyProgress(ctx context.Context, logger *slog.Logger, job *queue.Job, p enhance.Progress) {
	job.SetProgress(
		"Enhancing",
		fmt.Sprintf("Window %d/%d, about %s remaining", p.WindowIndex+1, p.WindowCount, p.Remaining.Round(time.Second)),
		p.Fraction*100,
	)
	if err := o.store.Update(ctx, job); err != nil {
		logger.Debug("progress update not persisted", logging.Error(err))
	}
}

func (o *Orchestrator) recordUsage(job *queue.Job, status, errorText string) {
	mediaType := "video"
	if job.IsAudioOnly() {
		mediaType = "audio"
	}
	sizeSource := job.FetchedFile
	if sizeSource == "" {
		sizeSource = job.Source
	}
	var duration float64
	if d, ok := job.Duration(); ok {
		duration = d.Seconds()
	}
	o.usage.Record(telemetry.Record{
		Timestamp:     time.Now(),
		SourceType:    string(job.SourceType),
		OriginalName:  job.OriginalName,
		MediaType:     mediaType,
		FileSizeMB:    fileutil.SizeMB(sizeSource),
		AttenuationDB: job.AttenuationDB,
		DurationSecs:  duration,
		Status:        status,
		ErrorText:     errorText,
	})
}

func isForbidden(err error) bool {
	return errors.Is(err, ytdlp.ErrForbidden)
}
