package pipeline

import (
	"context"
	"log/slog"
	"time"

	"hush/internal/config"
	"hush/internal/logging"
	"hush/internal/queue"
)

// Manager drains the queue: it polls for pending jobs and runs them one at a
// time until the context is cancelled. Jobs never run concurrently; the
// enhancement capability holds filter state that is not safe to share.
type Manager struct {
	store        *queue.Store
	orchestrator *Orchestrator
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewManager builds a queue drainer around an orchestrator.
func NewManager(cfg *config.Config, store *queue.Store, orch *Orchestrator, logger *slog.Logger) *Manager {
	interval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Manager{
		store:        store,
		orchestrator: orch,
		pollInterval: interval,
		logger:       logging.NewComponentLogger(logger, "manager"),
	}
}

// Run polls for work until ctx is cancelled. Jobs left mid-flight by a
// previous crash are reset to pending before the first poll.
func (m *Manager) Run(ctx context.Context) error {
	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		m.logger.Info("reset interrupted jobs to pending", logging.Int64("count", reset))
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.logger.Info("queue manager started", logging.Duration("poll_interval", m.pollInterval))
	for {
		if err := m.drainOnce(ctx); err != nil {
			m.logger.Error("queue poll failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			m.logger.Info("queue manager stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunPending processes every pending job currently in the queue and returns.
func (m *Manager) RunPending(ctx context.Context) error {
	return m.drainOnce(ctx)
}

func (m *Manager) drainOnce(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := m.store.NextPending(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			return nil
		}
		// Run reports the failure on the job itself; the loop keeps going
		// so one bad file cannot wedge the queue.
		if err := m.orchestrator.Run(ctx, job); err != nil {
			m.logger.Warn(
				"job finished with failure",
				logging.Int64("job_id", job.ID),
				logging.String("error_message", job.ErrorMessage),
			)
		}
	}
}
