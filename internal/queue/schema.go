package queue

import (
	"context"
	"fmt"
)

const createJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    correlation_id TEXT NOT NULL,
    source TEXT NOT NULL,
    source_type TEXT NOT NULL,
    original_name TEXT NOT NULL,
    attenuation_db INTEGER NOT NULL,
    status TEXT NOT NULL,
    workspace_dir TEXT,
    fetched_file TEXT,
    extracted_wav TEXT,
    enhanced_wav TEXT,
    output_file TEXT,
    output_name TEXT,
    error_message TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    started_at TEXT,
    finished_at TEXT,
    progress_stage TEXT,
    progress_percent REAL NOT NULL DEFAULT 0,
    progress_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

func (s *Store) applyMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createJobsTable); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
