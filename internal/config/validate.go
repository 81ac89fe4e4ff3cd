package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing mid-pipeline failures.
func (c *Config) Validate() error {
	var problems []string

	if c.FFmpeg.Binary == "" {
		problems = append(problems, "ffmpeg.binary must not be empty")
	}
	if c.Fetch.Binary == "" {
		problems = append(problems, "fetch.binary must not be empty")
	}
	if c.Enhance.Binary == "" {
		problems = append(problems, "enhance.binary must not be empty")
	}
	if c.Enhance.SampleRate <= 0 {
		problems = append(problems, fmt.Sprintf("enhance.sample_rate must be positive, got %d", c.Enhance.SampleRate))
	}
	if c.Enhance.ChunkSeconds <= 0 {
		problems = append(problems, fmt.Sprintf("enhance.chunk_seconds must be positive, got %d", c.Enhance.ChunkSeconds))
	}
	if c.Enhance.MinAttenDB >= c.Enhance.MaxAttenDB {
		problems = append(problems, fmt.Sprintf("enhance attenuation bounds invalid: [%d,%d]", c.Enhance.MinAttenDB, c.Enhance.MaxAttenDB))
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.Paths.OutputDir == "" {
		problems = append(problems, "paths.output_dir must not be empty")
	}
	if c.Telemetry.Path == "" {
		problems = append(problems, "telemetry.path must not be empty")
	}
	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// ValidateAttenuation checks a requested attenuation level against configured bounds.
func (c *Config) ValidateAttenuation(db int) error {
	if db < c.Enhance.MinAttenDB || db > c.Enhance.MaxAttenDB {
		return fmt.Errorf("attenuation %d dB outside allowed range [%d,%d]", db, c.Enhance.MinAttenDB, c.Enhance.MaxAttenDB)
	}
	return nil
}
