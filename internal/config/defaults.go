package config

// Default returns the configuration used when no file overrides are present.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    "~/.local/share/hush/logs",
			OutputDir: "~/.local/share/hush/output",
		},
		FFmpeg: FFmpeg{
			Binary: "ffmpeg",
		},
		Fetch: Fetch{
			Binary:           "yt-dlp",
			SelfUpdate:       true,
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			ClientIdentities: []string{"tv", "android", "ios"},
		},
		Enhance: Enhance{
			Binary:       "deep-filter",
			SampleRate:   48000,
			ChunkSeconds: 10,
			MinAttenDB:   20,
			MaxAttenDB:   100,
			CommitHash:   "hush",
			BranchName:   "main",
			RepoRoot:     ".",
		},
		Telemetry: Telemetry{
			Path:      "~/.local/share/hush/usage_log.csv",
			UserLabel: "anonymous",
		},
		Workflow: Workflow{
			QueuePollInterval: 2,
		},
		Logging: Logging{
			// Empty format auto-detects: console on a terminal, json otherwise.
			Format: "",
			Level:  "info",
		},
	}
}
