package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// WorkRoot is where per-job workspaces are allocated. Empty means the
	// system temp directory.
	WorkRoot  string `toml:"work_root"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
}

// FFmpeg contains configuration for the transcoding tool.
type FFmpeg struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Fetch contains configuration for remote media acquisition.
type Fetch struct {
	Binary           string   `toml:"binary"`
	SelfUpdate       bool     `toml:"self_update"`
	UserAgent        string   `toml:"user_agent"`
	ClientIdentities []string `toml:"client_identities"`
	TimeoutSeconds   int      `toml:"timeout_seconds"`
}

// Enhance contains configuration for the noise-suppression capability.
type Enhance struct {
	Binary       string `toml:"binary"`
	ModelDir     string `toml:"model_dir"`
	SampleRate   int    `toml:"sample_rate"`
	ChunkSeconds int    `toml:"chunk_seconds"`
	MinAttenDB   int    `toml:"min_atten_db"`
	MaxAttenDB   int    `toml:"max_atten_db"`
	// Environment identification passed to the capability at initialization
	// so it never needs to query version-control metadata at runtime.
	CommitHash string `toml:"commit_hash"`
	BranchName string `toml:"branch_name"`
	RepoRoot   string `toml:"repo_root"`
}

// Telemetry contains configuration for the usage log.
type Telemetry struct {
	Path      string `toml:"path"`
	UserLabel string `toml:"user_label"`
}

// Workflow contains daemon timing configuration.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hush.
type Config struct {
	Paths     Paths     `toml:"paths"`
	FFmpeg    FFmpeg    `toml:"ffmpeg"`
	Fetch     Fetch     `toml:"fetch"`
	Enhance   Enhance   `toml:"enhance"`
	Telemetry Telemetry `toml:"telemetry"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hush/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("hush.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.OutputDir}
	if strings.TrimSpace(c.Paths.WorkRoot) != "" {
		dirs = append(dirs, c.Paths.WorkRoot)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
