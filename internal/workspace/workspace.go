package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"hush/internal/logging"
)

// MinFreeBytes is the free-space floor checked before allocating a workspace.
// Extraction writes an uncompressed 48 kHz PCM copy of the source, so a few
// hundred MB of headroom is required even for short inputs.
const MinFreeBytes = 512 << 20

// Manager allocates and disposes per-job workspace directories. Every job
// owns exactly one workspace; directories are never shared or reused.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager builds a manager rooted at root. An empty root uses the system
// temp directory.
func NewManager(root string, logger *slog.Logger) *Manager {
	return &Manager{
		root:   strings.TrimSpace(root),
		logger: logging.NewComponentLogger(logger, "workspace"),
	}
}

// Allocate creates a uniquely-named job directory and returns its path.
func (m *Manager) Allocate() (string, error) {
	root := m.root
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("ensure workspace root: %w", err)
	}
	if err := checkFreeSpace(root); err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp(root, "hush-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return "", fmt.Errorf("allocate workspace: %w", err)
	}
	m.logger.Debug("workspace allocated", logging.String("dir", dir))
	return dir, nil
}

// Dispose removes a workspace recursively. Failures are logged and swallowed:
// cleanup is best-effort and must never block the user-facing flow.
func (m *Manager) Dispose(dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("workspace cleanup failed", logging.String("dir", dir), logging.Error(err))
		return
	}
	m.logger.Debug("workspace disposed", logging.String("dir", dir))
}

func checkFreeSpace(root string) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(root, &stat); err != nil {
		// Treat an unreadable filesystem as a soft pass; allocation itself
		// will fail with a clearer error if the disk is actually broken.
		return nil
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < MinFreeBytes {
		return fmt.Errorf("insufficient free space in %s: %d bytes available, need at least %d", root, free, uint64(MinFreeBytes))
	}
	return nil
}
