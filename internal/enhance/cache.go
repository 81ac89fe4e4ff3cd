package enhance

import (
	"context"
	"log/slog"
	"sync"

	"hush/internal/logging"
	"hush/internal/services"
	"hush/internal/services/deepfilter"
)

// Cache guards the one expensive initialization of the enhancement capability.
// Exactly one initialization succeeds across all jobs in the process; a
// failed initialization leaves the cache cold so the next job retries.
type Cache struct {
	cfg    deepfilter.Config
	opts   []deepfilter.Option
	logger *slog.Logger

	mu     sync.Mutex
	handle *deepfilter.Handle
}

// NewCache builds an empty cache. Nothing is initialized until Get.
func NewCache(cfg deepfilter.Config, logger *slog.Logger, opts ...deepfilter.Option) *Cache {
	return &Cache{
		cfg:    cfg,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "modelcache"),
	}
}

// Get returns the cached handle, initializing it on first use. Concurrent
// first callers serialize on the lock: one performs the load, the rest
// receive the same handle. Initialization failures carry the underlying
// cause verbatim and are classified as a capability-unavailable condition.
func (c *Cache) Get(ctx context.Context) (*deepfilter.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		return c.handle, nil
	}

	c.logger.Info("loading enhancement model", logging.String("binary", c.cfg.Binary))
	handle, err := deepfilter.Init(ctx, c.cfg, c.opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrCapabilityUnavailable, "enhance", "initialize model", "", err)
	}
	c.handle = handle
	c.logger.Info("enhancement model ready", logging.Int("sample_rate", handle.SampleRate()))
	return c.handle, nil
}

// Initialized reports whether a handle is already cached.
func (c *Cache) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}
