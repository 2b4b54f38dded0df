package cache

import "go.uber.org/zap"

// CacheBuilderOption configures a Cache during construction.
type CacheBuilderOption func(*cacheImpl)

// WithCacheLogger sets the logger used for acquire/release tracing.
//
// Parameters:
//   - logger: the zap logger to use
//
// Returns:
//   - CacheBuilderOption: the option to pass to NewCache
func WithCacheLogger(logger *zap.Logger) CacheBuilderOption {
	return func(c *cacheImpl) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// --- Acquire Options ---

type acquireConfig struct {
	keepResident bool
}

// AcquireOption configures a single Acquire call.
type AcquireOption func(*acquireConfig)

// WithKeepResident marks the entry as exempt from eviction at zero references. Used for
// document-level data reused across many derived loads. Residency is sticky for the entry's
// lifetime once requested.
//
// Returns:
//   - AcquireOption: the option to pass to Acquire
func WithKeepResident() AcquireOption {
	return func(cfg *acquireConfig) {
		cfg.keepResident = true
	}
}
