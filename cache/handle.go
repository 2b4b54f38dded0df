package cache

import (
	"sync"

	"go.uber.org/zap"
)

// Handle is one acquired reference to a cached resource. Each handle releases at most once,
// so an idempotent teardown path can call Release unconditionally without corrupting the
// entry's reference count.
type Handle interface {
	// Resource returns the shared resource. Callers type-assert to the concrete kind they
	// acquired.
	//
	// Returns:
	//   - Resource: the cached resource
	Resource() Resource

	// Key returns the key the handle was acquired under.
	//
	// Returns:
	//   - Key: the cache key
	Key() Key

	// Release returns this reference to the cache. The first call decrements the entry's
	// reference count; later calls are no-ops.
	Release()
}

type handleImpl struct {
	cache    *cacheImpl
	key      Key
	resource Resource

	releaseOnce sync.Once
}

var _ Handle = &handleImpl{}

func (h *handleImpl) Resource() Resource {
	return h.resource
}

func (h *handleImpl) Key() Key {
	return h.key
}

func (h *handleImpl) Release() {
	first := false
	h.releaseOnce.Do(func() {
		first = true
		h.cache.release(h.key)
	})
	if !first {
		h.cache.logger.Warn("handle released more than once", zap.String("key", string(h.key)))
	}
}
