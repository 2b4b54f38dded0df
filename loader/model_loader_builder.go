package loader

import (
	"go.uber.org/zap"

	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/draco"
	"github.com/gantry3d/gantry/fetch"
	"github.com/gantry3d/gantry/platform"
	"github.com/gantry3d/gantry/transcode"
)

// ModelLoaderOption configures a ModelLoader during construction.
type ModelLoaderOption func(*modelLoaderImpl)

// WithCache sets the resource cache. Loaders that should share fetched bytes, decoded
// payloads, and GPU resources must share one cache, one device, and one fetcher.
//
// Parameters:
//   - c: the cache to share
//
// Returns:
//   - ModelLoaderOption: the option to pass to NewModelLoader
func WithCache(c cache.Cache) ModelLoaderOption {
	return func(m *modelLoaderImpl) {
		if c != nil {
			m.p.cache = c
		}
	}
}

// WithFetcher sets the byte source for buffers and images.
//
// Parameters:
//   - f: the fetcher to use
//
// Returns:
//   - ModelLoaderOption: the option to pass to NewModelLoader
func WithFetcher(f fetch.Fetcher) ModelLoaderOption {
	return func(m *modelLoaderImpl) {
		if f != nil {
			m.p.fetcher = f
		}
	}
}

// WithMeshDecoder sets the mesh-compression decoder. Without one, documents using compressed
// primitives fail to load.
//
// Parameters:
//   - d: the decoder to use
//
// Returns:
//   - ModelLoaderOption: the option to pass to NewModelLoader
func WithMeshDecoder(d draco.Decoder) ModelLoaderOption {
	return func(m *modelLoaderImpl) {
		if d != nil {
			m.p.decoder = d
		}
	}
}

// WithImagePool sets the image decode pool.
//
// Parameters:
//   - pool: the pool to decode texture images on
//
// Returns:
//   - ModelLoaderOption: the option to pass to NewModelLoader
func WithImagePool(pool transcode.Pool) ModelLoaderOption {
	return func(m *modelLoaderImpl) {
		if pool != nil {
			m.p.images = pool
		}
	}
}

// WithProber sets the capability prober. Assembly defers until its promise settles, so a
// deferred prober lets the embedder finish negotiating the runtime while bytes download.
//
// Parameters:
//   - p: the prober to consult
//
// Returns:
//   - ModelLoaderOption: the option to pass to NewModelLoader
func WithProber(p platform.Prober) ModelLoaderOption {
	return func(m *modelLoaderImpl) {
		if p != nil {
			m.prober = p
		}
	}
}

// WithUploadBudget sets the per-tick GPU upload byte budget. The first upload of a tick always
// runs regardless of size, so oversized resources cannot stall.
//
// Parameters:
//   - bytes: the budget per Process call, 0 for unlimited
//
// Returns:
//   - ModelLoaderOption: the option to pass to NewModelLoader
func WithUploadBudget(bytes uint64) ModelLoaderOption {
	return func(m *modelLoaderImpl) {
		m.uploadBudget = bytes
	}
}

// WithAsynchronousUpload toggles upload amortization. Disabled, every pending upload runs on
// the tick its bytes are ready, which front-loads a frame hitch in exchange for the shortest
// possible load.
//
// Parameters:
//   - enabled: false to upload everything as soon as possible
//
// Returns:
//   - ModelLoaderOption: the option to pass to NewModelLoader
func WithAsynchronousUpload(enabled bool) ModelLoaderOption {
	return func(m *modelLoaderImpl) {
		m.asynchronous = enabled
	}
}

// WithModelLogger sets the logger for load tracing.
//
// Parameters:
//   - logger: the zap logger to use
//
// Returns:
//   - ModelLoaderOption: the option to pass to NewModelLoader
func WithModelLogger(logger *zap.Logger) ModelLoaderOption {
	return func(m *modelLoaderImpl) {
		if logger != nil {
			m.logger = logger
		}
	}
}
