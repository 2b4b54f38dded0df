package fetch

import "go.uber.org/zap"

// FetcherBuilderOption configures a Fetcher during construction.
type FetcherBuilderOption func(*fileFetcherImpl)

// WithWorkers sets how many pool workers may read concurrently.
//
// Parameters:
//   - workers: the worker count, values below 1 are ignored
//
// Returns:
//   - FetcherBuilderOption: the option to pass to NewFileFetcher
func WithWorkers(workers int) FetcherBuilderOption {
	return func(f *fileFetcherImpl) {
		if workers > 0 {
			f.workers = workers
		}
	}
}

// WithFetchLogger sets the logger used for fetch tracing.
//
// Parameters:
//   - logger: the zap logger to use
//
// Returns:
//   - FetcherBuilderOption: the option to pass to NewFileFetcher
func WithFetchLogger(logger *zap.Logger) FetcherBuilderOption {
	return func(f *fileFetcherImpl) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithReadFunc replaces the filesystem read used for external URIs. Tests use this to fetch
// from memory; embedders can route reads through their own asset storage.
//
// Parameters:
//   - read: the replacement read function
//
// Returns:
//   - FetcherBuilderOption: the option to pass to NewFileFetcher
func WithReadFunc(read func(path string) ([]byte, error)) FetcherBuilderOption {
	return func(f *fileFetcherImpl) {
		if read != nil {
			f.readFile = read
		}
	}
}
