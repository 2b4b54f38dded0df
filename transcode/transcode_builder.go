package transcode

import "go.uber.org/zap"

// PoolBuilderOption configures a decode pool during construction.
type PoolBuilderOption func(*poolImpl)

// WithMaxDecoders caps how many decodes run at once.
//
// Parameters:
//   - workers: the maximum concurrent decode count, values below 1 are ignored
//
// Returns:
//   - PoolBuilderOption: the option to apply
func WithMaxDecoders(workers int) PoolBuilderOption {
	return func(p *poolImpl) {
		if workers >= 1 {
			p.workers = workers
		}
	}
}

// WithTranscoder registers a decoder for a format the standard registry cannot handle.
// Registering a second transcoder for the same format replaces the first.
//
// Parameters:
//   - t: the transcoder to register
//
// Returns:
//   - PoolBuilderOption: the option to apply
func WithTranscoder(t Transcoder) PoolBuilderOption {
	return func(p *poolImpl) {
		if t != nil {
			p.transcoders[t.Format()] = t
		}
	}
}

// WithTranscodeLogger sets the logger used for decode diagnostics.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - PoolBuilderOption: the option to apply
func WithTranscodeLogger(logger *zap.Logger) PoolBuilderOption {
	return func(p *poolImpl) {
		if logger != nil {
			p.logger = logger
		}
	}
}
