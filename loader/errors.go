package loader

import "errors"

// Error kinds a load can fail with. Sub-loaders wrap their causes with exactly one of these,
// and the ModelLoader wraps the first failure in a "failed to load document" error, so callers
// can both match the kind with errors.Is and read which dependency failed from the chain.
var (
	// ErrDocumentFetch marks a failure fetching or parsing the scene document itself.
	ErrDocumentFetch = errors.New("document fetch failed")

	// ErrByteRangeFetch marks a failure fetching the bytes behind a buffer view or image URI.
	ErrByteRangeFetch = errors.New("byte range fetch failed")

	// ErrDecode marks a malformed payload: a truncated buffer, an undecodable image, a failed
	// mesh decompression, or a document structure the pipeline cannot consume.
	ErrDecode = errors.New("decode failed")

	// ErrGPUResource marks a GPU buffer or texture creation failure.
	ErrGPUResource = errors.New("gpu resource creation failed")
)
