// Package fetch resolves glTF buffer bytes: embedded GLB payloads, base64 data URIs, and
// external files relative to the document. Reads run on a shared worker pool and whole
// buffers are memoized per document, so ten buffer views over one .bin file cost one read.
package fetch

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/document"
)

// Fetcher loads whole raw buffers from a document's sources without blocking the caller.
type Fetcher interface {
	// FetchBuffer returns the complete bytes of the indexed buffer. Requests for the same
	// document and index share one read through an internal memo, so the returned promise
	// may already be settled.
	//
	// Parameters:
	//   - doc: the document declaring the buffer
	//   - index: the buffer index within the document
	//
	// Returns:
	//   - *async.Promise[[]byte]: settles with the buffer bytes or the read failure
	FetchBuffer(doc *document.Document, index int) *async.Promise[[]byte]

	// FetchURI returns the bytes behind a URI referenced by the document, typically an
	// external image file or a data URI. Requests for the same document and URI share one
	// read, like FetchBuffer.
	//
	// Parameters:
	//   - doc: the document referencing the URI
	//   - uri: the data URI or document-relative path
	//
	// Returns:
	//   - *async.Promise[[]byte]: settles with the bytes or the read failure
	FetchURI(doc *document.Document, uri string) *async.Promise[[]byte]
}

type fileFetcherImpl struct {
	pool    worker.DynamicWorkerPool
	workers int
	logger  *zap.Logger

	mu       sync.Mutex
	inflight map[string]*async.Promise[[]byte]
	taskSeq  int

	readFile func(path string) ([]byte, error)
}

var _ Fetcher = &fileFetcherImpl{}

// NewFileFetcher creates a fetcher backed by a dynamic worker pool. Workers spin down after
// an idle timeout, so an idle fetcher costs nothing.
//
// Parameters:
//   - opts: optional configuration (worker count, logger, read function)
//
// Returns:
//   - Fetcher: the initialized fetcher
func NewFileFetcher(opts ...FetcherBuilderOption) Fetcher {
	f := &fileFetcherImpl{
		workers:  4,
		logger:   zap.NewNop(),
		inflight: make(map[string]*async.Promise[[]byte]),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.pool = worker.NewDynamicWorkerPool(f.workers, 256, 1*time.Second)

	return f
}

func (f *fileFetcherImpl) FetchBuffer(doc *document.Document, index int) *async.Promise[[]byte] {
	key := doc.Identity() + "/buffer/" + strconv.Itoa(index)

	f.mu.Lock()
	if p, ok := f.inflight[key]; ok {
		f.mu.Unlock()
		return p
	}
	p := async.NewPromise[[]byte]()
	f.inflight[key] = p
	f.taskSeq++
	taskID := f.taskSeq
	f.mu.Unlock()

	if index < 0 || index >= len(doc.Buffers) {
		p.Reject(fmt.Errorf("buffer index %d out of range (document has %d buffers)", index, len(doc.Buffers)))
		return p
	}
	buf := doc.Buffers[index]

	// The parser already materializes GLB chunks (and sometimes data URIs) into Data.
	if len(buf.Data) > 0 {
		p.Resolve(clampToLength(buf.Data, buf.ByteLength))
		return p
	}

	if buf.URI == "" {
		p.Reject(fmt.Errorf("buffer %d has no URI and no embedded data", index))
		return p
	}

	uri := buf.URI
	byteLength := buf.ByteLength
	f.pool.SubmitTask(worker.Task{
		ID: taskID,
		Do: func() (any, error) {
			data, err := f.loadURI(doc, index, uri, byteLength)
			if err != nil {
				f.logger.Debug("buffer fetch failed", zap.String("key", key), zap.Error(err))
				p.Reject(err)
				return nil, err
			}
			f.logger.Debug("buffer fetched", zap.String("key", key), zap.Int("bytes", len(data)))
			p.Resolve(data)
			return nil, nil
		},
	})

	return p
}

func (f *fileFetcherImpl) FetchURI(doc *document.Document, uri string) *async.Promise[[]byte] {
	key := doc.Identity() + "/uri/" + uri

	f.mu.Lock()
	if p, ok := f.inflight[key]; ok {
		f.mu.Unlock()
		return p
	}
	p := async.NewPromise[[]byte]()
	f.inflight[key] = p
	f.taskSeq++
	taskID := f.taskSeq
	f.mu.Unlock()

	if uri == "" {
		p.Reject(fmt.Errorf("empty URI"))
		return p
	}

	f.pool.SubmitTask(worker.Task{
		ID: taskID,
		Do: func() (any, error) {
			data, err := f.loadRawURI(doc, uri)
			if err != nil {
				f.logger.Debug("uri fetch failed", zap.String("key", key), zap.Error(err))
				p.Reject(err)
				return nil, err
			}
			f.logger.Debug("uri fetched", zap.String("key", key), zap.Int("bytes", len(data)))
			p.Resolve(data)
			return nil, nil
		},
	})

	return p
}

// loadRawURI resolves a URI with no declared byte length, used for image sources.
func (f *fileFetcherImpl) loadRawURI(doc *document.Document, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		data, err := decodeDataURI(uri)
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	path, err := doc.ResolveURI(uri)
	if err != nil {
		return nil, err
	}

	data, err := f.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", uri, err)
	}
	return data, nil
}

func (f *fileFetcherImpl) loadURI(doc *document.Document, index int, uri string, byteLength int) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		data, err := decodeDataURI(uri)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", index, err)
		}
		return clampToLength(data, byteLength), nil
	}

	path, err := doc.ResolveURI(uri)
	if err != nil {
		return nil, fmt.Errorf("buffer %d: %w", index, err)
	}

	data, err := f.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("buffer %d: failed to read %q: %w", index, uri, err)
	}
	if byteLength > 0 && len(data) < byteLength {
		return nil, fmt.Errorf("buffer %d: %q is %d bytes, document declares %d", index, uri, len(data), byteLength)
	}
	return clampToLength(data, byteLength), nil
}

// clampToLength trims trailing padding beyond the declared byte length.
func clampToLength(data []byte, byteLength int) []byte {
	if byteLength > 0 && len(data) > byteLength {
		return data[:byteLength]
	}
	return data
}

// decodeDataURI extracts the payload of a base64 data URI.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, error) {
	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("malformed data URI: no comma found")
	}

	header := uri[5:commaIdx] // after "data:", before ","
	encoded := uri[commaIdx+1:]

	if !strings.Contains(header, ";base64") {
		return nil, fmt.Errorf("unsupported data URI encoding %q", header)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}
