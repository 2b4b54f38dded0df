package loader

import (
	"fmt"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/gantry3d/gantry/document"
)

// Source supplies the scene document a ModelLoader loads. Identity keys the parsed document in
// the cache, so two loaders over the same source share one parse.
type Source interface {
	// Identity returns the stable identity of the document: its resolved URI or a digest of
	// its bytes.
	//
	// Returns:
	//   - string: the document identity
	Identity() string

	// Load fetches and parses the document. Runs off the tick thread; it may block.
	//
	// Returns:
	//   - *document.Document: the parsed document
	//   - error: an error when the document cannot be read or parsed
	Load() (*document.Document, error)
}

// --- File Source ---

type fileSourceImpl struct {
	path     string
	identity string
}

var _ Source = &fileSourceImpl{}

// NewFileSource creates a source that reads a .gltf or .glb file from disk.
//
// Parameters:
//   - path: the document path
//
// Returns:
//   - Source: the file-backed source
func NewFileSource(path string) Source {
	identity := "file:" + path
	if abs, err := filepath.Abs(path); err == nil {
		identity = "file:" + abs
	}
	return &fileSourceImpl{path: path, identity: identity}
}

func (s *fileSourceImpl) Identity() string {
	return s.identity
}

func (s *fileSourceImpl) Load() (*document.Document, error) {
	return document.Open(s.path)
}

// --- Bytes Source ---

type bytesSourceImpl struct {
	data     []byte
	identity string
}

var _ Source = &bytesSourceImpl{}

// NewBytesSource creates a source over an in-memory document, identified by a digest of its
// bytes.
//
// Parameters:
//   - data: the raw .gltf or .glb payload
//
// Returns:
//   - Source: the bytes-backed source
func NewBytesSource(data []byte) Source {
	return &bytesSourceImpl{
		data:     data,
		identity: fmt.Sprintf("digest:%016x", xxhash.Sum64(data)),
	}
}

func (s *bytesSourceImpl) Identity() string {
	return s.identity
}

func (s *bytesSourceImpl) Load() (*document.Document, error) {
	return document.FromBytes(s.data)
}

// --- Parsed Source ---

type parsedSourceImpl struct {
	doc *document.Document
}

var _ Source = &parsedSourceImpl{}

// NewParsedSource creates a source over an already-parsed document, for embedders that own
// document parsing themselves.
//
// Parameters:
//   - doc: the parsed document
//
// Returns:
//   - Source: the pre-parsed source
func NewParsedSource(doc *document.Document) Source {
	return &parsedSourceImpl{doc: doc}
}

func (s *parsedSourceImpl) Identity() string {
	return s.doc.Identity()
}

func (s *parsedSourceImpl) Load() (*document.Document, error) {
	return s.doc, nil
}
