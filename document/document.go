// Package document wraps the parsed glTF document the pipeline loads from. Parsing itself is
// delegated to qmuntal/gltf; this package adds a stable source identity for cache keys, the
// base directory for resolving relative buffer and image URIs, and typed access to the
// extension payloads the pipeline understands.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/qmuntal/gltf"
)

// Document is a parsed glTF document plus the source identity the cache derives keys from.
type Document struct {
	*gltf.Document

	identity string
	dir      string
}

// New wraps an already-parsed document. Embedders that run their own parsing hand documents
// to the pipeline through this.
//
// Parameters:
//   - doc: the parsed glTF document
//   - identity: a stable, unique identity for the source (used in cache keys)
//   - dir: the directory relative URIs resolve against, may be empty
//
// Returns:
//   - *Document: the wrapped document
func New(doc *gltf.Document, identity, dir string) *Document {
	return &Document{
		Document: doc,
		identity: identity,
		dir:      dir,
	}
}

// Open parses a glTF or GLB file from disk. The document's identity is derived from the
// absolute path, so two loads of the same file share cache entries.
//
// Parameters:
//   - path: the .gltf or .glb file to open
//
// Returns:
//   - *Document: the parsed document
//   - error: an error if the file could not be read or parsed
func Open(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document path %q: %w", path, err)
	}

	doc, err := gltf.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %q: %w", path, err)
	}

	return &Document{
		Document: doc,
		identity: "file:" + abs,
		dir:      filepath.Dir(abs),
	}, nil
}

// Decode parses a glTF or GLB document from a reader. The identity is a content digest, so
// two decodes of identical bytes share cache entries even without a path.
//
// Parameters:
//   - r: the document bytes
//
// Returns:
//   - *Document: the parsed document
//   - error: an error if the stream could not be read or parsed
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document stream: %w", err)
	}
	return FromBytes(data)
}

// FromBytes parses a glTF or GLB document from memory. Relative buffer and image URIs cannot
// be resolved for byte-sourced documents; embedded buffers and data URIs still work.
//
// Parameters:
//   - data: the raw .gltf or .glb bytes
//
// Returns:
//   - *Document: the parsed document
//   - error: an error if the bytes could not be parsed
func FromBytes(data []byte) (*Document, error) {
	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document bytes: %w", err)
	}

	return &Document{
		Document: &doc,
		identity: fmt.Sprintf("digest:%016x", xxhash.Sum64(data)),
	}, nil
}

// Identity returns the stable source identity cache keys are derived from: "file:<abs-path>"
// for path-opened documents, "digest:<xxhash>" for byte-sourced ones.
//
// Returns:
//   - string: the source identity
func (d *Document) Identity() string {
	return d.identity
}

// Dir returns the directory relative buffer and image URIs resolve against, empty for
// byte-sourced documents.
//
// Returns:
//   - string: the base directory, or ""
func (d *Document) Dir() string {
	return d.dir
}

// ResolveURI resolves a document-relative URI to a filesystem path.
//
// Parameters:
//   - uri: the relative URI from a buffer or image
//
// Returns:
//   - string: the resolved path
//   - error: an error when the document has no base directory
func (d *Document) ResolveURI(uri string) (string, error) {
	if d.dir == "" {
		return "", fmt.Errorf("document %s has no base directory to resolve %q against", d.identity, uri)
	}
	return filepath.Join(d.dir, filepath.FromSlash(uri)), nil
}

// DefaultSceneNodes returns the root node indices of the scene to load: the default scene
// when declared, otherwise the first scene, otherwise nothing.
//
// Returns:
//   - []int: root node indices into Nodes
func (d *Document) DefaultSceneNodes() []int {
	if d.Scene != nil && *d.Scene >= 0 && *d.Scene < len(d.Scenes) {
		return d.Scenes[*d.Scene].Nodes
	}
	if len(d.Scenes) > 0 {
		return d.Scenes[0].Nodes
	}
	return nil
}

// statDocument checks that a sidecar file referenced by the document exists, without reading
// it. Used by tooling to report missing external buffers up front.
//
// Parameters:
//   - uri: the relative URI to check
//
// Returns:
//   - error: an error when the file is missing or the URI cannot be resolved
func (d *Document) statDocument(uri string) error {
	path, err := d.ResolveURI(uri)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("referenced file %q not found: %w", uri, err)
	}
	return nil
}

// CheckExternalReferences verifies that every external (non data-URI) buffer and image the
// document references exists on disk. Byte-sourced documents with external references always
// fail this check.
//
// Returns:
//   - error: the first missing reference, nil when all resolve
func (d *Document) CheckExternalReferences() error {
	for i, buf := range d.Buffers {
		if buf.URI == "" || len(buf.Data) > 0 || isDataURI(buf.URI) {
			continue
		}
		if err := d.statDocument(buf.URI); err != nil {
			return fmt.Errorf("buffer %d: %w", i, err)
		}
	}
	for i, img := range d.Images {
		if img.URI == "" || isDataURI(img.URI) {
			continue
		}
		if err := d.statDocument(img.URI); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
	}
	return nil
}

func isDataURI(uri string) bool {
	return len(uri) > 5 && uri[:5] == "data:"
}
