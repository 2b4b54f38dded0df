package fetch

import (
	"encoding/base64"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/document"
)

func waitSettled[T any](t *testing.T, p *async.Promise[T]) (T, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !p.Settled() {
		if time.Now().After(deadline) {
			t.Fatal("promise never settled")
		}
		time.Sleep(time.Millisecond)
	}
	v, err, _ := p.Value()
	return v, err
}

func docWithBuffers(buffers []*gltf.Buffer, dir string) *document.Document {
	return document.New(&gltf.Document{Buffers: buffers}, "test:doc", dir)
}

func TestFetchEmbeddedData(t *testing.T) {
	doc := docWithBuffers([]*gltf.Buffer{
		{ByteLength: 4, Data: []byte{1, 2, 3, 4}},
	}, "")

	f := NewFileFetcher()
	p := f.FetchBuffer(doc, 0)

	data, err := waitSettled(t, p)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestFetchEmbeddedDataClampsPadding(t *testing.T) {
	doc := docWithBuffers([]*gltf.Buffer{
		{ByteLength: 4, Data: []byte{1, 2, 3, 4, 0, 0, 0, 0}},
	}, "")

	f := NewFileFetcher()
	data, err := waitSettled(t, f.FetchBuffer(doc, 0))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestFetchDataURI(t *testing.T) {
	payload := []byte{10, 20, 30, 40}
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(payload)
	doc := docWithBuffers([]*gltf.Buffer{
		{ByteLength: 4, URI: uri},
	}, "")

	f := NewFileFetcher()
	data, err := waitSettled(t, f.FetchBuffer(doc, 0))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchExternalFile(t *testing.T) {
	doc := docWithBuffers([]*gltf.Buffer{
		{ByteLength: 4, URI: "mesh.bin"},
	}, "/assets")

	var reads atomic.Int32
	f := NewFileFetcher(WithReadFunc(func(path string) ([]byte, error) {
		reads.Add(1)
		return []byte{9, 8, 7, 6}, nil
	}))

	data, err := waitSettled(t, f.FetchBuffer(doc, 0))
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7, 6}, data)
	assert.Equal(t, int32(1), reads.Load())
}

func TestFetchMemoizesPerBuffer(t *testing.T) {
	doc := docWithBuffers([]*gltf.Buffer{
		{ByteLength: 4, URI: "mesh.bin"},
	}, "/assets")

	var reads atomic.Int32
	f := NewFileFetcher(WithReadFunc(func(path string) ([]byte, error) {
		reads.Add(1)
		return []byte{1, 1, 2, 2}, nil
	}))

	p1 := f.FetchBuffer(doc, 0)
	p2 := f.FetchBuffer(doc, 0)
	assert.Same(t, p1, p2)

	_, err := waitSettled(t, p1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), reads.Load())

	// A settled fetch is still memoized.
	p3 := f.FetchBuffer(doc, 0)
	assert.Same(t, p1, p3)
	assert.Equal(t, int32(1), reads.Load())
}

func TestFetchReadFailure(t *testing.T) {
	doc := docWithBuffers([]*gltf.Buffer{
		{ByteLength: 4, URI: "missing.bin"},
	}, "/assets")

	cause := errors.New("no such file")
	f := NewFileFetcher(WithReadFunc(func(path string) ([]byte, error) {
		return nil, cause
	}))

	_, err := waitSettled(t, f.FetchBuffer(doc, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestFetchTruncatedFile(t *testing.T) {
	doc := docWithBuffers([]*gltf.Buffer{
		{ByteLength: 100, URI: "short.bin"},
	}, "/assets")

	f := NewFileFetcher(WithReadFunc(func(path string) ([]byte, error) {
		return []byte{1, 2, 3}, nil
	}))

	_, err := waitSettled(t, f.FetchBuffer(doc, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares 100")
}

func TestFetchURIExternalFile(t *testing.T) {
	doc := docWithBuffers(nil, "/assets")

	var reads atomic.Int32
	f := NewFileFetcher(WithReadFunc(func(path string) ([]byte, error) {
		reads.Add(1)
		return []byte{0x89, 0x50, 0x4E, 0x47}, nil
	}))

	p1 := f.FetchURI(doc, "textures/albedo.png")
	p2 := f.FetchURI(doc, "textures/albedo.png")
	assert.Same(t, p1, p2)

	data, err := waitSettled(t, p1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, data)
	assert.Equal(t, int32(1), reads.Load())

	// A different URI is a different read.
	_, err = waitSettled(t, f.FetchURI(doc, "textures/normal.png"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), reads.Load())
}

func TestFetchURIDataURI(t *testing.T) {
	payload := []byte{5, 6, 7}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	f := NewFileFetcher()
	data, err := waitSettled(t, f.FetchURI(docWithBuffers(nil, ""), uri))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchURIRejectsEmpty(t *testing.T) {
	f := NewFileFetcher()
	_, err := waitSettled(t, f.FetchURI(docWithBuffers(nil, ""), ""))
	assert.Error(t, err)
}

func TestFetchRejectsBadInputs(t *testing.T) {
	doc := docWithBuffers([]*gltf.Buffer{
		{ByteLength: 4, URI: "mesh.bin"},
	}, "")

	f := NewFileFetcher()

	// Out-of-range index.
	_, err := waitSettled(t, f.FetchBuffer(doc, 5))
	assert.Error(t, err)

	// External URI without a base directory.
	_, err = waitSettled(t, f.FetchBuffer(doc, 0))
	assert.Error(t, err)

	// No URI and no embedded data.
	empty := docWithBuffers([]*gltf.Buffer{{ByteLength: 4}}, "")
	_, err = waitSettled(t, f.FetchBuffer(empty, 0))
	assert.Error(t, err)
}
