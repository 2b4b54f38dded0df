package async

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromiseResolve(t *testing.T) {
	p := NewPromise[int]()
	assert.False(t, p.Settled())

	_, _, ok := p.Value()
	assert.False(t, ok)

	p.Resolve(42)
	require.True(t, p.Settled())

	v, err, ok := p.Value()
	require.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPromiseReject(t *testing.T) {
	cause := errors.New("boom")
	p := NewPromise[string]()
	p.Reject(cause)

	v, err, ok := p.Value()
	require.True(t, ok)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "", v)
}

func TestPromiseSettlesOnce(t *testing.T) {
	p := NewPromise[int]()
	p.Resolve(1)
	p.Resolve(2)
	p.Reject(errors.New("late"))

	v, err, ok := p.Value()
	require.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestResolvedAndRejected(t *testing.T) {
	v, err, ok := Resolved("done").Value()
	require.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, "done", v)

	cause := errors.New("nope")
	_, err, ok = Rejected[int](cause).Value()
	require.True(t, ok)
	assert.ErrorIs(t, err, cause)
}

func waitSettled[T any](t *testing.T, p *Promise[T]) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !p.Settled() {
		if time.Now().After(deadline) {
			t.Fatal("promise never settled")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestGo(t *testing.T) {
	p := Go(func() (int, error) { return 7, nil })
	waitSettled(t, p)

	v, err, _ := p.Value()
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGoError(t *testing.T) {
	cause := errors.New("failed")
	p := Go(func() (int, error) { return 0, cause })
	waitSettled(t, p)

	_, err, _ := p.Value()
	assert.ErrorIs(t, err, cause)
}

func TestGoRecoversPanic(t *testing.T) {
	p := Go(func() (int, error) { panic("exploded") })
	waitSettled(t, p)

	_, err, _ := p.Value()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exploded")
}
