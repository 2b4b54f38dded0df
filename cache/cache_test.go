package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResource struct {
	destroyed int
}

func (f *fakeResource) Destroy() {
	f.destroyed++
}

func TestAcquireDeduplicates(t *testing.T) {
	c := NewCache()

	factoryCalls := 0
	factory := func() Resource {
		factoryCalls++
		return &fakeResource{}
	}

	h1 := c.Acquire("buffer-view:model.gltf:0:24", factory)
	h2 := c.Acquire("buffer-view:model.gltf:0:24", factory)

	assert.Equal(t, 1, factoryCalls)
	assert.Same(t, h1.Resource(), h2.Resource())

	refs, ok := c.RefCount("buffer-view:model.gltf:0:24")
	require.True(t, ok)
	assert.Equal(t, 2, refs)
}

func TestDifferentKeysDoNotCollide(t *testing.T) {
	c := NewCache()

	h1 := c.Acquire("texture:a.png:srgb", func() Resource { return &fakeResource{} })
	h2 := c.Acquire("texture:a.png:linear", func() Resource { return &fakeResource{} })

	assert.NotSame(t, h1.Resource(), h2.Resource())
	assert.Equal(t, 2, c.Stats().Live)
}

func TestReleaseEvictsAtZero(t *testing.T) {
	c := NewCache()
	res := &fakeResource{}

	h1 := c.Acquire("k", func() Resource { return res })
	h2 := c.Acquire("k", func() Resource { return res })

	h1.Release()
	refs, ok := c.RefCount("k")
	require.True(t, ok)
	assert.Equal(t, 1, refs)
	assert.Equal(t, 0, res.destroyed)

	h2.Release()
	_, ok = c.RefCount("k")
	assert.False(t, ok)
	assert.Equal(t, 1, res.destroyed)
}

func TestReleaseIsIdempotentPerHandle(t *testing.T) {
	c := NewCache()
	res := &fakeResource{}

	h1 := c.Acquire("k", func() Resource { return res })
	h2 := c.Acquire("k", func() Resource { return res })

	// Releasing the same handle repeatedly must only decrement once.
	h1.Release()
	h1.Release()
	h1.Release()

	refs, ok := c.RefCount("k")
	require.True(t, ok)
	assert.Equal(t, 1, refs)
	assert.Equal(t, 0, res.destroyed)

	h2.Release()
	assert.Equal(t, 1, res.destroyed)
}

func TestKeepResidentSurvivesZeroReferences(t *testing.T) {
	c := NewCache()
	res := &fakeResource{}

	factoryCalls := 0
	factory := func() Resource {
		factoryCalls++
		return res
	}

	h := c.Acquire("doc", factory, WithKeepResident())
	h.Release()

	refs, ok := c.RefCount("doc")
	require.True(t, ok)
	assert.Equal(t, 0, refs)
	assert.Equal(t, 0, res.destroyed)

	// A re-acquire after the last release must hit the resident entry.
	h2 := c.Acquire("doc", factory)
	assert.Equal(t, 1, factoryCalls)
	assert.Same(t, res, h2.Resource())
	h2.Release()

	assert.Equal(t, 1, c.Stats().Resident)

	c.Destroy()
	assert.Equal(t, 1, res.destroyed)
}

func TestKeepResidentIsSticky(t *testing.T) {
	c := NewCache()
	res := &fakeResource{}

	h1 := c.Acquire("doc", func() Resource { return res })
	h2 := c.Acquire("doc", func() Resource { return res }, WithKeepResident())

	h1.Release()
	h2.Release()

	// The plain first acquire must not strip residency granted by the second.
	_, ok := c.RefCount("doc")
	assert.True(t, ok)
	assert.Equal(t, 0, res.destroyed)
}

func TestSweepDestroysZeroReferenceEntries(t *testing.T) {
	c := NewCache()

	resident := &fakeResource{}
	h1 := c.Acquire("doc", func() Resource { return resident }, WithKeepResident())
	h1.Release()

	held := &fakeResource{}
	h2 := c.Acquire("mesh", func() Resource { return held })

	// Only the resident zero-reference entry goes; the held one stays.
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, resident.destroyed)
	assert.Equal(t, 0, held.destroyed)

	_, ok := c.RefCount("doc")
	assert.False(t, ok)
	refs, ok := c.RefCount("mesh")
	require.True(t, ok)
	assert.Equal(t, 1, refs)

	h2.Release()
	assert.Equal(t, 0, c.Sweep())
	assert.Equal(t, 0, c.Stats().Live)
}

func TestStats(t *testing.T) {
	c := NewCache()

	h1 := c.Acquire("a", func() Resource { return &fakeResource{} })
	h2 := c.Acquire("a", func() Resource { return &fakeResource{} })
	h3 := c.Acquire("b", func() Resource { return &fakeResource{} })

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, 2, stats.Live)

	h1.Release()
	h2.Release()
	h3.Release()
	assert.Equal(t, 0, c.Stats().Live)
}

func TestDestroyTearsDownOutstandingEntries(t *testing.T) {
	c := NewCache()
	res := &fakeResource{}

	_ = c.Acquire("leaked", func() Resource { return res })
	c.Destroy()

	assert.Equal(t, 1, res.destroyed)
	assert.Equal(t, 0, c.Stats().Live)
}

// A resource whose Destroy releases a dependency handle re-enters the cache. This must not
// deadlock and must cascade eviction.
func TestCascadingDestroy(t *testing.T) {
	c := NewCache()

	dep := &fakeResource{}
	depHandle := c.Acquire("dep", func() Resource { return dep })

	parent := &releasingResource{handle: depHandle}
	parentHandle := c.Acquire("parent", func() Resource { return parent })

	parentHandle.Release()

	assert.Equal(t, 1, parent.destroyed)
	assert.Equal(t, 1, dep.destroyed)
	assert.Equal(t, 0, c.Stats().Live)
}

type releasingResource struct {
	handle    Handle
	destroyed int
}

func (r *releasingResource) Destroy() {
	r.destroyed++
	r.handle.Release()
}

func TestSweepCascades(t *testing.T) {
	c := NewCache()

	dep := &fakeResource{}
	depHandle := c.Acquire("dep", func() Resource { return dep })

	parent := &releasingResource{handle: depHandle}
	h := c.Acquire("doc", func() Resource { return parent }, WithKeepResident())
	h.Release()

	// The resident entry is the dependency's only holder, so sweeping it must
	// cascade through the release path without deadlocking.
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, parent.destroyed)
	assert.Equal(t, 1, dep.destroyed)
	assert.Equal(t, 0, c.Stats().Live)
}
