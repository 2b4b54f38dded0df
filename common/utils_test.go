package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 5, Coalesce(0, 0, 5, 7))
	assert.Equal(t, "a", Coalesce("", "a"))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, float32(32), Coalesce(float32(0), 32))
}

func TestPtrOr(t *testing.T) {
	v := 3.5
	assert.Equal(t, 3.5, PtrOr(&v, 1.0))
	assert.Equal(t, 1.0, PtrOr(nil, 1.0))

	s := "set"
	assert.Equal(t, "set", PtrOr(&s, "default"))
	assert.Equal(t, "default", PtrOr[string](nil, "default"))
}
