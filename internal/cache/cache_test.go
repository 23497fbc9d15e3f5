package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCache(t *testing.T) {
	fc, err := NewFrameCache(1 << 20)
	require.NoError(t, err)
	defer fc.Close()

	_, found := fc.Get("frames/001.jpg")
	assert.False(t, found)

	require.True(t, fc.Set("frames/001.jpg", []byte("jpeg-bytes")))
	fc.Wait()

	frame, found := fc.Get("frames/001.jpg")
	require.True(t, found)
	assert.Equal(t, "jpeg-bytes", string(frame))

	fc.Clear()
	_, found = fc.Get("frames/001.jpg")
	assert.False(t, found)
}

func TestMemCache(t *testing.T) {
	mc := NewMemCache()
	_, found := mc.Get("a")
	assert.False(t, found)

	mc.Set("a", []byte("1"))
	val, found := mc.Get("a")
	require.True(t, found)
	assert.Equal(t, "1", string(val))
	assert.Equal(t, 1, mc.Sets())

	mc.Clear()
	_, found = mc.Get("a")
	assert.False(t, found)
}
