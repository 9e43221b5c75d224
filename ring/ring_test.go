package ring_test

import (
	"errors"
	"testing"

	"github.com/siquus/dac-sub000/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperior(t *testing.T) {
	assert.Equal(t, ring.Float32, ring.Superior(ring.Int32, ring.Float32))
	assert.Equal(t, ring.Float32, ring.Superior(ring.Float32, ring.Int32))
	assert.Equal(t, ring.Int32, ring.Superior(ring.Int32, ring.Int32))
	assert.Equal(t, ring.Int32, ring.Superior(ring.None, ring.Int32))
}

func TestElementSize(t *testing.T) {
	sz, err := ring.ElementSize(ring.Int32)
	require.NoError(t, err)
	assert.Equal(t, 4, sz)

	sz, err = ring.ElementSize(ring.Float32)
	require.NoError(t, err)
	assert.Equal(t, 4, sz)

	_, err = ring.ElementSize(ring.None)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ring.ErrUnknownRing))
}

func TestIsCompatible(t *testing.T) {
	assert.True(t, ring.IsCompatible[int32](ring.Int32))
	assert.False(t, ring.IsCompatible[int32](ring.Float32))
	assert.True(t, ring.IsCompatible[float32](ring.Float32))
	assert.False(t, ring.IsCompatible[float32](ring.Int32))
}

func TestCheckCompatible(t *testing.T) {
	require.NoError(t, ring.CheckCompatible[float32](ring.Float32))

	err := ring.CheckCompatible[int32](ring.Float32)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ring.ErrRingMismatch))
}

func TestString(t *testing.T) {
	assert.Equal(t, "Int32", ring.Int32.String())
	assert.Equal(t, "Float32", ring.Float32.String())
	assert.Equal(t, "None", ring.None.String())
}
