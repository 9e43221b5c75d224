package vspace_test

import (
	"errors"
	"testing"

	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/vspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndTotalDim(t *testing.T) {
	vs, err := vspace.New(ring.Float32, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), vs.TotalDim())
	assert.Equal(t, ring.Float32, vs.Ring())
	assert.Equal(t, 2, vs.Rank())
}

func TestNewEmptyFails(t *testing.T) {
	_, err := vspace.New(ring.Float32)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vspace.ErrEmptySpace))
}

func TestNewZeroDimFails(t *testing.T) {
	_, err := vspace.New(ring.Float32, 3, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vspace.ErrBadDimension))
}

func TestStrides(t *testing.T) {
	vs, err := vspace.New(ring.Float32, 2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{12, 4, 1}, vs.Strides())
}

func TestEqual(t *testing.T) {
	a, _ := vspace.New(ring.Float32, 3, 3)
	b, _ := vspace.New(ring.Float32, 3, 3)
	c, _ := vspace.New(ring.Int32, 3, 3)

	assert.True(t, vspace.Equal(a, b))
	assert.False(t, vspace.Equal(a, c))
}

func TestConcat(t *testing.T) {
	a, _ := vspace.New(ring.Float32, 2)
	b, _ := vspace.New(ring.Float32, 3)
	ab, err := vspace.Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), ab.TotalDim())
	assert.Equal(t, 2, ab.Rank())
}

func TestPower(t *testing.T) {
	a, _ := vspace.New(ring.Float32, 2)
	a3, err := vspace.Power(a, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, a3.Rank())
	assert.Equal(t, uint32(8), a3.TotalDim())
}

func TestRingJoin(t *testing.T) {
	vs, err := vspace.FromFactors([]vspace.SimpleFactor{
		{Ring: ring.Int32, Dim: 2},
		{Ring: ring.Float32, Dim: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, ring.Float32, vs.Ring())
}

func TestWithoutFactors(t *testing.T) {
	vs, _ := vspace.New(ring.Float32, 2, 3, 4)
	rest := vs.WithoutFactors([]uint32{1})
	require.Len(t, rest, 2)
	assert.Equal(t, uint32(2), rest[0].Dim)
	assert.Equal(t, uint32(4), rest[1].Dim)
}
