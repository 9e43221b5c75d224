// SPDX-License-Identifier: MIT
// Package vspace defines VectorSpace, the shape+ring descriptor every tensor
// carries: an ordered, non-empty product of SimpleFactor{Ring, Dim}.
//
// VectorSpace is a pure value object — it owns no graph node and performs
// no allocation of executable state. Factories that actually materialize a
// tensor (Element, Scalar, Homomorphism, the Kronecker-delta constructor)
// live in package tensor, which depends on vspace, not the other way round.
package vspace

import (
	"errors"
	"fmt"

	"github.com/siquus/dac-sub000/ring"
)

// ErrEmptySpace is returned when a VectorSpace is constructed with zero
// factors; every space must have rank >= 1.
var ErrEmptySpace = errors.New("vspace: space has no factors")

// ErrBadDimension is returned when a factor's dimension is zero.
var ErrBadDimension = errors.New("vspace: dimension must be >= 1")

// SimpleFactor is one (ring, dim) pair in a VectorSpace's factor product.
type SimpleFactor struct {
	Ring ring.Type
	Dim  uint32
}

// VectorSpace is an ordered, non-empty sequence of SimpleFactor. Two spaces
// are equal iff their factor sequences are elementwise equal (same length,
// same ring and dim at every position).
type VectorSpace struct {
	Factors []SimpleFactor
}

// New builds a VectorSpace of a single ring replicated across the given
// per-axis dimensions. len(dims) == 0 is an error; every dim must be >= 1.
func New(r ring.Type, dims ...uint32) (*VectorSpace, error) {
	if len(dims) == 0 {
		return nil, ErrEmptySpace
	}

	factors := make([]SimpleFactor, len(dims))
	for i, d := range dims {
		if d == 0 {
			return nil, fmt.Errorf("factor %d: %w", i, ErrBadDimension)
		}
		factors[i] = SimpleFactor{Ring: r, Dim: d}
	}

	return &VectorSpace{Factors: factors}, nil
}

// FromFactors builds a VectorSpace directly from an explicit factor list.
func FromFactors(factors []SimpleFactor) (*VectorSpace, error) {
	if len(factors) == 0 {
		return nil, ErrEmptySpace
	}

	out := make([]SimpleFactor, len(factors))
	for i, f := range factors {
		if f.Dim == 0 {
			return nil, fmt.Errorf("factor %d: %w", i, ErrBadDimension)
		}
		out[i] = f
	}

	return &VectorSpace{Factors: out}, nil
}

// Concat builds a VectorSpace by concatenating the factor lists of several
// spaces, in order. Used by tensor products (Multiply) and by the residual
// factors left over after Contract/JoinIndices.
func Concat(spaces ...*VectorSpace) (*VectorSpace, error) {
	var factors []SimpleFactor
	for _, s := range spaces {
		factors = append(factors, s.Factors...)
	}

	return FromFactors(factors)
}

// Power builds the VectorSpace formed by replicating space's factors nTimes
// (tensor power); nTimes == 0 is invalid (space would be empty).
func Power(space *VectorSpace, nTimes int) (*VectorSpace, error) {
	if nTimes <= 0 {
		return nil, ErrEmptySpace
	}

	factors := make([]SimpleFactor, 0, len(space.Factors)*nTimes)
	for i := 0; i < nTimes; i++ {
		factors = append(factors, space.Factors...)
	}

	return FromFactors(factors)
}

// Rank returns the number of factors.
func (v *VectorSpace) Rank() int {
	return len(v.Factors)
}

// TotalDim returns the product of every factor's dimension.
func (v *VectorSpace) TotalDim() uint32 {
	total := uint32(1)
	for _, f := range v.Factors {
		total *= f.Dim
	}

	return total
}

// Ring returns the superior ring over every factor.
func (v *VectorSpace) Ring() ring.Type {
	r := ring.None
	for _, f := range v.Factors {
		r = ring.Superior(r, f.Ring)
	}

	return r
}

// Dims returns the per-factor dimensions, in order.
func (v *VectorSpace) Dims() []uint32 {
	dims := make([]uint32, len(v.Factors))
	for i, f := range v.Factors {
		dims[i] = f.Dim
	}

	return dims
}

// Strides returns the row-major strides of the space: Strides()[i] is the
// number of scalar elements to skip to advance factor i by one, with the
// innermost (last) factor having stride 1.
func (v *VectorSpace) Strides() []uint32 {
	strides := make([]uint32, len(v.Factors))
	stride := uint32(1)
	for i := len(v.Factors) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= v.Factors[i].Dim
	}

	return strides
}

// Equal reports whether two spaces have elementwise-equal factor sequences.
func Equal(a, b *VectorSpace) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Factors) != len(b.Factors) {
		return false
	}
	for i := range a.Factors {
		if a.Factors[i] != b.Factors[i] {
			return false
		}
	}

	return true
}

// WithoutFactors returns a copy of v's factors with the positions in drop
// removed, preserving relative order. drop need not be sorted.
func (v *VectorSpace) WithoutFactors(drop []uint32) []SimpleFactor {
	skip := make(map[uint32]bool, len(drop))
	for _, d := range drop {
		skip[d] = true
	}

	out := make([]SimpleFactor, 0, len(v.Factors)-len(drop))
	for i, f := range v.Factors {
		if !skip[uint32(i)] {
			out = append(out, f)
		}
	}

	return out
}
