// SPDX-License-Identifier: MIT

// Package kernel holds the dense, flat-buffer numeric routines the emitted
// program's node functions call into. Every routine here is pure index
// arithmetic over row-major slices; none of it knows about dagraph.Graph or
// vspace.VectorSpace — the emitter (package codegen) is what threads a
// node's shape metadata into a concrete kernel call.
package kernel

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when a buffer's length does not match the
// dimensions passed alongside it.
var ErrLengthMismatch = errors.New("kernel: buffer length does not match dims")

// Numeric is the ring element type every kernel routine is generic over.
type Numeric interface {
	~int32 | ~float32
}

// ElementCount returns the product of dims (1 for an empty dims slice).
func ElementCount(dims []uint32) int {
	n := 1
	for _, d := range dims {
		n *= int(d)
	}

	return n
}

// Strides returns the row-major strides of dims (innermost dim has stride
// 1), matching vspace.VectorSpace.Strides.
func Strides(dims []uint32) []uint32 {
	strides := make([]uint32, len(dims))
	stride := uint32(1)
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= dims[i]
	}

	return strides
}

func checkLen(dims []uint32, n int, who string) error {
	if ElementCount(dims) != n {
		return fmt.Errorf("kernel.%s: %w", who, ErrLengthMismatch)
	}

	return nil
}

// forEachIndex calls visit once per multi-index over dims, in row-major
// (odometer) order, reusing one backing slice across calls — visit must not
// retain idx past the call.
func forEachIndex(dims []uint32, visit func(idx []uint32)) {
	if len(dims) == 0 {
		visit(nil)
		return
	}

	idx := make([]uint32, len(dims))
	for {
		visit(idx)

		pos := len(dims) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < dims[pos] {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return
		}
	}
}

func flatOffset(idx []uint32, strides []uint32) int {
	off := 0
	for i, v := range idx {
		off += int(v) * int(strides[i])
	}

	return off
}

// Add computes out[i] = a[i] + b[i] elementwise. len(a) == len(b) == len(out).
func Add[T Numeric](out, a, b []T) error {
	if len(a) != len(b) || len(a) != len(out) {
		return fmt.Errorf("kernel.Add: %w", ErrLengthMismatch)
	}
	for i := range a {
		out[i] = a[i] + b[i]
	}

	return nil
}

// Scale computes out[i] = a[i] * scalar for every element (VECTOR_SCALAR_PRODUCT
// backing kernel).
func Scale[T Numeric](out, a []T, scalar T) error {
	if len(a) != len(out) {
		return fmt.Errorf("kernel.Scale: %w", ErrLengthMismatch)
	}
	for i := range a {
		out[i] = a[i] * scalar
	}

	return nil
}

// OuterProduct computes the tensor (VECTOR_VECTOR_PRODUCT) product of the
// flat buffers a and b into out, sized len(a)*len(b) in row-major
// order with a's axes outermost.
func OuterProduct[T Numeric](out, a, b []T) error {
	if len(out) != len(a)*len(b) {
		return fmt.Errorf("kernel.OuterProduct: %w", ErrLengthMismatch)
	}
	for i, av := range a {
		base := i * len(b)
		for j, bv := range b {
			out[base+j] = av * bv
		}
	}

	return nil
}

// PowerScalar raises every element of a to the (scalar, ring-typed)
// exponent.
func PowerScalar(out, a []float32, exponent float32) error {
	if len(a) != len(out) {
		return fmt.Errorf("kernel.PowerScalar: %w", ErrLengthMismatch)
	}
	for i, v := range a {
		out[i] = float32(math.Pow(float64(v), float64(exponent)))
	}

	return nil
}

// IsSmaller reports (as an int32 0/1) whether the sum of squares of a is
// strictly less than that of b (VECTOR_COMPARISON_IS_SMALLER, spec.md
// §4.3).
func IsSmaller[T Numeric](a, b []T) int32 {
	var sa, sb float64
	for _, v := range a {
		sa += float64(v) * float64(v)
	}
	for _, v := range b {
		sb += float64(v) * float64(v)
	}
	if sa < sb {
		return 1
	}

	return 0
}

// Permute reorders in (shaped inDims) so that out's axis j holds in's axis
// indices[j] (VECTOR_PERMUTATION).
func Permute[T Numeric](out, in []T, inDims []uint32, indices []uint32) error {
	if err := checkLen(inDims, len(in), "Permute"); err != nil {
		return err
	}

	outDims := make([]uint32, len(indices))
	for j, idx := range indices {
		outDims[j] = inDims[idx]
	}
	if err := checkLen(outDims, len(out), "Permute"); err != nil {
		return err
	}

	inStrides := Strides(inDims)
	outStrides := Strides(outDims)

	forEachIndex(outDims, func(outIdx []uint32) {
		inIdx := make([]uint32, len(inDims))
		for j, idx := range indices {
			inIdx[idx] = outIdx[j]
		}
		out[flatOffset(outIdx, outStrides)] = in[flatOffset(inIdx, inStrides)]
	})

	return nil
}

// Range is a half-open [Lo, Hi) window into one axis.
type Range struct {
	Lo, Hi uint32
}

// Project copies the sub-block of in (shaped inDims) selected by ranges
// (one per axis) into out (VECTOR_PROJECTION).
func Project[T Numeric](out, in []T, inDims []uint32, ranges []Range) error {
	if err := checkLen(inDims, len(in), "Project"); err != nil {
		return err
	}

	outDims := make([]uint32, len(ranges))
	for i, r := range ranges {
		outDims[i] = r.Hi - r.Lo
	}
	if err := checkLen(outDims, len(out), "Project"); err != nil {
		return err
	}

	inStrides := Strides(inDims)
	outStrides := Strides(outDims)

	forEachIndex(outDims, func(outIdx []uint32) {
		inIdx := make([]uint32, len(inDims))
		for i, r := range ranges {
			inIdx[i] = r.Lo + outIdx[i]
		}
		out[flatOffset(outIdx, outStrides)] = in[flatOffset(inIdx, inStrides)]
	})

	return nil
}

// JoinIndices folds the axes named in each group of groups (all sharing a
// common dimension) onto the output axis at the group's lowest member
// position, copying in (shaped inDims) into out (shaped outDims) by
// requiring every axis within a group to carry the same coordinate value
// (VECTOR_JOIN_INDICES).
func JoinIndices[T Numeric](out, in []T, inDims []uint32, groups [][]uint32, outDims []uint32) error {
	if err := checkLen(inDims, len(in), "JoinIndices"); err != nil {
		return err
	}
	if err := checkLen(outDims, len(out), "JoinIndices"); err != nil {
		return err
	}

	outAxisOf := make(map[uint32]int, len(inDims))
	outPos := 0
	grouped := make(map[uint32]bool)
	isMin := make(map[uint32]bool)
	for _, g := range groups {
		min := g[0]
		for _, idx := range g {
			if idx < min {
				min = idx
			}
		}
		isMin[min] = true
		for _, idx := range g {
			grouped[idx] = true
		}
	}
	for i := uint32(0); i < uint32(len(inDims)); i++ {
		if grouped[i] && !isMin[i] {
			continue
		}
		outAxisOf[i] = outPos
		outPos++
	}
	groupOutAxis := make(map[uint32]int, len(groups))
	for _, g := range groups {
		min := g[0]
		for _, idx := range g {
			if idx < min {
				min = idx
			}
		}
		groupOutAxis[min] = outAxisOf[min]
		for _, idx := range g {
			outAxisOf[idx] = groupOutAxis[min]
		}
	}

	inStrides := Strides(inDims)
	outStrides := Strides(outDims)

	forEachIndex(inDims, func(inIdx []uint32) {
		// only entries whose grouped axes agree survive the join: the rest
		// would land on an out cell owned by a different diagonal entry.
		for _, g := range groups {
			first := inIdx[g[0]]
			for _, idx := range g[1:] {
				if inIdx[idx] != first {
					return
				}
			}
		}

		outIdx := make([]uint32, len(outDims))
		for axis, v := range inIdx {
			outIdx[outAxisOf[uint32(axis)]] = v
		}
		out[flatOffset(outIdx, outStrides)] = in[flatOffset(inIdx, inStrides)]
	})

	return nil
}

// IndexSplitSum rewrites one axis of in (shaped inDims) into two adjacent
// output axes (window index, window offset). Because the windows
// are contiguous and equal-width, this is a pure relabeling of a row-major
// buffer: the flat data is unchanged, only copied (VECTOR_INDEX_SPLIT_SUM).
func IndexSplitSum[T Numeric](out, in []T, inDims []uint32) error {
	if err := checkLen(inDims, len(in), "IndexSplitSum"); err != nil {
		return err
	}
	if len(out) != len(in) {
		return fmt.Errorf("kernel.IndexSplitSum: %w", ErrLengthMismatch)
	}

	copy(out, in)

	return nil
}

// MaxPool reduces each non-overlapping poolSize[i]-wide window of axis i to
// its maximum (VECTOR_MAX_POOL).
func MaxPool[T Numeric](out, in []T, inDims []uint32, poolSize []uint32) error {
	if err := checkLen(inDims, len(in), "MaxPool"); err != nil {
		return err
	}

	outDims := make([]uint32, len(inDims))
	for i, p := range poolSize {
		outDims[i] = inDims[i] / p
	}
	if err := checkLen(outDims, len(out), "MaxPool"); err != nil {
		return err
	}

	inStrides := Strides(inDims)
	outStrides := Strides(outDims)

	forEachIndex(outDims, func(outIdx []uint32) {
		windowDims := poolSize
		base := make([]uint32, len(inDims))
		for i, o := range outIdx {
			base[i] = o * poolSize[i]
		}

		var max T
		first := true
		forEachIndex(windowDims, func(w []uint32) {
			inIdx := make([]uint32, len(inDims))
			for i := range inIdx {
				inIdx[i] = base[i] + w[i]
			}
			v := in[flatOffset(inIdx, inStrides)]
			if first || v > max {
				max = v
				first = false
			}
		})

		out[flatOffset(outIdx, outStrides)] = max
	})

	return nil
}

// Contract sums a (shaped aDims) and b (shaped bDims) over the paired axes
// lfactors/rfactors, writing the result — shaped by a's remaining axes
// followed by b's remaining axes, or a single scalar if none remain — into
// out (VECTOR_CONTRACTION).
func Contract[T Numeric](out, a, b []T, aDims, bDims []uint32, lfactors, rfactors []uint32) error {
	if err := checkLen(aDims, len(a), "Contract"); err != nil {
		return err
	}
	if err := checkLen(bDims, len(b), "Contract"); err != nil {
		return err
	}

	dropA := make(map[uint32]bool, len(lfactors))
	for _, l := range lfactors {
		dropA[l] = true
	}
	dropB := make(map[uint32]bool, len(rfactors))
	for _, r := range rfactors {
		dropB[r] = true
	}

	var remA, remB []uint32
	for i := uint32(0); i < uint32(len(aDims)); i++ {
		if !dropA[i] {
			remA = append(remA, i)
		}
	}
	for i := uint32(0); i < uint32(len(bDims)); i++ {
		if !dropB[i] {
			remB = append(remB, i)
		}
	}

	contractDims := make([]uint32, len(lfactors))
	for i, l := range lfactors {
		contractDims[i] = aDims[l]
	}

	outDims := make([]uint32, 0, len(remA)+len(remB))
	for _, i := range remA {
		outDims = append(outDims, aDims[i])
	}
	for _, i := range remB {
		outDims = append(outDims, bDims[i])
	}
	if len(outDims) == 0 {
		outDims = []uint32{1}
	}
	if err := checkLen(outDims, len(out), "Contract"); err != nil {
		return err
	}

	aStrides := Strides(aDims)
	bStrides := Strides(bDims)

	forEachIndex(outDims, func(outIdx []uint32) {
		aIdx := make([]uint32, len(aDims))
		bIdx := make([]uint32, len(bDims))
		for j, axis := range remA {
			aIdx[axis] = outIdx[j]
		}
		for j, axis := range remB {
			bIdx[axis] = outIdx[len(remA)+j]
		}

		var sum T
		forEachIndex(contractDims, func(c []uint32) {
			for k, l := range lfactors {
				aIdx[l] = c[k]
			}
			for k, r := range rfactors {
				bIdx[r] = c[k]
			}
			sum += a[flatOffset(aIdx, aStrides)] * b[flatOffset(bIdx, bStrides)]
		})

		outStrides := Strides(outDims)
		out[flatOffset(outIdx, outStrides)] = sum
	})

	return nil
}

// ContractKronecker contracts the dense operand a against a symbolic
// Kronecker-delta operand: the delta's entries are evaluated on the fly via
// KroneckerAt, so no delta buffer ever exists (spec.md §4.6). kronLeft
// reports whether the delta is the LEFT operand of the contraction — the
// output's axis order is always "left residual axes, then right residual
// axes", and lfactors/rfactors index the left/right operand's axes exactly
// as in Contract.
func ContractKronecker[T Numeric](out, a []T, aDims, kronDims []uint32, deltaPairs []uint32, scaling float32, lfactors, rfactors []uint32, kronLeft bool) error {
	if err := checkLen(aDims, len(a), "ContractKronecker"); err != nil {
		return err
	}

	denseFactors, kronFactors := rfactors, lfactors
	if !kronLeft {
		denseFactors, kronFactors = lfactors, rfactors
	}

	dropDense := make(map[uint32]bool, len(denseFactors))
	for _, i := range denseFactors {
		dropDense[i] = true
	}
	dropKron := make(map[uint32]bool, len(kronFactors))
	for _, i := range kronFactors {
		dropKron[i] = true
	}

	var remDense, remKron []uint32
	for i := uint32(0); i < uint32(len(aDims)); i++ {
		if !dropDense[i] {
			remDense = append(remDense, i)
		}
	}
	for i := uint32(0); i < uint32(len(kronDims)); i++ {
		if !dropKron[i] {
			remKron = append(remKron, i)
		}
	}

	contractDims := make([]uint32, len(denseFactors))
	for k, i := range denseFactors {
		contractDims[k] = aDims[i]
	}

	var outDims []uint32
	if kronLeft {
		for _, i := range remKron {
			outDims = append(outDims, kronDims[i])
		}
		for _, i := range remDense {
			outDims = append(outDims, aDims[i])
		}
	} else {
		for _, i := range remDense {
			outDims = append(outDims, aDims[i])
		}
		for _, i := range remKron {
			outDims = append(outDims, kronDims[i])
		}
	}
	if len(outDims) == 0 {
		outDims = []uint32{1}
	}
	if err := checkLen(outDims, len(out), "ContractKronecker"); err != nil {
		return err
	}

	aStrides := Strides(aDims)
	outStrides := Strides(outDims)

	forEachIndex(outDims, func(outIdx []uint32) {
		aIdx := make([]uint32, len(aDims))
		kIdx := make([]uint32, len(kronDims))

		outPos := 0
		fill := func(axes []uint32, idx []uint32) {
			for _, axis := range axes {
				idx[axis] = outIdx[outPos]
				outPos++
			}
		}
		if kronLeft {
			fill(remKron, kIdx)
			fill(remDense, aIdx)
		} else {
			fill(remDense, aIdx)
			fill(remKron, kIdx)
		}

		var sum T
		forEachIndex(contractDims, func(c []uint32) {
			for k, axis := range denseFactors {
				aIdx[axis] = c[k]
			}
			for k, axis := range kronFactors {
				kIdx[axis] = c[k]
			}
			sum += a[flatOffset(aIdx, aStrides)] * T(KroneckerAt(kIdx, deltaPairs, scaling))
		})

		out[flatOffset(outIdx, outStrides)] = sum
	})

	return nil
}

// ErrBadExponent is returned when a repeated-contraction power's exponent is
// below 1.
var ErrBadExponent = errors.New("kernel: contraction exponent must be >= 1")

// PowerContract applies a VECTOR_POWER node whose exponent counts repeated
// self-contractions: out = a ∘ a ∘ ... (n times total), where ∘ pairs
// lfactors of the accumulated result with rfactors of a. rank(aDims) ==
// 2*len(lfactors), so each step preserves a's shape (spec.md §4.3 POWER,
// contraction-exponent case).
func PowerContract[T Numeric](out, a []T, aDims []uint32, lfactors, rfactors []uint32, n int32) error {
	if err := checkLen(aDims, len(a), "PowerContract"); err != nil {
		return err
	}
	if len(out) != len(a) {
		return fmt.Errorf("kernel.PowerContract: %w", ErrLengthMismatch)
	}
	if n < 1 {
		return fmt.Errorf("kernel.PowerContract: exponent %d: %w", n, ErrBadExponent)
	}

	copy(out, a)
	if n == 1 {
		return nil
	}

	tmp := make([]T, len(a))
	for step := int32(1); step < n; step++ {
		if err := Contract(tmp, out, a, aDims, aDims, lfactors, rfactors); err != nil {
			return err
		}
		copy(out, tmp)
	}

	return nil
}

// KroneckerAt evaluates a Kronecker-delta tensor's entry at a full
// coordinate without ever materializing the dense buffer: deltaPairs is the
// involution (deltaPairs[deltaPairs[i]] == i) and scaling the scalar
// multiplier; the entry is scaling if every paired coordinate matches, 0
// otherwise (spec.md §4.6).
func KroneckerAt(idx []uint32, deltaPairs []uint32, scaling float32) float32 {
	for i, j := range deltaPairs {
		if int(j) <= i {
			continue
		}
		if idx[i] != idx[j] {
			return 0
		}
	}

	return scaling
}

// CrossCorrelate computes a valid (no padding, stride 1) cross-correlation
// of in (shaped [spatial..., Cin]) with kernelBuf (shaped [spatialK...,
// Cin, Cout]) into out (shaped [spatial-spatialK+1..., Cout])
// (VECTOR_CROSS_CORRELATION).
func CrossCorrelate[T Numeric](out, in, kernelBuf []T, inDims, kernelDims []uint32) error {
	if err := checkLen(inDims, len(in), "CrossCorrelate"); err != nil {
		return err
	}
	if err := checkLen(kernelDims, len(kernelBuf), "CrossCorrelate"); err != nil {
		return err
	}

	nSpatial := len(inDims) - 1
	cin := inDims[nSpatial]
	cout := kernelDims[len(kernelDims)-1]

	outDims := make([]uint32, nSpatial+1)
	for i := 0; i < nSpatial; i++ {
		outDims[i] = inDims[i] - kernelDims[i] + 1
	}
	outDims[nSpatial] = cout
	if err := checkLen(outDims, len(out), "CrossCorrelate"); err != nil {
		return err
	}

	inStrides := Strides(inDims)
	kStrides := Strides(kernelDims)
	outStrides := Strides(outDims)

	spatialK := kernelDims[:nSpatial]

	forEachIndex(outDims, func(outIdx []uint32) {
		oc := outIdx[nSpatial]

		var sum T
		forEachIndex(spatialK, func(kIdx []uint32) {
			for ic := uint32(0); ic < cin; ic++ {
				inIdx := make([]uint32, len(inDims))
				for i := 0; i < nSpatial; i++ {
					inIdx[i] = outIdx[i] + kIdx[i]
				}
				inIdx[nSpatial] = ic

				kFull := make([]uint32, len(kernelDims))
				copy(kFull, kIdx)
				kFull[nSpatial] = ic
				kFull[nSpatial+1] = oc

				sum += in[flatOffset(inIdx, inStrides)] * kernelBuf[flatOffset(kFull, kStrides)]
			}
		})

		out[flatOffset(outIdx, outStrides)] = sum
	})

	return nil
}
