// SPDX-License-Identifier: MIT
package tensor

import (
	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/vspace"
)

func sameRank(a, b *vspace.VectorSpace) bool {
	if a.Rank() != b.Rank() {
		return false
	}
	ad, bd := a.Dims(), b.Dims()
	for i := range ad {
		if ad[i] != bd[i] {
			return false
		}
	}

	return true
}

func supRing(a, b ring.Type) ring.Type {
	return ring.Superior(a, b)
}

// Add builds a VECTOR_ADDITION node. a and b must be shape-compatible
// factor-by-factor; the result space is a's shape with the superior ring of
// the two operands (spec.md §4.3 ADDITION).
func Add(a, b *Tensor) (*Tensor, error) {
	return addLike(dagraph.KindAddition, a, b)
}

// Subtract is Add(a, Multiply(-1, b)): the front end has no dedicated
// SUBTRACTION kind, so this allocates three nodes (the -1 scalar, the
// product and the sum).
func Subtract(a, b *Tensor) (*Tensor, error) {
	var negOne *Tensor
	var err error
	if b.Space.Ring() == ring.Int32 {
		negOne, err = ScalarInt32(a.Graph, -1)
	} else {
		negOne, err = ScalarFloat32(a.Graph, -1)
	}
	if err != nil {
		return nil, err
	}

	negB, err := Multiply(negOne, b)
	if err != nil {
		return nil, err
	}

	return Add(a, negB)
}

func addLike(kind dagraph.Kind, a, b *Tensor) (*Tensor, error) {
	if err := sameGraph(a, b); err != nil {
		return nil, err
	}
	if !sameRank(a.Space, b.Space) {
		return nil, ErrShapeMismatch
	}

	space, err := resultSpaceWithSuperiorRing(a.Space, b.Space)
	if err != nil {
		return nil, err
	}

	id, err := a.Graph.AddNode(kind, nil, nil, []dagraph.ID{a.Node, b.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}

// resultSpaceWithSuperiorRing builds a's shape with every factor's ring
// raised to superior(a.Ring(), b.Ring()).
func resultSpaceWithSuperiorRing(a, b *vspace.VectorSpace) (*vspace.VectorSpace, error) {
	sup := supRing(a.Ring(), b.Ring())
	factors := make([]vspace.SimpleFactor, a.Rank())
	for i, f := range a.Factors {
		factors[i] = vspace.SimpleFactor{Ring: sup, Dim: f.Dim}
	}

	return vspace.FromFactors(factors)
}

// Multiply builds a VECTOR_SCALAR_PRODUCT (if either operand is a scalar) or
// a VECTOR_VECTOR_PRODUCT (tensor product) node, per spec.md §4.3
// MULTIPLICATION.
func Multiply(a, b *Tensor) (*Tensor, error) {
	if err := sameGraph(a, b); err != nil {
		return nil, err
	}

	aScalar, bScalar := a.IsScalar(), b.IsScalar()

	switch {
	case aScalar && bScalar:
		space, err := vspace.New(supRing(a.Space.Ring(), b.Space.Ring()), 1)
		if err != nil {
			return nil, err
		}

		id, err := a.Graph.AddNode(dagraph.KindScalarProduct, nil, nil, []dagraph.ID{a.Node, b.Node})
		if err != nil {
			return nil, err
		}

		return newTensor(a.Graph, id, space), nil

	case aScalar && !bScalar:
		space, err := resultSpaceWithSuperiorRing(b.Space, a.Space)
		if err != nil {
			return nil, err
		}

		id, err := a.Graph.AddNode(dagraph.KindScalarProduct, nil, nil, []dagraph.ID{a.Node, b.Node})
		if err != nil {
			return nil, err
		}

		return newTensor(a.Graph, id, space), nil

	case !aScalar && bScalar:
		space, err := resultSpaceWithSuperiorRing(a.Space, b.Space)
		if err != nil {
			return nil, err
		}

		// Parents are ordered [scalar, vector] regardless of the caller's
		// argument order: the code emitter's VECTOR_SCALAR_PRODUCT kernel
		// call always reads the scalar multiplier from Parents[0] (see
		// codegen.renderKernelCall), so this is the one case where a and b
		// must be swapped to match that fixed layout.
		id, err := a.Graph.AddNode(dagraph.KindScalarProduct, nil, nil, []dagraph.ID{b.Node, a.Node})
		if err != nil {
			return nil, err
		}

		return newTensor(a.Graph, id, space), nil

	default:
		space, err := vspace.Concat(a.Space, b.Space)
		if err != nil {
			return nil, err
		}

		id, err := a.Graph.AddNode(dagraph.KindVectorProduct, nil, nil, []dagraph.ID{a.Node, b.Node})
		if err != nil {
			return nil, err
		}

		return newTensor(a.Graph, id, space), nil
	}
}

// Power builds a VECTOR_POWER node with a scalar exponent: every element of
// a is raised to exponent (which must itself be a scalar tensor), and the
// result space equals a.Space (spec.md §4.3 POWER, scalar-exponent case).
func Power(a, exponent *Tensor) (*Tensor, error) {
	if err := sameGraph(a, exponent); err != nil {
		return nil, err
	}
	if !exponent.IsScalar() {
		return nil, ErrShapeMismatch
	}

	id, err := a.Graph.AddNode(dagraph.KindPower, nil, nil, []dagraph.ID{a.Node, exponent.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, a.Space), nil
}

// PowerContract builds a VECTOR_POWER node whose exponent is interpreted as
// a count of repeated self-contractions along lfactors/rfactors (e.g. matrix
// power): rank(a) must equal 2*len(lfactors), lfactors and rfactors must be
// disjoint index sets of equal dimension, and the result space equals
// a.Space (spec.md §4.3 POWER, contraction-exponent case).
func PowerContract(a *Tensor, n *Tensor, lfactors, rfactors []uint32) (*Tensor, error) {
	if err := sameGraph(a, n); err != nil {
		return nil, err
	}
	if !n.IsScalar() {
		return nil, ErrShapeMismatch
	}
	if len(lfactors) != len(rfactors) {
		return nil, ErrRankMismatch
	}
	if a.Space.Rank() != 2*len(lfactors) {
		return nil, ErrRankMismatch
	}
	if err := checkContractIndices(a.Space, a.Space, lfactors, rfactors); err != nil {
		return nil, err
	}

	params := dagraph.ContractParams{LFactors: append([]uint32{}, lfactors...), RFactors: append([]uint32{}, rfactors...)}
	id, err := a.Graph.AddNode(dagraph.KindPower, params, nil, []dagraph.ID{a.Node, n.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, a.Space), nil
}

// Divide builds Multiply(a, Power(b, -1)): the front end has no dedicated
// division kind.
func Divide(a, b *Tensor) (*Tensor, error) {
	negOne, err := ScalarFloat32(a.Graph, -1)
	if err != nil {
		return nil, err
	}

	inv, err := Power(b, negOne)
	if err != nil {
		return nil, err
	}

	return Multiply(a, inv)
}

func checkContractIndices(aSpace, bSpace *vspace.VectorSpace, lfactors, rfactors []uint32) error {
	if len(lfactors) != len(rfactors) {
		return ErrRankMismatch
	}

	seenL := make(map[uint32]bool, len(lfactors))
	seenR := make(map[uint32]bool, len(rfactors))
	aDims, bDims := aSpace.Dims(), bSpace.Dims()

	for i := range lfactors {
		l, r := lfactors[i], rfactors[i]
		if int(l) >= len(aDims) || int(r) >= len(bDims) {
			return ErrIndexOutOfRange
		}
		if seenL[l] {
			return ErrDuplicateIndex
		}
		if seenR[r] {
			return ErrDuplicateIndex
		}
		seenL[l] = true
		seenR[r] = true

		if aDims[l] != bDims[r] {
			return ErrShapeMismatch
		}
	}

	return nil
}

// Contract builds a VECTOR_CONTRACTION node pairing lfactors of a with
// rfactors of b and summing over each pair. len(lfactors) == 0 degenerates
// to Multiply. If both operands are Kronecker-delta tensors, the result is
// itself a Kronecker-delta tensor whose involution merges the two pairings
// (spec.md §4.3 CONTRACTION, §4.6).
func Contract(a, b *Tensor, lfactors, rfactors []uint32) (*Tensor, error) {
	if err := sameGraph(a, b); err != nil {
		return nil, err
	}
	if len(lfactors) == 0 {
		return Multiply(a, b)
	}
	if err := checkContractIndices(a.Space, b.Space, lfactors, rfactors); err != nil {
		return nil, err
	}

	if aK, ok := a.kroneckerParams(); ok {
		if bK, ok := b.kroneckerParams(); ok {
			return contractKronecker(a, b, aK, bK, lfactors, rfactors)
		}
	}

	remainingA := a.Space.WithoutFactors(lfactors)
	remainingB := b.Space.WithoutFactors(rfactors)

	var space *vspace.VectorSpace
	var err error
	switch {
	case len(remainingA)+len(remainingB) == 0:
		space, err = vspace.New(supRing(a.Space.Ring(), b.Space.Ring()), 1)
	default:
		space, err = vspace.FromFactors(append(append([]vspace.SimpleFactor{}, remainingA...), remainingB...))
	}
	if err != nil {
		return nil, err
	}

	params := dagraph.ContractParams{
		LFactors: append([]uint32{}, lfactors...),
		RFactors: append([]uint32{}, rfactors...),
	}

	id, err := a.Graph.AddNode(dagraph.KindContraction, params, nil, []dagraph.ID{a.Node, b.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}

// contractKronecker implements the CONTRACTION/KRONECKER_DELTA_PRODUCT
// special case: contracting two Kronecker deltas over a matching pair of
// indices simply removes that pair from each involution and multiplies the
// scalings, since delta_ij * delta_jk = delta_ik (spec.md §4.6).
func contractKronecker(a, b *Tensor, aK, bK dagraph.KroneckerParams, lfactors, rfactors []uint32) (*Tensor, error) {
	dropA := make(map[uint32]bool, len(lfactors))
	for _, l := range lfactors {
		dropA[l] = true
	}
	dropB := make(map[uint32]bool, len(rfactors))
	for _, r := range rfactors {
		dropB[r] = true
	}

	var keptA, keptB []uint32
	for i := range aK.DeltaPairs {
		if !dropA[uint32(i)] {
			keptA = append(keptA, uint32(i))
		}
	}
	for i := range bK.DeltaPairs {
		if !dropB[uint32(i)] {
			keptB = append(keptB, uint32(i))
		}
	}

	merged := make([]uint32, 0, len(keptA)+len(keptB))
	index := make(map[uint32]int, len(keptA)+len(keptB))
	for _, i := range keptA {
		index[i] = len(merged)
		merged = append(merged, 0)
	}
	for _, i := range keptB {
		index[1<<31|i] = len(merged)
		merged = append(merged, 0)
	}
	for _, i := range keptA {
		merged[index[i]] = uint32(index[aK.DeltaPairs[i]])
	}
	for _, i := range keptB {
		merged[index[1<<31|i]] = uint32(index[1<<31|bK.DeltaPairs[i]])
	}

	remainingA := a.Space.WithoutFactors(lfactors)
	remainingB := b.Space.WithoutFactors(rfactors)

	var space *vspace.VectorSpace
	var err error
	if len(remainingA)+len(remainingB) == 0 {
		space, err = vspace.New(supRing(a.Space.Ring(), b.Space.Ring()), 1)
	} else {
		space, err = vspace.FromFactors(append(append([]vspace.SimpleFactor{}, remainingA...), remainingB...))
	}
	if err != nil {
		return nil, err
	}

	scale := aK.Scaling * bK.Scaling
	for _, l := range lfactors {
		scale *= float32(a.Space.Dims()[l])
	}

	params := dagraph.KroneckerParams{DeltaPairs: merged, Scaling: scale}
	id, err := a.Graph.AddNode(dagraph.KindKroneckerDeltaProduct, params, nil, nil)
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}

// Permute builds a VECTOR_PERMUTATION node: the result's factor j is a's
// factor indices[j] (spec.md §4.3 PERMUTATION).
func Permute(a *Tensor, indices []uint32) (*Tensor, error) {
	if len(indices) != a.Space.Rank() {
		return nil, ErrRankMismatch
	}

	seen := make(map[uint32]bool, len(indices))
	factors := make([]vspace.SimpleFactor, len(indices))
	for j, idx := range indices {
		if int(idx) >= a.Space.Rank() {
			return nil, ErrIndexOutOfRange
		}
		if seen[idx] {
			return nil, ErrInvalidPermutation
		}
		seen[idx] = true
		factors[j] = a.Space.Factors[idx]
	}

	space, err := vspace.FromFactors(factors)
	if err != nil {
		return nil, err
	}

	params := dagraph.PermuteParams{Indices: append([]uint32{}, indices...)}
	id, err := a.Graph.AddNode(dagraph.KindPermutation, params, nil, []dagraph.ID{a.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}

// Project builds a VECTOR_PROJECTION node: one [Lo, Hi) window per factor of
// a, narrowing that factor's dimension to Hi-Lo (spec.md §4.3 PROJECTION).
func Project(a *Tensor, ranges []dagraph.Range) (*Tensor, error) {
	if len(ranges) != a.Space.Rank() {
		return nil, ErrRankMismatch
	}

	factors := make([]vspace.SimpleFactor, len(ranges))
	dims := a.Space.Dims()
	for i, r := range ranges {
		if r.Lo >= r.Hi || r.Hi > dims[i] {
			return nil, ErrIndexOutOfRange
		}
		factors[i] = vspace.SimpleFactor{Ring: a.Space.Factors[i].Ring, Dim: r.Hi - r.Lo}
	}

	space, err := vspace.FromFactors(factors)
	if err != nil {
		return nil, err
	}

	params := dagraph.ProjectParams{Ranges: append([]dagraph.Range{}, ranges...)}
	id, err := a.Graph.AddNode(dagraph.KindProjection, params, nil, []dagraph.ID{a.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}

// JoinIndices builds a VECTOR_JOIN_INDICES node: each group of equal-sized
// factors is folded into a single factor placed at the group's lowest
// original position; factors outside every group pass through unchanged
// (spec.md §4.3 JOIN_INDICES).
func JoinIndices(a *Tensor, groups [][]uint32) (*Tensor, error) {
	dims := a.Space.Dims()
	rank := a.Space.Rank()

	memberOf := make(map[uint32]int, rank)
	for gi, group := range groups {
		if len(group) == 0 {
			return nil, ErrRankMismatch
		}
		dim := dims[group[0]]
		for _, idx := range group {
			if int(idx) >= rank {
				return nil, ErrIndexOutOfRange
			}
			if _, dup := memberOf[idx]; dup {
				return nil, ErrDuplicateIndex
			}
			if dims[idx] != dim {
				return nil, ErrShapeMismatch
			}
			memberOf[idx] = gi + 1
		}
	}

	groupMin := make(map[int]uint32, len(groups))
	for gi, group := range groups {
		min := group[0]
		for _, idx := range group {
			if idx < min {
				min = idx
			}
		}
		groupMin[gi+1] = min
	}

	var factors []vspace.SimpleFactor
	for i := uint32(0); i < uint32(rank); i++ {
		gi, inGroup := memberOf[i]
		if !inGroup {
			factors = append(factors, a.Space.Factors[i])
			continue
		}
		if i == groupMin[gi] {
			factors = append(factors, a.Space.Factors[i])
		}
	}

	space, err := vspace.FromFactors(factors)
	if err != nil {
		return nil, err
	}

	normalized := make([][]uint32, len(groups))
	for i, g := range groups {
		normalized[i] = append([]uint32{}, g...)
	}
	params := dagraph.JoinIndicesParams{Groups: normalized}
	id, err := a.Graph.AddNode(dagraph.KindJoinIndices, params, nil, []dagraph.ID{a.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}

// IndexSplitSum builds a VECTOR_INDEX_SPLIT_SUM node: the factor at axis,
// of dimension D, is rewritten into two factors — an outer window index and
// a constant-width inner offset — at the window boundaries in
// splitPositions (ascending, first entry 0, windows of equal width; spec.md
// §4.3 INDEX_SPLIT_SUM).
func IndexSplitSum(a *Tensor, axis uint32, splitPositions []uint32) (*Tensor, error) {
	rank := a.Space.Rank()
	if int(axis) >= rank {
		return nil, ErrIndexOutOfRange
	}
	if len(splitPositions) == 0 || splitPositions[0] != 0 {
		return nil, ErrInvalidPermutation
	}

	dim := a.Space.Dims()[axis]
	boundaries := append(append([]uint32{}, splitPositions...), dim)
	width := boundaries[1] - boundaries[0]
	for i := 1; i < len(boundaries)-1; i++ {
		if boundaries[i] <= boundaries[i-1] {
			return nil, ErrInvalidPermutation
		}
		if boundaries[i+1]-boundaries[i] != width {
			return nil, ErrShapeMismatch
		}
	}
	if width == 0 {
		return nil, ErrShapeMismatch
	}

	nWindows := uint32(len(splitPositions))
	ringAtAxis := a.Space.Factors[axis].Ring

	var factors []vspace.SimpleFactor
	factors = append(factors, a.Space.Factors[:axis]...)
	factors = append(factors,
		vspace.SimpleFactor{Ring: ringAtAxis, Dim: nWindows},
		vspace.SimpleFactor{Ring: ringAtAxis, Dim: width},
	)
	factors = append(factors, a.Space.Factors[axis+1:]...)

	space, err := vspace.FromFactors(factors)
	if err != nil {
		return nil, err
	}

	params := dagraph.SplitSumParams{Axis: axis, SplitPositions: append([]uint32{}, splitPositions...)}
	id, err := a.Graph.AddNode(dagraph.KindIndexSplitSum, params, nil, []dagraph.ID{a.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}

// CrossCorrelate builds a VECTOR_CROSS_CORRELATION node: a has factors
// [spatial..., Cin], kernel has factors [spatialKernel..., Cin, Cout], and
// the result has factors [spatial-spatialKernel+1..., Cout] (valid
// correlation, stride 1, spec.md §4.3 CROSS_CORRELATION).
func CrossCorrelate(a, kernel *Tensor) (*Tensor, error) {
	if err := sameGraph(a, kernel); err != nil {
		return nil, err
	}

	aDims := a.Space.Dims()
	kDims := kernel.Space.Dims()
	if len(kDims) != len(aDims)+1 {
		return nil, ErrRankMismatch
	}

	nSpatial := len(aDims) - 1
	if aDims[nSpatial] != kDims[nSpatial] {
		return nil, ErrShapeMismatch
	}

	factors := make([]vspace.SimpleFactor, 0, nSpatial+1)
	for i := 0; i < nSpatial; i++ {
		if kDims[i] > aDims[i] {
			return nil, ErrShapeMismatch
		}
		factors = append(factors, vspace.SimpleFactor{
			Ring: supRing(a.Space.Factors[i].Ring, kernel.Space.Factors[i].Ring),
			Dim:  aDims[i] - kDims[i] + 1,
		})
	}
	factors = append(factors, vspace.SimpleFactor{
		Ring: kernel.Space.Factors[len(kDims)-1].Ring,
		Dim:  kDims[len(kDims)-1],
	})

	space, err := vspace.FromFactors(factors)
	if err != nil {
		return nil, err
	}

	id, err := a.Graph.AddNode(dagraph.KindCrossCorrelation, nil, nil, []dagraph.ID{a.Node, kernel.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}

// MaxPool builds a VECTOR_MAX_POOL node: poolSize must have one entry per
// factor of a; a factor's dimension must be evenly divisible by its pool
// size (spec.md §4.3 MAX_POOL).
func MaxPool(a *Tensor, poolSize []uint32) (*Tensor, error) {
	dims := a.Space.Dims()
	if len(poolSize) != len(dims) {
		return nil, ErrRankMismatch
	}

	factors := make([]vspace.SimpleFactor, len(dims))
	for i, p := range poolSize {
		if p == 0 {
			return nil, ErrShapeMismatch
		}
		if dims[i]%p != 0 {
			return nil, ErrShapeMismatch
		}
		factors[i] = vspace.SimpleFactor{Ring: a.Space.Factors[i].Ring, Dim: dims[i] / p}
	}

	space, err := vspace.FromFactors(factors)
	if err != nil {
		return nil, err
	}

	params := dagraph.MaxPoolParams{PoolSize: append([]uint32{}, poolSize...)}
	id, err := a.Graph.AddNode(dagraph.KindMaxPool, params, nil, []dagraph.ID{a.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}

// IsSmaller builds a VECTOR_COMPARISON_IS_SMALLER node: a and b must be
// shape-compatible; the result is a 1-dim Int32 space holding a boolean
// comparison of ||a|| and ||b|| computed at run time (spec.md §4.3
// COMPARISON_IS_SMALLER).
func IsSmaller(a, b *Tensor) (*Tensor, error) {
	if err := sameGraph(a, b); err != nil {
		return nil, err
	}
	if !sameRank(a.Space, b.Space) {
		return nil, ErrShapeMismatch
	}

	// The result always lives in Int32 regardless of either operand's ring
	// (spec.md §3, §4.3): it is a boolean comparison outcome, not a value in
	// the operands' own ring.
	space, err := vspace.New(ring.Int32, 1)
	if err != nil {
		return nil, err
	}

	id, err := a.Graph.AddNode(dagraph.KindComparisonIsSmaller, nil, nil, []dagraph.ID{a.Node, b.Node})
	if err != nil {
		return nil, err
	}

	return newTensor(a.Graph, id, space), nil
}
