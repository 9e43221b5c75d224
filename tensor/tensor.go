// SPDX-License-Identifier: MIT

// Package tensor is the algebraic front end: it exposes VectorSpace-typed
// handles over a dagraph.Graph and every operation that combines them (Add,
// Contract, Permute, Project, JoinIndices, IndexSplitSum, CrossCorrelate,
// MaxPool, Multiply/Power/Divide, IsSmaller, the Kronecker-delta tensor,
// and symbolic Derivative). Each primitive operation allocates one new graph
// node; the composite ones (Subtract, Divide, Derivative) allocate several.
// Every operation returns a new Tensor handle; none mutate an existing
// node's value.
package tensor

import (
	"fmt"

	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/vspace"
)

// Tensor is a handle onto one node of a graph: the node's id plus the space
// its result lives in. Tensor values are immutable from the caller's point
// of view — every operation below returns a fresh Tensor.
type Tensor struct {
	Graph *dagraph.Graph
	Node  dagraph.ID
	Space *vspace.VectorSpace
}

func newTensor(g *dagraph.Graph, id dagraph.ID, space *vspace.VectorSpace) *Tensor {
	return &Tensor{Graph: g, Node: id, Space: space}
}

func sameGraph(ts ...*Tensor) error {
	if len(ts) == 0 {
		return nil
	}
	g := ts[0].Graph
	for _, t := range ts[1:] {
		if t.Graph != g {
			return ErrCrossGraph
		}
	}

	return nil
}

// IsScalar reports whether t's space has total dimension 1.
func (t *Tensor) IsScalar() bool {
	return t.Space.TotalDim() == 1
}

// ElementInt32 creates a VECTOR node holding a dense int32 initializer over
// space. len(values) must equal space.TotalDim(), and space's ring must be
// ring.Int32.
func ElementInt32(g *dagraph.Graph, space *vspace.VectorSpace, values []int32) (*Tensor, error) {
	if err := checkRing[int32](space); err != nil {
		return nil, err
	}
	if err := checkInitializerLen(space, len(values)); err != nil {
		return nil, err
	}

	data := make([]int32, len(values))
	copy(data, values)

	id, err := g.AddNode(dagraph.KindVector, nil, Value{Space: space, Int32Data: data}, nil)
	if err != nil {
		return nil, err
	}

	return newTensor(g, id, space), nil
}

// ElementFloat32 creates a VECTOR node holding a dense float32 initializer.
func ElementFloat32(g *dagraph.Graph, space *vspace.VectorSpace, values []float32) (*Tensor, error) {
	if err := checkRing[float32](space); err != nil {
		return nil, err
	}
	if err := checkInitializerLen(space, len(values)); err != nil {
		return nil, err
	}

	data := make([]float32, len(values))
	copy(data, values)

	id, err := g.AddNode(dagraph.KindVector, nil, Value{Space: space, Float32Data: data}, nil)
	if err != nil {
		return nil, err
	}

	return newTensor(g, id, space), nil
}

// ScalarFloat32 is a 1-dim convenience wrapper around ElementFloat32.
func ScalarFloat32(g *dagraph.Graph, value float32) (*Tensor, error) {
	space, err := vspace.New(ring.Float32, 1)
	if err != nil {
		return nil, err
	}

	return ElementFloat32(g, space, []float32{value})
}

// ScalarInt32 is a 1-dim convenience wrapper around ElementInt32.
func ScalarInt32(g *dagraph.Graph, value int32) (*Tensor, error) {
	space, err := vspace.New(ring.Int32, 1)
	if err != nil {
		return nil, err
	}

	return ElementInt32(g, space, []int32{value})
}

// Input creates an INPUT leaf node over space: a VECTOR-kind node with no
// initializer, whose buffer is filled by the host program at run time via
// the callback registered through the generated <Name>Register function.
func Input(g *dagraph.Graph, space *vspace.VectorSpace) (*Tensor, error) {
	id, err := g.AddNode(dagraph.KindVector, nil, Value{Space: space}, nil)
	if err != nil {
		return nil, err
	}

	return newTensor(g, id, space), nil
}

// HomomorphismFloat32 creates a rank-2 tensor over subSpace
// (subSpace⊗subSpace), i.e. a linear map subSpace -> subSpace, with a dense
// float32 initializer. If diagonal is true, the node's Value is marked
// Diagonal; codegen does not read that flag and still emits the full dense
// buffer.
func HomomorphismFloat32(g *dagraph.Graph, subSpace *vspace.VectorSpace, values []float32, diagonal bool) (*Tensor, error) {
	full, err := vspace.Concat(subSpace, subSpace)
	if err != nil {
		return nil, err
	}

	t, err := ElementFloat32(g, full, values)
	if err != nil {
		return nil, err
	}

	if diagonal {
		err := g.MutateObject(t.Node, func(obj dagraph.Object) dagraph.Object {
			if v, ok := obj.(Value); ok {
				v.Diagonal = true
				return v
			}

			return obj
		})
		if err != nil {
			return nil, err
		}
	}

	return t, nil
}

// KroneckerDelta creates a VECTOR_KRONECKER_DELTA_PRODUCT node: a symbolic
// identity-like tensor encoded as an involution over rank indices
// (deltaPairs[deltaPairs[i]] == i for every i) plus a scalar multiplier. It
// is never materialized as a dense buffer; contraction kernels translate
// the involution into index-equality tests directly (spec.md §4.6).
func KroneckerDelta(g *dagraph.Graph, space *vspace.VectorSpace, deltaPairs []uint32, scaling float32) (*Tensor, error) {
	if len(deltaPairs) != space.Rank() {
		return nil, ErrRankMismatch
	}
	for i, j := range deltaPairs {
		if int(j) >= len(deltaPairs) {
			return nil, fmt.Errorf("delta pair %d -> %d: %w", i, j, ErrIndexOutOfRange)
		}
		if deltaPairs[j] != uint32(i) {
			return nil, fmt.Errorf("delta pairing %d<->%d is not an involution: %w", i, j, ErrInvalidPermutation)
		}
	}

	pairs := make([]uint32, len(deltaPairs))
	copy(pairs, deltaPairs)

	params := dagraph.KroneckerParams{DeltaPairs: pairs, Scaling: scaling}
	id, err := g.AddNode(dagraph.KindKroneckerDeltaProduct, params, nil, nil)
	if err != nil {
		return nil, err
	}

	return newTensor(g, id, space), nil
}

// IsKronecker reports whether t's node is a Kronecker-delta product, used
// by Contract's special-case merge rule and by the derivative engine.
func (t *Tensor) IsKronecker() bool {
	n, ok := t.Graph.GetNode(t.Node)
	if !ok {
		return false
	}

	return n.Kind == dagraph.KindKroneckerDeltaProduct
}

func (t *Tensor) kroneckerParams() (dagraph.KroneckerParams, bool) {
	n, ok := t.Graph.GetNode(t.Node)
	if !ok || n.Kind != dagraph.KindKroneckerDeltaProduct {
		return dagraph.KroneckerParams{}, false
	}

	return n.Params.(dagraph.KroneckerParams), true
}
