// SPDX-License-Identifier: MIT
package tensor

import "errors"

// Sentinel errors returned by tensor operations. Every operation validates
// its preconditions before calling dagraph.Graph.AddNode, so a failing
// operation never leaves a partially-constructed node in the graph.
var (
	ErrShapeMismatch         = errors.New("tensor: shape mismatch")
	ErrRingMismatch          = errors.New("tensor: ring mismatch")
	ErrCrossGraph            = errors.New("tensor: operands belong to different graphs")
	ErrIndexOutOfRange       = errors.New("tensor: index out of range")
	ErrDuplicateIndex        = errors.New("tensor: duplicate index")
	ErrRankMismatch          = errors.New("tensor: rank mismatch")
	ErrNotDependent          = errors.New("tensor: argument is not a dependency of the function")
	ErrDerivativeSelf        = errors.New("tensor: derivative with respect to itself")
	ErrDerivativeNonTensor   = errors.New("tensor: derivative argument is not a tensor-valued parent")
	ErrDerivativeUnsupported = errors.New("tensor: node kind has no derivative rule")
	ErrInvalidPermutation    = errors.New("tensor: invalid permutation")
	ErrEmptyProperty         = errors.New("tensor: empty property")
)
