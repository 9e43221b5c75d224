// SPDX-License-Identifier: MIT
package tensor

import (
	"reflect"

	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/vspace"
)

// Value is the dagraph.Object attached to a VECTOR node: a dense initializer
// buffer (in the space's ring type) plus the space it was declared over.
// Only one of Int32Data/Float32Data is populated, matching Space.Ring().
// Value may also carry no buffer at all (Int32Data and Float32Data both
// nil) — this models a leaf INPUT vector whose content is supplied at run
// time rather than baked into the generated constant.
type Value struct {
	Space       *vspace.VectorSpace
	Int32Data   []int32
	Float32Data []float32

	// Diagonal records that this homomorphism's off-diagonal entries are
	// always zero (see HomomorphismFloat32). The code emitter does not read
	// it: the full buffer is still allocated and written.
	Diagonal bool
}

// ObjectKind implements dagraph.Object.
func (Value) ObjectKind() string { return "tensor.Value" }

// Equal implements dagraph.Object: two Values are equal iff they share the
// same space and identical buffer bytes (or both have no buffer).
func (v Value) Equal(other dagraph.Object) bool {
	o, ok := other.(Value)
	if !ok {
		return false
	}

	if !vspace.Equal(v.Space, o.Space) {
		return false
	}

	return reflect.DeepEqual(v.Int32Data, o.Int32Data) &&
		reflect.DeepEqual(v.Float32Data, o.Float32Data)
}

func valueElementCount(v Value) int {
	if v.Int32Data != nil {
		return len(v.Int32Data)
	}

	return len(v.Float32Data)
}

func checkInitializerLen(space *vspace.VectorSpace, n int) error {
	if uint32(n) != space.TotalDim() {
		return ErrShapeMismatch
	}

	return nil
}

func checkRing[T int32 | float32](space *vspace.VectorSpace) error {
	if !ring.IsCompatible[T](space.Ring()) {
		return ErrRingMismatch
	}

	return nil
}
