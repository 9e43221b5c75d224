// SPDX-License-Identifier: MIT
package tensor

import (
	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/vspace"
)

// StandardSymplecticForm builds the 2n x 2n block matrix J = [[0, I], [-I,
// 0]] as a rank-2 float32 tensor: J satisfies J * J = -I (with J^T = -J,
// so J * J^T = I), the defining
// property of a symplectic form (spec.md §8 testable property, supplementing
// the distillation — the solar-system example integrates Hamilton's
// equations with this form).
func StandardSymplecticForm(g *dagraph.Graph, n uint32) (*Tensor, error) {
	if n == 0 {
		return nil, ErrRankMismatch
	}

	dim := 2 * n
	space, err := vspace.New(ring.Float32, dim, dim)
	if err != nil {
		return nil, err
	}

	data := make([]float32, dim*dim)
	for i := uint32(0); i < n; i++ {
		data[i*dim+(n+i)] = 1
		data[(n+i)*dim+i] = -1
	}

	return ElementFloat32(g, space, data)
}
