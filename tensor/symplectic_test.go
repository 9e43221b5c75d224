package tensor_test

import (
	"testing"

	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/tensor"
	"github.com/stretchr/testify/require"
)

func TestStandardSymplecticFormShape(t *testing.T) {
	g := dagraph.New()
	j, err := tensor.StandardSymplecticForm(g, 3)
	require.NoError(t, err)
	require.Equal(t, []uint32{6, 6}, j.Space.Dims())
}

// TestStandardSymplecticFormNegatesIdentity checks J * J = -I (J^T = -J, so
// this is J * J^T = I) by reading the dense buffer back off the graph node
// directly and multiplying it out in the test, without executing a
// contraction.
func TestStandardSymplecticFormNegatesIdentity(t *testing.T) {
	g := dagraph.New()
	n := uint32(2)
	j, err := tensor.StandardSymplecticForm(g, n)
	require.NoError(t, err)

	node, ok := g.GetNode(j.Node)
	require.True(t, ok)
	v, ok := node.Object.(tensor.Value)
	require.True(t, ok)

	dim := int(2 * n)
	get := func(i, k int) float32 { return v.Float32Data[i*dim+k] }

	for i := 0; i < dim; i++ {
		for k := 0; k < dim; k++ {
			var sum float32
			for l := 0; l < dim; l++ {
				// (J * J)_ik = sum_l J_il * J_lk
				sum += get(i, l) * get(l, k)
			}
			want := float32(0)
			if i == k {
				want = -1
			}
			require.Equal(t, want, sum)
		}
	}
}
