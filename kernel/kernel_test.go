package kernel_test

import (
	"testing"

	"github.com/siquus/dac-sub000/kernel"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	out := make([]float32, 3)
	require.NoError(t, kernel.Add(out, []float32{1, 2, 3}, []float32{4, 5, 6}))
	require.Equal(t, []float32{5, 7, 9}, out)
}

func TestScale(t *testing.T) {
	out := make([]float32, 3)
	require.NoError(t, kernel.Scale(out, []float32{1, 2, 3}, 2))
	require.Equal(t, []float32{2, 4, 6}, out)
}

func TestOuterProduct(t *testing.T) {
	out := make([]float32, 6)
	require.NoError(t, kernel.OuterProduct(out, []float32{1, 2}, []float32{1, 2, 3}))
	require.Equal(t, []float32{1, 2, 3, 2, 4, 6}, out)
}

func TestPermuteTranspose(t *testing.T) {
	in := []float32{1, 2, 3, 4, 5, 6} // 2x3
	out := make([]float32, 6)
	require.NoError(t, kernel.Permute(out, in, []uint32{2, 3}, []uint32{1, 0}))
	require.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out) // 3x2
}

func TestProject(t *testing.T) {
	in := []float32{1, 2, 3, 4, 5}
	out := make([]float32, 2)
	require.NoError(t, kernel.Project(out, in, []uint32{5}, []kernel.Range{{Lo: 1, Hi: 3}}))
	require.Equal(t, []float32{2, 3}, out)
}

func TestContractMatrixIdentity(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	id := []float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
	out := make([]float32, 9)

	require.NoError(t, kernel.Contract(out, a, id, []uint32{3, 3}, []uint32{3, 3}, []uint32{1}, []uint32{0}))
	require.Equal(t, a, out)
}

func TestContractToScalar(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	out := make([]float32, 1)

	require.NoError(t, kernel.Contract(out, a, b, []uint32{3}, []uint32{3}, []uint32{0}, []uint32{0}))
	require.Equal(t, float32(32), out[0])
}

func TestMaxPool(t *testing.T) {
	in := []float32{
		1, 2, 5, 6,
		3, 4, 7, 8,
		9, 10, 13, 14,
		11, 12, 15, 16,
	}
	out := make([]float32, 4)
	require.NoError(t, kernel.MaxPool(out, in, []uint32{4, 4}, []uint32{2, 2}))
	require.Equal(t, []float32{4, 8, 12, 16}, out)
}

func TestIsSmaller(t *testing.T) {
	require.Equal(t, int32(1), kernel.IsSmaller([]float32{1, 1}, []float32{2, 2}))
	require.Equal(t, int32(0), kernel.IsSmaller([]float32{2, 2}, []float32{1, 1}))
}

func TestIndexSplitSumIsRelabeling(t *testing.T) {
	in := []float32{1, 2, 3, 4, 5, 6}
	out := make([]float32, 6)
	require.NoError(t, kernel.IndexSplitSum(out, in, []uint32{6}))
	require.Equal(t, in, out)
}

func TestJoinIndicesExtractsDiagonal(t *testing.T) {
	in := []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	out := make([]float32, 3)
	require.NoError(t, kernel.JoinIndices(out, in, []uint32{3, 3}, [][]uint32{{0, 1}}, []uint32{3}))
	require.Equal(t, []float32{1, 5, 9}, out)
}

func TestKroneckerAt(t *testing.T) {
	deltaPairs := []uint32{1, 0}
	require.Equal(t, float32(2), kernel.KroneckerAt([]uint32{3, 3}, deltaPairs, 2))
	require.Equal(t, float32(0), kernel.KroneckerAt([]uint32{3, 2}, deltaPairs, 2))
}

func TestContractKroneckerIdentityLeavesOperandUnchanged(t *testing.T) {
	// Contracting a 3x3 matrix's column index with one leg of an unscaled
	// rank-2 delta is multiplication by the identity.
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	out := make([]float32, 9)

	err := kernel.ContractKronecker(out, a, []uint32{3, 3}, []uint32{3, 3}, []uint32{1, 0}, 1, []uint32{1}, []uint32{0}, false)
	require.NoError(t, err)
	require.Equal(t, a, out)
}

func TestContractKroneckerScaledTrace(t *testing.T) {
	// Total contraction of M = [1..9] against a delta scaled by 2:
	// sum_ij M_ij * 2*delta_ij = (1+5+9)*2 = 30.
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	out := make([]float32, 1)

	err := kernel.ContractKronecker(out, a, []uint32{3, 3}, []uint32{3, 3}, []uint32{1, 0}, 2, []uint32{0, 1}, []uint32{0, 1}, false)
	require.NoError(t, err)
	require.Equal(t, float32(30), out[0])
}

func TestContractKroneckerLeftOperand(t *testing.T) {
	// Same identity contraction with the delta as the LEFT operand: the
	// delta's free leg leads the output axis order.
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	out := make([]float32, 9)

	err := kernel.ContractKronecker(out, a, []uint32{3, 3}, []uint32{3, 3}, []uint32{1, 0}, 1, []uint32{1}, []uint32{0}, true)
	require.NoError(t, err)
	require.Equal(t, a, out)
}

func TestPowerContractMatrixSquare(t *testing.T) {
	a := []float32{
		1, 2,
		3, 4,
	}
	out := make([]float32, 4)

	require.NoError(t, kernel.PowerContract(out, a, []uint32{2, 2}, []uint32{1}, []uint32{0}, 2))
	require.Equal(t, []float32{7, 10, 15, 22}, out)
}

func TestPowerContractExponentOne(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	out := make([]float32, 4)

	require.NoError(t, kernel.PowerContract(out, a, []uint32{2, 2}, []uint32{1}, []uint32{0}, 1))
	require.Equal(t, a, out)
}

func TestPowerContractRejectsZeroExponent(t *testing.T) {
	out := make([]float32, 4)
	err := kernel.PowerContract(out, []float32{1, 2, 3, 4}, []uint32{2, 2}, []uint32{1}, []uint32{0}, 0)
	require.ErrorIs(t, err, kernel.ErrBadExponent)
}

func TestCrossCorrelate(t *testing.T) {
	// 3x3 single-channel input, 2x2 single-in single-out kernel.
	in := []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	k := []float32{1, 0, 0, 1} // identity-ish 2x2

	out := make([]float32, 4) // 2x2x1
	require.NoError(t, kernel.CrossCorrelate(out, in, k, []uint32{3, 3, 1}, []uint32{2, 2, 1, 1}))
	require.Equal(t, []float32{1 + 5, 2 + 6, 4 + 8, 5 + 9}, out)
}
