package tensor_test

import (
	"testing"

	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/tensor"
	"github.com/siquus/dac-sub000/vspace"
	"github.com/stretchr/testify/require"
)

func TestAddShapeMismatch(t *testing.T) {
	g := dagraph.New()
	sp2, _ := vspace.New(ring.Float32, 2)
	sp3, _ := vspace.New(ring.Float32, 3)

	a, err := tensor.ElementFloat32(g, sp2, []float32{1, 2})
	require.NoError(t, err)
	b, err := tensor.ElementFloat32(g, sp3, []float32{1, 2, 3})
	require.NoError(t, err)

	_, err = tensor.Add(a, b)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestAddOK(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 3)

	a, err := tensor.ElementFloat32(g, sp, []float32{1, 2, 3})
	require.NoError(t, err)
	b, err := tensor.ElementFloat32(g, sp, []float32{4, 5, 6})
	require.NoError(t, err)

	sum, err := tensor.Add(a, b)
	require.NoError(t, err)
	require.True(t, vspace.Equal(sp, sum.Space))
}

func TestMultiplyScalarVector(t *testing.T) {
	g := dagraph.New()
	scalar, err := tensor.ScalarFloat32(g, 2)
	require.NoError(t, err)

	sp, _ := vspace.New(ring.Float32, 3)
	vec, err := tensor.ElementFloat32(g, sp, []float32{1, 2, 3})
	require.NoError(t, err)

	prod, err := tensor.Multiply(scalar, vec)
	require.NoError(t, err)
	require.True(t, vspace.Equal(sp, prod.Space))
}

func TestMultiplyTensorProduct(t *testing.T) {
	g := dagraph.New()
	spA, _ := vspace.New(ring.Float32, 2)
	spB, _ := vspace.New(ring.Float32, 3)

	a, err := tensor.ElementFloat32(g, spA, []float32{1, 2})
	require.NoError(t, err)
	b, err := tensor.ElementFloat32(g, spB, []float32{1, 2, 3})
	require.NoError(t, err)

	prod, err := tensor.Multiply(a, b)
	require.NoError(t, err)
	require.Equal(t, 2, prod.Space.Rank())
	require.Equal(t, []uint32{2, 3}, prod.Space.Dims())
}

func TestContractMatrixIdentityProduct(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 3, 3)

	identity := []float32{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
	m, err := tensor.ElementFloat32(g, sp, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)
	id, err := tensor.ElementFloat32(g, sp, identity)
	require.NoError(t, err)

	result, err := tensor.Contract(m, id, []uint32{1}, []uint32{0})
	require.NoError(t, err)
	require.Equal(t, 2, result.Space.Rank())
	require.Equal(t, []uint32{3, 3}, result.Space.Dims())
}

func TestContractShapeMismatch(t *testing.T) {
	g := dagraph.New()
	spA, _ := vspace.New(ring.Float32, 2)
	spB, _ := vspace.New(ring.Float32, 3)

	a, err := tensor.ElementFloat32(g, spA, []float32{1, 2})
	require.NoError(t, err)
	b, err := tensor.ElementFloat32(g, spB, []float32{1, 2, 3})
	require.NoError(t, err)

	_, err = tensor.Contract(a, b, []uint32{0}, []uint32{0})
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestContractDegeneratesToMultiply(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 2)
	a, err := tensor.ElementFloat32(g, sp, []float32{1, 2})
	require.NoError(t, err)
	b, err := tensor.ElementFloat32(g, sp, []float32{3, 4})
	require.NoError(t, err)

	result, err := tensor.Contract(a, b, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, result.Space.Rank())
}

func TestContractKroneckerMerge(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 3, 3)

	d1, err := tensor.KroneckerDelta(g, sp, []uint32{1, 0}, 1)
	require.NoError(t, err)
	d2, err := tensor.KroneckerDelta(g, sp, []uint32{1, 0}, 2)
	require.NoError(t, err)

	trace, err := tensor.Contract(d1, d2, []uint32{0, 1}, []uint32{1, 0})
	require.NoError(t, err)
	require.True(t, trace.IsKronecker())
}

func TestPermuteTranspose(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 3, 3)
	m, err := tensor.ElementFloat32(g, sp, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)

	transposed, err := tensor.Permute(m, []uint32{1, 0})
	require.NoError(t, err)
	require.Equal(t, []uint32{3, 3}, transposed.Space.Dims())
}

func TestPermuteInvalidIndices(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 3, 3)
	m, err := tensor.ElementFloat32(g, sp, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)

	_, err = tensor.Permute(m, []uint32{0, 0})
	require.ErrorIs(t, err, tensor.ErrInvalidPermutation)
}

func TestProjectNarrows(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 5)
	v, err := tensor.ElementFloat32(g, sp, []float32{1, 2, 3, 4, 5})
	require.NoError(t, err)

	sub, err := tensor.Project(v, []dagraph.Range{{Lo: 1, Hi: 3}})
	require.NoError(t, err)
	require.Equal(t, []uint32{2}, sub.Space.Dims())
}

func TestJoinIndices(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 3, 3, 2)
	v, err := tensor.ElementFloat32(g, sp, make([]float32, 18))
	require.NoError(t, err)

	joined, err := tensor.JoinIndices(v, [][]uint32{{0, 1}})
	require.NoError(t, err)
	require.Equal(t, []uint32{3, 2}, joined.Space.Dims())
}

func TestIndexSplitSum(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 2, 6)
	v, err := tensor.ElementFloat32(g, sp, make([]float32, 12))
	require.NoError(t, err)

	split, err := tensor.IndexSplitSum(v, 1, []uint32{0, 3})
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 2, 3}, split.Space.Dims())
}

func TestMaxPool(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 4, 4)
	v, err := tensor.ElementFloat32(g, sp, make([]float32, 16))
	require.NoError(t, err)

	pooled, err := tensor.MaxPool(v, []uint32{2, 2})
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 2}, pooled.Space.Dims())
}

func TestMaxPoolUnevenDivision(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 5)
	v, err := tensor.ElementFloat32(g, sp, make([]float32, 5))
	require.NoError(t, err)

	_, err = tensor.MaxPool(v, []uint32{2})
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestCrossCorrelateShape(t *testing.T) {
	g := dagraph.New()
	inSpace, _ := vspace.New(ring.Float32, 5, 5, 1)
	kernelSpace, _ := vspace.New(ring.Float32, 3, 3, 1, 4)

	in, err := tensor.ElementFloat32(g, inSpace, make([]float32, 25))
	require.NoError(t, err)
	kernel, err := tensor.ElementFloat32(g, kernelSpace, make([]float32, 36))
	require.NoError(t, err)

	out, err := tensor.CrossCorrelate(in, kernel)
	require.NoError(t, err)
	require.Equal(t, []uint32{3, 3, 4}, out.Space.Dims())
}

func TestIsSmaller(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 3)
	a, err := tensor.ElementFloat32(g, sp, []float32{1, 1, 1})
	require.NoError(t, err)
	b, err := tensor.ElementFloat32(g, sp, []float32{2, 2, 2})
	require.NoError(t, err)

	cmp, err := tensor.IsSmaller(a, b)
	require.NoError(t, err)
	require.True(t, cmp.IsScalar())
	require.Equal(t, ring.Int32, cmp.Space.Ring())
}
