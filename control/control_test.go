package control_test

import (
	"testing"

	"github.com/siquus/dac-sub000/control"
	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/tensor"
	"github.com/siquus/dac-sub000/vspace"
	"github.com/stretchr/testify/require"
)

func TestNewWhileRejectsNonScalarCondition(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 3)
	cond, err := tensor.ElementFloat32(g, sp, []float32{1, 2, 3})
	require.NoError(t, err)

	_, err = control.NewWhile(g, cond, nil, nil, nil)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestNewWhileDoesNotDuplicateCondition(t *testing.T) {
	g := dagraph.New()
	cond, err := tensor.ScalarInt32(g, 1)
	require.NoError(t, err)

	w, err := control.NewWhile(g, cond, []*tensor.Tensor{cond}, nil, nil)
	require.NoError(t, err)

	node, ok := g.GetNode(w.Node)
	require.True(t, ok)
	require.Equal(t, []dagraph.ID{cond.Node}, node.Parents)
}

func TestNewWhileSetsBranches(t *testing.T) {
	g := dagraph.New()
	cond, err := tensor.ScalarInt32(g, 1)
	require.NoError(t, err)
	onTrue, err := tensor.ScalarInt32(g, 2)
	require.NoError(t, err)

	w, err := control.NewWhile(g, cond, nil, onTrue, nil)
	require.NoError(t, err)

	node, ok := g.GetNode(w.Node)
	require.True(t, ok)
	require.Equal(t, onTrue.Node, node.BranchTrue)
	require.Equal(t, dagraph.NoID, node.BranchFalse)
}
