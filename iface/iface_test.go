package iface_test

import (
	"testing"

	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/iface"
	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/tensor"
	"github.com/siquus/dac-sub000/vspace"
	"github.com/stretchr/testify/require"
)

func TestOutputSet(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 2)
	v, err := tensor.ElementFloat32(g, sp, []float32{1, 2})
	require.NoError(t, err)

	out, err := iface.NewOutput(g, "result")
	require.NoError(t, err)
	require.NoError(t, out.Set(v))

	node, ok := g.GetNode(out.Node)
	require.True(t, ok)
	require.Contains(t, node.Parents, v.Node)
}

func TestOutputDuplicateName(t *testing.T) {
	g := dagraph.New()
	_, err := iface.NewOutput(g, "result")
	require.NoError(t, err)

	_, err = iface.NewOutput(g, "result")
	require.ErrorIs(t, err, iface.ErrDuplicateName)
}

func TestInputDuplicateName(t *testing.T) {
	g := dagraph.New()
	sp, _ := vspace.New(ring.Float32, 2)
	t1, err := tensor.Input(g, sp)
	require.NoError(t, err)
	t2, err := tensor.Input(g, sp)
	require.NoError(t, err)

	_, err = iface.NewInput(g, "x", t1)
	require.NoError(t, err)

	_, err = iface.NewInput(g, "x", t2)
	require.ErrorIs(t, err, iface.ErrDuplicateName)
}
