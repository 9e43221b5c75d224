package dagraph_test

import (
	"errors"
	"testing"

	"github.com/siquus/dac-sub000/dagraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeValidatesParents(t *testing.T) {
	g := dagraph.New()

	_, err := g.AddNode(dagraph.KindVector, nil, nil, []dagraph.ID{99})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dagraph.ErrUnknownParent))
}

func TestAddNodeAssignsMonotonicIDs(t *testing.T) {
	g := dagraph.New()

	id1, err := g.AddNode(dagraph.KindVector, nil, nil, nil)
	require.NoError(t, err)
	id2, err := g.AddNode(dagraph.KindVector, nil, nil, nil)
	require.NoError(t, err)

	assert.Less(t, id1, id2)
}

func TestAddNodeWiresChildren(t *testing.T) {
	g := dagraph.New()

	a, err := g.AddNode(dagraph.KindVector, nil, nil, nil)
	require.NoError(t, err)
	b, err := g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{a, a})
	require.NoError(t, err)

	node, ok := g.GetNode(a)
	require.True(t, ok)
	assert.True(t, node.Children[b])

	childNode, ok := g.GetNode(b)
	require.True(t, ok)
	assert.Equal(t, []dagraph.ID{a, a}, childNode.Parents)
}

func TestAddParent(t *testing.T) {
	g := dagraph.New()
	a, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)
	b, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)
	c, _ := g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{a})

	require.NoError(t, g.AddParent(b, c))

	node, _ := g.GetNode(c)
	assert.Equal(t, []dagraph.ID{a, b}, node.Parents)
}

func TestRootAncestors(t *testing.T) {
	g := dagraph.New()
	a, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)
	b, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)
	sum, _ := g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{a, b})
	prod, _ := g.AddNode(dagraph.KindScalarProduct, nil, nil, []dagraph.ID{sum, a})

	roots, err := g.RootAncestors(prod)
	require.NoError(t, err)
	assert.Equal(t, map[dagraph.ID]bool{a: true, b: true}, roots)
}

func TestDeleteChildReference(t *testing.T) {
	g := dagraph.New()
	a, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)
	b, _ := g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{a, a})

	assert.True(t, g.DeleteChildReference(b))

	node, _ := g.GetNode(a)
	assert.False(t, node.Children[b])
}

func TestStorageRelation(t *testing.T) {
	g := dagraph.New()
	a, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)
	b, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)

	require.NoError(t, g.SetStorage(a, b))

	na, _ := g.GetNode(a)
	nb, _ := g.GetNode(b)
	assert.Equal(t, b, na.StoredIn)
	assert.True(t, nb.UsedAsStorageBy[a])
}

func TestEdgeCapExceeded(t *testing.T) {
	g := dagraph.New()
	parents := make([]dagraph.ID, 0, dagraph.MaxEdges+1)
	for i := 0; i < dagraph.MaxEdges+1; i++ {
		id, err := g.AddNode(dagraph.KindVector, nil, nil, nil)
		require.NoError(t, err)
		parents = append(parents, id)
	}

	_, err := g.AddNode(dagraph.KindAddition, nil, nil, parents)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dagraph.ErrEdgeCapExceeded))
}
