package dagraph_test

import (
	"testing"

	"github.com/siquus/dac-sub000/dagraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeMergesExactDuplicates(t *testing.T) {
	g := dagraph.New()
	// a and b differ in kind, so the two leaves are not duplicates of each
	// other.
	a, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)
	b, _ := g.AddNode(dagraph.KindInput, nil, nil, nil)

	// Two structurally-identical additions over the same parents: one of
	// them must be collapsed away.
	sum1, err := g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{a, b})
	require.NoError(t, err)
	sum2, err := g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{a, b})
	require.NoError(t, err)

	consumer, err := g.AddNode(dagraph.KindScalarProduct, nil, nil, []dagraph.ID{sum2, a})
	require.NoError(t, err)

	before := g.Len()
	g.Canonicalize()
	after := g.Len()

	assert.Equal(t, before-1, after)

	survivor := sum1
	if sum2 < sum1 {
		survivor = sum2
	}

	_, ok := g.GetNode(survivor)
	assert.True(t, ok)

	consumerNode, ok := g.GetNode(consumer)
	require.True(t, ok)
	assert.Contains(t, consumerNode.Parents, survivor)
}

func TestCanonicalizeLeavesDistinctNodesAlone(t *testing.T) {
	g := dagraph.New()
	a, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)
	b, _ := g.AddNode(dagraph.KindInput, nil, nil, nil) // differs from a in kind
	_, _ = g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{a, b})
	_, _ = g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{b, a}) // different operand order

	before := g.Len()
	g.Canonicalize()
	assert.Equal(t, before, g.Len())
}

func TestCanonicalizeDistinguishesStorageUsers(t *testing.T) {
	// Two identical value leaves serving as separate loop-state buffers:
	// each is the storage target of a different updater, and that is the
	// only structural difference between them.
	g := dagraph.New()
	leaf1, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)
	leaf2, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)

	upd1, err := g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{leaf1, leaf1})
	require.NoError(t, err)
	upd2, err := g.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{leaf2, leaf2})
	require.NoError(t, err)

	require.NoError(t, g.SetStorage(upd1, leaf1))
	require.NoError(t, g.SetStorage(upd2, leaf2))

	before := g.Len()
	g.Canonicalize()
	assert.Equal(t, before, g.Len())

	_, ok := g.GetNode(leaf1)
	assert.True(t, ok)
	_, ok = g.GetNode(leaf2)
	assert.True(t, ok)
}

func TestCanonicalizeDistinguishesKindParams(t *testing.T) {
	g := dagraph.New()
	a, _ := g.AddNode(dagraph.KindVector, nil, nil, nil)

	p1 := dagraph.PermuteParams{Indices: []uint32{0, 1}}
	p2 := dagraph.PermuteParams{Indices: []uint32{1, 0}}

	_, _ = g.AddNode(dagraph.KindPermutation, p1, nil, []dagraph.ID{a})
	_, _ = g.AddNode(dagraph.KindPermutation, p2, nil, []dagraph.ID{a})

	before := g.Len()
	g.Canonicalize()
	assert.Equal(t, before, g.Len())
}
