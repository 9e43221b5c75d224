package engine_test

import (
	"sync"
	"testing"

	"github.com/siquus/dac-sub000/engine"
	"github.com/stretchr/testify/require"
)

func TestRunLinearChain(t *testing.T) {
	var order []uint32

	c := &engine.Node{ID: 3}
	b := &engine.Node{ID: 2, Children: []*engine.Node{c}}
	a := &engine.Node{ID: 1, Children: []*engine.Node{b}}
	c.Parents = []*engine.Node{b}
	b.Parents = []*engine.Node{a}

	a.Run = func() { order = append(order, a.ID) }
	b.Run = func() { order = append(order, b.ID) }
	c.Run = func() { order = append(order, c.ID) }

	engine.Run(1, []*engine.Node{a})

	require.Equal(t, []uint32{1, 2, 3}, order)
	require.Equal(t, uint32(1), a.ExeCnt)
	require.Equal(t, uint32(1), b.ExeCnt)
	require.Equal(t, uint32(1), c.ExeCnt)
}

func TestRunDiamondFanOutFanIn(t *testing.T) {
	var mu sync.Mutex
	var order []uint32
	ran := map[uint32]bool{}

	record := func(id uint32) {
		mu.Lock()
		order = append(order, id)
		ran[id] = true
		mu.Unlock()
	}

	d := &engine.Node{ID: 4}
	b := &engine.Node{ID: 2, Children: []*engine.Node{d}}
	c := &engine.Node{ID: 3, Children: []*engine.Node{d}}
	a := &engine.Node{ID: 1, Children: []*engine.Node{b, c}}
	d.Parents = []*engine.Node{b, c}
	b.Parents = []*engine.Node{a}
	c.Parents = []*engine.Node{a}

	a.Run = func() { record(a.ID) }
	b.Run = func() { record(b.ID) }
	c.Run = func() { record(c.ID) }
	d.Run = func() { record(d.ID) }

	engine.Run(2, []*engine.Node{a})

	require.Len(t, order, 4)
	require.True(t, ran[1] && ran[2] && ran[3] && ran[4])
	require.Equal(t, uint32(1), d.ExeCnt)
}
