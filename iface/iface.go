// SPDX-License-Identifier: MIT

// Package iface provides the named boundary nodes a generated program
// exposes to its host: Output (a graph sink the host reads a result from)
// and Input (a graph source the host writes a value into before running
// the engine). Both are thin OUTPUT/INPUT dagraph.Node constructors over
// package tensor — grounded on original_source/src/Interface.cpp/.h.
package iface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/tensor"
)

// ErrDuplicateName is returned when a second Output or Input is created
// with a name already used on the same graph — names are how the emitted
// program's generated <Name>Register functions and <Name>Callback variables
// are keyed, so
// collisions are rejected at construction time rather than at codegen time
// (SPEC_FULL.md; the distillation left output naming unvalidated until code
// generation, which this promotes to construction time).
var ErrDuplicateName = errors.New("iface: duplicate boundary node name")

// ErrNilGraph is returned when graph is nil.
var ErrNilGraph = errors.New("iface: nil graph")

// nameObject tags an OUTPUT/INPUT node's attached Object with its host-
// visible name — Interface::Output/Input's name_ field in the original.
type nameObject struct {
	name string
}

func (nameObject) ObjectKind() string { return "iface.name" }

func (n nameObject) Equal(other dagraph.Object) bool {
	o, ok := other.(nameObject)

	return ok && o.name == n.name
}

var (
	usedNamesMu sync.Mutex
	usedNames   = map[*dagraph.Graph]map[string]bool{}
)

func reserveName(g *dagraph.Graph, name string) error {
	if g == nil {
		return ErrNilGraph
	}

	usedNamesMu.Lock()
	defer usedNamesMu.Unlock()

	names, ok := usedNames[g]
	if !ok {
		names = make(map[string]bool)
		usedNames[g] = names
	}
	if names[name] {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	names[name] = true

	return nil
}

// Output is a named sink node: the emitted program copies the bound
// tensor's value to this name's output buffer whenever the graph runs.
type Output struct {
	Graph *dagraph.Graph
	Node  dagraph.ID
	Name  string
}

// NewOutput creates an OUTPUT node named name on g.
func NewOutput(g *dagraph.Graph, name string) (*Output, error) {
	if err := reserveName(g, name); err != nil {
		return nil, err
	}

	id, err := g.AddNode(dagraph.KindOutput, nil, nameObject{name: name}, nil)
	if err != nil {
		return nil, err
	}

	return &Output{Graph: g, Node: id, Name: name}, nil
}

// Set binds t as this Output's value: t must live on the same graph as the
// Output. This is AddParent(t, output) in dagraph terms — Output::Set in
// the original.
func (o *Output) Set(t *tensor.Tensor) error {
	if t.Graph != o.Graph {
		return tensor.ErrCrossGraph
	}

	return o.Graph.AddParent(t.Node, o.Node)
}

// Input is a named source node: the host writes a value into this name's
// input buffer before running the engine, and every node reading it sees
// that buffer's content as a VECTOR leaf.
type Input struct {
	*tensor.Tensor
	Name string
}

// NewInput names t (which must already be a leaf built via tensor.Input) as
// an INPUT boundary: the callback the host registers through the generated
// <Name>Register function writes into t's buffer before the engine runs.
func NewInput(g *dagraph.Graph, name string, t *tensor.Tensor) (*Input, error) {
	if t.Graph != g {
		return nil, tensor.ErrCrossGraph
	}
	if err := reserveName(g, name); err != nil {
		return nil, err
	}

	return &Input{Tensor: t, Name: name}, nil
}
