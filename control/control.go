// SPDX-License-Identifier: MIT

// Package control provides CONTROL_TRANSFER_WHILE, the conditional
// branch/loop-back node the emitted engine tests after its parents have
// run: grounded on original_source/src/ControlTransfer.cpp/.h, whose
// validation order is preserved here unchanged.
package control

import (
	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/tensor"
)

// While is a CONTROL_TRANSFER_WHILE node: once condition and every node in
// parents have executed, the engine evaluates condition and pushes the
// trueBranch (or falseBranch) node itself accordingly — see
// engine.Scheduler and codegen's control-transfer emission.
type While struct {
	Graph *dagraph.Graph
	Node  dagraph.ID
}

// NewWhile creates a While node: condition must be a scalar tensor on
// graph; parents are additional nodes the engine must execute before
// testing condition (condition itself is always included and is never
// duplicated if it also appears in parents); trueBranch/falseBranch may be
// nil, meaning "do nothing on this branch" (spec.md §4.2 glossary;
// original_source/src/ControlTransfer.cpp Set()).
func NewWhile(graph *dagraph.Graph, condition *tensor.Tensor, parents []*tensor.Tensor, trueBranch, falseBranch *tensor.Tensor) (*While, error) {
	if condition.Graph != graph {
		return nil, tensor.ErrCrossGraph
	}
	if !condition.IsScalar() {
		return nil, tensor.ErrShapeMismatch
	}
	if trueBranch != nil && trueBranch.Graph != graph {
		return nil, tensor.ErrCrossGraph
	}
	if falseBranch != nil && falseBranch.Graph != graph {
		return nil, tensor.ErrCrossGraph
	}

	params := dagraph.WhileParams{BranchTrue: dagraph.NoID, BranchFalse: dagraph.NoID}
	if falseBranch != nil {
		params.BranchFalse = falseBranch.Node
	}
	if trueBranch != nil {
		params.BranchTrue = trueBranch.Node
	}

	nodeParents := []dagraph.ID{condition.Node}
	for _, p := range parents {
		if p.Node == condition.Node {
			continue
		}
		nodeParents = append(nodeParents, p.Node)
	}

	id, err := graph.AddNode(dagraph.KindControlTransferWhile, params, nil, nodeParents)
	if err != nil {
		return nil, err
	}

	if err := graph.SetBranches(id, params.BranchTrue, params.BranchFalse); err != nil {
		return nil, err
	}

	return &While{Graph: graph, Node: id}, nil
}
