// SPDX-License-Identifier: MIT
package tensor

import (
	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/vspace"
)

// Derivative builds the symbolic derivative of fn with respect to arg:
// d(fn)/d(arg). arg must be a VECTOR node (a leaf) that fn's value actually
// depends on; the result lives in vspace.Concat(arg.Space, fn.Space)
// (spec.md §4.3: concatenated factors, arg first).
//
// The engine runs in three phases: extract the subgraph of nodes between
// arg and fn by walking parent pointers backward from fn and pruning
// anything that isn't on a path to arg, then synthesize the derivative
// bottom-up by chain rule using a per-kind local derivative rule. Every
// synthesized node is built so its arg-space factors lead (arg first),
// matching the declared result space end to end, not just in the final
// label.
func Derivative(fn, arg *Tensor) (*Tensor, error) {
	if err := sameGraph(fn, arg); err != nil {
		return nil, err
	}
	if fn.Node == arg.Node {
		return nil, ErrDerivativeSelf
	}

	argNode, ok := fn.Graph.GetNode(arg.Node)
	if !ok || argNode.Kind != dagraph.KindVector {
		return nil, ErrDerivativeNonTensor
	}

	dependency, err := dependencySubgraph(fn.Graph, fn.Node, arg.Node)
	if err != nil {
		return nil, err
	}
	if !dependency[fn.Node] {
		return nil, ErrNotDependent
	}

	space, err := vspace.Concat(arg.Space, fn.Space)
	if err != nil {
		return nil, err
	}

	d := &derivationState{
		graph:      fn.Graph,
		arg:        arg.Node,
		argSpace:   arg.Space,
		dependency: dependency,
		shapes:     make(map[dagraph.ID]*vspace.VectorSpace),
		memo:       make(map[dagraph.ID]*derivResult),
	}

	result, err := d.derive(fn.Node)
	if err != nil {
		return nil, err
	}

	return newTensor(fn.Graph, result.id, space), nil
}

// dependencySubgraph returns the set of node ids reachable from arg by
// following children edges forward and ending at fn: the nodes whose value
// actually participates in computing fn from arg. Nodes not in this set
// have zero derivative and are pruned before synthesis (spec.md §4.4 phase
// 1/2).
func dependencySubgraph(g *dagraph.Graph, fn, arg dagraph.ID) (map[dagraph.ID]bool, error) {
	ancestorsOfFn, err := reachableViaParents(g, fn)
	if err != nil {
		return nil, err
	}
	if !ancestorsOfFn[arg] {
		return map[dagraph.ID]bool{}, nil
	}

	dependency := make(map[dagraph.ID]bool)
	var visit func(id dagraph.ID) bool
	seen := make(map[dagraph.ID]bool)
	visit = func(id dagraph.ID) bool {
		if dependency[id] {
			return true
		}
		if seen[id] {
			return dependency[id]
		}
		seen[id] = true

		if id == arg {
			dependency[id] = true
			return true
		}

		n, ok := g.GetNode(id)
		if !ok {
			return false
		}

		onPath := false
		for _, p := range n.Parents {
			if !ancestorsOfFn[p] && p != arg {
				continue
			}
			if visit(p) {
				onPath = true
			}
		}
		if onPath {
			dependency[id] = true
		}

		return onPath
	}

	visit(fn)

	return dependency, nil
}

func reachableViaParents(g *dagraph.Graph, start dagraph.ID) (map[dagraph.ID]bool, error) {
	visited := map[dagraph.ID]bool{start: true}
	queue := []dagraph.ID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		n, ok := g.GetNode(id)
		if !ok {
			return nil, dagraph.ErrUnknownNode
		}
		for _, p := range n.Parents {
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}

	return visited, nil
}

// derivResult is a synthesized derivative node together with the space it
// is declared over: always vspace.Concat(argSpace, shapeOf(originalNode)),
// with the underlying graph construction verified to actually lay its
// buffer out that way (arg-space factors leading), not just labeled so.
type derivResult struct {
	id    dagraph.ID
	space *vspace.VectorSpace
}

type derivationState struct {
	graph      *dagraph.Graph
	arg        dagraph.ID
	argSpace   *vspace.VectorSpace
	dependency map[dagraph.ID]bool
	shapes     map[dagraph.ID]*vspace.VectorSpace
	memo       map[dagraph.ID]*derivResult
}

// derive returns d(node)/d(arg), synthesizing it bottom-up and memoizing so
// shared subexpressions produce one derivative node, not one per use.
func (d *derivationState) derive(node dagraph.ID) (*derivResult, error) {
	if r, ok := d.memo[node]; ok {
		return r, nil
	}

	if node == d.arg {
		r, err := d.identityKronecker()
		if err != nil {
			return nil, err
		}
		d.memo[node] = r

		return r, nil
	}

	n, ok := d.graph.GetNode(node)
	if !ok {
		return nil, dagraph.ErrUnknownNode
	}

	r, err := d.localRule(n)
	if err != nil {
		return nil, err
	}
	d.memo[node] = r

	return r, nil
}

// identityKronecker builds d(arg)/d(arg): a Kronecker delta over
// arg.Space ⊗ arg.Space pairing index i with i+rank.
func (d *derivationState) identityKronecker() (*derivResult, error) {
	rank := d.argSpace.Rank()
	pairs := make([]uint32, 2*rank)
	for i := 0; i < rank; i++ {
		pairs[i] = uint32(i + rank)
		pairs[i+rank] = uint32(i)
	}

	space, err := vspace.Concat(d.argSpace, d.argSpace)
	if err != nil {
		return nil, err
	}

	t, err := KroneckerDelta(d.graph, space, pairs, 1)
	if err != nil {
		return nil, err
	}

	return &derivResult{id: t.Node, space: space}, nil
}

// localRule dispatches to the per-kind derivative rule, recursing on
// dependent parents via d.derive and combining results by the chain rule.
func (d *derivationState) localRule(n *dagraph.Node) (*derivResult, error) {
	switch n.Kind {
	case dagraph.KindAddition:
		return d.deriveAddition(n)
	case dagraph.KindScalarProduct, dagraph.KindVectorProduct:
		return d.deriveProduct(n)
	case dagraph.KindContraction:
		return d.deriveContraction(n)
	case dagraph.KindPower:
		return d.derivePower(n)
	case dagraph.KindPermutation, dagraph.KindProjection, dagraph.KindJoinIndices,
		dagraph.KindIndexSplitSum:
		return d.deriveLinearReshape(n)
	default:
		return nil, ErrDerivativeUnsupported
	}
}

func (d *derivationState) dependentParents(n *dagraph.Node) []dagraph.ID {
	var out []dagraph.ID
	for _, p := range n.Parents {
		if d.dependency[p] {
			out = append(out, p)
		}
	}

	return out
}

// sumTerms adds two derivative terms that are known (by construction) to
// share the same dims, ring-promoting the way addLike does.
func (d *derivationState) sumTerms(left, right *derivResult) (*derivResult, error) {
	space, err := resultSpaceWithSuperiorRing(left.space, right.space)
	if err != nil {
		return nil, err
	}

	id, err := d.graph.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{left.id, right.id})
	if err != nil {
		return nil, err
	}

	return &derivResult{id: id, space: space}, nil
}

// deriveAddition: d(a+b)/dx = da/dx + db/dx, summing only dependent terms.
func (d *derivationState) deriveAddition(n *dagraph.Node) (*derivResult, error) {
	dep := d.dependentParents(n)
	if len(dep) == 0 {
		return nil, ErrDerivativeUnsupported
	}

	acc, err := d.derive(dep[0])
	if err != nil {
		return nil, err
	}
	for _, p := range dep[1:] {
		dp, err := d.derive(p)
		if err != nil {
			return nil, err
		}
		acc, err = d.sumTerms(acc, dp)
		if err != nil {
			return nil, err
		}
	}

	return acc, nil
}

// deriveProduct applies the product rule to a VECTOR_SCALAR_PRODUCT or
// VECTOR_VECTOR_PRODUCT node. The two kinds combine shapes differently
// (Multiply: VECTOR_SCALAR_PRODUCT discards the scalar operand's own shape
// entirely, while VECTOR_VECTOR_PRODUCT concatenates both), so each needs
// its own wiring to keep the arg-space block leading in every synthesized
// term.
func (d *derivationState) deriveProduct(n *dagraph.Node) (*derivResult, error) {
	a, b := n.Parents[0], n.Parents[1]
	aDep, bDep := d.dependency[a], d.dependency[b]

	if n.Kind == dagraph.KindScalarProduct {
		return d.deriveScalarProduct(a, b, aDep, bDep)
	}

	return d.deriveVectorProduct(a, b, aDep, bDep)
}

// deriveScalarProduct handles d(scalar*vector)/dx. Multiply always orders
// VECTOR_SCALAR_PRODUCT's parents [scalar, vector], and every scalar tensor
// in this package (ScalarFloat32/ScalarInt32 and the scalar branches of
// Multiply/Contract) is declared over a rank-1, dim-1 space — so the term
// differentiating the scalar operand is an ordinary outer product of its
// (no-longer-scalar) derivative with the vector operand, with that trivial
// dim-1 axis dropped from the label: it contributes no stride, so the
// labeled and raw layouts are identical. The term differentiating the
// vector operand keeps VECTOR_SCALAR_PRODUCT's own convention directly,
// since the scalar side is untouched and the kernel only ever reads the
// vector operand's shape.
func (d *derivationState) deriveScalarProduct(a, b dagraph.ID, aDep, bDep bool) (*derivResult, error) {
	bSpace, err := d.shapeOf(b)
	if err != nil {
		return nil, err
	}

	var terms []*derivResult

	if aDep {
		da, err := d.derive(a)
		if err != nil {
			return nil, err
		}

		id, err := d.graph.AddNode(dagraph.KindVectorProduct, nil, nil, []dagraph.ID{da.id, b})
		if err != nil {
			return nil, err
		}

		space, err := vspace.Concat(d.argSpace, bSpace)
		if err != nil {
			return nil, err
		}

		terms = append(terms, &derivResult{id: id, space: space})
	}

	if bDep {
		db, err := d.derive(b)
		if err != nil {
			return nil, err
		}

		id, err := d.graph.AddNode(dagraph.KindScalarProduct, nil, nil, []dagraph.ID{a, db.id})
		if err != nil {
			return nil, err
		}

		terms = append(terms, &derivResult{id: id, space: db.space})
	}

	return d.combineTerms(terms)
}

// deriveVectorProduct handles d(a⊗b)/dx for the genuine outer-product kind.
// Differentiating the left operand already leaves arg's factors leading
// (da is itself arg-first), so that term needs no further rework. Dif-
// ferentiating the right operand produces a⊗db with arg's factors stuck
// between a's and b's (db is arg-first internally, but a still precedes
// it), so that term is permuted back to arg-first before use.
func (d *derivationState) deriveVectorProduct(a, b dagraph.ID, aDep, bDep bool) (*derivResult, error) {
	aSpace, err := d.shapeOf(a)
	if err != nil {
		return nil, err
	}
	bSpace, err := d.shapeOf(b)
	if err != nil {
		return nil, err
	}

	var terms []*derivResult

	if aDep {
		da, err := d.derive(a)
		if err != nil {
			return nil, err
		}

		id, err := d.graph.AddNode(dagraph.KindVectorProduct, nil, nil, []dagraph.ID{da.id, b})
		if err != nil {
			return nil, err
		}

		space, err := vspace.Concat(d.argSpace, aSpace, bSpace)
		if err != nil {
			return nil, err
		}

		terms = append(terms, &derivResult{id: id, space: space})
	}

	if bDep {
		db, err := d.derive(b)
		if err != nil {
			return nil, err
		}

		rawID, err := d.graph.AddNode(dagraph.KindVectorProduct, nil, nil, []dagraph.ID{a, db.id})
		if err != nil {
			return nil, err
		}

		id, err := d.moveArgSpaceToFront(rawID, aSpace.Rank(), bSpace.Rank())
		if err != nil {
			return nil, err
		}

		space, err := vspace.Concat(d.argSpace, aSpace, bSpace)
		if err != nil {
			return nil, err
		}

		terms = append(terms, &derivResult{id: id, space: space})
	}

	return d.combineTerms(terms)
}

// deriveContraction applies the product rule over a contraction: d(a·b)/dx
// = (da/dx)·b + a·(db/dx), contracted over the same index pairs shifted by
// arg's rank for whichever operand was differentiated (its derivative
// carries arg's factors ahead of its own). The differentiated-left term
// already comes out arg-first (arg's factors are never among the
// contracted or remaining axes of the right operand); the differentiated-
// right term leaves the left operand's remaining axes ahead of arg's, so
// it is permuted back to arg-first before use.
func (d *derivationState) deriveContraction(n *dagraph.Node) (*derivResult, error) {
	a, b := n.Parents[0], n.Parents[1]
	params := n.Params.(dagraph.ContractParams)
	aDep, bDep := d.dependency[a], d.dependency[b]

	aSpace, err := d.shapeOf(a)
	if err != nil {
		return nil, err
	}
	bSpace, err := d.shapeOf(b)
	if err != nil {
		return nil, err
	}
	nodeSpace, err := d.shapeOf(n.ID)
	if err != nil {
		return nil, err
	}
	termSpace, err := vspace.Concat(d.argSpace, nodeSpace)
	if err != nil {
		return nil, err
	}

	argRank := uint32(d.argSpace.Rank())
	aKeptRank := aSpace.Rank() - len(params.LFactors)
	bKeptRank := bSpace.Rank() - len(params.RFactors)

	var terms []*derivResult

	if aDep {
		da, err := d.derive(a)
		if err != nil {
			return nil, err
		}

		shifted := dagraph.ContractParams{
			LFactors: shiftIndices(params.LFactors, argRank),
			RFactors: params.RFactors,
		}
		id, err := d.graph.AddNode(dagraph.KindContraction, shifted, nil, []dagraph.ID{da.id, b})
		if err != nil {
			return nil, err
		}

		terms = append(terms, &derivResult{id: id, space: termSpace})
	}

	if bDep {
		db, err := d.derive(b)
		if err != nil {
			return nil, err
		}

		shifted := dagraph.ContractParams{
			LFactors: params.LFactors,
			RFactors: shiftIndices(params.RFactors, argRank),
		}
		rawID, err := d.graph.AddNode(dagraph.KindContraction, shifted, nil, []dagraph.ID{a, db.id})
		if err != nil {
			return nil, err
		}

		id, err := d.moveArgSpaceToFront(rawID, aKeptRank, bKeptRank)
		if err != nil {
			return nil, err
		}

		terms = append(terms, &derivResult{id: id, space: termSpace})
	}

	return d.combineTerms(terms)
}

// derivePower applies d(base^e)/d(base) = e · base^(e-1) for a
// scalar-exponent VECTOR_POWER (spec.md §4.4). The exponent operand itself
// must not depend on arg — that variant would need logarithm terms and has
// no rule in the table — and a repeated-contraction power (ContractParams
// present) has none either. For a non-scalar base the power is elementwise,
// so the local factor multiplies the base's derivative entry-for-entry:
// the two are combined as a tensor product followed by a symmetric join of
// the two base-index blocks, which leaves the arg-space block leading.
func (d *derivationState) derivePower(n *dagraph.Node) (*derivResult, error) {
	base, exponent := n.Parents[0], n.Parents[1]
	if d.dependency[exponent] || !d.dependency[base] {
		return nil, ErrDerivativeUnsupported
	}
	if _, repeated := n.Params.(dagraph.ContractParams); repeated {
		return nil, ErrDerivativeUnsupported
	}

	baseSpace, err := d.shapeOf(base)
	if err != nil {
		return nil, err
	}

	// local = e · base^(e-1), shaped like base.
	minusOne, err := ScalarFloat32(d.graph, -1)
	if err != nil {
		return nil, err
	}
	expMinusOne, err := d.graph.AddNode(dagraph.KindAddition, nil, nil, []dagraph.ID{exponent, minusOne.Node})
	if err != nil {
		return nil, err
	}
	powMinusOne, err := d.graph.AddNode(dagraph.KindPower, nil, nil, []dagraph.ID{base, expMinusOne})
	if err != nil {
		return nil, err
	}
	local, err := d.graph.AddNode(dagraph.KindScalarProduct, nil, nil, []dagraph.ID{exponent, powMinusOne})
	if err != nil {
		return nil, err
	}

	db, err := d.derive(base)
	if err != nil {
		return nil, err
	}

	if baseSpace.TotalDim() == 1 {
		id, err := d.graph.AddNode(dagraph.KindScalarProduct, nil, nil, []dagraph.ID{local, db.id})
		if err != nil {
			return nil, err
		}

		return &derivResult{id: id, space: db.space}, nil
	}

	raw, err := d.graph.AddNode(dagraph.KindVectorProduct, nil, nil, []dagraph.ID{db.id, local})
	if err != nil {
		return nil, err
	}

	argRank := uint32(d.argSpace.Rank())
	baseRank := uint32(baseSpace.Rank())
	groups := make([][]uint32, baseRank)
	for i := uint32(0); i < baseRank; i++ {
		groups[i] = []uint32{argRank + i, argRank + baseRank + i}
	}

	id, err := d.graph.AddNode(dagraph.KindJoinIndices, dagraph.JoinIndicesParams{Groups: groups}, nil, []dagraph.ID{raw})
	if err != nil {
		return nil, err
	}

	space, err := vspace.Concat(d.argSpace, baseSpace)
	if err != nil {
		return nil, err
	}

	return &derivResult{id: id, space: space}, nil
}

// deriveLinearReshape handles the purely-linear, shape-only kinds
// (PERMUTATION, PROJECTION, JOIN_INDICES, INDEX_SPLIT_SUM): the derivative
// of a linear reshape is the same reshape applied to the operand's
// derivative, with every structural index shifted by arg's rank, since
// d(operand)/d(arg) carries arg's factors ahead of the operand's own — the
// leading arg-space block is never referenced by the shifted params, so it
// passes through each of these ops unchanged and stays in front.
func (d *derivationState) deriveLinearReshape(n *dagraph.Node) (*derivResult, error) {
	dOperand, err := d.derive(n.Parents[0])
	if err != nil {
		return nil, err
	}

	argRank := uint32(d.argSpace.Rank())

	var params dagraph.Params
	switch p := n.Params.(type) {
	case dagraph.PermuteParams:
		indices := make([]uint32, 0, int(argRank)+len(p.Indices))
		for i := uint32(0); i < argRank; i++ {
			indices = append(indices, i)
		}
		indices = append(indices, shiftIndices(p.Indices, argRank)...)
		params = dagraph.PermuteParams{Indices: indices}

	case dagraph.ProjectParams:
		ranges := make([]dagraph.Range, 0, int(argRank)+len(p.Ranges))
		for _, dim := range d.argSpace.Dims() {
			ranges = append(ranges, dagraph.Range{Lo: 0, Hi: dim})
		}
		ranges = append(ranges, p.Ranges...)
		params = dagraph.ProjectParams{Ranges: ranges}

	case dagraph.JoinIndicesParams:
		groups := make([][]uint32, len(p.Groups))
		for i, g := range p.Groups {
			groups[i] = shiftIndices(g, argRank)
		}
		params = dagraph.JoinIndicesParams{Groups: groups}

	case dagraph.SplitSumParams:
		params = dagraph.SplitSumParams{Axis: p.Axis + argRank, SplitPositions: p.SplitPositions}

	default:
		return nil, ErrDerivativeUnsupported
	}

	id, err := d.graph.AddNode(n.Kind, params, nil, []dagraph.ID{dOperand.id})
	if err != nil {
		return nil, err
	}

	nodeSpace, err := d.shapeOf(n.ID)
	if err != nil {
		return nil, err
	}
	space, err := vspace.Concat(d.argSpace, nodeSpace)
	if err != nil {
		return nil, err
	}

	return &derivResult{id: id, space: space}, nil
}

func (d *derivationState) combineTerms(terms []*derivResult) (*derivResult, error) {
	switch len(terms) {
	case 0:
		return nil, ErrDerivativeUnsupported
	case 1:
		return terms[0], nil
	default:
		return d.sumTerms(terms[0], terms[1])
	}
}

// moveArgSpaceToFront permutes rawID, whose declared factors are presently
// ordered [leading (rank leadingRank)][argSpace][trailing (rank
// trailingRank)], so arg's factors land at the front — the convention
// every derivResult's space is expected to match. A leadingRank of zero
// means arg's factors are already in front, so no permutation is emitted.
func (d *derivationState) moveArgSpaceToFront(rawID dagraph.ID, leadingRank, trailingRank int) (dagraph.ID, error) {
	if leadingRank == 0 {
		return rawID, nil
	}

	argRank := d.argSpace.Rank()
	indices := make([]uint32, 0, leadingRank+argRank+trailingRank)
	for i := 0; i < argRank; i++ {
		indices = append(indices, uint32(leadingRank+i))
	}
	for i := 0; i < leadingRank; i++ {
		indices = append(indices, uint32(i))
	}
	for i := 0; i < trailingRank; i++ {
		indices = append(indices, uint32(leadingRank+argRank+i))
	}

	return d.graph.AddNode(dagraph.KindPermutation, dagraph.PermuteParams{Indices: indices}, nil, []dagraph.ID{rawID})
}

func shiftIndices(idx []uint32, by uint32) []uint32 {
	out := make([]uint32, len(idx))
	for i, v := range idx {
		out[i] = v + by
	}

	return out
}

// shapeOf returns the space the node at id's output is declared over,
// recomputed from Params and its parents' own shapes the same way the
// Tensor-level operation that built it did — dagraph.Node carries no shape
// of its own, only Tensor does, and that wrapper doesn't survive past
// construction for intermediate nodes synthesized during derivation.
func (d *derivationState) shapeOf(id dagraph.ID) (*vspace.VectorSpace, error) {
	if space, ok := d.shapes[id]; ok {
		return space, nil
	}

	if id == d.arg {
		d.shapes[id] = d.argSpace
		return d.argSpace, nil
	}

	n, ok := d.graph.GetNode(id)
	if !ok {
		return nil, dagraph.ErrUnknownNode
	}

	space, err := d.computeShape(n)
	if err != nil {
		return nil, err
	}
	d.shapes[id] = space

	return space, nil
}

// computeShape covers every kind localRule can differentiate plus every
// kind that may legitimately appear as a non-differentiated sibling
// operand. KindKroneckerDeltaProduct is excluded: it carries no parents and
// no per-axis dims/ring in its Params, so there is no way to recover its
// shape from the graph alone; a Kronecker-delta tensor used directly (not
// through Contract's fusion path) as a product/contraction operand in a
// graph being differentiated is accordingly unsupported.
func (d *derivationState) computeShape(n *dagraph.Node) (*vspace.VectorSpace, error) {
	switch n.Kind {
	case dagraph.KindVector, dagraph.KindInput:
		v, ok := n.Object.(Value)
		if !ok {
			return nil, ErrDerivativeUnsupported
		}

		return v.Space, nil

	case dagraph.KindAddition:
		a, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}
		b, err := d.shapeOf(n.Parents[1])
		if err != nil {
			return nil, err
		}

		return resultSpaceWithSuperiorRing(a, b)

	case dagraph.KindScalarProduct:
		scalar, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}
		vec, err := d.shapeOf(n.Parents[1])
		if err != nil {
			return nil, err
		}

		return resultSpaceWithSuperiorRing(vec, scalar)

	case dagraph.KindVectorProduct:
		a, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}
		b, err := d.shapeOf(n.Parents[1])
		if err != nil {
			return nil, err
		}

		return vspace.Concat(a, b)

	case dagraph.KindContraction:
		params := n.Params.(dagraph.ContractParams)
		a, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}
		b, err := d.shapeOf(n.Parents[1])
		if err != nil {
			return nil, err
		}

		remainingA := a.WithoutFactors(params.LFactors)
		remainingB := b.WithoutFactors(params.RFactors)
		if len(remainingA)+len(remainingB) == 0 {
			return vspace.New(supRing(a.Ring(), b.Ring()), 1)
		}

		return vspace.FromFactors(append(append([]vspace.SimpleFactor{}, remainingA...), remainingB...))

	case dagraph.KindPower:
		return d.shapeOf(n.Parents[0])

	case dagraph.KindComparisonIsSmaller:
		return vspace.New(ring.Int32, 1)

	case dagraph.KindPermutation:
		params := n.Params.(dagraph.PermuteParams)
		operand, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}

		factors := make([]vspace.SimpleFactor, len(params.Indices))
		for j, idx := range params.Indices {
			factors[j] = operand.Factors[idx]
		}

		return vspace.FromFactors(factors)

	case dagraph.KindProjection:
		params := n.Params.(dagraph.ProjectParams)
		operand, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}

		factors := make([]vspace.SimpleFactor, len(params.Ranges))
		for i, r := range params.Ranges {
			factors[i] = vspace.SimpleFactor{Ring: operand.Factors[i].Ring, Dim: r.Hi - r.Lo}
		}

		return vspace.FromFactors(factors)

	case dagraph.KindJoinIndices:
		params := n.Params.(dagraph.JoinIndicesParams)
		operand, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}

		return joinIndicesShape(operand, params.Groups)

	case dagraph.KindIndexSplitSum:
		params := n.Params.(dagraph.SplitSumParams)
		operand, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}

		return splitSumShape(operand, params)

	case dagraph.KindCrossCorrelation:
		a, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}
		k, err := d.shapeOf(n.Parents[1])
		if err != nil {
			return nil, err
		}

		return crossCorrelateShape(a, k)

	case dagraph.KindMaxPool:
		params := n.Params.(dagraph.MaxPoolParams)
		operand, err := d.shapeOf(n.Parents[0])
		if err != nil {
			return nil, err
		}

		return maxPoolShape(operand, params.PoolSize)

	default:
		return nil, ErrDerivativeUnsupported
	}
}

func joinIndicesShape(operand *vspace.VectorSpace, groups [][]uint32) (*vspace.VectorSpace, error) {
	rank := operand.Rank()
	memberOf := make(map[uint32]int, rank)
	for gi, group := range groups {
		for _, idx := range group {
			memberOf[idx] = gi + 1
		}
	}

	groupMin := make(map[int]uint32, len(groups))
	for gi, group := range groups {
		min := group[0]
		for _, idx := range group {
			if idx < min {
				min = idx
			}
		}
		groupMin[gi+1] = min
	}

	var factors []vspace.SimpleFactor
	for i := uint32(0); i < uint32(rank); i++ {
		gi, inGroup := memberOf[i]
		if !inGroup || i == groupMin[gi] {
			factors = append(factors, operand.Factors[i])
		}
	}

	return vspace.FromFactors(factors)
}

func splitSumShape(operand *vspace.VectorSpace, params dagraph.SplitSumParams) (*vspace.VectorSpace, error) {
	dims := operand.Dims()
	axis := params.Axis
	dim := dims[axis]
	boundaries := append(append([]uint32{}, params.SplitPositions...), dim)
	width := boundaries[1] - boundaries[0]
	nWindows := uint32(len(params.SplitPositions))
	ringAtAxis := operand.Factors[axis].Ring

	var factors []vspace.SimpleFactor
	factors = append(factors, operand.Factors[:axis]...)
	factors = append(factors,
		vspace.SimpleFactor{Ring: ringAtAxis, Dim: nWindows},
		vspace.SimpleFactor{Ring: ringAtAxis, Dim: width},
	)
	factors = append(factors, operand.Factors[axis+1:]...)

	return vspace.FromFactors(factors)
}

func crossCorrelateShape(a, kernel *vspace.VectorSpace) (*vspace.VectorSpace, error) {
	aDims := a.Dims()
	kDims := kernel.Dims()
	nSpatial := len(aDims) - 1

	factors := make([]vspace.SimpleFactor, 0, nSpatial+1)
	for i := 0; i < nSpatial; i++ {
		factors = append(factors, vspace.SimpleFactor{
			Ring: supRing(a.Factors[i].Ring, kernel.Factors[i].Ring),
			Dim:  aDims[i] - kDims[i] + 1,
		})
	}
	factors = append(factors, vspace.SimpleFactor{
		Ring: kernel.Factors[len(kDims)-1].Ring,
		Dim:  kDims[len(kDims)-1],
	})

	return vspace.FromFactors(factors)
}

func maxPoolShape(operand *vspace.VectorSpace, poolSize []uint32) (*vspace.VectorSpace, error) {
	dims := operand.Dims()
	factors := make([]vspace.SimpleFactor, len(dims))
	for i, p := range poolSize {
		factors[i] = vspace.SimpleFactor{Ring: operand.Factors[i].Ring, Dim: dims[i] / p}
	}

	return vspace.FromFactors(factors)
}
