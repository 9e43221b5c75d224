// SPDX-License-Identifier: MIT

// Package codegen is the code generator: it walks a finished dagraph.Graph
// and renders a standalone Go source file whose Build function constructs
// the engine.Node table and wires it to the kernel package's dense
// arithmetic, ready for engine.Run. Grounded on
// original_source/src/CodeGenerator.cpp/.h — GenerateConstants,
// GenerateNodesArray, and the per-kind *Code functions map onto
// renderKernelCall's switch and the programTemplate below; text/template plays the
// role FileWriter::PrintfLine played in the original.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"text/template"

	"golang.org/x/sync/errgroup"

	"github.com/siquus/dac-sub000/dagraph"
	"github.com/siquus/dac-sub000/iface"
	"github.com/siquus/dac-sub000/ring"
	"github.com/siquus/dac-sub000/tensor"
)

// Config is everything Emit needs to render one self-contained program.
type Config struct {
	PackageName string
	Graph       *dagraph.Graph

	// Dims gives the output shape (row-major factor dims) of every node in
	// Graph that is neither a VECTOR (those carry their own
	// tensor.Value.Space already) nor a CONTROL_TRANSFER_WHILE (it has no
	// result value). The builder retains this because dagraph.Node itself stores
	// no vspace.VectorSpace (see DESIGN.md): as it calls each tensor
	// operation it records the returned Tensor's Space.Dims() here, keyed
	// by the returned Tensor.Node, plus one entry per iface.Output keyed by
	// the Output's own Node (same dims as whatever tensor it Set). Emit
	// fails with ErrMissingDims if any other node is absent.
	Dims map[dagraph.ID][]uint32

	Outputs []*iface.Output
	Inputs  []*iface.Input
	Threads int
}

// ErrMissingDims is returned when Config.Dims has no entry for a node that
// needs one (every node that is neither a VECTOR nor a
// CONTROL_TRANSFER_WHILE).
var ErrMissingDims = fmt.Errorf("codegen: missing output dims for node")

// nodeView is the per-node template data; it carries only plain values so
// the template stays a pure formatting concern.
type nodeView struct {
	ID         dagraph.ID
	VarName    string
	Kind       string
	KernelCall string
	ParentIDs  []dagraph.ID
	ChildIDs   []dagraph.ID
	HasWhile   bool
	BufLit     string // allocation expression, empty when Alias is set
	BufField   string // "Buf" or "IntBuf", the engine.Node field this node's result lives in
	DimsLit    string
	Alias      string // VarName of the node this one's buffer aliases (StoredIn), or ""
	Static     bool   // true: never re-pushed, exempt from a dependent's exeCnt gate
}

// ioView is the per-Input/per-Output template data for the generated
// callback-registration ABI (spec.md §4.6/§6): a name, the node it is bound
// to, and the ring-chosen Go element type/engine.Node field for its buffer.
type ioView struct {
	Name     string
	Node     dagraph.ID
	GoType   string // "float32" or "int32"
	BufField string // "Buf" or "IntBuf"
}

// bufField returns the engine.Node field a buffer of ring r is stored in.
func bufField(r ring.Type) string {
	if r == ring.Int32 {
		return "IntBuf"
	}

	return "Buf"
}

// goType returns the Go element type a buffer of ring r is declared with.
func goType(r ring.Type) string {
	if r == ring.Int32 {
		return "int32"
	}

	return "float32"
}

// bufRef renders the Go expression reading node id's own buffer field, per
// its ring as recorded in rings.
func bufRef(id dagraph.ID, rings map[dagraph.ID]ring.Type) string {
	return fmt.Sprintf("%s.%s", varName(id), bufField(rings[id]))
}

func dimsTotal(dims []uint32) uint32 {
	total := uint32(1)
	for _, d := range dims {
		total *= d
	}

	return total
}

func varName(id dagraph.ID) string {
	return fmt.Sprintf("node%d", id)
}

// Emit renders cfg's graph as Go source implementing a Build function that
// returns the engine.Node table and the initial job set, suitable for
// engine.Run. The returned bytes are already gofmt'd.
func Emit(cfg Config) ([]byte, error) {
	if cfg.Graph == nil {
		return nil, fmt.Errorf("codegen: nil graph")
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}

	ids := cfg.Graph.Nodes()

	// branchTargets collects every WHILE node's branch-true/branch-false
	// target: those roots are deliberately re-pushed round after round, so
	// their ExeCnt must keep gating dependents normally. Every OTHER
	// zero-parent VECTOR node is a genuine compile-time constant that never
	// gets pushed again once the initial job-pool batch runs it — without
	// Static, a dependent downstream of a WHILE re-entry would wait
	// forever on such a constant's ExeCnt to advance (see engine.Node.Static
	// and DESIGN.md's WHILE re-entry note).
	branchTargets := make(map[dagraph.ID]bool)
	for _, id := range ids {
		n, ok := cfg.Graph.GetNode(id)
		if !ok {
			continue
		}
		if n.Kind != dagraph.KindControlTransferWhile {
			continue
		}
		params, ok := n.Params.(dagraph.WhileParams)
		if !ok {
			continue
		}
		if params.BranchTrue != dagraph.NoID {
			branchTargets[params.BranchTrue] = true
		}
		if params.BranchFalse != dagraph.NoID {
			branchTargets[params.BranchFalse] = true
		}
	}

	// static extends the same exemption to any node whose entire parent set
	// is itself Static — not just raw zero-parent constants. A node built
	// purely from compile-time constants (e.g. a per-pair gravitational
	// coefficient folded from two Static leaves) would otherwise freeze its
	// own ExeCnt at 1 after the initial batch and permanently block any
	// WHILE-reachable dependent downstream of it, the same failure mode
	// Node.Static exists to prevent for leaves. Since a node's id is always
	// greater than every one of its parents' ids (dagraph's monotonic id
	// invariant), a single ascending pass computes the closure without
	// iterating to a fixed point.
	static := make(map[dagraph.ID]bool, len(ids))
	for _, id := range ids {
		n, ok := cfg.Graph.GetNode(id)
		if !ok {
			continue
		}

		if len(n.Parents) == 0 {
			isConst := n.Kind == dagraph.KindVector || n.Kind == dagraph.KindKroneckerDeltaProduct
			static[id] = isConst && !branchTargets[id]
			continue
		}

		allStatic := true
		for _, p := range n.Parents {
			if !static[p] {
				allStatic = false
				break
			}
		}
		static[id] = allStatic
	}

	// rings records each node's actual ring, the way static records each
	// node's staticness: a single ascending pass, since a node's ring only
	// ever depends on its parents' (already-computed) rings. VECTOR nodes
	// read their ring straight from the tensor.Value they carry.
	// VECTOR_COMPARISON_IS_SMALLER is always Int32 regardless of its
	// operands' ring (spec.md §3/§4.3). A scalar-exponent VECTOR_POWER is
	// hardcoded Float32: kernel.PowerScalar's signature is float32-only
	// (exponentiation is not given Int32 semantics here), so such a node's
	// buffer is always Float32 even when its base is not; a
	// repeated-contraction power (ContractParams present) is pure
	// multiply-add and keeps its base's ring. Every other kind inherits the
	// superior ring of its parents, matching resultSpaceWithSuperiorRing's
	// front-end rule (tensor/ops.go).
	rings := make(map[dagraph.ID]ring.Type, len(ids))
	for _, id := range ids {
		n, ok := cfg.Graph.GetNode(id)
		if !ok {
			continue
		}

		switch {
		case n.Kind == dagraph.KindVector:
			if v, ok := n.Object.(tensor.Value); ok && v.Space != nil {
				rings[id] = v.Space.Ring()
			} else {
				rings[id] = ring.Float32
			}
		case n.Kind == dagraph.KindComparisonIsSmaller:
			rings[id] = ring.Int32
		case n.Kind == dagraph.KindPower:
			if _, repeated := n.Params.(dagraph.ContractParams); repeated {
				rings[id] = rings[n.Parents[0]]
			} else {
				rings[id] = ring.Float32
			}
		case len(n.Parents) > 0:
			r := rings[n.Parents[0]]
			for _, p := range n.Parents[1:] {
				r = ring.Superior(r, rings[p])
			}
			rings[id] = r
		default:
			rings[id] = ring.Float32
		}
	}

	// kronParams records every Kronecker-delta node's involution and scaling
	// so consuming contraction kernels can fuse the delta into index-equality
	// tests (spec.md §4.6); the delta node itself never gets a buffer.
	kronParams := make(map[dagraph.ID]dagraph.KroneckerParams)
	for _, id := range ids {
		n, ok := cfg.Graph.GetNode(id)
		if !ok || n.Kind != dagraph.KindKroneckerDeltaProduct {
			continue
		}
		if p, ok := n.Params.(dagraph.KroneckerParams); ok {
			kronParams[id] = p
		}
	}

	outputNames := make(map[dagraph.ID]string, len(cfg.Outputs))
	for _, o := range cfg.Outputs {
		outputNames[o.Node] = o.Name
	}

	views := make([]nodeView, len(ids))

	group := new(errgroup.Group)
	for i, id := range ids {
		i, id := i, id
		group.Go(func() error {
			n, ok := cfg.Graph.GetNode(id)
			if !ok {
				return fmt.Errorf("codegen: node %d vanished mid-render", id)
			}

			call, err := renderKernelCall(n, rings, kronParams, outputNames)
			if err != nil {
				return fmt.Errorf("codegen: node %d: %w", id, err)
			}

			children := make([]dagraph.ID, 0, len(n.Children))
			for c := range n.Children {
				children = append(children, c)
			}
			sort.Slice(children, func(a, b int) bool { return children[a] < children[b] })

			nodeBufField := bufField(rings[id])

			var bufLit, dimsLit, alias string
			switch {
			case n.Kind == dagraph.KindVector:
				v, ok := n.Object.(tensor.Value)
				if !ok {
					return fmt.Errorf("codegen: node %d: VECTOR node carries no tensor.Value: %w", id, ErrMissingDims)
				}
				dimsLit = uintSliceLiteral(v.Space.Dims())
				switch {
				case v.Int32Data != nil:
					bufLit = int32SliceLiteral(v.Int32Data)
				case v.Float32Data != nil:
					bufLit = float32SliceLiteral(v.Float32Data)
				default:
					bufLit = fmt.Sprintf("make([]%s, %d)", goType(rings[id]), v.Space.TotalDim())
				}
			case n.Kind == dagraph.KindControlTransferWhile:
				// control transfer only: no result value, no shape.
				dimsLit = "nil"
				bufLit = "nil"
			case n.Kind == dagraph.KindKroneckerDeltaProduct:
				// symbolic: the shape is kept for consuming contractions, but
				// the delta is never materialized as a buffer (spec.md §4.6).
				dims, ok := cfg.Dims[id]
				if !ok {
					return fmt.Errorf("codegen: node %d (%s): %w", id, n.Kind, ErrMissingDims)
				}
				dimsLit = uintSliceLiteral(dims)
				bufLit = "nil"
			default:
				dims, ok := cfg.Dims[id]
				if !ok {
					return fmt.Errorf("codegen: node %d (%s): %w", id, n.Kind, ErrMissingDims)
				}
				dimsLit = uintSliceLiteral(dims)
				if n.StoredIn != dagraph.NoID {
					alias = varName(n.StoredIn)
				} else {
					bufLit = fmt.Sprintf("make([]%s, %d)", goType(rings[id]), dimsTotal(dims))
				}
			}

			views[i] = nodeView{
				ID:         id,
				VarName:    varName(id),
				Kind:       n.Kind.String(),
				KernelCall: call,
				ParentIDs:  n.Parents,
				ChildIDs:   children,
				HasWhile:   n.Kind == dagraph.KindControlTransferWhile,
				BufLit:     bufLit,
				BufField:   nodeBufField,
				DimsLit:    dimsLit,
				Alias:      alias,
				Static:     static[id],
			}

			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var initial []dagraph.ID
	var hasWhile bool
	for _, v := range views {
		if len(v.ParentIDs) == 0 {
			initial = append(initial, v.ID)
		}
		if v.HasWhile {
			hasWhile = true
		}
	}

	inputViews := make([]ioView, len(cfg.Inputs))
	for i, in := range cfg.Inputs {
		r := in.Space.Ring()
		inputViews[i] = ioView{Name: in.Name, Node: in.Node, GoType: goType(r), BufField: bufField(r)}
	}

	outputViews := make([]ioView, len(cfg.Outputs))
	for i, out := range cfg.Outputs {
		r := rings[out.Node]
		outputViews[i] = ioView{Name: out.Name, Node: out.Node, GoType: goType(r), BufField: bufField(r)}
	}

	data := struct {
		PackageName string
		Threads     int
		Nodes       []nodeView
		Initial     []dagraph.ID
		Outputs     []ioView
		Inputs      []ioView
		HasWhile    bool
	}{
		PackageName: cfg.PackageName,
		Threads:     cfg.Threads,
		Nodes:       views,
		Initial:     initial,
		Outputs:     outputViews,
		Inputs:      inputViews,
		HasWhile:    hasWhile,
	}

	var buf bytes.Buffer
	if err := programTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("codegen: template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("codegen: gofmt: %w", err)
	}

	return formatted, nil
}

// renderKernelCall produces the Go statement that performs node's actual
// arithmetic, dispatching on Kind the way
// CodeGenerator::GenerateOperationCode's switch does in the original. Kinds
// without a data operation (VECTOR, INPUT) render an empty body — their
// buffer is either a constant or filled by the host. Every operand/result
// reference goes through bufRef so a node's actual ring (Buf vs IntBuf)
// drives which engine.Node field the generated code reads or writes —
// kernel.Add/Contract/etc. are generic over kernel.Numeric and Go infers the
// instantiation from whichever field bufRef names.
func renderKernelCall(n *dagraph.Node, rings map[dagraph.ID]ring.Type, kronParams map[dagraph.ID]dagraph.KroneckerParams, outputNames map[dagraph.ID]string) (string, error) {
	if !n.Kind.HasDataOp() {
		return "// leaf: no kernel call", nil
	}

	self := bufRef(n.ID, rings)

	switch n.Kind {
	case dagraph.KindAddition:
		return fmt.Sprintf("kernel.Add(%s, %s, %s)", self, bufRef(n.Parents[0], rings), bufRef(n.Parents[1], rings)), nil
	case dagraph.KindScalarProduct:
		return fmt.Sprintf("kernel.Scale(%s, %s, %s[0])", self, bufRef(n.Parents[1], rings), bufRef(n.Parents[0], rings)), nil
	case dagraph.KindVectorProduct:
		return fmt.Sprintf("kernel.OuterProduct(%s, %s, %s)", self, bufRef(n.Parents[0], rings), bufRef(n.Parents[1], rings)), nil
	case dagraph.KindContraction:
		params, ok := n.Params.(dagraph.ContractParams)
		if !ok {
			return "", fmt.Errorf("contraction node missing ContractParams")
		}

		left, right := n.Parents[0], n.Parents[1]
		lKron, leftIsKron := kronParams[left]
		rKron, rightIsKron := kronParams[right]

		// A both-Kronecker contraction never reaches the emitter: the front
		// end folds it into a single Kronecker node (tensor.Contract).
		switch {
		case leftIsKron:
			return fmt.Sprintf(
				"kernel.ContractKronecker(%s, %s, %s.Dims, %s.Dims, %s, %v, %s, %s, true)",
				self, bufRef(right, rings), varName(right), varName(left),
				uintSliceLiteral(lKron.DeltaPairs), lKron.Scaling,
				uintSliceLiteral(params.LFactors), uintSliceLiteral(params.RFactors),
			), nil
		case rightIsKron:
			return fmt.Sprintf(
				"kernel.ContractKronecker(%s, %s, %s.Dims, %s.Dims, %s, %v, %s, %s, false)",
				self, bufRef(left, rings), varName(left), varName(right),
				uintSliceLiteral(rKron.DeltaPairs), rKron.Scaling,
				uintSliceLiteral(params.LFactors), uintSliceLiteral(params.RFactors),
			), nil
		default:
			return fmt.Sprintf(
				"kernel.Contract(%s, %s, %s, %s.Dims, %s.Dims, %s, %s)",
				self, bufRef(left, rings), bufRef(right, rings),
				varName(left), varName(right),
				uintSliceLiteral(params.LFactors), uintSliceLiteral(params.RFactors),
			), nil
		}
	case dagraph.KindPermutation:
		params, ok := n.Params.(dagraph.PermuteParams)
		if !ok {
			return "", fmt.Errorf("permutation node missing PermuteParams")
		}

		return fmt.Sprintf("kernel.Permute(%s, %s, %s.Dims, %s)",
			self, bufRef(n.Parents[0], rings), varName(n.Parents[0]), uintSliceLiteral(params.Indices)), nil
	case dagraph.KindProjection:
		params, ok := n.Params.(dagraph.ProjectParams)
		if !ok {
			return "", fmt.Errorf("projection node missing ProjectParams")
		}

		return fmt.Sprintf("kernel.Project(%s, %s, %s.Dims, %s)",
			self, bufRef(n.Parents[0], rings), varName(n.Parents[0]), rangeSliceLiteral(params.Ranges)), nil
	case dagraph.KindIndexSplitSum:
		return fmt.Sprintf("kernel.IndexSplitSum(%s, %s, %s.Dims)",
			self, bufRef(n.Parents[0], rings), varName(n.Parents[0])), nil
	case dagraph.KindMaxPool:
		params, ok := n.Params.(dagraph.MaxPoolParams)
		if !ok {
			return "", fmt.Errorf("max pool node missing MaxPoolParams")
		}

		return fmt.Sprintf("kernel.MaxPool(%s, %s, %s.Dims, %s)",
			self, bufRef(n.Parents[0], rings), varName(n.Parents[0]), uintSliceLiteral(params.PoolSize)), nil
	case dagraph.KindCrossCorrelation:
		return fmt.Sprintf("kernel.CrossCorrelate(%s, %s, %s, %s.Dims, %s.Dims)",
			self, bufRef(n.Parents[0], rings), bufRef(n.Parents[1], rings), varName(n.Parents[0]), varName(n.Parents[1])), nil
	case dagraph.KindComparisonIsSmaller:
		return fmt.Sprintf("%s[0] = kernel.IsSmaller(%s, %s)",
			self, bufRef(n.Parents[0], rings), bufRef(n.Parents[1], rings)), nil
	case dagraph.KindKroneckerDeltaProduct:
		return "// symbolic Kronecker delta: evaluated lazily by consuming contractions, no buffer of its own", nil
	case dagraph.KindPower:
		if params, ok := n.Params.(dagraph.ContractParams); ok {
			return fmt.Sprintf("kernel.PowerContract(%s, %s, %s.Dims, %s, %s, int32(%s[0]))",
				self, bufRef(n.Parents[0], rings), varName(n.Parents[0]),
				uintSliceLiteral(params.LFactors), uintSliceLiteral(params.RFactors),
				bufRef(n.Parents[1], rings)), nil
		}

		return fmt.Sprintf("kernel.PowerScalar(%s, %s, %s[0])",
			self, bufRef(n.Parents[0], rings), bufRef(n.Parents[1], rings)), nil
	case dagraph.KindJoinIndices:
		params, ok := n.Params.(dagraph.JoinIndicesParams)
		if !ok {
			return "", fmt.Errorf("join indices node missing JoinIndicesParams")
		}

		return fmt.Sprintf("kernel.JoinIndices(%s, %s, %s.Dims, %s, %s.Dims)",
			self, bufRef(n.Parents[0], rings), varName(n.Parents[0]), groupSliceLiteral(params.Groups), varName(n.ID)), nil
	case dagraph.KindOutput:
		name, ok := outputNames[n.ID]
		if !ok {
			return "", fmt.Errorf("output node %d has no registered name", n.ID)
		}

		return fmt.Sprintf("copy(%s, %s)\n%sCallback(%s)", self, bufRef(n.Parents[0], rings), name, self), nil
	case dagraph.KindControlTransferWhile:
		params, ok := n.Params.(dagraph.WhileParams)
		if !ok {
			return "", fmt.Errorf("while node missing WhileParams")
		}

		cond := bufRef(n.Parents[0], rings)

		var buf bytes.Buffer
		fmt.Fprintf(&buf, "if %s[0] != 0 {\n", cond)
		if params.BranchTrue != dagraph.NoID {
			fmt.Fprintf(&buf, "sched.PushJob(%s)\n", varName(params.BranchTrue))
		}
		buf.WriteString("} else {\n")
		if params.BranchFalse != dagraph.NoID {
			fmt.Fprintf(&buf, "sched.PushJob(%s)\n", varName(params.BranchFalse))
		}
		buf.WriteString("}")

		return buf.String(), nil
	default:
		return "", fmt.Errorf("no kernel rule for kind %s", n.Kind)
	}
}

func uintSliceLiteral(v []uint32) string {
	var buf bytes.Buffer
	buf.WriteString("[]uint32{")
	for i, x := range v {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%d", x)
	}
	buf.WriteString("}")

	return buf.String()
}

func float32SliceLiteral(v []float32) string {
	var buf bytes.Buffer
	buf.WriteString("[]float32{")
	for i, x := range v {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%v", x)
	}
	buf.WriteString("}")

	return buf.String()
}

// int32SliceLiteral renders an Int32Data initializer as a []int32 literal —
// an Int32-ring VECTOR node's buffer is IntBuf, not Buf (see bufField).
func int32SliceLiteral(v []int32) string {
	var buf bytes.Buffer
	buf.WriteString("[]int32{")
	for i, x := range v {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%d", x)
	}
	buf.WriteString("}")

	return buf.String()
}

func rangeSliceLiteral(ranges []dagraph.Range) string {
	var buf bytes.Buffer
	buf.WriteString("[]kernel.Range{")
	for i, r := range ranges {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "{Lo: %d, Hi: %d}", r.Lo, r.Hi)
	}
	buf.WriteString("}")

	return buf.String()
}

func groupSliceLiteral(groups [][]uint32) string {
	var buf bytes.Buffer
	buf.WriteString("[][]uint32{")
	for i, g := range groups {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(uintSliceLiteral(g))
	}
	buf.WriteString("}")

	return buf.String()
}

var programTemplate = template.Must(template.New("program").Parse(`// Code generated by codegen.Emit; DO NOT EDIT.

package {{.PackageName}}

import (
	"github.com/siquus/dac-sub000/engine"
	"github.com/siquus/dac-sub000/kernel"
)

{{range .Nodes}}
var {{.VarName}} = &engine.Node{ID: {{.ID}}}
{{- end}}
{{if .HasWhile}}
// sched is the running Scheduler, captured by every WHILE node's kernel
// closure so it can PushJob its branch target at run time (spec.md §4.7).
// It is nil until Run assigns it, which happens before Start ever invokes a
// kernel; Build only constructs the closures, it does not call them.
var sched *engine.Scheduler
{{end}}
// Build wires every node's kernel closure and parent/child pointers, then
// returns the table plus the initial job set (nodes with no parents). Every
// node's buffer (Buf or IntBuf, chosen by its ring) is either a fresh slice
// sized from the output shape recorded at graph-construction time
// (Config.Dims, since dagraph.Node itself carries no vspace.VectorSpace —
// see DESIGN.md), a literal constant for a VECTOR node with an initializer,
// or — for a node with a StoredIn relation — the same slice as its storage
// target's buffer, so a WHILE re-entry writes its new value directly where
// the next round will read it. WHILE and Kronecker-delta nodes get a nil
// buffer.
func Build() ([]*engine.Node, []*engine.Node) {
	{{range .Nodes}}
	{{.VarName}}.Parents = []*engine.Node{ {{- range $i, $p := .ParentIDs}}{{if $i}}, {{end}}node{{$p}}{{- end}} }
	{{.VarName}}.Children = []*engine.Node{ {{- range $i, $c := .ChildIDs}}{{if $i}}, {{end}}node{{$c}}{{- end}} }
	{{.VarName}}.Dims = {{.DimsLit}}
	{{- if .Static}}
	{{.VarName}}.Static = true
	{{- end}}
	{{- if .Alias}}
	{{.VarName}}.{{.BufField}} = {{.Alias}}.{{.BufField}}
	{{- else}}
	{{.VarName}}.{{.BufField}} = {{.BufLit}}
	{{- end}}
	{{.VarName}}.Run = func() {
		{{.KernelCall}}
	}
	{{end}}

	nodes := []*engine.Node{
		{{- range .Nodes}}
		{{.VarName}},
		{{- end}}
	}

	initial := []*engine.Node{
		{{- range .Initial}}
		node{{.}},
		{{- end}}
	}

	return nodes, initial
}

{{range .Inputs}}
// {{.Name}}CallbackT is the producer callback for the {{.Name}} input: it is
// invoked once, right after Build allocates the input's buffer and before
// the scheduler starts, so the host can fill buf in place.
type {{.Name}}CallbackT func(buf []{{.GoType}})

var {{.Name}}Callback {{.Name}}CallbackT

// {{.Name}}Register registers the {{.Name}} input's producer callback. Run
// aborts if it is never called.
func {{.Name}}Register(cb {{.Name}}CallbackT) {
	{{.Name}}Callback = cb
}
{{end}}
{{range .Outputs}}
// {{.Name}}CallbackT is the consumer callback for the {{.Name}} output: it
// is invoked once per activation of the {{.Name}} node, from inside its
// kernel, with that node's own buffer.
type {{.Name}}CallbackT func(buf []{{.GoType}})

var {{.Name}}Callback {{.Name}}CallbackT

// {{.Name}}Register registers the {{.Name}} output's consumer callback. Run
// aborts if it is never called.
func {{.Name}}Register(cb {{.Name}}CallbackT) {
	{{.Name}}Callback = cb
}
{{end}}
// Run checks every registered Input/Output callback, builds the graph, hands
// each Input its freshly allocated buffer to fill, and executes the graph to
// completion on threads worker goroutines. It panics if any Input or Output
// callback was never registered — the Go analog of
// original_source/src/CodeGenerator.cpp's GenerateCallbackPtCheck, run once
// up front before the scheduler starts rather than re-checked on every
// activation.
func Run(threads int) *engine.Scheduler {
	{{range .Inputs}}
	if {{.Name}}Callback == nil {
		panic("{{$.PackageName}}: {{.Name}} input callback not registered")
	}
	{{end}}
	{{range .Outputs}}
	if {{.Name}}Callback == nil {
		panic("{{$.PackageName}}: {{.Name}} output callback not registered")
	}
	{{end}}
	_, initial := Build()
	{{range .Inputs}}
	{{.Name}}Callback(node{{.Node}}.{{.BufField}})
	{{end}}
	{{if .HasWhile}}
	sched = engine.NewScheduler(threads)
	sched.Start(initial)

	return sched
	{{else}}
	return engine.Run(threads, initial)
	{{end}}
}
`))
