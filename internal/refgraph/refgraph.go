// Package refgraph computes, per function, a summary of its inter-
// procedural memory effects: which globals it may leak the address of,
// which objects it reads or writes (wholly or at specific byte ranges),
// which functions it calls directly, and whether it raises, has indirect
// calls, or hits a barrier (spec §4.3).
package refgraph

import (
	"llir-opt/internal/callgraph"
	"llir-opt/internal/ir"
)

// OffsetRange is a half-open [Start, End) byte range within an object.
type OffsetRange struct{ Start, End int64 }

// OffsetSet is the set of byte ranges a Node has accurately attributed to
// an object (spec §3: "OffsetSet").
type OffsetSet map[OffsetRange]bool

// Node is one function's (or SCC's) reference summary (§4.3).
type Node struct {
	HasIndirectCalls bool
	HasRaise         bool
	HasBarrier       bool

	Escapes map[*ir.Global]bool

	ReadRanges  map[*ir.Object]bool // objects read whole (inaccurate)
	ReadOffsets map[*ir.Object]OffsetSet

	Written        map[*ir.Object]bool // objects written whole (inaccurate)
	WrittenOffsets map[*ir.Object]OffsetSet

	Called map[*ir.Function]bool
	Blocks map[*ir.Block]bool
}

func newNode() *Node {
	return &Node{
		Escapes:        make(map[*ir.Global]bool),
		ReadRanges:     make(map[*ir.Object]bool),
		ReadOffsets:    make(map[*ir.Object]OffsetSet),
		Written:        make(map[*ir.Object]bool),
		WrittenOffsets: make(map[*ir.Object]OffsetSet),
		Called:         make(map[*ir.Function]bool),
		Blocks:         make(map[*ir.Block]bool),
	}
}

// merge folds that into n, mirroring ReferenceGraph::Node::Merge: reading
// or writing an object wholly (inaccurately) anywhere subsumes any
// accurate offsets previously known for it.
func (n *Node) merge(that *Node) {
	n.HasIndirectCalls = n.HasIndirectCalls || that.HasIndirectCalls
	n.HasRaise = n.HasRaise || that.HasRaise
	n.HasBarrier = n.HasBarrier || that.HasBarrier

	for g := range that.Escapes {
		n.Escapes[g] = true
	}
	for o := range that.ReadRanges {
		n.ReadRanges[o] = true
	}
	for o := range n.ReadOffsets {
		if n.ReadRanges[o] {
			delete(n.ReadOffsets, o)
		}
	}
	for o, offs := range that.ReadOffsets {
		if n.ReadRanges[o] {
			continue
		}
		dst := n.ReadOffsets[o]
		if dst == nil {
			dst = make(OffsetSet)
			n.ReadOffsets[o] = dst
		}
		for r := range offs {
			dst[r] = true
		}
	}

	for o := range that.Written {
		n.Written[o] = true
	}
	for o := range n.WrittenOffsets {
		if n.Written[o] {
			delete(n.WrittenOffsets, o)
		}
	}
	for o, offs := range that.WrittenOffsets {
		if n.Written[o] {
			continue
		}
		dst := n.WrittenOffsets[o]
		if dst == nil {
			dst = make(OffsetSet)
			n.WrittenOffsets[o] = dst
		}
		for r := range offs {
			dst[r] = true
		}
	}

	for f := range that.Called {
		n.Called[f] = true
	}
	for b := range that.Blocks {
		n.Blocks[b] = true
	}
}

func (n *Node) addRead(o *ir.Object) {
	n.ReadRanges[o] = true
	delete(n.ReadOffsets, o)
}

func (n *Node) addWrite(o *ir.Object) {
	n.Written[o] = true
	delete(n.WrittenOffsets, o)
}

func (n *Node) escapeObject(o *ir.Object) {
	for _, a := range o.Atoms {
		n.Escapes[a.Global] = true
	}
}

// ReferenceGraph lazily computes and caches per-function Nodes, built
// bottom-up over the call graph's SCCs (§4.3) on first query.
type ReferenceGraph struct {
	prog       *ir.Program
	cg         *callgraph.CallGraph
	funcToNode map[*ir.Function]*Node
	built      bool
}

// New creates a ReferenceGraph for prog over its already-built call graph.
// Construction is deferred until the first call to For.
func New(prog *ir.Program, cg *callgraph.CallGraph) *ReferenceGraph {
	return &ReferenceGraph{prog: prog, cg: cg, funcToNode: make(map[*ir.Function]*Node)}
}

// For returns f's reference summary, building the whole graph on first
// use (§4.3: "the analysis ... &func]").
func (rg *ReferenceGraph) For(f *ir.Function) *Node {
	if !rg.built {
		rg.build()
		rg.built = true
	}
	return rg.funcToNode[f]
}

func (rg *ReferenceGraph) build() {
	for _, scc := range rg.cg.SCCs() {
		node := newNode()
		for _, n := range scc {
			if n.Func != nil {
				rg.extractReferences(n.Func, node)
			}
		}
		for _, n := range scc {
			if n.Func != nil {
				rg.funcToNode[n.Func] = node
			}
		}
	}
}

// extractReferences walks every instruction of f, merging in the
// already-computed summaries of its direct callees (available because
// SCCs are iterated bottom-up) and classifying every `mov` of a Global or
// SymbolOffset expression (§4.3).
func (rg *ReferenceGraph) extractReferences(f *ir.Function, node *Node) {
	for _, b := range f.Blocks {
		for _, inst := range b.Instructions {
			switch {
			case inst.IsCallSite():
				if callee := callgraph.DirectCallee(inst); callee != nil {
					if callee != f {
						if calleeNode, ok := rg.funcToNode[callee]; ok {
							node.merge(calleeNode)
						}
					}
				} else {
					node.HasIndirectCalls = true
				}
			case inst.Kind == ir.KindMov:
				rg.classifyMov(inst, node)
			case inst.Kind == ir.KindRaise:
				node.HasRaise = true
			}
		}
	}
}

// classifyMov dispatches on a mov's argument kind: a bare Global, a
// SymbolOffset Expr, or anything else (instruction result / constant,
// which carries no symbolic reference and is skipped).
func (rg *ReferenceGraph) classifyMov(mov *ir.Instruction, node *Node) {
	if len(mov.Operands) != 1 {
		return
	}
	switch arg := mov.Operands[0].Get().(type) {
	case *ir.Global:
		rg.extractGlobal(arg, 0, mov, node)
	case *ir.Expr:
		rg.extractGlobal(arg.Symbol, arg.Offset, mov, node)
	default:
		// instruction result or leaf constant: no symbol to classify.
	}
}

func (rg *ReferenceGraph) extractGlobal(g *ir.Global, offset int64, mov *ir.Instruction, node *Node) {
	switch g.Kind {
	case ir.GlobalFunc:
		if hasIndirectUses(mov) {
			node.Escapes[g] = true
		} else {
			node.Called[g.Func] = true
		}
	case ir.GlobalBlock:
		node.Blocks[g.BlockOf] = true
	case ir.GlobalExtern:
		node.Escapes[g] = true
	case ir.GlobalAtom:
		// §4.3 REDESIGN FLAGS (a): caml_globals is explicitly skipped in
		// the source; reproduce the skip verbatim.
		if g.Name == "caml_globals" {
			return
		}
		object := g.AtomOf.Object
		if len(object.Atoms) == 1 {
			classifyAccurate(object, mov, offset, node)
		} else {
			classifyInaccurate(object, mov, node)
		}
	}
}

// hasIndirectUses reports whether any use of mov (transitively through a
// chain of further movs) is something other than "sole argument to the
// call it is the callee of" -- i.e. the function's address genuinely
// escapes. Ported from the source's HasIndirectUses helper (§4.3).
func hasIndirectUses(mov *ir.Instruction) bool {
	queue := []*ir.Instruction{mov}
	seen := map[*ir.Instruction]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, use := range cur.Users() {
			inst := use.OwnerInst()
			if inst == nil {
				return true
			}
			if inst.Kind == ir.KindMov {
				queue = append(queue, inst)
				continue
			}
			if inst.IsCallSite() && inst.Callee == use {
				continue
			}
			return true
		}
	}
	return false
}
