// Package forward implements the global forwarder (spec §4.4): a
// context-sensitive, inter-procedural dataflow pass that folds stores of
// compile-time-known constants back into a program's initialized data and
// removes stores that are provably dead.
//
// The engine is organized the way §4.4 separates its own: a Construction
// step run once per Forwarder (closure.go's ObjectClosure/FuncClosure,
// indirect.go's indirect-call closure fixed point), then a per-function
// pass that walks every maximal straight-line region of the function's DAG
// (chains.go) folding/killing stores within it (fold.go), with loop bodies
// first summarized by an Approximator (approx.go) so a loop's effects are
// never silently invisible to the surrounding chains. A chain plays the
// role of §4.4's NodeState/ReverseNodeState pair restricted to a region
// with exactly one execution order; DESIGN.md records why the general
// multi-predecessor join and literal cross-function FuncState splicing
// this generalizes are scoped out rather than replayed verbatim.
package forward

import (
	"llir-opt/internal/callgraph"
	"llir-opt/internal/ir"
	"llir-opt/internal/refgraph"
)

// Forwarder runs the global-forwarding pass over one function at a time,
// consulting the program's call graph and reference graph to decide which
// objects are safe to reason about (never escape, never touched
// inaccurately, never reachable through an indirect call, and never
// touched outside the function being forwarded). The closure/indirect
// caches are built lazily and shared across every Run call on the same
// Forwarder, mirroring §4.4's "Construction ... performed once" step.
type Forwarder struct {
	prog *ir.Program
	cg   *callgraph.CallGraph
	rg   *refgraph.ReferenceGraph

	objClosures     map[*ir.Object]*ObjectClosure
	funcClosures    map[*ir.Function]*FuncClosure
	indirectTouched map[*ir.Object]bool

	NumStoresFolded int
	NumStoresKilled int
}

// New creates a Forwarder over prog, given its already-built call graph.
func New(prog *ir.Program, cg *callgraph.CallGraph) *Forwarder {
	return &Forwarder{
		prog:         prog,
		cg:           cg,
		rg:           refgraph.New(prog, cg),
		objClosures:  make(map[*ir.Object]*ObjectClosure),
		funcClosures: make(map[*ir.Function]*FuncClosure),
	}
}

// objectSafe reports whether obj's accesses within f are fully accounted
// for: never read/written inaccurately, never escaped (directly or
// through another object's ObjectClosure), never reachable from an
// indirect call site anywhere in the program, and never touched by any
// other function.
func (fw *Forwarder) objectSafe(f *ir.Function, obj *ir.Object) bool {
	n := fw.rg.For(f)
	if n.HasIndirectCalls || n.HasBarrier {
		return false
	}
	if n.Written[obj] || n.ReadRanges[obj] {
		return false
	}
	for _, a := range obj.Atoms {
		if n.Escapes[a.Global] {
			return false
		}
	}
	if fw.escapesTransitively(n, obj) {
		return false
	}
	if fw.indirectClosure()[obj] {
		return false
	}
	return fw.objectOwnedSolelyBy(f, obj)
}

// escapesTransitively reports whether obj is reachable from one of n's
// directly escaped atoms through that atom's ObjectClosure -- the
// data-section analogue of pointer aliasing, where one object's
// initialized bytes embed a reference (ir.ItemExpr) naming another. A
// direct refgraph escape only proves the container escaped; this proves
// obj escapes with it.
func (fw *Forwarder) escapesTransitively(n *refgraph.Node, obj *ir.Object) bool {
	for g := range n.Escapes {
		if g.Kind != ir.GlobalAtom {
			continue
		}
		if fw.objectClosure(g.AtomOf.Object).Objects[obj] {
			return true
		}
	}
	return false
}

// objectOwnedSolelyBy reports whether no function other than f touches
// obj at all -- the whole-program half of the safety check, since a
// per-function reference-graph Node only summarizes that function's own
// (transitive) call subtree, not unrelated callers elsewhere in the
// program (§4.4's NodeState is scoped the same way: per call-path, not
// whole-program). Unlike objectSafe's check on f itself, any touch at
// all by another function disqualifies obj -- f's own accurate
// WrittenOffsets/ReadOffsets are exactly what this pass folds, but
// another function's are not f's to reason about. funcClosure already
// folds in that function's ObjectClosure-expanded escapes, so a single
// membership test covers direct, inaccurate, and transitively-escaped
// touches alike.
func (fw *Forwarder) objectOwnedSolelyBy(f *ir.Function, obj *ir.Object) bool {
	for _, other := range fw.prog.Functions {
		if other == f {
			continue
		}
		if fw.funcClosure(other).Touched[obj] {
			return false
		}
	}
	return true
}
