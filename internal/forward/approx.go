package forward

import (
	"llir-opt/internal/cfg"
	"llir-opt/internal/ir"
)

// approximateLoop returns every object a loop DAG node may read or write
// (§4.4's loop Transfer: "run the Approximator over every instruction" and
// forget precise tracking on anything it touches). A cycle has no single
// execution order, so this only accumulates the touched set across every
// block of the loop, unordered -- it never folds or kills anything itself,
// and the objects it names are excluded from every chain in the function,
// not only the chains adjacent to the loop, since the loop may run any
// number of times interleaved with them.
func approximateLoop(node *cfg.DAGNode) map[*ir.Object]bool {
	touched := map[*ir.Object]bool{}
	for _, b := range node.Blocks {
		for _, inst := range b.Instructions {
			switch inst.Kind {
			case ir.KindStore, ir.KindXchg, ir.KindLoad:
				if t, ok := resolveAddr(inst.Operands[0].Get()); ok {
					touched[t.Object] = true
				}
			}
		}
	}
	return touched
}

// loopTouchedObjects unions approximateLoop over every loop node in d.
func loopTouchedObjects(d *cfg.DAG) map[*ir.Object]bool {
	touched := map[*ir.Object]bool{}
	for _, node := range d.Nodes {
		if !node.IsLoop {
			continue
		}
		for o := range approximateLoop(node) {
			touched[o] = true
		}
	}
	return touched
}
