package forward

import "llir-opt/internal/ir"

// ObjectClosure is the transitive set of objects and functions reachable
// from a root object through embedded symbol references in its own
// initialized data -- an ItemExpr item naming another atom or a function's
// Global, the data-section analogue of a pointer (§4.4's "Construction"
// step over the object graph, §3's Item.Expr). A function-level Escapes
// entry only means a code-level mov let the address out; ObjectClosure is
// what lets that single escape taint every object the leaked data itself
// points to.
type ObjectClosure struct {
	Objects map[*ir.Object]bool
	Funcs   map[*ir.Function]bool
}

// objectClosure returns (building and caching on first use) obj's
// ObjectClosure.
func (fw *Forwarder) objectClosure(obj *ir.Object) *ObjectClosure {
	if oc, ok := fw.objClosures[obj]; ok {
		return oc
	}
	oc := &ObjectClosure{Objects: map[*ir.Object]bool{obj: true}, Funcs: map[*ir.Function]bool{}}
	queue := []*ir.Object{obj}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, a := range cur.Atoms {
			for _, it := range a.Items {
				if it.Kind != ir.ItemExpr || it.Expr == nil {
					continue
				}
				g := it.Expr.Symbol
				switch g.Kind {
				case ir.GlobalFunc:
					oc.Funcs[g.Func] = true
				case ir.GlobalAtom:
					ref := g.AtomOf.Object
					if !oc.Objects[ref] {
						oc.Objects[ref] = true
						queue = append(queue, ref)
					}
				}
			}
		}
	}
	fw.objClosures[obj] = oc
	return oc
}

// FuncClosure is a function's transitive inter-procedural effect summary
// (§4.4's FuncClosure): every object it, or anything it directly calls,
// may read, write, or let escape -- expanded through ObjectClosure so a
// function that leaks the address of a data-section atom is understood to
// also leak every object that atom's own literal data refers to.
type FuncClosure struct {
	Touched  map[*ir.Object]bool
	Indirect bool
	Raises   bool
}

// funcClosure returns (building and caching on first use) f's FuncClosure.
// refgraph's per-function Node is already the bottom-up merge of every
// direct callee's summary (its SCCs are iterated leaves-first), so this is
// largely a projection of that Node rather than a second call-graph walk;
// the one thing it adds is the ObjectClosure expansion of escaped atoms.
func (fw *Forwarder) funcClosure(f *ir.Function) *FuncClosure {
	if fc, ok := fw.funcClosures[f]; ok {
		return fc
	}
	n := fw.rg.For(f)
	fc := &FuncClosure{Touched: map[*ir.Object]bool{}, Indirect: n.HasIndirectCalls, Raises: n.HasRaise}
	for o := range n.Written {
		fc.Touched[o] = true
	}
	for o := range n.ReadRanges {
		fc.Touched[o] = true
	}
	for o := range n.WrittenOffsets {
		fc.Touched[o] = true
	}
	for o := range n.ReadOffsets {
		fc.Touched[o] = true
	}
	for g := range n.Escapes {
		if g.Kind == ir.GlobalAtom {
			oc := fw.objectClosure(g.AtomOf.Object)
			for o := range oc.Objects {
				fc.Touched[o] = true
			}
		}
	}
	fw.funcClosures[f] = fc
	return fc
}
