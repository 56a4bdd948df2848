package forward

import "llir-opt/internal/ir"

// indirectClosure computes, once per Forwarder and shared across every
// function it runs, the set of objects reachable through an indirect call
// anywhere in the program (§4.4's "queue-driven Indirect closure fixed
// point"): any function whose address escapes is a plausible indirect-call
// target, so the union of their FuncClosures is unsafe to assume untouched
// across any indirect call site. A target's own FuncClosure is already the
// bottom-up merge of everything it directly calls, so one pass over the
// escaped-function set is the fixed point -- iterating further would only
// re-union closures already folded in.
func (fw *Forwarder) indirectClosure() map[*ir.Object]bool {
	if fw.indirectTouched != nil {
		return fw.indirectTouched
	}
	targets := map[*ir.Function]bool{}
	for _, f := range fw.prog.Functions {
		n := fw.rg.For(f)
		for g := range n.Escapes {
			if g.Kind == ir.GlobalFunc {
				targets[g.Func] = true
			}
		}
	}

	touched := map[*ir.Object]bool{}
	for target := range targets {
		fc := fw.funcClosure(target)
		for o := range fc.Touched {
			touched[o] = true
		}
	}
	fw.indirectTouched = touched
	return touched
}
