// Package camlalloc implements the OCaml allocation inliner (spec §4.5): a
// CFG rewrite that replaces every call site calling, by name, one of the
// `caml_alloc{1,2,3,N}` runtime intrinsics with the young-heap bump-pointer
// fast path and a slow path that falls back to `caml_call_gc`.
//
// The callee resolution deliberately does not reuse internal/callgraph's
// DirectCallee: that helper only resolves calls landing on a Global of
// kind GlobalFunc (a function defined in this program), whereas
// caml_alloc1/2/3/N are runtime intrinsics this program only ever
// declares, via Program.GetOrCreateExtern, as GlobalExtern placeholders.
package camlalloc

import (
	"llir-opt/internal/cfg"
	"llir-opt/internal/ir"
	"llir-opt/token"
)

// Result summarizes one Run's work.
type Result struct {
	Inlined int
}

// variant describes one caml_alloc{1,2,3,N} intrinsic: its symbol name and
// the young-heap bump it requires (0 for the N variant, which inserts no
// subtract and leaves sizing to the callee, §4.5 step 1).
type variant struct {
	name  string
	bytes int64
}

var variants = []variant{
	{"caml_alloc1", 16},
	{"caml_alloc2", 24},
	{"caml_alloc3", 32},
	{"caml_allocN", 0},
}

// Run rewrites every eligible call site in every function of prog, in
// place, returning how many sites were inlined.
func Run(prog *ir.Program) Result {
	var res Result
	for _, f := range prog.Functions {
		res.Inlined += runFunction(prog, f)
	}
	return res
}

// runFunction walks f's blocks collecting eligible call sites first (the
// rewrite mutates and inserts blocks, so mutating the block list while
// iterating it would be unsound), then rewrites each in turn.
func runFunction(prog *ir.Program, f *ir.Function) int {
	var sites []*ir.Instruction
	for _, b := range f.Blocks {
		for _, inst := range b.Instructions {
			if !inst.IsCallSite() || inst.CallConv != token.CallingConvCamlAlloc {
				continue
			}
			if _, ok := resolveVariant(inst); ok {
				sites = append(sites, inst)
			}
		}
	}
	for _, inst := range sites {
		rewrite(prog, f, inst)
	}
	return len(sites)
}

// resolveVariant follows the callee operand through a chain of `movs the
// way callgraph.resolveCalleeValue does, but matches on Global.Name
// directly so it works whether the intrinsic is declared GlobalExtern or
// (in a test program that defines it) GlobalFunc.
func resolveVariant(inst *ir.Instruction) (variant, bool) {
	if inst.Callee == nil {
		return variant{}, false
	}
	g := resolveCalleeGlobal(inst.Callee.Get())
	if g == nil {
		return variant{}, false
	}
	for _, v := range variants {
		if g.Name == v.name {
			return v, true
		}
	}
	return variant{}, false
}

func resolveCalleeGlobal(v ir.Value) *ir.Global {
	switch val := v.(type) {
	case *ir.Global:
		return val
	case *ir.Instruction:
		if val.Kind == ir.KindMov && len(val.Operands) == 1 {
			return resolveCalleeGlobal(val.Operands[0].Get())
		}
		return nil
	default:
		return nil
	}
}

// val is an (value, sub-result index) pair, the unit this package threads
// through every new operand it creates -- state_ptr/young_ptr/the GC
// call's results may themselves be a specific sub-result of a
// multi-result instruction, and the convenience ir.NewXInst constructors
// always bind index 0, so every new use built here goes through
// AddOperandIndexed instead of those constructors.
type val struct {
	v   ir.Value
	idx int
}

func of(op *ir.Operand) val { return val{v: op.Get(), idx: op.Index()} }
func lit(v ir.Value) val    { return val{v: v, idx: 0} }

func unary(kind ir.Kind, a val, typ ir.Type) *ir.Instruction {
	inst := ir.NewBareInst(kind, typ)
	inst.AddOperandIndexed(a.v, a.idx)
	return inst
}

func binary(kind ir.Kind, a, b val, typ ir.Type) *ir.Instruction {
	inst := ir.NewBareInst(kind, typ)
	inst.AddOperandIndexed(a.v, a.idx)
	inst.AddOperandIndexed(b.v, b.idx)
	return inst
}

func cmp(cond token.Cond, a, b val, typ ir.Type) *ir.Instruction {
	inst := binary(ir.KindCmp, a, b, typ)
	inst.Cond = cond
	return inst
}

func jumpCond(flag val, ifTrue, ifFalse *ir.Block) *ir.Instruction {
	inst := ir.NewBareInst(ir.KindJumpCond)
	inst.AddOperandIndexed(flag.v, flag.idx)
	inst.IfTrue = ifTrue
	inst.IfFalse = ifFalse
	return inst
}

func callSite(kind ir.Kind, callee val, args []val, conv token.CallingConv, numFixed int, target, unwind *ir.Block, types ...ir.Type) *ir.Instruction {
	inst := ir.NewBareInst(kind, types...)
	inst.Callee = inst.AddOperandIndexed(callee.v, callee.idx)
	inst.Args = make([]*ir.Operand, len(args))
	for i, a := range args {
		inst.Args[i] = inst.AddOperandIndexed(a.v, a.idx)
	}
	inst.CallConv = conv
	inst.NumFixedArgs = numFixed
	inst.Target = target
	inst.Unwind = unwind
	return inst
}

func returnInst(vals ...val) *ir.Instruction {
	inst := ir.NewBareInst(ir.KindReturn)
	for _, v := range vals {
		inst.AddOperandIndexed(v.v, v.idx)
	}
	return inst
}

// prependPhi inserts phi at the very front of b's instruction chain,
// ahead of any phis already there. Callers that need several phis in a
// specific top-to-bottom order must call this once per phi, back to
// front (last-desired-first), since each call re-reads b.Instructions[0].
func prependPhi(b *ir.Block, phi *ir.Instruction) {
	if len(b.Instructions) == 0 {
		b.AddInst(phi)
		return
	}
	b.InsertBefore(b.Instructions[0], phi)
}

// addMirroredIncoming gives every phi already in b an additional incoming
// edge from add, carrying whatever value it already takes from from. Used
// when a reused continuation already had phis of its own: gc becomes a
// second predecessor alongside the original caller block, so those phis
// need a matching edge too (§4.5 step 5).
func addMirroredIncoming(b *ir.Block, from, add *ir.Block) {
	for _, p := range b.Phis() {
		if op, ok := p.IncomingFor(from); ok {
			p.AddIncomingIndexed(add, op.Get(), op.Index())
		}
	}
}

func rekeyIncoming(b *ir.Block, from, to *ir.Block) {
	for _, p := range b.Phis() {
		for i, edge := range p.Incoming {
			if edge.Pred == from {
				p.Incoming[i].Pred = to
			}
		}
	}
}

// rewrite performs the five-step CFG rewrite described in §4.5 for one
// eligible call site.
func rewrite(prog *ir.Program, f *ir.Function, inst *ir.Instruction) {
	v, _ := resolveVariant(inst)

	state := of(inst.Args[0])
	yp := of(inst.Args[1])
	types := append([]ir.Type(nil), inst.Types...)
	b := inst.Block()

	gc := b.Split(inst, f.NextSyntheticLabel("gc"))

	if inst.Kind == ir.KindTailCall {
		rewriteTailCall(prog, f, inst, b, gc, v, state, yp)
		return
	}

	cont := inst.Target
	unwind := inst.Unwind
	c := cfg.Build(f)
	reuse := len(c.Predecessors(cont)) == 1

	var noGC *ir.Block
	if reuse {
		noGC = cont
	} else {
		noGC = ir.NewBlock(f.NextSyntheticLabel("alloc"))
		f.InsertBlockAfter(gc, noGC)
		noGC.AddInst(ir.NewJumpInst(cont))
	}

	// Step 4: the slow path's GC call, preserving invoke's unwind edge.
	movCallee := unary(ir.KindMov, lit(prog.GetOrCreateExtern("caml_call_gc")), ir.I64)
	gc.AddInst(movCallee)
	newYoung := computeNewYoung(b, v, yp)

	var gcCall *ir.Instruction
	if inst.Kind == ir.KindInvoke {
		gcCall = callSite(ir.KindInvoke, lit(movCallee), []val{state, newYoung}, token.CallingConvCamlGc, 2, noGC, unwind, types...)
		rekeyIncoming(unwind, b, gc)
	} else {
		gcCall = callSite(ir.KindCall, lit(movCallee), []val{state, newYoung}, token.CallingConvCamlGc, 2, noGC, nil, types...)
	}
	gc.AddInst(gcCall)
	gcCall.Annot.Move(&inst.Annot)

	// Step 3: the guard, inserted into b.
	addGuard(b, noGC, gc, state, newYoung)

	// Step 5: merge (b, initial) with (gc, GC-call return) in no_gc. Any
	// phi already in a reused no_gc gained a second predecessor (gc
	// alongside b) and needs a mirrored incoming edge before ours are
	// prepended; a freshly created no_gc has none yet, so this is a no-op.
	addMirroredIncoming(noGC, b, gc)

	phiS := ir.NewPhiInst(types[0])
	addIncomingVal(phiS, b, state)
	phiS.AddIncomingIndexed(gc, gcCall, 0)
	phiY := ir.NewPhiInst(types[1])
	addIncomingVal(phiY, b, newYoung)
	phiY.AddIncomingIndexed(gc, gcCall, 1)
	prependPhi(noGC, phiY)
	prependPhi(noGC, phiS)

	redirectResults(inst, phiS, phiY)
	b.Erase(inst)
}

func addIncomingVal(phi *ir.Instruction, pred *ir.Block, v val) {
	phi.AddIncomingIndexed(pred, v.v, v.idx)
}

// computeNewYoung builds step 1's bump (skipped for the N variant, which
// leaves sizing to the callee) and appends it to b.
func computeNewYoung(b *ir.Block, v variant, yp val) val {
	if v.bytes == 0 {
		return yp
	}
	movBytes := unary(ir.KindMov, lit(ir.NewConstantInt(v.bytes, ir.I64)), ir.I64)
	b.AddInst(movBytes)
	sub := binary(ir.KindSub, yp, lit(movBytes), ir.I64)
	b.AddInst(sub)
	return lit(sub)
}

// addGuard appends step 3's young_limit load, compare, and conditional
// branch to b.
func addGuard(b *ir.Block, noGC, gc *ir.Block, state, newYoung val) {
	mov8 := unary(ir.KindMov, lit(ir.NewConstantInt(8, ir.I64)), ir.I64)
	b.AddInst(mov8)
	addr := binary(ir.KindAdd, state, lit(mov8), ir.I64)
	b.AddInst(addr)
	limit := unary(ir.KindLoad, lit(addr), ir.I64)
	b.AddInst(limit)
	flag := cmp(token.CondUGE, newYoung, lit(limit), ir.I64)
	b.AddInst(flag)
	jcc := jumpCond(lit(flag), noGC, gc)
	jcc.Annot.Set(ir.AnnotProbability, ir.Probability{N: 1, D: 1})
	b.AddInst(jcc)
}

// redirectResults rewires every use of the original call's results to the
// phis that now carry them (§4.5 step 5).
func redirectResults(inst *ir.Instruction, phiS, phiY *ir.Instruction) {
	for _, use := range inst.Users() {
		if use.Index() == 0 {
			use.Set(phiS, 0)
		} else {
			use.Set(phiY, 0)
		}
	}
}

// rewriteTailCall handles the tail-call form: each path ends in an
// explicit return instead of merging through phis (§4.5, "Tail-call
// variants produce an explicit return in the no-gc block instead of
// rewiring uses"). A tail call has no declared result types of its own
// (NewTailCallInst never takes any); state_ptr and young_ptr are always
// pointer-width, so the slow path's real call and both returns use I64
// directly rather than borrowing inst.Types.
func rewriteTailCall(prog *ir.Program, f *ir.Function, inst *ir.Instruction, b, gc *ir.Block, v variant, state, yp val) {
	gcRet := ir.NewBlock(f.NextSyntheticLabel("allocret"))
	f.InsertBlockAfter(gc, gcRet)
	noGC := ir.NewBlock(f.NextSyntheticLabel("alloc"))
	f.InsertBlockAfter(gcRet, noGC)

	newYoung := computeNewYoung(b, v, yp)
	addGuard(b, noGC, gc, state, newYoung)

	movCallee := unary(ir.KindMov, lit(prog.GetOrCreateExtern("caml_call_gc")), ir.I64)
	gc.AddInst(movCallee)
	gcCall := callSite(ir.KindCall, lit(movCallee), []val{state, newYoung}, token.CallingConvCamlGc, 2, gcRet, nil, ir.I64, ir.I64)
	gc.AddInst(gcCall)
	gcCall.Annot.Move(&inst.Annot)
	gcRet.AddInst(returnInst(val{v: gcCall, idx: 0}, val{v: gcCall, idx: 1}))

	noGC.AddInst(returnInst(state, newYoung))

	b.Erase(inst)
}
