package forward_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llir-opt/internal/callgraph"
	"llir-opt/internal/forward"
	"llir-opt/internal/ir"
	"llir-opt/token"
)

func addFunc(p *ir.Program, name string) *ir.Function {
	f := ir.NewFunction(name, token.CallingConvC)
	if err := p.AddFunction(f); err != nil {
		panic(err)
	}
	b := ir.NewBlock("entry")
	f.AddBlock(b)
	return f
}

func addAtomObject(p *ir.Program, name string) (*ir.Object, *ir.Atom) {
	ds := p.AddData("data")
	obj := ds.AddObject()
	atom, err := obj.AddAtom(p, name, ir.VisibilityLocal)
	if err != nil {
		panic(err)
	}
	return obj, atom
}

func containsInst(insts []*ir.Instruction, target *ir.Instruction) bool {
	for _, i := range insts {
		if i == target {
			return true
		}
	}
	return false
}

func TestDeadStoreToIdenticalRangeIsKilledAndFinalStoreFolded(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	_, atom := addAtomObject(prog, "g")

	entry := fn.Entry()
	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	store1 := ir.NewStoreInst(mov, ir.NewConstantInt(1, ir.I64))
	entry.AddInst(store1)
	store2 := ir.NewStoreInst(mov, ir.NewConstantInt(2, ir.I64))
	entry.AddInst(store2)
	entry.AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	fw := forward.New(prog, cg)
	res := fw.Run(fn)

	require.Equal(t, 1, res.Killed)
	require.Equal(t, 1, res.Folded)
	assert.False(t, containsInst(entry.Instructions, store1))
	assert.False(t, containsInst(entry.Instructions, store2))

	flat := flatten(atom)
	assert.Equal(t, int64(2), le64(flat))
}

func TestLoadBetweenStoresBlocksKillButLaterStoreStillFolds(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	_, atom := addAtomObject(prog, "g")

	entry := fn.Entry()
	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	store1 := ir.NewStoreInst(mov, ir.NewConstantInt(1, ir.I64))
	entry.AddInst(store1)
	load := ir.NewLoadInst(mov, ir.I64)
	entry.AddInst(load)
	store2 := ir.NewStoreInst(mov, ir.NewConstantInt(2, ir.I64))
	entry.AddInst(store2)
	entry.AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	fw := forward.New(prog, cg)
	res := fw.Run(fn)

	assert.Equal(t, 0, res.Killed)
	assert.Equal(t, 1, res.Folded)
	assert.True(t, containsInst(entry.Instructions, store1))
	assert.False(t, containsInst(entry.Instructions, store2))
}

func TestObjectTouchedByAnotherFunctionIsNeverFolded(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	other := addFunc(prog, "other")
	_, atom := addAtomObject(prog, "g")

	entry := fn.Entry()
	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	store := ir.NewStoreInst(mov, ir.NewConstantInt(1, ir.I64))
	entry.AddInst(store)
	entry.AddInst(ir.NewReturnInst())

	omov := ir.NewMovInst(atom.Global, ir.I64)
	other.Entry().AddInst(omov)
	oload := ir.NewLoadInst(omov, ir.I64)
	other.Entry().AddInst(oload)
	other.Entry().AddInst(ir.NewReturnInst(oload))

	cg := callgraph.Build(prog)
	fw := forward.New(prog, cg)
	res := fw.Run(fn)

	assert.Equal(t, 0, res.Folded)
	assert.Equal(t, 0, res.Killed)
	assert.True(t, containsInst(entry.Instructions, store))
}

func TestStoreInEachBranchArmIsFoldedIndependently(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	_, atom := addAtomObject(prog, "g")

	entry := fn.Entry()
	thenB := ir.NewBlock("then")
	elseB := ir.NewBlock("else")
	fn.AddBlock(thenB)
	fn.AddBlock(elseB)

	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	entry.AddInst(ir.NewJumpCondInst(ir.NewConstantInt(1, ir.I64), thenB, elseB))

	thenStore := ir.NewStoreInst(mov, ir.NewConstantInt(10, ir.I64))
	thenB.AddInst(thenStore)
	thenB.AddInst(ir.NewReturnInst())

	elseStore := ir.NewStoreInst(mov, ir.NewConstantInt(20, ir.I64))
	elseB.AddInst(elseStore)
	elseB.AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	fw := forward.New(prog, cg)
	res := fw.Run(fn)

	require.Equal(t, 2, res.Folded)
	assert.False(t, containsInst(thenB.Instructions, thenStore))
	assert.False(t, containsInst(elseB.Instructions, elseStore))
}

func TestStoreInsideLoopIsNeverFoldedAndBlocksSurroundingChains(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	_, atom := addAtomObject(prog, "g")

	entry := fn.Entry()
	loop := ir.NewBlock("loop")
	exit := ir.NewBlock("exit")
	fn.AddBlock(loop)
	fn.AddBlock(exit)

	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	preStore := ir.NewStoreInst(mov, ir.NewConstantInt(1, ir.I64))
	entry.AddInst(preStore)
	entry.AddInst(ir.NewJumpInst(loop))

	loopMov := ir.NewMovInst(atom.Global, ir.I64)
	loop.AddInst(loopMov)
	loopStore := ir.NewStoreInst(loopMov, ir.NewConstantInt(2, ir.I64))
	loop.AddInst(loopStore)
	loop.AddInst(ir.NewJumpCondInst(ir.NewConstantInt(1, ir.I64), loop, exit))

	exitMov := ir.NewMovInst(atom.Global, ir.I64)
	exit.AddInst(exitMov)
	postStore := ir.NewStoreInst(exitMov, ir.NewConstantInt(3, ir.I64))
	exit.AddInst(postStore)
	exit.AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	fw := forward.New(prog, cg)
	res := fw.Run(fn)

	require.Equal(t, 0, res.Folded)
	require.Equal(t, 0, res.Killed)
	assert.True(t, containsInst(entry.Instructions, preStore))
	assert.True(t, containsInst(loop.Instructions, loopStore))
	assert.True(t, containsInst(exit.Instructions, postStore))
}

// TestFunctionWithIndirectCallNeverFoldsItsOwnObjects exercises the gap
// objectSafe previously left open entirely: a function making an indirect
// call (callee resolves through no mov-of-Global chain, so
// callgraph.DirectCallee fails and refgraph.Node.HasIndirectCalls is set)
// could write to an object no other function touches and still have that
// store folded, even though the indirect call might reach an unknown
// function that aliases the same memory. objectSafe now refuses every
// object in a function that makes an indirect call at all.
func TestFunctionWithIndirectCallNeverFoldsItsOwnObjects(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	_, atom := addAtomObject(prog, "g")

	entry := fn.Entry()
	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	store := ir.NewStoreInst(mov, ir.NewConstantInt(1, ir.I64))
	entry.AddInst(store)

	callee := ir.NewArgInst(0, ir.I64)
	entry.AddInst(callee)
	entry.AddInst(ir.NewCallInst(callee, nil, token.CallingConvC, 0, nil))
	entry.AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	fw := forward.New(prog, cg)
	res := fw.Run(fn)

	require.Equal(t, 0, res.Folded)
	require.Equal(t, 0, res.Killed)
	assert.True(t, containsInst(entry.Instructions, store))
}

// TestIndirectlyCallableFunctionNeverFoldsItsOwnObjects exercises
// indirect.go's indirectClosure specifically, isolated from
// objectOwnedSolelyBy: fn is the ONLY function that ever touches obj (so
// objectOwnedSolelyBy alone would call it safe), fn makes no indirect
// call itself (so the HasIndirectCalls check alone would not catch it
// either) -- but fn's own address is stored into a function-pointer
// table elsewhere in the program, making fn a plausible indirect-call
// target from any unresolvable call site. Only the indirect-closure
// union, keyed by obj through fn's own FuncClosure, can catch this.
func TestIndirectlyCallableFunctionNeverFoldsItsOwnObjects(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	_, atom := addAtomObject(prog, "g")

	entry := fn.Entry()
	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	store := ir.NewStoreInst(mov, ir.NewConstantInt(1, ir.I64))
	entry.AddInst(store)
	entry.AddInst(ir.NewReturnInst())

	escaper := addFunc(prog, "escaper")
	fnMov := ir.NewMovInst(fn.Global, ir.I64)
	escaper.Entry().AddInst(fnMov)
	_, tableAtom := addAtomObject(prog, "table")
	tableMov := ir.NewMovInst(tableAtom.Global, ir.I64)
	escaper.Entry().AddInst(tableMov)
	escaper.Entry().AddInst(ir.NewStoreInst(tableMov, fnMov))
	escaper.Entry().AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	fw := forward.New(prog, cg)
	res := fw.Run(fn)

	require.Equal(t, 0, res.Folded)
	assert.True(t, containsInst(entry.Instructions, store))
}

// TestObjectReachableThroughEscapedContainerAtomIsNeverFolded exercises
// closure.go's ObjectClosure/escapesTransitively directly: obj is never
// touched by any other function and nothing makes an indirect call, but
// a different atom (container) embeds an ItemExpr reference to obj and
// container's own address escapes via escaper. escapesTransitively must
// walk that embedded reference the same way a code-level mov would be
// walked, or fn's store to obj would look fully owned and get folded.
func TestObjectReachableThroughEscapedContainerAtomIsNeverFolded(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	_, atom := addAtomObject(prog, "g")

	_, container := addAtomObject(prog, "container")
	container.AddItem(&ir.Item{Kind: ir.ItemExpr, Expr: prog.GetOrCreateExpr(atom.Global, 0)})

	escaper := addFunc(prog, "escaper")
	containerMov := ir.NewMovInst(container.Global, ir.I64)
	escaper.Entry().AddInst(containerMov)
	_, tableAtom := addAtomObject(prog, "table")
	tableMov := ir.NewMovInst(tableAtom.Global, ir.I64)
	escaper.Entry().AddInst(tableMov)
	escaper.Entry().AddInst(ir.NewStoreInst(tableMov, containerMov))
	escaper.Entry().AddInst(ir.NewReturnInst())

	entry := fn.Entry()
	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	store := ir.NewStoreInst(mov, ir.NewConstantInt(1, ir.I64))
	entry.AddInst(store)
	entry.AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	fw := forward.New(prog, cg)
	res := fw.Run(fn)

	require.Equal(t, 0, res.Folded)
	assert.True(t, containsInst(entry.Instructions, store))
}

// flatten/le64 read an atom's byte-level Items back out for assertions,
// mirroring what the printer does to render DataSection literals.
func flatten(a *ir.Atom) []byte {
	var out []byte
	for _, it := range a.Items {
		out = append(out, byte(it.Int))
	}
	return out
}

func le64(b []byte) int64 {
	var v int64
	for i := 0; i < len(b) && i < 8; i++ {
		v |= int64(b[i]) << (8 * uint(i))
	}
	return v
}
