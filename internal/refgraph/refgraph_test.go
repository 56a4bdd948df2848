package refgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llir-opt/internal/callgraph"
	"llir-opt/internal/ir"
	"llir-opt/internal/refgraph"
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

func addAtomObject(p *ir.Program, name string) (*ir.DataSection, *ir.Object, *ir.Atom) {
	ds := p.AddData("data")
	obj := ds.AddObject()
	atom, err := obj.AddAtom(p, name, ir.VisibilityLocal)
	if err != nil {
		panic(err)
	}
	return ds, obj, atom
}

func TestAccurateStoreThroughConstantOffsetIsTracked(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	_, obj, atom := addAtomObject(prog, "g")

	entry := fn.Entry()
	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	addr := ir.NewAddInst(mov, ir.NewConstantInt(8, ir.I64), ir.I64)
	entry.AddInst(addr)
	store := ir.NewStoreInst(addr, ir.NewConstantInt(42, ir.I64))
	entry.AddInst(store)
	entry.AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	rg := refgraph.New(prog, cg)
	node := rg.For(fn)

	require.True(t, node.Written[obj])
	offs, ok := node.WrittenOffsets[obj]
	require.True(t, ok)
	assert.True(t, offs[refgraph.OffsetRange{Start: 8, End: 16}])
	assert.False(t, node.Escapes[atom.Global])
}

func TestStoringTheAddressItselfEscapes(t *testing.T) {
	prog := ir.NewProgram("t")
	fn := addFunc(prog, "f")
	_, obj, atom := addAtomObject(prog, "g")

	entry := fn.Entry()
	mov := ir.NewMovInst(atom.Global, ir.I64)
	entry.AddInst(mov)
	slot := ir.NewFrameInst(0, ir.I64)
	entry.AddInst(slot)
	store := ir.NewStoreInst(slot, mov)
	entry.AddInst(store)
	entry.AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	rg := refgraph.New(prog, cg)
	node := rg.For(fn)

	assert.True(t, node.Escapes[atom.Global])
	assert.False(t, node.Written[obj])
}

func TestDirectCallMergesCalleeSummary(t *testing.T) {
	prog := ir.NewProgram("t")
	caller := addFunc(prog, "caller")
	callee := addFunc(prog, "callee")
	_, obj, atom := addAtomObject(prog, "g")

	cmov := ir.NewMovInst(atom.Global, ir.I64)
	callee.Entry().AddInst(cmov)
	cstore := ir.NewStoreInst(cmov, ir.NewConstantInt(1, ir.I64))
	callee.Entry().AddInst(cstore)
	callee.Entry().AddInst(ir.NewReturnInst())

	calleeMov := ir.NewMovInst(callee.Global, ir.I64)
	caller.Entry().AddInst(calleeMov)
	call := ir.NewCallInst(calleeMov, nil, token.CallingConvC, 0, nil)
	caller.Entry().AddInst(call)
	caller.Entry().AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	rg := refgraph.New(prog, cg)
	callerNode := rg.For(caller)

	assert.True(t, callerNode.Written[obj])
	assert.Contains(t, callerNode.Called, callee)
}
