package callgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llir-opt/internal/callgraph"
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

func addDirectCall(caller, callee *ir.Function) *ir.Instruction {
	b := caller.Entry()
	call := ir.NewCallInst(callee.Global, nil, token.CallingConvC, 0, nil)
	// Insert before the (not-yet-added) terminator so Successors() still
	// reflects a real terminator once one is appended.
	b.AddInst(call)
	return call
}

func TestDirectCallEdgesAndSCCOrdering(t *testing.T) {
	prog := ir.NewProgram("t")
	main := addFunc(prog, "main")
	helper := addFunc(prog, "helper")
	leaf := addFunc(prog, "leaf")

	addDirectCall(main, helper)
	addDirectCall(helper, leaf)
	main.Entry().AddInst(ir.NewReturnInst())
	helper.Entry().AddInst(ir.NewReturnInst())
	leaf.Entry().AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)

	mainNode := cg.Node(main)
	helperNode := cg.Node(helper)
	leafNode := cg.Node(leaf)
	require.Len(t, mainNode.Callees, 1)
	assert.Same(t, helperNode, mainNode.Callees[0])
	require.Len(t, helperNode.Callees, 1)
	assert.Same(t, leafNode, helperNode.Callees[0])
	assert.False(t, mainNode.HasIndirect)

	// main is reachable from the virtual entry regardless of address-taken
	// status, since its name is "main".
	assert.Contains(t, cg.Entry.Callees, mainNode)

	// Leaves finish before callers: leaf's SCC index precedes helper's,
	// which precedes main's.
	assert.Less(t, leafNode.SCCIndex(), helperNode.SCCIndex())
	assert.Less(t, helperNode.SCCIndex(), mainNode.SCCIndex())
}

func TestIndirectCallSetsFlagInsteadOfEdge(t *testing.T) {
	prog := ir.NewProgram("t")
	caller := addFunc(prog, "caller")
	callee := addFunc(prog, "callee")

	// An indirect call: the callee operand is a load result, not a
	// function Global or a mov of one.
	addr := ir.NewFrameInst(0, ir.I64)
	caller.Entry().AddInst(addr)
	load := ir.NewLoadInst(addr, ir.I64)
	caller.Entry().AddInst(load)
	call := ir.NewCallInst(load, nil, token.CallingConvC, 0, nil)
	caller.Entry().AddInst(call)
	caller.Entry().AddInst(ir.NewReturnInst())
	callee.Entry().AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	callerNode := cg.Node(caller)
	assert.True(t, callerNode.HasIndirect)
	assert.Empty(t, callerNode.Callees)
}

func TestAddressTakenFunctionReachableFromEntry(t *testing.T) {
	prog := ir.NewProgram("t")
	target := addFunc(prog, "target")
	holder := addFunc(prog, "holder")

	mov := ir.NewMovInst(target.Global, ir.I64)
	holder.Entry().AddInst(mov)
	addr := ir.NewFrameInst(0, ir.I64)
	holder.Entry().AddInst(addr)
	store := ir.NewStoreInst(addr, mov)
	holder.Entry().AddInst(store)
	holder.Entry().AddInst(ir.NewReturnInst())
	target.Entry().AddInst(ir.NewReturnInst())

	cg := callgraph.Build(prog)
	assert.Contains(t, cg.Entry.Callees, cg.Node(target))
}
