package livevars_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"llir-opt/internal/cfg"
	"llir-opt/internal/ir"
	"llir-opt/internal/livevars"
	"llir-opt/token"
)

// buildLoop: entry defines v, jumps to header; header phis v in from entry
// and from body; body uses v, redefines v2, jumps back to header; exit
// returns the phi.
func buildLoop() (*ir.Function, *ir.Instruction, *ir.Instruction) {
	fn := ir.NewFunction("f", token.CallingConvC)
	entry := ir.NewBlock("entry")
	header := ir.NewBlock("header")
	body := ir.NewBlock("body")
	exit := ir.NewBlock("exit")
	fn.AddBlock(entry)
	fn.AddBlock(header)
	fn.AddBlock(body)
	fn.AddBlock(exit)

	initVal := ir.NewMovInst(ir.NewConstantInt(0, ir.I64), ir.I64)
	entry.AddInst(initVal)
	entry.AddInst(ir.NewJumpInst(header))

	phi := ir.NewPhiInst(ir.I64)
	header.AddInst(phi)
	cond := ir.NewConstantInt(1, ir.I64)
	header.AddInst(ir.NewJumpCondInst(cond, body, exit))

	inc := ir.NewAddInst(phi, ir.NewConstantInt(1, ir.I64), ir.I64)
	body.AddInst(inc)
	body.AddInst(ir.NewJumpInst(header))

	phi.AddIncoming(entry, initVal)
	phi.AddIncoming(body, inc)

	ret := ir.NewReturnInst(phi)
	exit.AddInst(ret)

	return fn, phi, inc
}

func TestPhiIncomingIsLiveOutOfEachPredecessor(t *testing.T) {
	fn, _, inc := buildLoop()
	c := cfg.Build(fn)
	lv := livevars.Build(c)

	entry := fn.Blocks[0]
	body := fn.Blocks[2]

	entryOut := lv.LiveOutBlock(entry)
	assert.True(t, entryOut[entry.Instructions[0]])

	bodyOut := lv.LiveOutBlock(body)
	assert.True(t, bodyOut[inc])
}

func TestLoopCarriedValueLiveAcrossBackEdge(t *testing.T) {
	fn, phi, _ := buildLoop()
	c := cfg.Build(fn)
	lv := livevars.Build(c)

	header := fn.Blocks[1]
	assert.True(t, lv.LiveIn(header)[phi])
}

func TestArgDoesNotKillItsOwnLiveness(t *testing.T) {
	fn := ir.NewFunction("g", token.CallingConvC)
	entry := ir.NewBlock("entry")
	fn.AddBlock(entry)
	arg := ir.NewArgInst(0, ir.I64)
	entry.AddInst(arg)
	ret := ir.NewReturnInst(arg)
	entry.AddInst(ret)

	c := cfg.Build(fn)
	lv := livevars.Build(c)
	assert.True(t, lv.LiveOut(arg)[arg])
}
