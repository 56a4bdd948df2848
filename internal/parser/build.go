package parser

import "llir-opt/internal/ir"

// build constructs the Instruction for one decoded opcode, wiring ops into
// the kind-specific fields. ops[0:numResults] are always the result vreg
// slots (checked to be vregs by the caller once build returns); everything after
// that is use operands, addressed the way core/parser_inst.cpp's CreateInst
// addresses them: by position relative to the start or end of the operand
// list.
func (p *Parser) build(dec decodedOpcode, ops []rawOperand) *ir.Instruction {
	n := len(dec.types)
	inst := ir.NewBareInst(dec.kind, dec.types...)
	inst.Cond = dec.cond
	if dec.hasConv {
		inst.CallConv = dec.conv
	}

	switch dec.kind {
	case ir.KindLoad:
		p.operand(inst, ops, n)
	case ir.KindStore:
		p.operand(inst, ops, 0)
		p.operand(inst, ops, 1)
	case ir.KindXchg:
		p.operand(inst, ops, n)   // addr
		p.operand(inst, ops, n+1) // value
	case ir.KindFrame:
		if dec.hasSize {
			inst.FrameIndex = dec.size
		}
	case ir.KindMov:
		p.operand(inst, ops, n)
	case ir.KindArg:
		if dec.hasSize {
			inst.FrameIndex = dec.size
		}
	case ir.KindAdd, ir.KindSub, ir.KindMul, ir.KindAnd, ir.KindOr, ir.KindXor,
		ir.KindShl, ir.KindShr:
		p.operand(inst, ops, n)
		p.operand(inst, ops, n+1)
	case ir.KindCmp:
		p.operand(inst, ops, n)
		p.operand(inst, ops, n+1)
	case ir.KindSelect:
		p.operand(inst, ops, n)   // cond
		p.operand(inst, ops, n+1) // ifTrue
		p.operand(inst, ops, n+2) // ifFalse
	case ir.KindPhi:
		p.buildPhi(inst, ops, n)
	case ir.KindJump:
		p.setBlockOperand(&inst.Target, ops, 0)
	case ir.KindJumpCond:
		p.operand(inst, ops, 0)
		p.setBlockOperand(&inst.IfTrue, ops, 1)
		p.setBlockOperand(&inst.IfFalse, ops, 2)
	case ir.KindSwitch:
		p.operand(inst, ops, 0)
		inst.Cases = make([]ir.SwitchCase, len(ops)-1)
		for idx := 1; idx < len(ops); idx++ {
			inst.Cases[idx-1].Value = int64(idx - 1)
		}
		for idx := 1; idx < len(ops); idx++ {
			p.setBlockOperand(&inst.Cases[idx-1].Target, ops, idx)
		}
	case ir.KindReturn, ir.KindRaise:
		for idx := range ops {
			p.operand(inst, ops, idx)
		}
	case ir.KindTrap, ir.KindLandingPad:
		// no operands beyond results
	case ir.KindCall, ir.KindTailCall, ir.KindInvoke:
		p.buildCallSite(inst, dec, ops, n)
	default:
		p.errorf("unsupported opcode kind %s", dec.kind)
	}
	return inst
}

// buildPhi wires a phi's incoming (predecessor, value) pairs. Predecessor
// blocks may be forward-referenced (a loop header's back edge is parsed
// before the latch block that names it), so they go through the same
// blockPatch deferral as jump targets.
func (p *Parser) buildPhi(inst *ir.Instruction, ops []rawOperand, resultIdx int) {
	rest := ops[resultIdx:]
	if len(rest)%2 != 0 {
		p.errorf("phi expects (block, value) pairs")
	}
	n := len(rest) / 2
	inst.Incoming = make([]ir.PhiEdge, n)
	for i := 0; i < n; i++ {
		blockIdx := resultIdx + 2*i
		valueIdx := blockIdx + 1
		p.setBlockOperand(&inst.Incoming[i].Pred, ops, blockIdx)
		inst.Incoming[i].Value = p.operand(inst, ops, valueIdx)
	}
}

// buildCallSite wires the call-site family (call/tcall/invoke), whose
// trailing operands are block labels rather than values: a non-tail call
// optionally ends in one continuation block, invoke always ends in a
// (normal, unwind) pair, and tcall never has any. A trailing bare-symbol
// operand unambiguously names a continuation block, since every real call
// argument is a vreg.
func (p *Parser) buildCallSite(inst *ir.Instruction, dec decodedOpcode, ops []rawOperand, resultIdx int) {
	trailingBlocks := 0
	switch dec.kind {
	case ir.KindInvoke:
		trailingBlocks = 2
	case ir.KindCall:
		if len(ops) > resultIdx+1 && !ops[len(ops)-1].isRef && ops[len(ops)-1].name != "" {
			trailingBlocks = 1
		}
	}

	calleeIdx := resultIdx
	inst.Callee = p.operand(inst, ops, calleeIdx)

	argsEnd := len(ops) - trailingBlocks
	for idx := calleeIdx + 1; idx < argsEnd; idx++ {
		inst.Args = append(inst.Args, p.operand(inst, ops, idx))
	}
	inst.NumFixedArgs = len(inst.Args)

	switch dec.kind {
	case ir.KindCall:
		if trailingBlocks == 1 {
			p.setBlockOperand(&inst.Target, ops, len(ops)-1)
		}
	case ir.KindInvoke:
		p.setBlockOperand(&inst.Target, ops, len(ops)-2)
		p.setBlockOperand(&inst.Unwind, ops, len(ops)-1)
	}
}
