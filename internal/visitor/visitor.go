// Package visitor implements the tagged-variant dispatch the IR's single
// Instruction type needs in place of the source's auto-generated per-kind
// metadata tables (cast/clone/print/compare), restricted to two
// dispatch surfaces: an
// operand-role table (which slot is an address, which is the stored
// value, which is the callee) and a Cloner that deep-copies an
// instruction while preserving operand identity semantics. Printing
// already lives on ir.Printer; casting is Go's own type switch over Kind,
// so neither needed a table here.
package visitor

import "llir-opt/internal/ir"

// OperandRole classifies what one of an instruction's leading operand
// slots represents, independent of its Kind, so a caller can tell "the
// address this touches" apart from "the value it reads or writes"
// without re-deriving a per-opcode switch of its own.
type OperandRole uint8

const (
	RoleGeneric OperandRole = iota
	RoleAddress
	RoleStoredValue
	RoleCallee
	RoleCallArg
	RoleCond
)

// operandRoles is the kind-indexed table: one row per opcode whose
// operand slots carry a role other than RoleGeneric. Call-site kinds
// (call/tcall/invoke) are handled separately in RoleOf via inst.Callee/
// inst.Args, since their Operands slice is built from those two fields
// rather than a fixed positional layout.
var operandRoles = map[ir.Kind][]OperandRole{
	ir.KindLoad:     {RoleAddress},
	ir.KindStore:    {RoleAddress, RoleStoredValue},
	ir.KindXchg:     {RoleAddress, RoleStoredValue},
	ir.KindJumpCond: {RoleCond},
	ir.KindSelect:   {RoleCond, RoleGeneric, RoleGeneric},
}

// RoleOf reports the role of inst's operand at idx.
func RoleOf(inst *ir.Instruction, idx int) OperandRole {
	if idx < 0 || idx >= len(inst.Operands) {
		return RoleGeneric
	}
	op := inst.Operands[idx]
	if inst.Callee == op {
		return RoleCallee
	}
	for _, a := range inst.Args {
		if a == op {
			return RoleCallArg
		}
	}
	if roles, ok := operandRoles[inst.Kind]; ok && idx < len(roles) {
		return roles[idx]
	}
	return RoleGeneric
}

// Cloner deep-copies an instruction's header and payload, remapping every
// Value and Block reference through the supplied functions. Two operands
// that reference the same Value in the source instruction reference the
// same (remapped) Value in the clone -- Clone calls Value once per operand
// slot, so a value shared by two slots is looked up twice, and Value
// itself is expected to be idempotent (a plain substitution lookup, not
// something with side effects), so the identity a caller's Value func
// chooses to preserve is preserved.
type Cloner struct {
	// Value remaps a value referenced by inst; nil or an unmapped value
	// passes through unchanged. A nil Cloner.Value makes Clone a
	// structural deep-copy with no substitution at all.
	Value func(ir.Value) ir.Value
	// Block remaps a block reference (jump/branch targets, phi
	// predecessors); nil behaves like Value's nil case.
	Block func(*ir.Block) *ir.Block
}

func (c *Cloner) value(v ir.Value) ir.Value {
	if c.Value == nil || v == nil {
		return v
	}
	return c.Value(v)
}

func (c *Cloner) block(b *ir.Block) *ir.Block {
	if c.Block == nil || b == nil {
		return b
	}
	return c.Block(b)
}

// Clone builds a detached copy of inst, ready for a caller to AddInst
// into a (possibly new) block, so an instruction can be duplicated into a
// different control-flow shape without hand-rolling a switch over every
// Kind. internal/forward and internal/camlalloc do not call it.
func (c *Cloner) Clone(inst *ir.Instruction) *ir.Instruction {
	clone := ir.NewBareInst(inst.Kind, inst.Types...)
	copyAnnot(&clone.Annot, inst.Annot)
	clone.Cond = inst.Cond
	clone.CallConv = inst.CallConv
	clone.NumFixedArgs = inst.NumFixedArgs
	clone.FrameIndex = inst.FrameIndex
	clone.Target = c.block(inst.Target)
	clone.Unwind = c.block(inst.Unwind)
	clone.IfTrue = c.block(inst.IfTrue)
	clone.IfFalse = c.block(inst.IfFalse)
	if len(inst.Cases) > 0 {
		clone.Cases = make([]ir.SwitchCase, len(inst.Cases))
		for i, cs := range inst.Cases {
			clone.Cases[i] = ir.SwitchCase{Value: cs.Value, Target: c.block(cs.Target)}
		}
	}

	switch inst.Kind {
	case ir.KindCall, ir.KindTailCall, ir.KindInvoke:
		clone.Callee = clone.AddOperand(c.value(inst.Callee.Get()))
		clone.Args = make([]*ir.Operand, len(inst.Args))
		for i, a := range inst.Args {
			clone.Args[i] = clone.AddOperand(c.value(a.Get()))
		}
	case ir.KindPhi:
		for _, edge := range inst.Incoming {
			clone.AddIncoming(c.block(edge.Pred), c.value(edge.Value.Get()))
		}
	default:
		for _, op := range inst.Operands {
			clone.AddOperand(c.value(op.Get()))
		}
	}
	return clone
}

// copyAnnot replays every annotation present on src onto dst through the
// exported AnnotSet API, since its fields are private to internal/ir.
func copyAnnot(dst *ir.AnnotSet, src ir.AnnotSet) {
	if p, ok := src.Probability(); ok {
		dst.Set(ir.AnnotProbability, p)
	}
	if f, ok := src.CamlFrame(); ok {
		dst.Set(ir.AnnotCamlFrame, f)
	}
	if l, ok := src.CxxLSDA(); ok {
		dst.Set(ir.AnnotCxxLSDA, l)
	}
}
