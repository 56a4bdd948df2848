package ir

import "llir-opt/token"

// SwitchCase is one value->block arm of a KindSwitch terminator, tested in
// the order they appear; the last entry with no further arms after it acts
// as the default when its Value field is ignored by the caller's emitter.
type SwitchCase struct {
	Value  int64
	Target *Block
}

// PhiEdge is one incoming (predecessor, value) pair of a KindPhi
// instruction (§3).
type PhiEdge struct {
	Pred  *Block
	Value *Operand
}

// Instruction is the single tagged-variant type every opcode the port
// recognizes is built from (see the package doc comment for why). The
// header fields (Kind, Types, Operands, Annot, block, order) are shared by
// every kind; the remaining fields are populated only for the kinds that
// need them, mirroring the discriminated-union layout recommended for this
// port instead of one Go type per opcode.
type Instruction struct {
	Kind     Kind
	Types    []Type // result types, in result-index order
	Operands []*Operand
	Annot    AnnotSet

	// Call-site family (call, tcall, invoke)
	Callee       *Operand
	Args         []*Operand
	NumFixedArgs int
	CallConv     token.CallingConv

	// Control family
	Target  *Block // jmp target; invoke's normal-return continuation
	Unwind  *Block // invoke's exception edge
	IfTrue  *Block // jcc
	IfFalse *Block // jcc
	Cases   []SwitchCase

	// Compare / select
	Cond token.Cond

	// Phi
	Incoming []PhiEdge

	// Frame
	FrameIndex int

	block *Block
	order uint64
	users userList
}

func (i *Instruction) isUser() {}

func (i *Instruction) addUser(u *Operand)    { i.users.add(u) }
func (i *Instruction) removeUser(u *Operand) { i.users.remove(u) }
func (i *Instruction) Users() []*Operand     { return i.users.users() }

// Block returns the block currently owning this instruction, or nil if
// detached.
func (i *Instruction) Block() *Block { return i.block }

// Order returns the monotonic position of this instruction within its
// block, valid for comparisons only against instructions of the same
// block (§8).
func (i *Instruction) Order() uint64 { return i.order }

// NumResults reports how many values this instruction produces.
func (i *Instruction) NumResults() int { return len(i.Types) }

// IsCallSite reports whether this instruction is a member of the
// call-site family (call, tail-call, invoke); forwards to Kind.IsCallSite
// so callers can ask the instruction directly.
func (i *Instruction) IsCallSite() bool { return i.Kind.IsCallSite() }

// newInst allocates a bare instruction of the given kind and result types.
func newInst(kind Kind, types ...Type) *Instruction {
	return &Instruction{Kind: kind, Types: types}
}

// addOperand appends a use of v's result 0 to the instruction's generic
// operand list and returns the new Operand.
func (i *Instruction) addOperand(v Value) *Operand {
	return i.addOperandIndexed(v, 0)
}

// addOperandIndexed appends a use of v's result at index to the
// instruction's generic operand list.
func (i *Instruction) addOperandIndexed(v Value, index int) *Operand {
	op := NewOperand(i, v, index)
	i.Operands = append(i.Operands, op)
	return op
}

// AddOperand is addOperand exported for callers (the parser, the cloner)
// that build an Instruction's operand list directly rather than through
// one of the NewXInst constructors.
func (i *Instruction) AddOperand(v Value) *Operand { return i.addOperand(v) }

// AddOperandIndexed is AddOperand but selects a specific sub-result of a
// multi-result v (e.g. the second result of a two-result call), for
// callers binding a use to a result other than 0.
func (i *Instruction) AddOperandIndexed(v Value, index int) *Operand {
	return i.addOperandIndexed(v, index)
}

// NewBareInst creates a detached instruction of kind with the given
// result types and no operands, for callers that wire operands themselves
// (the parser) instead of using a NewXInst constructor.
func NewBareInst(kind Kind, types ...Type) *Instruction {
	return newInst(kind, types...)
}

// ---- memory ----

func NewLoadInst(addr Value, typ Type) *Instruction {
	inst := newInst(KindLoad, typ)
	inst.addOperand(addr)
	return inst
}

func NewStoreInst(addr, val Value) *Instruction {
	inst := newInst(KindStore)
	inst.addOperand(addr)
	inst.addOperand(val)
	return inst
}

func NewXchgInst(addr, val Value, typ Type) *Instruction {
	inst := newInst(KindXchg, typ)
	inst.addOperand(addr)
	inst.addOperand(val)
	return inst
}

func NewFrameInst(index int, typ Type) *Instruction {
	inst := newInst(KindFrame, typ)
	inst.FrameIndex = index
	return inst
}

// ---- moves and arguments ----

func NewMovInst(src Value, typ Type) *Instruction {
	inst := newInst(KindMov, typ)
	inst.addOperand(src)
	return inst
}

func NewArgInst(index int, typ Type) *Instruction {
	inst := newInst(KindArg, typ)
	inst.FrameIndex = index
	return inst
}

// ---- binary arithmetic / compare / select ----

func newBinary(kind Kind, lhs, rhs Value, typ Type) *Instruction {
	inst := newInst(kind, typ)
	inst.addOperand(lhs)
	inst.addOperand(rhs)
	return inst
}

func NewAddInst(lhs, rhs Value, typ Type) *Instruction { return newBinary(KindAdd, lhs, rhs, typ) }
func NewSubInst(lhs, rhs Value, typ Type) *Instruction { return newBinary(KindSub, lhs, rhs, typ) }
func NewMulInst(lhs, rhs Value, typ Type) *Instruction { return newBinary(KindMul, lhs, rhs, typ) }
func NewAndInst(lhs, rhs Value, typ Type) *Instruction { return newBinary(KindAnd, lhs, rhs, typ) }
func NewOrInst(lhs, rhs Value, typ Type) *Instruction  { return newBinary(KindOr, lhs, rhs, typ) }
func NewXorInst(lhs, rhs Value, typ Type) *Instruction { return newBinary(KindXor, lhs, rhs, typ) }
func NewShlInst(lhs, rhs Value, typ Type) *Instruction { return newBinary(KindShl, lhs, rhs, typ) }
func NewShrInst(lhs, rhs Value, typ Type) *Instruction { return newBinary(KindShr, lhs, rhs, typ) }

func NewCmpInst(cond token.Cond, lhs, rhs Value, typ Type) *Instruction {
	inst := newBinary(KindCmp, lhs, rhs, typ)
	inst.Cond = cond
	return inst
}

func NewSelectInst(cond, ifTrue, ifFalse Value, typ Type) *Instruction {
	inst := newInst(KindSelect, typ)
	inst.addOperand(cond)
	inst.addOperand(ifTrue)
	inst.addOperand(ifFalse)
	return inst
}

// ---- phi ----

func NewPhiInst(typ Type) *Instruction { return newInst(KindPhi, typ) }

// AddIncoming appends a (pred, value) edge to a phi and threads the
// use-edge through the instruction's generic operand list too, so
// ReplaceAllUsesWith and erase see it like any other use.
func (i *Instruction) AddIncoming(pred *Block, value Value) {
	i.AddIncomingIndexed(pred, value, 0)
}

// AddIncomingIndexed is AddIncoming but selects a specific sub-result of a
// multi-result value (the allocation inliner merges the two results of a
// call.caml_alloc / invoke.caml_alloc this way).
func (i *Instruction) AddIncomingIndexed(pred *Block, value Value, index int) {
	op := i.addOperandIndexed(value, index)
	i.Incoming = append(i.Incoming, PhiEdge{Pred: pred, Value: op})
}

// IncomingFor returns the value a phi takes from pred, if pred is among
// its incoming edges.
func (i *Instruction) IncomingFor(pred *Block) (*Operand, bool) {
	for _, edge := range i.Incoming {
		if edge.Pred == pred {
			return edge.Value, true
		}
	}
	return nil, false
}

// ---- control ----

func NewJumpInst(target *Block) *Instruction {
	inst := newInst(KindJump)
	inst.Target = target
	return inst
}

func NewJumpCondInst(cond Value, ifTrue, ifFalse *Block) *Instruction {
	inst := newInst(KindJumpCond)
	inst.addOperand(cond)
	inst.IfTrue = ifTrue
	inst.IfFalse = ifFalse
	return inst
}

func NewSwitchInst(index Value, cases []SwitchCase) *Instruction {
	inst := newInst(KindSwitch)
	inst.addOperand(index)
	inst.Cases = cases
	return inst
}

func NewReturnInst(values ...Value) *Instruction {
	inst := newInst(KindReturn)
	for _, v := range values {
		inst.addOperand(v)
	}
	return inst
}

func NewTrapInst() *Instruction { return newInst(KindTrap) }

func NewRaiseInst(args ...Value) *Instruction {
	inst := newInst(KindRaise)
	for _, v := range args {
		inst.addOperand(v)
	}
	return inst
}

func NewLandingPadInst(types ...Type) *Instruction {
	return newInst(KindLandingPad, types...)
}

// ---- call-site family ----

func newCallSite(kind Kind, callee Value, args []Value, callConv token.CallingConv, numFixed int, types ...Type) *Instruction {
	inst := newInst(kind, types...)
	inst.Callee = inst.addOperand(callee)
	inst.Args = make([]*Operand, len(args))
	for idx, a := range args {
		inst.Args[idx] = inst.addOperand(a)
	}
	inst.CallConv = callConv
	inst.NumFixedArgs = numFixed
	return inst
}

// NewCallInst builds a non-tail call. cont is the block execution resumes
// in; a call with a non-nil cont is a block terminator (§3: the call-site
// family's non-tail form used by the allocation inliner).
func NewCallInst(callee Value, args []Value, callConv token.CallingConv, numFixed int, cont *Block, types ...Type) *Instruction {
	inst := newCallSite(KindCall, callee, args, callConv, numFixed, types...)
	inst.Target = cont
	return inst
}

func NewTailCallInst(callee Value, args []Value, callConv token.CallingConv, numFixed int) *Instruction {
	return newCallSite(KindTailCall, callee, args, callConv, numFixed)
}

func NewInvokeInst(callee Value, args []Value, callConv token.CallingConv, numFixed int, normal, unwind *Block, types ...Type) *Instruction {
	inst := newCallSite(KindInvoke, callee, args, callConv, numFixed, types...)
	inst.Target = normal
	inst.Unwind = unwind
	return inst
}

// ---- successors / terminator surface ----

// Successors returns the block(s) control can transfer to when this
// instruction is a terminator, in no particular semantic order beyond
// "true before false" for jcc and case order for switch.
func (i *Instruction) Successors() []*Block {
	switch i.Kind {
	case KindJump:
		return []*Block{i.Target}
	case KindJumpCond:
		return []*Block{i.IfTrue, i.IfFalse}
	case KindSwitch:
		out := make([]*Block, len(i.Cases))
		for idx, c := range i.Cases {
			out[idx] = c.Target
		}
		return out
	case KindCall:
		if i.Target != nil {
			return []*Block{i.Target}
		}
		return nil
	case KindInvoke:
		return []*Block{i.Target, i.Unwind}
	default:
		return nil
	}
}

// ReplaceAllUsesWith repoints every use of this instruction's (single)
// result at repl, leaving the instruction itself with no users. Callers
// needing a specific result index on a multi-result instruction should
// walk Users() directly instead.
func (i *Instruction) ReplaceAllUsesWith(repl Value) {
	for _, use := range i.Users() {
		use.Set(repl, use.Index())
	}
}

// erase clears every operand this instruction owns (unlinking it from
// every Value it used) and asserts it has no remaining users; called by
// Block.Erase after the block has removed it from its chain.
func (i *Instruction) erase() {
	if len(i.users.uses) != 0 {
		panic("ir: erasing an instruction with surviving users")
	}
	for _, op := range i.Operands {
		op.Clear()
	}
	for _, edge := range i.Incoming {
		edge.Value.Clear()
	}
}
