// Package ir implements the low-level, machine-independent intermediate
// representation exchanged between front ends and this optimizer: programs,
// functions, basic blocks, SSA instructions, globals, and the data-section
// object model that backs initialized globals.
//
// The polymorphic instruction hierarchy described by the source toolchain
// (one C++ class per opcode) is collapsed into a single tagged-variant
// Instruction type switched on Kind, with a shared header (types, operands,
// annotations, block, order) and a handful of kind-specific fields -- the
// approach recommended for a Go port in the design notes, since no dynamic
// dispatch is required and the auto-generated per-kind metadata tables
// collapse into one switch per concern (cast, clone, print, compare).
package ir

// Value is anything an Operand can point at: a (possibly multi-result)
// Instruction, a Global, an interned Expr, or a leaf Constant. Every Value
// owns a user list threaded through the Operands that reference it, so that
// for every edge u->v, v's user list contains u (§3, §8 universal
// invariants).
//
// A single user list is kept per Value rather than per sub-result: for a
// multi-result Instruction, every Operand referencing any of its results
// lives in the same list and distinguishes which result it uses via its own
// Index field. This is a simplification of the source's separate
// per-result use lists; see DESIGN.md.
type Value interface {
	addUser(u *Operand)
	removeUser(u *Operand)
	Users() []*Operand
}

// userList is the intrusive, O(1)-remove user list shared by every Value
// implementation. Removal is swap-with-last, so iteration order over
// users() is not stable across removals.
type userList struct {
	uses []*Operand
}

func (l *userList) add(u *Operand) {
	u.selfIdx = len(l.uses)
	l.uses = append(l.uses, u)
}

func (l *userList) remove(u *Operand) {
	last := len(l.uses) - 1
	idx := u.selfIdx
	l.uses[idx] = l.uses[last]
	l.uses[idx].selfIdx = idx
	l.uses = l.uses[:last]
	u.selfIdx = -1
}

func (l *userList) users() []*Operand {
	out := make([]*Operand, len(l.uses))
	copy(out, l.uses)
	return out
}

// User is the entity that can hold operand slots: ordinarily an
// Instruction, but an Expr also "uses" the Global it is built over (§3:
// "Expr participates in the use list of its referenced symbol").
type User interface {
	isUser()
}

// Operand is a User-edge: a typed reference from an owning User into a
// Value, optionally selecting one of the value's sub-results. Operand is
// itself the list node threaded into the referenced Value's user list.
type Operand struct {
	owner   User
	value   Value
	index   int
	selfIdx int
}

// NewOperand creates an operand slot owned by owner, referencing value's
// result at index (index is only meaningful when value is a multi-result
// Instruction). The operand registers itself in value's user list.
func NewOperand(owner User, value Value, index int) *Operand {
	op := &Operand{owner: owner, value: value, index: index, selfIdx: -1}
	if value != nil {
		value.addUser(op)
	}
	return op
}

// Owner returns the User (Instruction or Expr) holding this operand slot.
func (o *Operand) Owner() User { return o.owner }

// OwnerInst returns the owning Instruction, or nil if this operand is
// owned by an Expr instead.
func (o *Operand) OwnerInst() *Instruction {
	inst, _ := o.owner.(*Instruction)
	return inst
}

// Get returns the Value this operand references.
func (o *Operand) Get() Value { return o.value }

// Index returns the sub-result index selected on a multi-result Value.
func (o *Operand) Index() int { return o.index }

// Set re-points the operand at a new value, unlinking from the old one.
func (o *Operand) Set(value Value, index int) {
	if o.value != nil {
		o.value.removeUser(o)
	}
	o.value = value
	o.index = index
	if value != nil {
		value.addUser(o)
	}
}

// Clear unlinks the operand from whatever it references.
func (o *Operand) Clear() {
	if o.value != nil {
		o.value.removeUser(o)
		o.value = nil
	}
}

// ConstantKind discriminates the leaf constant variants.
type ConstantKind uint8

const (
	ConstInt ConstantKind = iota
	ConstFloat
	ConstReg
)

// Constant is a leaf value: an integer, float, or named-register literal.
// Constants participate in the use-def graph like any other Value, even
// though they never carry operands of their own.
type Constant struct {
	Kind ConstantKind
	Int  int64
	Flt  float64
	Reg  string
	Typ  Type

	users userList
}

func NewConstantInt(v int64, t Type) *Constant     { return &Constant{Kind: ConstInt, Int: v, Typ: t} }
func NewConstantFloat(v float64, t Type) *Constant { return &Constant{Kind: ConstFloat, Flt: v, Typ: t} }
func NewConstantReg(name string) *Constant         { return &Constant{Kind: ConstReg, Reg: name} }

func (c *Constant) addUser(u *Operand)    { c.users.add(u) }
func (c *Constant) removeUser(u *Operand) { c.users.remove(u) }
func (c *Constant) Users() []*Operand     { return c.users.users() }
