package ir

// Block owns a chain of Instructions, insertion-ordered. A block is
// non-empty if its last instruction is a terminator; φ-instructions, when
// present, occupy a contiguous prefix (§3).
type Block struct {
	Label        string
	Function     *Function
	Instructions []*Instruction

	global *Global // lazily created iff the block's address is taken
}

// NewBlock creates a detached block; call Function.AddBlock (or
// InsertBlockAfter) to place it in a function.
func NewBlock(label string) *Block {
	return &Block{Label: label}
}

// AsGlobal returns the Global that stands for this block's address,
// creating it on first use; it is not entered into p's symbol table here
// (Program.DeclareBlock does that).
// This models the Global{Kind: Block} variant (§3) lazily, since most
// blocks never have their address taken.
func (b *Block) AsGlobal(p *Program) *Global {
	if b.global == nil {
		b.global = &Global{Kind: GlobalBlock, Name: b.Label, Visibility: VisibilityLocal, BlockOf: b}
	}
	return b.global
}

// Terminator returns the block's last instruction if it is a terminator,
// else nil.
func (b *Block) Terminator() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if !last.Kind.IsTerminator() {
		return nil
	}
	return last
}

// Successors returns the terminator's successor blocks, or nil if the
// block has no terminator yet.
func (b *Block) Successors() []*Block {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	return term.Successors()
}

// Phis returns the contiguous prefix of φ-instructions.
func (b *Block) Phis() []*Instruction {
	i := 0
	for i < len(b.Instructions) && b.Instructions[i].Kind == KindPhi {
		i++
	}
	return b.Instructions[:i]
}

// AddInst appends inst to the end of the block's chain.
func (b *Block) AddInst(inst *Instruction) {
	inst.block = b
	inst.order = uint64(len(b.Instructions))
	b.Instructions = append(b.Instructions, inst)
}

// InsertBefore inserts inst immediately before `before` and renumbers the
// chain's order fields so the invariant "i.order < j.order iff i precedes
// j" (§8) holds again. Renumbering the whole chain on every insertion is
// the simple, lazy strategy §5 allows ("by re-numbering lazily").
func (b *Block) InsertBefore(before, inst *Instruction) {
	idx := b.instIndex(before)
	inst.block = b
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[idx+1:], b.Instructions[idx:])
	b.Instructions[idx] = inst
	b.renumber()
}

// InsertAfter inserts inst immediately after `after`.
func (b *Block) InsertAfter(after, inst *Instruction) {
	idx := b.instIndex(after)
	inst.block = b
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[idx+2:], b.Instructions[idx+1:])
	b.Instructions[idx+1] = inst
	b.renumber()
}

func (b *Block) instIndex(inst *Instruction) int {
	for i, in := range b.Instructions {
		if in == inst {
			return i
		}
	}
	panic("ir: instruction not owned by this block")
}

func (b *Block) renumber() {
	for i, inst := range b.Instructions {
		inst.order = uint64(i)
	}
}

// Erase removes inst from the chain and disconnects it from the use-def
// graph (§3: "Erasing an instruction removes it from its parent and from
// every user list it participates in, in that order"). inst must have no
// surviving users; callers that need to replace uses first should call
// inst.ReplaceAllUsesWith.
func (b *Block) Erase(inst *Instruction) {
	idx := b.instIndex(inst)
	inst.erase()
	b.Instructions = append(b.Instructions[:idx], b.Instructions[idx+1:]...)
}

// Split divides the block after `after`: a new block containing every
// instruction following `after` is created, inserted immediately after b
// in the function, and returned. Used by the allocation inliner (§4.5)
// and by passes that need a fresh continuation point.
func (b *Block) Split(after *Instruction, newLabel string) *Block {
	idx := b.instIndex(after)
	tail := b.Instructions[idx+1:]
	b.Instructions = b.Instructions[:idx+1]

	next := NewBlock(newLabel)
	for _, inst := range tail {
		next.AddInst(inst)
	}
	b.Function.InsertBlockAfter(b, next)
	return next
}
