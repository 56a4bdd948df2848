package ir

import "llir-opt/token"

// ParamFlag carries the per-parameter attribute bits the parser can attach
// (§3: "parameter list (ordered (Type, flags) pairs)"). Only the flags the
// core needs to reason about appear here; target-specific ABI flags live
// in annotations instead.
type ParamFlag uint8

const (
	ParamFlagNone    ParamFlag = 0
	ParamFlagByVal   ParamFlag = 1 << iota
	ParamFlagSExt
	ParamFlagZExt
)

// Parameter is one (Type, flags) entry in a Function's parameter list.
type Parameter struct {
	Type  Type
	Flags ParamFlag
}

// Function owns a chain of Blocks, insertion-ordered, the first being the
// entry (§3).
type Function struct {
	Name       string
	Global     *Global
	Program    *Program
	Visibility Visibility
	Exported   bool

	Params   []Parameter
	CallConv token.CallingConv
	VarArg   bool

	Blocks []*Block

	blockCounter uint64 // per-function synthetic-label counter, §9
}

// NewFunction creates a detached function; call Program.AddFunction to
// register it.
func NewFunction(name string, callConv token.CallingConv) *Function {
	return &Function{Name: name, CallConv: callConv}
}

// Entry returns the function's entry block, or nil if it has none.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// AddBlock appends b to the function's block chain.
func (f *Function) AddBlock(b *Block) {
	b.Function = f
	f.Blocks = append(f.Blocks, b)
}

// InsertBlockAfter inserts b immediately after `after` in the chain.
func (f *Function) InsertBlockAfter(after, b *Block) {
	b.Function = f
	idx := f.blockIndex(after)
	f.Blocks = append(f.Blocks, nil)
	copy(f.Blocks[idx+2:], f.Blocks[idx+1:])
	f.Blocks[idx+1] = b
}

func (f *Function) blockIndex(b *Block) int {
	for i, blk := range f.Blocks {
		if blk == b {
			return i
		}
	}
	panic("ir: block not owned by function")
}

// EraseBlock removes b from the chain. b must be empty of instructions
// with surviving users outside the block itself.
func (f *Function) EraseBlock(b *Block) {
	idx := f.blockIndex(b)
	f.Blocks = append(f.Blocks[:idx], f.Blocks[idx+1:]...)
}

// NextSyntheticLabel returns the next `.LBB<suffix>$N` label for this
// function, using a per-function counter rather than the process-wide
// counter the source toolchain uses for the same purpose (§9: "promote it
// to a per-function counter").
func (f *Function) NextSyntheticLabel(suffix string) string {
	n := f.blockCounter
	f.blockCounter++
	return ".LBB" + suffix + "$" + itoa(n)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
