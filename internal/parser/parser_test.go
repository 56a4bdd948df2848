package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llir-opt/internal/ir"
)

func TestParseSimpleFunction(t *testing.T) {
	src := `
.func main
entry:
	arg.0.i64 $0
	mov.i64 $1, $0
	ret $1
`
	prog, err := Parse("t", src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)

	fn := prog.Functions[0]
	assert.Equal(t, "main", fn.Name)
	require.Len(t, fn.Blocks, 1)

	entry := fn.Blocks[0]
	require.Len(t, entry.Instructions, 3)
	assert.Equal(t, ir.KindArg, entry.Instructions[0].Kind)
	assert.Equal(t, ir.KindMov, entry.Instructions[1].Kind)
	assert.Equal(t, ir.KindReturn, entry.Instructions[2].Kind)

	ret := entry.Instructions[2]
	require.Len(t, ret.Operands, 1)
	assert.Same(t, entry.Instructions[1], ret.Operands[0].Get())
}

func TestParseLoopResolvesForwardBlockReference(t *testing.T) {
	// header's jmp names "loop" before the label is declared -- the only
	// forward block reference here, exercising blockPatches. The phi's
	// "loop" predecessor is not forward (the label is already declared by
	// the time the phi line is parsed), only the jmp is.
	src := `
.func count
header:
	$2 arg.0.i64
	jmp loop
loop:
	$0 phi.i64 loop, $1, header, $2
	$1 add.i64 $0, $0
	jcc $1, loop, exit
exit:
	ret
`
	prog, err := Parse("t", src)
	require.NoError(t, err)
	fn := prog.Functions[0]
	require.Len(t, fn.Blocks, 3)

	header, loop, exit := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2]
	assert.Equal(t, "header", header.Label)
	assert.Equal(t, "loop", loop.Label)
	assert.Equal(t, "exit", exit.Label)

	jmp := header.Instructions[1]
	require.Equal(t, ir.KindJump, jmp.Kind)
	assert.Same(t, loop, jmp.Target)

	phi := loop.Instructions[0]
	require.Len(t, phi.Incoming, 2)
	assert.Same(t, loop, phi.Incoming[0].Pred)
	assert.Same(t, header, phi.Incoming[1].Pred)

	jcc := loop.Instructions[2]
	assert.Same(t, loop, jcc.IfTrue)
	assert.Same(t, exit, jcc.IfFalse)
}

func TestParseForwardCallResolvesThroughExternPromotion(t *testing.T) {
	src := `
.func caller
entry:
	call.i64 $0, callee
	ret $0
.func callee
callee_entry:
	ret
`
	prog, err := Parse("t", src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 2)

	caller := prog.Functions[0]
	call := caller.Blocks[0].Instructions[0]
	require.Equal(t, ir.KindCall, call.Kind)

	g, ok := call.Callee.Get().(*ir.Global)
	require.True(t, ok)
	assert.Equal(t, ir.GlobalFunc, g.Kind)
	assert.Same(t, prog.Functions[1], g.Func)
}

func TestParseCallWithContinuationBlock(t *testing.T) {
	src := `
.func caller
entry:
	arg.0.i64 $0
	call.i64 $1, callee, $0, cont
cont:
	ret $1
`
	prog, err := Parse("t", src)
	require.NoError(t, err)
	fn := prog.Functions[0]
	call := fn.Blocks[0].Instructions[1]
	require.Equal(t, ir.KindCall, call.Kind)
	require.NotNil(t, call.Target)
	assert.Equal(t, "cont", call.Target.Label)
	require.Len(t, call.Args, 1)
}

func TestParseExternAndXtor(t *testing.T) {
	src := `
.extern init_fn
.ctor 100, init_fn
.func main
entry:
	ret
`
	prog, err := Parse("t", src)
	require.NoError(t, err)
	require.Len(t, prog.Xtors, 1)
	assert.Equal(t, ir.XtorCtor, prog.Xtors[0].Kind)
	assert.Equal(t, 100, prog.Xtors[0].Priority)

	g, ok := prog.Global("init_fn")
	require.True(t, ok)
	assert.Equal(t, ir.GlobalExtern, g.Kind)
}

func TestParseDataSection(t *testing.T) {
	src := `
.section data
.object
.align 8
counter:
	.quad 42
	.space 4
`
	prog, err := Parse("t", src)
	require.NoError(t, err)
	require.Len(t, prog.Data, 1)
	ds := prog.Data[0]
	assert.Equal(t, "data", ds.Name)
	require.Len(t, ds.Objects, 1)
	require.Len(t, ds.Objects[0].Atoms, 1)

	atom := ds.Objects[0].Atoms[0]
	assert.Equal(t, 8, atom.Align)
	require.Len(t, atom.Items, 2)
	assert.Equal(t, ir.ItemInt64, atom.Items[0].Kind)
	assert.Equal(t, int64(42), atom.Items[0].Int)
	assert.Equal(t, ir.ItemSpace, atom.Items[1].Kind)
}

func TestParseProbabilityAnnotation(t *testing.T) {
	src := `
.func main
entry:
	arg.0.i8 $0
	jcc $0, a, b @probability(3, 7)
a:
	ret
b:
	ret
`
	prog, err := Parse("t", src)
	require.NoError(t, err)
	jcc := prog.Functions[0].Blocks[0].Instructions[1]
	prob, ok := jcc.Annot.Probability()
	require.True(t, ok)
	assert.Equal(t, int64(3), prob.N)
	assert.Equal(t, int64(7), prob.D)
}

func TestParseCamlFrameAnnotation(t *testing.T) {
	src := `
.func main
entry:
	$0 call.i64 callee @caml_frame((0), ((1, "a.ml", "f")))
	ret $0
.func callee
callee_entry:
	ret
`
	prog, err := Parse("t", src)
	require.NoError(t, err)
	call := prog.Functions[0].Blocks[0].Instructions[0]
	frame, ok := call.Annot.CamlFrame()
	require.True(t, ok)
	assert.Equal(t, []int{0}, frame.Allocs)
	require.Len(t, frame.Infos, 1)
	assert.Equal(t, []int{1}, frame.Infos[0])
}

func TestParseCxxLSDAAnnotation(t *testing.T) {
	src := `
.func main
entry:
	landing_pad.i64 $0 @cxx_lsda(0, 1, (), ("int"))
	ret
`
	prog, err := Parse("t", src)
	require.NoError(t, err)
	lp := prog.Functions[0].Blocks[0].Instructions[0]
	lsda, ok := lp.Annot.CxxLSDA()
	require.True(t, ok)
	assert.False(t, lsda.Cleanup)
	assert.True(t, lsda.CatchAll)
	assert.Empty(t, lsda.CatchTys)
	assert.Equal(t, []string{"int"}, lsda.FilterTys)
}

func TestParseDuplicateProbabilityIsError(t *testing.T) {
	src := `
.func main
entry:
	arg.0.i8 $0
	jcc $0, a, b @probability(1, 2) @probability(1, 2)
a:
	ret
b:
	ret
`
	_, err := Parse("t", src)
	require.Error(t, err)
}

func TestParseUnknownOpcodeIsError(t *testing.T) {
	src := `
.func main
entry:
	bogusop $0
`
	_, err := Parse("t", src)
	require.Error(t, err)
}

func TestParseMultipleStrongDefinitionsIsError(t *testing.T) {
	src := `
.func dup
entry:
	ret
.func dup
entry:
	ret
`
	_, err := Parse("t", src)
	require.Error(t, err)
}
