// Package parser turns the textual IR lexer/parser's instruction grammar
// into an ir.Program, by recursive descent over internal/lexer's tokens.
// Grounded on core/parser.cpp and core/parser_inst.cpp: opcodes decompose
// into a dot-separated mnemonic plus size/condition/type/calling-convention
// suffix tokens, operands are a flat comma-separated stream whose leading
// entries bind result vregs and whose trailing entries are uses, and block
// labels are declared as Globals, while a forward jump target, phi
// predecessor or call continuation is patched by label name once the
// function has been scanned (blockPatch).
package parser

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"llir-opt/internal/ir"
	"llir-opt/internal/lexer"
	"llir-opt/token"
)

// Error is a syntax error raised while parsing, carrying the lexer
// position it occurred at.
type Error struct {
	Pos lexer.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// pendingOperand records a use operand that referenced a vreg not yet
// bound to a value at the point it was parsed; it is resolved once the
// enclosing function has been fully scanned, since a phi's incoming value
// may be defined by a block that appears later in program order.
type pendingOperand struct {
	op   *ir.Operand
	vreg uint64
}

type vregBinding struct {
	value ir.Value
	index int
}

// Parser holds the state threaded through one function's worth of
// parsing: the lexer, the program being built, and the current function's
// vreg bindings.
type Parser struct {
	l    *lexer.Lexer
	prog *ir.Program

	fn       *ir.Function
	vregDefs map[uint64]vregBinding
	pending  []pendingOperand

	blockDefs    map[string]*ir.Block
	blockPatches []blockPatch
}

// blockPatch records a *ir.Block field that named a block label not yet
// declared at the point it was parsed (a forward jump, e.g. a loop back
// edge); it is resolved once the whole function has been scanned, since
// block labels -- unlike SSA values -- are not threaded through the
// use-def graph and so get no benefit from Program's extern-placeholder
// promotion.
type blockPatch struct {
	target **ir.Block
	name   string
}

func (p *Parser) resolveBlock(target **ir.Block, name string) {
	if b, ok := p.blockDefs[name]; ok {
		*target = b
		return
	}
	p.blockPatches = append(p.blockPatches, blockPatch{target: target, name: name})
}

// Parse parses buf into a new Program named name.
func Parse(name, buf string) (prog *ir.Program, err error) {
	p := &Parser{prog: ir.NewProgram(name)}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		// errorf/the lexer panic with errors.WithStack-wrapped *Error
		// values; unwrap to the underlying error before type-asserting, so
		// the cause still carries a stack trace for anything that reaches
		// the pipeline boundary unrecognized (internal/diag).
		cause := r
		if rerr, ok := r.(error); ok {
			cause = errors.Cause(rerr)
		}
		if e, ok := cause.(*Error); ok {
			err = e
			return
		}
		if e, ok := cause.(*lexer.Error); ok {
			err = &Error{Pos: e.Pos, Msg: e.Msg}
			return
		}
		panic(r)
	}()
	p.l = lexer.New(buf)
	p.parseProgram()
	return p.prog, nil
}

// errorf panics with a stack-annotated *Error, mirroring lexer.errorf.
func (p *Parser) errorf(format string, args ...any) {
	panic(errors.WithStack(&Error{Pos: p.l.Pos(), Msg: fmt.Sprintf(format, args...)}))
}

func (p *Parser) skipNewlines() {
	for p.l.Token() == lexer.NEWLINE {
		p.l.NextToken()
	}
}

func (p *Parser) expectIdent() {
	if p.l.Token() != lexer.IDENT {
		p.errorf("expected an identifier, got %s", p.l.Token())
	}
}

func isDirective(name string) bool {
	switch name {
	case ".extern", ".section", ".ctor", ".dtor", ".func", ".hidden", ".weak":
		return true
	default:
		return false
	}
}

// ---- top level ----

func (p *Parser) parseProgram() {
	p.skipNewlines()
	for !p.l.AtEnd() {
		p.expectIdent()
		name := p.l.String()
		switch name {
		case ".extern":
			p.l.NextToken()
			p.expectIdent()
			p.prog.GetOrCreateExtern(p.l.String())
			p.l.NextToken()
		case ".section":
			p.parseDataSection()
		case ".ctor", ".dtor":
			p.parseXtor(name)
		case ".func":
			p.parseFunction(ir.VisibilityLocal, false)
		case ".hidden":
			p.l.NextToken()
			p.expectDirective(".func")
			p.parseFunction(ir.VisibilityHidden, false)
		case ".weak":
			p.l.NextToken()
			p.expectDirective(".func")
			p.parseFunction(ir.VisibilityLocal, true)
		default:
			p.errorf("unexpected top-level directive %q", name)
		}
		p.skipNewlines()
	}
}

func (p *Parser) expectDirective(name string) {
	p.expectIdent()
	if p.l.String() != name {
		p.errorf("expected %s, got %q", name, p.l.String())
	}
	p.l.NextToken()
}

func (p *Parser) parseXtor(kw string) {
	p.l.NextToken()
	if p.l.Token() != lexer.NUMBER {
		p.errorf("expected a priority, got %s", p.l.Token())
	}
	priority := int(p.l.Int())
	p.l.NextToken()
	if p.l.Token() != lexer.COMMA {
		p.errorf("expected ','")
	}
	p.l.NextToken()
	p.expectIdent()
	g := p.prog.GetOrCreateExtern(p.l.String())
	p.l.NextToken()

	kind := ir.XtorCtor
	if kw == ".dtor" {
		kind = ir.XtorDtor
	}
	p.prog.AddXtor(kind, priority, g.Func)
}

// ---- data section ----

func (p *Parser) parseDataSection() {
	p.l.NextToken()
	p.expectIdent()
	ds := p.prog.AddData(p.l.String())
	p.l.NextToken()
	p.skipNewlines()

	for p.l.Token() == lexer.IDENT && p.l.String() == ".object" {
		p.l.NextToken()
		p.skipNewlines()
		p.parseObject(ds)
	}
}

func (p *Parser) parseObject(ds *ir.DataSection) {
	obj := ds.AddObject()
	align := 1
	for p.l.Token() == lexer.IDENT {
		switch p.l.String() {
		case ".align":
			p.l.NextToken()
			if p.l.Token() != lexer.NUMBER {
				p.errorf("expected an alignment")
			}
			align = int(p.l.Int())
			p.l.NextToken()
			p.skipNewlines()
		case ".object":
			return
		default:
			p.parseAtom(obj, align)
		}
	}
}

func (p *Parser) parseAtom(obj *ir.Object, align int) {
	name := p.l.String()
	p.l.NextToken()
	if p.l.Token() != lexer.COLON {
		p.errorf("expected ':' after atom label")
	}
	p.l.NextToken()
	p.skipNewlines()

	atom, err := obj.AddAtom(p.prog, name, ir.VisibilityHidden)
	if err != nil {
		p.errorf("%s", err)
	}
	atom.Align = align

	for p.l.Token() == lexer.IDENT {
		switch p.l.String() {
		case ".byte", ".short", ".long", ".quad", ".space", ".ascii", ".double":
			p.parseItem(atom)
			p.skipNewlines()
		default:
			return
		}
	}
}

var itemKindByDirective = map[string]ir.ItemKind{
	".byte": ir.ItemInt8, ".short": ir.ItemInt16,
	".long": ir.ItemInt32, ".quad": ir.ItemInt64,
}

func (p *Parser) parseItem(atom *ir.Atom) {
	directive := p.l.String()
	p.l.NextToken()
	switch directive {
	case ".space":
		if p.l.Token() != lexer.NUMBER {
			p.errorf("expected a byte count")
		}
		atom.AddItem(&ir.Item{Kind: ir.ItemSpace, Space: int(p.l.Int())})
		p.l.NextToken()
	case ".ascii":
		if p.l.Token() != lexer.STRING {
			p.errorf("expected a string")
		}
		atom.AddItem(&ir.Item{Kind: ir.ItemString, Str: p.l.String()})
		p.l.NextToken()
	case ".double":
		if p.l.Token() != lexer.NUMBER {
			p.errorf("expected a float bit pattern")
		}
		atom.AddItem(&ir.Item{Kind: ir.ItemFloat64, Float: float64(p.l.Int())})
		p.l.NextToken()
	default:
		kind, ok := itemKindByDirective[directive]
		if !ok {
			p.errorf("unknown data directive %q", directive)
		}
		neg := int64(1)
		if p.l.Token() == lexer.MINUS {
			neg = -1
			p.l.NextToken()
		}
		if p.l.Token() != lexer.NUMBER {
			p.errorf("expected a number")
		}
		atom.AddItem(&ir.Item{Kind: kind, Int: neg * p.l.Int()})
		p.l.NextToken()
	}
}

// ---- function body ----

func (p *Parser) parseFunction(vis ir.Visibility, exported bool) {
	p.l.NextToken()
	p.expectIdent()
	name := p.l.String()
	p.l.NextToken()
	p.skipNewlines()

	fn := ir.NewFunction(name, token.CallingConvC)
	fn.Visibility = vis
	fn.Exported = exported
	if err := p.prog.AddFunction(fn); err != nil {
		p.errorf("%s", err)
	}

	p.fn = fn
	p.vregDefs = make(map[uint64]vregBinding)
	p.pending = nil
	p.blockDefs = make(map[string]*ir.Block)
	p.blockPatches = nil

	for p.l.Token() == lexer.IDENT && !isDirective(p.l.String()) {
		p.parseBlockOrInst()
		p.skipNewlines()
	}

	for _, pend := range p.pending {
		b, ok := p.vregDefs[pend.vreg]
		if !ok {
			p.errorf("undefined virtual register $%d", pend.vreg)
		}
		pend.op.Set(b.value, b.index)
	}
	for _, bp := range p.blockPatches {
		b, ok := p.blockDefs[bp.name]
		if !ok {
			p.errorf("undefined block label %q", bp.name)
		}
		*bp.target = b
	}
}

// currentBlock returns the function's last block, implicitly starting a
// fresh one if the function is empty or its last block already ends in a
// terminator (core/parser_inst.cpp's ParseInstruction).
func (p *Parser) currentBlock() *ir.Block {
	if len(p.fn.Blocks) == 0 {
		b := ir.NewBlock(p.fn.NextSyntheticLabel("entry"))
		p.fn.AddBlock(b)
		return b
	}
	last := p.fn.Blocks[len(p.fn.Blocks)-1]
	if last.Terminator() != nil {
		b := ir.NewBlock(p.fn.NextSyntheticLabel("term"))
		p.fn.AddBlock(b)
		return b
	}
	return last
}

func (p *Parser) parseBlockOrInst() {
	name := p.l.String()
	p.l.NextToken()
	if p.l.Token() == lexer.COLON {
		p.l.NextToken()
		p.skipNewlines()
		b := ir.NewBlock(name)
		p.fn.AddBlock(b)
		if err := p.prog.DeclareBlock(b); err != nil {
			p.errorf("%s", err)
		}
		p.blockDefs[name] = b
		return
	}
	p.parseInstruction(name)
}

// ---- instructions ----

var kindByMnemonic = map[string]ir.Kind{
	"load": ir.KindLoad, "store": ir.KindStore, "xchg": ir.KindXchg,
	"frame": ir.KindFrame, "mov": ir.KindMov, "arg": ir.KindArg,
	"add": ir.KindAdd, "sub": ir.KindSub, "mul": ir.KindMul,
	"and": ir.KindAnd, "or": ir.KindOr, "xor": ir.KindXor,
	"shl": ir.KindShl, "shr": ir.KindShr, "cmp": ir.KindCmp,
	"select": ir.KindSelect, "phi": ir.KindPhi,
	"jmp": ir.KindJump, "jcc": ir.KindJumpCond, "switch": ir.KindSwitch,
	"ret": ir.KindReturn, "trap": ir.KindTrap, "raise": ir.KindRaise,
	"call": ir.KindCall, "tcall": ir.KindTailCall, "invoke": ir.KindInvoke,
	"landing_pad": ir.KindLandingPad,
}

// decodedOpcode is the result of splitting a dotted mnemonic into its
// instruction kind and suffix-encoded attributes (core/parser_inst.cpp:
// ParseInstruction's opcode-token loop).
type decodedOpcode struct {
	kind     ir.Kind
	size     int
	hasSize  bool
	cond     token.Cond
	hasCond  bool
	types    []ir.Type
	conv     token.CallingConv
	hasConv  bool
}

func (p *Parser) decodeOpcode(opcode string) decodedOpcode {
	parts := strings.Split(opcode, ".")
	kind, ok := kindByMnemonic[parts[0]]
	if !ok {
		p.errorf("unknown opcode %q", parts[0])
	}
	out := decodedOpcode{kind: kind}
	for _, tok := range parts[1:] {
		if tok == "" {
			p.errorf("invalid opcode %q", opcode)
		}
		if typ, ok := ir.LookupType(tok); ok {
			out.types = append(out.types, typ)
			continue
		}
		if cond, ok := token.LookupCond(tok); ok {
			out.cond = cond
			out.hasCond = true
			continue
		}
		if tok[0] >= '0' && tok[0] <= '9' {
			var n int
			for _, c := range tok {
				if c < '0' || c > '9' {
					p.errorf("invalid opcode %q", opcode)
				}
				n = n*10 + int(c-'0')
			}
			out.size = n
			out.hasSize = true
			continue
		}
		if conv, ok := token.LookupCallingConv(tok); ok {
			out.conv = conv
			out.hasConv = true
			continue
		}
		p.errorf("invalid opcode suffix %q in %q", tok, opcode)
	}
	return out
}

// rawOperand is a single parsed operand slot before it is bound into an
// Instruction's typed fields: either a resolved Value, a deferred vreg
// reference, or a block-name reference.
type rawOperand struct {
	value Value
	vreg  uint64
	isRef bool // true if this operand is a (possibly forward) vreg use
	name  string // the bare identifier text, set only for unqualified symbol refs
}

// Value aliases ir.Value to keep this file's operand plumbing terse.
type Value = ir.Value

func (p *Parser) parseInstruction(opcode string) {
	dec := p.decodeOpcode(opcode)

	var ops []rawOperand
loop:
	for {
		switch p.l.Token() {
		case lexer.NEWLINE, lexer.END:
			break loop
		case lexer.REG:
			ops = append(ops, rawOperand{value: ir.NewConstantReg(p.l.Reg())})
			p.l.NextToken()
		case lexer.VREG:
			v := p.l.VReg()
			ops = append(ops, rawOperand{vreg: v, isRef: true})
			if p.l.NextToken() == lexer.COLON {
				// A "$123:flagname" type-flag suffix (e.g. sext/zext on a
				// call argument); the flag name itself is consumed but not
				// retained, since this port's Instruction has no per-operand
				// flag field to carry it to.
				p.l.NextToken()
				p.expectIdent()
				p.l.NextToken()
			}
		case lexer.LBRACKET:
			if p.l.NextToken() != lexer.VREG {
				p.errorf("expected a virtual register in '[...]'")
			}
			v := p.l.VReg()
			ops = append(ops, rawOperand{vreg: v, isRef: true})
			if p.l.NextToken() != lexer.RBRACKET {
				p.errorf("expected ']'")
			}
			p.l.NextToken()
		case lexer.MINUS:
			p.l.NextToken()
			if p.l.Token() != lexer.NUMBER {
				p.errorf("expected a number after '-'")
			}
			ops = append(ops, rawOperand{value: ir.NewConstantInt(-p.l.Int(), ir.I64)})
			p.l.NextToken()
		case lexer.NUMBER:
			ops = append(ops, rawOperand{value: ir.NewConstantInt(p.l.Int(), ir.I64)})
			p.l.NextToken()
		case lexer.IDENT:
			name := p.l.String()
			g := p.prog.GetOrCreateExtern(name)
			switch p.l.NextToken() {
			case lexer.PLUS:
				p.l.NextToken()
				if p.l.Token() != lexer.NUMBER {
					p.errorf("expected a number after '+'")
				}
				ops = append(ops, rawOperand{value: p.prog.GetOrCreateExpr(g, p.l.Int())})
				p.l.NextToken()
			case lexer.MINUS:
				p.l.NextToken()
				if p.l.Token() != lexer.NUMBER {
					p.errorf("expected a number after '-'")
				}
				ops = append(ops, rawOperand{value: p.prog.GetOrCreateExpr(g, -p.l.Int())})
				p.l.NextToken()
			default:
				ops = append(ops, rawOperand{value: g, name: name})
			}
		default:
			p.errorf("invalid argument, got %s", p.l.Token())
		}
		if p.l.Token() == lexer.COMMA {
			p.l.NextToken()
			continue
		}
		break
	}

	var annot ir.AnnotSet
	for p.l.Token() == lexer.ANNOT {
		name := p.l.String()
		p.l.NextToken()
		p.parseAnnotation(name, &annot)
	}
	if p.l.Token() != lexer.NEWLINE && p.l.Token() != lexer.END {
		p.errorf("expected newline after instruction")
	}

	block := p.currentBlock()
	inst := p.build(dec, ops)
	inst.Annot = annot
	block.AddInst(inst)

	for idx := 0; idx < inst.NumResults(); idx++ {
		if idx >= len(ops) || !ops[idx].isRef {
			p.errorf("expected a virtual register for result %d", idx)
		}
		p.vregDefs[ops[idx].vreg] = vregBinding{value: inst, index: idx}
	}
}

// operand resolves ops[idx] into a usable ir.Value, deferring resolution
// via a pendingOperand patch if it is a forward vreg reference. It is
// used by build to wire an instruction's non-result operands.
func (p *Parser) operand(inst *ir.Instruction, ops []rawOperand, idx int) *ir.Operand {
	if idx < 0 {
		idx += len(ops)
	}
	if idx < 0 || idx >= len(ops) {
		p.errorf("missing operand %d", idx)
	}
	raw := ops[idx]
	if !raw.isRef {
		return inst.AddOperand(raw.value)
	}
	if b, ok := p.vregDefs[raw.vreg]; ok {
		return inst.AddOperandIndexed(b.value, b.index)
	}
	op := inst.AddOperand(nil)
	p.pending = append(p.pending, pendingOperand{op: op, vreg: raw.vreg})
	return op
}

// blockOperandName returns the label text of a block-target operand,
// validating that it was parsed as a bare identifier (no +/- offset).
func (p *Parser) blockOperandName(ops []rawOperand, idx int) string {
	if idx < 0 {
		idx += len(ops)
	}
	if idx < 0 || idx >= len(ops) {
		p.errorf("missing block operand %d", idx)
	}
	if ops[idx].name == "" {
		p.errorf("expected a block label")
	}
	return ops[idx].name
}

// setBlockOperand resolves ops[idx] as a block label into *target,
// deferring to a blockPatch if the label has not been declared yet
// (resolveBlock).
func (p *Parser) setBlockOperand(target **ir.Block, ops []rawOperand, idx int) {
	p.resolveBlock(target, p.blockOperandName(ops, idx))
}
