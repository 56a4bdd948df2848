package ir

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Printer renders a Program as a readable text dump, used for the CLI's
// .llir/.llbc output and for the IR handed to the back-end. Its
// `$N:type = opcode` instruction form is not the syntax internal/parser
// reads, so printed output does not parse back.
type Printer struct {
	w   io.Writer
	err error
}

func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Print renders an entire program; the data section precedes functions,
// matching the source toolchain's canonical emission order.
func (p *Printer) Print(prog *Program) error {
	for _, ds := range prog.Data {
		p.printDataSection(ds)
	}
	for _, x := range prog.Xtors {
		p.printXtor(x)
	}
	for _, fn := range prog.Functions {
		p.printFunction(fn)
	}
	return p.err
}

func (p *Printer) printXtor(x *Xtor) {
	kw := ".ctor"
	if x.Kind == XtorDtor {
		kw = ".dtor"
	}
	p.printf("%s %d, %s\n", kw, x.Priority, x.Func.Name)
}

func (p *Printer) printDataSection(ds *DataSection) {
	p.printf(".section %s\n", ds.Name)
	for _, obj := range ds.Objects {
		p.printf(".object\n")
		for _, atom := range obj.Atoms {
			p.printAtom(atom)
		}
	}
}

func (p *Printer) printAtom(a *Atom) {
	p.printf(".align %d\n%s:\n", a.Align, a.Global.Name)
	for _, it := range a.Items {
		switch it.Kind {
		case ItemInt8:
			p.printf("\t.byte\t%d\n", it.Int)
		case ItemInt16:
			p.printf("\t.short\t%d\n", it.Int)
		case ItemInt32:
			p.printf("\t.long\t%d\n", it.Int)
		case ItemInt64:
			p.printf("\t.quad\t%d\n", it.Int)
		case ItemFloat64:
			p.printf("\t.double\t%f\n", it.Float)
		case ItemSpace:
			p.printf("\t.space\t%d\n", it.Space)
		case ItemString:
			p.printf("\t.ascii\t%q\n", it.Str)
		case ItemExpr:
			p.printf("\t.quad\t%s+%d\n", it.Expr.Symbol.Name, it.Expr.Offset)
		}
	}
}

func (p *Printer) printFunction(f *Function) {
	vis := visString(f.Visibility)
	p.printf("%s.func %s\n", vis, f.Name)
	for _, b := range f.Blocks {
		p.printf("%s:\n", b.Label)
		for _, inst := range b.Instructions {
			p.printInst(inst)
		}
	}
	p.printf("\n")
}

func visString(v Visibility) string {
	switch v {
	case VisibilityExtern:
		return ".extern\n"
	case VisibilityHidden:
		return ".hidden\n"
	default:
		return ""
	}
}

func (p *Printer) printInst(inst *Instruction) {
	var sb strings.Builder
	sb.WriteByte('\t')
	if n := len(inst.Types); n > 0 {
		results := make([]string, n)
		for i := range results {
			results[i] = fmt.Sprintf("$%d%s", i, inst.Types[i].String())
		}
		sb.WriteString(strings.Join(results, ", "))
		sb.WriteString(" = ")
	}
	sb.WriteString(inst.Kind.String())
	for _, op := range inst.Operands {
		sb.WriteByte(' ')
		sb.WriteString(operandString(op))
	}
	switch inst.Kind {
	case KindJump:
		sb.WriteString(" " + inst.Target.Label)
	case KindJumpCond:
		sb.WriteString(", " + inst.IfTrue.Label + ", " + inst.IfFalse.Label)
	case KindSwitch:
		for _, c := range inst.Cases {
			sb.WriteString(fmt.Sprintf(", %s", c.Target.Label))
		}
	case KindCall, KindTailCall, KindInvoke:
		if inst.Target != nil {
			sb.WriteString(", " + inst.Target.Label)
		}
		if inst.Unwind != nil {
			sb.WriteString(", " + inst.Unwind.Label)
		}
	}
	sb.WriteByte('\n')
	p.printf("%s", sb.String())
}

func operandString(op *Operand) string {
	switch v := op.Get().(type) {
	case *Constant:
		switch v.Kind {
		case ConstInt:
			return fmt.Sprintf("%d", v.Int)
		case ConstFloat:
			return fmt.Sprintf("%g", v.Flt)
		default:
			return "$" + v.Reg
		}
	case *Global:
		return v.Name
	case *Expr:
		if v.Offset == 0 {
			return v.Symbol.Name
		}
		return fmt.Sprintf("%s+%d", v.Symbol.Name, v.Offset)
	case *Instruction:
		return fmt.Sprintf("%%%d", v.order)
	default:
		return "<nil>"
	}
}

// SortedGlobalNames is a small helper used by tests and diagnostics that
// want a deterministic traversal over Program.Globals.
func SortedGlobalNames(p *Program) []string {
	names := make([]string, 0, len(p.globals))
	for name := range p.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
