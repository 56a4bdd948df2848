package ir

import "fmt"

// Program is the top-level IR container: an ordered sequence of Functions,
// an ordered sequence of Data sections, an ordered sequence of Xtors, and a
// global symbol table (§3).
type Program struct {
	Name      string
	Functions []*Function
	Data      []*DataSection
	Xtors     []*Xtor

	globals map[string]*Global
	exprs   map[exprKey]*Expr
}

// NewProgram creates an empty program named name.
func NewProgram(name string) *Program {
	return &Program{
		Name:    name,
		globals: make(map[string]*Global),
		exprs:   make(map[exprKey]*Expr),
	}
}

// Global looks up a symbol by name.
func (p *Program) Global(name string) (*Global, bool) {
	g, ok := p.globals[name]
	return g, ok
}

// Globals returns every symbol currently registered, in no particular
// order -- callers that need determinism should sort by Name.
func (p *Program) Globals() []*Global {
	out := make([]*Global, 0, len(p.globals))
	for _, g := range p.globals {
		out = append(out, g)
	}
	return out
}

// declareGlobal resolves linkage for a newly encountered name (§3: "Name
// lookup across a program is unique; duplicate insertion resolves by
// linkage rules", §7 Linking errors). An Extern placeholder is replaced in
// place by its strong definition; two strong (non-extern) definitions of
// the same name is a linking error.
func (p *Program) declareGlobal(g *Global) error {
	existing, ok := p.globals[g.Name]
	if !ok {
		g.program = p
		p.globals[g.Name] = g
		return nil
	}
	if existing.Kind == GlobalExtern && g.Kind != GlobalExtern {
		// Promote the extern placeholder: move its accumulated uses onto
		// the strong definition and replace the symbol table entry.
		for _, use := range existing.Users() {
			use.Set(g, use.Index())
		}
		g.program = p
		p.globals[g.Name] = g
		return nil
	}
	if g.Kind == GlobalExtern {
		// A later extern declaration of an already-defined symbol is a
		// no-op: keep the existing (possibly strong) definition.
		return nil
	}
	return fmt.Errorf("ir: multiple strong definitions of symbol %q", g.Name)
}

// GetOrCreateExtern returns the Global named name, creating an Extern
// placeholder if it is not yet declared.
func (p *Program) GetOrCreateExtern(name string) *Global {
	if g, ok := p.globals[name]; ok {
		return g
	}
	g := &Global{Kind: GlobalExtern, Name: name, Visibility: VisibilityExtern}
	_ = p.declareGlobal(g)
	return g
}

// DeclareBlock registers a block's address-taken Global with the symbol
// table, resolving any forward references to it the same way AddFunction
// resolves forward calls (§3: blocks are Globals like functions and atoms).
func (p *Program) DeclareBlock(b *Block) error {
	return p.declareGlobal(b.AsGlobal(p))
}

// AddFunction declares f's Global and appends it to the program.
func (p *Program) AddFunction(f *Function) error {
	g := &Global{Kind: GlobalFunc, Name: f.Name, Visibility: f.Visibility, Exported: f.Exported, Func: f}
	if err := p.declareGlobal(g); err != nil {
		return err
	}
	f.Global = g
	f.Program = p
	p.Functions = append(p.Functions, f)
	return nil
}

// AddData appends a new, empty data section named name.
func (p *Program) AddData(name string) *DataSection {
	ds := &DataSection{Program: p, Name: name}
	p.Data = append(p.Data, ds)
	return ds
}

// XtorKind distinguishes constructor from destructor registrations.
type XtorKind uint8

const (
	XtorCtor XtorKind = iota
	XtorDtor
)

// Xtor is a constructor/destructor registration at program scope (§3).
type Xtor struct {
	Kind     XtorKind
	Priority int
	Func     *Function
}

// AddXtor registers a constructor/destructor for fn at the given priority.
func (p *Program) AddXtor(kind XtorKind, priority int, fn *Function) {
	p.Xtors = append(p.Xtors, &Xtor{Kind: kind, Priority: priority, Func: fn})
}

// DataSection owns an ordered sequence of Objects (§3).
type DataSection struct {
	Program *Program
	Name    string
	Objects []*Object
}

// AddObject appends a new, empty grouping boundary to the section.
func (d *DataSection) AddObject() *Object {
	o := &Object{DataSection: d}
	d.Objects = append(d.Objects, o)
	return o
}

// Object is a grouping boundary for alias analyses (§4.3): an ordered
// sequence of Atoms treated as a single alias-analysis unit.
type Object struct {
	DataSection *DataSection
	Atoms       []*Atom
}

// AddAtom appends a new, addressable Atom named name to the object and
// registers it as a program Global.
func (o *Object) AddAtom(p *Program, name string, vis Visibility) (*Atom, error) {
	a := &Atom{Object: o}
	g := &Global{Kind: GlobalAtom, Name: name, Visibility: vis, AtomOf: a}
	if err := p.declareGlobal(g); err != nil {
		return nil, err
	}
	a.Global = g
	o.Atoms = append(o.Atoms, a)
	return a, nil
}

// ItemKind discriminates the literal-data shapes an Atom's Items can hold.
type ItemKind uint8

const (
	ItemInt8 ItemKind = iota
	ItemInt16
	ItemInt32
	ItemInt64
	ItemFloat64
	ItemSpace
	ItemString
	ItemExpr
)

// Item is one piece of typed literal data inside an Atom (§3).
type Item struct {
	Kind  ItemKind
	Int   int64
	Float float64
	Str   string
	Space int
	Expr  *Expr
}

// Size returns the number of bytes this item occupies.
func (it Item) Size() int {
	switch it.Kind {
	case ItemInt8:
		return 1
	case ItemInt16:
		return 2
	case ItemInt32:
		return 4
	case ItemInt64, ItemExpr:
		return 8
	case ItemFloat64:
		return 8
	case ItemSpace:
		return it.Space
	case ItemString:
		return len(it.Str)
	default:
		return 0
	}
}

// Atom is a labeled, aligned chunk of initialized data within an Object
// (GLOSSARY); Atoms are addressable Globals.
type Atom struct {
	Global *Global
	Object *Object
	Align  int
	Items  []*Item
}

// AddItem appends a literal data item.
func (a *Atom) AddItem(it *Item) { a.Items = append(a.Items, it) }

// Store overwrites (or extends, zero-filling) the atom's item stream so
// that the bytes at [offset, offset+sizeOf(typ)) hold value, used by the
// global forwarder to fold a constant store into initialized data (§4.4).
// This is a byte-level overwrite: it decomposes the existing items it
// intersects and reconstructs them around the new literal.
func (a *Atom) Store(offset int64, value int64, typ Type) {
	width := typ.Size()
	bytes := make([]byte, width)
	for i := 0; i < width; i++ {
		bytes[i] = byte(value >> (8 * uint(i)))
	}

	flat := a.flatten()
	for i, b := range bytes {
		idx := int(offset) + i
		for idx >= len(flat) {
			flat = append(flat, 0)
		}
		flat[idx] = b
	}
	a.Items = a.Items[:0]
	for _, b := range flat {
		a.Items = append(a.Items, &Item{Kind: ItemInt8, Int: int64(b)})
	}
}

// flatten expands every fixed-width/space item into raw bytes; Expr items
// are preserved as 8-byte zero placeholders since their value is resolved
// by the emitter, not stored inline.
func (a *Atom) flatten() []byte {
	var out []byte
	for _, it := range a.Items {
		switch it.Kind {
		case ItemString:
			out = append(out, []byte(it.Str)...)
		case ItemSpace:
			out = append(out, make([]byte, it.Space)...)
		case ItemExpr:
			out = append(out, make([]byte, 8)...)
		default:
			n := it.Size()
			for i := 0; i < n; i++ {
				out = append(out, byte(it.Int>>(8*uint(i))))
			}
		}
	}
	return out
}
