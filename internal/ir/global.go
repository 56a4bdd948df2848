package ir

// Visibility controls whether a Global's definition is visible outside the
// program (§3).
type Visibility uint8

const (
	VisibilityExtern Visibility = iota
	VisibilityHidden
	VisibilityLocal
)

// GlobalKind discriminates the variant a Global wraps.
type GlobalKind uint8

const (
	GlobalFunc GlobalKind = iota
	GlobalBlock
	GlobalAtom
	GlobalExtern
)

// Global is the polymorphic entity named in a Program's symbol table:
// variant over {Function, Block, Atom, Extern} (§3). Exactly one of Func /
// BlockOf / AtomOf is non-nil, selected by Kind; Extern carries none.
type Global struct {
	Kind       GlobalKind
	Name       string
	Visibility Visibility
	Exported   bool

	Func    *Function
	BlockOf *Block
	AtomOf  *Atom

	program *Program
	users   userList
}

func (g *Global) addUser(u *Operand)    { g.users.add(u) }
func (g *Global) removeUser(u *Operand) { g.users.remove(u) }
func (g *Global) Users() []*Operand     { return g.users.users() }

// String renders the global's name, matching how a `mov` operand prints it.
func (g *Global) String() string { return g.Name }
