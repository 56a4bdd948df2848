package ir

// Expr is a symbolic expression usable as an Operand target. Currently the
// only variant is SymbolOffset(Global, int64); Exprs are interned per
// Program so that several instructions sharing the same (symbol, offset)
// pair share one Expr, and therefore one user list (§3).
type Expr struct {
	Symbol *Global
	Offset int64

	toSym *Operand // this Expr's own use-edge into Symbol
	users userList
}

func (e *Expr) isUser() {}

func (e *Expr) addUser(u *Operand)    { e.users.add(u) }
func (e *Expr) removeUser(u *Operand) { e.users.remove(u) }
func (e *Expr) Users() []*Operand     { return e.users.users() }

type exprKey struct {
	symbol *Global
	offset int64
}

// GetOrCreateExpr returns the (interned) SymbolOffset expression for
// (symbol, offset), creating it on first use. The Expr records itself in
// symbol's user list, per §3 ("Expr participates in the use list of its
// referenced symbol").
func (p *Program) GetOrCreateExpr(symbol *Global, offset int64) *Expr {
	key := exprKey{symbol, offset}
	if e, ok := p.exprs[key]; ok {
		return e
	}
	expr := &Expr{Symbol: symbol, Offset: offset}
	expr.toSym = NewOperand(expr, symbol, 0)
	p.exprs[key] = expr
	return expr
}
