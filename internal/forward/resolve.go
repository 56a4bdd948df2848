package forward

import "llir-opt/internal/ir"

// storeTarget names a byte range within an Object that a resolved store or
// load instruction addresses.
type storeTarget struct {
	Object *ir.Object
	Start  int64
}

// resolveAddr walks a mov/add/sub chain rooted at a single-atom object's
// address, the same shape refgraph's classifyAccurate follows, to find the
// constant (object, offset) pair a memory instruction's address operand
// names. Multi-atom objects and any chain that goes inaccurate (a
// non-constant add/sub, a phi join, or anything not on this short list)
// fail to resolve, which is always safe: the forwarder simply does not
// track a store/load it cannot pin down.
func resolveAddr(v ir.Value) (storeTarget, bool) {
	switch val := v.(type) {
	case *ir.Global:
		if val.Kind != ir.GlobalAtom || len(val.AtomOf.Object.Atoms) != 1 {
			return storeTarget{}, false
		}
		return storeTarget{Object: val.AtomOf.Object, Start: 0}, true
	case *ir.Expr:
		if val.Symbol.Kind != ir.GlobalAtom || len(val.Symbol.AtomOf.Object.Atoms) != 1 {
			return storeTarget{}, false
		}
		return storeTarget{Object: val.Symbol.AtomOf.Object, Start: val.Offset}, true
	case *ir.Instruction:
		switch val.Kind {
		case ir.KindMov:
			return resolveAddr(val.Operands[0].Get())
		case ir.KindAdd:
			if t, ok := resolveAddr(val.Operands[0].Get()); ok {
				if c, ok2 := constantOf(val.Operands[1].Get()); ok2 {
					t.Start += c
					return t, true
				}
			}
			if t, ok := resolveAddr(val.Operands[1].Get()); ok {
				if c, ok2 := constantOf(val.Operands[0].Get()); ok2 {
					t.Start += c
					return t, true
				}
			}
			return storeTarget{}, false
		case ir.KindSub:
			if t, ok := resolveAddr(val.Operands[0].Get()); ok {
				if c, ok2 := constantOf(val.Operands[1].Get()); ok2 {
					t.Start -= c
					return t, true
				}
			}
			return storeTarget{}, false
		}
		return storeTarget{}, false
	default:
		return storeTarget{}, false
	}
}

// constantOf extracts an integer literal from v, mirroring refgraph's
// helper of the same shape (kept local since the two packages classify
// independent dataflows and neither should import the other's internals).
func constantOf(v ir.Value) (int64, bool) {
	switch val := v.(type) {
	case *ir.Constant:
		if val.Kind == ir.ConstInt {
			return val.Int, true
		}
		return 0, false
	case *ir.Instruction:
		if val.Kind == ir.KindMov && len(val.Operands) == 1 {
			return constantOf(val.Operands[0].Get())
		}
		return 0, false
	default:
		return 0, false
	}
}
