package refgraph

import "llir-opt/internal/ir"

// chainItem is one BFS frontier entry while walking the def-use chain
// rooted at a `mov` of an object's address: inst is the instruction being
// classified, ref is the instruction whose result reached inst (nil only
// for the root), and start is the currently-known byte offset, or nil once
// the chain has become inaccurate.
type chainItem struct {
	inst  *ir.Instruction
	ref   *ir.Instruction
	start *int64
}

// classifyInaccurate handles a multi-atom object: offsets are never
// tracked, only whether the object is read, written, or escapes (§4.3,
// the first `Classify` overload).
func classifyInaccurate(object *ir.Object, mov *ir.Instruction, node *Node) {
	queue := []chainItem{{inst: mov}}
	visited := map[*ir.Instruction]bool{}
	loadCount, storeCount := 0, 0
	escapes := false

	for len(queue) > 0 && !escapes {
		item := queue[0]
		queue = queue[1:]
		if visited[item.inst] {
			continue
		}
		visited[item.inst] = true
		i := item.inst

		switch i.Kind {
		case ir.KindLoad:
			loadCount++
		case ir.KindStore:
			if isStoredValue(i, item.ref) {
				escapes = true
			} else {
				storeCount++
			}
		case ir.KindMov, ir.KindAdd, ir.KindSub, ir.KindPhi:
			for _, use := range i.Users() {
				if inst := use.OwnerInst(); inst != nil {
					queue = append(queue, chainItem{inst: inst, ref: i})
				} else {
					escapes = true
				}
			}
		default:
			escapes = true
		}
	}

	if escapes {
		node.escapeObject(object)
		return
	}
	if loadCount > 0 {
		node.addRead(object)
	}
	if storeCount > 0 {
		node.addWrite(object)
	}
}

// classifyAccurate handles a single-atom object, tracking byte offsets
// through `add`/`sub`/`mov`/`phi`/`load`/`store` chains (§4.3, the second
// `Classify` overload). REDESIGN FLAGS (b): the source dereferences the
// optional offset unconditionally in its MOV arm; this port guards every
// arm the same way, treating a missing offset as "inaccurate" rather than
// invoking undefined behavior.
func classifyAccurate(object *ir.Object, mov *ir.Instruction, offset int64, node *Node) {
	start := offset
	queue := []chainItem{{inst: mov, start: &start}}
	visited := map[*ir.Instruction]bool{}

	loaded := make(OffsetSet)
	stored := make(OffsetSet)
	loadInaccurate, storeInaccurate, escapes := false, false, false

	push := func(from *ir.Instruction, next *int64) {
		for _, use := range from.Users() {
			inst := use.OwnerInst()
			if inst == nil {
				escapes = true
				continue
			}
			queue = append(queue, chainItem{inst: inst, ref: from, start: next})
		}
	}

	for len(queue) > 0 && !escapes {
		item := queue[0]
		queue = queue[1:]
		if visited[item.inst] {
			continue
		}
		visited[item.inst] = true
		i := item.inst

		switch i.Kind {
		case ir.KindLoad:
			if item.start != nil {
				sz := int64(i.Types[0].Size())
				loaded[OffsetRange{*item.start, *item.start + sz}] = true
			} else {
				loaded = make(OffsetSet)
				loadInaccurate = true
			}
		case ir.KindStore:
			if isStoredValue(i, item.ref) {
				escapes = true
				continue
			}
			if item.start != nil {
				sz := int64(valueType(i.Operands[1]).Size())
				stored[OffsetRange{*item.start, *item.start + sz}] = true
			} else {
				stored = make(OffsetSet)
				storeInaccurate = true
			}
		case ir.KindAdd:
			lhs, rhs := i.Operands[0], i.Operands[1]
			switch {
			case item.start == nil:
				push(i, nil)
			case item.ref != nil && sameValue(lhs, item.ref):
				if c, ok := constantOf(rhs.Get()); ok {
					next := *item.start + c
					push(i, &next)
				} else {
					push(i, nil)
				}
			case item.ref != nil && sameValue(rhs, item.ref):
				if c, ok := constantOf(lhs.Get()); ok {
					next := *item.start + c
					push(i, &next)
				} else {
					push(i, nil)
				}
			default:
				push(i, nil)
			}
		case ir.KindSub:
			lhs := i.Operands[0]
			switch {
			case item.start == nil:
				push(i, nil)
			case item.ref != nil && sameValue(lhs, item.ref):
				if c, ok := constantOf(i.Operands[1].Get()); ok {
					next := *item.start - c
					push(i, &next)
				} else {
					push(i, nil)
				}
			default:
				// the RHS of a sub is never accurate, matching the source.
				push(i, nil)
			}
		case ir.KindMov:
			if item.start != nil {
				push(i, item.start)
			} else {
				push(i, nil)
			}
		case ir.KindPhi:
			push(i, nil)
		default:
			escapes = true
		}
	}

	if escapes {
		node.escapeObject(object)
		return
	}
	if loadInaccurate || len(loaded) > 0 {
		if loadInaccurate {
			node.addRead(object)
		} else if !node.ReadRanges[object] {
			dst := node.ReadOffsets[object]
			if dst == nil {
				dst = make(OffsetSet)
				node.ReadOffsets[object] = dst
			}
			for r := range loaded {
				dst[r] = true
			}
		}
	}
	if storeInaccurate || len(stored) > 0 {
		node.Written[object] = true
		if !storeInaccurate {
			dst := node.WrittenOffsets[object]
			if dst == nil {
				dst = make(OffsetSet)
				node.WrittenOffsets[object] = dst
			}
			for r := range stored {
				dst[r] = true
			}
		}
	}
}

// isStoredValue reports whether store's stored-value operand is exactly
// ref, i.e. the address itself (not data through it) was stored, letting
// it escape.
func isStoredValue(store *ir.Instruction, ref *ir.Instruction) bool {
	if ref == nil || len(store.Operands) < 2 {
		return false
	}
	inst, ok := store.Operands[1].Get().(*ir.Instruction)
	return ok && inst == ref
}

func sameValue(op *ir.Operand, ref *ir.Instruction) bool {
	inst, ok := op.Get().(*ir.Instruction)
	return ok && inst == ref
}

// constantOf extracts an integer literal from v, if v is (or is a mov of)
// a ConstantInt -- mirroring the source's GetConstant helper (§4.3).
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

func valueType(op *ir.Operand) ir.Type {
	switch v := op.Get().(type) {
	case *ir.Instruction:
		if op.Index() < len(v.Types) {
			return v.Types[op.Index()]
		}
		return ir.I64
	case *ir.Constant:
		return v.Typ
	default:
		return ir.I64
	}
}
