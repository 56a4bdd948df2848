// Package livevars computes intra-procedural SSA liveness over a
// function's CFG (spec §4.2 "Live variables"): for every block, which
// instruction results are live on entry and on exit, phi-aware so that a
// value flowing into a successor's phi is only counted live along the
// edge from the predecessor that phi names.
package livevars

import (
	"llir-opt/internal/cfg"
	"llir-opt/internal/ir"
)

// InstSet is the (unordered) set of instructions whose result is live at a
// given program point. A multi-result instruction is tracked as a single
// unit, the same simplification internal/ir makes for its user lists.
type InstSet map[*ir.Instruction]bool

type blockLive struct {
	liveIn  InstSet
	liveOut InstSet
}

// LiveVariables holds the fixed-point liveness solution for one function.
type LiveVariables struct {
	cfg  *cfg.CFG
	live map[*ir.Block]*blockLive

	cacheBlock *ir.Block
	cache      map[*ir.Instruction]InstSet
}

// Build runs the backward dataflow to a fixed point over c's blocks. Since
// join is monotonic (set union) and every block's state set is bounded by
// the function's finite instruction count, iterating until no block
// changes converges in the standard way liveness fixed points do -- the
// natural-loop structure cfg.BuildLoopNesting exposes doesn't need special
// handling here the way the source's header-collapsing traversal needs
// it, since plain worklist iteration already propagates correctly around
// back edges.
func Build(c *cfg.CFG) *LiveVariables {
	lv := &LiveVariables{cfg: c, live: make(map[*ir.Block]*blockLive, len(c.Func.Blocks))}
	for _, b := range c.Func.Blocks {
		lv.live[b] = &blockLive{liveIn: InstSet{}, liveOut: InstSet{}}
	}

	changed := true
	for changed {
		changed = false
		for i := len(c.Func.Blocks) - 1; i >= 0; i-- {
			b := c.Func.Blocks[i]
			info := lv.live[b]

			newOut := InstSet{}
			for _, s := range c.Successors(b) {
				if s == nil {
					continue
				}
				for _, phi := range s.Phis() {
					if val, ok := phi.IncomingFor(b); ok {
						if inst, ok2 := val.Get().(*ir.Instruction); ok2 {
							newOut[inst] = true
						}
					}
				}
				sIn := lv.live[s].liveIn
				for inst := range sIn {
					if isPhiDef(s, inst) {
						continue
					}
					newOut[inst] = true
				}
			}

			newIn := cloneSet(newOut)
			insts := b.Instructions
			nPhi := len(b.Phis())
			for idx := len(insts) - 1; idx >= nPhi; idx-- {
				killDef(newIn, insts[idx])
			}
			for _, phi := range b.Phis() {
				newIn[phi] = true
			}

			if !equalSet(newIn, info.liveIn) || !equalSet(newOut, info.liveOut) {
				info.liveIn = newIn
				info.liveOut = newOut
				changed = true
			}
		}
	}
	return lv
}

func isPhiDef(b *ir.Block, inst *ir.Instruction) bool {
	for _, phi := range b.Phis() {
		if phi == inst {
			return true
		}
	}
	return false
}

// killDef removes inst's own definition from live (it is dead above this
// point) and adds every instruction-valued operand it consumes (it is
// live immediately before this point) -- except for KindArg, which never
// kills: a function argument's value must be considered live on entry
// regardless of where in the block it is materialized (ported from the
// source's KillDef).
func killDef(live InstSet, inst *ir.Instruction) {
	if inst.Kind == ir.KindArg {
		return
	}
	delete(live, inst)
	for _, op := range inst.Operands {
		if v, ok := op.Get().(*ir.Instruction); ok {
			live[v] = true
		}
	}
}

func cloneSet(s InstSet) InstSet {
	out := make(InstSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func equalSet(a, b InstSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// LiveIn returns the set live on entry to b.
func (lv *LiveVariables) LiveIn(b *ir.Block) InstSet { return lv.live[b].liveIn }

// LiveOutBlock returns the set live on exit from b.
func (lv *LiveVariables) LiveOutBlock(b *ir.Block) InstSet { return lv.live[b].liveOut }

// LiveOut returns the set of instructions live immediately after inst,
// replaying the block's backward kill pass and caching the per-block
// result the way the source's LiveOut does (§4.2).
func (lv *LiveVariables) LiveOut(inst *ir.Instruction) InstSet {
	b := inst.Block()
	if b != lv.cacheBlock {
		lv.cacheBlock = b
		lv.cache = make(map[*ir.Instruction]InstSet, len(b.Instructions))
		live := cloneSet(lv.live[b].liveOut)
		for i := len(b.Instructions) - 1; i >= 0; i-- {
			cur := b.Instructions[i]
			lv.cache[cur] = cloneSet(live)
			if i >= len(b.Phis()) {
				killDef(live, cur)
			}
		}
	}
	return lv.cache[inst]
}
