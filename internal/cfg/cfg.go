// Package cfg computes structural views of a function: its control-flow
// graph, the SCC-condensed DAG over that graph, and the natural-loop
// nesting tree used by live-variable propagation (spec §4.2).
package cfg

import "llir-opt/internal/ir"

// CFG is a function's control-flow graph, derived by walking every block's
// terminator (§4.2). Predecessors are the inverse of that relation.
type CFG struct {
	Func   *ir.Function
	preds  map[*ir.Block][]*ir.Block
	succs  map[*ir.Block][]*ir.Block
}

// Build computes the CFG of f. Every block must have a terminator (§8
// universal invariants); blocks without one contribute no successors.
func Build(f *ir.Function) *CFG {
	c := &CFG{
		Func:  f,
		preds: make(map[*ir.Block][]*ir.Block, len(f.Blocks)),
		succs: make(map[*ir.Block][]*ir.Block, len(f.Blocks)),
	}
	for _, b := range f.Blocks {
		c.preds[b] = nil
	}
	for _, b := range f.Blocks {
		succs := b.Successors()
		c.succs[b] = succs
		for _, s := range succs {
			if s == nil {
				continue
			}
			c.preds[s] = append(c.preds[s], b)
		}
	}
	return c
}

// Successors returns b's terminator's successor blocks, in the order the
// terminator exposes them (§4.2: "a finite, ordered list of successor
// blocks").
func (c *CFG) Successors(b *ir.Block) []*ir.Block { return c.succs[b] }

// Predecessors returns the blocks whose terminator names b as a successor.
func (c *CFG) Predecessors(b *ir.Block) []*ir.Block { return c.preds[b] }

// Entry returns the function's entry block.
func (c *CFG) Entry() *ir.Block { return c.Func.Entry() }
