package cfg

import "llir-opt/internal/ir"

// DAGNode is a condensed block (or SCC of blocks) in a function's
// structural graph (§4.2, GLOSSARY "DAG node").
type DAGNode struct {
	Index  int
	Blocks []*ir.Block
	IsLoop bool

	Preds []*DAGNode
	Succs []*DAGNode

	IsExit   bool // no successors
	IsReturn bool // terminates the function normally
}

// DAG is the strongly-connected-component condensation of a CFG: leaves
// are singleton non-loop blocks, SCCs with more than one block (or a
// single self-looping block) are tagged IsLoop (§4.2).
type DAG struct {
	Func      *ir.Function
	Nodes     []*DAGNode
	BlockNode map[*ir.Block]*DAGNode
}

// Node returns the DAG node containing b.
func (d *DAG) Node(b *ir.Block) *DAGNode { return d.BlockNode[b] }

// Root returns the DAG node containing the function's entry block, or nil
// for an empty function.
func (d *DAG) Root() *DAGNode {
	entry := d.Func.Entry()
	if entry == nil {
		return nil
	}
	return d.BlockNode[entry]
}

// tarjan is the standard Tarjan SCC state, operating directly over
// *ir.Block via the CFG's successor relation.
type tarjan struct {
	cfg     *CFG
	index   map[*ir.Block]int
	low     map[*ir.Block]int
	onStack map[*ir.Block]bool
	stack   []*ir.Block
	counter int
	sccs    [][]*ir.Block
}

func (t *tarjan) visit(b *ir.Block) {
	t.index[b] = t.counter
	t.low[b] = t.counter
	t.counter++
	t.stack = append(t.stack, b)
	t.onStack[b] = true

	for _, s := range t.cfg.Successors(b) {
		if s == nil {
			continue
		}
		if _, seen := t.index[s]; !seen {
			t.visit(s)
			if t.low[s] < t.low[b] {
				t.low[b] = t.low[s]
			}
		} else if t.onStack[s] {
			if t.index[s] < t.low[b] {
				t.low[b] = t.index[s]
			}
		}
	}

	if t.low[b] == t.index[b] {
		var scc []*ir.Block
		for {
			n := len(t.stack) - 1
			top := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[top] = false
			scc = append(scc, top)
			if top == b {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

// BuildDAG condenses c's blocks into strongly-connected components and
// assigns each a topological index: every node's index is lower than the
// indices of its successors. Tarjan's algorithm naturally emits SCCs in
// reverse topological (post-)order, so the condensation order is reversed
// here.
func BuildDAG(c *CFG) *DAG {
	t := &tarjan{
		cfg:     c,
		index:   make(map[*ir.Block]int),
		low:     make(map[*ir.Block]int),
		onStack: make(map[*ir.Block]bool),
	}
	entry := c.Entry()
	if entry != nil {
		t.visit(entry)
	}
	// Blocks unreachable from entry still need a node so callers that
	// iterate f.Blocks directly never miss one.
	for _, b := range c.Func.Blocks {
		if _, seen := t.index[b]; !seen {
			t.visit(b)
		}
	}

	d := &DAG{Func: c.Func, BlockNode: make(map[*ir.Block]*DAGNode)}
	// Tarjan emits SCCs in reverse topological order; reverse once more so
	// Nodes[0] is the entry's component when every block is reachable from
	// the entry (components of unreachable blocks, visited last, come first).
	for i := len(t.sccs) - 1; i >= 0; i-- {
		scc := t.sccs[i]
		node := &DAGNode{Index: len(d.Nodes), Blocks: scc}
		if len(scc) > 1 {
			node.IsLoop = true
		} else {
			b := scc[0]
			for _, s := range c.Successors(b) {
				if s == b {
					node.IsLoop = true
				}
			}
		}
		for _, b := range scc {
			d.BlockNode[b] = node
		}
		d.Nodes = append(d.Nodes, node)
	}

	// Wire node-level edges and terminal flags from the block-level CFG.
	for _, node := range d.Nodes {
		seenSucc := make(map[*DAGNode]bool)
		for _, b := range node.Blocks {
			for _, s := range c.Successors(b) {
				if s == nil {
					continue
				}
				sn := d.BlockNode[s]
				if sn == node || seenSucc[sn] {
					continue
				}
				seenSucc[sn] = true
				node.Succs = append(node.Succs, sn)
				sn.Preds = append(sn.Preds, node)
			}
			if term := b.Terminator(); term != nil && term.Kind == ir.KindReturn {
				node.IsReturn = true
			}
		}
		node.IsExit = len(node.Succs) == 0
	}
	return d
}
