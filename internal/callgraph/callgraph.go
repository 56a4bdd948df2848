// Package callgraph builds the inter-procedural call graph used to order
// the reference-graph and global-forwarder analyses (spec §4.3): one node
// per function, plus a virtual entry node linking main and every
// address-taken function.
package callgraph

import "llir-opt/internal/ir"

// Node is one function (or the virtual entry) in the call graph.
type Node struct {
	Func *ir.Function // nil for the virtual entry node

	Callees     []*Node
	HasIndirect bool // §4.3: indirect call sites are a single flag, not edges

	sccIndex int
}

// CallGraph is the lazily-describable graph §4.3 calls for; this port
// builds it eagerly since the program sizes in scope for this optimizer
// are small compared to the analyses that consume it repeatedly.
type CallGraph struct {
	Prog    *ir.Program
	Entry   *Node
	nodes   map[*ir.Function]*Node
	sccs    [][]*Node // Tarjan SCCs in reverse-topological emission order
}

// Node returns the call-graph node for f.
func (cg *CallGraph) Node(f *ir.Function) *Node { return cg.nodes[f] }

// DirectCallee resolves a call-site instruction's callee to the Global
// function it targets, following a chain of `mov`s down to a function
// symbol the way §4.3 describes ("operand is a mov of a function symbol"); a bare
// symbol operand (the textual grammar's direct-callee form) resolves the
// same way without an intervening mov. Returns nil for an indirect call.
func DirectCallee(inst *ir.Instruction) *ir.Function {
	if inst == nil || inst.Callee == nil {
		return nil
	}
	return resolveCalleeValue(inst.Callee.Get())
}

func resolveCalleeValue(v ir.Value) *ir.Function {
	switch val := v.(type) {
	case *ir.Global:
		if val.Kind == ir.GlobalFunc {
			return val.Func
		}
		return nil
	case *ir.Instruction:
		if val.Kind == ir.KindMov && len(val.Operands) == 1 {
			return resolveCalleeValue(val.Operands[0].Get())
		}
		return nil
	default:
		return nil
	}
}

// isAddressTaken reports whether f's Global is referenced anywhere other
// than as the direct callee of a call-site instruction (possibly indirect
// through a chain of `mov`s, each itself used only as a callee) -- i.e.
// its address may reach an indirect call, making it reachable from the
// virtual entry. Ported from the reference graph's HasIndirectUses
// traversal (§4.3).
func isAddressTaken(f *ir.Function) bool {
	if f.Global == nil {
		return false
	}
	var isCalleeUse func(use *ir.Operand) bool
	isCalleeUse = func(use *ir.Operand) bool {
		inst := use.OwnerInst()
		if inst == nil {
			return false
		}
		if inst.IsCallSite() && inst.Callee == use {
			return true
		}
		if inst.Kind != ir.KindMov {
			return false
		}
		for _, movUse := range inst.Users() {
			if !isCalleeUse(movUse) {
				return false
			}
		}
		return true
	}
	for _, use := range f.Global.Users() {
		if !isCalleeUse(use) {
			return true
		}
	}
	return false
}

// Build constructs the call graph of p: one node per function, a virtual
// entry linking `main` and every address-taken function, direct-call
// edges, and the HasIndirect flag for callers with at least one indirect
// call site (§4.3).
func Build(p *ir.Program) *CallGraph {
	cg := &CallGraph{Prog: p, nodes: make(map[*ir.Function]*Node, len(p.Functions))}
	for _, f := range p.Functions {
		cg.nodes[f] = &Node{Func: f}
	}
	for _, f := range p.Functions {
		node := cg.nodes[f]
		for _, b := range f.Blocks {
			for _, inst := range b.Instructions {
				if !inst.IsCallSite() {
					continue
				}
				if callee := DirectCallee(inst); callee != nil {
					if target, ok := cg.nodes[callee]; ok {
						node.Callees = append(node.Callees, target)
					}
				} else {
					node.HasIndirect = true
				}
			}
		}
	}

	cg.Entry = &Node{}
	for _, f := range p.Functions {
		if f.Name == "main" || isAddressTaken(f) {
			cg.Entry.Callees = append(cg.Entry.Callees, cg.nodes[f])
		}
	}
	cg.buildSCCs()
	return cg
}
