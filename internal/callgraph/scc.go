package callgraph

// buildSCCs computes the strongly-connected components of the call graph
// (starting from the virtual entry) via Tarjan's algorithm, giving each
// node an sccIndex and recording SCCs in emission (reverse-topological)
// order -- the iteration order inter-procedural analyses use (§4.3).
func (cg *CallGraph) buildSCCs() {
	state := &tarjanState{
		index:   make(map[*Node]int),
		low:     make(map[*Node]int),
		onStack: make(map[*Node]bool),
	}
	state.visit(cg.Entry)
	for _, n := range cg.nodes {
		if _, seen := state.index[n]; !seen {
			state.visit(n)
		}
	}
	cg.sccs = state.sccs
	for i, scc := range cg.sccs {
		for _, n := range scc {
			n.sccIndex = i
		}
	}
}

type tarjanState struct {
	index, low map[*Node]int
	onStack    map[*Node]bool
	stack      []*Node
	counter    int
	sccs       [][]*Node
}

func (s *tarjanState) visit(n *Node) {
	s.index[n] = s.counter
	s.low[n] = s.counter
	s.counter++
	s.stack = append(s.stack, n)
	s.onStack[n] = true

	for _, c := range n.Callees {
		if _, seen := s.index[c]; !seen {
			s.visit(c)
			if s.low[c] < s.low[n] {
				s.low[n] = s.low[c]
			}
		} else if s.onStack[c] {
			if s.index[c] < s.low[n] {
				s.low[n] = s.index[c]
			}
		}
	}

	if s.low[n] == s.index[n] {
		var scc []*Node
		for {
			last := len(s.stack) - 1
			top := s.stack[last]
			s.stack = s.stack[:last]
			s.onStack[top] = false
			scc = append(scc, top)
			if top == n {
				break
			}
		}
		s.sccs = append(s.sccs, scc)
	}
}

// SCCs returns the call graph's strongly-connected components, in the
// order inter-procedural analyses should iterate them: callees (or
// lower-numbered SCCs) before callers, i.e. reverse-topological / leaves
// first.
func (cg *CallGraph) SCCs() [][]*Node { return cg.sccs }

// SCCIndex returns n's component index in SCCs() order.
func (n *Node) SCCIndex() int { return n.sccIndex }
