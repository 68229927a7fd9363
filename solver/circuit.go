package solver

// The circuit propagator keeps the successor variables forming one
// Hamiltonian circuit. Structural clauses forbid self loops and out-of-range
// successors, an embedded all-different keeps arcs injective, and the
// propagator itself follows fixed arcs: a closed cycle missing some node is a
// conflict, a partial chain may not close early, and a chain covering every
// node is forced closed.

type circuit struct {
	propBase
	next []IntVar
}

func newCircuit(s *Solver, next []IntVar) *circuit {
	p := &circuit{next: append([]IntVar(nil), next...)}
	n := len(p.next)
	if n == 1 {
		s.addClauseDynamic([]Lit{s.litEQ(p.next[0], 0)})
	} else {
		for i, x := range p.next {
			s.addClauseDynamic([]Lit{s.litEQ(x, i).Negation()})
			s.addClauseDynamic([]Lit{s.litLE(x, n-1)})
			s.addClauseDynamic([]Lit{s.litLE(x, -1).Negation()})
		}
		newAllDifferent(s, p.next)
	}
	s.registerProp(p, &p.propBase)
	for _, x := range p.next {
		s.watchVar(x, p.idx, evAny)
	}
	return p
}

func (p *circuit) Name() string { return "circuit" }

// fixedSucc returns each node's fixed successor, or -1. Out-of-range values
// are left to the structural clauses.
func (p *circuit) fixedSucc(s *Solver) []int {
	n := len(p.next)
	succ := make([]int, n)
	for i, x := range p.next {
		succ[i] = -1
		if s.Fixed(x) {
			if v := s.Value(x); v >= 0 && v < n {
				succ[i] = v
			}
		}
	}
	return succ
}

// appendChainExplanation appends the fix literals of every arc on the path.
func (p *circuit) appendChainExplanation(s *Solver, path []int, buf []Lit) []Lit {
	for _, i := range path {
		buf = s.appendFixExplanation(p.next[i], buf)
	}
	return buf
}

func (p *circuit) Propagate(s *Solver) *conflict {
	n := len(p.next)
	if n == 1 {
		return nil
	}
	succ := p.fixedSucc(s)
	hasFixedPred := make([]bool, n)
	for _, v := range succ {
		if v >= 0 {
			hasFixedPred[v] = true
		}
	}
	visited := make([]bool, n)
	// Chains starting at a node with no fixed incoming arc.
	for start := 0; start < n; start++ {
		if visited[start] || succ[start] < 0 || hasFixedPred[start] {
			continue
		}
		path := []int{}
		cur := start
		for succ[cur] >= 0 && !visited[cur] {
			visited[cur] = true
			path = append(path, cur)
			cur = succ[cur]
		}
		if succ[cur] >= 0 {
			// Merged into another chain: two arcs share a target, which the
			// embedded all-different reports.
			continue
		}
		total := len(path) + 1 // Nodes on the chain, endpoint included.
		expl := p.appendChainExplanation(s, path, nil)
		if total < n {
			// Closing now would leave the other nodes out.
			if confl := s.propRemove(&p.propBase, p.next[cur], start, expl); confl != nil {
				return confl
			}
		} else {
			// The chain covers every node: it can only close.
			if confl := s.propFix(&p.propBase, p.next[cur], start, expl); confl != nil {
				return confl
			}
		}
	}
	// Cycles among the remaining fixed arcs.
	for start := 0; start < n; start++ {
		if visited[start] || succ[start] < 0 {
			continue
		}
		var path []int
		cur := start
		for succ[cur] >= 0 && !visited[cur] {
			visited[cur] = true
			path = append(path, cur)
			cur = succ[cur]
		}
		for i, node := range path {
			if node == cur {
				if cycle := path[i:]; len(cycle) < n {
					return &conflict{lits: p.appendChainExplanation(s, cycle, nil)}
				}
				break
			}
		}
	}
	return p.checkReachability(s, succ)
}

// checkReachability fails when the fixed arcs alone already cut some node off
// from node 0. Unfixed successors are treated as wildcards, so the conflict
// is explained by fix literals only.
func (p *circuit) checkReachability(s *Solver, succ []int) *conflict {
	n := len(p.next)
	reached := make([]bool, n)
	stack := []int{0}
	reached[0] = true
	count := 1
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		push := func(j int) {
			if !reached[j] {
				reached[j] = true
				count++
				stack = append(stack, j)
			}
		}
		if succ[i] >= 0 {
			push(succ[i])
		} else {
			for j := 0; j < n; j++ {
				if j != i {
					push(j)
				}
			}
		}
	}
	if count == n {
		return nil
	}
	var expl []Lit
	for i, v := range succ {
		if v >= 0 {
			expl = s.appendFixExplanation(p.next[i], expl)
		}
	}
	return &conflict{lits: expl}
}
