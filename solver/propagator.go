package solver

// The dispatch contract shared by all constraint propagators. Propagators are
// resolved once at model-build time: each one registers the variable events it
// wakes on and is afterwards only reached through this interface, in
// registration order.

type propagator interface {
	// Name identifies the propagator in diagnostics.
	Name() string
	// Propagate runs the propagator to its local fixpoint, pushing
	// consequences onto the trail. It returns a conflict when the
	// constraint cannot be satisfied under the current domains.
	Propagate(s *Solver) *conflict
	// Explain returns the conjunction of true literals that implied the
	// propagation identified by tag. It is only called while the implied
	// literal is still on the trail.
	Explain(tag int) []Lit
	// Undo discards the deferred explanation identified by tag. Called
	// during trail truncation, in reverse propagation order.
	Undo(tag int)
}

// propBase carries the registration index and the deferred explanation store
// every propagator embeds. Explanations capture their antecedent literals
// when the propagation happens but are only turned into clauses when
// conflict analysis asks.
type propBase struct {
	idx      int // Registration index; reason handles store idx+1.
	payloads [][]Lit
}

func (p *propBase) Explain(tag int) []Lit {
	return p.payloads[tag]
}

func (p *propBase) Undo(tag int) {
	p.payloads = p.payloads[:tag]
}

func (p *propBase) pushPayload(lits []Lit) int {
	p.payloads = append(p.payloads, lits)
	return len(p.payloads) - 1
}

// registerProp wires a propagator into the engine and returns its base for
// the concrete type to keep.
func (s *Solver) registerProp(p propagator, base *propBase) {
	base.idx = len(s.props)
	s.props = append(s.props, p)
	s.dirty = append(s.dirty, false)
}

// propEnqueue pushes l with a deferred reason owned by the propagator.
// expl must hold true literals assigned before this call.
func (s *Solver) propEnqueue(p *propBase, l Lit, expl []Lit) *conflict {
	switch s.litValue(l) {
	case Sat:
		return nil
	case Unsat:
		lits := make([]Lit, 0, len(expl)+1)
		lits = append(lits, expl...)
		lits = append(lits, l.Negation())
		return &conflict{lits: lits}
	}
	tag := p.pushPayload(expl)
	return s.enqueue(l, s.currentLevel, reason{prop: p.idx + 1, tag: tag})
}

// propSetMax tightens x's upper bound to v on behalf of a propagator.
func (s *Solver) propSetMax(p *propBase, x IntVar, v int, expl []Lit) *conflict {
	if s.Ub(x) <= v {
		return nil
	}
	return s.propEnqueue(p, s.litLE(x, v), expl)
}

// propSetMin tightens x's lower bound to v on behalf of a propagator.
func (s *Solver) propSetMin(p *propBase, x IntVar, v int, expl []Lit) *conflict {
	if s.Lb(x) >= v {
		return nil
	}
	return s.propEnqueue(p, s.litLE(x, v-1).Negation(), expl)
}

// propRemove removes value v from x's domain on behalf of a propagator.
func (s *Solver) propRemove(p *propBase, x IntVar, v int, expl []Lit) *conflict {
	if !s.Contains(x, v) {
		return nil
	}
	return s.propEnqueue(p, s.litEQ(x, v).Negation(), expl)
}

// propFix fixes x to value v on behalf of a propagator.
func (s *Solver) propFix(p *propBase, x IntVar, v int, expl []Lit) *conflict {
	if s.Fixed(x) && s.Lb(x) == v {
		return nil
	}
	return s.propEnqueue(p, s.litEQ(x, v), expl)
}
