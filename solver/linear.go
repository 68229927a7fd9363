package solver

// The linear propagator enforces sum(coeffs[i]*xs[i]) <= rhs by bounds
// reasoning on the slack. GE and EQ constraints are posted as one or two LE
// propagators over negated terms. The encoding decides how a pruning reaches
// the literal level: a single order literal, per-value removals, or a chain
// of intermediate order literals halving the pruned range.

type linearLE struct {
	propBase
	coeffs []int
	xs     []IntVar
	rhs    int
	enc    Encoding
}

func newLinearLE(s *Solver, coeffs []int, xs []IntVar, rhs int, enc Encoding) *linearLE {
	p := &linearLE{rhs: rhs, enc: enc}
	for i, c := range coeffs {
		if c == 0 {
			continue
		}
		p.coeffs = append(p.coeffs, c)
		p.xs = append(p.xs, xs[i])
	}
	s.registerProp(p, &p.propBase)
	for _, x := range p.xs {
		s.watchVar(x, p.idx, evBounds)
	}
	return p
}

func (p *linearLE) Name() string { return "linear_le" }

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int { return -floorDiv(-a, b) }

// minContrib is the smallest value the i-th term can take.
func (p *linearLE) minContrib(s *Solver, i int) int {
	if c := p.coeffs[i]; c > 0 {
		return c * s.Lb(p.xs[i])
	}
	return p.coeffs[i] * s.Ub(p.xs[i])
}

// appendMinExplanation appends the bound literals forcing the i-th term to
// its current minimum.
func (p *linearLE) appendMinExplanation(s *Solver, i int, buf []Lit) []Lit {
	x := p.xs[i]
	if p.coeffs[i] > 0 {
		return s.appendLbExplanation(x, s.Lb(x), buf)
	}
	return s.appendUbExplanation(x, s.Ub(x), buf)
}

// explainOthers gathers the bound literals of every term but the skipped one.
func (p *linearLE) explainOthers(s *Solver, skip int) []Lit {
	var expl []Lit
	for j := range p.xs {
		if j != skip {
			expl = p.appendMinExplanation(s, j, expl)
		}
	}
	return expl
}

func (p *linearLE) Propagate(s *Solver) *conflict {
	sumMin := 0
	for i := range p.xs {
		sumMin += p.minContrib(s, i)
	}
	if sumMin > p.rhs {
		var expl []Lit
		for i := range p.xs {
			expl = p.appendMinExplanation(s, i, expl)
		}
		return &conflict{lits: expl}
	}
	slack := p.rhs - sumMin
	for i, x := range p.xs {
		c := p.coeffs[i]
		avail := slack + p.minContrib(s, i) // rhs minus the other terms' minimums.
		if c > 0 {
			if newUb := floorDiv(avail, c); newUb < s.Ub(x) {
				if confl := p.pruneUb(s, i, x, newUb); confl != nil {
					return confl
				}
			}
		} else {
			if newLb := ceilDiv(avail, c); newLb > s.Lb(x) {
				if confl := p.pruneLb(s, i, x, newLb); confl != nil {
					return confl
				}
			}
		}
	}
	return nil
}

func (p *linearLE) pruneUb(s *Solver, i int, x IntVar, newUb int) *conflict {
	expl := p.explainOthers(s, i)
	switch p.enc {
	case EncDirect:
		for v := s.Ub(x); v > newUb; v-- {
			if confl := s.propRemove(&p.propBase, x, v, append([]Lit(nil), expl...)); confl != nil {
				return confl
			}
		}
		return nil
	case EncLog:
		for gap := (s.Ub(x) - newUb) / 2; gap > 0; gap /= 2 {
			s.litLE(x, newUb+gap)
		}
		return s.propSetMax(&p.propBase, x, newUb, expl)
	default: // EncOrder
		return s.propSetMax(&p.propBase, x, newUb, expl)
	}
}

func (p *linearLE) pruneLb(s *Solver, i int, x IntVar, newLb int) *conflict {
	expl := p.explainOthers(s, i)
	switch p.enc {
	case EncDirect:
		for v := s.Lb(x); v < newLb; v++ {
			if confl := s.propRemove(&p.propBase, x, v, append([]Lit(nil), expl...)); confl != nil {
				return confl
			}
		}
		return nil
	case EncLog:
		for gap := (newLb - s.Lb(x)) / 2; gap > 0; gap /= 2 {
			s.litLE(x, newLb-1-gap)
		}
		return s.propSetMin(&p.propBase, x, newLb, expl)
	default: // EncOrder
		return s.propSetMin(&p.propBase, x, newLb, expl)
	}
}
