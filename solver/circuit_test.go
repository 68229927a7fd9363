package solver

import "testing"

func buildCircuit(t *testing.T, s *Solver, n int) []IntVar {
	t.Helper()
	next := make([]IntVar, n)
	for i := range next {
		next[i] = mustVar(t, s, 0, n-1)
	}
	if err := s.AddCircuit(next); err != nil {
		t.Fatal(err)
	}
	return next
}

// tourOf follows the successors from node 0 and returns the visit order.
func tourOf(values []int, next []IntVar) []int {
	tour := []int{0}
	cur := 0
	for len(tour) < len(next) {
		cur = values[next[cur]]
		tour = append(tour, cur)
	}
	return tour
}

func TestCircuitSolve(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8} {
		s := New(Options{})
		next := buildCircuit(t, s, n)
		res := s.Solve()
		if res.Status != Sat {
			t.Fatalf("n=%d: expected Sat, got %v", n, res.Status)
		}
		if err := s.Check(res.Values); err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		seen := make(map[int]bool)
		for _, node := range tourOf(res.Values, next) {
			if seen[node] {
				t.Fatalf("n=%d: node %d visited twice", n, node)
			}
			seen[node] = true
		}
	}
}

func TestSubtourPrevention(t *testing.T) {
	s := New(Options{})
	next := buildCircuit(t, s, 4)
	s.currentLevel = 2
	if confl := s.enqueue(s.litEQ(next[0], 1), 2, reason{}); confl != nil {
		t.Fatal("fixing next[0]=1 must not conflict")
	}
	s.markAllDirty()
	if confl := s.propagateFixpoint(); confl != nil {
		t.Fatal("unexpected conflict")
	}
	if s.Contains(next[1], 0) {
		t.Fatal("closing the 2-cycle 0->1->0 must be forbidden")
	}
}

func TestClosedSubcycleConflict(t *testing.T) {
	s := New(Options{})
	next := buildCircuit(t, s, 4)
	s.currentLevel = 2
	if confl := s.enqueue(s.litEQ(next[2], 3), 2, reason{}); confl != nil {
		t.Fatal("fixing next[2]=3 must not conflict")
	}
	s.currentLevel = 3
	confl := s.enqueue(s.litEQ(next[3], 2), 3, reason{})
	if confl == nil {
		s.markAllDirty()
		confl = s.propagateFixpoint()
	}
	if confl == nil {
		t.Fatal("the closed 2-cycle 2->3->2 must conflict")
	}
}

func TestSelfLoopForbidden(t *testing.T) {
	s := New(Options{})
	next := buildCircuit(t, s, 3)
	s.markAllDirty()
	if confl := s.propagateFixpoint(); confl != nil {
		t.Fatal("unexpected conflict")
	}
	for i, x := range next {
		if s.Contains(x, i) {
			t.Fatalf("self loop %d->%d still possible", i, i)
		}
	}
}

// buildTour posts a TSP model: a circuit over successors, 0/1 arc variables
// channeled to them, and an objective variable tied to the arc costs.
func buildTour(t *testing.T, s *Solver, dist [][]int) ([]IntVar, IntVar) {
	t.Helper()
	n := len(dist)
	next := buildCircuit(t, s, n)
	var objCoeffs []int
	var objVars []IntVar
	maxCost := 0
	for i := 0; i < n; i++ {
		arcs := make([]IntVar, n)
		oneCoeffs := make([]int, n)
		var chanCoeffs []int
		var chanVars []IntVar
		rowMax := 0
		for j := 0; j < n; j++ {
			arcs[j] = mustVar(t, s, 0, 1)
			oneCoeffs[j] = 1
			if j > 0 {
				chanCoeffs = append(chanCoeffs, j)
				chanVars = append(chanVars, arcs[j])
			}
			if j != i {
				objCoeffs = append(objCoeffs, dist[i][j])
				objVars = append(objVars, arcs[j])
				if dist[i][j] > rowMax {
					rowMax = dist[i][j]
				}
			}
		}
		maxCost += rowMax
		if err := s.AddLinear(oneCoeffs, arcs, LinearEQ, 1); err != nil {
			t.Fatal(err)
		}
		chanCoeffs = append(chanCoeffs, -1)
		chanVars = append(chanVars, next[i])
		if err := s.AddLinear(chanCoeffs, chanVars, LinearEQ, 0); err != nil {
			t.Fatal(err)
		}
	}
	obj := mustVar(t, s, 0, maxCost)
	objCoeffs = append(objCoeffs, -1)
	objVars = append(objVars, obj)
	if err := s.AddLinear(objCoeffs, objVars, LinearEQ, 0); err != nil {
		t.Fatal(err)
	}
	return next, obj
}

// bruteForceTour enumerates every Hamiltonian cycle and returns the cheapest
// total length.
func bruteForceTour(dist [][]int) int {
	n := len(dist)
	perm := make([]int, 0, n-1)
	used := make([]bool, n)
	best := -1
	var walk func(last, cost int)
	walk = func(last, cost int) {
		if len(perm) == n-1 {
			total := cost + dist[last][0]
			if best < 0 || total < best {
				best = total
			}
			return
		}
		for v := 1; v < n; v++ {
			if used[v] {
				continue
			}
			used[v] = true
			perm = append(perm, v)
			walk(v, cost+dist[last][v])
			perm = perm[:len(perm)-1]
			used[v] = false
		}
	}
	walk(0, 0)
	return best
}

func TestTourOptimum(t *testing.T) {
	dist := [][]int{
		{0, 3, 8, 5, 9},
		{3, 0, 4, 7, 6},
		{8, 4, 0, 2, 5},
		{5, 7, 2, 0, 3},
		{9, 6, 5, 3, 0},
	}
	s := New(Options{})
	next, obj := buildTour(t, s, dist)
	res := s.Optimize(obj, Minimize)
	if res.Status != Sat {
		t.Fatalf("expected a proved optimum, got %v", res.Status)
	}
	want := bruteForceTour(dist)
	if res.Objective != want {
		t.Fatalf("expected optimal tour length %d, got %d", want, res.Objective)
	}
	cost := 0
	cur := 0
	for range next {
		nxt := res.Values[next[cur]]
		cost += dist[cur][nxt]
		cur = nxt
	}
	if cur != 0 || cost != want {
		t.Fatalf("reported tour does not close at cost %d: got %d ending at node %d", want, cost, cur)
	}
}
