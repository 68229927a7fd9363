package solver

import "testing"

// mustVar creates a variable or stops the test.
func mustVar(t *testing.T, s *Solver, lb, ub int) IntVar {
	t.Helper()
	x, err := s.NewIntVar(lb, ub)
	if err != nil {
		t.Fatal(err)
	}
	return x
}

// buildQueens posts the n-queens model: one column variable per row, plus
// shifted copies for the two diagonal directions.
func buildQueens(t *testing.T, s *Solver, n int) []IntVar {
	t.Helper()
	cols := make([]IntVar, n)
	up := make([]IntVar, n)
	down := make([]IntVar, n)
	for i := 0; i < n; i++ {
		cols[i] = mustVar(t, s, 0, n-1)
	}
	for i := 0; i < n; i++ {
		up[i] = mustVar(t, s, 0, 2*n-2)
		down[i] = mustVar(t, s, -n+1, n-1)
		if err := s.AddLinear([]int{1, -1}, []IntVar{cols[i], up[i]}, LinearEQ, -i); err != nil {
			t.Fatal(err)
		}
		if err := s.AddLinear([]int{1, -1}, []IntVar{cols[i], down[i]}, LinearEQ, i); err != nil {
			t.Fatal(err)
		}
	}
	for _, group := range [][]IntVar{cols, up, down} {
		if err := s.AddAllDifferent(group); err != nil {
			t.Fatal(err)
		}
	}
	return cols
}

func TestPermutationSat(t *testing.T) {
	s := New(Options{})
	xs := []IntVar{mustVar(t, s, 1, 3), mustVar(t, s, 1, 3), mustVar(t, s, 1, 3)}
	if err := s.AddAllDifferent(xs); err != nil {
		t.Fatal(err)
	}
	res := s.Solve()
	if res.Status != Sat {
		t.Fatalf("expected Sat, got %v", res.Status)
	}
	if err := s.Check(res.Values); err != nil {
		t.Fatalf("solution does not check out: %v", err)
	}
	seen := [4]bool{}
	for _, x := range xs {
		v := res.Values[x]
		if v < 1 || v > 3 || seen[v] {
			t.Fatalf("values %v are not a permutation of 1..3", res.Values)
		}
		seen[v] = true
	}
}

func TestUnsatWithoutDecisions(t *testing.T) {
	s := New(Options{})
	xs := []IntVar{mustVar(t, s, 1, 1), mustVar(t, s, 1, 1)}
	if err := s.AddAllDifferent(xs); err != nil {
		t.Fatal(err)
	}
	res := s.Solve()
	if res.Status != Unsat {
		t.Fatalf("expected Unsat, got %v", res.Status)
	}
	if res.Stats.Decisions != 0 {
		t.Fatalf("expected an unsat proof without decisions, got %d decisions", res.Stats.Decisions)
	}
}

func TestZeroConflictBudget(t *testing.T) {
	// A root-level Unsat beats the exhausted budget.
	s := New(Options{MaxConflicts: -1})
	xs := []IntVar{mustVar(t, s, 1, 1), mustVar(t, s, 1, 1)}
	if err := s.AddAllDifferent(xs); err != nil {
		t.Fatal(err)
	}
	if res := s.Solve(); res.Status != Unsat {
		t.Fatalf("expected Unsat under zero budget, got %v", res.Status)
	}

	// So does a problem fully decided by root propagation.
	s = New(Options{MaxConflicts: -1})
	x := mustVar(t, s, 2, 2)
	res := s.Solve()
	if res.Status != Sat {
		t.Fatalf("expected Sat under zero budget, got %v", res.Status)
	}
	if res.Values[x] != 2 {
		t.Fatalf("expected value 2, got %d", res.Values[x])
	}

	// Anything needing actual search comes back Indet.
	s = New(Options{MaxConflicts: -1})
	buildQueens(t, s, 8)
	if res := s.Solve(); res.Status != Indet {
		t.Fatalf("expected Indet under zero budget, got %v", res.Status)
	}
}

func TestDecisionBudget(t *testing.T) {
	s := New(Options{MaxDecisions: 1})
	buildQueens(t, s, 8)
	if res := s.Solve(); res.Status != Indet {
		t.Fatalf("expected Indet under a one-decision budget, got %v", res.Status)
	}
}

func TestQueensSolve(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		s := New(Options{})
		buildQueens(t, s, n)
		res := s.Solve()
		if res.Status != Sat {
			t.Fatalf("%d-queens: expected Sat, got %v", n, res.Status)
		}
		if err := s.Check(res.Values); err != nil {
			t.Fatalf("%d-queens: solution does not check out: %v", n, err)
		}
	}
}

func TestDeterminism(t *testing.T) {
	run := func() Stats {
		s := New(Options{})
		buildQueens(t, s, 6)
		res := s.Solve()
		if res.Status != Sat {
			t.Fatalf("expected Sat, got %v", res.Status)
		}
		return res.Stats
	}
	a, b := run(), run()
	if a.Decisions != b.Decisions || a.Conflicts != b.Conflicts || a.Propagations != b.Propagations {
		t.Fatalf("two identical runs diverged: %+v vs %+v", a, b)
	}
}

func TestBranchers(t *testing.T) {
	for _, br := range []Brancher{BranchActivity, BranchFirstFail, BranchRandom} {
		s := New(Options{Brancher: br, RandomSeed: 42})
		buildQueens(t, s, 6)
		res := s.Solve()
		if res.Status != Sat {
			t.Fatalf("brancher %d: expected Sat, got %v", br, res.Status)
		}
		if err := s.Check(res.Values); err != nil {
			t.Fatalf("brancher %d: solution does not check out: %v", br, err)
		}
	}
}

func TestLubyRestarts(t *testing.T) {
	s := New(Options{Restarts: RestartLuby})
	buildQueens(t, s, 8)
	if res := s.Solve(); res.Status != Sat {
		t.Fatalf("expected Sat, got %v", res.Status)
	}
}

func TestOptimizeMinimize(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)
	y := mustVar(t, s, 0, 9)
	if err := s.AddLinear([]int{1, 1}, []IntVar{x, y}, LinearGE, 10); err != nil {
		t.Fatal(err)
	}
	res := s.Optimize(x, Minimize)
	if res.Status != Sat {
		t.Fatalf("expected Sat, got %v", res.Status)
	}
	if res.Objective != 1 {
		t.Fatalf("expected optimum 1, got %d", res.Objective)
	}
	if res.Values[x]+res.Values[y] < 10 {
		t.Fatalf("optimal solution %v violates the constraint", res.Values)
	}
}

func TestOptimizeMaximize(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 7)
	if err := s.AddLinear([]int{1}, []IntVar{x}, LinearLE, 5); err != nil {
		t.Fatal(err)
	}
	res := s.Optimize(x, Maximize)
	if res.Status != Sat {
		t.Fatalf("expected Sat, got %v", res.Status)
	}
	if res.Objective != 5 {
		t.Fatalf("expected optimum 5, got %d", res.Objective)
	}
}

func TestOptimizeUnsat(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 3)
	if err := s.AddLinear([]int{1}, []IntVar{x}, LinearGE, 5); err != nil {
		t.Fatal(err)
	}
	if res := s.Optimize(x, Minimize); res.Status != Unsat {
		t.Fatalf("expected Unsat, got %v", res.Status)
	}
}

func TestOnImprovement(t *testing.T) {
	s := New(Options{OnImprovement: func(values []int, obj int) {
		if len(values) == 0 {
			t.Error("improvement callback got no values")
		}
	}})
	x := mustVar(t, s, 0, 9)
	y := mustVar(t, s, 0, 9)
	if err := s.AddLinear([]int{1, 1}, []IntVar{x, y}, LinearGE, 6); err != nil {
		t.Fatal(err)
	}
	if res := s.Optimize(x, Minimize); res.Status != Sat || res.Objective != 0 {
		t.Fatalf("expected optimum 0, got %v with objective %d", res.Status, res.Objective)
	}
}
