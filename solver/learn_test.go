package solver

import "testing"

// TestLearnUnitFromImplicationGraph drives the solver into a hand-built
// conflict: deciding any value below 5 for x implies both y<=2 and its
// negation, so analysis must learn the unit x>=5 and solve without further
// conflicts on x.
func TestLearnUnitFromImplicationGraph(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)
	y := mustVar(t, s, 0, 9)
	lx := s.litLE(x, 4)
	ly := s.litLE(y, 2)
	s.addClauseDynamic([]Lit{lx.Negation(), ly})
	s.addClauseDynamic([]Lit{lx.Negation(), ly.Negation()})
	res := s.Solve()
	if res.Status != Sat {
		t.Fatalf("expected Sat, got %v", res.Status)
	}
	if res.Values[x] < 5 {
		t.Fatalf("x must end up at least 5, got %d", res.Values[x])
	}
	if res.Stats.Conflicts == 0 {
		t.Fatal("the contradiction must be found through a conflict")
	}
	if res.Stats.UnitLearned == 0 {
		t.Fatal("a unit clause should have been learned")
	}
}

func TestLearnedClauseLevels(t *testing.T) {
	// After learning, the clause database must let the solver finish a model
	// that requires several conflicts: queens with a poor branching order.
	s := New(Options{Brancher: BranchRandom, RandomSeed: 7})
	buildQueens(t, s, 7)
	res := s.Solve()
	if res.Status != Sat {
		t.Fatalf("expected Sat, got %v", res.Status)
	}
	if err := s.Check(res.Values); err != nil {
		t.Fatal(err)
	}
}

func TestComputeLbd(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)
	y := mustVar(t, s, 0, 9)
	lx := s.litLE(x, 4)
	ly := s.litLE(y, 4)
	s.currentLevel = 2
	if confl := s.enqueue(lx, 2, reason{}); confl != nil {
		t.Fatal("unexpected conflict")
	}
	s.currentLevel = 3
	if confl := s.enqueue(ly, 3, reason{}); confl != nil {
		t.Fatal("unexpected conflict")
	}
	c := newClause([]Lit{lx.Negation(), ly.Negation()})
	s.computeLbd(c)
	if got := c.lbd(); got != 2 {
		t.Fatalf("two literals from two levels: expected LBD 2, got %d", got)
	}
}
