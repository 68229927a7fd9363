package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinearLEBounds(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)
	y := mustVar(t, s, 0, 9)
	require.NoError(t, s.AddLinear([]int{2, 3}, []IntVar{x, y}, LinearLE, 6))
	s.markAllDirty()
	require.Nil(t, s.propagateFixpoint())
	require.Equal(t, 3, s.Ub(x))
	require.Equal(t, 2, s.Ub(y))
}

func TestLinearGEBounds(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)
	y := mustVar(t, s, 0, 4)
	require.NoError(t, s.AddLinear([]int{1, 1}, []IntVar{x, y}, LinearGE, 10))
	s.markAllDirty()
	require.Nil(t, s.propagateFixpoint())
	require.Equal(t, 6, s.Lb(x), "x >= 10 - max(y)")
}

func TestLinearNegativeCoefficients(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)
	y := mustVar(t, s, 0, 9)
	// x - y <= -3, so x <= y - 3.
	require.NoError(t, s.AddLinear([]int{1, -1}, []IntVar{x, y}, LinearLE, -3))
	s.markAllDirty()
	require.Nil(t, s.propagateFixpoint())
	require.Equal(t, 6, s.Ub(x))
	require.Equal(t, 3, s.Lb(y))
}

func TestLinearConflict(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 5, 9)
	require.NoError(t, s.AddLinear([]int{1}, []IntVar{x}, LinearLE, 4))
	if res := s.Solve(); res.Status != Unsat {
		t.Fatalf("expected Unsat, got %v", res.Status)
	}
}

// satGrid solves the same model once per candidate assignment, pinning the
// variables with equality constraints, and records which assignments are
// feasible.
func satGrid(t *testing.T, enc Encoding, dom int, post func(s *Solver, x, y IntVar) error) map[[2]int]bool {
	t.Helper()
	grid := make(map[[2]int]bool)
	for vx := 0; vx <= dom; vx++ {
		for vy := 0; vy <= dom; vy++ {
			s := New(Options{})
			x := mustVar(t, s, 0, dom)
			y := mustVar(t, s, 0, dom)
			require.NoError(t, post(s, x, y))
			require.NoError(t, s.AddLinearWithEncoding([]int{1}, []IntVar{x}, LinearEQ, vx, enc))
			require.NoError(t, s.AddLinearWithEncoding([]int{1}, []IntVar{y}, LinearEQ, vy, enc))
			res := s.Solve()
			require.NotEqual(t, Indet, res.Status)
			grid[[2]int{vx, vy}] = res.Status == Sat
		}
	}
	return grid
}

func TestEncodingEquivalence(t *testing.T) {
	const dom = 5
	post := func(enc Encoding) func(s *Solver, x, y IntVar) error {
		return func(s *Solver, x, y IntVar) error {
			return s.AddLinearWithEncoding([]int{2, 3}, []IntVar{x, y}, LinearLE, 11, enc)
		}
	}
	order := satGrid(t, EncOrder, dom, post(EncOrder))
	direct := satGrid(t, EncDirect, dom, post(EncDirect))
	log := satGrid(t, EncLog, dom, post(EncLog))
	for vx := 0; vx <= dom; vx++ {
		for vy := 0; vy <= dom; vy++ {
			key := [2]int{vx, vy}
			want := 2*vx+3*vy <= 11
			require.Equal(t, want, order[key], "order encoding wrong at %v", key)
			require.Equal(t, want, direct[key], "direct encoding wrong at %v", key)
			require.Equal(t, want, log[key], "log encoding wrong at %v", key)
		}
	}
}

func TestLinearEQOptimize(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 5)
	y := mustVar(t, s, 0, 8)
	require.NoError(t, s.AddLinear([]int{1, 1}, []IntVar{x, y}, LinearEQ, 8))
	res := s.Optimize(y, Minimize)
	require.Equal(t, Sat, res.Status)
	require.Equal(t, 3, res.Objective)
	require.Equal(t, 5, res.Values[x])
}

func TestFloorCeilDiv(t *testing.T) {
	require.Equal(t, 2, floorDiv(7, 3))
	require.Equal(t, -3, floorDiv(-7, 3))
	require.Equal(t, -3, floorDiv(7, -3))
	require.Equal(t, 2, floorDiv(-7, -3))
	require.Equal(t, 3, ceilDiv(7, 3))
	require.Equal(t, -2, ceilDiv(-7, 3))
	require.Equal(t, -2, ceilDiv(7, -3))
	require.Equal(t, 3, ceilDiv(-7, -3))
}
