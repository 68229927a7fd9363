package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crillab/gophercp/solver"
)

var (
	flagTimeout  time.Duration
	flagBrancher string
	flagRestarts string
	flagEncoding string
	flagSeed     int64
	flagVerbose  bool
)

func main() {
	root := &cobra.Command{
		Use:           "gophercp",
		Short:         "gophercp solves constraint models with a lazy clause generation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "wall-clock limit (0 means none)")
	root.PersistentFlags().StringVar(&flagBrancher, "brancher", "activity", "branching strategy: activity, first-fail or random")
	root.PersistentFlags().StringVar(&flagRestarts, "restarts", "lbd", "restart policy: lbd or luby")
	root.PersistentFlags().StringVar(&flagEncoding, "encoding", "order", "linear encoding: order, direct or log")
	root.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "seed for the random brancher and generated instances")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log search progress")
	root.AddCommand(queensCmd(), tspCmd())
	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func buildOptions() (solver.Options, solver.Encoding, error) {
	opts := solver.Options{
		Timeout:    flagTimeout,
		RandomSeed: flagSeed,
		Verbose:    flagVerbose,
	}
	switch flagBrancher {
	case "activity":
		opts.Brancher = solver.BranchActivity
	case "first-fail":
		opts.Brancher = solver.BranchFirstFail
	case "random":
		opts.Brancher = solver.BranchRandom
	default:
		return opts, 0, fmt.Errorf("unknown brancher %q", flagBrancher)
	}
	switch flagRestarts {
	case "lbd":
		opts.Restarts = solver.RestartLBD
	case "luby":
		opts.Restarts = solver.RestartLuby
	default:
		return opts, 0, fmt.Errorf("unknown restart policy %q", flagRestarts)
	}
	enc, ok := solver.ParseEncoding(flagEncoding)
	if !ok {
		return opts, 0, fmt.Errorf("unknown encoding %q", flagEncoding)
	}
	return opts, enc, nil
}

func queensCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "queens",
		Short: "place n non-attacking queens on an n by n board",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, enc, err := buildOptions()
			if err != nil {
				return err
			}
			s := solver.New(opts)
			cols := make([]solver.IntVar, n)
			up := make([]solver.IntVar, n)   // cols[i] + i
			down := make([]solver.IntVar, n) // cols[i] - i
			for i := range cols {
				if cols[i], err = s.NewIntVar(0, n-1); err != nil {
					return err
				}
			}
			for i := range cols {
				if up[i], err = s.NewIntVar(0, 2*n-2); err != nil {
					return err
				}
				if down[i], err = s.NewIntVar(-n+1, n-1); err != nil {
					return err
				}
				// up[i] = cols[i] + i, down[i] = cols[i] - i.
				if err = s.AddLinearWithEncoding([]int{1, -1}, []solver.IntVar{cols[i], up[i]}, solver.LinearEQ, -i, enc); err != nil {
					return err
				}
				if err = s.AddLinearWithEncoding([]int{1, -1}, []solver.IntVar{cols[i], down[i]}, solver.LinearEQ, i, enc); err != nil {
					return err
				}
			}
			for _, group := range [][]solver.IntVar{cols, up, down} {
				if err = s.AddAllDifferent(group); err != nil {
					return err
				}
			}
			start := time.Now()
			res := s.Solve()
			report(res, start)
			if res.Status == solver.Sat {
				placement := lo.Map(cols, func(x solver.IntVar, _ int) string {
					return fmt.Sprintf("%d", res.Values[x])
				})
				fmt.Printf("queens: %s\n", strings.Join(placement, " "))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 8, "board size")
	return cmd
}

func tspCmd() *cobra.Command {
	var cities int
	var maxDist int
	cmd := &cobra.Command{
		Use:   "tsp",
		Short: "find a cheapest tour over a randomly generated distance matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, enc, err := buildOptions()
			if err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(flagSeed))
			dist := make([][]int, cities)
			for i := range dist {
				dist[i] = make([]int, cities)
				for j := range dist[i] {
					if i != j {
						dist[i][j] = 1 + rng.Intn(maxDist)
					}
				}
			}
			s := solver.New(opts)
			next := make([]solver.IntVar, cities)
			for i := range next {
				if next[i], err = s.NewIntVar(0, cities-1); err != nil {
					return err
				}
			}
			if err = s.AddCircuit(next); err != nil {
				return err
			}
			// arc[i][j] = 1 iff next[i] = j, channeled through linear sums.
			// The tour cost is then itself a weighted sum over the arcs.
			var objCoeffs []int
			var objVars []solver.IntVar
			for i := 0; i < cities; i++ {
				arcs := make([]solver.IntVar, cities)
				oneCoeffs := make([]int, cities)
				chanCoeffs := make([]int, 0, cities+1)
				chanVars := make([]solver.IntVar, 0, cities+1)
				for j := 0; j < cities; j++ {
					if arcs[j], err = s.NewIntVar(0, 1); err != nil {
						return err
					}
					oneCoeffs[j] = 1
					if j > 0 {
						chanCoeffs = append(chanCoeffs, j)
						chanVars = append(chanVars, arcs[j])
					}
					if j != i {
						objCoeffs = append(objCoeffs, dist[i][j])
						objVars = append(objVars, arcs[j])
					}
				}
				// Exactly one outgoing arc, pointing where next[i] points.
				if err = s.AddLinearWithEncoding(oneCoeffs, arcs, solver.LinearEQ, 1, enc); err != nil {
					return err
				}
				chanCoeffs = append(chanCoeffs, -1)
				chanVars = append(chanVars, next[i])
				if err = s.AddLinearWithEncoding(chanCoeffs, chanVars, solver.LinearEQ, 0, enc); err != nil {
					return err
				}
			}
			maxCost := lo.Sum(lo.Map(dist, func(row []int, _ int) int { return lo.Max(row) }))
			obj, err := s.NewIntVar(0, maxCost)
			if err != nil {
				return err
			}
			objCoeffs = append(objCoeffs, -1)
			objVars = append(objVars, obj)
			if err = s.AddLinearWithEncoding(objCoeffs, objVars, solver.LinearEQ, 0, enc); err != nil {
				return err
			}
			start := time.Now()
			res := s.Optimize(obj, solver.Minimize)
			report(res, start)
			if res.HasSolution {
				tour := []int{0}
				for cur := 0; len(tour) < cities; {
					cur = res.Values[next[cur]]
					tour = append(tour, cur)
				}
				fmt.Printf("tour: %v cost: %d\n", tour, res.Objective)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&cities, "cities", 6, "number of cities")
	cmd.Flags().IntVar(&maxDist, "max-dist", 20, "largest generated distance")
	return cmd
}

func report(res solver.Result, start time.Time) {
	logrus.WithFields(logrus.Fields{
		"decisions": res.Stats.Decisions,
		"conflicts": res.Stats.Conflicts,
		"restarts":  res.Stats.Restarts,
		"learned":   res.Stats.Learned,
		"elapsed":   time.Since(start).Round(time.Millisecond),
	}).Info("search finished")
	fmt.Println(res.Status)
}
