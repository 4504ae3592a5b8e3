package solver

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"time"
)

type Status string

const (
	Optimal    Status = "optimal"
	Infeasible Status = "infeasible"
	Unbounded  Status = "unbounded"
	// TimeLimit means the clock ran out with an incumbent in hand.
	TimeLimit Status = "time_limit"
	// NoSolution means the clock ran out before any incumbent was found,
	// or subtrees with continuous variables could not be relaxed.
	NoSolution Status = "no_solution"
	// Incomplete means some subtrees with continuous variables could not be
	// relaxed; the incumbent is feasible but not proven optimal.
	Incomplete Status = "incomplete"
)

// Heuristic maps an LP relaxation point to a candidate integer point, or
// nil. Candidates are checked against the problem before use.
type Heuristic func(relaxed []float64) []float64

type Options struct {
	TimeLimit time.Duration
	// IntTol is how far from an integer a value may sit and still count as
	// integral.
	IntTol float64
	// Gap is the absolute objective improvement a subtree must be able to
	// offer to be explored.
	Gap       float64
	Heuristic Heuristic
	// Start is an optional incumbent tried before the root relaxation.
	Start []float64
}

type Solution struct {
	Status    Status
	Objective float64
	X         []float64
	Nodes     int
	Elapsed   time.Duration
}

type Solver struct {
	opts Options
}

func New(opts Options) *Solver {
	if opts.IntTol <= 0 {
		opts.IntTol = 1e-6
	}
	if opts.Gap <= 0 {
		opts.Gap = 1e-7
	}
	return &Solver{opts: opts}
}

type node struct {
	lo, hi []float64
	bound  float64
	depth  int
	seq    int
}

// frontier orders open nodes by bound, deeper first on ties, then by
// creation order so runs are repeatable.
type frontier []*node

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].bound != f[j].bound {
		return f[i].bound < f[j].bound
	}
	if f[i].depth != f[j].depth {
		return f[i].depth > f[j].depth
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(*node)) }

func (f *frontier) Pop() any {
	old := *f
	nd := old[len(old)-1]
	old[len(old)-1] = nil
	*f = old[:len(old)-1]
	return nd
}

// Solve runs best-bound branch and bound until the tree is exhausted, the
// time limit passes, or ctx ends. The clock is also checked between
// simplex pivots, so a stop is honoured within one pivot. An error is
// returned only for a malformed problem.
func (s *Solver) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	start := time.Now()
	if err := check(p); err != nil {
		return nil, err
	}
	var deadline time.Time
	if s.opts.TimeLimit > 0 {
		deadline = start.Add(s.opts.TimeLimit)
	}
	expired := func() bool {
		return ctx.Err() != nil || (!deadline.IsZero() && time.Now().After(deadline))
	}

	n := len(p.Vars)
	lo := make([]float64, n)
	hi := make([]float64, n)
	for j, v := range p.Vars {
		lo[j], hi[j] = v.Lower, v.Upper
	}

	best := math.Inf(1)
	var bestX []float64
	accept := func(x []float64) {
		if x == nil || !p.Feasible(x, s.opts.IntTol) {
			return
		}
		if obj := p.Objective(x); obj < best-s.opts.Gap {
			best = obj
			bestX = clone(x)
		}
	}
	accept(s.opts.Start)

	seq := 0
	open := &frontier{{lo: lo, hi: hi, bound: math.Inf(-1)}}
	push := func(parent *node, bound float64, lo, hi []float64) {
		seq++
		heap.Push(open, &node{lo: lo, hi: hi, bound: bound, depth: parent.depth + 1, seq: seq})
	}

	nodes := 0
	timedOut, incomplete := false, false

search:
	for open.Len() > 0 {
		if expired() {
			timedOut = true
			break
		}
		nd := heap.Pop(open).(*node)
		if nd.bound >= best-s.opts.Gap {
			// Every remaining node is bounded at least as high.
			break
		}

		obj, x, err := relax(ctx, p, nd.lo, nd.hi, deadline)
		nodes++
		switch {
		case err == errLPInterrupted:
			timedOut = true
			break search
		case err == errLPInfeasible:
			continue
		case err == errLPUnbounded:
			if nd.depth == 0 {
				return &Solution{Status: Unbounded, Nodes: nodes, Elapsed: time.Since(start)}, nil
			}
			continue
		case err != nil:
			// No usable relaxation: split on bounds alone under the
			// parent's bound so the subtree is still enumerated.
			if !s.split(p, nd, push) {
				if allInteger(p) {
					accept(nd.lo)
				} else {
					incomplete = true
				}
			}
			continue
		}
		if obj >= best-s.opts.Gap {
			continue
		}

		if s.opts.Heuristic != nil {
			accept(s.opts.Heuristic(x))
		}

		j := s.branchVar(p, x)
		if j < 0 {
			accept(s.round(p, x))
			continue
		}

		v := x[j]
		downHi := clone(nd.hi)
		downHi[j] = math.Floor(v)
		upLo := clone(nd.lo)
		upLo[j] = math.Ceil(v)
		push(nd, obj, nd.lo, downHi)
		push(nd, obj, upLo, nd.hi)
	}

	sol := &Solution{Nodes: nodes, Elapsed: time.Since(start)}
	switch {
	case bestX == nil && (timedOut || incomplete):
		sol.Status = NoSolution
	case bestX == nil:
		sol.Status = Infeasible
	case timedOut:
		sol.Status = TimeLimit
	case incomplete:
		sol.Status = Incomplete
	default:
		sol.Status = Optimal
	}
	if bestX != nil {
		sol.Objective = best
		sol.X = bestX
	}
	return sol, nil
}

// split halves the range of the highest-priority integer variable that is
// not yet fixed. It reports false when every integer variable is fixed.
func (s *Solver) split(p *Problem, nd *node, push func(*node, float64, []float64, []float64)) bool {
	pick := -1
	for j, v := range p.Vars {
		if !v.Integer || nd.hi[j]-nd.lo[j] < 1-s.opts.IntTol {
			continue
		}
		if pick < 0 || v.Priority > p.Vars[pick].Priority {
			pick = j
		}
	}
	if pick < 0 {
		return false
	}
	mid := nd.lo[pick]
	if !math.IsInf(nd.hi[pick], 1) {
		mid = math.Floor((nd.lo[pick] + nd.hi[pick]) / 2)
	}
	downHi := clone(nd.hi)
	downHi[pick] = mid
	upLo := clone(nd.lo)
	upLo[pick] = mid + 1
	push(nd, nd.bound, nd.lo, downHi)
	push(nd, nd.bound, upLo, nd.hi)
	return true
}

// branchVar picks the most fractional integer variable within the highest
// priority class that has any fractional variable, or -1 when x is
// integral.
func (s *Solver) branchVar(p *Problem, x []float64) int {
	pick, pickPrio, pickFrac := -1, math.MinInt, 0.0
	for j, v := range p.Vars {
		if !v.Integer {
			continue
		}
		f := x[j] - math.Floor(x[j])
		if f <= s.opts.IntTol || f >= 1-s.opts.IntTol {
			continue
		}
		frac := math.Min(f, 1-f)
		if v.Priority > pickPrio || (v.Priority == pickPrio && frac > pickFrac) {
			pick, pickPrio, pickFrac = j, v.Priority, frac
		}
	}
	return pick
}

func (s *Solver) round(p *Problem, x []float64) []float64 {
	out := clone(x)
	for j, v := range p.Vars {
		if v.Integer {
			out[j] = math.Round(out[j])
		}
	}
	return out
}

func check(p *Problem) error {
	for j, v := range p.Vars {
		if math.IsInf(v.Lower, 0) || math.IsNaN(v.Lower) {
			return &SolverError{Op: "check", Err: fmt.Errorf("%s (%d): %w", v.Name, j, errFreeVariable)}
		}
	}
	for _, c := range p.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(p.Vars) {
				return &SolverError{Op: "check", Err: fmt.Errorf("%s: %w", c.Name, errBadTerm)}
			}
		}
	}
	return nil
}

func allInteger(p *Problem) bool {
	for _, v := range p.Vars {
		if !v.Integer {
			return false
		}
	}
	return true
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
