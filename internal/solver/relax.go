package solver

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	boundEps = 1e-9
	pivotTol = 1e-9
	costTol  = 1e-9
	feasTol  = 1e-7
	ratioTie = 1e-12

	// degenerateRun consecutive pivots without progress switch pricing to
	// Bland's rule until the objective moves again.
	degenerateRun = 50
	// checkEvery is how many pivots pass between deadline checks.
	checkEvery = 16
)

const (
	atLower int8 = iota
	atUpper
	inBasis
)

// tableau is a dense bounded-variable simplex tableau over the columns
// [structural | one slack per row | artificials]. Row i holds the current
// B^-1 A, and beta[i] is the value of the column basic in that row.
type tableau struct {
	t     *mat.Dense
	beta  []float64
	basis []int
	state []int8
	lb    []float64
	ub    []float64
	cost  []float64
	d     []float64

	m, cols int
	art     int // first artificial column

	iters    int
	maxIter  int
	ctx      context.Context
	deadline time.Time
}

// relax solves the LP relaxation of p with variable bounds lo and hi. It
// returns errLPInterrupted when ctx ends or the deadline passes between
// pivots, so a single relaxation never outlives the search's clock.
func relax(ctx context.Context, p *Problem, lo, hi []float64, deadline time.Time) (float64, []float64, error) {
	n := len(p.Vars)
	for j := range n {
		if hi[j] < lo[j]-boundEps {
			return 0, nil, errLPInfeasible
		}
	}
	m := len(p.Constraints)
	if m == 0 {
		return bounded(p, lo, hi)
	}

	// Residual of each row with every structural at its lower bound.
	a := make([][]float64, m)
	resid := make([]float64, m)
	needArt := make([]bool, m)
	arts := 0
	for i, c := range p.Constraints {
		row := make([]float64, n)
		for _, t := range c.Terms {
			row[t.Var] += t.Coef
		}
		a[i] = row
		r := c.RHS
		for j, v := range row {
			if v != 0 {
				r -= v * lo[j]
			}
		}
		resid[i] = r
		slo, shi := slackBounds(c.Sense)
		tol := feasTol * math.Max(1, math.Abs(c.RHS))
		if r < slo-tol || r > shi+tol {
			needArt[i] = true
			arts++
		}
	}

	cols := n + m + arts
	tb := &tableau{
		t:        mat.NewDense(m, cols, nil),
		beta:     make([]float64, m),
		basis:    make([]int, m),
		state:    make([]int8, cols),
		lb:       make([]float64, cols),
		ub:       make([]float64, cols),
		cost:     make([]float64, cols),
		d:        make([]float64, cols),
		m:        m,
		cols:     cols,
		art:      n + m,
		maxIter:  50*(m+cols) + 500,
		ctx:      ctx,
		deadline: deadline,
	}
	copy(tb.lb, lo)
	copy(tb.ub, hi)

	next := n + m
	for i, c := range p.Constraints {
		s := n + i
		tb.lb[s], tb.ub[s] = slackBounds(c.Sense)
		row := tb.t.RawRowView(i)
		copy(row, a[i])
		row[s] = 1
		if !needArt[i] {
			tb.basis[i] = s
			tb.state[s] = inBasis
			tb.beta[i] = resid[i]
			continue
		}
		// The slack rests at zero, its only finite bound for every sense;
		// an artificial carries the violation.
		if c.Sense == GreaterEq {
			tb.state[s] = atUpper
		}
		k := next
		next++
		tb.lb[k], tb.ub[k] = 0, math.Inf(1)
		sign := 1.0
		if resid[i] < 0 {
			sign = -1
		}
		row[k] = sign
		floats.Scale(sign, row)
		tb.basis[i] = k
		tb.state[k] = inBasis
		tb.beta[i] = math.Abs(resid[i])
	}

	if arts > 0 {
		for k := tb.art; k < cols; k++ {
			tb.cost[k] = 1
		}
		tb.price()
		if err := tb.run(); err != nil {
			if err == errLPUnbounded {
				err = errLPStalled
			}
			return 0, nil, err
		}
		var infeas, scale float64
		for i, j := range tb.basis {
			if j >= tb.art {
				infeas += math.Max(0, tb.beta[i])
			}
		}
		for _, c := range p.Constraints {
			scale = math.Max(scale, math.Abs(c.RHS))
		}
		if infeas > feasTol*math.Max(1, scale) {
			return 0, nil, errLPInfeasible
		}
		for k := tb.art; k < cols; k++ {
			tb.cost[k] = 0
			tb.ub[k] = 0
		}
	}

	for j, v := range p.Vars {
		tb.cost[j] = v.Cost
	}
	tb.price()
	if err := tb.run(); err != nil {
		return 0, nil, err
	}

	x := make([]float64, n)
	for j := range n {
		x[j] = tb.value(j)
	}
	for i, j := range tb.basis {
		if j < n {
			x[j] = tb.beta[i]
		}
	}
	for j := range n {
		x[j] = math.Min(math.Max(x[j], lo[j]), hi[j])
	}
	return p.Objective(x), x, nil
}

// bounded solves a problem with no rows: each variable sits at whichever
// bound its cost prefers.
func bounded(p *Problem, lo, hi []float64) (float64, []float64, error) {
	x := clone(lo)
	for j, v := range p.Vars {
		if v.Cost < 0 {
			if math.IsInf(hi[j], 1) {
				return 0, nil, errLPUnbounded
			}
			x[j] = hi[j]
		}
	}
	return p.Objective(x), x, nil
}

func slackBounds(s Sense) (float64, float64) {
	switch s {
	case LessEq:
		return 0, math.Inf(1)
	case GreaterEq:
		return math.Inf(-1), 0
	}
	return 0, 0
}

// price recomputes reduced costs d = c - c_B B^-1 A for the current basis.
func (tb *tableau) price() {
	copy(tb.d, tb.cost)
	for i, j := range tb.basis {
		if c := tb.cost[j]; c != 0 {
			floats.AddScaled(tb.d, -c, tb.t.RawRowView(i))
		}
	}
}

func (tb *tableau) value(j int) float64 {
	if tb.state[j] == atUpper {
		return tb.ub[j]
	}
	return tb.lb[j]
}

func (tb *tableau) run() error {
	stuck := 0
	for {
		tb.iters++
		if tb.iters > tb.maxIter {
			return errLPStalled
		}
		if tb.iters%checkEvery == 1 && tb.expired() {
			return errLPInterrupted
		}
		bland := stuck >= degenerateRun
		q, dir := tb.entering(bland)
		if q < 0 {
			return nil
		}
		step, r := tb.ratio(q, dir, bland)
		if math.IsInf(step, 1) {
			return errLPUnbounded
		}
		if step <= ratioTie {
			stuck++
		} else {
			stuck = 0
		}
		tb.move(q, dir, step, r)
	}
}

func (tb *tableau) expired() bool {
	if tb.ctx != nil && tb.ctx.Err() != nil {
		return true
	}
	return !tb.deadline.IsZero() && time.Now().After(tb.deadline)
}

// entering picks an improving nonbasic column and the direction it moves:
// the largest reduced cost, or the lowest index under Bland's rule.
func (tb *tableau) entering(bland bool) (int, float64) {
	pick, dir, score := -1, 0.0, 0.0
	for j := range tb.cols {
		if tb.state[j] == inBasis || tb.ub[j]-tb.lb[j] <= boundEps {
			continue
		}
		dj := tb.d[j]
		var s, sgn float64
		switch {
		case tb.state[j] == atLower && dj < -costTol:
			s, sgn = -dj, 1
		case tb.state[j] == atUpper && dj > costTol:
			s, sgn = dj, -1
		default:
			continue
		}
		if bland {
			return j, sgn
		}
		if s > score {
			pick, dir, score = j, sgn, s
		}
	}
	return pick, dir
}

// ratio finds how far column q can move in direction dir before a basic
// variable or q itself hits a bound. Row -1 means q reaches its own
// opposite bound first.
func (tb *tableau) ratio(q int, dir float64, bland bool) (float64, int) {
	step, row := math.Inf(1), -1
	if w := tb.ub[q] - tb.lb[q]; !math.IsInf(w, 0) {
		step = w
	}
	var rowAlpha float64
	for i := range tb.m {
		alpha := dir * tb.t.At(i, q)
		j := tb.basis[i]
		var lim float64
		switch {
		case alpha > pivotTol && !math.IsInf(tb.lb[j], -1):
			lim = (tb.beta[i] - tb.lb[j]) / alpha
		case alpha < -pivotTol && !math.IsInf(tb.ub[j], 1):
			lim = (tb.ub[j] - tb.beta[i]) / -alpha
		default:
			continue
		}
		lim = math.Max(lim, 0)
		better := lim < step-ratioTie
		if !better && row >= 0 && lim <= step+ratioTie {
			if bland {
				better = j < tb.basis[row]
			} else {
				better = math.Abs(alpha) > math.Abs(rowAlpha)
			}
		}
		if better {
			step, row, rowAlpha = lim, i, alpha
		}
	}
	return step, row
}

func (tb *tableau) move(q int, dir, step float64, r int) {
	if step > 0 {
		for i := range tb.m {
			if a := tb.t.At(i, q); a != 0 {
				tb.beta[i] -= dir * step * a
			}
		}
	}
	if r < 0 {
		if tb.state[q] == atLower {
			tb.state[q] = atUpper
		} else {
			tb.state[q] = atLower
		}
		return
	}

	entered := tb.value(q) + dir*step
	leaving := tb.basis[r]
	if dir*tb.t.At(r, q) > 0 {
		tb.state[leaving] = atLower
	} else {
		tb.state[leaving] = atUpper
	}
	tb.pivot(r, q)
	tb.basis[r] = q
	tb.state[q] = inBasis
	tb.beta[r] = entered
}

func (tb *tableau) pivot(r, q int) {
	pr := tb.t.RawRowView(r)
	floats.Scale(1/pr[q], pr)
	pr[q] = 1
	for i := range tb.m {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[q]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[q] = 0
		}
	}
	if f := tb.d[q]; f != 0 {
		floats.AddScaled(tb.d, -f, pr)
		tb.d[q] = 0
	}
}
