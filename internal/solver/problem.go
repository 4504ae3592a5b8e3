// Package solver solves small integer linear programs by branch and bound
// over LP relaxations.
package solver

import "math"

type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

type Var struct {
	Name    string
	Cost    float64
	Lower   float64
	Upper   float64
	Integer bool
	// Priority orders branching; higher values are branched on first.
	Priority int
}

type Term struct {
	Var  int
	Coef float64
}

type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a minimization over Vars subject to Constraints and the
// variables' bounds.
type Problem struct {
	Vars        []Var
	Constraints []Constraint
}

// NoUpper marks a variable unbounded above.
var NoUpper = math.Inf(1)

// AddVar appends v and returns its index.
func (p *Problem) AddVar(v Var) int {
	p.Vars = append(p.Vars, v)
	return len(p.Vars) - 1
}

// Integer appends an integer variable in [lower, upper].
func (p *Problem) Integer(name string, cost, lower, upper float64, priority int) int {
	return p.AddVar(Var{Name: name, Cost: cost, Lower: lower, Upper: upper, Integer: true, Priority: priority})
}

// Binary appends a 0/1 variable.
func (p *Problem) Binary(name string, cost float64, priority int) int {
	return p.AddVar(Var{Name: name, Cost: cost, Lower: 0, Upper: 1, Integer: true, Priority: priority})
}

func (p *Problem) Add(c Constraint) {
	p.Constraints = append(p.Constraints, c)
}

func (p *Problem) Objective(x []float64) float64 {
	var total float64
	for j, v := range p.Vars {
		total += v.Cost * x[j]
	}
	return total
}

// Feasible checks x against every bound, integrality requirement, and
// constraint within tol.
func (p *Problem) Feasible(x []float64, tol float64) bool {
	if len(x) != len(p.Vars) {
		return false
	}
	for j, v := range p.Vars {
		if x[j] < v.Lower-tol || x[j] > v.Upper+tol {
			return false
		}
		if v.Integer && math.Abs(x[j]-math.Round(x[j])) > tol {
			return false
		}
	}
	for _, c := range p.Constraints {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * x[t.Var]
		}
		slack := tol * math.Max(1, math.Abs(c.RHS))
		switch c.Sense {
		case LessEq:
			if lhs > c.RHS+slack {
				return false
			}
		case GreaterEq:
			if lhs < c.RHS-slack {
				return false
			}
		case Equal:
			if math.Abs(lhs-c.RHS) > slack {
				return false
			}
		}
	}
	return true
}
