package solver

import "math"

// BranchAndBoundSolver implements Adapter by branching on the fractional
// binary variable closest to 0.5 and solving the bounded-variable LP
// relaxation (simplex.go) at each node. No Go MILP package appears
// anywhere in this module's dependency ecosystem (see DESIGN.md), so this
// solver is carried in-repo rather than wrapping a third-party one.
type BranchAndBoundSolver struct {
	MaxNodes    int
	RelativeGap float64 // MIP relative optimality gap
}

// NewBranchAndBoundSolver returns a solver with conservative default
// tolerances.
func NewBranchAndBoundSolver() *BranchAndBoundSolver {
	return &BranchAndBoundSolver{MaxNodes: 20000, RelativeGap: 1e-7}
}

type bnbNode struct {
	lo, up []float64
}

func (s *BranchAndBoundSolver) Solve(m *Model) Result {
	var intVars []int
	for j, isInt := range m.Integer {
		if isInt {
			intVars = append(intVars, j)
		}
	}
	if len(intVars) == 0 {
		return lpRelax(m, nil, nil)
	}

	root := bnbNode{lo: append([]float64(nil), m.VarLo...), up: append([]float64(nil), m.VarUp...)}
	stack := []bnbNode{root}

	var incumbent *Result
	nodes := 0

	for len(stack) > 0 && nodes < s.MaxNodes {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		rel := lpRelax(m, node.lo, node.up)
		if rel.Status != StatusOptimal {
			continue
		}
		if incumbent != nil && rel.Objective >= incumbent.Objective-s.RelativeGap*(1+math.Abs(incumbent.Objective)) {
			continue // bound prune: this node cannot beat the incumbent
		}

		branchVar, frac := mostFractional(intVars, rel.X)
		if branchVar == -1 {
			// Integer-feasible: candidate incumbent.
			if incumbent == nil || rel.Objective < incumbent.Objective {
				r := rel
				incumbent = &r
			}
			continue
		}
		_ = frac

		loBranch := bnbNode{lo: append([]float64(nil), node.lo...), up: append([]float64(nil), node.up...)}
		loBranch.up[branchVar] = 0
		upBranch := bnbNode{lo: append([]float64(nil), node.lo...), up: append([]float64(nil), node.up...)}
		upBranch.lo[branchVar] = 1

		stack = append(stack, loBranch, upBranch)
	}

	if incumbent == nil {
		if nodes >= s.MaxNodes {
			return Result{Status: StatusIterationLimit, Message: "branch-and-bound node limit reached with no feasible integer solution"}
		}
		return Result{Status: StatusInfeasible, Message: "MILP infeasible"}
	}

	res := *incumbent
	if nodes >= s.MaxNodes {
		res.Message = "branch-and-bound node limit reached; returning best incumbent"
	}
	return res
}

// mostFractional returns the integer-constrained column whose relaxed
// value is farthest from 0 or 1, and how far, or (-1, 0) if every
// integer variable already sits at an integral value within tolerance.
func mostFractional(intVars []int, x []float64) (int, float64) {
	best := -1
	var bestDist float64
	for _, j := range intVars {
		v := x[j]
		dist := math.Abs(v - math.Round(v))
		if dist > 1e-6 && dist > bestDist {
			bestDist = dist
			best = j
		}
	}
	return best, bestDist
}
