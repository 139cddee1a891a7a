package solver

import "math"

const (
	simplexEps     = 1e-9
	simplexMaxIter = 20000
)

// lpRelax solves the LP relaxation of m (ignoring Integer) with a dense
// bounded-variable primal simplex and a Big-M penalty on artificial
// variables. Bland's rule (smallest-index tie-breaking) is used
// throughout to guarantee termination without cycling.
//
// fixedLo/fixedUp optionally override m.VarLo/m.VarUp (branch-and-bound
// passes tightened bounds without mutating the shared Model); pass nil to
// use m's own bounds.
func lpRelax(m *Model, fixedLo, fixedUp []float64) Result {
	varLo := m.VarLo
	varUp := m.VarUp
	if fixedLo != nil {
		varLo = fixedLo
	}
	if fixedUp != nil {
		varUp = fixedUp
	}

	nStruct := m.NVars
	nRows := len(m.Rows)

	// Column layout: [0,nStruct) structural, [nStruct,nStruct+nRows) slacks
	// (one per row, possibly zero-width for RowFX), [nStruct+nRows, +numArt)
	// artificials (one per row).
	nSlack := nRows
	slackBase := nStruct
	artBase := nStruct + nSlack
	n := artBase + nRows

	shiftedUp := make([]float64, n)
	for j := 0; j < nStruct; j++ {
		lo, up := varLo[j], varUp[j]
		if math.IsInf(up, 1) {
			shiftedUp[j] = math.Inf(1)
		} else {
			shiftedUp[j] = up - lo
		}
	}

	tab := make([][]float64, nRows)
	rhs := make([]float64, nRows)
	basis := make([]int, nRows)
	atUpper := make([]bool, n)
	cost := make([]float64, n)

	var maxAbsC float64
	for _, c := range m.Obj {
		if a := math.Abs(c); a > maxAbsC {
			maxAbsC = a
		}
	}
	bigM := 1e6 * (1 + maxAbsC)

	for i, row := range m.Rows {
		tab[i] = make([]float64, n)
		for j, v := range row.Coeffs {
			tab[i][j] = v
		}

		lo, up := row.Lo, row.Up
		slackIdx := slackBase + i
		switch row.Kind {
		case RowFX:
			shiftedUp[slackIdx] = 0
		case RowRA:
			tab[i][slackIdx] = -1
			shiftedUp[slackIdx] = up - lo
		case RowLO:
			tab[i][slackIdx] = -1
			shiftedUp[slackIdx] = math.Inf(1)
		case RowUP:
			tab[i][slackIdx] = 1
			shiftedUp[slackIdx] = math.Inf(1)
			lo = up // Ax + s = up, single-sided
		case RowFR:
			// A free row constrains nothing: clear its coefficients and
			// keep its zero-valued artificial in the basis slot.
			for j := range tab[i] {
				tab[i][j] = 0
			}
			tab[i][artBase+i] = 1
			basis[i] = artBase + i
			continue
		}

		// b' = rhs - A*lo_struct (shift structural variables to start at 0).
		bAdj := lo
		for j := 0; j < nStruct; j++ {
			if c, ok := row.Coeffs[j]; ok {
				bAdj -= c * varLo[j]
			}
		}

		artIdx := artBase + i
		if bAdj >= 0 {
			tab[i][artIdx] = 1
			rhs[i] = bAdj
		} else {
			tab[i][artIdx] = -1
			rhs[i] = -bAdj
		}
		basis[i] = artIdx
		cost[artIdx] = bigM
	}

	for j := 0; j < nStruct; j++ {
		cost[j] = m.Obj[j]
	}

	// Reduced-cost row: reducedCost[j] = cost[j] - sum_i cB[i]*tab[i][j].
	reduced := make([]float64, n)
	recomputeReduced := func() {
		for j := 0; j < n; j++ {
			v := cost[j]
			for i := 0; i < nRows; i++ {
				v -= cost[basis[i]] * tab[i][j]
			}
			reduced[j] = v
		}
	}
	recomputeReduced()

	for iter := 0; iter < simplexMaxIter; iter++ {
		entering := -1
		enterDir := 1.0
		for j := 0; j < n; j++ {
			if isBasic(basis, j) {
				continue
			}
			if !atUpper[j] {
				if reduced[j] < -simplexEps {
					entering = j
					enterDir = 1
					break
				}
			} else {
				if reduced[j] > simplexEps {
					entering = j
					enterDir = -1
					break
				}
			}
		}
		if entering == -1 {
			return finalizeSimplex(m, varLo, tab, rhs, basis, atUpper, shiftedUp, cost, bigM, artBase, nRows, nStruct)
		}

		selfLimit := math.Inf(1)
		if !math.IsInf(shiftedUp[entering], 1) {
			selfLimit = shiftedUp[entering]
		}

		bestDelta := selfLimit
		leaveRow := -1
		leaveAtUpper := false
		for i := 0; i < nRows; i++ {
			coeff := tab[i][entering] * enterDir
			bi := basis[i]
			cur := rhs[i]
			if coeff > simplexEps {
				lim := cur / coeff
				if lim < bestDelta {
					bestDelta = lim
					leaveRow = i
					leaveAtUpper = false
				} else if lim < bestDelta+simplexEps && leaveRow != -1 && bi < basis[leaveRow] {
					leaveRow = i
					leaveAtUpper = false
				}
			} else if coeff < -simplexEps {
				if !math.IsInf(shiftedUp[bi], 1) {
					lim := (shiftedUp[bi] - cur) / (-coeff)
					if lim < bestDelta {
						bestDelta = lim
						leaveRow = i
						leaveAtUpper = true
					} else if lim < bestDelta+simplexEps && leaveRow != -1 && bi < basis[leaveRow] {
						leaveRow = i
						leaveAtUpper = true
					}
				}
			}
		}

		if math.IsInf(bestDelta, 1) {
			return Result{Status: StatusUnbounded, Message: "LP relaxation unbounded"}
		}

		for i := 0; i < nRows; i++ {
			rhs[i] -= tab[i][entering] * enterDir * bestDelta
		}

		if leaveRow == -1 {
			// Bound flip: entering variable reaches its opposite bound,
			// basis unchanged.
			atUpper[entering] = !atUpper[entering]
			continue
		}

		pivot := tab[leaveRow][entering]
		for j := 0; j < n; j++ {
			tab[leaveRow][j] /= pivot
		}
		rhs[leaveRow] /= pivot
		for i := 0; i < nRows; i++ {
			if i == leaveRow {
				continue
			}
			factor := tab[i][entering]
			if factor == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				tab[i][j] -= factor * tab[leaveRow][j]
			}
			rhs[i] -= factor * rhs[leaveRow]
		}

		leaving := basis[leaveRow]
		// The leaving variable settles at whichever bound the ratio test
		// hit: the coeff<0 branch above means it rose to its upper bound,
		// otherwise it fell to its lower bound (0, shifted).
		atUpper[leaving] = leaveAtUpper
		basis[leaveRow] = entering
		atUpper[entering] = false

		recomputeReduced()
	}

	return Result{Status: StatusIterationLimit, Message: "simplex iteration limit reached"}
}

func isBasic(basis []int, j int) bool {
	for _, b := range basis {
		if b == j {
			return true
		}
	}
	return false
}

func finalizeSimplex(m *Model, varLo []float64, tab [][]float64, rhs []float64, basis []int, atUpper []bool, shiftedUp []float64, cost []float64, bigM float64, artBase, nRows, nStruct int) Result {
	// Artificial infeasibility check: any artificial variable with a
	// nonzero value (basic or forced nonzero) means the original model is
	// infeasible.
	values := make([]float64, len(shiftedUp))
	for i, b := range basis {
		values[b] = rhs[i]
	}
	for j := artBase; j < artBase+nRows; j++ {
		if atUpper[j] {
			values[j] = shiftedUp[j]
		}
		if values[j] > 1e-5 {
			return Result{Status: StatusInfeasible, Message: "artificial variable nonzero at optimum"}
		}
	}

	x := make([]float64, nStruct)
	var obj float64
	for j := 0; j < nStruct; j++ {
		v := values[j]
		if atUpper[j] {
			v = shiftedUp[j]
		}
		x[j] = v + varLo[j]
		obj += m.Obj[j] * x[j]
	}

	return Result{Status: StatusOptimal, X: x, Objective: obj}
}
