package calculation

import (
	"context"
	"math"
	"time"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/mdlacasse/owlgo/internal/solver"
)

// pkgLogger is the calculation engine's logging sink; callers (CLI, TUI,
// tests) install their own implementation, defaulting to discarding
// everything.
var pkgLogger domain.Logger = domain.NopLogger{}

// SetLogger installs l as the calculation engine's logger. A nil l
// restores the no-op default.
func SetLogger(l domain.Logger) {
	if l == nil {
		l = domain.NopLogger{}
	}
	pkgLogger = l
}

// maxSCIterations bounds the outer loop so a pathological oscillation
// can't spin forever; reaching it without converging is reported as a
// partial result rather than an error.
const maxSCIterations = 60

// l1Tolerance and objTolerance are the convergence thresholds on the
// primal vector's L1 movement and the objective's movement, both
// compared after a /100 scale so the test reads in dollars.
const l1Tolerance = 0.5
const objTolerance = 0.5

// SCLoopResult is the outcome of running the standard-deduction/MAGI/
// LTCG/NIIT/Medicare feedback loop to a fixed point (or to its
// iteration cap).
type SCLoopResult struct {
	Builder    *LPBuilder
	Model      *solver.Model
	Solved     solver.Result
	Iterations int
	Converged  bool

	// TimedOut/Cancelled mark a best-effort result: the last feasible
	// iterate is still populated, but the loop stopped early on the
	// MaxTime cap or a context cancellation between iterations.
	TimedOut  bool
	Cancelled bool
}

// RunOuterLoop rebuilds the LP from scratch each iteration with a
// refreshed MAGI-dependent feedback set (the 65+ bonus deduction and the
// IRMAA tier thresholds depend on MAGI; the LTCG marginal rate and NIIT
// surcharge depend on MAGI and the year's realized gains; "loop"-mode
// Medicare cost depends on the two-year-lagged MAGI), stopping once the
// primal vector and objective both stop moving or the chosen options
// don't need feedback at all. Cancellation and the Options.MaxTime cap
// are honored between iterations, never mid-solve; the last feasible
// iterate is returned best-effort in both cases.
func RunOuterLoop(ctx context.Context, plan *domain.Plan, rm *RateModel, adapter solver.Adapter, gamma []float64) (*SCLoopResult, error) {
	nn := plan.Horizon()
	feedback := NewSCFeedback(nn)
	started := time.Now()

	maxIter := maxSCIterations
	if !plan.Options.WithSCLoop && plan.Options.Medicare != domain.MedicareLoop {
		maxIter = 1
	}

	var (
		builder    *LPBuilder
		model      *solver.Model
		result     solver.Result
		converged  bool
		timedOut   bool
		cancelled  bool
		prevX      []float64
		prevObj    float64
		objHistory []float64
	)

	iter := 0
	for ; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			if iter == 0 {
				return nil, err
			}
			cancelled = true
			pkgLogger.Warnf("outer loop: cancelled after iteration %d", iter-1)
			break
		}
		if limit := plan.Options.MaxTime; limit > 0 && iter > 0 && time.Since(started) > limit {
			timedOut = true
			pkgLogger.Warnf("outer loop: exceeded max time %s after iteration %d", limit, iter-1)
			break
		}

		b, err := NewLPBuilder(plan, rm, gamma, feedback)
		if err != nil {
			return nil, err
		}
		m := b.BuildModel()
		res := adapter.Solve(m)

		builder, model, result = b, m, res
		if res.Status != solver.StatusOptimal {
			pkgLogger.Warnf("outer loop: solve failed at iteration %d: %s", iter, res.Message)
			break
		}
		pkgLogger.Debugf("outer loop: iteration %d objective=%.2f", iter, res.Objective)

		doLoop := plan.Options.WithSCLoop || plan.Options.Medicare == domain.MedicareLoop
		if !doLoop {
			converged = true
			break
		}

		qn := decodeQ(b, res.X)
		in := decodeI(b, res.X)
		magi := decodeMAGI(b, res.X, qn)

		next := NewSCFeedback(nn)
		copy(next.MAGI, magi)
		for n := 0; n < nn; n++ {
			married := plan.NumIndividuals() == 2 && n < b.nd
			next.Psi[n] = ltcgMarginalRate(b.ts.LTCG, magi[n], gamma[n], married)
			next.NIIT[n] = niitTax(b.ts.NIIT, married, magi[n], in[n]+qn[n])
		}
		if plan.Options.Medicare == domain.MedicareLoop {
			for n := b.ts.NMedicare; n < nn; n++ {
				lagged := laggedMAGI(plan, magi, n-2)
				next.MedicareLoop[n] = medicareCostForYear(b.ts, n, lagged)
			}
		}

		objHistory = append(objHistory, res.Objective)

		if prevX != nil {
			dx := l1Diff(prevX, res.X)
			df := math.Abs(res.Objective - prevObj)
			if dx/100 < l1Tolerance && df/100 < objTolerance {
				converged = true
				feedback = next
				break
			}
			if oscillationEscape(res.Objective, objHistory) {
				pkgLogger.Infof("outer loop: accepted at iteration %d via oscillation-escape", iter)
				converged = true
				feedback = next
				break
			}
		}

		prevX = append([]float64(nil), res.X...)
		prevObj = res.Objective
		feedback = next
	}
	if !converged && iter >= maxSCIterations {
		pkgLogger.Warnf("outer loop: reached max iterations (%d) without converging", maxSCIterations)
	}

	return &SCLoopResult{
		Builder:    builder,
		Model:      model,
		Solved:     result,
		Iterations: iter + 1,
		Converged:  converged,
		TimedOut:   timedOut,
		Cancelled:  cancelled,
	}, nil
}

// l1Diff is the L1 norm of the difference between two primal vectors of
// equal length (the vectors necessarily match since the IndexMap shape
// is unchanged across SC iterations).
func l1Diff(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// oscillationEscape detects the case where the objective is bouncing
// between two or more fixed points rather than converging monotonically,
// and accepts the current iterate once it is close to the best of the
// recent half of the objective history.
func oscillationEscape(fobj float64, history []float64) bool {
	if len(history) < 4 {
		return false
	}
	recent := history[len(history)/2:]
	best := recent[0]
	for _, v := range recent {
		if v < best {
			best = v
		}
	}
	return math.Abs(fobj-best) < 10*objTolerance
}

// laggedMAGI returns the MAGI at year n, falling back to the plan's
// caller-supplied pre-plan MAGI constants when n precedes plan start
// (PreviousMAGIs[0] is two years before start, [1] is one year before).
func laggedMAGI(plan *domain.Plan, magi []float64, n int) float64 {
	if n >= 0 && n < len(magi) {
		return magi[n]
	}
	if n == -1 {
		return f64(plan.Options.PreviousMAGIs[1])
	}
	return f64(plan.Options.PreviousMAGIs[0])
}

// ltcgMarginalRate returns the marginal long-term capital gains rate that
// applies to the next dollar of gain given the year's MAGI. Thresholds
// are inflation-scaled by gammaN; married-filing-jointly thresholds apply
// while both spouses are alive (the caller passes the year's status).
func ltcgMarginalRate(p domain.LTCGParams, magi, gammaN float64, married bool) float64 {
	thr := p.ThresholdsSingle
	if married {
		thr = p.ThresholdsMarried
	}
	t0 := f64(thr[0]) * gammaN
	t1 := f64(thr[1]) * gammaN
	switch {
	case magi <= t0:
		return f64(p.Rates[0])
	case magi <= t1:
		return f64(p.Rates[1])
	default:
		return f64(p.Rates[2])
	}
}

// medicareCostForYear looks up the annual Part B/D premium (base tier
// plus IRMAA surcharge) for year n given the lagged MAGI that determines
// the IRMAA tier, used in Medicare mode "loop" in place of the MILP's
// binary tier-selection rows.
func medicareCostForYear(ts *TaxSchedule, n int, laggedMAGI float64) float64 {
	thr := ts.MedicareThresholds[n]
	costs := ts.MedicareCosts[n]
	tier := 0
	for q, l := range thr {
		if laggedMAGI >= l {
			tier = q + 1
		}
	}
	return costs[tier]
}

// decodeMAGI estimates each year's Modified Adjusted Gross Income from a
// solved primal vector: the bracket-filled ordinary income plus the used
// standard deduction plus the year's dividends-and-gains.
func decodeMAGI(b *LPBuilder, x []float64, qn []float64) []float64 {
	nn := b.im.NN
	magi := make([]float64, nn)
	for n := 0; n < nn; n++ {
		v := x[b.im.IxE(n)]
		for t := 0; t < b.im.NT; t++ {
			v += x[b.im.IxF(t, n)]
		}
		magi[n] = v + qn[n]
	}
	return magi
}

// decodeQ reads Q_n, the taxable account's equity dividends plus realized
// stock gains for year n (including the fixed-asset capital-gain stream),
// the amount the LTCG tax applies against.
func decodeQ(b *LPBuilder, x []float64) []float64 {
	nn := b.im.NN
	mu := f64(b.plan.Household.DividendYield)
	out := make([]float64, nn)
	for n := 0; n < nn; n++ {
		var v float64
		for i := range b.plan.Household.Individuals {
			bal := x[b.im.IxB(i, domain.AccountTaxable, n)]
			w0 := x[b.im.IxW(i, domain.AccountTaxable, n)]
			dep := x[b.im.IxD(i, n)]
			kap := KappaJ(b.byYear[i], b.plan.Household.CurrentYear, domain.AccountTaxable, n)
			stocks := b.alpha[i][domain.AccountTaxable][n][domain.AssetStocks]
			v += (mu*(bal-w0+dep+0.5*kap) + b.tau0prev(n)*w0) * stocks
		}
		if n < len(b.plan.FixedAssets.CapitalGains) {
			v += f64(b.plan.FixedAssets.CapitalGains[n])
		}
		out[n] = v
	}
	return out
}

// decodeI reads I_n, the taxable account's interest income from its
// non-equity holdings, the other half of the NIIT base.
func decodeI(b *LPBuilder, x []float64) []float64 {
	nn := b.im.NN
	out := make([]float64, nn)
	for n := 0; n < nn; n++ {
		var v float64
		for i := range b.plan.Household.Individuals {
			held := x[b.im.IxB(i, domain.AccountTaxable, n)] + x[b.im.IxD(i, n)] - x[b.im.IxW(i, domain.AccountTaxable, n)]
			var fak float64
			for k := 1; k < domain.NumAssetClasses; k++ {
				fak += b.tau[k][n] * b.alpha[i][domain.AccountTaxable][n][k]
			}
			v += held * fak
		}
		out[n] = v
	}
	return out
}
