package calculation

import (
	"time"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/mdlacasse/owlgo/internal/solver"
	"github.com/shopspring/decimal"
)

// ResultAggregator decodes a solved flat primal vector back into the
// named, typed arrays callers actually want to look at.
type ResultAggregator struct{}

// Aggregate builds a SolvedPlan from a converged (or best-effort) outer
// loop result. status should reflect whatever the caller decided about
// the loop's convergence and the solver's terminal status; Aggregate
// itself only transcribes numbers, it does not judge success.
func (ResultAggregator) Aggregate(sc *SCLoopResult, status domain.CaseStatus, runID, caseName string) domain.SolvedPlan {
	b := sc.Builder
	x := sc.Solved.X

	// An infeasible/unbounded case carries no primal vector; only the
	// status and the solver's message survive into the snapshot.
	if status == domain.CaseUnsuccessful || x == nil {
		return domain.SolvedPlan{
			Status:  domain.CaseUnsuccessful,
			Warning: sc.Solved.Message,
			Provenance: domain.Provenance{
				RunID:         runID,
				Timestamp:     time.Now(),
				CaseName:      caseName,
				SolverMessage: sc.Solved.Message,
				Iterations:    sc.Iterations,
			},
		}
	}

	im := b.im
	nn := im.NN
	ni := b.plan.NumIndividuals()

	sp := domain.SolvedPlan{
		Status: status,
		Provenance: domain.Provenance{
			RunID:         runID,
			Timestamp:     time.Now(),
			CaseName:      caseName,
			SolverMessage: sc.Solved.Message,
			Iterations:    sc.Iterations,
		},
		ObjectiveValue: decimal.NewFromFloat(-sc.Solved.Objective),
	}
	if sc.Solved.Status != solver.StatusOptimal {
		sp.Warning = sc.Solved.Message
	}

	sp.Balance = make([][domain.NumAccountTypes][]decimal.Decimal, ni)
	sp.Withdrawals = make([][domain.NumAccountTypes][]decimal.Decimal, ni)
	sp.Deposits = make([][]decimal.Decimal, ni)
	sp.RothConversions = make([][]decimal.Decimal, ni)

	for i := 0; i < ni; i++ {
		for j := 0; j < domain.NumAccountTypes; j++ {
			series := make([]decimal.Decimal, nn+1)
			wseries := make([]decimal.Decimal, nn)
			for n := 0; n <= nn; n++ {
				series[n] = decimal.NewFromFloat(x[im.IxB(i, j, n)])
			}
			for n := 0; n < nn; n++ {
				wseries[n] = decimal.NewFromFloat(x[im.IxW(i, j, n)])
			}
			sp.Balance[i][j] = series
			sp.Withdrawals[i][j] = wseries
		}
		dep := make([]decimal.Decimal, nn)
		conv := make([]decimal.Decimal, nn)
		for n := 0; n < nn; n++ {
			dep[n] = decimal.NewFromFloat(x[im.IxD(i, n)])
			conv[n] = decimal.NewFromFloat(x[im.IxX(i, n)])
		}
		sp.Deposits[i] = dep
		sp.RothConversions[i] = conv
	}

	sp.StdDedUsed = make([]decimal.Decimal, nn)
	sp.NetSpending = make([]decimal.Decimal, nn)
	sp.MedicareCost = make([]decimal.Decimal, nn)
	sp.Surplus = make([]decimal.Decimal, nn)
	sp.MAGI = make([]decimal.Decimal, nn)
	sp.OrdinaryTax = make([]decimal.Decimal, nn)
	sp.LTCGTax = make([]decimal.Decimal, nn)
	sp.NIIT = make([]decimal.Decimal, nn)
	sp.DividendsGains = make([]decimal.Decimal, nn)

	for t := 0; t < domain.NumTaxBrackets; t++ {
		sp.BracketFill[t] = make([]decimal.Decimal, nn)
	}

	qn := decodeQ(b, x)
	in := decodeI(b, x)
	magi := decodeMAGI(b, x, qn)

	n59s := make([]int, ni)
	for i := 0; i < ni; i++ {
		n59s[i] = b.n59(i)
	}

	for n := 0; n < nn; n++ {
		sp.StdDedUsed[n] = decimal.NewFromFloat(x[im.IxE(n)])
		sp.NetSpending[n] = decimal.NewFromFloat(x[im.IxG(n)])
		sp.MedicareCost[n] = decimal.NewFromFloat(x[im.IxM(n)])
		sp.Surplus[n] = decimal.NewFromFloat(x[im.IxS(n)])
		sp.MAGI[n] = decimal.NewFromFloat(magi[n])

		var ordinaryTax float64
		for t := 0; t < domain.NumTaxBrackets; t++ {
			fill := x[im.IxF(t, n)]
			sp.BracketFill[t][n] = decimal.NewFromFloat(fill)
			ordinaryTax += fill * b.ts.BracketRates[t][n]
		}
		for i := 0; i < ni; i++ {
			if n < n59s[i] {
				ordinaryTax += 0.1 * (x[im.IxW(i, domain.AccountDeferred, n)] + x[im.IxW(i, domain.AccountTaxFree, n)])
			}
		}
		sp.OrdinaryTax[n] = decimal.NewFromFloat(ordinaryTax)

		married := ni == 2 && n < b.nd
		psi := ltcgMarginalRate(b.ts.LTCG, magi[n], b.gamma[n], married)
		sp.DividendsGains[n] = decimal.NewFromFloat(qn[n])
		sp.LTCGTax[n] = decimal.NewFromFloat(psi * qn[n])
		sp.NIIT[n] = decimal.NewFromFloat(niitTax(b.ts.NIIT, married, magi[n], in[n]+qn[n]))
	}

	// The deceased's balances at n_d are pinned to zero by the transition
	// rows, so the partial estate is reconstructed from the n_d-1 primal
	// values: the deceased's grown year-end position, the non-spousal
	// (1-phi) share of it, heir-taxed on the deferred account.
	sp.PartialEstate = decimal.Zero
	if b.id >= 0 && b.nd >= 1 && b.nd < nn {
		nx := b.nd - 1
		nu := f64(b.plan.Household.HeirsTaxRate)
		var v float64
		for j := 0; j < domain.NumAccountTypes; j++ {
			t1 := b.tau1(b.id, j, nx)
			th := b.tauHalf(b.id, j, nx)
			kap := KappaJ(b.byYear[b.id], b.plan.Household.CurrentYear, j, nx)
			part := th*kap + t1*(x[im.IxB(b.id, j, nx)]-x[im.IxW(b.id, j, nx)])
			if j == domain.AccountTaxable {
				part += t1 * x[im.IxD(b.id, nx)]
			}
			if j == domain.AccountTaxFree {
				part += t1 * x[im.IxX(b.id, nx)]
			} else if j == domain.AccountDeferred {
				part -= t1 * x[im.IxX(b.id, nx)]
			}
			share := part * (1 - f64(b.plan.Household.BeneficiaryTransferFraction[j]))
			if j == domain.AccountDeferred {
				share *= 1 - nu
			}
			v += share
		}
		if b.gamma[b.nd] != 0 {
			v /= b.gamma[b.nd]
		}
		sp.PartialEstate = decimal.NewFromFloat(v)
	}

	switch b.plan.Objective {
	case domain.ObjectiveMaxSpending:
		if nn > 0 && b.xi[0] != 0 {
			sp.Basis = decimal.NewFromFloat(x[im.IxG(0)] / b.xi[0])
		}
	case domain.ObjectiveMaxBequest:
		nu := f64(b.plan.Household.HeirsTaxRate)
		var v float64
		for i := 0; i < ni; i++ {
			v += x[im.IxB(i, domain.AccountTaxable, nn)]
			v += (1 - nu) * x[im.IxB(i, domain.AccountDeferred, nn)]
			v += x[im.IxB(i, domain.AccountTaxFree, nn)]
		}
		v -= f64(b.plan.FixedAssets.ResidualDebt)
		if nn < len(b.gamma) && b.gamma[nn] != 0 {
			v /= b.gamma[nn]
		}
		sp.Bequest = decimal.NewFromFloat(v)
	}

	return sp
}

// niitTax applies the Net Investment Income Tax above the single/married
// MAGI threshold (the NIIT thresholds are not inflation-indexed).
func niitTax(p domain.NIITParams, married bool, magi, investmentIncome float64) float64 {
	threshold := p.ThresholdSingle
	if married {
		threshold = p.ThresholdMarried
	}
	thr, _ := threshold.Float64()
	rate, _ := p.Rate.Float64()
	if magi <= thr || investmentIncome <= 0 {
		return 0
	}
	excess := magi - thr
	base := investmentIncome
	if excess < base {
		base = excess
	}
	return base * rate
}
