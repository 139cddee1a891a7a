package calculation

import (
	"fmt"
	"math"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/mdlacasse/owlgo/internal/solver"
)

// oldTau1 is the assumed annual stock growth factor for years before plan
// start, used to grow historical Roth contributions/conversions toward
// their five-year maturation date.
const oldTau1 = 1.10

// SCFeedback carries the MAGI-dependent quantities the outer
// self-consistent loop recomputes between solves: the LTCG marginal rate
// psi_n, the NIIT surcharge J_n, and (Medicare mode "loop" only) the
// externally-resolved Medicare+IRMAA cost M_n. All three are zero-valued
// on the loop's first pass and before any SC feedback has been
// requested (WithSCLoop=false, Medicare != loop).
type SCFeedback struct {
	MAGI         []float64
	Psi          []float64 // LTCG marginal rate, psi_n
	NIIT         []float64 // J_n
	MedicareLoop []float64 // M_n, populated only when Medicare == MedicareLoop
}

// NewSCFeedback returns a zero-valued feedback set sized for an nn-year
// horizon, the starting point for the outer loop's first iteration.
func NewSCFeedback(nn int) *SCFeedback {
	return &SCFeedback{
		MAGI:         make([]float64, nn),
		Psi:          make([]float64, nn),
		NIIT:         make([]float64, nn),
		MedicareLoop: make([]float64, nn),
	}
}

// LPBuilder assembles the solver-neutral MILP for one plan solve. Each
// addX method below lays down one family of rows (or variable bounds);
// BuildModel runs them all in the order the account-balance chain needs.
type LPBuilder struct {
	plan *domain.Plan
	im   *IndexMap
	ts   *TaxSchedule

	tau   [numK][]float64 // [k][n]
	gamma []float64        // length NN+1

	alpha [][domain.NumAccountTypes][][domain.NumAssetClasses]float64 // [i][j][n][k]

	zeta   [][]float64 // social security, [i][n]
	pen    [][]float64 // pension, [i][n]
	omega  [][]float64 // wages+other, [i][n]
	lambda [][]float64 // big-ticket items, [i][n]
	xi     []float64   // spending profile, [n]

	byYear []map[int]domain.ContributionRow // [i]

	nd, id, is int // death year index, deceased individual, surviving individual

	feedback *SCFeedback

	m *solver.Model
}

// NewLPBuilder derives every per-year schedule a solve needs (tax
// schedule, rate paths, allocations, income streams, spending profile)
// and returns a builder ready to assemble the constraint matrix. feedback
// carries the MAGI, LTCG-rate, NIIT and (loop-mode) Medicare-cost
// estimates the outer loop refines between iterations; pass
// NewSCFeedback(nn) on the first pass.
func NewLPBuilder(plan *domain.Plan, rm *RateModel, gamma []float64, feedback *SCFeedback) (*LPBuilder, error) {
	nn := plan.Horizon()
	ni := plan.NumIndividuals()

	if feedback == nil {
		feedback = NewSCFeedback(nn)
	}

	ts, err := BuildTaxSchedule(plan, gamma, feedback.MAGI)
	if err != nil {
		return nil, err
	}

	tau, err := rm.GenSeries(nn)
	if err != nil {
		return nil, err
	}

	// Allocations interpolate along each individual's own horizon; the
	// series is then padded with its final vector out to the household
	// horizon so the post-death balance-chain rows stay indexable.
	alpha := make([][domain.NumAccountTypes][][domain.NumAssetClasses]float64, ni)
	for i := range plan.Household.Individuals {
		h := plan.IndividualHorizon(i)
		for j := 0; j < domain.NumAccountTypes; j++ {
			series := AllocationInterpolator{}.Generate(plan.Allocations[i][j], h)
			for len(series) < nn+1 {
				series = append(series, series[len(series)-1])
			}
			alpha[i][j] = series
		}
	}

	nd, id, is := plan.DeathYearIndex()

	hasXOR := plan.Options.XORConstraints
	hasMedicare := plan.Options.Medicare == domain.MedicareOptimize
	im := NewIndexMap(ni, nn, hasXOR, hasMedicare, ts.NMedicare)

	byYear := make([]map[int]domain.ContributionRow, ni)
	for i := range plan.Household.Individuals {
		byYear[i] = contributionByYear(plan.Contributions[i])
	}

	pen := BuildPensionStream(plan)
	ApplyPensionIndexing(plan, pen, gamma)

	omega := make([][]float64, ni)
	lambda := make([][]float64, ni)
	for i := range plan.Household.Individuals {
		omega[i] = WageAndOtherIncomeStream(plan, i)
		lambda[i] = BigTicketStream(plan, i)
	}

	chi := f64(plan.Household.SurvivorSpendingFraction)
	var xi []float64
	switch plan.Profile {
	case domain.ProfileFlat:
		xi = FlatProfile(nn, nd, chi)
	case domain.ProfileSmile:
		sp := plan.SmileParams
		xi = SmileProfile(nn, nd, sp.C, f64(sp.A), f64(sp.B), f64(sp.S), chi)
	default:
		return nil, fmt.Errorf("lpbuilder: unknown profile kind %v", plan.Profile)
	}

	// Social Security is always inflation-indexed; zeta carries the
	// gamma-scaled (zetaBar) amounts from here on.
	zeta := BuildSocialSecurityStream(plan)
	for i := range zeta {
		for n := range zeta[i] {
			zeta[i][n] *= gamma[n]
		}
	}

	return &LPBuilder{
		plan:   plan,
		im:     im,
		ts:     ts,
		tau:    tau,
		gamma:  gamma,
		alpha:  alpha,
		zeta:   zeta,
		pen:    pen,
		omega:  omega,
		lambda: lambda,
		xi:     xi,
		byYear:   byYear,
		nd:       nd,
		id:       id,
		is:       is,
		feedback: feedback,
	}, nil
}

// horizon returns individual i's own remaining-years count.
func (b *LPBuilder) horizon(i int) int { return b.plan.IndividualHorizon(i) }

func krond(a, b int) float64 {
	if a == b {
		return 1
	}
	return 0
}

// tau1 is the blended one-year growth factor for individual i's account j
// in year n: sum_k alpha_{i,j,k,n} * (1 + tau_{k,n}).
func (b *LPBuilder) tau1(i, j, n int) float64 {
	var v float64
	for k := 0; k < domain.NumAssetClasses; k++ {
		v += b.alpha[i][j][n][k] * (1 + b.tau[k][n])
	}
	return v
}

// tauHalf is the half-year growth factor applied to contributions that
// land mid-year: 1 + tau_{i,j,n}/2, i.e. the average of 1 and tau1.
func (b *LPBuilder) tauHalf(i, j, n int) float64 {
	return (1 + b.tau1(i, j, n)) / 2
}

// cgainsFactor returns the compounded max(1,growth) factor applied over
// the dn years ending at year n, walking back through tau for years >= 0
// and using oldTau1 for years before plan start.
func (b *LPBuilder) cgainsFactor(n, dn int) float64 {
	f := 1.0
	for k := 0; k < dn; k++ {
		yr := n - k
		var g float64
		if yr >= 1 {
			g = 1 + b.tau[domain.AssetStocks][yr-1]
		} else {
			g = oldTau1
		}
		if g < 1 {
			g = 1
		}
		f *= g
	}
	return f
}

func rowName(fam string, idx ...int) string {
	s := fam
	for _, v := range idx {
		s += fmt.Sprintf("_%d", v)
	}
	return s
}

// BuildModel lays down every constraint family and returns the
// solver-neutral MILP ready for an Adapter.
func (b *LPBuilder) BuildModel() *solver.Model {
	b.m = solver.NewModel(b.im.NVars)

	b.addBracketAndDeductionBounds()
	b.addInitialBalances()
	b.addDefunctIndividualZeros()
	b.addRothConversionControl()
	b.addRMD()
	b.addWithdrawalLimits()
	b.addRothMaturation()
	b.addSurplusDepositLinking()
	b.addAccountTransition()
	b.addNetCashFlow()
	b.addIncomeProfileShape()
	b.addTaxableOrdinaryIncome()
	b.addObjectiveConstraint()
	if b.im.HasXOR {
		b.addXORExclusions()
	}
	if b.im.HasMedicare {
		b.addMedicareTierSelection()
	} else {
		b.addMedicareCostFixed()
	}
	b.setObjectiveVector()

	return b.m
}

// addBracketAndDeductionBounds fixes f_{t,n} and e_n's upper bounds to
// this year's bracket width and standard deduction.
func (b *LPBuilder) addBracketAndDeductionBounds() {
	nn := b.im.NN
	for n := 0; n < nn; n++ {
		b.m.SetBounds(b.im.IxE(n), 0, b.ts.StdDed[n])
		for t := 0; t < b.im.NT; t++ {
			b.m.SetBounds(b.im.IxF(t, n), 0, b.ts.BracketWidths[t][n])
		}
	}
}

// addInitialBalances fixes b_{i,j,0} from the caller's starting balances,
// scaled down by the fraction of the first year already elapsed.
func (b *LPBuilder) addInitialBalances() {
	yearSpent := 1 - f64(b.plan.YearFracLeft())
	for i, bal := range b.plan.Balances {
		starts := [domain.NumAccountTypes]float64{f64(bal.Taxable), f64(bal.TaxDeferred), f64(bal.TaxFree)}
		for j := 0; j < domain.NumAccountTypes; j++ {
			var weighted float64
			for k := 0; k < domain.NumAssetClasses; k++ {
				weighted += b.tau[k][0] * b.alpha[i][j][0][k]
			}
			backTau := 1 + yearSpent*weighted
			v := starts[j] / backTau
			b.m.SetBounds(b.im.IxB(i, j, 0), v, v)
		}
	}
}

// addDefunctIndividualZeros zeros deposits, conversions and withdrawals
// for the deceased individual in every year from the death year onward;
// there is nothing to zero when both individuals share a horizon or the
// household is single.
func (b *LPBuilder) addDefunctIndividualZeros() {
	if b.id < 0 {
		return
	}
	nn := b.im.NN
	for n := b.nd; n < nn; n++ {
		b.m.SetBounds(b.im.IxD(b.id, n), 0, 0)
		b.m.SetBounds(b.im.IxX(b.id, n), 0, 0)
		for j := 0; j < domain.NumAccountTypes; j++ {
			b.m.SetBounds(b.im.IxW(b.id, j, n), 0, 0)
		}
	}
}

// addRothConversionControl applies the selected RothConversionControl
// option as variable bounds on x_{i,n}.
func (b *LPBuilder) addRothConversionControl() {
	units := f64(b.plan.Options.Units)
	if units == 0 {
		units = 1
	}
	switch b.plan.Options.RothControl {
	case domain.RothConversionPinned:
		for i := range b.plan.Household.Individuals {
			h := b.horizon(i)
			for n := 0; n < h && n < b.im.NN; n++ {
				xhat := XHat(b.byYear[i], b.plan.Household.CurrentYear, n)
				b.m.SetBounds(b.im.IxX(i, n), xhat, xhat)
			}
		}
	case domain.RothConversionCapped:
		cap := f64(b.plan.Options.MaxRothConversion)*units + 0.01
		for i := range b.plan.Household.Individuals {
			h := b.horizon(i)
			for n := 0; n < h && n < b.im.NN; n++ {
				b.m.SetBounds(b.im.IxX(i, n), 0, cap)
			}
		}
	case domain.RothConversionZeroFor:
		for i, ind := range b.plan.Household.Individuals {
			if ind.Name != b.plan.Options.NoRothConversionsFor {
				continue
			}
			h := b.horizon(i)
			for n := 0; n < h && n < b.im.NN; n++ {
				b.m.SetBounds(b.im.IxX(i, n), 0, 0)
			}
		}
	case domain.RothConversionDelayedStart:
		start := b.plan.Options.StartRothConversionsYear - b.plan.Household.CurrentYear
		if start < 0 {
			start = 0
		}
		for i := range b.plan.Household.Individuals {
			for n := 0; n < start && n < b.im.NN; n++ {
				b.m.SetBounds(b.im.IxX(i, n), 0, 0)
			}
		}
	}
}

// addRMD enforces the required-minimum-distribution floor on
// tax-deferred withdrawals for any individual who starts with a nonzero
// deferred balance.
func (b *LPBuilder) addRMD() {
	for i, bal := range b.plan.Balances {
		if f64(bal.TaxDeferred) <= 0 {
			continue
		}
		h := b.horizon(i)
		for n := 0; n < h && n < b.im.NN; n++ {
			rho := b.ts.RMDFraction[i][n]
			if rho == 0 {
				continue
			}
			coeffs := map[int]float64{
				b.im.IxW(i, domain.AccountDeferred, n): 1,
				b.im.IxB(i, domain.AccountDeferred, n): -rho,
			}
			b.m.AddLO(rowName("rmd", i, n), coeffs, 0)
		}
	}
}

// addWithdrawalLimits forbids withdrawing more than the balance holds;
// for tax-deferred accounts, withdrawal plus the year's conversion may
// not exceed the balance.
func (b *LPBuilder) addWithdrawalLimits() {
	nn := b.im.NN
	for i := range b.plan.Household.Individuals {
		for n := 0; n < nn; n++ {
			for _, j := range []int{domain.AccountTaxable, domain.AccountTaxFree} {
				coeffs := map[int]float64{
					b.im.IxB(i, j, n): 1,
					b.im.IxW(i, j, n): -1,
				}
				b.m.AddLO(rowName("wlimit", i, j, n), coeffs, 0)
			}
			coeffs := map[int]float64{
				b.im.IxB(i, domain.AccountDeferred, n): 1,
				b.im.IxW(i, domain.AccountDeferred, n): -1,
				b.im.IxX(i, n):                         -1,
			}
			b.m.AddLO(rowName("wlimit_conv", i, n), coeffs, 0)
		}
	}
}

// addRothMaturation enforces the five-year Roth conversion seasoning
// rule: a Roth withdrawal cannot reach into growth contributed by a
// conversion executed fewer than five years earlier.
func (b *LPBuilder) addRothMaturation() {
	for i := range b.plan.Household.Individuals {
		h := b.horizon(i)
		if h > b.im.NN {
			h = b.im.NN
		}
		for n := 0; n < h; n++ {
			coeffs := map[int]float64{
				b.im.IxB(i, domain.AccountTaxFree, n): 1,
				b.im.IxW(i, domain.AccountTaxFree, n): -1,
			}
			var rhs float64
			for dn := 1; dn <= 5; dn++ {
				yr := n - dn
				cg := b.cgainsFactor(n, dn)
				if yr >= 0 {
					coeffs[b.im.IxX(i, yr)] -= cg
					rhs += (cg - 1) * KappaJ(b.byYear[i], b.plan.Household.CurrentYear, domain.AccountTaxFree, yr)
				} else {
					rhs += (cg-1)*KappaJ(b.byYear[i], b.plan.Household.CurrentYear, domain.AccountTaxFree, yr) + cg*XHat(b.byYear[i], b.plan.Household.CurrentYear, yr)
				}
			}
			b.m.AddLO(rowName("rothmature", i, n), coeffs, rhs)
		}
	}
}

// addSurplusDepositLinking ties each individual's deposit to the shared
// cash-flow surplus: before the first death it is split by eta, after it
// flows entirely to the survivor; it also forbids a terminal surplus.
func (b *LPBuilder) addSurplusDepositLinking() {
	nn := b.im.NN
	eta := f64(b.plan.Household.SurplusSplitEta)
	ni := b.plan.NumIndividuals()

	for n := 0; n < nn; n++ {
		for i := 0; i < ni; i++ {
			var fac1 float64
			if n < b.nd {
				fac1 = krond(i, 0)*(1-eta) + krond(i, 1)*eta
			} else {
				fac1 = krond(b.is, i)
			}
			coeffs := map[int]float64{
				b.im.IxD(i, n): 1,
				b.im.IxS(n):    -fac1,
			}
			b.m.AddFX(rowName("depositlink", i, n), coeffs, 0)
		}
	}

	b.m.SetBounds(b.im.IxS(nn-1), 0, 0)
}

// addAccountTransition advances every account's balance one year,
// compounding growth and netting deposits, withdrawals and conversions.
// In the year the first spouse dies, the deceased's ending balance is
// folded into the survivor's via the beneficiary transfer fraction.
func (b *LPBuilder) addAccountTransition() {
	nn := b.im.NN
	phi := b.plan.Household.BeneficiaryTransferFraction
	xnet := 1 - f64(b.plan.Options.OppCostXPercent)/100

	for i := range b.plan.Household.Individuals {
		h := b.horizon(i)
		for j := 0; j < domain.NumAccountTypes; j++ {
			// The chain runs over every plan year for every individual: a
			// deceased spouse's balances stay pinned (the death-year row
			// carries fac1=0, and the defunct zeros keep w/d/x at zero
			// afterward, so zero propagates through the terminal slice).
			for n := 0; n < nn; n++ {
				fac1 := 1.0
				if i == b.id && n == b.nd-1 {
					fac1 = 0
				}
				t1 := fac1 * b.tau1(i, j, n)
				th := fac1 * b.tauHalf(i, j, n)
				kappa := KappaJ(b.byYear[i], b.plan.Household.CurrentYear, j, n)
				if n >= h {
					kappa = 0
				}

				coeffs := map[int]float64{
					b.im.IxB(i, j, n+1): 1,
					b.im.IxB(i, j, n):   -t1,
					b.im.IxW(i, j, n):   t1,
				}
				rhs := th * kappa
				if j == domain.AccountTaxable {
					coeffs[b.im.IxD(i, n)] -= t1
				}
				xCoef := 0.0
				if j == domain.AccountTaxFree {
					xCoef = xnet
				} else if j == domain.AccountDeferred {
					xCoef = -1
				}
				if xCoef != 0 {
					coeffs[b.im.IxX(i, n)] -= xCoef * t1
				}

				if i == b.is && n == b.nd-1 {
					fac2 := f64(phi[j])
					if fac2 != 0 {
						t1d := b.tau1(b.id, j, n)
						thd := b.tauHalf(b.id, j, n)
						kappaD := KappaJ(b.byYear[b.id], b.plan.Household.CurrentYear, j, n)
						coeffs[b.im.IxB(b.id, j, n)] -= fac2 * t1d
						coeffs[b.im.IxW(b.id, j, n)] += fac2 * t1d
						if j == domain.AccountTaxable {
							coeffs[b.im.IxD(b.id, n)] -= fac2 * t1d
						}
						if xCoef != 0 {
							coeffs[b.im.IxX(b.id, n)] -= fac2 * xCoef * t1d
						}
						rhs += fac2 * thd * kappaD
					}
				}

				b.m.AddFX(rowName("transition", i, j, n), coeffs, rhs)
			}
		}
	}
}

// netSpendingFactor is psi_n * alpha_{i,0,stocks,n}, the fraction of the
// year's dividend-bearing taxable-account stock allocation exposed to the
// dividend-yield drag in the cash-flow identity, scaled by the LTCG
// marginal rate the outer loop estimated for this year.
func (b *LPBuilder) netSpendingFactor(i, n int) float64 {
	return b.feedback.Psi[n] * b.alpha[i][domain.AccountTaxable][n][domain.AssetStocks]
}

// tau0prev is tau_0prev_n = max(0, tau_{0,n-1}), last year's stock return
// used to price the capital gain realized on a taxable-account
// withdrawal; rolled with 0 at n=0.
func (b *LPBuilder) tau0prev(n int) float64 {
	if n <= 0 {
		return 0
	}
	v := b.tau[domain.AssetStocks][n-1]
	if v < 0 {
		return 0
	}
	return v
}

// n59 returns the year index at/after which individual i has reached age
// 59.5, the early-withdrawal-penalty cutoff; years before it carry the
// 10% penalty on tax-deferred/tax-free withdrawals in the cash-flow
// identity.
func (b *LPBuilder) n59(i int) int {
	ind := b.plan.Household.Individuals[i]
	birthMonthFrac := float64(int(ind.BirthDate.Month())-1) / 12
	iAge := math.Floor(59.5 + birthMonthFrac)
	n := ind.BirthDate.Year() + int(iAge) - b.plan.Household.CurrentYear
	if n < 0 {
		n = 0
	}
	return n
}

// afac is the dividend-and-interest return rate on individual i's taxable
// account in year n: the dividend yield on the equity slice plus the
// allocation-weighted rate on asset classes 1..K-1.
func (b *LPBuilder) afac(i, n int) float64 {
	mu := f64(b.plan.Household.DividendYield)
	v := mu * b.alpha[i][domain.AccountTaxable][n][domain.AssetStocks]
	for k := 1; k < domain.NumAssetClasses; k++ {
		v += b.tau[k][n] * b.alpha[i][domain.AccountTaxable][n][k]
	}
	return v
}

// addNetCashFlow ties net spending, surplus, Medicare cost and every
// individual's cash in/out-flows to the year's fixed, non-decision cash
// needs.
func (b *LPBuilder) addNetCashFlow() {
	nn := b.im.NN
	mu := f64(b.plan.Household.DividendYield)
	fa := b.plan.FixedAssets

	n59s := make([]int, b.plan.NumIndividuals())
	for i := range b.plan.Household.Individuals {
		n59s[i] = b.n59(i)
	}

	for n := 0; n < nn; n++ {
		coeffs := map[int]float64{
			b.im.IxG(n): 1,
			b.im.IxS(n): 1,
			b.im.IxM(n): 1,
		}
		var rhs float64
		if n < len(fa.TaxFree) {
			rhs += f64(fa.TaxFree[n])
		}
		if n < len(fa.DebtPayments) {
			rhs -= f64(fa.DebtPayments[n])
		}
		// m_n already carries the year's Medicare cost on the LHS (pinned to
		// the feedback value in "loop" mode by addMedicareCostFixed, solved
		// via the tier binaries in "optimize" mode); only NIIT is a pure
		// RHS offset since no decision variable tracks it.
		rhs -= b.feedback.NIIT[n]

		for i := range b.plan.Household.Individuals {
			fac := b.netSpendingFactor(i, n)
			coeffs[b.im.IxB(i, domain.AccountTaxable, n)] += fac * mu
			coeffs[b.im.IxW(i, domain.AccountTaxable, n)] += fac*(b.tau0prev(n)-mu) - 1
			penalty := 0.0
			if n < n59s[i] {
				penalty = 0.10
			}
			coeffs[b.im.IxW(i, domain.AccountDeferred, n)] += -1 + penalty
			coeffs[b.im.IxW(i, domain.AccountTaxFree, n)] += -1 + penalty
			coeffs[b.im.IxD(i, n)] += fac * mu

			if n < len(b.omega[i]) {
				rhs += b.omega[i][n]
			}
			if n < len(b.zeta[i]) {
				rhs += b.zeta[i][n]
			}
			if n < len(b.pen[i]) {
				rhs += b.pen[i][n]
			}
			if n < len(b.lambda[i]) {
				rhs += b.lambda[i][n]
			}
			rhs -= 0.5 * fac * mu * KappaJ(b.byYear[i], b.plan.Household.CurrentYear, domain.AccountTaxable, n)
		}

		for t := 0; t < b.im.NT; t++ {
			coeffs[b.im.IxF(t, n)] += b.ts.BracketRates[t][n]
		}

		b.m.AddFX(rowName("cashflow", n), coeffs, rhs)
	}
}

// addIncomeProfileShape keeps year-over-year spending tracking the
// spending profile's shape within a caller-chosen slack band.
func (b *LPBuilder) addIncomeProfileShape() {
	nn := b.im.NN
	lambdha := f64(b.plan.Options.SpendingSlackPercent) / 100
	spLo := 1 - lambdha
	spHi := 1 + lambdha

	for n := 1; n < nn; n++ {
		lo := map[int]float64{b.im.IxG(0): spLo * b.xi[n], b.im.IxG(n): -b.xi[0]}
		b.m.AddUP(rowName("profile_lo", n), lo, 0)

		hi := map[int]float64{b.im.IxG(0): spHi * b.xi[n], b.im.IxG(n): -b.xi[0]}
		b.m.AddLO(rowName("profile_hi", n), hi, 0)
	}
}

// addTaxableOrdinaryIncome ties the standard-deduction/bracket-fill
// variables to the year's actual taxable ordinary income.
func (b *LPBuilder) addTaxableOrdinaryIncome() {
	nn := b.im.NN

	for n := 0; n < nn; n++ {
		coeffs := map[int]float64{b.im.IxE(n): 1}
		var rhs float64

		for i := range b.plan.Household.Individuals {
			coeffs[b.im.IxW(i, domain.AccountDeferred, n)] -= 1
			coeffs[b.im.IxX(i, n)] -= 1

			var fak float64
			for k := 1; k < domain.NumAssetClasses; k++ {
				fak += b.tau[k][n] * b.alpha[i][domain.AccountTaxable][n][k]
			}
			coeffs[b.im.IxB(i, domain.AccountTaxable, n)] -= fak
			coeffs[b.im.IxW(i, domain.AccountTaxable, n)] += fak
			coeffs[b.im.IxD(i, n)] -= fak
			rhs += 0.5 * fak * KappaJ(b.byYear[i], b.plan.Household.CurrentYear, domain.AccountTaxable, n)

			if n < len(b.omega[i]) {
				rhs += b.omega[i][n]
			}
			if n < len(b.zeta[i]) {
				rhs += 0.85 * b.zeta[i][n]
			}
			if n < len(b.pen[i]) {
				rhs += b.pen[i][n]
			}
		}

		for t := 0; t < b.im.NT; t++ {
			coeffs[b.im.IxF(t, n)] += 1
		}

		if n < len(b.plan.FixedAssets.Ordinary) {
			rhs += f64(b.plan.FixedAssets.Ordinary[n])
		}

		b.m.AddFX(rowName("ordincome", n), coeffs, rhs)
	}
}

// addObjectiveConstraint pins the objective's non-maximized side: for
// max-spending it fixes the terminal bequest target (a zero Bequest is
// treated as $1); for max-bequest it fixes net spending.
func (b *LPBuilder) addObjectiveConstraint() {
	nn := b.im.NN
	units := f64(b.plan.Options.Units)
	if units == 0 {
		units = 1
	}

	switch b.plan.Objective {
	case domain.ObjectiveMaxSpending:
		bequest := f64(b.plan.Options.Bequest)
		if bequest == 0 {
			bequest = 1
		}
		nu := f64(b.plan.Household.HeirsTaxRate)
		coeffs := map[int]float64{}
		for i := range b.plan.Household.Individuals {
			coeffs[b.im.IxB(i, domain.AccountTaxable, nn)] += 1
			coeffs[b.im.IxB(i, domain.AccountDeferred, nn)] += 1 - nu
			coeffs[b.im.IxB(i, domain.AccountTaxFree, nn)] += 1
		}
		rhs := bequest * units * b.gamma[nn]
		rhs += f64(b.plan.FixedAssets.ResidualDebt)
		b.m.AddFX("bequest_target", coeffs, rhs)

	case domain.ObjectiveMaxBequest:
		spending := f64(b.plan.Options.NetSpending) * units
		b.m.SetBounds(b.im.IxG(0), spending, spending)
	}
}

// addXORExclusions forbids simultaneous surplus-and-withdrawal and
// conversion-and-withdrawal combinations using caller-enabled big-M
// exclusion binaries.
func (b *LPBuilder) addXORExclusions() {
	bigM := f64(b.plan.Options.BigM)
	nn := b.im.NN

	for i := range b.plan.Household.Individuals {
		h := b.horizon(i)
		for n := 0; n < nn; n++ {
			if n >= h {
				b.m.SetBounds(b.im.IxZX(i, n, 0), 0, 0)
				b.m.SetBounds(b.im.IxZX(i, n, 1), 0, 0)
				continue
			}
			b.m.SetBinary(b.im.IxZX(i, n, 0))
			b.m.SetBinary(b.im.IxZX(i, n, 1))

			b.m.AddRA(rowName("xor_deposit", i, n), map[int]float64{
				b.im.IxZX(i, n, 0): bigM, b.im.IxS(n): -1,
			}, 0, bigM)
			b.m.AddRA(rowName("xor_withdraw", i, n), map[int]float64{
				b.im.IxZX(i, n, 0): bigM,
				b.im.IxW(i, domain.AccountTaxable, n): 1,
				b.im.IxW(i, domain.AccountTaxFree, n): 1,
			}, 0, bigM)

			b.m.AddRA(rowName("xor_convert", i, n), map[int]float64{
				b.im.IxZX(i, n, 1): bigM, b.im.IxX(i, n): -1,
			}, 0, bigM)
			b.m.AddRA(rowName("xor_rothwd", i, n), map[int]float64{
				b.im.IxZX(i, n, 1): bigM,
				b.im.IxW(i, domain.AccountTaxFree, n): 1,
			}, 0, bigM)
		}
	}
}

// addMedicareCostFixed zeros m_n entirely (Medicare mode "none") or pins
// it to the outer loop's feedback-supplied cost (mode "loop", recomputed
// each iteration from the previous solve's lagged MAGI via MediCosts).
func (b *LPBuilder) addMedicareCostFixed() {
	nn := b.im.NN
	for n := 0; n < nn; n++ {
		if n < b.ts.NMedicare {
			b.m.SetBounds(b.im.IxM(n), 0, 0)
			continue
		}
		if b.plan.Options.Medicare == domain.MedicareLoop {
			cost := b.feedback.MedicareLoop[n]
			b.m.SetBounds(b.im.IxM(n), cost, cost)
		} else {
			b.m.SetBounds(b.im.IxM(n), 0, 0)
		}
	}
}

// addMedicareTierSelection selects one IRMAA tier per Medicare year using
// binary selector variables compared against the two-years-prior AGI via
// big-M indicator rows, then wires m_n to the selected tier's cost
//. The AGI term is expressed over the actual year n-2
// decision variables (withdrawals, conversions, taxable balance/deposit)
// whenever n-2 falls within the plan; for the earliest Medicare years,
// where n-2 precedes plan start, the caller-supplied PreviousMAGIs
// constants stand in instead.
func (b *LPBuilder) addMedicareTierSelection() {
	bigM := f64(b.plan.Options.BigM)
	nn := b.im.NN
	nm := b.ts.NMedicare
	nq := b.im.NQ

	for n := 0; n < nm; n++ {
		b.m.SetBounds(b.im.IxM(n), 0, 0)
	}

	for nn2 := 0; nn2 < b.im.NMedicareYears; nn2++ {
		n := nm + nn2
		if n >= nn {
			continue
		}
		thr := b.ts.MedicareThresholds[n]
		srcN := n - 2

		agiVars := map[int]float64{}
		var agiConst float64
		if srcN >= 0 && srcN < nn {
			for i := range b.plan.Household.Individuals {
				agiVars[b.im.IxW(i, domain.AccountDeferred, srcN)] += 1
				agiVars[b.im.IxX(i, srcN)] += 1
				af := b.afac(i, srcN)
				// bfac strips the stock gain already realized at last
				// year's rate out of the withdrawal term, so it is not
				// counted twice against the tier threshold.
				bf := b.alpha[i][domain.AccountTaxable][srcN][domain.AssetStocks] * b.tau0prev(srcN)
				agiVars[b.im.IxB(i, domain.AccountTaxable, srcN)] += af
				agiVars[b.im.IxD(i, srcN)] += af
				agiVars[b.im.IxW(i, domain.AccountTaxable, srcN)] += af - bf

				if srcN < len(b.omega[i]) {
					agiConst += b.omega[i][srcN]
				}
				if srcN < len(b.zeta[i]) {
					agiConst += b.feedback.Psi[srcN] * b.zeta[i][srcN]
				}
				if srcN < len(b.pen[i]) {
					agiConst += b.pen[i][srcN]
				}
				agiConst += 0.5 * af * KappaJ(b.byYear[i], b.plan.Household.CurrentYear, domain.AccountTaxable, srcN)
			}
		} else if srcN == -1 {
			agiConst = f64(b.plan.Options.PreviousMAGIs[1])
		} else {
			agiConst = f64(b.plan.Options.PreviousMAGIs[0])
		}

		for q := 0; q < nq-1; q++ {
			b.m.SetBinary(b.im.IxZM(nn2, q))
			l := thr[q]

			hi := map[int]float64{b.im.IxZM(nn2, q): bigM}
			for idx, c := range agiVars {
				hi[idx] -= c
			}
			b.m.AddLO(rowName("medtier_hi", nn2, q), hi, agiConst-l)

			lo := map[int]float64{b.im.IxZM(nn2, q): -bigM}
			for idx, c := range agiVars {
				lo[idx] += c
			}
			b.m.AddLO(rowName("medtier_lo", nn2, q), lo, l-bigM-agiConst)
		}

		coeffs := map[int]float64{b.im.IxM(n): 1}
		costs := b.ts.MedicareCosts[n]
		for q := 0; q < nq-1; q++ {
			coeffs[b.im.IxZM(nn2, q)] = -(costs[q+1] - costs[0])
		}
		b.m.AddFX(rowName("medcost", n), coeffs, costs[0])
	}
}

// setObjectiveVector fills in c so the bundled solver (which always
// minimizes) maximizes net spending or the terminal bequest, per the
// chosen Objective.
func (b *LPBuilder) setObjectiveVector() {
	nn := b.im.NN
	switch b.plan.Objective {
	case domain.ObjectiveMaxSpending:
		for n := 0; n < nn; n++ {
			gn := b.gamma[n]
			if gn == 0 {
				gn = 1
			}
			b.m.Obj[b.im.IxG(n)] = -1 / gn
		}
	case domain.ObjectiveMaxBequest:
		nu := f64(b.plan.Household.HeirsTaxRate)
		for i := range b.plan.Household.Individuals {
			b.m.Obj[b.im.IxB(i, domain.AccountTaxable, nn)] = -1
			b.m.Obj[b.im.IxB(i, domain.AccountDeferred, nn)] = -(1 - nu)
			b.m.Obj[b.im.IxB(i, domain.AccountTaxFree, nn)] = -1
		}
	}
}
