package calculation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/mdlacasse/owlgo/internal/solver"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTaxParams returns a realistic 2026-regime tax schedule (standard
// deduction, brackets, NIIT, LTCG, Medicare/RMD tables), good enough that
// a trivial few-hundred or few-thousand dollar annual withdrawal never
// spills past the standard deduction. YearOBBBA/BonusExpirationYear are
// left at 0 so the regime never switches mid-plan.
func testTaxParams() domain.TaxScheduleParams {
	regime := domain.TaxRegime{
		StandardDeduction: decimal.NewFromInt(16100),
		BracketWidths: [domain.NumTaxBrackets]decimal.Decimal{
			decimal.NewFromInt(12400), decimal.NewFromInt(38000), decimal.NewFromInt(55300),
			decimal.NewFromInt(96075), decimal.NewFromInt(54450), decimal.NewFromInt(384375),
			decimal.NewFromInt(9359399),
		},
		BracketRates: [domain.NumTaxBrackets]decimal.Decimal{
			decimal.NewFromFloat(0.10), decimal.NewFromFloat(0.12), decimal.NewFromFloat(0.22),
			decimal.NewFromFloat(0.24), decimal.NewFromFloat(0.32), decimal.NewFromFloat(0.35),
			decimal.NewFromFloat(0.37),
		},
	}
	return domain.TaxScheduleParams{
		CurrentRegime:        regime,
		PostExpirationRegime: regime,
		RMDStartAge:          73,
		RMDTable:             []decimal.Decimal{decimal.NewFromFloat(27.4), decimal.NewFromFloat(26.5)},
		Medicare: domain.MedicareScheduleParams{
			BasePremiumMonthly: decimal.NewFromInt(185),
			TierThresholds: [domain.NumMedicareTiers - 1]decimal.Decimal{
				decimal.NewFromInt(106000), decimal.NewFromInt(133000), decimal.NewFromInt(167000),
				decimal.NewFromInt(200000), decimal.NewFromInt(500000),
			},
			TierMonthlyCosts: [domain.NumMedicareTiers]decimal.Decimal{
				decimal.NewFromInt(185), decimal.NewFromInt(259), decimal.NewFromInt(370),
				decimal.NewFromInt(481), decimal.NewFromInt(591), decimal.NewFromInt(645),
			},
		},
		NIIT: domain.NIITParams{
			Rate:             decimal.NewFromFloat(0.038),
			ThresholdSingle:  decimal.NewFromInt(200000),
			ThresholdMarried: decimal.NewFromInt(250000),
		},
		LTCG: domain.LTCGParams{
			ThresholdsSingle:  [2]decimal.Decimal{decimal.NewFromInt(49450), decimal.NewFromInt(545500)},
			ThresholdsMarried: [2]decimal.Decimal{decimal.NewFromInt(98900), decimal.NewFromInt(613700)},
			Rates:             [3]decimal.Decimal{decimal.Zero, decimal.NewFromFloat(0.15), decimal.NewFromFloat(0.20)},
		},
	}
}

// annuityTestPlan builds a single-individual plan with a single nonzero
// starting balance entirely allocated to one asset class at a constant
// rate, the shape the closed-form annuity checks below need:
// no wages, pension, Social Security, Roth activity or fixed assets, so
// the solved spending path is a pure balance-draw-down annuity.
func annuityTestPlan(balances domain.Balances, assetClass int, rate float64, lifeExpectancy int) *domain.Plan {
	plan := &domain.Plan{}
	plan.Household.CurrentYear = 2026
	plan.Household.StartDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	plan.Household.Individuals = []domain.Individual{
		{BirthDate: time.Date(1965, 1, 1, 0, 0, 0, 0, time.UTC), LifeExpectancyYrs: lifeExpectancy},
	}

	plan.Balances = []domain.Balances{balances}
	plan.Contributions = [][]domain.ContributionRow{nil}
	plan.BigTicketItems = [][]decimal.Decimal{nil}

	var bounds domain.AllocationBounds
	bounds.Start[assetClass] = decimal.NewFromInt(1)
	bounds.End[assetClass] = decimal.NewFromInt(1)
	plan.Allocations = [][domain.NumAccountTypes]domain.AllocationBounds{
		{bounds, bounds, bounds},
	}

	plan.Profile = domain.ProfileFlat
	plan.Objective = domain.ObjectiveMaxSpending
	// Bequest is left at a negligible nonzero value rather than the exact
	// zero value asked for in the scenario: the zero value of
	// Options.Bequest doubles as "caller didn't set a target" and gets
	// replaced with $1 (see addObjectiveConstraint), so a literal zero
	// can't be distinguished from "unset" through this field. 1e-6 pins
	// the terminal balance arbitrarily close to the scenario's $0 target
	// without tripping that substitution or brushing against the
	// simplex's own feasibility tolerance.
	plan.Options.Bequest = decimal.NewFromFloat(1e-6)
	plan.Options.Medicare = domain.MedicareNone

	plan.RateParams.Method = domain.RateUser
	plan.RateParams.UserValues[assetClass] = decimal.NewFromFloat(rate)

	plan.TaxParams = testTaxParams()

	return plan
}

// solveAnnuityPlan runs the full LPBuilder -> solver -> OuterSCLoop ->
// ResultAggregator pipeline, the path a real solve takes.
func solveAnnuityPlan(t *testing.T, plan *domain.Plan) (domain.SolvedPlan, *SCLoopResult) {
	t.Helper()

	rm, err := NewRateModel(plan.RateParams, nil)
	require.NoError(t, err)

	nn := plan.Horizon()
	inflation, err := rm.GenSeries(nn)
	require.NoError(t, err)
	gamma := InflationMultiplier(inflation[domain.AssetCashInfl])

	adapter := solver.NewBranchAndBoundSolver()
	sc, err := RunOuterLoop(context.Background(), plan, rm, adapter, gamma)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, sc.Solved.Status, sc.Solved.Message)

	sp := ResultAggregator{}.Aggregate(sc, domain.CaseSuccessful, "test-run", "test-case")
	return sp, sc
}

// terminalBalance sums individual 0's ending balance across all three
// account types, the bequest left behind by a maxSpending
// solve (ResultAggregator only populates sp.Bequest for maxBequest solves).
func terminalBalance(sc *SCLoopResult) float64 {
	im := sc.Builder.im
	x := sc.Solved.X
	nn := im.NN
	var v float64
	for j := 0; j < domain.NumAccountTypes; j++ {
		v += x[im.IxB(0, j, nn)]
	}
	return v
}

// TestEndToEndS1SimpleTaxDeferredAnnuity: a single
// individual draws down a $3,000 tax-deferred balance at a zero rate over
// a 10-year horizon, fully absorbed by the standard deduction. The
// closed-form annuity is trivial: $300/year, zero terminal balance.
func TestEndToEndS1SimpleTaxDeferredAnnuity(t *testing.T) {
	plan := annuityTestPlan(domain.Balances{TaxDeferred: decimal.NewFromInt(3000)}, domain.AssetCashInfl, 0, 70)
	require.Equal(t, 10, plan.Horizon())

	sp, sc := solveAnnuityPlan(t, plan)

	basis, _ := sp.Basis.Float64()
	assert.InDelta(t, 300.0, basis, 0.5)
	assert.InDelta(t, 0.0, terminalBalance(sc), 1e-4)
}

// TestEndToEndS3AnnuityFormula: a single individual
// draws down a $120,000 tax-free balance allocated entirely to T-notes at
// a constant 4% over a 12-year horizon. The expected annual spending is
// the start-of-year-withdrawal annuity formula, evaluated here rather
// than hardcoded so the test tracks the formula exactly.
func TestEndToEndS3AnnuityFormula(t *testing.T) {
	const principal = 120000.0
	const rate = 0.04
	const horizon = 12

	plan := annuityTestPlan(domain.Balances{TaxFree: decimal.NewFromInt(int64(principal))}, domain.AssetTNotes, rate, 72)
	require.Equal(t, horizon, plan.Horizon())

	expectedBasis := principal * rate / ((1 - math.Pow(1+rate, -horizon)) * (1 + rate))

	sp, sc := solveAnnuityPlan(t, plan)

	basis, _ := sp.Basis.Float64()
	assert.InDelta(t, expectedBasis, basis, 1.0)
	assert.InDelta(t, 0.0, terminalBalance(sc), 1e-3)
}

// findRow returns the named row from a built model, or nil.
func findRow(rows []solver.Row, name string) *solver.Row {
	for i := range rows {
		if rows[i].Name == name {
			return &rows[i]
		}
	}
	return nil
}

// TestAddRothMaturationHistoricalBranchIncludesKappaJ is a regression test
// for the yr<0 (historical, pre-plan) branch of the five-year Roth
// maturation row: it must include both the historical contribution term
// (KappaJ, at coefficient cg-1) and the historical conversion term
// (XHat, at coefficient cg). An earlier version of this code dropped
// the KappaJ term and used cg-1 (instead of cg) for XHat.
func TestAddRothMaturationHistoricalBranchIncludesKappaJ(t *testing.T) {
	plan := annuityTestPlan(domain.Balances{TaxFree: decimal.NewFromInt(50000)}, domain.AssetCashInfl, 0, 70)

	// currentYear-3 is one of the five trailing historical years; put a
	// Roth conversion and a Roth IRA contribution there so both the XHat
	// and KappaJ(..., AccountTaxFree, ...) terms are nonzero only for
	// dn=3 (yr=-3), isolating that single term in the row's RHS.
	plan.Contributions[0] = []domain.ContributionRow{
		{Year: plan.Household.CurrentYear - 3, RothConversion: decimal.NewFromInt(1000), ContribRothIRA: decimal.NewFromInt(500)},
	}

	rm, err := NewRateModel(plan.RateParams, nil)
	require.NoError(t, err)
	nn := plan.Horizon()
	inflation, err := rm.GenSeries(nn)
	require.NoError(t, err)
	gamma := InflationMultiplier(inflation[domain.AssetCashInfl])

	b, err := NewLPBuilder(plan, rm, gamma, nil)
	require.NoError(t, err)
	m := b.BuildModel()

	row := findRow(m.Rows, rowName("rothmature", 0, 0))
	require.NotNil(t, row)

	cg := b.cgainsFactor(0, 3) // dn=3 -> yr=-3, all-historical compounding at oldTau1
	wantRHS := (cg-1)*500 + cg*1000

	assert.InDelta(t, wantRHS, row.Lo, 1e-9)
	assert.Equal(t, solver.RowLO, row.Kind)
	assert.Equal(t, 1.0, row.Coeffs[b.im.IxB(0, domain.AccountTaxFree, 0)])
	assert.Equal(t, -1.0, row.Coeffs[b.im.IxW(0, domain.AccountTaxFree, 0)])
	// n=0 means every dn in [1,5] looks back into history (yr<0), so the
	// yr>=0 branch never runs and no IxX coefficient is added at all.
	assert.Len(t, row.Coeffs, 2)
}

// TestAddRMDFloorsDeferredWithdrawal checks the RMD row directly: it must
// require w_{i,deferred,n} - rho_n*b_{i,deferred,n} >= 0. The skip for an
// individual with no starting deferred balance is checked by
// TestAddRMDSkippedWhenNoStartingDeferredBalance.
func TestAddRMDFloorsDeferredWithdrawal(t *testing.T) {
	plan := annuityTestPlan(domain.Balances{TaxDeferred: decimal.NewFromInt(500000)}, domain.AssetCashInfl, 0, 90)
	// Push the individual's age past the RMD start age within the horizon:
	// birth year 1950, current year 2026 -> age 76 at n=0, already >= 73.
	plan.Household.Individuals[0].BirthDate = time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)

	rm, err := NewRateModel(plan.RateParams, nil)
	require.NoError(t, err)
	nn := plan.Horizon()
	inflation, err := rm.GenSeries(nn)
	require.NoError(t, err)
	gamma := InflationMultiplier(inflation[domain.AssetCashInfl])

	b, err := NewLPBuilder(plan, rm, gamma, nil)
	require.NoError(t, err)
	m := b.BuildModel()

	row := findRow(m.Rows, rowName("rmd", 0, 0))
	require.NotNil(t, row)
	assert.Equal(t, solver.RowLO, row.Kind)
	assert.Equal(t, 0.0, row.Lo)
	assert.Equal(t, 1.0, row.Coeffs[b.im.IxW(0, domain.AccountDeferred, 0)])
	assert.Equal(t, -b.ts.RMDFraction[0][0], row.Coeffs[b.im.IxB(0, domain.AccountDeferred, 0)])
	assert.NotZero(t, b.ts.RMDFraction[0][0])
}

// TestAddRMDSkippedWhenNoStartingDeferredBalance confirms the row family
// is omitted entirely (not just zero-bounded) for an all-cash account.
func TestAddRMDSkippedWhenNoStartingDeferredBalance(t *testing.T) {
	plan := annuityTestPlan(domain.Balances{TaxFree: decimal.NewFromInt(500000)}, domain.AssetCashInfl, 0, 90)
	plan.Household.Individuals[0].BirthDate = time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)

	rm, err := NewRateModel(plan.RateParams, nil)
	require.NoError(t, err)
	nn := plan.Horizon()
	inflation, err := rm.GenSeries(nn)
	require.NoError(t, err)
	gamma := InflationMultiplier(inflation[domain.AssetCashInfl])

	b, err := NewLPBuilder(plan, rm, gamma, nil)
	require.NoError(t, err)
	m := b.BuildModel()

	assert.Nil(t, findRow(m.Rows, rowName("rmd", 0, 0)))
}

// TestEndToEndS4StandardDeductionAbsorbsIncome: a
// $40,000 tax-deferred balance drawn down over 10 years at zero rates.
// The $4,000/year withdrawal stays under the standard deduction, so e_n
// absorbs it all and no bracket fills.
func TestEndToEndS4StandardDeductionAbsorbsIncome(t *testing.T) {
	plan := annuityTestPlan(domain.Balances{TaxDeferred: decimal.NewFromInt(40000)}, domain.AssetCashInfl, 0, 70)
	require.Equal(t, 10, plan.Horizon())

	sp, sc := solveAnnuityPlan(t, plan)

	basis, _ := sp.Basis.Float64()
	assert.InDelta(t, 4000.0, basis, 0.5)
	assert.InDelta(t, 0.0, terminalBalance(sc), 1e-3)
	for n := range sp.OrdinaryTax {
		tax, _ := sp.OrdinaryTax[n].Float64()
		assert.InDelta(t, 0.0, tax, 1e-6, "year %d should owe no ordinary tax", n)
	}
}

// TestEndToEndS2TaxFreeGrowth: maxBequest with
// netSpending pinned to zero leaves the $120,000 tax-free balance
// compounding at 4% untouched for 12 years.
func TestEndToEndS2TaxFreeGrowth(t *testing.T) {
	const principal = 120000.0
	const rate = 0.04
	const horizon = 12

	plan := annuityTestPlan(domain.Balances{TaxFree: decimal.NewFromInt(int64(principal))}, domain.AssetTNotes, rate, 72)
	require.Equal(t, horizon, plan.Horizon())
	plan.Objective = domain.ObjectiveMaxBequest
	plan.Options.Bequest = decimal.Zero
	plan.Options.NetSpending = decimal.Zero

	sp, _ := solveAnnuityPlan(t, plan)

	bequest, _ := sp.Bequest.Float64()
	assert.InDelta(t, principal*math.Pow(1+rate, horizon), bequest, 1.0)
	for n := range sp.NetSpending {
		g, _ := sp.NetSpending[n].Float64()
		assert.InDelta(t, 0.0, g, 1e-6, "year %d spending should stay pinned at zero", n)
	}
}

// TestEndToEndS5BeneficiaryTransfer: a married
// couple with 12- and 10-year horizons, equal tax-free balances, full
// spousal transfer (phi=1) and survivor fraction 1. With both accounts
// on the same 4% T-note allocation, the household is economically one
// combined pot drawn down over the longer horizon, so total spending
// tracks the combined-balance annuity.
func TestEndToEndS5BeneficiaryTransfer(t *testing.T) {
	const each = 120000.0
	const rate = 0.04
	const horizon = 12

	plan := &domain.Plan{}
	plan.Household.CurrentYear = 2026
	plan.Household.StartDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	plan.Household.Individuals = []domain.Individual{
		{Name: "A", BirthDate: time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), LifeExpectancyYrs: 77},
		{Name: "B", BirthDate: time.Date(1962, 1, 1, 0, 0, 0, 0, time.UTC), LifeExpectancyYrs: 73},
	}
	plan.Household.SurvivorSpendingFraction = decimal.NewFromInt(1)
	plan.Household.SurplusSplitEta = decimal.NewFromFloat(0.5)
	for j := 0; j < domain.NumAccountTypes; j++ {
		plan.Household.BeneficiaryTransferFraction[j] = decimal.NewFromInt(1)
	}

	plan.Balances = []domain.Balances{
		{TaxFree: decimal.NewFromInt(int64(each))},
		{TaxFree: decimal.NewFromInt(int64(each))},
	}
	plan.Contributions = [][]domain.ContributionRow{nil, nil}
	plan.BigTicketItems = [][]decimal.Decimal{nil, nil}

	var bounds domain.AllocationBounds
	bounds.Start[domain.AssetTNotes] = decimal.NewFromInt(1)
	bounds.End[domain.AssetTNotes] = decimal.NewFromInt(1)
	plan.Allocations = [][domain.NumAccountTypes]domain.AllocationBounds{
		{bounds, bounds, bounds},
		{bounds, bounds, bounds},
	}

	plan.Profile = domain.ProfileFlat
	plan.Objective = domain.ObjectiveMaxSpending
	plan.Options.Bequest = decimal.NewFromFloat(1e-6)
	plan.Options.Medicare = domain.MedicareNone

	plan.RateParams.Method = domain.RateUser
	plan.RateParams.UserValues[domain.AssetTNotes] = decimal.NewFromFloat(rate)

	plan.TaxParams = testTaxParams()

	require.Equal(t, horizon, plan.Horizon())
	nd, id, is := plan.DeathYearIndex()
	require.Equal(t, 10, nd)
	require.Equal(t, 1, id)
	require.Equal(t, 0, is)

	sp, sc := solveAnnuityPlan(t, plan)

	expectedBasis := 2 * each * rate / ((1 - math.Pow(1+rate, -horizon)) * (1 + rate))
	basis, _ := sp.Basis.Float64()
	assert.InDelta(t, expectedBasis, basis, expectedBasis*0.01)

	// Full spousal transfer: nothing leaks to non-spousal heirs at n_d.
	partial, _ := sp.PartialEstate.Float64()
	assert.InDelta(t, 0.0, partial, 1e-6)

	x := sc.Solved.X
	im := sc.Builder.im
	var terminal float64
	for i := 0; i < 2; i++ {
		for j := 0; j < domain.NumAccountTypes; j++ {
			terminal += x[im.IxB(i, j, im.NN)]
		}
	}
	assert.InDelta(t, 0.0, terminal, 1e-3)

	// The deceased's withdrawals are pinned to zero from n_d on.
	for n := nd; n < im.NN; n++ {
		for j := 0; j < domain.NumAccountTypes; j++ {
			assert.InDelta(t, 0.0, x[im.IxW(id, j, n)], 1e-9)
		}
	}
}
