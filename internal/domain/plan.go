// Package domain holds the plain data types the MILP core operates on:
// the caller-supplied Plan inputs, the derived per-year schedules, and the
// read-only SolvedPlan snapshot produced by a solve. Nothing in this
// package touches a solver or a constraint matrix; it is pure data.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Number of asset classes, account types, tax brackets and Medicare IRMAA
// tiers. These are fixed by the regulatory/financial domain, not by any
// particular plan, so they are constants rather than Plan fields.
const (
	NumAssetClasses = 4 // stocks, corporate Baa bonds, T-notes, inflation-indexed/cash
	NumAccountTypes = 3 // taxable, tax-deferred, tax-free
	NumTaxBrackets  = 7
	NumMedicareTiers = 6

	AssetStocks      = 0
	AssetCorpBonds   = 1
	AssetTNotes      = 2
	AssetCashInfl    = 3 // doubles as the inflation index

	AccountTaxable    = 0
	AccountDeferred   = 1
	AccountTaxFree    = 2
)

// Individual is one household member's demographic and benefit inputs.
type Individual struct {
	Name               string
	BirthDate          time.Time
	LifeExpectancyYrs  int // expected age at death, per caller's mortality assumption

	PensionMonthly      decimal.Decimal
	PensionClaimAge     int
	PensionIndexed       bool // whether pension is inflation-indexed

	SSBenefitPIA        decimal.Decimal // primary insurance amount (monthly, at FRA)
	SSClaimAge          int             // 62..70; ignored if SSMonthlyOverride is set
	SSMonthlyOverride   *decimal.Decimal // precomputed monthly benefit, bypasses claim-age arithmetic
}

// Household is the full set of Plan demographic/benefit inputs.
type Household struct {
	Individuals []Individual // length 1 (single) or 2 (married)
	StartDate   time.Time    // plan start date; year may be truncated (yearFracLeft)
	CurrentYear int          // calendar year corresponding to n=0

	// SurvivorSpendingFraction (chi) scales the spending profile after the
	// first death in a two-individual household.
	SurvivorSpendingFraction decimal.Decimal

	// BeneficiaryTransferFraction (phi), one entry per account type,
	// is the fraction of the deceased's balance the survivor receives.
	BeneficiaryTransferFraction [NumAccountTypes]decimal.Decimal

	// SurplusSplitEta (eta) divides cash-flow surplus between spouses
	// before the first death: individual 0 gets (1-eta)*surplus,
	// individual 1 gets eta*surplus. Zero for single households.
	SurplusSplitEta decimal.Decimal

	// HeirsTaxRate (nu) is the effective tax rate heirs pay on inherited
	// tax-deferred balances, applied to the bequest objective/constraint.
	HeirsTaxRate decimal.Decimal

	// DividendYield (mu) is the assumed annual dividend yield on equity
	// holdings, used to approximate embedded tax drag on unrealized gains.
	DividendYield decimal.Decimal
}

// Balances holds the three starting account balances for one individual.
type Balances struct {
	Taxable    decimal.Decimal
	TaxDeferred decimal.Decimal
	TaxFree    decimal.Decimal
}

// ContributionRow is one year's entry in an individual's contribution
// table. Rows are expected over currentYear-5..currentYear+horizon-1;
// missing years are zero-filled by the loader.
type ContributionRow struct {
	Year              int
	AnticipatedWages  decimal.Decimal
	OtherIncome       decimal.Decimal
	TaxableContrib    decimal.Decimal
	Contrib401k       decimal.Decimal
	ContribRoth401k   decimal.Decimal
	ContribIRA        decimal.Decimal
	ContribRothIRA    decimal.Decimal
	RothConversion    decimal.Decimal
	BigTicketItems    decimal.Decimal // sign-bearing
}

// AllocationBounds is one individual/account's start and end allocation
// vector (percent of that account, one entry per asset class, summing to 1).
type AllocationBounds struct {
	Start [NumAssetClasses]decimal.Decimal
	End   [NumAssetClasses]decimal.Decimal
	// Method selects linear or tanh (S-curve) interpolation between Start and End.
	Method AllocationMethod
	// Center (tanh only) is the year offset of the S-curve's inflection
	// point; defaults to 15 when unset.
	Center decimal.Decimal
	// Width (tanh only) controls how sharply the curve transitions; floored at 1e-4.
	Width decimal.Decimal
}

type AllocationMethod int

const (
	AllocationLinear AllocationMethod = iota
	AllocationTanh
)

// ProfileKind selects the spending-profile shape.
type ProfileKind int

const (
	ProfileFlat ProfileKind = iota
	ProfileSmile
)

// SmileParams parametrizes the smile profile curve.
type SmileParams struct {
	A, B decimal.Decimal // cosine and linear-drift coefficients
	S    decimal.Decimal // period, in years
	C    int             // first year the smile shape applies; flat before c
}

// Objective selects which quantity the MILP maximizes.
type Objective int

const (
	ObjectiveMaxSpending Objective = iota
	ObjectiveMaxBequest
)

// MedicareMode controls how Medicare/IRMAA premiums enter the model.
type MedicareMode int

const (
	MedicareNone MedicareMode = iota
	MedicareLoop              // recomputed in the outer SC loop from MAGI
	MedicareOptimize          // modeled with binary tier-selector variables
)

// RothConversionControl selects how Roth conversion variables are constrained.
type RothConversionControl int

const (
	RothConversionFree RothConversionControl = iota
	RothConversionPinned                      // pinned to caller-supplied x-hat
	RothConversionCapped                      // capped at MaxRothConversion * Units
	RothConversionZeroFor                      // zeroed for a named individual
	RothConversionDelayedStart                 // zeroed before StartRothConversionsYear
)

// Options bundles all user-tunable solve knobs.
type Options struct {
	RothControl             RothConversionControl
	MaxRothConversion       decimal.Decimal
	NoRothConversionsFor    string // individual name, when RothControl == RothConversionZeroFor
	StartRothConversionsYear int

	NetSpending decimal.Decimal // required for ObjectiveMaxBequest
	Bequest     decimal.Decimal // required terminal estate for ObjectiveMaxSpending; defaults to 1 (unconstrained)

	Medicare      MedicareMode
	PreviousMAGIs [2]decimal.Decimal // MAGI in the two years before plan start

	WithSCLoop bool

	SpendingSlackPercent decimal.Decimal // 0..50, the lambda slack as a percent
	XORConstraints       bool
	BigM                 decimal.Decimal
	OppCostXPercent      decimal.Decimal // opportunity-cost bias, percent

	Solver string
	Units  decimal.Decimal // scaling factor applied to NetSpending/Bequest/MaxRothConversion

	MaxTime time.Duration // wall-time cap per solve
}

// FixedAssetStreams are the three household-level yearly cash-flow
// streams derived (externally, outside the core) from fixed-asset
// dispositions, plus the scalar end-of-plan adjustments.
type FixedAssetStreams struct {
	TaxFree       []decimal.Decimal
	Ordinary      []decimal.Decimal
	CapitalGains  []decimal.Decimal
	DebtPayments  []decimal.Decimal
	ResidualDebt           decimal.Decimal
	BequestValue           decimal.Decimal // value of assets whose disposition year falls beyond the plan
}

// Plan is the complete, immutable set of inputs to a solve. Nothing in
// the solve path mutates a Plan; HistoricalSweep/MCSweep clone it before
// regenerating rates.
type Plan struct {
	Household     Household
	Balances      []Balances         // one per individual
	Contributions [][]ContributionRow // one slice per individual; includes 5 trailing historical years

	BigTicketItems [][]decimal.Decimal // [individual][year], sign-bearing; also folded into ContributionRow

	Allocations [][NumAccountTypes]AllocationBounds // one entry per individual

	Profile      ProfileKind
	SmileParams  SmileParams

	RateParams RateParams

	FixedAssets FixedAssetStreams

	Objective Objective
	Options   Options

	TaxParams TaxScheduleParams
}

// Clone deep-copies a Plan so sweeps can mutate the rate parameters of a
// copy without affecting the original (the Plan value is immutable
// through a solve call).
func (p *Plan) Clone() *Plan {
	clone := *p
	clone.Balances = append([]Balances(nil), p.Balances...)

	clone.Contributions = make([][]ContributionRow, len(p.Contributions))
	for i, rows := range p.Contributions {
		clone.Contributions[i] = append([]ContributionRow(nil), rows...)
	}

	clone.BigTicketItems = make([][]decimal.Decimal, len(p.BigTicketItems))
	for i, rows := range p.BigTicketItems {
		clone.BigTicketItems[i] = append([]decimal.Decimal(nil), rows...)
	}

	clone.Allocations = make([][NumAccountTypes]AllocationBounds, len(p.Allocations))
	copy(clone.Allocations, p.Allocations)

	clone.FixedAssets.TaxFree = append([]decimal.Decimal(nil), p.FixedAssets.TaxFree...)
	clone.FixedAssets.Ordinary = append([]decimal.Decimal(nil), p.FixedAssets.Ordinary...)
	clone.FixedAssets.CapitalGains = append([]decimal.Decimal(nil), p.FixedAssets.CapitalGains...)
	clone.FixedAssets.DebtPayments = append([]decimal.Decimal(nil), p.FixedAssets.DebtPayments...)

	return &clone
}

// NumIndividuals returns N_i.
func (p *Plan) NumIndividuals() int { return len(p.Household.Individuals) }

// Horizon computes N_n: the max across individuals of years from
// currentYear through each individual's expected year of death,
// i.e. max(expectancy + yob - currentYear + 1).
func (p *Plan) Horizon() int {
	n := 0
	cy := p.Household.CurrentYear
	for _, ind := range p.Household.Individuals {
		h := ind.LifeExpectancyYrs + ind.BirthDate.Year() - cy + 1
		if h > n {
			n = h
		}
	}
	return n
}

// IndividualHorizon returns individual i's own years-to-death count,
// which may be shorter than the household Horizon() when a married
// couple's life expectancies differ.
func (p *Plan) IndividualHorizon(i int) int {
	ind := p.Household.Individuals[i]
	cy := p.Household.CurrentYear
	return ind.LifeExpectancyYrs + ind.BirthDate.Year() - cy + 1
}

// YearFracLeft is the remaining fraction of the first plan year, from
// StartDate to that year's end.
func (p *Plan) YearFracLeft() decimal.Decimal {
	start := p.Household.StartDate
	yearEnd := time.Date(start.Year(), 12, 31, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(start.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	total := yearEnd.Sub(yearStart).Hours() + 24
	left := yearEnd.Sub(start).Hours() + 24
	return decimal.NewFromFloat(left / total)
}

// DeathYearIndex computes n_d, i_d, i_s: for married
// households with differing horizons, n_d is the year index immediately
// after the first passing; for equal horizons or single households, n_d
// is the sentinel N_n ("never"). Returns (n_d, i_d, i_s); i_d/i_s are -1
// when there is no transfer to model.
func (p *Plan) DeathYearIndex() (nd, id, is int) {
	nN := p.Horizon()
	if p.NumIndividuals() != 2 {
		return nN, -1, -1
	}
	cy := p.Household.CurrentYear
	h0 := p.Household.Individuals[0].LifeExpectancyYrs + p.Household.Individuals[0].BirthDate.Year() - cy + 1
	h1 := p.Household.Individuals[1].LifeExpectancyYrs + p.Household.Individuals[1].BirthDate.Year() - cy + 1
	if h0 == h1 {
		return nN, -1, -1
	}
	if h0 < h1 {
		return h0, 0, 1
	}
	return h1, 1, 0
}
