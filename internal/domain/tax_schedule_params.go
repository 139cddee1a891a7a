package domain

import "github.com/shopspring/decimal"

// TaxScheduleParams carries the caller-configurable knobs TaxSchedule
// needs beyond the Plan's own demographics: the two bracket regimes, the
// year the post-expiration regime takes over, and the separately-expiring
// 65+ bonus deduction. YearOBBBA and BonusExpirationYear are deliberately
// independent fields rather than one derived relationship, since real
// sunset schedules for the two provisions have diverged in practice.
type TaxScheduleParams struct {
	CurrentRegime TaxRegime
	PostExpirationRegime TaxRegime

	// YearOBBBA is the first calendar year the post-expiration regime applies.
	YearOBBBA int

	// BonusExpirationYear is the first calendar year the 65+ bonus
	// deduction no longer applies (independent of YearOBBBA).
	BonusExpirationYear int

	SeniorExtraDeduction decimal.Decimal // additional standard deduction at age >= 65
	Bonus65Amount        decimal.Decimal // the 65+ bonus deduction (pre phase-out)
	Bonus65PhaseOutRate  decimal.Decimal // fraction phased out per $1000 of MAGI above threshold
	Bonus65Threshold     decimal.Decimal // MAGI threshold where phase-out begins

	RMDTable []decimal.Decimal // indexed by age-72; 0 before SECURE-act age
	RMDStartAge int

	Medicare MedicareScheduleParams

	NIIT NIITParams
	LTCG LTCGParams
}

// TaxRegime is one set of ordinary-income bracket rates/widths and a
// standard deduction, before inflation/MAGI adjustment.
type TaxRegime struct {
	StandardDeduction decimal.Decimal
	BracketWidths      [NumTaxBrackets]decimal.Decimal // successive differences of thresholds; every width, the last included, caps its bracket's f_{t,n}
	BracketRates       [NumTaxBrackets]decimal.Decimal
}

// MedicareScheduleParams are the IRMAA tier thresholds/costs before
// inflation scaling, plus the base monthly premium.
type MedicareScheduleParams struct {
	BasePremiumMonthly decimal.Decimal
	TierThresholds     [NumMedicareTiers - 1]decimal.Decimal // MAGI thresholds separating the six tiers
	TierMonthlyCosts   [NumMedicareTiers]decimal.Decimal     // cumulative monthly cost at each tier (cost at tier 0 = base premium)
}

// NIITParams are the Net Investment Income Tax thresholds/rate.
type NIITParams struct {
	Rate               decimal.Decimal
	ThresholdSingle    decimal.Decimal
	ThresholdMarried   decimal.Decimal
}

// LTCGParams are the Long-Term Capital Gains bracket thresholds/rates.
// Thresholds are pre-inflation; the schedule scales them by gamma per
// year, and the married thresholds apply while both spouses are alive.
type LTCGParams struct {
	ThresholdsSingle  [2]decimal.Decimal // 0% -> 15% and 15% -> 20% breakpoints
	ThresholdsMarried [2]decimal.Decimal
	Rates             [3]decimal.Decimal
}
