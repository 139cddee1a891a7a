package calculation

import (
	"math"

	"github.com/mdlacasse/owlgo/internal/domain"
)

// BuildPensionStream returns pi_{i,n}, the nominal annual pension income
// for individual i starting the month they claim it, prorated in the
// first partial year. Indexed pensions are inflation-scaled by gamma at
// the call site (the stream here is pre-gamma, matching zeta's contract).
func BuildPensionStream(plan *domain.Plan) [][]float64 {
	out := make([][]float64, plan.NumIndividuals())
	for i, ind := range plan.Household.Individuals {
		h := plan.IndividualHorizon(i)
		pi := make([]float64, h)
		out[i] = pi

		monthly := f64(ind.PensionMonthly)
		if monthly == 0 {
			continue
		}
		birthMonthFrac := float64(int(ind.BirthDate.Month())-1) / 12
		realAge := float64(ind.PensionClaimAge) + birthMonthFrac
		iAge := math.Floor(realAge)
		fraction := 1 - math.Mod(realAge, 1)
		realN := ind.BirthDate.Year() + int(iAge) - plan.Household.CurrentYear
		ns := realN
		if ns < 0 {
			ns = 0
		}
		for n := ns; n < h; n++ {
			pi[n] = monthly
		}
		if realN >= 0 && ns < h {
			pi[ns] *= fraction
		}
		for n := range pi {
			pi[n] *= 12
		}
	}
	return out
}

// ApplyPensionIndexing scales each indexed individual's pension stream by
// gamma (the cumulative inflation multiplier), in place.
func ApplyPensionIndexing(plan *domain.Plan, pi [][]float64, gamma []float64) {
	for i, ind := range plan.Household.Individuals {
		if !ind.PensionIndexed {
			continue
		}
		for n := range pi[i] {
			pi[i][n] *= gamma[n]
		}
	}
}

// contributionByYear indexes an individual's contribution rows (including
// the trailing historical years) by calendar year for O(1) lookup.
func contributionByYear(rows []domain.ContributionRow) map[int]domain.ContributionRow {
	m := make(map[int]domain.ContributionRow, len(rows))
	for _, r := range rows {
		m[r.Year] = r
	}
	return m
}

// WageAndOtherIncomeStream returns omega_{i,n}, anticipated wages plus
// other taxable income, for n in [0, horizon_i).
func WageAndOtherIncomeStream(plan *domain.Plan, i int) []float64 {
	h := plan.IndividualHorizon(i)
	byYear := contributionByYear(plan.Contributions[i])
	out := make([]float64, h)
	for n := 0; n < h; n++ {
		year := plan.Household.CurrentYear + n
		if row, ok := byYear[year]; ok {
			out[n] = f64(row.AnticipatedWages) + f64(row.OtherIncome)
		}
	}
	return out
}

// BigTicketStream returns Lambda_{i,n}, sign-bearing one-off cash flows,
// for n in [0, horizon_i).
func BigTicketStream(plan *domain.Plan, i int) []float64 {
	h := plan.IndividualHorizon(i)
	byYear := contributionByYear(plan.Contributions[i])
	out := make([]float64, h)
	for n := 0; n < h; n++ {
		year := plan.Household.CurrentYear + n
		if row, ok := byYear[year]; ok {
			out[n] = f64(row.BigTicketItems)
		}
	}
	return out
}

// KappaJ returns kappa_{i,j,n}, the planned contribution to account type j
// in year n (which may be negative, reaching into the 5 trailing
// historical years stored at the tail of the contributions table).
func KappaJ(byYear map[int]domain.ContributionRow, currentYear, j, n int) float64 {
	row, ok := byYear[currentYear+n]
	if !ok {
		return 0
	}
	switch j {
	case domain.AccountTaxable:
		return f64(row.TaxableContrib)
	case domain.AccountDeferred:
		return f64(row.Contrib401k) + f64(row.ContribIRA)
	case domain.AccountTaxFree:
		return f64(row.ContribRoth401k) + f64(row.ContribRothIRA)
	default:
		return 0
	}
}

// XHat returns x-hat_{i,n}, the prescribed (historical or pinned) Roth
// conversion amount for year n.
func XHat(byYear map[int]domain.ContributionRow, currentYear, n int) float64 {
	row, ok := byYear[currentYear+n]
	if !ok {
		return 0
	}
	return f64(row.RothConversion)
}
