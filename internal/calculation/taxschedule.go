package calculation

import (
	"github.com/mdlacasse/owlgo/internal/domain"
)

// TaxSchedule is the set of per-year derived tax/Medicare/RMD arrays the
// LP builder consumes. It is recomputed whenever gamma (inflation)
// or MAGI changes, since the 65+ bonus deduction phases out with MAGI.
type TaxSchedule struct {
	StdDed        []float64                         // sigma-bar_n
	BracketRates  [domain.NumTaxBrackets][]float64  // theta_{t,n}; varies with n across the regime-switch year
	BracketWidths [domain.NumTaxBrackets][]float64 // Delta_{t,n}, per-bracket width (not cumulative)

	NMedicare        int // n_m
	MedicareThresholds [][domain.NumMedicareTiers - 1]float64 // L_{n,q}
	MedicareCosts      [][domain.NumMedicareTiers]float64     // C_{n,q}, cumulative annual cost (12x the inflated monthly tier cost)

	RMDFraction [][]float64 // [i][n], rho_{i,n}

	NIIT domain.NIITParams
	LTCG domain.LTCGParams
}

// BuildTaxSchedule computes sigma-bar_n, theta_{t,n}, Delta_{t,n}, the
// Medicare tier tables and the RMD fraction table for every individual
// and year. gamma has length N_n+1 (gamma[0]=1). magi has length N_n and
// may be all-zero on the first SC iteration.
func BuildTaxSchedule(plan *domain.Plan, gamma []float64, magi []float64) (*TaxSchedule, error) {
	nn := plan.Horizon()
	params := plan.TaxParams
	ts := &TaxSchedule{
		StdDed: make([]float64, nn),
	}

	ageAt := func(ind domain.Individual, year int) int {
		return year - ind.BirthDate.Year()
	}

	for n := 0; n < nn; n++ {
		year := plan.Household.CurrentYear + n
		regime := params.CurrentRegime
		if params.YearOBBBA != 0 && year >= params.YearOBBBA {
			regime = params.PostExpirationRegime
		}

		gn := gamma[n]
		std := f64(regime.StandardDeduction) * gn

		for _, ind := range plan.Household.Individuals {
			if ageAt(ind, year) >= 65 {
				std += f64(params.SeniorExtraDeduction) * gn
			}
		}

		if params.BonusExpirationYear == 0 || year < params.BonusExpirationYear {
			for _, ind := range plan.Household.Individuals {
				if ageAt(ind, year) >= 65 {
					bonus := f64(params.Bonus65Amount)
					threshold := f64(params.Bonus65Threshold)
					var m float64
					if n < len(magi) {
						m = magi[n]
					}
					if m > threshold {
						phaseOut := (m - threshold) / 1000.0 * f64(params.Bonus65PhaseOutRate)
						bonus -= bonus * phaseOut
						if bonus < 0 {
							bonus = 0
						}
					}
					std += bonus * gn
				}
			}
		}

		ts.StdDed[n] = std

		for t := 0; t < domain.NumTaxBrackets; t++ {
			if ts.BracketRates[t] == nil {
				ts.BracketRates[t] = make([]float64, nn)
			}
			ts.BracketRates[t][n] = f64(regime.BracketRates[t])
			if ts.BracketWidths[t] == nil {
				ts.BracketWidths[t] = make([]float64, nn)
			}
			ts.BracketWidths[t][n] = f64(regime.BracketWidths[t]) * gn
		}
	}

	if err := buildMedicareSchedule(ts, plan, gamma); err != nil {
		return nil, err
	}
	buildRMDSchedule(ts, plan)

	ts.NIIT = params.NIIT
	ts.LTCG = params.LTCG
	return ts, nil
}

func buildMedicareSchedule(ts *TaxSchedule, plan *domain.Plan, gamma []float64) error {
	nn := plan.Horizon()
	params := plan.TaxParams.Medicare

	// n_m = max(0, yob+65-currentYear) across individuals; the first
	// (earliest) individual to reach 65 sets the eligibility year.
	nm := nn
	for _, ind := range plan.Household.Individuals {
		cand := ind.BirthDate.Year() + 65 - plan.Household.CurrentYear
		if cand < 0 {
			cand = 0
		}
		if cand < nm {
			nm = cand
		}
	}
	ts.NMedicare = nm

	ts.MedicareThresholds = make([][domain.NumMedicareTiers - 1]float64, nn)
	ts.MedicareCosts = make([][domain.NumMedicareTiers]float64, nn)

	for n := 0; n < nn; n++ {
		gn := gamma[n]
		var thr [domain.NumMedicareTiers - 1]float64
		for q := 0; q < domain.NumMedicareTiers-1; q++ {
			thr[q] = f64(params.TierThresholds[q]) * gn
		}
		ts.MedicareThresholds[n] = thr

		var costs [domain.NumMedicareTiers]float64
		for q := 0; q < domain.NumMedicareTiers; q++ {
			costs[q] = f64(params.TierMonthlyCosts[q]) * gn * 12
		}
		ts.MedicareCosts[n] = costs
	}
	return nil
}

func buildRMDSchedule(ts *TaxSchedule, plan *domain.Plan) {
	nn := plan.Horizon()
	ts.RMDFraction = make([][]float64, plan.NumIndividuals())
	table := plan.TaxParams.RMDTable
	startAge := plan.TaxParams.RMDStartAge

	for i, ind := range plan.Household.Individuals {
		ts.RMDFraction[i] = make([]float64, nn)
		for n := 0; n < nn; n++ {
			year := plan.Household.CurrentYear + n
			age := year - ind.BirthDate.Year()
			if age < startAge {
				continue
			}
			idx := age - 72
			if idx < 0 {
				idx = 0
			}
			if idx >= len(table) {
				idx = len(table) - 1
			}
			if idx < 0 || len(table) == 0 || f64(table[idx]) == 0 {
				continue
			}
			ts.RMDFraction[i][n] = 1.0 / f64(table[idx])
		}
	}
}

func f64(d interface{ Float64() (float64, bool) }) float64 {
	v, _ := d.Float64()
	return v
}
