package calculation

import (
	"math"

	"github.com/mdlacasse/owlgo/internal/domain"
)

// fullRetirementAge returns the SSA full retirement age for a birth year
// as a fractional (1/12-increment) value, the form the claiming-age
// reduction/credit factors need.
func fullRetirementAge(birthYear int) float64 {
	if birthYear >= 1960 {
		return 67
	}
	mo := 2 * (birthYear - 1954)
	if mo < 0 {
		mo = 0
	}
	return 66 + float64(mo)/12
}

// spousalBenefit returns max(0, 0.5*otherPIA - ownPIA), the additional
// monthly amount a claimant receives as a spouse rather than on their own
// record.
func spousalBenefit(ownPIA, otherPIA float64) float64 {
	v := 0.5*otherPIA - ownPIA
	if v < 0 {
		return 0
	}
	return v
}

// selfClaimFactor returns the multiplier applied to PIA for a benefit
// claimed at ssAge against a full retirement age of fra: below FRA the
// benefit is reduced (bottoming out at age 62), at FRA it is 1, and after
// FRA it grows 8%/year up to age 70.
func selfClaimFactor(fra, ssAge float64) float64 {
	diff := fra - ssAge
	switch {
	case diff <= 0:
		return 1 - 0.08*diff
	case diff <= 3:
		return 1 - 0.06666667*diff
	default:
		return 0.8 - 0.05*(diff-3)
	}
}

// spousalClaimFactor is the analogous reduction factor for a spousal
// benefit: it never increases past FRA (no delayed-retirement credit on
// spousal amounts).
func spousalClaimFactor(fra, ssAge float64) float64 {
	diff := fra - ssAge
	switch {
	case diff <= 0:
		return 1
	case diff <= 3:
		return 1 - 0.08333333*diff
	default:
		return 0.75 - 0.05*(diff-3)
	}
}

// ssInput is a claimant's precomputed own-benefit eligibility inputs,
// shared between the own-benefit pass and the spousal-top-up pass.
type ssInput struct {
	pia             float64
	birthYear       int
	birthMonthFrac  float64
	bornOnFirstDays bool
	age             float64 // claim age, clamped to eligibility
	fra             float64
}

// BuildSocialSecurityStream returns zeta_{i,n}, the nominal (pre-gamma)
// monthly-PIA-scaled annual benefit for individual i in year n, for n in
// [0, horizon_i). Benefits are paid in arrears (a one-month lag from
// eligibility), prorated in the first partial calendar year of payment,
// and include the spousal top-up when it exceeds the individual's own
// benefit. A per-individual SSMonthlyOverride bypasses this arithmetic
// entirely with a flat annual amount (12x the override).
//
// The spousal top-up starts on its own schedule, not the claimant's own
// benefit schedule: it begins at the later of the two spouses' claim
// instants (claimYear), arrears-lagged and first-year-prorated
// independently of the claimant's own payment start, per
// socialsecurity.py's setSocialSecurity (ns2/claimYear/paymentClaimYear).
func BuildSocialSecurityStream(plan *domain.Plan) [][]float64 {
	ni := plan.NumIndividuals()
	out := make([][]float64, ni)

	var in [2]ssInput
	for i := 0; i < ni && i < 2; i++ {
		ind := plan.Household.Individuals[i]
		birthYear := ind.BirthDate.Year()
		bornOnFirstDays := ind.BirthDate.Day() <= 2
		eligible := 62.0
		if !bornOnFirstDays {
			eligible = 62 + 1.0/12
		}
		age := float64(ind.SSClaimAge)
		if age < eligible {
			age = eligible
		}
		in[i] = ssInput{
			pia:             f64(ind.SSBenefitPIA),
			birthYear:       birthYear,
			birthMonthFrac:  float64(int(ind.BirthDate.Month())-1) / 12,
			bornOnFirstDays: bornOnFirstDays,
			age:             age,
			fra:             fullRetirementAge(birthYear),
		}
	}

	// claimYear is the later of the two spouses' absolute claim instants
	// (birth year + birth-month fraction + claim age); the spousal
	// top-up's own schedule is computed relative to it, not to either
	// spouse's own-benefit start.
	var claimYear float64
	if ni == 2 {
		c0 := float64(in[0].birthYear) + in[0].birthMonthFrac + in[0].age
		c1 := float64(in[1].birthYear) + in[1].birthMonthFrac + in[1].age
		claimYear = math.Max(c0, c1)
	}

	for i, ind := range plan.Household.Individuals {
		h := plan.IndividualHorizon(i)
		zeta := make([]float64, h)
		out[i] = zeta

		if ind.SSMonthlyOverride != nil {
			monthly := f64(*ind.SSMonthlyOverride)
			for n := 0; n < h; n++ {
				zeta[n] = monthly * 12
			}
			continue
		}

		own := in[i]
		janAge := own.age + own.birthMonthFrac
		paymentJanAge := janAge + 1.0/12
		paymentIAge := math.Floor(paymentJanAge)
		paymentRealN := own.birthYear + int(paymentIAge) - plan.Household.CurrentYear

		ns := paymentRealN
		if ns < 0 {
			ns = 0
		}
		for n := ns; n < h; n++ {
			zeta[n] = own.pia
		}
		if paymentRealN >= 0 && ns < h {
			zeta[ns] *= 1 - math.Mod(paymentJanAge, 1)
		}

		factor := selfClaimFactor(own.fra, own.age)
		for n := range zeta {
			zeta[n] *= factor
		}

		if ni == 2 {
			j := (i + 1) % 2
			extra := spousalBenefit(own.pia, in[j].pia)
			if extra > 0 {
				claimAge := claimYear - float64(own.birthYear) - own.birthMonthFrac
				paymentClaimYear := claimYear + 1.0/12
				ns2 := int(math.Floor(paymentClaimYear)) - plan.Household.CurrentYear
				if ns2 < 0 {
					ns2 = 0
				}
				sFactor := spousalClaimFactor(own.fra, claimAge)
				amount := extra * sFactor
				for n := ns2; n < h; n++ {
					zeta[n] += amount
				}
				if ns2 < h {
					zeta[ns2] -= amount * math.Mod(paymentClaimYear, 1)
				}
			}
		}

		for n := range zeta {
			zeta[n] *= 12
		}
	}
	return out
}
