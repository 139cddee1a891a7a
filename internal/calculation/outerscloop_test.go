package calculation

import (
	"testing"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestL1Diff(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1, 4, 0}
	assert.Equal(t, 5.0, l1Diff(a, b))
}

func TestOscillationEscape(t *testing.T) {
	// too little history: never escapes regardless of how close fobj is.
	assert.False(t, oscillationEscape(-100, []float64{-100, -100}))

	// settled near a fixed point within the recent half: accept.
	history := []float64{-1000, -500, -500.2, -500.1, -500.3, -500.1}
	assert.True(t, oscillationEscape(-500.1, history))

	// still far from every recent value: no escape.
	history2 := []float64{-500, -100, -500, -100}
	assert.False(t, oscillationEscape(-10000, history2))
}

func TestLtcgMarginalRate(t *testing.T) {
	p := domain.LTCGParams{
		ThresholdsSingle:  [2]decimal.Decimal{decimal.NewFromInt(49450), decimal.NewFromInt(545500)},
		ThresholdsMarried: [2]decimal.Decimal{decimal.NewFromInt(98900), decimal.NewFromInt(613700)},
		Rates:             [3]decimal.Decimal{decimal.Zero, decimal.NewFromFloat(0.15), decimal.NewFromFloat(0.20)},
	}

	assert.Equal(t, 0.0, ltcgMarginalRate(p, 40000, 1, false))
	assert.Equal(t, 0.15, ltcgMarginalRate(p, 200000, 1, false))
	assert.Equal(t, 0.20, ltcgMarginalRate(p, 700000, 1, false))

	// MFJ thresholds are wider: the same MAGI can land a bracket lower.
	assert.Equal(t, 0.0, ltcgMarginalRate(p, 80000, 1, true))

	// inflation scales the breakpoints up with gamma.
	assert.Equal(t, 0.0, ltcgMarginalRate(p, 60000, 1.3, false))
}

func TestMedicareCostForYear(t *testing.T) {
	ts := &TaxSchedule{
		MedicareThresholds: [][domain.NumMedicareTiers - 1]float64{
			{106000, 133000, 167000, 200000, 500000},
		},
		MedicareCosts: [][domain.NumMedicareTiers]float64{
			{2096, 2934, 4188, 5441, 6695, 7303},
		},
	}

	assert.Equal(t, 2096.0, medicareCostForYear(ts, 0, 50000))
	assert.Equal(t, 2934.0, medicareCostForYear(ts, 0, 110000))
	assert.Equal(t, 7303.0, medicareCostForYear(ts, 0, 600000))
}

func TestLaggedMAGIFallsBackToPreviousMAGIs(t *testing.T) {
	plan := &domain.Plan{}
	plan.Options.PreviousMAGIs = [2]decimal.Decimal{decimal.NewFromInt(80000), decimal.NewFromInt(90000)}

	magi := []float64{120000, 130000}

	// PreviousMAGIs[0] is two years before plan start, [1] is one year before.
	assert.Equal(t, 120000.0, laggedMAGI(plan, magi, 0))
	assert.Equal(t, 90000.0, laggedMAGI(plan, magi, -1))
	assert.Equal(t, 80000.0, laggedMAGI(plan, magi, -2))
}
