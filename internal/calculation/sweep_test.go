package calculation

import (
	"context"
	"testing"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/mdlacasse/owlgo/internal/solver"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMCSweepCollectsEveryScenario runs a deterministic-rate Monte Carlo
// sweep (user rates never vary with the seed, so every scenario solves to
// the same basis) and checks the distribution bookkeeping: one row per
// scenario, full success rate, mean equal to median, and the progress
// callback firing once per scenario in order.
func TestMCSweepCollectsEveryScenario(t *testing.T) {
	plan := annuityTestPlan(domain.Balances{TaxFree: decimal.NewFromInt(120000)}, domain.AssetTNotes, 0.04, 72)

	var calls []int
	progress := func(done, total int) {
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	}

	summary, err := MCSweep(context.Background(), plan, nil, solver.NewBranchAndBoundSolver(), 3, 7, progress)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, calls)
	assert.Equal(t, 3, summary.NumRequested)
	assert.Equal(t, 0, summary.NumInfeasible)
	assert.Len(t, summary.Rows, 3)
	assert.True(t, summary.SuccessRate.Equal(decimal.NewFromInt(1)))
	assert.True(t, summary.MeanObjective.Sub(summary.MedianObjective).Abs().LessThan(decimal.NewFromFloat(1e-6)))
}

// TestHistoricalSweepSlidesStartYear checks that each scenario anchors the
// rate series at its own start year: with a synthetic history whose only
// moving part is the T-note rate, two different windows produce two
// different objective values.
func TestHistoricalSweepSlidesStartYear(t *testing.T) {
	hist := &domain.HistoricalSeries{FirstYear: 1990}
	for i := 0; i < 40; i++ {
		var row [domain.NumAssetClasses]decimal.Decimal
		rate := 0.02
		if i >= 10 {
			rate = 0.06
		}
		row[domain.AssetTNotes] = decimal.NewFromFloat(rate)
		hist.Rows = append(hist.Rows, row)
	}

	plan := annuityTestPlan(domain.Balances{TaxFree: decimal.NewFromInt(120000)}, domain.AssetTNotes, 0, 72)
	plan.RateParams.Method = domain.RateHistorical

	summary, err := HistoricalSweep(context.Background(), plan, hist, solver.NewBranchAndBoundSolver(), 1990, 2001, nil)
	require.NoError(t, err)

	require.Equal(t, 12, summary.NumRequested)
	require.Len(t, summary.Rows, 12)
	// The 1990 window spends ten 2% years; the 2001 window is all 6% years.
	first, _ := summary.Rows[0].Objective.Float64()
	last, _ := summary.Rows[len(summary.Rows)-1].Objective.Float64()
	assert.Greater(t, last, first)
}
