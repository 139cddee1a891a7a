package calculation

import (
	"context"
	"math"
	"sort"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/mdlacasse/owlgo/internal/solver"
	"github.com/shopspring/decimal"
)

// ProgressFunc is called after each completed scenario in a sweep, so a
// caller (CLI progress bar, TUI) can report live status without the
// sweep depending on any particular UI.
type ProgressFunc func(done, total int)

// HistoricalSweep re-solves plan once per historical starting year in
// [from, to], overriding RateParams to RateHistorical anchored at that
// year each time, and returns the aggregated outcome distribution.
func HistoricalSweep(ctx context.Context, plan *domain.Plan, hist *domain.HistoricalSeries, adapter solver.Adapter, from, to int, progress ProgressFunc) (domain.SweepSummary, error) {
	years := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, y)
	}
	return runSweep(ctx, plan, adapter, len(years), progress, func(idx int) (*domain.Plan, error) {
		clone := plan.Clone()
		clone.RateParams = domain.RateParams{
			Method:         domain.RateHistorical,
			HistoricalFrom: years[idx],
			HistoricalTo:   years[idx] + plan.Horizon(),
		}
		return clone, nil
	}, hist)
}

// MCSweep re-solves plan n times using independent stochastic draws,
// varying only the random seed between runs.
func MCSweep(ctx context.Context, plan *domain.Plan, hist *domain.HistoricalSeries, adapter solver.Adapter, n int, baseSeed int64, progress ProgressFunc) (domain.SweepSummary, error) {
	return runSweep(ctx, plan, adapter, n, progress, func(idx int) (*domain.Plan, error) {
		clone := plan.Clone()
		clone.RateParams.Seed = baseSeed + int64(idx)
		clone.RateParams.Reproducible = true
		return clone, nil
	}, hist)
}

func runSweep(ctx context.Context, plan *domain.Plan, adapter solver.Adapter, n int, progress ProgressFunc, mutate func(int) (*domain.Plan, error), hist *domain.HistoricalSeries) (domain.SweepSummary, error) {
	summary := domain.SweepSummary{NumRequested: n}
	var objectives []float64

	for idx := 0; idx < n; idx++ {
		// Cancellation is honored between scenarios, never mid-solve.
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		scenario, err := mutate(idx)
		if err != nil {
			return summary, err
		}

		rm, err := NewRateModel(scenario.RateParams, hist)
		if err != nil {
			return summary, err
		}

		nn := scenario.Horizon()
		inflation, err := rm.GenSeries(nn)
		if err != nil {
			return summary, err
		}
		gamma := InflationMultiplier(inflation[domain.AssetCashInfl])

		sc, err := RunOuterLoop(ctx, scenario, rm, adapter, gamma)
		if err != nil {
			return summary, err
		}

		if sc.Solved.Status != solver.StatusOptimal {
			summary.NumInfeasible++
			if progress != nil {
				progress(idx+1, n)
			}
			continue
		}

		agg := ResultAggregator{}
		sp := agg.Aggregate(sc, domain.CaseSuccessful, "", "")

		row := domain.SweepRow{
			Objective:      sp.ObjectiveValue,
			PartialBequest: sp.PartialEstate,
		}
		summary.Rows = append(summary.Rows, row)
		obj, _ := sp.ObjectiveValue.Float64()
		objectives = append(objectives, obj)

		if progress != nil {
			progress(idx+1, n)
		}
	}

	if len(objectives) > 0 {
		summary.SuccessRate = decimal.NewFromFloat(float64(len(objectives)) / float64(n))
		summary.MeanObjective = decimal.NewFromFloat(mean(objectives))
		summary.MedianObjective = decimal.NewFromFloat(median(objectives))
		summary.MinObjective = decimal.NewFromFloat(minOf(objectives))
		summary.MaxObjective = decimal.NewFromFloat(maxOf(objectives))
	}
	return summary, nil
}

func mean(xs []float64) float64 {
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func minOf(xs []float64) float64 {
	m := math.Inf(1)
	for _, v := range xs {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, v := range xs {
		if v > m {
			m = v
		}
	}
	return m
}
