package calculation

import (
	"testing"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateModelUserConstant(t *testing.T) {
	params := domain.RateParams{
		Method: domain.RateUser,
		UserValues: [domain.NumAssetClasses]decimal.Decimal{
			decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.03), decimal.NewFromFloat(0.02), decimal.NewFromFloat(0.01),
		},
	}
	rm, err := NewRateModel(params, nil)
	require.NoError(t, err)

	tau, err := rm.GenSeries(5)
	require.NoError(t, err)
	for n := 0; n < 5; n++ {
		assert.InDelta(t, 0.05, tau[0][n], 1e-12)
		assert.InDelta(t, 0.01, tau[3][n], 1e-12)
	}
}

func TestRateModelHistoricalWraps(t *testing.T) {
	hist := &domain.HistoricalSeries{
		FirstYear: 1928,
		Rows: make([][domain.NumAssetClasses]decimal.Decimal, 3),
	}
	for i := range hist.Rows {
		hist.Rows[i] = [domain.NumAssetClasses]decimal.Decimal{
			decimal.NewFromFloat(0.1 * float64(i+1)), decimal.Zero, decimal.Zero, decimal.Zero,
		}
	}
	rm, err := NewRateModel(domain.RateParams{Method: domain.RateHistorical, HistoricalFrom: 1928, HistoricalTo: 1930}, hist)
	require.NoError(t, err)

	tau, err := rm.GenSeries(7) // longer than the 3-year span: must wrap
	require.NoError(t, err)
	assert.InDelta(t, 0.1, tau[0][0], 1e-9)
	assert.InDelta(t, 0.2, tau[0][1], 1e-9)
	assert.InDelta(t, 0.3, tau[0][2], 1e-9)
	assert.InDelta(t, 0.1, tau[0][3], 1e-9, "should wrap modulo span")
}

func TestRateModelDataframeErrorsWhenShort(t *testing.T) {
	rows := make([][domain.NumAssetClasses]decimal.Decimal, 2)
	rm, err := NewRateModel(domain.RateParams{Method: domain.RateDataframe, DataframeRows: rows, DataframeOffset: 0}, nil)
	require.NoError(t, err)
	_, err = rm.GenSeries(5)
	assert.Error(t, err)
}

func TestRateModelStochasticReproducible(t *testing.T) {
	params := domain.RateParams{
		Method: domain.RateStochastic,
		StochasticMeans: [domain.NumAssetClasses]decimal.Decimal{
			decimal.NewFromFloat(0.06), decimal.NewFromFloat(0.04), decimal.NewFromFloat(0.03), decimal.NewFromFloat(0.01),
		},
		StochasticStd: [domain.NumAssetClasses]decimal.Decimal{
			decimal.NewFromFloat(0.15), decimal.NewFromFloat(0.08), decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.01),
		},
		Correlation: []decimal.Decimal{
			decimal.NewFromFloat(0.2), decimal.NewFromFloat(0.1), decimal.Zero,
			decimal.NewFromFloat(0.3), decimal.Zero,
			decimal.Zero,
		},
		Seed:         42,
		Reproducible: true,
	}

	rm1, err := NewRateModel(params, nil)
	require.NoError(t, err)
	tau1, err := rm1.GenSeries(10)
	require.NoError(t, err)

	rm2, err := NewRateModel(params, nil)
	require.NoError(t, err)
	tau2, err := rm2.GenSeries(10)
	require.NoError(t, err)

	assert.Equal(t, tau1, tau2, "same seed should reproduce identical draws")
}

func TestRateModelCorrelationMustBeSymmetric(t *testing.T) {
	bad := []decimal.Decimal{
		decimal.NewFromFloat(1), decimal.Zero, decimal.Zero, decimal.Zero,
		decimal.Zero, decimal.NewFromFloat(1), decimal.Zero, decimal.Zero,
		decimal.Zero, decimal.NewFromFloat(0.9), decimal.NewFromFloat(1), decimal.Zero,
		decimal.Zero, decimal.Zero, decimal.Zero, decimal.NewFromFloat(1),
	}
	rm, err := NewRateModel(domain.RateParams{Method: domain.RateStochastic, Correlation: bad}, nil)
	require.NoError(t, err)
	_, err = rm.GenSeries(3)
	assert.Error(t, err)
}
