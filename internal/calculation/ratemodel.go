package calculation

import (
	"fmt"
	"math"
	"time"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

const numK = domain.NumAssetClasses

// RateModel produces the per-year, per-asset-class rate series tau_{k,n}.
// Deterministic methods regenerate on demand; stochastic
// methods carry an *rand.Rand seeded for reproducibility when requested.
type RateModel struct {
	params domain.RateParams
	hist   *domain.HistoricalSeries // required for Historical/HistoricalAverage/Histochastic

	rng *rand.Rand
}

// presetRates are the constant per-year vectors for the three canned
// methods, expressed as annual fractional returns per asset class.
var presetRates = map[domain.RateMethod][numK]float64{
	domain.RateDefault:      {0.064, 0.042, 0.032, 0.021},
	domain.RateOptimistic:   {0.09, 0.06, 0.045, 0.03},
	domain.RateConservative: {0.04, 0.025, 0.018, 0.012},
}

// NewRateModel constructs a RateModel for the given parameters. hist may
// be nil unless Method requires historical data, in which case a nil
// series is a configuration error.
func NewRateModel(params domain.RateParams, hist *domain.HistoricalSeries) (*RateModel, error) {
	rm := &RateModel{params: params, hist: hist}

	switch params.Method {
	case domain.RateHistorical, domain.RateHistoricalAverage, domain.RateHistochastic:
		if hist == nil || len(hist.Rows) == 0 {
			return nil, domain.NewConfigError("rateParams.historical", "historical series required for this rate method")
		}
	}

	if params.Method == domain.RateStochastic || params.Method == domain.RateHistochastic {
		seed := params.Seed
		if !params.Reproducible {
			seed = time.Now().UnixNano()
		}
		rm.rng = rand.New(rand.NewSource(uint64(seed)))
	}

	return rm, nil
}

// GenSeries produces tau[k][n] for n in [0,N). The last row's final asset
// class (index numK-1) doubles as the inflation rate.
func (rm *RateModel) GenSeries(n int) (tau [numK][]float64, err error) {
	for k := range tau {
		tau[k] = make([]float64, n)
	}

	switch rm.params.Method {
	case domain.RateDefault, domain.RateOptimistic, domain.RateConservative:
		preset := presetRates[rm.params.Method]
		fillConstant(&tau, preset, n)

	case domain.RateUser:
		var vals [numK]float64
		for k := 0; k < numK; k++ {
			vals[k], _ = rm.params.UserValues[k].Float64()
		}
		fillConstant(&tau, vals, n)

	case domain.RateHistorical:
		start := rm.params.HistoricalFrom - rm.hist.FirstYear
		if start < 0 || start >= len(rm.hist.Rows) {
			return tau, domain.NewConfigError("rateParams.historicalFrom", "year %d outside the historical series [%d,%d]",
				rm.params.HistoricalFrom, rm.hist.FirstYear, rm.hist.FirstYear+len(rm.hist.Rows)-1)
		}
		// Wrap modulo the span from the start year to the end of the
		// series when the horizon outruns it.
		span := len(rm.hist.Rows) - start
		for yr := 0; yr < n; yr++ {
			row := rm.hist.Rows[start+yr%span]
			for k := 0; k < numK; k++ {
				tau[k][yr], _ = row[k].Float64()
			}
		}

	case domain.RateHistoricalAverage:
		mean, err := rm.historicalMean()
		if err != nil {
			return tau, err
		}
		fillConstant(&tau, mean, n)

	case domain.RateDataframe:
		if len(rm.params.DataframeRows)-rm.params.DataframeOffset < n {
			return tau, fmt.Errorf("ratemodel: dataframe has %d rows from offset %d, need %d", len(rm.params.DataframeRows), rm.params.DataframeOffset, n)
		}
		for yr := 0; yr < n; yr++ {
			row := rm.params.DataframeRows[rm.params.DataframeOffset+yr]
			for k := 0; k < numK; k++ {
				tau[k][yr], _ = row[k].Float64()
			}
		}

	case domain.RateHistochastic:
		means, std, corr, err := rm.fitHistorical()
		if err != nil {
			return tau, err
		}
		if err := rm.drawMultivariate(&tau, n, means, std, corr); err != nil {
			return tau, err
		}

	case domain.RateStochastic:
		var means, std [numK]float64
		for k := 0; k < numK; k++ {
			means[k], _ = rm.params.StochasticMeans[k].Float64()
			std[k], _ = rm.params.StochasticStd[k].Float64()
		}
		corr, err := rm.expandCorrelation()
		if err != nil {
			return tau, err
		}
		if err := rm.drawMultivariate(&tau, n, means, std, corr); err != nil {
			return tau, err
		}

	default:
		return tau, fmt.Errorf("ratemodel: unknown method %v", rm.params.Method)
	}

	return tau, nil
}

func fillConstant(tau *[numK][]float64, vals [numK]float64, n int) {
	for k := 0; k < numK; k++ {
		for yr := 0; yr < n; yr++ {
			tau[k][yr] = vals[k]
		}
	}
}

func (rm *RateModel) historicalMean() ([numK]float64, error) {
	var mean [numK]float64
	rows := rm.selectedHistoricalRows()
	if len(rows) == 0 {
		return mean, fmt.Errorf("ratemodel: empty historical range [%d,%d]", rm.params.HistoricalFrom, rm.params.HistoricalTo)
	}
	for _, row := range rows {
		for k := 0; k < numK; k++ {
			v, _ := row[k].Float64()
			mean[k] += v
		}
	}
	for k := 0; k < numK; k++ {
		mean[k] /= float64(len(rows))
	}
	return mean, nil
}

func (rm *RateModel) selectedHistoricalRows() [][numK]decimal.Decimal {
	from, to := rm.params.HistoricalFrom, rm.params.HistoricalTo
	var out [][numK]decimal.Decimal
	for yr := from; yr <= to; yr++ {
		idx := yr - rm.hist.FirstYear
		if idx < 0 || idx >= len(rm.hist.Rows) {
			continue
		}
		out = append(out, rm.hist.Rows[idx])
	}
	return out
}

// fitHistorical computes per-asset-class mean/std and the full
// correlation matrix from the selected historical window.
func (rm *RateModel) fitHistorical() (means, std [numK]float64, corr *mat.SymDense, err error) {
	rows := rm.selectedHistoricalRows()
	if len(rows) < 2 {
		return means, std, nil, fmt.Errorf("ratemodel: need at least 2 historical years to fit, got %d", len(rows))
	}
	data := mat.NewDense(len(rows), numK, nil)
	for r, row := range rows {
		for k := 0; k < numK; k++ {
			v, _ := row[k].Float64()
			data.Set(r, k, v)
		}
	}
	for k := 0; k < numK; k++ {
		col := mat.Col(nil, k, data)
		var sum, sumSq float64
		for _, v := range col {
			sum += v
			sumSq += v * v
		}
		nf := float64(len(col))
		means[k] = sum / nf
		variance := sumSq/nf - means[k]*means[k]
		if variance < 0 {
			variance = 0
		}
		std[k] = variance
	}
	for k := range std {
		std[k] = math.Sqrt(std[k])
	}

	corrDense := mat.NewSymDense(numK, nil)
	for a := 0; a < numK; a++ {
		for b := a; b < numK; b++ {
			if a == b {
				corrDense.SetSym(a, b, 1)
				continue
			}
			c := pearsonCorr(mat.Col(nil, a, data), mat.Col(nil, b, data))
			corrDense.SetSym(a, b, c)
		}
	}
	return means, std, corrDense, nil
}

func pearsonCorr(a, b []float64) float64 {
	n := float64(len(a))
	var sumA, sumB, sumAB, sumA2, sumB2 float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
		sumAB += a[i] * b[i]
		sumA2 += a[i] * a[i]
		sumB2 += b[i] * b[i]
	}
	num := n*sumAB - sumA*sumB
	den := math.Sqrt(math.Max(0, n*sumA2-sumA*sumA)) * math.Sqrt(math.Max(0, n*sumB2-sumB*sumB))
	if den == 0 {
		return 0
	}
	return num / den
}

// expandCorrelation accepts either a full NumAssetClasses x NumAssetClasses
// matrix or the strict upper triangle. The diagonal is always
// forced to 1. Returns a configuration error for a non-symmetric full
// matrix or a triangle of the wrong length.
func (rm *RateModel) expandCorrelation() (*mat.SymDense, error) {
	vals := rm.params.Correlation
	sym := mat.NewSymDense(numK, nil)
	for i := 0; i < numK; i++ {
		sym.SetSym(i, i, 1)
	}

	switch len(vals) {
	case numK * numK:
		for a := 0; a < numK; a++ {
			for b := 0; b < numK; b++ {
				v, _ := vals[a*numK+b].Float64()
				vSym, _ := vals[b*numK+a].Float64()
				if a != b && abs(v-vSym) > 1e-9 {
					return nil, domain.NewConfigError("rateParams.correlation", "matrix is not symmetric")
				}
				if a != b {
					sym.SetSym(a, b, v)
				}
			}
		}
	case numK * (numK - 1) / 2:
		idx := 0
		for a := 0; a < numK; a++ {
			for b := a + 1; b < numK; b++ {
				v, _ := vals[idx].Float64()
				sym.SetSym(a, b, v)
				idx++
			}
		}
	default:
		return nil, domain.NewConfigError("rateParams.correlation", "expected %d (full) or %d (triangle) entries, got %d", numK*numK, numK*(numK-1)/2, len(vals))
	}
	return sym, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// drawMultivariate fills tau with n independent draws from the
// multivariate Gaussian N(means, diag(std)*corr*diag(std)).
func (rm *RateModel) drawMultivariate(tau *[numK][]float64, n int, means, std [numK]float64, corr *mat.SymDense) error {
	sigma := mat.NewSymDense(numK, nil)
	for a := 0; a < numK; a++ {
		for b := a; b < numK; b++ {
			c := corr.At(a, b)
			sigma.SetSym(a, b, c*std[a]*std[b])
		}
	}

	mu := means[:]
	normal, ok := distmv.NewNormal(mu, sigma, rm.rng)
	if !ok {
		return fmt.Errorf("ratemodel: covariance matrix is not positive-definite")
	}

	for yr := 0; yr < n; yr++ {
		sample := normal.Rand(nil)
		for k := 0; k < numK; k++ {
			tau[k][yr] = sample[k]
		}
	}
	return nil
}
