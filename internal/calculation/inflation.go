package calculation

// InflationMultiplier computes gamma_n, the cumulative inflation series:
// gamma_0 = 1, gamma_{n+1} = gamma_n * (1 + tau_{K-1,n}), using the
// last asset class's rate as the inflation rate. Length is N_n+1.
func InflationMultiplier(inflationRate []float64) []float64 {
	gamma := make([]float64, len(inflationRate)+1)
	gamma[0] = 1
	for n, r := range inflationRate {
		gamma[n+1] = gamma[n] * (1 + r)
	}
	return gamma
}

// GammaTodayFromN returns 1/gamma_n, the deflator back to today's
// dollars; gamma_n * GammaTodayFromN(gamma, n) == 1 by construction.
func GammaTodayFromN(gamma []float64, n int) float64 {
	return 1 / gamma[n]
}
