package domain

import "github.com/shopspring/decimal"

// RateMethod is the sealed set of ways a per-year, per-asset-class rate
// series can be produced.
type RateMethod int

const (
	RateDefault RateMethod = iota
	RateOptimistic
	RateConservative
	RateUser
	RateHistorical
	RateHistoricalAverage
	RateHistochastic
	RateStochastic
	RateDataframe
)

// RateParams is the union of parameters every RateMethod might need; only
// the fields relevant to the selected Method are read.
type RateParams struct {
	Method RateMethod

	UserValues [NumAssetClasses]decimal.Decimal // RateUser

	HistoricalFrom int // RateHistorical / RateHistoricalAverage / RateHistochastic
	HistoricalTo   int

	// StochasticMeans/StdDevs/Correlation are used directly for
	// RateStochastic; RateHistochastic does not read them and fits its own
	// estimates from the historical window.
	StochasticMeans [NumAssetClasses]decimal.Decimal
	StochasticStd   [NumAssetClasses]decimal.Decimal
	// Correlation is either the full NumAssetClasses x NumAssetClasses
	// matrix, or the strict upper triangle (length N*(N-1)/2); both forms
	// are accepted by RateModel.GenSeries.
	Correlation []decimal.Decimal

	Seed         int64
	Reproducible bool

	// DataframeRows/Offset are used for RateDataframe: sequential
	// per-year rows read starting at Offset.
	DataframeRows []([NumAssetClasses]decimal.Decimal)
	DataframeOffset int
}

// HistoricalSeries is the annual historical rate history RateModel
// indexes into for RateHistorical/RateHistoricalAverage/RateHistochastic.
// The core consumes this as an externally-supplied table; loading it from
// a data file is the caller's responsibility.
type HistoricalSeries struct {
	FirstYear int
	Rows      []([NumAssetClasses]decimal.Decimal) // Rows[0] corresponds to FirstYear
}
