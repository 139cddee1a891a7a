package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/shopspring/decimal"
)

// LoadHistoricalSeries reads a CSV of one row per year, columns
// year,stocks,bonds,tnotes,cashInfl (one column per domain.NumAssetClasses
// asset class in IndexMap order plus the leading year column), used by
// RateHistorical/RateHistoricalAverage/RateHistochastic.
func (ip *InputParser) LoadHistoricalSeries(filename string) (*domain.HistoricalSeries, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("config: open historical data %s: %w", filename, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("config: parse historical CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, domain.NewConfigError("historicalData", "at least one data row is required")
	}

	hs := &domain.HistoricalSeries{}
	for i, row := range records[1:] {
		if len(row) < domain.NumAssetClasses+1 {
			return nil, domain.NewConfigError("historicalData", fmt.Sprintf("row %d: expected %d columns", i, domain.NumAssetClasses+1))
		}
		year, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, domain.NewConfigError("historicalData", fmt.Sprintf("row %d: bad year %q", i, row[0]))
		}
		if i == 0 {
			hs.FirstYear = year
		}
		var rates [domain.NumAssetClasses]decimal.Decimal
		for k := 0; k < domain.NumAssetClasses; k++ {
			v, err := strconv.ParseFloat(row[k+1], 64)
			if err != nil {
				return nil, domain.NewConfigError("historicalData", fmt.Sprintf("row %d: bad rate %q", i, row[k+1]))
			}
			rates[k] = decimal.NewFromFloat(v)
		}
		hs.Rows = append(hs.Rows, rates)
	}
	return hs, nil
}
