package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHistoricalCSV = `year,stocks,bonds,tnotes,cashInfl
1950,0.317,0.021,0.012,0.013
1951,0.240,-0.027,0.016,0.079
1952,0.184,0.023,0.017,0.009
`

func TestLoadHistoricalSeries(t *testing.T) {
	path := writeTempFile(t, "historical.csv", sampleHistoricalCSV)

	hs, err := NewInputParser().LoadHistoricalSeries(path)
	require.NoError(t, err)

	assert.Equal(t, 1950, hs.FirstYear)
	require.Len(t, hs.Rows, 3)
	assert.True(t, hs.Rows[0][0].Equal(decimal.NewFromFloat(0.317)))
}

func TestLoadHistoricalSeriesRejectsShortRows(t *testing.T) {
	path := writeTempFile(t, "historical.csv", "year,stocks,bonds,tnotes,cashInfl\n1950,0.1,0.1\n")

	_, err := NewInputParser().LoadHistoricalSeries(path)
	assert.Error(t, err)
}

func TestLoadHistoricalSeriesRejectsMissingFile(t *testing.T) {
	_, err := NewInputParser().LoadHistoricalSeries("/nonexistent/historical.csv")
	assert.Error(t, err)
}
