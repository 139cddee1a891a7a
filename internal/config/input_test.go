package config

import (
	"testing"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPlanYAML = `
individuals:
  - name: Alice
    birthDate: "1965-03-01"
    lifeExpectancyYears: 90
    ssBenefitPIA: 2500
    ssClaimAge: 67
startDate: "2026-01-01"
currentYear: 2026
dividendYield: 0.02
balances:
  - taxable: 100000
    taxDeferred: 500000
    taxFree: 50000
allocations:
  - taxable:
      start: [0.6, 0.3, 0.1, 0]
      end: [0.4, 0.3, 0.2, 0.1]
      method: tanh
      width: 5
    taxDeferred:
      start: [0.7, 0.2, 0.1, 0]
      end: [0.5, 0.2, 0.2, 0.1]
    taxFree:
      start: [0.8, 0.1, 0.1, 0]
      end: [0.6, 0.1, 0.2, 0.1]
profile:
  kind: smile
  a: 0.04
  b: 0.5
  s: 1.5
  c: 85
contributions:
  -
    - year: 2026
      anticipatedWages: 50000
      contrib401k: 10000
fixedAssets:
  taxFree: [0, 0]
  ordinary: [0, 0]
  capitalGains: [0, 0]
  debtPayments: [0, 0]
  residualDebt: 0
  bequestValue: 0
objective: spending
options:
  units: 1
rateMethod: stochastic
rateMeans: [0.07, 0.04, 0.03, 0.02]
rateStdDevs: [0.15, 0.06, 0.05, 0.01]
rateSeed: 42
rateReproducible: true
`

func TestLoadFromFileWiresAllocationsProfileContributions(t *testing.T) {
	path := writeTempFile(t, "plan.yaml", fullPlanYAML)

	plan, err := NewInputParser().LoadFromFile(path)
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, domain.AllocationTanh, plan.Allocations[0][domain.AccountTaxable].Method)
	assert.True(t, plan.Allocations[0][domain.AccountTaxable].End[3].Equal(decimal.NewFromFloat(0.1)))

	assert.Equal(t, domain.ProfileSmile, plan.Profile)
	assert.True(t, plan.SmileParams.S.Equal(decimal.NewFromFloat(1.5)))
	assert.Equal(t, 85, plan.SmileParams.C)

	require.Len(t, plan.Contributions, 1)
	found := false
	for _, row := range plan.Contributions[0] {
		if row.Year == 2026 {
			found = true
			assert.True(t, row.Contrib401k.Equal(decimal.NewFromInt(10000)))
		}
	}
	assert.True(t, found, "explicit contribution row for 2026 should survive fill")
	// the 5 trailing historical years plus the horizon should all be present
	assert.Equal(t, plan.Horizon()+5, len(plan.Contributions[0]))

	assert.Equal(t, domain.RateStochastic, plan.RateParams.Method)
	assert.True(t, plan.RateParams.Reproducible)
	assert.Equal(t, int64(42), plan.RateParams.Seed)
}

func TestValidateRejectsMissingAllocations(t *testing.T) {
	path := writeTempFile(t, "plan.yaml", samplePlanYAMLNoAllocations)
	_, err := NewInputParser().LoadFromFile(path)
	assert.Error(t, err)
}

func TestValidateRejectsSpousalAgeGap(t *testing.T) {
	path := writeTempFile(t, "plan.yaml", `
individuals:
  - name: Alice
    birthDate: "1950-03-01"
    lifeExpectancyYears: 90
  - name: Bob
    birthDate: "1965-03-01"
    lifeExpectancyYears: 90
startDate: "2026-01-01"
currentYear: 2026
balances:
  - taxable: 0
    taxDeferred: 0
    taxFree: 0
  - taxable: 0
    taxDeferred: 0
    taxFree: 0
allocations:
  - taxable: {start: [1,0,0,0], end: [1,0,0,0]}
    taxDeferred: {start: [1,0,0,0], end: [1,0,0,0]}
    taxFree: {start: [1,0,0,0], end: [1,0,0,0]}
  - taxable: {start: [1,0,0,0], end: [1,0,0,0]}
    taxDeferred: {start: [1,0,0,0], end: [1,0,0,0]}
    taxFree: {start: [1,0,0,0], end: [1,0,0,0]}
objective: spending
`)
	_, err := NewInputParser().LoadFromFile(path)
	assert.Error(t, err)
}

func TestValidateRejectsImpliedLifespanOver120(t *testing.T) {
	path := writeTempFile(t, "plan.yaml", `
individuals:
  - name: Alice
    birthDate: "1965-03-01"
    lifeExpectancyYears: 125
startDate: "2026-01-01"
currentYear: 2026
balances:
  - taxable: 0
    taxDeferred: 0
    taxFree: 0
allocations:
  - taxable: {start: [1,0,0,0], end: [1,0,0,0]}
    taxDeferred: {start: [1,0,0,0], end: [1,0,0,0]}
    taxFree: {start: [1,0,0,0], end: [1,0,0,0]}
objective: spending
`)
	_, err := NewInputParser().LoadFromFile(path)
	assert.Error(t, err)
}

const samplePlanYAMLNoAllocations = `
individuals:
  - name: Alice
    birthDate: "1965-03-01"
    lifeExpectancyYears: 90
startDate: "2026-01-01"
currentYear: 2026
balances:
  - taxable: 100000
    taxDeferred: 500000
    taxFree: 50000
objective: spending
`

// Misspelled enum values and unknown YAML keys must fail loudly instead
// of silently producing a materially different plan.
func TestLoadFromFileRejectsUnknownEnumValues(t *testing.T) {
	cases := map[string]string{
		"objective":   `objective: beqeust`,
		"rateMethod":  `rateMethod: hsitorical` + "\nobjective: spending",
		"rothControl": "objective: spending\noptions:\n  rothControl: caped",
		"medicare":    "objective: spending\noptions:\n  medicare: optimise",
		"profile":     "objective: spending\nprofile:\n  kind: frown",
	}

	for name, fragment := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeTempFile(t, "plan.yaml", minimalPlanYAML+fragment+"\n")
			_, err := NewInputParser().LoadFromFile(path)
			require.Error(t, err)
			var ce *domain.ConfigError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestLoadFromFileRejectsUnknownYAMLKey(t *testing.T) {
	path := writeTempFile(t, "plan.yaml", minimalPlanYAML+"objective: spending\nrateMethdo: historical\n")
	_, err := NewInputParser().LoadFromFile(path)
	assert.Error(t, err)
}

func TestAllocationCenterFlowsThroughAndDefaults(t *testing.T) {
	af := allocationFile{Method: "tanh", Center: decimal.NewFromInt(8)}
	ab, err := af.toBounds()
	require.NoError(t, err)
	assert.True(t, ab.Center.Equal(decimal.NewFromInt(8)))

	// Unset center stays zero here; the interpolator substitutes its
	// 15-year default at evaluation time.
	af2 := allocationFile{Method: "tanh"}
	ab2, err := af2.toBounds()
	require.NoError(t, err)
	assert.True(t, ab2.Center.IsZero())

	_, err = allocationFile{Method: "hyperbolic"}.toBounds()
	assert.Error(t, err)
}

// minimalPlanYAML is a valid single-individual scenario body; tests
// append an objective (and any fragment under test) to it.
const minimalPlanYAML = `
individuals:
  - name: Alice
    birthDate: "1965-03-01"
    lifeExpectancyYears: 90
startDate: "2026-01-01"
currentYear: 2026
balances:
  - taxable: 0
    taxDeferred: 0
    taxFree: 0
allocations:
  - taxable: {start: [1,0,0,0], end: [1,0,0,0]}
    taxDeferred: {start: [1,0,0,0], end: [1,0,0,0]}
    taxFree: {start: [1,0,0,0], end: [1,0,0,0]}
`
