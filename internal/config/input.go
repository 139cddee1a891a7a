// Package config loads a Plan from a YAML file into the domain types the
// calculation engine consumes: read, unmarshal, validate, then hand the
// caller a ready-to-solve value.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// InputParser reads and validates Plan YAML files.
type InputParser struct{}

// NewInputParser constructs an InputParser.
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile reads filename, unmarshals it into a planFile, validates
// it, and converts it into a domain.Plan.
func (ip *InputParser) LoadFromFile(filename string) (*domain.Plan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	// KnownFields makes a misspelled key a parse error instead of a
	// silently dropped setting.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var pf planFile
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("config: parse YAML: %w", err)
	}

	if err := ip.Validate(&pf); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return pf.toPlan()
}

// planFile is the on-disk YAML shape. It intentionally stays close to
// domain.Plan's field names; the conversion step below fills in the
// derived pieces (time.Time parsing, array-of-struct reshaping) the raw
// YAML can't represent directly.
type planFile struct {
	Individuals []struct {
		Name              string          `yaml:"name"`
		BirthDate         string          `yaml:"birthDate"`
		LifeExpectancyYrs int             `yaml:"lifeExpectancyYears"`
		PensionMonthly    decimal.Decimal `yaml:"pensionMonthly"`
		PensionClaimAge   int             `yaml:"pensionClaimAge"`
		PensionIndexed    bool            `yaml:"pensionIndexed"`
		SSBenefitPIA      decimal.Decimal `yaml:"ssBenefitPIA"`
		SSClaimAge        int             `yaml:"ssClaimAge"`
	} `yaml:"individuals"`

	StartDate   string `yaml:"startDate"`
	CurrentYear int    `yaml:"currentYear"`

	SurvivorSpendingFraction    decimal.Decimal    `yaml:"survivorSpendingFraction"`
	BeneficiaryTransferFraction [3]decimal.Decimal `yaml:"beneficiaryTransferFraction"`
	SurplusSplitEta             decimal.Decimal    `yaml:"surplusSplitEta"`
	HeirsTaxRate                decimal.Decimal    `yaml:"heirsTaxRate"`
	DividendYield               decimal.Decimal    `yaml:"dividendYield"`

	Balances []struct {
		Taxable     decimal.Decimal `yaml:"taxable"`
		TaxDeferred decimal.Decimal `yaml:"taxDeferred"`
		TaxFree     decimal.Decimal `yaml:"taxFree"`
	} `yaml:"balances"`

	// Allocations is one entry per individual, each carrying the three
	// account types' start/end allocation vectors in IndexMap asset-class
	// order (stocks, corp bonds, T-notes, cash/inflation-indexed).
	Allocations []struct {
		Taxable     allocationFile `yaml:"taxable"`
		TaxDeferred allocationFile `yaml:"taxDeferred"`
		TaxFree     allocationFile `yaml:"taxFree"`
	} `yaml:"allocations"`

	Profile struct {
		Kind string          `yaml:"kind"` // "flat" or "smile"
		A    decimal.Decimal `yaml:"a"`
		B    decimal.Decimal `yaml:"b"`
		S    decimal.Decimal `yaml:"s"`
		C    int             `yaml:"c"`
	} `yaml:"profile"`

	// Contributions is one slice of rows per individual; years missing
	// from the explicit rows are zero-filled over the required
	// currentYear-5..currentYear+horizon-1 range by fillContributionRows.
	Contributions [][]contributionRowFile `yaml:"contributions"`

	FixedAssets struct {
		TaxFree      []decimal.Decimal `yaml:"taxFree"`
		Ordinary     []decimal.Decimal `yaml:"ordinary"`
		CapitalGains []decimal.Decimal `yaml:"capitalGains"`
		DebtPayments []decimal.Decimal `yaml:"debtPayments"`
		ResidualDebt decimal.Decimal   `yaml:"residualDebt"`
		BequestValue decimal.Decimal   `yaml:"bequestValue"`
	} `yaml:"fixedAssets"`

	Objective string `yaml:"objective"`

	Options struct {
		RothControl             string          `yaml:"rothControl"`
		MaxRothConversion       decimal.Decimal `yaml:"maxRothConversion"`
		NoRothConversionsFor    string          `yaml:"noRothConversionsFor"`
		StartRothConversionsYear int            `yaml:"startRothConversionsYear"`
		NetSpending             decimal.Decimal `yaml:"netSpending"`
		Bequest                 decimal.Decimal `yaml:"bequest"`
		Medicare                string          `yaml:"medicare"`
		WithSCLoop              bool            `yaml:"withSCLoop"`
		SpendingSlackPercent    decimal.Decimal `yaml:"spendingSlackPercent"`
		XORConstraints          bool            `yaml:"xorConstraints"`
		BigM                    decimal.Decimal `yaml:"bigM"`
		OppCostXPercent         decimal.Decimal `yaml:"oppCostXPercent"`
		Units                   decimal.Decimal `yaml:"units"`
	} `yaml:"options"`

	RateMethod       string             `yaml:"rateMethod"`
	RateUserValues   [4]decimal.Decimal `yaml:"rateUserValues"`
	RateHistoricalFrom int             `yaml:"rateHistoricalFrom"`
	RateHistoricalTo   int             `yaml:"rateHistoricalTo"`
	RateMeans        [4]decimal.Decimal `yaml:"rateMeans"`
	RateStdDevs      [4]decimal.Decimal `yaml:"rateStdDevs"`
	RateCorrelation  []decimal.Decimal  `yaml:"rateCorrelation"`
	RateSeed         int64              `yaml:"rateSeed"`
	RateReproducible bool               `yaml:"rateReproducible"`
}

// allocationFile is one account's start/end allocation percentages plus
// interpolation method, in IndexMap asset-class order.
type allocationFile struct {
	Start  [4]decimal.Decimal `yaml:"start"`
	End    [4]decimal.Decimal `yaml:"end"`
	Method string             `yaml:"method"` // "linear" (default) or "tanh"
	Center decimal.Decimal    `yaml:"center"` // tanh inflection year; defaults to 15
	Width  decimal.Decimal    `yaml:"width"`
}

func (af allocationFile) toBounds() (domain.AllocationBounds, error) {
	ab := domain.AllocationBounds{
		Start:  af.Start,
		End:    af.End,
		Center: af.Center,
		Width:  af.Width,
	}
	switch af.Method {
	case "tanh":
		ab.Method = domain.AllocationTanh
	case "", "linear":
		ab.Method = domain.AllocationLinear
	default:
		return ab, domain.NewConfigError("allocations.method", "unknown interpolation method %q (want linear or tanh)", af.Method)
	}
	return ab, nil
}

// contributionRowFile is one calendar year's contribution-table row.
type contributionRowFile struct {
	Year             int             `yaml:"year"`
	AnticipatedWages decimal.Decimal `yaml:"anticipatedWages"`
	OtherIncome      decimal.Decimal `yaml:"otherIncome"`
	TaxableContrib   decimal.Decimal `yaml:"taxableContrib"`
	Contrib401k      decimal.Decimal `yaml:"contrib401k"`
	ContribRoth401k  decimal.Decimal `yaml:"contribRoth401k"`
	ContribIRA       decimal.Decimal `yaml:"contribIRA"`
	ContribRothIRA   decimal.Decimal `yaml:"contribRothIRA"`
	RothConversion   decimal.Decimal `yaml:"rothConversion"`
	BigTicketItems   decimal.Decimal `yaml:"bigTicketItems"`
}

func (r contributionRowFile) toRow() domain.ContributionRow {
	return domain.ContributionRow{
		Year:             r.Year,
		AnticipatedWages: r.AnticipatedWages,
		OtherIncome:      r.OtherIncome,
		TaxableContrib:   r.TaxableContrib,
		Contrib401k:      r.Contrib401k,
		ContribRoth401k:  r.ContribRoth401k,
		ContribIRA:       r.ContribIRA,
		ContribRothIRA:   r.ContribRothIRA,
		RothConversion:   r.RothConversion,
		BigTicketItems:   r.BigTicketItems,
	}
}

// fillContributionRows zero-fills every year in
// currentYear-5..currentYear+horizonYears-1 missing from rows; the 5
// trailing historical years feed the Roth-maturation lookback.
func fillContributionRows(rows []contributionRowFile, currentYear, horizonYears int) []domain.ContributionRow {
	byYear := make(map[int]domain.ContributionRow, len(rows))
	for _, r := range rows {
		byYear[r.Year] = r.toRow()
	}
	out := make([]domain.ContributionRow, 0, horizonYears+5)
	for year := currentYear - 5; year < currentYear+horizonYears; year++ {
		if row, ok := byYear[year]; ok {
			out = append(out, row)
		} else {
			out = append(out, domain.ContributionRow{Year: year})
		}
	}
	return out
}

func (pf *planFile) toPlan() (*domain.Plan, error) {
	p := &domain.Plan{}

	p.Household.CurrentYear = pf.CurrentYear
	p.Household.StartDate = parseDate(pf.StartDate)
	p.Household.SurvivorSpendingFraction = pf.SurvivorSpendingFraction
	p.Household.BeneficiaryTransferFraction = pf.BeneficiaryTransferFraction
	p.Household.SurplusSplitEta = pf.SurplusSplitEta
	p.Household.HeirsTaxRate = pf.HeirsTaxRate
	p.Household.DividendYield = pf.DividendYield

	for _, ind := range pf.Individuals {
		p.Household.Individuals = append(p.Household.Individuals, domain.Individual{
			Name:              ind.Name,
			BirthDate:         parseDate(ind.BirthDate),
			LifeExpectancyYrs: ind.LifeExpectancyYrs,
			PensionMonthly:    ind.PensionMonthly,
			PensionClaimAge:   ind.PensionClaimAge,
			PensionIndexed:    ind.PensionIndexed,
			SSBenefitPIA:      ind.SSBenefitPIA,
			SSClaimAge:        ind.SSClaimAge,
		})
	}

	for _, bal := range pf.Balances {
		p.Balances = append(p.Balances, domain.Balances{
			Taxable:     bal.Taxable,
			TaxDeferred: bal.TaxDeferred,
			TaxFree:     bal.TaxFree,
		})
	}

	for _, a := range pf.Allocations {
		var bounds [domain.NumAccountTypes]domain.AllocationBounds
		var err error
		if bounds[domain.AccountTaxable], err = a.Taxable.toBounds(); err != nil {
			return nil, err
		}
		if bounds[domain.AccountDeferred], err = a.TaxDeferred.toBounds(); err != nil {
			return nil, err
		}
		if bounds[domain.AccountTaxFree], err = a.TaxFree.toBounds(); err != nil {
			return nil, err
		}
		p.Allocations = append(p.Allocations, bounds)
	}

	switch pf.Profile.Kind {
	case "smile":
		p.Profile = domain.ProfileSmile
		p.SmileParams = domain.SmileParams{
			A: pf.Profile.A,
			B: pf.Profile.B,
			S: pf.Profile.S,
			C: pf.Profile.C,
		}
	case "", "flat":
		p.Profile = domain.ProfileFlat
	default:
		return nil, domain.NewConfigError("profile.kind", "unknown profile %q (want flat or smile)", pf.Profile.Kind)
	}

	horizonYears := p.Horizon()
	p.Contributions = make([][]domain.ContributionRow, len(pf.Individuals))
	p.BigTicketItems = make([][]decimal.Decimal, len(pf.Individuals))
	for i := range pf.Individuals {
		var rows []contributionRowFile
		if i < len(pf.Contributions) {
			rows = pf.Contributions[i]
		}
		p.Contributions[i] = fillContributionRows(rows, pf.CurrentYear, horizonYears)
		items := make([]decimal.Decimal, len(p.Contributions[i]))
		for n, r := range p.Contributions[i] {
			items[n] = r.BigTicketItems
		}
		p.BigTicketItems[i] = items
	}

	p.FixedAssets = domain.FixedAssetStreams{
		TaxFree:      pf.FixedAssets.TaxFree,
		Ordinary:     pf.FixedAssets.Ordinary,
		CapitalGains: pf.FixedAssets.CapitalGains,
		DebtPayments: pf.FixedAssets.DebtPayments,
		ResidualDebt: pf.FixedAssets.ResidualDebt,
		BequestValue: pf.FixedAssets.BequestValue,
	}

	switch pf.Objective {
	case "spending":
		p.Objective = domain.ObjectiveMaxSpending
	case "bequest":
		p.Objective = domain.ObjectiveMaxBequest
	default:
		return nil, domain.NewConfigError("objective", "unknown objective %q (want spending or bequest)", pf.Objective)
	}

	p.Options = domain.Options{
		MaxRothConversion:        pf.Options.MaxRothConversion,
		NoRothConversionsFor:     pf.Options.NoRothConversionsFor,
		StartRothConversionsYear: pf.Options.StartRothConversionsYear,
		NetSpending:              pf.Options.NetSpending,
		Bequest:                  pf.Options.Bequest,
		WithSCLoop:               pf.Options.WithSCLoop,
		SpendingSlackPercent:     pf.Options.SpendingSlackPercent,
		XORConstraints:           pf.Options.XORConstraints,
		BigM:                     pf.Options.BigM,
		OppCostXPercent:          pf.Options.OppCostXPercent,
		Units:                    pf.Options.Units,
	}
	if p.Options.Units.IsZero() {
		p.Options.Units = decimal.NewFromInt(1)
	}

	switch pf.Options.RothControl {
	case "pinned":
		p.Options.RothControl = domain.RothConversionPinned
	case "capped":
		p.Options.RothControl = domain.RothConversionCapped
	case "zeroFor":
		p.Options.RothControl = domain.RothConversionZeroFor
	case "delayedStart":
		p.Options.RothControl = domain.RothConversionDelayedStart
	case "", "free":
		p.Options.RothControl = domain.RothConversionFree
	default:
		return nil, domain.NewConfigError("options.rothControl", "unknown value %q (want free, pinned, capped, zeroFor or delayedStart)", pf.Options.RothControl)
	}

	switch pf.Options.Medicare {
	case "loop":
		p.Options.Medicare = domain.MedicareLoop
	case "optimize":
		p.Options.Medicare = domain.MedicareOptimize
	case "", "none":
		p.Options.Medicare = domain.MedicareNone
	default:
		return nil, domain.NewConfigError("options.medicare", "unknown value %q (want none, loop or optimize)", pf.Options.Medicare)
	}

	method, err := rateMethodFromString(pf.RateMethod)
	if err != nil {
		return nil, err
	}
	p.RateParams = domain.RateParams{
		Method:          method,
		UserValues:      pf.RateUserValues,
		HistoricalFrom:  pf.RateHistoricalFrom,
		HistoricalTo:    pf.RateHistoricalTo,
		StochasticMeans: pf.RateMeans,
		StochasticStd:   pf.RateStdDevs,
		Correlation:     pf.RateCorrelation,
		Seed:            pf.RateSeed,
		Reproducible:    pf.RateReproducible,
	}

	return p, nil
}

func rateMethodFromString(s string) (domain.RateMethod, error) {
	switch s {
	case "", "default":
		return domain.RateDefault, nil
	case "optimistic":
		return domain.RateOptimistic, nil
	case "conservative":
		return domain.RateConservative, nil
	case "user":
		return domain.RateUser, nil
	case "historical":
		return domain.RateHistorical, nil
	case "historicalAverage":
		return domain.RateHistoricalAverage, nil
	case "histochastic":
		return domain.RateHistochastic, nil
	case "stochastic":
		return domain.RateStochastic, nil
	case "dataframe":
		return domain.RateDataframe, nil
	default:
		return domain.RateDefault, domain.NewConfigError("rateMethod", "unknown rate method %q", s)
	}
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Validate checks the raw YAML shape for the caller-input mistakes that
// would otherwise surface as a confusing solver failure instead of a
// clear configuration error.
func (ip *InputParser) Validate(pf *planFile) error {
	if len(pf.Individuals) == 0 {
		return domain.NewConfigError("individuals", "at least one individual is required")
	}
	if len(pf.Individuals) > 2 {
		return domain.NewConfigError("individuals", "at most two individuals (single or married) are supported")
	}
	if len(pf.Balances) != len(pf.Individuals) {
		return domain.NewConfigError("balances", "one balances entry is required per individual")
	}
	for i, ind := range pf.Individuals {
		if ind.Name == "" {
			return domain.NewConfigError(fmt.Sprintf("individuals[%d].name", i), "name is required")
		}
		if parseDate(ind.BirthDate).IsZero() {
			return domain.NewConfigError(fmt.Sprintf("individuals[%d].birthDate", i), "birthDate must be YYYY-MM-DD")
		}
		if ind.LifeExpectancyYrs <= 0 {
			return domain.NewConfigError(fmt.Sprintf("individuals[%d].lifeExpectancyYears", i), "must be positive")
		}
		if ind.SSClaimAge != 0 && (ind.SSClaimAge < 62 || ind.SSClaimAge > 70) {
			return domain.NewConfigError(fmt.Sprintf("individuals[%d].ssClaimAge", i), "must be in [62,70]")
		}
	}
	if parseDate(pf.StartDate).IsZero() {
		return domain.NewConfigError("startDate", "must be YYYY-MM-DD")
	}
	if pf.Options.SpendingSlackPercent.IsNegative() || pf.Options.SpendingSlackPercent.GreaterThan(decimal.NewFromInt(50)) {
		return domain.NewConfigError("options.spendingSlackPercent", "must be in [0,50]")
	}
	if len(pf.Allocations) != len(pf.Individuals) {
		return domain.NewConfigError("allocations", "one allocations entry is required per individual")
	}
	if len(pf.Individuals) == 2 {
		y0 := parseDate(pf.Individuals[0].BirthDate).Year()
		y1 := parseDate(pf.Individuals[1].BirthDate).Year()
		if abs(y0-y1) > 10 {
			return domain.NewConfigError("individuals", "spousal age gap of more than 10 years is not supported for RMD purposes")
		}
	}
	for i, ind := range pf.Individuals {
		if ind.LifeExpectancyYrs > 120 {
			return domain.NewConfigError(fmt.Sprintf("individuals[%d].lifeExpectancyYears", i), "implies a lifespan over 120 years")
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
