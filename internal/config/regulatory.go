package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// regulatoryFile is the on-disk shape of a regulatory.yaml schedule:
// the tax bracket regimes, Medicare/IRMAA tiers, RMD table and NIIT/LTCG
// parameters, kept separate from the scenario file so the
// government-published numbers can be updated without touching a
// household's own plan.
type regulatoryFile struct {
	CurrentRegime        regimeFile `yaml:"currentRegime"`
	PostExpirationRegime regimeFile `yaml:"postExpirationRegime"`
	YearOBBBA            int        `yaml:"yearOBBBA"`
	BonusExpirationYear  int        `yaml:"bonusExpirationYear"`

	SeniorExtraDeduction decimal.Decimal `yaml:"seniorExtraDeduction"`
	Bonus65Amount        decimal.Decimal `yaml:"bonus65Amount"`
	Bonus65PhaseOutRate  decimal.Decimal `yaml:"bonus65PhaseOutRate"`
	Bonus65Threshold     decimal.Decimal `yaml:"bonus65Threshold"`

	RMDTable    []decimal.Decimal `yaml:"rmdTable"`
	RMDStartAge int               `yaml:"rmdStartAge"`

	Medicare medicareFile `yaml:"medicare"`
	NIIT     niitFile     `yaml:"niit"`
	LTCG     ltcgFile     `yaml:"ltcg"`
}

type regimeFile struct {
	StandardDeduction decimal.Decimal    `yaml:"standardDeduction"`
	BracketWidths     []decimal.Decimal `yaml:"bracketWidths"`
	BracketRates      []decimal.Decimal `yaml:"bracketRates"`
}

type medicareFile struct {
	BasePremiumMonthly decimal.Decimal   `yaml:"basePremiumMonthly"`
	TierThresholds     []decimal.Decimal `yaml:"tierThresholds"`
	TierMonthlyCosts   []decimal.Decimal `yaml:"tierMonthlyCosts"`
}

type niitFile struct {
	Rate             decimal.Decimal `yaml:"rate"`
	ThresholdSingle  decimal.Decimal `yaml:"thresholdSingle"`
	ThresholdMarried decimal.Decimal `yaml:"thresholdMarried"`
}

type ltcgFile struct {
	ThresholdsSingle  []decimal.Decimal `yaml:"thresholdsSingle"`
	ThresholdsMarried []decimal.Decimal `yaml:"thresholdsMarried"`
	Rates             []decimal.Decimal `yaml:"rates"`
}

// LoadRegulatoryConfig reads filename and returns the TaxScheduleParams
// the calculation engine needs, independent of any one scenario.
func (ip *InputParser) LoadRegulatoryConfig(filename string) (*domain.TaxScheduleParams, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read regulatory file %s: %w", filename, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var rf regulatoryFile
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("config: parse regulatory YAML: %w", err)
	}

	if err := validateRegulatoryConfig(&rf); err != nil {
		return nil, fmt.Errorf("config: regulatory validation failed: %w", err)
	}

	return rf.toParams(), nil
}

// LoadFromFileWithRegulatory loads a scenario file and a regulatory
// schedule file and returns a fully-populated Plan.
func (ip *InputParser) LoadFromFileWithRegulatory(scenarioFile, regulatoryFile string) (*domain.Plan, error) {
	plan, err := ip.LoadFromFile(scenarioFile)
	if err != nil {
		return nil, err
	}
	params, err := ip.LoadRegulatoryConfig(regulatoryFile)
	if err != nil {
		return nil, err
	}
	plan.TaxParams = *params
	return plan, nil
}

func (rf *regulatoryFile) toParams() *domain.TaxScheduleParams {
	p := &domain.TaxScheduleParams{
		CurrentRegime:        rf.CurrentRegime.toRegime(),
		PostExpirationRegime: rf.PostExpirationRegime.toRegime(),
		YearOBBBA:            rf.YearOBBBA,
		BonusExpirationYear:  rf.BonusExpirationYear,
		SeniorExtraDeduction: rf.SeniorExtraDeduction,
		Bonus65Amount:        rf.Bonus65Amount,
		Bonus65PhaseOutRate:  rf.Bonus65PhaseOutRate,
		Bonus65Threshold:     rf.Bonus65Threshold,
		RMDTable:             rf.RMDTable,
		RMDStartAge:          rf.RMDStartAge,
	}

	for i := 0; i < domain.NumMedicareTiers-1 && i < len(rf.Medicare.TierThresholds); i++ {
		p.Medicare.TierThresholds[i] = rf.Medicare.TierThresholds[i]
	}
	for i := 0; i < domain.NumMedicareTiers && i < len(rf.Medicare.TierMonthlyCosts); i++ {
		p.Medicare.TierMonthlyCosts[i] = rf.Medicare.TierMonthlyCosts[i]
	}
	p.Medicare.BasePremiumMonthly = rf.Medicare.BasePremiumMonthly

	p.NIIT = domain.NIITParams{
		Rate:             rf.NIIT.Rate,
		ThresholdSingle:  rf.NIIT.ThresholdSingle,
		ThresholdMarried: rf.NIIT.ThresholdMarried,
	}

	for i := 0; i < 2 && i < len(rf.LTCG.ThresholdsSingle); i++ {
		p.LTCG.ThresholdsSingle[i] = rf.LTCG.ThresholdsSingle[i]
	}
	for i := 0; i < 2 && i < len(rf.LTCG.ThresholdsMarried); i++ {
		p.LTCG.ThresholdsMarried[i] = rf.LTCG.ThresholdsMarried[i]
	}
	for i := 0; i < 3 && i < len(rf.LTCG.Rates); i++ {
		p.LTCG.Rates[i] = rf.LTCG.Rates[i]
	}

	return p
}

func (r regimeFile) toRegime() domain.TaxRegime {
	var tr domain.TaxRegime
	tr.StandardDeduction = r.StandardDeduction
	for i := 0; i < domain.NumTaxBrackets && i < len(r.BracketWidths); i++ {
		tr.BracketWidths[i] = r.BracketWidths[i]
	}
	for i := 0; i < domain.NumTaxBrackets && i < len(r.BracketRates); i++ {
		tr.BracketRates[i] = r.BracketRates[i]
	}
	return tr
}

func validateRegulatoryConfig(rf *regulatoryFile) error {
	if len(rf.CurrentRegime.BracketRates) == 0 {
		return domain.NewConfigError("currentRegime.bracketRates", "at least one tax bracket is required")
	}
	if rf.NIIT.Rate.IsNegative() {
		return domain.NewConfigError("niit.rate", "must not be negative")
	}
	if len(rf.LTCG.Rates) != 3 {
		return domain.NewConfigError("ltcg.rates", "exactly three LTCG rates are required")
	}
	if len(rf.LTCG.ThresholdsSingle) != 2 {
		return domain.NewConfigError("ltcg.thresholdsSingle", "exactly two LTCG thresholds are required")
	}
	if len(rf.LTCG.ThresholdsMarried) != 2 {
		return domain.NewConfigError("ltcg.thresholdsMarried", "exactly two LTCG thresholds are required")
	}
	return nil
}
