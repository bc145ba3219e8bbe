package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ScoringConfig is the versioned rule table for health scoring and red
// flag detection: the sub-score weights and the literal thresholds the
// band logic and flag predicates evaluate against. It is passed into
// the analysis engine at call time so that several rule versions can
// coexist side by side.
//
// Version is an opaque cache-invalidation key: any change to weights
// or thresholds must ship with a new Version.
type ScoringConfig struct {
	Version string `yaml:"version" mapstructure:"version"`

	// Sub-score weights. Renormalized over present sub-scores; the
	// nominal sum is 1.0.
	FinancialStabilityWeight   float64 `yaml:"financial_stability_weight" mapstructure:"financial_stability_weight"`
	CostEfficiencyWeight       float64 `yaml:"cost_efficiency_weight" mapstructure:"cost_efficiency_weight"`
	LiquidityWeight            float64 `yaml:"liquidity_weight" mapstructure:"liquidity_weight"`
	DebtManagementWeight       float64 `yaml:"debt_management_weight" mapstructure:"debt_management_weight"`
	MaintenanceReadinessWeight float64 `yaml:"maintenance_readiness_weight" mapstructure:"maintenance_readiness_weight"`
	FeeDevelopmentWeight       float64 `yaml:"fee_development_weight" mapstructure:"fee_development_weight"`

	// Solvency bands (percent). Critical < High < Medium.
	SolvencyCriticalPct float64 `yaml:"solvency_critical_pct" mapstructure:"solvency_critical_pct"`
	SolvencyHighPct     float64 `yaml:"solvency_high_pct" mapstructure:"solvency_high_pct"`
	SolvencyMediumPct   float64 `yaml:"solvency_medium_pct" mapstructure:"solvency_medium_pct"`

	// Result thresholds (SEK, negative).
	OperatingResultCritical float64 `yaml:"operating_result_critical" mapstructure:"operating_result_critical"`
	OperatingResultHigh     float64 `yaml:"operating_result_high" mapstructure:"operating_result_high"`
	AnnualResultHigh        float64 `yaml:"annual_result_high" mapstructure:"annual_result_high"`

	// Cash-flow thresholds (SEK, negative).
	CashFlowCritical float64 `yaml:"cash_flow_critical" mapstructure:"cash_flow_critical"`
	CashFlowHigh     float64 `yaml:"cash_flow_high" mapstructure:"cash_flow_high"`

	// Interest cost per apartment per year (SEK).
	InterestPerAptCritical float64 `yaml:"interest_per_apt_critical" mapstructure:"interest_per_apt_critical"`
	InterestPerAptHigh     float64 `yaml:"interest_per_apt_high" mapstructure:"interest_per_apt_high"`
	InterestPerAptMedium   float64 `yaml:"interest_per_apt_medium" mapstructure:"interest_per_apt_medium"`

	// Debt-to-equity ratio bands. Medium < High < Critical.
	DebtToEquityCritical float64 `yaml:"debt_to_equity_critical" mapstructure:"debt_to_equity_critical"`
	DebtToEquityHigh     float64 `yaml:"debt_to_equity_high" mapstructure:"debt_to_equity_high"`
	DebtToEquityMedium   float64 `yaml:"debt_to_equity_medium" mapstructure:"debt_to_equity_medium"`

	// Reserves per apartment (SEK). Critical < Low.
	ReservesPerAptCritical float64 `yaml:"reserves_per_apt_critical" mapstructure:"reserves_per_apt_critical"`
	ReservesPerAptLow      float64 `yaml:"reserves_per_apt_low" mapstructure:"reserves_per_apt_low"`

	// Monthly fee per sqm (SEK/sqm/month). Medium < High.
	MonthlyFeeMedium float64 `yaml:"monthly_fee_medium" mapstructure:"monthly_fee_medium"`
	MonthlyFeeHigh   float64 `yaml:"monthly_fee_high" mapstructure:"monthly_fee_high"`

	// Building age (years). Old < VeryOld.
	BuildingAgeOld     int `yaml:"building_age_old" mapstructure:"building_age_old"`
	BuildingAgeVeryOld int `yaml:"building_age_very_old" mapstructure:"building_age_very_old"`
}

// LoadScoringRules reads a ScoringConfig from a YAML file.
func LoadScoringRules(path string) (ScoringConfig, error) {
	var cfg ScoringConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "config: read scoring rules %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, eris.Wrapf(err, "config: parse scoring rules %s", path)
	}

	return cfg, nil
}
