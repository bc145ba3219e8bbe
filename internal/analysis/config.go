package analysis

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/brfinsikt/brf-helper/internal/config"
)

// DefaultConfig returns the built-in scoring rule set. Thresholds come
// from experience with Swedish BRF annual reports: solvency below 5% or
// a debt-to-equity ratio above 3.0 is near-distress territory, while
// interest costs above 40 000 SEK per apartment and year leave members
// badly exposed to rate moves.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Version: "v2.0",

		FinancialStabilityWeight:   0.25,
		CostEfficiencyWeight:       0.15,
		LiquidityWeight:            0.20,
		DebtManagementWeight:       0.20,
		MaintenanceReadinessWeight: 0.10,
		FeeDevelopmentWeight:       0.10,

		SolvencyCriticalPct: 5,
		SolvencyHighPct:     10,
		SolvencyMediumPct:   15,

		OperatingResultCritical: -500_000,
		OperatingResultHigh:     -100_000,
		AnnualResultHigh:        -1_000_000,

		CashFlowCritical: -500_000,
		CashFlowHigh:     -200_000,

		InterestPerAptCritical: 40_000,
		InterestPerAptHigh:     25_000,
		InterestPerAptMedium:   15_000,

		DebtToEquityCritical: 3.0,
		DebtToEquityHigh:     2.0,
		DebtToEquityMedium:   1.5,

		ReservesPerAptCritical: 10_000,
		ReservesPerAptLow:      20_000,

		MonthlyFeeMedium: 60,
		MonthlyFeeHigh:   70,

		BuildingAgeOld:     60,
		BuildingAgeVeryOld: 80,
	}
}

// ValidateConfig rejects rule sets that would make scoring or flag
// detection incoherent. A bad rule set is the one fatal input error:
// everything else degrades to partial results.
func ValidateConfig(cfg config.ScoringConfig) error {
	if cfg.Version == "" {
		return eris.New("analysis: scoring config has no version")
	}

	sum := cfg.FinancialStabilityWeight + cfg.CostEfficiencyWeight +
		cfg.LiquidityWeight + cfg.DebtManagementWeight +
		cfg.MaintenanceReadinessWeight + cfg.FeeDevelopmentWeight
	if math.Abs(sum-1.0) > 0.001 {
		return eris.Errorf("analysis: sub-score weights sum to %.4f, want 1.0", sum)
	}

	for _, w := range []float64{
		cfg.FinancialStabilityWeight, cfg.CostEfficiencyWeight,
		cfg.LiquidityWeight, cfg.DebtManagementWeight,
		cfg.MaintenanceReadinessWeight, cfg.FeeDevelopmentWeight,
	} {
		if w < 0 {
			return eris.New("analysis: negative sub-score weight")
		}
	}

	if !(cfg.SolvencyCriticalPct < cfg.SolvencyHighPct && cfg.SolvencyHighPct < cfg.SolvencyMediumPct) {
		return eris.New("analysis: solvency thresholds out of order")
	}
	if !(cfg.OperatingResultCritical < cfg.OperatingResultHigh) {
		return eris.New("analysis: operating result thresholds out of order")
	}
	if !(cfg.CashFlowCritical < cfg.CashFlowHigh) {
		return eris.New("analysis: cash flow thresholds out of order")
	}
	if !(cfg.InterestPerAptMedium < cfg.InterestPerAptHigh && cfg.InterestPerAptHigh < cfg.InterestPerAptCritical) {
		return eris.New("analysis: interest per apartment thresholds out of order")
	}
	if !(cfg.DebtToEquityMedium < cfg.DebtToEquityHigh && cfg.DebtToEquityHigh < cfg.DebtToEquityCritical) {
		return eris.New("analysis: debt-to-equity thresholds out of order")
	}
	if !(cfg.ReservesPerAptCritical < cfg.ReservesPerAptLow) {
		return eris.New("analysis: reserve thresholds out of order")
	}
	if !(cfg.MonthlyFeeMedium < cfg.MonthlyFeeHigh) {
		return eris.New("analysis: monthly fee thresholds out of order")
	}
	if !(cfg.BuildingAgeOld < cfg.BuildingAgeVeryOld) {
		return eris.New("analysis: building age thresholds out of order")
	}

	return nil
}
