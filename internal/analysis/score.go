package analysis

import (
	"math"

	"github.com/brfinsikt/brf-helper/internal/config"
	"github.com/brfinsikt/brf-helper/internal/model"
)

// The scoring engine maps raw report metrics to six sub-scores and a
// weighted overall score, all integers in [0,100]. Every factor is a
// band lookup over one ratio or amount; a sub-score is the mean of the
// factors that could actually be evaluated. Missing inputs skip the
// factor, they never count as zero.

// solvencyPct prefers the ratio stated in the report and falls back to
// equity over total assets.
func solvencyPct(m *model.MetricsRecord) (float64, bool) {
	if m.SolvencyRatio != nil {
		return *m.SolvencyRatio, true
	}
	if m.Equity != nil && m.TotalAssets != nil && *m.TotalAssets > 0 {
		return *m.Equity / *m.TotalAssets * 100, true
	}
	return 0, false
}

func solvencyScore(m *model.MetricsRecord) (float64, bool) {
	pct, ok := solvencyPct(m)
	if !ok {
		return 0, false
	}
	switch {
	case pct >= 40:
		return 100, true
	case pct >= 25:
		return 85, true
	case pct >= 15:
		return 65, true
	case pct >= 10:
		return 45, true
	case pct >= 5:
		return 25, true
	default:
		return 5, true
	}
}

func annualResultScore(m *model.MetricsRecord) (float64, bool) {
	if m.AnnualResult == nil {
		return 0, false
	}
	switch v := *m.AnnualResult; {
	case v >= 0:
		return 90, true
	case v >= -100_000:
		return 65, true
	case v >= -500_000:
		return 40, true
	default:
		return 10, true
	}
}

func operatingResultScore(m *model.MetricsRecord) (float64, bool) {
	if m.OperatingResult == nil {
		return 0, false
	}
	switch v := *m.OperatingResult; {
	case v >= 0:
		return 85, true
	case v >= -100_000:
		return 50, true
	case v >= -500_000:
		return 30, true
	default:
		return 10, true
	}
}

func expenseRatioScore(m *model.MetricsRecord) (float64, bool) {
	if m.TotalExpenses == nil || m.TotalIncome == nil || *m.TotalIncome <= 0 {
		return 0, false
	}
	switch ratio := *m.TotalExpenses / *m.TotalIncome; {
	case ratio <= 0.85:
		return 90, true
	case ratio <= 0.95:
		return 70, true
	case ratio <= 1.0:
		return 50, true
	case ratio <= 1.1:
		return 30, true
	default:
		return 10, true
	}
}

func feeLevelScore(m *model.MetricsRecord) (float64, bool) {
	if m.MonthlyFeePerSqm == nil {
		return 0, false
	}
	switch fee := *m.MonthlyFeePerSqm; {
	case fee <= 40:
		return 95, true
	case fee <= 50:
		return 75, true
	case fee <= 60:
		return 55, true
	case fee <= 70:
		return 35, true
	default:
		return 15, true
	}
}

func cashFlowScore(m *model.MetricsRecord) (float64, bool) {
	cf := m.CashFlow
	if cf == nil {
		cf = m.CashFlowOperations
	}
	if cf == nil {
		return 0, false
	}
	switch v := *cf; {
	case v >= 0:
		return 85, true
	case v >= -200_000:
		return 50, true
	case v >= -500_000:
		return 30, true
	default:
		return 10, true
	}
}

// liquidityBufferScore measures how many months of expenses the liquid
// assets cover.
func liquidityBufferScore(m *model.MetricsRecord) (float64, bool) {
	if m.LiquidAssets == nil || m.TotalExpenses == nil || *m.TotalExpenses <= 0 {
		return 0, false
	}
	switch months := *m.LiquidAssets / (*m.TotalExpenses / 12); {
	case months >= 6:
		return 95, true
	case months >= 3:
		return 75, true
	case months >= 1:
		return 50, true
	default:
		return 20, true
	}
}

func quickRatioScore(m *model.MetricsRecord) (float64, bool) {
	if m.LiquidAssets == nil || m.CurrentLiabilities == nil || *m.CurrentLiabilities <= 0 {
		return 0, false
	}
	switch ratio := *m.LiquidAssets / *m.CurrentLiabilities; {
	case ratio >= 1.5:
		return 95, true
	case ratio >= 1.0:
		return 75, true
	case ratio >= 0.5:
		return 45, true
	default:
		return 15, true
	}
}

func debtToEquityScore(m *model.MetricsRecord) (float64, bool) {
	if m.TotalDebt == nil || m.Equity == nil {
		return 0, false
	}
	// Negative or zero equity with debt outstanding is the worst band
	// regardless of the (undefined) ratio.
	if *m.Equity <= 0 {
		return 5, true
	}
	switch ratio := *m.TotalDebt / *m.Equity; {
	case ratio <= 0.5:
		return 95, true
	case ratio <= 1.0:
		return 80, true
	case ratio <= 1.5:
		return 60, true
	case ratio <= 2.0:
		return 40, true
	case ratio <= 3.0:
		return 20, true
	default:
		return 5, true
	}
}

func interestBurdenScore(m *model.MetricsRecord) (float64, bool) {
	if m.InterestCosts == nil || m.TotalIncome == nil || *m.TotalIncome <= 0 {
		return 0, false
	}
	switch burden := math.Abs(*m.InterestCosts) / *m.TotalIncome; {
	case burden <= 0.05:
		return 90, true
	case burden <= 0.10:
		return 70, true
	case burden <= 0.15:
		return 50, true
	case burden <= 0.25:
		return 30, true
	default:
		return 10, true
	}
}

func reserves(m *model.MetricsRecord) *float64 {
	if m.MaintenanceReserves != nil {
		return m.MaintenanceReserves
	}
	return m.RenovationFund
}

func reservesPerAptScore(m *model.MetricsRecord) (float64, bool) {
	r := reserves(m)
	if r == nil || m.NumApartments == nil || *m.NumApartments <= 0 {
		return 0, false
	}
	switch perApt := *r / float64(*m.NumApartments); {
	case perApt >= 100_000:
		return 95, true
	case perApt >= 50_000:
		return 75, true
	case perApt >= 20_000:
		return 55, true
	case perApt >= 10_000:
		return 35, true
	default:
		return 15, true
	}
}

func buildingAgeScore(m *model.MetricsRecord) (float64, bool) {
	if m.BuildingYear == nil || m.ReportYear == nil {
		return 0, false
	}
	age := *m.ReportYear - *m.BuildingYear
	if age < 0 {
		return 0, false
	}
	switch {
	case age < 30:
		return 90, true
	case age < 60:
		return 70, true
	case age < 80:
		return 45, true
	default:
		return 25, true
	}
}

// priorRecord returns the history record for the latest year strictly
// before the current record's year, or nil.
func priorRecord(m *model.MetricsRecord, history []model.MetricsRecord) *model.MetricsRecord {
	if m.ReportYear == nil {
		return nil
	}
	var best *model.MetricsRecord
	for i := range history {
		h := &history[i]
		if h.ReportYear == nil || *h.ReportYear >= *m.ReportYear {
			continue
		}
		if best == nil || *h.ReportYear > *best.ReportYear {
			best = h
		}
	}
	return best
}

// feeTrendScore bands the year-over-year change of the monthly fee.
// Flat or falling fees score best; sharp raises signal an association
// chasing costs it did not plan for.
func feeTrendScore(m *model.MetricsRecord, history []model.MetricsRecord) (float64, bool) {
	if m.MonthlyFeePerSqm == nil {
		return 0, false
	}
	prev := priorRecord(m, history)
	if prev == nil || prev.MonthlyFeePerSqm == nil || *prev.MonthlyFeePerSqm <= 0 {
		return 0, false
	}
	switch change := (*m.MonthlyFeePerSqm - *prev.MonthlyFeePerSqm) / *prev.MonthlyFeePerSqm * 100; {
	case change <= 0:
		return 90, true
	case change <= 3:
		return 75, true
	case change <= 7:
		return 55, true
	case change <= 12:
		return 35, true
	default:
		return 15, true
	}
}

func resultTrendScore(m *model.MetricsRecord, history []model.MetricsRecord) (float64, bool) {
	if m.AnnualResult == nil {
		return 0, false
	}
	prev := m.AnnualResultPrevYear
	if prev == nil {
		if p := priorRecord(m, history); p != nil {
			prev = p.AnnualResult
		}
	}
	if prev == nil {
		return 0, false
	}
	if *m.AnnualResult >= *prev {
		return 80, true
	}
	return 40, true
}

type factor func(*model.MetricsRecord) (float64, bool)

// subScore averages the factors that evaluated; nil when none did.
func subScore(m *model.MetricsRecord, factors ...factor) *int {
	sum, n := 0.0, 0
	for _, f := range factors {
		if v, ok := f(m); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return model.Int(clampScore(sum / float64(n)))
}

func clampScore(v float64) int {
	s := int(math.Round(v))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// ComputeScores produces the six sub-scores and the overall score for
// one metrics record. The overall score is the weighted mean over the
// sub-scores that are present, with the weights renormalized; fewer
// than two present sub-scores yield no overall score.
func ComputeScores(m *model.MetricsRecord, history []model.MetricsRecord, cfg config.ScoringConfig) model.HealthScore {
	h := model.HealthScore{
		FinancialStability:   subScore(m, solvencyScore, annualResultScore, operatingResultScore),
		CostEfficiency:       subScore(m, expenseRatioScore, feeLevelScore),
		Liquidity:            subScore(m, cashFlowScore, liquidityBufferScore, quickRatioScore),
		DebtManagement:       subScore(m, solvencyScore, debtToEquityScore, interestBurdenScore),
		MaintenanceReadiness: subScore(m, reservesPerAptScore, buildingAgeScore),
	}

	feeSum, feeN := 0.0, 0
	if v, ok := feeTrendScore(m, history); ok {
		feeSum += v
		feeN++
	}
	if v, ok := resultTrendScore(m, history); ok {
		feeSum += v
		feeN++
	}
	if feeN > 0 {
		h.FeeDevelopment = model.Int(clampScore(feeSum / float64(feeN)))
	}

	h.Overall = overall(h, cfg)
	return h
}

func overall(h model.HealthScore, cfg config.ScoringConfig) *int {
	type weighted struct {
		score  *int
		weight float64
	}
	parts := []weighted{
		{h.FinancialStability, cfg.FinancialStabilityWeight},
		{h.CostEfficiency, cfg.CostEfficiencyWeight},
		{h.Liquidity, cfg.LiquidityWeight},
		{h.DebtManagement, cfg.DebtManagementWeight},
		{h.MaintenanceReadiness, cfg.MaintenanceReadinessWeight},
		{h.FeeDevelopment, cfg.FeeDevelopmentWeight},
	}

	sum, weightSum, present := 0.0, 0.0, 0
	for _, p := range parts {
		if p.score == nil {
			continue
		}
		sum += float64(*p.score) * p.weight
		weightSum += p.weight
		present++
	}
	if present < 2 || weightSum <= 0 {
		return nil
	}
	return model.Int(clampScore(sum / weightSum))
}

// RiskFromOverall maps the overall score to a base risk level. Flag
// escalation in the aggregator can only raise it, never lower it.
func RiskFromOverall(overall *int) model.RiskLevel {
	if overall == nil {
		return model.RiskInsufficientData
	}
	switch v := *overall; {
	case v >= 85:
		return model.RiskMinimal
	case v >= 70:
		return model.RiskLow
	case v >= 50:
		return model.RiskModerate
	case v >= 30:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}
