package analysis

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brfinsikt/brf-helper/internal/model"
)

func healthyRecord() *model.MetricsRecord {
	return &model.MetricsRecord{
		BRFID:                "brf-sund",
		ReportYear:           model.Int(2023),
		AnnualResult:         model.Float64(200_000),
		AnnualResultPrevYear: model.Float64(150_000),
		OperatingResult:      model.Float64(300_000),
		TotalIncome:          model.Float64(5_000_000),
		TotalExpenses:        model.Float64(4_000_000),
		InterestCosts:        model.Float64(-200_000),
		CashFlow:             model.Float64(100_000),
		LiquidAssets:         model.Float64(2_000_000),
		CurrentLiabilities:   model.Float64(1_000_000),
		TotalDebt:            model.Float64(10_000_000),
		Equity:               model.Float64(30_000_000),
		SolvencyRatio:        model.Float64(65),
		MonthlyFeePerSqm:     model.Float64(45),
		MaintenanceReserves:  model.Float64(3_000_000),
		NumApartments:        model.Int(40),
		BuildingYear:         model.Int(1995),
	}
}

func distressedRecord() *model.MetricsRecord {
	return &model.MetricsRecord{
		BRFID:           "brf-kris",
		ReportYear:      model.Int(2023),
		AnnualResult:    model.Float64(-800_000),
		OperatingResult: model.Float64(-600_000),
		CashFlow:        model.Float64(-600_000),
		TotalDebt:       model.Float64(9_000_000),
		Equity:          model.Float64(1_000_000),
		SolvencyRatio:   model.Float64(8),
	}
}

func TestComputeScoresHealthy(t *testing.T) {
	h := ComputeScores(healthyRecord(), nil, DefaultConfig())

	require.NotNil(t, h.FinancialStability)
	assert.Equal(t, 92, *h.FinancialStability)
	require.NotNil(t, h.CostEfficiency)
	assert.Equal(t, 83, *h.CostEfficiency)
	require.NotNil(t, h.Liquidity)
	assert.Equal(t, 92, *h.Liquidity)
	require.NotNil(t, h.DebtManagement)
	assert.Equal(t, 95, *h.DebtManagement)
	require.NotNil(t, h.MaintenanceReadiness)
	assert.Equal(t, 83, *h.MaintenanceReadiness)
	require.NotNil(t, h.FeeDevelopment)
	assert.Equal(t, 80, *h.FeeDevelopment)

	require.NotNil(t, h.Overall)
	assert.Equal(t, 89, *h.Overall)
	assert.Equal(t, model.RiskMinimal, RiskFromOverall(h.Overall))
}

func TestComputeScoresDistressed(t *testing.T) {
	h := ComputeScores(distressedRecord(), nil, DefaultConfig())

	require.NotNil(t, h.FinancialStability)
	assert.Equal(t, 15, *h.FinancialStability)
	require.NotNil(t, h.DebtManagement)
	assert.Equal(t, 15, *h.DebtManagement)

	require.NotNil(t, h.Overall)
	assert.Less(t, *h.Overall, 30)
	assert.Equal(t, model.RiskCritical, RiskFromOverall(h.Overall))
}

func TestComputeScoresEmptyRecord(t *testing.T) {
	h := ComputeScores(&model.MetricsRecord{BRFID: "brf-tom"}, nil, DefaultConfig())

	assert.Nil(t, h.FinancialStability)
	assert.Nil(t, h.CostEfficiency)
	assert.Nil(t, h.Liquidity)
	assert.Nil(t, h.DebtManagement)
	assert.Nil(t, h.MaintenanceReadiness)
	assert.Nil(t, h.FeeDevelopment)
	assert.Nil(t, h.Overall)
	assert.Equal(t, model.RiskInsufficientData, RiskFromOverall(h.Overall))
}

func TestComputeScoresSingleSubScoreHasNoOverall(t *testing.T) {
	m := &model.MetricsRecord{
		BRFID:         "brf-smal",
		SolvencyRatio: model.Float64(30),
	}
	h := ComputeScores(m, nil, DefaultConfig())

	require.NotNil(t, h.FinancialStability)
	require.NotNil(t, h.DebtManagement) // solvency feeds both
	assert.Nil(t, h.Overall)
}

func TestSolvencyMonotonic(t *testing.T) {
	prev := -1.0
	for _, pct := range []float64{2, 5, 8, 10, 14, 15, 24, 25, 39, 40, 80} {
		m := &model.MetricsRecord{SolvencyRatio: model.Float64(pct)}
		score, ok := solvencyScore(m)
		require.True(t, ok)
		assert.GreaterOrEqual(t, score, prev, "solvency %.0f%%", pct)
		prev = score
	}
}

func TestSolvencyDerivedFromBalanceSheet(t *testing.T) {
	m := &model.MetricsRecord{
		Equity:      model.Float64(4_000_000),
		TotalAssets: model.Float64(10_000_000),
	}
	pct, ok := solvencyPct(m)
	require.True(t, ok)
	assert.InDelta(t, 40.0, pct, 0.001)

	// A stated ratio wins over the derived one.
	m.SolvencyRatio = model.Float64(12)
	pct, _ = solvencyPct(m)
	assert.Equal(t, 12.0, pct)
}

func TestDebtToEquityNegativeEquity(t *testing.T) {
	m := &model.MetricsRecord{
		TotalDebt: model.Float64(5_000_000),
		Equity:    model.Float64(-200_000),
	}
	score, ok := debtToEquityScore(m)
	require.True(t, ok)
	assert.Equal(t, 5.0, score)
}

func TestZeroDenominatorsSkipFactors(t *testing.T) {
	m := &model.MetricsRecord{
		TotalExpenses:       model.Float64(1_000_000),
		TotalIncome:         model.Float64(0),
		LiquidAssets:        model.Float64(500_000),
		CurrentLiabilities:  model.Float64(0),
		NumApartments:       model.Int(0),
		MaintenanceReserves: model.Float64(1_000_000),
	}

	_, ok := expenseRatioScore(m)
	assert.False(t, ok)
	_, ok = quickRatioScore(m)
	assert.False(t, ok)
	_, ok = reservesPerAptScore(m)
	assert.False(t, ok)
}

func TestFeeTrendUsesLatestPriorYear(t *testing.T) {
	m := &model.MetricsRecord{
		ReportYear:       model.Int(2023),
		MonthlyFeePerSqm: model.Float64(55),
	}
	history := []model.MetricsRecord{
		{ReportYear: model.Int(2020), MonthlyFeePerSqm: model.Float64(40)},
		{ReportYear: model.Int(2022), MonthlyFeePerSqm: model.Float64(50)},
	}

	// 50 -> 55 is a 10% raise, not the 37.5% against 2020.
	score, ok := feeTrendScore(m, history)
	require.True(t, ok)
	assert.Equal(t, 35.0, score)
}

// randomRecord fills every nullable field from a mix of nil, zero,
// negative, extreme and uniformly random values.
func randomRecord(rng *rand.Rand) *model.MetricsRecord {
	edge := []float64{0, 1, -1, 0.5, -0.5, 100, -100, 1e6, -1e6, 1e12, -1e12}
	f := func() *float64 {
		switch rng.Intn(3) {
		case 0:
			return nil
		case 1:
			return model.Float64(edge[rng.Intn(len(edge))])
		default:
			return model.Float64((rng.Float64() - 0.5) * 2e10)
		}
	}
	n := func(lo, hi int) *int {
		if rng.Intn(3) == 0 {
			return nil
		}
		return model.Int(lo + rng.Intn(hi-lo))
	}

	return &model.MetricsRecord{
		BRFID:                "brf-slump",
		ReportYear:           n(1900, 2101),
		AnnualResult:         f(),
		OperatingResult:      f(),
		TotalIncome:          f(),
		TotalExpenses:        f(),
		InterestCosts:        f(),
		MaintenanceCosts:     f(),
		OperationCosts:       f(),
		AdministrationCosts:  f(),
		CashFlow:             f(),
		CashFlowOperations:   f(),
		CashFlowInvesting:    f(),
		CashFlowFinancing:    f(),
		LiquidAssets:         f(),
		CurrentAssets:        f(),
		FixedAssets:          f(),
		TotalAssets:          f(),
		CurrentLiabilities:   f(),
		LongTermDebt:         f(),
		TotalDebt:            f(),
		Equity:               f(),
		EquityStartOfYear:    f(),
		SolvencyRatio:        f(),
		MonthlyFeePerSqm:     f(),
		AnnualFeePerAptSEK:   f(),
		MaintenanceReserves:  f(),
		RenovationFund:       f(),
		AnnualResultPrevYear: f(),
		EquityPrevYear:       f(),
		NumApartments:        n(-10, 500),
		BuildingYear:         n(1700, 2150),
		TotalArea:            f(),
	}
}

func TestComputeScoresRandomInputsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := DefaultConfig()

	for i := 0; i < 1000; i++ {
		m := randomRecord(rng)
		var history []model.MetricsRecord
		for j := rng.Intn(4); j > 0; j-- {
			history = append(history, *randomRecord(rng))
		}

		h := ComputeScores(m, history, cfg)

		subs := map[string]*int{
			"financial_stability":   h.FinancialStability,
			"cost_efficiency":       h.CostEfficiency,
			"liquidity":             h.Liquidity,
			"debt_management":       h.DebtManagement,
			"maintenance_readiness": h.MaintenanceReadiness,
			"fee_development":       h.FeeDevelopment,
			"overall":               h.Overall,
		}
		for name, s := range subs {
			if s == nil {
				continue
			}
			assert.GreaterOrEqual(t, *s, 0, "iteration %d, %s", i, name)
			assert.LessOrEqual(t, *s, 100, "iteration %d, %s", i, name)
		}
	}
}

func TestComputeScoresIdempotent(t *testing.T) {
	m := healthyRecord()
	cfg := DefaultConfig()

	a := ComputeScores(m, nil, cfg)
	b := ComputeScores(m, nil, cfg)
	assert.Equal(t, a, b)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(DefaultConfig()))

	bad := DefaultConfig()
	bad.Version = ""
	assert.Error(t, ValidateConfig(bad))

	bad = DefaultConfig()
	bad.LiquidityWeight = 0.5
	assert.Error(t, ValidateConfig(bad))

	bad = DefaultConfig()
	bad.SolvencyCriticalPct = 20
	assert.Error(t, ValidateConfig(bad))

	bad = DefaultConfig()
	bad.DebtToEquityCritical = 1.0
	assert.Error(t, ValidateConfig(bad))
}
