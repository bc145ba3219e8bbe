package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brfinsikt/brf-helper/internal/model"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRunDistressedAssociation(t *testing.T) {
	m := &model.MetricsRecord{
		BRFID:           "brf-kris",
		ReportYear:      model.Int(2023),
		AnnualResult:    model.Float64(-800_000),
		OperatingResult: model.Float64(-600_000),
		CashFlow:        model.Float64(-600_000),
		TotalDebt:       model.Float64(9_000_000),
		Equity:          model.Float64(1_000_000),
		SolvencyRatio:   model.Float64(8),
	}

	result, err := Run("brf-kris", m, nil, nil, DefaultConfig(), fixedTime)
	require.NoError(t, err)

	assert.Equal(t, model.RiskCritical, result.RiskLevel)
	assert.NotNil(t, findFlag(result.Flags, "Kritisk skuldsättningsgrad"))
	assert.NotNil(t, findFlag(result.Flags, "Låg soliditet"))
	assert.NotNil(t, findFlag(result.Flags, "Kritiskt negativt rörelseresultat"))
	assert.NotNil(t, findFlag(result.Flags, "Kritiskt negativt kassaflöde"))

	assert.Greater(t, result.Counts.Critical, 0)
	assert.Equal(t, result.Counts.Total, len(result.Flags))

	// Flags arrive most severe first.
	for i := 1; i < len(result.Flags); i++ {
		assert.GreaterOrEqual(t,
			result.Flags[i-1].Severity.Rank(), result.Flags[i].Severity.Rank())
	}
}

func TestRunHealthyAssociation(t *testing.T) {
	result, err := Run("brf-sund", healthyRecord(), nil, nil, DefaultConfig(), fixedTime)
	require.NoError(t, err)

	assert.Equal(t, model.RiskMinimal, result.RiskLevel)
	assert.Empty(t, result.Flags)
	assert.Equal(t, model.FlagCounts{}, result.Counts)
	require.NotNil(t, result.Scores.Overall)
	assert.GreaterOrEqual(t, *result.Scores.Overall, 85)
}

func TestRunEmptyRecord(t *testing.T) {
	result, err := Run("brf-tom", &model.MetricsRecord{BRFID: "brf-tom"}, nil, nil, DefaultConfig(), fixedTime)
	require.NoError(t, err)

	assert.Equal(t, model.RiskInsufficientData, result.RiskLevel)
	assert.Nil(t, result.Scores.Overall)
	assert.Empty(t, result.Flags)
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Version = ""

	_, err := Run("brf-x", &model.MetricsRecord{}, nil, nil, cfg, fixedTime)
	assert.Error(t, err)
}

func TestRunFlagEscalationOnlyRaises(t *testing.T) {
	// Strong numbers overall, but the auditor has remarks: the high
	// governance flag must pull the risk up to at least HIGH.
	facts := &model.TextualFacts{AuditorRemarks: model.TriYes}

	result, err := Run("brf-sund", healthyRecord(), facts, nil, DefaultConfig(), fixedTime)
	require.NoError(t, err)

	require.NotNil(t, result.Scores.Overall)
	assert.GreaterOrEqual(t, *result.Scores.Overall, 85)
	assert.Equal(t, model.RiskHigh, result.RiskLevel)
}

func TestRunSanitizesOutOfDomainValues(t *testing.T) {
	m := healthyRecord()
	m.SolvencyRatio = model.Float64(450) // extraction glitch
	m.TotalAssets = model.Float64(-1)

	result, err := Run("brf-sund", m, nil, nil, DefaultConfig(), fixedTime)
	require.NoError(t, err)

	f := findFlag(result.Flags, "Ogiltiga värden i underlaget")
	require.NotNil(t, f)
	assert.Equal(t, model.SeverityLow, f.Severity)
	assert.Contains(t, f.Description, "solvency_ratio")
	assert.Contains(t, f.Description, "total_assets")

	// With both solvency sources gone the factor is skipped, the rest
	// still scores.
	assert.NotNil(t, result.Scores.FinancialStability)
}

func TestRunIdempotent(t *testing.T) {
	m := &model.MetricsRecord{
		BRFID:           "brf-kris",
		OperatingResult: model.Float64(-600_000),
		SolvencyRatio:   model.Float64(8),
	}

	a, err := Run("brf-kris", m, nil, nil, DefaultConfig(), fixedTime)
	require.NoError(t, err)
	b, err := Run("brf-kris", m, nil, nil, DefaultConfig(), fixedTime)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDedupeFlags(t *testing.T) {
	flags := []model.RedFlag{
		{Category: model.CategoryLiquidity, Title: "A", Severity: model.SeverityHigh},
		{Category: model.CategoryLiquidity, Title: "A", Severity: model.SeverityLow},
		{Category: model.CategoryDebtRisk, Title: "A", Severity: model.SeverityHigh},
	}

	out := dedupeFlags(flags)
	require.Len(t, out, 2)
	// First occurrence wins.
	assert.Equal(t, model.SeverityHigh, out[0].Severity)
}

func TestDeriveRisk(t *testing.T) {
	tests := []struct {
		name    string
		overall *int
		counts  model.FlagCounts
		want    model.RiskLevel
	}{
		{"no data no flags", nil, model.FlagCounts{}, model.RiskInsufficientData},
		{"no data critical flag", nil, model.FlagCounts{Critical: 1}, model.RiskCritical},
		{"good score clean", model.Int(90), model.FlagCounts{}, model.RiskMinimal},
		{"good score high flag", model.Int(90), model.FlagCounts{High: 1}, model.RiskHigh},
		{"good score three mediums", model.Int(90), model.FlagCounts{Medium: 3}, model.RiskModerate},
		{"bad score never lowered", model.Int(10), model.FlagCounts{}, model.RiskCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveRisk(tt.overall, tt.counts))
		})
	}
}

func TestSanitize(t *testing.T) {
	m := &model.MetricsRecord{
		TotalAssets:   model.Float64(-5),
		SolvencyRatio: model.Float64(120),
		BuildingYear:  model.Int(1650),
		Equity:        model.Float64(1_000_000),
	}

	s, removed := Sanitize(m)

	assert.ElementsMatch(t, []string{"total_assets", "solvency_ratio", "building_year"}, removed)
	assert.Nil(t, s.TotalAssets)
	assert.Nil(t, s.SolvencyRatio)
	assert.Nil(t, s.BuildingYear)
	assert.NotNil(t, s.Equity)

	// The input record is untouched.
	assert.NotNil(t, m.TotalAssets)
}
