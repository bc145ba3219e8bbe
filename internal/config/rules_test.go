package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScoringRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	yaml := `
version: "test-1"
financial_stability_weight: 0.25
cost_efficiency_weight: 0.15
liquidity_weight: 0.20
debt_management_weight: 0.20
maintenance_readiness_weight: 0.10
fee_development_weight: 0.10
solvency_critical_pct: 5
solvency_high_pct: 10
solvency_medium_pct: 15
debt_to_equity_critical: 3.0
debt_to_equity_high: 2.0
debt_to_equity_medium: 1.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadScoringRules(path)
	require.NoError(t, err)

	assert.Equal(t, "test-1", cfg.Version)
	assert.Equal(t, 0.25, cfg.FinancialStabilityWeight)
	assert.Equal(t, 0.10, cfg.FeeDevelopmentWeight)
	assert.Equal(t, 5.0, cfg.SolvencyCriticalPct)
	assert.Equal(t, 1.5, cfg.DebtToEquityMedium)
}

func TestLoadScoringRulesMissingFile(t *testing.T) {
	_, err := LoadScoringRules(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadScoringRulesBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: [unclosed"), 0o644))

	_, err := LoadScoringRules(path)
	assert.Error(t, err)
}
