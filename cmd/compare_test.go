package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brfinsikt/brf-helper/internal/model"
)

func TestRank(t *testing.T) {
	results := []*model.AnalysisResult{
		{BRFID: "brf-c", Scores: model.HealthScore{Overall: model.Int(45)}, RiskLevel: model.RiskHigh},
		{BRFID: "brf-a", Scores: model.HealthScore{}, RiskLevel: model.RiskInsufficientData},
		{BRFID: "brf-b", Scores: model.HealthScore{Overall: model.Int(88)}, RiskLevel: model.RiskMinimal},
		{BRFID: "brf-d", Scores: model.HealthScore{Overall: model.Int(45)}, RiskLevel: model.RiskModerate},
	}

	rank(results)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.BRFID
	}
	// Best score first; equal scores break on lower risk; no score last.
	assert.Equal(t, []string{"brf-b", "brf-d", "brf-c", "brf-a"}, ids)
}
