package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/brfinsikt/brf-helper/internal/model"
)

// stubQuerier answers by matching a keyword in the question.
type stubQuerier struct {
	answers map[string]string // question substring -> answer
	asked   int
}

func (q *stubQuerier) Ask(_ context.Context, _ string, question string) (string, error) {
	q.asked++
	for key, answer := range q.answers {
		if strings.Contains(question, key) {
			return answer, nil
		}
	}
	return "OKÄNT", nil
}

func TestExtract(t *testing.T) {
	q := &stubQuerier{answers: map[string]string{
		"årets resultat":    "-425 000 kr",
		"rörelseresultatet": "-380 000 kr",
		"totala intäkterna": "4 800 000 kr",
		"soliditet":         "18,5",
		"månadsavgiften":    "52",
		"byggdes":           "Fastigheten byggdes 1962 och har 48 lägenheter.",
		"revisorn":          "NEJ",
		"tvister":           "JA, en tvist med entreprenören pågår.",
		"uttaxering":        "NEJ",
		"renoveringar":      "Stambyte planeras 2026.",
	}}

	m, facts, err := NewExtractor(q).Extract(context.Background(), "brf-1", 2023)
	require.NoError(t, err)

	assert.Equal(t, "brf-1", m.BRFID)
	assert.Equal(t, 2023, *m.ReportYear)
	assert.Equal(t, model.ExtractionLLM, m.ExtractionMethod)

	require.NotNil(t, m.AnnualResult)
	assert.Equal(t, -425_000.0, *m.AnnualResult)
	require.NotNil(t, m.SolvencyRatio)
	assert.Equal(t, 18.5, *m.SolvencyRatio)
	require.NotNil(t, m.MonthlyFeePerSqm)
	assert.Equal(t, 52.0, *m.MonthlyFeePerSqm)
	require.NotNil(t, m.BuildingYear)
	assert.Equal(t, 1962, *m.BuildingYear)
	require.NotNil(t, m.NumApartments)
	assert.Equal(t, 48, *m.NumApartments)

	// Unanswered metrics stay nil, never zero.
	assert.Nil(t, m.TotalDebt)
	assert.Nil(t, m.Equity)

	require.NotNil(t, m.DataQuality)
	assert.Greater(t, *m.DataQuality, 0.0)
	assert.Less(t, *m.DataQuality, 1.0)
	assert.NotNil(t, m.ExtractedAt)

	require.NotNil(t, facts)
	assert.Equal(t, model.TriNo, facts.AuditorRemarks)
	assert.Equal(t, model.TriYes, facts.OngoingDisputes)
	assert.Equal(t, model.TriNo, facts.PriorAssessments)
	assert.Equal(t, "Stambyte planeras 2026.", facts.RenovationsPlanned)
}

// failingQuerier errors on questions containing any of the given keys
// and answers the rest like stubQuerier.
type failingQuerier struct {
	stubQuerier
	failOn []string
}

func (q *failingQuerier) Ask(ctx context.Context, brfID, question string) (string, error) {
	for _, key := range q.failOn {
		if strings.Contains(question, key) {
			return "", errors.New("upstream timeout")
		}
	}
	return q.stubQuerier.Ask(ctx, brfID, question)
}

func TestExtractWarnsOnFailedQueries(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	q := &failingQuerier{
		stubQuerier: stubQuerier{answers: map[string]string{
			"årets resultat": "-425 000 kr",
			"revisorn":       "NEJ",
		}},
		failOn: []string{"soliditet", "tvister"},
	}

	m, facts, err := NewExtractor(q).Extract(context.Background(), "brf-3", 2023)
	require.NoError(t, err)

	// Failed questions leave their fields unset but never abort.
	assert.Nil(t, m.SolvencyRatio)
	assert.Equal(t, model.TriUnknown, facts.OngoingDisputes)
	assert.Equal(t, model.TriNo, facts.AuditorRemarks)

	var names []string
	for _, e := range logs.FilterMessage("query failed").All() {
		names = append(names, e.ContextMap()["question"].(string))
	}
	assert.ElementsMatch(t, []string{"solvency_ratio", "ongoing_disputes"}, names)
}

func TestExtractAllUnknown(t *testing.T) {
	q := &stubQuerier{answers: map[string]string{}}

	m, facts, err := NewExtractor(q).Extract(context.Background(), "brf-2", 2022)
	require.NoError(t, err)

	assert.Nil(t, m.AnnualResult)
	assert.Nil(t, m.SolvencyRatio)
	require.NotNil(t, m.DataQuality)
	assert.Equal(t, 0.0, *m.DataQuality)

	assert.Equal(t, model.TriUnknown, facts.AuditorRemarks)
	assert.Equal(t, model.TriUnknown, facts.OngoingDisputes)
	assert.Empty(t, facts.RenovationsPlanned)
}
