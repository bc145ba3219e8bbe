package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brfinsikt/brf-helper/internal/config"
	"github.com/brfinsikt/brf-helper/internal/model"
)

// Run executes the full analysis pipeline for one association: sanitize
// the record, compute scores, detect flags, derive the risk level and
// stamp the result with its cache provenance. computedAt is a parameter
// so that a rerun over the same inputs yields an identical result.
//
// The only fatal error is a broken rule set. Missing or partial input
// degrades the result instead of failing it.
func Run(brfID string, m *model.MetricsRecord, facts *model.TextualFacts, history []model.MetricsRecord, cfg config.ScoringConfig, computedAt time.Time) (*model.AnalysisResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	fingerprint, err := Fingerprint(m, facts, history)
	if err != nil {
		return nil, err
	}

	sanitized, removed := Sanitize(m)

	scores := ComputeScores(sanitized, history, cfg)
	flags := DetectFlags(sanitized, facts, history, cfg)

	if len(removed) > 0 {
		zap.L().Warn("dropped out-of-domain metric values",
			zap.String("brf_id", brfID),
			zap.Strings("fields", removed))
		flags = append(flags, model.RedFlag{
			Category:       model.CategoryOperational,
			Severity:       model.SeverityLow,
			Title:          "Ogiltiga värden i underlaget",
			Description:    fmt.Sprintf("Följande värden låg utanför rimligt intervall och ignorerades: %s.", strings.Join(removed, ", ")),
			Impact:         "Analysen bygger på färre nyckeltal än rapporten innehåller.",
			Recommendation: "Kontrollera källrapporten och extraktionen för de berörda fälten.",
		})
	}

	flags = dedupeFlags(flags)
	sortFlags(flags)

	counts := countFlags(flags)
	risk := deriveRisk(scores.Overall, counts)

	result := &model.AnalysisResult{
		BRFID:        brfID,
		Scores:       scores,
		RiskLevel:    risk,
		Flags:        flags,
		Counts:       counts,
		LogicVersion: cfg.Version,
		Fingerprint:  fingerprint,
		ComputedAt:   computedAt.UTC(),
	}

	zap.L().Info("analysis complete",
		zap.String("brf_id", brfID),
		zap.String("risk_level", string(risk)),
		zap.Int("flags", counts.Total))

	return result, nil
}

// dedupeFlags keeps the first flag per (category, title) pair.
func dedupeFlags(flags []model.RedFlag) []model.RedFlag {
	seen := make(map[string]bool, len(flags))
	out := flags[:0]
	for _, f := range flags {
		key := string(f.Category) + "\x00" + f.Title
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

// sortFlags orders by severity descending, then category, keeping the
// detection order within a tie.
func sortFlags(flags []model.RedFlag) {
	sort.SliceStable(flags, func(i, j int) bool {
		if flags[i].Severity.Rank() != flags[j].Severity.Rank() {
			return flags[i].Severity.Rank() > flags[j].Severity.Rank()
		}
		return flags[i].Category < flags[j].Category
	})
}

func countFlags(flags []model.RedFlag) model.FlagCounts {
	c := model.FlagCounts{Total: len(flags)}
	for _, f := range flags {
		switch f.Severity {
		case model.SeverityCritical:
			c.Critical++
		case model.SeverityHigh:
			c.High++
		case model.SeverityMedium:
			c.Medium++
		case model.SeverityLow:
			c.Low++
		}
	}
	return c
}

// deriveRisk starts from the overall score and lets flags escalate it.
// Flags can only raise the level: a critical flag forces CRITICAL, a
// high flag forces at least HIGH, three or more mediums force at least
// MODERATE.
func deriveRisk(overall *int, counts model.FlagCounts) model.RiskLevel {
	risk := RiskFromOverall(overall)

	if counts.Critical > 0 {
		risk = model.MaxRisk(risk, model.RiskCritical)
	}
	if counts.High > 0 {
		risk = model.MaxRisk(risk, model.RiskHigh)
	}
	if counts.Medium >= 3 {
		risk = model.MaxRisk(risk, model.RiskModerate)
	}

	return risk
}
