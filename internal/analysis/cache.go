package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/brfinsikt/brf-helper/internal/config"
	"github.com/brfinsikt/brf-helper/internal/model"
)

// AnalysisStore is the slice of the persistence layer the cache
// controller needs: reading a previously stored result. Writing the
// fresh result back is the caller's decision.
type AnalysisStore interface {
	GetAnalysis(ctx context.Context, brfID string) (*model.AnalysisResult, error)
}

// Controller decides whether a stored analysis can be served or must be
// recomputed. A stored result is reusable only when both its input
// fingerprint and its logic version match the current state; anything
// else means stale.
type Controller struct {
	store AnalysisStore
	cfg   config.ScoringConfig

	// Injection points for tests.
	run func(brfID string, m *model.MetricsRecord, facts *model.TextualFacts, history []model.MetricsRecord, cfg config.ScoringConfig, computedAt time.Time) (*model.AnalysisResult, error)
	now func() time.Time
}

// NewController validates the rule set up front so that every later
// GetOrCompute runs against a known-good configuration.
func NewController(store AnalysisStore, cfg config.ScoringConfig) (*Controller, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Controller{
		store: store,
		cfg:   cfg,
		run:   Run,
		now:   time.Now,
	}, nil
}

// GetOrCompute returns the analysis for the given inputs, recomputing
// only when no stored result matches the current fingerprint and logic
// version. The second return value reports whether a recomputation
// happened, so the caller knows the result is not yet persisted.
func (c *Controller) GetOrCompute(ctx context.Context, brfID string, m *model.MetricsRecord, facts *model.TextualFacts, history []model.MetricsRecord) (*model.AnalysisResult, bool, error) {
	fingerprint, err := Fingerprint(m, facts, history)
	if err != nil {
		return nil, false, err
	}

	cached, err := c.store.GetAnalysis(ctx, brfID)
	if err != nil {
		return nil, false, err
	}
	if cached != nil && cached.Fingerprint == fingerprint && cached.LogicVersion == c.cfg.Version {
		zap.L().Debug("serving cached analysis",
			zap.String("brf_id", brfID),
			zap.String("fingerprint", fingerprint))
		return cached, false, nil
	}

	if cached != nil {
		zap.L().Info("stored analysis is stale",
			zap.String("brf_id", brfID),
			zap.String("stored_version", cached.LogicVersion),
			zap.String("current_version", c.cfg.Version),
			zap.Bool("fingerprint_match", cached.Fingerprint == fingerprint))
	}

	result, err := c.run(brfID, m, facts, history, c.cfg, c.now())
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}
