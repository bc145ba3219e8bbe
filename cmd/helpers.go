package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/brfinsikt/brf-helper/internal/analysis"
	"github.com/brfinsikt/brf-helper/internal/config"
	"github.com/brfinsikt/brf-helper/internal/store"
)

// openStore opens the configured backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		s, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// loadRules returns the configured scoring rule set, falling back to
// the built-in defaults when no rules file is configured.
func loadRules() (config.ScoringConfig, error) {
	if cfg.Analysis.RulesPath == "" {
		return analysis.DefaultConfig(), nil
	}
	rules, err := config.LoadScoringRules(cfg.Analysis.RulesPath)
	if err != nil {
		return config.ScoringConfig{}, err
	}
	if err := analysis.ValidateConfig(rules); err != nil {
		return config.ScoringConfig{}, err
	}
	return rules, nil
}
