package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brfinsikt/brf-helper/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract metrics from an indexed annual report via the Anthropic API",
	Long: `Asks the model one question per metric against the indexed annual
report, parses the answers into a metrics record and textual facts, and
stores both. The stored analysis for the association is invalidated by
the write.

Requires BRF_ANTHROPIC_KEY (or anthropic.key in config.yaml).

Examples:
  extract --brf brf-solhem --year 2023
  extract --brf brf-solhem --year 2023 --overwrite-snapshot`,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.String("brf", "", "association id (required)")
	f.Int("year", 0, "report year (required)")
	f.Bool("overwrite-snapshot", false, "replace an existing snapshot for the same year")
	_ = extractCmd.MarkFlagRequired("brf")
	_ = extractCmd.MarkFlagRequired("year")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brfID, _ := cmd.Flags().GetString("brf")
	year, _ := cmd.Flags().GetInt("year")
	overwrite, _ := cmd.Flags().GetBool("overwrite-snapshot")

	if year < 1900 || year > 2100 {
		return eris.Errorf("implausible report year %d", year)
	}

	querier, err := extract.NewAnthropicQuerier(cfg.Anthropic)
	if err != nil {
		return err
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	zap.L().Info("starting extraction",
		zap.String("brf_id", brfID),
		zap.Int("year", year),
		zap.String("model", cfg.Anthropic.Model))

	m, facts, err := extract.NewExtractor(querier).Extract(ctx, brfID, year)
	if err != nil {
		return err
	}

	if err := s.UpsertMetrics(ctx, m); err != nil {
		return err
	}
	if err := s.SaveSnapshot(ctx, m, overwrite); err != nil {
		return err
	}
	if err := s.UpsertFacts(ctx, facts); err != nil {
		return err
	}

	fmt.Printf("Extraherade %s (%d), datakvalitet %.0f%%\n", brfID, year, *m.DataQuality*100)
	return nil
}
