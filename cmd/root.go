package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brfinsikt/brf-helper/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "brf-helper",
	Short: "Financial health analysis for Swedish housing cooperatives",
	Long:  "Extracts financial metrics from BRF annual reports, scores association health, detects red flags and ranks associations for prospective buyers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
