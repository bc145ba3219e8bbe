package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brfinsikt/brf-helper/internal/analysis"
	"github.com/brfinsikt/brf-helper/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the financial health of one association",
	Long: `Computes health scores and red flags for one association from its
stored metrics and textual facts.

Results are cached: a second run over unchanged inputs serves the stored
analysis. Any metrics or facts update, a rules version bump, or
--recompute triggers a fresh run.

Examples:
  # Analyze with cached results
  analyze --brf brf-solhem

  # Force a fresh computation
  analyze --brf brf-solhem --recompute

  # Machine-readable output
  analyze --brf brf-solhem --format json`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.String("brf", "", "association id (required)")
	f.Bool("recompute", false, "ignore the cached analysis and recompute")
	f.String("format", "table", "output format: table or json")
	_ = analyzeCmd.MarkFlagRequired("brf")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brfID, _ := cmd.Flags().GetString("brf")
	recompute, _ := cmd.Flags().GetBool("recompute")
	format, _ := cmd.Flags().GetString("format")

	rules, err := loadRules()
	if err != nil {
		return err
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := s.GetMetrics(ctx, brfID)
	if err != nil {
		return err
	}
	if m == nil {
		return eris.Errorf("no metrics stored for %s; run extract or import first", brfID)
	}
	facts, err := s.GetFacts(ctx, brfID)
	if err != nil {
		return err
	}
	history, err := s.ListSnapshots(ctx, brfID)
	if err != nil {
		return err
	}

	var (
		result     *model.AnalysisResult
		recomputed bool
	)
	if recompute {
		// Drop the stale row first: if the recompute fails below, a
		// later plain analyze must not serve the old result.
		if err := s.DeleteAnalysis(ctx, brfID); err != nil {
			return err
		}
		result, err = analysis.Run(brfID, m, facts, history, rules, time.Now())
		recomputed = true
	} else {
		var ctrl *analysis.Controller
		ctrl, err = analysis.NewController(s, rules)
		if err != nil {
			return err
		}
		result, recomputed, err = ctrl.GetOrCompute(ctx, brfID, m, facts, history)
	}
	if err != nil {
		return err
	}

	if recomputed {
		if err := s.SaveAnalysis(ctx, result); err != nil {
			return err
		}
		zap.L().Info("analysis persisted", zap.String("brf_id", brfID))
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "analyze: encode result")
	case "table":
		printAnalysis(result)
		return nil
	default:
		return eris.Errorf("unknown format %q", format)
	}
}

func printAnalysis(r *model.AnalysisResult) {
	fmt.Printf("Förening: %s\n", r.BRFID)
	fmt.Printf("Risknivå: %s\n", r.RiskLevel)
	fmt.Printf("Beräknad: %s (regler %s)\n\n", r.ComputedAt.Format("2006-01-02 15:04"), r.LogicVersion)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DELBETYG\tPOÄNG")
	printScore(w, "Finansiell stabilitet", r.Scores.FinancialStability)
	printScore(w, "Kostnadseffektivitet", r.Scores.CostEfficiency)
	printScore(w, "Likviditet", r.Scores.Liquidity)
	printScore(w, "Skuldhantering", r.Scores.DebtManagement)
	printScore(w, "Underhållsberedskap", r.Scores.MaintenanceReadiness)
	printScore(w, "Avgiftsutveckling", r.Scores.FeeDevelopment)
	printScore(w, "TOTALT", r.Scores.Overall)
	w.Flush()

	if len(r.Flags) == 0 {
		fmt.Println("\nInga varningssignaler.")
		return
	}

	fmt.Printf("\nVarningssignaler (%d):\n", r.Counts.Total)
	for _, f := range r.Flags {
		fmt.Printf("  [%s] %s\n", f.Severity, f.Title)
		fmt.Printf("      %s\n", f.Description)
		if f.Recommendation != "" {
			fmt.Printf("      Rekommendation: %s\n", f.Recommendation)
		}
	}
}

func printScore(w *tabwriter.Writer, label string, score *int) {
	if score == nil {
		fmt.Fprintf(w, "%s\t–\n", label)
		return
	}
	fmt.Fprintf(w, "%s\t%d\n", label, *score)
}
