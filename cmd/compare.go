package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brfinsikt/brf-helper/internal/analysis"
	"github.com/brfinsikt/brf-helper/internal/model"
	"github.com/brfinsikt/brf-helper/internal/store"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank all stored associations by health score",
	Long: `Analyzes every stored association and prints them ranked by overall
health score, best first. Cached analyses are reused; associations with
too little data sort last.

Examples:
  compare
  compare --concurrency 8`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().Int("concurrency", 4, "number of associations analyzed in parallel")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency < 1 {
		concurrency = 1
	}

	rules, err := loadRules()
	if err != nil {
		return err
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ids, err := s.ListBRFs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("Inga föreningar i databasen.")
		return nil
	}

	ctrl, err := analysis.NewController(s, rules)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		results []*model.AnalysisResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		g.Go(func() error {
			result, err := analyzeOne(gctx, s, ctrl, id)
			if err != nil {
				return err
			}
			if result == nil {
				zap.L().Warn("skipping association without metrics", zap.String("brf_id", id))
				return nil
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rank(results)
	printRanking(results)
	return nil
}

func analyzeOne(ctx context.Context, s store.Store, ctrl *analysis.Controller, brfID string) (*model.AnalysisResult, error) {
	m, err := s.GetMetrics(ctx, brfID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	facts, err := s.GetFacts(ctx, brfID)
	if err != nil {
		return nil, err
	}
	history, err := s.ListSnapshots(ctx, brfID)
	if err != nil {
		return nil, err
	}

	result, recomputed, err := ctrl.GetOrCompute(ctx, brfID, m, facts, history)
	if err != nil {
		return nil, err
	}
	if recomputed {
		if err := s.SaveAnalysis(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// rank orders best overall score first; associations without an overall
// score go last, ties break on risk level then id.
func rank(results []*model.AnalysisResult) {
	sort.SliceStable(results, func(i, j int) bool {
		oi, oj := results[i].Scores.Overall, results[j].Scores.Overall
		switch {
		case oi == nil && oj == nil:
			// fall through to risk level
		case oi == nil:
			return false
		case oj == nil:
			return true
		case *oi != *oj:
			return *oi > *oj
		}
		if results[i].RiskLevel.Rank() != results[j].RiskLevel.Rank() {
			return results[i].RiskLevel.Rank() < results[j].RiskLevel.Rank()
		}
		return results[i].BRFID < results[j].BRFID
	})
}

func printRanking(results []*model.AnalysisResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLATS\tFÖRENING\tTOTALT\tRISKNIVÅ\tVARNINGAR")
	for i, r := range results {
		overall := "–"
		if r.Scores.Overall != nil {
			overall = fmt.Sprintf("%d", *r.Scores.Overall)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", i+1, r.BRFID, overall, r.RiskLevel, r.Counts.Total)
	}
	w.Flush()
}
