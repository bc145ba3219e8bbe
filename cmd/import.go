package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brfinsikt/brf-helper/internal/model"
)

// importFile is the on-disk shape accepted by the import command:
// a metrics record plus optional textual facts.
type importFile struct {
	Metrics model.MetricsRecord `json:"metrics"`
	Facts   *model.TextualFacts `json:"facts,omitempty"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a manually prepared metrics file",
	Long: `Reads a JSON file with a metrics record (and optionally textual
facts) and stores it as the current record plus a yearly snapshot. Used
for manually transcribed reports and for backfilling history.

Examples:
  import --file brf-solhem-2023.json
  import --file brf-solhem-2021.json --snapshot-only
  import --file brf-solhem-2023.json --overwrite`,
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.String("file", "", "path to the JSON file (required)")
	f.Bool("overwrite", false, "replace an existing snapshot for the same year")
	f.Bool("snapshot-only", false, "store only the yearly snapshot, not the current record")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, _ := cmd.Flags().GetString("file")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	snapshotOnly, _ := cmd.Flags().GetBool("snapshot-only")

	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "import: read %s", path)
	}
	var in importFile
	if err := json.Unmarshal(data, &in); err != nil {
		return eris.Wrapf(err, "import: parse %s", path)
	}

	m := &in.Metrics
	if m.BRFID == "" {
		return eris.New("import: metrics record has no brf_id")
	}
	if m.ReportYear == nil {
		return eris.New("import: metrics record has no report_year")
	}
	if m.ExtractionMethod == "" {
		m.ExtractionMethod = model.ExtractionManual
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if !snapshotOnly {
		if err := s.UpsertMetrics(ctx, m); err != nil {
			return err
		}
	}
	if err := s.SaveSnapshot(ctx, m, overwrite); err != nil {
		return err
	}
	if in.Facts != nil {
		in.Facts.BRFID = m.BRFID
		if err := s.UpsertFacts(ctx, in.Facts); err != nil {
			return err
		}
	}

	fmt.Printf("Importerade %s (%d)\n", m.BRFID, *m.ReportYear)
	return nil
}
