package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/brfinsikt/brf-helper/internal/model"
)

// ErrSnapshotExists is returned by SaveSnapshot when a snapshot for the
// same association and report year already exists and overwrite was not
// requested.
var ErrSnapshotExists = eris.New("store: snapshot already exists")

// Store defines the persistence interface. Metrics and textual facts
// are the source of truth; analyses are a derived cache. Any write to
// metrics or facts invalidates the stored analysis for that association
// in the same transaction.
type Store interface {
	// Current metrics, one record per association.
	UpsertMetrics(ctx context.Context, m *model.MetricsRecord) error
	GetMetrics(ctx context.Context, brfID string) (*model.MetricsRecord, error)

	// Historical snapshots, one per association and report year.
	SaveSnapshot(ctx context.Context, m *model.MetricsRecord, overwrite bool) error
	ListSnapshots(ctx context.Context, brfID string) ([]model.MetricsRecord, error)

	// Textual facts, one record per association.
	UpsertFacts(ctx context.Context, f *model.TextualFacts) error
	GetFacts(ctx context.Context, brfID string) (*model.TextualFacts, error)

	// Derived analyses. Get returns nil without error on a miss.
	SaveAnalysis(ctx context.Context, r *model.AnalysisResult) error
	GetAnalysis(ctx context.Context, brfID string) (*model.AnalysisResult, error)
	DeleteAnalysis(ctx context.Context, brfID string) error

	ListBRFs(ctx context.Context) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
