package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/brfinsikt/brf-helper/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS metrics (
	brf_id     TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS metrics_snapshots (
	id          TEXT PRIMARY KEY,
	brf_id      TEXT NOT NULL,
	report_year INTEGER NOT NULL,
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (brf_id, report_year)
);

CREATE TABLE IF NOT EXISTS facts (
	brf_id     TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analyses (
	brf_id        TEXT PRIMARY KEY,
	data          TEXT NOT NULL,
	logic_version TEXT NOT NULL,
	fingerprint   TEXT NOT NULL,
	computed_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_brf_id ON metrics_snapshots(brf_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_year ON metrics_snapshots(brf_id, report_year DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertMetrics(ctx context.Context, m *model.MetricsRecord) error {
	if m.BRFID == "" {
		return eris.New("sqlite: metrics record has no brf id")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metrics")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert metrics")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO metrics (brf_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(brf_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		m.BRFID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert metrics %s", m.BRFID)
	}

	// The stored analysis is derived from these metrics; drop it in the
	// same transaction so a reader never sees fresh metrics next to a
	// stale analysis.
	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE brf_id = ?`, m.BRFID); err != nil {
		return eris.Wrapf(err, "sqlite: invalidate analysis %s", m.BRFID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit upsert metrics")
}

func (s *SQLiteStore) GetMetrics(ctx context.Context, brfID string) (*model.MetricsRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM metrics WHERE brf_id = ?`, brfID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get metrics %s", brfID)
	}

	var m model.MetricsRecord
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal metrics")
	}
	return &m, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, m *model.MetricsRecord, overwrite bool) error {
	if m.BRFID == "" {
		return eris.New("sqlite: snapshot has no brf id")
	}
	if m.ReportYear == nil {
		return eris.New("sqlite: snapshot has no report year")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal snapshot")
	}

	// DO NOTHING + rows-affected instead of a pre-check, so a concurrent
	// writer racing on the same (brf_id, report_year) gets rejected rather
	// than silently replacing the snapshot.
	query := `INSERT INTO metrics_snapshots (id, brf_id, report_year, data, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(brf_id, report_year) DO NOTHING`
	if overwrite {
		query = `INSERT INTO metrics_snapshots (id, brf_id, report_year, data, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(brf_id, report_year) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`
	}

	res, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), m.BRFID, *m.ReportYear, string(data), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save snapshot %s/%d", m.BRFID, *m.ReportYear)
	}
	if !overwrite {
		n, err := res.RowsAffected()
		if err != nil {
			return eris.Wrap(err, "sqlite: save snapshot rows affected")
		}
		if n == 0 {
			return ErrSnapshotExists
		}
	}
	return nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, brfID string) ([]model.MetricsRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM metrics_snapshots WHERE brf_id = ? ORDER BY report_year ASC`,
		brfID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list snapshots %s", brfID)
	}
	defer rows.Close()

	var out []model.MetricsRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		var m model.MetricsRecord
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal snapshot")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

func (s *SQLiteStore) UpsertFacts(ctx context.Context, f *model.TextualFacts) error {
	if f.BRFID == "" {
		return eris.New("sqlite: facts record has no brf id")
	}
	data, err := json.Marshal(f)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal facts")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert facts")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO facts (brf_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(brf_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		f.BRFID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert facts %s", f.BRFID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE brf_id = ?`, f.BRFID); err != nil {
		return eris.Wrapf(err, "sqlite: invalidate analysis %s", f.BRFID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit upsert facts")
}

func (s *SQLiteStore) GetFacts(ctx context.Context, brfID string) (*model.TextualFacts, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM facts WHERE brf_id = ?`, brfID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get facts %s", brfID)
	}

	var f model.TextualFacts
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal facts")
	}
	return &f, nil
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, r *model.AnalysisResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save analysis")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE brf_id = ?`, r.BRFID); err != nil {
		return eris.Wrapf(err, "sqlite: delete old analysis %s", r.BRFID)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (brf_id, data, logic_version, fingerprint, computed_at) VALUES (?, ?, ?, ?, ?)`,
		r.BRFID, string(data), r.LogicVersion, r.Fingerprint, r.ComputedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert analysis %s", r.BRFID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save analysis")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, brfID string) (*model.AnalysisResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM analyses WHERE brf_id = ?`, brfID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", brfID)
	}

	var r model.AnalysisResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return &r, nil
}

func (s *SQLiteStore) DeleteAnalysis(ctx context.Context, brfID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE brf_id = ?`, brfID)
	return eris.Wrapf(err, "sqlite: delete analysis %s", brfID)
}

func (s *SQLiteStore) ListBRFs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT brf_id FROM metrics
		 UNION
		 SELECT DISTINCT brf_id FROM metrics_snapshots
		 ORDER BY brf_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list brfs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan brf id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: list brfs iterate")
}
