package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/brfinsikt/brf-helper/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock implements
// it, which is what makes the store unit-testable without a database.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS metrics (
	brf_id     TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS metrics_snapshots (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	brf_id      TEXT NOT NULL,
	report_year INTEGER NOT NULL,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (brf_id, report_year)
);

CREATE TABLE IF NOT EXISTS facts (
	brf_id     TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	brf_id        TEXT PRIMARY KEY,
	data          JSONB NOT NULL,
	logic_version TEXT NOT NULL,
	fingerprint   TEXT NOT NULL,
	computed_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_brf_id ON metrics_snapshots(brf_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_year ON metrics_snapshots(brf_id, report_year DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertMetrics(ctx context.Context, m *model.MetricsRecord) error {
	if m.BRFID == "" {
		return eris.New("postgres: metrics record has no brf id")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metrics")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin upsert metrics")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO metrics (brf_id, data, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (brf_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		m.BRFID, data, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert metrics %s", m.BRFID)
	}

	// Same-transaction invalidation of the derived analysis.
	if _, err := tx.Exec(ctx, `DELETE FROM analyses WHERE brf_id = $1`, m.BRFID); err != nil {
		return eris.Wrapf(err, "postgres: invalidate analysis %s", m.BRFID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit upsert metrics")
}

func (s *PostgresStore) GetMetrics(ctx context.Context, brfID string) (*model.MetricsRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM metrics WHERE brf_id = $1`, brfID,
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get metrics %s", brfID)
	}

	var m model.MetricsRecord
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal metrics")
	}
	return &m, nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, m *model.MetricsRecord, overwrite bool) error {
	if m.BRFID == "" {
		return eris.New("postgres: snapshot has no brf id")
	}
	if m.ReportYear == nil {
		return eris.New("postgres: snapshot has no report year")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal snapshot")
	}

	if overwrite {
		_, err = s.pool.Exec(ctx,
			`INSERT INTO metrics_snapshots (brf_id, report_year, data, created_at) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (brf_id, report_year) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
			m.BRFID, *m.ReportYear, data, time.Now().UTC(),
		)
		return eris.Wrapf(err, "postgres: save snapshot %s/%d", m.BRFID, *m.ReportYear)
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO metrics_snapshots (brf_id, report_year, data, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (brf_id, report_year) DO NOTHING`,
		m.BRFID, *m.ReportYear, data, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save snapshot %s/%d", m.BRFID, *m.ReportYear)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotExists
	}
	return nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, brfID string) ([]model.MetricsRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM metrics_snapshots WHERE brf_id = $1 ORDER BY report_year ASC`,
		brfID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list snapshots %s", brfID)
	}
	defer rows.Close()

	var out []model.MetricsRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		var m model.MetricsRecord
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal snapshot")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}

func (s *PostgresStore) UpsertFacts(ctx context.Context, f *model.TextualFacts) error {
	if f.BRFID == "" {
		return eris.New("postgres: facts record has no brf id")
	}
	data, err := json.Marshal(f)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal facts")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin upsert facts")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO facts (brf_id, data, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (brf_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		f.BRFID, data, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert facts %s", f.BRFID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM analyses WHERE brf_id = $1`, f.BRFID); err != nil {
		return eris.Wrapf(err, "postgres: invalidate analysis %s", f.BRFID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit upsert facts")
}

func (s *PostgresStore) GetFacts(ctx context.Context, brfID string) (*model.TextualFacts, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM facts WHERE brf_id = $1`, brfID,
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get facts %s", brfID)
	}

	var f model.TextualFacts
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal facts")
	}
	return &f, nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, r *model.AnalysisResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save analysis")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM analyses WHERE brf_id = $1`, r.BRFID); err != nil {
		return eris.Wrapf(err, "postgres: delete old analysis %s", r.BRFID)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO analyses (brf_id, data, logic_version, fingerprint, computed_at) VALUES ($1, $2, $3, $4, $5)`,
		r.BRFID, data, r.LogicVersion, r.Fingerprint, r.ComputedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert analysis %s", r.BRFID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save analysis")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, brfID string) (*model.AnalysisResult, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM analyses WHERE brf_id = $1`, brfID,
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get analysis %s", brfID)
	}

	var r model.AnalysisResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	return &r, nil
}

func (s *PostgresStore) DeleteAnalysis(ctx context.Context, brfID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE brf_id = $1`, brfID)
	return eris.Wrapf(err, "postgres: delete analysis %s", brfID)
}

func (s *PostgresStore) ListBRFs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT brf_id FROM metrics
		 UNION
		 SELECT DISTINCT brf_id FROM metrics_snapshots
		 ORDER BY brf_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list brfs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan brf id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: list brfs iterate")
}
