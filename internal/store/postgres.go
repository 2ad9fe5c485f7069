package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/floodwatch/floodmap/internal/attribution"
)

// Pool is the subset of pgxpool.Pool the store uses, so tests can substitute
// a pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
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
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; tests use this with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	raster_path TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ward_summaries (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	ward_id     BIGINT NOT NULL,
	name        TEXT,
	avg_depth   DOUBLE PRECISION NOT NULL,
	pixel_count INTEGER NOT NULL,
	PRIMARY KEY (run_id, ward_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_ward_summaries_run_id ON ward_summaries(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, rasterPath, strategy string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, raster_path, strategy, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, rasterPath, strategy, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &Run{
		ID:         id,
		RasterPath: rasterPath,
		Strategy:   strategy,
		Status:     RunStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update run status")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, raster_path, strategy, status, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.RasterPath, &r.Strategy, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: run %s not found", runID)
		}
		return nil, eris.Wrap(err, "postgres: get run")
	}
	r.Status = RunStatus(status)
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, raster_path, strategy, status, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status string
		if err := rows.Scan(&r.ID, &r.RasterPath, &r.Strategy, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) SaveSummaries(ctx context.Context, runID string, summaries []attribution.Summary) error {
	for _, sum := range summaries {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO ward_summaries (run_id, ward_id, name, avg_depth, pixel_count) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (run_id, ward_id) DO UPDATE SET name = EXCLUDED.name, avg_depth = EXCLUDED.avg_depth, pixel_count = EXCLUDED.pixel_count`,
			runID, sum.WardID, sum.Name, sum.AverageDepth, sum.PixelCount,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert summary for ward %d", sum.WardID)
		}
	}
	return nil
}

func (s *PostgresStore) ListSummaries(ctx context.Context, runID string) ([]attribution.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ward_id, name, avg_depth, pixel_count FROM ward_summaries WHERE run_id = $1 ORDER BY ward_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list summaries")
	}
	defer rows.Close()

	var summaries []attribution.Summary
	for rows.Next() {
		var sum attribution.Summary
		if err := rows.Scan(&sum.WardID, &sum.Name, &sum.AverageDepth, &sum.PixelCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary")
		}
		summaries = append(summaries, sum)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: iterate summaries")
}
