package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/floodwatch/floodmap/internal/attribution"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	raster_path TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ward_summaries (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	ward_id     INTEGER NOT NULL,
	name        TEXT,
	avg_depth   REAL NOT NULL,
	pixel_count INTEGER NOT NULL,
	PRIMARY KEY (run_id, ward_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_ward_summaries_run_id ON ward_summaries(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, rasterPath, strategy string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, raster_path, strategy, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, rasterPath, strategy, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: update run status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, raster_path, strategy, status, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &r.RasterPath, &r.Strategy, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("sqlite: run %s not found", runID)
		}
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, raster_path, strategy, status, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RasterPath, &r.Strategy, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) SaveSummaries(ctx context.Context, runID string, summaries []attribution.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	for _, sum := range summaries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ward_summaries (run_id, ward_id, name, avg_depth, pixel_count) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (run_id, ward_id) DO UPDATE SET name = excluded.name, avg_depth = excluded.avg_depth, pixel_count = excluded.pixel_count`,
			runID, sum.WardID, sum.Name, sum.AverageDepth, sum.PixelCount,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert summary for ward %d", sum.WardID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit summaries")
}

func (s *SQLiteStore) ListSummaries(ctx context.Context, runID string) ([]attribution.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ward_id, name, avg_depth, pixel_count FROM ward_summaries WHERE run_id = ? ORDER BY ward_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list summaries")
	}
	defer rows.Close()

	var summaries []attribution.Summary
	for rows.Next() {
		var sum attribution.Summary
		if err := rows.Scan(&sum.WardID, &sum.Name, &sum.AverageDepth, &sum.PixelCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		summaries = append(summaries, sum)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: iterate summaries")
}
