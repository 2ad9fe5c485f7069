// Package store persists analysis runs and per-ward flood summaries.
// Persistence is optional; the analysis core works without it.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/floodwatch/floodmap/internal/attribution"
)

// RunStatus tracks the lifecycle of one attribution run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one attribution invocation.
type Run struct {
	ID         string    `json:"id"`
	RasterPath string    `json:"raster_path"`
	Strategy   string    `json:"strategy"`
	Status     RunStatus `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store defines the persistence interface for runs and summaries.
type Store interface {
	CreateRun(ctx context.Context, rasterPath, strategy string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, status RunStatus) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	SaveSummaries(ctx context.Context, runID string, summaries []attribution.Summary) error
	ListSummaries(ctx context.Context, runID string) ([]attribution.Summary, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds a Store for the configured driver: "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
