package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hashwatch/trendtap/internal/crawler"
)

// RunStore records orchestration runs in the crawl_runs table.
type RunStore struct {
	db DB
}

// NewRunStore creates a RunStore on an existing connection handle.
func NewRunStore(db DB) *RunStore {
	return &RunStore{db: db}
}

// BeginRun inserts the bookkeeping row for a starting run.
func (s *RunStore) BeginRun(ctx context.Context, run crawler.Run) error {
	query := `
		INSERT INTO crawl_runs (id, phase, started_at)
		VALUES ($1, $2, $3);
	`
	if _, err := s.db.Exec(ctx, query, run.ID, string(run.Phase), run.StartedAt); err != nil {
		return fmt.Errorf("failed to begin run: %w", err)
	}
	return nil
}

// FinishRun stamps completion time and final counters on a run.
func (s *RunStore) FinishRun(
	ctx context.Context,
	id string,
	finishedAt time.Time,
	counters crawler.RunCounters,
) error {
	query := `
		UPDATE crawl_runs
		SET finished_at = $1, succeeded = $2, duplicates = $3, no_data = $4, failed = $5
		WHERE id = $6;
	`
	tag, err := s.db.Exec(ctx, query,
		finishedAt,
		counters.Succeeded,
		counters.Duplicates,
		counters.NoData,
		counters.Failed,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: no such run", id)
	}
	return nil
}

// LatestRun returns the most recently started run, or pgx.ErrNoRows when the
// table is empty.
func (s *RunStore) LatestRun(ctx context.Context) (crawler.Run, error) {
	query := `
		SELECT id, phase, started_at, finished_at, succeeded, duplicates, no_data, failed
		FROM crawl_runs
		ORDER BY started_at DESC
		LIMIT 1;
	`
	var run crawler.Run
	err := s.db.QueryRow(ctx, query).Scan(
		&run.ID,
		&run.Phase,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Counters.Succeeded,
		&run.Counters.Duplicates,
		&run.Counters.NoData,
		&run.Counters.Failed,
	)
	if err != nil {
		return crawler.Run{}, fmt.Errorf("failed to query latest run: %w", err)
	}
	return run, nil
}
