// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hashwatch/trendtap/internal/crawler"
)

// DB is the subset of pgxpool.Pool the stores use. Declared as an interface
// so tests can substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TrendStore implements the crawler.Store interface using Postgres. A
// pgxpool backs it, so concurrent workers can share one store.
type TrendStore struct {
	db DB
}

// NewTrendStore connects a pool and returns a TrendStore.
func NewTrendStore(ctx context.Context, dsn string) (*TrendStore, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &TrendStore{db: pool}, pool, nil
}

// NewTrendStoreWithDB wraps an existing connection handle (used in tests).
func NewTrendStoreWithDB(db DB) *TrendStore {
	return &TrendStore{db: db}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *TrendStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS explore (
			category TEXT NOT NULL,
			play_count BIGINT NOT NULL,
			hashtag TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS hashtagdata (
			hashtag TEXT PRIMARY KEY,
			video_count BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS crawl_runs (
			id UUID PRIMARY KEY,
			phase TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			succeeded BIGINT NOT NULL DEFAULT 0,
			duplicates BIGINT NOT NULL DEFAULT 0,
			no_data BIGINT NOT NULL DEFAULT 0,
			failed BIGINT NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// InsertExplore persists one explore record. The hashtag is the natural key;
// a conflicting insert leaves the existing row untouched and returns
// ErrDuplicate (first writer wins across categories).
func (s *TrendStore) InsertExplore(ctx context.Context, rec crawler.ExploreRecord) error {
	query := `
		INSERT INTO explore (category, play_count, hashtag)
		VALUES ($1, $2, $3)
		ON CONFLICT (hashtag) DO NOTHING;
	`
	tag, err := s.db.Exec(ctx, query, rec.Category, rec.PlayCount, rec.Hashtag)
	if err != nil {
		return fmt.Errorf("failed to insert explore record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("explore hashtag %q: %w", rec.Hashtag, crawler.ErrDuplicate)
	}
	return nil
}

// InsertHashtagCount persists one hashtag detail record, stamping the
// current time. A conflicting insert returns ErrDuplicate.
func (s *TrendStore) InsertHashtagCount(ctx context.Context, rec crawler.HashtagRecord) error {
	query := `
		INSERT INTO hashtagdata (hashtag, video_count, updated_at)
		VALUES ($1, $2, COALESCE($3, now()))
		ON CONFLICT (hashtag) DO NOTHING;
	`
	var updatedAt any
	if !rec.UpdatedAt.IsZero() {
		updatedAt = rec.UpdatedAt
	}
	tag, err := s.db.Exec(ctx, query, rec.Hashtag, rec.VideoCount, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert hashtag record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hashtag %q: %w", rec.Hashtag, crawler.ErrDuplicate)
	}
	return nil
}

// PendingHashtags returns hashtags harvested by the explore phase that have
// no detail row updated on asOf's date. Evaluated once at orchestration
// start; deduplication across daily runs hinges on this set difference.
func (s *TrendStore) PendingHashtags(ctx context.Context, asOf time.Time) ([]string, error) {
	// Both casts go through UTC explicitly; a bare ::date on a timestamptz
	// would use the server's session time zone and shift the day window.
	query := `
		SELECT e.hashtag
		FROM explore e
		WHERE e.hashtag NOT IN (
			SELECT h.hashtag FROM hashtagdata h
			WHERE (h.updated_at AT TIME ZONE 'UTC')::date = ($1 AT TIME ZONE 'UTC')::date
		)
		ORDER BY e.hashtag;
	`
	rows, err := s.db.Query(ctx, query, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query pending hashtags: %w", err)
	}
	defer rows.Close()

	var hashtags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan pending hashtag: %w", err)
		}
		if tag != "" {
			hashtags = append(hashtags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending hashtags: %w", err)
	}
	return hashtags, nil
}
