package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/hashwatch/trendtap/internal/crawler"
)

func TestInsertExploreInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTrendStoreWithDB(mock)

	rec := crawler.ExploreRecord{Category: "Dance", Hashtag: "fyp", PlayCount: 1000}
	mock.ExpectExec("INSERT INTO explore").
		WithArgs(rec.Category, rec.PlayCount, rec.Hashtag).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertExplore(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertExploreDuplicateIsIdempotent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTrendStoreWithDB(mock)

	rec := crawler.ExploreRecord{Category: "Comedy", Hashtag: "fyp", PlayCount: 5}
	// ON CONFLICT DO NOTHING reports zero affected rows for the loser.
	mock.ExpectExec("INSERT INTO explore").
		WithArgs(rec.Category, rec.PlayCount, rec.Hashtag).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err = store.InsertExplore(context.Background(), rec)
	require.ErrorIs(t, err, crawler.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertHashtagCount(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTrendStoreWithDB(mock)

	now := time.Unix(1700000000, 0).UTC()
	rec := crawler.HashtagRecord{Hashtag: "gotour", VideoCount: 482, UpdatedAt: now}
	mock.ExpectExec("INSERT INTO hashtagdata").
		WithArgs(rec.Hashtag, rec.VideoCount, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertHashtagCount(context.Background(), rec))

	mock.ExpectExec("INSERT INTO hashtagdata").
		WithArgs(rec.Hashtag, rec.VideoCount, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err = store.InsertHashtagCount(context.Background(), rec)
	require.ErrorIs(t, err, crawler.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertHashtagCountWriteFault(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTrendStoreWithDB(mock)

	mock.ExpectExec("INSERT INTO hashtagdata").
		WithArgs("gotour", int64(1), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	err = store.InsertHashtagCount(context.Background(), crawler.HashtagRecord{Hashtag: "gotour", VideoCount: 1})
	require.Error(t, err)
	require.NotErrorIs(t, err, crawler.ErrDuplicate)
}

func TestPendingHashtagsExcludesTodaysRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTrendStoreWithDB(mock)

	asOf := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	// The day window must be computed in UTC regardless of the server's
	// session time zone.
	mock.ExpectQuery(`(?s)SELECT e\.hashtag.*AT TIME ZONE 'UTC'.*AT TIME ZONE 'UTC'`).
		WithArgs(asOf).
		WillReturnRows(pgxmock.NewRows([]string{"hashtag"}).
			AddRow("dance").
			AddRow("fyp").
			AddRow("gotour"))

	pending, err := store.PendingHashtags(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, []string{"dance", "fyp", "gotour"}, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaCreatesTables(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTrendStoreWithDB(mock)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS explore").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS hashtagdata").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS crawl_runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
