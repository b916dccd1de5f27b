package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/crawler"
	"github.com/hashwatch/trendtap/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type stubRunReader struct {
	run crawler.Run
	err error
}

func (r *stubRunReader) LatestRun(context.Context) (crawler.Run, error) {
	if r.err != nil {
		return crawler.Run{}, r.err
	}
	return r.run, nil
}

func TestHealthz(t *testing.T) {
	srv := NewServer(&stubRunReader{}, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(&stubRunReader{}, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestLatestRun(t *testing.T) {
	finished := time.Date(2026, 2, 10, 10, 30, 0, 0, time.UTC)
	reader := &stubRunReader{run: crawler.Run{
		ID:         "3f1c2b34-9a6f-4f2e-8c8e-0a14f4f39b51",
		Phase:      crawler.PhaseExplore,
		StartedAt:  finished.Add(-10 * time.Minute),
		FinishedAt: &finished,
		Counters:   crawler.RunCounters{Succeeded: 42, Duplicates: 7},
	}}
	srv := NewServer(reader, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got crawler.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, reader.run.ID, got.ID)
	assert.Equal(t, crawler.PhaseExplore, got.Phase)
	assert.Equal(t, int64(42), got.Counters.Succeeded)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))
}

func TestLatestRunEmpty(t *testing.T) {
	srv := NewServer(&stubRunReader{err: pgx.ErrNoRows}, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/latest", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestRunLookupFailure(t *testing.T) {
	srv := NewServer(&stubRunReader{err: errors.New("connection refused")}, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/latest", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
