package phase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/crawler"
)

const detailBody = `{"challengeInfo": {"statsV2": {"videoCount": "482"}}}`

func newTestHashtag(store *fakeStore, ic *fakeInterceptor, clock crawler.Clock) *Hashtag {
	return NewHashtag(store, ic, &fakePacer{}, clock, HashtagConfig{}, zap.NewNop())
}

func TestHashtagSeedUsesPendingBacklog(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{pending: []string{"dance", "fyp"}}
	h := newTestHashtag(store, &fakeInterceptor{}, fakeClock{now: now})

	items, err := h.Seed(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, crawler.WorkItem{Phase: crawler.PhaseHashtag, Key: "dance"}, items[0])
	assert.Equal(t, crawler.WorkItem{Phase: crawler.PhaseHashtag, Key: "fyp"}, items[1])

	assert.Equal(t, 1, store.pendingCalls)
	assert.Equal(t, now, store.pendingAsOf)
}

func TestHashtagSeedEmptyBacklog(t *testing.T) {
	h := newTestHashtag(&fakeStore{}, &fakeInterceptor{}, fakeClock{now: time.Now()})

	items, err := h.Seed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHashtagSeedStoreFailure(t *testing.T) {
	store := &fakeStore{pendingErr: errors.New("connection refused")}
	h := newTestHashtag(store, &fakeInterceptor{}, fakeClock{now: time.Now()})

	_, err := h.Seed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed hashtag backlog")
}

func TestHashtagProcessInserts(t *testing.T) {
	store := &fakeStore{}
	sess := &fakeSession{}
	ic := &fakeInterceptor{bodies: []json.RawMessage{json.RawMessage(detailBody)}}
	h := newTestHashtag(store, ic, fakeClock{now: time.Now()})

	outcome, err := h.Process(context.Background(), sess, crawler.WorkItem{Phase: crawler.PhaseHashtag, Key: "dance"})
	require.NoError(t, err)
	assert.Equal(t, crawler.OutcomeInserted, outcome)

	assert.Equal(t, []string{HashtagBaseURL + "dance"}, sess.navigated)
	require.Len(t, store.hashtagRecs, 1)
	assert.Equal(t, "dance", store.hashtagRecs[0].Hashtag)
	assert.Equal(t, int64(482), store.hashtagRecs[0].VideoCount)
}

func TestHashtagProcessNoData(t *testing.T) {
	store := &fakeStore{}
	h := newTestHashtag(store, &fakeInterceptor{}, fakeClock{now: time.Now()})

	outcome, err := h.Process(context.Background(), &fakeSession{}, crawler.WorkItem{Phase: crawler.PhaseHashtag, Key: "dance"})
	require.NoError(t, err)
	assert.Equal(t, crawler.OutcomeNoData, outcome)
	assert.Empty(t, store.hashtagRecs)
}

func TestHashtagProcessMalformedPayload(t *testing.T) {
	store := &fakeStore{}
	ic := &fakeInterceptor{bodies: []json.RawMessage{json.RawMessage(`{"statusCode": 10201}`)}}
	h := newTestHashtag(store, ic, fakeClock{now: time.Now()})

	outcome, err := h.Process(context.Background(), &fakeSession{}, crawler.WorkItem{Phase: crawler.PhaseHashtag, Key: "dance"})
	require.NoError(t, err)
	assert.Equal(t, crawler.OutcomeNoData, outcome)
	assert.Empty(t, store.hashtagRecs)
}

func TestHashtagProcessDuplicate(t *testing.T) {
	store := &fakeStore{hashtagErr: crawler.ErrDuplicate}
	ic := &fakeInterceptor{bodies: []json.RawMessage{json.RawMessage(detailBody)}}
	h := newTestHashtag(store, ic, fakeClock{now: time.Now()})

	outcome, err := h.Process(context.Background(), &fakeSession{}, crawler.WorkItem{Phase: crawler.PhaseHashtag, Key: "dance"})
	require.NoError(t, err)
	assert.Equal(t, crawler.OutcomeDuplicate, outcome)
}

func TestHashtagProcessInsertFailure(t *testing.T) {
	store := &fakeStore{hashtagErr: errors.New("connection refused")}
	ic := &fakeInterceptor{bodies: []json.RawMessage{json.RawMessage(detailBody)}}
	h := newTestHashtag(store, ic, fakeClock{now: time.Now()})

	outcome, err := h.Process(context.Background(), &fakeSession{}, crawler.WorkItem{Phase: crawler.PhaseHashtag, Key: "dance"})
	require.Error(t, err)
	assert.Equal(t, crawler.OutcomeError, outcome)
	assert.Contains(t, err.Error(), "persist hashtag count")
}

func TestHashtagProcessNavigateFailure(t *testing.T) {
	sess := &fakeSession{navErr: errors.New("net::ERR_CONNECTION_RESET")}
	h := newTestHashtag(&fakeStore{}, &fakeInterceptor{}, fakeClock{now: time.Now()})

	outcome, err := h.Process(context.Background(), sess, crawler.WorkItem{Phase: crawler.PhaseHashtag, Key: "dance"})
	require.Error(t, err)
	assert.Equal(t, crawler.OutcomeError, outcome)
}
