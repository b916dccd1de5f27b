package phase

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/hashwatch/trendtap/internal/crawler"
	"github.com/hashwatch/trendtap/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeSession struct {
	navigated  []string
	clicked    []string
	scrolls    int
	labels     []string
	navErr     error
	clickErr   error
	labelsErr  error
	scrollErr  error
	disposed   bool
	reqCounter int
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	if s.navErr != nil {
		return s.navErr
	}
	s.navigated = append(s.navigated, url)
	s.reqCounter++
	return nil
}

func (s *fakeSession) ClickCategory(_ context.Context, label string) error {
	if s.clickErr != nil {
		return s.clickErr
	}
	s.clicked = append(s.clicked, label)
	return nil
}

func (s *fakeSession) ScrollBottom(context.Context) error {
	if s.scrollErr != nil {
		return s.scrollErr
	}
	s.scrolls++
	return nil
}

func (s *fakeSession) CategoryLabels(context.Context) ([]string, error) {
	if s.labelsErr != nil {
		return nil, s.labelsErr
	}
	return s.labels, nil
}

func (s *fakeSession) PollNetworkLog() []crawler.NetworkLogEntry { return nil }

func (s *fakeSession) FetchResponseBody(context.Context, string) ([]byte, error) {
	return nil, nil
}

func (s *fakeSession) RequestCount() int { return s.reqCounter }

func (s *fakeSession) Dispose() { s.disposed = true }

type fakeFactory struct {
	session *fakeSession
	err     error
}

func (f *fakeFactory) Acquire(context.Context) (crawler.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

// fakeInterceptor replays scripted responses in order. A nil body entry
// yields the paired error instead.
type fakeInterceptor struct {
	bodies []json.RawMessage
	errs   []error
	calls  int
}

func (f *fakeInterceptor) Await(context.Context, crawler.Session, crawler.Phase, string) (json.RawMessage, error) {
	i := f.calls
	f.calls++
	if i >= len(f.bodies) {
		return nil, crawler.ErrNoData
	}
	if f.errs != nil && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.bodies[i], nil
}

type fakePacer struct {
	waits int
	err   error
}

func (p *fakePacer) Wait(context.Context) error {
	p.waits++
	return p.err
}

type fakeStore struct {
	exploreRecs  []crawler.ExploreRecord
	hashtagRecs  []crawler.HashtagRecord
	exploreErr   error
	hashtagErr   error
	pending      []string
	pendingErr   error
	pendingAsOf  time.Time
	pendingCalls int
}

func (s *fakeStore) InsertExplore(_ context.Context, rec crawler.ExploreRecord) error {
	if s.exploreErr != nil {
		return s.exploreErr
	}
	s.exploreRecs = append(s.exploreRecs, rec)
	return nil
}

func (s *fakeStore) InsertHashtagCount(_ context.Context, rec crawler.HashtagRecord) error {
	if s.hashtagErr != nil {
		return s.hashtagErr
	}
	s.hashtagRecs = append(s.hashtagRecs, rec)
	return nil
}

func (s *fakeStore) PendingHashtags(_ context.Context, asOf time.Time) ([]string, error) {
	s.pendingCalls++
	s.pendingAsOf = asOf
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	return s.pending, nil
}

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }
