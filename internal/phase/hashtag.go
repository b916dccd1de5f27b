package phase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/crawler"
	"github.com/hashwatch/trendtap/internal/extract"
	"github.com/hashwatch/trendtap/internal/metrics"
)

// HashtagConfig tunes the per-hashtag detail crawl.
type HashtagConfig struct {
	BaseURL string
	Target  string
}

// Hashtag fetches the cumulative video count for each pending hashtag. The
// backlog is the set difference between harvested hashtags and detail rows
// already updated today, so repeated daily runs never redo finished work.
type Hashtag struct {
	store       crawler.Store
	interceptor Interceptor
	pacer       Pacer
	clock       crawler.Clock
	cfg         HashtagConfig
	logger      *zap.Logger
}

// NewHashtag builds the hashtag detail phase.
func NewHashtag(
	store crawler.Store,
	interceptor Interceptor,
	pacer Pacer,
	clock crawler.Clock,
	cfg HashtagConfig,
	logger *zap.Logger,
) *Hashtag {
	if cfg.BaseURL == "" {
		cfg.BaseURL = HashtagBaseURL
	}
	if cfg.Target == "" {
		cfg.Target = DetailTargetURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hashtag{
		store:       store,
		interceptor: interceptor,
		pacer:       pacer,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
	}
}

// Kind reports the phase label.
func (h *Hashtag) Kind() crawler.Phase {
	return crawler.PhaseHashtag
}

// Seed queries the pending backlog as of today. Evaluated exactly once per
// run, before the queue is seeded.
func (h *Hashtag) Seed(ctx context.Context) ([]crawler.WorkItem, error) {
	pending, err := h.store.PendingHashtags(ctx, h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("seed hashtag backlog: %w", err)
	}

	items := make([]crawler.WorkItem, 0, len(pending))
	for _, tag := range pending {
		items = append(items, crawler.WorkItem{Phase: crawler.PhaseHashtag, Key: tag})
	}
	h.logger.Info("pending hashtags found", zap.Int("count", len(items)))
	return items, nil
}

// Process crawls one hashtag page and persists its video count.
func (h *Hashtag) Process(
	ctx context.Context,
	sess crawler.Session,
	item crawler.WorkItem,
) (crawler.Outcome, error) {
	if err := sess.Navigate(ctx, h.cfg.BaseURL+item.Key); err != nil {
		return crawler.OutcomeError, fmt.Errorf("navigate hashtag page: %w", err)
	}
	if err := h.pacer.Wait(ctx); err != nil {
		return crawler.OutcomeError, err
	}

	body, err := h.interceptor.Await(ctx, sess, crawler.PhaseHashtag, h.cfg.Target)
	if errors.Is(err, crawler.ErrNoData) {
		return crawler.OutcomeNoData, nil
	}
	if err != nil {
		return crawler.OutcomeError, err
	}

	rec, err := extract.HashtagRecord(body, item.Key)
	if err != nil {
		// Malformed payloads read the same as absence to the caller.
		h.logger.Warn("unusable hashtag payload", zap.String("hashtag", item.Key), zap.Error(err))
		return crawler.OutcomeNoData, nil
	}

	switch err := h.store.InsertHashtagCount(ctx, rec); {
	case err == nil:
		metrics.ObserveInsert("hashtagdata", string(crawler.OutcomeInserted))
		h.logger.Info("inserted hashtag count",
			zap.String("hashtag", rec.Hashtag),
			zap.Int64("video_count", rec.VideoCount),
		)
		return crawler.OutcomeInserted, nil
	case errors.Is(err, crawler.ErrDuplicate):
		metrics.ObserveInsert("hashtagdata", string(crawler.OutcomeDuplicate))
		h.logger.Debug("hashtag already recorded", zap.String("hashtag", rec.Hashtag))
		return crawler.OutcomeDuplicate, nil
	default:
		metrics.ObserveInsert("hashtagdata", string(crawler.OutcomeError))
		return crawler.OutcomeError, fmt.Errorf("persist hashtag count: %w", err)
	}
}
