package phase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/crawler"
	"github.com/hashwatch/trendtap/internal/extract"
	"github.com/hashwatch/trendtap/internal/metrics"
)

// ExploreConfig tunes the explore-feed harvest.
type ExploreConfig struct {
	PageURL       string
	Target        string
	ScrollCount   int
	ScrollWait    time.Duration
	CategoryWait  time.Duration
	NoDataPenalty int
}

// Explore harvests trending hashtags per content category from the explore
// feed. One WorkItem per category button; processing a category clicks its
// button and scrolls repeatedly, persisting every tagged item observed.
type Explore struct {
	store       crawler.Store
	factory     crawler.SessionFactory
	interceptor Interceptor
	pacer       Pacer
	cfg         ExploreConfig
	logger      *zap.Logger
}

// NewExplore builds the explore phase.
func NewExplore(
	store crawler.Store,
	factory crawler.SessionFactory,
	interceptor Interceptor,
	pacer Pacer,
	cfg ExploreConfig,
	logger *zap.Logger,
) *Explore {
	if cfg.PageURL == "" {
		cfg.PageURL = ExplorePageURL
	}
	if cfg.Target == "" {
		cfg.Target = ExploreTargetURL
	}
	if cfg.ScrollCount <= 0 {
		cfg.ScrollCount = 10
	}
	if cfg.NoDataPenalty < 0 {
		cfg.NoDataPenalty = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explore{
		store:       store,
		factory:     factory,
		interceptor: interceptor,
		pacer:       pacer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Kind reports the phase label.
func (e *Explore) Kind() crawler.Phase {
	return crawler.PhaseExplore
}

// Seed discovers category labels with a short-lived probe session and
// returns one WorkItem per category.
func (e *Explore) Seed(ctx context.Context) ([]crawler.WorkItem, error) {
	sess, err := e.factory.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed explore: %w", err)
	}
	defer sess.Dispose()

	if err := sess.Navigate(ctx, e.cfg.PageURL); err != nil {
		return nil, fmt.Errorf("seed explore: %w", err)
	}
	if err := sleep(ctx, e.cfg.CategoryWait); err != nil {
		return nil, err
	}
	labels, err := sess.CategoryLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed explore: %w", err)
	}

	items := make([]crawler.WorkItem, 0, len(labels))
	for _, label := range labels {
		items = append(items, crawler.WorkItem{Phase: crawler.PhaseExplore, Key: label})
	}
	e.logger.Info("explore categories discovered", zap.Int("count", len(items)))
	return items, nil
}

// Process crawls one category: click its button, then alternate between
// intercepting the feed endpoint and scrolling until the scroll budget runs
// out. A round that yields no data burns extra budget, mirroring the feed's
// tendency to stop serving once it runs dry.
func (e *Explore) Process(
	ctx context.Context,
	sess crawler.Session,
	item crawler.WorkItem,
) (crawler.Outcome, error) {
	if err := sess.Navigate(ctx, e.cfg.PageURL); err != nil {
		return crawler.OutcomeError, fmt.Errorf("navigate explore page: %w", err)
	}
	if err := e.pacer.Wait(ctx); err != nil {
		return crawler.OutcomeError, err
	}
	if err := sleep(ctx, e.cfg.CategoryWait); err != nil {
		return crawler.OutcomeError, err
	}
	if err := sess.ClickCategory(ctx, item.Key); err != nil {
		return crawler.OutcomeError, fmt.Errorf("select category: %w", err)
	}
	if err := sleep(ctx, e.cfg.CategoryWait); err != nil {
		return crawler.OutcomeError, err
	}

	var inserted, duplicates int
	for budget := e.cfg.ScrollCount; budget > 0; budget-- {
		body, err := e.interceptor.Await(ctx, sess, crawler.PhaseExplore, e.cfg.Target)
		switch {
		case errors.Is(err, crawler.ErrNoData):
			budget -= e.cfg.NoDataPenalty
		case err != nil:
			return crawler.OutcomeError, err
		default:
			records, extractErr := extract.ExploreRecords(body, item.Key)
			if extractErr != nil {
				e.logger.Warn("unusable explore payload",
					zap.String("category", item.Key),
					zap.Error(extractErr),
				)
				break
			}
			ins, dup := e.persist(ctx, item.Key, records)
			inserted += ins
			duplicates += dup
		}

		if err := sess.ScrollBottom(ctx); err != nil {
			return crawler.OutcomeError, fmt.Errorf("scroll feed: %w", err)
		}
		if err := sleep(ctx, e.cfg.ScrollWait); err != nil {
			return crawler.OutcomeError, err
		}
	}

	switch {
	case inserted > 0:
		return crawler.OutcomeInserted, nil
	case duplicates > 0:
		return crawler.OutcomeDuplicate, nil
	default:
		return crawler.OutcomeNoData, nil
	}
}

func (e *Explore) persist(ctx context.Context, category string, records []crawler.ExploreRecord) (int, int) {
	var inserted, duplicates int
	for _, rec := range records {
		err := e.store.InsertExplore(ctx, rec)
		switch {
		case err == nil:
			inserted++
			metrics.ObserveInsert("explore", string(crawler.OutcomeInserted))
			e.logger.Info("inserted explore record",
				zap.String("hashtag", rec.Hashtag),
				zap.String("category", category),
				zap.Int64("play_count", rec.PlayCount),
			)
		case errors.Is(err, crawler.ErrDuplicate):
			duplicates++
			metrics.ObserveInsert("explore", string(crawler.OutcomeDuplicate))
			e.logger.Debug("explore hashtag already recorded",
				zap.String("hashtag", rec.Hashtag),
				zap.String("category", category),
			)
		default:
			metrics.ObserveInsert("explore", string(crawler.OutcomeError))
			e.logger.Error("explore insert failed",
				zap.String("hashtag", rec.Hashtag),
				zap.Error(err),
			)
		}
	}
	return inserted, duplicates
}
