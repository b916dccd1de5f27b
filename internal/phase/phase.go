// Package phase implements the two collection passes: the explore-feed
// harvest and the per-hashtag detail crawl.
package phase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashwatch/trendtap/internal/crawler"
)

// Target endpoints, matched by substring against logged response URLs.
const (
	ExplorePageURL   = "https://www.tiktok.com/explore?lang=en-US"
	HashtagBaseURL   = "https://www.tiktok.com/tag/"
	ExploreTargetURL = "https://www.tiktok.com/api/explore/item_list/"
	DetailTargetURL  = "https://www.tiktok.com/api/challenge/detail"
)

// Phase is one collection pass. Seed derives the run's backlog; Process
// handles a single dequeued item using the worker's session.
type Phase interface {
	Kind() crawler.Phase
	Seed(ctx context.Context) ([]crawler.WorkItem, error)
	Process(ctx context.Context, sess crawler.Session, item crawler.WorkItem) (crawler.Outcome, error)
}

// Pacer throttles navigations. Satisfied by ratelimit.Pacer.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Interceptor awaits one matching API response on a session's network log.
// Satisfied by intercept.Interceptor.
type Interceptor interface {
	Await(ctx context.Context, sess crawler.Session, phase crawler.Phase, target string) (json.RawMessage, error)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("phase wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
