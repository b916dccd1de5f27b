// Package intercept implements the polling protocol that extracts API
// response bodies from a session's network log.
package intercept

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/crawler"
	"github.com/hashwatch/trendtap/internal/metrics"
)

// Interceptor polls a session's network log on a fixed cadence until a
// response matching a target URL substring appears or the poll budget runs
// out. Absence within budget is a normal outcome, surfaced as ErrNoData.
type Interceptor struct {
	checkBudget  int
	pollInterval time.Duration
	logger       *zap.Logger
}

// New builds an Interceptor with the given poll budget and cadence.
func New(checkBudget int, pollInterval time.Duration, logger *zap.Logger) *Interceptor {
	if checkBudget <= 0 {
		checkBudget = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interceptor{
		checkBudget:  checkBudget,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Await returns the decoded JSON body of the first response whose URL
// contains target, short-circuiting remaining poll iterations. A fetch or
// decode failure for one log entry skips that entry only. Budget exhaustion
// returns crawler.ErrNoData.
func (i *Interceptor) Await(
	ctx context.Context,
	sess crawler.Session,
	phase crawler.Phase,
	target string,
) (json.RawMessage, error) {
	start := time.Now()
	for attempt := 0; attempt < i.checkBudget; attempt++ {
		if err := sleep(ctx, i.pollInterval); err != nil {
			return nil, err
		}

		for _, entry := range sess.PollNetworkLog() {
			if !strings.Contains(entry.ResponseURL, target) {
				continue
			}
			body, err := i.decodeEntry(ctx, sess, entry)
			if err != nil {
				i.logger.Debug("skipping unusable log entry",
					zap.String("request_id", entry.RequestID),
					zap.String("url", entry.ResponseURL),
					zap.Error(err),
				)
				continue
			}
			metrics.ObserveIntercept(string(phase), true, time.Since(start))
			return body, nil
		}

		i.logger.Debug("checking network logs",
			zap.String("target", target),
			zap.Int("attempt", attempt+1),
			zap.Int("budget", i.checkBudget),
		)
	}

	metrics.ObserveIntercept(string(phase), false, time.Since(start))
	return nil, crawler.ErrNoData
}

func (i *Interceptor) decodeEntry(
	ctx context.Context,
	sess crawler.Session,
	entry crawler.NetworkLogEntry,
) (json.RawMessage, error) {
	body, err := sess.FetchResponseBody(ctx, entry.RequestID)
	if err != nil {
		return nil, fmt.Errorf("fetch body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("response body is not valid JSON")
	}
	return json.RawMessage(body), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("intercept wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
