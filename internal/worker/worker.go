// Package worker implements the session-bound crawl execution loop.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/crawler"
	"github.com/hashwatch/trendtap/internal/metrics"
)

// Processor handles one dequeued item using the worker's session.
// Satisfied by the phase implementations.
type Processor interface {
	Kind() crawler.Phase
	Process(ctx context.Context, sess crawler.Session, item crawler.WorkItem) (crawler.Outcome, error)
}

// Config controls SessionWorker behavior.
type Config struct {
	MaxRequestsPerSession int
	RestartDelay          time.Duration
	RequeueOnFailure      bool
}

// SessionWorker owns one browser session at a time and consumes queue items
// until the queue drains. Per-item failures are absorbed; only a session the
// worker cannot replace ends the loop early.
type SessionWorker struct {
	id        int
	queue     crawler.Queue
	factory   crawler.SessionFactory
	processor Processor
	retry     *acquireRetryPolicy
	cfg       Config
	logger    *zap.Logger

	mu       sync.Mutex
	counters crawler.RunCounters
}

// New constructs a SessionWorker.
func New(
	id int,
	queue crawler.Queue,
	factory crawler.SessionFactory,
	processor Processor,
	cfg Config,
	logger *zap.Logger,
) *SessionWorker {
	if cfg.MaxRequestsPerSession <= 0 {
		cfg.MaxRequestsPerSession = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionWorker{
		id:        id,
		queue:     queue,
		factory:   factory,
		processor: processor,
		retry:     newAcquireRetryPolicy(),
		cfg:       cfg,
		logger:    logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, consuming queue items until the queue drains or the context
// finishes. It returns an error only when no session could be obtained.
func (w *SessionWorker) Run(ctx context.Context) error {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	sess, err := w.acquire(ctx)
	if err != nil {
		return fmt.Errorf("worker %d: initial session: %w", w.id, err)
	}
	defer func() {
		if sess != nil {
			sess.Dispose()
		}
	}()

	for {
		item, ok, err := w.queue.Dequeue(ctx)
		if err != nil {
			return fmt.Errorf("worker %d: dequeue: %w", w.id, err)
		}
		if !ok {
			w.logger.Debug("queue drained, worker exiting")
			return nil
		}

		if sess.RequestCount() >= w.cfg.MaxRequestsPerSession {
			sess, err = w.restart(ctx, sess)
			if err != nil {
				// The dequeued item still gets a per-item outcome before
				// the worker gives up on its session.
				metrics.ObserveItem(string(item.Phase), string(crawler.OutcomeError))
				w.handleFailure(ctx, item, fmt.Errorf("session restart: %w", err))
				w.queue.Done()
				return fmt.Errorf("worker %d: session restart: %w", w.id, err)
			}
		}

		w.processItem(ctx, sess, item)
		w.queue.Done()
	}
}

// Counters reports the per-item outcome totals accumulated so far.
func (w *SessionWorker) Counters() crawler.RunCounters {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counters
}

func (w *SessionWorker) processItem(ctx context.Context, sess crawler.Session, item crawler.WorkItem) {
	outcome, err := w.processor.Process(ctx, sess, item)
	metrics.ObserveItem(string(item.Phase), string(outcome))

	switch outcome {
	case crawler.OutcomeInserted:
		w.count(func(c *crawler.RunCounters) { c.Succeeded++ })
	case crawler.OutcomeDuplicate:
		w.count(func(c *crawler.RunCounters) { c.Duplicates++ })
	case crawler.OutcomeNoData:
		w.count(func(c *crawler.RunCounters) { c.NoData++ })
		w.logger.Info("item yielded no data",
			zap.String("phase", string(item.Phase)),
			zap.String("key", item.Key),
		)
	default:
		w.handleFailure(ctx, item, err)
	}
}

func (w *SessionWorker) count(apply func(*crawler.RunCounters)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	apply(&w.counters)
}

func (w *SessionWorker) handleFailure(ctx context.Context, item crawler.WorkItem, err error) {
	if w.cfg.RequeueOnFailure && item.Attempt == 0 && ctx.Err() == nil {
		retry := item
		retry.Attempt++
		if enqErr := w.queue.Enqueue(ctx, retry); enqErr == nil {
			w.logger.Warn("item failed, requeued",
				zap.String("phase", string(item.Phase)),
				zap.String("key", item.Key),
				zap.Error(err),
			)
			return
		}
	}
	w.count(func(c *crawler.RunCounters) { c.Failed++ })
	w.logger.Error("item failed",
		zap.String("phase", string(item.Phase)),
		zap.String("key", item.Key),
		zap.Int("attempt", item.Attempt),
		zap.Error(err),
	)
}

// restart disposes a session that hit its request budget and brings up a
// replacement after a cool-down.
func (w *SessionWorker) restart(ctx context.Context, old crawler.Session) (crawler.Session, error) {
	w.logger.Info("session request budget exhausted, restarting",
		zap.Int("requests", old.RequestCount()),
	)
	old.Dispose()
	metrics.ObserveSessionRestart()

	if err := sleep(ctx, w.cfg.RestartDelay); err != nil {
		return nil, err
	}
	return w.acquire(ctx)
}

// acquire obtains a fresh session, retrying bootstrap failures with backoff.
func (w *SessionWorker) acquire(ctx context.Context) (crawler.Session, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		sess, err := w.factory.Acquire(ctx)
		if err == nil {
			metrics.ObserveSessionAcquired()
			return sess, nil
		}
		lastErr = err
		if !w.retry.ShouldRetry(err, attempt) {
			break
		}
		backoff := w.retry.Backoff(attempt)
		w.logger.Warn("session acquire failed, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
