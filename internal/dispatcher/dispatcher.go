// Package dispatcher orchestrates one crawl run: seed, fan out, record.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/crawler"
	"github.com/hashwatch/trendtap/internal/worker"
)

// Phase is the collection pass being dispatched. Satisfied by the phase
// implementations.
type Phase interface {
	worker.Processor
	Seed(ctx context.Context) ([]crawler.WorkItem, error)
}

// Queue is the work queue contract the dispatcher needs on top of the
// worker-facing surface. Satisfied by queue.Memory.
type Queue interface {
	crawler.Queue
	Seal()
}

// Dispatcher runs one phase to completion: seeds the queue, fans the items
// out over the session workers, and records the run's outcome counters.
type Dispatcher struct {
	queue    Queue
	phase    Phase
	workers  []*worker.SessionWorker
	runStore crawler.RunStore
	clock    crawler.Clock
	logger   *zap.Logger
}

// New creates a Dispatcher.
func New(
	queue Queue,
	phase Phase,
	workers []*worker.SessionWorker,
	runStore crawler.RunStore,
	clock crawler.Clock,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:    queue,
		phase:    phase,
		workers:  workers,
		runStore: runStore,
		clock:    clock,
		logger:   logger,
	}
}

// Run executes the phase and blocks until the queue drains or the context
// finishes. It returns an error if seeding fails or every worker failed to
// obtain a session.
func (d *Dispatcher) Run(ctx context.Context) (crawler.RunCounters, error) {
	items, err := d.phase.Seed(ctx)
	if err != nil {
		return crawler.RunCounters{}, fmt.Errorf("seed %s phase: %w", d.phase.Kind(), err)
	}

	run := crawler.Run{
		ID:        uuid.NewString(),
		Phase:     d.phase.Kind(),
		StartedAt: d.clock.Now(),
	}
	if err := d.runStore.BeginRun(ctx, run); err != nil {
		return crawler.RunCounters{}, fmt.Errorf("begin run: %w", err)
	}
	d.logger.Info("run started",
		zap.String("run_id", run.ID),
		zap.String("phase", string(run.Phase)),
		zap.Int("items", len(items)),
		zap.Int("workers", len(d.workers)),
	)

	// Workers start before seeding. The queue is bounded, so a backlog
	// larger than its capacity would block the enqueue loop forever if no
	// consumer were running yet. Seeding runs in its own goroutine and is
	// canceled once the pool exits, so a pool that dies before draining
	// cannot strand the seeder on a full queue either.
	workerErrs := make([]error, len(d.workers))
	var wg sync.WaitGroup
	for i, w := range d.workers {
		wg.Add(1)
		go func(i int, wk *worker.SessionWorker) {
			defer wg.Done()
			workerErrs[i] = wk.Run(ctx)
		}(i, w)
	}

	seedCtx, cancelSeed := context.WithCancel(ctx)
	defer cancelSeed()
	seedDone := make(chan error, 1)
	go func() {
		for _, item := range items {
			if err := d.queue.Enqueue(seedCtx, item); err != nil {
				seedDone <- fmt.Errorf("enqueue %q: %w", item.Key, err)
				return
			}
		}
		d.queue.Seal()
		seedDone <- nil
	}()

	wg.Wait()
	cancelSeed()
	seedErr := <-seedDone

	counters := d.aggregate()
	if err := d.finish(run.ID, counters); err != nil {
		d.logger.Error("run bookkeeping failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	d.logger.Info("run finished",
		zap.String("run_id", run.ID),
		zap.Int64("succeeded", counters.Succeeded),
		zap.Int64("duplicates", counters.Duplicates),
		zap.Int64("no_data", counters.NoData),
		zap.Int64("failed", counters.Failed),
	)

	if err := ctx.Err(); err != nil {
		return counters, fmt.Errorf("run %s interrupted: %w", run.ID, err)
	}
	if err := d.allWorkersFailed(workerErrs); err != nil {
		return counters, err
	}
	if seedErr != nil {
		return counters, seedErr
	}
	return counters, nil
}

func (d *Dispatcher) aggregate() crawler.RunCounters {
	var total crawler.RunCounters
	for _, w := range d.workers {
		c := w.Counters()
		total.Succeeded += c.Succeeded
		total.Duplicates += c.Duplicates
		total.NoData += c.NoData
		total.Failed += c.Failed
	}
	return total
}

// finish persists the run's final counters. Uses a fresh context so a
// canceled run still gets recorded.
func (d *Dispatcher) finish(runID string, counters crawler.RunCounters) error {
	return d.runStore.FinishRun(context.Background(), runID, d.clock.Now(), counters)
}

// allWorkersFailed returns an error only when no worker ran at all. A pool
// that lost some workers but drained the queue is a success.
func (d *Dispatcher) allWorkersFailed(workerErrs []error) error {
	failed := 0
	for _, err := range workerErrs {
		if err != nil {
			failed++
			d.logger.Warn("worker exited early", zap.Error(err))
		}
	}
	if failed == len(d.workers) && len(d.workers) > 0 {
		return errors.Join(append([]error{errors.New("all workers failed")}, workerErrs...)...)
	}
	return nil
}
