package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/api"
	"github.com/hashwatch/trendtap/internal/clock/system"
	"github.com/hashwatch/trendtap/internal/config"
	"github.com/hashwatch/trendtap/internal/crawler"
	"github.com/hashwatch/trendtap/internal/dispatcher"
	"github.com/hashwatch/trendtap/internal/intercept"
	"github.com/hashwatch/trendtap/internal/policy/ratelimit"
	"github.com/hashwatch/trendtap/internal/queue"
	"github.com/hashwatch/trendtap/internal/session"
	"github.com/hashwatch/trendtap/internal/storage/postgres"
	"github.com/hashwatch/trendtap/internal/worker"
)

// phaseBuilder assembles a phase from the shared service handles.
type phaseBuilder func(deps runDeps) dispatcher.Phase

// runDeps bundles the services both subcommands wire identically.
type runDeps struct {
	cfg     config.Config
	store   *postgres.TrendStore
	factory *session.Factory
	pacer   *ratelimit.Pacer
	clock   crawler.Clock
	logger  *zap.Logger
}

// interceptor builds the response-log poller for the given budget and
// cadence.
func (d runDeps) interceptor(checkBudget int, pollInterval time.Duration) *intercept.Interceptor {
	return intercept.New(checkBudget, pollInterval, d.logger)
}

// runPhase wires the full pipeline and executes one phase to completion:
// store, session factory, queue, worker pool, dispatcher, and the optional
// ops server.
func runPhase(ctx context.Context, cfg config.Config, logger *zap.Logger, build phaseBuilder) error {
	store, pool, err := postgres.NewTrendStore(ctx, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	sleepMin, sleepMax := cfg.Workers.SleepBounds()
	deps := runDeps{
		cfg:   cfg,
		store: store,
		factory: session.NewFactory(session.Config{
			Headless:        cfg.Browser.Headless,
			UserAgent:       cfg.Browser.UserAgent,
			NavTimeout:      cfg.Browser.NavTimeout(),
			NetworkLogDepth: cfg.Browser.NetworkLogDepth,
		}, logger),
		pacer: ratelimit.New(ratelimit.Config{
			RPS:      cfg.Workers.NavRPS,
			SleepMin: sleepMin,
			SleepMax: sleepMax,
		}),
		clock:  system.New(),
		logger: logger,
	}
	phase := build(deps)

	q := queue.NewMemory(cfg.Workers.QueueDepth)
	workers := make([]*worker.SessionWorker, 0, cfg.Workers.PoolSize)
	for i := 0; i < cfg.Workers.PoolSize; i++ {
		workers = append(workers, worker.New(i, q, deps.factory, phase, worker.Config{
			MaxRequestsPerSession: cfg.Workers.MaxRequestsPerSession,
			RestartDelay:          cfg.Workers.RestartDelay(),
			RequeueOnFailure:      cfg.Workers.RequeueOnFailure,
		}, logger))
	}

	runStore := postgres.NewRunStore(pool)
	d := dispatcher.New(q, phase, workers, runStore, deps.clock, logger)

	opsCtx, stopOps := context.WithCancel(ctx)
	opsDone := make(chan error, 1)
	if cfg.Ops.Enabled {
		srv := api.NewServer(runStore, logger)
		go func() { opsDone <- srv.Serve(opsCtx, cfg.Ops.Port) }()
	} else {
		close(opsDone)
	}

	counters, runErr := d.Run(ctx)
	stopOps()
	if opsErr := <-opsDone; opsErr != nil {
		logger.Warn("ops server error", zap.Error(opsErr))
	}

	logger.Info("phase complete",
		zap.String("phase", string(phase.Kind())),
		zap.Int64("succeeded", counters.Succeeded),
		zap.Int64("duplicates", counters.Duplicates),
		zap.Int64("no_data", counters.NoData),
		zap.Int64("failed", counters.Failed),
	)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
