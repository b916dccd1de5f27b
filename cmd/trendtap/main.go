// Package main hosts the trendtap crawler entrypoint.
//
// Architecture overview:
//   - Phases: the explore command discovers content categories and harvests
//     trending hashtags with play counts; the hashtags command backfills
//     cumulative video counts for every hashtag lacking a fresh detail row.
//   - Interception: chromedp sessions observe the site's internal API
//     traffic via CDP network events. A polling interceptor waits a bounded
//     number of rounds for a response whose URL matches the phase's target
//     endpoint, then pulls the body straight from the browser.
//   - Concurrency model: a bounded in-memory queue feeds a fixed pool of
//     session workers. Each worker owns one browser session, restarts it
//     after a configured number of navigations, and absorbs per-item
//     failures. The queue drains once seeding is sealed and every item is
//     acknowledged, so runs terminate deterministically.
//   - Persistence: pgx/pgxpool against Postgres. Inserts are idempotent
//     (insert-if-absent on the hashtag key) and the pending-work query makes
//     reruns cheap. Run bookkeeping lands in crawl_runs.
//   - Plumbing: Viper loads config from file and TRENDTAP_* env; zap
//     provides structured logging; Prometheus counters and histograms are
//     served by the chi ops server alongside /healthz and /runs/latest.
package main

import "github.com/hashwatch/trendtap/cmd"

func main() {
	cmd.Execute()
}
