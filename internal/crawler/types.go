package crawler

import "time"

// Phase identifies which collection pass produced a record or run.
type Phase string

// Collection phases persisted in run bookkeeping.
const (
	PhaseExplore Phase = "explore"
	PhaseHashtag Phase = "hashtag"
)

// ExploreRecord is one trending hashtag observed on the explore feed.
// The hashtag is the natural key; the first writer wins across categories.
type ExploreRecord struct {
	Category  string
	Hashtag   string
	PlayCount int64
}

// HashtagRecord is the cumulative video count fetched for one hashtag.
// One row per hashtag; rows updated on the current day are excluded from
// subsequent pending-work queries until the next day.
type HashtagRecord struct {
	Hashtag    string
	VideoCount int64
	UpdatedAt  time.Time
}

// WorkItem is the atomic unit of queued crawl work: a category label for the
// explore phase or a hashtag for the detail phase. Immutable once enqueued.
type WorkItem struct {
	Phase   Phase
	Key     string
	Attempt int
}

// NetworkLogEntry is one response-received event surfaced by a Session's
// network log. Transient; consumed immediately by the interceptor.
type NetworkLogEntry struct {
	RequestID   string
	Method      string
	ResponseURL string
}

// Outcome classifies how processing one WorkItem ended.
type Outcome string

// Per-item outcomes emitted in logs and metrics.
const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNoData    Outcome = "no_data"
	OutcomeError     Outcome = "error"
)

// RunCounters aggregates per-item outcomes across one orchestration run.
type RunCounters struct {
	Succeeded  int64 `json:"succeeded"`
	Duplicates int64 `json:"duplicates"`
	NoData     int64 `json:"no_data"`
	Failed     int64 `json:"failed"`
}

// Run is the bookkeeping row persisted for each orchestration pass.
type Run struct {
	ID         string      `json:"id"`
	Phase      Phase       `json:"phase"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Counters   RunCounters `json:"counters"`
}
