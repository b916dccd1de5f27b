package crawler

import (
	"context"
	"time"
)

// Session is one browser automation instance with network observation
// enabled. Sessions are single-owner: exactly one worker drives a Session at
// a time, and a disposed Session is never reused.
type Session interface {
	// Navigate loads a URL. The network log keeps accumulating across
	// navigations within the same session.
	Navigate(ctx context.Context, url string) error

	// ClickCategory clicks the explore-page category button whose label
	// matches the given text.
	ClickCategory(ctx context.Context, label string) error

	// ScrollBottom scrolls the current page to the bottom to provoke the
	// next batch of feed requests.
	ScrollBottom(ctx context.Context) error

	// CategoryLabels returns the labels of the category buttons on the
	// currently loaded explore page.
	CategoryLabels(ctx context.Context) ([]string, error)

	// PollNetworkLog drains and returns the response events buffered since
	// the previous poll.
	PollNetworkLog() []NetworkLogEntry

	// FetchResponseBody retrieves the body of a logged response by its
	// request id.
	FetchResponseBody(ctx context.Context, requestID string) ([]byte, error)

	// RequestCount reports how many navigations this session has served.
	RequestCount() int

	// Dispose terminates the session and releases its resources. Idempotent.
	Dispose()
}

// SessionFactory creates fresh sessions. Implementations must serialize the
// underlying automation bootstrap; steady-state use of distinct sessions is
// fully parallel.
type SessionFactory interface {
	Acquire(ctx context.Context) (Session, error)
}

// Store is the persistence adapter shared by both phases. Implementations
// must be safe for concurrent callers.
type Store interface {
	// InsertExplore persists one explore record. Returns ErrDuplicate when
	// the hashtag already exists.
	InsertExplore(ctx context.Context, rec ExploreRecord) error

	// InsertHashtagCount persists one hashtag detail record. Returns
	// ErrDuplicate when the hashtag already exists.
	InsertHashtagCount(ctx context.Context, rec HashtagRecord) error

	// PendingHashtags returns hashtags present in the explore table but
	// without a hashtagdata row updated on asOf's date.
	PendingHashtags(ctx context.Context, asOf time.Time) ([]string, error)
}

// RunStore records orchestration runs for observability.
type RunStore interface {
	BeginRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, id string, finishedAt time.Time, counters RunCounters) error
}

// Queue provides bounded enqueue/dequeue semantics for crawl work. Every
// dequeued item must be balanced by one Done call; the queue drains once it
// is sealed and all dequeued items are done.
type Queue interface {
	Enqueue(ctx context.Context, item WorkItem) error
	// Dequeue blocks until an item is available, the queue drains, or the
	// context finishes. ok is false once the queue is drained.
	Dequeue(ctx context.Context) (item WorkItem, ok bool, err error)
	// Done marks one previously dequeued item as fully processed.
	Done()
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
