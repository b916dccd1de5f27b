// Package session wraps one headless Chrome instance behind the crawler's
// Session capability, with CDP network logging enabled.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/hashwatch/trendtap/internal/crawler"
)

// bootstrapMu serializes browser bootstrap process-wide. The exec allocator
// races against itself on first use (profile and binary setup); steady-state
// use of distinct sessions needs no locking.
var bootstrapMu sync.Mutex

// Config controls browser session behavior.
type Config struct {
	Headless        bool
	UserAgent       string
	NavTimeout      time.Duration
	NetworkLogDepth int
}

// Factory creates chromedp-backed sessions.
type Factory struct {
	cfg    Config
	logger *zap.Logger
}

// NewFactory builds a session factory.
func NewFactory(cfg Config, logger *zap.Logger) *Factory {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	if cfg.NetworkLogDepth <= 0 {
		cfg.NetworkLogDepth = 512
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{cfg: cfg, logger: logger}
}

// Acquire boots a fresh browser and returns a ready Session. Bootstrap is
// serialized process-wide; failures are reported as SessionInitError so the
// caller retries acquisition instead of crashing the pool.
func (f *Factory) Acquire(ctx context.Context) (crawler.Session, error) {
	bootstrapMu.Lock()
	defer bootstrapMu.Unlock()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		navTimeout:    f.cfg.NavTimeout,
		logDepth:      f.cfg.NetworkLogDepth,
		logger:        f.logger,
	}
	chromedp.ListenTarget(browserCtx, s.captureEvent)

	warmup := chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		return nil
	})
	if err := chromedp.Run(browserCtx, warmup); err != nil {
		s.Dispose()
		return nil, &crawler.SessionInitError{Err: fmt.Errorf("chromedp warmup: %w", err)}
	}
	if ctx.Err() != nil {
		s.Dispose()
		return nil, &crawler.SessionInitError{Err: ctx.Err()}
	}
	return s, nil
}

// Session is one browser automation instance. Single-owner; not safe for
// concurrent use by multiple workers.
type Session struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	navTimeout    time.Duration
	logger        *zap.Logger

	logMu    sync.Mutex
	entries  []crawler.NetworkLogEntry
	logDepth int

	requests int
	disposed sync.Once
}

// Navigate loads a URL and counts it against the session's request budget.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.requests++
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// ClickCategory clicks the explore-page category button with the given label.
func (s *Session) ClickCategory(ctx context.Context, label string) error {
	script := fmt.Sprintf(`(() => {
		const buttons = document.querySelectorAll('#main-content-explore_page button');
		for (const b of buttons) {
			if (b.textContent.trim() === %q) { b.click(); return true; }
		}
		return false;
	})()`, label)

	var clicked bool
	if err := s.run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("category button %q not found", label)
	}
	return nil
}

// ScrollBottom scrolls the page to the bottom to trigger the next feed batch.
func (s *Session) ScrollBottom(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

// CategoryLabels reads the labels of the explore-page category buttons.
func (s *Session) CategoryLabels(ctx context.Context) ([]string, error) {
	script := `Array.from(document.querySelectorAll('#main-content-explore_page button'))
		.map(b => b.textContent.trim())
		.filter(t => t.length > 0)`

	var labels []string
	if err := s.run(ctx, chromedp.Evaluate(script, &labels)); err != nil {
		return nil, err
	}
	return labels, nil
}

// PollNetworkLog drains and returns the response events buffered since the
// previous poll.
func (s *Session) PollNetworkLog() []crawler.NetworkLogEntry {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	drained := s.entries
	s.entries = nil
	return drained
}

// FetchResponseBody retrieves a logged response body by request id.
func (s *Session) FetchResponseBody(ctx context.Context, requestID string) ([]byte, error) {
	var body []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		b, err := network.GetResponseBody(network.RequestID(requestID)).Do(ctx)
		if err != nil {
			return fmt.Errorf("get response body %s: %w", requestID, err)
		}
		body = b
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// RequestCount reports how many navigations this session has served.
func (s *Session) RequestCount() int {
	return s.requests
}

// Dispose terminates the browser and releases its resources. Idempotent.
func (s *Session) Dispose() {
	s.disposed.Do(func() {
		s.browserCancel()
		s.allocCancel()
	})
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithTimeout(s.browserCtx, s.navTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(taskCtx, actions...) }()

	select {
	case <-ctx.Done():
		cancel()
		<-done
		return fmt.Errorf("session op canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("chromedp run: %w", err)
		}
		return nil
	}
}

func (s *Session) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Response == nil {
		return
	}
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if len(s.entries) >= s.logDepth {
		// Oldest entries fall off; the interceptor polls faster than the
		// page can realistically fill the buffer.
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, crawler.NetworkLogEntry{
		RequestID:   string(resp.RequestID),
		Method:      "Network.responseReceived",
		ResponseURL: resp.Response.URL,
	})
}
