package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	// idleWindow is how long the network must stay quiet before the page
	// counts as loaded.
	idleWindow = 500 * time.Millisecond

	// idleConnections is the number of requests still allowed in flight
	// while idle. Chat widgets and analytics beacons often never finish.
	idleConnections = 2

	// idlePollInterval is how often the network tracker is checked.
	idlePollInterval = 100 * time.Millisecond
)

// RenderedPage is the outcome of one successful navigation.
type RenderedPage struct {
	// URL is the URL that was requested.
	URL string

	// FinalURL is the document location after redirects.
	FinalURL string

	// HTML is the serialized DOM after client-side rendering.
	HTML string

	// Title is document.title.
	Title string

	// StatusCode is the HTTP status of the main document, 0 if unknown.
	StatusCode int
}

// BrowserOptions configures the headless browser.
type BrowserOptions struct {
	// Timeout bounds one navigation, settle delay included.
	Timeout time.Duration

	// SettleDelay is waited after the network goes idle.
	SettleDelay time.Duration

	// UserAgent overrides Chrome's user agent.
	UserAgent string

	// Width and Height size the window and the emulated viewport.
	Width  int
	Height int

	// Headless runs Chrome without a window.
	Headless bool

	// ProxyURL is passed to Chrome as --proxy-server.
	ProxyURL string

	// ExecPath points at the Chrome binary. Empty means chromedp's lookup.
	ExecPath string
}

// Browser renders pages in a shared headless Chrome, one tab per page.
// It is safe for concurrent use.
type Browser struct {
	opts BrowserOptions

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	closed atomic.Bool
	logger *slog.Logger
}

// NewBrowser launches Chrome. The browser outlives ctx's cancellation and
// must be released with Close. Launch failures wrap ErrBrowserLaunch.
func NewBrowser(ctx context.Context, opts BrowserOptions, logger *slog.Logger) (*Browser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	// Running no actions starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %w", ErrBrowserLaunch, err)
	}

	logger.Debug("browser started", "headless", opts.Headless, "proxy", opts.ProxyURL)
	return &Browser{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// allocatorOptions builds the Chrome command line.
func allocatorOptions(opts BrowserOptions) []chromedp.ExecAllocatorOption {
	execOpts := slices.Clone(chromedp.DefaultExecAllocatorOptions[:])
	execOpts = append(execOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.Width > 0 && opts.Height > 0 {
		execOpts = append(execOpts, chromedp.WindowSize(opts.Width, opts.Height))
	}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		execOpts = append(execOpts, chromedp.ProxyServer(p))
	}
	if opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
	}
	return execOpts
}

// FetchRenderedPage opens pageURL in a new tab, waits for the network to go
// idle plus the settle delay, and returns the rendered HTML. The tab is
// closed on every return path. Failures are *NavigationError.
func (b *Browser) FetchRenderedPage(ctx context.Context, pageURL string) (*RenderedPage, error) {
	if b.closed.Load() {
		return nil, &NavigationError{URL: pageURL, Err: ErrBrowserClosed}
	}

	tabCtx, closeTab := chromedp.NewContext(b.browserCtx)
	defer closeTab()

	runCtx, cancel := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	tracker := newNetworkTracker(time.Now)
	chromedp.ListenTarget(tabCtx, tracker.handle)

	var (
		html     string
		title    string
		location string
	)
	actions := []chromedp.Action{
		network.Enable(),
	}
	if b.opts.Width > 0 && b.opts.Height > 0 {
		actions = append(actions, chromedp.EmulateViewport(int64(b.opts.Width), int64(b.opts.Height)))
	}
	actions = append(actions,
		chromedp.Navigate(pageURL),
		waitNetworkIdle(tracker, idleWindow),
		chromedp.Sleep(b.opts.SettleDelay),
		chromedp.Title(&title),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	start := time.Now()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, &NavigationError{URL: pageURL, Err: b.navigationCause(ctx, err)}
	}

	status := tracker.documentStatus()
	if status >= 400 {
		return nil, &NavigationError{URL: pageURL, Err: &StatusError{Code: status}}
	}

	if location == "" {
		location = pageURL
	}
	b.logger.Debug("page rendered",
		"url", pageURL,
		"final_url", location,
		"status", status,
		"html_bytes", len(html),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &RenderedPage{
		URL:        pageURL,
		FinalURL:   location,
		HTML:       html,
		Title:      strings.TrimSpace(title),
		StatusCode: status,
	}, nil
}

// navigationCause distinguishes caller cancellation from the per-page timeout.
func (b *Browser) navigationCause(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("timed out after %s: %w", b.opts.Timeout, context.DeadlineExceeded)
	}
	return err
}

// Close shuts the browser down. It is safe to call more than once.
func (b *Browser) Close() {
	if b.closed.Swap(true) {
		return
	}
	if err := chromedp.Cancel(b.browserCtx); err != nil {
		b.logger.Debug("browser shutdown", "error", err)
	}
	b.browserCancel()
	b.allocCancel()
}

// networkTracker follows the requests of one tab.
type networkTracker struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	lastChange time.Time
	status     int
	now        func() time.Time
}

func newNetworkTracker(now func() time.Time) *networkTracker {
	return &networkTracker{
		inflight:   make(map[network.RequestID]struct{}),
		lastChange: now(),
		now:        now,
	}
}

// handle is registered with chromedp.ListenTarget.
func (t *networkTracker) handle(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
		t.lastChange = t.now()
	case *network.EventLoadingFinished:
		t.done(e.RequestID)
	case *network.EventLoadingFailed:
		t.done(e.RequestID)
	case *network.EventResponseReceived:
		if t.status == 0 && e.Type == network.ResourceTypeDocument && e.Response != nil {
			t.status = int(e.Response.Status)
		}
	}
}

func (t *networkTracker) done(id network.RequestID) {
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.lastChange = t.now()
}

// idleFor returns how long at most idleConnections requests have been in
// flight, or 0 if more are in flight now.
func (t *networkTracker) idleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inflight) > idleConnections {
		return 0
	}
	return t.now().Sub(t.lastChange)
}

// documentStatus returns the status of the first document response.
func (t *networkTracker) documentStatus() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// waitNetworkIdle blocks until the tracker has been idle for window.
func waitNetworkIdle(t *networkTracker, window time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(idlePollInterval)
		defer ticker.Stop()
		for {
			if t.idleFor() >= window {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
