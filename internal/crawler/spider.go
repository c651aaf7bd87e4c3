package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitemigrate/internal/fetcher"
	"github.com/nao1215/sitemigrate/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrOffsiteRedirect marks a page whose request was redirected to another host.
var ErrOffsiteRedirect = errors.New("redirected off-site")

// PageFetcher renders one page. fetcher.Browser implements it.
type PageFetcher interface {
	FetchRenderedPage(ctx context.Context, pageURL string) (*fetcher.RenderedPage, error)
}

// Extractor turns rendered HTML into a page record and the internal links
// found on the page. extract.Extractor implements it.
type Extractor interface {
	Extract(html, pageURL string) (*model.PageRecord, []string, error)
}

// RobotsChecker answers whether a URL may be crawled.
// fetcher.RobotsAgent implements it.
type RobotsChecker interface {
	Allowed(ctx context.Context, pageURL string) bool
}

// Spider is the crawl scheduler. It pops batches from the frontier,
// renders and extracts them on a bounded number of goroutines and feeds
// discovered links back into the frontier between batches.
type Spider struct {
	fetcher    PageFetcher
	extractor  Extractor
	classifier *Classifier

	// robots is nil when robots.txt is not respected.
	robots RobotsChecker

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the number of URLs handed to the fetcher.
	maxPages int

	// concurrency is the batch size and the in-flight page limit.
	concurrency int

	// delay is slept between two batches.
	delay time.Duration

	logger *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to fetch.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithConcurrency sets how many pages are rendered at once.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDelay sets the delay between batches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithRobots makes the spider skip URLs disallowed by robots.txt.
func WithRobots(r RobotsChecker) SpiderOption {
	return func(s *Spider) {
		s.robots = r
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider.
func NewSpider(f PageFetcher, e Extractor, c *Classifier, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     f,
		extractor:   e,
		classifier:  c,
		maxDepth:    5,
		maxPages:    500,
		concurrency: 3,
		delay:       1 * time.Second,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// pageResult is what one worker sends back to the scheduler.
type pageResult struct {
	// index is the entry's position in its batch.
	index  int
	entry FrontierEntry

	// finalURL is the normalized document location after redirects.
	finalURL string
	record   *model.PageRecord
	links  []string
	kind   model.ErrorKind
	err    error
}

// Crawl runs a breadth-first crawl from startURL and returns the run state.
// It stops when the frontier is empty, maxPages URLs have been fetched or
// ctx is cancelled. Per-page failures are recorded in the state and never
// returned; the only error is an unusable start URL.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*CrawlState, error) {
	start, ok := Normalize(startURL, startURL)
	if !ok {
		return nil, fmt.Errorf("invalid start URL %q", startURL)
	}

	state := NewCrawlState(start)
	s.logger.Info("crawl started",
		"run_id", state.RunID,
		"url", start,
		"max_pages", s.maxPages,
		"max_depth", s.maxDepth,
		"concurrency", s.concurrency,
	)

	for state.FrontierLen() > 0 && state.VisitedCount() < s.maxPages {
		if ctx.Err() != nil {
			state.Interrupted = true
			break
		}

		batch := s.nextBatch(ctx, state)
		if len(batch) == 0 {
			continue
		}

		for _, r := range s.collect(s.dispatch(ctx, batch), len(batch)) {
			s.integrate(ctx, state, r)
		}

		if state.FrontierLen() == 0 || state.VisitedCount() >= s.maxPages {
			break
		}
		if !sleepCtx(ctx, s.delay) {
			state.Interrupted = true
			break
		}
	}

	state.Stats.Remaining = state.FrontierLen()
	s.logger.Info("crawl finished",
		"run_id", state.RunID,
		"pages", len(state.Pages),
		"errors", len(state.Errors),
		"visited", state.VisitedCount(),
		"remaining", state.Stats.Remaining,
		"interrupted", state.Interrupted,
	)
	return state, nil
}

// nextBatch dequeues up to concurrency admitted entries, never more than
// the remaining page budget. Admitted entries are marked visited before
// dispatch so a URL is fetched at most once.
func (s *Spider) nextBatch(ctx context.Context, state *CrawlState) []FrontierEntry {
	limit := min(s.concurrency, s.maxPages-state.VisitedCount())
	batch := make([]FrontierEntry, 0, limit)

	for len(batch) < limit {
		entry, ok := state.Dequeue()
		if !ok {
			break
		}
		if !s.admit(ctx, state, entry) {
			continue
		}
		state.MarkVisited(entry.URL)
		batch = append(batch, entry)
	}
	return batch
}

// admit applies the per-entry checks: already visited, too deep,
// excluded, disallowed by robots.txt.
func (s *Spider) admit(ctx context.Context, state *CrawlState, entry FrontierEntry) bool {
	switch {
	case state.IsVisited(entry.URL) || state.IsLanded(entry.URL):
		return false
	case entry.Depth > s.maxDepth:
		state.Stats.TooDeep++
		s.logger.Debug("skipping URL beyond max depth", "url", entry.URL, "depth", entry.Depth)
		return false
	case s.classifier.ShouldExclude(entry.URL):
		state.Stats.Excluded++
		s.logger.Debug("skipping excluded URL", "url", entry.URL)
		return false
	case s.robots != nil && !s.robots.Allowed(ctx, entry.URL):
		state.Stats.RobotsBlocked++
		s.logger.Info("skipping URL disallowed by robots.txt", "url", entry.URL)
		return false
	default:
		return true
	}
}

// dispatch processes a batch on at most concurrency goroutines. Results
// arrive on the returned channel, which is closed once the batch settles.
func (s *Spider) dispatch(ctx context.Context, batch []FrontierEntry) <-chan pageResult {
	results := make(chan pageResult, len(batch))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, entry := range batch {
		g.Go(func() error {
			r := s.process(ctx, entry)
			r.index = i
			results <- r
			return nil
		})
	}

	go func() {
		_ = g.Wait() //nolint:errcheck // workers report failures through results
		close(results)
	}()
	return results
}

// collect drains results and orders them by batch position. Integrating in
// dequeue order keeps the frontier in breadth-first order whatever order
// the pages finished in.
func (s *Spider) collect(results <-chan pageResult, n int) []pageResult {
	ordered := make([]pageResult, n)
	for r := range results {
		ordered[r.index] = r
	}
	return ordered
}

// process renders and extracts one page.
func (s *Spider) process(ctx context.Context, entry FrontierEntry) pageResult {
	s.logger.Debug("fetching page", "url", entry.URL, "depth", entry.Depth)

	rendered, err := s.fetcher.FetchRenderedPage(ctx, entry.URL)
	if err != nil {
		return pageResult{entry: entry, kind: model.ErrorKindNavigation, err: err}
	}

	finalURL := entry.URL
	if rendered.FinalURL != "" {
		if u, ok := Normalize(rendered.FinalURL, entry.URL); ok {
			finalURL = u
		}
	}
	if finalURL != entry.URL && !s.classifier.IsInternal(finalURL) {
		return pageResult{
			entry:    entry,
			finalURL: finalURL,
			kind:     model.ErrorKindNavigation,
			err:      fmt.Errorf("%w: %s", ErrOffsiteRedirect, finalURL),
		}
	}

	// Relative links resolve against the document location, not the request.
	record, links, err := s.extractor.Extract(rendered.HTML, finalURL)
	if err != nil {
		return pageResult{entry: entry, finalURL: finalURL, kind: model.ErrorKindExtraction, err: err}
	}

	record.URL = entry.URL
	record.Depth = entry.Depth
	record.ParentURL = entry.ParentURL
	record.PageType = s.classifier.ClassifyPageType(entry.URL)
	record.CrawledAt = s.now()
	if record.Metadata.Title == "" {
		record.Metadata.Title = rendered.Title
	}
	record.ComputeHash(rendered.HTML)

	return pageResult{entry: entry, finalURL: finalURL, record: record, links: links}
}

// integrate folds one result into the state. Only the scheduler goroutine calls it.
func (s *Spider) integrate(ctx context.Context, state *CrawlState, r pageResult) {
	if r.err != nil {
		if ctx.Err() != nil && errors.Is(r.err, context.Canceled) {
			state.Interrupted = true
			return
		}
		s.logger.Warn("page failed",
			"url", r.entry.URL,
			"kind", r.kind,
			"error", r.err,
		)
		state.AddError(model.NewCrawlError(r.entry.URL, r.kind, r.err))
		return
	}

	if r.finalURL != r.entry.URL && !state.MarkLanded(r.finalURL) {
		s.logger.Debug("skipping redirect to an already crawled page",
			"url", r.entry.URL,
			"location", r.finalURL,
		)
		return
	}

	r.record.Slug = state.AssignSlug(Slug(r.entry.URL))
	r.record.Normalize()
	if err := r.record.Validate(); err != nil {
		s.logger.Warn("discarding invalid page record", "url", r.entry.URL, "error", err)
		state.AddError(model.NewCrawlError(r.entry.URL, model.ErrorKindExtraction, err))
		return
	}
	state.AddPage(r.record)
	s.logger.Info("page crawled",
		"url", r.entry.URL,
		"slug", r.record.Slug,
		"page_type", r.record.PageType,
		"depth", r.entry.Depth,
	)

	s.enqueueLinks(state, r.entry, r.finalURL, r.links)
}

// enqueueLinks adds the page's links as depth+1 entries, resolving them
// against base, the page's final location. Links beyond the depth limit or
// matching an exclusion pattern never enter the frontier.
func (s *Spider) enqueueLinks(state *CrawlState, parent FrontierEntry, base string, links []string) {
	depth := parent.Depth + 1
	for _, raw := range links {
		link, ok := Normalize(raw, base)
		if !ok || state.Known(link) {
			continue
		}
		if !s.classifier.IsInternal(link) || s.classifier.IsImage(link) || s.classifier.IsDocument(link) {
			state.Reject(link)
			continue
		}
		if depth > s.maxDepth {
			// BFS discovers every URL first at its smallest depth.
			state.Reject(link)
			state.Stats.TooDeep++
			continue
		}
		if s.classifier.ShouldExclude(link) {
			state.Reject(link)
			state.Stats.Excluded++
			continue
		}
		state.Enqueue(FrontierEntry{URL: link, Depth: depth, ParentURL: parent.URL})
	}
}

// sleepCtx waits for d or until ctx is done. It returns false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
