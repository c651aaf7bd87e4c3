package crawler

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/nao1215/sitemigrate/internal/model"
)

// FrontierEntry is a discovered URL waiting to be fetched.
// Entries are created on discovery and consumed exactly once.
type FrontierEntry struct {
	URL   string
	Depth int

	// ParentURL is empty for the start URL.
	ParentURL string
}

// CrawlState is everything one run accumulates. It is owned by the
// scheduler goroutine; workers never touch it.
type CrawlState struct {
	// RunID is a random identifier for this run.
	RunID string

	// frontier is a FIFO queue, so depth never decreases in dequeue order.
	frontier []FrontierEntry

	// known holds every URL ever enqueued or rejected, so a URL is
	// enqueued at most once per run.
	known map[string]struct{}

	// visited holds every URL handed to the fetcher. Append-only.
	visited map[string]struct{}

	// visitOrder keeps visited URLs in dispatch order.
	visitOrder []string

	// landed holds the final locations of redirected pages.
	landed map[string]struct{}

	// slugs counts how often each base slug was assigned.
	slugs map[string]int
	used  map[string]struct{}

	Pages  []*model.PageRecord
	Errors []model.CrawlError
	Stats  model.CrawlStats

	// Interrupted is set when the context was cancelled mid-run.
	Interrupted bool
}

// NewCrawlState creates the state of a new run seeded with startURL at depth 0.
func NewCrawlState(startURL string) *CrawlState {
	s := &CrawlState{
		RunID:   uuid.NewString(),
		known:   make(map[string]struct{}),
		visited: make(map[string]struct{}),
		landed:  make(map[string]struct{}),
		slugs:   make(map[string]int),
		used:    make(map[string]struct{}),
	}
	s.Enqueue(FrontierEntry{URL: startURL, Depth: 0})
	return s
}

// Enqueue appends e unless its URL was already enqueued, rejected or visited.
func (s *CrawlState) Enqueue(e FrontierEntry) bool {
	if _, ok := s.known[e.URL]; ok {
		return false
	}
	if _, ok := s.visited[e.URL]; ok {
		return false
	}
	s.known[e.URL] = struct{}{}
	s.frontier = append(s.frontier, e)
	return true
}

// Reject records a URL that must never be enqueued.
func (s *CrawlState) Reject(rawURL string) {
	s.known[rawURL] = struct{}{}
}

// Known reports whether rawURL was enqueued, rejected or visited.
func (s *CrawlState) Known(rawURL string) bool {
	if _, ok := s.known[rawURL]; ok {
		return true
	}
	_, ok := s.visited[rawURL]
	return ok
}

// Dequeue removes and returns the oldest frontier entry.
func (s *CrawlState) Dequeue() (FrontierEntry, bool) {
	if len(s.frontier) == 0 {
		return FrontierEntry{}, false
	}
	e := s.frontier[0]
	s.frontier[0] = FrontierEntry{}
	s.frontier = s.frontier[1:]
	return e, true
}

// Pending returns a copy of the frontier in dequeue order.
func (s *CrawlState) Pending() []FrontierEntry {
	return slices.Clone(s.frontier)
}

// FrontierLen returns the number of entries waiting to be fetched.
func (s *CrawlState) FrontierLen() int {
	return len(s.frontier)
}

// MarkVisited records that rawURL has been handed to the fetcher.
func (s *CrawlState) MarkVisited(rawURL string) {
	if _, ok := s.visited[rawURL]; ok {
		return
	}
	s.visited[rawURL] = struct{}{}
	s.visitOrder = append(s.visitOrder, rawURL)
	s.Stats.Visited = len(s.visitOrder)
}

// IsVisited reports whether rawURL has been handed to the fetcher.
func (s *CrawlState) IsVisited(rawURL string) bool {
	_, ok := s.visited[rawURL]
	return ok
}

// MarkLanded records rawURL as the final location of a redirected page and
// keeps it out of the frontier. It returns false when rawURL was already
// visited or landed on, i.e. the page is a duplicate.
func (s *CrawlState) MarkLanded(rawURL string) bool {
	if s.IsVisited(rawURL) || s.IsLanded(rawURL) {
		return false
	}
	s.landed[rawURL] = struct{}{}
	s.known[rawURL] = struct{}{}
	return true
}

// IsLanded reports whether a redirected page ended at rawURL.
func (s *CrawlState) IsLanded(rawURL string) bool {
	_, ok := s.landed[rawURL]
	return ok
}

// VisitedCount returns the number of URLs fetched or attempted.
func (s *CrawlState) VisitedCount() int {
	return len(s.visitOrder)
}

// Visited returns the visited URLs in dispatch order.
func (s *CrawlState) Visited() []string {
	return slices.Clone(s.visitOrder)
}

// AssignSlug returns base, or base-2, base-3... when base is taken.
func (s *CrawlState) AssignSlug(base string) string {
	for {
		s.slugs[base]++
		candidate := base
		if n := s.slugs[base]; n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		if _, taken := s.used[candidate]; !taken {
			s.used[candidate] = struct{}{}
			return candidate
		}
	}
}

// AddPage appends a finished page record.
func (s *CrawlState) AddPage(p *model.PageRecord) {
	s.Pages = append(s.Pages, p)
	if p.Depth > s.Stats.MaxDepthSeen {
		s.Stats.MaxDepthSeen = p.Depth
	}
}

// AddError appends a per-URL failure.
func (s *CrawlState) AddError(e model.CrawlError) {
	s.Errors = append(s.Errors, e)
}
