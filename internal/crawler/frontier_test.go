package crawler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/nao1215/sitemigrate/internal/model"
)

func TestCrawlState(t *testing.T) {
	t.Parallel()

	t.Run("seeded with the start URL at depth 0", func(t *testing.T) {
		t.Parallel()
		s := NewCrawlState("https://example.com/")
		if s.FrontierLen() != 1 {
			t.Fatalf("expected 1 entry, got %d", s.FrontierLen())
		}
		e, _ := s.Dequeue()
		if e.URL != "https://example.com/" || e.Depth != 0 || e.ParentURL != "" {
			t.Errorf("unexpected seed entry %+v", e)
		}
		if _, err := uuid.Parse(s.RunID); err != nil {
			t.Errorf("expected a UUID run ID, got %q", s.RunID)
		}
	})

	t.Run("enqueue skips known URLs", func(t *testing.T) {
		t.Parallel()
		s := NewCrawlState("https://example.com/")
		if s.Enqueue(FrontierEntry{URL: "https://example.com/", Depth: 1}) {
			t.Error("expected queued start URL to be skipped")
		}
		if !s.Enqueue(FrontierEntry{URL: "https://example.com/a", Depth: 1}) {
			t.Error("expected new URL to be enqueued")
		}
		if s.Enqueue(FrontierEntry{URL: "https://example.com/a", Depth: 2}) {
			t.Error("expected duplicate URL to be skipped")
		}

		s.Reject("https://example.com/b")
		if s.Enqueue(FrontierEntry{URL: "https://example.com/b", Depth: 1}) {
			t.Error("expected rejected URL to be skipped")
		}
		if s.FrontierLen() != 2 {
			t.Errorf("expected 2 entries, got %d", s.FrontierLen())
		}
	})

	t.Run("dequeue is FIFO", func(t *testing.T) {
		t.Parallel()
		s := NewCrawlState("https://example.com/")
		s.Enqueue(FrontierEntry{URL: "https://example.com/a", Depth: 1})
		s.Enqueue(FrontierEntry{URL: "https://example.com/b", Depth: 1})

		want := []string{"https://example.com/", "https://example.com/a", "https://example.com/b"}
		for _, w := range want {
			e, ok := s.Dequeue()
			if !ok || e.URL != w {
				t.Fatalf("expected %s, got %+v (ok=%v)", w, e, ok)
			}
		}
		if _, ok := s.Dequeue(); ok {
			t.Error("expected empty frontier")
		}
	})

	t.Run("visited set is append-only and deduplicated", func(t *testing.T) {
		t.Parallel()
		s := NewCrawlState("https://example.com/")
		s.MarkVisited("https://example.com/")
		s.MarkVisited("https://example.com/a")
		s.MarkVisited("https://example.com/")

		if s.VisitedCount() != 2 || s.Stats.Visited != 2 {
			t.Errorf("expected 2 visited, got %d (stats %d)", s.VisitedCount(), s.Stats.Visited)
		}
		if !s.IsVisited("https://example.com/a") || !s.Known("https://example.com/a") {
			t.Error("expected /a to be visited and known")
		}
		if got := s.Visited(); got[0] != "https://example.com/" || got[1] != "https://example.com/a" {
			t.Errorf("expected dispatch order, got %v", got)
		}
	})

	t.Run("pending returns a copy", func(t *testing.T) {
		t.Parallel()
		s := NewCrawlState("https://example.com/")
		p := s.Pending()
		p[0].URL = "mutated"
		if e, _ := s.Dequeue(); e.URL != "https://example.com/" {
			t.Error("Pending must not expose the internal queue")
		}
	})
}

func TestCrawlStateAssignSlug(t *testing.T) {
	t.Parallel()

	s := NewCrawlState("https://example.com/")
	got := []string{
		s.AssignSlug("about"),
		s.AssignSlug("about"),
		s.AssignSlug("about-2"),
		s.AssignSlug("about"),
		s.AssignSlug("home"),
	}
	want := []string{"about", "about-2", "about-2-2", "about-3", "home"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slug %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCrawlStateAddPage(t *testing.T) {
	t.Parallel()

	s := NewCrawlState("https://example.com/")
	s.AddPage(&model.PageRecord{URL: "https://example.com/", Depth: 0})
	s.AddPage(&model.PageRecord{URL: "https://example.com/a/b", Depth: 2})
	s.AddError(model.CrawlError{URL: "https://example.com/x", Kind: model.ErrorKindNavigation})

	if len(s.Pages) != 2 || len(s.Errors) != 1 {
		t.Errorf("unexpected state pages=%d errors=%d", len(s.Pages), len(s.Errors))
	}
	if s.Stats.MaxDepthSeen != 2 {
		t.Errorf("expected max depth 2, got %d", s.Stats.MaxDepthSeen)
	}
}
