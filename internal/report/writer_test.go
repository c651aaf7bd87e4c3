package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitemigrate/internal/media"
	"github.com/nao1215/sitemigrate/internal/model"
)

var testStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// createTestPages creates a small crawl: home, about (child of home) and
// a team page (child of about) sharing one video with home.
func createTestPages() []*model.PageRecord {
	video := model.VideoRecord{
		URL:      "https://youtu.be/dQw4w9WgXcQ",
		Platform: model.VideoPlatformYouTube,
		ID:       "dQw4w9WgXcQ",
		EmbedURL: "https://www.youtube.com/embed/dQw4w9WgXcQ",
	}

	home := &model.PageRecord{
		URL:      "https://example.com/",
		Slug:     "home",
		PageType: model.PageTypeHome,
		Metadata: model.Metadata{Title: "Example, Inc."},
		Navigation: model.Navigation{
			Primary: []model.Link{
				{Text: "Home", Href: "https://example.com/", Active: true},
				{Text: "About", Href: "https://example.com/about"},
			},
			Footer: []model.Link{{Text: "Privacy", Href: "https://example.com/privacy"}},
		},
		Media: model.Media{
			Images: []model.ImageRecord{
				{URL: "https://example.com/logo.png", Context: model.ImageContextLogo, LocalPath: "media/images/logos/logo-1.png"},
				{URL: "https://example.com/hero.jpg", Context: model.ImageContextHero},
			},
			Videos: []model.VideoRecord{video},
		},
	}
	about := &model.PageRecord{
		URL:       "https://example.com/about",
		Slug:      "about",
		PageType:  model.PageTypeAbout,
		Depth:     1,
		ParentURL: "https://example.com/",
		Metadata:  model.Metadata{Title: "About | Example"},
		Navigation: model.Navigation{
			Primary: []model.Link{
				{Text: "Home", Href: "https://example.com/"},
				{Text: "About", Href: "https://example.com/about", Active: true},
				{Text: "Team", Href: "https://example.com/about/team"},
			},
			Footer:     []model.Link{{Text: "Privacy", Href: "https://example.com/privacy"}},
			Breadcrumb: []model.Link{{Text: "Home", Href: "https://example.com/"}, {Text: "About"}},
		},
	}
	team := &model.PageRecord{
		URL:       "https://example.com/about/team",
		Slug:      "about-team",
		PageType:  model.PageTypeTeam,
		Depth:     2,
		ParentURL: "https://example.com/about",
		SEO:       model.SEO{H1: []string{"Our Team"}},
		Media: model.Media{
			Images: []model.ImageRecord{{URL: "https://example.com/jane.jpg", Context: model.ImageContextTeam}},
			Videos: []model.VideoRecord{
				video,
				{URL: "https://vimeo.com/76979871", Platform: model.VideoPlatformVimeo, ID: "76979871", EmbedURL: "https://player.vimeo.com/video/76979871"},
			},
		},
	}

	pages := []*model.PageRecord{home, about, team}
	for _, p := range pages {
		p.Normalize()
	}
	return pages
}

func createTestReport(pages []*model.PageRecord, errs ...model.CrawlError) *model.CrawlReport {
	run := model.RunInfo{
		ID:       "5f8e2a5c-8d7e-4c1b-9a3f-0f1e2d3c4b5a",
		StartURL: "https://example.com/",
		BaseURL:  "https://example.com",
		Started:  testStart,
		Finished: testStart.Add(90 * time.Second),
	}
	return model.BuildReport(run, model.CrawlStats{Visited: 4, Excluded: 2}, pages, errs)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(map[string]int{"a": 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "{\"a\":1}\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(map[string]int{"a": 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "{\n  \"a\": 1\n}\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("marshal error", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(make(chan int)); err == nil {
			t.Error("expected error for unsupported type")
		}
		if buf.Len() != 0 {
			t.Error("expected nothing written on error")
		}
	})
}

func TestCSVWriter(t *testing.T) {
	t.Parallel()

	pages := createTestPages()
	pages[1].Metadata.Title = `About "us", and more`

	var buf bytes.Buffer
	if err := NewCSVWriter(&buf).Write(pages); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	want := [][]string{
		{"Old URL", "Slug", "Page Type", "Title"},
		{"https://example.com/", "home", "home", "Example, Inc."},
		{"https://example.com/about", "about", "about", `About "us", and more`},
		{"https://example.com/about/team", "about-team", "team", "Our Team"},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(records))
	}
	for i := range want {
		if strings.Join(records[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d: expected %v, got %v", i, want[i], records[i])
		}
	}
}

func TestNewSiteStructure(t *testing.T) {
	t.Parallel()

	pages := createTestPages()
	s := NewSiteStructure(createTestReport(pages).Run, pages, testStart)

	if s.TotalPages != 3 || len(s.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d/%d", s.TotalPages, len(s.Pages))
	}
	if s.Pages[2].File != "pages/about-team.json" || s.Pages[2].Title != "Our Team" {
		t.Errorf("unexpected entry %+v", s.Pages[2])
	}
	if len(s.Tree) != 1 || s.Tree[0].Slug != "home" {
		t.Fatalf("expected home as the only root, got %+v", s.Tree)
	}
	about := s.Tree[0].Children
	if len(about) != 1 || about[0].Slug != "about" {
		t.Fatalf("expected about under home, got %+v", about)
	}
	if len(about[0].Children) != 1 || about[0].Children[0].Slug != "about-team" {
		t.Errorf("expected team under about, got %+v", about[0].Children)
	}

	t.Run("orphans become roots", func(t *testing.T) {
		t.Parallel()
		s := NewSiteStructure(model.RunInfo{}, createTestPages()[1:], testStart)
		if len(s.Tree) != 1 || s.Tree[0].Slug != "about" {
			t.Errorf("expected about as root, got %+v", s.Tree)
		}
	})
}

func TestNewNavigationMap(t *testing.T) {
	t.Parallel()

	m := NewNavigationMap(createTestPages())

	if len(m.Primary) != 3 {
		t.Fatalf("expected 3 distinct primary links, got %+v", m.Primary)
	}
	for _, l := range m.Primary {
		if l.Active {
			t.Errorf("expected merged menu without active flags, got %+v", l)
		}
	}
	if len(m.Footer) != 1 {
		t.Errorf("expected 1 footer link, got %+v", m.Footer)
	}
	if m.Pages[0].ActiveItem != "Home" || m.Pages[1].ActiveItem != "About" || m.Pages[2].ActiveItem != "" {
		t.Errorf("unexpected active items %+v", m.Pages)
	}
	if len(m.Pages[1].Breadcrumb) != 2 || m.Pages[2].Breadcrumb == nil {
		t.Errorf("unexpected breadcrumbs %+v", m.Pages)
	}
}

func TestNewVideoInventory(t *testing.T) {
	t.Parallel()

	inv := NewVideoInventory(createTestPages())

	if inv.Total != 2 {
		t.Fatalf("expected 2 distinct videos, got %d", inv.Total)
	}
	yt := inv.Videos[0]
	if yt.Platform != model.VideoPlatformYouTube || len(yt.Pages) != 2 {
		t.Errorf("expected the YouTube video on two pages, got %+v", yt)
	}
	if len(inv.ByPlatform) != 2 || inv.ByPlatform[0].Count != 1 {
		t.Errorf("unexpected platform counts %+v", inv.ByPlatform)
	}

	empty := NewVideoInventory(nil)
	if empty.Videos == nil || empty.Total != 0 {
		t.Errorf("expected an empty, non-nil inventory, got %+v", empty)
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("complete run", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport(createTestPages())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"# Site Migration Report",
			"https://example.com/",
			"✅ Complete",
			"## Pages by Type",
			"## Images by Context",
			"## Videos by Platform",
			"Heroes",
			"1m30s",
			"```mermaid",
			"## Third-Party Integrations",
			"None found.",
			"## Errors",
			"No errors recorded.",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("errors and interruption", func(t *testing.T) {
		t.Parallel()
		pages := createTestPages()
		report := createTestReport(pages,
			model.NewCrawlError("https://example.com/broken", model.ErrorKindNavigation, errors.New("net::ERR_NAME_NOT_RESOLVED")),
			model.NewCrawlError("https://example.com/a.pdf", model.ErrorKindDownload, errors.New("unexpected status 404 | gone")),
		)
		report.Run.Interrupted = true
		report.Stats.Remaining = 7

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"Interrupted (partial results)",
			"7 URL(s) were still queued",
			"https://example.com/broken",
			"net::ERR_NAME_NOT_RESOLVED",
			"unexpected status 404",
			"| navigation",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("GPS caution", func(t *testing.T) {
		t.Parallel()
		pages := createTestPages()
		pages[0].Media.Images[0].EXIF = &model.EXIFSummary{HasGPS: true}
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport(pages)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "embed GPS coordinates") {
			t.Error("expected GPS caution")
		}
	})

	t.Run("integrations", func(t *testing.T) {
		t.Parallel()
		pages := createTestPages()
		pages[0].Integrations = model.Integrations{
			Tracking: []model.TrackingTag{{Provider: "google-tag-manager", ID: "GTM-K9X2ZQ7"}},
			Social:   []model.SocialProfile{{Platform: "linkedin", Handle: "example", URL: "https://www.linkedin.com/company/example"}},
			Emails:   []string{"hello@example.com"},
		}
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport(pages)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"google-tag-manager",
			"`GTM-K9X2ZQ7`",
			"Install these tags on the new site",
			"https://www.linkedin.com/company/example",
			"- hello@example.com",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("page type labels", func(t *testing.T) {
		t.Parallel()
		pages := createTestPages()
		pages[2].PageType = model.PageTypeCaseStudy
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport(pages)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Case Study") {
			t.Error("expected case-study to be labelled Case Study")
		}
	})
}

func TestBundleWrite(t *testing.T) {
	t.Parallel()

	t.Run("writes every artifact", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		pages := createTestPages()

		res := NewBundle(media.NewLayout(dir), WithLogger(discardLogger())).Write(createTestReport(pages), pages)
		if len(res.Errors) != 0 {
			t.Fatalf("unexpected errors: %+v", res.Errors)
		}

		want := []string{
			"pages/home.json",
			"pages/about.json",
			"pages/about-team.json",
			media.SiteStructureFile,
			media.NavigationMapFile,
			media.VideoInventory,
			media.URLMappingFile,
			media.ReportFile,
		}
		if strings.Join(res.Written, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, res.Written)
		}
		for _, rel := range want {
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
				t.Errorf("expected %s to exist: %v", rel, err)
			}
		}

		data, err := os.ReadFile(filepath.Join(dir, "pages", "about.json"))
		if err != nil {
			t.Fatalf("failed to read page: %v", err)
		}
		var got model.PageRecord
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("page file is not valid JSON: %v", err)
		}
		if got.URL != "https://example.com/about" || got.Slug != "about" {
			t.Errorf("unexpected page %+v", got)
		}
		if !bytes.Contains(data, []byte(`"sections": []`)) {
			t.Error("expected empty lists to be written as []")
		}
	})

	t.Run("one failed artifact does not stop the others", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		// A directory in place of the file makes the write fail.
		if err := os.MkdirAll(filepath.Join(dir, media.NavigationMapFile), 0o750); err != nil {
			t.Fatal(err)
		}
		pages := createTestPages()

		res := NewBundle(media.NewLayout(dir), WithLogger(discardLogger())).Write(createTestReport(pages), pages)
		if len(res.Errors) != 1 {
			t.Fatalf("expected 1 error, got %+v", res.Errors)
		}
		if res.Errors[0].Kind != model.ErrorKindOutput || res.Errors[0].URL != media.NavigationMapFile {
			t.Errorf("unexpected error %+v", res.Errors[0])
		}
		if len(res.Written) != 7 {
			t.Errorf("expected 7 artifacts written, got %v", res.Written)
		}

		md, err := os.ReadFile(filepath.Join(dir, media.ReportFile))
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(md), media.NavigationMapFile) {
			t.Error("expected the report to list the failed artifact")
		}
		if len(res.Report.Errors) != 1 {
			t.Errorf("expected the written report to carry the output error, got %d", len(res.Report.Errors))
		}
	})

	t.Run("input report is not modified", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, media.URLMappingFile), 0o750); err != nil {
			t.Fatal(err)
		}
		pages := createTestPages()
		report := createTestReport(pages)

		NewBundle(media.NewLayout(dir), WithLogger(discardLogger())).Write(report, pages)
		if report.HasErrors() {
			t.Error("expected the caller's report to stay untouched")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{in: "short", maxLen: 10, want: "short"},
		{in: "exactly10!", maxLen: 10, want: "exactly10!"},
		{in: "this is longer", maxLen: 10, want: "this is..."},
		{in: "héllo wörld", maxLen: 8, want: "héllo..."},
		{in: "abcdef", maxLen: 2, want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}
