package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitemigrate/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// newRun creates a report and pages for a run of example.com.
// Each page is given as url=title.
func newRun(id string, started time.Time, pages ...string) (*model.CrawlReport, []*model.PageRecord) {
	records := make([]*model.PageRecord, 0, len(pages))
	for _, p := range pages {
		u, title, _ := strings.Cut(p, "=")
		r := &model.PageRecord{
			URL:      u,
			Slug:     strings.Trim(strings.TrimPrefix(u, "https://example.com"), "/"),
			PageType: model.PageTypeGeneral,
			Metadata: model.Metadata{Title: title},
		}
		if r.Slug == "" {
			r.Slug = "home"
		}
		r.ComputeHash("<html>" + title + "</html>")
		records = append(records, r)
	}

	run := model.RunInfo{
		ID:       id,
		StartURL: "https://example.com/",
		BaseURL:  "https://Example.com",
		Started:  started,
		Finished: started.Add(time.Minute),
	}
	return model.BuildReport(run, model.CrawlStats{Visited: len(pages)}, records, nil), records
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when the database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative error, got %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		report, pages := newRun("run-1", time.Now(), "https://example.com/=Home")
		if err := db1.SaveRun(context.Background(), report, pages); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		sites, err := db2.ListSites(context.Background())
		if err != nil || len(sites) != 1 {
			t.Errorf("expected the stored site, got %v (err=%v)", sites, err)
		}
	})
}

func TestSaveRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	started := time.Date(2026, 5, 1, 9, 0, 0, 123000000, time.UTC)

	report, pages := newRun("run-1", started, "https://example.com/=Home", "https://example.com/about=About")
	report.Errors = []model.CrawlError{{URL: "https://example.com/x", Kind: model.ErrorKindNavigation, Message: "boom"}}
	if err := db.SaveRun(ctx, report, pages); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	t.Run("run summary", func(t *testing.T) {
		t.Parallel()
		runs, err := db.ListRuns(ctx, "EXAMPLE.COM")
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		r := runs[0]
		if r.ID != "run-1" || r.Site != "example.com" || r.Pages != 2 || r.Errors != 1 {
			t.Errorf("unexpected run %+v", r)
		}
		if !r.Started.Equal(started) || !r.Finished.Equal(started.Add(time.Minute)) {
			t.Errorf("unexpected times %v %v", r.Started, r.Finished)
		}
	})

	t.Run("pages", func(t *testing.T) {
		t.Parallel()
		got, err := db.GetRunPages(ctx, "run-1")
		if err != nil {
			t.Fatalf("failed to get pages: %v", err)
		}
		if len(got) != 2 || got[0].URL != "https://example.com/" || got[1].Title != "About" {
			t.Errorf("unexpected pages %+v", got)
		}
		if got[0].ContentHash == "" || got[0].PageType != model.PageTypeGeneral {
			t.Errorf("expected hash and page type, got %+v", got[0])
		}
	})

	t.Run("report round trip", func(t *testing.T) {
		t.Parallel()
		got, err := db.GetRunReport(ctx, "run-1")
		if err != nil {
			t.Fatalf("failed to get report: %v", err)
		}
		if got == nil || got.Pages != 2 || len(got.Errors) != 1 || got.Run.StartURL != "https://example.com/" {
			t.Errorf("unexpected report %+v", got)
		}

		missing, err := db.GetRunReport(ctx, "nope")
		if err != nil || missing != nil {
			t.Errorf("expected nil report for an unknown run, got %+v (err=%v)", missing, err)
		}
	})

	t.Run("failed insert rolls back the run", func(t *testing.T) {
		t.Parallel()
		dup, dupPages := newRun("run-dup", started, "https://example.com/=Home", "https://example.com/=Home")
		if err := db.SaveRun(ctx, dup, dupPages); err == nil {
			t.Fatal("expected duplicate page URL to fail")
		}
		got, err := db.GetRunReport(ctx, "run-dup")
		if err != nil || got != nil {
			t.Error("expected the failed run to be rolled back")
		}
	})
}

func TestCompareLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("not enough runs", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		report, pages := newRun("only", base, "https://example.com/=Home")
		if err := db.SaveRun(ctx, report, pages); err != nil {
			t.Fatal(err)
		}
		if _, err := db.CompareLatest(ctx, "example.com"); !errors.Is(err, ErrNotEnoughRuns) {
			t.Errorf("expected ErrNotEnoughRuns, got %v", err)
		}
	})

	t.Run("diffs the two newest runs", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)

		runs := []struct {
			id      string
			started time.Time
			pages   []string
		}{
			{id: "oldest", started: base, pages: []string{"https://example.com/=Ancient"}},
			{id: "previous", started: base.Add(time.Hour), pages: []string{
				"https://example.com/=Home",
				"https://example.com/about=About",
				"https://example.com/legacy=Legacy",
			}},
			{id: "current", started: base.Add(2 * time.Hour), pages: []string{
				"https://example.com/=Home",
				"https://example.com/about=About Us",
				"https://example.com/pricing=Pricing",
			}},
		}
		for _, r := range runs {
			report, pages := newRun(r.id, r.started, r.pages...)
			if err := db.SaveRun(ctx, report, pages); err != nil {
				t.Fatalf("failed to save %s: %v", r.id, err)
			}
		}

		c, err := db.CompareLatest(ctx, "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Previous.ID != "previous" || c.Current.ID != "current" {
			t.Fatalf("expected previous vs current, got %s vs %s", c.Previous.ID, c.Current.ID)
		}
		if len(c.Added) != 1 || c.Added[0].URL != "https://example.com/pricing" {
			t.Errorf("unexpected added %+v", c.Added)
		}
		if len(c.Removed) != 1 || c.Removed[0].URL != "https://example.com/legacy" {
			t.Errorf("unexpected removed %+v", c.Removed)
		}
		if len(c.Retitled) != 1 || c.Retitled[0].OldTitle != "About" || c.Retitled[0].NewTitle != "About Us" {
			t.Errorf("unexpected retitled %+v", c.Retitled)
		}
		// The hash is derived from the title in newRun.
		if len(c.Changed) != 1 || c.Changed[0].URL != "https://example.com/about" {
			t.Errorf("unexpected changed %+v", c.Changed)
		}
		if !c.HasChanges() {
			t.Error("expected changes")
		}
	})
}

func TestSiteKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "https://Example.com", want: "example.com"},
		{in: "http://example.com:8080/", want: "example.com:8080"},
		{in: "Example.com", want: "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := SiteKey(tt.in); got != tt.want {
				t.Errorf("SiteKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2026-05-01T09:00:00.500000000Z", want: time.Date(2026, 5, 1, 9, 0, 0, 500000000, time.UTC)},
		{in: "2026-05-01 09:00:00", want: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
		{in: "garbage", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
