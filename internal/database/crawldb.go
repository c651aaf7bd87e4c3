package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitemigrate/internal/model"
)

// FileName is the name of the history database file inside the database directory.
const FileName = "sitemigrate.db"

// timeLayout is a fixed-width UTC layout, so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotEnoughRuns is returned by CompareLatest when a site has fewer than two runs.
var ErrNotEnoughRuns = errors.New("at least two runs are needed to compare")

// CrawlDB provides SQLite-based storage for crawl runs and the pages each
// run produced.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// busy_timeout lets a history query wait for a crawl that is saving.
	dsn := dbPath + "?mode=rw&_pragma=busy_timeout(5000)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		start_url TEXT NOT NULL,
		started TEXT NOT NULL,
		finished TEXT NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		page_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	-- Pages produced by a run
	CREATE TABLE IF NOT EXISTS pages (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		slug TEXT NOT NULL,
		page_type TEXT NOT NULL,
		title TEXT,
		content_hash TEXT,
		PRIMARY KEY (run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SiteKey returns the key runs are grouped by: the lower-cased host of
// the base URL.
func SiteKey(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(baseURL)
	}
	return strings.ToLower(u.Host)
}

// RunSummary is a stored run without its pages.
type RunSummary struct {
	ID          string    `json:"id"`
	Site        string    `json:"site"`
	StartURL    string    `json:"startUrl"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`
	Interrupted bool      `json:"interrupted"`
	Pages       int       `json:"pages"`
	Errors      int       `json:"errors"`
}

// PageSnapshot is a stored page of a run.
type PageSnapshot struct {
	URL         string         `json:"url"`
	Slug        string         `json:"slug"`
	PageType    model.PageType `json:"pageType"`
	Title       string         `json:"title"`
	ContentHash string         `json:"contentHash,omitempty"`
}

// SaveRun stores a finished run and its pages in one transaction.
func (cdb *CrawlDB) SaveRun(ctx context.Context, report *model.CrawlReport, pages []*model.PageRecord) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after a successful commit
	}()

	run := report.Run
	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, site, start_url, started, finished, interrupted, page_count, error_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		SiteKey(run.BaseURL),
		run.StartURL,
		run.Started.UTC().Format(timeLayout),
		run.Finished.UTC().Format(timeLayout),
		run.Interrupted,
		report.Pages,
		len(report.Errors),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, url, slug, page_type, title, content_hash)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pages {
		if _, err := stmt.ExecContext(ctx, run.ID, p.URL, p.Slug, p.PageType.String(), p.Title(), p.ContentHash); err != nil {
			return fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListSites returns every site with at least one stored run.
func (cdb *CrawlDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT site FROM runs ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// ListRuns returns the runs of a site, newest first.
func (cdb *CrawlDB) ListRuns(ctx context.Context, site string) ([]RunSummary, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id, site, start_url, started, finished, interrupted, page_count, error_count
	FROM runs
	WHERE site = ?
	ORDER BY started DESC
	`, strings.ToLower(site))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Site, &r.StartURL, &started, &finished, &r.Interrupted, &r.Pages, &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Started = parseTimestamp(started)
		r.Finished = parseTimestamp(finished)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetRunReport returns the stored report of a run, or nil if the run does not exist.
func (cdb *CrawlDB) GetRunReport(ctx context.Context, runID string) (*model.CrawlReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetRunPages returns the pages of a run ordered by URL.
func (cdb *CrawlDB) GetRunPages(ctx context.Context, runID string) ([]PageSnapshot, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, slug, page_type, title, content_hash
	FROM pages
	WHERE run_id = ?
	ORDER BY url
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run pages: %w", err)
	}
	defer rows.Close()

	var pages []PageSnapshot
	for rows.Next() {
		var p PageSnapshot
		var pageType string
		var title, hash sql.NullString
		if err := rows.Scan(&p.URL, &p.Slug, &pageType, &title, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.PageType = model.PageType(pageType)
		p.Title = title.String
		p.ContentHash = hash.String
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
