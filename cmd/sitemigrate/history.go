package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/sitemigrate/internal/config"
	"github.com/nao1215/sitemigrate/internal/database"
	"github.com/nao1215/sitemigrate/internal/report"
	"github.com/spf13/cobra"
)

// historyOptions are the flags of the history command.
type historyOptions struct {
	listSites bool
	list      bool
	runID     string
	json      bool
	markdown  bool
	dbDir     string
}

// NewHistoryCmd creates the history command.
// It reads the runs stored by "sitemigrate crawl".
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [site]",
		Short: "Show stored crawl runs and compare the latest two",
		Long: `History reads the crawl runs stored in the history database.

By default it compares the two most recent runs of a site and shows:
- Pages added since the previous run
- Pages removed since the previous run
- Pages whose title or rendered content changed

A site is named by its host, for example www.example.com. A full URL is
accepted as well.

Examples:
  # List all crawled sites
  sitemigrate history --list-sites

  # List the runs of a site
  sitemigrate history --list www.example.com

  # Compare the latest two runs
  sitemigrate history www.example.com

  # Print the stored report of a run as Markdown
  sitemigrate history --run 3f2a... --markdown

  # Output the comparison as JSON
  sitemigrate history --json www.example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-sites", "L", false,
		"List all sites in the database")
	cmd.Flags().BoolP("list", "l", false,
		"List the runs of the given site")
	cmd.Flags().StringP("run", "r", "",
		"Show the stored report of a run by ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	cmd.MarkFlagsMutuallyExclusive("list-sites", "list", "run")

	return cmd
}

// readHistoryOptions reads the command flags.
func readHistoryOptions(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.listSites, err = flags.GetBool("list-sites"); err != nil {
		return opts, err
	}
	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.runID, err = flags.GetString("run"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := readHistoryOptions(cmd)
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var site string
	if !opts.listSites && opts.runID == "" {
		if len(args) == 0 {
			return errors.New("site is required (use --list-sites to see available sites)")
		}
		site = database.SiteKey(args[0])
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.listSites:
		return listSites(ctx, out, db, opts)
	case opts.runID != "":
		return showRun(ctx, out, db, opts)
	case opts.list:
		return listRuns(ctx, out, db, site, opts)
	default:
		return compareRuns(ctx, out, db, site, opts)
	}
}

// listSites prints every site with stored runs.
func listSites(ctx context.Context, w io.Writer, db *database.CrawlDB, opts historyOptions) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if opts.json {
		return writeJSON(w, sites)
	}

	if len(sites) == 0 {
		fmt.Fprintln(w, "No crawled sites found in the database.")
		fmt.Fprintln(w, "\nUse 'sitemigrate crawl <start-url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(w, "Crawled sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(w, "  • %s\n", site)
	}
	fmt.Fprintln(w, "\nUse 'sitemigrate history --list <site>' to see the runs of a site.")
	return nil
}

// listRuns prints the runs of a site, newest first.
func listRuns(ctx context.Context, w io.Writer, db *database.CrawlDB, site string, opts historyOptions) error {
	runs, err := db.ListRuns(ctx, site)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if opts.json {
		return writeJSON(w, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found for %s\n", site)
		return nil
	}

	fmt.Fprintf(w, "Runs of %s (%d):\n\n", site, len(runs))
	fmt.Fprintf(w, "  %-36s  %-19s  %6s  %6s  %s\n", "ID", "Started", "Pages", "Errors", "Status")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 84))
	for _, r := range runs {
		status := "complete"
		if r.Interrupted {
			status = "interrupted"
		}
		fmt.Fprintf(w, "  %-36s  %-19s  %6d  %6d  %s\n",
			r.ID, r.Started.Local().Format("2006-01-02 15:04:05"), r.Pages, r.Errors, status)
	}
	fmt.Fprintln(w, "\nUse 'sitemigrate history <site>' to compare the latest two runs.")
	return nil
}

// showRun prints the stored report of one run.
func showRun(ctx context.Context, w io.Writer, db *database.CrawlDB, opts historyOptions) error {
	r, err := db.GetRunReport(ctx, opts.runID)
	if err != nil {
		return fmt.Errorf("failed to get run %s: %w", opts.runID, err)
	}
	if r == nil {
		return fmt.Errorf("run %s not found", opts.runID)
	}

	if opts.json {
		return writeJSON(w, r)
	}
	// The stored report is only available in JSON or Markdown.
	_, err = report.NewMarkdownWriter(w).Write(r)
	return err
}

// compareRuns prints the difference between the two latest runs of a site.
func compareRuns(ctx context.Context, w io.Writer, db *database.CrawlDB, site string, opts historyOptions) error {
	c, err := db.CompareLatest(ctx, site)
	if err != nil {
		if errors.Is(err, database.ErrNotEnoughRuns) {
			return fmt.Errorf("at least 2 runs are required for comparison: %w", err)
		}
		return fmt.Errorf("failed to compare runs: %w", err)
	}

	switch {
	case opts.json:
		return writeJSON(w, c)
	case opts.markdown:
		return writeComparisonMarkdown(w, c)
	default:
		writeComparisonText(w, c)
		return nil
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).Write(v)
	return err
}

// writeComparisonMarkdown writes the comparison in Markdown format.
func writeComparisonMarkdown(w io.Writer, c *database.Comparison) error {
	md := markdown.NewMarkdown(w)

	md.H1("Run Comparison: " + c.Site)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run ID", "`" + c.Previous.ID + "`", "`" + c.Current.ID + "`", "-"},
			{"Started", c.Previous.Started.Local().Format("2006-01-02 15:04"), c.Current.Started.Local().Format("2006-01-02 15:04"), "-"},
			{"Pages", strconv.Itoa(c.Previous.Pages), strconv.Itoa(c.Current.Pages), formatDelta(c.Current.Pages - c.Previous.Pages)},
			{"Errors", strconv.Itoa(c.Previous.Errors), strconv.Itoa(c.Current.Errors), formatDelta(c.Current.Errors - c.Previous.Errors)},
		},
	})
	md.PlainText("")

	if !c.HasChanges() {
		md.Tip("No pages were added, removed or changed.")
		return md.Build()
	}

	if len(c.Added) > 0 {
		md.H2(fmt.Sprintf("Added Pages (%d)", len(c.Added)))
		md.PlainText("")
		rows := make([][]string, 0, len(c.Added))
		for _, p := range c.Added {
			rows = append(rows, []string{p.URL, p.Slug, p.Title})
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "Slug", "Title"}, Rows: rows})
		md.PlainText("")
	}

	if len(c.Removed) > 0 {
		md.H2(fmt.Sprintf("Removed Pages (%d)", len(c.Removed)))
		md.PlainText("")
		rows := make([][]string, 0, len(c.Removed))
		for _, p := range c.Removed {
			rows = append(rows, []string{p.URL, p.Slug, p.Title})
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "Slug", "Title"}, Rows: rows})
		md.PlainText("")
		md.Warningf("%d page(s) disappeared. Add redirects for them in the new site.", len(c.Removed))
		md.PlainText("")
	}

	if len(c.Retitled) > 0 {
		md.H2(fmt.Sprintf("Retitled Pages (%d)", len(c.Retitled)))
		md.PlainText("")
		rows := make([][]string, 0, len(c.Retitled))
		for _, p := range c.Retitled {
			rows = append(rows, []string{p.URL, p.OldTitle, p.NewTitle})
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "Previous Title", "Current Title"}, Rows: rows})
		md.PlainText("")
	}

	if len(c.Changed) > 0 {
		md.H2(fmt.Sprintf("Changed Content (%d)", len(c.Changed)))
		md.PlainText("")
		rows := make([][]string, 0, len(c.Changed))
		for _, p := range c.Changed {
			rows = append(rows, []string{p.URL, p.Title})
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "Title"}, Rows: rows})
		md.PlainText("")
	}

	return md.Build()
}

// writeComparisonText writes the comparison in human-readable text format.
func writeComparisonText(w io.Writer, c *database.Comparison) {
	fmt.Fprintf(w, "Run Comparison: %s\n", c.Site)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nPrevious run: %s  %s\n", c.Previous.Started.Local().Format("2006-01-02 15:04:05"), c.Previous.ID)
	fmt.Fprintf(w, "Current run:  %s  %s\n", c.Current.Started.Local().Format("2006-01-02 15:04:05"), c.Current.ID)

	fmt.Fprintf(w, "\n  %-8s  %-8s  %-8s  %s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 40))
	fmt.Fprintf(w, "  %-8s  %-8d  %-8d  %s\n", "Pages", c.Previous.Pages, c.Current.Pages, formatDelta(c.Current.Pages-c.Previous.Pages))
	fmt.Fprintf(w, "  %-8s  %-8d  %-8d  %s\n", "Errors", c.Previous.Errors, c.Current.Errors, formatDelta(c.Current.Errors-c.Previous.Errors))

	if !c.HasChanges() {
		fmt.Fprintln(w, "\nNo pages were added, removed or changed.")
		return
	}

	if len(c.Added) > 0 {
		fmt.Fprintf(w, "\nAdded Pages (%d):\n", len(c.Added))
		for _, p := range c.Added {
			fmt.Fprintf(w, "  [+] %s  %s\n", p.URL, p.Title)
		}
	}

	if len(c.Removed) > 0 {
		fmt.Fprintf(w, "\nRemoved Pages (%d):\n", len(c.Removed))
		for _, p := range c.Removed {
			fmt.Fprintf(w, "  [-] %s  %s\n", p.URL, p.Title)
		}
	}

	if len(c.Retitled) > 0 {
		fmt.Fprintf(w, "\nRetitled Pages (%d):\n", len(c.Retitled))
		for _, p := range c.Retitled {
			fmt.Fprintf(w, "  [~] %s  %q -> %q\n", p.URL, p.OldTitle, p.NewTitle)
		}
	}

	if len(c.Changed) > 0 {
		fmt.Fprintf(w, "\nChanged Content (%d):\n", len(c.Changed))
		for _, p := range c.Changed {
			fmt.Fprintf(w, "  [*] %s\n", p.URL)
		}
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
