package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/sitemigrate/internal/config"
	"github.com/nao1215/sitemigrate/internal/crawler"
	"github.com/nao1215/sitemigrate/internal/database"
	"github.com/nao1215/sitemigrate/internal/extract"
	"github.com/nao1215/sitemigrate/internal/fetcher"
	applog "github.com/nao1215/sitemigrate/internal/log"
	"github.com/nao1215/sitemigrate/internal/media"
	"github.com/nao1215/sitemigrate/internal/pipeline"
	"github.com/nao1215/sitemigrate/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	defaults := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "crawl [start-url]",
		Short: "Crawl a website and write the migration bundle",
		Long: `Crawl renders every reachable page of a website in headless Chrome and
extracts its content for migration.

For each page it records metadata, SEO tags, the hero, content sections,
forms, navigation, images, videos and documents. Images and documents are
downloaded into the bundle. Pages are crawled breadth-first within the host
of the start URL, up to --max-depth links away and --max-pages in total.

Ctrl-C stops the crawl; the pages gathered so far are still written.

Examples:
  # Crawl a site with the default limits
  sitemigrate crawl https://www.example.com/

  # Small test crawl without media downloads
  sitemigrate crawl --max-pages 20 --max-depth 1 --download-media=false https://www.example.com/

  # Tag pages and skip a section of the site
  sitemigrate crawl --page-type 'event=/events/' --exclude '/archive/' https://www.example.com/

  # Use a custom configuration file
  sitemigrate crawl -c myconfig.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	flags := cmd.Flags()

	// Scope flags
	flags.String("base-url", "",
		"Site boundary (default: scheme and host of the start URL)")
	flags.IntP("max-pages", "p", defaults.MaxPages,
		"Maximum number of pages to fetch")
	flags.IntP("max-depth", "d", defaults.MaxDepth,
		"Maximum link depth from the start URL (0 fetches only the start URL)")
	flags.StringArrayP("exclude", "x", nil,
		"Regular expression of URLs never to crawl, repeatable (replaces the defaults)")
	flags.StringArray("page-type", nil,
		"Page-type rule as type=pattern, repeatable, first match wins (replaces the defaults)")
	flags.Bool("respect-robots", defaults.RespectRobots,
		"Skip URLs disallowed by robots.txt")

	// Politeness flags
	flags.IntP("concurrency", "n", defaults.Concurrency,
		"Maximum number of pages rendered at once")
	flags.Duration("delay", defaults.DelayBetweenRequests,
		"Pause between two batches of pages")
	flags.DurationP("timeout", "t", defaults.Timeout,
		"Navigation timeout for each page")
	flags.Duration("settle-delay", defaults.SettleDelay,
		"Wait after the network goes idle before capturing the page")

	// Browser flags
	flags.String("user-agent", defaults.UserAgent,
		"User agent of the browser and the downloader")
	flags.String("viewport", fmt.Sprintf("%dx%d", defaults.Viewport.Width, defaults.Viewport.Height),
		"Browser window size as WIDTHxHEIGHT")
	flags.Bool("headless", defaults.Headless,
		"Run Chrome without a window")
	flags.String("proxy", "",
		"Proxy for the browser and the downloader (http, https or socks5 URL)")
	flags.String("chrome", "",
		"Path of the Chrome binary (default: search the usual locations)")
	flags.StringArray("ignore-selector", nil,
		"CSS selector removed before extraction, repeatable (replaces the defaults)")

	// Media flags
	flags.Bool("download-media", defaults.DownloadMedia,
		"Download images and documents into the bundle")
	flags.StringSlice("image-formats", nil,
		"Image file extensions (replaces the defaults)")
	flags.StringSlice("document-formats", nil,
		"Document file extensions (replaces the defaults)")
	flags.Int("download-concurrency", defaults.DownloadConcurrency,
		"Number of media files downloaded at once")
	flags.Float64("download-rate", defaults.DownloadRateLimit,
		"Media requests per second, 0 for no limit")
	flags.Bool("exif", defaults.ExtractEXIF,
		"Record EXIF metadata of downloaded images")

	// Output flags
	flags.StringP("output", "o", defaults.OutputDir,
		"Directory of the migration bundle")
	flags.Bool("history", defaults.SaveHistory,
		"Store the run in the history database")
	flags.String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	// Configuration file
	flags.StringP("config", "c", "",
		"Configuration file path (default: .sitemigrate.yaml in current or XDG config directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)

	chromePath, err := cmd.Flags().GetString("chrome")
	if err != nil {
		return err
	}

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing current pages...")
			cancel()
		case <-ctx.Done():
		}
	}()

	browser, err := fetcher.NewBrowser(ctx, fetcher.BrowserOptions{
		Timeout:     cfg.Timeout,
		SettleDelay: cfg.SettleDelay,
		UserAgent:   cfg.UserAgent,
		Width:       cfg.Viewport.Width,
		Height:      cfg.Viewport.Height,
		Headless:    cfg.Headless,
		ProxyURL:    cfg.ProxyURL,
		ExecPath:    chromePath,
	}, logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	run, err := runCrawl(ctx, cfg, browser, logger)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), run)
	return nil
}

// runCrawl wires the crawl components around pages and executes the
// pipeline. Only errors that leave no bundle behind are returned.
func runCrawl(ctx context.Context, cfg *config.Config, pages crawler.PageFetcher, logger *slog.Logger) (*pipeline.Run, error) {
	classifier, err := crawler.NewClassifier(cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.New(classifier, cfg.IgnoreSelectors, extract.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	client, err := fetcher.NewHTTPClient(fetcher.ClientOptions{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
		ProxyURL:  cfg.ProxyURL,
	})
	if err != nil {
		return nil, err
	}

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithDelay(cfg.DelayBetweenRequests),
		crawler.WithLogger(logger),
	}
	if cfg.RespectRobots {
		spiderOpts = append(spiderOpts, crawler.WithRobots(fetcher.NewRobotsAgent(client, cfg.UserAgent, logger)))
	}

	run := pipeline.NewRun(cfg)
	components := pipeline.Components{
		Crawler: crawler.NewSpider(pages, extractor, classifier, spiderOpts...),
		Bundle:  report.NewBundle(run.Layout, report.WithLogger(logger)),
	}

	// Saver and History stay nil interfaces when disabled.
	if cfg.DownloadMedia {
		downloader := fetcher.NewDownloader(client,
			fetcher.WithRateLimit(cfg.DownloadRateLimit),
			fetcher.WithDownloadLogger(logger),
		)
		components.Saver = media.NewSaver(downloader, run.Layout,
			media.WithConcurrency(cfg.DownloadConcurrency),
			media.WithEXIF(cfg.ExtractEXIF),
			media.WithLogger(logger),
		)
	}

	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("crawl history disabled", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			components.History = db
		}
	}

	p := pipeline.DefaultPipeline(components, pipeline.WithLogger(logger))
	logger.Debug("starting pipeline", "steps", p.StepNames(), "output", cfg.OutputDir)

	if err := p.Execute(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// buildConfig creates a Config from defaults, the configuration file and
// the command flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		f.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if len(args) > 0 {
		cfg.StartURL = args[0]
	}

	if err := applyFlags(flags, cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getPersistentBool(cmd, "verbose")
	cfg.LogJSON = getPersistentBool(cmd, "log-json")

	return cfg, nil
}

// applyFlags overlays the flags given on the command line onto cfg.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	overlays := []error{
		overlay(flags, "base-url", flags.GetString, &cfg.BaseURL),
		overlay(flags, "max-pages", flags.GetInt, &cfg.MaxPages),
		overlay(flags, "max-depth", flags.GetInt, &cfg.MaxDepth),
		overlay(flags, "exclude", flags.GetStringArray, &cfg.ExcludePatterns),
		overlay(flags, "respect-robots", flags.GetBool, &cfg.RespectRobots),
		overlay(flags, "concurrency", flags.GetInt, &cfg.Concurrency),
		overlay(flags, "delay", flags.GetDuration, &cfg.DelayBetweenRequests),
		overlay(flags, "timeout", flags.GetDuration, &cfg.Timeout),
		overlay(flags, "settle-delay", flags.GetDuration, &cfg.SettleDelay),
		overlay(flags, "user-agent", flags.GetString, &cfg.UserAgent),
		overlay(flags, "headless", flags.GetBool, &cfg.Headless),
		overlay(flags, "proxy", flags.GetString, &cfg.ProxyURL),
		overlay(flags, "ignore-selector", flags.GetStringArray, &cfg.IgnoreSelectors),
		overlay(flags, "download-media", flags.GetBool, &cfg.DownloadMedia),
		overlay(flags, "image-formats", flags.GetStringSlice, &cfg.ImageFormats),
		overlay(flags, "document-formats", flags.GetStringSlice, &cfg.DocumentFormats),
		overlay(flags, "download-concurrency", flags.GetInt, &cfg.DownloadConcurrency),
		overlay(flags, "download-rate", flags.GetFloat64, &cfg.DownloadRateLimit),
		overlay(flags, "exif", flags.GetBool, &cfg.ExtractEXIF),
		overlay(flags, "output", flags.GetString, &cfg.OutputDir),
		overlay(flags, "history", flags.GetBool, &cfg.SaveHistory),
		overlay(flags, "db-dir", flags.GetString, &cfg.DBDir),
	}
	for _, err := range overlays {
		if err != nil {
			return err
		}
	}

	if flags.Changed("viewport") {
		raw, err := flags.GetString("viewport")
		if err != nil {
			return err
		}
		vp, err := parseViewport(raw)
		if err != nil {
			return err
		}
		cfg.Viewport = vp
	}

	if flags.Changed("page-type") {
		raw, err := flags.GetStringArray("page-type")
		if err != nil {
			return err
		}
		rules, err := parsePageTypes(raw)
		if err != nil {
			return err
		}
		cfg.PageTypes = rules
	}

	return nil
}

// overlay copies a flag value into dst when the flag was set explicitly.
func overlay[T any](flags *pflag.FlagSet, name string, get func(string) (T, error), dst *T) error {
	if !flags.Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// parseViewport parses WIDTHxHEIGHT.
func parseViewport(raw string) (config.Viewport, error) {
	var vp config.Viewport
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(raw)), "x")
	if !ok {
		return vp, fmt.Errorf("invalid viewport %q: use WIDTHxHEIGHT", raw)
	}
	if _, err := fmt.Sscan(w, &vp.Width); err != nil {
		return vp, fmt.Errorf("invalid viewport width %q: %w", w, err)
	}
	if _, err := fmt.Sscan(h, &vp.Height); err != nil {
		return vp, fmt.Errorf("invalid viewport height %q: %w", h, err)
	}
	return vp, nil
}

// parsePageTypes parses type=pattern rules, keeping their order.
func parsePageTypes(raw []string) ([]config.PageTypeRule, error) {
	rules := make([]config.PageTypeRule, 0, len(raw))
	for _, r := range raw {
		typ, pattern, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(typ) == "" {
			return nil, fmt.Errorf("invalid page type rule %q: use type=pattern", r)
		}
		rules = append(rules, config.PageTypeRule{Type: strings.TrimSpace(typ), Pattern: pattern})
	}
	return rules, nil
}

// setupLogger creates a structured logger based on the global log flags.
func setupLogger(w io.Writer, verbose, jsonOutput bool) *slog.Logger {
	if jsonOutput {
		return applog.NewJSONLogger(w, verbose)
	}
	return applog.NewLogger(w, verbose)
}

// printSummary prints where the bundle went and how the run ended.
func printSummary(w io.Writer, run *pipeline.Run) {
	r := run.Report
	if r == nil {
		fmt.Fprintln(w, "No report was produced.")
		return
	}

	status := "complete"
	if r.Run.Interrupted {
		status = "interrupted (partial results)"
	}

	fmt.Fprintf(w, "Crawl %s: %s\n", status, r.Run.StartURL)
	fmt.Fprintf(w, "  Run ID:     %s\n", r.Run.ID)
	fmt.Fprintf(w, "  Duration:   %s\n", r.Run.Duration().Round(time.Second))
	fmt.Fprintf(w, "  Pages:      %d\n", r.Pages)
	fmt.Fprintf(w, "  Images:     %d\n", r.Images)
	fmt.Fprintf(w, "  Videos:     %d\n", r.Videos)
	fmt.Fprintf(w, "  Documents:  %d\n", r.Documents)
	fmt.Fprintf(w, "  Downloaded: %d\n", r.Downloaded)
	fmt.Fprintf(w, "  Errors:     %d\n", len(r.Errors))

	if run.Bundle != nil {
		fmt.Fprintf(w, "\nBundle written to %s (%d artifacts)\n", run.Layout.Root, len(run.Bundle.Written))
	}
	fmt.Fprintf(w, "Report: %s\n", run.Layout.Abs(media.ReportFile))
}
