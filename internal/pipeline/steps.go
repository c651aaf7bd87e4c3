package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitemigrate/internal/crawler"
	"github.com/nao1215/sitemigrate/internal/media"
	"github.com/nao1215/sitemigrate/internal/model"
	"github.com/nao1215/sitemigrate/internal/report"
)

// ErrOutputDir is returned when the output directory tree cannot be created.
var ErrOutputDir = errors.New("failed to create output directory")

// Crawler runs the crawl. crawler.Spider implements it.
type Crawler interface {
	Crawl(ctx context.Context, startURL string) (*crawler.CrawlState, error)
}

// MediaSaver downloads the images and documents of crawled pages.
// media.Saver implements it.
type MediaSaver interface {
	SaveAll(ctx context.Context, pages []*model.PageRecord) media.SaveResult
}

// BundleWriter writes the migration bundle. report.Bundle implements it.
type BundleWriter interface {
	Write(r *model.CrawlReport, pages []*model.PageRecord) *report.Result
}

// HistoryStore records finished runs. database.CrawlDB implements it.
type HistoryStore interface {
	SaveRun(ctx context.Context, r *model.CrawlReport, pages []*model.PageRecord) error
}

// PrepareStep creates the output directory tree.
type PrepareStep struct{}

// NewPrepareStep creates a PrepareStep.
func NewPrepareStep() *PrepareStep {
	return &PrepareStep{}
}

// Name returns the step name.
func (s *PrepareStep) Name() string {
	return "prepare"
}

// Do executes the prepare step.
func (s *PrepareStep) Do(_ context.Context, run *Run) error {
	if err := run.Layout.Prepare(); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputDir, err)
	}
	return nil
}

// CrawlStep discovers and extracts the pages of the site.
type CrawlStep struct {
	crawler Crawler
	logger  *slog.Logger
}

// NewCrawlStep creates a CrawlStep.
func NewCrawlStep(c Crawler, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{crawler: c, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step. Per-page failures are kept in the crawl
// state; only an unusable start URL fails the step.
func (s *CrawlStep) Do(ctx context.Context, run *Run) error {
	state, err := s.crawler.Crawl(ctx, run.Info.StartURL)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", run.Info.StartURL, err)
	}

	run.State = state
	run.Info.ID = state.RunID
	if state.Interrupted {
		run.Info.Interrupted = true
	}

	s.logger.Info("crawl step finished",
		"run_id", state.RunID,
		"pages", len(state.Pages),
		"errors", len(state.Errors),
	)
	return nil
}

// MediaStep downloads images and documents into the bundle.
type MediaStep struct {
	saver  MediaSaver
	logger *slog.Logger
}

// NewMediaStep creates a MediaStep.
func NewMediaStep(saver MediaSaver, logger *slog.Logger) *MediaStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaStep{saver: saver, logger: logger}
}

// Name returns the step name.
func (s *MediaStep) Name() string {
	return "media"
}

// Do executes the media step. Failed downloads are recorded on the run.
func (s *MediaStep) Do(ctx context.Context, run *Run) error {
	pages := run.Pages()
	if len(pages) == 0 {
		return nil
	}

	res := s.saver.SaveAll(ctx, pages)
	run.Downloaded += res.Downloaded
	run.Errors = append(run.Errors, res.Errors...)

	s.logger.Info("media step finished",
		"downloaded", res.Downloaded,
		"failed", len(res.Errors),
	)
	return ctx.Err()
}

// ReportStep builds the run report and writes the bundle.
type ReportStep struct {
	writer BundleWriter

	// now is replaced in tests.
	now func() time.Time
}

// NewReportStep creates a ReportStep.
func NewReportStep(w BundleWriter) *ReportStep {
	return &ReportStep{writer: w, now: time.Now}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do executes the report step. Artifact failures are listed in the
// written report and never fail the step.
func (s *ReportStep) Do(_ context.Context, run *Run) error {
	run.Info.Finished = s.now()

	pages := run.Pages()
	r := model.BuildReport(run.Info, run.Stats(), pages, run.AllErrors())
	res := s.writer.Write(r, pages)

	run.Bundle = res
	run.Report = r
	if res != nil && res.Report != nil {
		run.Report = res.Report
	}
	return nil
}

// HistoryStep stores the finished run in the history database.
type HistoryStep struct {
	store HistoryStore
}

// NewHistoryStep creates a HistoryStep.
func NewHistoryStep(store HistoryStore) *HistoryStep {
	return &HistoryStep{store: store}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do executes the history step.
func (s *HistoryStep) Do(ctx context.Context, run *Run) error {
	if run.Report == nil || run.State == nil {
		return errors.New("no crawl to record")
	}
	if err := s.store.SaveRun(ctx, run.Report, run.Pages()); err != nil {
		return fmt.Errorf("save run history: %w", err)
	}
	return nil
}

// Components are the collaborators of the default pipeline.
// Saver and History are optional.
type Components struct {
	Crawler Crawler
	Saver   MediaSaver
	Bundle  BundleWriter
	History HistoryStore
}

// DefaultPipeline creates the pipeline used by the crawl command:
// prepare, crawl and, when a saver is given, media; then report and,
// when a history store is given, history.
func DefaultPipeline(c Components, opts ...Option) *Pipeline {
	p := New(opts...)

	p.AddSteps(
		NewPrepareStep(),
		NewCrawlStep(c.Crawler, p.logger),
	)
	if c.Saver != nil {
		p.AddStep(NewMediaStep(c.Saver, p.logger))
	}

	p.AddFinalStep(NewReportStep(c.Bundle))
	if c.History != nil {
		p.AddFinalStep(NewHistoryStep(c.History))
	}

	return p
}
