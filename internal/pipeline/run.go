package pipeline

import (
	"slices"
	"time"

	"github.com/nao1215/sitemigrate/internal/config"
	"github.com/nao1215/sitemigrate/internal/crawler"
	"github.com/nao1215/sitemigrate/internal/media"
	"github.com/nao1215/sitemigrate/internal/model"
	"github.com/nao1215/sitemigrate/internal/report"
)

// Run is the state of one migration run as it moves through the pipeline.
type Run struct {
	Config *config.Config
	Layout media.Layout
	Info   model.RunInfo

	// State is set by the crawl step.
	State *crawler.CrawlState

	// Errors holds failures recorded after the crawl (downloads).
	Errors []model.CrawlError

	// Downloaded is the number of media files written.
	Downloaded int

	// Report is set by the report step.
	Report *model.CrawlReport

	// Bundle lists the artifacts written by the report step.
	Bundle *report.Result

	// PerformedSteps lists the steps that completed, in order.
	PerformedSteps []string
}

// NewRun creates a Run for cfg, started now.
func NewRun(cfg *config.Config) *Run {
	return &Run{
		Config: cfg,
		Layout: media.NewLayout(cfg.OutputDir),
		Info: model.RunInfo{
			StartURL: cfg.StartURL,
			BaseURL:  cfg.ResolvedBaseURL(),
			Started:  time.Now(),
		},
	}
}

// Pages returns the crawled pages, or nil before the crawl step.
func (r *Run) Pages() []*model.PageRecord {
	if r.State == nil {
		return nil
	}
	return r.State.Pages
}

// AllErrors returns crawl errors followed by the errors recorded after the crawl.
func (r *Run) AllErrors() []model.CrawlError {
	var errs []model.CrawlError
	if r.State != nil {
		errs = slices.Clone(r.State.Errors)
	}
	return append(errs, r.Errors...)
}

// Stats returns the scheduler counters, or zero values before the crawl step.
func (r *Run) Stats() model.CrawlStats {
	if r.State == nil {
		return model.CrawlStats{}
	}
	return r.State.Stats
}
