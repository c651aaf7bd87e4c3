package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/nao1215/sitemigrate/internal/media"
	"github.com/nao1215/sitemigrate/internal/model"
)

// Bundle writes the artifacts of a run under an output layout.
type Bundle struct {
	layout media.Layout
	logger *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// BundleOption configures a Bundle.
type BundleOption func(*Bundle)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) BundleOption {
	return func(b *Bundle) {
		b.logger = logger
	}
}

// NewBundle creates a Bundle writing under layout.
func NewBundle(layout media.Layout, opts ...BundleOption) *Bundle {
	b := &Bundle{
		layout: layout,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Result lists what a Bundle wrote.
type Result struct {
	// Written holds the paths written, relative to the output directory.
	Written []string

	// Errors holds one output error per artifact that could not be written.
	Errors []model.CrawlError

	// Report is the report as written to migration-report.md, including
	// output errors of the artifacts written before it.
	Report *model.CrawlReport
}

// Write writes every artifact of the run. It never stops at the first
// failure: each failed artifact is logged and recorded in the result.
func (b *Bundle) Write(report *model.CrawlReport, pages []*model.PageRecord) *Result {
	res := &Result{}

	for _, p := range pages {
		b.writeArtifact(res, media.PagePath(p.Slug), func(buf *bytes.Buffer) error {
			_, err := NewJSONWriter(buf, WithPrettyPrint()).Write(p)
			return err
		})
	}

	b.writeArtifact(res, media.SiteStructureFile, func(buf *bytes.Buffer) error {
		_, err := NewJSONWriter(buf, WithPrettyPrint()).Write(NewSiteStructure(report.Run, pages, b.now()))
		return err
	})
	b.writeArtifact(res, media.NavigationMapFile, func(buf *bytes.Buffer) error {
		_, err := NewJSONWriter(buf, WithPrettyPrint()).Write(NewNavigationMap(pages))
		return err
	})
	b.writeArtifact(res, media.VideoInventory, func(buf *bytes.Buffer) error {
		_, err := NewJSONWriter(buf, WithPrettyPrint()).Write(NewVideoInventory(pages))
		return err
	})
	b.writeArtifact(res, media.URLMappingFile, func(buf *bytes.Buffer) error {
		return NewCSVWriter(buf).Write(pages)
	})

	final := *report
	final.Errors = append(slices.Clone(report.Errors), res.Errors...)
	res.Report = &final
	b.writeArtifact(res, media.ReportFile, func(buf *bytes.Buffer) error {
		_, err := NewMarkdownWriter(buf).Write(&final)
		return err
	})

	b.logger.Info("bundle written",
		"dir", b.layout.Root,
		"files", len(res.Written),
		"failed", len(res.Errors),
	)
	return res
}

// writeArtifact renders one artifact in memory and writes it to rel, so a
// render failure never leaves a truncated file behind.
func (b *Bundle) writeArtifact(res *Result, rel string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	err := render(&buf)
	if err == nil {
		err = writeFile(b.layout.Abs(rel), buf.Bytes())
	}
	if err != nil {
		err = fmt.Errorf("write %s: %w", rel, err)
		b.logger.Error("failed to write artifact", "path", rel, "error", err)
		res.Errors = append(res.Errors, model.NewCrawlError(rel, model.ErrorKindOutput, err))
		return
	}
	b.logger.Debug("artifact written", "path", rel)
	res.Written = append(res.Written, rel)
}

// writeFile creates the parent directory and writes data to path.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
