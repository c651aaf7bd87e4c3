package media

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/sitemigrate/internal/model"
	"golang.org/x/sync/errgroup"
)

// BinaryDownloader saves one URL to a file. fetcher.Downloader implements it.
type BinaryDownloader interface {
	DownloadBinary(ctx context.Context, rawURL, dest string) (string, error)
}

// Saver downloads the images and documents of crawled pages into the bundle.
type Saver struct {
	downloader  BinaryDownloader
	layout      Layout
	concurrency int
	readEXIF    bool
	logger      *slog.Logger
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithConcurrency sets how many files are downloaded at once.
func WithConcurrency(n int) SaverOption {
	return func(s *Saver) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithEXIF enables EXIF inspection of downloaded JPEG and TIFF images.
func WithEXIF(enabled bool) SaverOption {
	return func(s *Saver) {
		s.readEXIF = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) SaverOption {
	return func(s *Saver) {
		s.logger = logger
	}
}

// NewSaver creates a Saver writing under layout.
func NewSaver(d BinaryDownloader, layout Layout, opts ...SaverOption) *Saver {
	s := &Saver{
		downloader:  d,
		layout:      layout,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SaveResult summarizes a SaveAll call.
type SaveResult struct {
	// Downloaded is the number of files written.
	Downloaded int

	// Errors lists failed downloads.
	Errors []model.CrawlError
}

// job is one file to fetch. The first page referencing a URL decides its
// path.
type job struct {
	url  string
	rel  string
	exif *model.EXIFSummary
	err  error
}

// SaveAll downloads every distinct image and document URL of pages and
// sets LocalPath (and EXIF) on each record referencing it. A failed file
// leaves LocalPath empty and is reported in the result; it never stops
// the others.
func (s *Saver) SaveAll(ctx context.Context, pages []*model.PageRecord) SaveResult {
	jobs, index := s.plan(pages)
	if len(jobs) == 0 {
		return SaveResult{}
	}
	s.logger.Info("downloading media", "files", len(jobs), "concurrency", s.concurrency)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range jobs {
		j := &jobs[i]
		g.Go(func() error {
			s.run(ctx, j)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // jobs carry their own errors

	var result SaveResult
	for i := range jobs {
		j := &jobs[i]
		if j.err != nil {
			if ctx.Err() != nil && errors.Is(j.err, context.Canceled) {
				continue
			}
			result.Errors = append(result.Errors, model.NewCrawlError(j.url, model.ErrorKindDownload, j.err))
			continue
		}
		result.Downloaded++
	}

	for _, p := range pages {
		for k := range p.Media.Images {
			img := &p.Media.Images[k]
			if j := &jobs[index[img.URL]]; j.err == nil {
				img.LocalPath = j.rel
				img.EXIF = j.exif
			}
		}
		for k := range p.Media.Documents {
			doc := &p.Media.Documents[k]
			if j := &jobs[index[doc.URL]]; j.err == nil {
				doc.LocalPath = j.rel
			}
		}
	}
	return result
}

// plan lists the distinct files to fetch and maps each URL to its job.
func (s *Saver) plan(pages []*model.PageRecord) ([]job, map[string]int) {
	var jobs []job
	index := make(map[string]int)
	add := func(rawURL, rel string) {
		if _, ok := index[rawURL]; ok {
			return
		}
		index[rawURL] = len(jobs)
		jobs = append(jobs, job{url: rawURL, rel: rel})
	}
	for _, p := range pages {
		for _, img := range p.Media.Images {
			add(img.URL, ImagePath(img))
		}
		for _, doc := range p.Media.Documents {
			add(doc.URL, DocumentPath(doc))
		}
	}
	return jobs, index
}

// run downloads one file. Each job is touched by exactly one goroutine.
func (s *Saver) run(ctx context.Context, j *job) {
	if err := ctx.Err(); err != nil {
		j.err = err
		return
	}

	dest := s.layout.Abs(j.rel)
	if _, err := s.downloader.DownloadBinary(ctx, j.url, dest); err != nil {
		j.err = err
		s.logger.Warn("media download failed", "url", j.url, "error", err)
		return
	}

	if s.readEXIF && SupportsEXIF(dest) {
		summary, err := ReadEXIF(dest)
		if err != nil {
			s.logger.Debug("unreadable EXIF data", "url", j.url, "error", err)
			return
		}
		j.exif = summary
		if summary != nil && summary.HasGPS {
			s.logger.Info("image carries GPS coordinates", "url", j.url, "path", j.rel)
		}
	}
}
