package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/sitemigrate/internal/model"
)

// URLMappingHeader is the header row of url-mapping.csv.
var URLMappingHeader = []string{"Old URL", "Slug", "Page Type", "Title"}

// CSVWriter outputs the URL mapping table.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs one row per page, in crawl order, after the header row.
func (w *CSVWriter) Write(pages []*model.PageRecord) error {
	cw := csv.NewWriter(w.output)
	if err := cw.Write(URLMappingHeader); err != nil {
		return err
	}
	for _, p := range pages {
		if err := cw.Write([]string{p.URL, p.Slug, p.PageType.String(), p.Title()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
