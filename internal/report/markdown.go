package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/sitemigrate/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownWriter outputs the migration report in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	caser := cases.Title(language.English)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeBreakdown(md, "Pages by Type", "Page Type", report.ByPageType, func(s string) string {
		return caser.String(strings.ReplaceAll(s, "-", " "))
	})
	w.writeBreakdown(md, "Images by Context", "Context", report.ByImageContext, caser.String)
	w.writeBreakdown(md, "Videos by Platform", "Platform", report.ByVideoPlatform, caser.String)
	w.writeBreakdown(md, "Sections by Type", "Section Type", report.BySectionType, caser.String)
	w.writeMediaNotes(md, report)
	w.writeIntegrations(md, report)
	w.writeErrors(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Site Migration Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + report.Run.StartURL + "`"},
			{"Run ID", "`" + report.Run.ID + "`"},
			{"Started", report.Run.Started.Format("2006-01-02 15:04:05 MST")},
			{"Finished", report.Run.Finished.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Run.Duration().Round(time.Second).String()},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on report state.
func statusText(report *model.CrawlReport) string {
	switch {
	case report.Run.Interrupted:
		return "⚠️ Interrupted (partial results)"
	case report.HasErrors():
		return "✅ Complete with " + strconv.Itoa(len(report.Errors)) + " error(s)"
	default:
		return "✅ Complete"
	}
}

// writeSummary writes the totals and the scheduler counters.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Item", "Count"},
		Rows: [][]string{
			{"Pages crawled", strconv.Itoa(report.Pages)},
			{"Images", strconv.Itoa(report.Images)},
			{"Videos", strconv.Itoa(report.Videos)},
			{"Documents", strconv.Itoa(report.Documents)},
			{"Forms", strconv.Itoa(report.Forms)},
			{"Files downloaded", strconv.Itoa(report.Downloaded)},
			{"Pages with structured data", strconv.Itoa(report.StructuredDataPages)},
			{"Errors", strconv.Itoa(len(report.Errors))},
		},
	})
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Crawl", "Count"},
		Rows: [][]string{
			{"URLs visited", strconv.Itoa(report.Stats.Visited)},
			{"Skipped (excluded)", strconv.Itoa(report.Stats.Excluded)},
			{"Skipped (too deep)", strconv.Itoa(report.Stats.TooDeep)},
			{"Skipped (robots.txt)", strconv.Itoa(report.Stats.RobotsBlocked)},
			{"Left in frontier", strconv.Itoa(report.Stats.Remaining)},
			{"Deepest level", strconv.Itoa(report.Stats.MaxDepthSeen)},
		},
	})
	md.PlainText("")

	if report.Run.Interrupted {
		md.Warningf("The crawl was interrupted. %d URL(s) were still queued; the bundle only covers pages crawled before that.",
			report.Stats.Remaining)
		md.PlainText("")
	}
}

// writeBreakdown writes a count table and, when there is more than one
// row, a mermaid pie chart of the same data.
func (w *MarkdownWriter) writeBreakdown(md *markdown.Markdown, title, column string, counts []model.Count, label func(string) string) {
	md.H2(title)
	md.PlainText("")

	if len(counts) == 0 {
		md.PlainText("None found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{label(c.Label), strconv.Itoa(c.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{column, "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(counts) > 1 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle(title),
			piechart.WithShowData(true),
		)
		for _, c := range counts {
			chart.LabelAndIntValue(label(c.Label), uint64(c.Count)) //nolint:gosec // counts are never negative
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

// writeMediaNotes flags media that needs manual attention.
func (w *MarkdownWriter) writeMediaNotes(md *markdown.Markdown, report *model.CrawlReport) {
	if report.ImagesWithGPS > 0 {
		md.Cautionf("%d downloaded image(s) embed GPS coordinates. Strip EXIF data before publishing them on the new site.",
			report.ImagesWithGPS)
		md.PlainText("")
	}
	if report.Images+report.Documents > 0 && report.Downloaded == 0 {
		md.Note("No media files were downloaded. Image and document records only carry their source URLs.")
		md.PlainText("")
	}
}

// writeIntegrations lists the tracking tags, social profiles and contact
// addresses found on the site.
func (w *MarkdownWriter) writeIntegrations(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Third-Party Integrations")
	md.PlainText("")

	if len(report.TrackingTags) == 0 && len(report.SocialProfiles) == 0 && len(report.ContactEmails) == 0 {
		md.PlainText("None found.")
		md.PlainText("")
		return
	}

	if len(report.TrackingTags) > 0 {
		rows := make([][]string, len(report.TrackingTags))
		for i, t := range report.TrackingTags {
			rows[i] = []string{t.Provider, "`" + t.ID + "`"}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Tracking", "ID"},
			Rows:   rows,
		})
		md.PlainText("")
		md.Note("Install these tags on the new site before switching DNS, or analytics history will have a gap.")
		md.PlainText("")
	}

	if len(report.SocialProfiles) > 0 {
		rows := make([][]string, len(report.SocialProfiles))
		for i, sp := range report.SocialProfiles {
			rows[i] = []string{sp.Platform, escapeCell(sp.Handle), escapeCell(sp.URL)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Platform", "Handle", "URL"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(report.ContactEmails) > 0 {
		md.PlainText("**Contact addresses**")
		md.PlainText("")
		md.BulletList(report.ContactEmails...)
		md.PlainText("")
	}
}

// writeErrors writes every recorded failure.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Errors")
	md.PlainText("")

	if !report.HasErrors() {
		md.Tip("No errors recorded.")
		md.PlainText("")
		return
	}

	byKind := report.ErrorsByKind()
	kinds := []model.ErrorKind{
		model.ErrorKindNavigation,
		model.ErrorKindExtraction,
		model.ErrorKindDownload,
		model.ErrorKindOutput,
	}
	summary := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		if byKind[k] > 0 {
			summary = append(summary, []string{k.String(), strconv.Itoa(byKind[k])})
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   summary,
	})
	md.PlainText("")

	rows := make([][]string, len(report.Errors))
	for i, e := range report.Errors {
		rows[i] = []string{
			escapeCell(e.URL),
			e.Kind.String(),
			escapeCell(truncateString(e.Message, 120)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitemigrate](https://github.com/nao1215/sitemigrate)*")
}

// escapeCell keeps table cells on one line and escapes column separators.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
