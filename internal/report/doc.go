// Package report writes the migration bundle of a finished crawl.
//
// Format writers work on an io.Writer:
//   - JSONWriter: indented JSON for page records and manifests
//   - CSVWriter: the old-URL to slug mapping table
//   - MarkdownWriter: the human-readable migration report
//
// Bundle ties them to the output layout of the media package and writes
// every artifact:
//
//	pages/<slug>.json
//	site-structure.json
//	navigation-map.json
//	media/videos/video-inventory.json
//	url-mapping.csv
//	migration-report.md
//
// A failure to write one artifact is logged and recorded as an output
// error; the remaining artifacts are still written. The Markdown report is
// written last so its Errors section lists those failures too.
package report
