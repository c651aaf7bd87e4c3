// Package database provides SQLite-based crawl history for sitemigrate.
//
// Every finished run is stored with its report and the list of pages it
// produced (URL, slug, page type, title, content hash). Runs are grouped
// by site, the lower-cased host of the base URL, so two runs of the same
// site can be compared: pages added, removed, retitled or whose rendered
// HTML changed.
//
// The database is a single file (sitemigrate.db) opened through the
// CGO-free modernc.org/sqlite driver with WAL enabled.
package database
