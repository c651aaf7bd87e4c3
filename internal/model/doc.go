// Package model defines the data structures shared by the crawler, the
// extractor, the reporter and the history database.
//
// This package contains the following main types:
//   - PageRecord: one successfully fetched page with everything extracted from it
//   - ImageRecord, VideoRecord, DocumentRecord: typed media records
//   - CrawlError: a per-URL or per-asset failure shown in the report
//   - CrawlReport: aggregate counts folded over a finished run
//
// Models live in their own package because crawler, extract, report and
// database all need them and must not import each other.
//
// Every type serializes to JSON; the field names are the ones written to
// pages/<slug>.json and the manifests.
package model
