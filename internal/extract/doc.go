// Package extract turns a rendered page into a model.PageRecord.
//
// Extraction is heuristic: class names, ids and element types decide what
// counts as a hero, a gallery, a logo or a breadcrumb. Every heuristic is an
// ordered rule table evaluated first-match-wins, so the tables can be read
// and tested without a browser.
//
// Missing or malformed attributes produce empty fields, never errors.
// A JSON-LD block that is not valid JSON is skipped on its own.
//
// Usage:
//
//	ex, err := extract.New(classifier, cfg.IgnoreSelectors)
//	record, links, err := ex.Extract(rendered.HTML, pageURL)
package extract
