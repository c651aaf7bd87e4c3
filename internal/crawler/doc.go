// Package crawler discovers the pages of one website breadth-first.
//
// # Architecture
//
// The package is built around three pieces:
//
//   - Classifier: pure URL rules (normalization, site boundary, exclusion
//     patterns, page-type table, image/document extensions, slugs)
//   - CrawlState: the frontier queue, the visited set and everything the
//     run accumulates; owned by a single goroutine
//   - Spider: the scheduler that pops batches from the frontier, renders
//     and extracts them concurrently and enqueues the links they return
//
// Rendering and extraction sit behind the PageFetcher and Extractor
// interfaces, implemented by the fetcher and extract packages.
//
// # Scheduling
//
// The spider works in batches. It dequeues up to Concurrency admitted
// entries (never more than the remaining page budget), marks them visited,
// renders them on an errgroup limited to Concurrency goroutines and waits
// for the whole batch. Results come back over a channel; links are
// integrated in dequeue order, so the frontier stays breadth-first. The
// configured delay is slept between batches.
//
// A URL is fetched at most once per run. Entries deeper than MaxDepth,
// matching an exclusion pattern or disallowed by robots.txt are dropped
// without being fetched. MaxPages bounds fetch attempts, failed ones
// included.
//
// # Usage
//
//	classifier, err := crawler.NewClassifier(cfg)
//	spider := crawler.NewSpider(browser, extract.New(classifier), classifier,
//		crawler.WithMaxDepth(cfg.MaxDepth),
//		crawler.WithMaxPages(cfg.MaxPages),
//	)
//	state, err := spider.Crawl(ctx, cfg.StartURL)
package crawler
