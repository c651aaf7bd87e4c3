// Package pipeline runs one site migration as an ordered list of steps.
//
// A Run carries everything the steps produce: the crawl state, download
// errors, the final report. The default pipeline is
//
//	prepare -> crawl -> media      (regular steps)
//	report -> history              (final steps)
//
// Regular steps stop at the first error, which is fatal for the run, or
// when the context is cancelled. Final steps run once the regular steps
// are over, on a context that is no longer cancelled, so an interrupted
// crawl still writes the pages it gathered. They are skipped after a fatal
// error, and their own failures are logged and never fail the run.
package pipeline
