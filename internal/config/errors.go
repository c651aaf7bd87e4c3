package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoStartURL is returned when no start URL is given.
	ErrNoStartURL = errors.New("no start URL specified: provide the site to crawl as an argument")

	// ErrInvalidStartURL is returned when the start URL is not an absolute http(s) URL.
	ErrInvalidStartURL = errors.New("invalid start URL: must be an absolute http or https URL")

	// ErrInvalidBaseURL is returned when the base URL has no host.
	ErrInvalidBaseURL = errors.New("invalid base URL: must include a host")

	// ErrInvalidMaxPages is returned when the page ceiling is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxDepth is returned when the depth ceiling is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when a delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidViewport is returned when a viewport dimension is not positive.
	ErrInvalidViewport = errors.New("invalid viewport: width and height must be positive")

	// ErrInvalidDownloadConcurrency is returned when download concurrency is not positive.
	ErrInvalidDownloadConcurrency = errors.New("invalid download concurrency: must be positive")

	// ErrInvalidRateLimit is returned when the download rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid download rate limit: must be non-negative")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrInvalidPageTypeRule is returned when a page-type rule has no type.
	ErrInvalidPageTypeRule = errors.New("invalid page type rule: type must not be empty")

	// ErrInvalidPattern is wrapped by PatternError.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// PatternError reports a regular expression that failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

// Error implements error.
func (e *PatternError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrInvalidPattern, e.Pattern, e.Err)
}

// Unwrap lets errors.Is match ErrInvalidPattern.
func (e *PatternError) Unwrap() []error {
	return []error{ErrInvalidPattern, e.Err}
}
