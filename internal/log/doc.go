// Package log builds the slog loggers used by sitemigrate.
//
// Crawl logs are full of URLs, and URLs on client sites regularly carry
// credentials: basic-auth userinfo on staging hosts, signed asset links,
// preview tokens in query strings. SanitizingHandler wraps any slog.Handler
// and rewrites attributes before they reach the output:
//   - values of credential-like keys (cookie, authorization, password...) are masked
//   - userinfo is removed from URL values
//   - sensitive query parameters (token, key, signature...) are masked in URL values
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Warn("navigation failed", "url", "https://user:pw@staging.example.com/?token=abc")
//	// url=https://staging.example.com/?token=***
package log
